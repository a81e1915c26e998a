package grpc

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc"

	"github.com/lambdakit/go-authz/core"
	"github.com/lambdakit/go-authz/permissions"
)

// Interceptor provides authorization for gRPC servers.
type Interceptor struct {
	authorizer          *core.Authorizer
	extractor           CredentialsExtractor
	errorHandler        ErrorHandler
	credentialsOptional bool
	excludedMethods     map[string]bool
	methodPermissions   map[string][]permissions.RawSpec
	logger              Logger
}

// New creates a new gRPC authorization interceptor with the provided options.
// WithAuthorizer option is required.
func New(opts ...Option) (*Interceptor, error) {
	interceptor := &Interceptor{
		extractor:         MetadataExtractor,
		errorHandler:      DefaultErrorHandler,
		excludedMethods:   make(map[string]bool),
		methodPermissions: make(map[string][]permissions.RawSpec),
	}

	for _, opt := range opts {
		if err := opt(interceptor); err != nil {
			return nil, err
		}
	}

	if interceptor.authorizer == nil {
		return nil, errors.New("authorizer is required, use WithAuthorizer option")
	}

	return interceptor, nil
}

// UnaryServerInterceptor returns a grpc.UnaryServerInterceptor that
// authorizes calls and makes the principal available in the request context.
func (i *Interceptor) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if i.excludedMethods[info.FullMethod] {
			if i.logger != nil {
				i.logger.Debug("skipping authorization for excluded method",
					"method", info.FullMethod)
			}
			return handler(ctx, req)
		}

		authorizedCtx, err := i.authorize(ctx, info.FullMethod)
		if err != nil {
			return nil, i.errorHandler(err)
		}

		return handler(authorizedCtx, req)
	}
}

// StreamServerInterceptor returns a grpc.StreamServerInterceptor that
// authorizes streams and makes the principal available in the stream context.
func (i *Interceptor) StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		if i.excludedMethods[info.FullMethod] {
			if i.logger != nil {
				i.logger.Debug("skipping authorization for excluded method",
					"method", info.FullMethod)
			}
			return handler(srv, ss)
		}

		authorizedCtx, err := i.authorize(ss.Context(), info.FullMethod)
		if err != nil {
			return i.errorHandler(err)
		}

		return handler(srv, &wrappedServerStream{
			ServerStream: ss,
			ctx:          authorizedCtx,
		})
	}
}

// authorize extracts and verifies the credentials of a call and checks the
// method's required permissions.
func (i *Interceptor) authorize(ctx context.Context, method string) (context.Context, error) {
	credentials, err := i.extractor(ctx)
	if err != nil {
		if i.logger != nil {
			i.logger.Error("failed to extract credentials from gRPC metadata",
				"error", err,
				"method", method)
		}
		return ctx, err
	}

	specs := i.methodPermissions[method]

	if credentials == "" && i.credentialsOptional && len(specs) == 0 {
		return ctx, nil
	}

	principal, claims, err := i.authorizer.AuthorizeClaims(ctx, credentials)
	if err != nil {
		return ctx, err
	}

	if len(specs) > 0 {
		if err := i.authorizer.Permissions(principal).AssertPermissions(ctx, specs...); err != nil {
			if i.logger != nil {
				i.logger.Warn("permission check failed",
					"principal", principal.PrincipalID,
					"method", method,
					"error", err)
			}
			return ctx, fmt.Errorf("method %s: %w", method, err)
		}
	}

	return core.SetClaims(core.SetPrincipal(ctx, principal), claims), nil
}

// wrappedServerStream wraps grpc.ServerStream with a custom context.
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

// Context returns the wrapped context with the principal.
func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}
