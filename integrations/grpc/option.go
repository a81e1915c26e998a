package grpc

import (
	"errors"

	"github.com/lambdakit/go-authz/core"
	"github.com/lambdakit/go-authz/permissions"
)

// Option configures the Interceptor.
type Option func(*Interceptor) error

// Logger defines an optional logging interface compatible with log/slog.
// This is the same interface used by core for consistent logging across the stack.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// WithAuthorizer sets the authorizer calls are checked with (REQUIRED).
//
// Example:
//
//	interceptor, _ := authzgrpc.New(
//	    authzgrpc.WithAuthorizer(authorizer),
//	    authzgrpc.WithLogger(logger),
//	)
func WithAuthorizer(a *core.Authorizer) Option {
	return func(i *Interceptor) error {
		if a == nil {
			return errors.New("authorizer cannot be nil")
		}
		i.authorizer = a
		return nil
	}
}

// WithCredentialsOptional allows calls without credentials to proceed.
// When set to true, such calls will not return an error, but the context
// will not contain a principal. Methods with required permissions still
// reject them.
//
// Default: false (credentials required)
func WithCredentialsOptional(optional bool) Option {
	return func(i *Interceptor) error {
		i.credentialsOptional = optional
		return nil
	}
}

// WithLogger sets an optional logger for the interceptor.
func WithLogger(logger Logger) Option {
	return func(i *Interceptor) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		i.logger = logger
		return nil
	}
}

// WithCredentialsExtractor sets a custom credentials extractor function.
// Default is MetadataExtractor which reads the "authorization" metadata.
func WithCredentialsExtractor(extractor CredentialsExtractor) Option {
	return func(i *Interceptor) error {
		if extractor == nil {
			return errors.New("credentials extractor cannot be nil")
		}
		i.extractor = extractor
		return nil
	}
}

// WithErrorHandler sets a custom error handler function.
// Default is DefaultErrorHandler which maps errors to gRPC status codes.
func WithErrorHandler(handler ErrorHandler) Option {
	return func(i *Interceptor) error {
		if handler == nil {
			return errors.New("error handler cannot be nil")
		}
		i.errorHandler = handler
		return nil
	}
}

// WithExcludedMethods excludes specific gRPC methods from authorization.
// Methods should be provided in the format: "/package.Service/Method"
// Example: "/myapp.MyService/PublicMethod", "/grpc.health.v1.Health/Check"
func WithExcludedMethods(methods ...string) Option {
	return func(i *Interceptor) error {
		for _, method := range methods {
			i.excludedMethods[method] = true
		}
		return nil
	}
}

// WithMethodPermissions requires every spec to hold for the principal
// calling method. Calls failing the check end with codes.PermissionDenied.
func WithMethodPermissions(method string, specs ...permissions.RawSpec) Option {
	return func(i *Interceptor) error {
		if method == "" {
			return errors.New("method cannot be empty")
		}
		if len(specs) == 0 {
			return errors.New("at least one permission spec is required")
		}
		i.methodPermissions[method] = append(i.methodPermissions[method], specs...)
		return nil
	}
}
