package grpc

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/lambdakit/go-authz/core"
	"github.com/lambdakit/go-authz/permissions"
)

// ErrorHandler converts authorization errors to gRPC status errors.
type ErrorHandler func(error) error

// DefaultErrorHandler maps authorization errors to gRPC status codes:
// Unauthenticated for core.ErrUnauthorized, PermissionDenied for
// permissions.ErrPermissionDenied, InvalidArgument for malformed metadata
// and Internal for configuration errors and anything else. Status messages
// never carry the reason a token was rejected.
func DefaultErrorHandler(err error) error {
	switch {
	case err == nil:
		return nil
	case core.IsConfigurationError(err):
		return status.Error(codes.Internal, "authorization is misconfigured")
	case errors.Is(err, core.ErrUnauthorized):
		return status.Error(codes.Unauthenticated, "Unauthorized")
	case errors.Is(err, permissions.ErrPermissionDenied):
		return status.Error(codes.PermissionDenied, "permission denied")
	case errors.Is(err, ErrMultipleAuthHeaders):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, "unable to authorize request")
	}
}
