package core

import (
	"errors"

	"github.com/lambdakit/go-authz/permissions"
	"github.com/lambdakit/go-authz/validator"
)

// Sentinel errors for authorization.
var (
	// ErrUnauthorized is the only error Authorize returns for a request that
	// failed authentication. The reason is logged, never returned, so that
	// callers cannot leak it to the requester.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrPrincipalNotFound is returned when no principal is stored in the context.
	ErrPrincipalNotFound = errors.New("principal not found in context")

	// ErrClaimsNotFound is returned when claims cannot be retrieved from context.
	ErrClaimsNotFound = errors.New("claims not found in context")

	// ErrInvalidAuthorizerContext is returned when an AuthorizerContext cannot
	// be turned back into a principal.
	ErrInvalidAuthorizerContext = errors.New("invalid authorizer context")
)

// Error codes logged by the Authorizer in addition to the validator's codes.
const (
	ErrorCodeTokenMissing     = "token_missing"
	ErrorCodePrincipalMissing = "principal_missing"
	ErrorCodeVerifierNotSet   = "verifier_not_set"
)

// IsConfigurationError reports whether err is a programming error rather
// than a property of the request. Such errors must surface as server errors,
// not as 401 or 403.
func IsConfigurationError(err error) bool {
	return errors.Is(err, validator.ErrConfiguration) || errors.Is(err, permissions.ErrConfiguration)
}
