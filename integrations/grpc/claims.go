package grpc

import (
	"context"

	"github.com/lambdakit/go-authz/core"
	"github.com/lambdakit/go-authz/permissions"
	"github.com/lambdakit/go-authz/validator"
)

// GetPrincipal retrieves the principal set by the interceptors.
//
// Example:
//
//	principal, err := authzgrpc.GetPrincipal(ctx)
//	if err != nil {
//	    return nil, status.Error(codes.Internal, "failed to get principal")
//	}
//	fmt.Println(principal.PrincipalID)
func GetPrincipal(ctx context.Context) (*permissions.Principal, error) {
	return core.GetPrincipal(ctx)
}

// MustGetPrincipal retrieves the principal from the context or panics.
// Use only when you are certain it exists (e.g., after interceptor has run).
func MustGetPrincipal(ctx context.Context) *permissions.Principal {
	principal, err := core.GetPrincipal(ctx)
	if err != nil {
		panic(err)
	}
	return principal
}

// GetClaims retrieves the verified claims set by the interceptors.
func GetClaims(ctx context.Context) (*validator.Claims, error) {
	return core.GetClaims[*validator.Claims](ctx)
}
