package core

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lambdakit/go-authz/permissions"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey int

const (
	claimsKey contextKey = iota
	principalKey
)

// GetClaims retrieves claims from the context with type safety using generics.
//
// Example usage:
//
//	claims, err := core.GetClaims[*validator.Claims](ctx)
//	if err != nil {
//	    return err
//	}
func GetClaims[T any](ctx context.Context) (T, error) {
	var zero T

	val := ctx.Value(claimsKey)
	if val == nil {
		return zero, ErrClaimsNotFound
	}

	claims, ok := val.(T)
	if !ok {
		return zero, fmt.Errorf("%w: claims type assertion failed", ErrClaimsNotFound)
	}

	return claims, nil
}

// SetClaims stores claims in the context.
func SetClaims(ctx context.Context, claims any) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// SetPrincipal stores the request principal in the context.
// This is a helper function for adapters to set the principal after authorization.
func SetPrincipal(ctx context.Context, principal *permissions.Principal) context.Context {
	return context.WithValue(ctx, principalKey, principal)
}

// GetPrincipal retrieves the request principal from the context.
func GetPrincipal(ctx context.Context) (*permissions.Principal, error) {
	principal, ok := ctx.Value(principalKey).(*permissions.Principal)
	if !ok || principal == nil {
		return nil, ErrPrincipalNotFound
	}
	return principal, nil
}

// HasPrincipal checks if a principal exists in the context without retrieving it.
func HasPrincipal(ctx context.Context) bool {
	_, err := GetPrincipal(ctx)
	return err == nil
}

// Keys of the AuthorizerContext scalar map.
const (
	PrincipalIDKey = "principalId"
	AuthTokenKey   = "authToken"
	PermissionsKey = "permissions"
)

// AuthorizerContext is a Principal flattened to string fields, for
// boundaries that only carry scalar values. Permissions holds a JSON array.
type AuthorizerContext struct {
	PrincipalID string `json:"principalId"`
	AuthToken   string `json:"authToken"`
	Permissions string `json:"permissions"`
}

// NewAuthorizerContext flattens principal.
func NewAuthorizerContext(principal *permissions.Principal) (AuthorizerContext, error) {
	perms, err := json.Marshal(principal.Permissions)
	if err != nil {
		return AuthorizerContext{}, fmt.Errorf("could not encode permissions: %w", err)
	}

	return AuthorizerContext{
		PrincipalID: principal.PrincipalID,
		AuthToken:   principal.AuthToken,
		Permissions: string(perms),
	}, nil
}

// Map returns the context as a flat string map keyed by PrincipalIDKey,
// AuthTokenKey and PermissionsKey.
func (c AuthorizerContext) Map() map[string]string {
	return map[string]string{
		PrincipalIDKey: c.PrincipalID,
		AuthTokenKey:   c.AuthToken,
		PermissionsKey: c.Permissions,
	}
}

// AuthorizerContextFromMap reads a context written by Map. A missing
// principal id is an error; missing permissions mean none.
func AuthorizerContextFromMap(m map[string]string) (AuthorizerContext, error) {
	c := AuthorizerContext{
		PrincipalID: m[PrincipalIDKey],
		AuthToken:   m[AuthTokenKey],
		Permissions: m[PermissionsKey],
	}
	if c.PrincipalID == "" {
		return AuthorizerContext{}, fmt.Errorf("%w: missing %s", ErrInvalidAuthorizerContext, PrincipalIDKey)
	}
	return c, nil
}

// Principal rebuilds the principal, decoding the permission array.
func (c AuthorizerContext) Principal() (*permissions.Principal, error) {
	var perms permissions.Set
	if c.Permissions != "" {
		if err := json.Unmarshal([]byte(c.Permissions), &perms); err != nil {
			return nil, fmt.Errorf("%w: %s is not a JSON string array: %w", ErrInvalidAuthorizerContext, PermissionsKey, err)
		}
	}

	return &permissions.Principal{
		PrincipalID: c.PrincipalID,
		Permissions: perms,
		AuthToken:   c.AuthToken,
	}, nil
}
