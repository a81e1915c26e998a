package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lambdakit/go-authz/jwks"
	"github.com/lambdakit/go-authz/permissions"
	"github.com/lambdakit/go-authz/validator"
)

// Verifier verifies an Authorization header and returns the token's claims.
// *validator.Validator implements it.
type Verifier interface {
	Verify(ctx context.Context, authorizationHeader string) (*validator.Claims, error)
}

// Logger defines an optional logging interface for the Authorizer.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// PrincipalIDFunc derives the principal id from verified claims.
type PrincipalIDFunc func(claims *validator.Claims) (string, error)

// PermissionsFunc derives the permission names from verified claims.
type PermissionsFunc func(claims *validator.Claims) []string

// Authorizer turns an Authorization header into a Principal. It is the
// boundary between the transport and the verification pipeline: every
// authentication failure leaves it as ErrUnauthorized.
type Authorizer struct {
	verifier    Verifier
	principalID PrincipalIDFunc
	permissions PermissionsFunc
	factory     *permissions.Factory
	logger      Logger
}

// Authorize verifies authorizationHeader and builds the request principal.
//
// Errors:
//   - ErrUnauthorized for a missing, malformed or unverifiable token and for
//     claims from which no principal id can be derived
//   - an error matching validator.ErrConfiguration when the verifier is
//     misconfigured; see IsConfigurationError
func (a *Authorizer) Authorize(ctx context.Context, authorizationHeader string) (*permissions.Principal, error) {
	principal, _, err := a.AuthorizeClaims(ctx, authorizationHeader)
	return principal, err
}

// AuthorizeClaims is Authorize, additionally returning the verified claims
// the principal was derived from.
func (a *Authorizer) AuthorizeClaims(ctx context.Context, authorizationHeader string) (*permissions.Principal, *validator.Claims, error) {
	if strings.TrimSpace(authorizationHeader) == "" {
		a.reject(ErrorCodeTokenMissing, errors.New("no authorization header"), 0)
		return nil, nil, ErrUnauthorized
	}

	start := time.Now()
	claims, err := a.verifier.Verify(ctx, authorizationHeader)
	duration := time.Since(start)

	if err != nil {
		if errors.Is(err, validator.ErrConfiguration) {
			if a.logger != nil {
				a.logger.Error("Authorizer is misconfigured", "error", err)
			}
			return nil, nil, err
		}
		a.reject(validator.Code(err), err, duration)
		return nil, nil, ErrUnauthorized
	}

	principalID, err := a.principalID(claims)
	if err != nil {
		a.reject(ErrorCodePrincipalMissing, err, duration)
		return nil, nil, ErrUnauthorized
	}

	principal := permissions.NewPrincipal(principalID, a.permissions(claims), bearerToken(authorizationHeader))

	if a.logger != nil {
		a.logger.Debug("Request authorized", "principal", principalID, "duration", duration)
	}

	return principal, claims, nil
}

// Permissions returns an evaluator for principal backed by the Authorizer's
// permission factory.
func (a *Authorizer) Permissions(principal *permissions.Principal) *permissions.Evaluator {
	return a.factory.ForPrincipal(principal)
}

func (a *Authorizer) reject(code string, err error, duration time.Duration) {
	if a.logger != nil {
		a.logger.Warn("Authorization failed", "code", code, "error", err, "duration", duration)
	}
}

func bearerToken(authorizationHeader string) string {
	fields := strings.Fields(authorizationHeader)
	if len(fields) != 2 {
		return ""
	}
	return fields[1]
}

// DefaultPrincipalID uses the "{issuer}/userId" claim, where issuer is the
// token's iss without a trailing slash, and falls back to sub.
func DefaultPrincipalID(claims *validator.Claims) (string, error) {
	if claims.Issuer == "" {
		return "", errors.New("token has no issuer")
	}

	userIDClaim := jwks.CanonicalIssuer(claims.Issuer) + "/userId"
	if v, ok := claims.Get(userIDClaim); ok && v != nil {
		id, isString := v.(string)
		if !isString {
			return "", fmt.Errorf("claim %q is not a string", userIDClaim)
		}
		return id, nil
	}

	if claims.Subject == "" {
		return "", errors.New("token has no userId claim and no subject")
	}
	return claims.Subject, nil
}

// DefaultPermissions returns the string entries of the "permissions" claim.
// Other entries, or a claim that is not an array, yield no permissions.
func DefaultPermissions(claims *validator.Claims) []string {
	perms, _ := claims.StringSlice("permissions")
	return perms
}
