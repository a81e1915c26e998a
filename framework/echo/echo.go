// Package authzecho adapts the authorization middleware to Echo.
package authzecho

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lambdakit/go-authz"
	"github.com/lambdakit/go-authz/caching"
	"github.com/lambdakit/go-authz/core"
	"github.com/lambdakit/go-authz/permissions"
)

// DefaultPrincipalKey is the echo context key the principal is stored under.
const DefaultPrincipalKey = "principal"

var (
	ErrMissingPrincipal = errors.New("no principal found in context")
	ErrInvalidPrincipal = errors.New("invalid principal type")
)

// NewEchoMiddleware creates an Echo middleware that authorizes requests with
// m. The principal is stored in the echo context and in the request context.
func NewEchoMiddleware(m *authz.Middleware, opts ...Option) echo.MiddlewareFunc {
	config := newConfig(opts)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if config.skipper(c) {
				return next(c)
			}

			credentials, err := config.extractor(c.Request())
			if err != nil {
				return config.errorHandler(c, err)
			}

			if credentials == "" && config.credentialsOptional {
				return next(c)
			}

			principal, claims, err := m.Authorize(c.Request().Context(), credentials)
			if err != nil {
				return config.errorHandler(c, err)
			}

			c.Set(config.contextKey, principal)
			ctx := core.SetClaims(core.SetPrincipal(c.Request().Context(), principal), claims)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// RequirePermissions lets a request through only when every spec holds for
// its principal.
func RequirePermissions(m *authz.Middleware, specs ...permissions.RawSpec) echo.MiddlewareFunc {
	return guard(m, authz.AllOf, specs)
}

// RequireAnyPermission lets a request through only when at least one spec
// holds for its principal.
func RequireAnyPermission(m *authz.Middleware, specs ...permissions.RawSpec) echo.MiddlewareFunc {
	return guard(m, authz.AnyOf, specs)
}

func guard(m *authz.Middleware, assertion authz.Assertion, specs []permissions.RawSpec) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			principal, err := core.GetPrincipal(c.Request().Context())
			if err != nil {
				return DefaultErrorHandler(c, core.ErrUnauthorized)
			}

			if err := m.Check(c.Request().Context(), principal, assertion, specs...); err != nil {
				return DefaultErrorHandler(c, err)
			}

			return next(c)
		}
	}
}

// Respond writes body as JSON through the cache negotiation of authz.Respond.
func Respond(m *authz.Middleware, c echo.Context, status int, body any, opts caching.Options) error {
	return m.Respond(c.Response(), c.Request(), status, body, opts)
}

// DefaultErrorHandler returns an *echo.HTTPError carrying the status of
// authz.StatusCode and a message that does not reveal the reason.
func DefaultErrorHandler(c echo.Context, err error) error {
	status := authz.StatusCode(err)
	if status == http.StatusUnauthorized {
		c.Response().Header().Set("WWW-Authenticate", "Bearer")
	}
	return echo.NewHTTPError(status, http.StatusText(status)).SetInternal(err)
}

// GetPrincipal returns the principal stored by NewEchoMiddleware under
// contextKey, or DefaultPrincipalKey when contextKey is empty.
func GetPrincipal(c echo.Context, contextKey string) (*permissions.Principal, error) {
	if contextKey == "" {
		contextKey = DefaultPrincipalKey
	}

	principal, ok := c.Get(contextKey).(*permissions.Principal)
	if !ok {
		if c.Get(contextKey) == nil {
			return nil, ErrMissingPrincipal
		}
		return nil, ErrInvalidPrincipal
	}
	return principal, nil
}
