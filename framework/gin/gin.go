// Package authzgin adapts the authorization middleware to Gin.
package authzgin

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lambdakit/go-authz"
	"github.com/lambdakit/go-authz/caching"
	"github.com/lambdakit/go-authz/core"
	"github.com/lambdakit/go-authz/permissions"
)

// DefaultPrincipalKey is the gin context key the principal is stored under.
const DefaultPrincipalKey = "principal"

var (
	ErrMissingPrincipal = errors.New("no principal found in context")
	ErrInvalidPrincipal = errors.New("invalid principal type")
)

// NewGinMiddleware creates a Gin middleware that authorizes requests with m.
// The principal is stored in the gin context and in the request context,
// so both GetPrincipal and authz.GetPrincipal find it.
func NewGinMiddleware(m *authz.Middleware, opts ...Option) gin.HandlerFunc {
	config := newConfig(opts)

	return func(c *gin.Context) {
		credentials, err := config.extractor(c.Request)
		if err != nil {
			config.errorHandler(c, err)
			return
		}

		if credentials == "" && config.credentialsOptional {
			c.Next()
			return
		}

		principal, claims, err := m.Authorize(c.Request.Context(), credentials)
		if err != nil {
			config.errorHandler(c, err)
			return
		}

		c.Set(config.contextKey, principal)
		c.Request = c.Request.WithContext(core.SetClaims(core.SetPrincipal(c.Request.Context(), principal), claims))
		c.Next()
	}
}

// RequirePermissions lets a request through only when every spec holds for
// its principal. It must run after NewGinMiddleware.
func RequirePermissions(m *authz.Middleware, specs ...permissions.RawSpec) gin.HandlerFunc {
	return guard(m, authz.AllOf, specs)
}

// RequireAnyPermission lets a request through only when at least one spec
// holds for its principal. It must run after NewGinMiddleware.
func RequireAnyPermission(m *authz.Middleware, specs ...permissions.RawSpec) gin.HandlerFunc {
	return guard(m, authz.AnyOf, specs)
}

func guard(m *authz.Middleware, assertion authz.Assertion, specs []permissions.RawSpec) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, err := core.GetPrincipal(c.Request.Context())
		if err != nil {
			DefaultErrorHandler(c, core.ErrUnauthorized)
			return
		}

		if err := m.Check(c.Request.Context(), principal, assertion, specs...); err != nil {
			DefaultErrorHandler(c, err)
			return
		}

		c.Next()
	}
}

// Respond writes body as JSON through the cache negotiation of authz.Respond.
func Respond(m *authz.Middleware, c *gin.Context, status int, body any, opts caching.Options) {
	if err := m.Respond(c.Writer, c.Request, status, body, opts); err != nil {
		_ = c.Error(err)
	}
}

// DefaultErrorHandler aborts with the status of authz.StatusCode and a
// message that does not reveal the reason.
func DefaultErrorHandler(c *gin.Context, err error) {
	status := authz.StatusCode(err)
	if status == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", "Bearer")
	}
	c.AbortWithStatusJSON(status, gin.H{
		"message": http.StatusText(status),
	})
}

// GetPrincipal returns the principal stored by NewGinMiddleware under
// contextKey, or DefaultPrincipalKey when contextKey is empty.
func GetPrincipal(c *gin.Context, contextKey string) (*permissions.Principal, error) {
	if contextKey == "" {
		contextKey = DefaultPrincipalKey
	}
	value, exists := c.Get(contextKey)
	if !exists {
		return nil, ErrMissingPrincipal
	}

	principal, ok := value.(*permissions.Principal)
	if !ok {
		return nil, ErrInvalidPrincipal
	}

	return principal, nil
}
