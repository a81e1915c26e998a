package authzecho

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lambdakit/go-authz"
	"github.com/lambdakit/go-authz/caching"
	"github.com/lambdakit/go-authz/core"
	"github.com/lambdakit/go-authz/permissions"
	"github.com/lambdakit/go-authz/validator"
)

const validCredentials = "Bearer valid.jwt.token"

type stubVerifier struct{}

func (stubVerifier) Verify(_ context.Context, header string) (*validator.Claims, error) {
	if header != validCredentials {
		return nil, validator.NewValidationError(validator.ErrorCodeTokenExpired, "token is expired", nil)
	}
	return validator.NewClaims(map[string]any{
		"iss":         "https://issuer.example.com/",
		"sub":         "some-user",
		"permissions": []any{"read"},
	}), nil
}

func newServer(t *testing.T, opts ...Option) *echo.Echo {
	t.Helper()

	authorizer, err := core.New(core.WithVerifier(stubVerifier{}))
	require.NoError(t, err)
	m, err := authz.New(authz.WithAuthorizer(authorizer))
	require.NoError(t, err)

	e := echo.New()
	e.Use(NewEchoMiddleware(m, opts...))

	e.GET("/me", func(c echo.Context) error {
		principal, err := GetPrincipal(c, "")
		if err != nil {
			return c.String(http.StatusOK, "anonymous")
		}
		return c.String(http.StatusOK, principal.PrincipalID)
	})
	e.GET("/health", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	e.GET("/read", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	}, RequirePermissions(m, permissions.Permission("read")))
	e.GET("/admin", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	}, RequireAnyPermission(m, permissions.Permission("admin"), permissions.Permission("root")))
	e.GET("/items", func(c echo.Context) error {
		return Respond(m, c, http.StatusOK, []string{}, caching.Options{})
	})

	return e
}

func serve(e *echo.Echo, path, authorization string) *httptest.ResponseRecorder {
	request := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		request.Header.Set(echo.HeaderAuthorization, authorization)
	}
	recorder := httptest.NewRecorder()
	e.ServeHTTP(recorder, request)
	return recorder
}

func TestNewEchoMiddleware(t *testing.T) {
	e := newServer(t)

	t.Run("valid token", func(t *testing.T) {
		recorder := serve(e, "/me", validCredentials)
		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, "some-user", recorder.Body.String())
	})

	t.Run("expired token", func(t *testing.T) {
		recorder := serve(e, "/me", "Bearer expired.jwt.token")
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		assert.JSONEq(t, `{"message":"Unauthorized"}`, recorder.Body.String())
		assert.Equal(t, "Bearer", recorder.Header().Get("WWW-Authenticate"))
	})

	t.Run("credentials optional", func(t *testing.T) {
		recorder := serve(newServer(t, WithCredentialsOptional(true)), "/me", "")
		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, "anonymous", recorder.Body.String())
	})

	t.Run("skipper", func(t *testing.T) {
		e := newServer(t, WithSkipper(func(c echo.Context) bool {
			return c.Path() == "/health"
		}))
		assert.Equal(t, http.StatusOK, serve(e, "/health", "").Code)
		assert.Equal(t, http.StatusUnauthorized, serve(e, "/me", "").Code)
	})

	t.Run("custom context key", func(t *testing.T) {
		e := newServer(t, WithContextKey("user"))
		recorder := serve(e, "/me", validCredentials)
		assert.Equal(t, "anonymous", recorder.Body.String())
	})
}

func TestRequirePermissions(t *testing.T) {
	e := newServer(t)

	assert.Equal(t, http.StatusNoContent, serve(e, "/read", validCredentials).Code)

	recorder := serve(e, "/admin", validCredentials)
	assert.Equal(t, http.StatusForbidden, recorder.Code)
	assert.JSONEq(t, `{"message":"Forbidden"}`, recorder.Body.String())
}

func TestRespond(t *testing.T) {
	recorder := serve(newServer(t), "/items", validCredentials)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "[]", recorder.Body.String())
	assert.Equal(t, `W/"2-l9Fw4VUO7kr8CvBlt4zaMCqXZ0w"`, recorder.Header().Get("ETag"))
}

func TestGetPrincipal(t *testing.T) {
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())

	_, err := GetPrincipal(c, "")
	assert.ErrorIs(t, err, ErrMissingPrincipal)

	c.Set(DefaultPrincipalKey, "not a principal")
	_, err = GetPrincipal(c, "")
	assert.ErrorIs(t, err, ErrInvalidPrincipal)

	c.Set(DefaultPrincipalKey, permissions.NewPrincipal("p", nil, ""))
	principal, err := GetPrincipal(c, "")
	require.NoError(t, err)
	assert.Equal(t, "p", principal.PrincipalID)
}
