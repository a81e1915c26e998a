package authzgin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
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
		return nil, validator.NewValidationError(validator.ErrorCodeInvalidSignature, "bad signature", nil)
	}
	return validator.NewClaims(map[string]any{
		"iss":         "https://issuer.example.com/",
		"sub":         "some-user",
		"permissions": []any{"read"},
	}), nil
}

func newRouter(t *testing.T, opts ...Option) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	authorizer, err := core.New(core.WithVerifier(stubVerifier{}))
	require.NoError(t, err)
	m, err := authz.New(authz.WithAuthorizer(authorizer))
	require.NoError(t, err)

	router := gin.New()
	router.Use(NewGinMiddleware(m, opts...))

	router.GET("/me", func(c *gin.Context) {
		principal, err := GetPrincipal(c, "")
		if err != nil {
			c.String(http.StatusOK, "anonymous")
			return
		}
		c.String(http.StatusOK, principal.PrincipalID)
	})
	router.GET("/read", RequirePermissions(m, permissions.Permission("read")), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	router.GET("/write", RequireAnyPermission(m, permissions.Permission("write")), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	router.GET("/items", func(c *gin.Context) {
		Respond(m, c, http.StatusOK, map[string]any{}, caching.Options{CacheControl: "private"})
	})

	return router
}

func serve(router *gin.Engine, path, authorization string, headers ...string) *httptest.ResponseRecorder {
	request := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		request.Header.Set("Authorization", authorization)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		request.Header.Set(headers[i], headers[i+1])
	}
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	return recorder
}

func TestNewGinMiddleware(t *testing.T) {
	router := newRouter(t)

	t.Run("valid token", func(t *testing.T) {
		recorder := serve(router, "/me", validCredentials)
		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, "some-user", recorder.Body.String())
	})

	t.Run("invalid token", func(t *testing.T) {
		recorder := serve(router, "/me", "Bearer forged.jwt.token")
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
		assert.JSONEq(t, `{"message":"Unauthorized"}`, recorder.Body.String())
		assert.Equal(t, "Bearer", recorder.Header().Get("WWW-Authenticate"))
	})

	t.Run("missing token", func(t *testing.T) {
		recorder := serve(router, "/me", "")
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("credentials optional", func(t *testing.T) {
		recorder := serve(newRouter(t, WithCredentialsOptional(true)), "/me", "")
		assert.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, "anonymous", recorder.Body.String())
	})

	t.Run("custom error handler", func(t *testing.T) {
		router := newRouter(t, WithErrorHandler(func(c *gin.Context, err error) {
			c.AbortWithStatus(http.StatusTeapot)
		}))
		recorder := serve(router, "/me", "Bearer forged.jwt.token")
		assert.Equal(t, http.StatusTeapot, recorder.Code)
	})
}

func TestRequirePermissions(t *testing.T) {
	router := newRouter(t)

	assert.Equal(t, http.StatusNoContent, serve(router, "/read", validCredentials).Code)
	assert.Equal(t, http.StatusForbidden, serve(router, "/write", validCredentials).Code)
}

func TestRespond(t *testing.T) {
	router := newRouter(t)

	recorder := serve(router, "/items", validCredentials)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, `W/"2-vyGp6PvFo4RvsFtPoIWeCReyIC8"`, recorder.Header().Get("ETag"))
	assert.Equal(t, "private", recorder.Header().Get("Cache-Control"))

	recorder = serve(router, "/items", validCredentials, "If-None-Match", `W/"2-vyGp6PvFo4RvsFtPoIWeCReyIC8"`)
	assert.Equal(t, http.StatusNotModified, recorder.Code)
	assert.Empty(t, recorder.Body.String())
}

func TestGetPrincipal(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, err := GetPrincipal(c, "")
	assert.ErrorIs(t, err, ErrMissingPrincipal)

	c.Set("custom", "not a principal")
	_, err = GetPrincipal(c, "custom")
	assert.ErrorIs(t, err, ErrInvalidPrincipal)

	c.Set(DefaultPrincipalKey, permissions.NewPrincipal("p", nil, ""))
	principal, err := GetPrincipal(c, "")
	require.NoError(t, err)
	assert.Equal(t, "p", principal.PrincipalID)
}
