package grpc

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/lambdakit/go-authz/core"
	"github.com/lambdakit/go-authz/jwks"
	"github.com/lambdakit/go-authz/permissions"
	"github.com/lambdakit/go-authz/validator"
)

const (
	issuer   = "https://issuer.example.com/"
	audience = "testAudience"
	kid      = "kid-1"

	publicMethod  = "/test.Service/Public"
	privateMethod = "/test.Service/Private"
	adminMethod   = "/test.Service/Admin"
)

// keyResolver serves one key for issuer.
type keyResolver struct {
	key jwks.SigningKey
}

func (k keyResolver) ResolveKey(_ context.Context, iss, keyID string) (jwks.SigningKey, bool, error) {
	if jwks.CanonicalIssuer(iss) != jwks.CanonicalIssuer(issuer) || keyID != k.key.KeyID {
		return jwks.SigningKey{}, false, nil
	}
	return k.key, true, nil
}

type testEnv struct {
	privateKey jwk.Key
	authorizer *core.Authorizer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	private, err := jwk.Import(rsaKey)
	require.NoError(t, err)

	public, err := jwk.PublicKeyOf(private)
	require.NoError(t, err)

	v, err := validator.New(
		validator.WithIssuers([]string{issuer}),
		validator.WithAudiences([]string{audience}),
		validator.WithAlgorithms(validator.RS256),
		validator.WithKeyResolver(keyResolver{key: jwks.SigningKey{KeyID: kid, Key: public, Algorithm: "RS256"}}),
	)
	require.NoError(t, err)

	authorizer, err := core.New(core.WithVerifier(v))
	require.NoError(t, err)

	return &testEnv{privateKey: private, authorizer: authorizer}
}

// token signs a token for issuer and audience with the given permissions.
func (e *testEnv) token(t *testing.T, perms ...string) string {
	t.Helper()

	now := time.Now()
	payload, err := json.Marshal(map[string]any{
		"iss":         issuer,
		"sub":         "some-user",
		"aud":         audience,
		"iat":         now.Unix(),
		"exp":         now.Add(time.Hour).Unix(),
		"permissions": perms,
	})
	require.NoError(t, err)

	headers := jws.NewHeaders()
	require.NoError(t, headers.Set(jws.KeyIDKey, kid))

	signed, err := jws.Sign(payload, jws.WithKey(jwa.RS256(), e.privateKey, jws.WithProtectedHeaders(headers)))
	require.NoError(t, err)
	return string(signed)
}

func (e *testEnv) interceptor(t *testing.T, opts ...Option) *Interceptor {
	t.Helper()

	base := []Option{
		WithAuthorizer(e.authorizer),
		WithExcludedMethods(publicMethod),
		WithMethodPermissions(adminMethod, permissions.Permission("admin")),
	}

	i, err := New(append(base, opts...)...)
	require.NoError(t, err)
	return i
}

func withAuthorization(values ...string) context.Context {
	md := metadata.MD{}
	for _, v := range values {
		md.Append("authorization", v)
	}
	return metadata.NewIncomingContext(context.Background(), md)
}

func principalHandler(ctx context.Context, _ any) (any, error) {
	principal, err := GetPrincipal(ctx)
	if err != nil {
		return "anonymous", nil
	}
	return principal.PrincipalID, nil
}

func TestUnaryServerInterceptor(t *testing.T) {
	env := newTestEnv(t)

	testCases := []struct {
		name         string
		options      []Option
		method       string
		ctx          func(t *testing.T) context.Context
		wantResponse any
		wantCode     codes.Code
	}{
		{
			name:   "valid token",
			method: privateMethod,
			ctx: func(t *testing.T) context.Context {
				return withAuthorization("Bearer " + env.token(t))
			},
			wantResponse: "some-user",
			wantCode:     codes.OK,
		},
		{
			name:     "missing token",
			method:   privateMethod,
			ctx:      func(*testing.T) context.Context { return context.Background() },
			wantCode: codes.Unauthenticated,
		},
		{
			name:     "invalid token",
			method:   privateMethod,
			ctx:      func(*testing.T) context.Context { return withAuthorization("Bearer not.a.token") },
			wantCode: codes.Unauthenticated,
		},
		{
			name:   "non bearer scheme",
			method: privateMethod,
			ctx: func(t *testing.T) context.Context {
				return withAuthorization("Basic " + env.token(t))
			},
			wantCode: codes.Unauthenticated,
		},
		{
			name:   "multiple authorization entries",
			method: privateMethod,
			ctx: func(t *testing.T) context.Context {
				return withAuthorization("Bearer a.b.c", "Bearer d.e.f")
			},
			wantCode: codes.InvalidArgument,
		},
		{
			name:         "excluded method",
			method:       publicMethod,
			ctx:          func(*testing.T) context.Context { return context.Background() },
			wantResponse: "anonymous",
			wantCode:     codes.OK,
		},
		{
			name:   "required permission held",
			method: adminMethod,
			ctx: func(t *testing.T) context.Context {
				return withAuthorization("Bearer " + env.token(t, "admin"))
			},
			wantResponse: "some-user",
			wantCode:     codes.OK,
		},
		{
			name:   "required permission missing",
			method: adminMethod,
			ctx: func(t *testing.T) context.Context {
				return withAuthorization("Bearer " + env.token(t, "read"))
			},
			wantCode: codes.PermissionDenied,
		},
		{
			name:         "optional credentials",
			options:      []Option{WithCredentialsOptional(true)},
			method:       privateMethod,
			ctx:          func(*testing.T) context.Context { return context.Background() },
			wantResponse: "anonymous",
			wantCode:     codes.OK,
		},
		{
			name:     "optional credentials do not bypass required permissions",
			options:  []Option{WithCredentialsOptional(true)},
			method:   adminMethod,
			ctx:      func(*testing.T) context.Context { return context.Background() },
			wantCode: codes.Unauthenticated,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			interceptor := env.interceptor(t, testCase.options...)

			resp, err := interceptor.UnaryServerInterceptor()(
				testCase.ctx(t),
				"request",
				&grpc.UnaryServerInfo{FullMethod: testCase.method},
				principalHandler,
			)

			assert.Equal(t, testCase.wantCode, status.Code(err))
			if testCase.wantCode == codes.OK {
				assert.Equal(t, testCase.wantResponse, resp)
			}
		})
	}
}

type fakeServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (f *fakeServerStream) Context() context.Context {
	return f.ctx
}

func TestStreamServerInterceptor(t *testing.T) {
	env := newTestEnv(t)
	interceptor := env.interceptor(t)

	var seen string
	handler := func(_ any, ss grpc.ServerStream) error {
		principal := MustGetPrincipal(ss.Context())
		seen = principal.PrincipalID

		claims, err := GetClaims(ss.Context())
		require.NoError(t, err)
		assert.Equal(t, issuer, claims.Issuer)
		return nil
	}

	t.Run("valid token", func(t *testing.T) {
		stream := &fakeServerStream{ctx: withAuthorization("Bearer " + env.token(t))}

		err := interceptor.StreamServerInterceptor()(nil, stream, &grpc.StreamServerInfo{FullMethod: privateMethod}, handler)

		require.NoError(t, err)
		assert.Equal(t, "some-user", seen)
	})

	t.Run("missing token", func(t *testing.T) {
		stream := &fakeServerStream{ctx: context.Background()}

		err := interceptor.StreamServerInterceptor()(nil, stream, &grpc.StreamServerInfo{FullMethod: privateMethod}, handler)

		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("excluded method", func(t *testing.T) {
		stream := &fakeServerStream{ctx: context.Background()}
		called := false

		err := interceptor.StreamServerInterceptor()(nil, stream, &grpc.StreamServerInfo{FullMethod: publicMethod},
			func(any, grpc.ServerStream) error {
				called = true
				return nil
			})

		require.NoError(t, err)
		assert.True(t, called)
	})
}

func TestNew(t *testing.T) {
	env := newTestEnv(t)

	t.Run("requires an authorizer", func(t *testing.T) {
		_, err := New()
		assert.EqualError(t, err, "authorizer is required, use WithAuthorizer option")
	})

	testCases := []struct {
		name    string
		option  Option
		wantErr string
	}{
		{name: "nil authorizer", option: WithAuthorizer(nil), wantErr: "authorizer cannot be nil"},
		{name: "nil logger", option: WithLogger(nil), wantErr: "logger cannot be nil"},
		{name: "nil extractor", option: WithCredentialsExtractor(nil), wantErr: "credentials extractor cannot be nil"},
		{name: "nil error handler", option: WithErrorHandler(nil), wantErr: "error handler cannot be nil"},
		{name: "empty method", option: WithMethodPermissions("", permissions.Permission("x")), wantErr: "method cannot be empty"},
		{name: "no specs", option: WithMethodPermissions(adminMethod), wantErr: "at least one permission spec is required"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := New(WithAuthorizer(env.authorizer), testCase.option)
			assert.EqualError(t, err, testCase.wantErr)
		})
	}
}

func TestDefaultErrorHandler(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		wantCode codes.Code
	}{
		{name: "nil", err: nil, wantCode: codes.OK},
		{name: "unauthorized", err: core.ErrUnauthorized, wantCode: codes.Unauthenticated},
		{name: "denied", err: permissions.ErrPermissionDenied, wantCode: codes.PermissionDenied},
		{name: "validator configuration", err: validator.ErrConfiguration, wantCode: codes.Internal},
		{name: "permission configuration", err: permissions.ErrConfiguration, wantCode: codes.Internal},
		{name: "multiple headers", err: ErrMultipleAuthHeaders, wantCode: codes.InvalidArgument},
		{name: "unknown", err: assert.AnError, wantCode: codes.Internal},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			assert.Equal(t, testCase.wantCode, status.Code(DefaultErrorHandler(testCase.err)))
		})
	}
}

func TestMetadataExtractor(t *testing.T) {
	credentials, err := MetadataExtractor(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, credentials)

	credentials, err = MetadataExtractor(withAuthorization("Bearer a.b.c"))
	assert.NoError(t, err)
	assert.Equal(t, "Bearer a.b.c", credentials)

	_, err = MetadataExtractor(withAuthorization("Bearer a.b.c", "Bearer d.e.f"))
	assert.ErrorIs(t, err, ErrMultipleAuthHeaders)
}
