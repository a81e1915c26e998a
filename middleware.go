package authz

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/lambdakit/go-authz/core"
	"github.com/lambdakit/go-authz/permissions"
	"github.com/lambdakit/go-authz/validator"
)

// Middleware authorizes net/http requests and guards handlers with
// permission checks.
type Middleware struct {
	authorizer          *core.Authorizer
	errorHandler        ErrorHandler
	extractor           CredentialsExtractor
	credentialsOptional bool
	validateOnOptions   bool
	exclusionURLHandler ExclusionURLHandler
	logger              Logger
	metrics             Metrics
	tracer              Tracer
}

// ExclusionURLHandler is a function that takes in a http.Request and returns
// true if the request should be excluded from authorization.
type ExclusionURLHandler func(r *http.Request) bool

// New constructs a new Middleware instance with the supplied options.
//
// Example:
//
//	authorizer, err := core.New(core.WithVerifier(v))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	middleware, err := authz.New(
//	    authz.WithAuthorizer(authorizer),
//	    authz.WithLogger(authz.NewZapLogger(logger)),
//	)
//	if err != nil {
//	    log.Fatalf("failed to create middleware: %v", err)
//	}
func New(opts ...Option) (*Middleware, error) {
	m := &Middleware{
		validateOnOptions: true,
		errorHandler:      DefaultErrorHandler,
		extractor:         AuthHeaderExtractor,
		metrics:           &NoopMetrics{},
		tracer:            &NoopTracer{},
	}

	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if m.authorizer == nil {
		return nil, fmt.Errorf("invalid middleware configuration: %w", ErrAuthorizerNil)
	}

	return m, nil
}

// GetPrincipal retrieves the request principal set by CheckJWT.
func GetPrincipal(ctx context.Context) (*permissions.Principal, error) {
	return core.GetPrincipal(ctx)
}

// MustGetPrincipal retrieves the request principal or panics.
// Use only when you are certain it exists (e.g., after CheckJWT has run).
func MustGetPrincipal(ctx context.Context) *permissions.Principal {
	principal, err := core.GetPrincipal(ctx)
	if err != nil {
		panic(err)
	}
	return principal
}

// GetClaims retrieves the verified claims set by CheckJWT.
//
// Example:
//
//	claims, err := authz.GetClaims(r.Context())
//	if err != nil {
//	    http.Error(w, "failed to get claims", http.StatusInternalServerError)
//	    return
//	}
//	fmt.Println(claims.Subject)
func GetClaims(ctx context.Context) (*validator.Claims, error) {
	return core.GetClaims[*validator.Claims](ctx)
}

// CheckJWT authorizes the request and passes it, with the principal and
// claims in its context, to next. Rejected requests go to the ErrorHandler.
func (m *Middleware) CheckJWT(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.exclusionURLHandler != nil && m.exclusionURLHandler(r) {
			if m.logger != nil {
				m.logger.Debug("skipping authorization for excluded URL",
					"method", r.Method,
					"path", r.URL.Path)
			}
			next.ServeHTTP(w, r)
			return
		}

		// If we don't validate on OPTIONS and this is OPTIONS
		// then continue onto next without validating.
		if !m.validateOnOptions && r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		credentials, err := m.extractor(r)
		if err != nil {
			if m.logger != nil {
				m.logger.Error("failed to extract credentials from request",
					"error", err,
					"method", r.Method,
					"path", r.URL.Path)
			}
			err = fmt.Errorf("error extracting credentials: %w", err)
			m.metrics.IncCounter(MetricAuthorizations, map[string]string{"outcome": outcome(err)})
			m.errorHandler(w, r, err)
			return
		}

		if credentials == "" && m.credentialsOptional {
			next.ServeHTTP(w, r)
			return
		}

		principal, claims, err := m.Authorize(r.Context(), credentials)
		if err != nil {
			m.errorHandler(w, r, err)
			return
		}

		ctx := core.SetClaims(core.SetPrincipal(r.Context(), principal), claims)
		next.ServeHTTP(w, r.Clone(ctx))
	})
}

// Assertion checks specs against the principal an Evaluator is bound to.
type Assertion func(e *permissions.Evaluator, ctx context.Context, specs ...permissions.RawSpec) error

// The assertions used by RequirePermissions and RequireAnyPermission.
var (
	AllOf Assertion = (*permissions.Evaluator).AssertPermissions
	AnyOf Assertion = (*permissions.Evaluator).AssertAnyPermission
)

// RequirePermissions returns a middleware that lets a request through only
// when every spec holds for its principal. It must run after CheckJWT.
func (m *Middleware) RequirePermissions(specs ...permissions.RawSpec) func(http.Handler) http.Handler {
	return m.require(AllOf, specs)
}

// RequireAnyPermission returns a middleware that lets a request through only
// when at least one spec holds for its principal. It must run after CheckJWT.
func (m *Middleware) RequireAnyPermission(specs ...permissions.RawSpec) func(http.Handler) http.Handler {
	return m.require(AnyOf, specs)
}

func (m *Middleware) require(assertion Assertion, specs []permissions.RawSpec) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := core.GetPrincipal(r.Context())
			if err != nil {
				err = fmt.Errorf("%w: %w", core.ErrUnauthorized, err)
				m.metrics.IncCounter(MetricAuthorizations, map[string]string{"outcome": outcome(err)})
				m.errorHandler(w, r, err)
				return
			}

			if err := m.Check(r.Context(), principal, assertion, specs...); err != nil {
				m.errorHandler(w, r, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Authorize authorizes credentials, given in Authorization header form,
// recording metrics and a trace span for the attempt. CheckJWT and the
// framework adapters are built on it.
func (m *Middleware) Authorize(ctx context.Context, credentials string) (*permissions.Principal, *validator.Claims, error) {
	ctx, span := m.tracer.StartSpan(ctx, "authz.authorize")
	defer span.Finish()

	start := time.Now()
	principal, claims, err := m.authorizer.AuthorizeClaims(ctx, credentials)
	m.metrics.ObserveHistogram(MetricAuthorizationSeconds, time.Since(start).Seconds(), map[string]string{})

	if err != nil {
		span.RecordError(err)
		m.metrics.IncCounter(MetricAuthorizations, map[string]string{"outcome": outcome(err)})
		return nil, nil, err
	}

	span.SetTag("principal", principal.PrincipalID)
	m.metrics.IncCounter(MetricAuthorizations, map[string]string{"outcome": OutcomeAuthorized})
	return principal, claims, nil
}

// Check runs assertion for principal against specs, recording failures.
// The error matches permissions.ErrPermissionDenied when the principal
// lacks the permissions.
func (m *Middleware) Check(ctx context.Context, principal *permissions.Principal, assertion Assertion, specs ...permissions.RawSpec) error {
	err := assertion(m.authorizer.Permissions(principal), ctx, specs...)
	if err == nil {
		m.metrics.IncCounter(MetricPermissionChecks, map[string]string{"outcome": OutcomeGranted})
		return nil
	}

	m.metrics.IncCounter(MetricPermissionChecks, map[string]string{"outcome": outcome(err)})
	if m.logger != nil {
		m.logger.Warn("permission check failed",
			"principal", principal.PrincipalID,
			"error", err)
	}
	return err
}
