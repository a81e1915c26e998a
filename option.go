package authz

import (
	"errors"
	"net/http"

	"github.com/lambdakit/go-authz/core"
)

// Option configures the Middleware.
// Returns error for validation failures.
type Option func(*Middleware) error

// WithAuthorizer sets the authorizer requests are checked with (REQUIRED).
//
// Example:
//
//	v, err := validator.New(
//	    validator.WithIssuers([]string{"https://issuer.example.com/"}),
//	    validator.WithAudiences([]string{"my-api"}),
//	    validator.WithAlgorithms(validator.RS256),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	authorizer, err := core.New(core.WithVerifier(v))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	middleware, err := authz.New(
//	    authz.WithAuthorizer(authorizer),
//	)
func WithAuthorizer(a *core.Authorizer) Option {
	return func(m *Middleware) error {
		if a == nil {
			return ErrAuthorizerNil
		}
		m.authorizer = a
		return nil
	}
}

// WithCredentialsOptional sets whether credentials are optional.
// If set to true, a request without credentials passes through without a
// principal; RequirePermissions still rejects it.
//
// Default: false (credentials required)
func WithCredentialsOptional(value bool) Option {
	return func(m *Middleware) error {
		m.credentialsOptional = value
		return nil
	}
}

// WithValidateOnOptions sets whether OPTIONS requests are authorized.
//
// Default: true (OPTIONS requests are authorized)
func WithValidateOnOptions(value bool) Option {
	return func(m *Middleware) error {
		m.validateOnOptions = value
		return nil
	}
}

// WithErrorHandler sets the handler called for rejected requests.
// See the ErrorHandler type for more information.
//
// Default: DefaultErrorHandler
func WithErrorHandler(h ErrorHandler) Option {
	return func(m *Middleware) error {
		if h == nil {
			return ErrErrorHandlerNil
		}
		m.errorHandler = h
		return nil
	}
}

// WithCredentialsExtractor sets the function that reads credentials from
// the request.
//
// Default: AuthHeaderExtractor
func WithCredentialsExtractor(e CredentialsExtractor) Option {
	return func(m *Middleware) error {
		if e == nil {
			return ErrCredentialsExtractorNil
		}
		m.extractor = e
		return nil
	}
}

// WithExclusionURLs configures URLs that skip authorization.
// URLs can be full URLs or just paths.
func WithExclusionURLs(exclusions []string) Option {
	return func(m *Middleware) error {
		if len(exclusions) == 0 {
			return ErrExclusionURLsEmpty
		}
		m.exclusionURLHandler = func(r *http.Request) bool {
			requestFullURL := r.URL.String()
			requestPath := r.URL.Path

			for _, exclusion := range exclusions {
				if requestFullURL == exclusion || requestPath == exclusion {
					return true
				}
			}
			return false
		}
		return nil
	}
}

// WithLogger sets an optional logger for the middleware.
//
// The logger interface is compatible with log/slog.Logger; see NewZapLogger,
// NewLogrusLogger and NewZerologLogger for the other supported loggers.
func WithLogger(logger Logger) Option {
	return func(m *Middleware) error {
		if logger == nil {
			return ErrLoggerNil
		}
		m.logger = logger
		return nil
	}
}

// WithMetrics sets where authorization metrics are recorded.
//
// Default: NoopMetrics
func WithMetrics(metrics Metrics) Option {
	return func(m *Middleware) error {
		if metrics == nil {
			return ErrMetricsNil
		}
		m.metrics = metrics
		return nil
	}
}

// WithTracer sets the tracer that spans each authorization.
//
// Default: NoopTracer
func WithTracer(tracer Tracer) Option {
	return func(m *Middleware) error {
		if tracer == nil {
			return ErrTracerNil
		}
		m.tracer = tracer
		return nil
	}
}

// Sentinel errors for configuration validation
var (
	ErrAuthorizerNil           = errors.New("authorizer cannot be nil (use WithAuthorizer)")
	ErrErrorHandlerNil         = errors.New("errorHandler cannot be nil")
	ErrCredentialsExtractorNil = errors.New("credentials extractor cannot be nil")
	ErrExclusionURLsEmpty      = errors.New("exclusion URLs list cannot be empty")
	ErrLoggerNil               = errors.New("logger cannot be nil")
	ErrMetricsNil              = errors.New("metrics cannot be nil")
	ErrTracerNil               = errors.New("tracer cannot be nil")
)
