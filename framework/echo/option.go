package authzecho

import (
	"github.com/labstack/echo/v4"

	"github.com/lambdakit/go-authz"
)

// Option configures the Echo middleware.
type Option func(*config)

type config struct {
	errorHandler        func(echo.Context, error) error
	contextKey          string
	extractor           authz.CredentialsExtractor
	credentialsOptional bool
	skipper             func(echo.Context) bool
}

// WithErrorHandler sets the handler for authorization failures.
func WithErrorHandler(handler func(echo.Context, error) error) Option {
	return func(c *config) {
		c.errorHandler = handler
	}
}

// WithContextKey sets the echo context key the principal is stored under.
func WithContextKey(key string) Option {
	return func(c *config) {
		c.contextKey = key
	}
}

// WithCredentialsExtractor sets a custom credentials extractor.
func WithCredentialsExtractor(extractor authz.CredentialsExtractor) Option {
	return func(c *config) {
		c.extractor = extractor
	}
}

// WithCredentialsOptional lets requests without credentials through
// without a principal.
func WithCredentialsOptional(optional bool) Option {
	return func(c *config) {
		c.credentialsOptional = optional
	}
}

// WithSkipper skips authorization for requests the skipper returns true for.
func WithSkipper(skipper func(echo.Context) bool) Option {
	return func(c *config) {
		c.skipper = skipper
	}
}

func newConfig(opts []Option) *config {
	c := &config{
		errorHandler: DefaultErrorHandler,
		contextKey:   DefaultPrincipalKey,
		extractor:    authz.AuthHeaderExtractor,
		skipper:      func(echo.Context) bool { return false },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
