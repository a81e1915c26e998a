package authzgin

import (
	"github.com/gin-gonic/gin"

	"github.com/lambdakit/go-authz"
)

// Option defines a functional option for configuring the middleware
type Option func(*config)

type config struct {
	errorHandler        func(*gin.Context, error)
	contextKey          string
	extractor           authz.CredentialsExtractor
	credentialsOptional bool
}

// WithErrorHandler sets a custom error handler for the middleware
func WithErrorHandler(handler func(*gin.Context, error)) Option {
	return func(c *config) {
		c.errorHandler = handler
	}
}

// WithContextKey sets a custom gin context key to store the principal
func WithContextKey(key string) Option {
	return func(c *config) {
		c.contextKey = key
	}
}

// WithCredentialsExtractor sets a custom credentials extractor
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

func newConfig(opts []Option) *config {
	c := &config{
		errorHandler: DefaultErrorHandler,
		contextKey:   DefaultPrincipalKey,
		extractor:    authz.AuthHeaderExtractor,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
