package jwks

import (
	"fmt"
	"net/http"
	"time"
)

const (
	// DefaultCacheTTL is how long a fetched key set is trusted before it is
	// fetched again.
	DefaultCacheTTL = 10 * time.Minute

	// DefaultRequestsPerMinute bounds key set fetches per issuer.
	DefaultRequestsPerMinute = 10

	// DefaultHTTPTimeout bounds a single key set fetch.
	DefaultHTTPTimeout = 10 * time.Second
)

// Logger defines an optional logging interface compatible with log/slog.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// ResolverOption is how options for the Resolver are set up.
type ResolverOption func(*resolverConfig) error

// resolverConfig holds internal configuration shared by every per-issuer Client.
type resolverConfig struct {
	httpClient        *http.Client
	cacheTTL          time.Duration
	cache             Cache
	requestsPerMinute int
	discover          bool
	logger            Logger
}

// WithHTTPClient sets the HTTP client used for key set fetches.
// If not specified, a client with a 10s timeout is used.
func WithHTTPClient(client *http.Client) ResolverOption {
	return func(c *resolverConfig) error {
		if client == nil {
			return fmt.Errorf("HTTP client cannot be nil")
		}
		c.httpClient = client
		return nil
	}
}

// WithCacheTTL sets how long the default in-memory cache keeps a key set.
// If not specified, defaults to 10 minutes. Ignored when WithCache is used.
func WithCacheTTL(ttl time.Duration) ResolverOption {
	return func(c *resolverConfig) error {
		if ttl < 0 {
			return fmt.Errorf("cache TTL cannot be negative")
		}
		if ttl == 0 {
			ttl = DefaultCacheTTL
		}
		c.cacheTTL = ttl
		return nil
	}
}

// WithCache sets a custom Cache implementation shared by all issuers,
// e.g. a RedisCache when several processes should share fetched key sets.
func WithCache(cache Cache) ResolverOption {
	return func(c *resolverConfig) error {
		if cache == nil {
			return fmt.Errorf("cache cannot be nil")
		}
		c.cache = cache
		return nil
	}
}

// WithRequestsPerMinute bounds how many key set fetches a single issuer
// client may perform per minute. Defaults to 10.
func WithRequestsPerMinute(n int) ResolverOption {
	return func(c *resolverConfig) error {
		if n <= 0 {
			return fmt.Errorf("requests per minute must be positive")
		}
		c.requestsPerMinute = n
		return nil
	}
}

// WithDiscovery makes clients locate the key set through the issuer's
// .well-known/openid-configuration document instead of the conventional
// {issuer}/.well-known/jwks.json location.
func WithDiscovery() ResolverOption {
	return func(c *resolverConfig) error {
		c.discover = true
		return nil
	}
}

// WithLogger sets an optional logger.
func WithLogger(logger Logger) ResolverOption {
	return func(c *resolverConfig) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		c.logger = logger
		return nil
	}
}
