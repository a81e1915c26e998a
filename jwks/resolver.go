package jwks

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// Resolver resolves signing keys by issuer and kid. It owns one lazily created
// Client per issuer; a client is created at most once and reused for the
// lifetime of the Resolver.
//
// Thread-safe for concurrent access across multiple requests.
type Resolver struct {
	mu      sync.RWMutex
	clients map[string]*Client
	config  *resolverConfig
}

// NewResolver creates a new Resolver.
//
// Optional options:
//   - WithHTTPClient: Custom HTTP client (default: 10s timeout)
//   - WithCacheTTL: Cache refresh interval (default: 10 minutes)
//   - WithCache: Custom cache implementation (e.g., Redis)
//   - WithRequestsPerMinute: Per-issuer fetch budget (default: 10)
//   - WithDiscovery: Locate key sets through OIDC discovery
//   - WithLogger: Logger for fetch diagnostics
func NewResolver(opts ...ResolverOption) (*Resolver, error) {
	config := &resolverConfig{
		httpClient:        &http.Client{Timeout: DefaultHTTPTimeout},
		cacheTTL:          DefaultCacheTTL,
		requestsPerMinute: DefaultRequestsPerMinute,
	}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if config.cache == nil {
		config.cache = NewMemoryCache(config.cacheTTL)
	}

	return &Resolver{
		clients: make(map[string]*Client),
		config:  config,
	}, nil
}

// CanonicalIssuer strips a trailing slash from an issuer URL. The result is
// the issuer's identity for caching and key set location.
func CanonicalIssuer(issuer string) string {
	return strings.TrimSuffix(issuer, "/")
}

// ResolveKey returns the key with the given kid from the issuer's key set.
// ok is false, with a nil error, when the issuer publishes no such key; a
// non-nil error means the key set itself could not be obtained.
func (r *Resolver) ResolveKey(ctx context.Context, issuer, kid string) (key SigningKey, ok bool, err error) {
	if kid == "" {
		return SigningKey{}, false, nil
	}

	client, err := r.Client(issuer)
	if err != nil {
		return SigningKey{}, false, err
	}

	return client.LookupKey(ctx, kid)
}

// Client returns the Client for issuer, creating it on first use.
// Uses double-checked locking so concurrent first calls create one client.
func (r *Resolver) Client(issuer string) (*Client, error) {
	canonical := CanonicalIssuer(issuer)

	r.mu.RLock()
	client, exists := r.clients[canonical]
	r.mu.RUnlock()

	if exists {
		return client, nil
	}

	if err := validateIssuerURL(canonical); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if client, exists = r.clients[canonical]; exists {
		return client, nil
	}

	client = newClient(canonical, r.config)
	r.clients[canonical] = client

	if r.config.logger != nil {
		r.config.logger.Debug("created key set client", "issuer", canonical)
	}

	return client, nil
}

// ClientCount returns the number of issuer clients created so far.
func (r *Resolver) ClientCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

func validateIssuerURL(issuer string) error {
	u, err := url.Parse(issuer)
	if err != nil {
		return fmt.Errorf("invalid issuer URL %q: %w", issuer, err)
	}
	if (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return fmt.Errorf("invalid issuer URL %q: expected an absolute http(s) URL", issuer)
	}
	return nil
}
