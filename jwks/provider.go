package jwks

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwk"
	"golang.org/x/time/rate"

	"github.com/lambdakit/go-authz/internal/oidc"
)

// SigningKey is a public verification key published in an issuer's key set.
// It is never mutated after it has been fetched.
type SigningKey struct {
	KeyID string
	Key   jwk.Key

	// Algorithm is the key's "alg" member, empty when the key set does not
	// declare one.
	Algorithm string
}

// FetchFunc retrieves the key set published at jwksURI. The returned duration
// is the max-age advertised by the server through Cache-Control, or 0.
type FetchFunc func(ctx context.Context, jwksURI string) (jwk.Set, time.Duration, error)

// Cache defines the interface for key set caching implementations.
// This abstraction allows swapping the underlying cache provider.
type Cache interface {
	// Get returns the cached key set for jwksURI, calling fetch when there is
	// no fresh entry.
	Get(ctx context.Context, jwksURI string, fetch FetchFunc) (jwk.Set, error)

	// Refresh calls fetch unconditionally and replaces the cached entry.
	Refresh(ctx context.Context, jwksURI string, fetch FetchFunc) (jwk.Set, error)
}

// Client retrieves and caches the key set of a single issuer. Outbound
// fetches are rate limited per client.
type Client struct {
	issuer     string
	httpClient *http.Client
	cache      Cache
	limiter    *rate.Limiter
	discover   bool
	logger     Logger

	// Set at construction, or by the first successful discovery.
	jwksURIMu sync.Mutex
	jwksURI   string
}

func newClient(issuer string, cfg *resolverConfig) *Client {
	c := &Client{
		issuer:     issuer,
		httpClient: cfg.httpClient,
		cache:      cfg.cache,
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.requestsPerMinute)), cfg.requestsPerMinute),
		discover:   cfg.discover,
		logger:     cfg.logger,
	}
	if !cfg.discover {
		c.jwksURI = WellKnownJWKSURI(issuer)
	}
	return c
}

// WellKnownJWKSURI returns the conventional key set location for issuer.
func WellKnownJWKSURI(issuer string) string {
	return CanonicalIssuer(issuer) + "/.well-known/jwks.json"
}

// Issuer returns the canonical issuer this client serves.
func (c *Client) Issuer() string {
	return c.issuer
}

// Keys returns the issuer's current key set, from cache when possible.
func (c *Client) Keys(ctx context.Context) (jwk.Set, error) {
	set, _, err := c.keys(ctx)
	return set, err
}

// keys reports whether the returned set was fetched by this call.
func (c *Client) keys(ctx context.Context) (jwk.Set, bool, error) {
	jwksURI, err := c.getJWKSURI(ctx)
	if err != nil {
		return nil, false, err
	}

	var fetched atomic.Bool
	set, err := c.cache.Get(ctx, jwksURI, func(ctx context.Context, jwksURI string) (jwk.Set, time.Duration, error) {
		set, ttl, err := c.fetchAfterWait(ctx, jwksURI)
		if err == nil {
			fetched.Store(true)
		}
		return set, ttl, err
	})
	return set, fetched.Load(), err
}

// LookupKey scans the issuer's key set for a signing key with the given kid.
// It returns ok == false with a nil error when no such key exists. When a
// cached set lacks the kid and the rate limit allows it, the set is refetched
// once to pick up rotated keys. A set fetched by this call is not refetched.
func (c *Client) LookupKey(ctx context.Context, kid string) (SigningKey, bool, error) {
	set, fresh, err := c.keys(ctx)
	if err != nil {
		return SigningKey{}, false, err
	}

	if key, ok, err := findSigningKey(set, kid); err != nil || ok || fresh {
		return key, ok, err
	}

	if !c.limiter.Allow() {
		if c.logger != nil {
			c.logger.Debug("kid not in cached key set, refetch skipped by rate limit",
				"issuer", c.issuer, "kid", kid)
		}
		return SigningKey{}, false, nil
	}

	jwksURI, err := c.getJWKSURI(ctx)
	if err != nil {
		return SigningKey{}, false, err
	}

	if c.logger != nil {
		c.logger.Debug("kid not in cached key set, refetching", "issuer", c.issuer, "kid", kid)
	}

	set, err = c.cache.Refresh(ctx, jwksURI, c.fetch)
	if err != nil {
		return SigningKey{}, false, err
	}

	return findSigningKey(set, kid)
}

func findSigningKey(set jwk.Set, kid string) (SigningKey, bool, error) {
	key, ok := set.LookupKeyID(kid)
	if !ok {
		return SigningKey{}, false, nil
	}

	if usage, ok := key.KeyUsage(); ok && usage != "" && usage != "sig" {
		return SigningKey{}, false, nil
	}

	publicKey, err := jwk.PublicKeyOf(key)
	if err != nil {
		return SigningKey{}, false, fmt.Errorf("could not derive public key for kid %q: %w", kid, err)
	}

	signingKey := SigningKey{KeyID: kid, Key: publicKey}
	if alg, ok := key.Algorithm(); ok {
		signingKey.Algorithm = alg.String()
	}

	return signingKey, true, nil
}

// fetchAfterWait blocks on the rate limiter, bounded by ctx, before fetching.
func (c *Client) fetchAfterWait(ctx context.Context, jwksURI string) (jwk.Set, time.Duration, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, fmt.Errorf("jwks rate limit: %w", err)
	}
	return c.fetch(ctx, jwksURI)
}

func (c *Client) fetch(ctx context.Context, jwksURI string) (jwk.Set, time.Duration, error) {
	if c.logger != nil {
		c.logger.Debug("fetching key set", "issuer", c.issuer, "uri", jwksURI)
	}
	return fetchWithCacheControl(ctx, c.httpClient, jwksURI)
}

// getJWKSURI returns the JWKS URI, discovering it if necessary. Only a
// discovered URI is kept; after a failure the next call tries again. Each
// discovery attempt is charged to the rate limiter and runs detached from
// the caller's cancellation, bounded by DefaultHTTPTimeout.
func (c *Client) getJWKSURI(ctx context.Context) (string, error) {
	c.jwksURIMu.Lock()
	defer c.jwksURIMu.Unlock()

	if c.jwksURI != "" {
		return c.jwksURI, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("failed to discover JWKS URI: jwks rate limit: %w", err)
	}

	discoverCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), DefaultHTTPTimeout)
	defer cancel()

	wkEndpoints, err := oidc.GetWellKnownEndpoints(discoverCtx, c.httpClient, c.issuer)
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("JWKS URI discovery failed", "issuer", c.issuer, "error", err)
		}
		return "", fmt.Errorf("failed to discover JWKS URI: %w", err)
	}

	c.jwksURI = wkEndpoints.JWKSURI
	return c.jwksURI, nil
}

// fetchWithCacheControl fetches a key set and extracts its TTL from Cache-Control headers.
func fetchWithCacheControl(ctx context.Context, httpClient *http.Client, jwksURI string) (jwk.Set, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jwksURI, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("request returned status %d, expected 200", resp.StatusCode)
	}

	var cacheTTL time.Duration
	if cacheControl := resp.Header.Get("Cache-Control"); cacheControl != "" {
		cacheTTL = parseCacheControl(cacheControl)
	}

	// Key sets are typically well under 10KB.
	limitedBody := io.LimitReader(resp.Body, 1*1024*1024)

	set, err := jwk.ParseReader(limitedBody)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse JWKS: %w", err)
	}

	return set, cacheTTL, nil
}

// parseCacheControl extracts max-age from a Cache-Control header.
// Returns 0 if max-age is not present, invalid, or outside [1s, 7d].
func parseCacheControl(cacheControl string) time.Duration {
	const (
		maxAgePrefix = "max-age="
		minTTL       = 1 * time.Second
		maxTTL       = 7 * 24 * time.Hour
	)

	for _, directive := range strings.Split(cacheControl, ",") {
		directive = strings.TrimSpace(directive)
		if !strings.HasPrefix(directive, maxAgePrefix) {
			continue
		}

		seconds, err := strconv.ParseInt(strings.TrimPrefix(directive, maxAgePrefix), 10, 64)
		if err != nil || seconds <= 0 {
			continue
		}

		ttl := time.Duration(seconds) * time.Second
		if ttl < minTTL || ttl > maxTTL {
			return 0
		}

		return ttl
	}

	return 0
}

// memoryCache is the default in-process Cache.
type memoryCache struct {
	cacheMu    sync.RWMutex
	cache      map[string]*cachedJWKS
	refreshTTL time.Duration
}

type cachedJWKS struct {
	set        jwk.Set
	expiresAt  time.Time
	refreshAt  time.Time   // Proactive refresh threshold (80% of TTL)
	refreshing atomic.Bool // Prevents multiple background refreshes
	fetchMu    sync.Mutex  // Ensures only one fetch per URI at a time
}

// NewMemoryCache returns an in-process Cache whose entries live for ttl, or
// longer when the key set server advertises a longer max-age. Entries are
// refreshed in the background once 80% of their lifetime has elapsed.
func NewMemoryCache(ttl time.Duration) Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &memoryCache{
		cache:      make(map[string]*cachedJWKS),
		refreshTTL: ttl,
	}
}

func (c *memoryCache) Get(ctx context.Context, jwksURI string, fetch FetchFunc) (jwk.Set, error) {
	now := time.Now()

	c.cacheMu.RLock()
	cached, exists := c.cache[jwksURI]
	if exists && now.Before(cached.expiresAt) {
		result := cached.set
		shouldRefresh := now.After(cached.refreshAt)
		c.cacheMu.RUnlock()

		if shouldRefresh && cached.refreshing.CompareAndSwap(false, true) {
			go c.backgroundRefresh(jwksURI, cached, fetch)
		}

		return result, nil
	}
	c.cacheMu.RUnlock()

	cached = c.entry(jwksURI)

	cached.fetchMu.Lock()
	defer cached.fetchMu.Unlock()

	// Another goroutine may have fetched while we waited for the fetch lock.
	c.cacheMu.RLock()
	isValid := now.Before(cached.expiresAt)
	result := cached.set
	c.cacheMu.RUnlock()

	if isValid {
		return result, nil
	}

	return c.fetchAndStore(ctx, jwksURI, cached, fetch)
}

func (c *memoryCache) Refresh(ctx context.Context, jwksURI string, fetch FetchFunc) (jwk.Set, error) {
	cached := c.entry(jwksURI)

	cached.fetchMu.Lock()
	defer cached.fetchMu.Unlock()

	return c.fetchAndStore(ctx, jwksURI, cached, fetch)
}

// entry returns the cache slot for jwksURI, creating an empty one if needed.
func (c *memoryCache) entry(jwksURI string) *cachedJWKS {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()

	cached, exists := c.cache[jwksURI]
	if !exists {
		cached = &cachedJWKS{}
		c.cache[jwksURI] = cached
	}
	return cached
}

// fetchAndStore must be called with cached.fetchMu held.
func (c *memoryCache) fetchAndStore(ctx context.Context, jwksURI string, cached *cachedJWKS, fetch FetchFunc) (jwk.Set, error) {
	set, cacheTTL, err := fetch(ctx, jwksURI)
	if err != nil {
		return nil, fmt.Errorf("could not fetch JWKS: %w", err)
	}

	c.store(cached, set, cacheTTL)
	return set, nil
}

func (c *memoryCache) store(cached *cachedJWKS, set jwk.Set, cacheTTL time.Duration) {
	// A server max-age only ever extends the configured TTL.
	effectiveTTL := c.refreshTTL
	if cacheTTL > 0 && c.refreshTTL < cacheTTL {
		effectiveTTL = cacheTTL
	}

	now := time.Now()
	c.cacheMu.Lock()
	cached.set = set
	cached.expiresAt = now.Add(effectiveTTL)
	cached.refreshAt = now.Add(effectiveTTL * 4 / 5)
	c.cacheMu.Unlock()
}

// backgroundRefresh refreshes a key set without blocking requests.
func (c *memoryCache) backgroundRefresh(jwksURI string, cached *cachedJWKS, fetch FetchFunc) {
	defer cached.refreshing.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cached.fetchMu.Lock()
	defer cached.fetchMu.Unlock()

	set, cacheTTL, err := fetch(ctx, jwksURI)
	if err != nil {
		return
	}

	c.store(cached, set, cacheTTL)
}
