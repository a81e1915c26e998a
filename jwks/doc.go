/*
Package jwks resolves JWT signing keys published by token issuers.

A Resolver owns one Client per issuer. Clients are created lazily on first
use and are never evicted, so every issuer seen over the process lifetime
keeps exactly one client, one cache slot and one rate limiter.

# Overview

	resolver, err := jwks.NewResolver(
	    jwks.WithCacheTTL(10*time.Minute),
	    jwks.WithRequestsPerMinute(10),
	)
	if err != nil {
	    log.Fatal(err)
	}

	key, ok, err := resolver.ResolveKey(ctx, "https://auth.example.com/", kid)
	switch {
	case err != nil:
	    // the key set could not be retrieved (network, status, parse, rate limit wait)
	case !ok:
	    // the issuer publishes no signing key with this kid
	default:
	    // key.Key verifies signatures
	}

ResolveKey distinguishes "absent" from "failed": a missing kid is a normal
outcome that lets a caller try the next issuer, while a fetch failure is an
error.

# Key Set Location

By default the key set of issuer I is fetched from I/.well-known/jwks.json,
with a trailing slash on I ignored. WithDiscovery instead reads the jwks_uri
from I/.well-known/openid-configuration once per client.

# Caching

The default cache keeps each key set for the configured TTL, extended by a
longer Cache-Control max-age from the key set server, and refreshes it in the
background once 80% of its lifetime has elapsed. Concurrent misses for the
same key set result in a single fetch.

When a kid is not in the cached set, the client refetches once if its rate
limiter has a token available. This picks up rotated keys without letting
tokens with random kids trigger unbounded fetches.

RedisCache shares key sets between processes:

	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	cache, err := jwks.NewRedisCache(rdb, 10*time.Minute)
	resolver, err := jwks.NewResolver(jwks.WithCache(cache))

Redis errors are logged and the key set is fetched from the network.

# Rate Limiting

Each client allows WithRequestsPerMinute fetches per minute (default 10),
with a burst of the same size. Cold fetches wait for a token, bounded by the
request context; kid-miss refetches never wait.
*/
package jwks
