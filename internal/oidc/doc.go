/*
Package oidc implements the part of OpenID Connect Discovery the key
resolver relies on: fetching {issuer}/.well-known/openid-configuration and
reading the jwks_uri from it.

	endpoints, err := oidc.GetWellKnownEndpoints(ctx, httpClient, "https://auth.example.com/")
	if err != nil {
	    // network failure, non-200 status, invalid JSON, missing fields,
	    // or an issuer that does not match the one queried
	}
	jwksURI := endpoints.JWKSURI

The returned document's issuer must equal the queried issuer (trailing slash
ignored). This stops one issuer's discovery document from redirecting key
lookups to another issuer's key set.

See https://openid.net/specs/openid-connect-discovery-1_0.html
*/
package oidc
