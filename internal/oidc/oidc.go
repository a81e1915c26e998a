package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// WellKnownEndpoints holds the subset of the OIDC discovery document the
// key resolver needs.
type WellKnownEndpoints struct {
	Issuer  string `json:"issuer"`
	JWKSURI string `json:"jwks_uri"`
}

// ConfigurationURL returns the discovery document location for issuer.
func ConfigurationURL(issuer string) string {
	return strings.TrimSuffix(issuer, "/") + "/.well-known/openid-configuration"
}

// GetWellKnownEndpoints fetches the issuer's discovery document and returns
// its endpoints. The document's issuer must name the same issuer that was
// queried, ignoring a trailing slash.
func GetWellKnownEndpoints(ctx context.Context, httpClient *http.Client, issuer string) (*WellKnownEndpoints, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ConfigurationURL(issuer), nil)
	if err != nil {
		return nil, fmt.Errorf("could not build request to get well-known endpoints: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not fetch well-known endpoints: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("well-known endpoint returned status %d", resp.StatusCode)
	}

	var wkEndpoints WellKnownEndpoints
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&wkEndpoints); err != nil {
		return nil, fmt.Errorf("failed to decode JSON from well-known endpoint: %w", err)
	}

	if wkEndpoints.Issuer == "" {
		return nil, fmt.Errorf("discovery document is missing required 'issuer' field")
	}
	if wkEndpoints.JWKSURI == "" {
		return nil, fmt.Errorf("discovery document is missing required 'jwks_uri' field")
	}
	if strings.TrimSuffix(wkEndpoints.Issuer, "/") != strings.TrimSuffix(issuer, "/") {
		return nil, fmt.Errorf("issuer mismatch: discovery document names %q, expected %q", wkEndpoints.Issuer, issuer)
	}

	return &wkEndpoints, nil
}
