package validator

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// Option is how options for the Validator are set up.
// Options return errors to enable validation during construction.
type Option func(*Validator) error

// IssuerSelection decides which configured issuers are asked for the
// token's signing key.
type IssuerSelection int

const (
	// FanOutIssuers asks every configured issuer for the kid concurrently and
	// uses the first key found. This is the default.
	FanOutIssuers IssuerSelection = iota

	// TokenIssuer reads the unverified iss claim and asks only that issuer,
	// rejecting tokens whose iss is not configured before any network call.
	// Use it when configured issuers may publish colliding kids.
	TokenIssuer
)

// String implements fmt.Stringer.
func (s IssuerSelection) String() string {
	switch s {
	case FanOutIssuers:
		return "fan-out"
	case TokenIssuer:
		return "token-issuer"
	default:
		return fmt.Sprintf("IssuerSelection(%d)", int(s))
	}
}

// WithIssuers sets the trusted issuers. This is a required option.
//
// The iss claim of a token must equal one of them exactly, and their key
// sets are the only ones consulted for signing keys.
func WithIssuers(issuers []string) Option {
	return func(v *Validator) error {
		if len(issuers) == 0 {
			return errors.New("issuers cannot be empty")
		}
		for i, issuer := range issuers {
			if issuer == "" {
				return fmt.Errorf("issuer at index %d cannot be empty", i)
			}
			u, err := url.Parse(issuer)
			if err != nil {
				return fmt.Errorf("invalid issuer URL: %w", err)
			}
			if u.Scheme == "" || u.Host == "" {
				return fmt.Errorf("invalid issuer URL %q: expected an absolute URL", issuer)
			}
		}
		v.issuers = append([]string(nil), issuers...)
		return nil
	}
}

// WithAudiences sets the accepted audiences. This is a required option.
//
// The token must contain at least one of the specified audiences.
func WithAudiences(audiences []string) Option {
	return func(v *Validator) error {
		if len(audiences) == 0 {
			return errors.New("audiences cannot be empty")
		}
		for i, aud := range audiences {
			if aud == "" {
				return fmt.Errorf("audience at index %d cannot be empty", i)
			}
		}
		v.audiences = append([]string(nil), audiences...)
		return nil
	}
}

// WithAlgorithms sets the signature algorithms a token may use.
// This is a required option; there is no default.
//
// Supported algorithms: RS256, RS384, RS512, ES256, ES384, ES512,
// PS256, PS384, PS512, HS256, HS384, HS512, EdDSA.
func WithAlgorithms(algorithms ...SignatureAlgorithm) Option {
	return func(v *Validator) error {
		if len(algorithms) == 0 {
			return errors.New("algorithms cannot be empty")
		}
		allowed := make(map[SignatureAlgorithm]struct{}, len(algorithms))
		for _, alg := range algorithms {
			if !allowedSigningAlgorithms[alg] {
				return fmt.Errorf("unsupported signature algorithm: %s", alg)
			}
			allowed[alg] = struct{}{}
		}
		v.algorithms = allowed
		return nil
	}
}

// WithKeyResolver sets the source of signing keys.
// If not specified, a jwks.Resolver with default settings is used.
func WithKeyResolver(resolver KeyResolver) Option {
	return func(v *Validator) error {
		if resolver == nil {
			return errors.New("key resolver cannot be nil")
		}
		v.keyResolver = resolver
		return nil
	}
}

// WithAllowedClockSkew sets the allowed clock skew for time-based claims.
//
// This allows for some tolerance when validating exp and nbf to account for
// clock differences between systems. If not set, the default is 0.
func WithAllowedClockSkew(skew time.Duration) Option {
	return func(v *Validator) error {
		if skew < 0 {
			return errors.New("clock skew cannot be negative")
		}
		v.allowedClockSkew = skew
		return nil
	}
}

// WithClock overrides time.Now for exp and nbf checks.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) error {
		if now == nil {
			return errors.New("clock cannot be nil")
		}
		v.now = now
		return nil
	}
}

// WithIssuerSelection chooses how candidate issuers are picked for key
// resolution. Defaults to FanOutIssuers.
func WithIssuerSelection(selection IssuerSelection) Option {
	return func(v *Validator) error {
		if selection != FanOutIssuers && selection != TokenIssuer {
			return fmt.Errorf("unknown issuer selection: %d", int(selection))
		}
		v.selection = selection
		return nil
	}
}
