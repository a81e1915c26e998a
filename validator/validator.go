package validator

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jws"
	"golang.org/x/sync/errgroup"

	"github.com/lambdakit/go-authz/jwks"
)

// Signature algorithms
const (
	EdDSA = SignatureAlgorithm("EdDSA")
	HS256 = SignatureAlgorithm("HS256") // HMAC using SHA-256
	HS384 = SignatureAlgorithm("HS384") // HMAC using SHA-384
	HS512 = SignatureAlgorithm("HS512") // HMAC using SHA-512
	RS256 = SignatureAlgorithm("RS256") // RSASSA-PKCS-v1.5 using SHA-256
	RS384 = SignatureAlgorithm("RS384") // RSASSA-PKCS-v1.5 using SHA-384
	RS512 = SignatureAlgorithm("RS512") // RSASSA-PKCS-v1.5 using SHA-512
	ES256 = SignatureAlgorithm("ES256") // ECDSA using P-256 and SHA-256
	ES384 = SignatureAlgorithm("ES384") // ECDSA using P-384 and SHA-384
	ES512 = SignatureAlgorithm("ES512") // ECDSA using P-521 and SHA-512
	PS256 = SignatureAlgorithm("PS256") // RSASSA-PSS using SHA256 and MGF1-SHA256
	PS384 = SignatureAlgorithm("PS384") // RSASSA-PSS using SHA384 and MGF1-SHA384
	PS512 = SignatureAlgorithm("PS512") // RSASSA-PSS using SHA512 and MGF1-SHA512
)

// SignatureAlgorithm is a signature algorithm.
type SignatureAlgorithm string

var allowedSigningAlgorithms = map[SignatureAlgorithm]bool{
	EdDSA: true,
	HS256: true,
	HS384: true,
	HS512: true,
	RS256: true,
	RS384: true,
	RS512: true,
	ES256: true,
	ES384: true,
	ES512: true,
	PS256: true,
	PS384: true,
	PS512: true,
}

// KeyResolver looks up a signing key by issuer and kid. ok is false with a
// nil error when the issuer has no such key. *jwks.Resolver implements it.
type KeyResolver interface {
	ResolveKey(ctx context.Context, issuer, kid string) (key jwks.SigningKey, ok bool, err error)
}

// Validator verifies bearer tokens signed by one of a fixed set of issuers.
type Validator struct {
	issuers          []string                        // Required.
	audiences        []string                        // Required.
	algorithms       map[SignatureAlgorithm]struct{} // Required.
	keyResolver      KeyResolver                     // Optional.
	allowedClockSkew time.Duration                   // Optional.
	now              func() time.Time                // Optional.
	selection        IssuerSelection                 // Optional.
}

// New sets up a new Validator with the required and optional options.
//
// Required options:
//   - WithIssuers: Trusted token issuers
//   - WithAudiences: Accepted audiences
//   - WithAlgorithms: Signature algorithm allow-list
//
// Optional options:
//   - WithKeyResolver: Signing key source (default: jwks.NewResolver())
//   - WithAllowedClockSkew: Tolerance for exp and nbf
//   - WithClock: Time source
//   - WithIssuerSelection: FanOutIssuers (default) or TokenIssuer
//
// Missing required options are reported as errors matching ErrConfiguration.
func New(opts ...Option) (*Validator, error) {
	v := &Validator{
		now: time.Now,
	}

	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, fmt.Errorf("%w: invalid option: %w", ErrConfiguration, err)
		}
	}

	if err := v.validateConfig(); err != nil {
		return nil, err
	}

	if v.keyResolver == nil {
		resolver, err := jwks.NewResolver()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
		}
		v.keyResolver = resolver
	}

	return v, nil
}

func (v *Validator) validateConfig() error {
	if len(v.issuers) == 0 {
		return fmt.Errorf("%w: issuers are required (use WithIssuers)", ErrConfiguration)
	}
	if len(v.audiences) == 0 {
		return fmt.Errorf("%w: audiences are required (use WithAudiences)", ErrConfiguration)
	}
	if len(v.algorithms) == 0 {
		return fmt.Errorf("%w: an algorithm allow-list is required (use WithAlgorithms)", ErrConfiguration)
	}
	return nil
}

// Issuers returns the configured issuers.
func (v *Validator) Issuers() []string {
	return append([]string(nil), v.issuers...)
}

// Verify validates an Authorization header of the exact form "Bearer <token>"
// and returns the token's claims.
func (v *Validator) Verify(ctx context.Context, authorizationHeader string) (*Claims, error) {
	fields := strings.Fields(authorizationHeader)
	if len(fields) != 2 || fields[0] != "Bearer" {
		return nil, NewValidationError(ErrorCodeTokenMalformed, "authorization header format must be Bearer {token}", nil)
	}

	return v.ValidateToken(ctx, fields[1])
}

// ValidateToken verifies a compact JWS and its registered claims.
//
// Failures are *ValidationError values; use errors.Is with the class
// sentinels (ErrTokenFormat, ErrKeyResolution, ...) to tell them apart.
func (v *Validator) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	if len(v.algorithms) == 0 {
		return nil, NewValidationError(ErrorCodeConfigInvalid, "no signature algorithm allow-list configured", nil)
	}
	if v.keyResolver == nil || len(v.issuers) == 0 {
		return nil, NewValidationError(ErrorCodeConfigInvalid, "validator was not built with New", nil)
	}

	if err := validateTokenFormat(tokenString); err != nil {
		return nil, NewValidationError(ErrorCodeTokenMalformed, "invalid token format", err)
	}

	header, err := parseHeader(tokenString)
	if err != nil {
		return nil, NewValidationError(ErrorCodeTokenMalformed, "could not parse the token header", err)
	}

	if _, ok := v.algorithms[SignatureAlgorithm(header.Algorithm)]; !ok {
		return nil, NewValidationError(
			ErrorCodeInvalidAlgorithm,
			fmt.Sprintf("signing algorithm %q is not allowed", header.Algorithm),
			nil,
		)
	}

	candidates, err := v.candidateIssuers(tokenString)
	if err != nil {
		return nil, err
	}

	key, err := v.resolveKey(ctx, candidates, header.KeyID)
	if err != nil {
		return nil, err
	}

	payload, err := verifySignature(tokenString, header.Algorithm, key)
	if err != nil {
		return nil, NewValidationError(ErrorCodeInvalidSignature, "could not verify the token signature", err)
	}

	raw, err := decodeClaims(payload)
	if err != nil {
		return nil, NewValidationError(ErrorCodeTokenMalformed, "token payload is not a JSON object", err)
	}

	claims := NewClaims(raw)
	if err := v.validateClaims(claims); err != nil {
		return nil, err
	}

	return claims, nil
}

type tokenHeader struct {
	Algorithm string `json:"alg"`
	KeyID     string `json:"kid"`
}

// parseHeader decodes the unverified JOSE header of a compact JWS.
func parseHeader(tokenString string) (tokenHeader, error) {
	segment, _, _ := strings.Cut(tokenString, ".")

	headerJSON, err := base64.RawURLEncoding.DecodeString(segment)
	if err != nil {
		return tokenHeader{}, fmt.Errorf("failed to decode header: %w", err)
	}

	var header tokenHeader
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return tokenHeader{}, fmt.Errorf("failed to unmarshal header: %w", err)
	}
	if header.Algorithm == "" {
		return tokenHeader{}, errors.New("header is missing alg")
	}

	return header, nil
}

// candidateIssuers returns the issuers whose key sets may hold the signing key.
func (v *Validator) candidateIssuers(tokenString string) ([]string, error) {
	if v.selection != TokenIssuer {
		return v.issuers, nil
	}

	parts := strings.Split(tokenString, ".")
	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, NewValidationError(ErrorCodeTokenMalformed, "could not decode the token payload", err)
	}

	var unverified struct {
		Issuer string `json:"iss"`
	}
	if err := json.Unmarshal(payload, &unverified); err != nil {
		return nil, NewValidationError(ErrorCodeTokenMalformed, "token payload is not a JSON object", err)
	}

	if !slices.Contains(v.issuers, unverified.Issuer) {
		return nil, NewValidationError(
			ErrorCodeInvalidIssuer,
			fmt.Sprintf("token issuer %q is not configured", unverified.Issuer),
			nil,
		)
	}

	return []string{unverified.Issuer}, nil
}

// resolveKey asks every candidate issuer for kid concurrently. The first key
// found wins and cancels the remaining lookups. Fetch failures only matter
// when no issuer produced a key.
func (v *Validator) resolveKey(ctx context.Context, issuers []string, kid string) (jwks.SigningKey, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		g         errgroup.Group
		mu        sync.Mutex
		winner    *jwks.SigningKey
		fetchErrs []error
	)

	for _, issuer := range issuers {
		g.Go(func() error {
			key, ok, err := v.keyResolver.ResolveKey(ctx, issuer, kid)

			mu.Lock()
			defer mu.Unlock()

			switch {
			case winner != nil:
			case err != nil:
				fetchErrs = append(fetchErrs, fmt.Errorf("%s: %w", issuer, err))
			case ok:
				winner = &key
				cancel()
			}
			return nil
		})
	}
	_ = g.Wait()

	if winner != nil {
		return *winner, nil
	}

	if len(fetchErrs) > 0 {
		return jwks.SigningKey{}, NewValidationError(
			ErrorCodeJWKSFetchFailed,
			"could not retrieve signing keys",
			errors.Join(fetchErrs...),
		)
	}

	return jwks.SigningKey{}, NewValidationError(
		ErrorCodeJWKSKeyNotFound,
		fmt.Sprintf("no configured issuer publishes a signing key with kid %q", kid),
		nil,
	)
}

func verifySignature(tokenString, algorithm string, key jwks.SigningKey) ([]byte, error) {
	if key.Algorithm != "" && key.Algorithm != algorithm {
		return nil, fmt.Errorf("key %q is for %s, token uses %s", key.KeyID, key.Algorithm, algorithm)
	}

	alg, ok := jwa.LookupSignatureAlgorithm(algorithm)
	if !ok {
		return nil, fmt.Errorf("unknown signature algorithm %q", algorithm)
	}

	return jws.Verify([]byte(tokenString), jws.WithKey(alg, key.Key))
}

// decodeClaims requires the payload to be a single JSON object.
func decodeClaims(payload []byte) (map[string]any, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, errors.New("payload must be a JSON object")
	}

	var raw map[string]any
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func (v *Validator) validateClaims(claims *Claims) error {
	if !slices.Contains(v.issuers, claims.Issuer) {
		return NewValidationError(
			ErrorCodeInvalidIssuer,
			fmt.Sprintf("token issuer %q is not accepted", claims.Issuer),
			nil,
		)
	}

	if !slices.ContainsFunc(claims.Audience, func(aud string) bool {
		return slices.Contains(v.audiences, aud)
	}) {
		return NewValidationError(ErrorCodeInvalidAudience, "token audience is not accepted", nil)
	}

	// A time claim that is present must be a NumericDate.
	for _, name := range []string{"exp", "nbf", "iat"} {
		if _, present := claims.raw[name]; !present {
			continue
		}
		if _, ok := claims.numericDate(name); !ok {
			return NewValidationError(
				ErrorCodeTokenMalformed,
				fmt.Sprintf("invalid %s value", name),
				nil,
			)
		}
	}

	now := v.now()

	if _, ok := claims.raw["nbf"]; ok && now.Add(v.allowedClockSkew).Before(time.Unix(claims.NotBefore, 0)) {
		return NewValidationError(ErrorCodeTokenNotYetValid, "token is not valid yet", nil)
	}

	if _, ok := claims.raw["exp"]; ok && !now.Add(-v.allowedClockSkew).Before(time.Unix(claims.Expiry, 0)) {
		return NewValidationError(ErrorCodeTokenExpired, "token is expired", nil)
	}

	return nil
}
