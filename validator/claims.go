package validator

import (
	"encoding/json"
	"time"
)

// RegisteredClaims represents public claim
// values (as specified in RFC 7519).
type RegisteredClaims struct {
	Issuer    string   `json:"iss,omitempty"`
	Subject   string   `json:"sub,omitempty"`
	Audience  []string `json:"aud,omitempty"`
	Expiry    int64    `json:"exp,omitempty"`
	NotBefore int64    `json:"nbf,omitempty"`
	IssuedAt  int64    `json:"iat,omitempty"`
	ID        string   `json:"jti,omitempty"`
}

// Claims is the verified claim set of a token. The registered claims are
// decoded into RegisteredClaims; every claim, registered or not, stays
// available through the accessors.
type Claims struct {
	RegisteredClaims

	raw map[string]any
}

// NewClaims builds Claims from a decoded JSON object. It is used by the
// Validator and is exported for tests and for callers that build principals
// from claims obtained elsewhere.
func NewClaims(raw map[string]any) *Claims {
	if raw == nil {
		raw = map[string]any{}
	}

	c := &Claims{raw: raw}
	c.Issuer, _ = c.String("iss")
	c.Subject, _ = c.String("sub")
	c.ID, _ = c.String("jti")
	c.Audience = audienceOf(raw["aud"])
	c.Expiry, _ = c.numericDate("exp")
	c.NotBefore, _ = c.numericDate("nbf")
	c.IssuedAt, _ = c.numericDate("iat")

	return c
}

// Get returns the raw value of a claim.
func (c *Claims) Get(name string) (any, bool) {
	v, ok := c.raw[name]
	return v, ok
}

// String returns a claim if it is a JSON string.
func (c *Claims) String(name string) (string, bool) {
	s, ok := c.raw[name].(string)
	return s, ok
}

// StringSlice returns the string elements of an array claim, skipping
// elements of other types. ok is false when the claim is not an array.
func (c *Claims) StringSlice(name string) ([]string, bool) {
	items, ok := c.raw[name].([]any)
	if !ok {
		return nil, false
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out, true
}

// Map returns a shallow copy of every claim.
func (c *Claims) Map() map[string]any {
	out := make(map[string]any, len(c.raw))
	for k, v := range c.raw {
		out[k] = v
	}
	return out
}

// MarshalJSON encodes the full claim set.
func (c *Claims) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.raw)
}

// ExpiresAt returns the exp claim as a time, or the zero time when absent.
func (c *Claims) ExpiresAt() time.Time {
	if c.Expiry == 0 {
		return time.Time{}
	}
	return time.Unix(c.Expiry, 0)
}

func (c *Claims) numericDate(name string) (int64, bool) {
	switch v := c.raw[name].(type) {
	case float64:
		return int64(v), true
	case json.Number:
		n, err := v.Float64()
		return int64(n), err == nil
	default:
		return 0, false
	}
}

// audienceOf accepts aud as a single string or an array of strings.
func audienceOf(v any) []string {
	switch aud := v.(type) {
	case string:
		return []string{aud}
	case []any:
		out := make([]string, 0, len(aud))
		for _, item := range aud {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
