package validator

import (
	"errors"
	"strings"
)

var (
	// ErrExcessiveTokenDots is returned when a token contains more separators
	// than a compact JWS can have. Rejected before any decoding so oversized
	// splits never allocate (CVE-2025-27144).
	ErrExcessiveTokenDots = errors.New("token contains excessive dots (possible DoS attack)")
)

const (
	// compactJWSDots is the separator count of header.payload.signature.
	compactJWSDots = 2

	// maxTokenSize bounds the raw token before any parsing.
	maxTokenSize = 1024 * 1024
)

// validateTokenFormat rejects inputs that cannot be a compact JWS before they
// reach base64 or JSON decoding.
func validateTokenFormat(tokenString string) error {
	if len(tokenString) == 0 {
		return errors.New("token is empty")
	}

	if len(tokenString) > maxTokenSize {
		return errors.New("token exceeds maximum size (1MB)")
	}

	dotCount := strings.Count(tokenString, ".")
	if dotCount > compactJWSDots {
		return ErrExcessiveTokenDots
	}
	if dotCount < compactJWSDots {
		return errors.New("token must have three dot-separated segments")
	}

	return nil
}
