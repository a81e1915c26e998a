package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTokenFormat(t *testing.T) {
	tests := []struct {
		name          string
		token         string
		expectErr     error
		errorContains string
	}{
		{
			name:  "compact JWS (2 dots)",
			token: "eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.eyJzdWIiOiIxMjM0NTY3ODkwIn0.signature",
		},
		{
			name:      "JWE shape (4 dots) is not a JWS",
			token:     "header.encrypted_key.iv.ciphertext.tag",
			expectErr: ErrExcessiveTokenDots,
		},
		{
			name:      "many dots (100) - CVE-2025-27144",
			token:     strings.Repeat("a.", 100) + "z",
			expectErr: ErrExcessiveTokenDots,
		},
		{
			name:      "malicious token with 10000 dots",
			token:     strings.Repeat(".", 10000),
			expectErr: ErrExcessiveTokenDots,
		},
		{
			name:          "single segment",
			token:         "abc",
			errorContains: "three dot-separated segments",
		},
		{
			name:          "empty token",
			token:         "",
			errorContains: "token is empty",
		},
		{
			name:          "token exceeds 1MB",
			token:         "a." + strings.Repeat("a", maxTokenSize) + ".c",
			errorContains: "exceeds maximum size",
		},
		{
			name:  "token just under 1MB",
			token: "header." + strings.Repeat("a", maxTokenSize-20) + ".sig",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := validateTokenFormat(test.token)

			switch {
			case test.expectErr != nil:
				assert.ErrorIs(t, err, test.expectErr)
			case test.errorContains != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), test.errorContains)
			default:
				assert.NoError(t, err)
			}
		})
	}
}
