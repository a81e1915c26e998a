package validator

import "errors"

// Sentinel errors, one per failure class. A *ValidationError matches the
// sentinel of its class through errors.Is.
var (
	// ErrTokenFormat is returned when the authorization header or the token
	// itself is structurally invalid.
	ErrTokenFormat = errors.New("token format invalid")

	// ErrKeyResolution is returned when no configured issuer published a key
	// matching the token's kid, or the key sets could not be retrieved.
	ErrKeyResolution = errors.New("signing key could not be resolved")

	// ErrSignature is returned when the token signature does not verify.
	ErrSignature = errors.New("token signature invalid")

	// ErrAlgorithmNotAllowed is returned when the token's alg header is not in
	// the configured allow-list.
	ErrAlgorithmNotAllowed = errors.New("token algorithm not allowed")

	// ErrIssuerMismatch is returned when the iss claim is missing or is not one
	// of the configured issuers.
	ErrIssuerMismatch = errors.New("token issuer not accepted")

	// ErrAudienceMismatch is returned when no aud value matches the configured
	// audiences.
	ErrAudienceMismatch = errors.New("token audience not accepted")

	// ErrTokenExpired is returned when the exp claim is in the past.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenNotYetValid is returned when the nbf claim is in the future.
	ErrTokenNotYetValid = errors.New("token not yet valid")

	// ErrConfiguration is returned for programmer errors, such as a validator
	// constructed without an algorithm allow-list.
	ErrConfiguration = errors.New("validator misconfigured")
)

// Error codes, suitable for logs and metrics labels.
const (
	ErrorCodeTokenMalformed      = "token_malformed"
	ErrorCodeJWKSKeyNotFound     = "jwks_key_not_found"
	ErrorCodeJWKSFetchFailed     = "jwks_fetch_failed"
	ErrorCodeInvalidSignature    = "invalid_signature"
	ErrorCodeInvalidAlgorithm    = "invalid_algorithm"
	ErrorCodeInvalidIssuer       = "invalid_issuer"
	ErrorCodeInvalidAudience     = "invalid_audience"
	ErrorCodeTokenExpired        = "token_expired"
	ErrorCodeTokenNotYetValid    = "token_not_yet_valid"
	ErrorCodeConfigInvalid       = "config_invalid"
	ErrorCodeUnclassifiedFailure = "unclassified"
)

var codeClasses = map[string]error{
	ErrorCodeTokenMalformed:   ErrTokenFormat,
	ErrorCodeJWKSKeyNotFound:  ErrKeyResolution,
	ErrorCodeJWKSFetchFailed:  ErrKeyResolution,
	ErrorCodeInvalidSignature: ErrSignature,
	ErrorCodeInvalidAlgorithm: ErrAlgorithmNotAllowed,
	ErrorCodeInvalidIssuer:    ErrIssuerMismatch,
	ErrorCodeInvalidAudience:  ErrAudienceMismatch,
	ErrorCodeTokenExpired:     ErrTokenExpired,
	ErrorCodeTokenNotYetValid: ErrTokenNotYetValid,
	ErrorCodeConfigInvalid:    ErrConfiguration,
}

// ValidationError carries a classified verification failure.
type ValidationError struct {
	// Code is a machine-readable error code (e.g., "token_expired").
	Code string

	// Message is a human-readable error message.
	Message string

	// Details contains the underlying error, if any.
	Details error
}

// NewValidationError creates a new ValidationError with the given code and message.
func NewValidationError(code, message string, details error) *ValidationError {
	return &ValidationError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Details != nil {
		return e.Message + ": " + e.Details.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ValidationError) Unwrap() error {
	return e.Details
}

// Is reports whether target is the sentinel for this error's class.
func (e *ValidationError) Is(target error) bool {
	class, ok := codeClasses[e.Code]
	return ok && class == target
}

// Code returns the classification code of err, or ErrorCodeUnclassifiedFailure
// when err does not carry one.
func Code(err error) string {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Code
	}
	return ErrorCodeUnclassifiedFailure
}
