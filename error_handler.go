package authz

import (
	"errors"
	"net/http"

	"github.com/lambdakit/go-authz/core"
	"github.com/lambdakit/go-authz/permissions"
)

// ErrorHandler is a handler which is called when a request is rejected by
// the Middleware. err matches core.ErrUnauthorized for authentication
// failures, permissions.ErrPermissionDenied for failed permission checks,
// and a configuration error (see core.IsConfigurationError) when the
// middleware itself is misconfigured. A custom ErrorHandler MUST keep these
// apart: answering a configuration error with 401 hides a bug, and answering
// a denied permission with 401 makes clients drop valid credentials.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// DefaultErrorHandler is the default error handler implementation for the
// Middleware. It answers 401 for unauthorized requests, 403 for denied
// permissions and 500 for everything else. The body never carries the
// underlying reason.
func DefaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusCode(err)

	w.Header().Set("Content-Type", "application/json")
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	w.WriteHeader(status)

	switch status {
	case http.StatusUnauthorized:
		_, _ = w.Write([]byte(`{"message":"Unauthorized"}`))
	case http.StatusForbidden:
		_, _ = w.Write([]byte(`{"message":"Forbidden"}`))
	default:
		_, _ = w.Write([]byte(`{"message":"Something went wrong while authorizing the request."}`))
	}
}

// StatusCode maps an authorization error to its HTTP status code.
func StatusCode(err error) int {
	switch {
	case core.IsConfigurationError(err):
		return http.StatusInternalServerError
	case errors.Is(err, core.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, permissions.ErrPermissionDenied):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// outcome maps an authorization error to its metric label.
func outcome(err error) string {
	switch StatusCode(err) {
	case http.StatusUnauthorized:
		return OutcomeUnauthorized
	case http.StatusForbidden:
		return OutcomeForbidden
	default:
		return OutcomeError
	}
}
