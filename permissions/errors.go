package permissions

import "errors"

var (
	// ErrPermissionDenied is returned by the Assert methods when the principal
	// lacks the required permissions. It maps to 403, not 401.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrConfiguration is returned for specs no evaluator is registered for, or
	// whose fields do not fit their type. It indicates a programming error.
	ErrConfiguration = errors.New("permission configuration invalid")
)
