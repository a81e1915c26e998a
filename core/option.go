package core

import (
	"errors"

	"github.com/lambdakit/go-authz/permissions"
)

// Option is a function that configures the Authorizer.
// Options return errors to enable validation during construction.
type Option func(*Authorizer) error

// New creates a new Authorizer with the provided options.
//
// The Authorizer must be configured with a Verifier using WithVerifier.
// All other options are optional and will use sensible defaults if not provided.
//
// Example:
//
//	authorizer, err := core.New(
//	    core.WithVerifier(v),
//	    core.WithLogger(logger),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
func New(opts ...Option) (*Authorizer, error) {
	a := &Authorizer{
		principalID: DefaultPrincipalID,
		permissions: DefaultPermissions,
	}

	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}

	if a.verifier == nil {
		return nil, errors.New(ErrorCodeVerifierNotSet + ": verifier is required but not set (use WithVerifier option)")
	}

	if a.factory == nil {
		factory, err := permissions.NewFactory()
		if err != nil {
			return nil, err
		}
		a.factory = factory
	}

	return a, nil
}

// WithVerifier sets the token verifier. This is a required option.
func WithVerifier(verifier Verifier) Option {
	return func(a *Authorizer) error {
		if verifier == nil {
			return errors.New("verifier cannot be nil")
		}
		a.verifier = verifier
		return nil
	}
}

// WithPrincipalID replaces DefaultPrincipalID.
func WithPrincipalID(fn PrincipalIDFunc) Option {
	return func(a *Authorizer) error {
		if fn == nil {
			return errors.New("principal id function cannot be nil")
		}
		a.principalID = fn
		return nil
	}
}

// WithPermissions replaces DefaultPermissions.
func WithPermissions(fn PermissionsFunc) Option {
	return func(a *Authorizer) error {
		if fn == nil {
			return errors.New("permissions function cannot be nil")
		}
		a.permissions = fn
		return nil
	}
}

// WithPermissionFactory sets the factory used by Authorizer.Permissions.
// Defaults to a factory with only the built-in evaluators.
func WithPermissionFactory(factory *permissions.Factory) Option {
	return func(a *Authorizer) error {
		if factory == nil {
			return errors.New("permission factory cannot be nil")
		}
		a.factory = factory
		return nil
	}
}

// WithLogger sets an optional logger for the Authorizer.
//
// Failed authorizations are logged at warn level with their error code;
// successful ones at debug level.
func WithLogger(logger Logger) Option {
	return func(a *Authorizer) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		a.logger = logger
		return nil
	}
}
