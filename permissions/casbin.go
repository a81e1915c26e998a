package permissions

import (
	"context"
	"fmt"
)

// Enforcer is the subset of casbin.IEnforcer used by CasbinEvaluator.
type Enforcer interface {
	Enforce(rvals ...any) (bool, error)
}

// CasbinEvaluator returns an evaluator for "policy" specs. A spec holds when
// the enforcer allows (principal ID, object, action), or allows
// (permission, object, action) for any of the principal's permissions, so
// token permissions can act as casbin roles.
func CasbinEvaluator(enforcer Enforcer) EvaluatorFunc {
	return func(_ context.Context, spec RawSpec, principal *Principal) (bool, error) {
		var s PolicySpec
		if err := spec.Decode(&s); err != nil {
			return false, err
		}
		if s.Object == "" || s.Action == "" {
			return false, fmt.Errorf("%w: policy spec needs object and action", ErrConfiguration)
		}

		subjects := append([]string{principal.PrincipalID}, principal.Permissions.Slice()...)
		for _, subject := range subjects {
			if subject == "" {
				continue
			}
			allowed, err := enforcer.Enforce(subject, s.Object, s.Action)
			if err != nil {
				return false, fmt.Errorf("casbin enforce: %w", err)
			}
			if allowed {
				return true, nil
			}
		}
		return false, nil
	}
}
