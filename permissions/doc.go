/*
Package permissions evaluates declarative permission specs against an
authenticated Principal.

A spec is a type tag plus fields, {"type":"permission","permission":"x"} in
JSON. The Factory's registry maps each type to an EvaluatorFunc. The default
registry knows "permission" (literal membership in the principal's
permissions); callers add or replace entries with WithEvaluator:

	enforcer, _ := casbin.NewEnforcer("model.conf", "policy.csv")

	factory, err := permissions.NewFactory(
	    permissions.WithEvaluator(permissions.PolicyType, permissions.CasbinEvaluator(enforcer)),
	    permissions.WithEvaluator(permissions.ExpressionType, permissions.ExpressionEvaluator()),
	)

	evaluator := factory.ForPrincipal(principal)
	err = evaluator.AssertPermissions(ctx,
	    permissions.Permission("read:reports"),
	    permissions.Policy("reports", "export"),
	)
	if errors.Is(err, permissions.ErrPermissionDenied) {
	    // 403
	}

Every spec of a call is evaluated concurrently and to completion, so
evaluators must be free of side effects. HasPermissions of no specs is true;
HasAnyPermission of no specs is false. A spec whose type has no evaluator is
an ErrConfiguration error, never a false result.
*/
package permissions
