/*
Package core provides the framework-agnostic authorization boundary shared by
every transport adapter (net/http, Gin, Echo, gRPC).

An Authorizer receives the raw Authorization header, verifies it with a
Verifier (normally a *validator.Validator), and derives a
*permissions.Principal from the verified claims:

	authorizer, err := core.New(
	    core.WithVerifier(v),
	    core.WithLogger(logger),
	)
	if err != nil {
	    log.Fatal(err)
	}

	principal, err := authorizer.Authorize(ctx, r.Header.Get("Authorization"))
	switch {
	case core.IsConfigurationError(err):
	    // 500
	case err != nil:
	    // 401, err is core.ErrUnauthorized
	}

Every authentication failure is returned as ErrUnauthorized. The reason is
logged with a machine-readable code (see the validator.ErrorCode* constants)
and never returned.

# Principal derivation

DefaultPrincipalID reads the "{issuer}/userId" claim, issuer being the token's
iss without a trailing slash, and falls back to sub. DefaultPermissions reads
the string entries of the "permissions" claim. Both can be replaced with
WithPrincipalID and WithPermissions.

# Scalar boundaries

Some boundaries, such as gateway authorizer results, can only carry string
values. AuthorizerContext flattens a principal for them, serializing the
permissions as a JSON array, and Principal restores it on the other side.

# Context Keys

SetPrincipal and GetPrincipal store the principal for handlers, and the
generic GetClaims retrieves the verified claims with type safety. The package
uses an unexported context key type to prevent collisions.
*/
package core
