/*
Package grpc provides gRPC server interceptors that authorize calls with a
core.Authorizer.

	authorizer, err := core.New(core.WithVerifier(v))
	if err != nil {
	    log.Fatal(err)
	}

	interceptor, err := authzgrpc.New(
	    authzgrpc.WithAuthorizer(authorizer),
	    authzgrpc.WithExcludedMethods("/grpc.health.v1.Health/Check"),
	    authzgrpc.WithMethodPermissions("/inventory.v1.Inventory/Delete",
	        permissions.Permission("inventory:delete")),
	)
	if err != nil {
	    log.Fatal(err)
	}

	server := grpc.NewServer(
	    grpc.UnaryInterceptor(interceptor.UnaryServerInterceptor()),
	    grpc.StreamInterceptor(interceptor.StreamServerInterceptor()),
	)

Credentials are read from the "authorization" metadata in Bearer form.
Handlers retrieve the principal with GetPrincipal and the verified claims
with GetClaims.

# Status codes

DefaultErrorHandler answers codes.Unauthenticated for rejected credentials
and codes.PermissionDenied for failed permission checks. Configuration
errors become codes.Internal. The reason credentials were rejected is logged
by the authorizer and never sent to the client.
*/
package grpc
