/*
Package authz provides net/http middleware for bearer JWT authorization with
permission checks and conditional-request handling for responses.

The pipeline is split into packages that can be used on their own:

  - jwks resolves signing keys by issuer and key id, caching each issuer's
    key set and rate limiting fetches.
  - validator verifies bearer tokens: algorithm allow-list, signature,
    issuer, audience and time claims.
  - permissions evaluates declarative permission specs against a principal.
  - caching computes ETag and Last-Modified headers and answers conditional
    requests with 304 Not Modified.
  - core ties verification and principal derivation together behind a
    single Authorize call, used by every transport adapter.

This package is the net/http adapter. framework/gin, framework/echo and
integrations/grpc adapt the same pipeline to those stacks. The config
package loads verifier settings from the environment, and cmd/authzctl
exposes verification and ETag computation on the command line.

# Quick Start

	import (
	    "github.com/lambdakit/go-authz"
	    "github.com/lambdakit/go-authz/core"
	    "github.com/lambdakit/go-authz/permissions"
	    "github.com/lambdakit/go-authz/validator"
	)

	func main() {
	    v, err := validator.New(
	        validator.WithIssuers([]string{"https://issuer.example.com/"}),
	        validator.WithAudiences([]string{"your-api-identifier"}),
	        validator.WithAlgorithms(validator.RS256),
	    )
	    if err != nil {
	        log.Fatal(err)
	    }

	    authorizer, err := core.New(core.WithVerifier(v))
	    if err != nil {
	        log.Fatal(err)
	    }

	    middleware, err := authz.New(authz.WithAuthorizer(authorizer))
	    if err != nil {
	        log.Fatal(err)
	    }

	    admin := middleware.RequirePermissions(permissions.Permission("admin"))
	    http.Handle("/api/", middleware.CheckJWT(apiHandler))
	    http.Handle("/admin/", middleware.CheckJWT(admin(adminHandler)))
	    http.ListenAndServe(":8080", nil)
	}

# Accessing the Principal

	func apiHandler(w http.ResponseWriter, r *http.Request) {
	    principal := authz.MustGetPrincipal(r.Context())
	    fmt.Fprintln(w, principal.PrincipalID)
	}

The verified claims are available through GetClaims.

# Error Handling

Rejected requests are passed to the ErrorHandler. DefaultErrorHandler
answers 401 for core.ErrUnauthorized, 403 for
permissions.ErrPermissionDenied and 500 for configuration errors and
anything else. The reason a token was rejected is logged, never written to
the response.

# Responses

Respond writes a JSON response through caching.Negotiate:

	middleware.Respond(w, r, http.StatusOK, items, caching.Options{
	    CacheControl: "private",
	    LastModified: caching.LastModifiedFromProperty("updatedAt"),
	    MaxAge:       time.Hour,
	})

# Observability

WithLogger accepts any log/slog compatible logger; NewZapLogger,
NewLogrusLogger and NewZerologLogger adapt the other common ones.
WithMetrics records authorization outcomes and latency, for example with
NewPrometheusMetrics, and WithTracer spans each authorization with
OpenTelemetry through NewOpenTelemetryTracer.
*/
package authz
