/*
Package validator verifies bearer JWTs issued by a fixed set of trusted
issuers, using lestrrat-go/jwx v3 for signature verification.

# Basic Usage

	resolver, err := jwks.NewResolver()
	if err != nil {
	    log.Fatal(err)
	}

	v, err := validator.New(
	    validator.WithIssuers([]string{"https://auth.example.com/"}),
	    validator.WithAudiences([]string{"my-api"}),
	    validator.WithAlgorithms(validator.RS256),
	    validator.WithKeyResolver(resolver),
	)
	if err != nil {
	    log.Fatal(err)
	}

	claims, err := v.Verify(ctx, r.Header.Get("Authorization"))

# Verification Steps

  1. The header must be exactly "Bearer <token>".
  2. The token must be a compact JWS; its header is decoded for kid and alg.
  3. alg must be in the allow-list given to WithAlgorithms. There is no
     default list: New fails without one and a zero Validator rejects every
     token.
  4. Every configured issuer is asked for the kid concurrently; the first key
     found is used. With WithIssuerSelection(TokenIssuer) only the issuer
     named by the token's unverified iss is asked, and unknown issuers are
     rejected before any network call.
  5. The signature is verified against the resolved key.
  6. The payload must be a JSON object. iss must equal a configured issuer,
     aud (string or array) must contain a configured audience, and the
     current time must fall within nbf and exp, widened by
     WithAllowedClockSkew.

# Errors

Every failure is a *ValidationError whose Code names the reason. errors.Is
matches the class sentinel:

	ErrTokenFormat          malformed header, token or payload
	ErrKeyResolution        no issuer has the kid, or key sets unavailable
	ErrSignature            signature does not verify
	ErrAlgorithmNotAllowed  alg outside the allow-list
	ErrIssuerMismatch       iss not configured
	ErrAudienceMismatch     no accepted audience
	ErrTokenExpired         exp reached
	ErrTokenNotYetValid     nbf in the future
	ErrConfiguration        validator built without required options

These reasons are for logs. Callers that answer HTTP requests should
collapse them into a single unauthorized response; see package core.
*/
package validator
