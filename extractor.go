package authz

import (
	"errors"
	"net/http"
)

// CredentialsExtractor is a function that takes a request as input and
// returns its credentials in Authorization header form, "Bearer <token>".
// An empty string means the request carries no credentials. An error should
// only be returned when the request could not be inspected.
type CredentialsExtractor func(r *http.Request) (string, error)

// AuthHeaderExtractor returns the Authorization header as is. Schemes other
// than Bearer are rejected later, by the verifier.
func AuthHeaderExtractor(r *http.Request) (string, error) {
	return r.Header.Get("Authorization"), nil
}

// CookieExtractor builds a CredentialsExtractor that reads a bearer token
// from the cookie with the given name.
func CookieExtractor(cookieName string) CredentialsExtractor {
	return func(r *http.Request) (string, error) {
		cookie, err := r.Cookie(cookieName)
		if errors.Is(err, http.ErrNoCookie) {
			return "", nil
		}
		if err != nil {
			return "", err
		}
		return bearer(cookie.Value), nil
	}
}

// ParameterExtractor returns a CredentialsExtractor that reads a bearer
// token from the specified query string parameter.
func ParameterExtractor(param string) CredentialsExtractor {
	return func(r *http.Request) (string, error) {
		return bearer(r.URL.Query().Get(param)), nil
	}
}

// MultiExtractor returns a CredentialsExtractor that runs multiple
// extractors and takes the first non-empty result. If an extractor returns
// an error that error is immediately returned.
func MultiExtractor(extractors ...CredentialsExtractor) CredentialsExtractor {
	return func(r *http.Request) (string, error) {
		for _, ex := range extractors {
			credentials, err := ex(r)
			if err != nil {
				return "", err
			}

			if credentials != "" {
				return credentials, nil
			}
		}
		return "", nil
	}
}

func bearer(token string) string {
	if token == "" {
		return ""
	}
	return "Bearer " + token
}
