package jwtgate

import (
	"errors"
	"net/http"

	"github.com/entragate/go-jwt-gate/core"
)

// TokenExtractor pulls the raw token out of a request. A request that simply
// carries no token yields "" and a nil error; an error means a token was
// offered in a shape the extractor cannot accept.
type TokenExtractor func(r *http.Request) (string, error)

// AuthHeaderTokenExtractor reads "Authorization: Bearer <token>". The scheme
// is case-insensitive. Any other shape, including a repeated header, yields
// core.ErrMalformedAuthorization.
func AuthHeaderTokenExtractor(r *http.Request) (string, error) {
	return core.BearerToken(r.Header.Values("Authorization"))
}

// CookieTokenExtractor reads the token from the named cookie.
func CookieTokenExtractor(cookieName string) TokenExtractor {
	return func(r *http.Request) (string, error) {
		cookie, err := r.Cookie(cookieName)
		switch {
		case errors.Is(err, http.ErrNoCookie):
			return "", nil
		case err != nil:
			return "", err
		}
		return cookie.Value, nil
	}
}

// ParameterTokenExtractor reads the token from a query parameter.
func ParameterTokenExtractor(param string) TokenExtractor {
	return func(r *http.Request) (string, error) {
		return r.URL.Query().Get(param), nil
	}
}

// MultiTokenExtractor tries extractors in order. The first non-empty token
// wins and the first error aborts the search.
func MultiTokenExtractor(extractors ...TokenExtractor) TokenExtractor {
	return func(r *http.Request) (string, error) {
		for _, extract := range extractors {
			if token, err := extract(r); err != nil || token != "" {
				return token, err
			}
		}
		return "", nil
	}
}
