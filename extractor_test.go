package jwtgate

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/entragate/go-jwt-gate/core"
)

func Test_AuthHeaderTokenExtractor(t *testing.T) {
	testCases := []struct {
		name      string
		header    string
		wantToken string
		wantError error
	}{
		{name: "no header"},
		{name: "bearer token", header: "Bearer i-am-token", wantToken: "i-am-token"},
		{name: "scheme is case-insensitive", header: "BEARER i-am-token", wantToken: "i-am-token"},
		{name: "extra whitespace", header: "Bearer   i-am-token ", wantToken: "i-am-token"},
		{name: "no scheme", header: "i-am-token", wantError: core.ErrMalformedAuthorization},
		{name: "basic scheme", header: "Basic dXNlcjpwYXNz", wantError: core.ErrMalformedAuthorization},
		{name: "bearer without token", header: "Bearer", wantError: core.ErrMalformedAuthorization},
		{name: "too many parts", header: "Bearer a b", wantError: core.ErrMalformedAuthorization},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if testCase.header != "" {
				req.Header.Set("Authorization", testCase.header)
			}

			token, err := AuthHeaderTokenExtractor(req)
			assert.ErrorIs(t, err, testCase.wantError)
			assert.Equal(t, testCase.wantToken, token)
		})
	}

	t.Run("repeated header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Add("Authorization", "Bearer a")
		req.Header.Add("Authorization", "Bearer b")

		_, err := AuthHeaderTokenExtractor(req)
		assert.ErrorIs(t, err, core.ErrMalformedAuthorization)
	})
}

func Test_CookieTokenExtractor(t *testing.T) {
	extract := CookieTokenExtractor("token")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	token, err := extract(req)
	assert.NoError(t, err)
	assert.Empty(t, token)

	req.AddCookie(&http.Cookie{Name: "token", Value: "i-am-token"})
	token, err = extract(req)
	assert.NoError(t, err)
	assert.Equal(t, "i-am-token", token)
}

func Test_ParameterTokenExtractor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?access_token=i-am-token", nil)

	token, err := ParameterTokenExtractor("access_token")(req)
	assert.NoError(t, err)
	assert.Equal(t, "i-am-token", token)
}

func Test_MultiTokenExtractor(t *testing.T) {
	boom := errors.New("boom")
	failing := func(*http.Request) (string, error) { return "", boom }
	empty := func(*http.Request) (string, error) { return "", nil }

	req := httptest.NewRequest(http.MethodGet, "/?access_token=from-query", nil)

	token, err := MultiTokenExtractor(empty, AuthHeaderTokenExtractor, ParameterTokenExtractor("access_token"))(req)
	assert.NoError(t, err)
	assert.Equal(t, "from-query", token)

	_, err = MultiTokenExtractor(empty, failing, ParameterTokenExtractor("access_token"))(req)
	assert.ErrorIs(t, err, boom)

	token, err = MultiTokenExtractor()(req)
	assert.NoError(t, err)
	assert.Empty(t, token)
}
