package validator

import (
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entragate/go-jwt-gate/jwks"
)

func TestVerifySignature(t *testing.T) {
	keys := testKeys(t)
	claims := jwt.MapClaims{"sub": "1234567890"}

	rsaKey := verificationKey(t, "rsa", "", keys.rsa.Public())
	pinnedRSAKey := verificationKey(t, "rsa", jwa.RS256, keys.rsa.Public())
	otherRSAKey := verificationKey(t, "rsa", jwa.RS256, keys.otherRSA.Public())
	ecKey := verificationKey(t, "ec", jwa.ES256, keys.ec.Public())

	tamper := func(raw string) string {
		parts := strings.Split(raw, ".")
		parts[1] = segment(`{"sub":"admin"}`)
		return strings.Join(parts, ".")
	}

	testCases := []struct {
		name    string
		token   string
		key     *jwks.VerificationKey
		allowed []jwa.SignatureAlgorithm
		want    error
	}{
		{
			name:    "it verifies an RS256 token",
			token:   sign(t, jwt.SigningMethodRS256, keys.rsa, "rsa", claims),
			allowed: []jwa.SignatureAlgorithm{jwa.RS256},
		},
		{
			name:    "it verifies a PS256 token with an unpinned key",
			token:   sign(t, jwt.SigningMethodPS256, keys.rsa, "rsa", claims),
			allowed: []jwa.SignatureAlgorithm{jwa.RS256, jwa.PS256},
		},
		{
			name:    "it verifies an ES256 token",
			token:   sign(t, jwt.SigningMethodES256, keys.ec, "ec", claims),
			allowed: []jwa.SignatureAlgorithm{jwa.ES256},
		},
		{
			name:    "it rejects an algorithm outside the allow-list",
			token:   sign(t, jwt.SigningMethodES256, keys.ec, "ec", claims),
			allowed: []jwa.SignatureAlgorithm{jwa.RS256},
			want:    ErrAlgorithmNotAllowed,
		},
		{
			name:    "it rejects HMAC even when listed",
			token:   sign(t, jwt.SigningMethodHS256, []byte("public-key-bytes-used-as-secret"), "rsa", claims),
			allowed: []jwa.SignatureAlgorithm{jwa.RS256, jwa.HS256},
			want:    ErrAlgorithmNotAllowed,
		},
		{
			name:    "it rejects a tampered payload",
			token:   tamper(sign(t, jwt.SigningMethodRS256, keys.rsa, "rsa", claims)),
			allowed: []jwa.SignatureAlgorithm{jwa.RS256},
			want:    ErrInvalidSignature,
		},
		{
			name:    "it rejects a token signed by another key",
			token:   sign(t, jwt.SigningMethodRS256, keys.rsa, "rsa", claims),
			key:     otherRSAKey,
			allowed: []jwa.SignatureAlgorithm{jwa.RS256},
			want:    ErrInvalidSignature,
		},
		{
			name:    "it rejects an algorithm family that does not match the key",
			token:   sign(t, jwt.SigningMethodES256, keys.ec, "rsa", claims),
			key:     rsaKey,
			allowed: []jwa.SignatureAlgorithm{jwa.RS256, jwa.ES256},
			want:    ErrInvalidSignature,
		},
		{
			name:    "it rejects an algorithm other than the one pinned by the key",
			token:   sign(t, jwt.SigningMethodPS256, keys.rsa, "rsa", claims),
			key:     pinnedRSAKey,
			allowed: []jwa.SignatureAlgorithm{jwa.RS256, jwa.PS256},
			want:    ErrInvalidSignature,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			token, err := Parse(testCase.token)
			require.NoError(t, err)

			key := rsaKey
			if token.Header().Algorithm == jwa.ES256 {
				key = ecKey
			}
			if testCase.key != nil {
				key = testCase.key
			}

			err = VerifySignature(token, key, testCase.allowed)
			if testCase.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, testCase.want)
		})
	}
}
