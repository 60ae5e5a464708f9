package validator

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/stretchr/testify/require"

	"github.com/entragate/go-jwt-gate/jwks"
)

type keyFixture struct {
	rsa      *rsa.PrivateKey
	otherRSA *rsa.PrivateKey
	ec       *ecdsa.PrivateKey
}

var (
	fixtureOnce sync.Once
	fixture     keyFixture
)

func testKeys(t *testing.T) keyFixture {
	t.Helper()
	fixtureOnce.Do(func() {
		var err error
		if fixture.rsa, err = rsa.GenerateKey(rand.Reader, 2048); err != nil {
			panic(err)
		}
		if fixture.otherRSA, err = rsa.GenerateKey(rand.Reader, 2048); err != nil {
			panic(err)
		}
		if fixture.ec, err = ecdsa.GenerateKey(elliptic.P256(), rand.Reader); err != nil {
			panic(err)
		}
	})
	return fixture
}

func sign(t *testing.T, method jwt.SigningMethod, key any, kid string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(method, claims)
	token.Header["kid"] = kid
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func signRS256(t *testing.T, key *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()
	return sign(t, jwt.SigningMethodRS256, key, kid, claims)
}

func verificationKey(t *testing.T, kid string, alg jwa.SignatureAlgorithm, public any) *jwks.VerificationKey {
	t.Helper()
	key, err := jwks.NewVerificationKey(kid, alg, public)
	require.NoError(t, err)
	return key
}

// staticKeys is a KeyResolver over a fixed map that counts lookups.
type staticKeys struct {
	keys    map[string]*jwks.VerificationKey
	err     error
	lookups atomic.Int32
}

func (s *staticKeys) Resolve(_ context.Context, kid string) (*jwks.VerificationKey, error) {
	s.lookups.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	key, ok := s.keys[kid]
	if !ok {
		return nil, jwks.ErrUnknownKey
	}
	return key, nil
}
