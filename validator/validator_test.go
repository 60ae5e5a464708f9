package validator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entragate/go-jwt-gate/internal/testissuer"
	"github.com/entragate/go-jwt-gate/jwks"
)

type testClaims struct {
	Name        string `json:"name"`
	ReturnError error  `json:"-"`
}

func (tc *testClaims) Validate(context.Context) error {
	return tc.ReturnError
}

func newIssuerValidator(t *testing.T, issuer *testissuer.Server, opts ...Option) *Validator {
	t.Helper()

	store, err := jwks.NewStore(jwks.WithURL(issuer.JWKSURL()), jwks.WithMinRefreshInterval(0))
	require.NoError(t, err)

	v, err := New(append([]Option{
		WithKeyResolver(store),
		WithAlgorithms(jwa.RS256, jwa.ES256),
		WithIssuer(testissuer.Issuer),
		WithAudience(testissuer.Audience),
	}, opts...)...)
	require.NoError(t, err)
	return v
}

func TestValidator_ValidateToken(t *testing.T) {
	ctx := context.Background()
	issuer := testissuer.New(t)

	t.Run("it round-trips an RS256 token", func(t *testing.T) {
		v := newIssuerValidator(t, issuer)
		now := time.Now().Truncate(time.Second)
		claims := issuer.Claims()
		claims["exp"] = now.Add(time.Hour).Unix()
		claims["nbf"] = now.Add(-10 * time.Second).Unix()
		claims["iat"] = now.Unix()

		got, err := v.ValidateToken(ctx, issuer.Sign(t, claims))
		require.NoError(t, err)

		want := &TrustedClaims{
			Issuer:    testissuer.Issuer,
			Subject:   testissuer.Subject,
			Audience:  []string{testissuer.Audience},
			Expiry:    now.Add(time.Hour),
			NotBefore: now.Add(-10 * time.Second),
			IssuedAt:  now,
			ID:        claims["jti"].(string),
			Extra: map[string]any{
				"tid":   testissuer.TenantID,
				"name":  "Ada Lovelace",
				"scp":   "access_as_user math.add",
				"roles": []any{"Calculator.Use"},
			},
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("ValidateToken() mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("it round-trips an ES256 token", func(t *testing.T) {
		v := newIssuerValidator(t, issuer)

		got, err := v.ValidateToken(ctx, issuer.SignWith(t, testissuer.ECKeyID, issuer.Claims()))
		require.NoError(t, err)
		assert.Equal(t, testissuer.Issuer, got.Issuer)
		assert.Equal(t, []string{testissuer.Audience}, got.Audience)
		assert.True(t, got.HasScope("math.add"))
	})

	t.Run("it accepts the additional v1 issuer", func(t *testing.T) {
		v1 := "https://sts.windows.net/" + testissuer.TenantID + "/"
		v := newIssuerValidator(t, issuer, WithAdditionalIssuers(v1))

		claims := issuer.Claims()
		claims["iss"] = v1
		_, err := v.ValidateToken(ctx, issuer.Sign(t, claims))
		assert.NoError(t, err)
	})

	t.Run("it decodes and validates custom claims", func(t *testing.T) {
		v := newIssuerValidator(t, issuer, WithCustomClaims(func() CustomClaims { return &testClaims{} }))

		got, err := v.ValidateToken(ctx, issuer.Sign(t, issuer.Claims()))
		require.NoError(t, err)
		assert.Equal(t, &testClaims{Name: "Ada Lovelace"}, got.Custom)

		rejecting := newIssuerValidator(t, issuer, WithCustomClaims(func() CustomClaims {
			return &testClaims{ReturnError: errors.New("not on the guest list")}
		}))
		_, err = rejecting.ValidateToken(ctx, issuer.Sign(t, issuer.Claims()))
		assert.ErrorIs(t, err, ErrInvalidClaims)
	})

	expired := func() jwt.MapClaims {
		claims := issuer.Claims()
		claims["exp"] = time.Now().Add(-time.Hour).Unix()
		return claims
	}
	withClaim := func(name string, value any) jwt.MapClaims {
		claims := issuer.Claims()
		if value == nil {
			delete(claims, name)
		} else {
			claims[name] = value
		}
		return claims
	}

	testCases := []struct {
		name  string
		token func(t *testing.T) string
		opts  []Option
		want  error
	}{
		{
			name:  "expired token",
			token: func(t *testing.T) string { return issuer.Sign(t, expired()) },
			want:  ErrTokenExpired,
		},
		{
			name:  "expired token with an invalid signature",
			token: func(t *testing.T) string { return issuer.SignUnpublished(t, testissuer.RSAKeyID, expired()) },
			want:  ErrTokenExpired,
		},
		{
			name: "token not yet valid",
			token: func(t *testing.T) string {
				return issuer.Sign(t, withClaim("nbf", time.Now().Add(time.Hour).Unix()))
			},
			want: ErrTokenNotYetValid,
		},
		{
			name:  "wrong issuer",
			token: func(t *testing.T) string { return issuer.Sign(t, withClaim("iss", "https://evil.example.com/")) },
			want:  ErrInvalidIssuer,
		},
		{
			name:  "wrong audience",
			token: func(t *testing.T) string { return issuer.Sign(t, withClaim("aud", "api://someone-else")) },
			want:  ErrInvalidAudience,
		},
		{
			name:  "missing required claim",
			token: func(t *testing.T) string { return issuer.Sign(t, withClaim("tid", nil)) },
			opts:  []Option{WithRequiredClaims("tid")},
			want:  ErrMissingClaim,
		},
		{
			name: "signature from an unpublished key",
			token: func(t *testing.T) string {
				return issuer.SignUnpublished(t, testissuer.RSAKeyID, issuer.Claims())
			},
			want: ErrInvalidSignature,
		},
		{
			name:  "unknown key id",
			token: func(t *testing.T) string { return issuer.SignUnpublished(t, "rotated-away", issuer.Claims()) },
			want:  jwks.ErrUnknownKey,
		},
		{
			name:  "malformed token",
			token: func(*testing.T) string { return "not-a-token" },
			want:  ErrTokenMalformed,
		},
		{
			name: "ES256 when only RS256 is allowed",
			token: func(t *testing.T) string {
				return issuer.SignWith(t, testissuer.ECKeyID, issuer.Claims())
			},
			opts: []Option{WithAlgorithms(jwa.RS256)},
			want: ErrAlgorithmNotAllowed,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			v := newIssuerValidator(t, issuer, testCase.opts...)

			claims, err := v.ValidateToken(ctx, testCase.token(t))
			assert.ErrorIs(t, err, testCase.want)
			assert.Nil(t, claims)
		})
	}
}

func TestValidator_AlgorithmConfusion(t *testing.T) {
	ctx := context.Background()
	keys := &staticKeys{}

	v, err := New(
		WithKeyResolver(keys),
		WithIssuer(testissuer.Issuer),
		WithAudience(testissuer.Audience),
	)
	require.NoError(t, err)

	claims := jwt.MapClaims{
		"iss": testissuer.Issuer,
		"aud": testissuer.Audience,
		"exp": time.Now().Add(time.Hour).Unix(),
	}

	for name, token := range map[string]string{
		"HS256": testissuer.SignHMAC(t, testissuer.RSAKeyID, []byte("-----BEGIN PUBLIC KEY-----"), claims),
		"none":  testissuer.SignNone(t, testissuer.RSAKeyID, claims),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := v.ValidateToken(ctx, token)
			assert.ErrorIs(t, err, ErrAlgorithmNotAllowed)
		})
	}

	assert.Zero(t, keys.lookups.Load(), "no key lookup may happen for a disallowed algorithm")
}

func TestValidator_ExpiredTokensSkipKeyLookup(t *testing.T) {
	keys := &staticKeys{err: jwks.ErrKeySourceUnavailable}
	v, err := New(
		WithKeyResolver(keys),
		WithIssuer(testissuer.Issuer),
		WithAudience(testissuer.Audience),
	)
	require.NoError(t, err)

	token := signRS256(t, testKeys(t).rsa, "kid", jwt.MapClaims{
		"iss": testissuer.Issuer,
		"aud": testissuer.Audience,
		"exp": time.Now().Add(-2 * time.Minute).Unix(),
	})

	_, err = v.ValidateToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.Zero(t, keys.lookups.Load())
}

func TestValidator_KeyRotation(t *testing.T) {
	ctx := context.Background()
	issuer := testissuer.New(t)
	v := newIssuerValidator(t, issuer)

	_, err := v.ValidateToken(ctx, issuer.Sign(t, issuer.Claims()))
	require.NoError(t, err)
	require.Equal(t, 1, issuer.Requests())

	issuer.Rotate(t, "rsa-2")
	issuer.SetDelay(50 * time.Millisecond)

	const callers = 20
	var wg sync.WaitGroup
	token := issuer.SignWith(t, "rsa-2", issuer.Claims())
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := v.ValidateToken(ctx, token)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, issuer.Requests(), "concurrent misses on the rotated key share one fetch")
}

func TestNew(t *testing.T) {
	keys := &staticKeys{}
	base := []Option{WithKeyResolver(keys), WithIssuer(testissuer.Issuer), WithAudience(testissuer.Audience)}

	t.Run("it applies defaults", func(t *testing.T) {
		v, err := New(base...)
		require.NoError(t, err)
		assert.Equal(t, []jwa.SignatureAlgorithm{jwa.RS256}, v.Algorithms())
		assert.Equal(t, DefaultClockSkew, v.Policy().ClockSkew)
		assert.Equal(t, []string{testissuer.Issuer}, v.Policy().Issuers)
	})

	testCases := []struct {
		name string
		opts []Option
		want string
	}{
		{name: "no key resolver", opts: []Option{WithIssuer(testissuer.Issuer), WithAudience("a")}, want: "key resolver is required"},
		{name: "no issuer", opts: []Option{WithKeyResolver(keys), WithAudience("a")}, want: "issuer is required"},
		{name: "no audience", opts: []Option{WithKeyResolver(keys), WithIssuer(testissuer.Issuer)}, want: "audience is required"},
		{name: "nil key resolver", opts: append(base, WithKeyResolver(nil)), want: "key resolver cannot be nil"},
		{name: "relative issuer", opts: append(base, WithIssuer("tenant/v2.0")), want: "must be absolute"},
		{name: "HMAC algorithm", opts: append(base, WithAlgorithms(jwa.HS256)), want: "unsupported signature algorithm"},
		{name: "none algorithm", opts: append(base, WithAlgorithms(jwa.NoSignature)), want: "unsupported signature algorithm"},
		{name: "empty algorithms", opts: append(base, WithAlgorithms()), want: "algorithms cannot be empty"},
		{name: "negative skew", opts: append(base, WithAllowedClockSkew(-time.Second)), want: "clock skew cannot be negative"},
		{name: "empty required claim", opts: append(base, WithRequiredClaims("sub", "")), want: "index 1"},
		{name: "nil custom claims", opts: append(base, WithCustomClaims(nil)), want: "custom claims function cannot be nil"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			v, err := New(testCase.opts...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), testCase.want)
			assert.Nil(t, v)
		})
	}
}
