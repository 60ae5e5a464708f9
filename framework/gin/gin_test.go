package jwtgin

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jwtgate "github.com/entragate/go-jwt-gate"
	"github.com/entragate/go-jwt-gate/core"
	"github.com/entragate/go-jwt-gate/internal/testissuer"
	"github.com/entragate/go-jwt-gate/jwks"
	"github.com/entragate/go-jwt-gate/validator"
)

func newGate(t *testing.T, issuer *testissuer.Server, opts ...jwtgate.Option) *jwtgate.Gate {
	t.Helper()

	store, err := jwks.NewStore(jwks.WithURL(issuer.JWKSURL()))
	require.NoError(t, err)

	v, err := validator.New(
		validator.WithKeyResolver(store),
		validator.WithIssuer(testissuer.Issuer),
		validator.WithAudience(testissuer.Audience),
	)
	require.NoError(t, err)

	gate, err := jwtgate.New(append([]jwtgate.Option{jwtgate.WithValidator(v)}, opts...)...)
	require.NoError(t, err)
	return gate
}

func TestNew(t *testing.T) {
	gin.SetMode(gin.TestMode)
	issuer := testissuer.New(t)

	router := gin.New()
	router.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	protected := router.Group("/", New(newGate(t, issuer)))
	protected.GET("/echo", func(c *gin.Context) {
		claims, err := GetClaims(c)
		require.NoError(t, err)

		fromRequest, err := jwtgate.GetClaims(c.Request.Context())
		require.NoError(t, err)
		assert.Same(t, claims, fromRequest)

		c.JSON(http.StatusOK, gin.H{"subject": claims.Subject})
	})

	expired := issuer.Claims()
	expired["exp"] = time.Now().Add(-time.Hour).Unix()

	testCases := []struct {
		name          string
		path          string
		authorization string
		wantStatus    int
		wantBody      string
		wantChallenge string
	}{
		{
			name:       "health is outside the gate",
			path:       "/health",
			wantStatus: http.StatusOK,
			wantBody:   "ok",
		},
		{
			name:          "valid token",
			path:          "/echo",
			authorization: "Bearer " + issuer.Sign(t, issuer.Claims()),
			wantStatus:    http.StatusOK,
			wantBody:      `{"subject":"` + testissuer.Subject + `"}`,
		},
		{
			name:          "missing token",
			path:          "/echo",
			wantStatus:    http.StatusUnauthorized,
			wantBody:      `{"message":"Unauthorized"}`,
			wantChallenge: "Bearer",
		},
		{
			name:          "expired token",
			path:          "/echo",
			authorization: "Bearer " + issuer.Sign(t, expired),
			wantStatus:    http.StatusUnauthorized,
			wantBody:      `{"message":"Unauthorized"}`,
			wantChallenge: `Bearer error="invalid_token"`,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, testCase.path, nil)
			if testCase.authorization != "" {
				req.Header.Set("Authorization", testCase.authorization)
			}
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			assert.Equal(t, testCase.wantStatus, rec.Code)
			assert.Equal(t, testCase.wantBody, rec.Body.String())
			assert.Equal(t, testCase.wantChallenge, rec.Header().Get("WWW-Authenticate"))
		})
	}
}

func TestWithErrorHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var got core.Decision
	router := gin.New()
	router.Use(New(newGate(t, testissuer.New(t)), WithErrorHandler(func(c *gin.Context, decision core.Decision) {
		got = decision
		c.AbortWithStatus(http.StatusForbidden)
	})))
	router.GET("/echo", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/echo", nil)
	req.Header.Set("Authorization", "Basic abc")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, core.ErrorCodeAuthorizationMalformed, got.Code)
}

func TestGetClaims(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())

	_, err := GetClaims(c)
	assert.ErrorIs(t, err, core.ErrClaimsNotFound)

	c.Set(ClaimsKey, "not claims")
	_, err = GetClaims(c)
	assert.ErrorIs(t, err, core.ErrClaimsNotFound)
}
