// Package testissuer runs an in-process identity provider for tests. It
// publishes a JWKS document over httptest and mints tokens signed with the
// matching private keys.
package testissuer

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

const (
	// TenantID is the Entra ID tenant the issuer impersonates.
	TenantID = "9188040d-6c67-4c5b-b112-36a304b66dad"

	// Issuer is the v2.0 iss of minted tokens.
	Issuer = "https://login.microsoftonline.com/" + TenantID + "/v2.0"

	// Audience is the aud of minted tokens.
	Audience = "api://6e74172b-be56-4843-9ff4-e66a39bb12e3"

	// Subject is the sub of minted tokens.
	Subject = "AAAAAAAAAAAAAAAAAAAAAIkzqFVrSaSaFHy782bbtaQ"

	// RSAKeyID and ECKeyID identify the keys published at startup.
	RSAKeyID = "rsa-1"
	ECKeyID  = "ec-1"
)

type signingKey struct {
	id      string
	method  jwt.SigningMethod
	private crypto.Signer
}

// Server is a fake identity provider. It is safe for concurrent use.
type Server struct {
	server *httptest.Server

	mu          sync.Mutex
	keys        map[string]*signingKey
	published   []string
	unavailable bool
	delay       time.Duration
	etag        string

	requests atomic.Int32
}

// New starts a Server publishing an RS256 key and an ES256 key. It is closed
// when the test ends.
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{keys: map[string]*signingKey{}}
	s.addKey(t, RSAKeyID, jwt.SigningMethodRS256)
	s.addKey(t, ECKeyID, jwt.SigningMethodES256)

	mux := http.NewServeMux()
	mux.HandleFunc("/discovery/v2.0/keys", s.serveKeys)
	mux.HandleFunc("/v2.0/.well-known/openid-configuration", s.serveDiscovery)
	s.server = httptest.NewServer(mux)
	t.Cleanup(s.server.Close)

	return s
}

// JWKSURL returns the URL of the published key set.
func (s *Server) JWKSURL() string { return s.server.URL + "/discovery/v2.0/keys" }

// URL returns the base URL of the server.
func (s *Server) URL() string { return s.server.URL }

// DiscoveryIssuer returns an issuer URL whose OpenID configuration this
// server publishes.
func (s *Server) DiscoveryIssuer() string { return s.server.URL + "/v2.0" }

// Requests returns how many times the key set was requested.
func (s *Server) Requests() int { return int(s.requests.Load()) }

// SetUnavailable makes the key endpoint answer 503 while down is true.
func (s *Server) SetUnavailable(down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unavailable = down
}

// SetDelay delays every key set response.
func (s *Server) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// Rotate publishes a new RS256 key with the given id alongside the others.
func (s *Server) Rotate(t testing.TB, kid string) {
	t.Helper()
	s.addKey(t, kid, jwt.SigningMethodRS256)
}

// Claims returns a valid claim set for the issuer: an hour of lifetime, a
// fresh jti and the Entra ID tid, scp and roles claims.
func (s *Server) Claims() jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"iss":   Issuer,
		"aud":   Audience,
		"sub":   Subject,
		"exp":   now.Add(time.Hour).Unix(),
		"nbf":   now.Add(-10 * time.Second).Unix(),
		"iat":   now.Unix(),
		"jti":   uuid.NewString(),
		"tid":   TenantID,
		"name":  "Ada Lovelace",
		"scp":   "access_as_user math.add",
		"roles": []string{"Calculator.Use"},
	}
}

// Sign mints a token with the RS256 key.
func (s *Server) Sign(t testing.TB, claims jwt.MapClaims) string {
	t.Helper()
	return s.SignWith(t, RSAKeyID, claims)
}

// SignWith mints a token with the named key.
func (s *Server) SignWith(t testing.TB, kid string, claims jwt.MapClaims) string {
	t.Helper()

	s.mu.Lock()
	key, ok := s.keys[kid]
	s.mu.Unlock()
	if !ok {
		t.Fatalf("testissuer: no key %q", kid)
	}

	token := jwt.NewWithClaims(key.method, claims)
	token.Header["kid"] = kid

	signed, err := token.SignedString(key.private)
	if err != nil {
		t.Fatalf("testissuer: signing token: %v", err)
	}
	return signed
}

// SignUnpublished mints an RS256 token with a key the server never
// publishes, under the given kid.
func (s *Server) SignUnpublished(t testing.TB, kid string, claims jwt.MapClaims) string {
	t.Helper()

	private, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("testissuer: generating key: %v", err)
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid

	signed, err := token.SignedString(private)
	if err != nil {
		t.Fatalf("testissuer: signing token: %v", err)
	}
	return signed
}

// SignHMAC mints an HS256 token keyed with secret, as an attacker would
// after learning a public key.
func SignHMAC(t testing.TB, kid string, secret []byte, claims jwt.MapClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = kid

	signed, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("testissuer: signing token: %v", err)
	}
	return signed
}

// SignNone mints an unsigned token with alg "none".
func SignNone(t testing.TB, kid string, claims jwt.MapClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	token.Header["kid"] = kid

	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("testissuer: signing token: %v", err)
	}
	return signed
}

func (s *Server) addKey(t testing.TB, kid string, method jwt.SigningMethod) {
	t.Helper()

	var (
		private crypto.Signer
		err     error
	)
	switch method {
	case jwt.SigningMethodES256:
		private, err = ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	default:
		private, err = rsa.GenerateKey(rand.Reader, 2048)
	}
	if err != nil {
		t.Fatalf("testissuer: generating key: %v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[kid] = &signingKey{id: kid, method: method, private: private}
	s.published = append(s.published, kid)
	s.etag = `"` + uuid.NewString() + `"`
}

func (s *Server) document() ([]byte, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := jwk.NewSet()
	for _, kid := range s.published {
		key := s.keys[kid]
		public, err := jwk.FromRaw(key.private.Public())
		if err != nil {
			return nil, "", err
		}
		if err := public.Set(jwk.KeyIDKey, kid); err != nil {
			return nil, "", err
		}
		if err := public.Set(jwk.AlgorithmKey, jwa.SignatureAlgorithm(key.method.Alg())); err != nil {
			return nil, "", err
		}
		if err := public.Set(jwk.KeyUsageKey, jwk.ForSignature); err != nil {
			return nil, "", err
		}
		if err := set.AddKey(public); err != nil {
			return nil, "", err
		}
	}

	body, err := json.Marshal(set)
	return body, s.etag, err
}

func (s *Server) serveKeys(w http.ResponseWriter, r *http.Request) {
	s.requests.Add(1)

	s.mu.Lock()
	down, delay := s.unavailable, s.delay
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}
	if down {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}

	body, etag, err := s.document()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("ETag", etag)
	_, _ = w.Write(body)
}

func (s *Server) serveDiscovery(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"issuer":                                s.DiscoveryIssuer(),
		"jwks_uri":                              s.JWKSURL(),
		"id_token_signing_alg_values_supported": []string{"RS256"},
	})
}
