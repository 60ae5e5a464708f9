package jwks

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/stretchr/testify/require"
)

var (
	rsaKeysOnce sync.Once
	rsaKeys     []*rsa.PrivateKey
)

// testRSAKey returns one of a few cached 2048-bit keys; generating them is slow.
func testRSAKey(t *testing.T, i int) *rsa.PrivateKey {
	t.Helper()
	rsaKeysOnce.Do(func() {
		for n := 0; n < 3; n++ {
			key, err := rsa.GenerateKey(rand.Reader, 2048)
			if err != nil {
				panic(err)
			}
			rsaKeys = append(rsaKeys, key)
		}
	})
	return rsaKeys[i]
}

func testECKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return key
}

type jwkSpec struct {
	kid string
	alg jwa.SignatureAlgorithm
	use string
	raw any
}

func jwksDocument(t *testing.T, specs ...jwkSpec) []byte {
	t.Helper()

	set := jwk.NewSet()
	for _, spec := range specs {
		key, err := jwk.FromRaw(spec.raw)
		require.NoError(t, err)
		if spec.kid != "" {
			require.NoError(t, key.Set(jwk.KeyIDKey, spec.kid))
		}
		if spec.alg != "" {
			require.NoError(t, key.Set(jwk.AlgorithmKey, spec.alg))
		}
		if spec.use != "" {
			require.NoError(t, key.Set(jwk.KeyUsageKey, spec.use))
		}
		require.NoError(t, set.AddKey(key))
	}

	doc, err := json.Marshal(set)
	require.NoError(t, err)
	return doc
}

func rsaDocument(t *testing.T, kids ...string) []byte {
	t.Helper()
	specs := make([]jwkSpec, 0, len(kids))
	for i, kid := range kids {
		specs = append(specs, jwkSpec{kid: kid, alg: jwa.RS256, raw: testRSAKey(t, i%3).Public()})
	}
	return jwksDocument(t, specs...)
}

// fakeSource is a Source whose responses tests swap at will. When gate is
// non-nil every Fetch blocks until it is closed.
type fakeSource struct {
	mu    sync.Mutex
	doc   *Document
	err   error
	gate  chan struct{}
	calls atomic.Int32
	etags []string
}

func (f *fakeSource) URL() string { return "https://idp.example.com/keys" }

func (f *fakeSource) Fetch(ctx context.Context, etag string) (*Document, error) {
	f.calls.Add(1)

	f.mu.Lock()
	gate := f.gate
	f.etags = append(f.etags, etag)
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	doc := *f.doc
	return &doc, nil
}

func (f *fakeSource) serve(body []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.doc = &Document{Body: body}
	f.err = nil
}

func (f *fakeSource) respond(doc *Document) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.doc = doc
	f.err = nil
}

// block makes every following Fetch wait until unblock is called.
func (f *fakeSource) block() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = make(chan struct{})
}

func (f *fakeSource) unblock() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gate != nil {
		close(f.gate)
		f.gate = nil
	}
}

func (f *fakeSource) seenETags() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.etags...)
}

func (f *fakeSource) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingLogger struct {
	mu    sync.Mutex
	warns []string
	errs  []string
}

func (l *recordingLogger) Debug(string, ...any) {}
func (l *recordingLogger) Info(string, ...any)  {}

func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func (l *recordingLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errs = append(l.errs, msg)
}

func (l *recordingLogger) warnings() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.warns...)
}

func (l *recordingLogger) errors() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.errs...)
}

type countingMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func (m *countingMetrics) IncCounter(name string, tags map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts == nil {
		m.counts = map[string]int{}
	}
	m.counts[name+"/"+tags["result"]]++
}

func (m *countingMetrics) count(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[key]
}
