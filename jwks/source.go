package jwks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// maxDocumentSize bounds the key document body. JWKS documents are typically
// well under 10KB.
const maxDocumentSize = 1 << 20

// Document is one response from a key source.
type Document struct {
	// Body is the raw JWKS document. Empty when NotModified is set.
	Body []byte

	// ETag is the entity tag of the document, if the source sent one.
	ETag string

	// MaxAge is the Cache-Control max-age hint, or 0.
	MaxAge time.Duration

	// NotModified reports that the document matching the ETag passed to
	// Fetch is still current.
	NotModified bool

	// FetchedAt is set by a CachingSource answering from its cache: when
	// the cached document was fetched from the provider. Zero means the
	// document was fetched just now.
	FetchedAt time.Time
}

// Source fetches the provider's published key document.
type Source interface {
	// Fetch retrieves the document. A non-empty etag asks the source to
	// answer NotModified when the document has not changed.
	Fetch(ctx context.Context, etag string) (*Document, error)

	// URL identifies where the document comes from.
	URL() string
}

// CachingSource is a Source that may answer from its own cache, such as
// RedisSource. FetchUpstream skips that cache. The Store calls it when a
// refresh must see the provider's current document: after an unknown key id,
// after Invalidate, or when the cached document is already due.
type CachingSource interface {
	Source
	FetchUpstream(ctx context.Context, etag string) (*Document, error)
}

// HTTPSource fetches a JWKS document over HTTP(S).
type HTTPSource struct {
	url    string
	client *http.Client
}

// NewHTTPSource returns a Source for the JWKS document at rawURL. A nil client
// selects one with a 10 second timeout.
func NewHTTPSource(rawURL string, client *http.Client) (*HTTPSource, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid JWKS URL: %w", err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return nil, fmt.Errorf("invalid JWKS URL %q: scheme must be http or https", rawURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid JWKS URL %q: missing host", rawURL)
	}

	if client == nil {
		client = &http.Client{Timeout: DefaultFetchTimeout}
	}

	return &HTTPSource{url: u.String(), client: client}, nil
}

// URL returns the JWKS URL.
func (s *HTTPSource) URL() string { return s.url }

// Fetch issues a GET for the JWKS document. Any status other than 200, or 304
// in answer to a conditional request, is an error.
func (s *HTTPSource) Fetch(ctx context.Context, etag string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	maxAge := parseCacheControl(resp.Header.Get("Cache-Control"))

	switch {
	case resp.StatusCode == http.StatusNotModified && etag != "":
		return &Document{ETag: etag, MaxAge: maxAge, NotModified: true}, nil
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("request returned status %d, expected 200", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if len(body) > maxDocumentSize {
		return nil, errors.New("key document exceeds maximum size (1MB)")
	}

	return &Document{
		Body:   body,
		ETag:   resp.Header.Get("ETag"),
		MaxAge: maxAge,
	}, nil
}

// parseCacheControl extracts max-age from a Cache-Control header.
// Returns 0 if max-age is absent, invalid, or outside [1s, 7d].
func parseCacheControl(cacheControl string) time.Duration {
	const (
		maxAgePrefix = "max-age="
		minTTL       = 1 * time.Second
		maxTTL       = 7 * 24 * time.Hour
	)

	if cacheControl == "" {
		return 0
	}

	for _, directive := range strings.Split(cacheControl, ",") {
		directive = strings.TrimSpace(directive)
		if !strings.HasPrefix(directive, maxAgePrefix) {
			continue
		}

		seconds, err := strconv.ParseInt(strings.TrimPrefix(directive, maxAgePrefix), 10, 64)
		if err != nil || seconds <= 0 {
			continue
		}

		ttl := time.Duration(seconds) * time.Second
		if ttl < minTTL || ttl > maxTTL {
			return 0
		}
		return ttl
	}

	return 0
}
