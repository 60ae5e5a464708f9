package jwks

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// Logger defines an optional logging interface compatible with log/slog.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Metrics receives refresh outcome counters.
type Metrics interface {
	IncCounter(name string, tags map[string]string)
}

// MetricRefreshTotal counts key document fetches by result.
const MetricRefreshTotal = "jwtgate_jwks_refresh_total"


type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type noopMetrics struct{}

func (noopMetrics) IncCounter(string, map[string]string) {}

// Store fetches and caches the identity provider's signing keys.
//
// The current KeySet is published atomically: a refresh builds the new set
// off to the side and swaps it in one step, so readers see either the old or
// the new set. Refreshes are single-flight; concurrent callers that need one
// wait for the same fetch.
type Store struct {
	source             Source
	refreshInterval    time.Duration
	maxStaleness       time.Duration
	fetchTimeout       time.Duration
	minRefreshInterval time.Duration
	now                func() time.Time
	logger             Logger
	metrics            Metrics

	current     atomic.Pointer[KeySet]
	group       singleflight.Group
	lastAttempt atomic.Int64 // unix nanos of the last completed fetch
	refreshing  atomic.Bool  // background refresh in progress
	lastFailure atomic.Pointer[fetchFailure]
}

// fetchFailure is the error of the last fetch, cleared by the next success.
type fetchFailure struct {
	err error
}

// fetchMode selects whether a refresh may be answered by a CachingSource's
// own cache.
type fetchMode int

const (
	viaCache fetchMode = iota
	fromProvider
)

// NewStore builds a Store. Nothing is fetched until the first Resolve or
// Prefetch.
//
// Example:
//
//	store, err := jwks.NewStore(
//	    jwks.WithURL("https://login.microsoftonline.com/<tenant>/discovery/v2.0/keys"),
//	    jwks.WithRefreshInterval(15*time.Minute),
//	)
func NewStore(opts ...Option) (*Store, error) {
	cfg := &storeConfig{
		refreshInterval:    DefaultRefreshInterval,
		maxStaleness:       DefaultMaxStaleness,
		fetchTimeout:       DefaultFetchTimeout,
		minRefreshInterval: DefaultMinRefreshInterval,
		now:                time.Now,
		logger:             noopLogger{},
		metrics:            noopMetrics{},
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	source := cfg.source
	if source == nil {
		httpSource, err := NewHTTPSource(cfg.url, cfg.httpClient)
		if err != nil {
			return nil, err
		}
		source = httpSource
	}

	return &Store{
		source:             source,
		refreshInterval:    cfg.refreshInterval,
		maxStaleness:       cfg.maxStaleness,
		fetchTimeout:       cfg.fetchTimeout,
		minRefreshInterval: cfg.minRefreshInterval,
		now:                cfg.now,
		logger:             cfg.logger,
		metrics:            cfg.metrics,
	}, nil
}

// Current returns the published key set, or nil before the first successful
// fetch.
func (s *Store) Current() *KeySet {
	return s.current.Load()
}

// Prefetch fetches the key set eagerly, typically at startup.
func (s *Store) Prefetch(ctx context.Context) error {
	_, err := s.refresh(ctx, viaCache)
	return err
}

// Invalidate marks the current key set as due, so the next Resolve refreshes
// it from the provider, bypassing any source cache. The set keeps serving
// cache hits if that refresh fails.
func (s *Store) Invalidate() {
	set := s.current.Load()
	if set == nil {
		return
	}
	due := set.withMetadata(set.fetchedAt, set.source, set.etag, set.maxAge)
	due.invalidated = true
	s.current.CompareAndSwap(set, due)
	s.lastAttempt.Store(0)
	s.lastFailure.Store(nil)
}

// Resolve returns the verification key with the given id.
//
// A fresh set answers directly. An unknown id on a fresh set, or a lookup on
// an invalidated set, refreshes from the provider and retries once. A lookup
// on a stale set refreshes too, unless the last refresh failed: the cached
// set then answers at once and the refresh is retried in the background, at
// most once per minimum refresh interval. Keys of the last good set keep
// resolving until it is older than the maximum staleness.
func (s *Store) Resolve(ctx context.Context, kid string) (*VerificationKey, error) {
	if kid == "" {
		return nil, fmt.Errorf("%w: token has no key id", ErrUnknownKey)
	}

	now := s.now()
	mode := viaCache
	if set := s.current.Load(); set != nil {
		failure := s.lastFailure.Load()
		switch {
		case s.fresh(set, now):
			if key, ok := set.Lookup(kid); ok {
				s.maybeRefreshInBackground(set, now)
				return key, nil
			}
			if !s.missRefreshAllowed(now) {
				return nil, fmt.Errorf("%w: %q", ErrUnknownKey, kid)
			}
			s.logger.Debug("key id not in cached key set, refreshing", "kid", kid)
			mode = fromProvider
		case set.invalidated:
			mode = fromProvider
		case failure != nil && !s.missRefreshAllowed(now):
			return s.resolveStale(kid, failure.err)
		case failure != nil:
			if _, ok := set.Lookup(kid); ok && now.Sub(set.fetchedAt) < s.maxStaleness {
				s.refreshInBackground()
				return s.resolveStale(kid, failure.err)
			}
		}
	}

	set, err := s.refresh(ctx, mode)
	if err != nil {
		return s.resolveStale(kid, err)
	}
	if key, ok := set.Lookup(kid); ok {
		return key, nil
	}

	if set.cached {
		s.logger.Debug("key id not in cached key document, fetching from the provider", "kid", kid)
		if set, err = s.refresh(ctx, fromProvider); err != nil {
			return s.resolveStale(kid, err)
		}
		if key, ok := set.Lookup(kid); ok {
			return key, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKey, kid)
}

// resolveStale answers a lookup from the last good set after a failed refresh.
func (s *Store) resolveStale(kid string, fetchErr error) (*VerificationKey, error) {
	set := s.current.Load()
	if set == nil {
		return nil, fetchErr
	}

	key, ok := set.Lookup(kid)
	if !ok {
		return nil, fetchErr
	}

	age := s.now().Sub(set.fetchedAt)
	if age >= s.maxStaleness {
		s.logger.Error("key set exceeded maximum staleness",
			"kid", kid,
			"age", age,
			"max_staleness", s.maxStaleness,
			"error", fetchErr)
		return nil, fmt.Errorf("%w: age %s exceeds %s", ErrKeySetExpired, age.Round(time.Second), s.maxStaleness)
	}

	s.logger.Warn("serving stale key set", "kid", kid, "age", age, "error", fetchErr)
	return key, nil
}

func (s *Store) interval(set *KeySet) time.Duration {
	interval := s.refreshInterval
	if set.maxAge > interval {
		interval = set.maxAge
	}
	if interval > s.maxStaleness {
		interval = s.maxStaleness
	}
	return interval
}

func (s *Store) fresh(set *KeySet, now time.Time) bool {
	return !set.invalidated && now.Sub(set.fetchedAt) < s.interval(set)
}

func (s *Store) missRefreshAllowed(now time.Time) bool {
	last := s.lastAttempt.Load()
	if last == 0 || s.minRefreshInterval == 0 {
		return true
	}
	return now.Sub(time.Unix(0, last)) >= s.minRefreshInterval
}

// maybeRefreshInBackground refreshes a set that passed 80% of its interval
// without blocking the caller.
func (s *Store) maybeRefreshInBackground(set *KeySet, now time.Time) {
	if now.Sub(set.fetchedAt) < s.interval(set)*4/5 {
		return
	}
	s.refreshInBackground()
}

// refreshInBackground starts a refresh unless one is already running.
func (s *Store) refreshInBackground() {
	if !s.refreshing.CompareAndSwap(false, true) {
		return
	}

	go func() {
		defer s.refreshing.Store(false)
		if _, err := s.refresh(context.Background(), viaCache); err != nil {
			s.logger.Warn("background key set refresh failed", "error", err)
		}
	}()
}

// refresh runs one shared fetch per mode. The fetch is detached from the
// caller's cancellation and bounded by the fetch timeout; a caller whose
// context ends stops waiting without affecting the others.
func (s *Store) refresh(ctx context.Context, mode fetchMode) (*KeySet, error) {
	ch := s.group.DoChan(mode.String(), func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
		defer cancel()
		return s.fetch(fetchCtx, mode)
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrKeySourceUnavailable, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*KeySet), nil
	}
}

func (m fetchMode) String() string {
	if m == fromProvider {
		return "provider"
	}
	return "cache"
}

// fetchDocument asks the source for the key document. A CachingSource is
// asked to skip its cache in fromProvider mode, and also when the cached
// document is already older than the refresh interval.
func (s *Store) fetchDocument(ctx context.Context, etag string, mode fetchMode) (*Document, error) {
	caching, ok := s.source.(CachingSource)
	if !ok {
		return s.source.Fetch(ctx, etag)
	}
	if mode == fromProvider {
		return caching.FetchUpstream(ctx, etag)
	}

	doc, err := caching.Fetch(ctx, etag)
	if err == nil && !doc.FetchedAt.IsZero() && s.now().Sub(doc.FetchedAt) >= s.refreshInterval {
		s.logger.Debug("cached key document is due, fetching from the provider", "url", s.source.URL())
		return caching.FetchUpstream(ctx, etag)
	}
	return doc, err
}

func (s *Store) fetch(ctx context.Context, mode fetchMode) (*KeySet, error) {
	prev := s.current.Load()
	etag := ""
	if prev != nil {
		etag = prev.etag
	}

	start := s.now()
	doc, err := s.fetchDocument(ctx, etag, mode)
	defer func() { s.lastAttempt.Store(s.now().UnixNano()) }()
	if err != nil {
		return nil, s.failed("failed to fetch key document", err)
	}

	// A document served from a cache dates from when the cache fetched it.
	fetchedAt := start
	if !doc.FetchedAt.IsZero() && doc.FetchedAt.Before(start) {
		fetchedAt = doc.FetchedAt
	}

	var next *KeySet
	switch {
	case doc.NotModified && prev != nil:
		next = prev.withMetadata(fetchedAt, prev.source, prev.etag, doc.MaxAge)
		s.metrics.IncCounter(MetricRefreshTotal, map[string]string{"result": "not_modified"})
		s.logger.Debug("key document not modified", "url", s.source.URL())
	default:
		parsed, err := ParseKeySet(doc.Body)
		if err != nil {
			return nil, s.failed("rejected key document", err)
		}
		next = parsed.withMetadata(fetchedAt, s.source.URL(), doc.ETag, doc.MaxAge)
		s.metrics.IncCounter(MetricRefreshTotal, map[string]string{"result": "success"})
		s.logger.Info("key set refreshed", "url", s.source.URL(), "keys", next.Len())
	}
	next.cached = !doc.FetchedAt.IsZero()

	s.lastFailure.Store(nil)
	s.current.Store(next)
	return next, nil
}

func (s *Store) failed(msg string, err error) error {
	s.metrics.IncCounter(MetricRefreshTotal, map[string]string{"result": "failure"})
	s.logger.Error(msg, "url", s.source.URL(), "error", err)

	err = fmt.Errorf("%w: %w", ErrKeySourceUnavailable, err)
	s.lastFailure.Store(&fetchFailure{err: err})
	return err
}
