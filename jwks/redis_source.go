package jwks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultMirrorTTL is how long a mirrored key document stays in Redis.
const DefaultMirrorTTL = 5 * time.Minute

// RedisClient is the subset of the go-redis client used by RedisSource.
// *redis.Client, *redis.ClusterClient and redis.UniversalClient satisfy it.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

var _ CachingSource = (*RedisSource)(nil)

// RedisSource mirrors the key document of another Source in Redis so that
// replicas of a service share one fetch per TTL instead of each hitting the
// identity provider. Redis failures never fail a fetch; they fall through to
// the wrapped source.
type RedisSource struct {
	client RedisClient
	next   Source
	key    string
	ttl    time.Duration
	logger Logger
	now    func() time.Time
}

type mirroredDocument struct {
	Body     []byte    `json:"body"`
	ETag     string    `json:"etag,omitempty"`
	StoredAt time.Time `json:"stored_at"`
}

// RedisSourceOption configures a RedisSource.
type RedisSourceOption func(*RedisSource) error

// WithMirrorTTL sets the Redis expiration of mirrored documents.
func WithMirrorTTL(ttl time.Duration) RedisSourceOption {
	return func(s *RedisSource) error {
		if ttl <= 0 {
			return errors.New("mirror TTL must be positive")
		}
		s.ttl = ttl
		return nil
	}
}

// WithMirrorLogger sets the logger used to report Redis failures.
func WithMirrorLogger(logger Logger) RedisSourceOption {
	return func(s *RedisSource) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		s.logger = logger
		return nil
	}
}

// NewRedisSource wraps next with a Redis mirror.
func NewRedisSource(client RedisClient, next Source, opts ...RedisSourceOption) (*RedisSource, error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil")
	}
	if next == nil {
		return nil, errors.New("wrapped source cannot be nil")
	}

	s := &RedisSource{
		client: client,
		next:   next,
		key:    "jwtgate:jwks:" + next.URL(),
		ttl:    DefaultMirrorTTL,
		logger: noopLogger{},
		now:    time.Now,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	return s, nil
}

// URL returns the URL of the wrapped source.
func (s *RedisSource) URL() string { return s.next.URL() }

// Fetch serves the mirrored document when present and different from the
// one identified by etag. Otherwise it fetches from the wrapped source and
// mirrors the result. Mirrored documents carry the time they were fetched
// from the provider in FetchedAt.
func (s *RedisSource) Fetch(ctx context.Context, etag string) (*Document, error) {
	if mirrored, ok := s.read(ctx); ok && (etag == "" || mirrored.ETag != etag) {
		return &Document{Body: mirrored.Body, ETag: mirrored.ETag, FetchedAt: mirrored.StoredAt}, nil
	}
	return s.FetchUpstream(ctx, etag)
}

// FetchUpstream fetches from the wrapped source, ignoring the mirror, and
// rewrites the mirror with a changed document.
func (s *RedisSource) FetchUpstream(ctx context.Context, etag string) (*Document, error) {
	doc, err := s.next.Fetch(ctx, etag)
	if err != nil {
		return nil, err
	}
	if !doc.NotModified {
		s.write(ctx, doc)
	}
	return doc, nil
}

func (s *RedisSource) read(ctx context.Context) (*mirroredDocument, bool) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("redis mirror read failed", "key", s.key, "error", err)
		}
		return nil, false
	}

	var mirrored mirroredDocument
	if err := json.Unmarshal(raw, &mirrored); err != nil || len(mirrored.Body) == 0 {
		s.logger.Warn("ignoring undecodable mirrored key document", "key", s.key)
		return nil, false
	}
	return &mirrored, true
}

func (s *RedisSource) write(ctx context.Context, doc *Document) {
	payload, err := json.Marshal(mirroredDocument{Body: doc.Body, ETag: doc.ETag, StoredAt: s.now().UTC()})
	if err != nil {
		return
	}
	if err := s.client.Set(ctx, s.key, payload, s.ttl).Err(); err != nil {
		s.logger.Warn("redis mirror write failed", "key", s.key, "error", err)
	}
}
