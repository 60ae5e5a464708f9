package jwks

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Defaults applied by NewStore.
const (
	DefaultRefreshInterval    = 15 * time.Minute
	DefaultMaxStaleness       = 6 * time.Hour
	DefaultFetchTimeout       = 10 * time.Second
	DefaultMinRefreshInterval = 5 * time.Second
)

// Option is how options for the Store are set up.
type Option func(*storeConfig) error

type storeConfig struct {
	source             Source
	url                string
	httpClient         *http.Client
	refreshInterval    time.Duration
	maxStaleness       time.Duration
	fetchTimeout       time.Duration
	minRefreshInterval time.Duration
	now                func() time.Time
	logger             Logger
	metrics            Metrics
}

// WithURL sets the JWKS URL fetched over HTTP. Either WithURL or WithSource is
// required.
func WithURL(jwksURL string) Option {
	return func(c *storeConfig) error {
		if jwksURL == "" {
			return errors.New("JWKS URL cannot be empty")
		}
		c.url = jwksURL
		return nil
	}
}

// WithHTTPClient sets the HTTP client used with WithURL. The client's own
// timeout still applies on top of the fetch timeout.
func WithHTTPClient(client *http.Client) Option {
	return func(c *storeConfig) error {
		if client == nil {
			return errors.New("HTTP client cannot be nil")
		}
		c.httpClient = client
		return nil
	}
}

// WithSource sets the Source the Store fetches key documents from. Use it to
// plug in a RedisSource or a fake in tests.
func WithSource(source Source) Option {
	return func(c *storeConfig) error {
		if source == nil {
			return errors.New("source cannot be nil")
		}
		c.source = source
		return nil
	}
}

// WithRefreshInterval sets how long a fetched key set is considered fresh.
// Default: 15 minutes. A Cache-Control max-age from the provider may extend
// it up to the maximum staleness.
func WithRefreshInterval(interval time.Duration) Option {
	return func(c *storeConfig) error {
		if interval <= 0 {
			return errors.New("refresh interval must be positive")
		}
		c.refreshInterval = interval
		return nil
	}
}

// WithMaxStaleness sets the ceiling on the age of a key set served while the
// key source is unavailable. Default: 6 hours.
func WithMaxStaleness(ceiling time.Duration) Option {
	return func(c *storeConfig) error {
		if ceiling <= 0 {
			return errors.New("max staleness must be positive")
		}
		c.maxStaleness = ceiling
		return nil
	}
}

// WithFetchTimeout bounds a single key document fetch. Default: 10 seconds.
func WithFetchTimeout(timeout time.Duration) Option {
	return func(c *storeConfig) error {
		if timeout <= 0 {
			return errors.New("fetch timeout must be positive")
		}
		c.fetchTimeout = timeout
		return nil
	}
}

// WithMinRefreshInterval sets the cooldown between refreshes triggered by an
// unknown key id on a fresh set. Zero disables the cooldown. Default: 5 seconds.
func WithMinRefreshInterval(interval time.Duration) Option {
	return func(c *storeConfig) error {
		if interval < 0 {
			return errors.New("min refresh interval cannot be negative")
		}
		c.minRefreshInterval = interval
		return nil
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(c *storeConfig) error {
		if now == nil {
			return errors.New("clock cannot be nil")
		}
		c.now = now
		return nil
	}
}

// WithLogger sets the logger for refresh events.
func WithLogger(logger Logger) Option {
	return func(c *storeConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		c.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics sink for refresh outcomes.
func WithMetrics(metrics Metrics) Option {
	return func(c *storeConfig) error {
		if metrics == nil {
			return errors.New("metrics cannot be nil")
		}
		c.metrics = metrics
		return nil
	}
}

func (c *storeConfig) validate() error {
	if c.source == nil && c.url == "" {
		return errors.New("key source is required (use WithURL or WithSource)")
	}
	if c.source != nil && c.url != "" {
		return errors.New("use either WithURL or WithSource, not both")
	}
	if c.maxStaleness < c.refreshInterval {
		return fmt.Errorf("max staleness (%s) cannot be shorter than the refresh interval (%s)", c.maxStaleness, c.refreshInterval)
	}
	return nil
}
