package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	jwtgate "github.com/entragate/go-jwt-gate"
	"github.com/entragate/go-jwt-gate/config"
	"github.com/entragate/go-jwt-gate/internal/oidc"
	"github.com/entragate/go-jwt-gate/jwks"
	"github.com/entragate/go-jwt-gate/validator"
)

// excludedPrefixes are served without a token, together with everything
// below them.
var excludedPrefixes = []string{"/health", "/metrics"}

// newGate wires the key store, the validator and the gate from cfg. With
// authentication enabled it warms the key cache; a failed warm-up is logged
// and retried on the first request.
func newGate(ctx context.Context, cfg *config.Config, log logrus.FieldLogger, metrics *jwtgate.PrometheusMetrics) (*jwtgate.Gate, error) {
	logger := jwtgate.NewLogrusLogger(log)

	opts := []jwtgate.Option{
		jwtgate.WithExclusionPrefixes(excludedPrefixes),
		jwtgate.WithLogger(logger),
		jwtgate.WithMetrics(metrics),
		jwtgate.WithTracer(jwtgate.NewOpenTelemetryTracer(otel.Tracer("jwtgate"))),
	}

	if !cfg.Auth.Enabled {
		return jwtgate.New(append(opts, jwtgate.WithAuthDisabled(true))...)
	}

	store, err := newKeyStore(ctx, cfg, logger, metrics)
	if err != nil {
		return nil, err
	}
	if err := store.Prefetch(ctx); err != nil {
		log.WithError(err).Warn("Could not prefetch signing keys")
	}

	v, err := newValidator(cfg.Auth, store)
	if err != nil {
		return nil, err
	}

	return jwtgate.New(append(opts, jwtgate.WithValidator(v))...)
}

func newKeyStore(ctx context.Context, cfg *config.Config, logger jwks.Logger, metrics jwks.Metrics) (*jwks.Store, error) {
	client := &http.Client{Timeout: cfg.JWKS.FetchTimeout}

	jwksURL := cfg.JWKS.URL
	if jwksURL == "" {
		discovered, err := oidc.Discover(ctx, client, cfg.Auth.Issuer)
		if err != nil {
			return nil, fmt.Errorf("failed to discover signing keys: %w", err)
		}
		jwksURL = discovered.JWKSURI
	}

	httpSource, err := jwks.NewHTTPSource(jwksURL, client)
	if err != nil {
		return nil, err
	}

	var source jwks.Source = httpSource

	if cfg.Redis != nil {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		source, err = jwks.NewRedisSource(rdb, source,
			jwks.WithMirrorTTL(cfg.Redis.MirrorTTL),
			jwks.WithMirrorLogger(logger),
		)
		if err != nil {
			return nil, err
		}
	}

	return jwks.NewStore(
		jwks.WithSource(source),
		jwks.WithRefreshInterval(cfg.JWKS.RefreshInterval),
		jwks.WithMaxStaleness(cfg.JWKS.MaxStaleness),
		jwks.WithFetchTimeout(cfg.JWKS.FetchTimeout),
		jwks.WithMinRefreshInterval(cfg.JWKS.MinRefreshInterval),
		jwks.WithLogger(logger),
		jwks.WithMetrics(metrics),
	)
}

func newValidator(cfg config.AuthConfig, keys validator.KeyResolver) (*validator.Validator, error) {
	algorithms := make([]jwa.SignatureAlgorithm, 0, len(cfg.Algorithms))
	for _, name := range cfg.Algorithms {
		algorithms = append(algorithms, jwa.SignatureAlgorithm(name))
	}

	return validator.New(
		validator.WithKeyResolver(keys),
		validator.WithAlgorithms(algorithms...),
		validator.WithIssuer(cfg.Issuer),
		validator.WithAdditionalIssuers(cfg.AdditionalIssuers...),
		validator.WithAudience(cfg.Audience),
		validator.WithAllowedClockSkew(cfg.ClockSkew),
		validator.WithRequiredClaims(cfg.RequiredClaims...),
	)
}
