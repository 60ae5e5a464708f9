// Package config loads the gate server configuration from a YAML file and the
// environment, then validates it.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	playvalidator "github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/entragate/go-jwt-gate/jwks"
	"github.com/entragate/go-jwt-gate/validator"
)

// Config is the complete server configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Auth   AuthConfig   `yaml:"auth"`
	JWKS   JWKSConfig   `yaml:"jwks"`
	Redis  *RedisConfig `yaml:"redis,omitempty" validate:"omitempty"`
	Log    LogConfig    `yaml:"log"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr" validate:"required,hostname_port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" validate:"gt=0"`
	// CORSOrigins lists the browser origins allowed to call the server.
	// "*" allows any origin.
	CORSOrigins []string `yaml:"cors_origins" validate:"dive,eq=*|http_url"`
}

// AuthConfig describes which tokens are accepted.
type AuthConfig struct {
	Enabled           bool          `yaml:"enabled"`
	TenantID          string        `yaml:"tenant_id"`
	ClientID          string        `yaml:"client_id"`
	Issuer            string        `yaml:"issuer" validate:"required_if=Enabled true,omitempty,url"`
	AdditionalIssuers []string      `yaml:"additional_issuers" validate:"dive,url"`
	Audience          string        `yaml:"audience" validate:"required_if=Enabled true"`
	Algorithms        []string      `yaml:"algorithms" validate:"min=1,dive,oneof=RS256 RS384 RS512 PS256 PS384 PS512 ES256 ES384 ES512 EdDSA"`
	ClockSkew         time.Duration `yaml:"clock_skew" validate:"min=0"`
	RequiredClaims    []string      `yaml:"required_claims" validate:"dive,required"`
}

// JWKSConfig tunes the signing key store. An empty URL means the key
// document location is discovered from the issuer.
type JWKSConfig struct {
	URL                string        `yaml:"url" validate:"omitempty,url"`
	RefreshInterval    time.Duration `yaml:"refresh_interval" validate:"gt=0"`
	MaxStaleness       time.Duration `yaml:"max_staleness" validate:"gtefield=RefreshInterval"`
	FetchTimeout       time.Duration `yaml:"fetch_timeout" validate:"gt=0"`
	MinRefreshInterval time.Duration `yaml:"min_refresh_interval" validate:"min=0"`
}

// RedisConfig enables the shared key document mirror.
type RedisConfig struct {
	Addr      string        `yaml:"addr" validate:"required,hostname_port"`
	Password  string        `yaml:"password"`
	DB        int           `yaml:"db" validate:"min=0"`
	MirrorTTL time.Duration `yaml:"mirror_ttl" validate:"gt=0"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=trace debug info warn warning error"`
	Format string `yaml:"format" validate:"oneof=json text"`
}

// Default returns the configuration used for anything a file or the
// environment leaves unset. Authentication is enabled by default.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            "127.0.0.1:10000",
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"*"},
		},
		Auth: AuthConfig{
			Enabled:    true,
			Algorithms: []string{"RS256"},
			ClockSkew:  validator.DefaultClockSkew,
		},
		JWKS: JWKSConfig{
			RefreshInterval:    jwks.DefaultRefreshInterval,
			MaxStaleness:       jwks.DefaultMaxStaleness,
			FetchTimeout:       jwks.DefaultFetchTimeout,
			MinRefreshInterval: jwks.DefaultMinRefreshInterval,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads the YAML file at path (skipped when path is empty), overlays
// the process environment, derives the Entra ID endpoints and validates the
// result.
func Load(path string) (*Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := decode(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	cfg.derive()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode unmarshals data over cfg, rejecting unknown keys.
func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// derive fills issuer, audience and JWKS URL from the tenant and client ids
// when they are not set explicitly.
func (c *Config) derive() {
	if c.Auth.TenantID == "" {
		return
	}

	entra := Entra(c.Auth.TenantID, c.Auth.ClientID)
	if c.Auth.Issuer == "" {
		c.Auth.Issuer = entra.Issuer
	}
	if len(c.Auth.AdditionalIssuers) == 0 && c.Auth.Issuer == entra.Issuer {
		c.Auth.AdditionalIssuers = []string{entra.V1Issuer}
	}
	if c.Auth.Audience == "" && c.Auth.ClientID != "" {
		c.Auth.Audience = entra.Audience
	}
	if c.JWKS.URL == "" {
		c.JWKS.URL = entra.JWKSURL
	}
}

var validate = playvalidator.New(playvalidator.WithRequiredStructEnabled())

// Validate checks the configuration. Misconfiguration is reported all at
// once.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
