package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/entragate/go-jwt-gate/jwks"
)

// Environment variables read by Load. They take precedence over the file.
const (
	EnvTenantID = "AZURE_TENANT_ID"
	EnvClientID = "AZURE_CLIENT_ID"
	EnvAudience = "TOKEN_AUDIENCE"
	EnvIssuer   = "TOKEN_ISSUER"
	EnvAuth     = "ENABLE_AUTH"
	EnvJWKSURL  = "JWKS_URL"
	EnvRedis    = "REDIS_ADDR"
	EnvLogLevel = "LOG_LEVEL"
	EnvPort     = "PORT"
	EnvCORS     = "CORS_ORIGINS"
)

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}

	str(EnvTenantID, &c.Auth.TenantID)
	str(EnvClientID, &c.Auth.ClientID)
	str(EnvAudience, &c.Auth.Audience)
	str(EnvIssuer, &c.Auth.Issuer)
	str(EnvJWKSURL, &c.JWKS.URL)
	str(EnvLogLevel, &c.Log.Level)
	c.Log.Level = strings.ToLower(c.Log.Level)

	if v, ok := lookup(EnvAuth); ok && v != "" {
		enabled, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvAuth, v, err)
		}
		c.Auth.Enabled = enabled
	}

	if v, ok := lookup(EnvRedis); ok && v != "" {
		if c.Redis == nil {
			c.Redis = &RedisConfig{MirrorTTL: jwks.DefaultMirrorTTL}
		}
		c.Redis.Addr = v
	}

	if v, ok := lookup(EnvCORS); ok && v != "" {
		c.Server.CORSOrigins = nil
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				c.Server.CORSOrigins = append(c.Server.CORSOrigins, origin)
			}
		}
	}

	if v, ok := lookup(EnvPort); ok && v != "" {
		host, _, err := net.SplitHostPort(c.Server.Addr)
		if err != nil {
			host = ""
		}
		c.Server.Addr = net.JoinHostPort(host, v)
	}

	return nil
}
