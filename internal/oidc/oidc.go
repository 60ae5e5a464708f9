package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const wellKnownPath = "/.well-known/openid-configuration"

// maxDocumentSize bounds the discovery document read from the provider.
const maxDocumentSize = 1 << 20

// Configuration holds the parts of the OpenID provider metadata the gate
// uses.
type Configuration struct {
	Issuer                           string   `json:"issuer"`
	JWKSURI                          string   `json:"jwks_uri"`
	TokenEndpoint                    string   `json:"token_endpoint,omitempty"`
	IDTokenSigningAlgValuesSupported []string `json:"id_token_signing_alg_values_supported,omitempty"`
}

// DiscoveryURL returns the location of the OpenID configuration document of
// issuer.
func DiscoveryURL(issuer string) string {
	return strings.TrimSuffix(issuer, "/") + wellKnownPath
}

// Discover fetches the OpenID configuration of issuer. The document must
// name a jwks_uri and declare exactly the issuer it was fetched for.
func Discover(ctx context.Context, client *http.Client, issuer string) (*Configuration, error) {
	if client == nil {
		client = http.DefaultClient
	}

	endpoint := DiscoveryURL(issuer)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("could not build discovery request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not fetch openid configuration from %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d fetching openid configuration from %s", resp.StatusCode, endpoint)
	}

	var cfg Configuration
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxDocumentSize)).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode openid configuration: %w", err)
	}

	if cfg.JWKSURI == "" {
		return nil, fmt.Errorf("openid configuration is missing jwks_uri")
	}
	if cfg.Issuer != issuer {
		return nil, fmt.Errorf("issuer mismatch: expected %q, discovery document declares %q", issuer, cfg.Issuer)
	}

	return &cfg, nil
}
