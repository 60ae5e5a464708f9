package validator

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"

	"github.com/entragate/go-jwt-gate/jwks"
)

// Option is how options for the Validator are set up.
// Options return errors to enable validation during construction.
type Option func(*Validator) error

// WithKeyResolver sets where signing keys come from. This is a required
// option; pass a *jwks.Store.
func WithKeyResolver(keys KeyResolver) Option {
	return func(v *Validator) error {
		if keys == nil {
			return errors.New("key resolver cannot be nil")
		}
		v.keys = keys
		return nil
	}
}

// WithAlgorithms sets the signing algorithm allow-list. Default: RS256.
//
// Only asymmetric algorithms are accepted: RS256, RS384, RS512, PS256,
// PS384, PS512, ES256, ES384, ES512 and EdDSA. HMAC algorithms and "none"
// are configuration errors.
func WithAlgorithms(algorithms ...jwa.SignatureAlgorithm) Option {
	return func(v *Validator) error {
		if len(algorithms) == 0 {
			return errors.New("algorithms cannot be empty")
		}
		for _, alg := range algorithms {
			if _, ok := jwks.KeyTypeFor(alg); !ok {
				return fmt.Errorf("unsupported signature algorithm: %s", alg)
			}
		}
		v.algorithms = slices.Clone(algorithms)
		return nil
	}
}

// WithIssuer sets the expected issuer claim (iss) for token validation.
// This is a required option.
//
// The issuer must match the iss claim exactly; no trailing slash
// normalization is applied.
func WithIssuer(issuerURL string) Option {
	return func(v *Validator) error {
		if err := validateIssuer(issuerURL); err != nil {
			return err
		}
		v.policy.Issuers = append([]string{issuerURL}, v.policy.Issuers...)
		return nil
	}
}

// WithAdditionalIssuers accepts more iss values besides the one given to
// WithIssuer. Entra ID tenants issue v1.0 tokens from
// https://sts.windows.net/{tenant}/ alongside the v2.0 issuer.
func WithAdditionalIssuers(issuerURLs ...string) Option {
	return func(v *Validator) error {
		for _, issuerURL := range issuerURLs {
			if err := validateIssuer(issuerURL); err != nil {
				return err
			}
		}
		v.policy.Issuers = append(v.policy.Issuers, issuerURLs...)
		return nil
	}
}

func validateIssuer(issuerURL string) error {
	if issuerURL == "" {
		return errors.New("issuer cannot be empty")
	}
	u, err := url.Parse(issuerURL)
	if err != nil {
		return fmt.Errorf("invalid issuer URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid issuer URL %q: must be absolute", issuerURL)
	}
	return nil
}

// WithAudience sets the expected audience claim (aud) for token validation.
// This is a required option.
func WithAudience(audience string) Option {
	return func(v *Validator) error {
		if audience == "" {
			return errors.New("audience cannot be empty")
		}
		v.policy.Audience = audience
		return nil
	}
}

// WithAllowedClockSkew sets the allowed clock skew for exp and nbf.
// Default: 60 seconds.
func WithAllowedClockSkew(skew time.Duration) Option {
	return func(v *Validator) error {
		if skew < 0 {
			return errors.New("clock skew cannot be negative")
		}
		v.policy.ClockSkew = skew
		return nil
	}
}

// WithRequiredClaims lists claims that must be present and non-empty, such
// as "sub" or the Entra ID "tid".
func WithRequiredClaims(names ...string) Option {
	return func(v *Validator) error {
		for i, name := range names {
			if name == "" {
				return fmt.Errorf("required claim at index %d cannot be empty", i)
			}
		}
		v.policy.RequiredClaims = append(v.policy.RequiredClaims, names...)
		return nil
	}
}

// WithCustomClaims sets a function that returns a CustomClaims object
// for unmarshalling and validation.
//
// The function is called for each token validation to create a new instance
// of custom claims. The Validate method on the custom claims will be called
// after standard claim validation.
func WithCustomClaims(f func() CustomClaims) Option {
	return func(v *Validator) error {
		if f == nil {
			return errors.New("custom claims function cannot be nil")
		}
		v.customClaims = f
		return nil
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) error {
		if now == nil {
			return errors.New("clock cannot be nil")
		}
		v.now = now
		return nil
	}
}
