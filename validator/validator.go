package validator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"

	"github.com/entragate/go-jwt-gate/jwks"
)

// DefaultClockSkew is the exp/nbf tolerance used when none is configured.
const DefaultClockSkew = 60 * time.Second

// KeyResolver resolves a key id to a verification key. *jwks.Store
// implements it.
type KeyResolver interface {
	Resolve(ctx context.Context, kid string) (*jwks.VerificationKey, error)
}

// Validator runs the token verification stages in order: parse, algorithm
// check, key resolution, signature verification, claims validation.
type Validator struct {
	keys         KeyResolver              // Required.
	algorithms   []jwa.SignatureAlgorithm // Defaults to RS256.
	policy       ClaimsPolicy             // Issuer and audience required.
	customClaims func() CustomClaims      // Optional.
	now          func() time.Time         // Optional.
}

// New sets up a new Validator.
//
// Example:
//
//	v, err := validator.New(
//	    validator.WithKeyResolver(store),
//	    validator.WithIssuer("https://login.microsoftonline.com/<tenant>/v2.0"),
//	    validator.WithAudience("api://<client-id>"),
//	)
func New(opts ...Option) (*Validator, error) {
	v := &Validator{
		algorithms: DefaultAlgorithms,
		policy:     ClaimsPolicy{ClockSkew: DefaultClockSkew},
		now:        time.Now,
	}

	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if err := v.validate(); err != nil {
		return nil, err
	}

	return v, nil
}

func (v *Validator) validate() error {
	if v.keys == nil {
		return errors.New("key resolver is required (use WithKeyResolver)")
	}
	if len(v.policy.Issuers) == 0 {
		return errors.New("issuer is required (use WithIssuer)")
	}
	if v.policy.Audience == "" {
		return errors.New("audience is required (use WithAudience)")
	}
	return nil
}

// Policy returns the claims policy the Validator enforces.
func (v *Validator) Policy() ClaimsPolicy { return v.policy }

// Algorithms returns the signing algorithm allow-list.
func (v *Validator) Algorithms() []jwa.SignatureAlgorithm { return v.algorithms }

// ValidateToken verifies raw and returns its claims. Key resolution is the
// only step that may block. The returned error wraps the sentinel of the
// stage that failed.
//
// An expired token fails with ErrTokenExpired whatever its signature.
func (v *Validator) ValidateToken(ctx context.Context, raw string) (*TrustedClaims, error) {
	token, err := Parse(raw)
	if err != nil {
		return nil, err
	}

	if err := checkAlgorithm(token.header.Algorithm, v.algorithms); err != nil {
		return nil, err
	}

	// Expired tokens are rejected before key resolution so they never
	// trigger a key set refresh.
	now := v.now()
	claims := newTrustedClaims(token.claims)
	if err := checkExpiry(claims, v.policy.ClockSkew, now); err != nil {
		return nil, err
	}

	key, err := v.keys.Resolve(ctx, token.header.KeyID)
	if err != nil {
		return nil, err
	}

	if err := VerifySignature(token, key, v.algorithms); err != nil {
		return nil, err
	}

	if err := ValidateClaims(claims, v.policy, now); err != nil {
		return nil, err
	}

	if v.customClaims != nil {
		custom := v.customClaims()
		if custom != nil {
			if err := json.Unmarshal(token.payload, custom); err != nil {
				return nil, fmt.Errorf("%w: custom claims: %w", ErrTokenMalformed, err)
			}
			if err := custom.Validate(ctx); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalidClaims, err)
			}
			claims.Custom = custom
		}
	}

	return claims, nil
}
