package validator

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwt"
)

// TrustedClaims holds the claims of a token that passed every check. The
// well-known claims have fixed fields; everything else, such as the Entra ID
// scp, roles, tid and oid claims, is in Extra.
//
// TrustedClaims is attached to one request and must not be modified.
type TrustedClaims struct {
	Issuer    string
	Subject   string
	Audience  []string
	Expiry    time.Time
	NotBefore time.Time
	IssuedAt  time.Time
	ID        string

	// Extra holds the remaining claims as decoded from JSON.
	Extra map[string]any

	// Custom is set when the Validator was built with WithCustomClaims.
	Custom CustomClaims
}

// CustomClaims defines any custom data / claims wanted.
// The Validator will call the Validate function which
// is where custom validation logic can be defined.
type CustomClaims interface {
	Validate(context.Context) error
}

// ClaimsPolicy is what ValidateClaims checks the claims against.
type ClaimsPolicy struct {
	// Issuers lists the accepted iss values. iss must equal one exactly.
	Issuers []string

	// Audience must be one of the token's aud values.
	Audience string

	// ClockSkew is the tolerance applied to exp and nbf.
	ClockSkew time.Duration

	// RequiredClaims must be present and non-empty.
	RequiredClaims []string
}

func newTrustedClaims(token jwt.Token) *TrustedClaims {
	extra := token.PrivateClaims()
	if extra == nil {
		extra = map[string]any{}
	}

	return &TrustedClaims{
		Issuer:    token.Issuer(),
		Subject:   token.Subject(),
		Audience:  token.Audience(),
		Expiry:    token.Expiration(),
		NotBefore: token.NotBefore(),
		IssuedAt:  token.IssuedAt(),
		ID:        token.JwtID(),
		Extra:     extra,
	}
}

// Claim returns the named claim. Well-known claims come from the fixed
// fields; unset ones are reported as absent.
func (c *TrustedClaims) Claim(name string) (any, bool) {
	var value any
	switch name {
	case jwt.IssuerKey:
		value = c.Issuer
	case jwt.SubjectKey:
		value = c.Subject
	case jwt.AudienceKey:
		value = c.Audience
	case jwt.ExpirationKey:
		value = c.Expiry
	case jwt.NotBeforeKey:
		value = c.NotBefore
	case jwt.IssuedAtKey:
		value = c.IssuedAt
	case jwt.JwtIDKey:
		value = c.ID
	default:
		v, ok := c.Extra[name]
		return v, ok
	}

	if isEmpty(value) {
		return nil, false
	}
	return value, true
}

// Scopes returns the delegated scopes of the token, read from the Entra ID
// "scp" claim or the OAuth "scope" claim.
func (c *TrustedClaims) Scopes() []string {
	for _, name := range []string{"scp", "scope"} {
		switch v := c.Extra[name].(type) {
		case string:
			return strings.Fields(v)
		case []any:
			return stringsOf(v)
		}
	}
	return nil
}

// HasScope reports whether the token carries the scope.
func (c *TrustedClaims) HasScope(scope string) bool {
	return slices.Contains(c.Scopes(), scope)
}

// Roles returns the application roles in the "roles" claim.
func (c *TrustedClaims) Roles() []string {
	if v, ok := c.Extra["roles"].([]any); ok {
		return stringsOf(v)
	}
	return nil
}

// HasRole reports whether the token carries the role.
func (c *TrustedClaims) HasRole(role string) bool {
	return slices.Contains(c.Roles(), role)
}

func stringsOf(values []any) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func isEmpty(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []string:
		return len(v) == 0
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	case time.Time:
		return v.IsZero()
	default:
		return false
	}
}

// ValidateClaims checks claims against policy at time now. The checks run in
// a fixed order and the first failure is returned: exp, nbf, iss, aud, then
// each required claim.
func ValidateClaims(claims *TrustedClaims, policy ClaimsPolicy, now time.Time) error {
	if err := checkExpiry(claims, policy.ClockSkew, now); err != nil {
		return err
	}

	if !claims.NotBefore.IsZero() && now.Add(policy.ClockSkew).Before(claims.NotBefore) {
		return fmt.Errorf("%w: valid from %s", ErrTokenNotYetValid, claims.NotBefore.UTC().Format(time.RFC3339))
	}

	if !slices.Contains(policy.Issuers, claims.Issuer) {
		return fmt.Errorf("%w: %q", ErrInvalidIssuer, claims.Issuer)
	}

	if !slices.Contains(claims.Audience, policy.Audience) {
		return fmt.Errorf("%w: %q not in %q", ErrInvalidAudience, policy.Audience, claims.Audience)
	}

	for _, name := range policy.RequiredClaims {
		if v, ok := claims.Claim(name); !ok || isEmpty(v) {
			return &MissingClaimError{Name: name}
		}
	}

	return nil
}

func checkExpiry(claims *TrustedClaims, skew time.Duration, now time.Time) error {
	if claims.Expiry.IsZero() {
		return fmt.Errorf("%w: exp claim is missing", ErrTokenExpired)
	}
	if now.Add(-skew).After(claims.Expiry) {
		return fmt.Errorf("%w: expired at %s", ErrTokenExpired, claims.Expiry.UTC().Format(time.RFC3339))
	}
	return nil
}
