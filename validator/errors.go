package validator

import (
	"errors"
	"fmt"
)

// Sentinel errors for each stage of token validation. Errors returned by
// ValidateToken wrap exactly one of these, or one of the jwks errors when the
// signing key could not be resolved.
var (
	// ErrTokenMalformed is returned when the token is not a structurally valid
	// JWS compact serialization with a JSON claims payload.
	ErrTokenMalformed = errors.New("token is malformed")

	// ErrExcessiveTokenDots is returned when a token contains more dots than
	// any compact serialization uses. It wraps ErrTokenMalformed.
	ErrExcessiveTokenDots = fmt.Errorf("%w: token contains excessive dots", ErrTokenMalformed)

	// ErrAlgorithmNotAllowed is returned when the token's alg header is not in
	// the allow-list.
	ErrAlgorithmNotAllowed = errors.New("signing algorithm not allowed")

	// ErrInvalidSignature is returned when the signature does not verify
	// against the resolved key.
	ErrInvalidSignature = errors.New("invalid token signature")

	// ErrTokenExpired is returned when exp is missing or in the past.
	ErrTokenExpired = errors.New("token is expired")

	// ErrTokenNotYetValid is returned when nbf is in the future.
	ErrTokenNotYetValid = errors.New("token is not valid yet")

	// ErrInvalidIssuer is returned when iss matches no expected issuer.
	ErrInvalidIssuer = errors.New("invalid issuer")

	// ErrInvalidAudience is returned when aud does not contain the expected
	// audience.
	ErrInvalidAudience = errors.New("invalid audience")

	// ErrInvalidClaims is returned when custom claims fail their own
	// validation.
	ErrInvalidClaims = errors.New("custom claims not validated")

	// ErrMissingClaim is matched by every MissingClaimError.
	ErrMissingClaim = errors.New("required claim missing")
)

// MissingClaimError names a required claim that is absent or empty.
type MissingClaimError struct {
	Name string
}

func (e *MissingClaimError) Error() string {
	return fmt.Sprintf("required claim %q is missing", e.Name)
}

// Is reports whether target is ErrMissingClaim.
func (e *MissingClaimError) Is(target error) bool {
	return target == ErrMissingClaim
}
