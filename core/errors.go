package core

import (
	"errors"
	"net/http"

	"github.com/entragate/go-jwt-gate/jwks"
	"github.com/entragate/go-jwt-gate/validator"
)

// Sentinel errors for JWT validation.
var (
	// ErrJWTMissing is returned when the JWT is missing from the request.
	ErrJWTMissing = errors.New("jwt missing")

	// ErrMalformedAuthorization is returned by token extractors when an
	// Authorization header is present but not of the form "Bearer <token>".
	ErrMalformedAuthorization = errors.New("authorization header format must be Bearer {token}")

	// ErrJWTInvalid is returned when the JWT is invalid.
	// This is typically wrapped with more specific validation errors.
	ErrJWTInvalid = errors.New("jwt invalid")

	// ErrClaimsNotFound is returned when claims cannot be retrieved from context.
	ErrClaimsNotFound = errors.New("claims not found in context")
)

// ValidationError wraps JWT validation errors with additional context.
// It provides structured error information that can be used for
// logging, metrics, and returning appropriate error responses.
type ValidationError struct {
	// Code is a machine-readable error code (e.g., "token_expired", "invalid_signature")
	Code string

	// Message is a human-readable error message
	Message string

	// Details contains the underlying error
	Details error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Details != nil {
		return e.Message + ": " + e.Details.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ValidationError) Unwrap() error {
	return e.Details
}

// Is allows the error to be compared with ErrJWTInvalid.
func (e *ValidationError) Is(target error) bool {
	return target == ErrJWTInvalid
}

// Error codes, one per failure kind.
const (
	ErrorCodeTokenMissing           = "token_missing"
	ErrorCodeAuthorizationMalformed = "authorization_malformed"
	ErrorCodeTokenMalformed         = "token_malformed"
	ErrorCodeJWKSKeyNotFound        = "jwks_key_not_found"
	ErrorCodeJWKSFetchFailed        = "jwks_fetch_failed"
	ErrorCodeJWKSExpired            = "jwks_expired"
	ErrorCodeInvalidAlgorithm       = "invalid_algorithm"
	ErrorCodeInvalidSignature       = "invalid_signature"
	ErrorCodeTokenExpired           = "token_expired"
	ErrorCodeTokenNotYetValid       = "token_not_yet_valid"
	ErrorCodeInvalidIssuer          = "invalid_issuer"
	ErrorCodeInvalidAudience        = "invalid_audience"
	ErrorCodeMissingClaim           = "missing_claim"
	ErrorCodeInvalidClaims          = "invalid_claims"
	ErrorCodeTokenInvalid           = "token_invalid"
	ErrorCodeValidatorNotSet        = "validator_not_set"
	ErrorCodeClaimsNotFound         = "claims_not_found"
)

// NewValidationError creates a new ValidationError with the given code and message.
func NewValidationError(code, message string, details error) *ValidationError {
	return &ValidationError{
		Code:    code,
		Message: message,
		Details: details,
	}
}

var classes = []struct {
	target  error
	code    string
	message string
}{
	{ErrJWTMissing, ErrorCodeTokenMissing, "no bearer token provided"},
	{ErrMalformedAuthorization, ErrorCodeAuthorizationMalformed, "authorization header is malformed"},
	{validator.ErrTokenMalformed, ErrorCodeTokenMalformed, "token is malformed"},
	{jwks.ErrUnknownKey, ErrorCodeJWKSKeyNotFound, "signing key not found"},
	{jwks.ErrKeySetExpired, ErrorCodeJWKSExpired, "signing keys expired"},
	{jwks.ErrKeySourceUnavailable, ErrorCodeJWKSFetchFailed, "signing keys unavailable"},
	{validator.ErrAlgorithmNotAllowed, ErrorCodeInvalidAlgorithm, "signing algorithm not allowed"},
	{validator.ErrInvalidSignature, ErrorCodeInvalidSignature, "signature is invalid"},
	{validator.ErrTokenExpired, ErrorCodeTokenExpired, "token is expired"},
	{validator.ErrTokenNotYetValid, ErrorCodeTokenNotYetValid, "token is not valid yet"},
	{validator.ErrInvalidIssuer, ErrorCodeInvalidIssuer, "issuer is not trusted"},
	{validator.ErrInvalidAudience, ErrorCodeInvalidAudience, "audience is not accepted"},
	{validator.ErrMissingClaim, ErrorCodeMissingClaim, "required claim is missing"},
	{validator.ErrInvalidClaims, ErrorCodeInvalidClaims, "claims are invalid"},
}

// Classify maps any error from token extraction or validation to a
// *ValidationError with its code. A *ValidationError is returned unchanged;
// unrecognized errors get ErrorCodeTokenInvalid.
func Classify(err error) *ValidationError {
	if err == nil {
		return nil
	}

	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr
	}

	for _, class := range classes {
		if errors.Is(err, class.target) {
			return NewValidationError(class.code, class.message, err)
		}
	}
	return NewValidationError(ErrorCodeTokenInvalid, "token is invalid", err)
}

// Decision is the access decision for one request.
type Decision struct {
	// Allowed is true when the request may proceed.
	Allowed bool

	// Claims holds the trusted claims of an allowed request. It is nil when
	// credentials were optional and none were sent.
	Claims *validator.TrustedClaims

	// Status is the HTTP status for a rejected request.
	Status int

	// Code is the internal error code. It is meant for logs and metrics,
	// never for the response body.
	Code string

	// Message is the generic client-facing message.
	Message string

	// TokenPresented is true when the request carried a token, valid or
	// not. It selects the RFC 6750 error attribute in WWW-Authenticate.
	TokenPresented bool

	// Err is the classified error of a rejected request.
	Err error
}

// Decide turns the outcome of token extraction and CheckToken into a
// Decision. Every rejection is a 401 with the same generic message.
func Decide(claims *validator.TrustedClaims, err error) Decision {
	if err == nil {
		return Decision{Allowed: true, Claims: claims, Status: http.StatusOK}
	}

	verr := Classify(err)
	return Decision{
		Status:         http.StatusUnauthorized,
		Code:           verr.Code,
		Message:        "Unauthorized",
		TokenPresented: verr.Code != ErrorCodeTokenMissing,
		Err:            verr,
	}
}

// WWWAuthenticate returns the WWW-Authenticate header value for a rejected
// decision, per RFC 6750.
func (d Decision) WWWAuthenticate() string {
	if d.TokenPresented {
		return `Bearer error="invalid_token"`
	}
	return "Bearer"
}
