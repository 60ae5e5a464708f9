package validator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const (
	// maxTokenDots bounds the dots counted before any decoding. A JWS compact
	// token has 2 and a JWE compact token 4; anything past 5 is rejected
	// without splitting the input.
	maxTokenDots = 5

	// maxTokenSize is the largest raw token accepted.
	maxTokenSize = 1 << 20
)

// Header holds the JOSE header fields the pipeline uses.
type Header struct {
	Algorithm jwa.SignatureAlgorithm
	KeyID     string
	Type      string
}

// ParsedToken is a structurally decoded JWS compact token. Nothing in it has
// been verified.
type ParsedToken struct {
	header       Header
	claims       jwt.Token
	payload      []byte
	signingInput []byte
	signature    []byte
}

// Header returns the decoded protected header.
func (t *ParsedToken) Header() Header { return t.header }

// Claims returns the decoded, untrusted claims.
func (t *ParsedToken) Claims() jwt.Token { return t.claims }

// Payload returns the decoded claims JSON.
func (t *ParsedToken) Payload() []byte { return t.payload }

// SigningInput returns the exact "header.payload" bytes as transmitted.
func (t *ParsedToken) SigningInput() []byte { return t.signingInput }

// Signature returns the decoded signature bytes.
func (t *ParsedToken) Signature() []byte { return t.signature }

// validateTokenFormat rejects inputs that are obviously not a token before
// they reach the decoder.
func validateTokenFormat(raw string) error {
	if raw == "" {
		return fmt.Errorf("%w: token is empty", ErrTokenMalformed)
	}
	if len(raw) > maxTokenSize {
		return fmt.Errorf("%w: token exceeds maximum size (1MB)", ErrTokenMalformed)
	}
	if strings.Count(raw, ".") > maxTokenDots {
		return ErrExcessiveTokenDots
	}
	return nil
}

// Parse decodes a JWS compact token without verifying it. Encrypted (JWE)
// tokens, the JSON serialization and non-JSON payloads are rejected with
// ErrTokenMalformed.
func Parse(raw string) (*ParsedToken, error) {
	if err := validateTokenFormat(raw); err != nil {
		return nil, err
	}

	dots := strings.Count(raw, ".")
	if dots == 4 {
		return nil, fmt.Errorf("%w: encrypted tokens are not supported", ErrTokenMalformed)
	}
	if dots != 2 {
		return nil, fmt.Errorf("%w: expected 3 segments, got %d", ErrTokenMalformed, dots+1)
	}

	msg, err := jws.Parse([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenMalformed, err)
	}

	signatures := msg.Signatures()
	if len(signatures) != 1 {
		return nil, fmt.Errorf("%w: expected one signature, got %d", ErrTokenMalformed, len(signatures))
	}
	headers := signatures[0].ProtectedHeaders()
	if headers.Algorithm() == "" {
		return nil, fmt.Errorf("%w: alg header is missing", ErrTokenMalformed)
	}

	payload := msg.Payload()
	claims := jwt.New()
	if err := json.Unmarshal(payload, claims); err != nil {
		return nil, fmt.Errorf("%w: claims are not a JSON object: %w", ErrTokenMalformed, err)
	}

	return &ParsedToken{
		header: Header{
			Algorithm: headers.Algorithm(),
			KeyID:     headers.KeyID(),
			Type:      headers.Type(),
		},
		claims:       claims,
		payload:      payload,
		signingInput: []byte(raw[:strings.LastIndexByte(raw, '.')]),
		signature:    signatures[0].Signature(),
	}, nil
}
