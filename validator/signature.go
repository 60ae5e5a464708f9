package validator

import (
	"fmt"
	"slices"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"

	"github.com/entragate/go-jwt-gate/jwks"
)

// DefaultAlgorithms is the allow-list used when none is configured.
var DefaultAlgorithms = []jwa.SignatureAlgorithm{jwa.RS256}

// checkAlgorithm rejects any alg not in allowed. Symmetric algorithms and
// "none" never pass, whatever the list says.
func checkAlgorithm(alg jwa.SignatureAlgorithm, allowed []jwa.SignatureAlgorithm) error {
	if _, asymmetric := jwks.KeyTypeFor(alg); !asymmetric || !slices.Contains(allowed, alg) {
		return fmt.Errorf("%w: %q", ErrAlgorithmNotAllowed, alg)
	}
	return nil
}

// VerifySignature checks the token signature against key.
//
// The algorithm comes from the token header but must be in allowed, must match
// the key's type, and must equal the key's pinned algorithm when it has one.
// Every cryptographic failure is reported as ErrInvalidSignature with no
// further detail.
func VerifySignature(token *ParsedToken, key *jwks.VerificationKey, allowed []jwa.SignatureAlgorithm) error {
	alg := token.header.Algorithm
	if err := checkAlgorithm(alg, allowed); err != nil {
		return err
	}

	if keyType, _ := jwks.KeyTypeFor(alg); keyType != key.KeyType() {
		return ErrInvalidSignature
	}
	if pinned := key.Algorithm(); pinned != "" && pinned != alg {
		return ErrInvalidSignature
	}

	verifier, err := jws.NewVerifier(alg)
	if err != nil {
		return ErrInvalidSignature
	}
	if err := verifier.Verify(token.signingInput, token.signature, key.Material()); err != nil {
		return ErrInvalidSignature
	}

	return nil
}
