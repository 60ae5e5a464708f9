package jwks

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"fmt"
	"sort"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
)

// minRSABits is the smallest RSA modulus accepted from a key document.
const minRSABits = 2048

// VerificationKey is one public signing key published by the identity provider.
// It is immutable once constructed.
type VerificationKey struct {
	id        string
	algorithm jwa.SignatureAlgorithm
	keyType   jwa.KeyType
	material  crypto.PublicKey
}

// NewVerificationKey builds a VerificationKey from raw public key material.
// The algorithm may be empty when the provider does not pin one.
func NewVerificationKey(id string, algorithm jwa.SignatureAlgorithm, material crypto.PublicKey) (*VerificationKey, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: key id is required", ErrInvalidKeySet)
	}

	keyType, err := keyTypeOf(material)
	if err != nil {
		return nil, fmt.Errorf("%w: key %q: %w", ErrInvalidKeySet, id, err)
	}

	if algorithm != "" {
		want, ok := KeyTypeFor(algorithm)
		if !ok {
			return nil, fmt.Errorf("%w: key %q declares unsupported algorithm %q", ErrInvalidKeySet, id, algorithm)
		}
		if want != keyType {
			return nil, fmt.Errorf("%w: key %q declares %q for a %q key", ErrInvalidKeySet, id, algorithm, keyType)
		}
	}

	return &VerificationKey{
		id:        id,
		algorithm: algorithm,
		keyType:   keyType,
		material:  material,
	}, nil
}

// KeyID returns the key identifier (kid).
func (k *VerificationKey) KeyID() string { return k.id }

// Algorithm returns the algorithm pinned by the provider, or "" if none.
func (k *VerificationKey) Algorithm() jwa.SignatureAlgorithm { return k.algorithm }

// KeyType returns the key family (RSA, EC or OKP).
func (k *VerificationKey) KeyType() jwa.KeyType { return k.keyType }

// Material returns the public key: *rsa.PublicKey, *ecdsa.PublicKey or
// ed25519.PublicKey. Callers must not modify it.
func (k *VerificationKey) Material() crypto.PublicKey { return k.material }

// KeyTypeFor returns the key family an asymmetric signature algorithm
// requires. Symmetric algorithms and "none" are never reported.
func KeyTypeFor(alg jwa.SignatureAlgorithm) (jwa.KeyType, bool) {
	switch alg {
	case jwa.RS256, jwa.RS384, jwa.RS512, jwa.PS256, jwa.PS384, jwa.PS512:
		return jwa.RSA, true
	case jwa.ES256, jwa.ES384, jwa.ES512:
		return jwa.EC, true
	case jwa.EdDSA:
		return jwa.OKP, true
	default:
		return "", false
	}
}

func keyTypeOf(material crypto.PublicKey) (jwa.KeyType, error) {
	switch pub := material.(type) {
	case *rsa.PublicKey:
		if pub == nil || pub.N == nil {
			return "", fmt.Errorf("empty RSA key")
		}
		if pub.N.BitLen() < minRSABits {
			return "", fmt.Errorf("RSA key is %d bits, need at least %d", pub.N.BitLen(), minRSABits)
		}
		return jwa.RSA, nil
	case *ecdsa.PublicKey:
		if pub == nil || pub.X == nil {
			return "", fmt.Errorf("empty EC key")
		}
		return jwa.EC, nil
	case ed25519.PublicKey:
		if len(pub) != ed25519.PublicKeySize {
			return "", fmt.Errorf("bad Ed25519 key length %d", len(pub))
		}
		return jwa.OKP, nil
	default:
		return "", fmt.Errorf("unsupported key material %T", material)
	}
}

// KeySet is an immutable snapshot of the provider's trusted keys plus the
// metadata of the fetch that produced it.
type KeySet struct {
	keys      map[string]*VerificationKey
	fetchedAt time.Time
	source    string
	etag      string
	maxAge    time.Duration

	// invalidated marks a set that must be refreshed before its next lookup.
	invalidated bool

	// cached marks a set built from a CachingSource's cache rather than a
	// response of the provider.
	cached bool
}

// NewKeySet builds a KeySet from keys. Key ids must be unique and at least one
// key is required.
func NewKeySet(keys ...*VerificationKey) (*KeySet, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("%w: no signing keys", ErrInvalidKeySet)
	}

	byID := make(map[string]*VerificationKey, len(keys))
	for _, key := range keys {
		if _, dup := byID[key.id]; dup {
			return nil, fmt.Errorf("%w: duplicate key id %q", ErrInvalidKeySet, key.id)
		}
		byID[key.id] = key
	}

	return &KeySet{keys: byID}, nil
}

// Lookup returns the key with the given id.
func (s *KeySet) Lookup(kid string) (*VerificationKey, bool) {
	key, ok := s.keys[kid]
	return key, ok
}

// Len returns the number of keys in the set.
func (s *KeySet) Len() int { return len(s.keys) }

// KeyIDs returns the sorted key ids in the set.
func (s *KeySet) KeyIDs() []string {
	ids := make([]string, 0, len(s.keys))
	for id := range s.keys {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// FetchedAt returns when the set was fetched (or last revalidated).
func (s *KeySet) FetchedAt() time.Time { return s.fetchedAt }

// Source returns the location the set was fetched from.
func (s *KeySet) Source() string { return s.source }

// ETag returns the validator sent by the key source, if any.
func (s *KeySet) ETag() string { return s.etag }

// MaxAge returns the Cache-Control max-age hint of the fetch, or 0.
func (s *KeySet) MaxAge() time.Duration { return s.maxAge }

// withMetadata returns a copy of the set stamped with fetch metadata. The key
// map is shared; it is never written after construction.
func (s *KeySet) withMetadata(fetchedAt time.Time, source, etag string, maxAge time.Duration) *KeySet {
	return &KeySet{
		keys:      s.keys,
		fetchedAt: fetchedAt,
		source:    source,
		etag:      etag,
		maxAge:    maxAge,
	}
}

// ParseKeySet parses a JWKS document. The whole document is rejected if any
// signing entry is invalid. Entries marked "use":"enc" are skipped.
func ParseKeySet(document []byte) (*KeySet, error) {
	set, err := jwk.Parse(document)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKeySet, err)
	}

	keys := make([]*VerificationKey, 0, set.Len())
	for i := 0; i < set.Len(); i++ {
		entry, ok := set.Key(i)
		if !ok {
			return nil, fmt.Errorf("%w: missing entry %d", ErrInvalidKeySet, i)
		}
		if entry.KeyUsage() == string(jwk.ForEncryption) {
			continue
		}

		key, err := verificationKeyFromJWK(entry)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		keys = append(keys, key)
	}

	return NewKeySet(keys...)
}

func verificationKeyFromJWK(entry jwk.Key) (*VerificationKey, error) {
	switch entry.(type) {
	case jwk.SymmetricKey:
		return nil, fmt.Errorf("%w: symmetric key %q", ErrInvalidKeySet, entry.KeyID())
	case jwk.RSAPrivateKey, jwk.ECDSAPrivateKey, jwk.OKPPrivateKey:
		return nil, fmt.Errorf("%w: key %q exposes private material", ErrInvalidKeySet, entry.KeyID())
	}

	var material any
	if err := entry.Raw(&material); err != nil {
		return nil, fmt.Errorf("%w: key %q: %w", ErrInvalidKeySet, entry.KeyID(), err)
	}

	var alg jwa.SignatureAlgorithm
	if declared := entry.Algorithm().String(); declared != "" {
		alg = jwa.SignatureAlgorithm(declared)
	}

	return NewVerificationKey(entry.KeyID(), alg, material)
}
