package jwks

import "errors"

var (
	// ErrUnknownKey is returned when a key id is absent from the key set even
	// after a refresh.
	ErrUnknownKey = errors.New("signing key not found")

	// ErrKeySourceUnavailable is returned when the key document could not be
	// fetched or parsed and no usable cached key covers the lookup.
	ErrKeySourceUnavailable = errors.New("signing key source unavailable")

	// ErrKeySetExpired is returned when the key source is unavailable and the
	// last good key set is older than the maximum staleness.
	ErrKeySetExpired = errors.New("signing key set expired")

	// ErrInvalidKeySet is returned by ParseKeySet when the document or any of
	// its entries is structurally invalid.
	ErrInvalidKeySet = errors.New("invalid key set document")
)
