package jwtgrpc

import (
	"context"

	"google.golang.org/grpc/metadata"

	"github.com/entragate/go-jwt-gate/core"
)

// TokenExtractor extracts a bearer token from the incoming call. As with the
// HTTP extractors, a missing token is "" with no error.
type TokenExtractor func(ctx context.Context) (string, error)

// MetadataTokenExtractor reads the "authorization" metadata entry, which
// must be a single "Bearer <token>". Any other shape yields
// core.ErrMalformedAuthorization.
func MetadataTokenExtractor(ctx context.Context) (string, error) {
	return core.BearerToken(metadata.ValueFromIncomingContext(ctx, "authorization"))
}

// MetadataFieldTokenExtractor reads a bare token, without scheme, from the
// named metadata field. More than one value is ErrMalformedAuthorization.
func MetadataFieldTokenExtractor(field string) TokenExtractor {
	return func(ctx context.Context) (string, error) {
		values := metadata.ValueFromIncomingContext(ctx, field)
		switch len(values) {
		case 0:
			return "", nil
		case 1:
			return values[0], nil
		default:
			return "", core.ErrMalformedAuthorization
		}
	}
}

// MultiTokenExtractor tries extractors in order. The first non-empty token
// wins and the first error aborts the search.
func MultiTokenExtractor(extractors ...TokenExtractor) TokenExtractor {
	return func(ctx context.Context) (string, error) {
		for _, extract := range extractors {
			if token, err := extract(ctx); err != nil || token != "" {
				return token, err
			}
		}
		return "", nil
	}
}
