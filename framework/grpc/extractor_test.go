package jwtgrpc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/metadata"

	"github.com/entragate/go-jwt-gate/core"
)

func TestMetadataTokenExtractor(t *testing.T) {
	testCases := []struct {
		name      string
		ctx       context.Context
		wantToken string
		wantErr   error
	}{
		{name: "no metadata", ctx: context.Background()},
		{name: "no authorization", ctx: metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-other", "1"))},
		{name: "bearer", ctx: metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer abc")), wantToken: "abc"},
		{name: "basic", ctx: metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Basic abc")), wantErr: core.ErrMalformedAuthorization},
		{
			name:    "two values",
			ctx:     metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer a", "authorization", "Bearer b")),
			wantErr: core.ErrMalformedAuthorization,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			token, err := MetadataTokenExtractor(testCase.ctx)
			assert.ErrorIs(t, err, testCase.wantErr)
			assert.Equal(t, testCase.wantToken, token)
		})
	}
}

func TestMetadataFieldTokenExtractor(t *testing.T) {
	extract := MetadataFieldTokenExtractor("x-access-token")

	token, err := extract(metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-access-token", "abc")))
	assert.NoError(t, err)
	assert.Equal(t, "abc", token)

	token, err = extract(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, token)

	_, err = extract(metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-access-token", "a", "x-access-token", "b")))
	assert.ErrorIs(t, err, core.ErrMalformedAuthorization)
}

func TestMultiTokenExtractor(t *testing.T) {
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-access-token", "abc"))

	token, err := MultiTokenExtractor(MetadataTokenExtractor, MetadataFieldTokenExtractor("x-access-token"))(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "abc", token)

	bad := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Token abc", "x-access-token", "abc"))
	_, err = MultiTokenExtractor(MetadataTokenExtractor, MetadataFieldTokenExtractor("x-access-token"))(bad)
	assert.ErrorIs(t, err, core.ErrMalformedAuthorization)
}
