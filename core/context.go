package core

import (
	"context"

	"github.com/entragate/go-jwt-gate/validator"
)

type contextKey int

const claimsKey contextKey = iota

// SetClaims returns a copy of ctx carrying the trusted claims of the caller.
// Adapters call it once verification has succeeded.
func SetClaims(ctx context.Context, claims *validator.TrustedClaims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// GetClaims returns the trusted claims stored by SetClaims, or
// ErrClaimsNotFound.
//
//	claims, err := core.GetClaims(ctx)
//	if err != nil {
//	    return err
//	}
//	log.Println(claims.Subject)
func GetClaims(ctx context.Context) (*validator.TrustedClaims, error) {
	claims, ok := ctx.Value(claimsKey).(*validator.TrustedClaims)
	if !ok || claims == nil {
		return nil, ErrClaimsNotFound
	}
	return claims, nil
}

// HasClaims reports whether ctx carries trusted claims.
func HasClaims(ctx context.Context) bool {
	_, err := GetClaims(ctx)
	return err == nil
}
