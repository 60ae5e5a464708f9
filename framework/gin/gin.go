// Package jwtgin adapts a jwtgate.Gate to gin.
package jwtgin

import (
	"github.com/gin-gonic/gin"

	jwtgate "github.com/entragate/go-jwt-gate"
	"github.com/entragate/go-jwt-gate/core"
	"github.com/entragate/go-jwt-gate/validator"
)

// ClaimsKey is the gin context key holding *validator.TrustedClaims.
const ClaimsKey = "jwtgate.claims"

// ErrorHandler writes the response for a rejected request and aborts it.
type ErrorHandler func(c *gin.Context, decision core.Decision)

// Option configures the gin middleware.
type Option func(*config)

type config struct {
	errorHandler ErrorHandler
}

// WithErrorHandler replaces DefaultErrorHandler.
func WithErrorHandler(handler ErrorHandler) Option {
	return func(cfg *config) {
		if handler != nil {
			cfg.errorHandler = handler
		}
	}
}

// New returns gin middleware that runs every request through gate. Trusted
// claims are stored under ClaimsKey and in the request context.
//
//	router.Use(jwtgin.New(gate))
func New(gate *jwtgate.Gate, opts ...Option) gin.HandlerFunc {
	cfg := &config{errorHandler: DefaultErrorHandler}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(c *gin.Context) {
		decision := gate.Authorize(c.Request)
		if !decision.Allowed {
			cfg.errorHandler(c, decision)
			c.Abort()
			return
		}

		if decision.Claims != nil {
			c.Set(ClaimsKey, decision.Claims)
			c.Request = c.Request.WithContext(core.SetClaims(c.Request.Context(), decision.Claims))
		}
		c.Next()
	}
}

// DefaultErrorHandler answers with the decision's status, the RFC 6750
// challenge and a generic JSON message.
func DefaultErrorHandler(c *gin.Context, decision core.Decision) {
	c.Header("WWW-Authenticate", decision.WWWAuthenticate())
	c.AbortWithStatusJSON(decision.Status, jwtgate.ErrorResponse{Message: decision.Message})
}

// GetClaims returns the trusted claims stored by the middleware.
func GetClaims(c *gin.Context) (*validator.TrustedClaims, error) {
	if v, ok := c.Get(ClaimsKey); ok {
		if claims, ok := v.(*validator.TrustedClaims); ok {
			return claims, nil
		}
	}
	return nil, core.ErrClaimsNotFound
}
