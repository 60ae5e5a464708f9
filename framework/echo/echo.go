// Package jwtecho adapts a jwtgate.Gate to echo.
package jwtecho

import (
	"github.com/labstack/echo/v4"

	jwtgate "github.com/entragate/go-jwt-gate"
	"github.com/entragate/go-jwt-gate/core"
	"github.com/entragate/go-jwt-gate/validator"
)

// ClaimsKey is the echo context key holding *validator.TrustedClaims.
const ClaimsKey = "jwtgate.claims"

// ErrorHandler produces the response for a rejected request.
type ErrorHandler func(c echo.Context, decision core.Decision) error

// Option configures the echo middleware.
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

// New returns echo middleware that runs every request through gate.
//
//	e.Use(jwtecho.New(gate))
func New(gate *jwtgate.Gate, opts ...Option) echo.MiddlewareFunc {
	cfg := &config{errorHandler: DefaultErrorHandler}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			decision := gate.Authorize(c.Request())
			if !decision.Allowed {
				return cfg.errorHandler(c, decision)
			}

			if decision.Claims != nil {
				c.Set(ClaimsKey, decision.Claims)
				c.SetRequest(c.Request().WithContext(core.SetClaims(c.Request().Context(), decision.Claims)))
			}
			return next(c)
		}
	}
}

// DefaultErrorHandler answers with the decision's status, the RFC 6750
// challenge and a generic JSON message.
func DefaultErrorHandler(c echo.Context, decision core.Decision) error {
	c.Response().Header().Set("WWW-Authenticate", decision.WWWAuthenticate())
	return c.JSON(decision.Status, jwtgate.ErrorResponse{Message: decision.Message})
}

// GetClaims returns the trusted claims stored by the middleware.
func GetClaims(c echo.Context) (*validator.TrustedClaims, error) {
	if claims, ok := c.Get(ClaimsKey).(*validator.TrustedClaims); ok {
		return claims, nil
	}
	return nil, core.ErrClaimsNotFound
}
