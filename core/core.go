package core

import (
	"context"
	"time"

	"github.com/entragate/go-jwt-gate/validator"
)

// Validator defines the interface for JWT validation.
// *validator.Validator implements it.
type Validator interface {
	ValidateToken(ctx context.Context, token string) (*validator.TrustedClaims, error)
}

// Logger defines an optional logging interface for the core middleware.
// *slog.Logger satisfies it, as do the logrus, zap and zerolog adapters in
// the root package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Metric names recorded by Core.
const (
	MetricVerificationsTotal   = "jwtgate_verifications_total"
	MetricVerificationDuration = "jwtgate_verification_duration_seconds"
)

// Metrics receives verification counters and latencies.
type Metrics interface {
	IncCounter(name string, tags map[string]string)
	ObserveHistogram(name string, value float64, tags map[string]string)
}

// Tracer starts spans around token verification.
type Tracer interface {
	StartSpan(ctx context.Context, operationName string) (context.Context, Span)
}

// Span is one traced operation.
type Span interface {
	SetTag(key string, value any)
	RecordError(err error)
	Finish()
}

// Development identity returned for every call when authentication is
// disabled.
const (
	DevelopmentSubject = "development-user"
	DevelopmentName    = "Development User"
)

// Core is the framework-agnostic JWT validation engine.
// It contains the core logic for token validation without any dependency
// on specific transport protocols (HTTP, gRPC, etc.).
type Core struct {
	validator           Validator
	authDisabled        bool
	credentialsOptional bool
	logger              Logger
	metrics             Metrics
	tracer              Tracer
}

// AuthDisabled reports whether the Core was built with WithAuthDisabled.
func (c *Core) AuthDisabled() bool { return c.authDisabled }

// CheckToken validates a JWT token string and returns the validated claims.
//
//   - If authentication is disabled, any token, including "", yields the
//     development claims and a warning is logged
//   - If token is empty and credentials are optional, returns (nil, nil)
//   - If token is empty otherwise, returns ErrJWTMissing
//   - Otherwise the token is validated and failures are returned as a
//     *ValidationError carrying the error code
func (c *Core) CheckToken(ctx context.Context, token string) (*validator.TrustedClaims, error) {
	if c.authDisabled {
		c.logger.Warn("Authentication is disabled, request trusted without verification",
			"subject", DevelopmentSubject)
		c.metrics.IncCounter(MetricVerificationsTotal, map[string]string{"result": "bypassed", "code": ""})
		return DevelopmentClaims(), nil
	}

	if token == "" {
		if c.credentialsOptional {
			c.logger.Debug("No token provided, but credentials are optional")
			return nil, nil
		}

		c.logger.Warn("No token provided and credentials are required")
		c.metrics.IncCounter(MetricVerificationsTotal, map[string]string{"result": "rejected", "code": ErrorCodeTokenMissing})
		return nil, ErrJWTMissing
	}

	ctx, span := c.tracer.StartSpan(ctx, "jwtgate.CheckToken")
	defer span.Finish()

	start := time.Now()
	claims, err := c.validator.ValidateToken(ctx, token)
	duration := time.Since(start)

	if err != nil {
		verr := Classify(err)
		span.SetTag("jwtgate.result", "rejected")
		span.SetTag("jwtgate.code", verr.Code)
		span.RecordError(verr)
		c.metrics.IncCounter(MetricVerificationsTotal, map[string]string{"result": "rejected", "code": verr.Code})
		c.metrics.ObserveHistogram(MetricVerificationDuration, duration.Seconds(), map[string]string{"result": "rejected"})
		c.logger.Warn("Token validation failed", "code", verr.Code, "error", err, "duration", duration)
		return nil, verr
	}

	span.SetTag("jwtgate.result", "trusted")
	span.SetTag("jwtgate.subject", claims.Subject)
	c.metrics.IncCounter(MetricVerificationsTotal, map[string]string{"result": "trusted", "code": ""})
	c.metrics.ObserveHistogram(MetricVerificationDuration, duration.Seconds(), map[string]string{"result": "trusted"})
	c.logger.Debug("Token validated successfully", "subject", claims.Subject, "duration", duration)

	return claims, nil
}

// DevelopmentClaims returns the synthetic claims used when authentication is
// disabled.
func DevelopmentClaims() *validator.TrustedClaims {
	return &validator.TrustedClaims{
		Subject: DevelopmentSubject,
		Extra:   map[string]any{"name": DevelopmentName},
	}
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type noopMetrics struct{}

func (noopMetrics) IncCounter(string, map[string]string)                {}
func (noopMetrics) ObserveHistogram(string, float64, map[string]string) {}

type noopTracer struct{}

func (noopTracer) StartSpan(ctx context.Context, _ string) (context.Context, Span) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) SetTag(string, any) {}
func (noopSpan) RecordError(error)  {}
func (noopSpan) Finish()            {}
