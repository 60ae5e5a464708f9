package core

import (
	"errors"
)

// Option is a function that configures the Core.
// Options return errors to enable validation during construction.
type Option func(*Core) error

// New creates a new Core instance with the provided options.
//
// The Core must be configured with a Validator using WithValidator, unless
// authentication is disabled with WithAuthDisabled.
//
// Example:
//
//	core, err := core.New(
//	    core.WithValidator(validator),
//	    core.WithLogger(slog.Default()),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
func New(opts ...Option) (*Core, error) {
	c := &Core{
		logger:  noopLogger{},
		metrics: noopMetrics{},
		tracer:  noopTracer{},
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	if err := c.validate(); err != nil {
		return nil, err
	}

	if c.authDisabled {
		c.logger.Warn("Authentication is DISABLED, every request will be trusted as the development user",
			"subject", DevelopmentSubject)
	}

	return c, nil
}

func (c *Core) validate() error {
	if c.validator == nil && !c.authDisabled {
		return NewValidationError(
			ErrorCodeValidatorNotSet,
			"validator is required but not set (use WithValidator option)",
			nil,
		)
	}
	return nil
}

// WithValidator sets the validator for the Core.
func WithValidator(validator Validator) Option {
	return func(c *Core) error {
		if validator == nil {
			return errors.New("validator cannot be nil")
		}
		c.validator = validator
		return nil
	}
}

// WithAuthDisabled turns verification off. Every call to CheckToken then
// succeeds with DevelopmentClaims, whatever the token. Intended for local
// development only; a warning is logged at construction and on every call.
func WithAuthDisabled(disabled bool) Option {
	return func(c *Core) error {
		c.authDisabled = disabled
		return nil
	}
}

// WithCredentialsOptional configures whether credentials are optional.
//
// When set to true, requests without tokens are allowed to proceed without
// validation and the claims are nil. When false (default), requests without
// tokens return ErrJWTMissing.
func WithCredentialsOptional(optional bool) Option {
	return func(c *Core) error {
		c.credentialsOptional = optional
		return nil
	}
}

// WithLogger sets the logger for the Core.
//
//	core, _ := core.New(
//	    core.WithValidator(validator),
//	    core.WithLogger(slog.Default()),
//	)
func WithLogger(logger Logger) Option {
	return func(c *Core) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		c.logger = logger
		return nil
	}
}

// WithMetrics sets the metrics sink for verification outcomes.
func WithMetrics(metrics Metrics) Option {
	return func(c *Core) error {
		if metrics == nil {
			return errors.New("metrics cannot be nil")
		}
		c.metrics = metrics
		return nil
	}
}

// WithTracer sets the tracer that wraps each verification in a span.
func WithTracer(tracer Tracer) Option {
	return func(c *Core) error {
		if tracer == nil {
			return errors.New("tracer cannot be nil")
		}
		c.tracer = tracer
		return nil
	}
}
