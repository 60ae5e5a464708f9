package jwtgrpc

import (
	"errors"

	"github.com/entragate/go-jwt-gate/core"
)

// Option configures the Interceptor.
type Option func(*Interceptor) error

// WithValidator sets the token validator (required unless authentication is
// disabled).
func WithValidator(v core.Validator) Option {
	return func(i *Interceptor) error {
		if v == nil {
			return errors.New("validator cannot be nil")
		}
		i.coreOpts = append(i.coreOpts, core.WithValidator(v))
		i.hasValidator = true
		return nil
	}
}

// WithAuthDisabled lets every call through as the development user.
func WithAuthDisabled(disabled bool) Option {
	return func(i *Interceptor) error {
		i.authDisabled = disabled
		i.coreOpts = append(i.coreOpts, core.WithAuthDisabled(disabled))
		return nil
	}
}

// WithCredentialsOptional lets calls without a token through without claims.
func WithCredentialsOptional(optional bool) Option {
	return func(i *Interceptor) error {
		i.coreOpts = append(i.coreOpts, core.WithCredentialsOptional(optional))
		return nil
	}
}

// WithLogger sets the logger for the interceptor and its core.
func WithLogger(logger core.Logger) Option {
	return func(i *Interceptor) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		i.logger = logger
		i.coreOpts = append(i.coreOpts, core.WithLogger(logger))
		return nil
	}
}

// WithMetrics sets the verification metrics sink.
func WithMetrics(metrics core.Metrics) Option {
	return func(i *Interceptor) error {
		if metrics == nil {
			return errors.New("metrics cannot be nil")
		}
		i.coreOpts = append(i.coreOpts, core.WithMetrics(metrics))
		return nil
	}
}

// WithTracer sets the verification tracer.
func WithTracer(tracer core.Tracer) Option {
	return func(i *Interceptor) error {
		if tracer == nil {
			return errors.New("tracer cannot be nil")
		}
		i.coreOpts = append(i.coreOpts, core.WithTracer(tracer))
		return nil
	}
}

// WithTokenExtractor replaces MetadataTokenExtractor.
func WithTokenExtractor(extractor TokenExtractor) Option {
	return func(i *Interceptor) error {
		if extractor == nil {
			return errors.New("token extractor cannot be nil")
		}
		i.tokenExtractor = extractor
		return nil
	}
}

// WithErrorHandler replaces DefaultErrorHandler. The handler must return a
// non-nil error; use status.Error to choose the code.
func WithErrorHandler(handler ErrorHandler) Option {
	return func(i *Interceptor) error {
		if handler == nil {
			return errors.New("error handler cannot be nil")
		}
		i.errorHandler = handler
		return nil
	}
}

// WithExcludedMethods replaces the default exclusions (the gRPC health
// service) with the given full method names.
func WithExcludedMethods(methods []string) Option {
	checker := excludeMethods(methods...)
	return func(i *Interceptor) error {
		i.exclusionChecker = checker
		return nil
	}
}

func excludeMethods(methods ...string) func(string) bool {
	methodSet := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		methodSet[m] = struct{}{}
	}
	return func(method string) bool {
		_, ok := methodSet[method]
		return ok
	}
}

// WithExclusionChecker sets a custom exclusion predicate on full method names.
func WithExclusionChecker(checker func(fullMethod string) bool) Option {
	return func(i *Interceptor) error {
		if checker == nil {
			return errors.New("exclusion checker cannot be nil")
		}
		i.exclusionChecker = checker
		return nil
	}
}
