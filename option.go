package jwtgate

import (
	"errors"
	"net/http"
	"strings"

	"github.com/entragate/go-jwt-gate/core"
)

// Option configures the Gate.
type Option func(*Gate) error

// Sentinel errors for configuration validation.
var (
	ErrValidatorNil       = errors.New("validator cannot be nil (use WithValidator)")
	ErrErrorHandlerNil    = errors.New("errorHandler cannot be nil")
	ErrTokenExtractorNil  = errors.New("tokenExtractor cannot be nil")
	ErrExclusionUrlsEmpty = errors.New("exclusion URLs list cannot be empty")
	ErrLoggerNil          = errors.New("logger cannot be nil")
	ErrMetricsNil         = errors.New("metrics cannot be nil")
	ErrTracerNil          = errors.New("tracer cannot be nil")
)

// WithValidator sets the token validator (required unless authentication is
// disabled). *validator.Validator satisfies core.Validator.
//
//	v, err := validator.New(
//	    validator.WithKeyResolver(store),
//	    validator.WithIssuer("https://login.microsoftonline.com/<tenant>/v2.0"),
//	    validator.WithAudience("api://<client-id>"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	gate, err := jwtgate.New(jwtgate.WithValidator(v))
func WithValidator(v core.Validator) Option {
	return func(g *Gate) error {
		if v == nil {
			return ErrValidatorNil
		}
		g.validator = v
		return nil
	}
}

// WithAuthDisabled lets every request through as the development user.
// For local development only.
func WithAuthDisabled(disabled bool) Option {
	return func(g *Gate) error {
		g.authDisabled = disabled
		return nil
	}
}

// WithCredentialsOptional sets whether requests without a token may pass
// without claims.
//
// Default: false (credentials required)
func WithCredentialsOptional(value bool) Option {
	return func(g *Gate) error {
		g.credentialsOptional = value
		return nil
	}
}

// WithValidateOnOptions sets whether OPTIONS requests have their JWT validated.
//
// Default: true
func WithValidateOnOptions(value bool) Option {
	return func(g *Gate) error {
		g.validateOnOptions = value
		return nil
	}
}

// WithErrorHandler sets the handler called for rejected requests.
//
// Default: DefaultErrorHandler
func WithErrorHandler(h ErrorHandler) Option {
	return func(g *Gate) error {
		if h == nil {
			return ErrErrorHandlerNil
		}
		g.errorHandler = h
		return nil
	}
}

// WithTokenExtractor sets the function to extract the JWT from the request.
//
// Default: AuthHeaderTokenExtractor
func WithTokenExtractor(e TokenExtractor) Option {
	return func(g *Gate) error {
		if e == nil {
			return ErrTokenExtractorNil
		}
		g.tokenExtractor = e
		return nil
	}
}

// WithExclusionUrls configures URLs that bypass the Gate, such as a health
// endpoint. Entries match either the full request URL or its path.
func WithExclusionUrls(exclusions []string) Option {
	return func(g *Gate) error {
		if len(exclusions) == 0 {
			return ErrExclusionUrlsEmpty
		}
		g.addExclusion(func(r *http.Request) bool {
			requestFullURL := r.URL.String()
			requestPath := r.URL.Path

			for _, exclusion := range exclusions {
				if requestFullURL == exclusion || requestPath == exclusion {
					return true
				}
			}
			return false
		})
		return nil
	}
}

// WithExclusionPrefixes configures path prefixes that bypass the Gate. A
// prefix matches whole path segments: "/docs" excludes "/docs" and
// "/docs/oauth2-redirect" but not "/docsecret". It can be combined with
// WithExclusionUrls.
func WithExclusionPrefixes(prefixes []string) Option {
	return func(g *Gate) error {
		if len(prefixes) == 0 {
			return ErrExclusionUrlsEmpty
		}
		trimmed := make([]string, 0, len(prefixes))
		for _, prefix := range prefixes {
			trimmed = append(trimmed, strings.TrimSuffix(prefix, "/"))
		}
		g.addExclusion(func(r *http.Request) bool {
			for _, prefix := range trimmed {
				rest, ok := strings.CutPrefix(r.URL.Path, prefix)
				if ok && (rest == "" || strings.HasPrefix(rest, "/")) {
					return true
				}
			}
			return false
		})
		return nil
	}
}

func (g *Gate) addExclusion(excluded ExclusionURLHandler) {
	previous := g.exclusionURLHandler
	if previous == nil {
		g.exclusionURLHandler = excluded
		return
	}
	g.exclusionURLHandler = func(r *http.Request) bool {
		return previous(r) || excluded(r)
	}
}

// WithLogger sets the logger used by the Gate and its core. *slog.Logger
// works directly; NewLogrusLogger, NewZapLogger and NewZerologLogger adapt
// the other common loggers.
func WithLogger(logger core.Logger) Option {
	return func(g *Gate) error {
		if logger == nil {
			return ErrLoggerNil
		}
		g.logger = logger
		return nil
	}
}

// WithMetrics sets the verification metrics sink, usually a
// *PrometheusMetrics.
func WithMetrics(metrics core.Metrics) Option {
	return func(g *Gate) error {
		if metrics == nil {
			return ErrMetricsNil
		}
		g.metrics = metrics
		return nil
	}
}

// WithTracer sets the tracer, usually an *OpenTelemetryTracer.
func WithTracer(tracer core.Tracer) Option {
	return func(g *Gate) error {
		if tracer == nil {
			return ErrTracerNil
		}
		g.tracer = tracer
		return nil
	}
}
