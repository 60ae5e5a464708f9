package jwtgate

import (
	"context"
	"fmt"
	"net/http"

	"github.com/entragate/go-jwt-gate/core"
	"github.com/entragate/go-jwt-gate/validator"
)

// Gate is the net/http boundary: it extracts the bearer token, runs it
// through a core.Core and either forwards the request with trusted claims
// attached or rejects it.
type Gate struct {
	core                *core.Core
	errorHandler        ErrorHandler
	tokenExtractor      TokenExtractor
	validateOnOptions   bool
	exclusionURLHandler ExclusionURLHandler
	logger              core.Logger
	metrics             core.Metrics

	// Construction-only fields handed to core.New.
	validator           core.Validator
	authDisabled        bool
	credentialsOptional bool
	tracer              core.Tracer
}

// ExclusionURLHandler reports whether a request bypasses the Gate.
type ExclusionURLHandler func(r *http.Request) bool

// New constructs a Gate from options.
//
//	gate, err := jwtgate.New(
//	    jwtgate.WithValidator(v),
//	    jwtgate.WithExclusionUrls([]string{"/health"}),
//	)
//	if err != nil {
//	    log.Fatalf("failed to create gate: %v", err)
//	}
func New(opts ...Option) (*Gate, error) {
	g := &Gate{
		validateOnOptions: true,
		errorHandler:      DefaultErrorHandler,
		tokenExtractor:    AuthHeaderTokenExtractor,
	}

	for _, opt := range opts {
		if err := opt(g); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if g.validator == nil && !g.authDisabled {
		return nil, fmt.Errorf("invalid gate configuration: %w", ErrValidatorNil)
	}

	coreOpts := []core.Option{
		core.WithAuthDisabled(g.authDisabled),
		core.WithCredentialsOptional(g.credentialsOptional),
	}
	if g.validator != nil {
		coreOpts = append(coreOpts, core.WithValidator(g.validator))
	}
	if g.logger != nil {
		coreOpts = append(coreOpts, core.WithLogger(g.logger))
	}
	if g.metrics != nil {
		coreOpts = append(coreOpts, core.WithMetrics(g.metrics))
	}
	if g.tracer != nil {
		coreOpts = append(coreOpts, core.WithTracer(g.tracer))
	}

	c, err := core.New(coreOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create core: %w", err)
	}
	g.core = c

	return g, nil
}

// Authorize decides whether r may proceed. Excluded URLs and, when
// configured, OPTIONS requests are allowed without claims.
func (g *Gate) Authorize(r *http.Request) core.Decision {
	if g.exclusionURLHandler != nil && g.exclusionURLHandler(r) {
		g.debug("skipping JWT validation for excluded URL", "method", r.Method, "path", r.URL.Path)
		return core.Decide(nil, nil)
	}

	if !g.validateOnOptions && r.Method == http.MethodOptions {
		g.debug("skipping JWT validation for OPTIONS request")
		return core.Decide(nil, nil)
	}

	token, err := g.tokenExtractor(r)
	if err != nil && !g.core.AuthDisabled() {
		decision := core.Decide(nil, fmt.Errorf("error extracting token: %w", err))
		if g.logger != nil {
			g.logger.Warn("failed to extract token from request",
				"code", decision.Code,
				"error", err,
				"method", r.Method,
				"path", r.URL.Path)
		}
		if g.metrics != nil {
			g.metrics.IncCounter(core.MetricVerificationsTotal, map[string]string{"result": "rejected", "code": decision.Code})
		}
		return decision
	}

	claims, err := g.core.CheckToken(r.Context(), token)
	return core.Decide(claims, err)
}

// CheckJWT wraps next so that it only runs for authorized requests. Trusted
// claims are available to next through GetClaims.
func (g *Gate) CheckJWT(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decision := g.Authorize(r)
		if !decision.Allowed {
			g.errorHandler(w, r, decision.Err)
			return
		}

		if decision.Claims != nil {
			r = r.Clone(core.SetClaims(r.Context(), decision.Claims))
		}
		next.ServeHTTP(w, r)
	})
}

func (g *Gate) debug(msg string, args ...any) {
	if g.logger != nil {
		g.logger.Debug(msg, args...)
	}
}

// GetClaims returns the trusted claims the Gate attached to the request
// context.
//
//	claims, err := jwtgate.GetClaims(r.Context())
//	if err != nil {
//	    http.Error(w, "failed to get claims", http.StatusInternalServerError)
//	    return
//	}
//	fmt.Println(claims.Subject)
func GetClaims(ctx context.Context) (*validator.TrustedClaims, error) {
	return core.GetClaims(ctx)
}

// MustGetClaims is GetClaims for handlers that are only reachable through
// the Gate. It panics when no claims are present.
func MustGetClaims(ctx context.Context) *validator.TrustedClaims {
	claims, err := core.GetClaims(ctx)
	if err != nil {
		panic(err)
	}
	return claims
}

// HasClaims reports whether the context carries trusted claims.
func HasClaims(ctx context.Context) bool {
	return core.HasClaims(ctx)
}

// GetCustomClaims returns the custom claims decoded by the validator's
// WithCustomClaims hook, asserted to T.
//
//	entra, err := jwtgate.GetCustomClaims[*EntraClaims](r.Context())
func GetCustomClaims[T validator.CustomClaims](ctx context.Context) (T, error) {
	var zero T

	claims, err := core.GetClaims(ctx)
	if err != nil {
		return zero, err
	}

	custom, ok := claims.Custom.(T)
	if !ok {
		return zero, core.NewValidationError(core.ErrorCodeClaimsNotFound, "custom claims type assertion failed", nil)
	}
	return custom, nil
}
