package jwtgrpc

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/entragate/go-jwt-gate/core"
	"github.com/entragate/go-jwt-gate/validator"
)

// Health service methods, excluded from verification by default.
const (
	HealthCheckMethod = "/grpc.health.v1.Health/Check"
	HealthWatchMethod = "/grpc.health.v1.Health/Watch"
)

// Interceptor authenticates gRPC calls with bearer tokens from metadata.
type Interceptor struct {
	core             *core.Core
	tokenExtractor   TokenExtractor
	exclusionChecker func(fullMethod string) bool
	errorHandler     ErrorHandler
	logger           core.Logger

	coreOpts     []core.Option
	hasValidator bool
	authDisabled bool
}

// New creates an Interceptor.
//
//	interceptor, err := jwtgrpc.New(jwtgrpc.WithValidator(v))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	server := grpc.NewServer(
//	    grpc.UnaryInterceptor(interceptor.UnaryServerInterceptor()),
//	    grpc.StreamInterceptor(interceptor.StreamServerInterceptor()),
//	)
func New(opts ...Option) (*Interceptor, error) {
	i := &Interceptor{
		tokenExtractor:   MetadataTokenExtractor,
		exclusionChecker: excludeMethods(HealthCheckMethod, HealthWatchMethod),
		errorHandler:     DefaultErrorHandler,
	}

	for _, opt := range opts {
		if err := opt(i); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if !i.hasValidator && !i.authDisabled {
		return nil, errors.New("validator is required (use WithValidator)")
	}

	c, err := core.New(i.coreOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create core: %w", err)
	}
	i.core = c
	return i, nil
}

// authenticate returns ctx with trusted claims attached, or an
// Unauthenticated status error.
func (i *Interceptor) authenticate(ctx context.Context, method string) (context.Context, error) {
	if i.exclusionChecker(method) {
		i.debug("Method excluded from JWT validation", "method", method)
		return ctx, nil
	}

	token, err := i.tokenExtractor(ctx)
	if err != nil && !i.core.AuthDisabled() {
		err = fmt.Errorf("error extracting token: %w", err)
		if i.logger != nil {
			i.logger.Warn("failed to extract token from metadata", "method", method, "error", err)
		}
		return nil, i.errorHandler(ctx, core.Decide(nil, err))
	}

	claims, err := i.core.CheckToken(ctx, token)
	decision := core.Decide(claims, err)
	if !decision.Allowed {
		return nil, i.errorHandler(ctx, decision)
	}

	if claims == nil {
		return ctx, nil
	}
	return core.SetClaims(ctx, claims), nil
}

// ErrorHandler turns a rejected decision into the status error returned to
// the client.
type ErrorHandler func(ctx context.Context, decision core.Decision) error

// DefaultErrorHandler sends the RFC 6750 challenge as response header
// metadata and returns a generic Unauthenticated status. The failure code
// stays in logs.
func DefaultErrorHandler(ctx context.Context, decision core.Decision) error {
	_ = grpc.SetHeader(ctx, metadata.Pairs("www-authenticate", decision.WWWAuthenticate()))
	return status.Error(codes.Unauthenticated, decision.Message)
}

func (i *Interceptor) debug(msg string, args ...any) {
	if i.logger != nil {
		i.logger.Debug(msg, args...)
	}
}

// UnaryServerInterceptor returns a gRPC unary server interceptor for JWT authentication.
func (i *Interceptor) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		authCtx, err := i.authenticate(ctx, info.FullMethod)
		if err != nil {
			return nil, err
		}
		return handler(authCtx, req)
	}
}

// StreamServerInterceptor returns a gRPC stream server interceptor for JWT authentication.
func (i *Interceptor) StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		authCtx, err := i.authenticate(ss.Context(), info.FullMethod)
		if err != nil {
			return err
		}
		return handler(srv, &wrappedServerStream{ServerStream: ss, ctx: authCtx})
	}
}

type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}

// GetClaims returns the trusted claims of the current call.
func GetClaims(ctx context.Context) (*validator.TrustedClaims, error) {
	return core.GetClaims(ctx)
}
