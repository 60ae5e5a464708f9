/*
Package core provides framework-agnostic bearer token checking that the HTTP,
Gin, Echo and gRPC adapters share.

Core wraps a Validator (normally a *validator.Validator backed by a
*jwks.Store) and adds what every transport needs around it: the
credentials-optional rule, the development bypass, error classification,
logging, metrics and tracing.

# Basic Usage

	c, err := core.New(
	    core.WithValidator(v),
	    core.WithLogger(slog.Default()),
	)
	if err != nil {
	    log.Fatal(err)
	}

	claims, err := c.CheckToken(ctx, token)
	decision := core.Decide(claims, err)
	if !decision.Allowed {
	    // respond with decision.Status and decision.WWWAuthenticate()
	}

# Error Classification

Every failure returned by CheckToken is a *ValidationError whose Code names
the failure kind (token_expired, jwks_key_not_found, invalid_signature and so
on). Classify performs the same mapping for errors produced elsewhere, such
as ErrMalformedAuthorization from a token extractor. Codes are meant for logs
and metrics; Decide gives clients a generic 401 regardless of the code.

# Development Mode

WithAuthDisabled makes CheckToken accept any request, with or without a
token, as the development user (DevelopmentClaims). A warning is logged when
the Core is built and again on every call.

# Observability

Metrics and Tracer are small interfaces so the root package can plug in
Prometheus and OpenTelemetry without this package importing either. Both
default to no-ops.
*/
package core
