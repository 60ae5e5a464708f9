/*
Package jwtgate provides net/http middleware that admits requests carrying a
valid Microsoft Entra ID (or any OpenID Connect) access token.

The Gate is the HTTP transport adapter of a small pipeline:

	jwks.Store        fetches and caches the provider's signing keys
	validator         parses the token and checks algorithm, signature and claims
	core.Core         runs the validator, applies the auth toggle, logs and counts
	jwtgate.Gate      extracts the bearer token and answers 401 on rejection

Adapters for gin, echo and gRPC live under framework/.

# Quick Start

	import (
	    jwtgate "github.com/entragate/go-jwt-gate"
	    "github.com/entragate/go-jwt-gate/jwks"
	    "github.com/entragate/go-jwt-gate/validator"
	)

	func main() {
	    store, err := jwks.NewStore(
	        jwks.WithURL("https://login.microsoftonline.com/{tenant}/discovery/v2.0/keys"),
	    )
	    if err != nil {
	        log.Fatal(err)
	    }

	    v, err := validator.New(
	        validator.WithKeyResolver(store),
	        validator.WithIssuer("https://login.microsoftonline.com/{tenant}/v2.0"),
	        validator.WithAdditionalIssuers("https://sts.windows.net/{tenant}/"),
	        validator.WithAudience("api://{client}"),
	    )
	    if err != nil {
	        log.Fatal(err)
	    }

	    gate, err := jwtgate.New(
	        jwtgate.WithValidator(v),
	        jwtgate.WithExclusionUrls([]string{"/health"}),
	    )
	    if err != nil {
	        log.Fatal(err)
	    }

	    http.Handle("/api/", gate.CheckJWT(apiHandler))
	    http.ListenAndServe(":8080", nil)
	}

# Accessing Claims

	func apiHandler(w http.ResponseWriter, r *http.Request) {
	    claims, err := jwtgate.GetClaims(r.Context())
	    if err != nil {
	        http.Error(w, "Unauthorized", http.StatusUnauthorized)
	        return
	    }
	    if !claims.HasScope("access_as_user") {
	        http.Error(w, "Forbidden", http.StatusForbidden)
	        return
	    }
	    fmt.Fprintf(w, "hello %s", claims.Subject)
	}

MustGetClaims panics when claims are absent and is meant for handlers that
only run behind the Gate. GetCustomClaims returns the value built by
validator.WithCustomClaims.

# Rejections

Every rejected request gets a 401 with the body

	{"message":"Unauthorized"}

and a WWW-Authenticate challenge per RFC 6750: plain "Bearer" when no token
was sent, `Bearer error="invalid_token"` otherwise. The precise reason (for
example token_expired or jwks_key_not_found) is logged and counted but never
sent to the client. Replace DefaultErrorHandler with WithErrorHandler; use
core.Decide to classify the error the same way.

# Disabling Authentication

	gate, err := jwtgate.New(jwtgate.WithAuthDisabled(true))

Every request, with or without a token, then proceeds with
core.DevelopmentClaims. A warning is logged when the Gate is built and on
every request. Never ship this configuration.

# Token Extraction

The default extractor reads the Authorization header; the scheme is matched
case-insensitively. Cookies and query parameters can be used too:

	jwtgate.WithTokenExtractor(jwtgate.MultiTokenExtractor(
	    jwtgate.AuthHeaderTokenExtractor,
	    jwtgate.CookieTokenExtractor("access_token"),
	))

# Logging, Metrics and Tracing

	jwtgate.WithLogger(jwtgate.NewLogrusLogger(logrus.StandardLogger()))
	jwtgate.WithMetrics(jwtgate.NewPrometheusMetrics(prometheus.DefaultRegisterer))
	jwtgate.WithTracer(jwtgate.NewOpenTelemetryTracer(otel.Tracer("jwtgate")))

*slog.Logger satisfies core.Logger directly; NewZapLogger and
NewZerologLogger adapt zap and zerolog. PrometheusMetrics also satisfies
jwks.Metrics, so one instance can serve the Gate and the key store.
*/
package jwtgate
