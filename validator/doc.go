/*
Package validator verifies JWT bearer tokens issued by an OpenID Connect
provider such as Microsoft Entra ID, using the lestrrat-go/jwx v2 library.

# Stages

ValidateToken runs these stages in order; the first failure ends validation:

 1. Parse: structural decoding of the JWS compact token (ErrTokenMalformed)
 2. Algorithm check against the allow-list (ErrAlgorithmNotAllowed)
 3. Expiry pre-check on the untrusted claims (ErrTokenExpired)
 4. Key resolution through the KeyResolver, usually a *jwks.Store
 5. Signature verification (ErrInvalidSignature)
 6. Claims validation: exp, nbf, iss, aud, then required claims
 7. Custom claims, when configured (ErrInvalidClaims)

Parse, VerifySignature and ValidateClaims are exported so each stage can be
used and tested on its own.

# Algorithms

Only asymmetric algorithms can be allowed: RS256, RS384, RS512, PS256, PS384,
PS512, ES256, ES384, ES512 and EdDSA. The default allow-list is RS256, which
is what Entra ID signs with. HMAC algorithms and "none" are rejected both at
construction and per token, before any key lookup.

# Basic Usage

	store, err := jwks.NewStore(
	    jwks.WithURL("https://login.microsoftonline.com/<tenant>/discovery/v2.0/keys"),
	)
	if err != nil {
	    log.Fatal(err)
	}

	v, err := validator.New(
	    validator.WithKeyResolver(store),
	    validator.WithIssuer("https://login.microsoftonline.com/<tenant>/v2.0"),
	    validator.WithAdditionalIssuers("https://sts.windows.net/<tenant>/"),
	    validator.WithAudience("api://<client-id>"),
	    validator.WithRequiredClaims("sub"),
	)
	if err != nil {
	    log.Fatal(err)
	}

	claims, err := v.ValidateToken(ctx, tokenString)
	if err != nil {
	    // errors.Is(err, validator.ErrTokenExpired) and so on
	}

	if claims.HasScope("access_as_user") {
	    // ...
	}

# Clock Skew

exp and nbf are checked with a tolerance of 60 seconds by default. Use
WithAllowedClockSkew to change it.

# Custom Claims

Implement CustomClaims to decode and check provider-specific claims:

	type EntraClaims struct {
	    TenantID string `json:"tid"`
	}

	func (c *EntraClaims) Validate(ctx context.Context) error {
	    if c.TenantID == "" {
	        return errors.New("tid is required")
	    }
	    return nil
	}

	v, err := validator.New(
	    // ...
	    validator.WithCustomClaims(func() validator.CustomClaims {
	        return &EntraClaims{}
	    }),
	)

The decoded value is available as TrustedClaims.Custom.
*/
package validator
