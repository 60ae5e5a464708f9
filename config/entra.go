package config

// EntraEndpoints are the Microsoft Entra ID values derived from a tenant and
// an application (client) id.
type EntraEndpoints struct {
	// Issuer is the v2.0 token issuer.
	Issuer string
	// V1Issuer is the issuer of v1.0 access tokens, which Entra still
	// mints for APIs whose manifest does not request v2 tokens.
	V1Issuer string
	// JWKSURL publishes the tenant's signing keys.
	JWKSURL string
	// DiscoveryURL is the OpenID configuration document of Issuer.
	DiscoveryURL string
	// Audience is the default Application ID URI.
	Audience string
	// TokenEndpoint is where clients obtain tokens.
	TokenEndpoint string
}

// Entra derives the endpoints for tenant and client.
func Entra(tenantID, clientID string) EntraEndpoints {
	base := "https://login.microsoftonline.com/" + tenantID
	e := EntraEndpoints{
		Issuer:        base + "/v2.0",
		V1Issuer:      "https://sts.windows.net/" + tenantID + "/",
		JWKSURL:       base + "/discovery/v2.0/keys",
		DiscoveryURL:  base + "/v2.0/.well-known/openid-configuration",
		TokenEndpoint: base + "/oauth2/v2.0/token",
	}
	if clientID != "" {
		e.Audience = "api://" + clientID
	}
	return e
}
