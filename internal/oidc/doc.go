/*
Package oidc implements the small part of OpenID Connect Discovery the gate
needs: locating an issuer's key document.

The configuration document is fetched from

	{issuer}/.well-known/openid-configuration

and accepted only when it carries a jwks_uri and its issuer field equals the
issuer it was requested for. A document that declares another issuer would
let one provider's keys vouch for tokens minted by another.

	cfg, err := oidc.Discover(ctx, &http.Client{Timeout: 10 * time.Second}, issuer)
	if err != nil {
		return err
	}
	store, err := jwks.NewStore(jwks.WithURL(cfg.JWKSURI))

See https://openid.net/specs/openid-connect-discovery-1_0.html.
*/
package oidc
