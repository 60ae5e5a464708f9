/*
Package jwks fetches and caches the signing keys an identity provider
publishes as a JSON Web Key Set.

# Overview

A Store resolves key ids (the "kid" header of a JWT) to VerificationKeys:
  - Keys are fetched lazily on first use, or eagerly with Prefetch
  - A fetched KeySet is fresh for the refresh interval (default 15 minutes),
    extended by the provider's Cache-Control max-age
  - Hits past 80% of the interval trigger a background refresh
  - An unknown kid on a fresh set triggers one refresh, rate limited by the
    minimum refresh interval (default 5 seconds)
  - Concurrent refreshes collapse into a single fetch
  - Conditional requests (If-None-Match) avoid re-downloading unchanged sets

# Failure Handling

A key document that fails to fetch or parse never replaces the current set.
While the source is down, keys from the last good set keep resolving until
the set is older than the maximum staleness (default 6 hours); after that
Resolve returns ErrKeySetExpired. Before the first successful fetch, lookups
fail with ErrKeySourceUnavailable.

After a failed refresh the store backs off: stale hits answer from the cached
set at once, and the refresh is retried in the background no more than once
per minimum refresh interval.

Documents are validated as a whole: an entry without a kid, a duplicate kid,
a symmetric or private key, an RSA key under 2048 bits, or an "alg" that does
not match the key type rejects the document. Entries with "use":"enc" are
skipped.

# Basic Usage

	store, err := jwks.NewStore(
	    jwks.WithURL("https://login.microsoftonline.com/<tenant>/discovery/v2.0/keys"),
	)
	if err != nil {
	    log.Fatal(err)
	}

	key, err := store.Resolve(ctx, kid)

# Sharing Fetches Across Replicas

RedisSource mirrors the document of another Source in Redis, so a fleet of
replicas fetches from the identity provider about once per mirror TTL:

	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	httpSource, _ := jwks.NewHTTPSource(jwksURL, nil)
	mirror, _ := jwks.NewRedisSource(client, httpSource)

	store, err := jwks.NewStore(jwks.WithSource(mirror))

Redis errors are logged and fall through to the wrapped source. A mirrored
set is dated from when it was stored, so it ages the same on every replica.
RedisSource is a CachingSource: an unknown kid, an Invalidate, or a mirrored
document older than the refresh interval makes the store fetch from the
provider directly and rewrite the mirror.
*/
package jwks
