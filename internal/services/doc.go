// Package services contains the playback facade over the streaming vendor's API.
//
// The [Service] interface is the contract the rest of the application codes
// against; [SpotifyService] is the Spotify Web API implementation.
//
// Implementations are deliberately dumb pipes: no token management, no
// caching, no retries. The token for each call comes from the auth package,
// every operation is a fresh upstream request, and vendor throttling is
// surfaced to the caller as a typed error with the Retry-After hint rather
// than handled here.
//
// Vendor status semantics map onto the shared error taxonomy:
//
//	401                      -> shared.ErrTokenExpired
//	403                      -> shared.ErrForbidden
//	404 + NO_ACTIVE_DEVICE   -> shared.ErrNoActiveDevice
//	429                      -> shared.ErrRateLimited
//	transport failure        -> shared.ErrNetworkFailure
//
// [NewOAuthConfig] holds the vendor's endpoint and scope knowledge so the
// auth package can stay vendor-agnostic.
package services
