// Package auth implements the OAuth token lifecycle for jukebox sessions.
//
// # Token lifecycle
//
// [Manager] drives the authorization-code flow against the vendor token
// endpoint: [Manager.AuthURL] produces the redirect URL, [Manager.Authorize]
// exchanges the one-time code for a token pair, and [Manager.ValidToken]
// returns an access token that is guaranteed not to expire within the skew
// margin, refreshing it first when needed.
//
// A session moves through three states: unauthenticated, authorized, and
// back to unauthenticated on logout or when the vendor revokes the refresh
// token ([shared.ErrRefreshDenied]). A successful refresh mutates the
// session in place and is the only mutation point in the system.
//
// # Concurrency
//
// Refreshes serialize on a per-session lock: when several requests race on
// an expired session, the first performs the single upstream refresh and
// the rest observe the fresh token once the lock is released. Callers never
// receive a token whose expiry has already passed.
//
// # Storage
//
// [SessionStore] keeps sessions in memory only. Durable user data lives in
// the repositories package; credentials never do.
package auth
