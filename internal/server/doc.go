// Package server provides HTTP routing, middleware, and OAuth callback handling.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
// [Logging] and [Recover] are the stock middleware used by the web application.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the OAuth2 authorization code callback for the
// CLI login flow: it validates the state parameter (CSRF protection), hands
// the code to the token manager for exchange, and sends the resulting
// session through a channel. It only processes one callback to prevent
// replay. When the user runs `jukebox auth login`, a temporary HTTP server
// starts on the configured port, handles the callback, and shuts down after
// receiving the token pair.
//
// The browser-facing web application (internal/web) registers its own
// callback route on top of this package's router instead.
package server
