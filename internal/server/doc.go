// Package server provides HTTP routing, middleware, OAuth callback parsing and the server lifecycle for the
// playlist web service.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Middleware
//
// [Defaults] builds the stack the web app runs with:
//   - [RequestID] : reuse or assign X-Request-ID
//   - chi's RealIP : trust proxy headers (only when configured)
//   - [Logger] : one log line per request
//   - chi's Recoverer : panics become 500s
//
// # OAuth Callback
//
// [ParseCallback] and [Callback.Verify] validate the state parameter issued with the authorize redirect
// (CSRF protection) and pull out the authorization code or the provider's error.
//
// # Lifecycle
//
// [Serve] runs the server until its context is cancelled and then drains in-flight requests for up to
// [ShutdownTimeout].
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
