// Package server provides HTTP routing, middleware, the JSON API and OAuth handling for the web app and CLI.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] method patterns ("POST /api/spotify/playlist").
//
// # JSON API
//
//	POST /api/spotify/playlist   {playlistUrl, clientId, clientSecret} → {tracks}
//	POST /api/spotify/transfer   {playlistName, selectedTrackIds}      → TransferResult
//	GET  /api/transfers          recent transfers (?status=, ?limit=)
//	GET  /api/transfers/{id}     one transfer
//	GET  /health                 {status: "ok"}
//
// Failures are always {error} with a status from [StatusFor]. Transfers only accept
// IDs of tracks fetched earlier, so a selection can never reach outside the fetched playlist.
//
// # OAuth Callback Handler
//
// [OAuthHandler] implements the Deezer authorization code flow.
//
// The handler validates the state parameter (CSRF protection), exchanges the authorization code for tokens,
// and sends the result through a channel. Each state is accepted once to prevent replay attacks.
//
// The CLI uses it on a temporary server for `deezer auth`; the web app mounts it at /auth/deezer so the
// token lives in memory for the lifetime of the process.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
