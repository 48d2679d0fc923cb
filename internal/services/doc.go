// Package services implements the HTTP clients for the services involved in a transfer.
//
// # Spotify
//
// [SpotifyService] authenticates with the client credentials flow
// ([clientcredentials.Config]); no user login is needed to read public playlists.
// Tokens are cached and refreshed by the [oauth2.TokenSource].
// Playlist items are fetched 100 at a time until a short page is returned.
//
// # Deezer
//
// [DeezerService] reads from the public API (ISRC lookup, search) and writes
// playlists with a user access token obtained through [DeezerService.GetAuthURL]
// and [DeezerService.Exchange]. Deezer reports most errors with HTTP 200 and an
// "error" envelope; these are mapped to the same sentinels as HTTP failures.
//
// # Backend
//
// [BackendClient] calls this application's own JSON API, the same two requests
// the browser page makes.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrInvalidCredentials] : client id/secret rejected by the token endpoint
//   - [shared.ErrNotAuthenticated] : missing or expired access token
//   - [shared.ErrPlaylistNotFound] : playlist ID not found
//   - [shared.ErrTrackNotFound] : track or ISRC not found
//   - [shared.ErrRateLimited] : upstream quota exceeded
//   - [shared.ErrAPIRequest] : any other failed request
//
// All clients throttle outgoing requests with a [rate.Limiter].
package services
