// Package tasks orchestrates Spotify to Deezer transfers with real-time progress reporting.
//
// # Core Operations
//
//  1. [FetchPlaylist] : Fetch and cache a Spotify playlist
//     - Extracts the playlist ID from a URL, URI or bare ID
//     - Authenticates with client credentials and pages through every track
//     - Caches tracks so later transfers can be resolved by ID alone
//
//  2. [TransferEngine.Run] : Transfer a selection of fetched tracks
//     - Resolves selected IDs against the cache (unknown IDs are rejected)
//     - Matches each track on Deezer by ISRC, then by fuzzy title/artist search
//     - Creates the Deezer playlist when an access token is available
//     - Records the run as a transfer job
//
//  3. [BulkExporter.BulkExport] : Export several playlists to files
//     - Rate limited fetches feeding a worker pool
//     - Writes a manifest summarizing successes and failures
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
package tasks
