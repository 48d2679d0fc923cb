// Package repositories implements SQLite persistence for cached tracks and transfer history.
//
// Each repository handles CRUD operations with atomic sequence generation for human-readable ordering.
// All repositories support soft deletes via deleted_at timestamps and exclude deleted records from queries by default.
//
// Key Implementations:
//   - [TrackRepository] : Spotify track cache with ISRC lookups
//   - [TrackCacheAdapter] : Bulk upsert of fetched playlists and lookup of selected IDs
//   - [TransferRepository] : Transfer job history with status tracking
//
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
