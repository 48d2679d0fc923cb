// Package models defines domain entities and persistence interfaces for the s2d playlist migration service.
//
// The package contains three categories of types:
//
// 1. Wire types: JSON shapes exchanged with the browser page and the CLI
//   - [Track] : Song metadata with ISRC for cross-service matching
//   - [FetchRequest], [FetchResponse] : POST /api/spotify/playlist
//   - [TransferRequest], [TransferResponse], [TransferResult] : POST /api/spotify/transfer
//   - [ErrorResponse] : {"error": "..."} body returned on failure
//
// 2. Presentation state: [Selection] tracks which fetched tracks are checked.
// Selected ids are always a subset of the fetched ids.
//
// 3. Persistent Entities: Database-backed models with full lifecycle management
//   - [PersistedTrack] : Cached tracks keyed by service and service id
//   - [TransferJob] : Transfer operations tracking progress and results
//
// All persistent entities implement the Model interface providing ID generation, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
