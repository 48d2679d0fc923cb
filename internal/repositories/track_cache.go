package repositories

import (
	"errors"
	"fmt"

	"github.com/desertthunder/s2d/internal/models"
	"github.com/desertthunder/s2d/internal/shared"
)

// TrackCacheAdapter implements tasks.TrackCache using TrackRepository.
//
// Deduplicates on service+service_id. A refetch refreshes metadata of tracks already cached.
type TrackCacheAdapter struct {
	repo    *TrackRepository
	service string
}

// NewTrackCacheAdapter creates a new TrackCacheAdapter for Spotify tracks
func NewTrackCacheAdapter(repo *TrackRepository) *TrackCacheAdapter {
	return &TrackCacheAdapter{repo: repo, service: models.ServiceSpotify}
}

// CacheTrack inserts the track, or updates it when it is already cached.
//
// Unchanged tracks are left alone. Concurrent callers caching the same track converge on one row.
func (a *TrackCacheAdapter) CacheTrack(track models.Track) error {
	existing, err := a.repo.GetByServiceID(a.service, track.ID)
	if err == nil &&
		existing.Track().Name == track.Name &&
		existing.Artists() == models.EncodeArtists(track.Artists) &&
		existing.Album() == track.Album &&
		existing.ISRC() == track.ISRC &&
		existing.URI() == track.URI {
		return nil
	}
	if err != nil && !errors.Is(err, shared.ErrTrackNotFound) {
		return err
	}

	if err := a.repo.Upsert(models.NewPersistedTrack(0, a.service, track)); err != nil {
		return fmt.Errorf("failed to cache track %s: %w", track.ID, err)
	}
	return nil
}

// CacheTracks caches every track, skipping repeated IDs within the batch.
func (a *TrackCacheAdapter) CacheTracks(tracks []models.Track) error {
	seen := make(map[string]bool, len(tracks))
	for _, t := range tracks {
		if t.ID == "" || seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		if err := a.CacheTrack(t); err != nil {
			return err
		}
	}
	return nil
}

// LookupTracks returns cached tracks for ids in the given order, with duplicates removed.
// IDs that were never cached are returned in missing.
func (a *TrackCacheAdapter) LookupTracks(ids []string) (tracks []models.Track, missing []string, err error) {
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		cached, err := a.repo.GetByServiceID(a.service, id)
		if errors.Is(err, shared.ErrTrackNotFound) {
			missing = append(missing, id)
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		tracks = append(tracks, cached.Track())
	}
	return tracks, missing, nil
}
