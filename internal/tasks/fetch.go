package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/s2d/internal/models"
	"github.com/desertthunder/s2d/internal/services"
)

// FetchPlaylist authenticates src, fetches every track of the playlist behind
// playlistURL and caches them when cache is non-nil.
func FetchPlaylist(ctx context.Context, src services.TrackSource, cache TrackCache, playlistURL string) ([]models.Track, error) {
	playlistID, err := services.ExtractPlaylistID(playlistURL)
	if err != nil {
		return nil, err
	}

	if err := src.Authenticate(ctx); err != nil {
		return nil, err
	}

	tracks, err := src.PlaylistTracks(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	if cache != nil {
		if err := cache.CacheTracks(tracks); err != nil {
			return nil, fmt.Errorf("failed to cache tracks: %w", err)
		}
	}
	return tracks, nil
}

// refreshBatch is the largest ID batch a source accepts in one lookup.
const refreshBatch = 50

// RefreshTracks re-fetches ids from src in batches and caches their current metadata.
//
// IDs the source no longer returns are reported in gone and left untouched in the cache.
func RefreshTracks(ctx context.Context, src services.TrackSource, cache TrackCache, ids []string) (refreshed []models.Track, gone []string, err error) {
	if err := src.Authenticate(ctx); err != nil {
		return nil, nil, err
	}

	for start := 0; start < len(ids); start += refreshBatch {
		batch := ids[start:min(start+refreshBatch, len(ids))]

		tracks, err := src.SeveralTracks(ctx, batch)
		if err != nil {
			return refreshed, gone, fmt.Errorf("failed to refresh tracks %d-%d: %w", start, start+len(batch), err)
		}

		found := make(map[string]bool, len(tracks))
		for _, t := range tracks {
			found[t.ID] = true
		}
		for _, id := range batch {
			if !found[id] {
				gone = append(gone, id)
			}
		}

		if err := cache.CacheTracks(tracks); err != nil {
			return refreshed, gone, fmt.Errorf("failed to cache tracks: %w", err)
		}
		refreshed = append(refreshed, tracks...)
	}
	return refreshed, gone, nil
}
