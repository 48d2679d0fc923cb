package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/s2d/internal/models"
	"github.com/desertthunder/s2d/internal/repositories"
	"github.com/desertthunder/s2d/internal/tasks"
	"github.com/urfave/cli/v3"
)

// CachePlaylist fetches a Spotify playlist and stores its tracks in the database.
//
// Tracks are also cached by every fetch made through transfers and the web page.
func (r *Runner) CachePlaylist(ctx context.Context, cmd *cli.Command) error {
	playlistURL := cmd.String("url")

	src, err := r.spotify()
	if err != nil {
		return err
	}
	cache, err := r.trackCache()
	if err != nil {
		return err
	}

	r.logger.Infof("caching Spotify playlist: %s", playlistURL)

	tracks, err := tasks.FetchPlaylist(ctx, src, cache, playlistURL)
	if err != nil {
		return err
	}

	withISRC := 0
	for _, t := range tracks {
		if t.ISRC != "" {
			withISRC++
		}
	}

	r.logger.Info("cached playlist", "tracks", len(tracks), "isrc", withISRC)
	r.writePlain("✓ Cached %d tracks\n", len(tracks))
	r.writePlain("  With ISRC: %d\n", withISRC)
	return nil
}

// CacheTracks lists tracks in the local cache.
func (r *Runner) CacheTracks(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	criteria := map[string]any{
		"service": models.ServiceSpotify,
		"limit":   cmd.Int("limit"),
	}
	if isrc := strings.ToUpper(strings.TrimSpace(cmd.String("isrc"))); isrc != "" {
		criteria["isrc"] = isrc
	}

	persisted, err := repositories.NewTrackRepository(db).List(criteria)
	if err != nil {
		return err
	}

	tracks := make([]models.Track, 0, len(persisted))
	for _, p := range persisted {
		tracks = append(tracks, p.Track())
	}

	if cmd.Bool("json") {
		return r.writeJSON(tracks, cmd.Bool("pretty"))
	}

	if len(tracks) == 0 {
		r.writePlain("No cached tracks\n")
		return nil
	}

	r.writePlain("Found %d cached tracks:\n\n", len(tracks))
	for i, t := range tracks {
		r.writePlain("%d. %s - %s\n", i+1, t.Artist(), t.Name)
		r.writePlain("   ID: %s\n", t.ID)
		if t.ISRC != "" {
			r.writePlain("   ISRC: %s\n", t.ISRC)
		}
	}
	return nil
}

// CacheRefresh re-fetches cached Spotify tracks in batches and stores their current metadata.
func (r *Runner) CacheRefresh(ctx context.Context, cmd *cli.Command) error {
	src, err := r.spotify()
	if err != nil {
		return err
	}
	db, err := r.database()
	if err != nil {
		return err
	}

	persisted, err := repositories.NewTrackRepository(db).List(map[string]any{
		"service": models.ServiceSpotify,
		"limit":   cmd.Int("limit"),
	})
	if err != nil {
		return err
	}
	if len(persisted) == 0 {
		r.writePlain("No cached tracks\n")
		return nil
	}

	ids := make([]string, 0, len(persisted))
	for _, p := range persisted {
		ids = append(ids, p.ServiceID())
	}

	cache, err := r.trackCache()
	if err != nil {
		return err
	}

	r.logger.Info("refreshing cached tracks", "count", len(ids))

	refreshed, gone, err := tasks.RefreshTracks(ctx, src, cache, ids)
	if err != nil {
		return fmt.Errorf("refreshed %d of %d tracks: %w", len(refreshed), len(ids), err)
	}

	r.writePlain("✓ Refreshed %d tracks\n", len(refreshed))
	if len(gone) > 0 {
		r.writePlain("\nNo longer on Spotify (%d):\n", len(gone))
		for _, id := range gone {
			r.writePlain("  - %s\n", id)
		}
	}
	return nil
}
