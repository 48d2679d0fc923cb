package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/desertthunder/s2d/internal/formatter"
	"github.com/desertthunder/s2d/internal/services"
	"github.com/desertthunder/s2d/internal/shared"
	"github.com/desertthunder/s2d/internal/tasks"
	"github.com/urfave/cli/v3"
)

// SpotifyTracks fetches one playlist, caches its tracks and prints or writes it.
func (r *Runner) SpotifyTracks(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	playlistID, err := services.ExtractPlaylistID(cmd.String("url"))
	if err != nil {
		return err
	}

	src, err := r.spotify()
	if err != nil {
		return err
	}
	if err := src.Authenticate(ctx); err != nil {
		return err
	}

	r.logger.Info("exporting spotify playlist", "id", playlistID, "format", format)

	export, err := src.ExportPlaylist(ctx, playlistID)
	if err != nil {
		return err
	}

	if cache, err := r.trackCache(); err != nil {
		r.logger.Warn("track cache unavailable", "error", err)
	} else if err := cache.CacheTracks(export.Tracks); err != nil {
		r.logger.Warn("failed to cache tracks", "error", err)
	}

	outputFile := cmd.String("output")
	if outputFile == "" {
		return formatter.Export(r.output, format, export)
	}

	f, err := os.Create(outputFile)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", outputFile, err)
	}
	defer f.Close()

	if err := formatter.Export(f, format, export); err != nil {
		return err
	}

	r.logger.Infof("playlist exported to %v with %v tracks", outputFile, len(export.Tracks))
	r.writePlain("✓ Playlist exported to %s\n", outputFile)
	r.writePlain("  Playlist: %s\n", export.Playlist.Name)
	r.writePlain("  Tracks: %d\n", len(export.Tracks))
	return nil
}

// SpotifyTrack looks up one track by ID, caches it and prints it.
func (r *Runner) SpotifyTrack(ctx context.Context, cmd *cli.Command) error {
	id := strings.TrimSpace(cmd.StringArg("id"))
	if id == "" {
		return fmt.Errorf("%w: track id is required", shared.ErrMissingArgument)
	}

	src, err := r.spotify()
	if err != nil {
		return err
	}
	if err := src.Authenticate(ctx); err != nil {
		return err
	}

	track, err := src.Track(ctx, id)
	if err != nil {
		return err
	}

	if cache, err := r.trackCache(); err != nil {
		r.logger.Warn("track cache unavailable", "error", err)
	} else if err := cache.CacheTrack(*track); err != nil {
		r.logger.Warn("failed to cache track", "error", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(track, cmd.Bool("pretty"))
	}

	r.writePlain("%s - %s\n", track.Artist(), track.Name)
	if track.Album != "" {
		r.writePlain("   Album: %s\n", track.Album)
	}
	r.writePlain("   ID: %s\n", track.ID)
	if track.ISRC != "" {
		r.writePlain("   ISRC: %s\n", track.ISRC)
	} else {
		r.writePlain("   No ISRC (Deezer matching will fall back to search)\n")
	}
	return nil
}

// SpotifyExport exports every playlist given as an argument or --id.
func (r *Runner) SpotifyExport(ctx context.Context, cmd *cli.Command) error {
	ids := append(cmd.Args().Slice(), cmd.StringSlice("id")...)
	if len(ids) == 0 {
		return fmt.Errorf("%w: at least one playlist is required", shared.ErrMissingArgument)
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	src, err := r.spotify()
	if err != nil {
		return err
	}

	opts := tasks.BulkExportOpts{
		Format:     format,
		OutputDir:  cmd.String("output"),
		NumWorkers: cmd.Int("workers"),
		RateLimit:  cmd.Float("rate"),
	}

	r.writePlain("Exporting %d playlists as %s...\n\n", len(ids), format)

	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		r.printExportProgress(progress)
	}()

	result, err := tasks.NewBulkExporter(src).BulkExport(ctx, progress, ids, opts)
	close(progress)
	<-done

	if err != nil {
		return err
	}

	r.writePlainln("")
	r.writePlainHeader("Export Complete")
	r.writePlain("Directory: %s\n", result.OutputDirectory)
	r.writePlain("Exported: %d/%d playlists\n", result.SuccessfulExports, result.TotalPlaylists)
	if result.ManifestPath != "" {
		r.writePlain("Manifest: %s\n", result.ManifestPath)
	}

	if result.FailedExports > 0 {
		r.writePlain("\nFailed to export %d playlists:\n", result.FailedExports)
		for _, res := range result.Results {
			if !res.Success {
				r.writePlain("  - %s: %s\n", res.PlaylistID, res.ErrorMessage)
			}
		}
	}
	return nil
}

func (r *Runner) printExportProgress(progress <-chan tasks.ProgressUpdate) {
	for update := range progress {
		switch update.Phase {
		case tasks.FetchSource:
			r.writePlain("📥 %s\n", update.Message)
		case tasks.ExportPlaylist:
			r.writePlain("   %s\n", update.Message)
		}
	}
}
