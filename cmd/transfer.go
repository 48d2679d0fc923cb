package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/s2d/internal/models"
	"github.com/desertthunder/s2d/internal/shared"
	"github.com/desertthunder/s2d/internal/tasks"
	"github.com/urfave/cli/v3"
)

// TransferRun fetches a Spotify playlist, drops excluded tracks and transfers the rest to Deezer.
func (r *Runner) TransferRun(ctx context.Context, cmd *cli.Command) error {
	playlistURL := cmd.String("url")
	name := strings.TrimSpace(cmd.String("name"))
	useJSON := cmd.Bool("json")

	src, err := r.spotify()
	if err != nil {
		return err
	}
	cache, err := r.trackCache()
	if err != nil {
		return err
	}
	engine, err := r.engine()
	if err != nil {
		return err
	}

	r.logger.Info("starting transfer", "source", playlistURL, "name", name)
	if !useJSON {
		r.writePlain("Starting playlist transfer...\n")
		r.writePlain("Source: %s\n", playlistURL)
		r.writePlain("Destination: %s\n\n", name)
	}

	tracks, err := tasks.FetchPlaylist(ctx, src, cache, playlistURL)
	if err != nil {
		return err
	}

	ids, err := tasks.SelectTracks(tracks, cmd.StringSlice("exclude"))
	if err != nil {
		return err
	}

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			if !useJSON {
				r.printTransferProgress(update)
			}
		}
	}()

	result, err := engine.Run(ctx, models.TransferRequest{PlaylistName: name, SelectedTrackIDs: ids}, progressCh)
	close(progressCh)
	<-done

	if err != nil {
		return err
	}

	if useJSON {
		return r.writeJSON(result, cmd.Bool("pretty"))
	}

	r.writePlainln("")
	r.writePlainHeader("Transfer Complete!")
	r.writePlain("Fetched: %d tracks, selected %d\n", len(tracks), result.Total)
	if result.DeezerPlaylistURL != "" {
		r.writePlain("Deezer playlist: %s\n", result.DeezerPlaylistURL)
	} else {
		r.writePlain("No Deezer playlist created (run 's2d deezer auth' to enable)\n")
	}
	if result.Total > 0 {
		r.writePlain("Success rate: %d/%d (%.1f%%)\n", result.Matched, result.Total, float64(result.Matched)/float64(result.Total)*100)
	}

	if result.Unmatched > 0 && len(result.Matches) > 0 {
		r.writePlain("\nFailed to match %d tracks:\n", result.Unmatched)
		for _, match := range result.Matches {
			if !match.Matched() {
				r.writePlain("  - %s - %s\n", match.Artist, match.Title)
			}
		}
	}
	return nil
}

func (r *Runner) printTransferProgress(update tasks.ProgressUpdate) {
	switch update.Phase {
	case tasks.Resolve:
		r.writePlain("📥 %s\n", update.Message)
	case tasks.Match:
		if _, ok := update.Data.(models.TrackMatch); ok {
			r.writePlain("   %s\n", update.Message)
		}
	case tasks.CreatePlaylist, tasks.AddTracks:
		r.writePlain("\n📝 %s\n", update.Message)
	}
}

// TransferList prints recorded transfers, newest first.
func (r *Runner) TransferList(ctx context.Context, cmd *cli.Command) error {
	status := models.TransferStatus(cmd.String("status"))
	if status != "" && !status.Valid() {
		return fmt.Errorf("%w: unknown status %q", shared.ErrInvalidArgument, status)
	}

	repo, err := r.transfers()
	if err != nil {
		return err
	}

	jobs, err := repo.List(map[string]any{"status": status, "limit": cmd.Int("limit")})
	if err != nil {
		return err
	}

	summaries := make([]models.TransferSummary, 0, len(jobs))
	for _, job := range jobs {
		summaries = append(summaries, job.Summary())
	}

	if cmd.Bool("json") {
		return r.writeJSON(summaries, cmd.Bool("pretty"))
	}

	if len(summaries) == 0 {
		r.writePlain("No transfers recorded\n")
		return nil
	}

	r.writePlain("Found %d transfers:\n\n", len(summaries))
	for i, s := range summaries {
		r.writePlain("%d. %s [%s]\n", i+1, s.PlaylistName, s.Status)
		r.writePlain("   ID: %s\n", s.ID)
		r.writePlain("   Matched: %d/%d\n", s.Matched, s.Total)
		if s.Error != "" {
			r.writePlain("   Error: %s\n", s.Error)
		}
		r.writePlain("   Created: %s\n\n", s.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

// TransferShow prints a single transfer.
func (r *Runner) TransferShow(ctx context.Context, cmd *cli.Command) error {
	id := strings.TrimSpace(cmd.StringArg("id"))
	if id == "" {
		return fmt.Errorf("%w: transfer id is required", shared.ErrMissingArgument)
	}

	repo, err := r.transfers()
	if err != nil {
		return err
	}

	job, err := repo.Get(id)
	if err != nil {
		return err
	}
	summary := job.Summary()

	if cmd.Bool("json") {
		return r.writeJSON(summary, cmd.Bool("pretty"))
	}

	r.writePlainHeader(summary.PlaylistName)
	r.writePlain("ID: %s\n", summary.ID)
	r.writePlain("Status: %s\n", summary.Status)
	r.writePlain("Matched: %d/%d (failed %d)\n", summary.Matched, summary.Total, summary.Failed)
	if summary.DeezerPlaylistID != "" {
		r.writePlain("Deezer playlist: https://www.deezer.com/playlist/%s\n", summary.DeezerPlaylistID)
	}
	if summary.Error != "" {
		r.writePlain("Error: %s\n", summary.Error)
	}
	return nil
}
