package tasks

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/s2d/internal/models"
	"github.com/desertthunder/s2d/internal/services"
	"github.com/desertthunder/s2d/internal/shared"
)

// TrackCache stores fetched tracks so transfers can be resolved by ID.
//
// Implemented by repositories.TrackCacheAdapter.
type TrackCache interface {
	CacheTracks(tracks []models.Track) error
	LookupTracks(ids []string) (tracks []models.Track, missing []string, err error)
}

// TransferStore records transfer jobs. Implemented by repositories.TransferRepository.
type TransferStore interface {
	Create(job *models.TransferJob) error
	Start(job *models.TransferJob) error
	Complete(job *models.TransferJob, matched, failed int, targetPlaylistID string) error
	Fail(job *models.TransferJob, cause error) error
}

// EngineOpts configures a [TransferEngine].
type EngineOpts struct {
	MatchThreshold float64 // Minimum search similarity (default 0.8)
	SearchFallback bool    // Search by title and artist when ISRC lookup misses
	CreatePlaylist bool    // Create the Deezer playlist when a token is available
}

// TransferEngine resolves selected tracks, matches them on Deezer and optionally builds the playlist.
type TransferEngine struct {
	cache   TrackCache
	dest    services.TrackDestination
	jobs    TransferStore
	matcher *Matcher
	opts    EngineOpts
	logger  *log.Logger
}

// NewTransferEngine creates an engine. dest and jobs may be nil: without a destination
// tracks are only resolved, without a store no history is kept.
func NewTransferEngine(cache TrackCache, dest services.TrackDestination, jobs TransferStore, opts EngineOpts, logger *log.Logger) *TransferEngine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	e := &TransferEngine{
		cache:  cache,
		dest:   dest,
		jobs:   jobs,
		opts:   opts,
		logger: shared.WithLogger(logger, "component", "transfer"),
	}
	if dest != nil {
		e.matcher = NewMatcher(dest, opts.MatchThreshold, opts.SearchFallback)
	}
	return e
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func (e *TransferEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Validate applies the presence checks on a transfer request.
func Validate(req models.TransferRequest) error {
	if strings.TrimSpace(req.PlaylistName) == "" {
		return fmt.Errorf("%w: playlist name is required", shared.ErrInvalidInput)
	}
	if len(req.SelectedTrackIDs) == 0 {
		return fmt.Errorf("%w: at least one track must be selected", shared.ErrInvalidInput)
	}
	return nil
}

// Run performs a transfer of the selected, previously fetched tracks.
//
// Every selected ID must be in the cache; unknown IDs fail with [shared.ErrTrackNotFound]
// before any job is recorded.
func (e *TransferEngine) Run(ctx context.Context, req models.TransferRequest, progress chan<- ProgressUpdate) (*models.TransferResult, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.PlaylistName)

	e.sendProgress(progress, resolveUpdate(len(req.SelectedTrackIDs)))

	tracks, missing, err := e.cache.LookupTracks(req.SelectedTrackIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve selected tracks: %w", err)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: unknown track ids: %s (fetch the playlist first)", shared.ErrTrackNotFound, strings.Join(missing, ", "))
	}

	result := &models.TransferResult{
		PlaylistName: name,
		Status:       models.TransferRunning,
		Total:        len(tracks),
		Tracks:       make([]models.TransferResponse, 0, len(tracks)),
	}
	for _, t := range tracks {
		result.Tracks = append(result.Tracks, models.NewTransferResponse(t))
	}

	job := models.NewTransferJob(0, name, len(tracks))
	if e.jobs != nil {
		if err := e.jobs.Create(job); err != nil {
			return nil, fmt.Errorf("failed to record transfer: %w", err)
		}
		if err := e.jobs.Start(job); err != nil {
			return nil, fmt.Errorf("failed to start transfer: %w", err)
		}
		result.ID = job.ID()
	}

	if err := e.transfer(ctx, name, tracks, result, progress); err != nil {
		result.Status = models.TransferFailed
		if e.jobs != nil {
			if ferr := e.jobs.Fail(job, err); ferr != nil {
				e.logger.Error("failed to record transfer failure", "id", job.ID(), "err", ferr)
			}
		}
		e.logger.Error("transfer failed", "playlist", name, "err", err)
		return result, err
	}

	result.Status = models.TransferCompleted
	if e.jobs != nil {
		target := ""
		if result.DeezerPlaylistID != 0 {
			target = strconv.FormatInt(result.DeezerPlaylistID, 10)
		}
		if err := e.jobs.Complete(job, result.Matched, result.Unmatched, target); err != nil {
			e.logger.Error("failed to record transfer completion", "id", job.ID(), "err", err)
		}
	}

	e.logger.Info("transfer complete", "playlist", name, "total", result.Total, "matched", result.Matched)
	e.sendProgress(progress, doneUpdate(result))
	return result, nil
}

// transfer matches tracks and writes the playlist, filling in result.
func (e *TransferEngine) transfer(ctx context.Context, name string, tracks []models.Track, result *models.TransferResult, progress chan<- ProgressUpdate) error {
	if e.dest == nil {
		result.Unmatched = result.Total
		return nil
	}

	result.Matches = make([]models.TrackMatch, 0, len(tracks))
	deezerIDs := make([]int64, 0, len(tracks))
	seen := make(map[int64]bool, len(tracks))

	for i, t := range tracks {
		e.sendProgress(progress, matchUpdate(i+1, len(tracks), t))

		match, err := e.matcher.Match(ctx, t)
		if err != nil {
			return fmt.Errorf("matching %q: %w", t.Name, err)
		}
		result.Matches = append(result.Matches, match)

		if match.Matched() {
			result.Matched++
			if !seen[match.DeezerID] {
				seen[match.DeezerID] = true
				deezerIDs = append(deezerIDs, match.DeezerID)
			}
		} else {
			e.logger.Debug("no match", "track", t.Name, "artist", t.Artist(), "reason", match.Error)
		}
		e.sendProgress(progress, matchedUpdate(i+1, len(tracks), match))
	}
	result.Unmatched = result.Total - result.Matched

	if !e.opts.CreatePlaylist || !e.dest.CanWrite() || len(deezerIDs) == 0 {
		return nil
	}

	e.sendProgress(progress, createPlaylistUpdate(name))
	playlist, err := e.dest.CreatePlaylist(ctx, name)
	if err != nil {
		return fmt.Errorf("creating playlist: %w", err)
	}
	result.DeezerPlaylistID = playlist.ID
	result.DeezerPlaylistURL = playlist.Link

	e.sendProgress(progress, addTracksUpdate(len(deezerIDs), playlist.ID))
	if err := e.dest.AddTracks(ctx, playlist.ID, deezerIDs); err != nil {
		return fmt.Errorf("adding tracks: %w", err)
	}
	return nil
}

// ErrNothingSelected is returned when every fetched track was excluded.
var ErrNothingSelected = errors.New("no tracks left to transfer")

// SelectTracks applies exclusions to a fetched track list and returns the IDs to transfer.
func SelectTracks(tracks []models.Track, exclude []string) ([]string, error) {
	sel := models.NewSelection(tracks)
	for _, id := range exclude {
		sel.Set(strings.TrimSpace(id), false)
	}
	if sel.Count() == 0 {
		return nil, ErrNothingSelected
	}
	return sel.Selected(), nil
}
