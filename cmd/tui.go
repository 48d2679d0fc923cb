package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/s2d/internal/models"
	"github.com/desertthunder/s2d/internal/shared"
	"github.com/desertthunder/s2d/internal/tasks"
	"github.com/desertthunder/s2d/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive checklist for a single playlist transfer.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	model, err := r.tuiModel(ctx, cmd)
	if err != nil {
		return err
	}

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	if result := model.Result(); result != nil && result.DeezerPlaylistURL != "" {
		r.writePlain("✓ %s\n", result.DeezerPlaylistURL)
	}
	return model.Err()
}

// tuiModel redirects logs to --log-file and builds the model over the runner's services.
func (r *Runner) tuiModel(ctx context.Context, cmd *cli.Command) (*ui.Model, error) {
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return nil, fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	src, err := r.spotify()
	if err != nil {
		return nil, err
	}
	cache, err := r.trackCache()
	if err != nil {
		return nil, err
	}
	engine, err := r.engine()
	if err != nil {
		return nil, err
	}

	playlistURL := cmd.String("url")
	fetch := func(ctx context.Context) ([]models.Track, error) {
		return tasks.FetchPlaylist(ctx, src, cache, playlistURL)
	}
	return ui.NewModel(ctx, fetch, engine, cmd.String("name")), nil
}
