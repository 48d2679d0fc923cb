package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/desertthunder/s2d/internal/models"
	"github.com/desertthunder/s2d/internal/services"
	"github.com/desertthunder/s2d/internal/shared"
	"github.com/urfave/cli/v3"
)

// RemoteHealth checks that a server is answering.
func (r *Runner) RemoteHealth(ctx context.Context, cmd *cli.Command) error {
	if err := r.remote(cmd).Health(ctx); err != nil {
		return err
	}
	r.writePlain("✓ Server is healthy\n")
	return nil
}

// RemoteGet makes a direct GET request to the server.
func (r *Runner) RemoteGet(ctx context.Context, cmd *cli.Command) error {
	path, err := apiPath(cmd.StringArg("path"))
	if err != nil {
		return err
	}

	r.logger.Info("GET request", "path", path)

	resp, err := r.remote(cmd).Get(ctx, path)
	if err != nil {
		return err
	}
	if err := resp.Err(); err != nil {
		return err
	}
	return r.writeResponse(resp, !cmd.Bool("json") || cmd.Bool("pretty"))
}

// RemotePost makes a direct POST request to the server.
func (r *Runner) RemotePost(ctx context.Context, cmd *cli.Command) error {
	path, err := apiPath(cmd.StringArg("path"))
	if err != nil {
		return err
	}

	data := cmd.String("data")
	if data == "" {
		return fmt.Errorf("%w: --data flag is required", shared.ErrMissingArgument)
	}

	if !json.Valid([]byte(data)) {
		return fmt.Errorf("%w: data is not valid JSON", shared.ErrInvalidInput)
	}

	r.logger.Info("POST request", "path", path)

	resp, err := r.remote(cmd).Post(ctx, path, []byte(data))
	if err != nil {
		return err
	}
	if err := resp.Err(); err != nil {
		return err
	}
	return r.writeResponse(resp, true)
}

// RemoteFetch fetches a playlist through the server, which caches it for a later transfer.
func (r *Runner) RemoteFetch(ctx context.Context, cmd *cli.Command) error {
	req := models.FetchRequest{
		PlaylistURL:  cmd.String("url"),
		ClientID:     cmd.String("client-id"),
		ClientSecret: cmd.String("client-secret"),
	}
	if req.ClientID == "" {
		req.ClientID = r.config.Credentials.Spotify.ClientID
	}
	if req.ClientSecret == "" {
		req.ClientSecret = r.config.Credentials.Spotify.ClientSecret
	}

	tracks, err := r.remote(cmd).FetchPlaylist(ctx, req)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(models.FetchResponse{Tracks: tracks}, cmd.Bool("pretty"))
	}

	r.writePlain("Fetched %d tracks:\n\n", len(tracks))
	for i, t := range tracks {
		isrc := "No ISRC"
		if t.ISRC != "" {
			isrc = "ISRC: " + t.ISRC
		}
		r.writePlain("%d. %s - %s\n", i+1, t.Artist(), t.Name)
		r.writePlain("   ID: %s (%s)\n", t.ID, isrc)
	}
	return nil
}

// RemoteTransfer submits track IDs from an earlier fetch for transfer.
func (r *Runner) RemoteTransfer(ctx context.Context, cmd *cli.Command) error {
	req := models.TransferRequest{
		PlaylistName:     cmd.String("name"),
		SelectedTrackIDs: cmd.StringSlice("track"),
	}

	result, err := r.remote(cmd).Transfer(ctx, req)
	if err != nil {
		return err
	}
	return r.writeJSON(result, cmd.Bool("pretty"))
}

func (r *Runner) writeResponse(resp *services.APIResponse, pretty bool) error {
	if resp.IsJSON {
		return r.writeJSON(resp.JSONData, pretty)
	}
	return r.writePlain("%s\n", resp.Body)
}

func apiPath(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("%w: path is required", shared.ErrMissingArgument)
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path, nil
}
