package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/s2d/internal/repositories"
	"github.com/desertthunder/s2d/internal/server"
	"github.com/desertthunder/s2d/internal/services"
	"github.com/desertthunder/s2d/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const oauthTimeout = 2 * time.Minute

// DeezerAuth runs the authorization code flow and stores the access token in the config.
func (r *Runner) DeezerAuth(ctx context.Context, cmd *cli.Command) error {
	if r.oauth == nil {
		return fmt.Errorf("%w: deezer client not initialized", shared.ErrServiceUnavailable)
	}

	creds := r.config.Credentials.Deezer
	if creds.AppID == "" || creds.Secret == "" {
		return fmt.Errorf("%w: deezer app_id and secret must be set in %s", shared.ErrMissingCredentials, r.configFile())
	}

	token, err := r.doOAuth(ctx, cmd.Duration("timeout"))
	if err != nil {
		return err
	}

	if err := r.saveToken(token); err != nil {
		return err
	}

	r.writePlainln("✓ Authorization successful")
	if r.configPath != "" {
		r.writePlain("✓ Token saved to %s\n\n", r.configPath)
	}
	r.writePlain("You can now use: s2d transfer run --url <playlist>\n")
	return nil
}

// doOAuth serves the login and callback routes locally and waits for the browser to finish.
func (r *Runner) doOAuth(ctx context.Context, timeout time.Duration) (*oauth2.Token, error) {
	if timeout <= 0 {
		timeout = oauthTimeout
	}

	oauthHandler := server.NewOAuthHandler(r.oauth)
	router := server.NewBasicRouter()
	router.Handler(oauthHandler)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srv := server.New(r.config.Server.Addr(), router, shared.WithLogger(r.logger, "component", "oauth"))
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Run(ctx)
	}()

	var addr string
	select {
	case addr = <-srv.Ready():
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	}

	loginURL := "http://" + addr + "/auth/deezer"
	r.writePlain("→ Opening browser for Deezer authorization...\n")
	if err := r.openURL(loginURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", loginURL)
	}

	r.writePlain("→ Waiting for authorization (%s timeout)...\n", timeout)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var result server.OAuthResult
	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		if err == nil {
			err = errors.New("server stopped")
		}
		return nil, fmt.Errorf("server error: %w", err)
	case <-timer.C:
		return nil, fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	cancel()
	if err := <-serverErrors; err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}
	if result.Token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}
	return result.Token, nil
}

// DeezerSearch looks a track up on Deezer by ISRC, or by title and artist.
func (r *Runner) DeezerSearch(ctx context.Context, cmd *cli.Command) error {
	if r.dest == nil {
		return fmt.Errorf("%w: deezer client not initialized", shared.ErrServiceUnavailable)
	}

	query := cmd.StringArg("query")
	isrc := cmd.String("isrc")
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	var tracks []services.DeezerTrack
	switch {
	case isrc != "":
		r.logger.Info("looking up deezer track", "isrc", isrc)
		track, err := r.dest.TrackByISRC(ctx, isrc)
		if err != nil {
			return err
		}
		tracks = []services.DeezerTrack{*track}
	case query != "":
		r.logger.Info("searching deezer", "query", query, "artist", cmd.String("artist"))
		found, err := r.dest.SearchTracks(ctx, query, cmd.String("artist"))
		if err != nil {
			return err
		}
		tracks = found
	default:
		return fmt.Errorf("%w: a query or --isrc is required", shared.ErrMissingArgument)
	}

	if useJSON {
		return r.writeJSON(tracks, pretty)
	}

	if len(tracks) == 0 {
		r.writePlain("No tracks found\n")
		return nil
	}

	if isrc != "" {
		r.writeCachedISRC(isrc)
	}

	r.writePlain("Found %d tracks:\n\n", len(tracks))
	for i, track := range tracks {
		r.writePlain("%d. %s - %s\n", i+1, track.Artist.Name, track.Title)
		if track.Album.Title != "" {
			r.writePlain("   Album: %s\n", track.Album.Title)
		}
		r.writePlain("   ID: %d\n", track.ID)
		if track.Duration > 0 {
			r.writePlain("   Duration: %d:%02d\n", track.Duration/60, track.Duration%60)
		}
		if track.ISRC != "" {
			r.writePlain("   ISRC: %s\n", track.ISRC)
		}
	}
	return nil
}

// writeCachedISRC prints the cached Spotify track carrying isrc, if any.
func (r *Runner) writeCachedISRC(isrc string) {
	db, err := r.database()
	if err != nil {
		r.logger.Warn("track cache unavailable", "error", err)
		return
	}

	cached, err := repositories.NewTrackRepository(db).GetByISRC(strings.ToUpper(strings.TrimSpace(isrc)))
	switch {
	case errors.Is(err, shared.ErrTrackNotFound):
		return
	case err != nil:
		r.logger.Warn("failed to look up cached track", "isrc", isrc, "error", err)
		return
	}

	track := cached.Track()
	r.writePlain("Cached Spotify track: %s - %s (%s)\n\n", track.Artist(), track.Name, track.ID)
}
