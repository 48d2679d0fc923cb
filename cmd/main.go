package main

import (
	"context"
	"errors"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/s2d/internal/services"
	"github.com/desertthunder/s2d/internal/shared"
	"github.com/urfave/cli/v3"
)

const defaultConfigPath = "config.toml"

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat(defaultConfigPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(defaultConfigPath); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config, using defaults", "error", err)
		}
	}

	if err := shared.LoadEnv(config, ".env"); err != nil {
		logger.Fatalf("environment error: %v", err)
	}

	deezer := services.NewDeezerService(map[string]string{
		"app_id":       config.Credentials.Deezer.AppID,
		"secret":       config.Credentials.Deezer.Secret,
		"redirect_uri": config.Credentials.Deezer.RedirectURI,
		"access_token": config.Credentials.Deezer.AccessToken,
	})

	runner := NewRunner(RunnerOpts{
		Config:      config,
		ConfigPath:  defaultConfigPath,
		Sources:     services.NewSpotifySourceFactory(),
		Destination: deezer,
		OAuth:       deezer,
		Logger:      logger,
	})
	defer runner.Close()

	app := &cli.Command{
		Name:    "s2d",
		Usage:   "Move Spotify playlists to Deezer",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("verbose") {
				shared.SetLogLevel(logger, log.DebugLevel)
			}
			return ctx, nil
		},
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		}
		runner.Close()
		logger.Fatalf("application error: %v", err)
	}
}
