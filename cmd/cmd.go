// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func formatFlag(value string) cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, csv, markdown or txt",
		Value:   value,
	}
}

func jsonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print output",
		},
	}
}

func serverFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "server",
		Aliases: []string{"s"},
		Usage:   "Base URL of a running s2d server",
		Value:   "http://localhost:3000",
		Sources: cli.EnvVars("S2D_SERVER"),
	}
}

// setupCommand initializes local state
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create the config file and database",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Write a config file from the bundled template",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing file",
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recent migration instead",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// serveCommand runs the web application
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the web page and JSON API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Interface to bind (overrides config)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on (overrides config)",
			},
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the page in a browser once listening",
			},
		},
		Action: r.Serve,
	}
}

// spotifyCommand handles Spotify reads
func spotifyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "spotify",
		Aliases: []string{"spot"},
		Usage:   "Spotify playlist operations",
		Commands: []*cli.Command{
			{
				Name:  "tracks",
				Usage: "Fetch a playlist's tracks and cache them",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "url",
						Aliases:  []string{"u"},
						Usage:    "Playlist URL, URI or ID",
						Required: true,
					},
					formatFlag("txt"),
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write to this file instead of stdout",
					},
				},
				Action: r.SpotifyTracks,
			},
			{
				Name:  "track",
				Usage: "Look up a single track and cache it",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags:  jsonFlags(),
				Action: r.SpotifyTrack,
			},
			{
				Name:      "export",
				Usage:     "Export several playlists concurrently",
				ArgsUsage: "[playlist...]",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  "id",
						Usage: "Playlist URL, URI or ID (repeatable)",
					},
					formatFlag("json"),
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output directory (default spotify_export_{epoch})",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent writers (max 10)",
						Value: 5,
					},
					&cli.FloatFlag{
						Name:  "rate",
						Usage: "Playlist fetches per second",
						Value: 5,
					},
				},
				Action: r.SpotifyExport,
			},
		},
	}
}

// deezerCommand handles Deezer authorization and lookups
func deezerCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "deezer",
		Usage: "Deezer operations",
		Commands: []*cli.Command{
			{
				Name:  "auth",
				Usage: "Authorize s2d to create playlists on your Deezer account",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the browser callback",
						Value: oauthTimeout,
					},
				},
				Action: r.DeezerAuth,
			},
			{
				Name:  "search",
				Usage: "Find a track on Deezer by ISRC or title",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "query"},
				},
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  "artist",
						Usage: "Artist to narrow the title search",
					},
					&cli.StringFlag{
						Name:  "isrc",
						Usage: "Look up by ISRC instead of searching",
					},
				}, jsonFlags()...),
				Action: r.DeezerSearch,
			},
		},
	}
}

// transferCommand runs and inspects transfers
func transferCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "transfer",
		Usage: "Transfer a Spotify playlist to Deezer",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Fetch, match and build the Deezer playlist",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:     "url",
						Aliases:  []string{"u"},
						Usage:    "Spotify playlist URL, URI or ID",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "name",
						Aliases:  []string{"n"},
						Usage:    "Deezer playlist name",
						Required: true,
					},
					&cli.StringSliceFlag{
						Name:    "exclude",
						Aliases: []string{"x"},
						Usage:   "Spotify track ID to leave out (repeatable)",
					},
				}, jsonFlags()...),
				Action: r.TransferRun,
			},
			{
				Name:  "list",
				Usage: "Show recent transfers",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  "status",
						Usage: "Filter by status: pending, running, completed, failed",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of transfers",
						Value: 20,
					},
				}, jsonFlags()...),
				Action: r.TransferList,
			},
			{
				Name:  "show",
				Usage: "Show one transfer",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags:  jsonFlags(),
				Action: r.TransferShow,
			},
		},
	}
}

// cacheCommand handles the local track cache
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect and fill the local track cache",
		Commands: []*cli.Command{
			{
				Name:  "playlist",
				Usage: "Cache every track of a Spotify playlist",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "url",
						Aliases:  []string{"u"},
						Usage:    "Playlist URL, URI or ID",
						Required: true,
					},
				},
				Action: r.CachePlaylist,
			},
			{
				Name:  "tracks",
				Usage: "List cached tracks",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  "isrc",
						Usage: "Only tracks with this ISRC",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of tracks",
						Value: 50,
					},
				}, jsonFlags()...),
				Action: r.CacheTracks,
			},
			{
				Name:  "refresh",
				Usage: "Re-fetch cached tracks from Spotify and update their metadata",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of tracks (0 for all)",
					},
				},
				Action: r.CacheRefresh,
			},
		},
	}
}

// remoteCommand talks to a running server
func remoteCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "remote",
		Usage: "Call the JSON API of a running s2d server",
		Commands: []*cli.Command{
			{
				Name:   "health",
				Usage:  "Check that the server is up",
				Flags:  []cli.Flag{serverFlag()},
				Action: r.RemoteHealth,
			},
			{
				Name:  "get",
				Usage: "GET an API path",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Flags:  append([]cli.Flag{serverFlag()}, jsonFlags()...),
				Action: r.RemoteGet,
			},
			{
				Name:  "post",
				Usage: "POST a JSON body to an API path",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "path"},
				},
				Flags: []cli.Flag{
					serverFlag(),
					&cli.StringFlag{
						Name:    "data",
						Aliases: []string{"d"},
						Usage:   "JSON request body",
					},
				},
				Action: r.RemotePost,
			},
			{
				Name:  "fetch",
				Usage: "Fetch a playlist through the server",
				Flags: append([]cli.Flag{
					serverFlag(),
					&cli.StringFlag{
						Name:     "url",
						Aliases:  []string{"u"},
						Usage:    "Playlist URL",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "client-id",
						Usage:   "Spotify client ID (defaults to config)",
						Sources: cli.EnvVars("S2D_SPOTIFY_CLIENT_ID"),
					},
					&cli.StringFlag{
						Name:    "client-secret",
						Usage:   "Spotify client secret (defaults to config)",
						Sources: cli.EnvVars("S2D_SPOTIFY_CLIENT_SECRET"),
					},
				}, jsonFlags()...),
				Action: r.RemoteFetch,
			},
			{
				Name:  "transfer",
				Usage: "Submit previously fetched tracks for transfer",
				Flags: []cli.Flag{
					serverFlag(),
					&cli.StringFlag{
						Name:     "name",
						Aliases:  []string{"n"},
						Usage:    "Deezer playlist name",
						Required: true,
					},
					&cli.StringSliceFlag{
						Name:     "track",
						Aliases:  []string{"t"},
						Usage:    "Spotify track ID (repeatable)",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.RemoteTransfer,
			},
		},
	}
}

// tuiCommand launches the interactive checklist
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Pick tracks interactively and transfer them",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "url",
				Aliases:  []string{"u"},
				Usage:    "Spotify playlist URL, URI or ID",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "name",
				Aliases: []string{"n"},
				Usage:   "Prefill the Deezer playlist name",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where to write logs while the UI owns the terminal",
				Value: "./tmp/s2d-tui.log",
			},
		},
		Action: r.TUI,
	}
}
