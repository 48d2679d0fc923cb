package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/s2d/internal/repositories"
	"github.com/desertthunder/s2d/internal/services"
	"github.com/desertthunder/s2d/internal/shared"
	"github.com/desertthunder/s2d/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	sources    services.SourceFactory
	dest       services.TrackDestination
	oauth      services.OAuthService
	backend    *services.BackendClient
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	openURL    func(string) error
	db         *sql.DB
}

// tokenSetter is implemented by destinations that accept a new user token.
type tokenSetter interface {
	SetAccessToken(token string)
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config      *shared.Config
	ConfigPath  string
	Sources     services.SourceFactory
	Destination services.TrackDestination
	OAuth       services.OAuthService
	Backend     *services.BackendClient // Overrides the --server flag of remote commands
	HTTPClient  *http.Client
	Logger      *log.Logger
	Output      io.Writer
	OpenURL     func(string) error // Defaults to shared.OpenBrowser
	DB          *sql.DB            // Opened from the config on first use when nil
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.OpenURL == nil {
		opts.OpenURL = shared.OpenBrowser
	}
	if opts.Sources == nil {
		opts.Sources = services.NewSpotifySourceFactory(services.WithSpotifyHTTPClient(opts.HTTPClient))
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		sources:    opts.Sources,
		dest:       opts.Destination,
		oauth:      opts.OAuth,
		backend:    opts.Backend,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		openURL:    opts.OpenURL,
		db:         opts.DB,
	}
}

// SetLogger replaces the logger, e.g. to keep log lines out of the terminal UI.
func (r *Runner) SetLogger(logger *log.Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// Close releases the database handle if one was opened.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, serveCommand, spotifyCommand, deezerCommand, transferCommand, cacheCommand, remoteCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// database opens and migrates the configured database on first use.
func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if r.config.Database.Path != ":memory:" {
		shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	r.db = db
	return db, nil
}

// trackCache returns the sqlite backed cache of fetched tracks.
func (r *Runner) trackCache() (*repositories.TrackCacheAdapter, error) {
	db, err := r.database()
	if err != nil {
		return nil, err
	}
	return repositories.NewTrackCacheAdapter(repositories.NewTrackRepository(db)), nil
}

// transfers returns the transfer history repository.
func (r *Runner) transfers() (*repositories.TransferRepository, error) {
	db, err := r.database()
	if err != nil {
		return nil, err
	}
	return repositories.NewTransferRepository(db), nil
}

// engine builds a transfer engine over the runner's database and destination.
func (r *Runner) engine() (*tasks.TransferEngine, error) {
	cache, err := r.trackCache()
	if err != nil {
		return nil, err
	}
	jobs, err := r.transfers()
	if err != nil {
		return nil, err
	}

	opts := tasks.EngineOpts{
		MatchThreshold: r.config.Transfer.MatchThreshold,
		SearchFallback: r.config.Transfer.SearchFallback,
		CreatePlaylist: r.config.Transfer.CreatePlaylist,
	}
	return tasks.NewTransferEngine(cache, r.dest, jobs, opts, r.logger), nil
}

// spotify builds a Spotify client from the configured client credentials.
func (r *Runner) spotify() (services.TrackSource, error) {
	creds := r.config.Credentials.Spotify
	if !creds.Configured() {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret must be set in %s or S2D_SPOTIFY_*", shared.ErrMissingCredentials, r.configFile())
	}
	return r.sources(creds.ClientID, creds.ClientSecret)
}

// remote returns the API client for the server named by --server.
func (r *Runner) remote(cmd *cli.Command) *services.BackendClient {
	if r.backend != nil {
		return r.backend
	}
	return services.NewBackendClient(cmd.String("server"), r.httpClient)
}

func (r *Runner) configFile() string {
	if r.configPath == "" {
		return defaultConfigPath
	}
	return r.configPath
}

// saveToken stores a Deezer access token in the config and persists it when a path is set.
func (r *Runner) saveToken(token *oauth2.Token) error {
	if r.config == nil {
		return fmt.Errorf("%w: config is nil", shared.ErrMissingConfig)
	}

	if err := r.config.Credentials.Deezer.Update(token); err != nil {
		return fmt.Errorf("failed to update deezer configuration: %w", err)
	}

	if dest, ok := r.dest.(tokenSetter); ok {
		dest.SetAccessToken(token.AccessToken)
	}

	if r.configPath == "" {
		return nil
	}

	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
