package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/s2d/internal/models"
	"github.com/desertthunder/s2d/internal/server"
	"github.com/desertthunder/s2d/internal/services"
	"github.com/desertthunder/s2d/internal/shared"
	"github.com/desertthunder/s2d/internal/tasks"
	th "github.com/desertthunder/s2d/internal/testing"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const roadID = "37i9dQZF1DXcBWIGoYBM5M"

// syncBuffer lets command goroutines write while the test reads.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

type testCLI struct {
	runner *Runner
	config *shared.Config
	out    *syncBuffer
	source *th.MockSource
	dest   *th.MockDestination
	dir    string
}

func roadTrip() *models.PlaylistExport {
	return &models.PlaylistExport{
		Playlist: models.Playlist{ID: roadID, Name: "Road Trip"},
		Tracks: []models.Track{
			{ID: "s1", Name: "Heroes", Artists: []string{"David Bowie"}, Album: "Heroes", ISRC: "GBAYE7700012"},
			{ID: "s2", Name: "Kids", Artists: []string{"MGMT"}, Album: "Oracular Spectacular"},
		},
	}
}

func newTestCLI(t *testing.T, mutate ...func(*RunnerOpts)) *testCLI {
	t.Helper()

	dir := t.TempDir()
	config := shared.DefaultConfig()
	config.Database.Path = filepath.Join(dir, "s2d.db")
	config.Credentials.Spotify.ClientID = "client"
	config.Credentials.Spotify.ClientSecret = "secret"
	config.Server.Host = "127.0.0.1"
	config.Server.Port = 0

	c := &testCLI{
		config: config,
		out:    &syncBuffer{},
		source: th.NewMockSource(roadTrip()),
		dest:   th.NewMockDestination(),
		dir:    dir,
	}
	c.dest.ByISRC["GBAYE7700012"] = services.DeezerTrack{ID: 42, Title: "Heroes", Artist: services.DeezerArtist{Name: "David Bowie"}}
	c.dest.Search["Kids"] = []services.DeezerTrack{{ID: 7, Title: "Kids", Artist: services.DeezerArtist{Name: "MGMT"}}}

	opts := RunnerOpts{
		Config: config,
		Sources: func(clientID, clientSecret string) (services.TrackSource, error) {
			return c.source, nil
		},
		Destination: c.dest,
		Logger:      shared.NewLogger(io.Discard),
		Output:      c.out,
		OpenURL:     func(string) error { return errors.New("no browser in tests") },
	}
	for _, fn := range mutate {
		fn(&opts)
	}

	c.runner = NewRunner(opts)
	t.Cleanup(func() { c.runner.Close() })
	return c
}

func (c *testCLI) run(ctx context.Context, args ...string) error {
	app := &cli.Command{
		Name:     "s2d",
		Writer:   io.Discard,
		Commands: c.runner.register(),
	}
	return app.Run(ctx, append([]string{"s2d"}, args...))
}

func TestTransferRun(t *testing.T) {
	ctx := context.Background()

	t.Run("matches by ISRC and search then builds the playlist", func(t *testing.T) {
		c := newTestCLI(t)

		if err := c.run(ctx, "transfer", "run", "--url", "https://open.spotify.com/playlist/"+roadID, "--name", "Road Trip"); err != nil {
			t.Fatalf("transfer run failed: %v", err)
		}

		out := c.out.String()
		for _, want := range []string{"Transfer Complete!", "Success rate: 2/2", "https://www.deezer.com/playlist/1001"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, out)
			}
		}

		if len(c.dest.Created) != 1 || c.dest.Created[0] != "Road Trip" {
			t.Errorf("expected one Road Trip playlist, got %v", c.dest.Created)
		}
		if got := c.dest.Added[1001]; len(got) != 2 || got[0] != 42 || got[1] != 7 {
			t.Errorf("expected tracks [42 7] in playlist order, got %v", got)
		}
	})

	t.Run("leaves excluded tracks out", func(t *testing.T) {
		c := newTestCLI(t)

		if err := c.run(ctx, "transfer", "run", "-u", roadID, "-n", "Only Bowie", "--exclude", "s2"); err != nil {
			t.Fatalf("transfer run failed: %v", err)
		}

		if got := c.dest.Added[1001]; len(got) != 1 || got[0] != 42 {
			t.Errorf("expected only track 42, got %v", got)
		}
		if len(c.dest.Searches) != 0 {
			t.Errorf("expected no searches for an excluded track, got %v", c.dest.Searches)
		}
	})

	t.Run("writes the result as JSON", func(t *testing.T) {
		c := newTestCLI(t)

		if err := c.run(ctx, "transfer", "run", "-u", roadID, "-n", "Road Trip", "--json"); err != nil {
			t.Fatalf("transfer run failed: %v", err)
		}

		var result models.TransferResult
		if err := json.Unmarshal([]byte(c.out.String()), &result); err != nil {
			t.Fatalf("expected JSON output, got %q: %v", c.out.String(), err)
		}
		if result.Total != 2 || result.Matched != 2 || result.Status != models.TransferCompleted {
			t.Errorf("unexpected result %+v", result)
		}
		if len(result.Tracks) != 2 || result.Tracks[0].ISRC != "GBAYE7700012" {
			t.Errorf("expected track summaries, got %+v", result.Tracks)
		}
	})

	t.Run("reports unmatched tracks without a token", func(t *testing.T) {
		c := newTestCLI(t)
		c.dest.Token = false
		delete(c.dest.Search, "Kids")

		if err := c.run(ctx, "transfer", "run", "-u", roadID, "-n", "Road Trip"); err != nil {
			t.Fatalf("transfer run failed: %v", err)
		}

		out := c.out.String()
		if !strings.Contains(out, "No Deezer playlist created") {
			t.Errorf("expected no playlist notice, got:\n%s", out)
		}
		if !strings.Contains(out, "Failed to match 1 tracks") || !strings.Contains(out, "MGMT - Kids") {
			t.Errorf("expected the unmatched track listed, got:\n%s", out)
		}
		if len(c.dest.Created) != 0 {
			t.Errorf("expected no playlist without a token, got %v", c.dest.Created)
		}
	})

	t.Run("fails when every track is excluded", func(t *testing.T) {
		c := newTestCLI(t)

		err := c.run(ctx, "transfer", "run", "-u", roadID, "-n", "Empty", "-x", "s1", "-x", "s2")
		if !errors.Is(err, tasks.ErrNothingSelected) {
			t.Errorf("expected nothing selected error, got %v", err)
		}
	})

	t.Run("requires spotify credentials", func(t *testing.T) {
		c := newTestCLI(t)
		c.config.Credentials.Spotify.ClientSecret = ""

		err := c.run(ctx, "transfer", "run", "-u", roadID, "-n", "Road Trip")
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected missing credentials, got %v", err)
		}
	})

	t.Run("surfaces playlist errors", func(t *testing.T) {
		c := newTestCLI(t)

		err := c.run(ctx, "transfer", "run", "-u", "missing", "-n", "Road Trip")
		if !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected playlist not found, got %v", err)
		}
	})
}

func TestTransferHistory(t *testing.T) {
	ctx := context.Background()
	c := newTestCLI(t)

	if err := c.run(ctx, "transfer", "run", "-u", roadID, "-n", "Road Trip", "--json"); err != nil {
		t.Fatalf("transfer run failed: %v", err)
	}
	var result models.TransferResult
	if err := json.Unmarshal([]byte(c.out.String()), &result); err != nil {
		t.Fatalf("failed to decode transfer: %v", err)
	}
	if result.ID == "" {
		t.Fatal("expected the transfer to be recorded")
	}

	t.Run("list", func(t *testing.T) {
		c.out.Reset()
		if err := c.run(ctx, "transfer", "list"); err != nil {
			t.Fatalf("transfer list failed: %v", err)
		}
		out := c.out.String()
		if !strings.Contains(out, "Road Trip [completed]") || !strings.Contains(out, "Matched: 2/2") {
			t.Errorf("unexpected list output:\n%s", out)
		}
	})

	t.Run("list as JSON", func(t *testing.T) {
		c.out.Reset()
		if err := c.run(ctx, "transfer", "list", "--json"); err != nil {
			t.Fatalf("transfer list failed: %v", err)
		}
		var summaries []models.TransferSummary
		if err := json.Unmarshal([]byte(c.out.String()), &summaries); err != nil {
			t.Fatalf("failed to decode list: %v", err)
		}
		if len(summaries) != 1 || summaries[0].ID != result.ID || summaries[0].DeezerPlaylistID != "1001" {
			t.Errorf("unexpected summaries %+v", summaries)
		}
	})

	t.Run("list filters by status", func(t *testing.T) {
		c.out.Reset()
		if err := c.run(ctx, "transfer", "list", "--status", "failed"); err != nil {
			t.Fatalf("transfer list failed: %v", err)
		}
		if !strings.Contains(c.out.String(), "No transfers recorded") {
			t.Errorf("expected empty list, got:\n%s", c.out.String())
		}
	})

	t.Run("list rejects unknown status", func(t *testing.T) {
		err := c.run(ctx, "transfer", "list", "--status", "lost")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected invalid argument, got %v", err)
		}
	})

	t.Run("show", func(t *testing.T) {
		c.out.Reset()
		if err := c.run(ctx, "transfer", "show", result.ID); err != nil {
			t.Fatalf("transfer show failed: %v", err)
		}
		out := c.out.String()
		if !strings.Contains(out, "Status: completed") || !strings.Contains(out, "https://www.deezer.com/playlist/1001") {
			t.Errorf("unexpected show output:\n%s", out)
		}
	})

	t.Run("show unknown transfer", func(t *testing.T) {
		err := c.run(ctx, "transfer", "show", "nope")
		if !errors.Is(err, shared.ErrTransferNotFound) {
			t.Errorf("expected transfer not found, got %v", err)
		}
	})

	t.Run("show requires an id", func(t *testing.T) {
		err := c.run(ctx, "transfer", "show")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected missing argument, got %v", err)
		}
	})
}

func TestSpotifyCommands(t *testing.T) {
	ctx := context.Background()

	t.Run("tracks prints text and caches", func(t *testing.T) {
		c := newTestCLI(t)

		if err := c.run(ctx, "spotify", "tracks", "--url", "spotify:playlist:"+roadID); err != nil {
			t.Fatalf("spotify tracks failed: %v", err)
		}
		out := c.out.String()
		if !strings.Contains(out, "Heroes") || !strings.Contains(out, "Kids") {
			t.Errorf("expected both tracks, got:\n%s", out)
		}

		c.out.Reset()
		if err := c.run(ctx, "cache", "tracks", "--json"); err != nil {
			t.Fatalf("cache tracks failed: %v", err)
		}
		var cached []models.Track
		if err := json.Unmarshal([]byte(c.out.String()), &cached); err != nil {
			t.Fatalf("failed to decode cache: %v", err)
		}
		if len(cached) != 2 {
			t.Errorf("expected 2 cached tracks, got %d", len(cached))
		}
	})

	t.Run("tracks writes a file", func(t *testing.T) {
		c := newTestCLI(t)
		path := filepath.Join(c.dir, "road.csv")

		if err := c.run(ctx, "spotify", "tracks", "-u", roadID, "--format", "csv", "-o", path); err != nil {
			t.Fatalf("spotify tracks failed: %v", err)
		}

		th.AssertFileExists(t, path)
		if content := th.MustReadFile(t, path); !strings.Contains(content, "GBAYE7700012") {
			t.Errorf("expected ISRC in csv, got:\n%s", content)
		}
		if !strings.Contains(c.out.String(), "Tracks: 2") {
			t.Errorf("expected summary, got:\n%s", c.out.String())
		}
	})

	t.Run("tracks rejects unknown format", func(t *testing.T) {
		c := newTestCLI(t)

		if err := c.run(ctx, "spotify", "tracks", "-u", roadID, "--format", "xml"); err == nil {
			t.Error("expected an error for xml")
		}
	})

	t.Run("export writes every playlist and a manifest", func(t *testing.T) {
		c := newTestCLI(t)
		outDir := filepath.Join(c.dir, "export")

		err := c.run(ctx, "spotify", "export", "--format", "csv", "-o", outDir, "--rate", "100", "--id", "missing", roadID)
		if err != nil {
			t.Fatalf("spotify export failed: %v", err)
		}

		th.AssertDirExists(t, outDir)
		th.AssertFileExists(t, filepath.Join(outDir, "export_manifest.json"))
		th.AssertFileExists(t, filepath.Join(outDir, roadID+".csv"))

		out := c.out.String()
		if !strings.Contains(out, "Exported: 1/2 playlists") || !strings.Contains(out, "Failed to export 1 playlists") {
			t.Errorf("unexpected export output:\n%s", out)
		}
	})

	t.Run("track prints details and caches", func(t *testing.T) {
		c := newTestCLI(t)

		if err := c.run(ctx, "spotify", "track", "s2"); err != nil {
			t.Fatalf("spotify track failed: %v", err)
		}
		out := c.out.String()
		if !strings.Contains(out, "MGMT - Kids") || !strings.Contains(out, "No ISRC") {
			t.Errorf("unexpected track output:\n%s", out)
		}

		c.out.Reset()
		if err := c.run(ctx, "cache", "tracks", "--json"); err != nil {
			t.Fatalf("cache tracks failed: %v", err)
		}
		var cached []models.Track
		if err := json.Unmarshal([]byte(c.out.String()), &cached); err != nil {
			t.Fatalf("failed to decode cache: %v", err)
		}
		if len(cached) != 1 || cached[0].ID != "s2" {
			t.Errorf("expected s2 cached, got %+v", cached)
		}
	})

	t.Run("track as JSON", func(t *testing.T) {
		c := newTestCLI(t)

		if err := c.run(ctx, "spotify", "track", "--json", "s1"); err != nil {
			t.Fatalf("spotify track failed: %v", err)
		}
		var track models.Track
		if err := json.Unmarshal([]byte(c.out.String()), &track); err != nil {
			t.Fatalf("failed to decode: %v", err)
		}
		if track.ISRC != "GBAYE7700012" {
			t.Errorf("unexpected track %+v", track)
		}
	})

	t.Run("track requires an id", func(t *testing.T) {
		c := newTestCLI(t)

		err := c.run(ctx, "spotify", "track")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected missing argument, got %v", err)
		}
	})

	t.Run("export requires playlists", func(t *testing.T) {
		c := newTestCLI(t)

		err := c.run(ctx, "spotify", "export")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected missing argument, got %v", err)
		}
	})
}

func TestCacheCommands(t *testing.T) {
	ctx := context.Background()
	c := newTestCLI(t)

	if err := c.run(ctx, "cache", "playlist", "--url", roadID); err != nil {
		t.Fatalf("cache playlist failed: %v", err)
	}
	if out := c.out.String(); !strings.Contains(out, "Cached 2 tracks") || !strings.Contains(out, "With ISRC: 1") {
		t.Errorf("unexpected cache output:\n%s", out)
	}

	c.out.Reset()
	if err := c.run(ctx, "cache", "tracks", "--isrc", "gbaye7700012"); err != nil {
		t.Fatalf("cache tracks failed: %v", err)
	}
	out := c.out.String()
	if !strings.Contains(out, "Found 1 cached tracks") || !strings.Contains(out, "David Bowie - Heroes") {
		t.Errorf("unexpected filtered output:\n%s", out)
	}
}

func TestCacheRefresh(t *testing.T) {
	ctx := context.Background()

	t.Run("empty cache", func(t *testing.T) {
		c := newTestCLI(t)

		if err := c.run(ctx, "cache", "refresh"); err != nil {
			t.Fatalf("cache refresh failed: %v", err)
		}
		if !strings.Contains(c.out.String(), "No cached tracks") {
			t.Errorf("unexpected output:\n%s", c.out.String())
		}
	})

	t.Run("updates cached tracks", func(t *testing.T) {
		c := newTestCLI(t)
		if err := c.run(ctx, "cache", "playlist", "--url", roadID); err != nil {
			t.Fatalf("cache playlist failed: %v", err)
		}

		c.source.Playlists[roadID].Tracks[1].ISRC = "USSM10703487"
		c.out.Reset()
		if err := c.run(ctx, "cache", "refresh"); err != nil {
			t.Fatalf("cache refresh failed: %v", err)
		}
		if out := c.out.String(); !strings.Contains(out, "Refreshed 2 tracks") {
			t.Errorf("unexpected output:\n%s", out)
		}

		c.out.Reset()
		if err := c.run(ctx, "cache", "tracks", "--isrc", "USSM10703487"); err != nil {
			t.Fatalf("cache tracks failed: %v", err)
		}
		if !strings.Contains(c.out.String(), "MGMT - Kids") {
			t.Errorf("expected refreshed ISRC in cache, got:\n%s", c.out.String())
		}
	})

	t.Run("reports tracks gone from spotify", func(t *testing.T) {
		c := newTestCLI(t)
		if err := c.run(ctx, "cache", "playlist", "--url", roadID); err != nil {
			t.Fatalf("cache playlist failed: %v", err)
		}

		c.source.Playlists[roadID].Tracks = c.source.Playlists[roadID].Tracks[:1]
		c.out.Reset()
		if err := c.run(ctx, "cache", "refresh"); err != nil {
			t.Fatalf("cache refresh failed: %v", err)
		}
		out := c.out.String()
		if !strings.Contains(out, "Refreshed 1 tracks") || !strings.Contains(out, "No longer on Spotify (1)") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})
}

func TestDeezerSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("by isrc", func(t *testing.T) {
		c := newTestCLI(t)

		if err := c.run(ctx, "deezer", "search", "--isrc", "GBAYE7700012"); err != nil {
			t.Fatalf("deezer search failed: %v", err)
		}
		if out := c.out.String(); !strings.Contains(out, "David Bowie - Heroes") || !strings.Contains(out, "ID: 42") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})

	t.Run("by isrc shows the cached spotify track", func(t *testing.T) {
		c := newTestCLI(t)
		if err := c.run(ctx, "cache", "playlist", "--url", roadID); err != nil {
			t.Fatalf("cache playlist failed: %v", err)
		}

		c.out.Reset()
		if err := c.run(ctx, "deezer", "search", "--isrc", "gbaye7700012"); err != nil {
			t.Fatalf("deezer search failed: %v", err)
		}
		if out := c.out.String(); !strings.Contains(out, "Cached Spotify track: David Bowie - Heroes (s1)") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})

	t.Run("by title as JSON", func(t *testing.T) {
		c := newTestCLI(t)

		if err := c.run(ctx, "deezer", "search", "--json", "--artist", "MGMT", "Kids"); err != nil {
			t.Fatalf("deezer search failed: %v", err)
		}
		var tracks []services.DeezerTrack
		if err := json.Unmarshal([]byte(c.out.String()), &tracks); err != nil {
			t.Fatalf("failed to decode: %v", err)
		}
		if len(tracks) != 1 || tracks[0].ID != 7 {
			t.Errorf("unexpected tracks %+v", tracks)
		}
	})

	t.Run("no results", func(t *testing.T) {
		c := newTestCLI(t)

		if err := c.run(ctx, "deezer", "search", "Unknown"); err != nil {
			t.Fatalf("deezer search failed: %v", err)
		}
		if !strings.Contains(c.out.String(), "No tracks found") {
			t.Errorf("unexpected output:\n%s", c.out.String())
		}
	})

	t.Run("unknown isrc", func(t *testing.T) {
		c := newTestCLI(t)

		err := c.run(ctx, "deezer", "search", "--isrc", "USXXX0000000")
		if !errors.Is(err, shared.ErrTrackNotFound) {
			t.Errorf("expected track not found, got %v", err)
		}
	})

	t.Run("requires a query", func(t *testing.T) {
		c := newTestCLI(t)

		err := c.run(ctx, "deezer", "search")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected missing argument, got %v", err)
		}
	})
}

type fakeOAuth struct {
	token *oauth2.Token
	err   error
}

func (f *fakeOAuth) GetAuthURL(state string) string {
	return "https://connect.example.com/oauth/auth.php?state=" + url.QueryEscape(state)
}

func (f *fakeOAuth) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.token, nil
}

// approve plays the browser: follow the local login route, then call back with its state.
func approve(t *testing.T, code string) func(string) error {
	return func(loginURL string) error {
		go func() {
			client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			}}

			resp, err := client.Get(loginURL)
			if err != nil {
				t.Errorf("login request failed: %v", err)
				return
			}
			resp.Body.Close()

			location, err := url.Parse(resp.Header.Get("Location"))
			if err != nil {
				t.Errorf("bad redirect: %v", err)
				return
			}

			base := strings.TrimSuffix(loginURL, "/auth/deezer")
			callback := fmt.Sprintf("%s/callback?code=%s&state=%s", base, code, url.QueryEscape(location.Query().Get("state")))
			if resp, err := client.Get(callback); err == nil {
				resp.Body.Close()
			}
		}()
		return nil
	}
}

func TestDeezerAuth(t *testing.T) {
	ctx := context.Background()

	t.Run("stores the token", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		c := newTestCLI(t, func(o *RunnerOpts) {
			o.ConfigPath = configPath
			o.OAuth = &fakeOAuth{token: &oauth2.Token{AccessToken: "deezer-token"}}
			o.OpenURL = approve(t, "abc")
		})
		c.config.Credentials.Deezer.AppID = "app"
		c.config.Credentials.Deezer.Secret = "secret"

		if err := c.run(ctx, "deezer", "auth", "--timeout", "5s"); err != nil {
			t.Fatalf("deezer auth failed: %v", err)
		}

		loaded, err := shared.LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to reload config: %v", err)
		}
		if loaded.Credentials.Deezer.AccessToken != "deezer-token" {
			t.Errorf("expected saved token, got %q", loaded.Credentials.Deezer.AccessToken)
		}
		if !strings.Contains(c.out.String(), "Authorization successful") {
			t.Errorf("unexpected output:\n%s", c.out.String())
		}
	})

	t.Run("reports a failed exchange", func(t *testing.T) {
		c := newTestCLI(t, func(o *RunnerOpts) {
			o.OAuth = &fakeOAuth{err: shared.ErrAuthFailed}
			o.OpenURL = approve(t, "abc")
		})
		c.config.Credentials.Deezer.AppID = "app"
		c.config.Credentials.Deezer.Secret = "secret"

		err := c.run(ctx, "deezer", "auth", "--timeout", "5s")
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected auth failure, got %v", err)
		}
	})

	t.Run("times out without a callback", func(t *testing.T) {
		c := newTestCLI(t, func(o *RunnerOpts) {
			o.OAuth = &fakeOAuth{}
		})
		c.config.Credentials.Deezer.AppID = "app"
		c.config.Credentials.Deezer.Secret = "secret"

		err := c.run(ctx, "deezer", "auth", "--timeout", "50ms")
		if !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("expected timeout, got %v", err)
		}
		if !strings.Contains(c.out.String(), "/auth/deezer") {
			t.Errorf("expected the login URL to be printed, got:\n%s", c.out.String())
		}
	})

	t.Run("requires app credentials", func(t *testing.T) {
		c := newTestCLI(t, func(o *RunnerOpts) {
			o.OAuth = &fakeOAuth{}
		})
		c.config.Credentials.Deezer.Secret = ""

		err := c.run(ctx, "deezer", "auth")
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected missing credentials, got %v", err)
		}
	})
}

func TestRemoteCommands(t *testing.T) {
	ctx := context.Background()

	// The server and the CLI share one runner so the remote calls exercise the real API.
	c := newTestCLI(t)
	cache, err := c.runner.trackCache()
	if err != nil {
		t.Fatal(err)
	}
	transfers, err := c.runner.transfers()
	if err != nil {
		t.Fatal(err)
	}
	engine, err := c.runner.engine()
	if err != nil {
		t.Fatal(err)
	}
	router, err := server.NewRouter(server.Options{
		API: server.APIOpts{
			Sources:   c.runner.sources,
			Cache:     cache,
			Engine:    engine,
			Transfers: transfers,
		},
		Logger: shared.NewLogger(io.Discard),
	})
	if err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(router)
	defer ts.Close()

	addr := "--server=" + ts.URL

	t.Run("health", func(t *testing.T) {
		c.out.Reset()
		if err := c.run(ctx, "remote", "health", addr); err != nil {
			t.Fatalf("remote health failed: %v", err)
		}
		if !strings.Contains(c.out.String(), "Server is healthy") {
			t.Errorf("unexpected output:\n%s", c.out.String())
		}
	})

	t.Run("fetch then transfer", func(t *testing.T) {
		c.out.Reset()
		if err := c.run(ctx, "remote", "fetch", addr, "--url", "https://open.spotify.com/playlist/"+roadID); err != nil {
			t.Fatalf("remote fetch failed: %v", err)
		}
		out := c.out.String()
		if !strings.Contains(out, "Fetched 2 tracks") || !strings.Contains(out, "ID: s2 (No ISRC)") {
			t.Errorf("unexpected fetch output:\n%s", out)
		}

		c.out.Reset()
		if err := c.run(ctx, "remote", "transfer", addr, "--name", "Remote Trip", "--track", "s1"); err != nil {
			t.Fatalf("remote transfer failed: %v", err)
		}
		var result models.TransferResult
		if err := json.Unmarshal([]byte(c.out.String()), &result); err != nil {
			t.Fatalf("failed to decode transfer: %v", err)
		}
		if result.PlaylistName != "Remote Trip" || result.Total != 1 || result.Matched != 1 {
			t.Errorf("unexpected result %+v", result)
		}
	})

	t.Run("transfer of unknown tracks", func(t *testing.T) {
		err := c.run(ctx, "remote", "transfer", addr, "--name", "Ghost", "--track", "nope")
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected a 400 to map to invalid input, got %v", err)
		}
	})

	t.Run("get", func(t *testing.T) {
		c.out.Reset()
		if err := c.run(ctx, "remote", "get", addr, "api/transfers"); err != nil {
			t.Fatalf("remote get failed: %v", err)
		}
		if !strings.Contains(c.out.String(), `"transfers"`) {
			t.Errorf("unexpected output:\n%s", c.out.String())
		}
	})

	t.Run("post", func(t *testing.T) {
		c.out.Reset()
		body := fmt.Sprintf(`{"playlistUrl":%q,"clientId":"a","clientSecret":"b"}`, roadID)
		if err := c.run(ctx, "remote", "post", addr, "--data", body, "/api/spotify/playlist"); err != nil {
			t.Fatalf("remote post failed: %v", err)
		}
		if !strings.Contains(c.out.String(), `"tracks"`) {
			t.Errorf("unexpected output:\n%s", c.out.String())
		}
	})

	t.Run("post validates JSON", func(t *testing.T) {
		err := c.run(ctx, "remote", "post", addr, "--data", "{nope", "/api/spotify/playlist")
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected invalid input, got %v", err)
		}
	})

	t.Run("post requires data", func(t *testing.T) {
		err := c.run(ctx, "remote", "post", addr, "/api/spotify/playlist")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected missing argument, got %v", err)
		}
	})

	t.Run("broken response body", func(t *testing.T) {
		client := &http.Client{Transport: th.NewMockRoundTripper(&http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{},
			Body:       &th.FCloser{},
		}, nil)}
		broken := newTestCLI(t, func(o *RunnerOpts) {
			o.Backend = services.NewBackendClient("http://s2d.invalid", client)
		})

		if err := broken.run(ctx, "remote", "health"); err == nil {
			t.Error("expected an error when the body cannot be read")
		}
	})
}

func TestServe(t *testing.T) {
	urls := make(chan string, 1)
	c := newTestCLI(t, func(o *RunnerOpts) {
		o.OpenURL = func(u string) error {
			urls <- u
			return nil
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errc := make(chan error, 1)
	go func() {
		errc <- c.run(ctx, "serve", "--open")
	}()

	var base string
	select {
	case base = <-urls:
	case err := <-errc:
		t.Fatalf("serve exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not start")
	}

	resp, err := http.Get(base + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	resp, err = http.Get(base + "/")
	if err != nil {
		t.Fatalf("page request failed: %v", err)
	}
	page, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(page), "fetch-playlist-btn") {
		t.Error("expected the transfer page")
	}

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("server did not shut down")
	}

	if !strings.Contains(c.out.String(), "s2d listening on "+base) {
		t.Errorf("expected listening notice, got:\n%s", c.out.String())
	}
}

func TestSetupCommands(t *testing.T) {
	ctx := context.Background()
	wd := th.MustGetwd(t)
	dir := t.TempDir()
	th.MustChdir(t, dir)
	t.Cleanup(func() { th.MustChdir(t, wd) })

	c := newTestCLI(t)

	t.Run("config", func(t *testing.T) {
		if err := c.run(ctx, "setup", "config", "--config", "custom.toml"); err != nil {
			t.Fatalf("setup config failed: %v", err)
		}
		th.AssertFileExists(t, filepath.Join(dir, "custom.toml"))

		err := c.run(ctx, "setup", "config", "--config", "custom.toml")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected refusal to overwrite, got %v", err)
		}

		if err := c.run(ctx, "setup", "config", "--config", "custom.toml", "--force"); err != nil {
			t.Errorf("expected --force to overwrite, got %v", err)
		}
	})

	t.Run("database", func(t *testing.T) {
		c.out.Reset()
		if err := c.run(ctx, "setup", "database", "--config", "fresh.toml"); err != nil {
			t.Fatalf("setup database failed: %v", err)
		}
		th.AssertFileExists(t, filepath.Join(dir, "fresh.toml"))
		th.AssertFileExists(t, filepath.Join(dir, "s2d.db"))
		if !strings.Contains(c.out.String(), "at schema version") {
			t.Errorf("unexpected output:\n%s", c.out.String())
		}
	})

	t.Run("rollback", func(t *testing.T) {
		if err := c.run(ctx, "setup", "database", "--config", "fresh.toml", "--rollback"); err != nil {
			t.Fatalf("rollback failed: %v", err)
		}
	})
}

func TestTUIModel(t *testing.T) {
	c := newTestCLI(t)
	logFile := filepath.Join(c.dir, "logs", "tui.log")

	var built bool
	app := &cli.Command{
		Name:   "tui",
		Writer: io.Discard,
		Flags:  tuiCommand(c.runner).Flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			model, err := c.runner.tuiModel(ctx, cmd)
			if err != nil {
				return err
			}
			built = model != nil
			return nil
		},
	}

	if err := app.Run(context.Background(), []string{"tui", "--url", roadID, "--log-file", logFile}); err != nil {
		t.Fatalf("tui setup failed: %v", err)
	}
	if !built {
		t.Error("expected a model")
	}
	th.AssertFileExists(t, logFile)
}
