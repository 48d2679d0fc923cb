// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/s2d/internal/models"
	"github.com/desertthunder/s2d/internal/services"
	"github.com/desertthunder/s2d/internal/shared"
)

// MockSource is a test double for [services.TrackSource].
type MockSource struct {
	mu        sync.Mutex
	Playlists map[string]*models.PlaylistExport
	AuthErr   error
	FetchErr  error
	Calls     int
}

// NewMockSource returns a source serving the given playlists.
func NewMockSource(exports ...*models.PlaylistExport) *MockSource {
	m := &MockSource{Playlists: map[string]*models.PlaylistExport{}}
	for _, e := range exports {
		m.Playlists[e.Playlist.ID] = e
	}
	return m
}

func (m *MockSource) Authenticate(ctx context.Context) error { return m.AuthErr }

func (m *MockSource) PlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	export, err := m.ExportPlaylist(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	return export.Tracks, nil
}

func (m *MockSource) ExportPlaylist(ctx context.Context, playlistID string) (*models.PlaylistExport, error) {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()

	if m.AuthErr != nil {
		return nil, m.AuthErr
	}
	if m.FetchErr != nil {
		return nil, m.FetchErr
	}
	export, ok := m.Playlists[playlistID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
	}
	return export, nil
}

func (m *MockSource) Track(ctx context.Context, trackID string) (*models.Track, error) {
	for _, export := range m.Playlists {
		for _, t := range export.Tracks {
			if t.ID == trackID {
				return &t, nil
			}
		}
	}
	return nil, shared.ErrTrackNotFound
}

func (m *MockSource) SeveralTracks(ctx context.Context, trackIDs []string) ([]models.Track, error) {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()

	if m.AuthErr != nil {
		return nil, m.AuthErr
	}
	if m.FetchErr != nil {
		return nil, m.FetchErr
	}

	var tracks []models.Track
	for _, id := range trackIDs {
		if t, err := m.Track(ctx, id); err == nil {
			tracks = append(tracks, *t)
		}
	}
	return tracks, nil
}

func (m *MockSource) Name() string { return "mock" }

// MockDestination is a test double for [services.TrackDestination].
type MockDestination struct {
	mu sync.Mutex

	ByISRC    map[string]services.DeezerTrack
	Search    map[string][]services.DeezerTrack // keyed by title
	Token     bool
	ISRCErr   error
	SearchErr error
	CreateErr error
	AddErr    error

	Created  []string
	Added    map[int64][]int64
	Searches []string
}

// NewMockDestination returns a writable destination with no catalog.
func NewMockDestination() *MockDestination {
	return &MockDestination{
		ByISRC: map[string]services.DeezerTrack{},
		Search: map[string][]services.DeezerTrack{},
		Token:  true,
		Added:  map[int64][]int64{},
	}
}

func (m *MockDestination) TrackByISRC(ctx context.Context, isrc string) (*services.DeezerTrack, error) {
	if m.ISRCErr != nil {
		return nil, m.ISRCErr
	}
	if t, ok := m.ByISRC[isrc]; ok {
		return &t, nil
	}
	return nil, shared.ErrTrackNotFound
}

func (m *MockDestination) SearchTracks(ctx context.Context, title, artist string) ([]services.DeezerTrack, error) {
	m.mu.Lock()
	m.Searches = append(m.Searches, title)
	m.mu.Unlock()

	if m.SearchErr != nil {
		return nil, m.SearchErr
	}
	return m.Search[title], nil
}

func (m *MockDestination) CreatePlaylist(ctx context.Context, title string) (*services.DeezerPlaylist, error) {
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Created = append(m.Created, title)
	id := int64(1000 + len(m.Created))
	return &services.DeezerPlaylist{ID: id, Title: title, Link: fmt.Sprintf("https://www.deezer.com/playlist/%d", id)}, nil
}

func (m *MockDestination) AddTracks(ctx context.Context, playlistID int64, trackIDs []int64) error {
	if m.AddErr != nil {
		return m.AddErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Added[playlistID] = append(m.Added[playlistID], trackIDs...)
	return nil
}

func (m *MockDestination) CanWrite() bool { return m.Token }
func (m *MockDestination) Name() string   { return "mock" }

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
