// Spotify Web API implementation of [TrackSource]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/desertthunder/s2d/internal/models"
	"github.com/desertthunder/s2d/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/time/rate"
)

const (
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// spotifyPageLimit is the maximum page size of the playlist items endpoint.
	spotifyPageLimit = 100

	// spotifyTokenTimeout bounds a token request that no caller is waiting on anymore.
	spotifyTokenTimeout = 30 * time.Second
)

type externalIDs struct {
	ISRC string `json:"isrc"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	Artists     []SpotifyArtist `json:"artists"`
	Album       SpotifyAlbum    `json:"album"`
	DurationMS  int             `json:"duration_ms"`
	ExternalIDs *externalIDs    `json:"external_ids"`
	IsLocal     bool            `json:"is_local"`
	URI         string          `json:"uri"`
}

// SpotifyArtist represents a simplified Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyAlbum represents a simplified Spotify album.
type SpotifyAlbum struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyPlaylistItem is one entry of a playlist; Track is nil for removed items.
type SpotifyPlaylistItem struct {
	AddedAt string        `json:"added_at"`
	IsLocal bool          `json:"is_local"`
	Track   *SpotifyTrack `json:"track"`
}

// SpotifyPlaylistItems is a page of the playlist items endpoint.
type SpotifyPlaylistItems struct {
	Items  []SpotifyPlaylistItem `json:"items"`
	Total  int                   `json:"total"`
	Limit  int                   `json:"limit"`
	Offset int                   `json:"offset"`
	Next   *string               `json:"next"`
}

// SpotifyImage is a playlist cover image.
type SpotifyImage struct {
	URL string `json:"url"`
}

// SpotifyPlaylist is the subset of playlist fields requested from the API.
type SpotifyPlaylist struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Images      []SpotifyImage `json:"images"`
	Owner       struct {
		DisplayName string `json:"display_name"`
	} `json:"owner"`
	Tracks struct {
		Total int `json:"total"`
	} `json:"tracks"`
}

type spotifyErrorBody struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// toModel converts a Spotify track to [models.Track].
func (t SpotifyTrack) toModel() models.Track {
	artists := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		artists = append(artists, a.Name)
	}

	track := models.Track{
		ID:      t.ID,
		Name:    t.Name,
		Artists: artists,
		Album:   t.Album.Name,
		URI:     t.URI,
	}
	if t.ExternalIDs != nil {
		track.ISRC = t.ExternalIDs.ISRC
	}
	return track
}

// SpotifyOption customizes a [SpotifyService].
type SpotifyOption func(*SpotifyService)

// WithSpotifyBaseURL points API requests at baseURL.
func WithSpotifyBaseURL(baseURL string) SpotifyOption {
	return func(s *SpotifyService) { s.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithSpotifyTokenURL points token requests at tokenURL.
func WithSpotifyTokenURL(tokenURL string) SpotifyOption {
	return func(s *SpotifyService) { s.tokenURL = tokenURL }
}

// WithSpotifyHTTPClient sets the transport used for both token and API requests.
func WithSpotifyHTTPClient(c *http.Client) SpotifyOption {
	return func(s *SpotifyService) { s.baseClient = c }
}

// WithSpotifyLimiter replaces the default request limiter.
func WithSpotifyLimiter(l *rate.Limiter) SpotifyOption {
	return func(s *SpotifyService) { s.limiter = l }
}

// SpotifyService implements [TrackSource] for the Spotify Web API.
// Uses the client credentials flow; safe for concurrent use.
type SpotifyService struct {
	baseURL     string
	tokenURL    string
	baseClient  *http.Client
	httpClient  *http.Client
	tokenSource oauth2.TokenSource
	limiter     *rate.Limiter
}

// NewSpotifyService creates a new Spotify service with the given client credentials.
func NewSpotifyService(credentials map[string]string, opts ...SpotifyOption) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id in credentials", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret in credentials", shared.ErrMissingCredentials)
	}

	s := &SpotifyService{
		baseURL:    spotifyBaseURL,
		tokenURL:   spotifyTokenURL,
		baseClient: http.DefaultClient,
		limiter:    newSpotifyLimiter(),
	}
	for _, opt := range opts {
		opt(s)
	}

	cc := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     s.tokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	if s.baseClient == nil {
		s.baseClient = http.DefaultClient
	}
	tokenClient := *s.baseClient
	if tokenClient.Timeout == 0 {
		tokenClient.Timeout = spotifyTokenTimeout
	}

	// token refreshes outlive any single request; callers wait on them through token(ctx)
	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, &tokenClient)
	s.tokenSource = cc.TokenSource(tokenCtx)
	s.httpClient = oauth2.NewClient(tokenCtx, s.tokenSource)

	return s, nil
}

func newSpotifyLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Every(50*time.Millisecond), 10)
}

// NewSpotifySourceFactory returns a [SourceFactory] that applies opts to every service it builds.
//
// Services built by one factory share a single request limiter unless opts replace it.
func NewSpotifySourceFactory(opts ...SpotifyOption) SourceFactory {
	opts = append([]SpotifyOption{WithSpotifyLimiter(newSpotifyLimiter())}, opts...)
	return func(clientID, clientSecret string) (TrackSource, error) {
		return NewSpotifyService(map[string]string{
			"client_id":     clientID,
			"client_secret": clientSecret,
		}, opts...)
	}
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// Authenticate requests an app access token, reporting rejected credentials as [shared.ErrInvalidCredentials].
func (s *SpotifyService) Authenticate(ctx context.Context) error {
	_, err := s.token(ctx)
	return err
}

// token returns the current app token, fetching one if needed, and gives up when ctx is done.
func (s *SpotifyService) token(ctx context.Context) (*oauth2.Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type result struct {
		token *oauth2.Token
		err   error
	}
	done := make(chan result, 1)
	go func() {
		token, err := s.tokenSource.Token()
		done <- result{token, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, tokenError(r.err)
		}
		return r.token, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("spotify token request: %w", ctx.Err())
	}
}

// tokenError classifies failures from the token endpoint.
func tokenError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if retrieveErr.Response != nil {
			switch retrieveErr.Response.StatusCode {
			case http.StatusBadRequest, http.StatusUnauthorized:
				return fmt.Errorf("%w: spotify rejected client credentials: %v", shared.ErrInvalidCredentials, retrieveErr.ErrorCode)
			case http.StatusTooManyRequests:
				return fmt.Errorf("%w: spotify token endpoint", shared.ErrRateLimited)
			}
		}
	}
	return fmt.Errorf("%w: spotify token request failed: %v", shared.ErrAuthFailed, err)
}

// doRequest performs an authenticated GET to the Spotify API and decodes the JSON response into result.
func (s *SpotifyService) doRequest(ctx context.Context, endpoint string, notFound error, result any) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	if _, err := s.token(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			var retrieveErr *oauth2.RetrieveError
			if errors.As(urlErr.Err, &retrieveErr) {
				return tokenError(retrieveErr)
			}
		}
		return fmt.Errorf("%w: request failed: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var errBody spotifyErrorBody
		_ = json.Unmarshal(body, &errBody)
		return statusError("spotify", resp.StatusCode, errBody.Error.Message, notFound)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// PlaylistItems retrieves one page of playlist items.
func (s *SpotifyService) PlaylistItems(ctx context.Context, playlistID string, limit, offset int) (*SpotifyPlaylistItems, error) {
	if limit <= 0 || limit > spotifyPageLimit {
		limit = spotifyPageLimit
	}

	q := url.Values{}
	q.Set("limit", fmt.Sprint(limit))
	q.Set("offset", fmt.Sprint(offset))
	q.Set("additional_types", "track")
	endpoint := fmt.Sprintf("/playlists/%s/tracks?%s", url.PathEscape(playlistID), q.Encode())

	var page SpotifyPlaylistItems
	if err := s.doRequest(ctx, endpoint, shared.ErrPlaylistNotFound, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// PlaylistTracks fetches every page of the playlist and converts the track entries.
//
// Removed items, podcast episodes and local files without a Spotify ID are skipped.
func (s *SpotifyService) PlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error) {
	if playlistID == "" {
		return nil, fmt.Errorf("%w: empty playlist id", shared.ErrInvalidInput)
	}

	tracks := []models.Track{}
	offset := 0

	for {
		page, err := s.PlaylistItems(ctx, playlistID, spotifyPageLimit, offset)
		if err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			if item.Track == nil || item.Track.ID == "" {
				continue
			}
			if item.Track.Type != "" && item.Track.Type != "track" {
				continue
			}
			tracks = append(tracks, item.Track.toModel())
		}

		if len(page.Items) < spotifyPageLimit || page.Next == nil {
			break
		}
		offset += spotifyPageLimit
	}

	return tracks, nil
}

// Playlist retrieves playlist metadata without its items.
func (s *SpotifyService) Playlist(ctx context.Context, playlistID string) (*models.Playlist, error) {
	if playlistID == "" {
		return nil, fmt.Errorf("%w: empty playlist id", shared.ErrInvalidInput)
	}

	fields := url.Values{"fields": {"id,name,description,images(url),owner(display_name),tracks(total)"}}
	endpoint := fmt.Sprintf("/playlists/%s?%s", url.PathEscape(playlistID), fields.Encode())

	var pl SpotifyPlaylist
	if err := s.doRequest(ctx, endpoint, shared.ErrPlaylistNotFound, &pl); err != nil {
		return nil, err
	}

	playlist := &models.Playlist{
		ID:          pl.ID,
		Name:        pl.Name,
		Description: pl.Description,
		Owner:       pl.Owner.DisplayName,
		TrackCount:  pl.Tracks.Total,
	}
	if len(pl.Images) > 0 {
		playlist.ImageURL = pl.Images[0].URL
	}
	return playlist, nil
}

// ExportPlaylist fetches playlist metadata and every track.
func (s *SpotifyService) ExportPlaylist(ctx context.Context, playlistID string) (*models.PlaylistExport, error) {
	playlist, err := s.Playlist(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	tracks, err := s.PlaylistTracks(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	return &models.PlaylistExport{Playlist: *playlist, Tracks: tracks}, nil
}

// Track retrieves a single track by ID.
func (s *SpotifyService) Track(ctx context.Context, trackID string) (*models.Track, error) {
	if trackID == "" {
		return nil, fmt.Errorf("%w: empty track id", shared.ErrInvalidInput)
	}

	var track SpotifyTrack
	if err := s.doRequest(ctx, "/tracks/"+url.PathEscape(trackID), shared.ErrTrackNotFound, &track); err != nil {
		return nil, err
	}

	m := track.toModel()
	return &m, nil
}

// SeveralTracks retrieves up to 50 tracks by ID. Unknown IDs are omitted from the result.
func (s *SpotifyService) SeveralTracks(ctx context.Context, trackIDs []string) ([]models.Track, error) {
	if len(trackIDs) == 0 {
		return nil, fmt.Errorf("%w: no track IDs provided", shared.ErrInvalidInput)
	}
	if len(trackIDs) > 50 {
		return nil, fmt.Errorf("%w: maximum 50 track IDs allowed", shared.ErrInvalidInput)
	}

	endpoint := "/tracks?ids=" + url.QueryEscape(strings.Join(trackIDs, ","))

	var response struct {
		Tracks []*SpotifyTrack `json:"tracks"`
	}
	if err := s.doRequest(ctx, endpoint, shared.ErrTrackNotFound, &response); err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(response.Tracks))
	for _, t := range response.Tracks {
		if t != nil {
			tracks = append(tracks, t.toModel())
		}
	}
	return tracks, nil
}

// ExtractPlaylistID extracts the playlist ID from a playlist URL, URI or bare ID.
//
// Supports formats:
//   - https://open.spotify.com/playlist/ID
//   - https://open.spotify.com/playlist/ID?si=xxx
//   - spotify:playlist:ID
//   - ID
func ExtractPlaylistID(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("%w: empty playlist url", shared.ErrInvalidInput)
	}

	if rest, ok := strings.CutPrefix(s, "spotify:playlist:"); ok {
		s = rest
	} else {
		s, _, _ = strings.Cut(s, "?")
		s, _, _ = strings.Cut(s, "#")
		s = strings.TrimRight(s, "/")
		if i := strings.LastIndex(s, "/"); i >= 0 {
			s = s[i+1:]
		}
	}

	if s == "" {
		return "", fmt.Errorf("%w: no playlist id in %q", shared.ErrInvalidInput, raw)
	}
	return s, nil
}
