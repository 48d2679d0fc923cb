// Deezer API implementation of [TrackDestination]
//
// Response types based on https://developers.deezer.com/api
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/desertthunder/s2d/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	deezerBaseURL  = "https://api.deezer.com"
	deezerAuthURL  = "https://connect.deezer.com/oauth/auth.php"
	deezerTokenURL = "https://connect.deezer.com/oauth/access_token.php?output=json"

	// deezerAddBatch bounds the number of ids sent in one "songs" parameter.
	deezerAddBatch = 100
)

var deezerPerms = []string{"basic_access", "manage_library", "offline_access"}

// DeezerArtist is the artist summary embedded in tracks.
type DeezerArtist struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// DeezerAlbum is the album summary embedded in tracks.
type DeezerAlbum struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// DeezerTrack represents a Deezer track.
type DeezerTrack struct {
	ID       int64        `json:"id"`
	Title    string       `json:"title"`
	ISRC     string       `json:"isrc"`
	Link     string       `json:"link"`
	Duration int          `json:"duration"`
	Artist   DeezerArtist `json:"artist"`
	Album    DeezerAlbum  `json:"album"`
}

// DeezerPlaylist is a created playlist.
type DeezerPlaylist struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Link  string `json:"link"`
}

type deezerError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

type deezerEnvelope struct {
	Error *deezerError `json:"error"`
}

// err maps Deezer error codes to shared sentinels.
//
// https://developers.deezer.com/api/errors
func (e *deezerError) err(notFound error) error {
	var sentinel error
	switch e.Code {
	case 4:
		sentinel = shared.ErrRateLimited
	case 200, 300:
		sentinel = shared.ErrNotAuthenticated
	case 500, 501:
		sentinel = shared.ErrInvalidInput
	case 800:
		sentinel = notFound
	default:
		sentinel = shared.ErrAPIRequest
	}
	if sentinel == nil {
		sentinel = shared.ErrAPIRequest
	}
	return fmt.Errorf("%w: deezer %s (code %d): %s", sentinel, e.Type, e.Code, e.Message)
}

// DeezerOption customizes a [DeezerService].
type DeezerOption func(*DeezerService)

// WithDeezerBaseURL points API requests at baseURL.
func WithDeezerBaseURL(baseURL string) DeezerOption {
	return func(d *DeezerService) { d.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithDeezerHTTPClient sets the HTTP client.
func WithDeezerHTTPClient(c *http.Client) DeezerOption {
	return func(d *DeezerService) { d.httpClient = c }
}

// WithDeezerLimiter replaces the default limiter.
func WithDeezerLimiter(l *rate.Limiter) DeezerOption {
	return func(d *DeezerService) { d.limiter = l }
}

// WithDeezerOAuthEndpoint overrides the authorization and token URLs.
func WithDeezerOAuthEndpoint(authURL, tokenURL string) DeezerOption {
	return func(d *DeezerService) {
		d.oauth.Endpoint.AuthURL = authURL
		d.oauth.Endpoint.TokenURL = tokenURL
	}
}

// DeezerService implements [TrackDestination] and [OAuthService] for Deezer.
type DeezerService struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	oauth      *oauth2.Config

	mu          sync.RWMutex
	accessToken string
}

// NewDeezerService creates a Deezer client. credentials may contain
// "app_id", "secret", "redirect_uri" (for OAuth) and "access_token" (for writes).
func NewDeezerService(credentials map[string]string, opts ...DeezerOption) *DeezerService {
	d := &DeezerService{
		baseURL:     deezerBaseURL,
		httpClient:  http.DefaultClient,
		limiter:     rate.NewLimiter(rate.Every(5*time.Second/50), 10),
		accessToken: credentials["access_token"],
		oauth: &oauth2.Config{
			ClientID:     credentials["app_id"],
			ClientSecret: credentials["secret"],
			RedirectURL:  credentials["redirect_uri"],
			Scopes:       deezerPerms,
			Endpoint: oauth2.Endpoint{
				AuthURL:   deezerAuthURL,
				TokenURL:  deezerTokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *DeezerService) Name() string {
	return "Deezer"
}

// CanWrite reports whether an access token has been configured.
func (d *DeezerService) CanWrite() bool {
	return d.token() != ""
}

// SetAccessToken replaces the user token used for write operations.
func (d *DeezerService) SetAccessToken(token string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.accessToken = token
}

func (d *DeezerService) token() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.accessToken
}

// GetAuthURL returns the Deezer authorization URL for user login.
func (d *DeezerService) GetAuthURL(state string) string {
	return d.oauth.AuthCodeURL(state,
		oauth2.SetAuthURLParam("app_id", d.oauth.ClientID),
		oauth2.SetAuthURLParam("perms", strings.Join(deezerPerms, ",")),
	)
}

// Exchange trades an authorization code for an access token and keeps it for writes.
func (d *DeezerService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if d.oauth.ClientID == "" || d.oauth.ClientSecret == "" {
		return nil, fmt.Errorf("%w: deezer app_id and secret are required", shared.ErrMissingCredentials)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, d.httpClient)
	token, err := d.oauth.Exchange(ctx, code,
		oauth2.SetAuthURLParam("app_id", d.oauth.ClientID),
		oauth2.SetAuthURLParam("secret", d.oauth.ClientSecret),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: deezer token exchange: %v", shared.ErrAuthFailed, err)
	}

	d.SetAccessToken(token.AccessToken)
	return token, nil
}

// doRequest calls the Deezer API and decodes the JSON body into result.
func (d *DeezerService) doRequest(ctx context.Context, method, endpoint string, query url.Values, notFound error, result any) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return err
	}

	u := d.baseURL + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: request failed: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var envelope deezerEnvelope
	if json.Unmarshal(body, &envelope) == nil && envelope.Error != nil {
		return envelope.Error.err(notFound)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return statusError("deezer", resp.StatusCode, strings.TrimSpace(string(body)), notFound)
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// TrackByISRC looks up a track by its ISRC.
func (d *DeezerService) TrackByISRC(ctx context.Context, isrc string) (*DeezerTrack, error) {
	isrc = strings.ToUpper(strings.TrimSpace(isrc))
	if isrc == "" {
		return nil, fmt.Errorf("%w: empty isrc", shared.ErrInvalidInput)
	}

	var track DeezerTrack
	if err := d.doRequest(ctx, http.MethodGet, "/track/isrc:"+url.PathEscape(isrc), nil, shared.ErrTrackNotFound, &track); err != nil {
		return nil, err
	}
	if track.ID == 0 {
		return nil, fmt.Errorf("%w: isrc %s", shared.ErrTrackNotFound, isrc)
	}
	return &track, nil
}

// SearchTracks runs an advanced search on title and artist.
func (d *DeezerService) SearchTracks(ctx context.Context, title, artist string) ([]DeezerTrack, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: empty title", shared.ErrInvalidInput)
	}

	q := fmt.Sprintf("track:%q", title)
	if artist = strings.TrimSpace(artist); artist != "" {
		q = fmt.Sprintf("artist:%q %s", artist, q)
	}

	var response struct {
		Data  []DeezerTrack `json:"data"`
		Total int           `json:"total"`
	}
	query := url.Values{"q": {q}, "limit": {"10"}}
	if err := d.doRequest(ctx, http.MethodGet, "/search/track", query, shared.ErrTrackNotFound, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// CreatePlaylist creates a playlist owned by the token's user.
func (d *DeezerService) CreatePlaylist(ctx context.Context, title string) (*DeezerPlaylist, error) {
	accessToken := d.token()
	if accessToken == "" {
		return nil, fmt.Errorf("%w: deezer access token required to create playlists", shared.ErrNotAuthenticated)
	}
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("%w: empty playlist title", shared.ErrInvalidInput)
	}

	var created struct {
		ID int64 `json:"id"`
	}
	query := url.Values{"title": {title}, "access_token": {accessToken}}
	if err := d.doRequest(ctx, http.MethodPost, "/user/me/playlists", query, shared.ErrPlaylistNotFound, &created); err != nil {
		return nil, err
	}
	if created.ID == 0 {
		return nil, fmt.Errorf("%w: deezer returned no playlist id", shared.ErrAPIRequest)
	}

	return &DeezerPlaylist{
		ID:    created.ID,
		Title: title,
		Link:  fmt.Sprintf("https://www.deezer.com/playlist/%d", created.ID),
	}, nil
}

// AddTracks appends tracks to playlistID in batches.
func (d *DeezerService) AddTracks(ctx context.Context, playlistID int64, trackIDs []int64) error {
	accessToken := d.token()
	if accessToken == "" {
		return fmt.Errorf("%w: deezer access token required to add tracks", shared.ErrNotAuthenticated)
	}

	endpoint := fmt.Sprintf("/playlist/%d/tracks", playlistID)
	for start := 0; start < len(trackIDs); start += deezerAddBatch {
		end := min(start+deezerAddBatch, len(trackIDs))

		ids := make([]string, 0, end-start)
		for _, id := range trackIDs[start:end] {
			ids = append(ids, strconv.FormatInt(id, 10))
		}

		query := url.Values{"songs": {strings.Join(ids, ",")}, "access_token": {accessToken}}
		if err := d.doRequest(ctx, http.MethodPost, endpoint, query, shared.ErrPlaylistNotFound, nil); err != nil {
			return fmt.Errorf("failed to add tracks %d-%d: %w", start, end, err)
		}
	}
	return nil
}
