// package services defines the music service clients used by transfers
//
// Spotify (source, client credentials), Deezer (destination, OAuth)
package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/desertthunder/s2d/internal/models"
	"github.com/desertthunder/s2d/internal/shared"
	"golang.org/x/oauth2"
)

// TrackSource reads playlist tracks from a streaming service.
type TrackSource interface {
	// Authenticate obtains an access token, failing fast on bad credentials.
	Authenticate(ctx context.Context) error

	// PlaylistTracks returns every track of the playlist, in playlist order.
	PlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error)

	// Track retrieves a single track by ID.
	Track(ctx context.Context, trackID string) (*models.Track, error)

	// SeveralTracks retrieves up to 50 tracks by ID, omitting IDs the service no longer knows.
	SeveralTracks(ctx context.Context, trackIDs []string) ([]models.Track, error)

	// ExportPlaylist returns playlist metadata together with all of its tracks.
	ExportPlaylist(ctx context.Context, playlistID string) (*models.PlaylistExport, error)

	// Name returns the name of the service (e.g., "Spotify")
	Name() string
}

// SourceFactory builds a [TrackSource] from user supplied client credentials.
type SourceFactory func(clientID, clientSecret string) (TrackSource, error)

// TrackDestination looks up and writes tracks on the target service.
type TrackDestination interface {
	// TrackByISRC returns the track with the given ISRC or [shared.ErrTrackNotFound].
	TrackByISRC(ctx context.Context, isrc string) (*DeezerTrack, error)

	// SearchTracks returns candidates for title and artist, best first.
	SearchTracks(ctx context.Context, title, artist string) ([]DeezerTrack, error)

	// CreatePlaylist creates an empty playlist for the authenticated user.
	CreatePlaylist(ctx context.Context, title string) (*DeezerPlaylist, error)

	// AddTracks appends tracks to a playlist.
	AddTracks(ctx context.Context, playlistID int64, trackIDs []int64) error

	// CanWrite reports whether a user access token is available.
	CanWrite() bool

	Name() string
}

// OAuthService is implemented by services that use the authorization code flow.
type OAuthService interface {
	GetAuthURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}

// statusError maps an unsuccessful HTTP status to a wrapped shared sentinel.
func statusError(service string, status int, message string, notFound error) error {
	var sentinel error
	switch {
	case status == http.StatusUnauthorized:
		sentinel = shared.ErrNotAuthenticated
	case status == http.StatusForbidden:
		sentinel = shared.ErrAuthFailed
	case status == http.StatusNotFound:
		sentinel = notFound
	case status == http.StatusTooManyRequests:
		sentinel = shared.ErrRateLimited
	case status == http.StatusBadRequest:
		sentinel = shared.ErrInvalidInput
	default:
		sentinel = shared.ErrAPIRequest
	}

	if sentinel == nil {
		sentinel = shared.ErrAPIRequest
	}

	if message == "" {
		message = http.StatusText(status)
	}
	return fmt.Errorf("%w: %s API error (status %d): %s", sentinel, service, status, message)
}
