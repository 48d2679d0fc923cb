package models

import "strings"

// Track represents one song fetched from a Spotify playlist.
type Track struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Artists []string `json:"artists"`
	Album   string   `json:"album"`
	ISRC    string   `json:"isrc,omitempty"`
	URI     string   `json:"uri,omitempty"`
}

// Artist returns the artist names joined with ", ".
func (t Track) Artist() string {
	return strings.Join(t.Artists, ", ")
}

// PrimaryArtist returns the first listed artist, or "".
func (t Track) PrimaryArtist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0]
}

// FetchRequest is the body of POST /api/spotify/playlist.
type FetchRequest struct {
	PlaylistURL  string `json:"playlistUrl"`
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
}

// Trim returns a copy with surrounding whitespace removed from every field.
func (r FetchRequest) Trim() FetchRequest {
	return FetchRequest{
		PlaylistURL:  strings.TrimSpace(r.PlaylistURL),
		ClientID:     strings.TrimSpace(r.ClientID),
		ClientSecret: strings.TrimSpace(r.ClientSecret),
	}
}

// Complete reports whether every field is present.
func (r FetchRequest) Complete() bool {
	return r.PlaylistURL != "" && r.ClientID != "" && r.ClientSecret != ""
}

// FetchResponse is the success body of POST /api/spotify/playlist.
type FetchResponse struct {
	Tracks []Track `json:"tracks"`
}

// TransferRequest is the body of POST /api/spotify/transfer.
type TransferRequest struct {
	PlaylistName     string   `json:"playlistName"`
	SelectedTrackIDs []string `json:"selectedTrackIds"`
}

// TransferResponse summarizes one selected track.
type TransferResponse struct {
	ISRC   string `json:"isrc"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

// NewTransferResponse builds the summary for t.
func NewTransferResponse(t Track) TransferResponse {
	return TransferResponse{ISRC: t.ISRC, Title: t.Name, Artist: t.Artist()}
}

// MatchSource records how a Deezer track was found.
type MatchSource string

const (
	MatchedByISRC   MatchSource = "isrc"
	MatchedBySearch MatchSource = "search"
	Unmatched       MatchSource = ""
)

// TrackMatch is the Deezer lookup outcome for one Spotify track.
type TrackMatch struct {
	SpotifyID string      `json:"spotifyId"`
	ISRC      string      `json:"isrc,omitempty"`
	Title     string      `json:"title"`
	Artist    string      `json:"artist"`
	DeezerID  int64       `json:"deezerId,omitempty"`
	MatchedBy MatchSource `json:"matchedBy,omitempty"`
	Score     float64     `json:"score,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// Matched reports whether a Deezer track was found.
func (m TrackMatch) Matched() bool {
	return m.DeezerID != 0
}

// TransferResult is the success body of POST /api/spotify/transfer.
type TransferResult struct {
	ID                string             `json:"id,omitempty"`
	PlaylistName      string             `json:"playlistName"`
	Status            TransferStatus     `json:"status"`
	Total             int                `json:"total"`
	Matched           int                `json:"matched"`
	Unmatched         int                `json:"unmatched"`
	Tracks            []TransferResponse `json:"tracks"`
	Matches           []TrackMatch       `json:"matches,omitempty"`
	DeezerPlaylistID  int64              `json:"deezerPlaylistId,omitempty"`
	DeezerPlaylistURL string             `json:"deezerPlaylistUrl,omitempty"`
}

// ErrorResponse is the body returned by every failing API call.
type ErrorResponse struct {
	Error string `json:"error"`
}
