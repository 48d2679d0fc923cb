package models

// Playlist is the metadata of a source playlist.
type Playlist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Owner       string `json:"owner,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
	TrackCount  int    `json:"trackCount"`
}

// PlaylistExport is a playlist together with its tracks, in playlist order.
type PlaylistExport struct {
	Playlist Playlist `json:"playlist"`
	Tracks   []Track  `json:"tracks"`
}
