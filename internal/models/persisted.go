package models

import (
	"fmt"
	"strings"
	"time"
)

// ServiceSpotify is the service name stored with cached Spotify tracks.
const ServiceSpotify = "spotify"

var _ Model = (*PersistedTrack)(nil)
var _ Model = (*TransferJob)(nil)

// PersistedTrack is a cached [Track] from a music service.
type PersistedTrack struct {
	base
	service   string
	serviceID string
	track     Track
}

// NewPersistedTrack wraps track for storage under service.
func NewPersistedTrack(sequence int, service string, track Track) *PersistedTrack {
	return &PersistedTrack{
		base:      newBase(sequence),
		service:   service,
		serviceID: track.ID,
		track:     track,
	}
}

func (t *PersistedTrack) Service() string   { return t.service }
func (t *PersistedTrack) ServiceID() string { return t.serviceID }
func (t *PersistedTrack) Title() string     { return t.track.Name }
func (t *PersistedTrack) Album() string     { return t.track.Album }
func (t *PersistedTrack) ISRC() string      { return t.track.ISRC }
func (t *PersistedTrack) URI() string       { return t.track.URI }

// Artists returns artist names encoded for a single text column.
func (t *PersistedTrack) Artists() string {
	return EncodeArtists(t.track.Artists)
}

// Track returns the wire representation.
func (t *PersistedTrack) Track() Track {
	return t.track
}

// SetTrack replaces cached metadata, keeping the service id.
func (t *PersistedTrack) SetTrack(track Track) {
	track.ID = t.serviceID
	t.track = track
}

// Validate checks required fields.
func (t *PersistedTrack) Validate() error {
	switch {
	case t.service == "":
		return fmt.Errorf("service is required")
	case t.serviceID == "":
		return fmt.Errorf("service_id is required")
	case t.track.Name == "":
		return fmt.Errorf("title is required")
	}
	return nil
}

// artistSeparator cannot appear in artist names returned by Spotify.
const artistSeparator = "\x1f"

// EncodeArtists joins names with an ASCII unit separator.
func EncodeArtists(artists []string) string {
	return strings.Join(artists, artistSeparator)
}

// DecodeArtists reverses [EncodeArtists].
func DecodeArtists(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, artistSeparator)
}

// TransferStatus is the lifecycle state of a [TransferJob].
type TransferStatus string

const (
	TransferPending   TransferStatus = "pending"
	TransferRunning   TransferStatus = "running"
	TransferCompleted TransferStatus = "completed"
	TransferFailed    TransferStatus = "failed"
)

// Valid reports whether s is a known status.
func (s TransferStatus) Valid() bool {
	switch s {
	case TransferPending, TransferRunning, TransferCompleted, TransferFailed:
		return true
	}
	return false
}

// TransferJob records one submitted transfer.
type TransferJob struct {
	base
	playlistName     string
	targetPlaylistID string
	status           TransferStatus
	tracksTotal      int
	tracksMatched    int
	tracksFailed     int
	errorMessage     string
	startedAt        *time.Time
	completedAt      *time.Time
}

// NewTransferJob creates a pending job for total tracks.
func NewTransferJob(sequence int, playlistName string, total int) *TransferJob {
	return &TransferJob{
		base:         newBase(sequence),
		playlistName: playlistName,
		status:       TransferPending,
		tracksTotal:  total,
	}
}

func (j *TransferJob) PlaylistName() string     { return j.playlistName }
func (j *TransferJob) TargetPlaylistID() string { return j.targetPlaylistID }
func (j *TransferJob) Status() TransferStatus   { return j.status }
func (j *TransferJob) TracksTotal() int         { return j.tracksTotal }
func (j *TransferJob) TracksMatched() int       { return j.tracksMatched }
func (j *TransferJob) TracksFailed() int        { return j.tracksFailed }
func (j *TransferJob) ErrorMessage() string     { return j.errorMessage }
func (j *TransferJob) StartedAt() *time.Time    { return j.startedAt }
func (j *TransferJob) CompletedAt() *time.Time  { return j.completedAt }

func (j *TransferJob) SetStatus(s TransferStatus)    { j.status = s }
func (j *TransferJob) SetTargetPlaylistID(id string) { j.targetPlaylistID = id }
func (j *TransferJob) SetErrorMessage(msg string)    { j.errorMessage = msg }
func (j *TransferJob) SetStartedAt(t *time.Time)     { j.startedAt = t }
func (j *TransferJob) SetCompletedAt(t *time.Time)   { j.completedAt = t }
func (j *TransferJob) SetCounts(total, matched, failed int) {
	j.tracksTotal, j.tracksMatched, j.tracksFailed = total, matched, failed
}

// Start marks the job running.
func (j *TransferJob) Start() {
	now := time.Now().UTC()
	j.status = TransferRunning
	j.startedAt = &now
}

// Complete marks the job finished with the given counts.
func (j *TransferJob) Complete(matched, failed int, targetPlaylistID string) {
	now := time.Now().UTC()
	j.status = TransferCompleted
	j.tracksMatched = matched
	j.tracksFailed = failed
	j.targetPlaylistID = targetPlaylistID
	j.completedAt = &now
}

// Fail marks the job failed with err.
func (j *TransferJob) Fail(err error) {
	now := time.Now().UTC()
	j.status = TransferFailed
	if err != nil {
		j.errorMessage = err.Error()
	}
	j.completedAt = &now
}

// Validate checks required fields and status consistency.
func (j *TransferJob) Validate() error {
	if strings.TrimSpace(j.playlistName) == "" {
		return fmt.Errorf("playlist_name is required")
	}
	if !j.status.Valid() {
		return fmt.Errorf("invalid status %q", j.status)
	}
	if j.tracksTotal < 0 || j.tracksMatched < 0 || j.tracksFailed < 0 {
		return fmt.Errorf("track counts must not be negative")
	}
	if j.tracksMatched+j.tracksFailed > j.tracksTotal {
		return fmt.Errorf("matched + failed exceeds total")
	}
	return nil
}

// TransferSummary is the JSON view of a [TransferJob].
type TransferSummary struct {
	ID               string         `json:"id"`
	PlaylistName     string         `json:"playlistName"`
	Status           TransferStatus `json:"status"`
	Total            int            `json:"total"`
	Matched          int            `json:"matched"`
	Failed           int            `json:"failed"`
	DeezerPlaylistID string         `json:"deezerPlaylistId,omitempty"`
	Error            string         `json:"error,omitempty"`
	CreatedAt        time.Time      `json:"createdAt"`
	StartedAt        *time.Time     `json:"startedAt,omitempty"`
	CompletedAt      *time.Time     `json:"completedAt,omitempty"`
}

// Summary returns the JSON view of j.
func (j *TransferJob) Summary() TransferSummary {
	return TransferSummary{
		ID:               j.ID(),
		PlaylistName:     j.playlistName,
		Status:           j.status,
		Total:            j.tracksTotal,
		Matched:          j.tracksMatched,
		Failed:           j.tracksFailed,
		DeezerPlaylistID: j.targetPlaylistID,
		Error:            j.errorMessage,
		CreatedAt:        j.CreatedAt(),
		StartedAt:        j.startedAt,
		CompletedAt:      j.completedAt,
	}
}
