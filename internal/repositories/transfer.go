package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/s2d/internal/models"
	"github.com/desertthunder/s2d/internal/shared"
)

const transferColumns = `
	id, sequence, playlist_name, target_playlist_id, status, tracks_total,
	tracks_matched, tracks_failed, error_message, started_at,
	completed_at, created_at, updated_at, deleted_at`

var _ models.Repository[*models.TransferJob] = (*TransferRepository)(nil)

// TransferRepository implements models.Repository[*models.TransferJob] for transfer history.
//
// Handles transfer job CRUD operations with soft delete support and status-based queries.
type TransferRepository struct {
	db *sql.DB
}

// NewTransferRepository creates a new TransferRepository with the given database connection
func NewTransferRepository(db *sql.DB) *TransferRepository {
	return &TransferRepository{db: db}
}

// Create inserts a new transfer job into the database with generated ID and sequence
func (r *TransferRepository) Create(job *models.TransferJob) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "transfers")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	job.SetID(shared.GenerateID())
	job.SetSequence(sequence)

	query := `
		INSERT INTO transfers (
			id, sequence, playlist_name, target_playlist_id, status, tracks_total,
			tracks_matched, tracks_failed, error_message, started_at,
			completed_at, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		job.ID(),
		job.Sequence(),
		job.PlaylistName(),
		nullString(job.TargetPlaylistID()),
		string(job.Status()),
		job.TracksTotal(),
		job.TracksMatched(),
		job.TracksFailed(),
		nullString(job.ErrorMessage()),
		job.StartedAt(),
		job.CompletedAt(),
		job.CreatedAt(),
		job.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transfer: %w", err)
	}

	return nil
}

// Get retrieves a transfer job by ID, excluding soft-deleted jobs
func (r *TransferRepository) Get(id string) (*models.TransferJob, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers WHERE id = ? AND deleted_at IS NULL`

	job, err := r.scan(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrTransferNotFound, id)
	}
	return job, err
}

// Update modifies an existing transfer job in the database
func (r *TransferRepository) Update(job *models.TransferJob) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now().UTC()
	job.SetUpdatedAt(now)

	query := `
		UPDATE transfers
		SET target_playlist_id = ?, status = ?, tracks_total = ?,
			tracks_matched = ?, tracks_failed = ?, error_message = ?,
			started_at = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		nullString(job.TargetPlaylistID()),
		string(job.Status()),
		job.TracksTotal(),
		job.TracksMatched(),
		job.TracksFailed(),
		nullString(job.ErrorMessage()),
		job.StartedAt(),
		job.CompletedAt(),
		now,
		job.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update transfer: %w", err)
	}

	return expectOne(result, shared.ErrTransferNotFound, job.ID())
}

// Delete soft-deletes a transfer job by ID
func (r *TransferRepository) Delete(id string) error {
	query := `UPDATE transfers SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`

	result, err := r.db.Exec(query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete transfer: %w", err)
	}

	return expectOne(result, shared.ErrTransferNotFound, id)
}

// List retrieves transfer jobs matching the given criteria, newest first.
//
// Supported criteria: "status" (string or [models.TransferStatus]) and "limit" (int).
func (r *TransferRepository) List(criteria map[string]any) ([]*models.TransferJob, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers WHERE deleted_at IS NULL`
	args := []any{}

	var status string
	switch s := criteria["status"].(type) {
	case string:
		status = s
	case models.TransferStatus:
		status = string(s)
	}
	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transfers: %w", err)
	}
	defer rows.Close()

	var jobs []*models.TransferJob
	for rows.Next() {
		job, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return jobs, nil
}

// Start marks the job running and persists it.
func (r *TransferRepository) Start(job *models.TransferJob) error {
	job.Start()
	return r.Update(job)
}

// Complete records the final counts and Deezer playlist id.
func (r *TransferRepository) Complete(job *models.TransferJob, matched, failed int, targetPlaylistID string) error {
	job.Complete(matched, failed, targetPlaylistID)
	return r.Update(job)
}

// Fail records cause on the job.
func (r *TransferRepository) Fail(job *models.TransferJob, cause error) error {
	job.Fail(cause)
	return r.Update(job)
}

func (r *TransferRepository) scan(s scanner) (*models.TransferJob, error) {
	var (
		id               string
		sequence         int
		playlistName     string
		targetPlaylistID sql.NullString
		status           string
		tracksTotal      int
		tracksMatched    int
		tracksFailed     int
		errorMessage     sql.NullString
		startedAt        sql.NullTime
		completedAt      sql.NullTime
		createdAt        time.Time
		updatedAt        time.Time
		deletedAt        sql.NullTime
	)

	err := s.Scan(
		&id, &sequence, &playlistName, &targetPlaylistID, &status, &tracksTotal,
		&tracksMatched, &tracksFailed, &errorMessage, &startedAt,
		&completedAt, &createdAt, &updatedAt, &deletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan transfer: %w", err)
	}

	job := models.NewTransferJob(sequence, playlistName, tracksTotal)
	job.SetID(id)
	job.SetCreatedAt(createdAt)
	job.SetUpdatedAt(updatedAt)
	job.SetStatus(models.TransferStatus(status))
	job.SetCounts(tracksTotal, tracksMatched, tracksFailed)

	if targetPlaylistID.Valid {
		job.SetTargetPlaylistID(targetPlaylistID.String)
	}
	if errorMessage.Valid {
		job.SetErrorMessage(errorMessage.String)
	}
	if startedAt.Valid {
		job.SetStartedAt(&startedAt.Time)
	}
	if completedAt.Valid {
		job.SetCompletedAt(&completedAt.Time)
	}
	if deletedAt.Valid {
		job.SetDeletedAt(&deletedAt.Time)
	}

	return job, nil
}
