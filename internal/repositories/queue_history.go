package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jukebox-fm/jukebox/internal/models"
	"github.com/jukebox-fm/jukebox/internal/shared"
)

// QueueEntryRepository implements [models.Repository] for [models.QueueEntry] persistence.
//
// Queue history is append-mostly: the jukebox records every track a user
// pushes onto the playback queue and reads it back newest first.
type QueueEntryRepository struct {
	db *sql.DB
}

// NewQueueEntryRepository creates a new [QueueEntryRepository] with the given database connection
func NewQueueEntryRepository(db *sql.DB) *QueueEntryRepository {
	return &QueueEntryRepository{db: db}
}

// Record creates and persists a queue entry in one step.
func (r *QueueEntryRepository) Record(userID, trackID, trackName, artistName, playlistID string) (*models.QueueEntry, error) {
	entry := models.NewQueueEntry(0, userID, trackID, trackName, artistName)
	if playlistID != "" {
		entry.SetPlaylistID(playlistID)
	}

	if err := r.Create(entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Create inserts a new queue entry with generated ID and sequence
func (r *QueueEntryRepository) Create(entry *models.QueueEntry) error {
	sequence, err := NextSequence(r.db, "queue_history")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	entry.SetID(shared.GenerateID())

	if err := entry.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO queue_history (id, sequence, user_id, track_id, track_name, artist_name, playlist_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query, entry.ID(), sequence, entry.UserID(), entry.TrackID(), entry.TrackName(), entry.ArtistName(), nullable(entry.PlaylistID()), entry.CreatedAt(), entry.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert queue entry: %w", err)
	}

	return nil
}

// Get retrieves a queue entry by ID, excluding soft-deleted entries
func (r *QueueEntryRepository) Get(id string) (*models.QueueEntry, error) {
	query := selectQueueEntries + " AND id = ?"

	entries, err := r.query(query, id)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("queue entry not found: %s", id)
	}
	return entries[0], nil
}

// Update modifies an existing queue entry in the database
func (r *QueueEntryRepository) Update(entry *models.QueueEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	entry.SetUpdatedAt(now)

	query := `
		UPDATE queue_history
		SET track_name = ?, artist_name = ?, playlist_id = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, entry.TrackName(), entry.ArtistName(), nullable(entry.PlaylistID()), now, entry.ID())
	if err != nil {
		return fmt.Errorf("failed to update queue entry: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("queue entry not found or already deleted: %s", entry.ID())
	}

	return nil
}

// Delete soft-deletes a queue entry by ID
func (r *QueueEntryRepository) Delete(id string) error {
	result, err := r.db.Exec(`UPDATE queue_history SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete queue entry: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("queue entry not found or already deleted: %s", id)
	}

	return nil
}

// List retrieves all queue entries matching the given criteria, newest first
func (r *QueueEntryRepository) List(criteria map[string]any) ([]*models.QueueEntry, error) {
	query := selectQueueEntries
	args := []any{}

	if userID, ok := criteria["user_id"].(string); ok && userID != "" {
		query += " AND user_id = ?"
		args = append(args, userID)
	}
	if playlistID, ok := criteria["playlist_id"].(string); ok && playlistID != "" {
		query += " AND playlist_id = ?"
		args = append(args, playlistID)
	}

	query += " ORDER BY created_at DESC"

	return r.query(query, args...)
}

// RecentForUser retrieves the newest entries for a user, capped at limit.
func (r *QueueEntryRepository) RecentForUser(userID string, limit int) ([]*models.QueueEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	query := selectQueueEntries + " AND user_id = ? ORDER BY created_at DESC LIMIT ?"
	return r.query(query, userID, limit)
}

// RecentSince retrieves a user's entries created in the last given number of days.
func (r *QueueEntryRepository) RecentSince(userID string, days int) ([]*models.QueueEntry, error) {
	if days <= 0 {
		days = 7
	}

	cutoff := time.Now().AddDate(0, 0, -days)
	query := selectQueueEntries + " AND user_id = ? AND created_at >= ? ORDER BY created_at DESC"
	return r.query(query, userID, cutoff)
}

const selectQueueEntries = `
	SELECT id, sequence, user_id, track_id, track_name, artist_name, playlist_id, created_at, updated_at, deleted_at
	FROM queue_history
	WHERE deleted_at IS NULL
`

func (r *QueueEntryRepository) query(query string, args ...any) ([]*models.QueueEntry, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query queue entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.QueueEntry
	for rows.Next() {
		var (
			id         string
			sequence   int
			userID     string
			trackID    string
			trackName  string
			artistName sql.NullString
			playlistID sql.NullString
			createdAt  time.Time
			updatedAt  time.Time
			deletedAt  sql.NullTime
		)

		err := rows.Scan(&id, &sequence, &userID, &trackID, &trackName, &artistName, &playlistID, &createdAt, &updatedAt, &deletedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan queue entry: %w", err)
		}

		entry := models.NewQueueEntry(sequence, userID, trackID, trackName, artistName.String)
		entry.SetID(id)
		entry.SetCreatedAt(createdAt)
		entry.SetUpdatedAt(updatedAt)
		entry.SetPlaylistID(playlistID.String)
		if deletedAt.Valid {
			entry.SetDeletedAt(&deletedAt.Time)
		}

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return entries, nil
}

// nullable maps an empty string to NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
