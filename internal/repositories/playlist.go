package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jukebox-fm/jukebox/internal/models"
	"github.com/jukebox-fm/jukebox/internal/shared"
)

// PlaylistSelectionRepository implements [models.Repository] for [models.PlaylistSelection] persistence.
//
// Selections are unique per (user, playlist) pair. Select upserts, so browsing
// the same playlist again only bumps its selected_at timestamp.
type PlaylistSelectionRepository struct {
	db *sql.DB
}

// NewPlaylistSelectionRepository creates a new [PlaylistSelectionRepository] with the given database connection
func NewPlaylistSelectionRepository(db *sql.DB) *PlaylistSelectionRepository {
	return &PlaylistSelectionRepository{db: db}
}

// Select records that a user chose to browse a playlist, creating the
// selection on first use and refreshing it afterwards.
func (r *PlaylistSelectionRepository) Select(userID, spotifyPlaylistID, playlistName string) (*models.PlaylistSelection, error) {
	existing, err := r.find(userID, spotifyPlaylistID)
	if err == nil {
		existing.SetSelectedAt(time.Now())
		if playlistName != "" {
			existing.SetPlaylistName(playlistName)
		}
		if err := r.Update(existing); err != nil {
			return nil, err
		}
		return existing, nil
	}

	selection := models.NewPlaylistSelection(0, userID, spotifyPlaylistID, playlistName)
	if err := r.Create(selection); err != nil {
		return nil, err
	}
	return selection, nil
}

// LastSelected returns the playlist a user most recently browsed.
func (r *PlaylistSelectionRepository) LastSelected(userID string) (*models.PlaylistSelection, error) {
	query := selectSelections + " AND user_id = ? ORDER BY selected_at DESC LIMIT 1"

	selection, err := scanSelection(r.db.QueryRow(query, userID).Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no playlist selection for user: %s", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query playlist selection: %w", err)
	}
	return selection, nil
}

// Create inserts a new playlist selection with generated ID and sequence
func (r *PlaylistSelectionRepository) Create(selection *models.PlaylistSelection) error {
	sequence, err := NextSequence(r.db, "playlist_selections")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	selection.SetID(shared.GenerateID())

	if err := selection.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO playlist_selections (id, sequence, user_id, spotify_playlist_id, playlist_name, image_url, selected_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query, selection.ID(), sequence, selection.UserID(), selection.SpotifyPlaylistID(), selection.PlaylistName(), nullable(selection.ImageURL()), selection.SelectedAt(), selection.CreatedAt(), selection.UpdatedAt())
	if err != nil {
		return fmt.Errorf("failed to insert playlist selection: %w", err)
	}

	return nil
}

// Get retrieves a playlist selection by ID, excluding soft-deleted selections
func (r *PlaylistSelectionRepository) Get(id string) (*models.PlaylistSelection, error) {
	query := selectSelections + " AND id = ?"

	selection, err := scanSelection(r.db.QueryRow(query, id).Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("playlist selection not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query playlist selection: %w", err)
	}
	return selection, nil
}

// Update modifies an existing playlist selection in the database
func (r *PlaylistSelectionRepository) Update(selection *models.PlaylistSelection) error {
	if err := selection.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	selection.SetUpdatedAt(now)

	query := `
		UPDATE playlist_selections
		SET playlist_name = ?, image_url = ?, selected_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, selection.PlaylistName(), nullable(selection.ImageURL()), selection.SelectedAt(), now, selection.ID())
	if err != nil {
		return fmt.Errorf("failed to update playlist selection: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("playlist selection not found or already deleted: %s", selection.ID())
	}

	return nil
}

// Delete soft-deletes a playlist selection by ID
func (r *PlaylistSelectionRepository) Delete(id string) error {
	result, err := r.db.Exec(`UPDATE playlist_selections SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete playlist selection: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("playlist selection not found or already deleted: %s", id)
	}

	return nil
}

// List retrieves all playlist selections matching the given criteria, most recent first
func (r *PlaylistSelectionRepository) List(criteria map[string]any) ([]*models.PlaylistSelection, error) {
	query := selectSelections
	args := []any{}

	if userID, ok := criteria["user_id"].(string); ok && userID != "" {
		query += " AND user_id = ?"
		args = append(args, userID)
	}
	if playlistID, ok := criteria["spotify_playlist_id"].(string); ok && playlistID != "" {
		query += " AND spotify_playlist_id = ?"
		args = append(args, playlistID)
	}

	query += " ORDER BY selected_at DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlist selections: %w", err)
	}
	defer rows.Close()

	var selections []*models.PlaylistSelection
	for rows.Next() {
		selection, err := scanSelection(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan playlist selection: %w", err)
		}
		selections = append(selections, selection)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return selections, nil
}

func (r *PlaylistSelectionRepository) find(userID, spotifyPlaylistID string) (*models.PlaylistSelection, error) {
	query := selectSelections + " AND user_id = ? AND spotify_playlist_id = ?"
	return scanSelection(r.db.QueryRow(query, userID, spotifyPlaylistID).Scan)
}

const selectSelections = `
	SELECT id, sequence, user_id, spotify_playlist_id, playlist_name, image_url, selected_at, created_at, updated_at, deleted_at
	FROM playlist_selections
	WHERE deleted_at IS NULL
`

// scanSelection builds a PlaylistSelection from a row scan function.
func scanSelection(scan func(...any) error) (*models.PlaylistSelection, error) {
	var (
		id           string
		sequence     int
		userID       string
		playlistID   string
		playlistName sql.NullString
		imageURL     sql.NullString
		selectedAt   time.Time
		createdAt    time.Time
		updatedAt    time.Time
		deletedAt    sql.NullTime
	)

	if err := scan(&id, &sequence, &userID, &playlistID, &playlistName, &imageURL, &selectedAt, &createdAt, &updatedAt, &deletedAt); err != nil {
		return nil, err
	}

	selection := models.NewPlaylistSelection(sequence, userID, playlistID, playlistName.String)
	selection.SetID(id)
	selection.SetCreatedAt(createdAt)
	selection.SetUpdatedAt(updatedAt)
	selection.SetSelectedAt(selectedAt)
	selection.SetImageURL(imageURL.String)
	if deletedAt.Valid {
		selection.SetDeletedAt(&deletedAt.Time)
	}

	return selection, nil
}
