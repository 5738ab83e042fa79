// package models defines the data model for the jukebox web service
package models

import (
	"fmt"
	"time"
)

// Model defines the base interface for all persistent models in the jukebox service.
// Implementations include User, QueueEntry and PlaylistSelection.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
// Implementations handle database interactions for specific model types.
type Repository[T Model] interface {
	Create(model T) error                      // Create inserts a new model into the database
	Get(id string) (T, error)                  // Get retrieves a model by its ID
	Update(model T) error                      // Update modifies an existing model in the database
	Delete(id string) error                    // Delete removes a model from the database by its ID
	List(criteria map[string]any) ([]T, error) // List retrieves all models matching the given criteria
}

// base carries the lifecycle fields shared by every persistent entity.
type base struct {
	id        string
	sequence  int
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

func (b *base) ID() string                { return b.id }
func (b *base) Sequence() int             { return b.sequence }
func (b *base) CreatedAt() time.Time      { return b.createdAt }
func (b *base) UpdatedAt() time.Time      { return b.updatedAt }
func (b *base) DeletedAt() *time.Time     { return b.deletedAt }
func (b *base) SetID(id string)           { b.id = id }
func (b *base) SetCreatedAt(t time.Time)  { b.createdAt = t }
func (b *base) SetUpdatedAt(t time.Time)  { b.updatedAt = t }
func (b *base) SetDeletedAt(t *time.Time) { b.deletedAt = t }

// User represents a jukebox account keyed by the Spotify profile that authorized it.
type User struct {
	base
	spotifyID   string
	displayName string
	email       string
	imageURL    string
}

// NewUser creates a User entity with the given sequence and Spotify profile data.
func NewUser(sequence int, spotifyID, displayName string) *User {
	now := time.Now()
	u := &User{spotifyID: spotifyID, displayName: displayName}
	u.sequence = sequence
	u.createdAt = now
	u.updatedAt = now
	return u
}

func (u *User) SpotifyID() string   { return u.spotifyID }
func (u *User) DisplayName() string { return u.displayName }
func (u *User) Email() string       { return u.email }
func (u *User) ImageURL() string    { return u.imageURL }

func (u *User) SetDisplayName(name string) { u.displayName = name }
func (u *User) SetEmail(email string)      { u.email = email }
func (u *User) SetImageURL(url string)     { u.imageURL = url }

// Validate checks that the user has an ID and a Spotify profile ID.
func (u *User) Validate() error {
	if u.id == "" {
		return fmt.Errorf("user ID is required")
	}
	if u.spotifyID == "" {
		return fmt.Errorf("user spotify ID is required")
	}
	return nil
}

// QueueEntry records a track a user pushed onto the playback queue.
type QueueEntry struct {
	base
	userID     string
	trackID    string
	trackName  string
	artistName string
	playlistID string
}

// NewQueueEntry creates a QueueEntry for the given user and track metadata.
func NewQueueEntry(sequence int, userID, trackID, trackName, artistName string) *QueueEntry {
	now := time.Now()
	e := &QueueEntry{userID: userID, trackID: trackID, trackName: trackName, artistName: artistName}
	e.sequence = sequence
	e.createdAt = now
	e.updatedAt = now
	return e
}

func (e *QueueEntry) UserID() string     { return e.userID }
func (e *QueueEntry) TrackID() string    { return e.trackID }
func (e *QueueEntry) TrackName() string  { return e.trackName }
func (e *QueueEntry) ArtistName() string { return e.artistName }
func (e *QueueEntry) PlaylistID() string { return e.playlistID }

func (e *QueueEntry) SetPlaylistID(id string) { e.playlistID = id }

// Validate checks that the entry references a user and a track.
func (e *QueueEntry) Validate() error {
	if e.id == "" {
		return fmt.Errorf("queue entry ID is required")
	}
	if e.userID == "" {
		return fmt.Errorf("queue entry user ID is required")
	}
	if e.trackID == "" {
		return fmt.Errorf("queue entry track ID is required")
	}
	return nil
}

// PlaylistSelection records the playlist a user last chose to browse, so the
// jukebox can reopen it on the next visit.
type PlaylistSelection struct {
	base
	userID            string
	spotifyPlaylistID string
	playlistName      string
	imageURL          string
	selectedAt        time.Time
}

// NewPlaylistSelection creates a PlaylistSelection for the given user and playlist.
func NewPlaylistSelection(sequence int, userID, spotifyPlaylistID, playlistName string) *PlaylistSelection {
	now := time.Now()
	s := &PlaylistSelection{
		userID:            userID,
		spotifyPlaylistID: spotifyPlaylistID,
		playlistName:      playlistName,
		selectedAt:        now,
	}
	s.sequence = sequence
	s.createdAt = now
	s.updatedAt = now
	return s
}

func (s *PlaylistSelection) UserID() string            { return s.userID }
func (s *PlaylistSelection) SpotifyPlaylistID() string { return s.spotifyPlaylistID }
func (s *PlaylistSelection) PlaylistName() string      { return s.playlistName }
func (s *PlaylistSelection) ImageURL() string          { return s.imageURL }
func (s *PlaylistSelection) SelectedAt() time.Time     { return s.selectedAt }

func (s *PlaylistSelection) SetImageURL(url string)      { s.imageURL = url }
func (s *PlaylistSelection) SetSelectedAt(t time.Time)   { s.selectedAt = t }
func (s *PlaylistSelection) SetPlaylistName(name string) { s.playlistName = name }

// Validate checks that the selection references a user and a playlist.
func (s *PlaylistSelection) Validate() error {
	if s.id == "" {
		return fmt.Errorf("playlist selection ID is required")
	}
	if s.userID == "" {
		return fmt.Errorf("playlist selection user ID is required")
	}
	if s.spotifyPlaylistID == "" {
		return fmt.Errorf("playlist selection playlist ID is required")
	}
	return nil
}
