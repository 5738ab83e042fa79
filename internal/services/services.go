// package services defines interface Service for interacting with the
// streaming vendor's HTTP API
package services

import (
	"context"

	"github.com/jukebox-fm/jukebox/internal/models"
)

// Service is the playback facade contract: a thin, typed wrapper over the
// music service's playlist, track, device and queue operations.
//
// Every method takes the access token for the call; token acquisition and
// refresh belong to the auth package, never to implementations of Service.
// All operations are fresh upstream requests with no local caching.
type Service interface {
	// Profile retrieves the authenticated user's profile.
	Profile(ctx context.Context, token string) (*Profile, error)

	// Playlists retrieves all playlists of the authenticated user.
	Playlists(ctx context.Context, token string) ([]models.Playlist, error)

	// PlaylistTracks retrieves every playable track in a playlist.
	PlaylistTracks(ctx context.Context, token, playlistID string) ([]models.Track, error)

	// Devices lists the playback devices connected to the user's account.
	Devices(ctx context.Context, token string) ([]models.Device, error)

	// Enqueue appends one track to the playback queue. The queue lives on
	// the vendor side; the mutation is neither observable nor reversible
	// from here.
	Enqueue(ctx context.Context, token string, req models.QueueRequest) error

	// Name returns the name of the service (e.g., "Spotify")
	Name() string
}

// Profile is the slice of the vendor user profile the jukebox needs to
// identify an account.
type Profile struct {
	ID          string
	DisplayName string
	Email       string
	ImageURL    string
}
