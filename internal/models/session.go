package models

import "time"

// Session holds the OAuth credentials for one authenticated user.
//
// A Session is created by the token manager during the authorization code
// exchange and mutated only by a successful refresh. It is transient state:
// it lives in memory for the lifetime of the login and is destroyed on
// logout or when the vendor revokes the refresh token.
type Session struct {
	ID           string    // opaque identifier, doubles as the session cookie value
	UserID       string    // Spotify profile ID of the owner
	AccessToken  string    // short-lived credential sent with every API call
	RefreshToken string    // long-lived credential used to obtain new access tokens
	Expiry       time.Time // access token expiry reported by the vendor
}

// Expired reports whether the access token is unusable at time now,
// accounting for the given skew margin.
func (s *Session) Expired(now time.Time, skew time.Duration) bool {
	return !now.Before(s.Expiry.Add(-skew))
}

// Playlist represents playlist metadata fetched from the streaming service.
// It is a read-only projection, never cached beyond a single request.
type Playlist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	TrackCount  int    `json:"track_count"`
	ImageURL    string `json:"image_url,omitempty"`
	Public      bool   `json:"public"`
}

// Track represents a playable track fetched from the streaming service.
type Track struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Artists    []string `json:"artists"`
	Album      string   `json:"album,omitempty"`
	DurationMS int      `json:"duration_ms"`
	URI        string   `json:"uri"`
	AlbumArt   string   `json:"album_art,omitempty"`
}

// Device represents a playback device connected to the user's account.
type Device struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Type   string `json:"type"`
	Active bool   `json:"is_active"`
}

// QueueRequest asks the streaming service to append one track to the
// playback queue, optionally on a specific device.
type QueueRequest struct {
	TrackURI string `json:"track_uri"`
	DeviceID string `json:"device_id,omitempty"`
}
