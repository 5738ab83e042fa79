// Spotify API implementation of [Service]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jukebox-fm/jukebox/internal/models"
	"github.com/jukebox-fm/jukebox/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"
)

// Scopes cover playback state reads, queue writes and private playlist reads.
var spotifyScopes = []string{
	"user-read-playback-state",
	"user-modify-playback-state",
	"playlist-read-private",
	"user-library-read",
	"user-read-email",
}

// NewOAuthConfig builds the Spotify OAuth2 configuration from credentials.
// Requires "client_id" and "client_secret"; "redirect_uri" defaults to the
// local callback route.
func NewOAuthConfig(credentials map[string]string) (*oauth2.Config, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://localhost:3000/callback"
	}

	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       spotifyScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}, nil
}

type spotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

type spotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

type spotifyAlbum struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Images []spotifyImage `json:"images"`
}

type spotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []spotifyArtist `json:"artists"`
	Album      spotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
	URI        string          `json:"uri"`
}

type spotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email"`
	Images      []spotifyImage `json:"images"`
}

type spotifyDevice struct {
	ID       string `json:"id"`
	IsActive bool   `json:"is_active"`
	Name     string `json:"name"`
	Type     string `json:"type"`
}

type simplePlaylist struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Public      bool           `json:"public"`
	Images      []spotifyImage `json:"images"`
	Tracks      struct {
		Total int `json:"total"`
	} `json:"tracks"`
}

type paginatedPlaylists struct {
	Items []simplePlaylist `json:"items"`
	Next  *string          `json:"next"`
}

type playlistItem struct {
	Track *spotifyTrack `json:"track"`
}

type paginatedPlaylistItems struct {
	Items []playlistItem `json:"items"`
	Next  *string        `json:"next"`
}

// spotifyError mirrors the regular error object the Web API returns.
type spotifyError struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
		Reason  string `json:"reason"`
	} `json:"error"`
}

// SpotifyService implements [Service] against the Spotify Web API.
//
// The service is stateless with respect to authentication: access tokens
// arrive per call and are never stored or refreshed here. A client-side
// limiter keeps request bursts under the vendor's throttling threshold.
type SpotifyService struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// requestsPerSecond is the client-side ceiling on API calls.
const requestsPerSecond = 10

// NewSpotifyService creates a Spotify facade. A nil client falls back to a
// timeout-bounded default.
func NewSpotifyService(client *http.Client) *SpotifyService {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &SpotifyService{
		baseURL:    spotifyBaseURL,
		httpClient: client,
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

// SetBaseURL points the facade at a different API host. Used by tests.
func (s *SpotifyService) SetBaseURL(u string) { s.baseURL = u }

func (s *SpotifyService) Name() string { return "Spotify" }

// doRequest performs one authenticated call and decodes the JSON response
// into result when non-nil. Vendor status codes map onto the shared error
// taxonomy; transport failures surface as [shared.ErrNetworkFailure].
func (s *SpotifyService) doRequest(ctx context.Context, token, method, endpoint string, result any) error {
	if token == "" {
		return shared.ErrNotAuthenticated
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrNetworkFailure, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrNetworkFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return s.apiError(resp)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// apiError translates a non-2xx vendor response into a typed error.
func (s *SpotifyService) apiError(resp *http.Response) error {
	var body spotifyError
	_ = json.NewDecoder(resp.Body).Decode(&body)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", shared.ErrTokenExpired, body.Error.Message)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %s", shared.ErrForbidden, body.Error.Message)
	case http.StatusNotFound:
		if body.Error.Reason == "NO_ACTIVE_DEVICE" {
			return fmt.Errorf("%w: %s", shared.ErrNoActiveDevice, body.Error.Message)
		}
		return fmt.Errorf("%w: status 404: %s", shared.ErrAPIRequest, body.Error.Message)
	case http.StatusTooManyRequests:
		retryAfter := time.Duration(0)
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
			retryAfter = time.Duration(secs) * time.Second
		}
		return fmt.Errorf("%w: retry after %s", shared.ErrRateLimited, retryAfter)
	default:
		return fmt.Errorf("%w: status %d: %s", shared.ErrAPIRequest, resp.StatusCode, body.Error.Message)
	}
}

// Profile retrieves the authenticated user's profile.
func (s *SpotifyService) Profile(ctx context.Context, token string) (*Profile, error) {
	var user spotifyUser
	if err := s.doRequest(ctx, token, http.MethodGet, "/me", &user); err != nil {
		return nil, err
	}

	profile := &Profile{ID: user.ID, DisplayName: user.DisplayName, Email: user.Email}
	if len(user.Images) > 0 {
		profile.ImageURL = user.Images[0].URL
	}
	return profile, nil
}

// Playlists retrieves all playlists of the authenticated user, walking the
// paginated endpoint until exhausted.
func (s *SpotifyService) Playlists(ctx context.Context, token string) ([]models.Playlist, error) {
	var playlists []models.Playlist
	limit, offset := 50, 0

	for {
		endpoint := fmt.Sprintf("/me/playlists?limit=%d&offset=%d", limit, offset)

		var page paginatedPlaylists
		if err := s.doRequest(ctx, token, http.MethodGet, endpoint, &page); err != nil {
			return nil, err
		}

		for _, sp := range page.Items {
			playlist := models.Playlist{
				ID:          sp.ID,
				Name:        sp.Name,
				Description: sp.Description,
				TrackCount:  sp.Tracks.Total,
				Public:      sp.Public,
			}
			if len(sp.Images) > 0 {
				playlist.ImageURL = sp.Images[0].URL
			}
			playlists = append(playlists, playlist)
		}

		if page.Next == nil {
			break
		}
		offset += limit
	}

	return playlists, nil
}

// PlaylistTracks retrieves every playable track in a playlist. Null track
// entries (removed or unavailable items) are skipped.
func (s *SpotifyService) PlaylistTracks(ctx context.Context, token, playlistID string) ([]models.Track, error) {
	if playlistID == "" {
		return nil, fmt.Errorf("%w: empty playlist ID", shared.ErrInvalidArgument)
	}

	var tracks []models.Track
	limit, offset := 100, 0

	for {
		endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=%d&offset=%d", url.PathEscape(playlistID), limit, offset)

		var page paginatedPlaylistItems
		if err := s.doRequest(ctx, token, http.MethodGet, endpoint, &page); err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			if item.Track == nil {
				continue
			}
			tracks = append(tracks, toTrack(*item.Track))
		}

		if page.Next == nil {
			break
		}
		offset += limit
	}

	return tracks, nil
}

// Devices lists the playback devices connected to the user's account.
func (s *SpotifyService) Devices(ctx context.Context, token string) ([]models.Device, error) {
	var response struct {
		Devices []spotifyDevice `json:"devices"`
	}

	if err := s.doRequest(ctx, token, http.MethodGet, "/me/player/devices", &response); err != nil {
		return nil, err
	}

	devices := make([]models.Device, 0, len(response.Devices))
	for _, d := range response.Devices {
		devices = append(devices, models.Device{ID: d.ID, Name: d.Name, Type: d.Type, Active: d.IsActive})
	}
	return devices, nil
}

// Enqueue appends a track to the playback queue of the active device, or of
// the device named in the request.
func (s *SpotifyService) Enqueue(ctx context.Context, token string, req models.QueueRequest) error {
	if req.TrackURI == "" {
		return fmt.Errorf("%w: empty track URI", shared.ErrInvalidArgument)
	}

	params := url.Values{"uri": {req.TrackURI}}
	if req.DeviceID != "" {
		params.Set("device_id", req.DeviceID)
	}

	return s.doRequest(ctx, token, http.MethodPost, "/me/player/queue?"+params.Encode(), nil)
}

// toTrack projects a vendor track onto the domain model, preserving artist order.
func toTrack(st spotifyTrack) models.Track {
	artists := make([]string, 0, len(st.Artists))
	for _, artist := range st.Artists {
		artists = append(artists, artist.Name)
	}

	track := models.Track{
		ID:         st.ID,
		Title:      st.Name,
		Artists:    artists,
		Album:      st.Album.Name,
		DurationMS: st.DurationMS,
		URI:        st.URI,
	}
	if len(st.Album.Images) > 0 {
		track.AlbumArt = st.Album.Images[0].URL
	}
	return track
}

// ArtistLine joins a track's artists the way the jukebox displays them.
func ArtistLine(t models.Track) string {
	return strings.Join(t.Artists, ", ")
}
