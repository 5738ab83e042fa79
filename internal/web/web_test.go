package web

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jukebox-fm/jukebox/internal/auth"
	"github.com/jukebox-fm/jukebox/internal/models"
	"github.com/jukebox-fm/jukebox/internal/repositories"
	"github.com/jukebox-fm/jukebox/internal/services"
	"github.com/jukebox-fm/jukebox/internal/shared"
	tu "github.com/jukebox-fm/jukebox/internal/testing"
	"golang.org/x/oauth2"
)

func newTestApp(t *testing.T, spotify services.Service, withDB bool) *App {
	t.Helper()

	oauthConfig, err := services.NewOAuthConfig(map[string]string{
		"client_id":     "test_id",
		"client_secret": "test_secret",
	})
	if err != nil {
		t.Fatalf("failed to create oauth config: %v", err)
	}

	repos := Repos{}
	if withDB {
		db, err := shared.NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		t.Cleanup(func() { db.Close() })
		if err := shared.RunMigrations(db); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
		repos = Repos{
			Users:      repositories.NewUserRepository(db),
			History:    repositories.NewQueueEntryRepository(db),
			Selections: repositories.NewPlaylistSelectionRepository(db),
		}
	}

	app, err := NewApp(shared.DefaultConfig(), shared.NewLogger(io.Discard), auth.NewManager(oauthConfig), spotify, repos)
	if err != nil {
		t.Fatalf("failed to create app: %v", err)
	}
	return app
}

// login installs a fresh session and returns its cookie.
func login(t *testing.T, app *App, userID string) *http.Cookie {
	t.Helper()

	session := &models.Session{
		ID:           shared.GenerateID(),
		UserID:       userID,
		AccessToken:  "valid_token",
		RefreshToken: "refresh_token",
		Expiry:       time.Now().Add(time.Hour),
	}
	app.Sessions().Put(session)

	if userID != "" && app.repos.Users != nil {
		if _, err := app.repos.Users.GetOrCreate(userID, "Test User", "", ""); err != nil {
			t.Fatalf("failed to seed user: %v", err)
		}
	}

	return &http.Cookie{Name: SessionCookie, Value: session.ID}
}

func doRequest(app *App, method, target string, body io.Reader, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	app.Router().ServeHTTP(rec, req)
	return rec
}

func TestPages(t *testing.T) {
	t.Run("Index Without Session Renders Login", func(t *testing.T) {
		app := newTestApp(t, &tu.MockService{}, false)

		rec := doRequest(app, http.MethodGet, "/", nil, nil)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Log in with Spotify") {
			t.Error("expected login link on index page")
		}
	})

	t.Run("Index With Session Redirects To Jukebox", func(t *testing.T) {
		app := newTestApp(t, &tu.MockService{}, false)
		cookie := login(t, app, "spotify_user")

		rec := doRequest(app, http.MethodGet, "/", nil, cookie)

		if rec.Code != http.StatusFound {
			t.Fatalf("expected 302, got %d", rec.Code)
		}
		if loc := rec.Header().Get("Location"); loc != "/jukebox" {
			t.Errorf("expected redirect to /jukebox, got %s", loc)
		}
	})

	t.Run("Jukebox Without Session Redirects Home", func(t *testing.T) {
		app := newTestApp(t, &tu.MockService{}, false)

		rec := doRequest(app, http.MethodGet, "/jukebox", nil, nil)

		if rec.Code != http.StatusFound {
			t.Fatalf("expected 302, got %d", rec.Code)
		}
		if loc := rec.Header().Get("Location"); loc != "/" {
			t.Errorf("expected redirect to /, got %s", loc)
		}
	})

	t.Run("Callback With Invalid State", func(t *testing.T) {
		app := newTestApp(t, &tu.MockService{}, false)

		rec := doRequest(app, http.MethodGet, "/callback?state=forged&code=abc", nil, nil)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for forged state, got %d", rec.Code)
		}
	})

	t.Run("Logout Destroys Session", func(t *testing.T) {
		app := newTestApp(t, &tu.MockService{}, false)
		cookie := login(t, app, "spotify_user")

		if app.Sessions().Len() != 1 {
			t.Fatal("expected one live session")
		}

		rec := doRequest(app, http.MethodGet, "/logout", nil, cookie)

		if rec.Code != http.StatusFound {
			t.Fatalf("expected 302, got %d", rec.Code)
		}
		if app.Sessions().Len() != 0 {
			t.Error("expected session to be destroyed")
		}
	})
}

func TestAPI(t *testing.T) {
	t.Run("Requires Authentication", func(t *testing.T) {
		app := newTestApp(t, &tu.MockService{}, false)

		for _, target := range []string{"/api/playlists", "/api/devices", "/api/history"} {
			rec := doRequest(app, http.MethodGet, target, nil, nil)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("%s: expected 401, got %d", target, rec.Code)
			}
		}
	})

	t.Run("Playlists", func(t *testing.T) {
		spotify := &tu.MockService{
			PlaylistsFunc: func(ctx context.Context, token string) ([]models.Playlist, error) {
				if token != "valid_token" {
					t.Errorf("expected session token, got %s", token)
				}
				return []models.Playlist{{ID: "pl1", Name: "Bossa Nova", TrackCount: 3}}, nil
			},
		}
		app := newTestApp(t, spotify, false)
		cookie := login(t, app, "spotify_user")

		rec := doRequest(app, http.MethodGet, "/api/playlists", nil, cookie)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var body struct {
			Playlists []models.Playlist `json:"playlists"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(body.Playlists) != 1 || body.Playlists[0].Name != "Bossa Nova" {
			t.Errorf("unexpected playlists: %+v", body.Playlists)
		}
	})

	t.Run("Playlist Tracks Records Selection", func(t *testing.T) {
		spotify := &tu.MockService{
			PlaylistTracksFunc: func(ctx context.Context, token, playlistID string) ([]models.Track, error) {
				if playlistID != "pl1" {
					t.Errorf("expected pl1, got %s", playlistID)
				}
				return []models.Track{{ID: "t1", Title: "Desafinado", Artists: []string{"Stan Getz"}, URI: "spotify:track:t1"}}, nil
			},
		}
		app := newTestApp(t, spotify, true)
		cookie := login(t, app, "spotify_user")

		rec := doRequest(app, http.MethodGet, "/api/playlists/pl1/tracks?name=Bossa+Nova", nil, cookie)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		user, err := app.repos.Users.GetBySpotifyID("spotify_user")
		if err != nil {
			t.Fatalf("expected user to be stored: %v", err)
		}
		selection, err := app.repos.Selections.LastSelected(user.ID())
		if err != nil {
			t.Fatalf("expected selection to be recorded: %v", err)
		}
		if selection.SpotifyPlaylistID() != "pl1" {
			t.Errorf("expected pl1, got %s", selection.SpotifyPlaylistID())
		}
		if selection.PlaylistName() != "Bossa Nova" {
			t.Errorf("expected playlist name from query, got %s", selection.PlaylistName())
		}
	})

	t.Run("Enqueue", func(t *testing.T) {
		t.Run("Success Records History", func(t *testing.T) {
			var got models.QueueRequest
			spotify := &tu.MockService{
				EnqueueFunc: func(ctx context.Context, token string, req models.QueueRequest) error {
					got = req
					return nil
				},
			}
			app := newTestApp(t, spotify, true)
			cookie := login(t, app, "spotify_user")

			payload := `{"track_uri":"spotify:track:t1","track_id":"t1","track_name":"Desafinado","artist_name":"Stan Getz","playlist_id":"pl1"}`
			rec := doRequest(app, http.MethodPost, "/api/queue", strings.NewReader(payload), cookie)

			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
			}
			if got.TrackURI != "spotify:track:t1" {
				t.Errorf("expected track URI to reach the facade, got %s", got.TrackURI)
			}

			user, err := app.repos.Users.GetBySpotifyID("spotify_user")
			if err != nil {
				t.Fatalf("expected user to be stored: %v", err)
			}
			entries, err := app.repos.History.RecentForUser(user.ID(), 10)
			if err != nil {
				t.Fatalf("failed to read history: %v", err)
			}
			if len(entries) != 1 {
				t.Fatalf("expected 1 history entry, got %d", len(entries))
			}
			if entries[0].TrackName() != "Desafinado" {
				t.Errorf("expected track name recorded, got %s", entries[0].TrackName())
			}
		})

		t.Run("Missing Track URI", func(t *testing.T) {
			app := newTestApp(t, &tu.MockService{}, false)
			cookie := login(t, app, "spotify_user")

			rec := doRequest(app, http.MethodPost, "/api/queue", strings.NewReader(`{}`), cookie)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rec.Code)
			}
		})

		t.Run("No Active Device", func(t *testing.T) {
			spotify := &tu.MockService{
				EnqueueFunc: func(ctx context.Context, token string, req models.QueueRequest) error {
					return fmt.Errorf("%w: open Spotify somewhere", shared.ErrNoActiveDevice)
				},
			}
			app := newTestApp(t, spotify, false)
			cookie := login(t, app, "spotify_user")

			payload := `{"track_uri":"spotify:track:t1"}`
			rec := doRequest(app, http.MethodPost, "/api/queue", strings.NewReader(payload), cookie)

			if rec.Code != http.StatusConflict {
				t.Fatalf("expected 409, got %d", rec.Code)
			}
		})

		t.Run("Forbidden Leaves Session Intact", func(t *testing.T) {
			spotify := &tu.MockService{
				EnqueueFunc: func(ctx context.Context, token string, req models.QueueRequest) error {
					return fmt.Errorf("%w: missing scope", shared.ErrForbidden)
				},
			}
			app := newTestApp(t, spotify, false)
			cookie := login(t, app, "spotify_user")

			payload := `{"track_uri":"spotify:track:t1"}`
			rec := doRequest(app, http.MethodPost, "/api/queue", strings.NewReader(payload), cookie)

			if rec.Code != http.StatusForbidden {
				t.Fatalf("expected 403, got %d", rec.Code)
			}
			if app.Sessions().Len() != 1 {
				t.Error("expected session to survive a permission error")
			}
		})

		t.Run("Rate Limited", func(t *testing.T) {
			spotify := &tu.MockService{
				EnqueueFunc: func(ctx context.Context, token string, req models.QueueRequest) error {
					return fmt.Errorf("%w: retry after 7s", shared.ErrRateLimited)
				},
			}
			app := newTestApp(t, spotify, false)
			cookie := login(t, app, "spotify_user")

			payload := `{"track_uri":"spotify:track:t1"}`
			rec := doRequest(app, http.MethodPost, "/api/queue", strings.NewReader(payload), cookie)

			if rec.Code != http.StatusTooManyRequests {
				t.Fatalf("expected 429, got %d", rec.Code)
			}
		})
	})

	t.Run("Vendor Outage Does Not Destroy Session", func(t *testing.T) {
		tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "upstream unavailable", http.StatusServiceUnavailable)
		}))
		defer tokenSrv.Close()

		manager := auth.NewManager(&oauth2.Config{
			ClientID:     "test_id",
			ClientSecret: "test_secret",
			Endpoint:     oauth2.Endpoint{AuthURL: tokenSrv.URL, TokenURL: tokenSrv.URL},
		})

		app, err := NewApp(shared.DefaultConfig(), shared.NewLogger(io.Discard), manager, &tu.MockService{}, Repos{})
		if err != nil {
			t.Fatalf("failed to create app: %v", err)
		}

		session := &models.Session{
			ID:           shared.GenerateID(),
			UserID:       "spotify_user",
			AccessToken:  "stale",
			RefreshToken: "refresh_token",
			Expiry:       time.Now().Add(-time.Minute),
		}
		app.Sessions().Put(session)
		cookie := &http.Cookie{Name: SessionCookie, Value: session.ID}

		rec := doRequest(app, http.MethodGet, "/api/playlists", nil, cookie)

		if rec.Code != http.StatusBadGateway {
			t.Fatalf("expected 502, got %d: %s", rec.Code, rec.Body.String())
		}
		if app.Sessions().Len() != 1 {
			t.Error("expected session to survive a vendor outage")
		}
	})

	t.Run("History", func(t *testing.T) {
		app := newTestApp(t, &tu.MockService{}, true)
		cookie := login(t, app, "spotify_user")

		user, err := app.repos.Users.GetBySpotifyID("spotify_user")
		if err != nil {
			t.Fatalf("expected user to be stored: %v", err)
		}
		if _, err := app.repos.History.Record(user.ID(), "t1", "Desafinado", "Stan Getz", "pl1"); err != nil {
			t.Fatalf("failed to seed history: %v", err)
		}

		rec := doRequest(app, http.MethodGet, "/api/history", nil, cookie)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var body struct {
			History []map[string]any `json:"history"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(body.History) != 1 {
			t.Fatalf("expected 1 entry, got %d", len(body.History))
		}
		if body.History[0]["track_name"] != "Desafinado" {
			t.Errorf("unexpected entry: %+v", body.History[0])
		}
	})
}
