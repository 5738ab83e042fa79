// Package web implements the browser-facing jukebox application.
//
// Pages are server-rendered with html/template; the jukebox page drives the
// JSON API with small fetch calls. Authentication state lives in an
// in-memory session store keyed by a cookie; tokens never leave the server.
package web

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jukebox-fm/jukebox/internal/auth"
	"github.com/jukebox-fm/jukebox/internal/models"
	"github.com/jukebox-fm/jukebox/internal/repositories"
	"github.com/jukebox-fm/jukebox/internal/server"
	"github.com/jukebox-fm/jukebox/internal/services"
	"github.com/jukebox-fm/jukebox/internal/shared"
)

//go:embed templates/*.html
var templateFiles embed.FS

// SessionCookie is the name of the cookie carrying the session ID.
const SessionCookie = "jukebox_session"

// stateTTL bounds how long a login attempt may sit between redirect and callback.
const stateTTL = 10 * time.Minute

// Repos bundles the persistence the web app records into. Any nil field
// disables that aspect.
type Repos struct {
	Users      *repositories.UserRepository
	History    *repositories.QueueEntryRepository
	Selections *repositories.PlaylistSelectionRepository
}

// App wires the token manager, the playback facade and the repositories
// into the jukebox's HTTP routes.
type App struct {
	config    *shared.Config
	logger    *log.Logger
	manager   *auth.Manager
	sessions  *auth.SessionStore
	spotify   services.Service
	repos     Repos
	templates *template.Template

	mu     sync.Mutex
	states map[string]time.Time
}

// NewApp creates the web application.
func NewApp(config *shared.Config, logger *log.Logger, manager *auth.Manager, spotify services.Service, repos Repos) (*App, error) {
	tmpl, err := template.ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	return &App{
		config:    config,
		logger:    logger,
		manager:   manager,
		sessions:  auth.NewSessionStore(),
		spotify:   spotify,
		repos:     repos,
		templates: tmpl,
		states:    make(map[string]time.Time),
	}, nil
}

// Sessions exposes the session store. Used by tests.
func (a *App) Sessions() *auth.SessionStore { return a.sessions }

// Router assembles the route table with logging and panic recovery.
func (a *App) Router() *server.BasicRouter {
	router := server.NewBasicRouter()
	router.Use(server.Recover(a.logger), server.Logging(a.logger))

	router.Handle(http.MethodGet, "/{$}", http.HandlerFunc(a.handleIndex))
	router.Handle(http.MethodGet, "/login", http.HandlerFunc(a.handleLogin))
	router.Handle(http.MethodGet, "/callback", http.HandlerFunc(a.handleCallback))
	router.Handle(http.MethodGet, "/logout", http.HandlerFunc(a.handleLogout))
	router.Handle(http.MethodGet, "/jukebox", http.HandlerFunc(a.handleJukebox))

	router.Handle(http.MethodGet, "/api/playlists", http.HandlerFunc(a.handlePlaylists))
	router.Handle(http.MethodGet, "/api/playlists/{id}/tracks", http.HandlerFunc(a.handlePlaylistTracks))
	router.Handle(http.MethodGet, "/api/devices", http.HandlerFunc(a.handleDevices))
	router.Handle(http.MethodPost, "/api/queue", http.HandlerFunc(a.handleEnqueue))
	router.Handle(http.MethodGet, "/api/history", http.HandlerFunc(a.handleHistory))

	return router
}

// Serve runs the HTTP server on the configured address until it fails.
func (a *App) Serve() error {
	addr := a.config.Server.Addr()
	a.logger.Info("jukebox listening", "addr", addr)

	srv := &http.Server{
		Addr:         addr,
		Handler:      a.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return srv.ListenAndServe()
}

// session returns the live session for the request cookie, or nil.
func (a *App) session(r *http.Request) *models.Session {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return nil
	}
	return a.sessions.Get(cookie.Value)
}

// token resolves a valid access token for the request, destroying the
// session when the refresh token has been revoked.
func (a *App) token(r *http.Request) (string, *models.Session, error) {
	session := a.session(r)
	if session == nil {
		return "", nil, shared.ErrNotAuthenticated
	}

	token, err := a.manager.ValidToken(r.Context(), session)
	if err != nil {
		if errors.Is(err, shared.ErrRefreshDenied) || errors.Is(err, shared.ErrNoRefreshToken) {
			a.manager.Logout(a.sessions, session.ID)
		}
		return "", nil, err
	}

	return token, session, nil
}

// repoUserID maps the session's Spotify profile ID to the stored user record.
// Returns "" when persistence is disabled or the user was never stored.
func (a *App) repoUserID(session *models.Session) string {
	if a.repos.Users == nil || session.UserID == "" {
		return ""
	}
	user, err := a.repos.Users.GetBySpotifyID(session.UserID)
	if err != nil {
		return ""
	}
	return user.ID()
}

// issueState records a fresh CSRF state token for a login attempt.
func (a *App) issueState() (string, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return "", err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for s, issued := range a.states {
		if time.Since(issued) > stateTTL {
			delete(a.states, s)
		}
	}
	a.states[state] = time.Now()
	return state, nil
}

// consumeState validates and invalidates a state token.
func (a *App) consumeState(state string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	issued, ok := a.states[state]
	if !ok {
		return false
	}
	delete(a.states, state)
	return time.Since(issued) <= stateTTL
}

func (a *App) render(w http.ResponseWriter, name string, data any) {
	if err := a.templates.ExecuteTemplate(w, name, data); err != nil {
		a.logger.Error("template render failed", "template", name, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	if a.session(r) != nil {
		http.Redirect(w, r, "/jukebox", http.StatusFound)
		return
	}
	a.render(w, "index.html", nil)
}

func (a *App) handleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := a.issueState()
	if err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, a.manager.AuthURL(state), http.StatusFound)
}

func (a *App) handleCallback(w http.ResponseWriter, r *http.Request) {
	if !a.consumeState(r.URL.Query().Get("state")) {
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		a.logger.Warn("authorization denied", "error", r.URL.Query().Get("error"))
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	session, err := a.manager.Authorize(r.Context(), code)
	if err != nil {
		a.logger.Error("code exchange failed", "error", err)
		http.Error(w, "Login failed", http.StatusBadGateway)
		return
	}

	if profile, err := a.spotify.Profile(r.Context(), session.AccessToken); err != nil {
		a.logger.Warn("profile fetch failed", "error", err)
	} else {
		session.UserID = profile.ID
		if a.repos.Users != nil {
			if _, err := a.repos.Users.GetOrCreate(profile.ID, profile.DisplayName, profile.Email, profile.ImageURL); err != nil {
				a.logger.Warn("user upsert failed", "error", err)
			}
		}
	}

	a.sessions.Put(session)
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    session.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, "/jukebox", http.StatusFound)
}

func (a *App) handleLogout(w http.ResponseWriter, r *http.Request) {
	if session := a.session(r); session != nil {
		a.manager.Logout(a.sessions, session.ID)
	}

	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1})
	http.Redirect(w, r, "/", http.StatusFound)
}

func (a *App) handleJukebox(w http.ResponseWriter, r *http.Request) {
	session := a.session(r)
	if session == nil {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	a.render(w, "jukebox.html", map[string]any{
		"DefaultPlaylistID": a.config.Jukebox.DefaultPlaylistID,
	})
}

func (a *App) handlePlaylists(w http.ResponseWriter, r *http.Request) {
	token, _, err := a.token(r)
	if err != nil {
		a.writeError(w, err)
		return
	}

	playlists, err := a.spotify.Playlists(r.Context(), token)
	if err != nil {
		a.writeError(w, err)
		return
	}

	a.writeJSON(w, http.StatusOK, map[string]any{"playlists": playlists})
}

func (a *App) handlePlaylistTracks(w http.ResponseWriter, r *http.Request) {
	token, session, err := a.token(r)
	if err != nil {
		a.writeError(w, err)
		return
	}

	playlistID := r.PathValue("id")
	tracks, err := a.spotify.PlaylistTracks(r.Context(), token, playlistID)
	if err != nil {
		a.writeError(w, err)
		return
	}

	if a.repos.Selections != nil {
		if userID := a.repoUserID(session); userID != "" {
			name := r.URL.Query().Get("name")
			if _, err := a.repos.Selections.Select(userID, playlistID, name); err != nil {
				a.logger.Warn("failed to record playlist selection", "error", err)
			}
		}
	}

	a.writeJSON(w, http.StatusOK, map[string]any{"tracks": tracks})
}

func (a *App) handleDevices(w http.ResponseWriter, r *http.Request) {
	token, _, err := a.token(r)
	if err != nil {
		a.writeError(w, err)
		return
	}

	devices, err := a.spotify.Devices(r.Context(), token)
	if err != nil {
		a.writeError(w, err)
		return
	}

	a.writeJSON(w, http.StatusOK, map[string]any{"devices": devices})
}

// enqueuePayload is the POST /api/queue request body.
type enqueuePayload struct {
	TrackURI   string `json:"track_uri"`
	DeviceID   string `json:"device_id"`
	TrackID    string `json:"track_id"`
	TrackName  string `json:"track_name"`
	ArtistName string `json:"artist_name"`
	PlaylistID string `json:"playlist_id"`
}

func (a *App) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	token, session, err := a.token(r)
	if err != nil {
		a.writeError(w, err)
		return
	}

	var payload enqueuePayload
	if err := decodeJSON(r, &payload); err != nil || payload.TrackURI == "" {
		a.writeJSON(w, http.StatusBadRequest, map[string]any{"error": "track_uri is required"})
		return
	}

	err = a.spotify.Enqueue(r.Context(), token, models.QueueRequest{
		TrackURI: payload.TrackURI,
		DeviceID: payload.DeviceID,
	})
	if err != nil {
		a.writeError(w, err)
		return
	}

	if a.repos.History != nil {
		if userID := a.repoUserID(session); userID != "" {
			trackID := payload.TrackID
			if trackID == "" {
				trackID = strings.TrimPrefix(payload.TrackURI, "spotify:track:")
			}
			entry, err := a.repos.History.Record(userID, trackID, payload.TrackName, payload.ArtistName, payload.PlaylistID)
			if err != nil {
				a.logger.Warn("failed to record queue history", "error", err)
			} else {
				a.logger.Debug("queue history recorded", "entry", entry.ID())
			}
		}
	}

	a.writeJSON(w, http.StatusOK, map[string]any{"message": "Track added to queue"})
}

func (a *App) handleHistory(w http.ResponseWriter, r *http.Request) {
	_, session, err := a.token(r)
	if err != nil {
		a.writeError(w, err)
		return
	}

	userID := a.repoUserID(session)
	if a.repos.History == nil || userID == "" {
		a.writeJSON(w, http.StatusOK, map[string]any{"history": []any{}})
		return
	}

	limit := a.config.Jukebox.HistoryLimit
	if limit <= 0 {
		limit = 50
	}

	entries, err := a.repos.History.RecentForUser(userID, limit)
	if err != nil {
		a.writeError(w, err)
		return
	}

	history := make([]map[string]any, 0, len(entries))
	for _, e := range entries {
		history = append(history, map[string]any{
			"track_id":    e.TrackID(),
			"track_name":  e.TrackName(),
			"artist_name": e.ArtistName(),
			"playlist_id": e.PlaylistID(),
			"added_at":    e.CreatedAt(),
		})
	}

	a.writeJSON(w, http.StatusOK, map[string]any{"history": history})
}
