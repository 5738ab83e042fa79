package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jukebox-fm/jukebox/internal/models"
	"github.com/jukebox-fm/jukebox/internal/shared"
	"golang.org/x/oauth2"
)

// newTokenServer returns a fake vendor token endpoint and a counter of
// refresh_token grants it served.
func newTokenServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()

	var refreshes atomic.Int32

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}

		grant := r.PostFormValue("grant_type")
		switch grant {
		case "authorization_code":
			if r.PostFormValue("code") == "outage_code" {
				http.Error(w, "upstream unavailable", http.StatusServiceUnavailable)
				return
			}
			if r.PostFormValue("code") != "good_code" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"access_token":  "initial_access",
				"token_type":    "Bearer",
				"refresh_token": "initial_refresh",
				"expires_in":    3600,
			})
		case "refresh_token":
			refreshes.Add(1)
			if r.PostFormValue("refresh_token") == "flaky" {
				http.Error(w, "upstream unavailable", http.StatusServiceUnavailable)
				return
			}
			if r.PostFormValue("refresh_token") == "revoked" {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"access_token": "refreshed_access",
				"token_type":   "Bearer",
				"expires_in":   3600,
			})
		default:
			http.Error(w, "unsupported grant", http.StatusBadRequest)
		}
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, &refreshes
}

func newTestManager(tokenURL string) *Manager {
	return NewManager(&oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost:3000/callback",
		Endpoint:     oauth2.Endpoint{AuthURL: tokenURL, TokenURL: tokenURL},
	})
}

func TestAuthorize(t *testing.T) {
	srv, _ := newTokenServer(t)
	manager := newTestManager(srv.URL)

	t.Run("Valid Code", func(t *testing.T) {
		session, err := manager.Authorize(context.Background(), "good_code")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if session.AccessToken == "" {
			t.Error("expected non-empty access token")
		}
		if session.RefreshToken != "initial_refresh" {
			t.Errorf("expected refresh token, got %q", session.RefreshToken)
		}
		if !session.Expiry.After(time.Now()) {
			t.Error("expected expiry in the future")
		}
		if session.ID == "" {
			t.Error("expected session ID to be generated")
		}
	})

	t.Run("Invalid Code", func(t *testing.T) {
		session, err := manager.Authorize(context.Background(), "bad_code")
		if !errors.Is(err, shared.ErrInvalidCode) {
			t.Errorf("expected ErrInvalidCode, got %v", err)
		}
		if session != nil {
			t.Error("expected no session on failed exchange")
		}
	})

	t.Run("Empty Code", func(t *testing.T) {
		if _, err := manager.Authorize(context.Background(), ""); !errors.Is(err, shared.ErrInvalidCode) {
			t.Errorf("expected ErrInvalidCode, got %v", err)
		}
	})

	t.Run("Vendor Outage Is Not An Invalid Code", func(t *testing.T) {
		if _, err := manager.Authorize(context.Background(), "outage_code"); !errors.Is(err, shared.ErrNetworkFailure) {
			t.Errorf("expected ErrNetworkFailure for a 5xx exchange, got %v", err)
		}
	})

	t.Run("Network Failure", func(t *testing.T) {
		down := httptest.NewServer(http.NotFoundHandler())
		down.Close()
		broken := newTestManager(down.URL)

		if _, err := broken.Authorize(context.Background(), "good_code"); !errors.Is(err, shared.ErrNetworkFailure) {
			t.Errorf("expected ErrNetworkFailure, got %v", err)
		}
	})
}

func TestValidToken(t *testing.T) {
	t.Run("Fresh Token Returned Unchanged", func(t *testing.T) {
		srv, refreshes := newTokenServer(t)
		manager := newTestManager(srv.URL)

		session := &models.Session{
			ID:           "s1",
			AccessToken:  "still_good",
			RefreshToken: "initial_refresh",
			Expiry:       time.Now().Add(time.Hour),
		}

		token, err := manager.ValidToken(context.Background(), session)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if token != "still_good" {
			t.Errorf("expected current token, got %q", token)
		}
		if n := refreshes.Load(); n != 0 {
			t.Errorf("expected no refresh, got %d", n)
		}
	})

	t.Run("Expired Token Refreshed In Place", func(t *testing.T) {
		srv, refreshes := newTokenServer(t)
		manager := newTestManager(srv.URL)

		session := &models.Session{
			ID:           "s2",
			AccessToken:  "stale",
			RefreshToken: "initial_refresh",
			Expiry:       time.Now().Add(-time.Minute),
		}

		token, err := manager.ValidToken(context.Background(), session)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if token != "refreshed_access" {
			t.Errorf("expected refreshed token, got %q", token)
		}
		if session.AccessToken != "refreshed_access" {
			t.Error("expected session to be mutated in place")
		}
		if session.RefreshToken != "initial_refresh" {
			t.Error("expected refresh token to be kept when vendor omits a new one")
		}
		if session.Expired(time.Now(), DefaultSkew) {
			t.Error("expected refreshed expiry past the skew margin")
		}
		if n := refreshes.Load(); n != 1 {
			t.Errorf("expected exactly one refresh, got %d", n)
		}
	})

	t.Run("Token Inside Skew Margin Is Refreshed", func(t *testing.T) {
		srv, refreshes := newTokenServer(t)
		manager := newTestManager(srv.URL)

		session := &models.Session{
			ID:           "s3",
			AccessToken:  "dying",
			RefreshToken: "initial_refresh",
			Expiry:       time.Now().Add(10 * time.Second),
		}

		token, err := manager.ValidToken(context.Background(), session)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if token == "dying" {
			t.Error("expected token within skew margin to be replaced")
		}
		if n := refreshes.Load(); n != 1 {
			t.Errorf("expected exactly one refresh, got %d", n)
		}
	})

	t.Run("Concurrent Callers Trigger One Refresh", func(t *testing.T) {
		srv, refreshes := newTokenServer(t)
		manager := newTestManager(srv.URL)

		session := &models.Session{
			ID:           "s4",
			AccessToken:  "stale",
			RefreshToken: "initial_refresh",
			Expiry:       time.Now().Add(-time.Minute),
		}

		const callers = 16
		var wg sync.WaitGroup
		errs := make(chan error, callers)

		for range callers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				token, err := manager.ValidToken(context.Background(), session)
				if err != nil {
					errs <- err
					return
				}
				if token != "refreshed_access" {
					errs <- errors.New("caller observed stale token")
				}
			}()
		}

		wg.Wait()
		close(errs)
		for err := range errs {
			t.Error(err)
		}

		if n := refreshes.Load(); n != 1 {
			t.Errorf("expected exactly one upstream refresh, got %d", n)
		}
	})

	t.Run("Refresh Denied", func(t *testing.T) {
		srv, _ := newTokenServer(t)
		manager := newTestManager(srv.URL)

		session := &models.Session{
			ID:           "s5",
			AccessToken:  "stale",
			RefreshToken: "revoked",
			Expiry:       time.Now().Add(-time.Minute),
		}

		if _, err := manager.ValidToken(context.Background(), session); !errors.Is(err, shared.ErrRefreshDenied) {
			t.Errorf("expected ErrRefreshDenied, got %v", err)
		}
	})

	t.Run("Vendor Outage Is Not A Revocation", func(t *testing.T) {
		srv, _ := newTokenServer(t)
		manager := newTestManager(srv.URL)

		session := &models.Session{
			ID:           "s7",
			AccessToken:  "stale",
			RefreshToken: "flaky",
			Expiry:       time.Now().Add(-time.Minute),
		}

		_, err := manager.ValidToken(context.Background(), session)
		if !errors.Is(err, shared.ErrNetworkFailure) {
			t.Errorf("expected ErrNetworkFailure for a 5xx refresh, got %v", err)
		}
		if errors.Is(err, shared.ErrRefreshDenied) {
			t.Error("a vendor outage must not be reported as a revoked refresh token")
		}
		if session.RefreshToken != "flaky" {
			t.Error("expected refresh token to survive a transient failure")
		}
	})

	t.Run("Missing Refresh Token", func(t *testing.T) {
		srv, _ := newTokenServer(t)
		manager := newTestManager(srv.URL)

		session := &models.Session{
			ID:          "s6",
			AccessToken: "stale",
			Expiry:      time.Now().Add(-time.Minute),
		}

		if _, err := manager.ValidToken(context.Background(), session); !errors.Is(err, shared.ErrNoRefreshToken) {
			t.Errorf("expected ErrNoRefreshToken, got %v", err)
		}
	})

	t.Run("Nil Session", func(t *testing.T) {
		srv, _ := newTokenServer(t)
		manager := newTestManager(srv.URL)

		if _, err := manager.ValidToken(context.Background(), nil); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})
}

func TestSessionStore(t *testing.T) {
	store := NewSessionStore()

	session := &models.Session{ID: "abc", AccessToken: "tok"}
	store.Put(session)

	if got := store.Get("abc"); got != session {
		t.Error("expected stored session back")
	}
	if got := store.Get("missing"); got != nil {
		t.Error("expected nil for unknown ID")
	}
	if store.Len() != 1 {
		t.Errorf("expected one session, got %d", store.Len())
	}

	t.Run("Logout Destroys Session", func(t *testing.T) {
		srv, _ := newTokenServer(t)
		manager := newTestManager(srv.URL)

		manager.Logout(store, "abc")
		if store.Get("abc") != nil {
			t.Error("expected session to be removed")
		}
	})
}
