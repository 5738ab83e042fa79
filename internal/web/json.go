package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/jukebox-fm/jukebox/internal/shared"
)

// decodeJSON reads a JSON request body with a sane size cap.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()

	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("failed to decode request body: %w", err)
	}
	return nil
}

// writeJSON serializes data as a JSON response.
func (a *App) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		a.logger.Error("failed to encode response", "error", err)
	}
}

// writeError maps the shared error taxonomy onto HTTP status codes and
// emits a JSON error body, mirroring what the API consumers expect:
// 401 re-login, 403 missing scope, 409 no active device, 429 throttled.
func (a *App) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "Unexpected error"

	switch {
	case errors.Is(err, shared.ErrNotAuthenticated),
		errors.Is(err, shared.ErrTokenExpired),
		errors.Is(err, shared.ErrRefreshDenied),
		errors.Is(err, shared.ErrNoRefreshToken):
		status = http.StatusUnauthorized
		message = "Not authenticated. Please log in again."
	case errors.Is(err, shared.ErrNoActiveDevice):
		status = http.StatusConflict
		message = "No active device found. Start playback on a Spotify device first."
	case errors.Is(err, shared.ErrForbidden):
		status = http.StatusForbidden
		message = "The login is missing a required permission."
	case errors.Is(err, shared.ErrRateLimited):
		status = http.StatusTooManyRequests
		message = "Too many requests. Try again shortly."
	case errors.Is(err, shared.ErrInvalidArgument):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, shared.ErrNetworkFailure):
		status = http.StatusBadGateway
		message = "The music service is unreachable."
	}

	if status == http.StatusInternalServerError {
		a.logger.Error("request failed", "error", err)
	}

	a.writeJSON(w, status, map[string]any{"error": message})
}
