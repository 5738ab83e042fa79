package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/jukebox-fm/jukebox/internal/models"
	"github.com/jukebox-fm/jukebox/internal/shared"
	"golang.org/x/oauth2"
)

// DefaultSkew is subtracted from the token expiry when deciding whether a
// refresh is needed, so a token is never handed out moments before it dies.
const DefaultSkew = 60 * time.Second

// requestTimeout bounds every token endpoint call.
const requestTimeout = 10 * time.Second

// Manager owns the OAuth 2.0 authorization-code exchange and refresh
// lifecycle for user sessions. It is the only component that reads or
// writes token state; the API facade receives finished access tokens.
type Manager struct {
	config *oauth2.Config
	client *http.Client
	skew   time.Duration

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewManager creates a Manager for the given OAuth2 config.
func NewManager(config *oauth2.Config) *Manager {
	return &Manager{
		config: config,
		client: &http.Client{Timeout: requestTimeout},
		skew:   DefaultSkew,
		locks:  make(map[string]*sync.Mutex),
	}
}

// SetSkew overrides the expiry skew margin. Used by tests.
func (m *Manager) SetSkew(d time.Duration) { m.skew = d }

// AuthURL returns the vendor authorization URL for the first leg of the
// authorization-code flow. The state token must be cryptographically random.
func (m *Manager) AuthURL(state string) string {
	return m.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Authorize exchanges a one-time authorization code for a token pair and
// returns a new Session. The vendor rejecting the code surfaces as
// [shared.ErrInvalidCode]; transport problems as [shared.ErrNetworkFailure].
func (m *Manager) Authorize(ctx context.Context, code string) (*models.Session, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: empty authorization code", shared.ErrInvalidCode)
	}

	token, err := m.config.Exchange(m.httpContext(ctx), code)
	if err != nil {
		if grantRejected(err) {
			return nil, fmt.Errorf("%w: %v", shared.ErrInvalidCode, err)
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrNetworkFailure, err)
	}

	return &models.Session{
		ID:           shared.GenerateID(),
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
	}, nil
}

// ValidToken returns an access token guaranteed to outlive the skew margin.
//
// When the session's token is still fresh it is returned as is. Otherwise
// exactly one refresh exchange runs, mutating the session in place; this is
// the only mutation point in the token lifecycle. Concurrent callers on the
// same session serialize on a per-session lock, so an expired session
// triggers a single upstream refresh no matter how many requests race.
//
// A revoked refresh token surfaces as [shared.ErrRefreshDenied]; the caller
// must destroy the session and send the user back through authorization.
// Transient transport errors surface as [shared.ErrNetworkFailure] and are
// not retried here.
func (m *Manager) ValidToken(ctx context.Context, session *models.Session) (string, error) {
	if session == nil {
		return "", shared.ErrNotAuthenticated
	}

	lock := m.sessionLock(session.ID)
	lock.Lock()
	defer lock.Unlock()

	if !session.Expired(time.Now(), m.skew) {
		return session.AccessToken, nil
	}

	if session.RefreshToken == "" {
		return "", shared.ErrNoRefreshToken
	}

	if err := m.refresh(ctx, session); err != nil {
		return "", err
	}

	return session.AccessToken, nil
}

// refresh performs a single refresh exchange and writes the result into the session.
func (m *Manager) refresh(ctx context.Context, session *models.Session) error {
	src := m.config.TokenSource(m.httpContext(ctx), &oauth2.Token{RefreshToken: session.RefreshToken})

	token, err := src.Token()
	if err != nil {
		if grantRejected(err) {
			return fmt.Errorf("%w: %v", shared.ErrRefreshDenied, err)
		}
		return fmt.Errorf("%w: %v", shared.ErrNetworkFailure, err)
	}

	session.AccessToken = token.AccessToken
	session.Expiry = token.Expiry
	// The vendor may rotate the refresh token; keep the old one otherwise.
	if token.RefreshToken != "" {
		session.RefreshToken = token.RefreshToken
	}

	return nil
}

// grantRejected reports whether the token endpoint rejected the grant itself.
//
// The oauth2 package returns a [oauth2.RetrieveError] for every non-2xx token
// response, so the vendor's verdict has to be read out of it: an invalid_grant
// error code or a 400/401 status means the code or refresh token is dead.
// Anything else (a 5xx outage, throttling) is transient and must not be
// treated as a revocation.
func grantRejected(err error) bool {
	var retrieveErr *oauth2.RetrieveError
	if !errors.As(err, &retrieveErr) {
		return false
	}

	if retrieveErr.ErrorCode == "invalid_grant" {
		return true
	}
	if retrieveErr.Response != nil {
		switch retrieveErr.Response.StatusCode {
		case http.StatusBadRequest, http.StatusUnauthorized:
			return true
		}
	}
	return false
}

// sessionLock returns the mutex serializing refreshes for a session ID.
func (m *Manager) sessionLock(id string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, ok := m.locks[id]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[id] = lock
	}
	return lock
}

// forget drops the refresh lock for a destroyed session.
func (m *Manager) forget(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, id)
}

// Logout destroys a session in the given store and releases its lock.
func (m *Manager) Logout(store *SessionStore, id string) {
	store.Delete(id)
	m.forget(id)
}

// httpContext installs the manager's bounded HTTP client for oauth2 calls.
func (m *Manager) httpContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, m.client)
}
