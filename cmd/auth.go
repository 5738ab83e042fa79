package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/jukebox-fm/jukebox/internal/models"
	"github.com/jukebox-fm/jukebox/internal/server"
	"github.com/jukebox-fm/jukebox/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// AuthLogin performs the OAuth2 authorization flow for Spotify.
//
// Starts a local HTTP server, opens the browser for user authorization, and
// saves the resulting token pair to the config file.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if r.manager == nil {
		return fmt.Errorf("%w: Spotify client_id and client_secret must be set in config.toml", shared.ErrMissingCredentials)
	}

	session, err := r.doOAuth()
	if err != nil {
		return err
	}

	token := &oauth2.Token{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
		Expiry:       session.Expiry,
	}
	if err := r.config.Credentials.Spotify.Update(token); err != nil {
		return fmt.Errorf("failed to update spotify configuration: %w", err)
	}

	if err := shared.SaveConfig(configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Tokens saved to %s\n\n", configPath)
	r.writePlain("You can now use: jukebox playlists list\n")

	return nil
}

// AuthStatus reports whether a login is saved and whether the token is valid.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	saved := r.config.Credentials.Spotify.Token()
	if saved == nil {
		r.writePlain("✗ Not logged in\n")
		r.writePlain("Run 'jukebox auth login' to authenticate\n")
		return nil
	}

	r.writePlain("✓ Logged in\n")
	if saved.Expiry.IsZero() {
		r.writePlain("Token expiry: unknown\n")
	} else if time.Now().Before(saved.Expiry) {
		r.writePlain("Token expires: %s\n", saved.Expiry.Format(time.RFC1123))
	} else {
		r.writePlain("Token expired: %s (will refresh on next use)\n", saved.Expiry.Format(time.RFC1123))
	}

	token, err := r.validToken(ctx, cmd.String("config"))
	if err != nil {
		return fmt.Errorf("token refresh failed: %w", err)
	}

	profile, err := r.spotify.Profile(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to fetch profile: %w", err)
	}

	r.writePlain("Account: %s (%s)\n", profile.DisplayName, profile.ID)
	return nil
}

// AuthLogout discards the saved token pair.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if r.config.Credentials.Spotify.AccessToken == "" {
		r.writePlain("Not logged in\n")
		return nil
	}

	r.config.Credentials.Spotify.AccessToken = ""
	r.config.Credentials.Spotify.RefreshToken = ""
	r.config.Credentials.Spotify.TokenExpiry = ""

	if err := shared.SaveConfig(configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	r.writePlain("✓ Logged out\n")
	return nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth() (*models.Session, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, err
	}

	authURL := r.manager.AuthURL(state)
	oauthHandler := server.NewOAuthHandler(r.manager, state)
	router := server.NewBasicRouter()
	router.Handler(oauthHandler)

	// Bind the callback port before sending the user to the browser, so a
	// taken port fails here instead of losing the redirect.
	listener, err := net.Listen("tcp", r.config.Server.Addr())
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", r.config.Server.Addr(), err)
	}

	httpServer := &http.Server{Handler: router}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth server at %v", listener.Addr())
		if err := httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(2 * time.Minute)
	defer timeout.Stop()

	var result server.OAuthResult

	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("authorization timed out after 2 minutes")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}

	if result.Session == nil {
		return nil, fmt.Errorf("no session received")
	}

	return result.Session, nil
}
