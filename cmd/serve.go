package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jukebox-fm/jukebox/internal/repositories"
	"github.com/jukebox-fm/jukebox/internal/shared"
	"github.com/jukebox-fm/jukebox/internal/web"
	"github.com/urfave/cli/v3"
)

// Serve starts the jukebox web application.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if _, err := os.Stat(configPath); err == nil {
		if loaded, err := shared.LoadConfig(configPath); err == nil {
			r.config = loaded
		} else {
			r.logger.Warn("failed to load config, using current settings", "error", err)
		}
	}
	config := r.config

	// Credentials follow the config the server actually runs with, so a
	// --config file carrying its own client ID and secret takes effect.
	manager := newManager(config)
	if manager == nil {
		manager = r.manager
	}
	if manager == nil {
		return fmt.Errorf("%w: Spotify client_id and client_secret must be set in config.toml", shared.ErrMissingCredentials)
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	repos := web.Repos{
		Users:      repositories.NewUserRepository(db),
		History:    repositories.NewQueueEntryRepository(db),
		Selections: repositories.NewPlaylistSelectionRepository(db),
	}

	app, err := web.NewApp(config, r.logger, manager, r.spotify, repos)
	if err != nil {
		return fmt.Errorf("failed to create web app: %w", err)
	}

	return app.Serve()
}
