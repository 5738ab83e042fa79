package main

import (
	"context"
	"os"

	"github.com/jukebox-fm/jukebox/internal/services"
	"github.com/jukebox-fm/jukebox/internal/shared"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loadedConfig, err := shared.LoadConfig("config.toml"); err == nil {
			config = loadedConfig
		}
	}

	runner := NewRunner(RunnerOpts{
		Config:  config,
		Manager: newManager(config),
		Spotify: services.NewSpotifyService(nil),
		Logger:  logger,
	})

	app := &cli.Command{
		Name:     "jukebox",
		Usage:    "Queue tracks from your Spotify playlists on any connected device",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}
