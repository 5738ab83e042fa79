package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jukebox-fm/jukebox/internal/formatter"
	"github.com/jukebox-fm/jukebox/internal/models"
	"github.com/jukebox-fm/jukebox/internal/repositories"
	"github.com/jukebox-fm/jukebox/internal/shared"
	"github.com/urfave/cli/v3"
)

// QueueAdd pushes a track onto the playback queue by URI.
func (r *Runner) QueueAdd(ctx context.Context, cmd *cli.Command) error {
	uri := cmd.StringArg("uri")
	deviceID := cmd.String("device")

	if uri == "" {
		return fmt.Errorf("%w: track URI is required", shared.ErrMissingArgument)
	}

	token, err := r.validToken(ctx, cmd.String("config"))
	if err != nil {
		return err
	}

	r.logger.Infof("queueing track %v", uri)

	req := models.QueueRequest{TrackURI: uri, DeviceID: deviceID}
	if err := r.spotify.Enqueue(ctx, token, req); err != nil {
		return err
	}

	r.recordHistory(ctx, token, uri)

	r.writePlain("✓ Queued %s\n", uri)
	return nil
}

// recordHistory saves a queue entry for the authenticated user, best effort.
func (r *Runner) recordHistory(ctx context.Context, token, uri string) {
	db, err := r.openDatabase()
	if err != nil {
		r.logger.Debug("skipping history record", "error", err)
		return
	}
	defer db.Close()

	profile, err := r.spotify.Profile(ctx, token)
	if err != nil {
		r.logger.Debug("skipping history record", "error", err)
		return
	}

	user, err := repositories.NewUserRepository(db).GetOrCreate(profile.ID, profile.DisplayName, profile.Email, profile.ImageURL)
	if err != nil {
		r.logger.Debug("skipping history record", "error", err)
		return
	}

	trackID := strings.TrimPrefix(uri, "spotify:track:")
	if _, err := repositories.NewQueueEntryRepository(db).Record(user.ID(), trackID, "", "", ""); err != nil {
		r.logger.Debug("failed to record history", "error", err)
	}
}

// Devices lists the playback devices connected to the user's account.
func (r *Runner) Devices(ctx context.Context, cmd *cli.Command) error {
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	token, err := r.validToken(ctx, cmd.String("config"))
	if err != nil {
		return err
	}

	devices, err := r.spotify.Devices(ctx, token)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if useJSON {
		return r.writeJSON(devices, pretty)
	}

	if len(devices) == 0 {
		r.writePlain("No devices connected. Open Spotify on a device first.\n")
		return nil
	}

	r.writePlain("Found %d devices:\n\n", len(devices))
	for i, d := range devices {
		marker := " "
		if d.Active {
			marker = "▶"
		}
		r.writePlain("%s %d. %s (%s)\n", marker, i+1, d.Name, d.Type)
		r.writePlain("     ID: %s\n", d.ID)
	}

	return nil
}

// History shows tracks the user queued recently, optionally exporting to CSV.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	limit := cmd.Int("limit")
	days := cmd.Int("days")
	output := cmd.String("output")

	token, err := r.validToken(ctx, cmd.String("config"))
	if err != nil {
		return err
	}

	profile, err := r.spotify.Profile(ctx, token)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	user, err := repositories.NewUserRepository(db).GetBySpotifyID(profile.ID)
	if err != nil {
		r.writePlain("No queue history yet.\n")
		return nil
	}

	history := repositories.NewQueueEntryRepository(db)

	var entries []*models.QueueEntry
	if days > 0 {
		entries, err = history.RecentSince(user.ID(), int(days))
	} else {
		entries, err = history.RecentForUser(user.ID(), int(limit))
	}
	if err != nil {
		return err
	}

	if output != "" {
		data, err := formatter.HistoryToCSV(entries)
		if err != nil {
			return err
		}
		if err := os.WriteFile(output, data, 0644); err != nil {
			return fmt.Errorf("failed to write history file: %w", err)
		}
		r.writePlain("✓ History exported to %s (%d entries)\n", output, len(entries))
		return nil
	}

	if _, err := r.output.Write(formatter.HistoryToText(entries)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
