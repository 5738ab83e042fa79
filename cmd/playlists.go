package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/jukebox-fm/jukebox/internal/formatter"
	"github.com/jukebox-fm/jukebox/internal/models"
	"github.com/jukebox-fm/jukebox/internal/services"
	"github.com/jukebox-fm/jukebox/internal/shared"
	"github.com/urfave/cli/v3"
)

// Playlists lists the authenticated user's playlists with optional limit.
func (r *Runner) Playlists(ctx context.Context, cmd *cli.Command) error {
	limit := cmd.Int("limit")
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	token, err := r.validToken(ctx, cmd.String("config"))
	if err != nil {
		return err
	}

	r.logger.Infof("listing playlists with limit %v", limit)

	playlists, err := r.spotify.Playlists(ctx, token)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if limit > 0 && limit < len(playlists) {
		playlists = playlists[:limit]
	}

	if useJSON {
		return r.writeJSON(playlists, pretty)
	}

	r.writePlain("Found %d playlists:\n\n", len(playlists))
	for i, p := range playlists {
		r.writePlain("%d. %s\n", i+1, p.Name)
		if p.Description != "" {
			r.writePlain("   Description: %s\n", p.Description)
		}
		r.writePlain("   ID: %s\n", p.ID)
		r.writePlain("   Tracks: %d\n", p.TrackCount)
		if p.Public {
			r.writePlain("   Visibility: Public\n")
		} else {
			r.writePlain("   Visibility: Private\n")
		}
		r.writePlain("\n")
	}

	return nil
}

// PlaylistTracks lists all playable tracks in a playlist.
func (r *Runner) PlaylistTracks(ctx context.Context, cmd *cli.Command) error {
	playlistID := cmd.String("id")
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	token, err := r.validToken(ctx, cmd.String("config"))
	if err != nil {
		return err
	}

	r.logger.Infof("listing tracks for playlist %v", playlistID)

	tracks, err := r.spotify.PlaylistTracks(ctx, token, playlistID)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	if useJSON {
		return r.writeJSON(tracks, pretty)
	}

	r.writePlain("Tracks: %d\n\n", len(tracks))
	for i, track := range tracks {
		r.writePlain("%d. %s - %s [%s]\n", i+1, services.ArtistLine(track), track.Title, shared.FormatDuration(track.DurationMS))
		if track.Album != "" {
			r.writePlain("   Album: %s\n", track.Album)
		}
		r.writePlain("   URI: %s\n", track.URI)
	}

	return nil
}

// PlaylistExport writes a playlist's tracks to a CSV, Markdown or text file.
func (r *Runner) PlaylistExport(ctx context.Context, cmd *cli.Command) error {
	playlistID := cmd.String("id")
	format := strings.ToLower(cmd.String("format"))
	output := cmd.String("output")

	token, err := r.validToken(ctx, cmd.String("config"))
	if err != nil {
		return err
	}

	r.logger.Infof("exporting playlist %v as %v", playlistID, format)

	playlist, err := r.findPlaylist(ctx, token, playlistID)
	if err != nil {
		return err
	}

	tracks, err := r.spotify.PlaylistTracks(ctx, token, playlistID)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	listing := &formatter.TrackListing{Playlist: playlist, Tracks: tracks}

	switch format {
	case "csv":
		result, err := formatter.WriteCSVExport(listing, output)
		if err != nil {
			return err
		}
		r.writePlain("✓ Tracks exported to %s\n", result.TracksFile)
		r.writePlain("✓ Metadata exported to %s\n", result.MetadataFile)

	case "markdown", "md":
		result, err := formatter.WriteMarkdownExport(listing, output, playlist.ImageURL)
		if err != nil {
			return err
		}
		r.writePlain("✓ Playlist exported to %s\n", result.Directory)

	case "text", "txt":
		path, err := formatter.WriteTextExport(listing, output)
		if err != nil {
			return err
		}
		r.writePlain("✓ Tracks exported to %s\n", path)

	default:
		return fmt.Errorf("%w: unknown format %q (expected csv, markdown or text)", shared.ErrInvalidArgument, format)
	}

	r.writePlain("  Playlist: %s\n", playlist.Name)
	r.writePlain("  Tracks: %d\n", len(tracks))
	return nil
}

// findPlaylist resolves playlist metadata by ID from the user's playlists.
func (r *Runner) findPlaylist(ctx context.Context, token, playlistID string) (models.Playlist, error) {
	playlists, err := r.spotify.Playlists(ctx, token)
	if err != nil {
		return models.Playlist{}, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}

	for _, p := range playlists {
		if p.ID == playlistID {
			return p, nil
		}
	}

	return models.Playlist{ID: playlistID, Name: playlistID}, nil
}
