package main

import (
	"bytes"
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jukebox-fm/jukebox/internal/auth"
	"github.com/jukebox-fm/jukebox/internal/models"
	"github.com/jukebox-fm/jukebox/internal/services"
	"github.com/jukebox-fm/jukebox/internal/shared"
	tu "github.com/jukebox-fm/jukebox/internal/testing"
	"github.com/urfave/cli/v3"
)

func newTestManager(t *testing.T) *auth.Manager {
	t.Helper()

	oauthConfig, err := services.NewOAuthConfig(map[string]string{
		"client_id":     "test_id",
		"client_secret": "test_secret",
	})
	if err != nil {
		t.Fatalf("failed to create oauth config: %v", err)
	}
	return auth.NewManager(oauthConfig)
}

func loggedInConfig() *shared.Config {
	config := shared.DefaultConfig()
	config.Credentials.Spotify.ClientID = "test_id"
	config.Credentials.Spotify.ClientSecret = "test_secret"
	config.Credentials.Spotify.AccessToken = "fresh_token"
	config.Credentials.Spotify.RefreshToken = "refresh_token"
	config.Credentials.Spotify.TokenExpiry = time.Now().Add(time.Hour).Format(time.RFC3339)
	return config
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			spotify := &tu.MockService{}

			runner := NewRunner(RunnerOpts{
				Config:  config,
				Logger:  logger,
				Output:  output,
				Spotify: spotify,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.spotify != spotify {
				t.Error("expected spotify to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: nil})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: nil})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, true)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, false)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			expected := `{"key":"value"}` + "\n"
			if result != expected {
				t.Errorf("expected %q, got %q", expected, result)
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			// channels cannot be marshaled to JSON
			data := make(chan int)
			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			failing := &tu.FWriter{}
			runner := NewRunner(RunnerOpts{Output: failing})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			data := map[string]string{"key": "value"}
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			err := runner.writePlain("hello %s", "world")

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if result != "hello world" {
				t.Errorf("expected 'hello world', got %q", result)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			failing := &tu.FWriter{}
			runner := NewRunner(RunnerOpts{Output: failing})

			err := runner.writePlain("test")

			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		if len(commands) == 0 {
			t.Error("expected at least one command to be registered")
		}

		for i, cmd := range commands {
			if cmd == nil {
				t.Errorf("command at index %d is nil", i)
			}
		}
	})
}

func TestNewManager(t *testing.T) {
	t.Run("with credentials", func(t *testing.T) {
		config := &shared.Config{}
		config.Credentials.Spotify.ClientID = "test_id"
		config.Credentials.Spotify.ClientSecret = "test_secret"

		if newManager(config) == nil {
			t.Error("expected a manager when credentials are configured")
		}
	})

	t.Run("without credentials", func(t *testing.T) {
		if newManager(&shared.Config{}) != nil {
			t.Error("expected nil manager without credentials")
		}
	})
}

func TestDoOAuth(t *testing.T) {
	t.Run("Port Already In Use", func(t *testing.T) {
		taken, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatalf("failed to occupy a port: %v", err)
		}
		defer taken.Close()

		config := loggedInConfig()
		config.Server.Host = "127.0.0.1"
		config.Server.Port = taken.Addr().(*net.TCPAddr).Port

		runner := NewRunner(RunnerOpts{
			Config:  config,
			Manager: newTestManager(t),
			Output:  &bytes.Buffer{},
		})

		if _, err := runner.doOAuth(); err == nil {
			t.Error("expected an immediate error when the callback port is taken")
		}
	})
}

func TestValidToken(t *testing.T) {
	ctx := context.Background()

	t.Run("without manager", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{Config: loggedInConfig()})

		_, err := runner.validToken(ctx, "config.toml")
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})

	t.Run("without saved login", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.Credentials.Spotify.ClientID = "test_id"
		config.Credentials.Spotify.ClientSecret = "test_secret"

		runner := NewRunner(RunnerOpts{
			Config:  config,
			Manager: newTestManager(t),
		})

		_, err := runner.validToken(ctx, "config.toml")
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("with fresh token", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{
			Config:  loggedInConfig(),
			Manager: newTestManager(t),
		})

		token, err := runner.validToken(ctx, "config.toml")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if token != "fresh_token" {
			t.Errorf("expected saved token to be returned, got %s", token)
		}
	})
}

func TestCommands(t *testing.T) {
	newApp := func(runner *Runner) *cli.Command {
		return &cli.Command{Name: "jukebox", Commands: runner.register()}
	}

	t.Run("Devices", func(t *testing.T) {
		output := &bytes.Buffer{}
		spotify := &tu.MockService{
			DevicesFunc: func(ctx context.Context, token string) ([]models.Device, error) {
				if token != "fresh_token" {
					t.Errorf("expected fresh_token, got %s", token)
				}
				return []models.Device{
					{ID: "dev1", Name: "Kitchen", Type: "Speaker", Active: true},
				}, nil
			},
		}

		runner := NewRunner(RunnerOpts{
			Config:  loggedInConfig(),
			Manager: newTestManager(t),
			Spotify: spotify,
			Output:  output,
		})

		err := newApp(runner).Run(context.Background(), []string{"jukebox", "devices"})
		if err != nil {
			t.Fatalf("devices command failed: %v", err)
		}

		if !strings.Contains(output.String(), "Kitchen") {
			t.Errorf("expected device name in output, got %s", output.String())
		}
		if !strings.Contains(output.String(), "▶") {
			t.Errorf("expected active marker in output, got %s", output.String())
		}
	})

	t.Run("Playlists JSON Output", func(t *testing.T) {
		output := &bytes.Buffer{}
		spotify := &tu.MockService{
			PlaylistsFunc: func(ctx context.Context, token string) ([]models.Playlist, error) {
				return []models.Playlist{
					{ID: "pl1", Name: "Bossa Nova", TrackCount: 12},
				}, nil
			},
		}

		runner := NewRunner(RunnerOpts{
			Config:  loggedInConfig(),
			Manager: newTestManager(t),
			Spotify: spotify,
			Output:  output,
		})

		err := newApp(runner).Run(context.Background(), []string{"jukebox", "playlists", "list", "--json"})
		if err != nil {
			t.Fatalf("playlists command failed: %v", err)
		}

		if !strings.Contains(output.String(), `"Bossa Nova"`) {
			t.Errorf("expected JSON playlist name, got %s", output.String())
		}
	})

	t.Run("Queue Requires URI", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{
			Config:  loggedInConfig(),
			Manager: newTestManager(t),
			Spotify: &tu.MockService{},
			Output:  &bytes.Buffer{},
		})

		err := newApp(runner).Run(context.Background(), []string{"jukebox", "queue"})
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("AuthLogout", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		config := loggedInConfig()
		if err := shared.SaveConfig(configPath, config); err != nil {
			t.Fatalf("failed to create test config: %v", err)
		}

		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Config: config, Output: output})

		err := newApp(runner).Run(context.Background(), []string{"jukebox", "auth", "logout", "--config", configPath})
		if err != nil {
			t.Fatalf("logout failed: %v", err)
		}

		loaded, err := shared.LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to reload config: %v", err)
		}
		if loaded.Credentials.Spotify.AccessToken != "" {
			t.Error("expected access token to be cleared")
		}
		if loaded.Credentials.Spotify.RefreshToken != "" {
			t.Error("expected refresh token to be cleared")
		}
	})
}
