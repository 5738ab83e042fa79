// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"testing"

	"github.com/jukebox-fm/jukebox/internal/models"
	"github.com/jukebox-fm/jukebox/internal/services"
)

// MockService is a test double for [services.Service].
//
// Each method delegates to the matching function field when set and returns
// zero values otherwise, so tests only stub what they exercise.
type MockService struct {
	ProfileFunc        func(ctx context.Context, token string) (*services.Profile, error)
	PlaylistsFunc      func(ctx context.Context, token string) ([]models.Playlist, error)
	PlaylistTracksFunc func(ctx context.Context, token, playlistID string) ([]models.Track, error)
	DevicesFunc        func(ctx context.Context, token string) ([]models.Device, error)
	EnqueueFunc        func(ctx context.Context, token string, req models.QueueRequest) error
}

func (m *MockService) Profile(ctx context.Context, token string) (*services.Profile, error) {
	if m.ProfileFunc != nil {
		return m.ProfileFunc(ctx, token)
	}
	return &services.Profile{ID: "mock_user", DisplayName: "Mock User"}, nil
}

func (m *MockService) Playlists(ctx context.Context, token string) ([]models.Playlist, error) {
	if m.PlaylistsFunc != nil {
		return m.PlaylistsFunc(ctx, token)
	}
	return []models.Playlist{}, nil
}

func (m *MockService) PlaylistTracks(ctx context.Context, token, playlistID string) ([]models.Track, error) {
	if m.PlaylistTracksFunc != nil {
		return m.PlaylistTracksFunc(ctx, token, playlistID)
	}
	return []models.Track{}, nil
}

func (m *MockService) Devices(ctx context.Context, token string) ([]models.Device, error) {
	if m.DevicesFunc != nil {
		return m.DevicesFunc(ctx, token)
	}
	return []models.Device{}, nil
}

func (m *MockService) Enqueue(ctx context.Context, token string, req models.QueueRequest) error {
	if m.EnqueueFunc != nil {
		return m.EnqueueFunc(ctx, token, req)
	}
	return nil
}

func (m *MockService) Name() string { return "mock" }

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
