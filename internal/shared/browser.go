package shared

import (
	"fmt"
	"os/exec"
	"runtime"
)

// osName is swappable in tests.
var osName = func() string { return runtime.GOOS }

// OpenBrowser launches the user's default browser at url. The CLI login flow
// uses it to hand the Spotify authorization page to the user while the local
// callback server waits for the redirect.
func OpenBrowser(url string) error {
	var name string
	var args []string

	switch os := osName(); os {
	case "darwin":
		name, args = "open", []string{url}
	case "linux":
		name, args = "xdg-open", []string{url}
	case "windows":
		name, args = "cmd", []string{"/c", "start", url}
	default:
		return fmt.Errorf("don't know how to open a browser on %s", os)
	}

	if err := exec.Command(name, args...).Start(); err != nil {
		return fmt.Errorf("failed to launch browser for the authorization page: %w", err)
	}

	return nil
}
