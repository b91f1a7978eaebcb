// Package credentials reads Claude Code OAuth credentials from the local
// machine so they can be pushed into a codespace.
package credentials

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/darioush/coderev-codespaces/internal/platform"
)

// oauthKey is the object holding the OAuth credentials inside Claude Code's
// credential store.
const oauthKey = "claudeAiOauth"

// ErrNotFound means no usable Claude credentials exist on this machine.
var ErrNotFound = fmt.Errorf("no Claude Code OAuth credentials found; run `claude /login` first")

// Source reads Claude OAuth credentials from a platform-specific store.
type Source interface {
	// Read returns the claudeAiOauth credential object.
	Read() (map[string]any, error)
}

// New returns the credential source for the current platform.
func New() (Source, error) {
	if !platform.IsSupported() {
		return nil, fmt.Errorf("reading Claude credentials is not supported on this platform")
	}
	if platform.Detect() == platform.MacOS {
		return &keychainSource{}, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return &fileSource{path: filepath.Join(homeDir, ".claude", ".credentials.json")}, nil
}

// fileSource reads the Linux credential file.
type fileSource struct {
	path string
}

func (s *fileSource) Read() (map[string]any, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read credential file: %w", err)
	}
	return extractOAuth(data)
}

// extractOAuth pulls the claudeAiOauth object out of a credential payload.
func extractOAuth(data []byte) (map[string]any, error) {
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}
	oauth, ok := payload[oauthKey].(map[string]any)
	if !ok || len(oauth) == 0 {
		return nil, ErrNotFound
	}
	return oauth, nil
}
