package credentials

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const keychainTimeout = 5 * time.Second

// keychainItem is the service name Claude Code stores its credentials under.
const keychainItem = "Claude Code-credentials"

// keychainSource reads the macOS Keychain via the security CLI.
type keychainSource struct{}

func (s *keychainSource) Read() (map[string]any, error) {
	ctx, cancel := context.WithTimeout(context.Background(), keychainTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "security", "find-generic-password", "-s", keychainItem, "-w")
	output, err := cmd.Output()
	if err != nil {
		return nil, ErrNotFound
	}
	trimmed := strings.TrimSpace(string(output))
	if trimmed == "" {
		return nil, ErrNotFound
	}
	oauth, err := extractOAuth([]byte(trimmed))
	if err != nil {
		return nil, fmt.Errorf("keychain item unreadable: %w", err)
	}
	return oauth, nil
}
