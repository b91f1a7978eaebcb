// Package tunnel exposes the coderev server port of a codespace through the
// gh CLI and resolves its public URL.
package tunnel

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const (
	visibilityTimeout = 30 * time.Second
	portsTimeout      = 15 * time.Second
)

// Runner executes the gh CLI. It exists so tests can stub command execution.
type Runner interface {
	Run(ctx context.Context, args ...string) ([]byte, error)
}

// execRunner runs gh with os/exec.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "gh", args...)
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return nil, fmt.Errorf("gh %s: %s", args[0], strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("gh %s: %w", args[0], err)
	}
	return output, nil
}

// Tunnel manages port visibility for one codespace.
type Tunnel struct {
	codespaceName string
	port          int
	runner        Runner
}

// New creates a Tunnel for the named codespace and port.
func New(codespaceName string, port int) *Tunnel {
	return &Tunnel{codespaceName: codespaceName, port: port, runner: execRunner{}}
}

// NewWithRunner creates a Tunnel with a custom runner (used by tests).
func NewWithRunner(codespaceName string, port int, r Runner) *Tunnel {
	return &Tunnel{codespaceName: codespaceName, port: port, runner: r}
}

// Open makes the server port publicly visible.
func (t *Tunnel) Open(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, visibilityTimeout)
	defer cancel()

	_, err := t.runner.Run(ctx,
		"codespace", "ports", "visibility",
		fmt.Sprintf("%d:public", t.port),
		"-c", t.codespaceName,
	)
	if err != nil {
		return fmt.Errorf("failed to make port %d public: %w", t.port, err)
	}
	return nil
}

// portInfo is one entry of `gh codespace ports --json`.
type portInfo struct {
	Label      string `json:"label"`
	SourcePort int    `json:"sourcePort"`
	BrowseURL  string `json:"browseUrl"`
}

// PublicURL resolves the HTTPS URL for the forwarded port. When the port
// listing does not include it, the well-known Codespaces URL shape is used as
// a fallback.
func (t *Tunnel) PublicURL(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, portsTimeout)
	defer cancel()

	output, err := t.runner.Run(ctx,
		"codespace", "ports",
		"-c", t.codespaceName,
		"--json", "label,sourcePort,browseUrl",
	)
	if err != nil {
		return "", fmt.Errorf("failed to list ports: %w", err)
	}

	var ports []portInfo
	if err := json.Unmarshal(output, &ports); err != nil {
		return "", fmt.Errorf("failed to parse port listing: %w", err)
	}

	for _, p := range ports {
		if p.SourcePort == t.port && p.BrowseURL != "" {
			return strings.TrimRight(p.BrowseURL, "/"), nil
		}
	}

	return fmt.Sprintf("https://%s-%d.app.github.dev", t.codespaceName, t.port), nil
}
