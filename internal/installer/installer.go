// Package installer ensures the codespace has the Claude CLI and the Python
// libraries the API server needs. Every operation here is best-effort: the
// bootstrap records failures but keeps going.
package installer

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/darioush/coderev-codespaces/internal/constants"
	"github.com/darioush/coderev-codespaces/internal/logging"
)

// Default timeout for install commands. Downloads over a cold network can be
// slow, so this is much longer than the usual exec timeout.
const installTimeout = 5 * time.Minute

// PythonLibs are the libraries the API server imports.
var PythonLibs = []string{"fastapi", "uvicorn"}

// Runner executes a command and returns its combined output. It exists so
// tests can stub command execution.
type Runner interface {
	// Run executes name with args and returns combined stdout/stderr.
	Run(ctx context.Context, name string, args ...string) ([]byte, error)

	// LookPath reports whether an executable is on PATH.
	LookPath(name string) bool
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if ctx.Err() == context.DeadlineExceeded {
		return output, fmt.Errorf("%s timed out after %v", name, installTimeout)
	}
	return output, err
}

func (ExecRunner) LookPath(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

// Installer performs best-effort dependency installation.
type Installer struct {
	runner Runner
}

// New creates an Installer backed by real command execution.
func New() *Installer {
	return &Installer{runner: ExecRunner{}}
}

// NewWithRunner creates an Installer with a custom runner (used by tests).
func NewWithRunner(r Runner) *Installer {
	return &Installer{runner: r}
}

// EnsureClaudeCLI installs the Claude CLI if it is not already on PATH, by
// piping the remote install script through bash.
func (i *Installer) EnsureClaudeCLI(ctx context.Context) error {
	if i.runner.LookPath(constants.ClaudeCLIName) {
		logging.Infof("claude CLI already installed")
		return nil
	}

	logging.Infof("installing claude CLI from %s", constants.ClaudeInstallURL)
	ctx, cancel := context.WithTimeout(ctx, installTimeout)
	defer cancel()

	script := fmt.Sprintf("curl -fsSL %s | bash", constants.ClaudeInstallURL)
	output, err := i.runner.Run(ctx, "bash", "-c", script)
	logOutput("claude install", output)
	if err != nil {
		return fmt.Errorf("claude CLI install failed: %w", err)
	}
	return nil
}

// EnsurePythonLibs installs the server's Python libraries, trying pip3 first
// and falling back to invoking pip through the interpreter.
func (i *Installer) EnsurePythonLibs(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, installTimeout)
	defer cancel()

	args := append([]string{"install", "--user"}, PythonLibs...)

	output, err := i.runner.Run(ctx, "pip3", args...)
	logOutput("pip3 install", output)
	if err == nil {
		return nil
	}
	logging.Warnf("pip3 install failed (%v), falling back to python3 -m pip", err)

	fallback := append([]string{"-m", "pip"}, args...)
	output, err = i.runner.Run(ctx, "python3", fallback...)
	logOutput("python3 -m pip install", output)
	if err != nil {
		return fmt.Errorf("python library install failed: %w", err)
	}
	return nil
}

// logOutput captures a command's combined output into the bootstrap log.
func logOutput(label string, output []byte) {
	if !logging.Enabled(logging.LevelDebug) {
		return
	}
	trimmed := strings.TrimSpace(string(output))
	if trimmed == "" {
		return
	}
	logging.Debugf("%s output:\n%s", label, trimmed)
}
