// Package bootstrap prepares a codespace and launches the coderev API server
// exactly once per environment session.
package bootstrap

import (
	"context"
	"fmt"
	"os"

	"github.com/darioush/coderev-codespaces/internal/constants"
	"github.com/darioush/coderev-codespaces/internal/installer"
	"github.com/darioush/coderev-codespaces/internal/logging"
	"github.com/darioush/coderev-codespaces/internal/proc"
	"github.com/darioush/coderev-codespaces/internal/statestore"
	"github.com/darioush/coderev-codespaces/internal/token"
	"github.com/darioush/coderev-codespaces/internal/workspace"
)

// Status classifies the outcome of a single bootstrap step.
type Status int

const (
	// StatusOK means the step completed.
	StatusOK Status = iota

	// StatusSkipped means the step decided the whole run should stop cleanly
	// (wrong environment, server already running).
	StatusSkipped

	// StatusSoftFailed means the step failed but the run continues
	// (dependency installation).
	StatusSoftFailed

	// StatusHardFailed means the step failed and the run aborts with a
	// non-zero exit.
	StatusHardFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusSkipped:
		return "skipped"
	case StatusSoftFailed:
		return "soft-failed"
	case StatusHardFailed:
		return "hard-failed"
	default:
		return "unknown"
	}
}

// StepResult records what happened to one step.
type StepResult struct {
	Name   string
	Status Status
	Err    error
}

// Options configures an Orchestrator. Zero-value fields get production
// defaults from New; tests override the seams.
type Options struct {
	// Store owns the token, pid, and log files.
	Store *statestore.Store

	// Installer performs best-effort dependency installation.
	Installer *installer.Installer

	// ServerScript is the API server path. Defaults to
	// $CODEREV_SERVER_SCRIPT, then <state dir>/api_server.py.
	ServerScript string

	// WorkspacesParent is the directory to discover the repository under.
	WorkspacesParent string

	// Python is the interpreter used to launch the server.
	Python string

	// Getenv, StartDetached, and IsAlive are seams for tests.
	Getenv        func(string) string
	StartDetached func(proc.Config) (int, error)
	IsAlive       func(int) bool
}

// Orchestrator runs the bootstrap pipeline.
type Orchestrator struct {
	opts Options
}

// New creates an Orchestrator, filling in defaults for unset options.
func New(opts Options) (*Orchestrator, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("state store is required")
	}
	if opts.Installer == nil {
		opts.Installer = installer.New()
	}
	if opts.Getenv == nil {
		opts.Getenv = os.Getenv
	}
	if opts.ServerScript == "" {
		opts.ServerScript = opts.Getenv(constants.ServerScriptEnvVar)
	}
	if opts.ServerScript == "" {
		opts.ServerScript = opts.Store.ServerScriptPath()
	}
	if opts.WorkspacesParent == "" {
		opts.WorkspacesParent = constants.WorkspacesParent
	}
	if opts.Python == "" {
		opts.Python = "python3"
	}
	if opts.StartDetached == nil {
		opts.StartDetached = proc.StartDetached
	}
	if opts.IsAlive == nil {
		opts.IsAlive = proc.IsAlive
	}
	return &Orchestrator{opts: opts}, nil
}

// Run executes the pipeline and returns every step's result. The returned
// error is non-nil only when a step hard-failed; skips are clean successes.
func (o *Orchestrator) Run(ctx context.Context) ([]StepResult, error) {
	var results []StepResult

	record := func(name string, status Status, err error) {
		results = append(results, StepResult{Name: name, Status: status, Err: err})
		switch status {
		case StatusSoftFailed:
			logging.Warnf("step %s failed (continuing): %v", name, err)
		case StatusHardFailed:
			logging.Errorf("step %s failed: %v", name, err)
		default:
			logging.Infof("step %s: %s", name, status)
		}
	}

	// Environment guard. Outside a codespace there is nothing to do.
	if o.opts.Getenv(constants.CodespacesEnvVar) != constants.CodespacesEnvValue {
		record("environment-guard", StatusSkipped, nil)
		return results, nil
	}
	record("environment-guard", StatusOK, nil)

	// Idempotency check against the recorded pid.
	if pid, ok := o.opts.Store.LoadPID(); ok && o.opts.IsAlive(pid) {
		logging.Infof("server already running (pid %d)", pid)
		record("idempotency-check", StatusSkipped, nil)
		return results, nil
	}
	record("idempotency-check", StatusOK, nil)

	// Dependency installation, best effort.
	if err := o.opts.Installer.EnsureClaudeCLI(ctx); err != nil {
		record("install-claude-cli", StatusSoftFailed, err)
	} else {
		record("install-claude-cli", StatusOK, nil)
	}
	if err := o.opts.Installer.EnsurePythonLibs(ctx); err != nil {
		record("install-python-libs", StatusSoftFailed, err)
	} else {
		record("install-python-libs", StatusOK, nil)
	}

	// The server script must exist before anything below matters.
	if err := os.Chmod(o.opts.ServerScript, constants.ExecutablePermissions); err != nil {
		err = fmt.Errorf("server script not usable at %s: %w", o.opts.ServerScript, err)
		record("permission-setup", StatusHardFailed, err)
		return results, err
	}
	record("permission-setup", StatusOK, nil)

	// Fresh token on every launch, overwriting any prior value.
	authToken, err := token.Generate()
	if err != nil {
		record("generate-token", StatusHardFailed, err)
		return results, err
	}
	if err := o.opts.Store.SaveToken(authToken); err != nil {
		record("generate-token", StatusHardFailed, err)
		return results, err
	}
	record("generate-token", StatusOK, nil)

	repoDir, err := workspace.Discover(o.opts.WorkspacesParent)
	if err != nil {
		record("discover-repository", StatusHardFailed, err)
		return results, err
	}
	logging.Infof("repository directory: %s", repoDir)
	record("discover-repository", StatusOK, nil)

	pid, err := o.opts.StartDetached(proc.Config{
		Path: o.opts.Python,
		Args: []string{o.opts.ServerScript},
		Dir:  repoDir,
		ExtraEnv: []string{
			constants.AuthTokenEnvVar + "=" + authToken,
			constants.RepoDirEnvVar + "=" + repoDir,
		},
		LogPath: o.opts.Store.ServerLogPath(),
	})
	if err != nil {
		record("launch-server", StatusHardFailed, err)
		return results, err
	}
	if err := o.opts.Store.SavePID(pid); err != nil {
		record("launch-server", StatusHardFailed, err)
		return results, err
	}
	logging.Infof("server launched (pid %d)", pid)
	record("launch-server", StatusOK, nil)

	return results, nil
}

// Skipped reports whether the run stopped at a skip condition.
func Skipped(results []StepResult) bool {
	return len(results) > 0 && results[len(results)-1].Status == StatusSkipped
}

// LaunchedPID returns the recorded pid when the final launch step completed.
func LaunchedPID(store *statestore.Store, results []StepResult) (int, bool) {
	if len(results) == 0 {
		return 0, false
	}
	last := results[len(results)-1]
	if last.Name != "launch-server" || last.Status != StatusOK {
		return 0, false
	}
	return store.LoadPID()
}

// FormatResult renders a step result for the bootstrap log.
func FormatResult(r StepResult) string {
	if r.Err != nil {
		return r.Name + ": " + r.Status.String() + " (" + r.Err.Error() + ")"
	}
	return r.Name + ": " + r.Status.String()
}
