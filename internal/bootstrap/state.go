package bootstrap

import (
	"os"

	"github.com/darioush/coderev-codespaces/internal/proc"
	"github.com/darioush/coderev-codespaces/internal/statestore"
	"github.com/darioush/coderev-codespaces/internal/workspace"
)

// State captures everything `coderev-bootstrap status` reports.
type State struct {
	StateDir      string
	TokenExists   bool
	PIDRecorded   bool
	PID           int
	ServerRunning bool
	ServerScript  string
	ScriptExists  bool
	RepoDir       string
}

// Detector checks the bootstrap's on-disk and process state.
type Detector struct {
	store            *statestore.Store
	serverScript     string
	workspacesParent string
	isAlive          func(int) bool
}

// NewDetector creates a state detector.
func NewDetector(store *statestore.Store, serverScript, workspacesParent string) *Detector {
	return &Detector{
		store:            store,
		serverScript:     serverScript,
		workspacesParent: workspacesParent,
		isAlive:          proc.IsAlive,
	}
}

// Detect inspects every aspect of the bootstrap state.
func (d *Detector) Detect() *State {
	state := &State{
		StateDir:     d.store.Dir(),
		ServerScript: d.serverScript,
	}

	if _, err := os.Stat(d.store.TokenPath()); err == nil {
		state.TokenExists = true
	}

	if pid, ok := d.store.LoadPID(); ok {
		state.PIDRecorded = true
		state.PID = pid
		state.ServerRunning = d.isAlive(pid)
	}

	if _, err := os.Stat(d.serverScript); err == nil {
		state.ScriptExists = true
	}

	if repoDir, err := workspace.Discover(d.workspacesParent); err == nil {
		state.RepoDir = repoDir
	}

	return state
}
