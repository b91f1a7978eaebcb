// Package proc starts detached background processes and probes pid liveness.
package proc

import (
	"fmt"
	"os"
	"os/exec"
)

// Config describes a detached process launch.
type Config struct {
	// Path is the executable to run.
	Path string

	// Args are the arguments, not including the executable name.
	Args []string

	// Dir is the working directory. Empty means inherit.
	Dir string

	// ExtraEnv entries ("KEY=VALUE") are appended to the inherited environment.
	ExtraEnv []string

	// LogPath receives the child's combined stdout and stderr.
	LogPath string
}

// Validate checks that the config can be launched.
func (c Config) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("executable path is required")
	}
	if c.LogPath == "" {
		return fmt.Errorf("log path is required")
	}
	return nil
}

// StartDetached launches the configured process in its own session so it
// survives the caller's exit, and returns its pid. The child is never waited
// on.
func StartDetached(config Config) (int, error) {
	if err := config.Validate(); err != nil {
		return 0, fmt.Errorf("invalid launch config: %w", err)
	}

	logFile, err := os.OpenFile(config.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return 0, fmt.Errorf("failed to open server log: %w", err)
	}
	defer logFile.Close()

	cmd := exec.Command(config.Path, config.Args...)
	cmd.Dir = config.Dir
	cmd.Env = append(os.Environ(), config.ExtraEnv...)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = detachAttr()

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start %s: %w", config.Path, err)
	}

	pid := cmd.Process.Pid

	// Release the child so exiting the bootstrap never reaps or signals it.
	if err := cmd.Process.Release(); err != nil {
		return pid, fmt.Errorf("failed to release process: %w", err)
	}

	return pid, nil
}
