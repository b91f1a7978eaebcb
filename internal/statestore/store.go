// Package statestore owns the on-disk state the bootstrap shares across
// invocations: the auth token, the server pid, and the log files. All of it
// lives under a single state directory so the paths are defined in one place.
package statestore

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/darioush/coderev-codespaces/internal/constants"
)

// Store resolves and persists bootstrap state under a fixed directory.
type Store struct {
	dir string
}

// New creates a Store rooted at dir. The directory is created with owner-only
// permissions if it does not exist.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("state directory is required")
	}
	if err := os.MkdirAll(dir, constants.DirPermissions); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// NewDefault creates a Store under the user's home directory (~/.coderev).
func NewDefault() (*Store, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return New(filepath.Join(homeDir, constants.StateDirName))
}

// Dir returns the state directory path.
func (s *Store) Dir() string {
	return s.dir
}

// TokenPath returns the auth token file path.
func (s *Store) TokenPath() string {
	return filepath.Join(s.dir, constants.TokenFileName)
}

// PIDPath returns the pid file path.
func (s *Store) PIDPath() string {
	return filepath.Join(s.dir, constants.PIDFileName)
}

// BootstrapLogPath returns the bootstrap log file path.
func (s *Store) BootstrapLogPath() string {
	return filepath.Join(s.dir, constants.BootstrapLogFileName)
}

// ServerLogPath returns the server log file path.
func (s *Store) ServerLogPath() string {
	return filepath.Join(s.dir, constants.ServerLogFileName)
}

// ServerScriptPath returns the default server script location.
func (s *Store) ServerScriptPath() string {
	return filepath.Join(s.dir, constants.ServerScriptName)
}

// SaveToken overwrites the auth token file with owner-only permissions.
func (s *Store) SaveToken(token string) error {
	if token == "" {
		return fmt.Errorf("refusing to save empty token")
	}
	if err := os.WriteFile(s.TokenPath(), []byte(token), constants.FilePermissions); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	// WriteFile does not change the mode of a pre-existing file.
	if err := os.Chmod(s.TokenPath(), constants.FilePermissions); err != nil {
		return fmt.Errorf("failed to restrict token file permissions: %w", err)
	}
	return nil
}

// SavePID overwrites the pid file.
func (s *Store) SavePID(pid int) error {
	if pid <= 0 {
		return fmt.Errorf("invalid pid %d", pid)
	}
	data := strconv.Itoa(pid) + "\n"
	if err := os.WriteFile(s.PIDPath(), []byte(data), 0644); err != nil {
		return fmt.Errorf("failed to write pid file: %w", err)
	}
	return nil
}

// LoadPID reads the recorded pid. The second return value is false when no
// usable record exists (missing file, empty file, or garbage content).
func (s *Store) LoadPID() (int, bool) {
	data, err := os.ReadFile(s.PIDPath())
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}
