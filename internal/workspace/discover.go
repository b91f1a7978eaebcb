// Package workspace locates the repository checkout inside a codespace.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/darioush/coderev-codespaces/internal/constants"
)

// NotFoundError reports that no repository directory exists under the parent.
type NotFoundError struct {
	Parent string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no repository directory found under %s", e.Parent)
}

// Discover returns the first directory under parent whose name is not the
// reserved Codespaces-internal entry. Codespaces clones exactly one
// repository there, so the first match is the repository.
func Discover(parent string) (string, error) {
	entries, err := os.ReadDir(parent)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", parent, err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if entry.Name() == constants.ReservedWorkspaceName {
			continue
		}
		return filepath.Join(parent, entry.Name()), nil
	}

	return "", &NotFoundError{Parent: parent}
}
