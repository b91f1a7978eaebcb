package statestore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/darioush/coderev-codespaces/internal/constants"
)

func TestNew_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state")

	store, err := New(dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	info, err := os.Stat(store.Dir())
	if err != nil {
		t.Fatalf("state directory not created: %v", err)
	}
	if !info.IsDir() {
		t.Error("state path is not a directory")
	}
	if perm := info.Mode().Perm(); perm != constants.DirPermissions {
		t.Errorf("state directory mode = %o, want %o", perm, constants.DirPermissions)
	}
}

func TestNew_EmptyDir(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Error("New(\"\") expected error, got nil")
	}
}

func TestSaveToken_Permissions(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := store.SaveToken("first-token"); err != nil {
		t.Fatalf("SaveToken() error = %v", err)
	}

	info, err := os.Stat(store.TokenPath())
	if err != nil {
		t.Fatalf("token file not written: %v", err)
	}
	if perm := info.Mode().Perm(); perm != constants.FilePermissions {
		t.Errorf("token file mode = %o, want %o", perm, constants.FilePermissions)
	}
}

func TestSaveToken_Overwrites(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := store.SaveToken("first-token"); err != nil {
		t.Fatalf("SaveToken() error = %v", err)
	}
	if err := store.SaveToken("second-token"); err != nil {
		t.Fatalf("SaveToken() second call error = %v", err)
	}

	data, err := os.ReadFile(store.TokenPath())
	if err != nil {
		t.Fatalf("failed to read token file: %v", err)
	}
	if string(data) != "second-token" {
		t.Errorf("token file = %q, want %q", string(data), "second-token")
	}
}

func TestSaveToken_Empty(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := store.SaveToken(""); err == nil {
		t.Error("SaveToken(\"\") expected error, got nil")
	}
}

func TestPID_RoundTrip(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := store.SavePID(4242); err != nil {
		t.Fatalf("SavePID() error = %v", err)
	}

	pid, ok := store.LoadPID()
	if !ok {
		t.Fatal("LoadPID() ok = false, want true")
	}
	if pid != 4242 {
		t.Errorf("LoadPID() = %d, want 4242", pid)
	}
}

func TestLoadPID_Missing(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if pid, ok := store.LoadPID(); ok {
		t.Errorf("LoadPID() = (%d, true) for missing file, want ok = false", pid)
	}
}

func TestLoadPID_Garbage(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"text", "not-a-pid\n"},
		{"negative", "-5\n"},
		{"zero", "0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := New(t.TempDir())
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			if err := os.WriteFile(store.PIDPath(), []byte(tt.content), 0644); err != nil {
				t.Fatalf("failed to seed pid file: %v", err)
			}

			if pid, ok := store.LoadPID(); ok {
				t.Errorf("LoadPID() = (%d, true) for %q, want ok = false", pid, tt.content)
			}
		})
	}
}

func TestSavePID_Invalid(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := store.SavePID(0); err == nil {
		t.Error("SavePID(0) expected error, got nil")
	}
}
