package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDiscover_FindsRepo(t *testing.T) {
	parent := t.TempDir()
	for _, name := range []string{".codespaces", "myrepo"} {
		if err := os.Mkdir(filepath.Join(parent, name), 0755); err != nil {
			t.Fatalf("failed to create %s: %v", name, err)
		}
	}

	got, err := Discover(parent)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	want := filepath.Join(parent, "myrepo")
	if got != want {
		t.Errorf("Discover() = %v, want %v", got, want)
	}
}

func TestDiscover_OnlyReserved(t *testing.T) {
	parent := t.TempDir()
	if err := os.Mkdir(filepath.Join(parent, ".codespaces"), 0755); err != nil {
		t.Fatalf("failed to create reserved dir: %v", err)
	}

	_, err := Discover(parent)
	if err == nil {
		t.Fatal("Discover() expected error, got nil")
	}

	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Errorf("Discover() error type = %T, want *NotFoundError", err)
	}
}

func TestDiscover_IgnoresFiles(t *testing.T) {
	parent := t.TempDir()
	if err := os.WriteFile(filepath.Join(parent, "README"), []byte("x"), 0644); err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	if err := os.Mkdir(filepath.Join(parent, "repo"), 0755); err != nil {
		t.Fatalf("failed to create dir: %v", err)
	}

	got, err := Discover(parent)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if got != filepath.Join(parent, "repo") {
		t.Errorf("Discover() = %v, want the repo directory", got)
	}
}

func TestDiscover_MissingParent(t *testing.T) {
	if _, err := Discover(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Error("Discover() on missing parent expected error, got nil")
	}
}
