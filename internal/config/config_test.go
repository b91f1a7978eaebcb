package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFile_Missing(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadFile() on missing file error = %v, want defaults", err)
	}
	if cfg != Default() {
		t.Errorf("LoadFile() on missing file = %+v, want defaults", cfg)
	}
}

func TestLoadFile_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "machine_type: premiumLinux\nask_timeout: 10m\nserver_port: 9000\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if cfg.MachineType != "premiumLinux" {
		t.Errorf("MachineType = %q, want premiumLinux", cfg.MachineType)
	}
	if cfg.AskTimeout != 10*time.Minute {
		t.Errorf("AskTimeout = %v, want 10m", cfg.AskTimeout)
	}
	if cfg.ServerPort != 9000 {
		t.Errorf("ServerPort = %d, want 9000", cfg.ServerPort)
	}
	// Untouched fields keep defaults.
	if cfg.IdleTimeoutMinutes != Default().IdleTimeoutMinutes {
		t.Errorf("IdleTimeoutMinutes = %d, want default %d", cfg.IdleTimeoutMinutes, Default().IdleTimeoutMinutes)
	}
}

func TestLoadFile_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("machine_type: [oops\n"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	if _, err := LoadFile(path); err == nil {
		t.Error("LoadFile() on malformed yaml expected error, got nil")
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad port", "server_port: -1\n"},
		{"negative timeout", "ask_timeout: -1s\n"},
		{"unparsable duration", "boot_timeout: quickly\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatalf("failed to write config: %v", err)
			}
			if _, err := LoadFile(path); err == nil {
				t.Errorf("LoadFile(%q) expected error, got nil", tt.content)
			}
		})
	}
}
