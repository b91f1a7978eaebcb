package logging

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		raw     string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"info", LevelInfo, false},
		{"", LevelInfo, false},
		{"WARN", LevelWarn, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseLevel(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.raw, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestEnabled(t *testing.T) {
	defer SetLevel(LevelInfo)

	SetLevel(LevelWarn)
	if Enabled(LevelDebug) {
		t.Error("Enabled(debug) = true at warn level, want false")
	}
	if !Enabled(LevelWarn) {
		t.Error("Enabled(warn) = false at warn level, want true")
	}
	if !Enabled(LevelError) {
		t.Error("Enabled(error) = false at warn level, want true")
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)
	defer SetLevel(LevelInfo)

	SetLevel(LevelWarn)
	Debugf("hidden debug line")
	Infof("hidden info line")
	Warnf("visible warn line")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("output contains suppressed lines: %q", out)
	}
	if !strings.Contains(out, "visible warn line") {
		t.Errorf("output missing warn line: %q", out)
	}
}
