package logging

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.expected {
			t.Errorf("parseLevel(%q) = %v, expected %v", tt.input, got, tt.expected)
		}
	}
}

func TestInitDefaults(t *testing.T) {
	if err := Init(nil); err != nil {
		t.Fatalf("Init(nil) failed: %v", err)
	}
	if Logger() == nil {
		t.Fatal("Logger() returned nil after Init")
	}
}

func TestInitJSONFormat(t *testing.T) {
	cfg := &Config{Level: "debug", Format: "json", Output: "stderr"}
	if err := Init(cfg); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if !Logger().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Expected debug level to be enabled")
	}
}

func TestInitFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agentboard.log")
	cfg := &Config{Level: "info", Format: "text", Output: path}
	if err := Init(cfg); err != nil {
		t.Fatalf("Init with file output failed: %v", err)
	}
	Logger().Info("hello")
}

func TestWithComponent(t *testing.T) {
	if err := Init(nil); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	log := WithComponent("test")
	if log == nil {
		t.Fatal("WithComponent returned nil")
	}
}
