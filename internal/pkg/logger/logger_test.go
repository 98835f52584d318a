package logger

import (
	"fmt"
	"log/slog"
	"testing"
)

// TestParseLevel tests level parsing with fallback.
func TestParseLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.level); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.level, got, tt.want)
		}
	}
}

// TestWithContext tests that the With* helpers return usable loggers.
func TestWithContext(t *testing.T) {
	log := New("debug", "json")

	if l := log.WithApproach("bm25"); l == nil || l.Logger == nil {
		t.Error("WithApproach returned an unusable logger")
	}
	if l := log.WithQuery("text", "id"); l == nil || l.Logger == nil {
		t.Error("WithQuery returned an unusable logger")
	}
	if l := log.WithError(fmt.Errorf("boom")); l == nil || l.Logger == nil {
		t.Error("WithError returned an unusable logger")
	}
}

// TestDefault tests the default logger constructor.
func TestDefault(t *testing.T) {
	if Default() == nil {
		t.Error("Default returned nil")
	}
}
