package logger

import (
	"context"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"  ERROR  ", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestGet_InitializesOnDemand(t *testing.T) {
	defaultLogger = nil
	if Get() == nil {
		t.Fatal("Expected Get to initialize a logger")
	}
}

func TestWithRequestID(t *testing.T) {
	ctx := context.WithValue(context.Background(), RequestIDKey, "abc123")
	if WithRequestID(ctx) == nil {
		t.Fatal("Expected a logger with request ID")
	}

	// Missing request ID should fall back to the default logger.
	if WithRequestID(context.Background()) == nil {
		t.Fatal("Expected the default logger without a request ID")
	}
}

func TestWithComponent(t *testing.T) {
	if WithComponent("places") == nil {
		t.Fatal("Expected a component logger")
	}
}
