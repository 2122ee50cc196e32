package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type logRecord struct {
	Level string `json:"level"`
	Msg   string `json:"msg"`
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer

	// Use JSON handler for easier parsing in tests
	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	testLogger := slog.New(handler)

	originalLogger := Logger
	Logger = testLogger
	defer func() { Logger = originalLogger }()

	tests := []struct {
		name  string
		fn    func(msg string, args ...any)
		level string
		msg   string
	}{
		{
			name:  "Info",
			fn:    Info,
			level: "INFO",
			msg:   "info message",
		},
		{
			name:  "Error",
			fn:    Error,
			level: "ERROR",
			msg:   "error message",
		},
		{
			name:  "Warn",
			fn:    Warn,
			level: "WARN",
			msg:   "warn message",
		},
		{
			name:  "Debug",
			fn:    Debug,
			level: "DEBUG",
			msg:   "debug message",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.fn(tt.msg)

			var rec logRecord
			if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
				t.Fatalf("failed to unmarshal log output: %v", err)
			}

			if rec.Msg != tt.msg {
				t.Errorf("expected msg %q, got %q", tt.msg, rec.Msg)
			}
			if rec.Level != tt.level {
				t.Errorf("expected level %q, got %q", tt.level, rec.Level)
			}
		})
	}
}

func TestDefaultLogger(t *testing.T) {
	if Logger == nil {
		t.Error("Logger should be initialized")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" DEBUG ", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestInit_WritesToFile(t *testing.T) {
	originalLogger := Logger
	defer func() { Logger = originalLogger }()

	path := filepath.Join(t.TempDir(), "logs", "cmeter.log")
	closer, err := Init(Options{Path: path, Level: "debug"})
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	Debug("refresh cycle", "kind", "oauth")
	if err := closer.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(data), "refresh cycle") {
		t.Errorf("log file missing message, got %q", string(data))
	}
}

func TestInit_EmptyPathUsesStderr(t *testing.T) {
	originalLogger := Logger
	defer func() { Logger = originalLogger }()

	closer, err := Init(Options{})
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if err := closer.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if Logger == originalLogger {
		t.Error("expected a new logger instance")
	}
}
