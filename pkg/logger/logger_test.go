package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
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
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := parseLevel(tt.in); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestInitJSON(t *testing.T) {
	var buf bytes.Buffer
	Init("debug", &buf)

	Warn("Joke API unavailable", Err(errors.New("boom")), Mode("add"), Design(42))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("Expected JSON output, got %q: %v", buf.String(), err)
	}
	if rec["msg"] != "Joke API unavailable" {
		t.Errorf("msg = %v", rec["msg"])
	}
	if rec["error"] != "boom" {
		t.Errorf("error = %v, want boom", rec["error"])
	}
	if rec["mode"] != "add" {
		t.Errorf("mode = %v, want add", rec["mode"])
	}
	if rec["design_id"] != float64(42) {
		t.Errorf("design_id = %v, want 42", rec["design_id"])
	}
}

func TestInitTextFiltersLevel(t *testing.T) {
	var buf bytes.Buffer
	Init("warn", &buf, "text")

	Info("hidden")
	Error("shown", Bool("fallback", true))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record should be filtered at warn level: %q", out)
	}
	if !strings.Contains(out, "msg=shown") || !strings.Contains(out, "fallback=true") {
		t.Errorf("unexpected text output: %q", out)
	}
}
