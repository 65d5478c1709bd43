package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestLoggerWritesJSONLines(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	logger, err := New(dir, Options{})
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	logger.Info("build finished", zap.Int("tokens", 12))
	logger.Debug("dropped at info level")
	logger.SetVerbose(true)
	logger.Debug("kept at debug level")
	if err := logger.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d:\n%s", len(lines), data)
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry["msg"] != "build finished" || entry["tokens"] != float64(12) {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if !strings.Contains(lines[1], "kept at debug level") {
		t.Fatalf("debug line missing after SetVerbose: %s", lines[1])
	}
}

func TestLoggerCloseNil(t *testing.T) {
	var logger *Logger
	if err := logger.Close(); err != nil {
		t.Fatalf("nil close: %v", err)
	}
	if logger.Path() != "" {
		t.Fatalf("nil logger has a path")
	}
}

func TestHistoryTailReturnsRecentLinesAndTotal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "history.log")
	history, err := NewHistory(path)
	if err != nil {
		t.Fatalf("new history: %v", err)
	}
	history.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	for i := 0; i < 5; i++ {
		history.Info("build-%d", i)
	}
	history.Error("build failed:\n  two lines")

	lines, total := history.Tail(3)
	if total != 6 {
		t.Fatalf("total lines = %d, want 6", total)
	}
	if len(lines) != 3 {
		t.Fatalf("len(lines) = %d, want 3", len(lines))
	}
	for idx, want := range []string{"build-3", "build-4", "build failed: two lines"} {
		if !strings.Contains(lines[idx], want) {
			t.Fatalf("line %d = %q, missing %s", idx, lines[idx], want)
		}
	}
	if !strings.HasPrefix(lines[2], "2024-03-01T12:00:00Z ERROR") {
		t.Fatalf("unexpected line format: %q", lines[2])
	}
}

func TestHistoryTailMissingFile(t *testing.T) {
	history, err := NewHistory(filepath.Join(t.TempDir(), "history.log"))
	if err != nil {
		t.Fatalf("new history: %v", err)
	}
	lines, total := history.Tail(10)
	if lines != nil || total != 0 {
		t.Fatalf("expected empty tail, got %v / %d", lines, total)
	}
}
