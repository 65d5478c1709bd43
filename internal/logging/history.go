package logging

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level represents the outcome recorded by a history entry.
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// History persists one line per build or validate run to a plain text
// file that `sando history` can tail.
type History struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// NewHistory creates a history that writes to the provided path.
func NewHistory(path string) (*History, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("logging: ensure history dir: %w", err)
	}
	return &History{path: path, now: time.Now}, nil
}

// Path returns the file backing this history.
func (h *History) Path() string {
	if h == nil {
		return ""
	}
	return h.path
}

// Append writes a single entry.
func (h *History) Append(level Level, message string) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	line := fmt.Sprintf("%s %-5s %s\n",
		h.now().UTC().Format(time.RFC3339),
		string(level),
		strings.Join(strings.Fields(message), " "),
	)
	file, err := os.OpenFile(h.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return
	}
	defer file.Close()
	_, _ = file.WriteString(line)
}

// Tail returns up to maxLines of the most recent entries and the total
// number of entries on disk.
func (h *History) Tail(maxLines int) ([]string, int) {
	if h == nil || maxLines <= 0 {
		return nil, 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	file, err := os.Open(h.path)
	if err != nil {
		return nil, 0
	}
	defer file.Close()

	var lines []string
	total := 0
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		total++
		lines = append(lines, scanner.Text())
		if len(lines) > maxLines {
			lines = lines[1:]
		}
	}
	if len(lines) == 0 {
		return nil, total
	}
	return lines, total
}

// Info appends an informational entry.
func (h *History) Info(format string, args ...any) {
	h.Append(LevelInfo, fmt.Sprintf(format, args...))
}

// Warn appends a warning entry.
func (h *History) Warn(format string, args ...any) {
	h.Append(LevelWarn, fmt.Sprintf(format, args...))
}

// Error appends an error entry.
func (h *History) Error(format string, args ...any) {
	h.Append(LevelError, fmt.Sprintf(format, args...))
}
