package logging

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func newTestFileLogger(t *testing.T, cfg FileLoggerConfig) *FileLogger {
	t.Helper()
	if cfg.FilePath == "" {
		cfg.FilePath = filepath.Join(t.TempDir(), "logs", "sync.log")
	}
	logger, err := NewFileLogger(cfg)
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}
	t.Cleanup(func() { _ = logger.Close() })
	return logger
}

func readEntries(t *testing.T, path string) []LogEntry {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()

	var entries []LogEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry LogEntry
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			t.Fatalf("invalid JSON line %q: %v", scanner.Text(), err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestFileLogger_WritesJSONLines(t *testing.T) {
	logger := newTestFileLogger(t, FileLoggerConfig{Level: INFO})

	logger.Debug("hidden")
	logger.Info("Upload complete", F("name", "a.txt"), F("bytes", 12))
	logger.Error("Replace failed", F("name", "b.txt"))

	entries := readEntries(t, logger.filePath)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Level != "INFO" || entries[0].Message != "Upload complete" {
		t.Errorf("unexpected first entry: %+v", entries[0])
	}
	if entries[0].Fields["name"] != "a.txt" {
		t.Errorf("fields = %v", entries[0].Fields)
	}
	if entries[1].Level != "ERROR" {
		t.Errorf("second level = %s", entries[1].Level)
	}
}

func TestFileLogger_Views(t *testing.T) {
	logger := newTestFileLogger(t, FileLoggerConfig{Level: DEBUG})

	ctx := ContextWithTraceID(context.Background(), "trace-1")
	view := logger.With(F("folder", "f1")).WithContext(ctx)
	view.Info("Listed remote folder", F("count", 3))
	if err := view.Close(); err != nil {
		t.Fatalf("view Close: %v", err)
	}
	logger.Info("after view close")

	entries := readEntries(t, logger.filePath)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].TraceID != "trace-1" || entries[0].Fields["folder"] != "f1" {
		t.Errorf("view entry = %+v", entries[0])
	}
	if entries[1].TraceID != "" {
		t.Errorf("parent entry carries trace ID: %+v", entries[1])
	}
}

func TestFileLogger_RotationKeepsMaxBackups(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sync.log")
	logger := newTestFileLogger(t, FileLoggerConfig{
		FilePath:      path,
		Level:         INFO,
		MaxFileSize:   100,
		RotateEnabled: true,
		MaxBackups:    2,
	})

	for i := 0; i < 30; i++ {
		logger.Info("Upload progress for a reasonably long file name", F("sent", i))
	}

	backups, err := filepath.Glob(path + ".*")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(backups) != 2 {
		t.Errorf("got %d rotated files, want 2: %v", len(backups), backups)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("active log missing: %v", err)
	}
}

func TestFileLogger_CloseTwice(t *testing.T) {
	logger := newTestFileLogger(t, FileLoggerConfig{Level: INFO})
	if err := logger.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	logger.Info("dropped after close")
}
