package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// FileLogger writes JSON lines to a file, rotating it by size
type FileLogger struct {
	mu            sync.Mutex
	file          *os.File
	filePath      string
	level         LogLevel
	maxFileSize   int64
	currentSize   int64
	rotateEnabled bool
	maxBackups    int
}

// FileLoggerConfig contains configuration for file logger
type FileLoggerConfig struct {
	FilePath      string
	Level         LogLevel
	MaxFileSize   int64 // bytes; 0 disables rotation
	RotateEnabled bool
	// MaxBackups caps the rotated files kept next to FilePath; 0 keeps all.
	MaxBackups int
}

func openAppend(path string) (*os.File, int64, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, 0, err
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, 0, err
	}
	return file, info.Size(), nil
}

// NewFileLogger opens (or creates) config.FilePath for appending JSON lines
func NewFileLogger(config FileLoggerConfig) (*FileLogger, error) {
	if err := os.MkdirAll(filepath.Dir(config.FilePath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	file, size, err := openAppend(config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return &FileLogger{
		file:          file,
		filePath:      config.FilePath,
		level:         config.Level,
		maxFileSize:   config.MaxFileSize,
		currentSize:   size,
		rotateEnabled: config.RotateEnabled && config.MaxFileSize > 0,
		maxBackups:    config.MaxBackups,
	}, nil
}

func (l *FileLogger) log(level LogLevel, msg string, fields ...Field) {
	l.write(level, "", nil, msg, fields)
}

func newEntry(level LogLevel, traceID, msg string, base, fields []Field) LogEntry {
	entry := LogEntry{
		Timestamp: time.Now().UTC(),
		Level:     level.String(),
		Message:   msg,
		TraceID:   traceID,
		Fields:    make(map[string]interface{}, len(base)+len(fields)),
	}
	for _, field := range mergeFields(base, fields) {
		entry.Fields[field.Key] = field.Value
	}
	return entry
}

// write serializes one entry. Views created by With/WithTraceID call it on the
// parent so rotation and size accounting stay in one place.
func (l *FileLogger) write(level LogLevel, traceID string, base []Field, msg string, fields []Field) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level || l.file == nil {
		return
	}
	if l.rotateEnabled && l.currentSize >= l.maxFileSize {
		if err := l.rotate(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to rotate log file: %v\n", err)
		}
		if l.file == nil {
			return
		}
	}

	data, err := json.Marshal(newEntry(level, traceID, msg, base, fields))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to marshal log entry: %v\n", err)
		return
	}
	n, err := l.file.Write(append(data, '\n'))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write log entry: %v\n", err)
		return
	}
	l.currentSize += int64(n)
}

// rotate moves the current file aside with a timestamp suffix and starts a
// fresh one. If the rename fails the old file is reopened and kept.
func (l *FileLogger) rotate() error {
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}

	rotatedPath := l.filePath + "." + time.Now().UTC().Format("20060102-150405.000000000")
	if err := os.Rename(l.filePath, rotatedPath); err != nil {
		l.file, l.currentSize, _ = openAppend(l.filePath)
		return fmt.Errorf("failed to rename log file: %w", err)
	}

	file, _, err := openAppend(l.filePath)
	if err != nil {
		l.file = nil
		return fmt.Errorf("failed to create new log file: %w", err)
	}
	l.file = file
	l.currentSize = 0

	l.pruneBackups()
	return nil
}

// pruneBackups removes the oldest rotated files beyond maxBackups. Rotated
// names sort chronologically because of the timestamp suffix.
func (l *FileLogger) pruneBackups() {
	if l.maxBackups <= 0 {
		return
	}
	backups, err := filepath.Glob(l.filePath + ".*")
	if err != nil || len(backups) <= l.maxBackups {
		return
	}
	sort.Strings(backups)
	for _, old := range backups[:len(backups)-l.maxBackups] {
		if err := os.Remove(old); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to remove old log file: %v\n", err)
		}
	}
}

func (l *FileLogger) Debug(msg string, fields ...Field) { l.log(DEBUG, msg, fields...) }
func (l *FileLogger) Info(msg string, fields ...Field)  { l.log(INFO, msg, fields...) }
func (l *FileLogger) Warn(msg string, fields ...Field)  { l.log(WARN, msg, fields...) }
func (l *FileLogger) Error(msg string, fields ...Field) { l.log(ERROR, msg, fields...) }

// With returns a logger sharing this file that appends fields to every entry
func (l *FileLogger) With(fields ...Field) Logger {
	return &fileLoggerView{parent: l, fields: fields}
}

// WithTraceID returns a logger sharing this file with the trace ID set
func (l *FileLogger) WithTraceID(traceID string) Logger {
	return &fileLoggerView{parent: l, traceID: traceID}
}

// WithContext returns a new logger that extracts trace ID from context
func (l *FileLogger) WithContext(ctx context.Context) Logger {
	traceID := TraceIDFromContext(ctx)
	if traceID == "" {
		return l
	}
	return l.WithTraceID(traceID)
}

// SetLevel sets the minimum log level
func (l *FileLogger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// Close closes the log file
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// fileLoggerView carries per-view trace ID and fields while writing through the
// parent FileLogger, so rotation swaps the file for every view at once.
type fileLoggerView struct {
	parent  *FileLogger
	traceID string
	fields  []Field
}

func (v *fileLoggerView) Debug(msg string, fields ...Field) {
	v.parent.write(DEBUG, v.traceID, v.fields, msg, fields)
}

func (v *fileLoggerView) Info(msg string, fields ...Field) {
	v.parent.write(INFO, v.traceID, v.fields, msg, fields)
}

func (v *fileLoggerView) Warn(msg string, fields ...Field) {
	v.parent.write(WARN, v.traceID, v.fields, msg, fields)
}

func (v *fileLoggerView) Error(msg string, fields ...Field) {
	v.parent.write(ERROR, v.traceID, v.fields, msg, fields)
}

func (v *fileLoggerView) With(fields ...Field) Logger {
	return &fileLoggerView{parent: v.parent, traceID: v.traceID, fields: mergeFields(v.fields, fields)}
}

func (v *fileLoggerView) WithTraceID(traceID string) Logger {
	return &fileLoggerView{parent: v.parent, traceID: traceID, fields: v.fields}
}

func (v *fileLoggerView) WithContext(ctx context.Context) Logger {
	traceID := TraceIDFromContext(ctx)
	if traceID == "" {
		return v
	}
	return v.WithTraceID(traceID)
}

func (v *fileLoggerView) SetLevel(level LogLevel) {
	v.parent.SetLevel(level)
}

// Close is a no-op; the parent owns the file
func (v *fileLoggerView) Close() error {
	return nil
}
