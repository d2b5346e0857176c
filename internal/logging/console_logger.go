package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorGray   = "\033[90m"
)

var levelColors = map[LogLevel]string{
	DEBUG: colorBlue,
	WARN:  colorYellow,
	ERROR: colorRed,
}

// consoleSink is shared by a logger and all of its children so lines from
// concurrent reconciliations never interleave
type consoleSink struct {
	mu    sync.Mutex
	w     io.Writer
	level LogLevel
}

// ConsoleLogger writes human-readable lines, one per entry
type ConsoleLogger struct {
	sink      *consoleSink
	traceID   string
	fields    []Field
	color     bool
	timestamp bool
	redact    bool
}

// ConsoleLoggerConfig contains configuration for console logger
type ConsoleLoggerConfig struct {
	Writer           io.Writer
	Level            LogLevel
	ColorEnabled     bool
	TimestampEnabled bool
	RedactSensitive  bool
}

// NewConsoleLogger creates a console logger writing to config.Writer, or stderr
func NewConsoleLogger(config ConsoleLoggerConfig) *ConsoleLogger {
	if config.Writer == nil {
		config.Writer = os.Stderr
	}
	return &ConsoleLogger{
		sink:      &consoleSink{w: config.Writer, level: config.Level},
		color:     config.ColorEnabled,
		timestamp: config.TimestampEnabled,
		redact:    config.RedactSensitive,
	}
}

func (l *ConsoleLogger) paint(sb *strings.Builder, color, text string) {
	if l.color && color != "" {
		sb.WriteString(color)
		sb.WriteString(text)
		sb.WriteString(colorReset)
		return
	}
	sb.WriteString(text)
}

func (l *ConsoleLogger) format(level LogLevel, msg string, fields []Field) string {
	var sb strings.Builder

	if l.timestamp {
		l.paint(&sb, colorGray, time.Now().Format("2006-01-02 15:04:05"))
		sb.WriteByte(' ')
	}
	l.paint(&sb, levelColors[level], fmt.Sprintf("%-5s", level.String()))
	sb.WriteByte(' ')

	if l.traceID != "" {
		short := l.traceID
		if len(short) > 8 {
			short = short[:8]
		}
		l.paint(&sb, colorGray, "["+short+"]")
		sb.WriteByte(' ')
	}

	if l.redact {
		msg = redactSensitiveData(msg)
	}
	sb.WriteString(msg)

	for i, field := range fields {
		if i == 0 {
			sb.WriteByte(' ')
		} else {
			sb.WriteString(", ")
		}
		sb.WriteString(field.Key)
		sb.WriteByte('=')
		sb.WriteString(l.value(field.Value))
	}
	return sb.String()
}

// value renders a field value, quoting it when it holds whitespace
// (local paths often do)
func (l *ConsoleLogger) value(v interface{}) string {
	s := fmt.Sprint(v)
	if l.redact {
		s = redactSensitiveData(s)
	}
	if strings.ContainsAny(s, " \t\n") {
		return strconv.Quote(s)
	}
	return s
}

func (l *ConsoleLogger) log(level LogLevel, msg string, fields ...Field) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	if level < l.sink.level {
		return
	}
	_, _ = fmt.Fprintln(l.sink.w, l.format(level, msg, mergeFields(l.fields, fields)))
}

func (l *ConsoleLogger) Debug(msg string, fields ...Field) { l.log(DEBUG, msg, fields...) }
func (l *ConsoleLogger) Info(msg string, fields ...Field)  { l.log(INFO, msg, fields...) }
func (l *ConsoleLogger) Warn(msg string, fields ...Field)  { l.log(WARN, msg, fields...) }
func (l *ConsoleLogger) Error(msg string, fields ...Field) { l.log(ERROR, msg, fields...) }

// With returns a child logger that prefixes fields to every line
func (l *ConsoleLogger) With(fields ...Field) Logger {
	child := *l
	child.fields = mergeFields(l.fields, fields)
	return &child
}

// WithTraceID returns a child logger tagged with traceID
func (l *ConsoleLogger) WithTraceID(traceID string) Logger {
	child := *l
	child.traceID = traceID
	return &child
}

// WithContext returns a child logger carrying the context's trace ID, or l
// itself when there is none
func (l *ConsoleLogger) WithContext(ctx context.Context) Logger {
	traceID := TraceIDFromContext(ctx)
	if traceID == "" {
		return l
	}
	return l.WithTraceID(traceID)
}

// SetLevel changes the minimum level for this logger and its children
func (l *ConsoleLogger) SetLevel(level LogLevel) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.level = level
}

func (l *ConsoleLogger) Close() error {
	return nil
}
