package sync

import (
	"context"

	"github.com/dl-alexandre/gdsync/internal/logging"
	"github.com/dl-alexandre/gdsync/internal/types"
)

// Reporter receives one record per reconciliation. Implementations must not
// block for long; they run on the reconciling goroutine.
type Reporter interface {
	Report(ctx context.Context, rec types.SyncRecord)
}

// NopReporter discards records
type NopReporter struct{}

func (NopReporter) Report(context.Context, types.SyncRecord) {}

// LogReporter writes records to a logger
type LogReporter struct {
	logger logging.Logger
}

func NewLogReporter(logger logging.Logger) *LogReporter {
	return &LogReporter{logger: logger}
}

func (r *LogReporter) Report(ctx context.Context, rec types.SyncRecord) {
	fields := []logging.Field{
		logging.F("timestamp", rec.Timestamp),
		logging.F("operation", rec.Operation),
		logging.F("name", rec.Name),
		logging.F("outcome", string(rec.Outcome)),
	}
	if rec.Detail != "" {
		fields = append(fields, logging.F("detail", rec.Detail))
	}

	logger := r.logger
	if rec.TraceID != "" {
		logger = logger.WithTraceID(rec.TraceID)
	}
	if rec.Outcome == types.OutcomeFailed {
		logger.Warn("sync record", fields...)
		return
	}
	logger.Info("sync record", fields...)
}

// MultiReporter fans records out to several reporters
type MultiReporter []Reporter

func (m MultiReporter) Report(ctx context.Context, rec types.SyncRecord) {
	for _, r := range m {
		r.Report(ctx, rec)
	}
}
