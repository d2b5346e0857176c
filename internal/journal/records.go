package journal

import (
	"context"
	"database/sql"
	"time"

	"github.com/dl-alexandre/gdsync/internal/logging"
	"github.com/dl-alexandre/gdsync/internal/types"
)

// Record stores one sync record
func (j *Journal) Record(ctx context.Context, rec types.SyncRecord) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO sync_records (recorded_at, operation, name, outcome, detail, trace_id)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.Timestamp.UnixNano(), rec.Operation, rec.Name, string(rec.Outcome), nullString(rec.Detail), nullString(rec.TraceID))
	return err
}

// Report records rec, logging rather than returning storage failures so a
// broken journal never fails a reconciliation.
func (j *Journal) Report(ctx context.Context, rec types.SyncRecord) {
	if err := j.Record(context.WithoutCancel(ctx), rec); err != nil {
		j.logger.Warn("Failed to write sync journal",
			logging.F("name", rec.Name),
			logging.F("operation", rec.Operation),
			logging.F("error", err.Error()),
		)
	}
}

// Recent returns up to limit records, newest first
func (j *Journal) Recent(ctx context.Context, limit int) (records []types.SyncRecord, err error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT recorded_at, operation, name, outcome, detail, trace_id
		FROM sync_records ORDER BY recorded_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// ForName returns the records for one remote object name, newest first
func (j *Journal) ForName(ctx context.Context, name string, limit int) (records []types.SyncRecord, err error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT recorded_at, operation, name, outcome, detail, trace_id
		FROM sync_records WHERE name = ? ORDER BY recorded_at DESC, id DESC LIMIT ?
	`, name, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// Prune deletes records older than cutoff and returns how many were removed
func (j *Journal) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := j.db.ExecContext(ctx, `DELETE FROM sync_records WHERE recorded_at < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(s scanner) (types.SyncRecord, error) {
	var rec types.SyncRecord
	var recordedAt int64
	var outcome string
	var detail, traceID sql.NullString

	if err := s.Scan(&recordedAt, &rec.Operation, &rec.Name, &outcome, &detail, &traceID); err != nil {
		return rec, err
	}
	rec.Timestamp = time.Unix(0, recordedAt)
	rec.Outcome = types.SyncOutcome(outcome)
	rec.Detail = detail.String
	rec.TraceID = traceID.String
	return rec, nil
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
