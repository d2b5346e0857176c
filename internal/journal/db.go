package journal

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	"github.com/dl-alexandre/gdsync/internal/logging"
	_ "modernc.org/sqlite"
)

// Journal persists sync records in a local SQLite database
type Journal struct {
	db     *sql.DB
	logger logging.Logger
}

// Open opens (creating if needed) the journal database at path
func Open(path string, logger logging.Logger) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	instance := &Journal{db: db, logger: logger}
	if err := instance.Migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return instance, nil
}

func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

func (j *Journal) Migrate(ctx context.Context) error {
	_, err := j.db.ExecContext(ctx, schemaSQL)
	return err
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS sync_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	recorded_at INTEGER NOT NULL,
	operation TEXT NOT NULL,
	name TEXT NOT NULL,
	outcome TEXT NOT NULL,
	detail TEXT,
	trace_id TEXT
);

CREATE INDEX IF NOT EXISTS idx_sync_records_recorded_at ON sync_records(recorded_at);
CREATE INDEX IF NOT EXISTS idx_sync_records_name ON sync_records(name);
`
