package repository

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the job-record database. SQLite keeps the batch tool
// self-contained: one file next to the outputs carries everything a later
// invocation needs for skip_existing resumption.
type DB struct {
	*sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	fire_key      TEXT PRIMARY KEY,
	job_id        TEXT NOT NULL,
	fire_name     TEXT NOT NULL,
	fire_year     INTEGER NOT NULL,
	state         TEXT NOT NULL,
	level         TEXT NOT NULL DEFAULT '',
	attempts      INTEGER NOT NULL DEFAULT 0,
	error_kind    TEXT,
	error_stage   TEXT,
	error_message TEXT,
	timing_json   TEXT NOT NULL DEFAULT '{}',
	outputs_json  TEXT NOT NULL DEFAULT '{}',
	warnings_json TEXT NOT NULL DEFAULT '[]',
	input_size    INTEGER NOT NULL DEFAULT 0,
	created_at    TIMESTAMP NOT NULL,
	finished_at   TIMESTAMP,
	updated_at    TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_jobs_state ON jobs(state);
CREATE INDEX IF NOT EXISTS idx_jobs_year ON jobs(fire_year);
`

// NewDB opens (creating if needed) the job store at the given path.
func NewDB(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open job store: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("job store unreachable: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate job store: %w", err)
	}
	return &DB{DB: db}, nil
}
