// Package eventlog is an append-only SQLite journal of job lifecycle
// transitions, kept for operator diagnostics. It is never read back to
// reconstruct a job's live state — jobs stay in-memory-only and
// ephemeral; this is an audit trail, not a persistence layer.
package eventlog

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/gwlsn/vrsd/internal/jobs"
)

const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS job_events (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	job_id     TEXT NOT NULL,
	source     TEXT NOT NULL,
	stage      TEXT NOT NULL,
	error      TEXT,
	recorded_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_job_events_job_id ON job_events(job_id);

CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL,
	applied_at TEXT DEFAULT CURRENT_TIMESTAMP
);
`

// Log is an append-only store of job stage transitions. Safe for
// concurrent use from the pipeline goroutines that record transitions.
type Log struct {
	db *sql.DB
	mu sync.Mutex
}

// Open creates (or reuses) a SQLite database at path, applying the
// schema if absent. A blank path disables the event log: Open returns
// a nil *Log, and every method on a nil *Log is a no-op, so callers
// don't need to branch on whether logging is configured.
func Open(path string) (*Log, error) {
	if path == "" {
		return nil, nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("eventlog: create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("eventlog: open: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("eventlog: create schema: %w", err)
	}

	var version int
	err = db.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&version)
	if err == sql.ErrNoRows {
		if _, err := db.Exec("INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			db.Close()
			return nil, fmt.Errorf("eventlog: record schema version: %w", err)
		}
	} else if err != nil {
		db.Close()
		return nil, fmt.Errorf("eventlog: check schema version: %w", err)
	}

	return &Log{db: db}, nil
}

// Record appends one stage-transition event for jobID, sourced from a
// sourceKind ("upload", "remote", "torrent", "extractor") and a job
// snapshot. A nil *Log (from a blank EventLogPath) or a write error is
// silently tolerated: the event log is a diagnostics side-channel and
// must never fail or block a job.
func (l *Log) Record(jobID, sourceKind string, snap jobs.Snapshot) {
	if l == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var errMsg sql.NullString
	if snap.Error != nil {
		errMsg = sql.NullString{String: *snap.Error, Valid: true}
	}

	_, _ = l.db.Exec(
		`INSERT INTO job_events (job_id, source, stage, error, recorded_at) VALUES (?, ?, ?, ?, ?)`,
		jobID, sourceKind, string(snap.Stage), errMsg, time.Now().UTC().Format(time.RFC3339Nano),
	)
}

// Event is one recorded stage transition, returned by History for
// operator inspection.
type Event struct {
	Seq        int64     `json:"seq"`
	JobID      string    `json:"job_id"`
	Source     string    `json:"source"`
	Stage      string    `json:"stage"`
	Error      string    `json:"error,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// History returns every recorded event for jobID, oldest first. Returns
// an empty slice (not an error) for a nil Log or an unknown job id.
func (l *Log) History(jobID string) ([]Event, error) {
	if l == nil {
		return nil, nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	rows, err := l.db.Query(
		`SELECT seq, job_id, source, stage, error, recorded_at FROM job_events WHERE job_id = ? ORDER BY seq ASC`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("eventlog: query history: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var errMsg sql.NullString
		var recordedAt string
		if err := rows.Scan(&e.Seq, &e.JobID, &e.Source, &e.Stage, &errMsg, &recordedAt); err != nil {
			return nil, fmt.Errorf("eventlog: scan row: %w", err)
		}
		e.Error = errMsg.String
		e.RecordedAt, _ = time.Parse(time.RFC3339Nano, recordedAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the underlying database handle. A no-op for a nil Log.
func (l *Log) Close() error {
	if l == nil {
		return nil
	}
	return l.db.Close()
}
