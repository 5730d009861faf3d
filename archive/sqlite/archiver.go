package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/orthanc-go/jobengine/jobs"
	"github.com/orthanc-go/jobengine/registry"
)

var _ registry.Archiver = (*Archiver)(nil)

// Archiver persists evicted completed-ring entries to a SQLite
// database, keyed by job id.
type Archiver struct {
	db     *sql.DB
	logger *slog.Logger
}

// Option configures an Archiver.
type Option func(*Archiver)

// WithLogger sets the logger used to report write failures. Archive
// write failures are never propagated to the registry.
func WithLogger(l *slog.Logger) Option {
	return func(a *Archiver) { a.logger = l }
}

// Open opens (creating if necessary) a SQLite database at
// dataSourceName and ensures the archive table exists.
func Open(dataSourceName string, opts ...Option) (*Archiver, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("archive/sqlite: open: %w", err)
	}

	a := &Archiver{db: db, logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}

	if err := a.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return a, nil
}

func (a *Archiver) initSchema() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS archived_jobs (
		id                      TEXT PRIMARY KEY,
		priority                INTEGER NOT NULL,
		state                   TEXT NOT NULL,
		error_code              TEXT NOT NULL,
		creation_time           DATETIME NOT NULL,
		last_state_change_time  DATETIME NOT NULL,
		runtime_ms              INTEGER NOT NULL,
		progress                REAL NOT NULL,
		description             TEXT,
		snapshot_json           TEXT,
		archived_at             DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_archived_jobs_state ON archived_jobs(state);
	`
	_, err := a.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("archive/sqlite: init schema: %w", err)
	}
	return nil
}

// OnEvict implements registry.Archiver. It is called synchronously
// under the registry's mutex right before an evicted handler's state
// is released; a failing write is logged and otherwise ignored.
func (a *Archiver) OnEvict(info registry.JobInfo, snapshot *jobs.Snapshot) {
	var snapshotJSON sql.NullString
	if snapshot != nil {
		data, err := json.Marshal(snapshot)
		if err != nil {
			a.logger.Error("archive/sqlite: marshal snapshot failed", slog.String("job_id", info.ID), slog.Any("error", err))
		} else {
			snapshotJSON = sql.NullString{String: string(data), Valid: true}
		}
	}

	_, err := a.db.Exec(`
		INSERT OR REPLACE INTO archived_jobs
			(id, priority, state, error_code, creation_time, last_state_change_time,
			 runtime_ms, progress, description, snapshot_json, archived_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		info.ID, info.Priority, info.State.String(), info.ErrorCode.String(),
		info.CreationTime, info.LastStateChangeTime, info.Runtime.Milliseconds(),
		info.Progress, info.Description, snapshotJSON, time.Now().UTC(),
	)
	if err != nil {
		a.logger.Error("archive/sqlite: insert evicted job failed", slog.String("job_id", info.ID), slog.Any("error", err))
	}
}

// ArchivedJob is one row of the archive table.
type ArchivedJob struct {
	ID                  string
	Priority            int
	State               string
	ErrorCode           string
	CreationTime        time.Time
	LastStateChangeTime time.Time
	RuntimeMs           int64
	Progress            float64
	Description         string
	Snapshot            *jobs.Snapshot
	ArchivedAt          time.Time
}

// Get retrieves one archived job by id. It returns sql.ErrNoRows if
// no such job was ever archived.
func (a *Archiver) Get(id string) (*ArchivedJob, error) {
	row := a.db.QueryRow(`
		SELECT id, priority, state, error_code, creation_time, last_state_change_time,
		       runtime_ms, progress, description, snapshot_json, archived_at
		FROM archived_jobs WHERE id = ?
	`, id)
	return scanArchivedJob(row)
}

// List returns archived jobs in descending archived_at order, most
// recent first, limited to limit rows.
func (a *Archiver) List(limit int) ([]*ArchivedJob, error) {
	rows, err := a.db.Query(`
		SELECT id, priority, state, error_code, creation_time, last_state_change_time,
		       runtime_ms, progress, description, snapshot_json, archived_at
		FROM archived_jobs ORDER BY archived_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("archive/sqlite: list: %w", err)
	}
	defer rows.Close()

	var out []*ArchivedJob
	for rows.Next() {
		j, err := scanArchivedJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanArchivedJob(s scanner) (*ArchivedJob, error) {
	var j ArchivedJob
	var description sql.NullString
	var snapshotJSON sql.NullString

	if err := s.Scan(
		&j.ID, &j.Priority, &j.State, &j.ErrorCode, &j.CreationTime, &j.LastStateChangeTime,
		&j.RuntimeMs, &j.Progress, &description, &snapshotJSON, &j.ArchivedAt,
	); err != nil {
		return nil, err
	}

	j.Description = description.String
	if snapshotJSON.Valid {
		var snap jobs.Snapshot
		if err := json.Unmarshal([]byte(snapshotJSON.String), &snap); err != nil {
			return nil, fmt.Errorf("archive/sqlite: unmarshal snapshot: %w", err)
		}
		j.Snapshot = &snap
	}

	return &j, nil
}

// Close closes the underlying database connection.
func (a *Archiver) Close() error {
	return a.db.Close()
}
