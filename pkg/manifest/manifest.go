// Package manifest records generation runs and the documents they emitted.
//
// The manifest is a SQLite database next to the output. It powers resumable
// generation: before writing a document the pipeline compares its content
// hash with the hash recorded by earlier runs and skips unchanged documents.
// Hashes are kept per destination, so a document written to one output
// directory or format never counts as written to another.
package manifest

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/matzehuels/bpdoc/pkg/entity"
	"github.com/matzehuels/bpdoc/pkg/errors"
)

// DefaultFile is the manifest file name inside an output directory.
const DefaultFile = ".bpdoc-manifest.db"

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	started_at  INTEGER NOT NULL,
	finished_at INTEGER,
	state       TEXT NOT NULL,
	error       TEXT,
	documents   INTEGER NOT NULL DEFAULT 0,
	skipped     INTEGER NOT NULL DEFAULT 0,
	unresolved  INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS documents (
	destination TEXT NOT NULL,
	id          TEXT NOT NULL,
	kind        TEXT NOT NULL,
	hash        TEXT NOT NULL,
	run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	written_at  INTEGER NOT NULL,
	PRIMARY KEY (destination, id)
);

CREATE INDEX IF NOT EXISTS documents_run ON documents(run_id);
`

// schemaVersion is stored in PRAGMA user_version. Version 1 kept one hash
// per document regardless of destination.
const schemaVersion = 2

// Store wraps a manifest database.
type Store struct {
	conn *sql.DB
	Path string
}

// Open opens or creates the manifest at path with WAL mode and foreign keys
// enabled.
func Open(path string) (*Store, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreUnavailable, err, "open manifest")
	}
	// one writer; WAL lets readers such as "bpdoc runs" proceed
	conn.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON"} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, errors.Wrap(errors.ErrCodeStoreUnavailable, err, "%s", pragma)
		}
	}
	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return &Store{conn: conn, Path: path}, nil
}

// migrate creates the schema. Document hashes from older layouts are
// dropped; the next run simply writes everything again.
func migrate(conn *sql.DB) error {
	var version int
	if err := conn.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return errors.Wrap(errors.ErrCodeStoreUnavailable, err, "read schema version")
	}
	if version < schemaVersion {
		if _, err := conn.Exec("DROP TABLE IF EXISTS documents"); err != nil {
			return errors.Wrap(errors.ErrCodeStoreUnavailable, err, "drop old document table")
		}
	}
	if _, err := conn.Exec(schema); err != nil {
		return errors.Wrap(errors.ErrCodeStoreUnavailable, err, "create schema")
	}
	if _, err := conn.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return errors.Wrap(errors.ErrCodeStoreUnavailable, err, "set schema version")
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error { return s.conn.Close() }

// Run is one recorded generation run.
type Run struct {
	ID         string
	Title      string
	StartedAt  time.Time
	FinishedAt time.Time // zero while running
	State      string
	Error      string
	Documents  int
	Skipped    int
	Unresolved int
}

// Duration returns the run time, or zero for unfinished runs.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// BeginRun records the start of a run.
func (s *Store) BeginRun(ctx context.Context, id, title string, started time.Time) error {
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO runs (id, title, started_at, state) VALUES (?, ?, ?, ?)`,
		id, title, started.UnixMilli(), "running")
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreUnavailable, err, "begin run %s", id)
	}
	return nil
}

// FinishRun records the outcome of a run.
func (s *Store) FinishRun(ctx context.Context, r Run) error {
	res, err := s.conn.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, state = ?, error = ?, documents = ?, skipped = ?, unresolved = ?
		 WHERE id = ?`,
		r.FinishedAt.UnixMilli(), r.State, nullString(r.Error), r.Documents, r.Skipped, r.Unresolved, r.ID)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreUnavailable, err, "finish run %s", r.ID)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New(errors.ErrCodeNotFound, "run %s not found", r.ID)
	}
	return nil
}

// DocumentHash returns the hash last recorded for id at destination.
func (s *Store) DocumentHash(ctx context.Context, destination string, id entity.ID) (string, bool, error) {
	var hash string
	err := s.conn.QueryRowContext(ctx,
		`SELECT hash FROM documents WHERE destination = ? AND id = ?`,
		destination, string(id)).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(errors.ErrCodeStoreUnavailable, err, "read hash of %s", id)
	}
	return hash, true, nil
}

// RecordDocument stores the hash of a document run wrote to destination.
func (s *Store) RecordDocument(ctx context.Context, run, destination string, id entity.ID, hash string) error {
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO documents (destination, id, kind, hash, run_id, written_at) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(destination, id) DO UPDATE SET kind = excluded.kind, hash = excluded.hash,
		   run_id = excluded.run_id, written_at = excluded.written_at`,
		destination, string(id), string(id.Kind()), hash, run, time.Now().UnixMilli())
	if err != nil {
		return errors.Wrap(errors.ErrCodeStoreUnavailable, err, "record %s", id)
	}
	return nil
}

// ForgetDestination drops every hash recorded for destination, typically
// after its contents were removed.
func (s *Store) ForgetDestination(ctx context.Context, destination string) (int64, error) {
	res, err := s.conn.ExecContext(ctx, `DELETE FROM documents WHERE destination = ?`, destination)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeStoreUnavailable, err, "forget %s", destination)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Runs returns the most recent runs, newest first. A limit of zero returns
// every run.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	q := `SELECT id, title, started_at, finished_at, state, error, documents, skipped, unresolved
	      FROM runs ORDER BY started_at DESC, id DESC`
	var args []any
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreUnavailable, err, "list runs")
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r        Run
			started  int64
			finished sql.NullInt64
			errText  sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Title, &started, &finished, &r.State, &errText,
			&r.Documents, &r.Skipped, &r.Unresolved); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt = time.UnixMilli(started)
		if finished.Valid {
			r.FinishedAt = time.UnixMilli(finished.Int64)
		}
		r.Error = errText.String
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
