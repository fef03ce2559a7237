// Package catalog owns the engine's single-file embedded relational
// store: the scans and files tables, schema migration, and the
// transactional batch-write helpers every stage writes hash columns
// and state transitions through.
//
// # Connection model
//
// The store is opened once per process and shared by every worker
// goroutine through database/sql's own connection pool; all writes are
// funneled through a single dispatcher goroutine per stage (see
// internal/stageexec), so in practice only one writer is ever active
// at a time and SQLite's own locking is never contended.
package catalog

import (
	"database/sql"
	"fmt"
	"net/url"

	_ "github.com/mattn/go-sqlite3"

	"github.com/bpopineau/corpuscat/internal/errs"
)

// File row states, per the catalog's lifecycle invariants.
const (
	StatePending      = "pending"
	StateQuickHashed  = "quick_hashed"
	StateShaVerified  = "sha_verified"
	StateDone         = "done"
	StateMissing      = "missing"
	StateError        = "error"
)

const schema = `
CREATE TABLE IF NOT EXISTS scans (
	scan_run_id INTEGER PRIMARY KEY AUTOINCREMENT,
	started_at  TEXT NOT NULL,
	root_path   TEXT NOT NULL,
	host        TEXT,
	user        TEXT
);

CREATE TABLE IF NOT EXISTS files (
	file_id      INTEGER PRIMARY KEY AUTOINCREMENT,
	scan_run_id  INTEGER REFERENCES scans(scan_run_id),
	path_abs     TEXT NOT NULL UNIQUE,
	dir          TEXT NOT NULL,
	name         TEXT NOT NULL,
	ext          TEXT NOT NULL DEFAULT '',
	size_bytes   INTEGER NOT NULL,
	mtime_utc    TEXT NOT NULL,
	ctime_utc    TEXT NOT NULL,
	last_seen_at TEXT NOT NULL,
	quick_hash   TEXT,
	h1           TEXT,
	h2           TEXT,
	sha256       TEXT,
	blake3       TEXT,
	state        TEXT NOT NULL DEFAULT 'pending',
	error_code   TEXT,
	error_msg    TEXT
);

CREATE INDEX IF NOT EXISTS idx_files_path ON files(path_abs);
CREATE INDEX IF NOT EXISTS idx_files_size_ext ON files(size_bytes, ext);
CREATE INDEX IF NOT EXISTS idx_files_size_quick ON files(size_bytes, quick_hash);
CREATE INDEX IF NOT EXISTS idx_files_sha256 ON files(sha256);
CREATE INDEX IF NOT EXISTS idx_files_state ON files(state);
`

// legacyColumns lists columns that may be missing from a database
// created before this engine version; migrate adds them idempotently
// so older catalogs keep working without a destructive rebuild.
var legacyColumns = []struct {
	name string
	ddl  string
}{
	{"h1", "ALTER TABLE files ADD COLUMN h1 TEXT"},
	{"h2", "ALTER TABLE files ADD COLUMN h2 TEXT"},
	{"blake3", "ALTER TABLE files ADD COLUMN blake3 TEXT"},
}

// Store owns the catalog's database handle.
type Store struct {
	DB   *sql.DB
	path string
}

// Open opens (creating if necessary) the catalog at path with the
// journal and synchronous modes requested, a non-zero busy timeout,
// and foreign keys enabled, then runs Migrate.
func Open(path, journalMode, synchronous string) (*Store, error) {
	if journalMode == "" {
		journalMode = "WAL"
	}
	if synchronous == "" {
		synchronous = "NORMAL"
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=%s&_synchronous=%s&_busy_timeout=5000&_foreign_keys=1",
		path, url.QueryEscape(journalMode), url.QueryEscape(synchronous))

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errs.CatalogIO(err)
	}
	db.SetMaxOpenConns(1) // SQLite under WAL still serializes writers; one connection avoids SQLITE_BUSY churn.

	store := &Store{DB: db, path: path}
	if err := store.Migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Migrate creates the schema if absent and adds any legacy columns an
// older catalog file may be missing. It is idempotent and safe to call
// on every open.
func (s *Store) Migrate() error {
	if _, err := s.DB.Exec(schema); err != nil {
		return errs.CatalogIO(fmt.Errorf("apply schema: %w", err))
	}

	existing, err := s.columnSet("files")
	if err != nil {
		return errs.CatalogIO(err)
	}

	for _, col := range legacyColumns {
		if existing[col.name] {
			continue
		}
		if _, err := s.DB.Exec(col.ddl); err != nil {
			return errs.CatalogIO(fmt.Errorf("add column %s: %w", col.name, err))
		}
	}
	return nil
}

func (s *Store) columnSet(table string) (map[string]bool, error) {
	rows, err := s.DB.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var cid int
		var name, colType string
		var notNull int
		var dflt sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.DB.Close()
}

// Path returns the filesystem path the store was opened with.
func (s *Store) Path() string {
	return s.path
}
