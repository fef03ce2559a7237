package catalog

import (
	"database/sql"
	"time"
)

// FileRow mirrors one row of the files table.
type FileRow struct {
	FileID     int64
	ScanRunID  sql.NullInt64
	PathAbs    string
	Dir        string
	Name       string
	Ext        string
	SizeBytes  int64
	MtimeUTC   string
	CtimeUTC   string
	LastSeenAt string
	QuickHash  sql.NullString
	H1         sql.NullString
	H2         sql.NullString
	SHA256     sql.NullString
	Blake3     sql.NullString
	State      string
	ErrorCode  sql.NullString
	ErrorMsg   sql.NullString
}

// StartScan inserts a row into scans and returns its scan_run_id.
func (s *Store) StartScan(rootPath, host, user string) (int64, error) {
	res, err := s.DB.Exec(
		`INSERT INTO scans (started_at, root_path, host, user) VALUES (?, ?, ?, ?)`,
		time.Now().UTC().Format(time.RFC3339), rootPath, host, user,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// UpsertFile inserts a new file row or refreshes last_seen_at/size/
// mtime for an existing one, keyed by path_abs. Hash columns are left
// untouched on update so re-scanning a tree never discards prior work.
func (s *Store) UpsertFile(scanRunID int64, path, dir, name, ext string, size int64, mtime, ctime string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.DB.Exec(`
		INSERT INTO files (scan_run_id, path_abs, dir, name, ext, size_bytes, mtime_utc, ctime_utc, last_seen_at, state)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path_abs) DO UPDATE SET
			scan_run_id = excluded.scan_run_id,
			size_bytes = excluded.size_bytes,
			mtime_utc = excluded.mtime_utc,
			ctime_utc = excluded.ctime_utc,
			last_seen_at = excluded.last_seen_at
	`, scanRunID, path, dir, name, ext, size, mtime, ctime, now, StatePending)
	return err
}

// RowByID fetches a single row by its primary key.
func (s *Store) RowByID(fileID int64) (*FileRow, error) {
	row := s.DB.QueryRow(`
		SELECT file_id, scan_run_id, path_abs, dir, name, ext, size_bytes, mtime_utc, ctime_utc,
		       last_seen_at, quick_hash, h1, h2, sha256, blake3, state, error_code, error_msg
		FROM files WHERE file_id = ?`, fileID)
	return scanFileRow(row)
}

// RowByPath fetches a single row for tests and CLI lookups.
func (s *Store) RowByPath(path string) (*FileRow, error) {
	row := s.DB.QueryRow(`
		SELECT file_id, scan_run_id, path_abs, dir, name, ext, size_bytes, mtime_utc, ctime_utc,
		       last_seen_at, quick_hash, h1, h2, sha256, blake3, state, error_code, error_msg
		FROM files WHERE path_abs = ?`, path)
	return scanFileRow(row)
}

func scanFileRow(row *sql.Row) (*FileRow, error) {
	var r FileRow
	err := row.Scan(&r.FileID, &r.ScanRunID, &r.PathAbs, &r.Dir, &r.Name, &r.Ext, &r.SizeBytes,
		&r.MtimeUTC, &r.CtimeUTC, &r.LastSeenAt, &r.QuickHash, &r.H1, &r.H2, &r.SHA256, &r.Blake3,
		&r.State, &r.ErrorCode, &r.ErrorMsg)
	if err != nil {
		return nil, err
	}
	return &r, nil
}
