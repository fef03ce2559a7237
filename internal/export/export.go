// Package export dumps the files table to a plain tabular format.
// No columnar (Parquet) encoder appears anywhere in the retrieval
// pack this engine was grounded on, and the specification's own
// Non-goals exclude a real columnar writer, so this is the one domain
// component built on the standard library alone: encoding/csv and
// encoding/json, nothing else.
package export

import (
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

var columns = []string{
	"file_id", "scan_run_id", "path_abs", "dir", "name", "ext", "size_bytes",
	"mtime_utc", "ctime_utc", "last_seen_at", "quick_hash", "h1", "h2",
	"sha256", "blake3", "state", "error_code", "error_msg",
}

// Row is one exported files-table record, with nullable columns
// rendered as Go zero values (empty string) rather than SQL NULL so
// downstream CSV/JSON consumers never have to special-case it.
type Row struct {
	FileID     int64  `json:"file_id"`
	ScanRunID  int64  `json:"scan_run_id"`
	PathAbs    string `json:"path_abs"`
	Dir        string `json:"dir"`
	Name       string `json:"name"`
	Ext        string `json:"ext"`
	SizeBytes  int64  `json:"size_bytes"`
	MtimeUTC   string `json:"mtime_utc"`
	CtimeUTC   string `json:"ctime_utc"`
	LastSeenAt string `json:"last_seen_at"`
	QuickHash  string `json:"quick_hash,omitempty"`
	H1         string `json:"h1,omitempty"`
	H2         string `json:"h2,omitempty"`
	SHA256     string `json:"sha256,omitempty"`
	Blake3     string `json:"blake3,omitempty"`
	State      string `json:"state"`
	ErrorCode  string `json:"error_code,omitempty"`
	ErrorMsg   string `json:"error_msg,omitempty"`
}

// LoadRows reads every row of the files table.
func LoadRows(db *sql.DB) ([]Row, error) {
	rows, err := db.Query(`
		SELECT file_id, COALESCE(scan_run_id, 0), path_abs, dir, name, ext, size_bytes,
		       mtime_utc, ctime_utc, last_seen_at,
		       COALESCE(quick_hash, ''), COALESCE(h1, ''), COALESCE(h2, ''),
		       COALESCE(sha256, ''), COALESCE(blake3, ''), state,
		       COALESCE(error_code, ''), COALESCE(error_msg, '')
		FROM files ORDER BY file_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.FileID, &r.ScanRunID, &r.PathAbs, &r.Dir, &r.Name, &r.Ext, &r.SizeBytes,
			&r.MtimeUTC, &r.CtimeUTC, &r.LastSeenAt, &r.QuickHash, &r.H1, &r.H2,
			&r.SHA256, &r.Blake3, &r.State, &r.ErrorCode, &r.ErrorMsg); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// WriteCSV writes rows to w in column order, header first.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			fmt.Sprint(r.FileID), fmt.Sprint(r.ScanRunID), r.PathAbs, r.Dir, r.Name, r.Ext,
			fmt.Sprint(r.SizeBytes), r.MtimeUTC, r.CtimeUTC, r.LastSeenAt,
			r.QuickHash, r.H1, r.H2, r.SHA256, r.Blake3, r.State, r.ErrorCode, r.ErrorMsg,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON writes rows to w as a single JSON array.
func WriteJSON(w io.Writer, rows []Row) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

// Format selects the output encoding for ToDir.
type Format int

const (
	FormatCSV Format = iota
	FormatJSON
)

// ToDir exports the files table to dir/files.csv or dir/files.json.
func ToDir(db *sql.DB, dir string, format Format) (string, error) {
	rows, err := LoadRows(db)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	name := "files.csv"
	if format == FormatJSON {
		name = "files.json"
	}
	outPath := filepath.Join(dir, name)

	f, err := os.Create(outPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if format == FormatJSON {
		err = WriteJSON(f, rows)
	} else {
		err = WriteCSV(f, rows)
	}
	if err != nil {
		return "", err
	}
	return outPath, nil
}
