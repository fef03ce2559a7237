package dedupe

import (
	"database/sql"
	"fmt"
)

// fileRow is the shared row shape every dedupe stage pages: just
// enough of the files table, joined through whichever candidate table
// is active, to open and hash the file.
type fileRow struct {
	RowID     int64
	FileID    int64
	PathAbs   string
	SizeBytes int64
}

// pageFileRows implements stageexec.Page[fileRow] against a
// candidate table, joining back to files for the columns a hashing
// stage actually needs.
func pageFileRows(db *sql.DB, table string, afterRowID int64, limit int) ([]fileRow, int64, error) {
	query := fmt.Sprintf(`
		SELECT c.rowid, f.file_id, f.path_abs, f.size_bytes
		FROM %s c
		JOIN files f ON f.file_id = c.file_id
		WHERE c.rowid > ?
		ORDER BY c.rowid
		LIMIT ?
	`, table)

	rows, err := db.Query(query, afterRowID, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []fileRow
	var maxRowID int64
	for rows.Next() {
		var r fileRow
		if err := rows.Scan(&r.RowID, &r.FileID, &r.PathAbs, &r.SizeBytes); err != nil {
			return nil, 0, err
		}
		out = append(out, r)
		if r.RowID > maxRowID {
			maxRowID = r.RowID
		}
	}
	return out, maxRowID, rows.Err()
}
