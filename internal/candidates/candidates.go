// Package candidates builds the engine's materialized candidate sets:
// temporary tables of file_id values, gated by size/extension/hash
// collision grouping and optional path-prefix filters, that the stage
// executor then pages through by rowid.
//
// Per the design note on dynamically constructed SQL fragments: the
// path filter is not ad-hoc string concatenation at the call site, it
// is a typed builder (PathFilter) that renders to parameterized SQL
// text plus bound arguments, so placeholder binding stays explicit.
package candidates

import (
	"database/sql"
	"fmt"
	"strings"
)

// PathFilter composes optional include/exclude path-prefix filters.
// A prefix's trailing path separator is stripped before the SQL LIKE
// wildcard is appended, so filters with and without a trailing slash
// behave identically.
type PathFilter struct {
	Include []string
	Exclude []string
}

// SQL renders the filter as a boolean SQL fragment referencing
// column, e.g. "f.path_abs", returning the fragment (always starting
// with "AND" when non-empty, or the empty string when the filter has
// no prefixes) and its bound parameters in order.
func (f PathFilter) SQL(column string) (string, []any) {
	var clauses []string
	var args []any

	if len(f.Include) > 0 {
		var ors []string
		for _, p := range f.Include {
			ors = append(ors, fmt.Sprintf("%s LIKE ?", column))
			args = append(args, likePattern(p))
		}
		clauses = append(clauses, "("+strings.Join(ors, " OR ")+")")
	}

	if len(f.Exclude) > 0 {
		var ors []string
		for _, p := range f.Exclude {
			ors = append(ors, fmt.Sprintf("%s LIKE ?", column))
			args = append(args, likePattern(p))
		}
		clauses = append(clauses, "NOT ("+strings.Join(ors, " OR ")+")")
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return "AND " + strings.Join(clauses, " AND "), args
}

func likePattern(prefix string) string {
	prefix = strings.TrimRight(prefix, `/\`)
	return prefix + "%"
}

// DropTable drops a temporary candidate table if it exists, for reuse
// across stages within a single pipeline run.
func DropTable(db *sql.DB, table string) error {
	_, err := db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", table))
	return err
}

// BuildQuickHashCandidates materializes rows eligible for the
// quick-hash stage: (size_bytes, ext) groups with at least
// minDuplicateCount members, quick_hash still null, not already
// missing/errored, at or above minFileSize.
func BuildQuickHashCandidates(db *sql.DB, table string, minFileSize int64, minDuplicateCount int, filter PathFilter) error {
	return buildSizeExtCandidates(db, table, minFileSize, minDuplicateCount, "f.quick_hash IS NULL", filter)
}

// BuildProgressiveCandidates materializes rows eligible for head/tail
// sampling: the same (size_bytes, ext) grouping as quick-hash
// candidates, but gated on digestColumn (the run's actual confirmation
// column, sha256 or blake3) still being null rather than quick_hash,
// and on h1 still being null: persisted h1/h2 from a prior run are
// brought forward and those rows are not head-sampled again.
func BuildProgressiveCandidates(db *sql.DB, table string, minFileSize int64, minDuplicateCount int, digestColumn string, filter PathFilter) error {
	return buildSizeExtCandidates(db, table, minFileSize, minDuplicateCount, fmt.Sprintf("f.%s IS NULL AND f.h1 IS NULL", digestColumn), filter)
}

func buildSizeExtCandidates(db *sql.DB, table string, minFileSize int64, minDuplicateCount int, gate string, filter PathFilter) error {
	if err := DropTable(db, table); err != nil {
		return err
	}

	pathSQL, pathArgs := filter.SQL("f.path_abs")

	query := fmt.Sprintf(`
		CREATE TEMP TABLE %s AS
		WITH dup_candidates AS (
			SELECT size_bytes, ext FROM files
			WHERE size_bytes >= ?
			GROUP BY size_bytes, ext
			HAVING COUNT(*) >= ?
		)
		SELECT f.file_id FROM files f
		JOIN dup_candidates dc ON f.size_bytes = dc.size_bytes AND f.ext = dc.ext
		WHERE %s
		  AND f.state NOT IN ('error', 'missing')
		  AND f.size_bytes >= ?
		  %s
	`, table, gate, pathSQL)

	args := []any{minFileSize, minDuplicateCount, minFileSize}
	args = append(args, pathArgs...)

	_, err := db.Exec(query, args...)
	return err
}

// BuildH1Collisions materializes (size_bytes, h1) groups with more
// than one member — the set of rows for which a tail sample is worth
// computing in progressive mode.
func BuildH1Collisions(db *sql.DB, table string) error {
	if err := DropTable(db, table); err != nil {
		return err
	}
	_, err := db.Exec(fmt.Sprintf(`
		CREATE TEMP TABLE %s AS
		SELECT f.file_id FROM files f
		JOIN (
			SELECT size_bytes, h1 FROM files
			WHERE h1 IS NOT NULL
			GROUP BY size_bytes, h1
			HAVING COUNT(*) > 1
		) c ON f.size_bytes = c.size_bytes AND f.h1 = c.h1
		WHERE f.h2 IS NULL
	`, table))
	return err
}

// BuildFullHashCandidatesQuickCentric materializes rows eligible for
// the full-hash stage derived from quick_hash collisions, gated on
// digestColumn (the run's actual confirmation column, sha256 or
// blake3) still being null so a second run of the same algorithm never
// re-selects an already-confirmed row. In non-network-friendly mode it
// also admits small files below smallFileThreshold that share a
// duplicate (size, ext) but never received a quick_hash (they skip
// straight to full-hash candidacy).
func BuildFullHashCandidatesQuickCentric(db *sql.DB, table string, minDuplicateCount int, networkFriendly bool, smallFileThreshold int64, digestColumn string, filter PathFilter) error {
	if err := DropTable(db, table); err != nil {
		return err
	}

	pathSQL, pathArgs := filter.SQL("f.path_abs")

	query := fmt.Sprintf(`
		CREATE TEMP TABLE %s AS
		SELECT f.file_id FROM files f
		JOIN (
			SELECT quick_hash FROM files
			WHERE quick_hash IS NOT NULL
			GROUP BY quick_hash
			HAVING COUNT(*) > 1
		) dq ON f.quick_hash = dq.quick_hash
		WHERE f.%s IS NULL
		  %s
	`, table, digestColumn, pathSQL)

	args := append([]any{}, pathArgs...)

	if !networkFriendly {
		smallPathSQL, smallPathArgs := filter.SQL("f.path_abs")
		query += fmt.Sprintf(`
			UNION
			SELECT f.file_id FROM files f
			JOIN (
				SELECT size_bytes, ext FROM files
				WHERE size_bytes < ?
				GROUP BY size_bytes, ext
				HAVING COUNT(*) >= ?
			) dc ON f.size_bytes = dc.size_bytes AND f.ext = dc.ext
			WHERE f.quick_hash IS NULL
			  AND f.%s IS NULL
			  AND f.size_bytes < ?
			  %s
		`, digestColumn, smallPathSQL)
		args = append(args, smallFileThreshold, minDuplicateCount, smallFileThreshold)
		args = append(args, smallPathArgs...)
	}

	_, err := db.Exec(query, args...)
	return err
}

// BuildFullHashCandidatesProgressiveCentric materializes rows eligible
// for the full-hash stage derived from (size_bytes, h1, h2) collisions,
// gated on digestColumn (the run's actual confirmation column, sha256
// or blake3) still being null.
func BuildFullHashCandidatesProgressiveCentric(db *sql.DB, table string, digestColumn string, filter PathFilter) error {
	if err := DropTable(db, table); err != nil {
		return err
	}

	pathSQL, pathArgs := filter.SQL("f.path_abs")

	query := fmt.Sprintf(`
		CREATE TEMP TABLE %s AS
		SELECT f.file_id FROM files f
		JOIN (
			SELECT size_bytes, h1, h2 FROM files
			WHERE h1 IS NOT NULL AND h2 IS NOT NULL
			GROUP BY size_bytes, h1, h2
			HAVING COUNT(*) > 1
		) c ON f.size_bytes = c.size_bytes AND f.h1 = c.h1 AND f.h2 = c.h2
		WHERE f.%s IS NULL
		  %s
	`, table, digestColumn, pathSQL)

	_, err := db.Exec(query, pathArgs...)
	return err
}

// BuildHashAllCandidates materializes every row eligible for a
// standalone BLAKE3 sweep (the `hash` command, independent of
// duplicate candidacy): every non-error, non-missing row, gated on
// blake3 still being null unless force admits already-hashed rows too.
func BuildHashAllCandidates(db *sql.DB, table string, force bool, filter PathFilter) error {
	if err := DropTable(db, table); err != nil {
		return err
	}

	pathSQL, pathArgs := filter.SQL("f.path_abs")

	gate := "f.blake3 IS NULL"
	if force {
		gate = "1=1"
	}

	query := fmt.Sprintf(`
		CREATE TEMP TABLE %s AS
		SELECT f.file_id FROM files f
		WHERE %s
		  AND f.state NOT IN ('error', 'missing')
		  %s
	`, table, gate, pathSQL)

	_, err := db.Exec(query, pathArgs...)
	return err
}

// Count returns the number of rows in a materialized candidate table.
func Count(db *sql.DB, table string) (int64, error) {
	var n int64
	err := db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&n)
	return n, err
}
