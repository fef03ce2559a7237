// Package report groups catalog rows into duplicate sets: either by a
// confirmed cryptographic digest (the only grouping allowed to drive
// deletion) or, for the metadata-only mode, by (size, lowercased name,
// extension) alone. Grounded on the original catalog's
// get_duplicate_report, sorted by wasted space descending.
package report

import (
	"database/sql"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/bpopineau/corpuscat/internal/candidates"
	"github.com/bpopineau/corpuscat/internal/types"
)

// Member is one row participating in a duplicate group.
type Member struct {
	FileID   int64
	PathAbs  string
	Size     int64
	MtimeUTC string
}

// Group is a set of rows sharing a grouping key, with count > 1.
type Group struct {
	Key     string
	Members []Member
}

// Count returns the number of members in the group.
func (g Group) Count() int { return len(g.Members) }

// WastedBytes returns size * (count - 1): the space reclaimable by
// keeping exactly one member.
func (g Group) WastedBytes() int64 {
	if len(g.Members) == 0 {
		return 0
	}
	return g.Members[0].Size * int64(len(g.Members)-1)
}

// Summary renders a one-line human-readable description of the group,
// e.g. "3 copies, 195 KiB wasted: /data/a.txt".
func (g Group) Summary() string {
	if len(g.Members) == 0 {
		return "empty group"
	}
	return fmt.Sprintf("%d copies, %s wasted: %s", len(g.Members), humanize.IBytes(uint64(g.WastedBytes())), g.Members[0].PathAbs)
}

// TotalWastedBytes sums WastedBytes across every group.
func TotalWastedBytes(groups []Group) int64 {
	var total int64
	for _, g := range groups {
		total += g.WastedBytes()
	}
	return total
}

// GroupByDigest groups rows by a confirmation-hash column ("sha256" or
// "blake3"), keeping only groups with more than one member, sorted by
// wasted space descending. limit <= 0 means unlimited.
func GroupByDigest(db *sql.DB, column string, filter candidates.PathFilter, limit int) ([]Group, error) {
	if column != "sha256" && column != "blake3" {
		return nil, fmt.Errorf("report: unsupported digest column %q", column)
	}

	pathSQL, pathArgs := filter.SQL("path_abs")
	query := fmt.Sprintf(`
		SELECT %s AS digest, file_id, path_abs, size_bytes, mtime_utc
		FROM files
		WHERE %s IS NOT NULL
		  %s
		ORDER BY %s
	`, column, column, pathSQL, column)

	rows, err := db.Query(query, pathArgs...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byDigest := make(map[string][]Member)
	var order []string
	for rows.Next() {
		var digest string
		var m Member
		if err := rows.Scan(&digest, &m.FileID, &m.PathAbs, &m.Size, &m.MtimeUTC); err != nil {
			return nil, err
		}
		if _, seen := byDigest[digest]; !seen {
			order = append(order, digest)
		}
		byDigest[digest] = append(byDigest[digest], m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return finalize(order, byDigest, limit), nil
}

// GroupByMetadata groups rows by (size_bytes, lower(name), ext) without
// any hashing, for the metadata-only mode. Results must never be used
// to drive filesystem deletion.
func GroupByMetadata(db *sql.DB, filter candidates.PathFilter, limit int) ([]Group, error) {
	pathSQL, pathArgs := filter.SQL("path_abs")
	query := fmt.Sprintf(`
		SELECT size_bytes || ':' || lower(name) || ':' || ext AS key,
		       file_id, path_abs, size_bytes, mtime_utc
		FROM files
		WHERE 1=1
		  %s
		ORDER BY key
	`, pathSQL)

	rows, err := db.Query(query, pathArgs...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byKey := make(map[string][]Member)
	var order []string
	for rows.Next() {
		var key string
		var m Member
		if err := rows.Scan(&key, &m.FileID, &m.PathAbs, &m.Size, &m.MtimeUTC); err != nil {
			return nil, err
		}
		if _, seen := byKey[key]; !seen {
			order = append(order, key)
		}
		byKey[key] = append(byKey[key], m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return finalize(order, byKey, limit), nil
}

func finalize(order []string, byKey map[string][]Member, limit int) []Group {
	var groups []Group
	for _, key := range order {
		members := byKey[key]
		if len(members) < 2 {
			continue
		}
		groups = append(groups, Group{Key: key, Members: members})
	}

	// Sorted by wasted space descending; negating the key reuses the
	// shared ascending sort rather than a second bespoke comparator.
	groups = types.NewSorted(groups, func(g Group) int64 { return -g.WastedBytes() }).Items()

	if limit > 0 && len(groups) > limit {
		groups = groups[:limit]
	}
	return groups
}
