package candidates

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/bpopineau/corpuscat/internal/catalog"
)

func openTestStore(t *testing.T) *catalog.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.db")
	s, err := catalog.Open(path, "WAL", "NORMAL")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedFile(t *testing.T, s *catalog.Store, runID int64, path string, size int64) {
	t.Helper()
	dir := filepath.Dir(path)
	name := filepath.Base(path)
	if err := s.UpsertFile(runID, path, dir, name, filepath.Ext(name), size, "2024-01-01T00:00:00Z", "2024-01-01T00:00:00Z"); err != nil {
		t.Fatalf("UpsertFile(%s): %v", path, err)
	}
}

func TestPathFilterSQLStripsTrailingSeparator(t *testing.T) {
	withSlash := PathFilter{Include: []string{"/data/"}}
	withoutSlash := PathFilter{Include: []string{"/data"}}

	sqlA, argsA := withSlash.SQL("f.path_abs")
	sqlB, argsB := withoutSlash.SQL("f.path_abs")

	if sqlA != sqlB {
		t.Fatalf("filter SQL should be identical regardless of trailing separator: %q vs %q", sqlA, sqlB)
	}
	if argsA[0] != argsB[0] {
		t.Fatalf("filter args should be identical: %v vs %v", argsA, argsB)
	}
	if argsA[0] != "/data%" {
		t.Fatalf("expected LIKE pattern /data%%, got %v", argsA[0])
	}
}

func TestBuildQuickHashCandidatesRequiresDuplicateSizeExt(t *testing.T) {
	s := openTestStore(t)

	scanID, err := s.StartScan("/data", "h", "u")
	if err != nil {
		t.Fatal(err)
	}

	seedFile(t, s, scanID, "/data/a.txt", 100)
	seedFile(t, s, scanID, "/data/b.txt", 100)
	seedFile(t, s, scanID, "/data/unique.txt", 999)

	if err := BuildQuickHashCandidates(s.DB, "qh_candidates", 0, 2, PathFilter{}); err != nil {
		t.Fatalf("BuildQuickHashCandidates: %v", err)
	}

	n, err := Count(s.DB, "qh_candidates")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("expected 2 candidates (the duplicate-size pair), got %d", n)
	}
}

func TestBuildFullHashCandidatesQuickCentricUsesQuickHashCollisions(t *testing.T) {
	s := openTestStore(t)
	scanID, _ := s.StartScan("/data", "h", "u")

	seedFile(t, s, scanID, "/data/a.txt", 100)
	seedFile(t, s, scanID, "/data/b.txt", 100)
	seedFile(t, s, scanID, "/data/unique.txt", 999)

	rowA, _ := s.RowByPath("/data/a.txt")
	rowB, _ := s.RowByPath("/data/b.txt")
	rowU, _ := s.RowByPath("/data/unique.txt")

	err := s.WithTx(func(tx *sql.Tx) error {
		return catalog.ApplyQuickHashBatch(tx, []catalog.QuickHashUpdate{
			{FileID: rowA.FileID, QuickHash: "same"},
			{FileID: rowB.FileID, QuickHash: "same"},
			{FileID: rowU.FileID, QuickHash: "different"},
		})
	})
	if err != nil {
		t.Fatalf("ApplyQuickHashBatch: %v", err)
	}

	if err := BuildFullHashCandidatesQuickCentric(s.DB, "sha_candidates", 2, true, 0, "sha256", PathFilter{}); err != nil {
		t.Fatalf("BuildFullHashCandidatesQuickCentric: %v", err)
	}

	n, err := Count(s.DB, "sha_candidates")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("expected 2 candidates from the colliding quick_hash pair, got %d", n)
	}
}

func TestBuildFullHashCandidatesQuickCentricIncludesSmallFilesWhenNotNetworkFriendly(t *testing.T) {
	s := openTestStore(t)
	scanID, _ := s.StartScan("/data", "h", "u")

	// Two small files never assigned a quick_hash (below threshold),
	// sharing size+ext.
	seedFile(t, s, scanID, "/data/small-a.bin", 10)
	seedFile(t, s, scanID, "/data/small-b.bin", 10)

	if err := BuildFullHashCandidatesQuickCentric(s.DB, "sha_candidates", 2, false, 1024, "sha256", PathFilter{}); err != nil {
		t.Fatalf("BuildFullHashCandidatesQuickCentric: %v", err)
	}

	n, err := Count(s.DB, "sha_candidates")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("expected small files admitted as full-hash candidates in non-network-friendly mode, got %d", n)
	}
}
