package dedupe

import (
	"bytes"
	"os"
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

func seedFile(t *testing.T, s *catalog.Store, runID int64, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := s.UpsertFile(runID, path, dir, name, filepath.Ext(name), int64(len(content)), "2024-01-01T00:00:00Z", "2024-01-01T00:00:00Z"); err != nil {
		t.Fatal(err)
	}
	return path
}

func baseOptions() Options {
	return Options{
		SampleBytes:        16,
		MinFileSize:        0,
		MinDuplicateCount:  2,
		SmallFileThreshold: 131072,
		MaxWorkers:         2,
	}
}

// Scenario 1: exact duplicates across paths.
func TestRunExactDuplicatesAcrossPaths(t *testing.T) {
	s := openTestStore(t)
	dir := t.TempDir()
	scanID, _ := s.StartScan(dir, "h", "u")

	content := bytes.Repeat([]byte{0x41}, 100*1024)
	seedFile(t, s, scanID, dir, "x1", content)
	seedFile(t, s, scanID, dir, "x2", content)
	seedFile(t, s, scanID, dir, "x3", content)

	stats, err := Run(s, baseOptions(), Deps{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(stats.Groups) != 1 {
		t.Fatalf("expected exactly one duplicate group, got %d", len(stats.Groups))
	}
	if stats.Groups[0].Count() != 3 {
		t.Fatalf("expected group of 3, got %d", stats.Groups[0].Count())
	}
	wantWasted := int64(len(content)) * 2
	if stats.WastedBytes != wantWasted {
		t.Fatalf("expected %d wasted bytes, got %d", wantWasted, stats.WastedBytes)
	}
}

// Scenario 2: same size, last byte differs, progressive mode must
// distinguish via h2 without a full-hash candidate.
func TestRunProgressiveDistinguishesTailDivergence(t *testing.T) {
	s := openTestStore(t)
	dir := t.TempDir()
	scanID, _ := s.StartScan(dir, "h", "u")

	a := bytes.Repeat([]byte{0x00}, 1024)
	b := append(bytes.Repeat([]byte{0x00}, 1023), 0xFF)

	pathA := seedFile(t, s, scanID, dir, "a.bin", a)
	seedFile(t, s, scanID, dir, "b.bin", b)

	opts := baseOptions()
	opts.Progressive = true

	stats, err := Run(s, opts, Deps{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(stats.Groups) != 0 {
		t.Fatalf("expected zero duplicate groups for tail-divergent files, got %d", len(stats.Groups))
	}
	if stats.FullHashed != 0 {
		t.Fatalf("expected no full-hash candidates once h2 diverges, got %d", stats.FullHashed)
	}

	rowA, err := s.RowByPath(pathA)
	if err != nil {
		t.Fatal(err)
	}
	if !rowA.H1.Valid || !rowA.H2.Valid {
		t.Fatal("expected h1 and h2 to be persisted for both candidates")
	}
}

// Scenario 3: small files below the threshold are confirmed via the
// combined single-pass quick+full hash path in the full-hash stage.
func TestRunSmallFilesUseCombinedHashPath(t *testing.T) {
	s := openTestStore(t)
	dir := t.TempDir()
	scanID, _ := s.StartScan(dir, "h", "u")

	content := bytes.Repeat([]byte{0x07}, 4096)
	seedFile(t, s, scanID, dir, "small-a.bin", content)
	seedFile(t, s, scanID, dir, "small-b.bin", content)

	opts := baseOptions()
	opts.SmallFileThreshold = 131072

	stats, err := Run(s, opts, Deps{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(stats.Groups) != 1 || stats.Groups[0].Count() != 2 {
		t.Fatalf("expected one duplicate group of 2 small files, got %+v", stats.Groups)
	}
}

// Metadata-only mode must report groups without ever hashing.
func TestRunMetadataOnlyNeverHashes(t *testing.T) {
	s := openTestStore(t)
	dir := t.TempDir()
	scanID, _ := s.StartScan(dir, "h", "u")

	seedFile(t, s, scanID, dir, "report.pdf", bytes.Repeat([]byte{0x01}, 2*1024*1024))
	// Different content, same size+name+ext under a different dir.
	otherDir := filepath.Join(dir, "sub")
	if err := os.MkdirAll(otherDir, 0o755); err != nil {
		t.Fatal(err)
	}
	seedFile(t, s, scanID, otherDir, "report.pdf", bytes.Repeat([]byte{0x02}, 2*1024*1024))

	opts := baseOptions()
	opts.MetadataOnly = true

	stats, err := Run(s, opts, Deps{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(stats.Groups) != 1 {
		t.Fatalf("expected one metadata-duplicate group, got %d", len(stats.Groups))
	}

	row, err := s.RowByPath(filepath.Join(dir, "report.pdf"))
	if err != nil {
		t.Fatal(err)
	}
	if row.SHA256.Valid {
		t.Fatal("metadata-only mode must never compute a confirmation hash")
	}
}

// Scenario from spec.md section 8: a second run with --blake3 and no
// --mirror-to-sha256 must not re-select or re-hash rows it already
// confirmed, since sha256 never gets populated under that mode and the
// candidate gate must follow the digest column the run actually wrote.
func TestRunBLAKE3SecondRunRehashesNothing(t *testing.T) {
	s := openTestStore(t)
	dir := t.TempDir()
	scanID, _ := s.StartScan(dir, "h", "u")

	content := bytes.Repeat([]byte{0x41}, 100*1024)
	seedFile(t, s, scanID, dir, "x1", content)
	seedFile(t, s, scanID, dir, "x2", content)

	opts := baseOptions()
	opts.UseBLAKE3 = true

	first, err := Run(s, opts, Deps{})
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if first.FullHashed != 2 {
		t.Fatalf("expected 2 files full-hashed on first run, got %d", first.FullHashed)
	}
	if first.Finalized != 2 {
		t.Fatalf("expected 2 files finalized to done on first run, got %d", first.Finalized)
	}
	if len(first.Groups) != 1 {
		t.Fatalf("expected one duplicate group on first run, got %d", len(first.Groups))
	}

	row, err := s.RowByPath(filepath.Join(dir, "x1"))
	if err != nil {
		t.Fatal(err)
	}
	if row.State != catalog.StateDone {
		t.Fatalf("expected row finalized to done after a BLAKE3-only run, got state %q", row.State)
	}
	if row.SHA256.Valid {
		t.Fatal("a BLAKE3 run without --mirror-to-sha256 must never populate sha256")
	}

	second, err := Run(s, opts, Deps{})
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if second.FullHashed != 0 {
		t.Fatalf("expected 0 files re-hashed on second run, got %d", second.FullHashed)
	}
	if len(second.Groups) != 1 {
		t.Fatalf("expected the duplicate group to still be reported from persisted digests, got %d", len(second.Groups))
	}
}
