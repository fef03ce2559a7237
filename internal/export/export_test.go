package export

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
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

func TestLoadRowsRendersNullsAsEmptyStrings(t *testing.T) {
	s := openTestStore(t)
	scanID, _ := s.StartScan("/data", "h", "u")
	if err := s.UpsertFile(scanID, "/data/a.txt", "/data", "a.txt", ".txt", 10, "2024-01-01T00:00:00Z", "2024-01-01T00:00:00Z"); err != nil {
		t.Fatal(err)
	}

	rows, err := LoadRows(s.DB)
	if err != nil {
		t.Fatalf("LoadRows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].SHA256 != "" {
		t.Fatalf("expected empty string for null sha256, got %q", rows[0].SHA256)
	}
}

func TestWriteCSVIncludesHeaderAndRows(t *testing.T) {
	rows := []Row{{FileID: 1, PathAbs: "/data/a.txt", State: "done"}}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, rows); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "file_id,") {
		t.Fatalf("expected header row first, got %q", out)
	}
	if !strings.Contains(out, "/data/a.txt") {
		t.Fatalf("expected row data in output: %q", out)
	}
}

func TestWriteJSONRoundTrips(t *testing.T) {
	rows := []Row{{FileID: 1, PathAbs: "/data/a.txt", State: "done"}}
	var buf bytes.Buffer
	if err := WriteJSON(&buf, rows); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var decoded []Row
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(decoded) != 1 || decoded[0].PathAbs != "/data/a.txt" {
		t.Fatalf("round trip mismatch: %+v", decoded)
	}
}
