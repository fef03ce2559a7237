package stageexec

import (
	"database/sql"
	"fmt"
	"sync"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/bpopineau/corpuscat/internal/cancel"
)

// row is a minimal test fixture: just enough to page and process.
type row struct {
	RowID int64
	Value int
}

func pageRows(db *sql.DB, table string, afterRowID int64, limit int) ([]row, int64, error) {
	rows, err := db.Query(fmt.Sprintf("SELECT rowid, value FROM %s WHERE rowid > ? ORDER BY rowid LIMIT ?", table), afterRowID, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []row
	var maxRowID int64
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.RowID, &r.Value); err != nil {
			return nil, 0, err
		}
		out = append(out, r)
		if r.RowID > maxRowID {
			maxRowID = r.RowID
		}
	}
	return out, maxRowID, rows.Err()
}

type memSink struct {
	mu                       sync.Mutex
	okCount, missing, errors int
}

func (m *memSink) FlushOK(batch []Result[row, int]) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.okCount += len(batch)
	return nil
}
func (m *memSink) FlushMissing(batch []Result[row, int]) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.missing += len(batch)
	return nil
}
func (m *memSink) FlushError(batch []Result[row, int]) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors += len(batch)
	return nil
}

func openTestDB(t *testing.T, rows int) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if _, err := db.Exec("CREATE TABLE items (value INTEGER)"); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < rows; i++ {
		if _, err := db.Exec("INSERT INTO items (value) VALUES (?)", i); err != nil {
			t.Fatal(err)
		}
	}
	return db
}

func TestRunProcessesAllRowsAcrossPages(t *testing.T) {
	db := openTestDB(t, 25)
	sink := &memSink{}

	cfg := Config[row, int]{
		DB:        db,
		Table:     "items",
		PageSize:  7, // force multiple pages over 25 rows
		Workers:   4,
		BatchSize: 5,
		StageName: "test",
		PageRows:  pageRows,
		Process: func(r row) Outcome[int] {
			return OK(r.Value * 2)
		},
		Sink: sink,
	}

	stats, err := Run(cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Completed != 25 {
		t.Fatalf("expected 25 completions, got %d", stats.Completed)
	}
	if sink.okCount != 25 {
		t.Fatalf("expected all 25 rows flushed as ok, got %d", sink.okCount)
	}
}

func TestRunRoutesOutcomesByTag(t *testing.T) {
	db := openTestDB(t, 9)
	sink := &memSink{}

	cfg := Config[row, int]{
		DB:        db,
		Table:     "items",
		PageSize:  100,
		Workers:   2,
		BatchSize: 500,
		StageName: "test",
		PageRows:  pageRows,
		Process: func(r row) Outcome[int] {
			switch r.Value % 3 {
			case 0:
				return OK(r.Value)
			case 1:
				return Missing[int]("vanished")
			default:
				return Failed[int]("boom")
			}
		},
		Sink: sink,
	}

	stats, err := Run(cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.OK != 3 || stats.Missing != 3 || stats.Errored != 3 {
		t.Fatalf("expected a 3/3/3 split, got ok=%d missing=%d errored=%d", stats.OK, stats.Missing, stats.Errored)
	}
	if sink.okCount != 3 || sink.missing != 3 || sink.errors != 3 {
		t.Fatalf("sink did not receive the matching split: ok=%d missing=%d errored=%d", sink.okCount, sink.missing, sink.errors)
	}
}

func TestRunStopsOnCancellation(t *testing.T) {
	db := openTestDB(t, 1000)
	sink := &memSink{}
	flag := cancel.New()

	var processed int
	var mu sync.Mutex

	cfg := Config[row, int]{
		DB:        db,
		Table:     "items",
		PageSize:  50,
		Workers:   4,
		BatchSize: 10,
		StageName: "test",
		Cancel:    flag,
		PageRows:  pageRows,
		Process: func(r row) Outcome[int] {
			mu.Lock()
			processed++
			n := processed
			mu.Unlock()
			if n == 20 {
				flag.Set()
			}
			return OK(r.Value)
		},
		Sink: sink,
	}

	stats, err := Run(cfg)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Completed >= 1000 {
		t.Fatalf("expected cancellation to stop processing before all 1000 rows, got %d completions", stats.Completed)
	}
}
