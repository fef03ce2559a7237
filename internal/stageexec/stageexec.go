// Package stageexec implements the engine's generic stage executor: a
// paged, parallel worker pool that applies one per-file operation to a
// materialized candidate table, batches its three possible outcomes
// (success, missing, error) into separate write accumulators, and
// reports progress as it goes.
//
// # Design
//
// Per the engine's design note on untyped result rows, a stage's
// per-file outcome is modeled as a tagged variant (Outcome) generic
// over the digest payload type D, so the quick-hash stage (D = single
// hex string) and the full-hash stage (D = confirmation digest plus an
// optional quick hash) share
// one executor instead of each hand-rolling its own worker pool.
//
// Exactly one goroutine — Run's caller — advances the page cursor.
// Worker goroutines, bounded by a semaphore exactly like the teacher
// pattern this generalizes, process one row each and report back on a
// results channel; Run itself is the sole writer, so no lock is ever
// needed around batch accumulation.
package stageexec

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/bpopineau/corpuscat/internal/cancel"
	"github.com/bpopineau/corpuscat/internal/logging"
	"github.com/bpopineau/corpuscat/internal/progressui"
	"github.com/bpopineau/corpuscat/internal/types"
)

// OutcomeKind tags a per-file result.
type OutcomeKind int

const (
	OutcomeOK OutcomeKind = iota
	OutcomeMissing
	OutcomeError
)

// Outcome is a per-file operation's tagged result.
type Outcome[D any] struct {
	Kind   OutcomeKind
	Digest D
	Reason string
}

// OK constructs a successful outcome.
func OK[D any](digest D) Outcome[D] { return Outcome[D]{Kind: OutcomeOK, Digest: digest} }

// Missing constructs a per-file-missing outcome.
func Missing[D any](reason string) Outcome[D] { return Outcome[D]{Kind: OutcomeMissing, Reason: reason} }

// Failed constructs a per-file-error outcome.
func Failed[D any](reason string) Outcome[D] { return Outcome[D]{Kind: OutcomeError, Reason: reason} }

// Result pairs a row with the outcome of processing it.
type Result[R any, D any] struct {
	Row     R
	Outcome Outcome[D]
}

// Sink receives batches of same-kind results as they fill up to
// BatchSize, inside the executor's single writer goroutine.
type Sink[R any, D any] interface {
	FlushOK(batch []Result[R, D]) error
	FlushMissing(batch []Result[R, D]) error
	FlushError(batch []Result[R, D]) error
}

// Page loads up to limit rows from table with rowid > afterRowID,
// ordered by rowid, and returns them along with the greatest rowid
// seen (0 rows means the page cursor is exhausted).
type Page[R any] func(db *sql.DB, table string, afterRowID int64, limit int) (rows []R, maxRowID int64, err error)

// Config configures one stage run.
type Config[R any, D any] struct {
	DB        *sql.DB
	Table     string
	PageSize  int // 10000 for quick hash, 5000 for full hash, per the specification.
	Workers   int
	BatchSize int // defaults to 500 if zero.
	Cancel    *cancel.Flag
	Logger    *logging.Logger
	Progress  bool
	StageName string

	PageRows Page[R]
	Process  func(R) Outcome[D]
	Sink     Sink[R, D]
}

// Stats accumulates counters for a stage run, surfaced to the CLI and
// to the periodic log line.
type Stats struct {
	Completed int64
	OK        int64
	Missing   int64
	Errored   int64
	StartedAt time.Time
}

func (s *Stats) String() string {
	elapsed := time.Since(s.StartedAt).Truncate(time.Second)
	rate := float64(0)
	if elapsed > 0 {
		rate = float64(s.Completed) / elapsed.Seconds()
	}
	return fmt.Sprintf("%d done (%d ok, %d missing, %d errors), %.1f files/s, %v elapsed",
		s.Completed, s.OK, s.Missing, s.Errored, rate, elapsed)
}

// Run executes the stage to completion (or until cancellation),
// paging the candidate table, dispatching rows to a bounded worker
// pool, and flushing batched writes through cfg.Sink.
func Run[R any, D any](cfg Config[R, D]) (*Stats, error) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	stats := &Stats{StartedAt: time.Now()}
	bar := progressui.New(cfg.Progress, -1)
	lastLog := time.Now()

	var okBatch, missingBatch, errBatch []Result[R, D]

	flush := func() error {
		if len(okBatch) > 0 {
			if err := cfg.Sink.FlushOK(okBatch); err != nil {
				return err
			}
			okBatch = nil
		}
		if len(missingBatch) > 0 {
			if err := cfg.Sink.FlushMissing(missingBatch); err != nil {
				return err
			}
			missingBatch = nil
		}
		if len(errBatch) > 0 {
			if err := cfg.Sink.FlushError(errBatch); err != nil {
				return err
			}
			errBatch = nil
		}
		return nil
	}

	var lastRowID int64
	sem := types.NewSemaphore(cfg.Workers)

	for {
		if cfg.Cancel != nil && cfg.Cancel.IsSet() {
			break
		}

		rows, maxRowID, err := cfg.PageRows(cfg.DB, cfg.Table, lastRowID, cfg.PageSize)
		if err != nil {
			return stats, err
		}
		if len(rows) == 0 {
			break
		}
		lastRowID = maxRowID

		resultsCh := make(chan Result[R, D], len(rows))
		for _, row := range rows {
			sem.Acquire()
			go func(r R) {
				defer sem.Release()
				resultsCh <- Result[R, D]{Row: r, Outcome: cfg.Process(r)}
			}(row)
		}

		for range rows {
			res := <-resultsCh

			switch res.Outcome.Kind {
			case OutcomeOK:
				okBatch = append(okBatch, res)
				stats.OK++
			case OutcomeMissing:
				missingBatch = append(missingBatch, res)
				stats.Missing++
			case OutcomeError:
				errBatch = append(errBatch, res)
				stats.Errored++
			}
			stats.Completed++

			if len(okBatch) >= cfg.BatchSize || len(missingBatch) >= cfg.BatchSize || len(errBatch) >= cfg.BatchSize {
				if err := flush(); err != nil {
					return stats, err
				}
			}

			if stats.Completed%100 == 0 {
				bar.Describe(stats)
			}
			if cfg.Logger != nil && time.Since(lastLog) >= 30*time.Second {
				cfg.Logger.Info(cfg.StageName+" progress", logging.String("status", stats.String()))
				lastLog = time.Now()
			}
			if cfg.Cancel != nil && cfg.Cancel.IsSet() {
				break
			}
		}

		if cfg.Cancel != nil && cfg.Cancel.IsSet() {
			break
		}
	}

	if err := flush(); err != nil {
		return stats, err
	}

	bar.Finish(stats)
	return stats, nil
}
