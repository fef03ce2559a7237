package dedupe

import (
	"database/sql"
	"errors"
	"os"

	"github.com/bpopineau/corpuscat/internal/catalog"
	"github.com/bpopineau/corpuscat/internal/stageexec"
)

// classify turns a per-file read/stat error into the tagged outcome
// the stage executor routes: a not-exist error is "missing" (taxonomy
// entry 2), anything else is a generic per-file "error" (taxonomy
// entry 3).
func classify[D any](err error) stageexec.Outcome[D] {
	if errors.Is(err, os.ErrNotExist) {
		return stageexec.Missing[D](err.Error())
	}
	return stageexec.Failed[D](err.Error())
}

// flushErrorBatch is shared by every stage's Missing/Error sink halves
// since all dedupe stages page the same fileRow shape.
func flushErrorBatch[D any](store *catalog.Store, batch []stageexec.Result[fileRow, D], state string) error {
	updates := make([]catalog.ErrorUpdate, len(batch))
	for i, r := range batch {
		updates[i] = catalog.ErrorUpdate{FileID: r.Row.FileID, State: state, ErrorMsg: r.Outcome.Reason}
	}
	return store.WithTx(func(tx *sql.Tx) error { return catalog.ApplyErrorBatch(tx, updates) })
}

// quickHashSink routes the quick-hash stage's outcomes.
type quickHashSink struct{ store *catalog.Store }

func (s quickHashSink) FlushOK(batch []stageexec.Result[fileRow, string]) error {
	updates := make([]catalog.QuickHashUpdate, len(batch))
	for i, r := range batch {
		updates[i] = catalog.QuickHashUpdate{FileID: r.Row.FileID, QuickHash: r.Outcome.Digest}
	}
	return s.store.WithTx(func(tx *sql.Tx) error { return catalog.ApplyQuickHashBatch(tx, updates) })
}

func (s quickHashSink) FlushMissing(batch []stageexec.Result[fileRow, string]) error {
	return flushErrorBatch(s.store, batch, catalog.StateMissing)
}

func (s quickHashSink) FlushError(batch []stageexec.Result[fileRow, string]) error {
	return flushErrorBatch(s.store, batch, catalog.StateError)
}

// headSampleSink persists h1 from the progressive head-sampling stage.
type headSampleSink struct{ store *catalog.Store }

func (s headSampleSink) FlushOK(batch []stageexec.Result[fileRow, string]) error {
	updates := make([]catalog.ProgressiveUpdate, len(batch))
	for i, r := range batch {
		updates[i] = catalog.ProgressiveUpdate{FileID: r.Row.FileID, H1: r.Outcome.Digest}
	}
	return s.store.WithTx(func(tx *sql.Tx) error { return catalog.ApplyProgressiveBatch(tx, updates) })
}

func (s headSampleSink) FlushMissing(batch []stageexec.Result[fileRow, string]) error {
	return flushErrorBatch(s.store, batch, catalog.StateMissing)
}

func (s headSampleSink) FlushError(batch []stageexec.Result[fileRow, string]) error {
	return flushErrorBatch(s.store, batch, catalog.StateError)
}

// tailSampleSink persists h2 from the progressive tail-sampling stage,
// run only over rows whose h1 already collides.
type tailSampleSink struct{ store *catalog.Store }

func (s tailSampleSink) FlushOK(batch []stageexec.Result[fileRow, string]) error {
	updates := make([]catalog.ProgressiveUpdate, len(batch))
	for i, r := range batch {
		updates[i] = catalog.ProgressiveUpdate{FileID: r.Row.FileID, H2: r.Outcome.Digest}
	}
	return s.store.WithTx(func(tx *sql.Tx) error { return catalog.ApplyProgressiveBatch(tx, updates) })
}

func (s tailSampleSink) FlushMissing(batch []stageexec.Result[fileRow, string]) error {
	return flushErrorBatch(s.store, batch, catalog.StateMissing)
}

func (s tailSampleSink) FlushError(batch []stageexec.Result[fileRow, string]) error {
	return flushErrorBatch(s.store, batch, catalog.StateError)
}

// fullDigest is the full-hash stage's digest payload: the confirmation
// digest, plus an opportunistic quick_hash for small files that skip
// straight to full-hash candidacy and compute both in one pass.
type fullDigest struct {
	Full      string
	QuickHash string
}

// fullHashSink routes the full-hash stage's outcomes, writing into
// sha256 or blake3 depending on the selected algorithm, and mirroring
// BLAKE3 into sha256 only when explicitly requested.
type fullHashSink struct {
	store  *catalog.Store
	blake3 bool
	mirror bool
}

func (s fullHashSink) FlushOK(batch []stageexec.Result[fileRow, fullDigest]) error {
	updates := make([]catalog.ShaUpdate, len(batch))
	for i, r := range batch {
		u := catalog.ShaUpdate{FileID: r.Row.FileID, QuickHash: r.Outcome.Digest.QuickHash}
		if s.blake3 {
			u.Blake3 = r.Outcome.Digest.Full
			if s.mirror {
				u.SHA256 = r.Outcome.Digest.Full
			}
		} else {
			u.SHA256 = r.Outcome.Digest.Full
		}
		updates[i] = u
	}
	return s.store.WithTx(func(tx *sql.Tx) error { return catalog.ApplyShaBatch(tx, updates) })
}

func (s fullHashSink) FlushMissing(batch []stageexec.Result[fileRow, fullDigest]) error {
	return flushErrorBatch(s.store, batch, catalog.StateMissing)
}

func (s fullHashSink) FlushError(batch []stageexec.Result[fileRow, fullDigest]) error {
	return flushErrorBatch(s.store, batch, catalog.StateError)
}
