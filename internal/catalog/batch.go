package catalog

import (
	"database/sql"
	"fmt"
)

// BatchSize is the canonical commit size for batched row updates
// (quick-hash writes, full-hash writes, prune deletes).
const BatchSize = 500

// QuickHashUpdate is one row's outcome from the quick-hash stage.
type QuickHashUpdate struct {
	FileID    int64
	QuickHash string
}

// ShaUpdate is one row's outcome from the full-hash stage. QuickHash
// and Blake3 are optional (empty means "leave column untouched") —
// the write uses COALESCE so a later stage never blanks a value an
// earlier stage already persisted.
type ShaUpdate struct {
	FileID    int64
	SHA256    string
	Blake3    string
	QuickHash string
	State     string
}

// ProgressiveUpdate persists the head/tail sample digests computed by
// progressive mode.
type ProgressiveUpdate struct {
	FileID int64
	H1     string
	H2     string
}

// ErrorUpdate marks a row missing or errored with a reason, per
// taxonomy entries 2 and 3.
type ErrorUpdate struct {
	FileID    int64
	State     string // StateMissing or StateError
	ErrorCode string
	ErrorMsg  string
}

// WithTx runs fn inside a transaction, committing on success and
// rolling back on any error including a panic recovered by the caller.
func (s *Store) WithTx(fn func(*sql.Tx) error) error {
	tx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// ApplyQuickHashBatch writes a batch of quick-hash results and
// transitions each row to quick_hashed.
func ApplyQuickHashBatch(tx *sql.Tx, updates []QuickHashUpdate) error {
	stmt, err := tx.Prepare(`UPDATE files SET quick_hash = ?, state = ? WHERE file_id = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, u := range updates {
		if _, err := stmt.Exec(u.QuickHash, StateQuickHashed, u.FileID); err != nil {
			return err
		}
	}
	return nil
}

// ApplyShaBatch writes a batch of full-hash results. sha256/blake3/
// quick_hash are coalesced against the existing column value so a
// stage that didn't recompute one of them never overwrites a value a
// previous stage already wrote, resolving the engine's coalescing-write
// open question.
func ApplyShaBatch(tx *sql.Tx, updates []ShaUpdate) error {
	stmt, err := tx.Prepare(`
		UPDATE files SET
			sha256 = COALESCE(NULLIF(?, ''), sha256),
			blake3 = COALESCE(NULLIF(?, ''), blake3),
			quick_hash = COALESCE(quick_hash, NULLIF(?, '')),
			state = ?
		WHERE file_id = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, u := range updates {
		state := u.State
		if state == "" {
			state = StateShaVerified
		}
		if _, err := stmt.Exec(u.SHA256, u.Blake3, u.QuickHash, state, u.FileID); err != nil {
			return err
		}
	}
	return nil
}

// ApplyProgressiveBatch writes head/tail sample digests, coalescing
// against any value persisted by an earlier run.
func ApplyProgressiveBatch(tx *sql.Tx, updates []ProgressiveUpdate) error {
	stmt, err := tx.Prepare(`
		UPDATE files SET
			h1 = COALESCE(h1, NULLIF(?, '')),
			h2 = COALESCE(h2, NULLIF(?, ''))
		WHERE file_id = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, u := range updates {
		if _, err := stmt.Exec(u.H1, u.H2, u.FileID); err != nil {
			return err
		}
	}
	return nil
}

// ApplyErrorBatch marks a batch of rows missing or errored.
func ApplyErrorBatch(tx *sql.Tx, updates []ErrorUpdate) error {
	stmt, err := tx.Prepare(`UPDATE files SET state = ?, error_code = ?, error_msg = ? WHERE file_id = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, u := range updates {
		if _, err := stmt.Exec(u.State, u.ErrorCode, u.ErrorMsg, u.FileID); err != nil {
			return err
		}
	}
	return nil
}

// FinalizeDone transitions every row whose hashing work is actually
// complete to the terminal done state. digestColumn is whichever
// confirmation column the run actually populated (sha256 or blake3) —
// a run confirming duplicates by BLAKE3 without mirroring never writes
// sha256, so gating on that column unconditionally would leave every
// row stuck at sha_verified forever.
func (s *Store) FinalizeDone(digestColumn string) (int64, error) {
	if digestColumn != "sha256" && digestColumn != "blake3" {
		return 0, fmt.Errorf("catalog: unknown digest column %q", digestColumn)
	}
	res, err := s.DB.Exec(fmt.Sprintf(`
		UPDATE files SET state = ?
		WHERE state IN (?, ?) AND %s IS NOT NULL`, digestColumn),
		StateDone, StateQuickHashed, StateShaVerified)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteFilesBatch removes a batch of rows by file_id, used by the
// pruner after a successful (or already-missing) unlink.
func DeleteFilesBatch(tx *sql.Tx, fileIDs []int64) error {
	stmt, err := tx.Prepare(`DELETE FROM files WHERE file_id = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, id := range fileIDs {
		if _, err := stmt.Exec(id); err != nil {
			return err
		}
	}
	return nil
}
