package store

import (
	"database/sql"
	"fmt"
	"time"
)

// ReplaceFileResults replaces everything recorded for f with the contents of
// batch within a single transaction. f must already have a file row; its
// hashes and check time are updated with the results. Buffered rows get real
// IDs and f's file ID regardless of what they were buffered with.
func (s *Store) ReplaceFileResults(f *File, batch *BatchedStore) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("replace results: begin: %w", err)
	}
	defer tx.Rollback()

	if err := deleteFileDataTx(tx, f.ID); err != nil {
		return fmt.Errorf("replace results: %w", err)
	}

	batch.mu.Lock()
	defer batch.mu.Unlock()

	for i := range batch.Symbols {
		sym := &batch.Symbols[i]
		sym.FileID = f.ID
		id, err := insertSymbolTx(tx, sym)
		if err != nil {
			return fmt.Errorf("replace results: symbol %q: %w", sym.Name, err)
		}
		sym.ID = id
	}
	for i := range batch.Diagnostics {
		d := &batch.Diagnostics[i]
		d.FileID = f.ID
		id, err := insertDiagnosticTx(tx, d)
		if err != nil {
			return fmt.Errorf("replace results: diagnostic: %w", err)
		}
		d.ID = id
	}

	if f.LastChecked.IsZero() {
		f.LastChecked = time.Now()
	}
	if err := updateFileTx(tx, f.ID, f.Hash, f.RulesHash, f.LastChecked); err != nil {
		return fmt.Errorf("replace results: %w", err)
	}
	return tx.Commit()
}

func insertSymbolTx(tx *sql.Tx, sym *Symbol) (int64, error) {
	res, err := tx.Exec(
		"INSERT INTO symbols (file_id, name, kind, owner, start_offset, end_offset, signature_hash) VALUES (?, ?, ?, ?, ?, ?, ?)",
		sym.FileID, sym.Name, sym.Kind, sym.Owner, sym.Start, sym.End, sym.SignatureHash,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func insertDiagnosticTx(tx *sql.Tx, d *Diagnostic) (int64, error) {
	res, err := tx.Exec(
		"INSERT INTO diagnostics (file_id, validator, severity, start_offset, end_offset, message) VALUES (?, ?, ?, ?, ?, ?)",
		d.FileID, d.Validator, d.Severity, d.Start, d.End, d.Message,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
