package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// --- Files ---

func (s *Store) InsertFile(f *File) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO files (path, hash, rules_hash, last_checked) VALUES (?, ?, ?, ?)",
		f.Path, f.Hash, f.RulesHash, f.LastChecked,
	)
	if err != nil {
		return 0, fmt.Errorf("insert file: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert file: last id: %w", err)
	}
	f.ID = id
	return id, nil
}

// FileByPath returns the file recorded for path, or nil when there is none.
func (s *Store) FileByPath(path string) (*File, error) {
	f, err := scanFile(s.db.QueryRow(
		"SELECT id, path, hash, rules_hash, last_checked FROM files WHERE path = ?", path,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by path: %w", err)
	}
	return f, nil
}

// Files returns every recorded file ordered by path.
func (s *Store) Files() ([]*File, error) {
	rows, err := s.db.Query("SELECT id, path, hash, rules_hash, last_checked FROM files ORDER BY path")
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	defer rows.Close()
	var out []*File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func scanFile(scanner interface{ Scan(...any) error }) (*File, error) {
	f := &File{}
	var hash, rules sql.NullString
	var checked sql.NullTime
	if err := scanner.Scan(&f.ID, &f.Path, &hash, &rules, &checked); err != nil {
		return nil, err
	}
	f.Hash = hash.String
	f.RulesHash = rules.String
	if checked.Valid {
		f.LastChecked = checked.Time
	}
	return f, nil
}

// updateFileTx records that a file was checked with the given hashes.
func updateFileTx(tx *sql.Tx, fileID int64, hash, rulesHash string, checked time.Time) error {
	_, err := tx.Exec(
		"UPDATE files SET hash = ?, rules_hash = ?, last_checked = ? WHERE id = ?",
		hash, rulesHash, checked, fileID,
	)
	if err != nil {
		return fmt.Errorf("update file: %w", err)
	}
	return nil
}

// --- Symbols ---

const symbolCols = "id, file_id, name, kind, owner, start_offset, end_offset, signature_hash"

func (s *Store) InsertSymbol(sym *Symbol) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO symbols (file_id, name, kind, owner, start_offset, end_offset, signature_hash) VALUES (?, ?, ?, ?, ?, ?, ?)",
		sym.FileID, sym.Name, sym.Kind, sym.Owner, sym.Start, sym.End, sym.SignatureHash,
	)
	if err != nil {
		return 0, fmt.Errorf("insert symbol: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert symbol: last id: %w", err)
	}
	sym.ID = id
	return id, nil
}

func scanSymbol(scanner interface{ Scan(...any) error }) (*Symbol, error) {
	sym := &Symbol{}
	var owner, sig sql.NullString
	if err := scanner.Scan(&sym.ID, &sym.FileID, &sym.Name, &sym.Kind, &owner, &sym.Start, &sym.End, &sig); err != nil {
		return nil, err
	}
	sym.Owner = owner.String
	sym.SignatureHash = sig.String
	return sym, nil
}

func (s *Store) querySymbols(query string, args ...any) ([]*Symbol, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query symbols: %w", err)
	}
	defer rows.Close()
	var out []*Symbol
	for rows.Next() {
		sym, err := scanSymbol(rows)
		if err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		out = append(out, sym)
	}
	return out, rows.Err()
}

func (s *Store) SymbolsByFile(fileID int64) ([]*Symbol, error) {
	return s.querySymbols("SELECT "+symbolCols+" FROM symbols WHERE file_id = ? ORDER BY start_offset, id", fileID)
}

func (s *Store) SymbolsByName(name string) ([]*Symbol, error) {
	return s.querySymbols("SELECT "+symbolCols+" FROM symbols WHERE name = ? ORDER BY file_id, start_offset", name)
}

func (s *Store) SymbolsByKind(kind string) ([]*Symbol, error) {
	return s.querySymbols("SELECT "+symbolCols+" FROM symbols WHERE kind = ? ORDER BY file_id, start_offset", kind)
}

// --- Diagnostics ---

func (s *Store) InsertDiagnostic(d *Diagnostic) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO diagnostics (file_id, validator, severity, start_offset, end_offset, message) VALUES (?, ?, ?, ?, ?, ?)",
		d.FileID, d.Validator, d.Severity, d.Start, d.End, d.Message,
	)
	if err != nil {
		return 0, fmt.Errorf("insert diagnostic: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert diagnostic: last id: %w", err)
	}
	d.ID = id
	return id, nil
}

// DiagnosticsByFile returns a file's diagnostics in insertion order.
func (s *Store) DiagnosticsByFile(fileID int64) ([]*Diagnostic, error) {
	rows, err := s.db.Query(
		"SELECT id, file_id, validator, severity, start_offset, end_offset, message FROM diagnostics WHERE file_id = ? ORDER BY id",
		fileID,
	)
	if err != nil {
		return nil, fmt.Errorf("diagnostics by file: %w", err)
	}
	defer rows.Close()
	var out []*Diagnostic
	for rows.Next() {
		d := &Diagnostic{}
		var msg sql.NullString
		if err := rows.Scan(&d.ID, &d.FileID, &d.Validator, &d.Severity, &d.Start, &d.End, &msg); err != nil {
			return nil, fmt.Errorf("scan diagnostic: %w", err)
		}
		d.Message = msg.String
		out = append(out, d)
	}
	return out, rows.Err()
}
