package store

import "time"

// File is a checked document. Hash covers the document and whatever it was
// checked together with; RulesHash covers the validator set.
type File struct {
	ID          int64
	Path        string
	Hash        string
	RulesHash   string
	LastChecked time.Time
}

// Symbol is a declaration found in a file. Offsets are byte offsets.
type Symbol struct {
	ID            int64
	FileID        int64
	Name          string
	Kind          string
	Owner         string // owning breed or procedure, if any
	Start         int
	End           int
	SignatureHash string
}

// Diagnostic is a persisted validator finding. Severity is the textual form
// ("error", "warning", "info").
type Diagnostic struct {
	ID        int64
	FileID    int64
	Validator string
	Severity  string
	Start     int
	End       int
	Message   string
}
