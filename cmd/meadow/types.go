package main

import "time"

// CLIResult is the top-level JSON envelope for all commands.
type CLIResult struct {
	Command string `json:"command"`
	Results any    `json:"results"`
	Error   string `json:"error,omitempty"`
}

// CLILocation is a range in a file. Lines and columns are 1-based.
type CLILocation struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	EndLine int    `json:"end_line"`
	EndCol  int    `json:"end_col"`
}

// CLIDiagnostic is a JSON-friendly diagnostic.
type CLIDiagnostic struct {
	CLILocation
	Severity  string   `json:"severity"`
	Validator string   `json:"validator"`
	Message   string   `json:"message"`
	Fixes     []string `json:"fixes,omitempty"`
}

// CLIFileResult holds the diagnostics of one checked file.
type CLIFileResult struct {
	File        string          `json:"file"`
	Cached      bool            `json:"cached,omitempty"`
	Diagnostics []CLIDiagnostic `json:"diagnostics"`
}

// CLISymbol is a JSON-friendly declaration.
type CLISymbol struct {
	CLILocation
	Name   string   `json:"name"`
	Kind   string   `json:"kind"`
	Owner  string   `json:"owner,omitempty"`
	Params []string `json:"params,omitempty"`
	// Declarations counts files' declarations of the same name and kind.
	Declarations int `json:"declarations,omitempty"`
}

// CLIDescription is what explain found.
type CLIDescription struct {
	CLILocation
	Term       string       `json:"term"`
	Kind       string       `json:"kind"`
	Category   string       `json:"category"`
	Detail     string       `json:"detail,omitempty"`
	Help       string       `json:"help,omitempty"`
	Context    string       `json:"context,omitempty"`
	Definition *CLILocation `json:"definition,omitempty"`
}

// CLIFix reports the fixes applied to a file.
type CLIFix struct {
	File    string   `json:"file"`
	Applied []string `json:"applied"`
	Written bool     `json:"written,omitempty"`
	Text    string   `json:"text,omitempty"`
}

// CLIRule describes a validator.
type CLIRule struct {
	Name    string `json:"name"`
	Source  string `json:"source"`
	Doc     string `json:"doc,omitempty"`
	Enabled bool   `json:"enabled"`
}

// CLIPage is one page of a query result.
type CLIPage struct {
	Items      any `json:"items"`
	TotalCount int `json:"total_count"`
}

// CLIFile is a checked file.
type CLIFile struct {
	Path        string    `json:"path"`
	Hash        string    `json:"hash"`
	LastChecked time.Time `json:"last_checked"`
}

// CLISummary is an overview of the stored results.
type CLISummary struct {
	Files      int            `json:"files"`
	Symbols    int            `json:"symbols"`
	Kinds      map[string]int `json:"kinds"`
	Severities map[string]int `json:"severities"`
	Validators map[string]int `json:"validators"`
	Conflicts  int            `json:"conflicts"`
}
