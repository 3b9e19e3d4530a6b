package meadow

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/jward/meadow/internal/store"
)

// QueryBuilder reads the results a Checker recorded. It answers questions
// about a whole project, unlike Session which only sees its own group.
type QueryBuilder struct {
	store *store.Store
}

// Query returns a QueryBuilder over the Checker's database. Its methods
// return ErrNoStore when the Checker has none.
func (c *Checker) Query() *QueryBuilder {
	return &QueryBuilder{store: c.store}
}

func (q *QueryBuilder) db() (*sql.DB, error) {
	if q.store == nil {
		return nil, ErrNoStore
	}
	return q.store.DB(), nil
}

// --- Common Types ---

// Pagination controls offset+limit paging on list/search results.
type Pagination struct {
	Offset int // skip this many results (default 0)
	Limit  int // max results to return (default 50, max 500)
}

const (
	defaultLimit = 50
	maxLimit     = 500
)

func (p Pagination) normalize() Pagination {
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	if p.Limit > maxLimit {
		p.Limit = maxLimit
	}
	return p
}

// SortField specifies how to order results.
type SortField string

const (
	SortByName         SortField = "name"
	SortByKind         SortField = "kind"
	SortByFile         SortField = "file"
	SortByDeclarations SortField = "declarations"
)

// SortOrder specifies ascending or descending.
type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

// Sort controls result ordering.
type Sort struct {
	Field SortField
	Order SortOrder
}

// SymbolResult is a recorded declaration with its file.
type SymbolResult struct {
	store.Symbol
	FilePath string
	// Declarations counts recorded symbols of the same name and kind across
	// all files, this one included. Names compare without case.
	Declarations int
}

// PagedResult wraps a page of results with total count for pagination.
type PagedResult[T any] struct {
	Items      []T
	TotalCount int // total matching results (before pagination)
}

// SymbolFilter specifies which symbols to include. Zero fields match all.
type SymbolFilter struct {
	Kinds      []string // match any of these kinds
	Owner      *string  // exact owning breed
	FileID     *int64
	PathPrefix *string // restrict to files under this directory
}

// DiagnosticFilter specifies which diagnostics to include.
type DiagnosticFilter struct {
	Severities []string
	Validators []string
	FileID     *int64
	PathPrefix *string
}

// DiagnosticResult is a recorded diagnostic with its file.
type DiagnosticResult struct {
	store.Diagnostic
	FilePath string
}

// --- Internal Helpers ---

// clauses accumulates WHERE conditions and their arguments.
type clauses struct {
	where []string
	args  []any
}

func (c *clauses) add(cond string, args ...any) {
	c.where = append(c.where, cond)
	c.args = append(c.args, args...)
}

func (c *clauses) in(column string, values []string) {
	if len(values) == 0 {
		return
	}
	placeholders := strings.Repeat("?,", len(values)-1) + "?"
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	c.add(column+" IN ("+placeholders+")", args...)
}

func (c *clauses) pathPrefix(column string, prefix *string) {
	if prefix == nil {
		return
	}
	if p := normalizePathPrefix(*prefix); p != "" {
		c.add(column+" LIKE ? ESCAPE '\\'", escapeLike(p)+"%")
	}
}

func (c *clauses) String() string {
	if len(c.where) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(c.where, " AND ")
}

func (c *clauses) symbols(filter SymbolFilter) {
	c.in("s.kind", filter.Kinds)
	if filter.Owner != nil {
		c.add("s.owner = ?", *filter.Owner)
	}
	if filter.FileID != nil {
		c.add("s.file_id = ?", *filter.FileID)
	}
	c.pathPrefix("f.path", filter.PathPrefix)
}

// normalizePathPrefix ensures a path prefix ends with "/" for correct LIKE matching.
// "models/wolf" -> "models/wolf/" to prevent matching "models/wolf_sheep/".
func normalizePathPrefix(prefix string) string {
	if prefix == "" {
		return ""
	}
	if !strings.HasSuffix(prefix, "/") {
		return prefix + "/"
	}
	return prefix
}

// escapeLike escapes the LIKE wildcards % and _ (and the escape itself).
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

// symbolSortColumn returns the ORDER BY expression for symbol queries.
// Ties are broken by path and offset so pages are stable.
func symbolSortColumn(field SortField, dir string) string {
	col := "s.name"
	switch field {
	case SortByKind:
		col = "s.kind"
	case SortByFile:
		col = "f.path"
	case SortByDeclarations:
		col = "declarations"
	}
	return fmt.Sprintf("%s %s, f.path, s.start_offset, s.id", col, dir)
}

func sortDirection(order SortOrder) string {
	if order == Desc {
		return "DESC"
	}
	return "ASC"
}

const symbolResultCols = `s.id, s.file_id, s.name, s.kind, s.owner, s.start_offset, s.end_offset, s.signature_hash,
	f.path,
	(SELECT COUNT(*) FROM symbols d WHERE LOWER(d.name) = LOWER(s.name) AND d.kind = s.kind) AS declarations`

func scanSymbolResult(scanner interface{ Scan(...any) error }) (SymbolResult, error) {
	var sr SymbolResult
	var owner, sig sql.NullString
	err := scanner.Scan(
		&sr.ID, &sr.FileID, &sr.Name, &sr.Kind, &owner, &sr.Start, &sr.End, &sig,
		&sr.FilePath, &sr.Declarations,
	)
	sr.Owner = owner.String
	sr.SignatureHash = sig.String
	return sr, err
}

// querySymbols runs a counted, paged symbol query under c.
func (q *QueryBuilder) querySymbols(op string, c *clauses, sort Sort, page Pagination) (*PagedResult[SymbolResult], error) {
	db, err := q.db()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	page = page.normalize()

	var totalCount int
	countSQL := "SELECT COUNT(*) FROM symbols s JOIN files f ON s.file_id = f.id " + c.String()
	if err := db.QueryRow(countSQL, c.args...).Scan(&totalCount); err != nil {
		return nil, fmt.Errorf("%s: count: %w", op, err)
	}

	dataSQL := fmt.Sprintf(
		`SELECT %s
		 FROM symbols s
		 JOIN files f ON s.file_id = f.id
		 %s
		 ORDER BY %s
		 LIMIT ? OFFSET ?`,
		symbolResultCols, c.String(), symbolSortColumn(sort.Field, sortDirection(sort.Order)),
	)
	rows, err := db.Query(dataSQL, append(append([]any{}, c.args...), page.Limit, page.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("%s: query: %w", op, err)
	}
	defer rows.Close()

	items := []SymbolResult{}
	for rows.Next() {
		sr, err := scanSymbolResult(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		items = append(items, sr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", op, err)
	}
	return &PagedResult[SymbolResult]{Items: items, TotalCount: totalCount}, nil
}

// --- Enumeration Endpoints ---

// Symbols lists recorded declarations. All filter fields are optional.
func (q *QueryBuilder) Symbols(filter SymbolFilter, sort Sort, page Pagination) (*PagedResult[SymbolResult], error) {
	var c clauses
	c.symbols(filter)
	return q.querySymbols("symbols", &c, sort, page)
}

// SearchSymbols performs a glob-style search on symbol names. '*' is the
// wildcard. NetLogo names are case-insensitive and so is the match.
func (q *QueryBuilder) SearchSymbols(pattern string, filter SymbolFilter, sort Sort, page Pagination) (*PagedResult[SymbolResult], error) {
	var c clauses
	if pattern != "" && pattern != "*" {
		like := strings.ReplaceAll(escapeLike(strings.ToLower(pattern)), "*", "%")
		c.add("LOWER(s.name) LIKE ? ESCAPE '\\'", like)
	}
	c.symbols(filter)
	return q.querySymbols("search symbols", &c, sort, page)
}

// Conflicts lists symbols declared by more than one file with the same
// name and kind, ordered by name.
func (q *QueryBuilder) Conflicts(page Pagination) (*PagedResult[SymbolResult], error) {
	var c clauses
	c.add(`EXISTS (SELECT 1 FROM symbols d
		WHERE LOWER(d.name) = LOWER(s.name) AND d.kind = s.kind AND d.file_id != s.file_id)`)
	return q.querySymbols("conflicts", &c, Sort{Field: SortByName}, page)
}

// Files lists recorded files, optionally restricted to a directory.
func (q *QueryBuilder) Files(pathPrefix string, sort Sort, page Pagination) (*PagedResult[store.File], error) {
	db, err := q.db()
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	page = page.normalize()

	var c clauses
	if pathPrefix != "" {
		c.pathPrefix("path", &pathPrefix)
	}

	var totalCount int
	if err := db.QueryRow("SELECT COUNT(*) FROM files "+c.String(), c.args...).Scan(&totalCount); err != nil {
		return nil, fmt.Errorf("files: count: %w", err)
	}

	dataSQL := fmt.Sprintf(
		`SELECT id, path, hash, rules_hash, last_checked FROM files %s ORDER BY path %s LIMIT ? OFFSET ?`,
		c.String(), sortDirection(sort.Order),
	)
	rows, err := db.Query(dataSQL, append(append([]any{}, c.args...), page.Limit, page.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("files: query: %w", err)
	}
	defer rows.Close()

	items := []store.File{}
	for rows.Next() {
		var f store.File
		var hash, rules sql.NullString
		var checked sql.NullTime
		if err := rows.Scan(&f.ID, &f.Path, &hash, &rules, &checked); err != nil {
			return nil, fmt.Errorf("files: scan: %w", err)
		}
		f.Hash, f.RulesHash = hash.String, rules.String
		if checked.Valid {
			f.LastChecked = checked.Time
		}
		items = append(items, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("files: rows: %w", err)
	}
	return &PagedResult[store.File]{Items: items, TotalCount: totalCount}, nil
}

// Diagnostics lists recorded diagnostics ordered by file and position.
func (q *QueryBuilder) Diagnostics(filter DiagnosticFilter, page Pagination) (*PagedResult[DiagnosticResult], error) {
	db, err := q.db()
	if err != nil {
		return nil, fmt.Errorf("diagnostics: %w", err)
	}
	page = page.normalize()

	var c clauses
	c.in("d.severity", filter.Severities)
	c.in("d.validator", filter.Validators)
	if filter.FileID != nil {
		c.add("d.file_id = ?", *filter.FileID)
	}
	c.pathPrefix("f.path", filter.PathPrefix)

	var totalCount int
	countSQL := "SELECT COUNT(*) FROM diagnostics d JOIN files f ON d.file_id = f.id " + c.String()
	if err := db.QueryRow(countSQL, c.args...).Scan(&totalCount); err != nil {
		return nil, fmt.Errorf("diagnostics: count: %w", err)
	}

	dataSQL := `SELECT d.id, d.file_id, d.validator, d.severity, d.start_offset, d.end_offset, d.message, f.path
		 FROM diagnostics d
		 JOIN files f ON d.file_id = f.id
		 ` + c.String() + `
		 ORDER BY f.path, d.start_offset, d.id
		 LIMIT ? OFFSET ?`
	rows, err := db.Query(dataSQL, append(append([]any{}, c.args...), page.Limit, page.Offset)...)
	if err != nil {
		return nil, fmt.Errorf("diagnostics: query: %w", err)
	}
	defer rows.Close()

	items := []DiagnosticResult{}
	for rows.Next() {
		var dr DiagnosticResult
		var msg sql.NullString
		if err := rows.Scan(&dr.ID, &dr.FileID, &dr.Validator, &dr.Severity, &dr.Start, &dr.End, &msg, &dr.FilePath); err != nil {
			return nil, fmt.Errorf("diagnostics: scan: %w", err)
		}
		dr.Message = msg.String
		items = append(items, dr)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("diagnostics: rows: %w", err)
	}
	return &PagedResult[DiagnosticResult]{Items: items, TotalCount: totalCount}, nil
}

// --- Digest Endpoints ---

// ProjectSummary is a high-level overview of the checked project.
type ProjectSummary struct {
	FileCount       int
	SymbolCount     int
	KindCounts      map[string]int // symbols per kind
	SeverityCounts  map[string]int // diagnostics per severity
	ValidatorCounts map[string]int // diagnostics per validator
	ConflictCount   int            // distinct names declared by several files
}

// ProjectSummary returns an overview of everything recorded.
func (q *QueryBuilder) ProjectSummary() (*ProjectSummary, error) {
	db, err := q.db()
	if err != nil {
		return nil, fmt.Errorf("project summary: %w", err)
	}
	summary := &ProjectSummary{}

	if err := db.QueryRow("SELECT COUNT(*) FROM files").Scan(&summary.FileCount); err != nil {
		return nil, fmt.Errorf("project summary: files: %w", err)
	}

	if summary.KindCounts, err = countBy(db, "SELECT kind, COUNT(*) FROM symbols GROUP BY kind"); err != nil {
		return nil, fmt.Errorf("project summary: kinds: %w", err)
	}
	for _, n := range summary.KindCounts {
		summary.SymbolCount += n
	}
	if summary.SeverityCounts, err = countBy(db, "SELECT severity, COUNT(*) FROM diagnostics GROUP BY severity"); err != nil {
		return nil, fmt.Errorf("project summary: severities: %w", err)
	}
	if summary.ValidatorCounts, err = countBy(db, "SELECT validator, COUNT(*) FROM diagnostics GROUP BY validator"); err != nil {
		return nil, fmt.Errorf("project summary: validators: %w", err)
	}

	err = db.QueryRow(
		`SELECT COUNT(*) FROM (
			SELECT LOWER(name), kind FROM symbols
			GROUP BY LOWER(name), kind
			HAVING COUNT(DISTINCT file_id) > 1
		)`,
	).Scan(&summary.ConflictCount)
	if err != nil {
		return nil, fmt.Errorf("project summary: conflicts: %w", err)
	}
	return summary, nil
}

// countBy runs a two-column (key, count) query into a map.
func countBy(db *sql.DB, query string) (map[string]int, error) {
	rows, err := db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[string]int)
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		counts[key] = n
	}
	return counts, rows.Err()
}
