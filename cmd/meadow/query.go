package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jward/meadow"
)

// queryFlags are shared by every query subcommand.
type queryFlags struct {
	db     string
	limit  int
	offset int
	sort   string
	order  string
}

func (a *app) queryCmd() *cobra.Command {
	var f queryFlags
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query stored check results",
		Long:  "Run queries against the results recorded by 'meadow check'. Lines and columns are 1-based.",
	}
	pf := cmd.PersistentFlags()
	pf.StringVar(&f.db, "db", "", "database path (default: .meadow/check.db at the repository root)")
	pf.IntVar(&f.limit, "limit", 50, "pagination limit (max 500)")
	pf.IntVar(&f.offset, "offset", 0, "pagination offset")
	pf.StringVar(&f.sort, "sort", "", "sort field: name|kind|file|declarations")
	pf.StringVar(&f.order, "order", "asc", "sort order: asc|desc")

	cmd.AddCommand(a.querySymbolsCmd(&f))
	cmd.AddCommand(a.queryConflictsCmd(&f))
	cmd.AddCommand(a.queryFilesCmd(&f))
	cmd.AddCommand(a.queryDiagnosticsCmd(&f))
	cmd.AddCommand(a.querySummaryCmd(&f))
	return cmd
}

func (f *queryFlags) page() meadow.Pagination {
	return meadow.Pagination{Offset: f.offset, Limit: f.limit}
}

func (f *queryFlags) sorting() meadow.Sort {
	return meadow.Sort{Field: meadow.SortField(f.sort), Order: meadow.SortOrder(f.order)}
}

// openQuery opens the database written by check. It fails rather than
// create an empty one.
func (a *app) openQuery(f *queryFlags) (*meadow.Checker, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting cwd: %w", err)
	}
	dbPath := resolveDBPath(f.db, findRepoRoot(wd))
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: %s (run 'meadow check' first)", dbPath)
	}
	return meadow.NewChecker(dbPath, meadow.WithCheckerLogger(a.logger))
}

// withQuery opens the database, runs fn and writes its result.
func (a *app) withQuery(name string, f *queryFlags, fn func(q *meadow.QueryBuilder, loc *locator) (any, error)) error {
	c, err := a.openQuery(f)
	if err != nil {
		return a.outputError(name, err)
	}
	defer c.Close()
	res, err := fn(c.Query(), newLocator())
	if err != nil {
		return a.outputError(name, err)
	}
	return a.outputResult(CLIResult{Command: name, Results: res})
}

// absPrefix makes a --under value comparable with stored paths.
func absPrefix(under string) (*string, error) {
	if under == "" {
		return nil, nil
	}
	abs, err := filepath.Abs(under)
	if err != nil {
		return nil, fmt.Errorf("resolving path %q: %w", under, err)
	}
	return &abs, nil
}

func (a *app) querySymbolsCmd(f *queryFlags) *cobra.Command {
	var kinds []string
	var owner, under string
	cmd := &cobra.Command{
		Use:   "symbols [pattern]",
		Short: "List recorded declarations, optionally matching a glob pattern",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withQuery("query symbols", f, func(q *meadow.QueryBuilder, loc *locator) (any, error) {
				filter := meadow.SymbolFilter{Kinds: kinds}
				if owner != "" {
					filter.Owner = &owner
				}
				prefix, err := absPrefix(under)
				if err != nil {
					return nil, err
				}
				filter.PathPrefix = prefix

				var res *meadow.PagedResult[meadow.SymbolResult]
				if len(args) == 1 {
					res, err = q.SearchSymbols(args[0], filter, f.sorting(), f.page())
				} else {
					res, err = q.Symbols(filter, f.sorting(), f.page())
				}
				if err != nil {
					return nil, err
				}
				return loc.symbolPage(res), nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&kinds, "kind", nil, "restrict to these kinds")
	cmd.Flags().StringVar(&owner, "owner", "", "restrict to variables of this breed")
	cmd.Flags().StringVar(&under, "under", "", "restrict to files under this directory")
	return cmd
}

func (a *app) queryConflictsCmd(f *queryFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "conflicts",
		Short: "List names declared by more than one file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withQuery("query conflicts", f, func(q *meadow.QueryBuilder, loc *locator) (any, error) {
				res, err := q.Conflicts(f.page())
				if err != nil {
					return nil, err
				}
				return loc.symbolPage(res), nil
			})
		},
	}
}

func (a *app) queryFilesCmd(f *queryFlags) *cobra.Command {
	var under string
	cmd := &cobra.Command{
		Use:   "files",
		Short: "List checked files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withQuery("query files", f, func(q *meadow.QueryBuilder, _ *locator) (any, error) {
				prefix, err := absPrefix(under)
				if err != nil {
					return nil, err
				}
				var p string
				if prefix != nil {
					p = *prefix
				}
				res, err := q.Files(p, f.sorting(), f.page())
				if err != nil {
					return nil, err
				}
				items := make([]CLIFile, 0, len(res.Items))
				for _, fi := range res.Items {
					items = append(items, CLIFile{Path: fi.Path, Hash: fi.Hash, LastChecked: fi.LastChecked})
				}
				return CLIPage{Items: items, TotalCount: res.TotalCount}, nil
			})
		},
	}
	cmd.Flags().StringVar(&under, "under", "", "restrict to files under this directory")
	return cmd
}

func (a *app) queryDiagnosticsCmd(f *queryFlags) *cobra.Command {
	var severities, validators []string
	var under string
	cmd := &cobra.Command{
		Use:   "diagnostics",
		Short: "List recorded diagnostics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withQuery("query diagnostics", f, func(q *meadow.QueryBuilder, loc *locator) (any, error) {
				prefix, err := absPrefix(under)
				if err != nil {
					return nil, err
				}
				res, err := q.Diagnostics(meadow.DiagnosticFilter{
					Severities: severities,
					Validators: validators,
					PathPrefix: prefix,
				}, f.page())
				if err != nil {
					return nil, err
				}
				items := make([]CLIDiagnostic, 0, len(res.Items))
				for _, d := range res.Items {
					items = append(items, CLIDiagnostic{
						CLILocation: *loc.span(d.FilePath, d.Start, d.End),
						Severity:    d.Severity,
						Validator:   d.Validator,
						Message:     d.Message,
					})
				}
				return CLIPage{Items: items, TotalCount: res.TotalCount}, nil
			})
		},
	}
	cmd.Flags().StringSliceVar(&severities, "severity", nil, "restrict to these severities")
	cmd.Flags().StringSliceVar(&validators, "validator", nil, "restrict to these validators")
	cmd.Flags().StringVar(&under, "under", "", "restrict to files under this directory")
	return cmd
}

func (a *app) querySummaryCmd(f *queryFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Summarize the recorded results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withQuery("query summary", f, func(q *meadow.QueryBuilder, _ *locator) (any, error) {
				s, err := q.ProjectSummary()
				if err != nil {
					return nil, err
				}
				return CLISummary{
					Files:      s.FileCount,
					Symbols:    s.SymbolCount,
					Kinds:      s.KindCounts,
					Severities: s.SeverityCounts,
					Validators: s.ValidatorCounts,
					Conflicts:  s.ConflictCount,
				}, nil
			})
		},
	}
}

// locator converts stored offsets to lines and columns, reading each file
// once. Files that are gone resolve to line 1.
type locator struct {
	files map[string]lineIndex
}

func newLocator() *locator {
	return &locator{files: make(map[string]lineIndex)}
}

func (l *locator) span(path string, from, to int) *CLILocation {
	li, ok := l.files[path]
	if !ok {
		b, _ := os.ReadFile(path)
		li = newLineIndex(string(b))
		l.files[path] = li
	}
	return li.span(path, from, to)
}

func (l *locator) symbolPage(res *meadow.PagedResult[meadow.SymbolResult]) CLIPage {
	items := make([]CLISymbol, 0, len(res.Items))
	for _, s := range res.Items {
		items = append(items, CLISymbol{
			CLILocation:  *l.span(s.FilePath, s.Start, s.End),
			Name:         s.Name,
			Kind:         s.Kind,
			Owner:        s.Owner,
			Declarations: s.Declarations,
		})
	}
	return CLIPage{Items: items, TotalCount: res.TotalCount}
}
