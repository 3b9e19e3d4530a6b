package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jward/meadow"
	"github.com/jward/meadow/internal/lint"
)

// sourceExts are the extensions check looks for when given a directory.
var sourceExts = map[string]bool{".nls": true, ".nlogo": true}

type checkFlags struct {
	db       string
	noDB     bool
	parallel int
}

func (a *app) checkCmd() *cobra.Command {
	var f checkFlags
	cmd := &cobra.Command{
		Use:   "check [path...]",
		Short: "Check files and directories",
		Long: "Validates every file given, and every .nls and .nlogo file under the directories given. " +
			"Results are stored in a SQLite database so unchanged files are not checked again.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCheck(cmd, args, f)
		},
	}
	cmd.Flags().StringVar(&f.db, "db", "", "database path (default: .meadow/check.db relative to repo root)")
	cmd.Flags().BoolVar(&f.noDB, "no-db", false, "check everything without storing results")
	cmd.Flags().IntVar(&f.parallel, "parallel", 0, "files checked at once (default: one per CPU)")
	return cmd
}

func (a *app) runCheck(cmd *cobra.Command, args []string, f checkFlags) error {
	start := time.Now()
	paths, err := collectFiles(args)
	if err != nil {
		return a.outputError("check", err)
	}

	var dbPath string
	if !f.noDB {
		wd, err := os.Getwd()
		if err != nil {
			return a.outputError("check", err)
		}
		dbPath = resolveDBPath(f.db, findRepoRoot(wd))
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return a.outputError("check", fmt.Errorf("creating %s: %w", filepath.Dir(dbPath), err))
		}
	}

	rules, err := a.loadRules()
	if err != nil {
		return a.outputError("check", err)
	}
	checker, err := meadow.NewChecker(dbPath,
		meadow.WithSessionOptions(a.sessionOptions()...),
		meadow.WithRules(rules),
		meadow.WithLink(a.link),
		meadow.WithParallel(f.parallel),
		meadow.WithCheckerLogger(a.logger),
		meadow.WithCacheKey(a.cfg.CacheKey()),
	)
	if err != nil {
		return a.outputError("check", err)
	}
	defer checker.Close()

	results, err := checker.CheckFiles(cmd.Context(), paths)
	if err != nil {
		return a.outputError("check", err)
	}

	out := make([]CLIFileResult, 0, len(results))
	var errs, warnings, cached int
	for _, res := range results {
		text, err := os.ReadFile(res.Path)
		if err != nil {
			return a.outputError("check", err)
		}
		fr := CLIFileResult{File: res.Path, Cached: res.Cached, Diagnostics: []CLIDiagnostic{}}
		li := newLineIndex(string(text))
		for _, d := range res.Diagnostics {
			fr.Diagnostics = append(fr.Diagnostics, toCLIDiagnostic(res.Path, li, d))
			switch d.Severity {
			case lint.SeverityError:
				errs++
			case lint.SeverityWarning:
				warnings++
			}
		}
		if res.Cached {
			cached++
		}
		out = append(out, fr)
	}

	if err := a.outputResult(CLIResult{Command: "check", Results: out}); err != nil {
		return err
	}
	a.logger.Debug("check finished", zap.Duration("took", time.Since(start)))
	if a.format == "text" {
		fmt.Fprintf(a.stderr, "Checked %d files in %s (%d cached): %d errors, %d warnings\n",
			len(results), time.Since(start).Round(time.Millisecond), cached, errs, warnings)
	}
	if errs > 0 {
		a.errorHandled = true
		return errFindings
	}
	return nil
}

// collectFiles expands args into a sorted list of files. Directories are
// walked for source files, skipping hidden directories. No args means ".".
func collectFiles(args []string) ([]string, error) {
	if len(args) == 0 {
		args = []string{"."}
	}
	seen := make(map[string]bool)
	var files []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("path not found: %s", arg)
		}
		if !info.IsDir() {
			add(arg)
			continue
		}
		err = filepath.WalkDir(arg, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if p != arg && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if sourceExts[filepath.Ext(p)] {
				add(p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", arg, err)
		}
	}
	sort.Strings(files)
	return files, nil
}

// resolveDBPath returns the database path from the --db flag or the default.
func resolveDBPath(flag, repoRoot string) string {
	if flag != "" {
		if filepath.IsAbs(flag) {
			return flag
		}
		return filepath.Join(repoRoot, flag)
	}
	return filepath.Join(repoRoot, ".meadow", "check.db")
}
