package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jward/meadow"
	"github.com/jward/meadow/internal/lint"
)

// maxFixRounds bounds how many fixes one run applies.
const maxFixRounds = 100

func (a *app) fixCmd() *cobra.Command {
	var write bool
	cmd := &cobra.Command{
		Use:   "fix <file>",
		Short: "Apply the suggested fixes of a file",
		Long:  "Applies quick fixes until none is left and prints the result, or writes it back with --write.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.openDocument(args[0])
			if err != nil {
				return a.outputError("fix", err)
			}
			applied := applyAllFixes(doc.session)
			a.logger.Debug("fixes applied", zap.String("path", doc.path), zap.Int("count", len(applied)))

			out := CLIFix{File: doc.path, Applied: applied}
			if write {
				if len(applied) > 0 {
					if err := os.WriteFile(doc.path, []byte(doc.session.Text()), 0o644); err != nil {
						return a.outputError("fix", fmt.Errorf("writing %s: %w", doc.path, err))
					}
				}
				out.Written = len(applied) > 0
			} else {
				out.Text = doc.session.Text()
			}
			return a.outputResult(CLIResult{Command: "fix", Results: out})
		},
	}
	cmd.Flags().BoolVar(&write, "write", false, "write the fixed text back to the file")
	return cmd
}

// applyAllFixes applies the first fix that changes the text until none
// does, and returns the labels of the fixes applied.
func applyAllFixes(s *meadow.Session) []string {
	applied := []string{}
	for i := 0; i < maxFixRounds; i++ {
		fix, ok := nextFix(s)
		if !ok {
			break
		}
		s.ApplyFix(fix)
		applied = append(applied, fix.Label)
	}
	return applied
}

func nextFix(s *meadow.Session) (lint.Fix, bool) {
	text := s.Text()
	for _, d := range s.Diagnostics() {
		for _, f := range d.Fixes {
			if f.Apply(text) != text {
				return f, true
			}
		}
	}
	return lint.Fix{}, false
}
