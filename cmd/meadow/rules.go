package main

import (
	"github.com/spf13/cobra"

	"github.com/jward/meadow/internal/lint"
)

func (a *app) rulesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the validators and rule scripts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			disabled := make(map[string]bool, len(a.cfg.DisabledValidators))
			for _, name := range a.cfg.DisabledValidators {
				disabled[name] = true
			}

			out := []CLIRule{}
			for _, v := range lint.DefaultValidators(a.cfg.Unsupported...) {
				out = append(out, CLIRule{Name: v.Name, Source: "builtin", Doc: v.Doc, Enabled: !disabled[v.Name]})
			}
			rules, err := a.loadRules()
			if err != nil {
				return a.outputError("rules", err)
			}
			if rules != nil {
				for _, v := range rules.Validators {
					out = append(out, CLIRule{Name: v.Name, Source: "script", Doc: v.Doc, Enabled: !disabled[v.Name]})
				}
			}
			return a.outputResult(CLIResult{Command: "rules", Results: out})
		},
	}
}
