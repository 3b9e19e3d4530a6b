package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jward/meadow"
	"github.com/jward/meadow/internal/config"
	"github.com/jward/meadow/scripts"
)

// errFindings is returned when a check found errors. The diagnostics are
// already printed.
var errFindings = errors.New("errors found")

func main() {
	a := &app{stdout: os.Stdout, stderr: os.Stderr}
	err := a.rootCmd().Execute()
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	if err != nil {
		if !a.errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

// app holds the flags and the state shared by the commands of one run.
type app struct {
	stdout io.Writer
	stderr io.Writer

	format  string
	config  string
	link    string
	noColor bool

	cfg    *config.Config
	logger *zap.Logger

	// errorHandled is set by outputError so main() doesn't double-print.
	errorHandled bool
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "meadow",
		Short:         "Live semantic analysis for NetLogo models",
		Long:          "Meadow parses NetLogo source, builds its symbol tables and reports diagnostics from built-in validators and Risor rule scripts.",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(a.format); err != nil {
				return err
			}
			if a.noColor {
				color.NoColor = true
			}
			return a.loadConfig()
		},
		// No Run; prints help by default.
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.format, "format", "text", "output format: json|text")
	pf.StringVar(&a.config, "config", "", "config file (default: "+config.FileName+" at the repository root)")
	pf.StringVar(&a.link, "link", "", "check files as children of the session holding this file")
	pf.BoolVar(&a.noColor, "no-color", false, "disable colored output")

	root.AddCommand(a.checkCmd())
	root.AddCommand(a.explainCmd())
	root.AddCommand(a.symbolsCmd())
	root.AddCommand(a.fixCmd())
	root.AddCommand(a.rulesCmd())
	root.AddCommand(a.queryCmd())
	return root
}

// loadConfig reads the config file and builds the logger.
func (a *app) loadConfig() error {
	path := a.config
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("working directory: %w", err)
		}
		path = filepath.Join(findRepoRoot(wd), config.FileName)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	a.logger.Debug("config loaded", zap.String("path", path))
	return nil
}

// sessionOptions maps the config onto session options.
func (a *app) sessionOptions() []meadow.Option {
	mode, _ := meadow.ParseMode(a.cfg.Mode)
	opts := []meadow.Option{
		meadow.WithLogger(a.logger),
		meadow.WithMode(mode),
		meadow.WithUnsupported(a.cfg.Unsupported...),
		meadow.WithDisabled(a.cfg.DisabledValidators...),
		meadow.WithWidgetGlobals(a.cfg.WidgetGlobals...),
	}
	if a.cfg.NodeBudget > 0 {
		opts = append(opts, meadow.WithNodeBudget(a.cfg.NodeBudget))
	}
	return opts
}

// loadRules loads the shipped rule scripts and those in rules_dir, as the
// config asks.
func (a *app) loadRules() (*meadow.Rules, error) {
	var shipped, local *meadow.Rules
	var err error
	if a.cfg.Rules {
		if shipped, err = meadow.LoadRules(scripts.FS, a.logger); err != nil {
			return nil, err
		}
	}
	if a.cfg.RulesDir != "" {
		if local, err = meadow.LoadRules(os.DirFS(a.cfg.RulesDir), a.logger); err != nil {
			return nil, err
		}
	}
	return meadow.CombineRules(shipped, local), nil
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root without finding .git.
			return startDir
		}
		dir = parent
	}
}
