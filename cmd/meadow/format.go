package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/jward/meadow/internal/lint"
)

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	infoColor    = color.New(color.FgCyan)
	pathColor    = color.New(color.Bold)
	caretColor   = color.New(color.FgGreen)
)

func severityColor(sev string) *color.Color {
	switch sev {
	case "error":
		return errorColor
	case "warning":
		return warningColor
	}
	return infoColor
}

// toCLIDiagnostic converts d, locating it in the file at path.
func toCLIDiagnostic(path string, li lineIndex, d lint.Diagnostic) CLIDiagnostic {
	out := CLIDiagnostic{
		CLILocation: *li.span(path, d.From, d.To),
		Severity:    d.Severity.String(),
		Validator:   d.Validator,
		Message:     d.Message,
	}
	for _, f := range d.Fixes {
		out.Fixes = append(out.Fixes, f.Label)
	}
	return out
}

// formatFileResultsText prints one line per diagnostic:
//
//	<path>:<line>:<col>: <severity> <validator>: <message>
//
// followed by the line of source with the range underlined.
func formatFileResultsText(w io.Writer, results []CLIFileResult) {
	for _, fr := range results {
		var lines []string
		for _, d := range fr.Diagnostics {
			sev := severityColor(d.Severity)
			fmt.Fprintf(w, "%s: %s %s: %s\n",
				pathColor.Sprintf("%s:%d:%d", d.File, d.Line, d.Col),
				sev.Sprint(d.Severity), d.Validator, d.Message)

			if lines == nil {
				lines = readLines(fr.File)
			}
			if d.Line-1 < len(lines) {
				src := lines[d.Line-1]
				width := 1
				if d.EndLine == d.Line && d.EndCol > d.Col {
					width = d.EndCol - d.Col
				}
				fmt.Fprintf(w, "  %s\n  %s%s\n", src,
					strings.Repeat(" ", d.Col-1),
					caretColor.Sprint("^"+strings.Repeat("~", width-1)))
			}
			for _, fix := range d.Fixes {
				fmt.Fprintf(w, "  fix: %s\n", fix)
			}
		}
	}
}

// formatSymbolsText formats CLISymbol results as aligned columns.
func formatSymbolsText(w io.Writer, syms []CLISymbol) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tOWNER\tPARAMS\tFILE\tLINE")
	for _, s := range syms {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n",
			s.Name, s.Kind, s.Owner, strings.Join(s.Params, " "), s.File, s.Line)
	}
	tw.Flush()
}

// formatDiagnosticsText prints diagnostics one per line, without source.
func formatDiagnosticsText(w io.Writer, diags []CLIDiagnostic) {
	for _, d := range diags {
		fmt.Fprintf(w, "%s: %s %s: %s\n",
			pathColor.Sprintf("%s:%d:%d", d.File, d.Line, d.Col),
			severityColor(d.Severity).Sprint(d.Severity), d.Validator, d.Message)
	}
}

// formatFilesText formats CLIFile results as aligned columns.
func formatFilesText(w io.Writer, files []CLIFile) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PATH\tLAST CHECKED")
	for _, f := range files {
		fmt.Fprintf(tw, "%s\t%s\n", f.Path, f.LastChecked.Format("2006-01-02 15:04:05"))
	}
	tw.Flush()
}

// formatSummaryText formats a CLISummary as readable text.
func formatSummaryText(w io.Writer, s CLISummary) {
	fmt.Fprintf(w, "Files: %d\n", s.Files)
	fmt.Fprintf(w, "Symbols: %d\n", s.Symbols)
	writeCounts(w, s.Kinds)
	fmt.Fprintln(w, "Diagnostics:")
	writeCounts(w, s.Severities)
	fmt.Fprintln(w, "By validator:")
	writeCounts(w, s.Validators)
	fmt.Fprintf(w, "Conflicting names: %d\n", s.Conflicts)
}

func writeCounts(w io.Writer, counts map[string]int) {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %-16s %d\n", k, counts[k])
	}
}

// formatDescriptionText formats a CLIDescription as readable text.
func formatDescriptionText(w io.Writer, d CLIDescription) {
	fmt.Fprintf(w, "%s: %s\n", pathColor.Sprint(d.Term), d.Category)
	fmt.Fprintf(w, "At: %s:%d:%d\n", d.File, d.Line, d.Col)
	if d.Detail != "" {
		fmt.Fprintf(w, "Detail: %s\n", d.Detail)
	}
	if d.Context != "" {
		fmt.Fprintf(w, "Context: %s\n", d.Context)
	}
	if d.Help != "" {
		fmt.Fprintf(w, "Help: %s\n", d.Help)
	}
	if d.Definition != nil {
		fmt.Fprintf(w, "Defined at: %s:%d:%d\n", d.Definition.File, d.Definition.Line, d.Definition.Col)
	}
}

// formatFixText prints the fixed text, or a summary when it was written.
func formatFixText(w io.Writer, f CLIFix) {
	if f.Text != "" {
		fmt.Fprint(w, f.Text)
		if !strings.HasSuffix(f.Text, "\n") {
			fmt.Fprintln(w)
		}
		return
	}
	fmt.Fprintf(w, "Applied %d fixes to %s\n", len(f.Applied), f.File)
	for _, label := range f.Applied {
		fmt.Fprintf(w, "  %s\n", label)
	}
}

// formatRulesText formats CLIRule results as aligned columns.
func formatRulesText(w io.Writer, rules []CLIRule) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSOURCE\tENABLED\tDOC")
	for _, r := range rules {
		fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", r.Name, r.Source, r.Enabled, r.Doc)
	}
	tw.Flush()
}

// outputResult writes result in the selected format.
func (a *app) outputResult(result CLIResult) error {
	if a.format == "text" {
		return a.outputResultText(result)
	}
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputResultText dispatches to the appropriate text formatter based on the
// result type.
func (a *app) outputResultText(result CLIResult) error {
	w := a.stdout

	switch v := result.Results.(type) {
	case []CLIFileResult:
		formatFileResultsText(w, v)
	case []CLISymbol:
		formatSymbolsText(w, v)
	case CLIDescription:
		formatDescriptionText(w, v)
	case CLIFix:
		formatFixText(w, v)
	case []CLIRule:
		formatRulesText(w, v)
	case []CLIDiagnostic:
		formatDiagnosticsText(w, v)
	case []CLIFile:
		formatFilesText(w, v)
	case CLISummary:
		formatSummaryText(w, v)
	case CLIPage:
		if err := a.outputResultText(CLIResult{Command: result.Command, Results: v.Items}); err != nil {
			return err
		}
		if n := pageLen(v.Items); n < v.TotalCount {
			fmt.Fprintf(w, "(%d of %d)\n", n, v.TotalCount)
		}
	case nil:
		// No output for nil results (e.g., explain with no match).
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// pageLen returns the number of items on a CLIPage.
func pageLen(items any) int {
	switch v := items.(type) {
	case []CLISymbol:
		return len(v)
	case []CLIDiagnostic:
		return len(v)
	case []CLIFile:
		return len(v)
	}
	return 0
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as a
// CLIResult envelope. In text mode it goes to stderr.
func (a *app) outputError(command string, err error) error {
	a.errorHandled = true
	if a.format == "text" {
		fmt.Fprintf(a.stderr, "Error: %s\n", err)
		return err
	}
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(CLIResult{Command: command, Error: err.Error()})
	return err
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
