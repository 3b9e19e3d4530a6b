package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jward/meadow"
)

// document is a file opened in a session, with the files of its group.
type document struct {
	path    string
	session *meadow.Session
	lines   lineIndex
	// files maps session ids to file paths and line indexes.
	files map[int]*document
}

// openDocument reads path into a session, attached to a session holding
// the --link file when there is one.
func (a *app) openDocument(path string) (*document, error) {
	text, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	opts := a.sessionOptions()
	if rules, err := a.loadRules(); err != nil {
		return nil, err
	} else if rules != nil {
		opts = append(opts, meadow.WithValidators(rules.Validators...))
	}

	doc := &document{path: path, files: make(map[int]*document)}
	doc.session = meadow.NewSession(opts...)
	doc.files[doc.session.ID()] = doc

	if a.link != "" {
		linkText, err := os.ReadFile(a.link)
		if err != nil {
			return nil, fmt.Errorf("reading link: %w", err)
		}
		root := meadow.NewSession(opts...)
		root.SetVisible(false)
		root.SetText(string(linkText))
		if err := root.Attach(doc.session); err != nil {
			return nil, err
		}
		doc.files[root.ID()] = &document{path: a.link, session: root, lines: newLineIndex(string(linkText))}
	}
	doc.session.SetText(string(text))
	doc.lines = newLineIndex(doc.session.Text())
	return doc, nil
}

// location converts a session location to a file location.
func (d *document) location(loc meadow.Location) *CLILocation {
	owner, ok := d.files[loc.SessionID]
	if !ok {
		return nil
	}
	return owner.lines.span(owner.path, loc.From, loc.To)
}

func (a *app) explainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "explain <file> <offset|line:col>",
		Short: "Describe the term at a position",
		Long:  "Classifies the term at a byte offset or a 1-based line:col and shows where it is declared.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.openDocument(args[0])
			if err != nil {
				return a.outputError("explain", err)
			}
			pos, err := doc.lines.parsePosition(args[1])
			if err != nil {
				return a.outputError("explain", err)
			}
			desc, ok := doc.session.DescribeAt(pos, pos)
			if !ok {
				return a.outputResult(CLIResult{Command: "explain"})
			}
			out := CLIDescription{
				CLILocation: *doc.lines.span(doc.path, desc.From, desc.To),
				Term:        desc.Term,
				Kind:        desc.Kind,
				Category:    desc.Category.String(),
				Detail:      desc.Detail,
				Help:        desc.Help,
				Context:     desc.Context,
			}
			if desc.Definition != nil {
				out.Definition = doc.location(*desc.Definition)
			}
			return a.outputResult(CLIResult{Command: "explain", Results: out})
		},
	}
}

func (a *app) symbolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "symbols <file>...",
		Short: "List the declarations of files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := []CLISymbol{}
			for _, path := range args {
				doc, err := a.openDocument(path)
				if err != nil {
					return a.outputError("symbols", err)
				}
				for _, sym := range doc.session.Symbols() {
					out = append(out, CLISymbol{
						CLILocation: *doc.lines.span(path, sym.From, sym.To),
						Name:        sym.Name,
						Kind:        sym.Kind,
						Owner:       sym.Owner,
						Params:      sym.Params,
					})
				}
			}
			return a.outputResult(CLIResult{Command: "symbols", Results: out})
		},
	}
}

// parsePosition accepts a byte offset or a 1-based "line:col".
func (li lineIndex) parsePosition(s string) (int, error) {
	if line, col, ok := strings.Cut(s, ":"); ok {
		l, err1 := strconv.Atoi(line)
		c, err2 := strconv.Atoi(col)
		if err1 != nil || err2 != nil {
			return 0, fmt.Errorf("invalid position %q: want offset or line:col", s)
		}
		off, ok := li.offset(l, c)
		if !ok {
			return 0, fmt.Errorf("position %s is outside the file", s)
		}
		return off, nil
	}
	off, err := strconv.Atoi(s)
	if err != nil || off < 0 || off > li.size {
		return 0, fmt.Errorf("invalid position %q: want offset or line:col", s)
	}
	return off, nil
}
