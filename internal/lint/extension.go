package lint

import (
	"strings"

	"github.com/jward/meadow/internal/syntax"
)

// Extension reports extension primitives whose extension is not declared and
// declarations of extensions nobody knows.
var Extension = &Validator{
	Name: "extension",
	Doc:  "checks extension declarations and extension primitive use",
	Run:  runExtension,
}

func runExtension(p *Pass) {
	missing := map[string]bool{}
	p.Tree.Root.Walk(func(n *syntax.Node) bool {
		switch n.Kind {
		case syntax.ExtensionName:
			if !p.Catalog.KnownExtension(n.Name) {
				p.ReportNode(n, SeverityWarning, MsgUnknownExtension, n.Name)
			}
		case syntax.Command, syntax.Reporter:
			ext, _, ok := strings.Cut(n.Name, ":")
			if !ok {
				return true
			}
			if _, declared := p.Lint.Extensions[ext]; !declared {
				d := p.ReportNode(n, SeverityError, MsgMissingExtension, n.Name, ext)
				if !missing[ext] {
					d.Fixes = append(d.Fixes, addExtensionFix(p, ext))
				}
				missing[ext] = true
				return true
			}
			if _, known := p.Catalog.Lookup(n.Name); !known && p.Catalog.KnownExtension(ext) {
				p.ReportNode(n, SeverityWarning, MsgUnknownExtPrim, n.Name, ext)
			}
		}
		return true
	})
}

// addExtensionFix adds ext to the document's extensions declaration, or
// writes one at the top of the document.
func addExtensionFix(p *Pass, ext string) Fix {
	label := p.Localize(MsgAddExtension, ext)
	if decl := p.Tree.Root.Child(syntax.Extensions); decl != nil {
		if cl := decl.Child(syntax.CloseBracket); cl != nil {
			// The declaration as it reads once fixed.
			fixed := p.Source[decl.From:cl.From] + ext + " " + p.Source[cl.From:cl.To]
			return Fix{
				Label: label,
				Edits: []Edit{{From: cl.From, To: cl.From, Insert: ext + " "}},
				Guard: fixed,
			}
		}
	}
	insert := "extensions [ " + ext + " ]\n"
	return Fix{
		Label: label,
		Edits: []Edit{{From: 0, To: 0, Insert: insert}},
		Guard: insert,
	}
}
