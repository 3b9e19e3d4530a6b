package lint

import (
	"strings"

	"github.com/jward/meadow/internal/syntax"
)

// Unsupported returns a validator rejecting primitives the host cannot run:
// those the catalog marks and any named in extra.
func Unsupported(extra ...string) *Validator {
	deny := make(map[string]bool, len(extra))
	for _, name := range extra {
		deny[strings.ToLower(name)] = true
	}
	return &Validator{
		Name: "unsupported",
		Doc:  "reports primitives that are not available in this environment",
		Run: func(p *Pass) {
			p.Tree.Root.Walk(func(n *syntax.Node) bool {
				switch n.Kind {
				case syntax.Command, syntax.Reporter:
					if deny[n.Name] {
						p.ReportNode(n, SeverityError, MsgUnsupported, n.Name)
					} else if prim, ok := p.Catalog.Lookup(n.Name); ok && prim.Unsupported {
						p.ReportNode(n, SeverityError, MsgUnsupported, n.Name)
					}
				case syntax.Stray:
					if kw := n.Child(syntax.Keyword); kw != nil && kw.Name == "__includes" {
						p.ReportNode(kw, SeverityError, MsgUnsupported, kw.Name)
					}
				}
				return true
			})
		},
	}
}
