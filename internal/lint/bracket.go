package lint

import "github.com/jward/meadow/internal/syntax"

// Bracket reports brackets and parentheses without a counterpart.
var Bracket = &Validator{
	Name: "bracket",
	Doc:  "reports unmatched brackets and parentheses",
	Run:  runBracket,
}

var pairs = []struct {
	openKind, closeKind syntax.Kind
	openText, closeText string
}{
	{syntax.OpenBracket, syntax.CloseBracket, "[", "]"},
	{syntax.OpenParen, syntax.CloseParen, "(", ")"},
}

func runBracket(p *Pass) {
	p.Tree.Root.Walk(func(n *syntax.Node) bool {
		for _, pair := range pairs {
			opens := n.ChildrenOf(pair.openKind)
			closes := n.ChildrenOf(pair.closeKind)
			switch {
			case len(opens) > len(closes):
				for _, o := range opens[len(closes):] {
					p.ReportNode(o, SeverityError, MsgUnmatched, pair.openText, pair.closeText)
				}
			case len(closes) > len(opens):
				for _, c := range closes[len(opens):] {
					p.ReportNode(c, SeverityError, MsgUnmatched, pair.closeText, pair.openText)
				}
			}
		}
		return true
	})
}
