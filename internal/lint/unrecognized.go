package lint

import (
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/jward/meadow/internal/syntax"
)

// maxSuggestDistance bounds how far a misspelling may be from a suggestion.
const maxSuggestDistance = 2

// Unrecognized reports identifiers that resolve to nothing, statements that
// do not start with a command, and top-level code outside any procedure.
// Findings are downgraded to warnings when the document was only partly
// parsed, since the missing part may declare the names.
var Unrecognized = &Validator{
	Name: "unrecognized",
	Doc:  "reports unknown identifiers and misplaced code",
	Run:  runUnrecognized,
}

func runUnrecognized(p *Pass) {
	sev := SeverityError
	if p.Lint.Incomplete || p.Tree.Truncated {
		sev = SeverityWarning
	}
	p.Tree.Root.Walk(func(n *syntax.Node) bool {
		switch n.Kind {
		case syntax.Unparsed:
			p.ReportNode(n, SeverityInfo, MsgUnparsed)
			return false
		case syntax.Stray:
			if n.Child(syntax.Keyword) != nil {
				return false
			}
			first := firstLeaf(n)
			p.ReportNode(n, sev, MsgUnrecognizedGlobal, first.Text(p.Source))
			return false
		case syntax.ExpressionStatement:
			if inner := statementBody(n); inner != nil && !unresolvedName(p, inner) {
				p.ReportNode(inner, sev, MsgExpectedCommand, inner.Text(p.Source))
			}
		case syntax.VariableName:
			if unresolvedName(p, n) {
				reportUnrecognized(p, n, sev)
			}
		}
		return true
	})
}

func statementBody(n *syntax.Node) *syntax.Node {
	if len(n.Children) == 0 {
		return nil
	}
	return n.Children[0]
}

func firstLeaf(n *syntax.Node) *syntax.Node {
	for len(n.Children) > 0 {
		n = n.Children[0]
	}
	return n
}

// unresolvedName reports VariableName nodes that name nothing. Words that
// are primitives in the wrong position are left to the other validators.
func unresolvedName(p *Pass, n *syntax.Node) bool {
	if n.Kind != syntax.VariableName {
		return false
	}
	if _, ok := p.Catalog.Lookup(n.Name); ok {
		return false
	}
	if p.Catalog.IsKeyword(n.Name) {
		return false
	}
	if _, ok := p.Lint.Procedures[n.Name]; ok {
		return false
	}
	return !p.resolves(n.Name, n.From)
}

func reportUnrecognized(p *Pass, n *syntax.Node, sev Severity) {
	if s, ok := suggest(n.Name, p.candidates(n.From)); ok {
		p.ReportNode(n, sev, MsgDidYouMean, n.Name, s)
		return
	}
	p.ReportNode(n, sev, MsgUnrecognized, n.Name)
}

// suggest picks the closest candidate to word: a candidate containing its
// letters in order, else one within a small edit distance.
func suggest(word string, candidates []string) (string, bool) {
	if ranks := fuzzy.RankFindFold(word, candidates); len(ranks) > 0 {
		sort.Sort(ranks)
		if ranks[0].Distance <= maxSuggestDistance {
			return ranks[0].Target, true
		}
	}
	best, bestDist := "", maxSuggestDistance+1
	for _, c := range candidates {
		if d := fuzzy.LevenshteinDistance(word, c); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, best != ""
}
