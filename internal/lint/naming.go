package lint

import (
	"github.com/jward/meadow/internal/syntax"
)

// Naming reports declarations reusing a name that is reserved or already
// declared.
var Naming = &Validator{
	Name: "naming",
	Doc:  "reports reserved and duplicate declarations",
	Run:  runNaming,
}

// names maps a declared name to what it was declared as.
type names map[string]string

func (n names) clone() names {
	out := make(names, len(n))
	for k, v := range n {
		out[k] = v
	}
	return out
}

type namer struct {
	p        *Pass
	derived  map[string]bool
	defined  names
	breedVar names
	// global holds every group-level name, for checking locals against
	// declarations that come later in the document.
	global names
}

func runNaming(p *Pass) {
	nm := &namer{
		p:        p,
		derived:  derivedNames(p),
		defined:  names{},
		breedVar: names{},
		global:   globalNames(p),
	}
	for name := range p.Lint.WidgetGlobals {
		nm.defined[name] = "a widget global"
	}

	perBreed := map[string]names{}
	for _, n := range p.Tree.Root.Children {
		switch n.Kind {
		case syntax.Globals:
			for _, g := range n.ChildrenOf(syntax.Identifier) {
				nm.check(g, "a global variable", nm.defined, nm.breedVar)
				nm.defined[g.Name] = "a global variable"
			}
		case syntax.BreedDecl:
			for _, k := range []syntax.Kind{syntax.BreedPlural, syntax.BreedSingular} {
				if b := n.Child(k); b != nil {
					nm.check(b, "a breed", nm.defined)
					nm.defined[b.Name] = "a breed"
				}
			}
		case syntax.BreedsOwn:
			own := n.Child(syntax.Own)
			if own == nil {
				continue
			}
			label := ownLabel(own.Breed)
			if label == "" {
				seen := perBreed[own.Breed]
				if seen == nil {
					seen = names{}
					perBreed[own.Breed] = seen
				}
				for _, v := range n.ChildrenOf(syntax.Identifier) {
					nm.check(v, "a breed variable", nm.defined, seen)
					seen[v.Name] = "a breed variable"
					nm.breedVar[v.Name] = "a breed variable"
				}
				continue
			}
			for _, v := range n.ChildrenOf(syntax.Identifier) {
				nm.check(v, label, nm.defined, nm.breedVar)
				nm.defined[v.Name] = label
			}
		case syntax.Procedure:
			nm.procedure(n)
		}
	}
	nm.conflicts()
}

func ownLabel(breed string) string {
	switch breed {
	case "turtles":
		return "a turtle variable"
	case "patches":
		return "a patch variable"
	case "links":
		return "a link variable"
	}
	return ""
}

// check reports name if it is reserved or present in any of sets.
func (nm *namer) check(n *syntax.Node, as string, sets ...names) bool {
	if nm.p.Catalog.IsReserved(n.Name) || nm.derived[n.Name] {
		nm.p.ReportNode(n, SeverityError, MsgTermReserved, n.Name, as)
		return false
	}
	for _, s := range sets {
		if prev, ok := s[n.Name]; ok {
			nm.p.ReportNode(n, SeverityError, MsgTermUsed, n.Name, prev)
			return false
		}
	}
	return true
}

func (nm *namer) procedure(n *syntax.Node) {
	name := n.Child(syntax.ProcedureName)
	if name == nil {
		return
	}
	nm.check(name, "a procedure name", nm.defined, nm.breedVar)
	nm.defined[name.Name] = "a procedure name"

	locals := names{}
	if args := n.Child(syntax.Arguments); args != nil {
		for _, a := range args.ChildrenOf(syntax.Identifier) {
			if nm.check(a, "an input", nm.global, nm.breedVar, locals) {
				locals[a.Name] = "an input"
			}
		}
	}
	for _, c := range n.Children {
		nm.body(c, locals)
	}
}

// body checks local declarations. Blocks get a copy of the scope so that
// sibling blocks may reuse a name.
func (nm *namer) body(n *syntax.Node, locals names) {
	switch n.Kind {
	case syntax.NewVariableDeclaration:
		if nm.check(n, "a local variable", nm.global, nm.breedVar, locals) {
			locals[n.Name] = "a local variable"
		}
		return
	case syntax.CommandBlock, syntax.ReporterBlock:
		inner := locals.clone()
		for _, c := range n.Children {
			nm.body(c, inner)
		}
		return
	case syntax.AnonProcedure:
		inner := locals.clone()
		if args := n.Child(syntax.AnonArguments); args != nil {
			for _, a := range args.ChildrenOf(syntax.Identifier) {
				if nm.check(a, "an input", nm.global, nm.breedVar, inner) {
					inner[a.Name] = "an input"
				}
			}
		}
		for _, c := range n.Children {
			nm.body(c, inner)
		}
		return
	}
	for _, c := range n.Children {
		nm.body(c, locals)
	}
}

// conflicts reports group-level names this session shares with another.
func (nm *namer) conflicts() {
	p := nm.p
	for _, c := range p.Lint.Conflicts {
		if c.Owner != p.SessionID && c.Other != p.SessionID {
			continue
		}
		var kind syntax.Kind
		var parent syntax.Kind
		switch c.Kind {
		case "global":
			kind, parent = syntax.Identifier, syntax.Globals
		case "breed":
			kind, parent = syntax.BreedPlural, syntax.BreedDecl
		case "procedure":
			kind, parent = syntax.ProcedureName, syntax.Procedure
		default:
			continue
		}
		for _, n := range p.Tree.Root.ChildrenOf(parent) {
			for _, leaf := range n.ChildrenOf(kind) {
				if leaf.Name == c.Name {
					p.ReportNode(leaf, SeverityWarning, MsgAlsoDeclared, c.Kind, c.Name)
				}
			}
		}
	}
}

// derivedNames returns the primitive names the group's breeds generate,
// such as "create-wolves" or "wolf-here".
func derivedNames(p *Pass) map[string]bool {
	out := make(map[string]bool)
	for _, b := range p.Lint.SortedBreeds() {
		if !b.Declared {
			continue
		}
		for _, t := range p.Catalog.Templates() {
			switch slotFor(t.Shape) {
			case slotTurtlePlural:
				if b.BreedType.IsLink() {
					continue
				}
				out[t.Expand(b.Plural)] = true
			case slotLinkAny:
				if b.BreedType.IsLink() {
					out[t.Expand(b.Plural)] = true
					out[t.Expand(b.Singular)] = true
				}
			case slotLinkSingular:
				if b.BreedType.IsLink() {
					out[t.Expand(b.Singular)] = true
				}
			case slotLinkPlural:
				if b.BreedType.IsLink() {
					out[t.Expand(b.Plural)] = true
				}
			case slotSingular:
				out[t.Expand(b.Singular)] = true
			}
		}
	}
	return out
}

func globalNames(p *Pass) names {
	out := names{}
	for name := range p.Lint.Globals {
		out[name] = "a global variable"
	}
	for name := range p.Lint.WidgetGlobals {
		out[name] = "a widget global"
	}
	for _, b := range p.Lint.SortedBreeds() {
		if b.Declared {
			out[b.Plural] = "a breed"
			out[b.Singular] = "a breed"
		}
		for _, v := range b.Variables {
			out[v] = "a breed variable"
		}
	}
	for name := range p.Lint.Procedures {
		out[name] = "a procedure name"
	}
	return out
}
