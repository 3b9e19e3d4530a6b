package lint

import (
	"sort"

	"github.com/jward/meadow/internal/model"
	"github.com/jward/meadow/internal/syntax"
)

// resolves reports whether name, read at pos, refers to anything declared in
// the group or built into the language.
func (p *Pass) resolves(name string, pos int) bool {
	l := p.Lint
	if _, ok := l.Globals[name]; ok {
		return true
	}
	if _, ok := l.WidgetGlobals[name]; ok {
		return true
	}
	if _, ok := l.BreedByName(name); ok {
		return true
	}
	if _, ok := l.BreedFromVariable(name); ok {
		return true
	}
	if _, ok := p.Pre.BreedVars[name]; ok {
		return true
	}
	if p.Pre.IsBreed(name) {
		return true
	}
	if _, ok := p.Catalog.BuiltinVariable(name); ok {
		return true
	}
	if p.Catalog.IsConstant(name) {
		return true
	}
	if _, ok := p.Own.ResolveLocal(name, pos); ok {
		return true
	}
	return false
}

// candidates returns every name a reader at pos could mean, sorted.
func (p *Pass) candidates(pos int) []string {
	set := make(map[string]bool)
	for name := range p.Lint.Globals {
		set[name] = true
	}
	for name := range p.Lint.WidgetGlobals {
		set[name] = true
	}
	for _, name := range p.Lint.BreedNames() {
		set[name] = true
	}
	for _, name := range p.Lint.BreedVariables() {
		set[name] = true
	}
	for name := range p.Lint.Procedures {
		set[name] = true
	}
	if proc := p.Own.ProcedureAt(pos); proc != nil {
		collectLocals(proc, pos, set)
	}
	for _, prim := range p.Catalog.Primitives() {
		if prim.Extension == "" {
			set[prim.Name] = true
		}
	}
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func collectLocals(proc *model.Procedure, pos int, set map[string]bool) {
	for _, a := range proc.Arguments {
		set[a] = true
	}
	for _, v := range proc.Variables {
		if v.CreationPos <= pos {
			set[v.Name] = true
		}
	}
	var blocks func([]*model.CodeBlock)
	blocks = func(bs []*model.CodeBlock) {
		for _, b := range bs {
			if !b.Contains(pos) {
				continue
			}
			for _, v := range b.Variables {
				if v.CreationPos <= pos {
					set[v.Name] = true
				}
			}
			blocks(b.CodeBlocks)
		}
	}
	blocks(proc.CodeBlocks)
	for _, anon := range proc.AnonymousProcedures {
		if anon.Contains(pos) {
			collectLocals(anon, pos, set)
		}
	}
}

// procedures returns the top-level procedure nodes that have a name.
func procedures(t *syntax.Tree) []*syntax.Node {
	var out []*syntax.Node
	for _, n := range t.Root.ChildrenOf(syntax.Procedure) {
		if n.Child(syntax.ProcedureName) != nil {
			out = append(out, n)
		}
	}
	return out
}

// calls visits every call node below n in source order.
func calls(n *syntax.Node, fn func(call, name *syntax.Node)) {
	n.Walk(func(c *syntax.Node) bool {
		if c.Kind == syntax.CommandStatement || c.Kind == syntax.ReporterCall {
			if name := c.CallName(); name != nil {
				fn(c, name)
			}
		}
		return true
	})
}
