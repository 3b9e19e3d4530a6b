package lint

import (
	"context"

	"github.com/jward/meadow/internal/analysis"
	"github.com/jward/meadow/internal/lang"
	"github.com/jward/meadow/internal/syntax"
)

// Context reports primitives and variables used by agents that cannot use
// them, such as "fd" inside "ask patches".
var Context = &Validator{
	Name: "context",
	Doc:  "checks that code runs in an agent context its primitives accept",
	Run:  runContext,
}

type contextChecker struct {
	p        *Pass
	inferred map[string]lang.AgentContexts
	report   bool
}

func runContext(p *Pass) {
	c := newContextChecker(p)
	c.report = true
	for _, n := range procedures(p.Tree) {
		ctx := lang.AllContexts()
		c.children(n, &ctx)
	}
}

// newContextChecker infers the contexts of the tree's procedures. Narrowing
// is monotone, so the loop settles within one round per procedure.
func newContextChecker(p *Pass) *contextChecker {
	procs := procedures(p.Tree)
	c := &contextChecker{p: p, inferred: make(map[string]lang.AgentContexts, len(procs))}
	for _, n := range procs {
		c.inferred[n.Child(syntax.ProcedureName).Name] = lang.AllContexts()
	}
	for round := 0; round <= len(procs); round++ {
		changed := false
		for _, n := range procs {
			name := n.Child(syntax.ProcedureName).Name
			ctx := lang.AllContexts()
			c.children(n, &ctx)
			if ctx != c.inferred[name] && !ctx.IsEmpty() {
				c.inferred[name] = ctx
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return c
}

// InferContexts returns the agent contexts each procedure of in.Tree can run
// in, judged by the primitives and procedures it calls.
func InferContexts(in Input, cat *lang.Catalog) map[string]lang.AgentContexts {
	if in.Tree == nil || in.Tree.Root == nil {
		return map[string]lang.AgentContexts{}
	}
	if cat == nil {
		cat = lang.Default()
	}
	in = in.normalize()
	p := &Pass{
		Tree:      in.Tree,
		Source:    in.Tree.Source,
		Pre:       in.Pre,
		Lint:      in.Lint,
		Own:       in.Own,
		Catalog:   cat,
		SessionID: in.SessionID,
		ctx:       context.Background(),
		localizer: English{},
	}
	return newContextChecker(p).inferred
}

func (c *contextChecker) children(n *syntax.Node, ctx *lang.AgentContexts) {
	for _, ch := range n.Children {
		c.visit(ch, ctx)
	}
}

func (c *contextChecker) visit(n *syntax.Node, ctx *lang.AgentContexts) {
	switch n.Kind {
	case syntax.CommandStatement, syntax.ReporterCall:
		if name := n.CallName(); name != nil {
			if need, ok := c.required(name); ok {
				c.narrow(name, name.Name, need, ctx)
			}
		}
		for _, a := range n.Args() {
			switch a.Kind {
			case syntax.CommandBlock, syntax.ReporterBlock:
				blk := c.p.Own.CodeBlockAt(a.From)
				if blk == nil || blk.PositionStart != a.From || blk.InheritParentContext {
					c.children(a, ctx)
					continue
				}
				inner := blk.Context
				c.children(a, &inner)
			case syntax.AnonProcedure:
				inner := *ctx
				c.children(a, &inner)
			default:
				c.visit(a, ctx)
			}
		}
		return
	case syntax.VariableName:
		if need, ok := c.variable(n); ok {
			c.narrow(n, n.Name, need, ctx)
		}
		return
	}
	c.children(n, ctx)
}

func (c *contextChecker) narrow(at *syntax.Node, what string, need lang.AgentContexts, ctx *lang.AgentContexts) {
	next := ctx.Intersect(need)
	if next.IsEmpty() {
		if c.report {
			c.p.ReportNode(at, SeverityError, MsgContextConflict, what, need.Describe(), ctx.Describe())
		}
		return
	}
	*ctx = next
}

func (c *contextChecker) required(name *syntax.Node) (lang.AgentContexts, bool) {
	switch name.Kind {
	case syntax.CustomCommand, syntax.CustomReporter:
		ctx, ok := c.inferred[name.Name]
		return ctx, ok
	}
	prim := analysis.Primitive(c.p.Catalog, name)
	if prim == nil {
		return lang.AgentContexts{}, false
	}
	return prim.Context, true
}

// variable returns the agents that can read a variable. Locals and globals
// are readable by everyone.
func (c *contextChecker) variable(n *syntax.Node) (lang.AgentContexts, bool) {
	l := c.p.Lint
	if _, ok := c.p.Own.ResolveLocal(n.Name, n.From); ok {
		return lang.AgentContexts{}, false
	}
	if _, ok := l.Globals[n.Name]; ok {
		return lang.AgentContexts{}, false
	}
	if _, ok := l.WidgetGlobals[n.Name]; ok {
		return lang.AgentContexts{}, false
	}
	if ctx, ok := c.p.Catalog.BuiltinVariable(n.Name); ok {
		return ctx, true
	}
	var ctx lang.AgentContexts
	for _, b := range l.SortedBreeds() {
		if !b.HasVariable(n.Name) {
			continue
		}
		switch {
		case b.BreedType.IsLink():
			ctx.Link = true
		case b.Plural == "patches":
			ctx.Turtle = true
			ctx.Patch = true
		default:
			ctx.Turtle = true
		}
	}
	return ctx, !ctx.IsEmpty()
}
