package analysis

import (
	"github.com/jward/meadow/internal/lang"
	"github.com/jward/meadow/internal/model"
	"github.com/jward/meadow/internal/syntax"
)

// Option configures Build.
type Option func(*builder)

// WithCatalog replaces the embedded primitive catalog.
func WithCatalog(c *lang.Catalog) Option {
	return func(b *builder) {
		if c != nil {
			b.cat = c
		}
	}
}

type builder struct {
	cat *lang.Catalog
	pre *model.PreprocessContext
	id  int
	ctx *model.LintContext
}

// scope is the lexical position of the walk.
type scope struct {
	proc  *model.Procedure
	block *model.CodeBlock
	ctx   lang.AgentContexts
	args  []string
}

// Build walks tree once and returns its LintContext. pre supplies breeds
// declared by other sessions of the group, so that own blocks can name them.
func Build(tree *syntax.Tree, pre *model.PreprocessContext, sessionID int, opts ...Option) *model.LintContext {
	b := &builder{
		cat: lang.Default(),
		pre: pre,
		id:  sessionID,
		ctx: model.NewLintContext(),
	}
	for _, o := range opts {
		o(b)
	}
	if b.pre == nil {
		b.pre = model.NewPreprocessContext()
	}
	if tree == nil || tree.Root == nil {
		return b.ctx
	}
	b.ctx.Incomplete = tree.Truncated

	top := tree.Root.Children
	for _, n := range top {
		if n.Kind == syntax.BreedDecl {
			b.breed(n)
		}
	}
	for _, n := range top {
		switch n.Kind {
		case syntax.Extensions:
			for _, e := range n.ChildrenOf(syntax.ExtensionName) {
				b.ctx.Extensions[e.Name] = b.id
			}
		case syntax.Globals:
			for _, g := range n.ChildrenOf(syntax.Identifier) {
				b.ctx.Globals[g.Name] = b.id
			}
		case syntax.BreedsOwn:
			b.own(n)
		case syntax.Procedure:
			b.procedure(n)
		}
	}
	return b.ctx
}

func (b *builder) breed(n *syntax.Node) {
	kw := n.Child(syntax.Keyword)
	plural := n.Child(syntax.BreedPlural)
	singular := n.Child(syntax.BreedSingular)
	if kw == nil || plural == nil || singular == nil {
		return
	}
	t := model.BreedTurtle
	switch kw.Name {
	case "directed-link-breed":
		t = model.BreedDirectedLink
	case "undirected-link-breed":
		t = model.BreedUndirectedLink
	}
	if prev, ok := b.ctx.Breeds[plural.Name]; ok && prev.Declared {
		return
	}
	b.ctx.Breeds[plural.Name] = &model.Breed{
		Plural:    plural.Name,
		Singular:  singular.Name,
		BreedType: t,
		SessionID: b.id,
		Declared:  true,
	}
}

var implicitBreeds = map[string]model.Breed{
	"turtles": {Plural: "turtles", Singular: "turtle", BreedType: model.BreedTurtle},
	"patches": {Plural: "patches", Singular: "patch", BreedType: model.BreedPatch},
	"links":   {Plural: "links", Singular: "link", BreedType: model.BreedUndirectedLink},
}

func (b *builder) own(n *syntax.Node) {
	own := n.Child(syntax.Own)
	if own == nil {
		return
	}
	br, ok := b.ctx.Breeds[own.Breed]
	if !ok {
		switch implicit, isImplicit := implicitBreeds[own.Breed]; {
		case isImplicit:
			implicit.SessionID = b.id
			br = &implicit
		case hasKey(b.pre.PluralBreeds, own.Breed):
			t := model.BreedTurtle
			if hasKey(b.pre.LinkBreeds, own.Breed) {
				t = model.BreedUndirectedLink
			}
			br = &model.Breed{Plural: own.Breed, BreedType: t, SessionID: b.id}
		default:
			return
		}
		b.ctx.Breeds[own.Breed] = br
	}
	for _, v := range n.ChildrenOf(syntax.Identifier) {
		if !br.HasVariable(v.Name) {
			br.Variables = append(br.Variables, v.Name)
		}
	}
}

func hasKey(m map[string]int, k string) bool {
	_, ok := m[k]
	return ok
}

func (b *builder) procedure(n *syntax.Node) {
	name := n.Child(syntax.ProcedureName)
	if name == nil {
		return
	}
	p := &model.Procedure{
		Name:          name.Name,
		PositionStart: n.From,
		PositionEnd:   n.To,
		IsCommand:     n.Child(syntax.To) != nil,
		Context:       lang.AllContexts(),
		SessionID:     b.id,
	}
	if args := n.Child(syntax.Arguments); args != nil {
		for _, a := range args.ChildrenOf(syntax.Identifier) {
			p.Arguments = append(p.Arguments, a.Name)
		}
	}
	if _, dup := b.ctx.Procedures[p.Name]; !dup {
		b.ctx.Procedures[p.Name] = p
	}

	sc := scope{proc: p, ctx: p.Context, args: p.Arguments}
	for _, c := range n.Children {
		switch c.Kind {
		case syntax.To, syntax.ToReport, syntax.ProcedureName, syntax.Arguments, syntax.End:
			continue
		}
		b.walk(c, sc)
	}
}

func (b *builder) walk(n *syntax.Node, sc scope) {
	switch n.Kind {
	case syntax.CommandStatement, syntax.ReporterCall:
		b.call(n, sc)
		return
	case syntax.AnonProcedure:
		b.anon(n, sc)
		return
	}
	for _, c := range n.Children {
		b.walk(c, sc)
	}
}

// Primitive returns the catalog entry a call name leaf refers to, or nil for
// user procedures and unknown names.
func Primitive(cat *lang.Catalog, name *syntax.Node) *lang.Primitive {
	if name == nil {
		return nil
	}
	switch name.Kind {
	case syntax.Command, syntax.Reporter:
		if p, ok := cat.Lookup(name.Name); ok {
			return p
		}
	case syntax.BreedCommand, syntax.BreedReporter:
		if t, _, ok := cat.MatchTemplate(name.Name); ok {
			return t.Primitive
		}
	}
	return nil
}

func (b *builder) call(n *syntax.Node, sc scope) {
	name := n.CallName()
	prim := Primitive(b.cat, name)
	args := n.Args()

	for _, a := range args {
		switch a.Kind {
		case syntax.CommandBlock, syntax.ReporterBlock:
			b.block(a, name, prim, args, sc)
		default:
			b.walk(a, sc)
		}
	}

	if name != nil && name.Name == "let" && name.Kind == syntax.Command {
		decl := n.Child(syntax.NewVariableDeclaration)
		if decl == nil {
			return
		}
		v := model.LocalVariable{Name: decl.Name, Type: lang.Wildcard, CreationPos: decl.From}
		if rest := n.RightArgs(); len(rest) > 1 {
			v.Type = b.typeOf(rest[1])
		}
		if sc.block != nil {
			sc.block.Variables = append(sc.block.Variables, v)
		} else {
			sc.proc.Variables = append(sc.proc.Variables, v)
		}
	}
}

func (b *builder) block(n, name *syntax.Node, prim *lang.Primitive, args []*syntax.Node, sc scope) {
	cb := &model.CodeBlock{
		PositionStart: n.From,
		PositionEnd:   n.To,
		Context:       sc.ctx,
		Arguments:     append([]string(nil), sc.args...),
	}
	if name != nil {
		cb.Primitive = name.Name
		cb.Breed = name.Breed
	}
	switch {
	case prim == nil:
		cb.InheritParentContext = true
	case prim.InheritParentContext:
		cb.InheritParentContext = true
	default:
		ctx := prim.BlockContext
		if prim.IntroducesContext && prim.AgentArg >= 0 && prim.AgentArg < len(args) {
			ctx = ctx.Intersect(b.agentKind(args[prim.AgentArg]))
		}
		cb.Context = ctx
	}

	if sc.block != nil {
		sc.block.CodeBlocks = append(sc.block.CodeBlocks, cb)
	} else {
		sc.proc.CodeBlocks = append(sc.proc.CodeBlocks, cb)
	}
	inner := scope{proc: sc.proc, block: cb, ctx: cb.Context, args: sc.args}
	for _, c := range n.Children {
		b.walk(c, inner)
	}
}

func (b *builder) anon(n *syntax.Node, sc scope) {
	p := &model.Procedure{
		IsAnonymous:   true,
		PositionStart: n.From,
		PositionEnd:   n.To,
		Context:       sc.ctx,
		SessionID:     b.id,
	}
	if args := n.Child(syntax.AnonArguments); args != nil {
		for _, a := range args.ChildrenOf(syntax.Identifier) {
			p.Arguments = append(p.Arguments, a.Name)
		}
	}
	for _, c := range n.Children {
		switch c.Kind {
		case syntax.OpenBracket, syntax.CloseBracket, syntax.AnonArguments, syntax.Arrow:
			continue
		}
		p.IsCommand = c.Kind == syntax.CommandStatement
		break
	}
	sc.proc.AnonymousProcedures = append(sc.proc.AnonymousProcedures, p)

	inner := scope{
		proc: p,
		ctx:  sc.ctx,
		args: append(append([]string(nil), sc.args...), p.Arguments...),
	}
	for _, c := range n.Children {
		b.walk(c, inner)
	}
}

// agentKind infers which agents an expression denotes.
func (b *builder) agentKind(n *syntax.Node) lang.AgentContexts {
	unknown := lang.ParseAgentContexts("?")
	switch n.Kind {
	case syntax.VariableName:
		if br, ok := b.ctx.Breeds[n.Name]; ok && br.Declared {
			return breedKind(br.BreedType)
		}
		if hasKey(b.pre.PluralBreeds, n.Name) {
			if hasKey(b.pre.LinkBreeds, n.Name) {
				return lang.AgentContexts{Link: true}
			}
			return lang.AgentContexts{Turtle: true}
		}
	case syntax.Parenthetical:
		for _, c := range n.Children {
			if !c.Kind.IsDelimiter() {
				return b.agentKind(c)
			}
		}
	case syntax.ReporterCall:
		prim := Primitive(b.cat, n.CallName())
		if prim == nil {
			return unknown
		}
		if k, ok := prim.Returns.AgentKind(); ok && k != unknown {
			return k
		}
		reportsBlock := prim.Left != nil && prim.Left.Accepts(lang.ReporterBlock)
		if args := n.Args(); prim.AgentArg >= 0 && prim.AgentArg < len(args) && !reportsBlock {
			return b.agentKind(args[prim.AgentArg])
		}
	}
	return unknown
}

func breedKind(t model.BreedType) lang.AgentContexts {
	switch t {
	case model.BreedPatch:
		return lang.AgentContexts{Patch: true}
	case model.BreedUndirectedLink, model.BreedDirectedLink:
		return lang.AgentContexts{Link: true}
	}
	return lang.AgentContexts{Turtle: true}
}

// typeOf infers the type of a let initializer.
func (b *builder) typeOf(n *syntax.Node) lang.Type {
	switch n.Kind {
	case syntax.Number:
		return lang.Number
	case syntax.String:
		return lang.String
	case syntax.Constant:
		switch n.Name {
		case "true", "false":
			return lang.Boolean
		case "nobody":
			return lang.Nobody
		}
		return lang.Number
	case syntax.List:
		return lang.List
	case syntax.ReporterBlock:
		return lang.ReporterBlock
	case syntax.CommandBlock:
		return lang.CommandBlock
	case syntax.AnonProcedure:
		for _, c := range n.Children {
			if c.Kind == syntax.CommandStatement {
				return lang.Command
			}
		}
		return lang.Reporter
	case syntax.Parenthetical:
		for _, c := range n.Children {
			if !c.Kind.IsDelimiter() {
				return b.typeOf(c)
			}
		}
	case syntax.ReporterCall:
		if prim := Primitive(b.cat, n.CallName()); prim != nil && prim.Returns != lang.Unit {
			return prim.Returns
		}
	}
	return lang.Wildcard
}
