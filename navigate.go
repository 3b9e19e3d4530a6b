package meadow

import (
	"github.com/jward/meadow/internal/lang"
	"github.com/jward/meadow/internal/lint"
	"github.com/jward/meadow/internal/model"
	"github.com/jward/meadow/internal/syntax"
)

// Category classifies what a piece of source denotes.
type Category uint8

const (
	CategoryNone Category = iota
	CategoryStructure
	CategoryKeyword
	CategoryDelimiter
	CategoryNumber
	CategoryString
	CategoryConstant
	CategoryPrimitive
	CategoryBreedPrimitive
	CategoryProcedure
	CategoryExtension
	CategoryGlobal
	CategoryWidgetGlobal
	CategoryTurtleBreed
	CategoryTurtleBreedSingular
	CategoryLinkBreed
	CategoryLinkBreedSingular
	CategoryBreedVariable
	CategoryBuiltinVariable
	CategoryLocalVariable
	CategoryArgument
)

var categoryNames = [...]string{
	CategoryNone:                "none",
	CategoryStructure:           "structure",
	CategoryKeyword:             "keyword",
	CategoryDelimiter:           "delimiter",
	CategoryNumber:              "number",
	CategoryString:              "string",
	CategoryConstant:            "constant",
	CategoryPrimitive:           "primitive",
	CategoryBreedPrimitive:      "breed primitive",
	CategoryProcedure:           "procedure",
	CategoryExtension:           "extension",
	CategoryGlobal:              "global variable",
	CategoryWidgetGlobal:        "widget global",
	CategoryTurtleBreed:         "turtle breed",
	CategoryTurtleBreedSingular: "singular turtle breed",
	CategoryLinkBreed:           "link breed",
	CategoryLinkBreedSingular:   "singular link breed",
	CategoryBreedVariable:       "breed variable",
	CategoryBuiltinVariable:     "built-in variable",
	CategoryLocalVariable:       "local variable",
	CategoryArgument:            "argument",
}

func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return "unknown"
}

func (c Category) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// Location is a range in the text of a session.
type Location struct {
	SessionID int `json:"session"`
	From      int `json:"from"`
	To        int `json:"to"`
}

// Description is what DescribeAt found.
type Description struct {
	From     int      `json:"from"`
	To       int      `json:"to"`
	Term     string   `json:"term"`
	Kind     string   `json:"kind"`
	Category Category `json:"category"`

	// Detail names the owner of the term: the breed of a breed variable or
	// breed primitive, the procedure of a local or argument, the kind of a
	// structural node.
	Detail string `json:"detail,omitempty"`
	// Help is the catalog's description of a primitive.
	Help string `json:"help,omitempty"`
	// Context is the agent context a primitive or procedure requires, in
	// OTPL notation.
	Context string `json:"context,omitempty"`

	Definition *Location `json:"definition,omitempty"`
}

// DescribeAt classifies the innermost node containing [from, to).
func (s *Session) DescribeAt(from, to int) (*Description, bool) {
	path := s.tree.Path(from, to)
	if len(path) < 2 {
		return nil, false
	}
	n := path[len(path)-1]
	if n.From == n.To || n.Kind == syntax.Unparsed {
		return nil, false
	}
	d := &Description{
		From:     n.From,
		To:       n.To,
		Term:     n.Name,
		Kind:     n.Kind.String(),
		Category: kindCategory(n),
	}
	if d.Term == "" {
		d.Term = n.Text(s.text)
	}
	if d.Category == CategoryStructure {
		d.Detail = d.Kind
		return d, true
	}
	if isWord(n.Kind) {
		s.refine(d, n)
	}
	if d.Category == CategoryNone {
		return nil, false
	}
	d.Definition = s.definition(d, n)
	return d, true
}

// DefinitionAt returns the declaration of the symbol at pos.
func (s *Session) DefinitionAt(pos int) (Location, bool) {
	d, ok := s.DescribeAt(pos, pos)
	if !ok || d.Definition == nil {
		return Location{}, false
	}
	return *d.Definition, true
}

// kindCategory is the category a node has before looking at its name.
func kindCategory(n *syntax.Node) Category {
	switch n.Kind {
	case syntax.KindInvalid, syntax.Program, syntax.Unparsed:
		return CategoryNone
	case syntax.Extensions, syntax.Globals, syntax.BreedDecl, syntax.BreedsOwn,
		syntax.Procedure, syntax.Arguments, syntax.Stray,
		syntax.CommandStatement, syntax.ExpressionStatement, syntax.ReporterCall,
		syntax.Parenthetical, syntax.CommandBlock, syntax.ReporterBlock,
		syntax.List, syntax.AnonProcedure, syntax.AnonArguments:
		return CategoryStructure
	case syntax.Keyword, syntax.To, syntax.ToReport, syntax.End, syntax.Own, syntax.Arrow:
		return CategoryKeyword
	case syntax.OpenBracket, syntax.CloseBracket, syntax.OpenParen, syntax.CloseParen:
		return CategoryDelimiter
	case syntax.Number:
		return CategoryNumber
	case syntax.String:
		return CategoryString
	case syntax.Constant:
		return CategoryConstant
	case syntax.ExtensionName:
		return CategoryExtension
	case syntax.Command, syntax.Reporter:
		return CategoryPrimitive
	case syntax.BreedCommand, syntax.BreedReporter:
		return CategoryBreedPrimitive
	case syntax.ProcedureName, syntax.CustomCommand, syntax.CustomReporter:
		return CategoryProcedure
	case syntax.NewVariableDeclaration:
		return CategoryLocalVariable
	case syntax.BreedPlural, syntax.BreedSingular:
		return CategoryTurtleBreed
	case syntax.Identifier:
		if n.Parent == nil {
			return CategoryNone
		}
		switch n.Parent.Kind {
		case syntax.Globals:
			return CategoryGlobal
		case syntax.BreedsOwn:
			return CategoryBreedVariable
		case syntax.Arguments, syntax.AnonArguments:
			return CategoryArgument
		}
		return CategoryNone
	case syntax.VariableName:
		return CategoryNone
	}
	return CategoryNone
}

func isWord(k syntax.Kind) bool {
	switch k {
	case syntax.Identifier, syntax.VariableName, syntax.NewVariableDeclaration,
		syntax.Command, syntax.Reporter, syntax.CustomCommand, syntax.CustomReporter,
		syntax.BreedCommand, syntax.BreedReporter, syntax.ProcedureName,
		syntax.BreedPlural, syntax.BreedSingular, syntax.ExtensionName:
		return true
	}
	return false
}

// refine looks the term up: primitives first, then globals, widget globals,
// breed names, breed variables, built-in variables and finally the locals of
// the enclosing procedure.
func (s *Session) refine(d *Description, n *syntax.Node) {
	term := d.Term
	view := s.view

	if p, ok := s.catalog.Lookup(term); ok && n.Kind != syntax.ProcedureName {
		d.Category = CategoryPrimitive
		d.Help = p.Help
		d.Context = p.Context.String()
		return
	}
	switch n.Kind {
	case syntax.BreedCommand, syntax.BreedReporter:
		d.Detail = n.Breed
		if b, ok := view.BreedFromProcedure(term); ok {
			d.Detail = b.Plural
		}
		if t, _, ok := s.catalog.MatchTemplate(term); ok {
			d.Help = t.Primitive.Help
			d.Context = t.Primitive.Context.String()
		}
		return
	case syntax.ProcedureName, syntax.CustomCommand, syntax.CustomReporter:
		if p, ok := view.Procedures[term]; ok {
			d.Detail = "reporter"
			if p.IsCommand {
				d.Detail = "command"
			}
			if c, ok := s.inferredContexts()[term]; ok {
				d.Context = c.String()
			}
		}
		return
	case syntax.ExtensionName:
		return
	}

	if _, ok := view.Globals[term]; ok {
		d.Category = CategoryGlobal
		return
	}
	if _, ok := view.WidgetGlobals[term]; ok {
		d.Category = CategoryWidgetGlobal
		return
	}
	if b, ok := view.BreedByName(term); ok {
		d.Category = breedCategory(b, term)
		d.Detail = b.Plural
		return
	}
	if b, ok := view.BreedFromVariable(term); ok {
		d.Category = CategoryBreedVariable
		d.Detail = b.Plural
		return
	}
	if c, ok := s.catalog.BuiltinVariable(term); ok {
		d.Category = CategoryBuiltinVariable
		d.Context = c.String()
		return
	}
	if b, ok := s.lint.ResolveLocal(term, n.From); ok {
		d.Category = CategoryLocalVariable
		if b.Argument {
			d.Category = CategoryArgument
		}
		d.Detail = b.Procedure.Name
		return
	}
	if d.Category == CategoryTurtleBreed {
		// A breed declaration the context does not know, such as a
		// malformed one.
		d.Category = CategoryNone
	}
}

func breedCategory(b *model.Breed, term string) Category {
	singular := term == b.Singular && term != b.Plural
	switch {
	case b.BreedType.IsLink() && singular:
		return CategoryLinkBreedSingular
	case b.BreedType.IsLink():
		return CategoryLinkBreed
	case singular:
		return CategoryTurtleBreedSingular
	}
	return CategoryTurtleBreed
}

func (s *Session) inferredContexts() map[string]lang.AgentContexts {
	return lint.InferContexts(lint.Input{
		Tree:      s.tree,
		Pre:       s.viewPre,
		Lint:      s.view,
		Own:       s.lint,
		SessionID: s.id,
	}, s.catalog)
}

// definition finds the node declaring the described term, searching the
// member of the group that owns the declaration.
func (s *Session) definition(d *Description, n *syntax.Node) *Location {
	view := s.view
	term := d.Term
	switch d.Category {
	case CategoryGlobal:
		return s.findIn(view.Globals[term], func(c *syntax.Node) bool {
			return c.Kind == syntax.Identifier && c.Name == term && c.Parent.Kind == syntax.Globals
		})
	case CategoryExtension:
		return s.findIn(view.Extensions[term], func(c *syntax.Node) bool {
			return c.Kind == syntax.ExtensionName && c.Name == term
		})
	case CategoryTurtleBreed, CategoryTurtleBreedSingular, CategoryLinkBreed, CategoryLinkBreedSingular:
		b, ok := view.BreedByName(term)
		if !ok {
			return nil
		}
		return s.findIn(b.SessionID, func(c *syntax.Node) bool {
			return (c.Kind == syntax.BreedPlural || c.Kind == syntax.BreedSingular) && c.Name == term
		})
	case CategoryBreedPrimitive:
		b, ok := view.Breeds[d.Detail]
		if !ok {
			return nil
		}
		return s.findIn(b.SessionID, func(c *syntax.Node) bool {
			return c.Kind == syntax.BreedPlural && c.Name == b.Plural
		})
	case CategoryBreedVariable:
		for _, m := range s.members() {
			if loc := m.find(func(c *syntax.Node) bool {
				return c.Kind == syntax.Identifier && c.Name == term &&
					c.Parent.Kind == syntax.BreedsOwn && ownerOf(c.Parent) == d.Detail
			}); loc != nil {
				return loc
			}
		}
	case CategoryProcedure:
		p, ok := view.Procedures[term]
		if !ok {
			return nil
		}
		return s.findIn(p.SessionID, func(c *syntax.Node) bool {
			return c.Kind == syntax.ProcedureName && c.Name == term
		})
	case CategoryArgument:
		b, ok := s.lint.ResolveLocal(term, n.From)
		if !ok {
			return nil
		}
		return s.find(func(c *syntax.Node) bool {
			return c.Kind == syntax.Identifier && c.Name == term &&
				(c.Parent.Kind == syntax.Arguments || c.Parent.Kind == syntax.AnonArguments) &&
				b.Scope.PositionStart <= c.From && c.To <= b.Scope.PositionEnd
		})
	case CategoryLocalVariable:
		b, ok := s.lint.ResolveLocal(term, n.From)
		if !ok || b.Variable == nil {
			return nil
		}
		pos := b.Variable.CreationPos
		return s.find(func(c *syntax.Node) bool {
			return c.Kind == syntax.NewVariableDeclaration && c.From == pos
		})
	}
	return nil
}

func ownerOf(own *syntax.Node) string {
	if o := own.Child(syntax.Own); o != nil {
		return o.Breed
	}
	return ""
}

// findIn searches the group member with the given id.
func (s *Session) findIn(id int, match func(*syntax.Node) bool) *Location {
	for _, m := range s.members() {
		if m.id == id {
			return m.find(match)
		}
	}
	return nil
}

// find returns the first node of the session's tree, in document order,
// satisfying match.
func (s *Session) find(match func(*syntax.Node) bool) *Location {
	if s.tree == nil || s.tree.Root == nil {
		return nil
	}
	var found *syntax.Node
	s.tree.Root.Walk(func(c *syntax.Node) bool {
		if found != nil {
			return false
		}
		if c.Parent != nil && match(c) {
			found = c
			return false
		}
		return true
	})
	if found == nil {
		return nil
	}
	return &Location{SessionID: s.id, From: found.From, To: found.To}
}
