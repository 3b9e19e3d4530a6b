package meadow

import (
	"sort"
	"strings"

	"github.com/jward/meadow/internal/lang"
	"github.com/jward/meadow/internal/model"
	"github.com/jward/meadow/internal/syntax"
)

// Completion is what CompleteAt offers for the word at a position. Choosing
// an option replaces [From, To).
type Completion struct {
	From    int              `json:"from"`
	To      int              `json:"to"`
	Options []CompletionItem `json:"options"`
}

type CompletionItem struct {
	Label    string   `json:"label"`
	Category Category `json:"category"`
}

// CompleteAt lists the names that may continue the word at pos. Inside an
// extensions block these are the known extensions not yet declared; inside
// other declaration blocks, procedure headers and let names nothing is
// offered. Elsewhere the word is completed from the catalog and the names the
// group declares.
func (s *Session) CompleteAt(pos int) (*Completion, bool) {
	from, to := syntax.WordAt(s.text, pos)
	pos = max(from, min(pos, to))
	prefix := strings.ToLower(s.text[from:pos])
	if inComment(s.text, from) {
		return nil, false
	}

	path := s.tree.Path(from, pos)
	for i := len(path) - 1; i >= 0; i-- {
		n := path[i]
		switch n.Kind {
		case syntax.String, syntax.Number,
			syntax.ProcedureName, syntax.NewVariableDeclaration,
			syntax.Arguments, syntax.AnonArguments:
			return nil, false
		case syntax.Globals, syntax.BreedDecl, syntax.BreedsOwn:
			if insideBrackets(n, from) {
				return nil, false
			}
		case syntax.Extensions:
			if insideBrackets(n, from) {
				return s.completion(from, to, prefix, s.extensionOptions(s.text[from:to]))
			}
		}
	}
	if prefix == "" {
		return nil, false
	}
	return s.completion(from, to, prefix, s.wordOptions(from))
}

func (s *Session) completion(from, to int, prefix string, options []CompletionItem) (*Completion, bool) {
	c := &Completion{From: from, To: to}
	seen := make(map[string]bool, len(options))
	for _, o := range options {
		if seen[o.Label] || !strings.HasPrefix(o.Label, prefix) {
			continue
		}
		seen[o.Label] = true
		c.Options = append(c.Options, o)
	}
	if len(c.Options) == 0 {
		return nil, false
	}
	sort.SliceStable(c.Options, func(i, j int) bool {
		return c.Options[i].Label < c.Options[j].Label
	})
	return c, true
}

// extensionOptions are the catalog's extensions minus those already declared.
// The word under the cursor does not count as a declaration.
func (s *Session) extensionOptions(word string) []CompletionItem {
	var out []CompletionItem
	for _, e := range s.catalog.Extensions() {
		if _, ok := s.view.Extensions[e]; ok && e != word {
			continue
		}
		out = append(out, CompletionItem{Label: e, Category: CategoryExtension})
	}
	return out
}

// wordOptions lists every name usable at pos. When a name has several
// meanings the first one listed wins.
func (s *Session) wordOptions(pos int) []CompletionItem {
	var out []CompletionItem
	add := func(c Category, names ...string) {
		for _, n := range names {
			out = append(out, CompletionItem{Label: n, Category: c})
		}
	}
	view := s.view

	add(CategoryKeyword, s.catalog.Keywords()...)
	for _, name := range s.catalog.PrimitiveNames() {
		p, _ := s.catalog.Lookup(name)
		if p.Unsupported {
			continue
		}
		if _, ok := view.Extensions[p.Extension]; p.Extension != "" && !ok {
			continue
		}
		add(CategoryPrimitive, name)
	}
	add(CategoryConstant, s.catalog.Constants()...)
	add(CategoryBuiltinVariable, s.catalog.BuiltinVariables()...)

	for _, b := range view.SortedBreeds() {
		if !b.Declared {
			continue
		}
		for _, t := range s.catalog.Templates() {
			if !shapeFits(t.Shape, b) {
				continue
			}
			name := b.Plural
			if t.Shape == lang.ShapeBreedTest {
				name = b.Singular
			}
			if name != "" {
				add(CategoryBreedPrimitive, t.Expand(name))
			}
		}
		add(breedCategory(b, b.Plural), b.Plural)
		if b.Singular != "" {
			add(breedCategory(b, b.Singular), b.Singular)
		}
	}
	for _, name := range sortedNames(view.Procedures) {
		add(CategoryProcedure, name)
	}
	add(CategoryGlobal, sortedNames(view.Globals)...)
	add(CategoryWidgetGlobal, sortedNames(view.WidgetGlobals)...)
	add(CategoryBreedVariable, view.BreedVariables()...)

	for _, name := range s.lint.LocalsAt(pos) {
		c := CategoryLocalVariable
		if b, ok := s.lint.ResolveLocal(name, pos); ok && b.Argument {
			c = CategoryArgument
		}
		add(c, name)
	}
	return out
}

func shapeFits(shape lang.BreedShape, b *model.Breed) bool {
	switch shape {
	case lang.ShapeCreateTurtles, lang.ShapeTurtleReporter:
		return !b.BreedType.IsLink()
	case lang.ShapeCreateLinks, lang.ShapeLinkReporter, lang.ShapeLinkSetReporter:
		return b.BreedType.IsLink()
	}
	return true
}

func sortedNames[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// insideBrackets reports whether pos lies between the brackets of a
// declaration block. An unclosed block extends to its end.
func insideBrackets(n *syntax.Node, pos int) bool {
	open := n.Child(syntax.OpenBracket)
	if open == nil || pos < open.To {
		return false
	}
	cl := n.Child(syntax.CloseBracket)
	return cl == nil || pos <= cl.From
}

// inComment reports whether pos follows a ";" on its line, outside a string.
func inComment(src string, pos int) bool {
	start := strings.LastIndexByte(src[:pos], '\n') + 1
	inString := false
	for i := start; i < pos; i++ {
		switch src[i] {
		case '\\':
			if inString {
				i++
			}
		case '"':
			inString = !inString
		case ';':
			if !inString {
				return true
			}
		}
	}
	return false
}
