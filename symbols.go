package meadow

import (
	"strings"

	"github.com/jward/meadow/internal/syntax"
)

// Symbol kinds reported by Session.Symbols.
const (
	SymbolExtension     = "extension"
	SymbolGlobal        = "global"
	SymbolBreed         = "breed"
	SymbolLinkBreed     = "link-breed"
	SymbolBreedVariable = "breed-variable"
	SymbolCommand       = "command"
	SymbolReporter      = "reporter"
)

// Symbol is a declaration in the text of a session.
type Symbol struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	// Owner is the plural breed of a breed variable.
	Owner string `json:"owner,omitempty"`
	From  int    `json:"from"`
	To    int    `json:"to"`
	// Params holds a procedure's arguments or a breed's singular name.
	Params []string `json:"params,omitempty"`
}

// Symbols lists the session's own declarations in document order.
// Duplicates are listed too.
func (s *Session) Symbols() []Symbol {
	if s.tree == nil || s.tree.Root == nil {
		return nil
	}
	var out []Symbol
	for _, decl := range s.tree.Root.Children {
		switch decl.Kind {
		case syntax.Extensions:
			for _, n := range decl.ChildrenOf(syntax.ExtensionName) {
				out = append(out, leafSymbol(n, SymbolExtension, ""))
			}
		case syntax.Globals:
			for _, n := range decl.ChildrenOf(syntax.Identifier) {
				out = append(out, leafSymbol(n, SymbolGlobal, ""))
			}
		case syntax.BreedDecl:
			plural := decl.Child(syntax.BreedPlural)
			if plural == nil {
				continue
			}
			kind := SymbolBreed
			if kw := decl.Child(syntax.Keyword); kw != nil && strings.Contains(kw.Name, "link") {
				kind = SymbolLinkBreed
			}
			sym := leafSymbol(plural, kind, "")
			if singular := decl.Child(syntax.BreedSingular); singular != nil {
				sym.Params = []string{singular.Name}
			}
			out = append(out, sym)
		case syntax.BreedsOwn:
			owner := ownerOf(decl)
			for _, n := range decl.ChildrenOf(syntax.Identifier) {
				out = append(out, leafSymbol(n, SymbolBreedVariable, owner))
			}
		case syntax.Procedure:
			name := decl.Child(syntax.ProcedureName)
			if name == nil {
				continue
			}
			kind := SymbolCommand
			if decl.Child(syntax.ToReport) != nil {
				kind = SymbolReporter
			}
			sym := Symbol{Name: name.Name, Kind: kind, From: decl.From, To: decl.To}
			if args := decl.Child(syntax.Arguments); args != nil {
				for _, a := range args.ChildrenOf(syntax.Identifier) {
					sym.Params = append(sym.Params, a.Name)
				}
			}
			out = append(out, sym)
		}
	}
	return out
}

func leafSymbol(n *syntax.Node, kind, owner string) Symbol {
	return Symbol{Name: n.Name, Kind: kind, Owner: owner, From: n.From, To: n.To}
}
