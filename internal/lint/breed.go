package lint

import (
	"strings"

	"github.com/jward/meadow/internal/lang"
	"github.com/jward/meadow/internal/model"
	"github.com/jward/meadow/internal/syntax"
)

// Breed reports breed-derived primitives and own blocks naming a breed of
// the wrong kind, or no breed at all.
var Breed = &Validator{
	Name: "breed",
	Doc:  "checks that breed-derived primitives name declared breeds",
	Run:  runBreed,
}

// breedSlot is what a breed-derived word needs its breed part to be.
type breedSlot uint8

const (
	slotTurtlePlural breedSlot = iota
	slotLinkAny
	slotLinkSingular
	slotLinkPlural
	slotSingular
	slotOwner
)

var slotNames = [...]string{
	slotTurtlePlural: "plural turtle breed",
	slotLinkAny:      "link breed",
	slotLinkSingular: "singular link breed",
	slotLinkPlural:   "plural link breed",
	slotSingular:     "singular breed",
	slotOwner:        "plural breed",
}

func slotFor(shape lang.BreedShape) breedSlot {
	switch shape {
	case lang.ShapeCreateLinks:
		return slotLinkAny
	case lang.ShapeLinkReporter:
		return slotLinkSingular
	case lang.ShapeLinkSetReporter:
		return slotLinkPlural
	case lang.ShapeBreedTest:
		return slotSingular
	}
	return slotTurtlePlural
}

func runBreed(p *Pass) {
	p.Tree.Root.Walk(func(n *syntax.Node) bool {
		switch n.Kind {
		case syntax.BreedCommand, syntax.BreedReporter:
			checkBreedWord(p, n, slotFor(n.Shape))
		case syntax.Own:
			switch n.Breed {
			case "turtles", "patches", "links":
			default:
				checkBreedWord(p, n, slotOwner)
			}
		}
		return true
	})
}

func checkBreedWord(p *Pass, n *syntax.Node, slot breedSlot) {
	if breedFits(p.Lint, n.Breed, slot) {
		return
	}
	// A word that happens to look like a template, such as a procedure named
	// "my-setup", is not a breed reference.
	if slot != slotOwner {
		if _, ok := p.Lint.Procedures[n.Name]; ok {
			return
		}
		if p.resolves(n.Name, n.From) {
			return
		}
	}
	d := p.ReportNode(n, SeverityError, MsgInvalidBreed, n.Breed, slotNames[slot])
	if fix, ok := addBreedFix(p, n.Breed, slot); ok {
		d.Fixes = append(d.Fixes, fix)
	}
}

func breedFits(l *model.LintContext, name string, slot breedSlot) bool {
	if b, ok := l.Breeds[name]; ok && b.Declared {
		switch slot {
		case slotTurtlePlural:
			return b.BreedType == model.BreedTurtle
		case slotLinkAny, slotLinkPlural:
			return b.BreedType.IsLink()
		case slotOwner:
			return b.BreedType == model.BreedTurtle || b.BreedType.IsLink()
		}
		return false
	}
	for _, b := range l.Breeds {
		if !b.Declared || b.Singular != name {
			continue
		}
		switch slot {
		case slotLinkAny, slotLinkSingular:
			return b.BreedType.IsLink()
		case slotSingular:
			return true
		}
	}
	return false
}

// addBreedFix proposes a declaration for the missing breed. No fix is offered
// when the names it would declare are already taken.
func addBreedFix(p *Pass, name string, slot breedSlot) (Fix, bool) {
	if name == "" {
		return Fix{}, false
	}
	keyword := "breed"
	plural, singular := name, singularOf(name)
	switch slot {
	case slotLinkAny:
		keyword = "undirected-link-breed"
		if !strings.HasSuffix(name, "s") {
			plural, singular = pluralOf(name), name
		}
	case slotLinkPlural:
		keyword = "undirected-link-breed"
	case slotLinkSingular:
		keyword = "undirected-link-breed"
		plural, singular = pluralOf(name), name
	case slotSingular:
		plural, singular = pluralOf(name), name
	}
	for _, n := range []string{plural, singular} {
		if p.Catalog.IsReserved(n) || p.declared(n) {
			return Fix{}, false
		}
	}
	decl := keyword + " [ " + plural + " " + singular + " ]\n"
	return Fix{
		Label: p.Localize(MsgAddBreed, plural),
		Edits: []Edit{{From: 0, To: 0, Insert: decl}},
		Guard: decl,
	}, true
}

// declared reports group-level names: globals, breeds and procedures.
func (p *Pass) declared(name string) bool {
	if _, ok := p.Lint.Globals[name]; ok {
		return true
	}
	if _, ok := p.Lint.WidgetGlobals[name]; ok {
		return true
	}
	if _, ok := p.Lint.Procedures[name]; ok {
		return true
	}
	_, ok := p.Lint.BreedByName(name)
	return ok
}

// singularOf guesses a singular by dropping a trailing "s". Other plurals get
// a placeholder naming what belongs there.
func singularOf(plural string) string {
	if len(plural) > 1 && strings.HasSuffix(plural, "s") {
		return strings.TrimSuffix(plural, "s")
	}
	return plural + "-singular"
}

func pluralOf(singular string) string { return singular + "s" }
