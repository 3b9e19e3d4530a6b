package lang

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Default precedence of prefix reporters. Infix operators binding tighter than
// this are absorbed into a reporter's argument.
const ReporterPrecedence = 10

// Primitive describes one built-in command or reporter.
type Primitive struct {
	Name      string
	Extension string
	IsCommand bool
	Left      *Arg
	Right     []Arg
	Returns   Type

	// Precedence is 0 for commands and ReporterPrecedence for prefix reporters.
	Precedence   int
	Context      AgentContexts
	BlockContext AgentContexts

	// IntroducesContext means the block argument runs as the agents denoted
	// by the argument at AgentArg.
	IntroducesContext    bool
	InheritParentContext bool
	AgentArg             int
	Unsupported          bool
	Help                 string

	defaultArgs int
	minArgs     int
}

func (p *Primitive) IsInfix() bool { return p.Left != nil }

// Variadic reports whether a parenthesized call may take any number of inputs.
func (p *Primitive) Variadic() bool {
	for _, a := range p.Right {
		if a.Repeat {
			return true
		}
	}
	return false
}

// DefaultArgs is the number of right-hand inputs consumed without parentheses.
func (p *Primitive) DefaultArgs() int { return p.defaultArgs }

// RequiredArgs is the fewest right-hand inputs accepted without parentheses.
func (p *Primitive) RequiredArgs() int {
	n := p.defaultArgs
	for i := len(p.Right) - 1; i >= 0 && p.Right[i].Optional; i-- {
		n--
	}
	if n < 0 {
		return 0
	}
	return n
}

// MinArgs is the fewest right-hand inputs accepted inside parentheses.
func (p *Primitive) MinArgs() int { return p.minArgs }

// ArgAt returns the slot for the i-th right-hand input. Inputs past the end
// of the declared slots reuse the last repeatable slot.
func (p *Primitive) ArgAt(i int) (Arg, bool) {
	if i < len(p.Right) {
		return p.Right[i], true
	}
	for j := len(p.Right) - 1; j >= 0; j-- {
		if p.Right[j].Repeat {
			return p.Right[j], true
		}
	}
	return Arg{}, false
}

// BreedShape classifies primitives derived from a breed declaration.
type BreedShape uint8

const (
	ShapeCreateTurtles BreedShape = iota + 1
	ShapeCreateLinks
	ShapeTurtleReporter
	ShapeLinkReporter
	ShapeLinkSetReporter
	ShapeBreedTest
)

var shapeNames = map[string]BreedShape{
	"create-turtles":   ShapeCreateTurtles,
	"create-links":     ShapeCreateLinks,
	"turtle-reporter":  ShapeTurtleReporter,
	"link-reporter":    ShapeLinkReporter,
	"linkset-reporter": ShapeLinkSetReporter,
	"breed-test":       ShapeBreedTest,
}

// Template is a breed-derived primitive such as "hatch-{}".
type Template struct {
	Pattern   string
	Shape     BreedShape
	Primitive *Primitive
	prefix    string
	suffix    string
}

// Match extracts the breed part of word, e.g. "cows" from "hatch-cows".
func (t *Template) Match(word string) (string, bool) {
	if len(word) <= len(t.prefix)+len(t.suffix) {
		return "", false
	}
	if !strings.HasPrefix(word, t.prefix) || !strings.HasSuffix(word, t.suffix) {
		return "", false
	}
	return word[len(t.prefix) : len(word)-len(t.suffix)], true
}

// Expand fills the template with a breed name.
func (t *Template) Expand(breed string) string {
	return t.prefix + breed + t.suffix
}

// Catalog is the primitive dictionary of the language.
type Catalog struct {
	prims      map[string]*Primitive
	templates  []*Template
	constants  map[string]bool
	keywords   map[string]bool
	turtleVars map[string]bool
	patchVars  map[string]bool
	linkVars   map[string]bool
	extensions map[string]bool
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
)

// LoadEmbedded parses the embedded catalog afresh.
func LoadEmbedded() (*Catalog, error) {
	return Load(catalogYAML)
}

// Default returns the embedded catalog. It panics if the embedded data is
// malformed, which is a build defect.
func Default() *Catalog {
	defaultOnce.Do(func() {
		c, err := LoadEmbedded()
		if err != nil {
			panic(fmt.Sprintf("lang: embedded catalog: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

type rawPrimitive struct {
	Name        string   `yaml:"name"`
	Aliases     []string `yaml:"aliases"`
	Ext         string   `yaml:"ext"`
	Type        string   `yaml:"type"`
	Left        string   `yaml:"left"`
	Args        []string `yaml:"args"`
	Returns     string   `yaml:"returns"`
	Precedence  int      `yaml:"precedence"`
	Context     string   `yaml:"context"`
	Block       string   `yaml:"block"`
	Default     *int     `yaml:"default"`
	Min         *int     `yaml:"min"`
	Introduces  bool     `yaml:"introduces"`
	Inherit     bool     `yaml:"inherit"`
	AgentArg    *int     `yaml:"agent_arg"`
	Unsupported bool     `yaml:"unsupported"`
	Help        string   `yaml:"help"`
}

type rawTemplate struct {
	rawPrimitive `yaml:",inline"`
	Pattern      string `yaml:"pattern"`
	Shape        string `yaml:"shape"`
}

type rawCatalog struct {
	Primitives      []rawPrimitive `yaml:"primitives"`
	Templates       []rawTemplate  `yaml:"templates"`
	Constants       []string       `yaml:"constants"`
	Keywords        []string       `yaml:"keywords"`
	TurtleVariables []string       `yaml:"turtle_variables"`
	PatchVariables  []string       `yaml:"patch_variables"`
	LinkVariables   []string       `yaml:"link_variables"`
	Extensions      []string       `yaml:"extensions"`
}

// Load parses a catalog document.
func Load(data []byte) (*Catalog, error) {
	var raw rawCatalog
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("lang: decode catalog: %w", err)
	}

	c := &Catalog{
		prims:      make(map[string]*Primitive, len(raw.Primitives)),
		constants:  toSet(raw.Constants),
		keywords:   toSet(raw.Keywords),
		turtleVars: toSet(raw.TurtleVariables),
		patchVars:  toSet(raw.PatchVariables),
		linkVars:   toSet(raw.LinkVariables),
		extensions: toSet(raw.Extensions),
	}

	for _, rp := range raw.Primitives {
		p, err := rp.build(rp.Name)
		if err != nil {
			return nil, err
		}
		for _, name := range append([]string{rp.Name}, rp.Aliases...) {
			key := strings.ToLower(name)
			if rp.Ext != "" {
				key = rp.Ext + ":" + key
			}
			if _, dup := c.prims[key]; dup {
				return nil, fmt.Errorf("lang: duplicate primitive %q", key)
			}
			c.prims[key] = p
		}
	}

	for _, rt := range raw.Templates {
		p, err := rt.build(rt.Pattern)
		if err != nil {
			return nil, err
		}
		shape, ok := shapeNames[rt.Shape]
		if !ok {
			return nil, fmt.Errorf("lang: template %q: unknown shape %q", rt.Pattern, rt.Shape)
		}
		prefix, suffix, found := strings.Cut(rt.Pattern, "{}")
		if !found {
			return nil, fmt.Errorf("lang: template %q has no {} slot", rt.Pattern)
		}
		c.templates = append(c.templates, &Template{
			Pattern:   rt.Pattern,
			Shape:     shape,
			Primitive: p,
			prefix:    prefix,
			suffix:    suffix,
		})
	}
	// Longer literal parts first so "create-{}-with" wins over "create-{}".
	sort.SliceStable(c.templates, func(i, j int) bool {
		li := len(c.templates[i].prefix) + len(c.templates[i].suffix)
		lj := len(c.templates[j].prefix) + len(c.templates[j].suffix)
		return li > lj
	})
	return c, nil
}

func (rp rawPrimitive) build(name string) (*Primitive, error) {
	p := &Primitive{
		Name:                 strings.ToLower(name),
		Extension:            rp.Ext,
		Context:              ParseAgentContexts(rp.Context),
		IntroducesContext:    rp.Introduces,
		InheritParentContext: rp.Inherit,
		AgentArg:             -1,
		Unsupported:          rp.Unsupported,
		Help:                 rp.Help,
		Precedence:           rp.Precedence,
	}
	switch rp.Type {
	case "command":
		p.IsCommand = true
	case "reporter":
		if p.Precedence == 0 {
			p.Precedence = ReporterPrecedence
		}
	default:
		return nil, fmt.Errorf("lang: primitive %q: type must be command or reporter, got %q", name, rp.Type)
	}
	if rp.Block != "" {
		p.BlockContext = ParseAgentContexts(rp.Block)
	} else {
		p.BlockContext = AllContexts()
	}
	if rp.AgentArg != nil {
		p.AgentArg = *rp.AgentArg
	}
	if rp.Left != "" {
		left, err := parseArg(rp.Left)
		if err != nil {
			return nil, fmt.Errorf("lang: primitive %q: %w", name, err)
		}
		p.Left = &left
	}
	for _, s := range rp.Args {
		a, err := parseArg(s)
		if err != nil {
			return nil, fmt.Errorf("lang: primitive %q: %w", name, err)
		}
		p.Right = append(p.Right, a)
	}
	if rp.Returns != "" {
		t, err := ParseType(rp.Returns)
		if err != nil {
			return nil, fmt.Errorf("lang: primitive %q: %w", name, err)
		}
		p.Returns = t
	}

	p.defaultArgs = len(p.Right)
	if rp.Default != nil {
		p.defaultArgs = *rp.Default
	}
	p.minArgs = p.RequiredArgs()
	if rp.Min != nil {
		p.minArgs = *rp.Min
	}
	return p, nil
}

func toSet(names []string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[strings.ToLower(n)] = true
	}
	return m
}

// Lookup finds a primitive by lower-cased name, "ext:name" for extensions.
func (c *Catalog) Lookup(name string) (*Primitive, bool) {
	p, ok := c.prims[name]
	return p, ok
}

// MatchTemplate finds the breed template that word instantiates.
func (c *Catalog) MatchTemplate(word string) (*Template, string, bool) {
	for _, t := range c.templates {
		if breed, ok := t.Match(word); ok {
			return t, breed, true
		}
	}
	return nil, "", false
}

// Templates returns the breed templates, longest literal first.
func (c *Catalog) Templates() []*Template { return c.templates }

// Primitives returns all primitives sorted by name, aliases excluded.
func (c *Catalog) Primitives() []*Primitive {
	seen := make(map[*Primitive]bool, len(c.prims))
	var out []*Primitive
	for _, p := range c.prims {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return fullName(out[i]) < fullName(out[j])
	})
	return out
}

func fullName(p *Primitive) string {
	if p.Extension != "" {
		return p.Extension + ":" + p.Name
	}
	return p.Name
}

// PrimitiveNames returns every name a primitive answers to, aliases
// included, sorted. Extension primitives read "ext:name".
func (c *Catalog) PrimitiveNames() []string {
	return sortedSet(c.prims)
}

func (c *Catalog) Keywords() []string   { return sortedSet(c.keywords) }
func (c *Catalog) Constants() []string  { return sortedSet(c.constants) }
func (c *Catalog) Extensions() []string { return sortedSet(c.extensions) }

// BuiltinVariables returns the turtle, patch and link variables, sorted.
func (c *Catalog) BuiltinVariables() []string {
	all := make(map[string]bool, len(c.turtleVars)+len(c.patchVars)+len(c.linkVars))
	for _, set := range []map[string]bool{c.turtleVars, c.patchVars, c.linkVars} {
		for v := range set {
			all[v] = true
		}
	}
	return sortedSet(all)
}

func sortedSet[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (c *Catalog) IsConstant(name string) bool { return c.constants[name] }

// IsKeyword reports declaration keywords such as "to", "end" or "globals".
func (c *Catalog) IsKeyword(name string) bool { return c.keywords[name] }

func (c *Catalog) KnownExtension(name string) bool { return c.extensions[name] }

func (c *Catalog) IsTurtleVariable(name string) bool { return c.turtleVars[name] }
func (c *Catalog) IsPatchVariable(name string) bool  { return c.patchVars[name] }
func (c *Catalog) IsLinkVariable(name string) bool   { return c.linkVars[name] }

// BuiltinVariable returns the agents that can read a built-in variable.
// Turtles can read the variables of the patch they stand on.
func (c *Catalog) BuiltinVariable(name string) (AgentContexts, bool) {
	var ctx AgentContexts
	if c.turtleVars[name] {
		ctx.Turtle = true
	}
	if c.patchVars[name] {
		ctx.Turtle = true
		ctx.Patch = true
	}
	if c.linkVars[name] {
		ctx.Link = true
	}
	return ctx, !ctx.IsEmpty()
}

// IsReserved reports whether name is taken by the language itself.
func (c *Catalog) IsReserved(name string) bool {
	if _, ok := c.prims[name]; ok {
		return true
	}
	switch name {
	case "turtles", "turtle", "patches", "patch", "links", "link":
		return true
	}
	return c.constants[name] || c.keywords[name] || c.turtleVars[name] || c.patchVars[name] || c.linkVars[name]
}

// NewProcedurePrimitive describes a user-defined procedure taking arity inputs.
func NewProcedurePrimitive(name string, arity int, isCommand bool) *Primitive {
	p := &Primitive{
		Name:         name,
		IsCommand:    isCommand,
		Context:      AllContexts(),
		BlockContext: AllContexts(),
		AgentArg:     -1,
		defaultArgs:  arity,
		minArgs:      arity,
	}
	if !isCommand {
		p.Precedence = ReporterPrecedence
		p.Returns = Wildcard
	}
	for i := 0; i < arity; i++ {
		p.Right = append(p.Right, Arg{Types: []Type{Wildcard}})
	}
	return p
}
