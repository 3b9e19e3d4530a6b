package model

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

// PreprocessContext is the vocabulary gathered from declarations alone:
// breed names, breed variables and procedure names with their arity. Every
// name maps to the id of the session that declared it.
type PreprocessContext struct {
	PluralBreeds    map[string]int `msgpack:"plural"`
	SingularBreeds  map[string]int `msgpack:"singular"`
	LinkBreeds      map[string]int `msgpack:"links"`
	BreedVars       map[string]int `msgpack:"breed_vars"`
	Commands        map[string]int `msgpack:"commands"`
	Reporters       map[string]int `msgpack:"reporters"`
	CommandsOrigin  map[string]int `msgpack:"commands_origin"`
	ReportersOrigin map[string]int `msgpack:"reporters_origin"`
}

func NewPreprocessContext() *PreprocessContext {
	c := &PreprocessContext{}
	c.Clear()
	return c
}

// Clear empties every map.
func (c *PreprocessContext) Clear() {
	c.PluralBreeds = map[string]int{}
	c.SingularBreeds = map[string]int{}
	c.LinkBreeds = map[string]int{}
	c.BreedVars = map[string]int{}
	c.Commands = map[string]int{}
	c.Reporters = map[string]int{}
	c.CommandsOrigin = map[string]int{}
	c.ReportersOrigin = map[string]int{}
}

// Merge copies every entry of o into c. Later merges overwrite earlier ones.
func (c *PreprocessContext) Merge(o *PreprocessContext) {
	copyInto(c.PluralBreeds, o.PluralBreeds)
	copyInto(c.SingularBreeds, o.SingularBreeds)
	copyInto(c.LinkBreeds, o.LinkBreeds)
	copyInto(c.BreedVars, o.BreedVars)
	copyInto(c.Commands, o.Commands)
	copyInto(c.Reporters, o.Reporters)
	copyInto(c.CommandsOrigin, o.CommandsOrigin)
	copyInto(c.ReportersOrigin, o.ReportersOrigin)
}

func copyInto(dst, src map[string]int) {
	for k, v := range src {
		dst[k] = v
	}
}

func (c *PreprocessContext) CommandArity(name string) (int, bool) {
	n, ok := c.Commands[name]
	return n, ok
}

func (c *PreprocessContext) ReporterArity(name string) (int, bool) {
	n, ok := c.Reporters[name]
	return n, ok
}

// IsBreed reports whether name is a plural or singular breed name.
func (c *PreprocessContext) IsBreed(name string) bool {
	_, plural := c.PluralBreeds[name]
	_, singular := c.SingularBreeds[name]
	return plural || singular
}

// Fingerprint identifies the vocabulary; two contexts with equal content
// have equal fingerprints.
func (c *PreprocessContext) Fingerprint() string {
	b, err := encodeSorted(c)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Conflict records a name declared by two sessions of the same group.
type Conflict struct {
	Name  string `msgpack:"name"`
	Kind  string `msgpack:"kind"`
	Owner int    `msgpack:"owner"`
	Other int    `msgpack:"other"`
}

// LintContext is the full symbol table of a document or session group.
type LintContext struct {
	Extensions    map[string]int        `msgpack:"extensions"`
	Globals       map[string]int        `msgpack:"globals"`
	WidgetGlobals map[string]int        `msgpack:"widget_globals"`
	Breeds        map[string]*Breed     `msgpack:"breeds"`
	Procedures    map[string]*Procedure `msgpack:"procedures"`
	Conflicts     []Conflict            `msgpack:"conflicts"`

	// Incomplete is set when part of the source could not be parsed.
	Incomplete bool `msgpack:"incomplete"`
}

func NewLintContext() *LintContext {
	c := &LintContext{}
	c.Clear()
	return c
}

func (c *LintContext) Clear() {
	c.Extensions = map[string]int{}
	c.Globals = map[string]int{}
	c.WidgetGlobals = map[string]int{}
	c.Breeds = map[string]*Breed{}
	c.Procedures = map[string]*Procedure{}
	c.Conflicts = nil
	c.Incomplete = false
}

// Merge copies o into c, last writer wins. A global, breed or procedure
// already owned by a different session is recorded as a Conflict.
func (c *LintContext) Merge(o *LintContext) {
	copyInto(c.Extensions, o.Extensions)
	copyInto(c.WidgetGlobals, o.WidgetGlobals)

	for _, name := range sortedKeys(o.Globals) {
		id := o.Globals[name]
		if prev, ok := c.Globals[name]; ok && prev != id {
			c.Conflicts = append(c.Conflicts, Conflict{Name: name, Kind: "global", Owner: prev, Other: id})
		}
		c.Globals[name] = id
	}

	for _, plural := range sortedKeys(o.Breeds) {
		b := o.Breeds[plural]
		prev, ok := c.Breeds[plural]
		switch {
		case !ok:
			c.Breeds[plural] = b
		case !prev.Declared || !b.Declared:
			c.Breeds[plural] = combineBreeds(prev, b)
		default:
			if prev.SessionID != b.SessionID {
				c.Conflicts = append(c.Conflicts, Conflict{Name: plural, Kind: "breed", Owner: prev.SessionID, Other: b.SessionID})
			}
			c.Breeds[plural] = b
		}
	}

	for _, name := range sortedKeys(o.Procedures) {
		p := o.Procedures[name]
		if prev, ok := c.Procedures[name]; ok && prev.SessionID != p.SessionID {
			c.Conflicts = append(c.Conflicts, Conflict{Name: name, Kind: "procedure", Owner: prev.SessionID, Other: p.SessionID})
		}
		c.Procedures[name] = p
	}

	c.Incomplete = c.Incomplete || o.Incomplete
}

// combineBreeds joins a declared breed with own-only entries for it.
func combineBreeds(a, b *Breed) *Breed {
	base, extra := a, b
	if !a.Declared && b.Declared {
		base, extra = b, a
	}
	out := *base
	out.Variables = append([]string(nil), base.Variables...)
	for _, v := range extra.Variables {
		if !out.HasVariable(v) {
			out.Variables = append(out.Variables, v)
		}
	}
	return &out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SortedBreeds returns the breeds ordered by plural name.
func (c *LintContext) SortedBreeds() []*Breed {
	out := make([]*Breed, 0, len(c.Breeds))
	for _, k := range sortedKeys(c.Breeds) {
		out = append(out, c.Breeds[k])
	}
	return out
}

// BreedNames returns every singular and plural breed name, sorted.
func (c *LintContext) BreedNames() []string {
	var out []string
	for _, b := range c.Breeds {
		out = append(out, b.Plural)
		if b.Singular != "" {
			out = append(out, b.Singular)
		}
	}
	sort.Strings(out)
	return out
}

func (c *LintContext) PluralBreedNames() []string {
	return sortedKeys(c.Breeds)
}

// BreedVariables returns the variables owned by any breed, sorted and unique.
func (c *LintContext) BreedVariables() []string {
	seen := map[string]bool{}
	var out []string
	for _, b := range c.Breeds {
		for _, v := range b.Variables {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	sort.Strings(out)
	return out
}

// BreedByName finds a breed by its plural or singular name.
func (c *LintContext) BreedByName(name string) (*Breed, bool) {
	if b, ok := c.Breeds[name]; ok {
		return b, true
	}
	for _, b := range c.SortedBreeds() {
		if b.Singular == name {
			return b, true
		}
	}
	return nil, false
}

// BreedFromVariable returns the first breed, by plural name, owning variable.
func (c *LintContext) BreedFromVariable(variable string) (*Breed, bool) {
	for _, b := range c.SortedBreeds() {
		if b.HasVariable(variable) {
			return b, true
		}
	}
	return nil, false
}

// BreedFromProcedure returns the breed whose name is the longest one
// contained in a breed-derived primitive name such as "hatch-wolves".
func (c *LintContext) BreedFromProcedure(term string) (*Breed, bool) {
	var best *Breed
	bestLen := 0
	for _, b := range c.SortedBreeds() {
		for _, name := range []string{b.Plural, b.Singular} {
			if name != "" && len(name) > bestLen && strings.Contains(term, name) {
				best, bestLen = b, len(name)
			}
		}
	}
	return best, best != nil
}

// ProcedureAt returns the named procedure whose range contains pos.
func (c *LintContext) ProcedureAt(pos int) *Procedure {
	for _, name := range sortedKeys(c.Procedures) {
		if p := c.Procedures[name]; p.Contains(pos) {
			return p
		}
	}
	return nil
}

// CodeBlockAt returns the innermost code block containing pos.
func (c *LintContext) CodeBlockAt(pos int) *CodeBlock {
	p := c.ProcedureAt(pos)
	if p == nil {
		return nil
	}
	return blockIn(p, pos)
}

func blockIn(p *Procedure, pos int) *CodeBlock {
	for _, anon := range p.AnonymousProcedures {
		if anon.Contains(pos) {
			if b := blockIn(anon, pos); b != nil {
				return b
			}
		}
	}
	return innermostBlock(p.CodeBlocks, pos)
}

func innermostBlock(blocks []*CodeBlock, pos int) *CodeBlock {
	for _, b := range blocks {
		if b.Contains(pos) {
			if inner := innermostBlock(b.CodeBlocks, pos); inner != nil {
				return inner
			}
			return b
		}
	}
	return nil
}

// Binding is the resolution of a local name.
type Binding struct {
	// Procedure is the named procedure containing the use.
	Procedure *Procedure
	// Scope is the procedure, possibly anonymous, declaring the name.
	Scope *Procedure

	Variable *LocalVariable
	Argument bool
}

// ResolveLocal resolves name used at pos to an argument or let variable.
// Arguments win over locals, locals must be created at or before pos, and
// anonymous procedures containing pos are searched outward to inward.
func (c *LintContext) ResolveLocal(name string, pos int) (Binding, bool) {
	p := c.ProcedureAt(pos)
	if p == nil {
		return Binding{}, false
	}
	b, ok := resolveIn(p, name, pos)
	b.Procedure = p
	return b, ok
}

func resolveIn(p *Procedure, name string, pos int) (Binding, bool) {
	if p.HasArgument(name) {
		return Binding{Scope: p, Argument: true}, true
	}
	if v := localIn(p.Variables, p.CodeBlocks, name, pos); v != nil {
		return Binding{Scope: p, Variable: v}, true
	}
	for _, anon := range p.AnonymousProcedures {
		if anon.Contains(pos) {
			if b, ok := resolveIn(anon, name, pos); ok {
				return b, true
			}
		}
	}
	return Binding{}, false
}

func localIn(vars []LocalVariable, blocks []*CodeBlock, name string, pos int) *LocalVariable {
	for i := range vars {
		if vars[i].Name == name && vars[i].CreationPos <= pos {
			return &vars[i]
		}
	}
	for _, b := range blocks {
		if b.Contains(pos) {
			if v := localIn(b.Variables, b.CodeBlocks, name, pos); v != nil {
				return v
			}
		}
	}
	return nil
}

// LocalsAt returns the arguments and let variables visible at pos, sorted.
func (c *LintContext) LocalsAt(pos int) []string {
	p := c.ProcedureAt(pos)
	if p == nil {
		return nil
	}
	seen := map[string]bool{}
	localsIn(p, pos, seen)
	return sortedKeys(seen)
}

func localsIn(p *Procedure, pos int, seen map[string]bool) {
	for _, a := range p.Arguments {
		seen[a] = true
	}
	visibleVariables(p.Variables, p.CodeBlocks, pos, seen)
	for _, anon := range p.AnonymousProcedures {
		if anon.Contains(pos) {
			localsIn(anon, pos, seen)
		}
	}
}

func visibleVariables(vars []LocalVariable, blocks []*CodeBlock, pos int, seen map[string]bool) {
	for _, v := range vars {
		if v.CreationPos <= pos {
			seen[v.Name] = true
		}
	}
	for _, b := range blocks {
		if b.Contains(pos) {
			visibleVariables(b.Variables, b.CodeBlocks, pos, seen)
		}
	}
}

// ProcedureFromVariable returns the procedure, possibly anonymous, whose
// range contains [from, to) and which declares name as an argument or local.
func (c *LintContext) ProcedureFromVariable(name string, from, to int) (*Procedure, bool) {
	b, ok := c.ResolveLocal(name, from)
	if !ok || !b.Scope.Contains(from) || to > b.Scope.PositionEnd {
		return nil, false
	}
	return b.Scope, true
}

// Snapshot encodes the context deterministically.
func (c *LintContext) Snapshot() ([]byte, error) {
	b, err := encodeSorted(c)
	if err != nil {
		return nil, fmt.Errorf("model: snapshot: %w", err)
	}
	return b, nil
}

func encodeSorted(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// The encoder only sorts the keys of a few map types, so the contexts write
// their maps themselves, keys ascending.

var (
	_ msgpack.CustomEncoder = (*PreprocessContext)(nil)
	_ msgpack.CustomEncoder = (*LintContext)(nil)
)

func (c *PreprocessContext) EncodeMsgpack(enc *msgpack.Encoder) error {
	fields := []struct {
		name string
		m    map[string]int
	}{
		{"plural", c.PluralBreeds},
		{"singular", c.SingularBreeds},
		{"links", c.LinkBreeds},
		{"breed_vars", c.BreedVars},
		{"commands", c.Commands},
		{"reporters", c.Reporters},
		{"commands_origin", c.CommandsOrigin},
		{"reporters_origin", c.ReportersOrigin},
	}
	if err := enc.EncodeMapLen(len(fields)); err != nil {
		return err
	}
	for _, f := range fields {
		if err := enc.EncodeString(f.name); err != nil {
			return err
		}
		if err := encodeMap(enc, f.m, enc.EncodeInt64, func(v int) int64 { return int64(v) }); err != nil {
			return err
		}
	}
	return nil
}

func (c *LintContext) EncodeMsgpack(enc *msgpack.Encoder) error {
	if err := enc.EncodeMapLen(7); err != nil {
		return err
	}
	ints := []struct {
		name string
		m    map[string]int
	}{
		{"extensions", c.Extensions},
		{"globals", c.Globals},
		{"widget_globals", c.WidgetGlobals},
	}
	for _, f := range ints {
		if err := enc.EncodeString(f.name); err != nil {
			return err
		}
		if err := encodeMap(enc, f.m, enc.EncodeInt64, func(v int) int64 { return int64(v) }); err != nil {
			return err
		}
	}

	if err := enc.EncodeString("breeds"); err != nil {
		return err
	}
	if err := encodeMap(enc, c.Breeds, enc.Encode, func(b *Breed) any { return b }); err != nil {
		return err
	}
	if err := enc.EncodeString("procedures"); err != nil {
		return err
	}
	if err := encodeMap(enc, c.Procedures, enc.Encode, func(p *Procedure) any { return p }); err != nil {
		return err
	}

	if err := enc.EncodeString("conflicts"); err != nil {
		return err
	}
	if err := enc.Encode(c.Conflicts); err != nil {
		return err
	}
	if err := enc.EncodeString("incomplete"); err != nil {
		return err
	}
	return enc.EncodeBool(c.Incomplete)
}

// encodeMap writes m with its keys in ascending order, each value converted
// by conv and written by put.
func encodeMap[V, W any](enc *msgpack.Encoder, m map[string]V, put func(W) error, conv func(V) W) error {
	if err := enc.EncodeMapLen(len(m)); err != nil {
		return err
	}
	for _, k := range sortedKeys(m) {
		if err := enc.EncodeString(k); err != nil {
			return err
		}
		if err := put(conv(m[k])); err != nil {
			return err
		}
	}
	return nil
}
