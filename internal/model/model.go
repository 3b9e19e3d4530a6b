// Package model holds the semantic contexts built from a document: the
// declaration-only PreprocessContext and the full LintContext.
package model

import (
	"github.com/jward/meadow/internal/lang"
)

// AgentContexts is re-exported for callers that only import model.
type AgentContexts = lang.AgentContexts

// BreedType distinguishes turtle, patch and link breeds.
type BreedType uint8

const (
	BreedTurtle BreedType = iota
	BreedPatch
	BreedUndirectedLink
	BreedDirectedLink
)

func (t BreedType) String() string {
	switch t {
	case BreedTurtle:
		return "turtle"
	case BreedPatch:
		return "patch"
	case BreedUndirectedLink:
		return "undirected-link"
	case BreedDirectedLink:
		return "directed-link"
	}
	return "unknown"
}

func (t BreedType) IsLink() bool {
	return t == BreedUndirectedLink || t == BreedDirectedLink
}

// Breed is a declared or implicit agent breed.
type Breed struct {
	Singular  string    `msgpack:"singular"`
	Plural    string    `msgpack:"plural"`
	Variables []string  `msgpack:"variables"`
	BreedType BreedType `msgpack:"type"`
	SessionID int       `msgpack:"session"`

	// Declared is false for entries created only from an own block naming
	// a breed that another session declares.
	Declared bool `msgpack:"declared"`
}

// HasVariable reports whether the breed owns name.
func (b *Breed) HasVariable(name string) bool {
	for _, v := range b.Variables {
		if v == name {
			return true
		}
	}
	return false
}

// LocalVariable is a let binding.
type LocalVariable struct {
	Name        string    `msgpack:"name"`
	Type        lang.Type `msgpack:"type"`
	CreationPos int       `msgpack:"pos"`
}

// CodeBlock is a bracketed block passed to a primitive.
type CodeBlock struct {
	PositionStart        int             `msgpack:"start"`
	PositionEnd          int             `msgpack:"end"`
	Context              AgentContexts   `msgpack:"context"`
	CodeBlocks           []*CodeBlock    `msgpack:"blocks"`
	Variables            []LocalVariable `msgpack:"variables"`
	Arguments            []string        `msgpack:"arguments"`
	Primitive            string          `msgpack:"primitive"`
	Breed                string          `msgpack:"breed"`
	InheritParentContext bool            `msgpack:"inherit"`
}

// Procedure is a named procedure or an anonymous one.
type Procedure struct {
	Name                string          `msgpack:"name"`
	Arguments           []string        `msgpack:"arguments"`
	Variables           []LocalVariable `msgpack:"variables"`
	AnonymousProcedures []*Procedure    `msgpack:"anonymous"`
	PositionStart       int             `msgpack:"start"`
	PositionEnd         int             `msgpack:"end"`
	IsCommand           bool            `msgpack:"command"`
	IsAnonymous         bool            `msgpack:"anon"`
	Context             AgentContexts   `msgpack:"context"`
	CodeBlocks          []*CodeBlock    `msgpack:"blocks"`
	SessionID           int             `msgpack:"session"`
}

// Contains reports whether pos lies in the procedure's range.
func (p *Procedure) Contains(pos int) bool {
	return p.PositionStart <= pos && pos < p.PositionEnd
}

// HasArgument reports whether name is one of the procedure's arguments.
func (p *Procedure) HasArgument(name string) bool {
	for _, a := range p.Arguments {
		if a == name {
			return true
		}
	}
	return false
}

func (b *CodeBlock) Contains(pos int) bool {
	return b.PositionStart <= pos && pos < b.PositionEnd
}
