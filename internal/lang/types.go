package lang

import (
	"fmt"
	"strings"
)

// Type is the value type of an argument, a reporter result or a local variable.
type Type uint8

const (
	Unit Type = iota
	Wildcard
	String
	Number
	List
	Boolean
	Agent
	AgentSet
	Nobody
	Turtle
	Patch
	Link
	CommandBlock
	CodeBlock
	NumberBlock
	Reporter
	Symbol
	LinkSet
	ReporterBlock
	BooleanBlock
	Command
	Other
	TurtleSet
	PatchSet
)

var typeNames = [...]string{
	Unit:          "unit",
	Wildcard:      "anything",
	String:        "string",
	Number:        "number",
	List:          "list",
	Boolean:       "boolean",
	Agent:         "agent",
	AgentSet:      "agentset",
	Nobody:        "nobody",
	Turtle:        "turtle",
	Patch:         "patch",
	Link:          "link",
	CommandBlock:  "commandblock",
	CodeBlock:     "codeblock",
	NumberBlock:   "numberblock",
	Reporter:      "reporter",
	Symbol:        "symbol",
	LinkSet:       "linkset",
	ReporterBlock: "reporterblock",
	BooleanBlock:  "booleanblock",
	Command:       "command",
	Other:         "other",
	TurtleSet:     "turtleset",
	PatchSet:      "patchset",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("Type(%d)", t)
}

// ParseType maps a catalog type name to a Type.
func ParseType(s string) (Type, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return Unit, nil
	}
	for i, name := range typeNames {
		if name == s {
			return Type(i), nil
		}
	}
	return Other, fmt.Errorf("unknown type %q", s)
}

// IsBlock reports whether values of this type are written as a bracketed block.
func (t Type) IsBlock() bool {
	switch t {
	case CommandBlock, ReporterBlock, BooleanBlock, NumberBlock, CodeBlock:
		return true
	}
	return false
}

// AgentKind returns the agent kinds a value of this type can denote.
// The second result is false for non-agent types.
func (t Type) AgentKind() (AgentContexts, bool) {
	switch t {
	case Turtle, TurtleSet:
		return AgentContexts{Turtle: true}, true
	case Patch, PatchSet:
		return AgentContexts{Patch: true}, true
	case Link, LinkSet:
		return AgentContexts{Link: true}, true
	case Agent, AgentSet:
		return ParseAgentContexts("?"), true
	}
	return AgentContexts{}, false
}

// Arg is one input slot of a primitive.
type Arg struct {
	Types    []Type
	Repeat   bool
	Optional bool
}

// Accepts reports whether t is one of the slot's types.
func (a Arg) Accepts(t Type) bool {
	for _, at := range a.Types {
		if at == t {
			return true
		}
	}
	return false
}

// parseArg parses the catalog notation "number|list*" or "commandblock?".
func parseArg(s string) (Arg, error) {
	var a Arg
	switch {
	case strings.HasSuffix(s, "*"):
		a.Repeat = true
		s = strings.TrimSuffix(s, "*")
	case strings.HasSuffix(s, "?"):
		a.Optional = true
		s = strings.TrimSuffix(s, "?")
	}
	for _, part := range strings.Split(s, "|") {
		t, err := ParseType(part)
		if err != nil {
			return Arg{}, err
		}
		a.Types = append(a.Types, t)
	}
	return a, nil
}
