package lang

import "strings"

// AgentContexts is the set of agent kinds a piece of code may run as.
type AgentContexts struct {
	Observer bool `yaml:"observer" msgpack:"o"`
	Turtle   bool `yaml:"turtle" msgpack:"t"`
	Patch    bool `yaml:"patch" msgpack:"p"`
	Link     bool `yaml:"link" msgpack:"l"`
}

// AllContexts returns the unrestricted set.
func AllContexts() AgentContexts {
	return AgentContexts{Observer: true, Turtle: true, Patch: true, Link: true}
}

// ParseAgentContexts parses the four-character OTPL notation. Position 0..3
// must hold O, T, P and L respectively to set the flag; any other character
// clears it. "?" means any non-observer agent and an empty string means all.
func ParseAgentContexts(s string) AgentContexts {
	switch s {
	case "":
		return AllContexts()
	case "?":
		return AgentContexts{Turtle: true, Patch: true, Link: true}
	}
	at := func(i int, want byte) bool {
		return i < len(s) && s[i] == want
	}
	return AgentContexts{
		Observer: at(0, 'O'),
		Turtle:   at(1, 'T'),
		Patch:    at(2, 'P'),
		Link:     at(3, 'L'),
	}
}

// Intersect returns the agents allowed by both sets.
func (c AgentContexts) Intersect(o AgentContexts) AgentContexts {
	return AgentContexts{
		Observer: c.Observer && o.Observer,
		Turtle:   c.Turtle && o.Turtle,
		Patch:    c.Patch && o.Patch,
		Link:     c.Link && o.Link,
	}
}

// Union returns the agents allowed by either set.
func (c AgentContexts) Union(o AgentContexts) AgentContexts {
	return AgentContexts{
		Observer: c.Observer || o.Observer,
		Turtle:   c.Turtle || o.Turtle,
		Patch:    c.Patch || o.Patch,
		Link:     c.Link || o.Link,
	}
}

func (c AgentContexts) IsEmpty() bool {
	return !c.Observer && !c.Turtle && !c.Patch && !c.Link
}

func (c AgentContexts) IsAll() bool {
	return c == AllContexts()
}

// String renders the OTPL notation, e.g. "-T--".
func (c AgentContexts) String() string {
	b := []byte("----")
	if c.Observer {
		b[0] = 'O'
	}
	if c.Turtle {
		b[1] = 'T'
	}
	if c.Patch {
		b[2] = 'P'
	}
	if c.Link {
		b[3] = 'L'
	}
	return string(b)
}

// Describe renders the set for humans, e.g. "turtle/patch".
func (c AgentContexts) Describe() string {
	var parts []string
	if c.Observer {
		parts = append(parts, "observer")
	}
	if c.Turtle {
		parts = append(parts, "turtle")
	}
	if c.Patch {
		parts = append(parts, "patch")
	}
	if c.Link {
		parts = append(parts, "link")
	}
	if len(parts) == 0 {
		return "no agent"
	}
	return strings.Join(parts, "/")
}
