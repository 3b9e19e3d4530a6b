package syntax

import "github.com/jward/meadow/internal/lang"

// Node is one element of a syntax tree. Ranges are half-open byte offsets.
type Node struct {
	Kind Kind
	From int
	To   int

	// Name is the lower-cased token text of leaves.
	Name string
	// Breed and Shape are set on breed-derived primitives and Own nodes.
	Breed string
	Shape lang.BreedShape

	// Parenthesized marks calls written as "(prim args...)".
	Parenthesized bool

	Parent   *Node
	Children []*Node
}

// Text returns the source covered by the node.
func (n *Node) Text(src string) string {
	if n.From < 0 || n.To > len(src) || n.From > n.To {
		return ""
	}
	return src[n.From:n.To]
}

// Contains reports whether [from, to) lies within the node.
func (n *Node) Contains(from, to int) bool {
	return n.From <= from && to <= n.To
}

// Child returns the first direct child of kind k.
func (n *Node) Child(k Kind) *Node {
	for _, c := range n.Children {
		if c.Kind == k {
			return c
		}
	}
	return nil
}

// ChildrenOf returns the direct children of kind k.
func (n *Node) ChildrenOf(k Kind) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Kind == k {
			out = append(out, c)
		}
	}
	return out
}

// CallName returns the name leaf of a call node, or nil.
func (n *Node) CallName() *Node {
	for _, c := range n.Children {
		if c.Kind.IsCallName() {
			return c
		}
	}
	return nil
}

// Args returns the inputs of a call node in source order, left input first
// for infix reporters. Name leaves and delimiters are excluded.
func (n *Node) Args() []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Kind.IsCallName() || c.Kind.IsDelimiter() {
			continue
		}
		out = append(out, c)
	}
	return out
}

// RightArgs returns the inputs written after the name leaf.
func (n *Node) RightArgs() []*Node {
	var out []*Node
	seen := false
	for _, c := range n.Children {
		if c.Kind.IsCallName() {
			seen = true
			continue
		}
		if seen && !c.Kind.IsDelimiter() {
			out = append(out, c)
		}
	}
	return out
}

// Walk visits n and its descendants depth-first. Returning false from fn
// skips the node's children.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Enclosing returns the nearest ancestor of kind k, or nil.
func (n *Node) Enclosing(k Kind) *Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.Kind == k {
			return p
		}
	}
	return nil
}

// Tree is the result of one parse.
type Tree struct {
	Root   *Node
	Source string

	// Truncated is set when the node budget ran out and the rest of the
	// source was wrapped in an Unparsed node.
	Truncated bool
	Nodes     int
}

// Path returns the chain of nodes from the root to the innermost node
// containing [from, to).
func (t *Tree) Path(from, to int) []*Node {
	if t == nil || t.Root == nil || !t.Root.Contains(from, to) {
		return nil
	}
	path := []*Node{t.Root}
	cur := t.Root
	for {
		var next *Node
		for _, c := range cur.Children {
			if c.Contains(from, to) {
				next = c
				break
			}
		}
		if next == nil {
			return path
		}
		path = append(path, next)
		cur = next
	}
}

// All returns every node of kind k in document order.
func (t *Tree) All(k Kind) []*Node {
	var out []*Node
	if t == nil || t.Root == nil {
		return nil
	}
	t.Root.Walk(func(n *Node) bool {
		if n.Kind == k {
			out = append(out, n)
		}
		return true
	})
	return out
}

// Vocabulary supplies the user-defined names a parse must know about before
// it can decide how many inputs a call consumes.
type Vocabulary interface {
	CommandArity(name string) (int, bool)
	ReporterArity(name string) (int, bool)
	IsBreed(name string) bool
}

// Provider turns source text into a syntax tree.
type Provider interface {
	Parse(src string, vocab Vocabulary) *Tree
}

type emptyVocabulary struct{}

func (emptyVocabulary) CommandArity(string) (int, bool)  { return 0, false }
func (emptyVocabulary) ReporterArity(string) (int, bool) { return 0, false }
func (emptyVocabulary) IsBreed(string) bool              { return false }
