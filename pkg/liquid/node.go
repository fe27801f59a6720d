package liquid

import "fmt"

// Node is one cell of a template syntax tree. It is either a leaf carrying
// a Variant value (Type == nil) or a branch of exclusively-owned children
// tagged with a shared NodeType. Line and column are carried for
// diagnostics regardless of shape.
//
// In the engine's original manually-managed encoding the two payloads
// shared storage and every discriminant transition had to destruct the old
// payload in place; here the garbage collector owns lifetime and the only
// invariant left is that exactly one of Value/Children is meaningful.
type Node struct {
	Type   *NodeType
	Line   int
	Column int

	Value    Variant // leaf payload, meaningful iff Type == nil
	Children []*Node // branch payload, meaningful iff Type != nil
}

// Leaf builds a leaf node holding v.
func Leaf(v Variant) *Node { return &Node{Value: v} }

// Branch builds a branch node of the given type over children.
func Branch(t *NodeType, children ...*Node) *Node {
	if t == nil {
		panic("liquid: Branch requires a NodeType")
	}
	return &Node{Type: t, Children: children}
}

// At stamps a source position onto the node and returns it.
func (n *Node) At(line, column int) *Node {
	n.Line = line
	n.Column = column
	return n
}

// IsLeaf reports whether the node carries a value rather than children.
func (n *Node) IsLeaf() bool { return n.Type == nil }

// String returns the leaf value's string form. Calling it on a branch is a
// contract violation and panics: it means the tree producer handed a
// structural node where a value was required.
func (n *Node) String() string {
	if n.Type != nil {
		panic(fmt.Sprintf("liquid: String called on %s branch node", n.Type.Kind))
	}
	return n.Value.GetString()
}

// Clone deep-copies the node. A branch clone duplicates every descendant;
// mutating the copy never affects the original.
func (n *Node) Clone() *Node {
	c := &Node{Type: n.Type, Line: n.Line, Column: n.Column}
	if n.Type != nil {
		c.Children = make([]*Node, len(n.Children))
		for i, child := range n.Children {
			c.Children[i] = child.Clone()
		}
	} else {
		c.Value = n.Value.Clone()
	}
	return c
}

// Move transfers src's payload into n, leaving src logically reset. It is
// safe when src is one of n's own descendants: the payload is extracted
// before n's storage is overwritten, so the subtree survives the transition.
func (n *Node) Move(src *Node) {
	typ, value, children := src.Type, src.Value, src.Children
	line, column := src.Line, src.Column
	src.Type = nil
	src.Value = Variant{}
	src.Children = nil
	n.Type = typ
	n.Value = value
	n.Children = children
	n.Line = line
	n.Column = column
}

// Walk visits the node and then, pre-order, every descendant.
func (n *Node) Walk(visit func(*Node)) {
	visit(n)
	if n.Type != nil {
		for _, child := range n.Children {
			child.Walk(visit)
		}
	}
}
