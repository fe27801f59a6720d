package liquid

// Renderer walks a parsed tree, dispatching branch nodes through their
// NodeType and concatenating the document's output. A renderer owns no
// tree state and may be reused across renders; a single tree must not be
// rendered concurrently with mutation.
type Renderer struct {
	// Resolver binds variable lookups to the host's store. A nil resolver
	// renders every variable as Nil.
	Resolver Resolver

	// Falsiness is the truthiness policy applied by conditionals and
	// logical operators. The default matches classic Liquid: only nil and
	// false are falsy.
	Falsiness Falsiness
}

// NewRenderer returns a renderer with Liquid truthiness over the given
// resolver.
func NewRenderer(resolver Resolver) *Renderer {
	return &Renderer{Resolver: resolver, Falsiness: FalsyNil}
}

// Render evaluates a document tree to its output text.
func (r *Renderer) Render(root *Node, store Variable) (string, error) {
	out, err := r.Evaluate(root, store)
	if err != nil {
		return "", err
	}
	return out.String(), nil
}

// Evaluate produces the value a node evaluates to: a leaf evaluates to
// itself, a branch through its type's render behavior. Expression node
// kinds must come back as leaves.
func (r *Renderer) Evaluate(n *Node, store Variable) (Node, error) {
	if n.IsLeaf() {
		return Node{Value: n.Value, Line: n.Line, Column: n.Column}, nil
	}
	out, err := n.Type.Render(r, n, store)
	if err != nil {
		return Node{}, err
	}
	if !out.IsLeaf() {
		return Node{}, ErrorfAt(ErrRender, n, "%s %q did not evaluate to a value", n.Type.Kind, n.Type.Symbol)
	}
	return out, nil
}

// Truthy applies the renderer's falsiness policy.
func (r *Renderer) Truthy(v Variant) bool { return v.IsTruthy(r.Falsiness) }

// expand turns a value into iterable elements. Arrays expand directly;
// everything else is offered to the host resolver.
func (r *Renderer) expand(v Variant) ([]Variant, bool) {
	if v.Kind() == KindArray {
		return v.Items(), true
	}
	if r.Resolver != nil {
		return r.Resolver.Iterate(v)
	}
	return nil, false
}
