package liquid

// Optimizer rewrites a tree in place, folding constant sub-trees bottom-up
// so parents see already-folded children. Folding evaluates through the
// same render behavior the renderer uses, with an empty store.
type Optimizer struct {
	renderer *Renderer
}

// NewOptimizer returns an optimizer that folds with r's semantics
// (falsiness policy, installed overrides).
func NewOptimizer(r *Renderer) *Optimizer {
	return &Optimizer{renderer: r}
}

// Optimize folds n and its descendants in place, reporting whether any
// rewrite occurred.
func (o *Optimizer) Optimize(n *Node, store Variable) (bool, error) {
	if n.IsLeaf() {
		return false, nil
	}
	changed := false
	for _, child := range n.Children {
		c, err := o.Optimize(child, store)
		if err != nil {
			return changed, err
		}
		changed = changed || c
	}
	if n.IsLeaf() {
		// A child rewrite collapsed this node already.
		return changed, nil
	}
	c, err := n.Type.Optimize(o, n, store)
	if err != nil {
		return changed, err
	}
	return changed || c, nil
}
