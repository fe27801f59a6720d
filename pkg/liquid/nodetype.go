package liquid

import "fmt"

// NodeKind is the coarse classification of a node type.
type NodeKind uint8

const (
	NodeVariable NodeKind = iota
	NodeTag
	NodeGroup
	NodeGroupDereference
	NodeArrayLiteral
	NodeOutput
	NodeArguments
	NodeQualifier
	NodeOperator
	NodeFilter
	NodeDotFilter
	NodeContextual
)

func (k NodeKind) String() string {
	switch k {
	case NodeVariable:
		return "variable"
	case NodeTag:
		return "tag"
	case NodeGroup:
		return "group"
	case NodeGroupDereference:
		return "group dereference"
	case NodeArrayLiteral:
		return "array literal"
	case NodeOutput:
		return "output"
	case NodeArguments:
		return "arguments"
	case NodeQualifier:
		return "qualifier"
	case NodeOperator:
		return "operator"
	case NodeFilter:
		return "filter"
	case NodeDotFilter:
		return "dot filter"
	case NodeContextual:
		return "contextual"
	}
	return "unknown"
}

// OptimizationScheme declares whether the optimizer may fold nodes of a
// type when their operands are constant.
type OptimizationScheme uint8

const (
	// OptimizeFull folds whenever every operand is a constant leaf.
	OptimizeFull OptimizationScheme = iota
	// OptimizeNone never folds.
	OptimizeNone
	// OptimizePartial folds under type-specific conditions via a custom
	// optimize function.
	OptimizePartial
)

// Behavior functions. Each node type carries a built-in default for the
// four operations; hosts may install UserRender/UserCompile to replace the
// defaults without defining a new type.
type (
	RenderFunc   func(r *Renderer, n *Node, store Variable) (Node, error)
	CompileFunc  func(c *Compiler, n *Node) error
	ValidateFunc func(p *Parser, n *Node) bool
	OptimizeFunc func(o *Optimizer, n *Node, store Variable) (bool, error)
)

// NodeType is an immutable, shared descriptor for one syntactic node kind:
// a tag, an operator, a filter, or one of the structural kinds. Many nodes
// reference one NodeType; instances are owned by a Dialect, frozen after
// registration, and safe to share across trees.
type NodeType struct {
	Kind   NodeKind
	Symbol string

	// MaxChildren bounds structural arity; -1 means unbounded.
	MaxChildren int

	Optimization OptimizationScheme

	// UserData is opaque host storage carried by the type.
	UserData any

	// UserRender and UserCompile, when set, replace the built-in render
	// and compile behavior for every node of this type.
	UserRender  RenderFunc
	UserCompile CompileFunc

	render   RenderFunc
	compile  CompileFunc
	validate ValidateFunc
	optimize OptimizeFunc
}

// NewNodeType builds a descriptor with default behavior: render yields Nil,
// compile pushes Nil, validate checks arity, optimize folds per the scheme.
func NewNodeType(kind NodeKind, symbol string, maxChildren int, scheme OptimizationScheme) *NodeType {
	return &NodeType{Kind: kind, Symbol: symbol, MaxChildren: maxChildren, Optimization: scheme}
}

// Render produces the value this node evaluates to. The host override wins
// over the built-in default.
func (t *NodeType) Render(r *Renderer, n *Node, store Variable) (Node, error) {
	if t.UserRender != nil {
		return t.UserRender(r, n, store)
	}
	if t.render != nil {
		return t.render(r, n, store)
	}
	return Node{}, nil
}

// Compile lowers the node into the compiler's program.
func (t *NodeType) Compile(c *Compiler, n *Node) error {
	if t.UserCompile != nil {
		return t.UserCompile(c, n)
	}
	if t.compile != nil {
		return t.compile(c, n)
	}
	// Types without bespoke lowering evaluate through their render path.
	return c.compileApply(t, n)
}

// Validate checks node shape at parse time. The default accepts anything
// within the arity bound.
func (t *NodeType) Validate(p *Parser, n *Node) bool {
	if t.validate != nil {
		return t.validate(p, n)
	}
	return t.MaxChildren < 0 || t.GetChildCount(n) <= t.MaxChildren
}

// Optimize attempts to fold the node in place, reporting whether a rewrite
// occurred. Children are assumed to have been optimized already.
func (t *NodeType) Optimize(o *Optimizer, n *Node, store Variable) (bool, error) {
	if t.optimize != nil {
		return t.optimize(o, n, store)
	}
	if t.Optimization != OptimizeFull {
		return false, nil
	}
	for _, child := range n.Children {
		if !isConstant(child) {
			return false, nil
		}
	}
	folded, err := t.Render(o.renderer, n, Variable{})
	if err != nil {
		return false, err
	}
	if !folded.IsLeaf() {
		return false, nil
	}
	n.Move(&folded)
	return true, nil
}

// isConstant reports whether a node can participate in a fold: a leaf, or
// an arguments block whose entries are all leaves.
func isConstant(n *Node) bool {
	if n.IsLeaf() {
		return true
	}
	if n.Type.Kind != NodeArguments {
		return false
	}
	for _, child := range n.Children {
		if !child.IsLeaf() {
			return false
		}
	}
	return true
}

// Argument/child numbering convention: a branch node may carry at most one
// Arguments-kind child block, conventionally its last child. Structural
// child indexes skip the block; argument indexes address the block's own
// children. A node with N structural children and an M-entry arguments
// block reports GetChildCount N and GetArgumentCount M.

func argumentsBlock(n *Node) *Node {
	for _, child := range n.Children {
		if child.Type != nil && child.Type.Kind == NodeArguments {
			return child
		}
	}
	return nil
}

// GetArgumentCount reports the number of entries in the node's arguments
// block, 0 when it has none.
func (t *NodeType) GetArgumentCount(n *Node) int {
	if args := argumentsBlock(n); args != nil {
		return len(args.Children)
	}
	return 0
}

// GetChildCount reports the number of structural children, excluding the
// arguments block.
func (t *NodeType) GetChildCount(n *Node) int {
	count := len(n.Children)
	if argumentsBlock(n) != nil {
		count--
	}
	return count
}

// GetArgument renders the idx'th entry of the node's arguments block.
// An out-of-range index is a contract violation and panics.
func (t *NodeType) GetArgument(r *Renderer, n *Node, store Variable, idx int) (Node, error) {
	args := argumentsBlock(n)
	if args == nil || idx < 0 || idx >= len(args.Children) {
		panic(fmt.Sprintf("liquid: argument %d out of range on %q", idx, t.Symbol))
	}
	return r.Evaluate(args.Children[idx], store)
}

// GetChild renders the idx'th structural child, skipping the arguments
// block. An out-of-range index is a contract violation and panics.
func (t *NodeType) GetChild(r *Renderer, n *Node, store Variable, idx int) (Node, error) {
	c := t.ChildAt(n, idx)
	return r.Evaluate(c, store)
}

// ChildAt returns the idx'th structural child without evaluating it.
func (t *NodeType) ChildAt(n *Node, idx int) *Node {
	if idx >= 0 {
		seen := 0
		for _, child := range n.Children {
			if child.Type != nil && child.Type.Kind == NodeArguments {
				continue
			}
			if seen == idx {
				return child
			}
			seen++
		}
	}
	panic(fmt.Sprintf("liquid: child %d out of range on %q", idx, t.Symbol))
}
