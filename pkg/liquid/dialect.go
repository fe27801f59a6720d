package liquid

import "strings"

// BinaryOpFunc applies a binary operator to two evaluated operands.
type BinaryOpFunc func(r *Renderer, a, b Variant) (Variant, error)

// UnaryOpFunc applies a unary operator to one evaluated operand.
type UnaryOpFunc func(r *Renderer, a Variant) (Variant, error)

// FilterFunc applies a filter to an evaluated operand and its arguments.
type FilterFunc func(r *Renderer, operand Variant, args []Variant) (Variant, error)

type operatorInfo struct {
	precedence int
	apply      BinaryOpFunc
	applyUnary UnaryOpFunc
}

type filterInfo struct {
	apply FilterFunc
}

// Dialect owns the NodeType instances of one template language flavor:
// registered tags, operators and filters plus the structural singletons
// every parse needs. Instances are shared by every tree parsed against the
// dialect and must not be mutated once parsing starts.
type Dialect struct {
	operators  map[string]*NodeType
	unary      map[string]*NodeType
	filters    map[string]*NodeType
	dotFilters map[string]*NodeType
	tags       map[string]*NodeType

	// Structural singletons.
	Document     *NodeType // root; concatenates its children
	Scope        *NodeType // tag body; concatenates its children
	Output       *NodeType // {{ ... }}
	Group        *NodeType // parenthesized expression
	Dereference  *NodeType // bracket index inside a variable path
	ArrayLiteral *NodeType
	Arguments    *NodeType
	Path         *NodeType // variable path
}

// NewDialect returns an empty dialect carrying only the structural types.
func NewDialect() *Dialect {
	d := &Dialect{
		operators:  map[string]*NodeType{},
		unary:      map[string]*NodeType{},
		filters:    map[string]*NodeType{},
		dotFilters: map[string]*NodeType{},
		tags:       map[string]*NodeType{},
	}
	d.Document = &NodeType{Kind: NodeTag, Symbol: "document", MaxChildren: -1, Optimization: OptimizeNone,
		render: renderConcat, compile: compileConcat}
	d.Scope = &NodeType{Kind: NodeGroup, Symbol: "scope", MaxChildren: -1, Optimization: OptimizeNone,
		render: renderConcat, compile: compileConcat}
	d.Output = &NodeType{Kind: NodeOutput, Symbol: "output", MaxChildren: 1, Optimization: OptimizeFull,
		render: renderFirstChild, compile: compileFirstChild}
	d.Group = &NodeType{Kind: NodeGroup, Symbol: "(", MaxChildren: 1, Optimization: OptimizeFull,
		render: renderFirstChild, compile: compileFirstChild}
	d.Dereference = &NodeType{Kind: NodeGroupDereference, Symbol: "[", MaxChildren: 1, Optimization: OptimizeFull,
		render: renderFirstChild, compile: compileFirstChild}
	d.ArrayLiteral = &NodeType{Kind: NodeArrayLiteral, Symbol: "array", MaxChildren: -1, Optimization: OptimizeFull,
		render: renderArrayLiteral, compile: compileArrayLiteral}
	d.Arguments = &NodeType{Kind: NodeArguments, Symbol: "arguments", MaxChildren: -1, Optimization: OptimizeNone}
	d.Path = &NodeType{Kind: NodeVariable, Symbol: "path", MaxChildren: -1, Optimization: OptimizeNone,
		render: renderPath, compile: compilePath}
	return d
}

// RegisterOperator installs a binary operator with the given precedence
// (higher binds tighter) and returns its shared type.
func (d *Dialect) RegisterOperator(symbol string, precedence int, apply BinaryOpFunc) *NodeType {
	t := &NodeType{Kind: NodeOperator, Symbol: symbol, MaxChildren: 2, Optimization: OptimizeFull,
		UserData: &operatorInfo{precedence: precedence, apply: apply},
		render:   renderOperator, validate: validateOperator}
	d.operators[symbol] = t
	return t
}

// RegisterUnaryOperator installs a prefix operator.
func (d *Dialect) RegisterUnaryOperator(symbol string, apply UnaryOpFunc) *NodeType {
	t := &NodeType{Kind: NodeOperator, Symbol: symbol, MaxChildren: 1, Optimization: OptimizeFull,
		UserData: &operatorInfo{applyUnary: apply},
		render:   renderOperator, validate: validateOperator}
	d.unary[symbol] = t
	return t
}

// RegisterFilter installs a filter reachable through the pipe syntax.
// maxArgs bounds the argument list; -1 means unbounded.
func (d *Dialect) RegisterFilter(symbol string, maxArgs int, apply FilterFunc) *NodeType {
	t := &NodeType{Kind: NodeFilter, Symbol: symbol, MaxChildren: 1, Optimization: OptimizeFull,
		UserData: &filterInfo{apply: apply},
		render:   renderFilter, validate: validateArgBound(maxArgs)}
	d.filters[symbol] = t
	return t
}

// RegisterDotFilter installs a zero-argument filter reachable as a trailing
// path component, e.g. items.size.
func (d *Dialect) RegisterDotFilter(symbol string, apply FilterFunc) *NodeType {
	t := &NodeType{Kind: NodeDotFilter, Symbol: symbol, MaxChildren: 1, Optimization: OptimizeFull,
		UserData: &filterInfo{apply: apply},
		render:   renderFilter, validate: validateArgBound(0)}
	d.dotFilters[symbol] = t
	return t
}

// RegisterTag installs a tag type. Behavior is supplied through the type's
// function fields by the caller or via UserRender.
func (d *Dialect) RegisterTag(t *NodeType) *NodeType {
	d.tags[t.Symbol] = t
	return t
}

// Operator looks up a registered binary operator type.
func (d *Dialect) Operator(symbol string) *NodeType { return d.operators[symbol] }

// UnaryOperator looks up a registered prefix operator type.
func (d *Dialect) UnaryOperator(symbol string) *NodeType { return d.unary[symbol] }

// Filter looks up a registered filter type.
func (d *Dialect) Filter(symbol string) *NodeType { return d.filters[symbol] }

// DotFilter looks up a registered dot-filter type.
func (d *Dialect) DotFilter(symbol string) *NodeType { return d.dotFilters[symbol] }

// Tag looks up a registered tag type.
func (d *Dialect) Tag(symbol string) *NodeType { return d.tags[symbol] }

func (d *Dialect) operatorPrecedence(symbol string) (int, bool) {
	t, ok := d.operators[symbol]
	if !ok {
		return 0, false
	}
	return t.UserData.(*operatorInfo).precedence, true
}

// --- structural renders ---

func renderConcat(r *Renderer, n *Node, store Variable) (Node, error) {
	var b strings.Builder
	for _, child := range n.Children {
		out, err := r.Evaluate(child, store)
		if err != nil {
			return Node{}, err
		}
		b.WriteString(out.String())
	}
	return Node{Value: String(b.String())}, nil
}

func renderFirstChild(r *Renderer, n *Node, store Variable) (Node, error) {
	if len(n.Children) == 0 {
		return Node{}, nil
	}
	return r.Evaluate(n.Children[0], store)
}

func renderArrayLiteral(r *Renderer, n *Node, store Variable) (Node, error) {
	items := make([]Variant, 0, len(n.Children))
	for _, child := range n.Children {
		out, err := r.Evaluate(child, store)
		if err != nil {
			return Node{}, err
		}
		items = append(items, out.Value)
	}
	return Node{Value: Array(items...)}, nil
}

// renderPath resolves a variable path against the store. Leaf children are
// literal qualifiers; dereference children evaluate to dynamic indexes.
// Unknown variables resolve to Nil.
func renderPath(r *Renderer, n *Node, store Variable) (Node, error) {
	path := make([]Variant, 0, len(n.Children))
	for _, child := range n.Children {
		if child.IsLeaf() {
			path = append(path, child.Value)
			continue
		}
		out, err := r.Evaluate(child, store)
		if err != nil {
			return Node{}, err
		}
		path = append(path, out.Value)
	}
	if r.Resolver == nil {
		return Node{}, nil
	}
	value, ok := r.Resolver.Lookup(store, path)
	if !ok {
		return Node{}, nil
	}
	return Node{Value: value}, nil
}

// --- operators ---

func validateOperator(p *Parser, n *Node) bool {
	return len(n.Children) == n.Type.MaxChildren && argumentsBlock(n) == nil
}

func renderOperator(r *Renderer, n *Node, store Variable) (Node, error) {
	info := n.Type.UserData.(*operatorInfo)
	a, err := r.Evaluate(n.Children[0], store)
	if err != nil {
		return Node{}, err
	}
	if info.applyUnary != nil {
		out, err := info.applyUnary(r, a.Value)
		if err != nil {
			return Node{}, err
		}
		return Node{Value: out}, nil
	}
	b, err := r.Evaluate(n.Children[1], store)
	if err != nil {
		return Node{}, err
	}
	out, err := info.apply(r, a.Value, b.Value)
	if err != nil {
		return Node{}, err
	}
	return Node{Value: out}, nil
}

// --- filters ---

func validateArgBound(maxArgs int) ValidateFunc {
	return func(p *Parser, n *Node) bool {
		if n.Type.GetChildCount(n) != 1 {
			return false
		}
		return maxArgs < 0 || n.Type.GetArgumentCount(n) <= maxArgs
	}
}

func renderFilter(r *Renderer, n *Node, store Variable) (Node, error) {
	info := n.Type.UserData.(*filterInfo)
	operand, err := n.Type.GetChild(r, n, store, 0)
	if err != nil {
		return Node{}, err
	}
	args := make([]Variant, n.Type.GetArgumentCount(n))
	for i := range args {
		arg, err := n.Type.GetArgument(r, n, store, i)
		if err != nil {
			return Node{}, err
		}
		args[i] = arg.Value
	}
	out, err := info.apply(r, operand.Value, args)
	if err != nil {
		return Node{}, err
	}
	return Node{Value: out}, nil
}
