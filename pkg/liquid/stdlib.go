package liquid

import (
	"math"
	"strings"
)

// DefaultDialect builds the standard template language: arithmetic,
// comparison and logical operators, the common filters, and the assign,
// if and for tags.
func DefaultDialect() *Dialect {
	d := NewDialect()

	d.RegisterOperator("or", 1, func(r *Renderer, a, b Variant) (Variant, error) {
		return Bool(r.Truthy(a) || r.Truthy(b)), nil
	})
	d.RegisterOperator("and", 2, func(r *Renderer, a, b Variant) (Variant, error) {
		return Bool(r.Truthy(a) && r.Truthy(b)), nil
	})

	d.RegisterOperator("==", 3, func(r *Renderer, a, b Variant) (Variant, error) {
		return Bool(a.Equal(b)), nil
	})
	d.RegisterOperator("!=", 3, func(r *Renderer, a, b Variant) (Variant, error) {
		return Bool(!a.Equal(b)), nil
	})
	d.RegisterOperator("<", 3, func(r *Renderer, a, b Variant) (Variant, error) {
		return Bool(a.Less(b)), nil
	})
	d.RegisterOperator(">", 3, func(r *Renderer, a, b Variant) (Variant, error) {
		return Bool(b.Less(a)), nil
	})
	d.RegisterOperator("<=", 3, func(r *Renderer, a, b Variant) (Variant, error) {
		return Bool(!b.Less(a)), nil
	})
	d.RegisterOperator(">=", 3, func(r *Renderer, a, b Variant) (Variant, error) {
		return Bool(!a.Less(b)), nil
	})
	d.RegisterOperator("contains", 3, func(r *Renderer, a, b Variant) (Variant, error) {
		if a.Kind() == KindArray {
			for _, item := range a.Items() {
				if item.Equal(b) {
					return Bool(true), nil
				}
			}
			return Bool(false), nil
		}
		return Bool(strings.Contains(a.GetString(), b.GetString())), nil
	})

	d.RegisterOperator("+", 4, arithmetic(
		func(a, b int64) (int64, error) { return a + b, nil },
		func(a, b float64) (float64, error) { return a + b, nil }))
	d.RegisterOperator("-", 4, arithmetic(
		func(a, b int64) (int64, error) { return a - b, nil },
		func(a, b float64) (float64, error) { return a - b, nil }))
	d.RegisterOperator("*", 5, arithmetic(
		func(a, b int64) (int64, error) { return a * b, nil },
		func(a, b float64) (float64, error) { return a * b, nil }))
	d.RegisterOperator("/", 5, arithmetic(
		func(a, b int64) (int64, error) {
			if b == 0 {
				return 0, Errorf(ErrRender, "division by zero")
			}
			return a / b, nil
		},
		func(a, b float64) (float64, error) { return a / b, nil }))
	d.RegisterOperator("%", 5, arithmetic(
		func(a, b int64) (int64, error) {
			if b == 0 {
				return 0, Errorf(ErrRender, "modulo by zero")
			}
			return a % b, nil
		},
		func(a, b float64) (float64, error) { return math.Mod(a, b), nil }))

	d.RegisterUnaryOperator("-", func(r *Renderer, a Variant) (Variant, error) {
		if a.Kind() == KindFloat {
			return Float(-a.GetFloat()), nil
		}
		return Int(-a.GetInt()), nil
	})
	d.RegisterUnaryOperator("not", func(r *Renderer, a Variant) (Variant, error) {
		return Bool(!r.Truthy(a)), nil
	})

	registerDefaultFilters(d)
	registerDefaultTags(d)
	return d
}

func arithmetic(intOp func(a, b int64) (int64, error), floatOp func(a, b float64) (float64, error)) BinaryOpFunc {
	return func(r *Renderer, a, b Variant) (Variant, error) {
		if a.Kind() == KindFloat || b.Kind() == KindFloat {
			f, err := floatOp(a.GetFloat(), b.GetFloat())
			if err != nil {
				return Variant{}, err
			}
			return Float(f), nil
		}
		i, err := intOp(a.GetInt(), b.GetInt())
		if err != nil {
			return Variant{}, err
		}
		return Int(i), nil
	}
}

func registerDefaultFilters(d *Dialect) {
	size := func(r *Renderer, operand Variant, _ []Variant) (Variant, error) {
		switch operand.Kind() {
		case KindArray:
			return Int(int64(len(operand.Items()))), nil
		default:
			return Int(int64(len(operand.GetString()))), nil
		}
	}
	first := func(r *Renderer, operand Variant, _ []Variant) (Variant, error) {
		if items := operand.Items(); len(items) > 0 {
			return items[0], nil
		}
		return Variant{}, nil
	}
	last := func(r *Renderer, operand Variant, _ []Variant) (Variant, error) {
		if items := operand.Items(); len(items) > 0 {
			return items[len(items)-1], nil
		}
		return Variant{}, nil
	}

	d.RegisterFilter("upcase", 0, func(r *Renderer, operand Variant, _ []Variant) (Variant, error) {
		return String(strings.ToUpper(operand.GetString())), nil
	})
	d.RegisterFilter("downcase", 0, func(r *Renderer, operand Variant, _ []Variant) (Variant, error) {
		return String(strings.ToLower(operand.GetString())), nil
	})
	d.RegisterFilter("capitalize", 0, func(r *Renderer, operand Variant, _ []Variant) (Variant, error) {
		s := operand.GetString()
		if s == "" {
			return String(s), nil
		}
		return String(strings.ToUpper(s[:1]) + s[1:]), nil
	})
	d.RegisterFilter("strip", 0, func(r *Renderer, operand Variant, _ []Variant) (Variant, error) {
		return String(strings.TrimSpace(operand.GetString())), nil
	})
	d.RegisterFilter("size", 0, size)
	d.RegisterFilter("first", 0, first)
	d.RegisterFilter("last", 0, last)
	d.RegisterFilter("join", 1, func(r *Renderer, operand Variant, args []Variant) (Variant, error) {
		sep := ", "
		if len(args) > 0 {
			sep = args[0].GetString()
		}
		items := operand.Items()
		parts := make([]string, len(items))
		for i, item := range items {
			parts[i] = item.GetString()
		}
		return String(strings.Join(parts, sep)), nil
	})
	d.RegisterFilter("split", 1, func(r *Renderer, operand Variant, args []Variant) (Variant, error) {
		sep := " "
		if len(args) > 0 {
			sep = args[0].GetString()
		}
		parts := strings.Split(operand.GetString(), sep)
		items := make([]Variant, len(parts))
		for i, p := range parts {
			items[i] = String(p)
		}
		return Array(items...), nil
	})
	d.RegisterFilter("abs", 0, func(r *Renderer, operand Variant, _ []Variant) (Variant, error) {
		if operand.Kind() == KindFloat {
			return Float(math.Abs(operand.GetFloat())), nil
		}
		i := operand.GetInt()
		if i < 0 {
			i = -i
		}
		return Int(i), nil
	})
	d.RegisterFilter("plus", 1, numericFilter(func(a, b int64) int64 { return a + b }, func(a, b float64) float64 { return a + b }))
	d.RegisterFilter("minus", 1, numericFilter(func(a, b int64) int64 { return a - b }, func(a, b float64) float64 { return a - b }))
	d.RegisterFilter("times", 1, numericFilter(func(a, b int64) int64 { return a * b }, func(a, b float64) float64 { return a * b }))
	d.RegisterFilter("divided_by", 1, func(r *Renderer, operand Variant, args []Variant) (Variant, error) {
		var b Variant
		if len(args) > 0 {
			b = args[0]
		}
		if operand.Kind() == KindFloat || b.Kind() == KindFloat {
			return Float(operand.GetFloat() / b.GetFloat()), nil
		}
		if b.GetInt() == 0 {
			return Variant{}, Errorf(ErrRender, "divided_by: division by zero")
		}
		return Int(operand.GetInt() / b.GetInt()), nil
	})
	d.RegisterFilter("default", 1, func(r *Renderer, operand Variant, args []Variant) (Variant, error) {
		if operand.IsTruthy(Falsy0 | FalsyEmptyString | FalsyNil) {
			return operand, nil
		}
		if len(args) > 0 {
			return args[0], nil
		}
		return operand, nil
	})

	d.RegisterDotFilter("size", size)
	d.RegisterDotFilter("first", first)
	d.RegisterDotFilter("last", last)
}

func numericFilter(intOp func(a, b int64) int64, floatOp func(a, b float64) float64) FilterFunc {
	return func(r *Renderer, operand Variant, args []Variant) (Variant, error) {
		var b Variant
		if len(args) > 0 {
			b = args[0]
		}
		if operand.Kind() == KindFloat || b.Kind() == KindFloat {
			return Float(floatOp(operand.GetFloat(), b.GetFloat())), nil
		}
		return Int(intOp(operand.GetInt(), b.GetInt())), nil
	}
}

// --- tags ---

// Tag node shapes, by convention of the default parser:
//
//	assign: [leaf(name), arguments(value)]
//	if:     [scope(then), scope(else)?, arguments(condition)]
//	for:    [leaf(target), scope(body), arguments(iterable)]
func registerDefaultTags(d *Dialect) {
	d.RegisterTag(&NodeType{
		Kind: NodeTag, Symbol: "assign", MaxChildren: 1, Optimization: OptimizeNone,
		render:  renderAssign,
		compile: compileAssign,
		validate: func(p *Parser, n *Node) bool {
			return n.Type.GetChildCount(n) == 1 && n.Type.GetArgumentCount(n) == 1 && n.Type.ChildAt(n, 0).IsLeaf()
		},
	})
	d.RegisterTag(&NodeType{
		Kind: NodeTag, Symbol: "if", MaxChildren: 2, Optimization: OptimizePartial,
		render:   renderIf,
		compile:  compileIf,
		optimize: optimizeIf,
		validate: func(p *Parser, n *Node) bool {
			c := n.Type.GetChildCount(n)
			return (c == 1 || c == 2) && n.Type.GetArgumentCount(n) == 1
		},
	})
	d.RegisterTag(&NodeType{
		Kind: NodeTag, Symbol: "for", MaxChildren: 2, Optimization: OptimizeNone,
		render:  renderFor,
		compile: compileFor,
		validate: func(p *Parser, n *Node) bool {
			return n.Type.GetChildCount(n) == 2 && n.Type.GetArgumentCount(n) == 1 && n.Type.ChildAt(n, 0).IsLeaf()
		},
	})
}

func renderAssign(r *Renderer, n *Node, store Variable) (Node, error) {
	value, err := n.Type.GetArgument(r, n, store, 0)
	if err != nil {
		return Node{}, err
	}
	if r.Resolver != nil {
		if err := r.Resolver.Set(store, n.Type.ChildAt(n, 0).String(), value.Value); err != nil {
			return Node{}, ErrorfAt(ErrRender, n, "assign: %v", err)
		}
	}
	return Node{Value: String("")}, nil
}

func renderIf(r *Renderer, n *Node, store Variable) (Node, error) {
	cond, err := n.Type.GetArgument(r, n, store, 0)
	if err != nil {
		return Node{}, err
	}
	if r.Truthy(cond.Value) {
		return n.Type.GetChild(r, n, store, 0)
	}
	if n.Type.GetChildCount(n) > 1 {
		return n.Type.GetChild(r, n, store, 1)
	}
	return Node{Value: String("")}, nil
}

// optimizeIf folds a constant condition by promoting the taken branch in
// place of the whole tag. The branch need not itself be constant.
func optimizeIf(o *Optimizer, n *Node, store Variable) (bool, error) {
	args := argumentsBlock(n)
	if args == nil || len(args.Children) != 1 || !args.Children[0].IsLeaf() {
		return false, nil
	}
	taken := 0
	if !o.renderer.Truthy(args.Children[0].Value) {
		if n.Type.GetChildCount(n) < 2 {
			empty := Node{Value: String("")}
			n.Move(&empty)
			return true, nil
		}
		taken = 1
	}
	n.Move(n.Type.ChildAt(n, taken))
	return true, nil
}

func renderFor(r *Renderer, n *Node, store Variable) (Node, error) {
	iterable, err := n.Type.GetArgument(r, n, store, 0)
	if err != nil {
		return Node{}, err
	}
	items, ok := r.expand(iterable.Value)
	if !ok {
		return Node{Value: String("")}, nil
	}
	target := n.Type.ChildAt(n, 0).String()
	body := n.Type.ChildAt(n, 1)

	// Save and restore any shadowed binding.
	var prev Variant
	hadPrev := false
	if r.Resolver != nil {
		prev, hadPrev = r.Resolver.Lookup(store, []Variant{String(target)})
	}
	var b strings.Builder
	for _, item := range items {
		if r.Resolver != nil {
			if err := r.Resolver.Set(store, target, item); err != nil {
				return Node{}, ErrorfAt(ErrRender, n, "for: %v", err)
			}
		}
		out, err := r.Evaluate(body, store)
		if err != nil {
			return Node{}, err
		}
		b.WriteString(out.String())
	}
	if r.Resolver != nil && len(items) > 0 {
		restored := Variant{}
		if hadPrev {
			restored = prev
		}
		if err := r.Resolver.Set(store, target, restored); err != nil {
			return Node{}, ErrorfAt(ErrRender, n, "for: %v", err)
		}
	}
	return Node{Value: String(b.String())}, nil
}
