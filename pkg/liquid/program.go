package liquid

import (
	"fmt"
	"strings"
)

// Program is a compiled template: a linear instruction stream over a
// constant pool and a table of the node types it dispatches through.
// Programs are immutable once compiled; Run may be called concurrently
// with distinct stores.
type Program struct {
	code   []instr
	consts []Variant
	types  []*NodeType
}

type loopFrame struct {
	items   []Variant
	idx     int
	prev    Variant
	hadPrev bool
	accum   strings.Builder
}

// Run executes the program against a store, producing the same output the
// tree-walking renderer would for the source tree. The renderer supplies
// the resolver and falsiness policy.
func (p *Program) Run(r *Renderer, store Variable) (string, error) {
	var stack []Variant
	var frames []*loopFrame

	push := func(v Variant) { stack = append(stack, v) }
	pop := func() Variant {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		return v
	}
	popN := func(n int) []Variant {
		out := make([]Variant, n)
		copy(out, stack[len(stack)-n:])
		stack = stack[:len(stack)-n]
		return out
	}

	for pc := 0; pc < len(p.code); pc++ {
		in := p.code[pc]
		switch in.op {
		case opNop:
		case opConst:
			push(p.consts[in.a])
		case opLookup:
			path := popN(in.a)
			if r.Resolver == nil {
				push(Variant{})
				break
			}
			value, ok := r.Resolver.Lookup(store, path)
			if !ok {
				value = Variant{}
			}
			push(value)
		case opApply:
			t := p.types[in.a]
			var children []*Node
			var args []Variant
			if in.c >= 0 {
				args = popN(in.c)
			}
			for _, v := range popN(in.b) {
				children = append(children, Leaf(v))
			}
			if in.c >= 0 {
				entries := make([]*Node, len(args))
				for i, v := range args {
					entries[i] = Leaf(v)
				}
				children = append(children, Branch(applyArgumentsType, entries...))
			}
			out, err := t.Render(r, Branch(t, children...), store)
			if err != nil {
				return "", err
			}
			if !out.IsLeaf() {
				return "", Errorf(ErrCompile, "%s %q did not evaluate to a value", t.Kind, t.Symbol)
			}
			push(out.Value)
		case opArray:
			push(Array(popN(in.a)...))
		case opConcat:
			var b strings.Builder
			for _, v := range popN(in.a) {
				b.WriteString(v.GetString())
			}
			push(String(b.String()))
		case opJump:
			pc = in.a - 1
		case opJumpIfFalse:
			if !r.Truthy(pop()) {
				pc = in.a - 1
			}
		case opSetVar:
			value := pop()
			if r.Resolver != nil {
				if err := r.Resolver.Set(store, p.consts[in.a].GetString(), value); err != nil {
					return "", Errorf(ErrRender, "assign: %v", err)
				}
			}
		case opIter:
			items, _ := r.expand(pop())
			frame := &loopFrame{items: items}
			if r.Resolver != nil {
				frame.prev, frame.hadPrev = r.Resolver.Lookup(store, []Variant{p.consts[in.b]})
			}
			frames = append(frames, frame)
		case opNext:
			frame := frames[len(frames)-1]
			if frame.idx >= len(frame.items) {
				frames = frames[:len(frames)-1]
				// Restore any binding the loop variable shadowed, as the
				// tree renderer does.
				if r.Resolver != nil && len(frame.items) > 0 {
					restored := Variant{}
					if frame.hadPrev {
						restored = frame.prev
					}
					if err := r.Resolver.Set(store, p.consts[in.b].GetString(), restored); err != nil {
						return "", Errorf(ErrRender, "for: %v", err)
					}
				}
				push(String(frame.accum.String()))
				pc = in.a - 1
				break
			}
			item := frame.items[frame.idx]
			frame.idx++
			if r.Resolver != nil {
				if err := r.Resolver.Set(store, p.consts[in.b].GetString(), item); err != nil {
					return "", Errorf(ErrRender, "for: %v", err)
				}
			}
		case opAccum:
			frames[len(frames)-1].accum.WriteString(pop().GetString())
		default:
			return "", Errorf(ErrCompile, "bad instruction %s at %d", in.op, pc)
		}
	}
	if len(stack) != 1 {
		return "", Errorf(ErrCompile, "program left %d values on the stack", len(stack))
	}
	return stack[0].GetString(), nil
}

// Disassemble returns a line-oriented listing for inspection.
func (p *Program) Disassemble() string {
	var b strings.Builder
	for pc, in := range p.code {
		fmt.Fprintf(&b, "%4d  %-10s", pc, in.op)
		switch in.op {
		case opConst, opSetVar:
			fmt.Fprintf(&b, " %d (%s)", in.a, p.consts[in.a].GetString())
		case opApply:
			fmt.Fprintf(&b, " %s %q operands=%d args=%d", p.types[in.a].Kind, p.types[in.a].Symbol, in.b, in.c)
		case opLookup, opArray, opConcat, opJump:
			fmt.Fprintf(&b, " %d", in.a)
		case opJumpIfFalse:
			fmt.Fprintf(&b, " -> %d", in.a)
		case opIter:
			fmt.Fprintf(&b, " (%s)", p.consts[in.b].GetString())
		case opNext:
			fmt.Fprintf(&b, " -> %d (%s)", in.a, p.consts[in.b].GetString())
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// applyArgumentsType tags argument blocks reconstructed by opApply. Any
// Arguments-kind type works: the accessors key on the kind, not the
// instance.
var applyArgumentsType = &NodeType{Kind: NodeArguments, Symbol: "arguments", MaxChildren: -1, Optimization: OptimizeNone}
