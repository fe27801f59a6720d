package liquid

import "fmt"

// Opcode bytes are frozen: a byte must never change meaning once assigned,
// so dumped programs stay readable across versions. Adding opcodes is fine.
type opcode uint8

const (
	opNop         opcode = 0x00
	opConst       opcode = 0x01 // push consts[a]
	opLookup      opcode = 0x02 // pop a path elements, resolve, push value
	opApply       opcode = 0x03 // pop operands, dispatch types[a].Render, push value
	opArray       opcode = 0x04 // pop a elements, push array
	opConcat      opcode = 0x05 // pop a values, push joined string form
	opJump        opcode = 0x06 // pc = a
	opJumpIfFalse opcode = 0x07 // pop cond; pc = a unless truthy
	opSetVar      opcode = 0x08 // pop value, bind consts[a] in the store
	opIter        opcode = 0x09 // pop iterable, open a loop frame saving consts[b]'s binding
	opNext        opcode = 0x0A // advance frame; bind consts[b]; exhausted: push accum, pc = a
	opAccum       opcode = 0x0B // pop value into the open frame's accumulator
)

func (o opcode) String() string {
	switch o {
	case opNop:
		return "nop"
	case opConst:
		return "const"
	case opLookup:
		return "lookup"
	case opApply:
		return "apply"
	case opArray:
		return "array"
	case opConcat:
		return "concat"
	case opJump:
		return "jump"
	case opJumpIfFalse:
		return "jumpfalse"
	case opSetVar:
		return "setvar"
	case opIter:
		return "iter"
	case opNext:
		return "next"
	case opAccum:
		return "accum"
	}
	return fmt.Sprintf("op(%#x)", uint8(o))
}

type instr struct {
	op      opcode
	a, b, c int
}

// Compiler lowers a Node tree into a Program: a linear instruction stream
// over a constant pool, where every node compiles to code that leaves
// exactly one value on the operand stack.
type Compiler struct {
	code      []instr
	consts    []Variant
	types     []*NodeType
	typeIndex map[*NodeType]int
}

// NewCompiler returns an empty compiler. A compiler may be reused; each
// Compile starts a fresh program.
func NewCompiler() *Compiler { return &Compiler{} }

// Compile lowers the tree rooted at root.
func (c *Compiler) Compile(root *Node) (*Program, error) {
	c.code = nil
	c.consts = nil
	c.types = nil
	c.typeIndex = map[*NodeType]int{}
	if err := c.CompileNode(root); err != nil {
		return nil, err
	}
	return &Program{code: c.code, consts: c.consts, types: c.types}, nil
}

// CompileNode emits code for one node: leaves push their value, branches
// lower through their type's compile behavior.
func (c *Compiler) CompileNode(n *Node) error {
	if n.IsLeaf() {
		c.emitConst(n.Value)
		return nil
	}
	return n.Type.Compile(c, n)
}

func (c *Compiler) emit(i instr) int {
	c.code = append(c.code, i)
	return len(c.code) - 1
}

func (c *Compiler) emitConst(v Variant) {
	c.emit(instr{op: opConst, a: c.constIndex(v)})
}

func (c *Compiler) constIndex(v Variant) int {
	for i := range c.consts {
		if c.consts[i].Kind() == v.Kind() && c.consts[i].Equal(v) {
			return i
		}
	}
	c.consts = append(c.consts, v)
	return len(c.consts) - 1
}

func (c *Compiler) typeIdx(t *NodeType) int {
	if i, ok := c.typeIndex[t]; ok {
		return i
	}
	c.types = append(c.types, t)
	c.typeIndex[t] = len(c.types) - 1
	return len(c.types) - 1
}

// patch retargets a previously emitted jump to the current pc.
func (c *Compiler) patch(pc int) { c.code[pc].a = len(c.code) }

// emitApply emits a render-dispatch over structs structural operands and
// args block entries; args is -1 when the node carries no arguments block.
func (c *Compiler) emitApply(t *NodeType, structs, args int) {
	c.emit(instr{op: opApply, a: c.typeIdx(t), b: structs, c: args})
}

// compileApply is the default lowering: evaluate operands onto the stack,
// then dispatch the node type's render behavior over them at run time.
func (c *Compiler) compileApply(t *NodeType, n *Node) error {
	structs := 0
	for _, child := range n.Children {
		if child.Type != nil && child.Type.Kind == NodeArguments {
			continue
		}
		if err := c.CompileNode(child); err != nil {
			return err
		}
		structs++
	}
	args := -1
	if block := argumentsBlock(n); block != nil {
		args = len(block.Children)
		for _, entry := range block.Children {
			if err := c.CompileNode(entry); err != nil {
				return err
			}
		}
	}
	c.emitApply(t, structs, args)
	return nil
}

// --- structural and tag lowerings ---

func compileConcat(c *Compiler, n *Node) error {
	for _, child := range n.Children {
		if err := c.CompileNode(child); err != nil {
			return err
		}
	}
	c.emit(instr{op: opConcat, a: len(n.Children)})
	return nil
}

func compileFirstChild(c *Compiler, n *Node) error {
	if len(n.Children) == 0 {
		c.emitConst(Variant{})
		return nil
	}
	return c.CompileNode(n.Children[0])
}

func compileArrayLiteral(c *Compiler, n *Node) error {
	for _, child := range n.Children {
		if err := c.CompileNode(child); err != nil {
			return err
		}
	}
	c.emit(instr{op: opArray, a: len(n.Children)})
	return nil
}

func compilePath(c *Compiler, n *Node) error {
	for _, child := range n.Children {
		if err := c.CompileNode(child); err != nil {
			return err
		}
	}
	c.emit(instr{op: opLookup, a: len(n.Children)})
	return nil
}

func compileAssign(c *Compiler, n *Node) error {
	block := argumentsBlock(n)
	if err := c.CompileNode(block.Children[0]); err != nil {
		return err
	}
	name := n.Type.ChildAt(n, 0).Value
	c.emit(instr{op: opSetVar, a: c.constIndex(name)})
	c.emitConst(String(""))
	return nil
}

func compileIf(c *Compiler, n *Node) error {
	block := argumentsBlock(n)
	if err := c.CompileNode(block.Children[0]); err != nil {
		return err
	}
	jf := c.emit(instr{op: opJumpIfFalse})
	if err := c.CompileNode(n.Type.ChildAt(n, 0)); err != nil {
		return err
	}
	j := c.emit(instr{op: opJump})
	c.patch(jf)
	if n.Type.GetChildCount(n) > 1 {
		if err := c.CompileNode(n.Type.ChildAt(n, 1)); err != nil {
			return err
		}
	} else {
		c.emitConst(String(""))
	}
	c.patch(j)
	return nil
}

func compileFor(c *Compiler, n *Node) error {
	block := argumentsBlock(n)
	if err := c.CompileNode(block.Children[0]); err != nil {
		return err
	}
	name := n.Type.ChildAt(n, 0).Value
	c.emit(instr{op: opIter, b: c.constIndex(name)})
	head := len(c.code)
	nx := c.emit(instr{op: opNext, b: c.constIndex(name)})
	if err := c.CompileNode(n.Type.ChildAt(n, 1)); err != nil {
		return err
	}
	c.emit(instr{op: opAccum})
	c.emit(instr{op: opJump, a: head})
	c.patch(nx)
	return nil
}
