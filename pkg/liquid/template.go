package liquid

import (
	"bytes"
	"fmt"
)

// Template couples a parsed tree with the dialect it was parsed against.
type Template struct {
	Root    *Node
	Dialect *Dialect
}

// ParseTemplate parses src against d.
func ParseTemplate(d *Dialect, src string) (*Template, error) {
	root, err := Parse(d, src)
	if err != nil {
		return nil, err
	}
	return &Template{Root: root, Dialect: d}, nil
}

// Render evaluates the template with the given renderer and store.
func (t *Template) Render(r *Renderer, store Variable) (string, error) {
	return r.Render(t.Root, store)
}

// SourceString is template source that can validate and render itself
// against the default dialect.
type SourceString string

func (s SourceString) Validate() error {
	if _, err := Parse(DefaultDialect(), string(s)); err != nil {
		return fmt.Errorf("invalid template: %w", err)
	}
	return nil
}

func (s SourceString) Render(resolver Resolver, store Variable) (string, error) {
	root, err := Parse(DefaultDialect(), string(s))
	if err != nil {
		return "", fmt.Errorf("parsing template: %w", err)
	}
	return NewRenderer(resolver).Render(root, store)
}

// Pretty returns a line-oriented representation of a tree.
func Pretty(n *Node) string {
	var buf bytes.Buffer
	ppNode(&buf, 0, n)
	return buf.String()
}

func ppNode(buf *bytes.Buffer, indent int, n *Node) {
	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}
	if n.IsLeaf() {
		fmt.Fprintf(buf, "Leaf[%s](%q)\n", n.Value.Kind(), n.Value.GetString())
		return
	}
	fmt.Fprintf(buf, "%s(%q)\n", titleKind(n.Type.Kind), n.Type.Symbol)
	for _, child := range n.Children {
		ppNode(buf, indent+2, child)
	}
}

func titleKind(k NodeKind) string {
	switch k {
	case NodeVariable:
		return "Variable"
	case NodeTag:
		return "Tag"
	case NodeGroup:
		return "Group"
	case NodeGroupDereference:
		return "Dereference"
	case NodeArrayLiteral:
		return "ArrayLiteral"
	case NodeOutput:
		return "Output"
	case NodeArguments:
		return "Arguments"
	case NodeQualifier:
		return "Qualifier"
	case NodeOperator:
		return "Operator"
	case NodeFilter:
		return "Filter"
	case NodeDotFilter:
		return "DotFilter"
	case NodeContextual:
		return "Contextual"
	}
	return "Node"
}
