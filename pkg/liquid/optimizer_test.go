package liquid

import "testing"

func optimizeSource(t *testing.T, src string) (*Node, bool) {
	t.Helper()
	root, err := Parse(DefaultDialect(), src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	changed, err := NewOptimizer(NewRenderer(nil)).Optimize(root, Variable{})
	if err != nil {
		t.Fatalf("optimize error: %v", err)
	}
	return root, changed
}

func TestFoldConstantArithmetic(t *testing.T) {
	root, changed := optimizeSource(t, "{{ 2 + 3 * 4 }}")
	if !changed {
		t.Fatal("constant expression must fold")
	}
	// The output node collapses onto the folded operand.
	n := root.Children[0]
	if !n.IsLeaf() {
		t.Fatalf("output did not fold to a leaf: %+v", n)
	}
	if !n.Value.Equal(Int(14)) {
		t.Fatalf("folded to %q, want 14", n.Value.GetString())
	}
}

func TestFoldConstantFilter(t *testing.T) {
	root, changed := optimizeSource(t, `{{ "hi" | upcase }}`)
	if !changed {
		t.Fatal("constant filter must fold")
	}
	if n := root.Children[0]; !n.IsLeaf() || !n.Value.Equal(String("HI")) {
		t.Fatalf("folded to %+v, want leaf HI", n)
	}
}

func TestNonConstantDoesNotFold(t *testing.T) {
	root, _ := optimizeSource(t, "{{ x + 1 }}")
	n := root.Children[0]
	if n.IsLeaf() {
		t.Fatal("variable expression must not fold")
	}
}

func TestPartialFoldInsideExpression(t *testing.T) {
	// The constant subtree folds even though the whole expression cannot.
	root, changed := optimizeSource(t, "{{ x + (2 * 3) }}")
	if !changed {
		t.Fatal("constant subtree must fold")
	}
	var plus *Node
	root.Walk(func(n *Node) {
		if n.Type != nil && n.Type.Kind == NodeOperator {
			plus = n
		}
	})
	if plus == nil {
		t.Fatal("operator node missing after optimize")
	}
	if right := plus.Children[1]; !right.IsLeaf() || !right.Value.Equal(Int(6)) {
		t.Fatalf("right operand = %+v, want leaf 6", right)
	}
}

func TestIfFoldsConstantCondition(t *testing.T) {
	d := DefaultDialect()
	root, err := Parse(d, "{% if true %}yes{% else %}no{% endif %}")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	changed, err := NewOptimizer(NewRenderer(nil)).Optimize(root, Variable{})
	if err != nil {
		t.Fatalf("optimize error: %v", err)
	}
	if !changed {
		t.Fatal("constant condition must fold")
	}
	n := root.Children[0]
	if n.Type == d.Tag("if") {
		t.Fatal("if tag must be replaced by its taken branch")
	}
	out, err := NewRenderer(nil).Render(root, Variable{})
	if err != nil {
		t.Fatalf("render error: %v", err)
	}
	if out != "yes" {
		t.Fatalf("got %q, want %q", out, "yes")
	}
}

func TestIfFoldsFalseWithoutElse(t *testing.T) {
	root, changed := optimizeSource(t, "a{% if false %}gone{% endif %}b")
	if !changed {
		t.Fatal("false condition must fold")
	}
	out, err := NewRenderer(nil).Render(root, Variable{})
	if err != nil {
		t.Fatalf("render error: %v", err)
	}
	if out != "ab" {
		t.Fatalf("got %q, want %q", out, "ab")
	}
}

func TestIfKeepsDynamicCondition(t *testing.T) {
	d := DefaultDialect()
	root, err := Parse(d, "{% if x %}yes{% endif %}")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if _, err := NewOptimizer(NewRenderer(nil)).Optimize(root, Variable{}); err != nil {
		t.Fatalf("optimize error: %v", err)
	}
	if root.Children[0].Type != d.Tag("if") {
		t.Fatal("dynamic condition must keep the if tag")
	}
}

func TestOptimizeNoneNeverFolds(t *testing.T) {
	d := DefaultDialect()
	// The for tag is OptimizeNone even over a constant iterable.
	root, err := Parse(d, "{% for x in [1, 2] %}c{% endfor %}")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if _, err := NewOptimizer(NewRenderer(nil)).Optimize(root, Variable{}); err != nil {
		t.Fatalf("optimize error: %v", err)
	}
	if root.Children[0].Type != d.Tag("for") {
		t.Fatal("for tag must never fold")
	}
}

func TestOptimizePreservesOutput(t *testing.T) {
	sources := []string{
		"{{ 2 + 3 }} and {{ x }}",
		"{% if 1 == 1 %}A{% else %}B{% endif %}",
		`{{ "a,b" | split: "," | join: ";" }}`,
		"{% for x in xs %}{{ x }}{% endfor %}",
	}
	store := testStore{"x": String("dyn"), "xs": Array(Int(1), Int(2))}
	for _, src := range sources {
		r := NewRenderer(testResolver{})
		before, err := renderString(t, src, store)
		if err != nil {
			t.Fatalf("%s: render error: %v", src, err)
		}
		root, err := Parse(DefaultDialect(), src)
		if err != nil {
			t.Fatalf("%s: parse error: %v", src, err)
		}
		if _, err := NewOptimizer(r).Optimize(root, Variable{Handle: store}); err != nil {
			t.Fatalf("%s: optimize error: %v", src, err)
		}
		after, err := r.Render(root, Variable{Handle: store})
		if err != nil {
			t.Fatalf("%s: render after optimize error: %v", src, err)
		}
		if before != after {
			t.Fatalf("%s: optimize changed output: %q -> %q", src, before, after)
		}
	}
}
