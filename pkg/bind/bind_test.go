package bind

import (
	"testing"

	"github.com/brackish/liquid/pkg/liquid"
)

func TestFromGoScalars(t *testing.T) {
	cases := []struct {
		in   any
		want liquid.Variant
	}{
		{nil, liquid.NilVariant()},
		{"s", liquid.String("s")},
		{true, liquid.Bool(true)},
		{42, liquid.Int(42)},
		{int64(-7), liquid.Int(-7)},
		{3.5, liquid.Float(3.5)},
	}
	for _, tc := range cases {
		got := FromGo(tc.in)
		if got.Kind() != tc.want.Kind() || !got.Equal(tc.want) {
			t.Fatalf("FromGo(%v) = %s %q, want %s", tc.in, got.Kind(), got.GetString(), tc.want.Kind())
		}
	}
}

func TestFromGoSlice(t *testing.T) {
	got := FromGo([]any{1, "two", []int{3}})
	if got.Kind() != liquid.KindArray {
		t.Fatalf("slice converts to %s, want array", got.Kind())
	}
	items := got.Items()
	if len(items) != 3 || !items[0].Equal(liquid.Int(1)) || !items[1].Equal(liquid.String("two")) {
		t.Fatalf("bad conversion: %+v", items)
	}
	if items[2].Kind() != liquid.KindArray || !items[2].Items()[0].Equal(liquid.Int(3)) {
		t.Fatalf("nested slice not converted: %+v", items[2])
	}
}

func TestFromGoBytesAreView(t *testing.T) {
	got := FromGo([]byte("raw"))
	if got.Kind() != liquid.KindStringView {
		t.Fatalf("[]byte converts to %s, want string view", got.Kind())
	}
	if got.GetString() != "raw" {
		t.Fatalf("view content %q, want %q", got.GetString(), "raw")
	}
}

func TestFromGoMapStaysHandle(t *testing.T) {
	m := map[string]any{"k": 1}
	got := FromGo(m)
	if got.Kind() != liquid.KindVariable {
		t.Fatalf("map converts to %s, want variable handle", got.Kind())
	}
}

func TestLookupPaths(t *testing.T) {
	type inner struct {
		Port int
	}
	store := Store(Map{
		"name": "svc",
		"tags": []string{"a", "b"},
		"cfg":  map[string]any{"nested": map[string]any{"deep": true}},
		"net":  inner{Port: 8080},
	})
	cases := []struct {
		path []liquid.Variant
		want liquid.Variant
	}{
		{[]liquid.Variant{liquid.String("name")}, liquid.String("svc")},
		{[]liquid.Variant{liquid.String("tags"), liquid.Int(1)}, liquid.String("b")},
		{[]liquid.Variant{liquid.String("cfg"), liquid.String("nested"), liquid.String("deep")}, liquid.Bool(true)},
		{[]liquid.Variant{liquid.String("net"), liquid.String("port")}, liquid.Int(8080)},
	}
	var r Resolver
	for i, tc := range cases {
		got, ok := r.Lookup(store, tc.path)
		if !ok {
			t.Fatalf("case %d: lookup failed", i)
		}
		if !got.Equal(tc.want) {
			t.Fatalf("case %d: got %s %q, want %q", i, got.Kind(), got.GetString(), tc.want.GetString())
		}
	}
	if _, ok := r.Lookup(store, []liquid.Variant{liquid.String("missing")}); ok {
		t.Fatal("missing key must not resolve")
	}
	if _, ok := r.Lookup(store, []liquid.Variant{liquid.String("tags"), liquid.Int(9)}); ok {
		t.Fatal("out-of-range index must not resolve")
	}
}

func TestSetAndRoundTrip(t *testing.T) {
	m := Map{}
	var r Resolver
	if err := r.Set(Store(m), "xs", liquid.Array(liquid.Int(1), liquid.Int(2))); err != nil {
		t.Fatalf("set error: %v", err)
	}
	got, ok := r.Lookup(Store(m), []liquid.Variant{liquid.String("xs"), liquid.Int(0)})
	if !ok || !got.Equal(liquid.Int(1)) {
		t.Fatalf("round trip got %v", got.GetString())
	}
	if err := r.Set(liquid.Variable{Handle: 42}, "x", liquid.Int(1)); err == nil {
		t.Fatal("set on a non-map store must fail")
	}
}

func TestIterate(t *testing.T) {
	var r Resolver
	items, ok := r.Iterate(FromGo(map[string]any{"a": 1, "b": 2}))
	if !ok || len(items) != 2 {
		t.Fatalf("map iterate: ok=%v items=%d", ok, len(items))
	}
	handle := liquid.VariableHandle(liquid.Variable{Handle: []int{7, 8}})
	items, ok = r.Iterate(handle)
	if !ok || len(items) != 2 || !items[0].Equal(liquid.Int(7)) {
		t.Fatalf("slice iterate: ok=%v items=%+v", ok, items)
	}
	if _, ok := r.Iterate(liquid.Int(3)); ok {
		t.Fatal("scalars are not iterable")
	}
}

func TestEndToEndTemplate(t *testing.T) {
	store := Map{
		"user":  map[string]any{"name": "Ada", "langs": []string{"go", "c"}},
		"count": 2,
	}
	src := "{{ user.name }} knows {% for l in user.langs %}{{ l }} {% endfor %}({{ count }})"
	tmpl, err := liquid.ParseTemplate(liquid.DefaultDialect(), src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	out, err := tmpl.Render(liquid.NewRenderer(Resolver{}), Store(store))
	if err != nil {
		t.Fatalf("render error: %v", err)
	}
	want := "Ada knows go c (2)"
	if out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}
