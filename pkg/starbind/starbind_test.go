package starbind

import (
	"testing"

	"go.starlark.net/starlark"

	"github.com/brackish/liquid/pkg/liquid"
)

func TestToStarlarkScalars(t *testing.T) {
	cases := []struct {
		in   liquid.Variant
		want starlark.Value
	}{
		{liquid.NilVariant(), starlark.None},
		{liquid.Bool(true), starlark.Bool(true)},
		{liquid.Int(5), starlark.MakeInt(5)},
		{liquid.Float(2.5), starlark.Float(2.5)},
		{liquid.String("s"), starlark.String("s")},
		{liquid.StringView([]byte("v")), starlark.String("v")},
	}
	for i, tc := range cases {
		got := ToStarlark(tc.in)
		eq, err := starlark.Equal(got, tc.want)
		if err != nil || !eq {
			t.Fatalf("case %d: got %v, want %v (err %v)", i, got, tc.want, err)
		}
	}
}

func TestRoundTripList(t *testing.T) {
	orig := liquid.Array(liquid.Int(1), liquid.String("two"), liquid.Array(liquid.Bool(true)))
	back := FromStarlark(ToStarlark(orig))
	if !back.Equal(orig) {
		t.Fatalf("round trip changed the value: %v", back.GetString())
	}
}

func TestFromStarlarkBigInt(t *testing.T) {
	big := starlark.MakeInt64(1).Lsh(80)
	got := FromStarlark(big)
	if got.Kind() != liquid.KindString {
		t.Fatalf("oversized int converts to %s, want string", got.Kind())
	}
	if got.GetString() != big.String() {
		t.Fatalf("got %q, want %q", got.GetString(), big.String())
	}
}

func TestDictStaysHandle(t *testing.T) {
	d := starlark.NewDict(1)
	if err := d.SetKey(starlark.String("k"), starlark.MakeInt(1)); err != nil {
		t.Fatalf("dict set: %v", err)
	}
	got := FromStarlark(d)
	if got.Kind() != liquid.KindVariable {
		t.Fatalf("dict converts to %s, want variable handle", got.Kind())
	}
}

func TestResolverLookupAndSet(t *testing.T) {
	inner := starlark.NewDict(1)
	if err := inner.SetKey(starlark.String("name"), starlark.String("Ada")); err != nil {
		t.Fatalf("dict set: %v", err)
	}
	top := starlark.NewDict(2)
	if err := top.SetKey(starlark.String("user"), inner); err != nil {
		t.Fatalf("dict set: %v", err)
	}
	if err := top.SetKey(starlark.String("xs"), starlark.NewList([]starlark.Value{starlark.MakeInt(10), starlark.MakeInt(20)})); err != nil {
		t.Fatalf("dict set: %v", err)
	}

	var r Resolver
	store := Store(top)
	got, ok := r.Lookup(store, []liquid.Variant{liquid.String("user"), liquid.String("name")})
	if !ok || !got.Equal(liquid.String("Ada")) {
		t.Fatalf("lookup user.name: ok=%v got=%q", ok, got.GetString())
	}
	got, ok = r.Lookup(store, []liquid.Variant{liquid.String("xs"), liquid.Int(1)})
	if !ok || !got.Equal(liquid.Int(20)) {
		t.Fatalf("lookup xs[1]: ok=%v got=%q", ok, got.GetString())
	}
	if _, ok := r.Lookup(store, []liquid.Variant{liquid.String("missing")}); ok {
		t.Fatal("missing key must not resolve")
	}

	if err := r.Set(store, "y", liquid.Int(9)); err != nil {
		t.Fatalf("set error: %v", err)
	}
	got, ok = r.Lookup(store, []liquid.Variant{liquid.String("y")})
	if !ok || !got.Equal(liquid.Int(9)) {
		t.Fatalf("set round trip: ok=%v got=%q", ok, got.GetString())
	}
}

func TestIterateStarlarkCollections(t *testing.T) {
	var r Resolver
	list := starlark.NewList([]starlark.Value{starlark.MakeInt(1), starlark.MakeInt(2)})
	items, ok := r.Iterate(liquid.VariableHandle(liquid.Variable{Handle: list}))
	if !ok || len(items) != 2 || !items[1].Equal(liquid.Int(2)) {
		t.Fatalf("list iterate: ok=%v items=%+v", ok, items)
	}
	d := starlark.NewDict(1)
	if err := d.SetKey(starlark.String("k"), starlark.MakeInt(1)); err != nil {
		t.Fatalf("dict set: %v", err)
	}
	items, ok = r.Iterate(FromStarlark(d))
	if !ok || len(items) != 1 || !items[0].Equal(liquid.String("k")) {
		t.Fatalf("dict iterate yields keys: ok=%v items=%+v", ok, items)
	}
}

func TestTemplateOverStarlarkEnvironment(t *testing.T) {
	// Values produced by executing Starlark feed straight into a template.
	thread := &starlark.Thread{Name: "test"}
	globals, err := starlark.ExecFile(thread, "env.star", `
name = "Ada"
langs = ["go", "c"]
`, nil)
	if err != nil {
		t.Fatalf("starlark exec: %v", err)
	}
	store := starlark.NewDict(len(globals))
	for key, value := range globals {
		if err := store.SetKey(starlark.String(key), value); err != nil {
			t.Fatalf("dict set: %v", err)
		}
	}

	tmpl, err := liquid.ParseTemplate(liquid.DefaultDialect(), "{{ name }}: {% for l in langs %}{{ l }},{% endfor %}")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	out, err := tmpl.Render(liquid.NewRenderer(Resolver{}), Store(store))
	if err != nil {
		t.Fatalf("render error: %v", err)
	}
	if out != "Ada: go,c," {
		t.Fatalf("got %q, want %q", out, "Ada: go,c,")
	}
}
