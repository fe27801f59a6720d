// Package starbind bridges template variants and Starlark values, so a
// Starlark environment can serve as a template store and templates can
// render values produced by Starlark code.
package starbind

import (
	"fmt"

	"go.starlark.net/starlark"

	"github.com/brackish/liquid/pkg/liquid"
)

// ToStarlark converts a Variant to a Starlark value.
func ToStarlark(v liquid.Variant) starlark.Value {
	switch v.Kind() {
	case liquid.KindNil:
		return starlark.None
	case liquid.KindBool:
		return starlark.Bool(v.Bool())
	case liquid.KindInt:
		return starlark.MakeInt64(v.GetInt())
	case liquid.KindFloat:
		return starlark.Float(v.GetFloat())
	case liquid.KindString, liquid.KindStringView:
		return starlark.String(v.GetString())
	case liquid.KindArray:
		items := v.Items()
		elems := make([]starlark.Value, len(items))
		for i, item := range items {
			elems[i] = ToStarlark(item)
		}
		return starlark.NewList(elems)
	case liquid.KindVariable:
		if sv, ok := v.Handle().Handle.(starlark.Value); ok {
			return sv
		}
		return starlark.String(fmt.Sprintf("%v", v.Handle().Handle))
	default:
		return starlark.String(fmt.Sprintf("%v", v.RawPointer()))
	}
}

// FromStarlark converts a Starlark value to a Variant. Dicts stay behind a
// variable handle so path lookups traverse them lazily; very large integers
// degrade to their decimal string.
func FromStarlark(val starlark.Value) liquid.Variant {
	if val == nil || val == starlark.None {
		return liquid.Variant{}
	}
	switch v := val.(type) {
	case starlark.String:
		return liquid.String(string(v))
	case starlark.Int:
		if i, ok := v.Int64(); ok {
			return liquid.Int(i)
		}
		return liquid.String(v.String())
	case starlark.Float:
		return liquid.Float(float64(v))
	case starlark.Bool:
		return liquid.Bool(bool(v))
	case *starlark.List:
		items := make([]liquid.Variant, v.Len())
		for i := 0; i < v.Len(); i++ {
			items[i] = FromStarlark(v.Index(i))
		}
		return liquid.Array(items...)
	case starlark.Tuple:
		items := make([]liquid.Variant, len(v))
		for i, item := range v {
			items[i] = FromStarlark(item)
		}
		return liquid.Array(items...)
	case *starlark.Dict:
		return liquid.VariableHandle(liquid.Variable{Handle: v})
	default:
		return liquid.String(val.String())
	}
}

// Store wraps a Starlark dict as a template store.
func Store(d *starlark.Dict) liquid.Variable { return liquid.Variable{Handle: d} }

// Resolver traverses Starlark values reachable from the store handle. The
// store handle must be a *starlark.Dict.
type Resolver struct{}

var _ liquid.Resolver = Resolver{}

func (Resolver) Lookup(store liquid.Variable, path []liquid.Variant) (liquid.Variant, bool) {
	cur, ok := store.Handle.(starlark.Value)
	if !ok {
		return liquid.Variant{}, false
	}
	for _, elem := range path {
		next, ok := stepStarlark(cur, elem)
		if !ok {
			return liquid.Variant{}, false
		}
		cur = next
	}
	return FromStarlark(cur), true
}

func (Resolver) Set(store liquid.Variable, name string, value liquid.Variant) error {
	d, ok := store.Handle.(*starlark.Dict)
	if !ok {
		return fmt.Errorf("store %T is not assignable", store.Handle)
	}
	return d.SetKey(starlark.String(name), ToStarlark(value))
}

func (Resolver) Iterate(value liquid.Variant) ([]liquid.Variant, bool) {
	if value.Kind() != liquid.KindVariable {
		return nil, false
	}
	sv, ok := value.Handle().Handle.(starlark.Value)
	if !ok {
		return nil, false
	}
	switch v := sv.(type) {
	case *starlark.Dict:
		keys := v.Keys()
		out := make([]liquid.Variant, len(keys))
		for i, k := range keys {
			out[i] = FromStarlark(k)
		}
		return out, true
	case starlark.Iterable:
		it := v.Iterate()
		defer it.Done()
		var out []liquid.Variant
		var x starlark.Value
		for it.Next(&x) {
			out = append(out, FromStarlark(x))
		}
		return out, true
	}
	return nil, false
}

// stepStarlark resolves one path element against one Starlark value.
func stepStarlark(v starlark.Value, elem liquid.Variant) (starlark.Value, bool) {
	switch c := v.(type) {
	case *starlark.Dict:
		got, found, err := c.Get(starlark.String(elem.GetString()))
		if err != nil || !found {
			return nil, false
		}
		return got, true
	case *starlark.List:
		idx := int(elem.GetInt())
		if idx < 0 || idx >= c.Len() {
			return nil, false
		}
		return c.Index(idx), true
	case starlark.Tuple:
		idx := int(elem.GetInt())
		if idx < 0 || idx >= len(c) {
			return nil, false
		}
		return c[idx], true
	}
	return nil, false
}
