// Package bind connects the template engine's opaque variable handles to
// ordinary Go data: maps, slices, structs and scalars, traversed with
// reflection.
package bind

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/brackish/liquid/pkg/liquid"
)

// Map is the conventional store shape: a mutable top-level scope.
type Map map[string]any

// Store wraps a Map in a Variable handle.
func Store(m Map) liquid.Variable { return liquid.Variable{Handle: m} }

// FromGo converts a Go value to a Variant. Slices and arrays convert
// recursively; maps and structs stay behind a variable handle so path
// lookups traverse them lazily; []byte becomes a non-owning string view.
func FromGo(v any) liquid.Variant {
	if v == nil {
		return liquid.Variant{}
	}
	switch t := v.(type) {
	case liquid.Variant:
		return t
	case string:
		return liquid.String(t)
	case []byte:
		return liquid.StringView(t)
	case bool:
		return liquid.Bool(t)
	case int:
		return liquid.Int(int64(t))
	case int32:
		return liquid.Int(int64(t))
	case int64:
		return liquid.Int(t)
	case float32:
		return liquid.Float(float64(t))
	case float64:
		return liquid.Float(t)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		n := rv.Len()
		items := make([]liquid.Variant, 0, n)
		for i := 0; i < n; i++ {
			items = append(items, FromGo(rv.Index(i).Interface()))
		}
		return liquid.Array(items...)
	case reflect.Map, reflect.Struct:
		return liquid.VariableHandle(liquid.Variable{Handle: v})
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return liquid.Variant{}
		}
		return FromGo(rv.Elem().Interface())
	}
	// Fallback: string formatting.
	return liquid.String(fmt.Sprintf("%v", v))
}

// ToGo converts a Variant back to a plain Go value.
func ToGo(v liquid.Variant) any {
	switch v.Kind() {
	case liquid.KindNil:
		return nil
	case liquid.KindBool:
		return v.Bool()
	case liquid.KindInt:
		return v.GetInt()
	case liquid.KindFloat:
		return v.GetFloat()
	case liquid.KindString, liquid.KindStringView:
		return v.GetString()
	case liquid.KindArray:
		items := v.Items()
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = ToGo(item)
		}
		return out
	case liquid.KindVariable:
		return v.Handle().Handle
	default:
		return v.RawPointer()
	}
}

// Resolver traverses Go data reachable from the store handle.
type Resolver struct{}

var _ liquid.Resolver = Resolver{}

// Lookup walks a path of string qualifiers and integer indexes from the
// store root.
func (Resolver) Lookup(store liquid.Variable, path []liquid.Variant) (liquid.Variant, bool) {
	cur := store.Handle
	for _, elem := range path {
		next, ok := step(cur, elem)
		if !ok {
			return liquid.Variant{}, false
		}
		cur = next
	}
	return FromGo(cur), true
}

// Set binds a top-level name. The store handle must be a Map or a
// compatible string-keyed map.
func (Resolver) Set(store liquid.Variable, name string, value liquid.Variant) error {
	switch m := store.Handle.(type) {
	case Map:
		m[name] = ToGo(value)
	case map[string]any:
		m[name] = ToGo(value)
	default:
		return fmt.Errorf("store %T is not assignable", store.Handle)
	}
	return nil
}

// Iterate expands handle-wrapped Go collections: slice elements, or map
// keys in unspecified order.
func (Resolver) Iterate(value liquid.Variant) ([]liquid.Variant, bool) {
	if value.Kind() != liquid.KindVariable {
		return nil, false
	}
	rv := reflect.ValueOf(value.Handle().Handle)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]liquid.Variant, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out = append(out, FromGo(rv.Index(i).Interface()))
		}
		return out, true
	case reflect.Map:
		out := make([]liquid.Variant, 0, rv.Len())
		it := rv.MapRange()
		for it.Next() {
			out = append(out, FromGo(it.Key().Interface()))
		}
		return out, true
	}
	return nil, false
}

// step resolves one path element against one Go value.
func step(v any, elem liquid.Variant) (any, bool) {
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		mv := rv.MapIndex(reflect.ValueOf(elem.GetString()))
		if !mv.IsValid() {
			return nil, false
		}
		return mv.Interface(), true
	case reflect.Slice, reflect.Array:
		idx := int(elem.GetInt())
		if idx < 0 || idx >= rv.Len() {
			return nil, false
		}
		return rv.Index(idx).Interface(), true
	case reflect.Struct:
		name := elem.GetString()
		f := rv.FieldByNameFunc(func(n string) bool { return strings.EqualFold(n, name) })
		if !f.IsValid() || !f.CanInterface() {
			return nil, false
		}
		return f.Interface(), true
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil, false
		}
		return step(rv.Elem().Interface(), elem)
	}
	return nil, false
}
