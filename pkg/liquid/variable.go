package liquid

// Variable is an opaque, non-owning handle to a host-managed data scope.
// The engine never inspects, mutates or frees the referent; it only passes
// the handle back to the host through a Resolver. Handles compare by
// referent identity (typically a pointer or a map).
type Variable struct {
	Handle any
}

// IsNil reports whether the handle is empty.
func (v Variable) IsNil() bool { return v.Handle == nil }

// Resolver is the host side of variable binding. The renderer calls it to
// look up variable paths, to bind loop and assign targets, and to expand
// host collections for iteration.
//
// Path elements are String or Int variants: "a.b[2]" arrives as
// [String("a"), String("b"), Int(2)].
type Resolver interface {
	// Lookup resolves a path against the store. Missing variables report
	// ok = false; the renderer treats them as Nil.
	Lookup(store Variable, path []Variant) (Variant, bool)

	// Set binds a top-level name in the store.
	Set(store Variable, name string, value Variant) error

	// Iterate expands a value into its elements for a for-loop. Array
	// variants are expanded by the renderer itself; Iterate is consulted
	// for VariableHandle values and anything else the host can enumerate.
	Iterate(value Variant) ([]Variant, bool)
}
