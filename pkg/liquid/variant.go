package liquid

import (
	"hash/fnv"
	"math"
	"reflect"
	"strconv"
)

// Kind discriminates the payload of a Variant.
type Kind uint8

const (
	KindNil Kind = iota
	KindBool
	KindFloat
	KindInt
	KindString
	KindStringView
	KindArray
	KindVariable
	KindPointer
)

func (k Kind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	case KindString:
		return "string"
	case KindStringView:
		return "string view"
	case KindArray:
		return "array"
	case KindVariable:
		return "variable"
	case KindPointer:
		return "pointer"
	}
	return "unknown"
}

// Falsiness is a bitmask policy controlling which values IsTruthy counts as
// false. Bool false is always falsy regardless of policy.
type Falsiness uint8

const (
	FalsyFalse       Falsiness = 0
	Falsy0           Falsiness = 1 << 0
	FalsyEmptyString Falsiness = 1 << 1
	FalsyNil         Falsiness = 1 << 2
)

// Variant is the engine's dynamically typed value: everything addressable
// from template text. The zero value is Nil.
//
// Only the field selected by kind is meaningful. String views never own
// their bytes; the referent must outlive the Variant.
type Variant struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	view []byte
	a    []Variant
	p    any
	v    Variable
}

// NilVariant returns the Nil value. Equivalent to Variant{}.
func NilVariant() Variant { return Variant{} }

// Bool wraps a boolean.
func Bool(b bool) Variant { return Variant{kind: KindBool, b: b} }

// Int wraps a 64-bit signed integer.
func Int(i int64) Variant { return Variant{kind: KindInt, i: i} }

// Float wraps a 64-bit float.
func Float(f float64) Variant { return Variant{kind: KindFloat, f: f} }

// String wraps an owned string.
func String(s string) Variant { return Variant{kind: KindString, s: s} }

// StringView wraps a non-owning byte window. The caller guarantees the
// referent outlives the Variant.
func StringView(b []byte) Variant { return Variant{kind: KindStringView, view: b} }

// Array wraps an ordered sequence of variants. The slice is owned by the
// Variant from here on.
func Array(items ...Variant) Variant {
	if items == nil {
		items = []Variant{}
	}
	return Variant{kind: KindArray, a: items}
}

// VariableHandle wraps a host variable handle. A nil handle yields Nil.
func VariableHandle(v Variable) Variant {
	if v.IsNil() {
		return Variant{}
	}
	return Variant{kind: KindVariable, v: v}
}

// Pointer wraps a raw opaque pointer. A nil pointer yields Nil, never a
// Pointer variant.
func Pointer(p any) Variant {
	if p == nil {
		return Variant{}
	}
	return Variant{kind: KindPointer, p: p}
}

// Kind reports the live payload kind.
func (v Variant) Kind() Kind { return v.kind }

// IsNil reports whether the variant holds nothing.
func (v Variant) IsNil() bool { return v.kind == KindNil }

// IsNumeric reports whether the variant is an Int or Float.
func (v Variant) IsNumeric() bool { return v.kind == KindInt || v.kind == KindFloat }

// Bool returns the raw boolean payload. Zero for other kinds.
func (v Variant) Bool() bool { return v.b }

// Items returns the array payload. Nil for other kinds.
func (v Variant) Items() []Variant { return v.a }

// Handle returns the variable-handle payload. Empty for other kinds.
func (v Variant) Handle() Variable { return v.v }

// RawPointer returns the opaque pointer payload. Nil for other kinds.
func (v Variant) RawPointer() any { return v.p }

// IsTruthy evaluates the variant under the given falsiness policy.
func (v Variant) IsTruthy(falsiness Falsiness) bool {
	switch v.kind {
	case KindBool:
		return v.b
	case KindInt:
		return !(falsiness&Falsy0 != 0 && v.i == 0)
	case KindFloat:
		return !(falsiness&Falsy0 != 0 && v.f == 0)
	case KindPointer:
		return !(falsiness&FalsyNil != 0 && v.p == nil)
	case KindNil:
		return falsiness&FalsyNil == 0
	case KindString:
		return !(falsiness&FalsyEmptyString != 0 && len(v.s) == 0)
	default:
		return true
	}
}

// GetString coerces the variant to text. Total: floats format with trailing
// fractional zeros trimmed, bools as "true"/"false", and kinds with no
// textual form yield "".
func (v Variant) GetString() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindStringView:
		return string(v.view)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'f', -1, 64)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}

// GetInt coerces the variant to an integer. Total: strings parse as far as
// possible and default to 0, non-numeric kinds are 0.
func (v Variant) GetInt() int64 {
	switch v.kind {
	case KindInt:
		return v.i
	case KindFloat:
		return int64(v.f)
	case KindString:
		return parseIntPrefix(v.s)
	case KindStringView:
		return parseIntPrefix(string(v.view))
	default:
		return 0
	}
}

// GetFloat coerces the variant to a float. Same permissive policy as GetInt.
func (v Variant) GetFloat() float64 {
	switch v.kind {
	case KindInt:
		return float64(v.i)
	case KindFloat:
		return v.f
	case KindString:
		return parseFloatPrefix(v.s)
	case KindStringView:
		return parseFloatPrefix(string(v.view))
	default:
		return 0
	}
}

// Equal reports value equality. Variants of different kinds are never equal;
// arrays compare element-wise and recursively; Nil equals Nil.
func (v Variant) Equal(o Variant) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.s == o.s
	case KindStringView:
		return string(v.view) == string(o.view)
	case KindInt:
		return v.i == o.i
	case KindFloat:
		return v.f == o.f
	case KindBool:
		return v.b == o.b
	case KindNil:
		return true
	case KindArray:
		if len(v.a) != len(o.a) {
			return false
		}
		for idx := range v.a {
			if !v.a[idx].Equal(o.a[idx]) {
				return false
			}
		}
		return true
	case KindVariable:
		return sameHandle(v.v.Handle, o.v.Handle)
	default:
		return sameHandle(v.p, o.p)
	}
}

// Less orders variants. Numeric kinds compare numerically, coercing the
// other side; strings compare lexicographically against the other's string
// form. All remaining kinds are unordered and report false.
func (v Variant) Less(o Variant) bool {
	switch v.kind {
	case KindInt:
		if o.kind == KindFloat {
			return float64(v.i) < o.f
		}
		return v.i < o.GetInt()
	case KindFloat:
		return v.f < o.GetFloat()
	case KindString:
		if o.kind == KindString {
			return v.s < o.s
		}
		return v.s < o.GetString()
	case KindStringView:
		return string(v.view) < o.GetString()
	default:
		return false
	}
}

// Hash returns a value hash. Equal variants hash equal. Arrays deliberately
// hash to a constant; they degrade to linear probing in any Variant-keyed
// table, which downstream code relies on.
func (v Variant) Hash() uint64 {
	switch v.kind {
	case KindString:
		return hashBytes([]byte(v.s))
	case KindStringView:
		return hashBytes(v.view)
	case KindInt:
		return mix64(uint64(v.i))
	case KindFloat:
		return mix64(math.Float64bits(v.f))
	case KindBool:
		if v.b {
			return 1
		}
		return 0
	case KindNil, KindArray:
		return 0
	case KindVariable:
		return identityHash(v.v.Handle)
	default:
		return identityHash(v.p)
	}
}

// Clone deep-copies the variant. String and Array payloads are duplicated;
// views keep aliasing their referent.
func (v Variant) Clone() Variant {
	if v.kind != KindArray {
		return v
	}
	items := make([]Variant, len(v.a))
	for i := range v.a {
		items[i] = v.a[i].Clone()
	}
	return Variant{kind: KindArray, a: items}
}

func hashBytes(b []byte) uint64 {
	h := fnv.New64a()
	h.Write(b)
	return h.Sum64()
}

func mix64(x uint64) uint64 {
	x ^= x >> 33
	x *= 0xff51afd7ed558ccd
	x ^= x >> 33
	return x
}

// identityHash hashes an opaque handle by referent identity where the
// dynamic type has one, and to 0 otherwise. Stable only within one run.
func identityHash(p any) uint64 {
	if p == nil {
		return 0
	}
	rv := reflect.ValueOf(p)
	switch rv.Kind() {
	case reflect.Pointer, reflect.UnsafePointer, reflect.Map, reflect.Chan, reflect.Func:
		return mix64(uint64(rv.Pointer()))
	}
	return 0
}

// sameHandle compares two opaque handles by referent identity for
// pointer-like types, and by value where the dynamic type is comparable.
func sameHandle(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.Type() != rb.Type() {
		return false
	}
	switch ra.Kind() {
	case reflect.Pointer, reflect.UnsafePointer, reflect.Map, reflect.Chan, reflect.Func:
		return ra.Pointer() == rb.Pointer()
	}
	if !ra.Type().Comparable() {
		return false
	}
	return a == b
}

// parseIntPrefix implements atoll semantics: skip leading spaces, accept an
// optional sign and as many digits as follow, and default to 0.
func parseIntPrefix(s string) int64 {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r') {
		i++
	}
	start := i
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digits := i
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == digits {
		return 0
	}
	n, err := strconv.ParseInt(s[start:i], 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// parseFloatPrefix implements atof semantics over the longest valid prefix.
func parseFloatPrefix(s string) float64 {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r') {
		i++
	}
	start := i
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i < len(s) && s[i] == '.' {
		i++
		for i < len(s) && s[i] >= '0' && s[i] <= '9' {
			i++
		}
	}
	if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
		j := i + 1
		if j < len(s) && (s[j] == '+' || s[j] == '-') {
			j++
		}
		if j < len(s) && s[j] >= '0' && s[j] <= '9' {
			for j < len(s) && s[j] >= '0' && s[j] <= '9' {
				j++
			}
			i = j
		}
	}
	f, err := strconv.ParseFloat(s[start:i], 64)
	if err != nil {
		return 0
	}
	return f
}
