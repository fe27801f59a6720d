package liquid

import (
	"testing"
)

func TestTruthinessPolicy(t *testing.T) {
	classic := FalsyNil
	strict := Falsy0 | FalsyEmptyString | FalsyNil
	cases := []struct {
		name        string
		v           Variant
		classicWant bool
		strictWant  bool
	}{
		{"nil", NilVariant(), false, false},
		{"false", Bool(false), false, false},
		{"true", Bool(true), true, true},
		{"zero int", Int(0), true, false},
		{"int", Int(7), true, true},
		{"zero float", Float(0), true, false},
		{"float", Float(0.5), true, true},
		{"empty string", String(""), true, false},
		{"string", String("x"), true, true},
		{"empty array", Array(), true, true},
		{"array", Array(Int(1)), true, true},
	}
	for _, tc := range cases {
		if got := tc.v.IsTruthy(classic); got != tc.classicWant {
			t.Fatalf("%s: classic truthiness got %v, want %v", tc.name, got, tc.classicWant)
		}
		if got := tc.v.IsTruthy(strict); got != tc.strictWant {
			t.Fatalf("%s: strict truthiness got %v, want %v", tc.name, got, tc.strictWant)
		}
	}
}

func TestTruthinessNoPolicy(t *testing.T) {
	// With no falsiness bits set, only Bool false is falsy.
	for _, v := range []Variant{NilVariant(), Int(0), Float(0), String("")} {
		if !v.IsTruthy(FalsyFalse) {
			t.Fatalf("%s should be truthy under the empty policy", v.Kind())
		}
	}
	if Bool(false).IsTruthy(FalsyFalse) {
		t.Fatal("false is never truthy")
	}
}

func TestGetString(t *testing.T) {
	cases := []struct {
		v    Variant
		want string
	}{
		{String("hello"), "hello"},
		{StringView([]byte("view")), "view"},
		{Int(42), "42"},
		{Int(-3), "-3"},
		{Float(3), "3"},
		{Float(3.14), "3.14"},
		{Float(3.100), "3.1"},
		{Float(-0.5), "-0.5"},
		{Bool(true), "true"},
		{Bool(false), "false"},
		{NilVariant(), ""},
		{Array(Int(1), Int(2)), ""},
	}
	for _, tc := range cases {
		if got := tc.v.GetString(); got != tc.want {
			t.Fatalf("GetString(%s) = %q, want %q", tc.v.Kind(), got, tc.want)
		}
	}
}

func TestGetIntPrefixParsing(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"42", 42},
		{"42abc", 42},
		{"  -7xyz", -7},
		{"abc", 0},
		{"", 0},
		{"+3", 3},
		{"-", 0},
		{"3.9", 3},
	}
	for _, tc := range cases {
		if got := String(tc.in).GetInt(); got != tc.want {
			t.Fatalf("GetInt(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
	if got := Float(3.9).GetInt(); got != 3 {
		t.Fatalf("GetInt(3.9) = %d, want 3", got)
	}
	if got := Bool(true).GetInt(); got != 0 {
		t.Fatalf("GetInt(true) = %d, want 0", got)
	}
}

func TestGetFloatPrefixParsing(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"3.14", 3.14},
		{"3.14hello", 3.14},
		{" -0.5", -0.5},
		{"1e3", 1000},
		{"1e", 1},
		{"abc", 0},
		{"", 0},
	}
	for _, tc := range cases {
		if got := String(tc.in).GetFloat(); got != tc.want {
			t.Fatalf("GetFloat(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
	if got := Int(4).GetFloat(); got != 4.0 {
		t.Fatalf("GetFloat(4) = %v, want 4", got)
	}
}

func TestEqualSameKindOnly(t *testing.T) {
	if Int(1).Equal(Float(1)) {
		t.Fatal("int and float never compare equal")
	}
	if Int(0).Equal(String("0")) {
		t.Fatal("int and string never compare equal")
	}
	if !Int(5).Equal(Int(5)) || Int(5).Equal(Int(6)) {
		t.Fatal("int equality broken")
	}
	if !NilVariant().Equal(NilVariant()) {
		t.Fatal("nil equals nil")
	}
	if String("a").Equal(StringView([]byte("a"))) {
		t.Fatal("owned string and view are distinct kinds")
	}
	if !StringView([]byte("ab")).Equal(StringView([]byte("ab"))) {
		t.Fatal("views compare by content")
	}
}

func TestEqualArrays(t *testing.T) {
	a := Array(Int(1), String("x"), Array(Bool(true)))
	b := Array(Int(1), String("x"), Array(Bool(true)))
	if !a.Equal(b) {
		t.Fatal("deep-equal arrays must compare equal")
	}
	c := Array(String("x"), Int(1), Array(Bool(true)))
	if a.Equal(c) {
		t.Fatal("array equality is order-sensitive")
	}
	if a.Equal(Array(Int(1), String("x"))) {
		t.Fatal("arrays of different length are unequal")
	}
}

func TestLessOrdering(t *testing.T) {
	cases := []struct {
		a, b Variant
		want bool
	}{
		{Int(1), Int(2), true},
		{Int(2), Int(1), false},
		{Int(1), Float(1.5), true},
		{Float(1.5), Int(2), true},
		{Int(3), String("10"), true},
		{String("apple"), String("banana"), true},
		{String("banana"), String("apple"), false},
		{String("2"), Int(10), false}, // "2" > "10" lexicographically
		{Array(Int(1)), Array(Int(2)), false},
		{NilVariant(), Int(1), false},
		{Bool(false), Bool(true), false},
	}
	for i, tc := range cases {
		if got := tc.a.Less(tc.b); got != tc.want {
			t.Fatalf("case %d: Less(%s, %s) = %v, want %v", i, tc.a.Kind(), tc.b.Kind(), got, tc.want)
		}
	}
}

func TestHashAgreesWithEqual(t *testing.T) {
	pairs := [][2]Variant{
		{String("hello"), String("hello")},
		{StringView([]byte("hello")), StringView([]byte("hello"))},
		{Int(99), Int(99)},
		{Float(2.5), Float(2.5)},
		{Bool(true), Bool(true)},
		{NilVariant(), NilVariant()},
		{Array(Int(1)), Array(Int(2), Int(3))},
	}
	for i, p := range pairs {
		if p[0].Hash() != p[1].Hash() {
			t.Fatalf("pair %d: equal-class variants hash differently", i)
		}
	}
}

func TestArrayHashIsConstant(t *testing.T) {
	// Arrays collapse into one hash bucket on purpose.
	if Array(Int(1), Int(2)).Hash() != 0 || Array().Hash() != 0 {
		t.Fatal("array hash must be the constant 0")
	}
	if NilVariant().Hash() != 0 {
		t.Fatal("nil hash must be 0")
	}
}

func TestCloneArrayIndependence(t *testing.T) {
	orig := Array(Int(1), Array(String("inner")))
	cp := orig.Clone()
	cp.Items()[0] = Int(99)
	cp.Items()[1].Items()[0] = String("changed")
	if !orig.Items()[0].Equal(Int(1)) {
		t.Fatal("clone shares top-level storage with the original")
	}
	if !orig.Items()[1].Items()[0].Equal(String("inner")) {
		t.Fatal("clone shares nested storage with the original")
	}
}

func TestNilConstructors(t *testing.T) {
	if Pointer(nil).Kind() != KindNil {
		t.Fatal("nil pointer must yield the Nil variant")
	}
	if VariableHandle(Variable{}).Kind() != KindNil {
		t.Fatal("empty handle must yield the Nil variant")
	}
	x := 7
	if Pointer(&x).Kind() != KindPointer {
		t.Fatal("non-nil pointer must yield a Pointer variant")
	}
	if VariableHandle(Variable{Handle: &x}).Kind() != KindVariable {
		t.Fatal("non-nil handle must yield a Variable variant")
	}
}

func TestPointerIdentity(t *testing.T) {
	x, y := 1, 1
	if !Pointer(&x).Equal(Pointer(&x)) {
		t.Fatal("same referent must compare equal")
	}
	if Pointer(&x).Equal(Pointer(&y)) {
		t.Fatal("distinct referents must compare unequal")
	}
	if Pointer(&x).Hash() != Pointer(&x).Hash() {
		t.Fatal("pointer hash must be stable for one referent")
	}
}
