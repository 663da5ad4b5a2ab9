package native

import "testing"

func TestStructuralTypesAreUniqued(t *testing.T) {
	ctx := NewContext()
	a := ctx.ArrayType(ctx.DoubleType(), 10)
	b := ctx.ArrayType(ctx.DoubleType(), 10)
	if a != b {
		t.Fatalf("identical array descriptors should share one handle")
	}
	p1 := ctx.PointerType(ctx.IntType(64), 0)
	p2 := ctx.PointerType(ctx.IntType(64), 1)
	if p1 == p2 {
		t.Fatalf("address space must participate in type identity")
	}
	s1 := ctx.StructType([]TypeRef{ctx.IntType(32), ctx.FloatType()}, false)
	s2 := ctx.StructType([]TypeRef{ctx.IntType(32), ctx.FloatType()}, false)
	s3 := ctx.StructType([]TypeRef{ctx.IntType(32), ctx.FloatType()}, true)
	if s1 != s2 {
		t.Fatalf("anonymous structs with equal bodies should be uniqued")
	}
	if s1 == s3 {
		t.Fatalf("packed flag must participate in struct identity")
	}
}

func TestNamedStructsAreNotUniqued(t *testing.T) {
	ctx := NewContext()
	a := ctx.CreateNamedStruct("node")
	b := ctx.CreateNamedStruct("other")
	if a == b {
		t.Fatalf("distinct named structs must get distinct handles")
	}
	if !ctx.typ(a).opaque {
		t.Fatalf("fresh named struct should be opaque")
	}
	// Forward-declared recursion: node contains a pointer to itself.
	ctx.StructSetBody(a, []TypeRef{ctx.IntType(64), ctx.PointerType(a, 0)}, false)
	if ctx.typ(a).opaque {
		t.Fatalf("SetBody should clear opacity")
	}
	if got := ctx.StructFieldCount(a); got != 2 {
		t.Fatalf("field count = %d, want 2", got)
	}
	if ctx.NamedType("node") != a {
		t.Fatalf("named lookup should find the struct")
	}
	if ctx.NamedType("missing") != NoType {
		t.Fatalf("missing named type should be absent")
	}
}

func TestTypeStrings(t *testing.T) {
	ctx := NewContext()
	named := ctx.CreateNamedStruct("pair")
	ctx.StructSetBody(named, []TypeRef{ctx.IntType(32), ctx.IntType(32)}, false)
	cases := []struct {
		t    TypeRef
		want string
	}{
		{ctx.VoidType(), "void"},
		{ctx.IntType(8), "i8"},
		{ctx.IntType(16), "i16"},
		{ctx.IntType(32), "i32"},
		{ctx.IntType(64), "i64"},
		{ctx.FloatType(), "float"},
		{ctx.DoubleType(), "double"},
		{ctx.HalfType(), "half"},
		{ctx.ArrayType(ctx.DoubleType(), 10), "[10 x double]"},
		{ctx.VectorType(ctx.IntType(32), 4), "<4 x i32>"},
		{ctx.PointerType(ctx.DoubleType(), 0), "double*"},
		{ctx.StructType([]TypeRef{ctx.IntType(32), ctx.FloatType()}, false), "{ i32, float }"},
		{ctx.StructType([]TypeRef{ctx.IntType(8)}, true), "<{ i8 }>"},
		{named, "%pair"},
		{ctx.FunctionType(ctx.IntType(64), []TypeRef{ctx.IntType(64)}), "i64 (i64)"},
	}
	for _, tc := range cases {
		if got := ctx.TypeString(tc.t); got != tc.want {
			t.Errorf("TypeString = %q, want %q", got, tc.want)
		}
	}
}

func TestTypeIsSized(t *testing.T) {
	ctx := NewContext()
	if ctx.TypeIsSized(ctx.VoidType()) {
		t.Errorf("void must be unsized")
	}
	sig := ctx.FunctionType(ctx.VoidType(), nil)
	if ctx.TypeIsSized(sig) {
		t.Errorf("signatures must be unsized")
	}
	opaque := ctx.CreateNamedStruct("fwd")
	if ctx.TypeIsSized(opaque) {
		t.Errorf("opaque named struct must be unsized")
	}
	ctx.StructSetBody(opaque, []TypeRef{ctx.IntType(8)}, false)
	if !ctx.TypeIsSized(opaque) {
		t.Errorf("struct with sized fields must be sized")
	}
	if !ctx.TypeIsSized(ctx.ArrayType(ctx.IntType(64), 3)) {
		t.Errorf("array of sized elements must be sized")
	}
}

func TestElemType(t *testing.T) {
	ctx := NewContext()
	ptr := ctx.PointerType(ctx.IntType(64), 0)
	if got := ctx.ElemType(ptr); got != ctx.IntType(64) {
		t.Fatalf("pointer element should be i64")
	}
	if got := ctx.ElemType(ctx.IntType(64)); got != NoType {
		t.Fatalf("scalar types have no element")
	}
}

func TestDisposedModuleValuesPanic(t *testing.T) {
	ctx := NewContext()
	m := ctx.CreateModule("m")
	sig := ctx.FunctionType(ctx.VoidType(), nil)
	f := ctx.AddFunction(m, "f", sig)
	ctx.DisposeModule(m)
	defer func() {
		if recover() == nil {
			t.Fatalf("dereferencing a value of a disposed module should panic")
		}
	}()
	ctx.ValueName(f)
}
