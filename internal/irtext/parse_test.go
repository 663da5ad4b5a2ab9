package irtext

import (
	"path/filepath"
	"strings"
	"testing"

	"forge/internal/native"
)

// buildKitchen assembles a function exercising every instruction form
// the printer emits, so one print/parse/print cycle covers the grammar.
func buildKitchen(ctx *native.Context) native.ModuleRef {
	m := ctx.CreateModule("kitchen")
	ctx.SetModuleTarget(m, "x86_64-unknown-linux-gnu")

	i64 := ctx.IntType(64)
	i1 := ctx.IntType(1)
	f64 := ctx.DoubleType()
	pair := ctx.StructType([]native.TypeRef{i64, i64}, false)

	node := ctx.CreateNamedStruct("node")
	ctx.StructSetBody(node, []native.TypeRef{i64, ctx.PointerType(node, 0)}, false)
	ctx.AddGlobal(m, "head", ctx.PointerType(node, 0), 0)
	banner := ctx.ConstString("hi", false)
	ctx.SetInitializer(ctx.AddGlobal(m, "banner", ctx.TypeOf(banner), 0), banner)
	seed := ctx.AddGlobal(m, "seed", i64, 0)
	ctx.SetInitializer(seed, ctx.ConstInt(i64, 3))

	sink := ctx.AddFunction(m, "sink", ctx.FunctionType(ctx.VoidType(), []native.TypeRef{i64}))

	f := ctx.AddFunction(m, "kitchen", ctx.FunctionType(i64, []native.TypeRef{i64, f64}))
	n := ctx.Param(f, 0)
	x := ctx.Param(f, 1)
	entry := ctx.AppendBlock(f, "entry")
	one := ctx.AppendBlock(f, "one")
	done := ctx.AppendBlock(f, "done")

	ins := func(b native.BlockRef, in native.Instr) native.ValueRef {
		return ctx.InsertInstr(b, native.NoValue, in)
	}

	slot := ins(entry, native.Instr{Op: native.OpAlloca, Type: ctx.PointerType(i64, 0), AllocTy: i64, Name: "slot"})
	ins(entry, native.Instr{Op: native.OpStore, Operands: []native.ValueRef{n, slot}})
	v := ins(entry, native.Instr{Op: native.OpLoad, Type: i64, Operands: []native.ValueRef{slot}, Name: "v"})
	arrTy := ctx.ArrayType(i64, 4)
	arr := ins(entry, native.Instr{Op: native.OpAlloca, Type: ctx.PointerType(arrTy, 0), AllocTy: arrTy, Name: "arr"})
	p := ins(entry, native.Instr{
		Op: native.OpInBoundsGEP, Type: ctx.PointerType(i64, 0), Name: "p",
		Operands: []native.ValueRef{arr, ctx.ConstInt(i64, 0), ctx.ConstInt(i64, 2)},
	})
	ins(entry, native.Instr{Op: native.OpStore, Operands: []native.ValueRef{v, p}})
	many := ins(entry, native.Instr{
		Op: native.OpArrayAlloca, Type: ctx.PointerType(i64, 0), AllocTy: i64,
		Operands: []native.ValueRef{n}, Name: "many",
	})
	ins(entry, native.Instr{Op: native.OpFree, Operands: []native.ValueRef{many}})
	neg := ins(entry, native.Instr{Op: native.OpNeg, Type: i64, Operands: []native.ValueRef{v}, Name: "neg"})
	not := ins(entry, native.Instr{Op: native.OpNot, Type: i64, Operands: []native.ValueRef{neg}, Name: "not"})
	sh := ins(entry, native.Instr{
		Op: native.OpShl, Type: i64, Name: "sh",
		Operands: []native.ValueRef{not, ctx.ConstInt(i64, 3)},
	})
	f1 := ins(entry, native.Instr{
		Op: native.OpFAdd, Type: f64, Name: "f1",
		Operands: []native.ValueRef{x, ctx.ConstFloat(f64, 2.5)},
	})
	fc := ins(entry, native.Instr{
		Op: native.OpFCmp, Type: i1, RPred: native.RealOLT, Name: "fc",
		Operands: []native.ValueRef{f1, x},
	})
	sel := ins(entry, native.Instr{
		Op: native.OpSelect, Type: i64, Name: "sel",
		Operands: []native.ValueRef{fc, sh, v},
	})
	agg := ins(entry, native.Instr{
		Op: native.OpInsertValue, Type: pair, AggIndex: 1, Name: "agg",
		Operands: []native.ValueRef{ctx.Undef(pair), sel},
	})
	ex := ins(entry, native.Instr{
		Op: native.OpExtractValue, Type: i64, AggIndex: 1, Name: "ex",
		Operands: []native.ValueRef{agg},
	})
	ins(entry, native.Instr{Op: native.OpBitCast, Type: f64, Operands: []native.ValueRef{ex}, Name: "bits"})
	ins(entry, native.Instr{Op: native.OpCall, Type: native.NoType, Operands: []native.ValueRef{sink, ex}})
	sw := ins(entry, native.Instr{
		Op: native.OpSwitch, Operands: []native.ValueRef{ex},
		Dests: []native.BlockRef{done},
	})
	ctx.AddCase(sw, ctx.ConstInt(i64, 1), one)

	t := ins(one, native.Instr{
		Op: native.OpCall, Type: i64, Tail: true, Name: "t",
		Operands: []native.ValueRef{f, ex, f1},
	})
	ins(one, native.Instr{Op: native.OpRet, Operands: []native.ValueRef{t}})

	ph := ins(done, native.Instr{Op: native.OpPhi, Type: i64, Name: "ph"})
	ctx.AddIncoming(ph, ex, entry)
	ins(done, native.Instr{Op: native.OpRet, Operands: []native.ValueRef{ph}})
	return m
}

func TestParsePrintedModule(t *testing.T) {
	src := native.NewContext()
	m := buildKitchen(src)
	text := src.ModuleString(m)

	dst := native.NewContext()
	back, err := Parse(dst, text)
	if err != nil {
		t.Fatalf("Parse:\n%s\n%v", text, err)
	}
	if got := dst.ModuleString(back); got != text {
		t.Errorf("reprint differs:\n--- printed\n%s\n--- reparsed\n%s", text, got)
	}
}

func TestParseModuleHeader(t *testing.T) {
	ctx := native.NewContext()
	src := strings.Join([]string{
		"; ModuleID = 'hdr'",
		`target triple = "aarch64-apple-darwin"`,
		`target datalayout = "e-m:o"`,
		"%cell = type { i64 }",
		"%lazy = type opaque",
		"@slot = external global %cell",
		"@six = global i64 6",
	}, "\n")
	m, err := Parse(ctx, src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := ctx.ModuleName(m); got != "hdr" {
		t.Errorf("module name = %q, want hdr", got)
	}
	if got := ctx.ModuleTarget(m); got != "aarch64-apple-darwin" {
		t.Errorf("target = %q", got)
	}
	if got := ctx.ModuleDataLayout(m); got != "e-m:o" {
		t.Errorf("layout = %q", got)
	}
	six := ctx.NamedGlobal(m, "six")
	if six == native.NoValue {
		t.Fatal("@six should be defined")
	}
	init := ctx.Initializer(six)
	if init == native.NoValue || ctx.ConstIntValue(init) != 6 {
		t.Error("@six should be initialized to 6")
	}
	if ctx.Initializer(ctx.NamedGlobal(m, "slot")) != native.NoValue {
		t.Error("@slot should stay external")
	}
}

func TestParseErrorsCarryLineNumbers(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want string
	}{
		{
			"unknown local",
			"; ModuleID = 'm'\ndefine i64 @f(i64 %n) {\nentry:\n  ret i64 %ghost\n}",
			"line 4",
		},
		{
			"unknown named type",
			"; ModuleID = 'm'\n@g = external global %mystery",
			"line 2",
		},
		{
			"unknown callee",
			"; ModuleID = 'm'\ndefine void @f() {\nentry:\n  call void @nobody()\n  ret void\n}",
			"line 4",
		},
		{
			"unterminated body",
			"; ModuleID = 'm'\ndefine void @f() {\nentry:\n  ret void",
			"line 2",
		},
	}
	for _, tc := range cases {
		ctx := native.NewContext()
		_, err := Parse(ctx, tc.src)
		if err == nil {
			t.Errorf("%s: parse should fail", tc.name)
			continue
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Errorf("%s: error %q should carry %q", tc.name, err.Error(), tc.want)
		}
	}
}

func TestParseFileErrorsCarryPath(t *testing.T) {
	ctx := native.NewContext()
	missing := filepath.Join(t.TempDir(), "missing.ll")
	_, err := ParseFile(ctx, missing)
	if err == nil || !strings.Contains(err.Error(), missing) {
		t.Errorf("ParseFile error %v should carry the path", err)
	}
}
