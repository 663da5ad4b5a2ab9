package exec

import (
	"math"
	"strings"
	"testing"

	"forge/internal/native"
)

func ins(ctx *native.Context, b native.BlockRef, in native.Instr) native.ValueRef {
	return ctx.InsertInstr(b, native.NoValue, in)
}

func TestGlobalStatePersistsAcrossCalls(t *testing.T) {
	ctx := native.NewContext()
	m := ctx.CreateModule("counter")
	i64 := ctx.IntType(64)

	g := ctx.AddGlobal(m, "count", i64, 0)
	ctx.SetInitializer(g, ctx.ConstInt(i64, 0))

	bump := ctx.AddFunction(m, "bump", ctx.FunctionType(i64, nil))
	entry := ctx.AppendBlock(bump, "entry")
	cur := ins(ctx, entry, native.Instr{Op: native.OpLoad, Type: i64, Operands: []native.ValueRef{g}})
	next := ins(ctx, entry, native.Instr{
		Op: native.OpAdd, Type: i64,
		Operands: []native.ValueRef{cur, ctx.ConstInt(i64, 1)},
	})
	ins(ctx, entry, native.Instr{Op: native.OpStore, Operands: []native.ValueRef{next, g}})
	ins(ctx, entry, native.Instr{Op: native.OpRet, Operands: []native.ValueRef{next}})

	in := New(ctx, m)
	for want := uint64(1); want <= 3; want++ {
		ret, err := in.Call(bump, nil)
		if err != nil {
			t.Fatalf("bump: %v", err)
		}
		if ret.Int != want {
			t.Errorf("bump = %d, want %d", ret.Int, want)
		}
	}
}

func TestStackSlotsVanishOnReturn(t *testing.T) {
	ctx := native.NewContext()
	m := ctx.CreateModule("stack")
	i64 := ctx.IntType(64)

	f := ctx.AddFunction(m, "scratch", ctx.FunctionType(i64, nil))
	entry := ctx.AppendBlock(f, "entry")
	ins(ctx, entry, native.Instr{
		Op: native.OpAlloca, Type: ctx.PointerType(i64, 0), AllocTy: ctx.ArrayType(i64, 100),
	})
	ins(ctx, entry, native.Instr{Op: native.OpRet, Operands: []native.ValueRef{ctx.ConstInt(i64, 0)}})

	in := New(ctx, m)
	if _, err := in.Call(f, nil); err != nil {
		t.Fatalf("scratch: %v", err)
	}
	mark := len(in.mem)
	for i := 0; i < 10; i++ {
		if _, err := in.Call(f, nil); err != nil {
			t.Fatalf("scratch: %v", err)
		}
	}
	if len(in.mem) != mark {
		t.Errorf("memory grew from %d to %d cells across calls", mark, len(in.mem))
	}
}

// buildBinary assembles `define iN @name(iN, iN) { ... op ... }`.
func buildBinary(ctx *native.Context, m native.ModuleRef, name string, ty native.TypeRef, op native.Opcode) native.ValueRef {
	f := ctx.AddFunction(m, name, ctx.FunctionType(ty, []native.TypeRef{ty, ty}))
	entry := ctx.AppendBlock(f, "entry")
	r := ins(ctx, entry, native.Instr{
		Op: op, Type: ty,
		Operands: []native.ValueRef{ctx.Param(f, 0), ctx.Param(f, 1)},
	})
	ins(ctx, entry, native.Instr{Op: native.OpRet, Operands: []native.ValueRef{r}})
	return f
}

func TestSignedDivision(t *testing.T) {
	ctx := native.NewContext()
	m := ctx.CreateModule("div")
	i64 := ctx.IntType(64)
	div := buildBinary(ctx, m, "div", i64, native.OpSDiv)
	rem := buildBinary(ctx, m, "rem", i64, native.OpSRem)
	in := New(ctx, m)

	neg7 := int64(-7)
	ret, err := in.Call(div, []Value{IntValue(uint64(neg7)), IntValue(2)})
	if err != nil {
		t.Fatalf("div(-7, 2): %v", err)
	}
	if int64(ret.Int) != -3 {
		t.Errorf("div(-7, 2) = %d, want -3", int64(ret.Int))
	}

	_, err = in.Call(div, []Value{IntValue(1), IntValue(0)})
	if err == nil || !strings.Contains(err.Error(), "division by zero") {
		t.Errorf("div(1, 0): %v", err)
	}

	// The one overflowing quotient wraps; its remainder is zero.
	minInt64 := int64(math.MinInt64)
	neg1 := int64(-1)
	minInt := uint64(minInt64)
	ret, err = in.Call(div, []Value{IntValue(minInt), IntValue(uint64(neg1))})
	if err != nil {
		t.Fatalf("div(min, -1): %v", err)
	}
	if ret.Int != minInt {
		t.Errorf("div(min, -1) = %#x, want %#x", ret.Int, minInt)
	}
	ret, err = in.Call(rem, []Value{IntValue(minInt), IntValue(uint64(neg1))})
	if err != nil {
		t.Fatalf("rem(min, -1): %v", err)
	}
	if ret.Int != 0 {
		t.Errorf("rem(min, -1) = %d, want 0", ret.Int)
	}
}

func TestNarrowWidthSemantics(t *testing.T) {
	ctx := native.NewContext()
	m := ctx.CreateModule("narrow")
	i8 := ctx.IntType(8)
	add := buildBinary(ctx, m, "add", i8, native.OpAdd)

	cmp := ctx.AddFunction(m, "lt", ctx.FunctionType(ctx.IntType(1), []native.TypeRef{i8, i8}))
	entry := ctx.AppendBlock(cmp, "entry")
	r := ins(ctx, entry, native.Instr{
		Op: native.OpICmp, Type: ctx.IntType(1), IPred: native.IntSLT,
		Operands: []native.ValueRef{ctx.Param(cmp, 0), ctx.Param(cmp, 1)},
	})
	ins(ctx, entry, native.Instr{Op: native.OpRet, Operands: []native.ValueRef{r}})

	in := New(ctx, m)
	ret, err := in.Call(add, []Value{IntValue(200), IntValue(100)})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if ret.Int != 44 { // 300 mod 256
		t.Errorf("i8 add(200, 100) = %d, want 44", ret.Int)
	}

	// 0xff is -1 as a signed byte, so it compares below 1.
	ret, err = in.Call(cmp, []Value{IntValue(0xff), IntValue(1)})
	if err != nil {
		t.Fatalf("lt: %v", err)
	}
	if ret.Int != 1 {
		t.Errorf("i8 lt(0xff, 1) = %d, want 1", ret.Int)
	}
}

func TestAggregateMemory(t *testing.T) {
	ctx := native.NewContext()
	m := ctx.CreateModule("agg")
	i64 := ctx.IntType(64)
	inner := ctx.ArrayType(i64, 2)
	st := ctx.StructType([]native.TypeRef{i64, inner}, false)

	f := ctx.AddFunction(m, "pick", ctx.FunctionType(i64, []native.TypeRef{i64}))
	entry := ctx.AppendBlock(f, "entry")
	slot := ins(ctx, entry, native.Instr{Op: native.OpAlloca, Type: ctx.PointerType(st, 0), AllocTy: st})
	// Write the argument into field 1, element 1, then read the whole
	// struct back and extract it again.
	p := ins(ctx, entry, native.Instr{
		Op: native.OpInBoundsGEP, Type: ctx.PointerType(i64, 0),
		Operands: []native.ValueRef{slot, ctx.ConstInt(i64, 0), ctx.ConstInt(i64, 1), ctx.ConstInt(i64, 1)},
	})
	ins(ctx, entry, native.Instr{Op: native.OpStore, Operands: []native.ValueRef{ctx.Param(f, 0), p}})
	whole := ins(ctx, entry, native.Instr{Op: native.OpLoad, Type: st, Operands: []native.ValueRef{slot}})
	arr := ins(ctx, entry, native.Instr{
		Op: native.OpExtractValue, Type: inner, AggIndex: 1, Operands: []native.ValueRef{whole},
	})
	el := ins(ctx, entry, native.Instr{
		Op: native.OpExtractValue, Type: i64, AggIndex: 1, Operands: []native.ValueRef{arr},
	})
	ins(ctx, entry, native.Instr{Op: native.OpRet, Operands: []native.ValueRef{el}})

	in := New(ctx, m)
	ret, err := in.Call(f, []Value{IntValue(99)})
	if err != nil {
		t.Fatalf("pick: %v", err)
	}
	if ret.Int != 99 {
		t.Errorf("pick(99) = %d, want 99", ret.Int)
	}
}

func TestOutOfBoundsAccess(t *testing.T) {
	ctx := native.NewContext()
	m := ctx.CreateModule("oob")
	i64 := ctx.IntType(64)

	f := ctx.AddFunction(m, "stray", ctx.FunctionType(i64, nil))
	entry := ctx.AppendBlock(f, "entry")
	slot := ins(ctx, entry, native.Instr{Op: native.OpAlloca, Type: ctx.PointerType(i64, 0), AllocTy: i64})
	p := ins(ctx, entry, native.Instr{
		Op: native.OpInBoundsGEP, Type: ctx.PointerType(i64, 0),
		Operands: []native.ValueRef{slot, ctx.ConstInt(i64, 1000)},
	})
	v := ins(ctx, entry, native.Instr{Op: native.OpLoad, Type: i64, Operands: []native.ValueRef{p}})
	ins(ctx, entry, native.Instr{Op: native.OpRet, Operands: []native.ValueRef{v}})

	in := New(ctx, m)
	_, err := in.Call(f, nil)
	if err == nil || !strings.Contains(err.Error(), "out of bounds") {
		t.Errorf("stray load: %v", err)
	}
}
