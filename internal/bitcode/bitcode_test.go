package bitcode

import (
	"path/filepath"
	"strings"
	"testing"

	"forge/internal/native"
)

// buildSample assembles a module touching every record kind the format
// carries: named struct types, globals with and without initializers, a
// declaration with attribute words, and a body with a loop whose phi
// nodes forward-reference instructions defined later in the block.
func buildSample(ctx *native.Context) native.ModuleRef {
	m := ctx.CreateModule("sample")
	ctx.SetModuleTarget(m, "x86_64-unknown-linux-gnu")
	ctx.SetModuleDataLayout(m, "e-m:e-i64:64")

	i64 := ctx.IntType(64)
	node := ctx.CreateNamedStruct("node")
	ctx.StructSetBody(node, []native.TypeRef{i64, ctx.PointerType(node, 0)}, false)
	ctx.AddGlobal(m, "head", ctx.PointerType(node, 0), 0)
	ctx.AddGlobal(m, "tile", ctx.IntType(32), 3)

	banner := ctx.ConstString("ok", false)
	g := ctx.AddGlobal(m, "banner", ctx.TypeOf(banner), 0)
	ctx.SetInitializer(g, banner)

	sink := ctx.AddFunction(m, "sink", ctx.FunctionType(ctx.VoidType(), []native.TypeRef{ctx.PointerType(ctx.IntType(8), 0)}))
	ctx.AddFunctionAttr(sink, 1<<5)
	ctx.AddArgAttr(ctx.Param(sink, 0), 1<<21)

	sum := ctx.AddFunction(m, "sum", ctx.FunctionType(i64, []native.TypeRef{i64}))
	n := ctx.Param(sum, 0)
	entry := ctx.AppendBlock(sum, "entry")
	loop := ctx.AppendBlock(sum, "loop")
	exit := ctx.AppendBlock(sum, "exit")

	ctx.InsertInstr(entry, native.NoValue, native.Instr{Op: native.OpBr, Dests: []native.BlockRef{loop}})

	i := ctx.InsertInstr(loop, native.NoValue, native.Instr{Op: native.OpPhi, Type: i64, Name: "i"})
	acc := ctx.InsertInstr(loop, native.NoValue, native.Instr{Op: native.OpPhi, Type: i64, Name: "acc"})
	inext := ctx.InsertInstr(loop, native.NoValue, native.Instr{
		Op: native.OpAdd, Type: i64, Operands: []native.ValueRef{i, ctx.ConstInt(i64, 1)}, Name: "inext",
	})
	accnext := ctx.InsertInstr(loop, native.NoValue, native.Instr{
		Op: native.OpAdd, Type: i64, Operands: []native.ValueRef{acc, i}, Name: "accnext",
	})
	done := ctx.InsertInstr(loop, native.NoValue, native.Instr{
		Op: native.OpICmp, Type: ctx.IntType(1), IPred: native.IntSGE,
		Operands: []native.ValueRef{inext, n}, Name: "done",
	})
	ctx.InsertInstr(loop, native.NoValue, native.Instr{
		Op: native.OpCondBr, Operands: []native.ValueRef{done},
		Dests: []native.BlockRef{exit, loop},
	})
	ctx.AddIncoming(i, ctx.ConstInt(i64, 0), entry)
	ctx.AddIncoming(i, inext, loop)
	ctx.AddIncoming(acc, ctx.ConstInt(i64, 0), entry)
	ctx.AddIncoming(acc, accnext, loop)

	ctx.InsertInstr(exit, native.NoValue, native.Instr{Op: native.OpRet, Operands: []native.ValueRef{acc}})
	return m
}

func TestRoundTrip(t *testing.T) {
	src := native.NewContext()
	m := buildSample(src)

	data, err := Marshal(src, m)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.HasPrefix(string(data), Magic) {
		t.Fatalf("stream should start with %q", Magic)
	}

	dst := native.NewContext()
	back, err := Read(dst, data)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := src.ModuleString(m)
	got := dst.ModuleString(back)
	if got != want {
		t.Errorf("round trip changed the module:\n--- wrote\n%s\n--- read\n%s", want, got)
	}
	if err := dst.VerifyModule(back); err != nil {
		t.Errorf("the materialized module should verify: %v", err)
	}
}

func TestRoundTripPreservesAttributes(t *testing.T) {
	src := native.NewContext()
	m := buildSample(src)
	data, err := Marshal(src, m)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	dst := native.NewContext()
	back, err := Read(dst, data)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	sink := dst.NamedFunction(back, "sink")
	if sink == native.NoValue {
		t.Fatal("sink should survive the round trip")
	}
	if got := dst.GetFunctionAttr(sink); got != 1<<5 {
		t.Errorf("function attribute word = %#x, want %#x", got, uint32(1<<5))
	}
	if got := dst.GetArgAttr(dst.Param(sink, 0)); got != 1<<21 {
		t.Errorf("argument attribute word = %#x, want %#x", got, uint32(1<<21))
	}
}

func TestReadRejectsBadStreams(t *testing.T) {
	ctx := native.NewContext()

	if _, err := Read(ctx, []byte("not bitcode at all")); err == nil || !strings.Contains(err.Error(), "bad magic") {
		t.Errorf("foreign bytes: %v", err)
	}
	if _, err := Read(ctx, []byte(Magic[:2])); err == nil || !strings.Contains(err.Error(), "bad magic") {
		t.Errorf("truncated header: %v", err)
	}

	src := native.NewContext()
	data, err := Marshal(src, buildSample(src))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	data[len(Magic)] ^= 0xff // corrupt the schema version
	if _, err := Read(ctx, data); err == nil || !strings.Contains(err.Error(), "unsupported schema") {
		t.Errorf("schema mismatch: %v", err)
	}
}

// The writer serializes whatever the arena holds, so streams carrying
// aggregate indices past the member count can exist on disk. The reader
// must turn them into diagnostics instead of handing them to the
// evaluator.
func TestReadRejectsBadAggregateIndices(t *testing.T) {
	t.Run("extractvalue", func(t *testing.T) {
		src := native.NewContext()
		m := src.CreateModule("evil")
		i64 := src.IntType(64)
		st := src.StructType([]native.TypeRef{i64}, false)
		f := src.AddFunction(m, "f", src.FunctionType(i64, nil))
		b := src.AppendBlock(f, "entry")
		v := src.InsertInstr(b, native.NoValue, native.Instr{
			Op: native.OpExtractValue, Type: i64, AggIndex: 5,
			Operands: []native.ValueRef{src.Undef(st)},
		})
		src.InsertInstr(b, native.NoValue, native.Instr{Op: native.OpRet, Operands: []native.ValueRef{v}})

		data, err := Marshal(src, m)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		_, err = Read(native.NewContext(), data)
		if err == nil || !strings.Contains(err.Error(), "out of range") {
			t.Errorf("extractvalue index 5 into a one-field struct: %v", err)
		}
	})

	t.Run("getelementptr", func(t *testing.T) {
		src := native.NewContext()
		m := src.CreateModule("evil")
		i64 := src.IntType(64)
		st := src.StructType([]native.TypeRef{i64}, false)
		f := src.AddFunction(m, "f", src.FunctionType(i64, nil))
		b := src.AppendBlock(f, "entry")
		slot := src.InsertInstr(b, native.NoValue, native.Instr{
			Op: native.OpAlloca, Type: src.PointerType(st, 0), AllocTy: st,
		})
		p := src.InsertInstr(b, native.NoValue, native.Instr{
			Op: native.OpInBoundsGEP, Type: src.PointerType(i64, 0),
			Operands: []native.ValueRef{slot, src.ConstInt(i64, 0), src.ConstInt(i64, 9)},
		})
		v := src.InsertInstr(b, native.NoValue, native.Instr{Op: native.OpLoad, Type: i64, Operands: []native.ValueRef{p}})
		src.InsertInstr(b, native.NoValue, native.Instr{Op: native.OpRet, Operands: []native.ValueRef{v}})

		data, err := Marshal(src, m)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		_, err = Read(native.NewContext(), data)
		if err == nil || !strings.Contains(err.Error(), "out of range") {
			t.Errorf("getelementptr field 9 of a one-field struct: %v", err)
		}
	})
}

func TestFileErrorsCarryPath(t *testing.T) {
	ctx := native.NewContext()

	missing := filepath.Join(t.TempDir(), "missing.bc")
	_, err := ReadFile(ctx, missing)
	if err == nil || !strings.Contains(err.Error(), missing) {
		t.Errorf("ReadFile error %v should carry the path", err)
	}

	m := ctx.CreateModule("m")
	bad := filepath.Join(t.TempDir(), "no", "such", "dir", "out.bc")
	err = WriteFile(ctx, m, bad)
	if err == nil || !strings.Contains(err.Error(), bad) {
		t.Errorf("WriteFile error %v should carry the path", err)
	}
}

func TestBufferOwnership(t *testing.T) {
	buf := NewBuffer([]byte{1, 2, 3})
	if buf.Len() != 3 {
		t.Errorf("Len() = %d, want 3", buf.Len())
	}
	buf.Dispose()
	defer func() {
		if recover() == nil {
			t.Error("Len after Dispose should panic")
		}
	}()
	buf.Len()
}
