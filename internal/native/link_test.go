package native

import (
	"strings"
	"testing"
)

func TestLinkMovesSymbols(t *testing.T) {
	ctx := NewContext()
	dst := ctx.CreateModule("dst")
	src := ctx.CreateModule("src")
	buildReturnConst(ctx, dst, "a", 1)
	buildReturnConst(ctx, src, "b", 2)
	g := ctx.AddGlobal(src, "counter", ctx.IntType(64), 0)

	if err := ctx.LinkModules(dst, src, false); err != nil {
		t.Fatalf("link failed: %v", err)
	}
	if ctx.NamedFunction(dst, "b") == NoValue {
		t.Fatalf("function b should have moved into dst")
	}
	if ctx.NamedGlobal(dst, "counter") != g {
		t.Fatalf("global should keep its handle across the move")
	}
	if ctx.NamedFunction(src, "b") != NoValue {
		t.Fatalf("src should be emptied")
	}
	// src stays alive when destroySource is false.
	if !ctx.ModuleAlive(src) {
		t.Fatalf("src should remain alive")
	}
	if err := ctx.VerifyModule(dst); err != nil {
		t.Fatalf("linked module should verify: %v", err)
	}
}

func TestLinkDestroySource(t *testing.T) {
	ctx := NewContext()
	dst := ctx.CreateModule("dst")
	src := ctx.CreateModule("src")
	f := buildReturnConst(ctx, src, "moved", 3)
	if err := ctx.LinkModules(dst, src, true); err != nil {
		t.Fatalf("link failed: %v", err)
	}
	if ctx.ModuleAlive(src) {
		t.Fatalf("src should be disposed")
	}
	// The moved function now lives under dst and stays dereferenceable.
	if got := ctx.ValueName(f); got != "moved" {
		t.Fatalf("moved function name = %q", got)
	}
}

func TestLinkDuplicateSymbolFails(t *testing.T) {
	ctx := NewContext()
	dst := ctx.CreateModule("dst")
	src := ctx.CreateModule("src")
	buildReturnConst(ctx, dst, "f", 1)
	buildReturnConst(ctx, src, "f", 2)
	err := ctx.LinkModules(dst, src, false)
	if err == nil || !strings.Contains(err.Error(), "multiply defined") {
		t.Fatalf("expected duplicate-symbol diagnostic, got: %v", err)
	}
}

func TestCloneModuleIsIndependent(t *testing.T) {
	ctx := NewContext()
	m := ctx.CreateModule("m")
	buildReturnConst(ctx, m, "f", 9)
	clone := ctx.CloneModule(m)
	if ctx.NamedFunction(clone, "f") == NoValue {
		t.Fatalf("clone should carry the function")
	}
	if err := ctx.VerifyModule(clone); err != nil {
		t.Fatalf("clone should verify: %v", err)
	}
	ctx.DisposeModule(m)
	// The clone survives disposal of the original.
	if ctx.NamedFunction(clone, "f") == NoValue {
		t.Fatalf("clone must not share ownership with the original")
	}
}
