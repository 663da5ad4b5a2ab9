package forge

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestModuleMetadata(t *testing.T) {
	ctx := NewContext()
	defer ctx.Dispose()
	m := NewModule(ctx, "meta")

	if m.Name() != "meta" {
		t.Errorf("Name() = %q, want meta", m.Name())
	}
	if m.Target() != "" || m.DataLayout() != "" {
		t.Error("a fresh module should carry no target or layout")
	}
	m.SetTarget("x86_64-unknown-linux-gnu")
	m.SetDataLayout("e-m:e-i64:64-n8:16:32:64")
	if m.Target() != "x86_64-unknown-linux-gnu" {
		t.Errorf("Target() = %q", m.Target())
	}
	if m.DataLayout() != "e-m:e-i64:64-n8:16:32:64" {
		t.Errorf("DataLayout() = %q", m.DataLayout())
	}
}

func TestGlobalsAndLookup(t *testing.T) {
	ctx := NewContext()
	defer ctx.Dispose()
	m := NewModule(ctx, "globals")

	ext := m.AddGlobal(ctx.Int64Type(), "counter")
	if _, ok := ext.Initializer(); ok {
		t.Error("a plain global starts external")
	}
	if got := ext.Type().String(); got != "i64*" {
		t.Errorf("a global's value type = %q, want i64*", got)
	}

	shared := m.AddGlobalInAddressSpace(ctx.Int32Type(), "tile", AddressSpaceShared)
	if got := shared.Type().String(); got != "i32 addrspace(3)*" {
		t.Errorf("address-space global type = %q", got)
	}

	c := m.AddGlobalConstant(ConstOf(ctx, int64(42)), "answer")
	init, ok := c.Initializer()
	if !ok {
		t.Fatal("AddGlobalConstant should set the initializer")
	}
	if init.String() != "i64 42" {
		t.Errorf("initializer prints %q", init.String())
	}

	if g, ok := m.GetGlobal("answer"); !ok || g.v != c.v {
		t.Error("GetGlobal should find the constant by name")
	}
	if _, ok := m.GetGlobal("missing"); ok {
		t.Error("GetGlobal should report absence")
	}

	NamedStructType(ctx, "pair").SetBody([]Type{ctx.Int64Type(), ctx.Int64Type()}, false)
	if ty, ok := m.GetType("pair"); !ok || ty.String() != "%pair" {
		t.Errorf("GetType(pair) = %q, %v", ty.String(), ok)
	}
	if _, ok := m.GetType("absent"); ok {
		t.Error("GetType should report absence")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	ctx := NewContext()
	defer ctx.Dispose()
	m := NewModule(ctx, "orig")
	fib := buildFib(ctx, m)
	m.AddGlobalConstant(ConstOf(ctx, int64(7)), "seed")

	clone := m.Clone()
	if clone.String() != m.String() {
		t.Fatalf("clone text differs:\n%s\nvs\n%s", clone.String(), m.String())
	}

	// Mutating the clone leaves the original untouched.
	cf, _ := clone.GetFunction("fib")
	cf.SetName("fib2")
	if fib.FuncName() != "fib" {
		t.Error("renaming the clone's function renamed the original")
	}

	engine, err := NewJitEngine(clone, JitOptions{})
	if err != nil {
		t.Fatalf("NewJitEngine over the clone: %v", err)
	}
	ret, err := engine.RunFunction(cf, []GenericValue{GenericInt(9)})
	if err != nil {
		t.Fatalf("clone fib(9): %v", err)
	}
	if ret.Int != 34 {
		t.Errorf("clone fib(9) = %d, want 34", ret.Int)
	}
}

func TestLinkMergesAndDestroys(t *testing.T) {
	ctx := NewContext()
	defer ctx.Dispose()

	dst := NewModule(ctx, "dst")
	buildFib(ctx, dst)
	src := NewModule(ctx, "src")
	buildThresholdPhi(ctx, src)

	if err := dst.Link(src, true); err != nil {
		t.Fatalf("Link: %v", err)
	}
	if _, ok := dst.GetFunction("threshold_phi"); !ok {
		t.Error("the linked function should be visible in dst")
	}
	if len(dst.Functions().Collect()) != 2 {
		t.Error("dst should list both functions after linking")
	}
	mustPanic(t, func() {
		src.Name() // destroyed by the link
	})
	if err := dst.Verify(); err != nil {
		t.Errorf("the linked module should verify: %v", err)
	}
}

func TestLinkDiagnostics(t *testing.T) {
	ctx := NewContext()
	defer ctx.Dispose()

	a := NewModule(ctx, "a")
	buildFib(ctx, a)
	b := NewModule(ctx, "b")
	buildFib(ctx, b)
	err := a.Link(b, false)
	if err == nil || !strings.Contains(err.Error(), "multiply defined") {
		t.Errorf("linking duplicate symbols: %v", err)
	}
	// The failed link leaves src alive.
	if b.Name() != "b" {
		t.Error("src should survive a failed link")
	}

	other := NewContext()
	defer other.Dispose()
	foreign := NewModule(other, "foreign")
	if err := a.Link(foreign, false); err == nil {
		t.Error("cross-context links should be diagnostic errors")
	}
}

func TestBitcodeFileRoundTrip(t *testing.T) {
	ctx := NewContext()
	defer ctx.Dispose()
	m := NewModule(ctx, "disk")
	m.SetTarget("x86_64-unknown-linux-gnu")
	buildFib(ctx, m)

	path := filepath.Join(t.TempDir(), "disk.bc")
	if err := m.WriteBitcode(path); err != nil {
		t.Fatalf("WriteBitcode: %v", err)
	}

	back, err := ParseBitcode(ctx, path)
	if err != nil {
		t.Fatalf("ParseBitcode: %v", err)
	}
	if back.String() != m.String() {
		t.Errorf("round trip changed the module:\n%s\nvs\n%s", back.String(), m.String())
	}

	buf, err := NewMemoryBufferFromFile(path)
	if err != nil {
		t.Fatalf("NewMemoryBufferFromFile: %v", err)
	}
	if buf.Len() == 0 {
		t.Error("the buffer should not be empty")
	}
	again, err := ParseBitcodeBuffer(ctx, buf)
	if err != nil {
		t.Fatalf("ParseBitcodeBuffer: %v", err)
	}
	if again.String() != m.String() {
		t.Error("buffer round trip changed the module")
	}
	buf.Dispose()
	mustPanic(t, func() {
		buf.Len()
	})
	mustPanic(t, func() {
		buf.Dispose()
	})
}

func TestIRTextRoundTrip(t *testing.T) {
	ctx := NewContext()
	defer ctx.Dispose()
	m := NewModule(ctx, "text")
	buildFib(ctx, m)
	buildThresholdStored(ctx, m)
	buildThresholdPhi(ctx, m)

	back, err := ParseIRText(ctx, m.String())
	if err != nil {
		t.Fatalf("ParseIRText: %v", err)
	}
	if back.String() != m.String() {
		t.Errorf("text round trip changed the module:\n%s\nvs\n%s", back.String(), m.String())
	}
}

func TestParseIRTextErrorsCarryLines(t *testing.T) {
	ctx := NewContext()
	defer ctx.Dispose()

	src := "; ModuleID = 'bad'\ndefine i64 @f(i64 %n) {\nentry:\n  ret i64 %ghost\n}\n"
	_, err := ParseIRText(ctx, src)
	if err == nil {
		t.Fatal("a reference to an unknown value should fail")
	}
	if !strings.Contains(err.Error(), "line 4") {
		t.Errorf("error %q should carry the line number", err.Error())
	}
}
