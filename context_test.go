package forge

import "testing"

func TestContextDisposeTwicePanics(t *testing.T) {
	ctx := NewContext()
	ctx.Dispose()
	mustPanic(t, func() {
		ctx.Dispose()
	})
}

func TestUseAfterModuleDisposePanics(t *testing.T) {
	ctx := NewContext()
	defer ctx.Dispose()

	m := NewModule(ctx, "gone")
	fn := m.AddFunction("f", SignatureType(ctx.VoidType(), nil))
	m.Dispose()

	mustPanic(t, func() {
		fn.AppendBlock("entry")
	})
	mustPanic(t, func() {
		m.Dispose()
	})
}

func TestTypesSurviveModuleDispose(t *testing.T) {
	ctx := NewContext()
	defer ctx.Dispose()

	m := NewModule(ctx, "gone")
	i64 := ctx.Int64Type()
	m.Dispose()

	// Types are owned by the context, not the module.
	if got := i64.String(); got != "i64" {
		t.Errorf("String() = %q after module dispose", got)
	}
}
