package forge

import "forge/internal/native"

// caster is implemented by every narrowable kind: it inspects the
// discriminant of the general handle and, only on a match, adopts it.
type caster[F any] interface {
	castFrom(F) bool
}

// Cast attempts to narrow a general handle (Value or Type) to the
// specific kind T. Casts fail closed: on a mismatch the zero T and false
// are returned, the handle is never reinterpreted.
//
//	fn, ok := forge.Cast[forge.Function](val)
func Cast[T any, PT interface {
	caster[F]
	*T
}, F any](from F) (T, bool) {
	var out T
	ok := PT(&out).castFrom(from)
	if !ok {
		var zero T
		return zero, false
	}
	return out, true
}

// MustCast narrows like Cast but treats a mismatch as a contract
// violation: use it only where success is assumed by construction.
func MustCast[T any, PT interface {
	caster[F]
	*T
}, F any](from F) T {
	out, ok := Cast[T, PT](from)
	if !ok {
		panic("forge: MustCast on a handle of the wrong kind")
	}
	return out
}

// GlobalValue narrows via the native is-a predicate.
func (g *GlobalValue) castFrom(v Value) bool {
	if !v.c.IsAGlobal(v.v) {
		return false
	}
	g.Value = v
	return true
}

// Function narrows when the value's type is a function signature,
// unwrapping exactly one level of pointer indirection first because
// functions are referenced by pointer.
func (f *Function) castFrom(v Value) bool {
	ty := v.Type()
	isFunc := ty.IsFunction()
	if elem, ok := ty.Elem(); ok {
		isFunc = isFunc || elem.IsFunction()
	}
	if !isFunc {
		return false
	}
	f.Value = v
	return true
}

// PhiNode narrows when the value is a phi instruction.
func (p *PhiNode) castFrom(v Value) bool {
	if v.c.ValueKindOf(v.v) != native.ValInstr || v.c.InstrOpcode(v.v) != native.OpPhi {
		return false
	}
	p.Value = v
	return true
}

// StructType narrows on the type-kind tag directly.
func (s *StructType) castFrom(t Type) bool {
	if t.c.Kind(t.t) != native.KindStruct {
		return false
	}
	s.Type = t
	return true
}

// FunctionType narrows on the type-kind tag after unwrapping element
// indirection all the way down.
func (f *FunctionType) castFrom(t Type) bool {
	for {
		elem, ok := t.Elem()
		if !ok {
			break
		}
		t = elem
	}
	if t.c.Kind(t.t) != native.KindFunction {
		return false
	}
	f.Type = t
	return true
}
