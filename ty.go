package forge

import "forge/internal/native"

// Type is a borrowed reference to an immutable, uniqued type descriptor.
// Types are owned by their Context and are never destroyed on their own.
type Type struct {
	c *native.Context
	t native.TypeRef
}

// ArrayType returns the array type [length x elem].
func ArrayType(elem Type, length uint32) Type {
	return Type{elem.c, elem.c.ArrayType(elem.t, length)}
}

// VectorType returns the vector type <length x elem>.
func VectorType(elem Type, length uint32) Type {
	return Type{elem.c, elem.c.VectorType(elem.t, length)}
}

// PointerType returns the pointer type to elem in address space 0.
// Address-space-qualified pointers only arise through
// Module.AddGlobalInAddressSpace.
func PointerType(elem Type) Type {
	return Type{elem.c, elem.c.PointerType(elem.t, 0)}
}

// String renders the canonical text form of the type.
func (t Type) String() string { return t.c.TypeString(t.t) }

// IsSized reports whether values of the type have a size known up front.
func (t Type) IsSized() bool { return t.c.TypeIsSized(t.t) }

// IsFunction reports whether the type is a function signature.
func (t Type) IsFunction() bool { return t.c.Kind(t.t) == native.KindFunction }

// IsStruct reports whether the type is a structure.
func (t Type) IsStruct() bool { return t.c.Kind(t.t) == native.KindStruct }

// IsVoid reports whether the type is void.
func (t Type) IsVoid() bool { return t.c.Kind(t.t) == native.KindVoid }

// IsPointer reports whether the type is a pointer.
func (t Type) IsPointer() bool { return t.c.Kind(t.t) == native.KindPointer }

// IsInteger reports whether the type is an integer of any width.
func (t Type) IsInteger() bool { return t.c.Kind(t.t) == native.KindInteger }

// IsFloat reports whether the type is any floating-point number: the
// 16-, 32- and 64-bit widths all count.
func (t Type) IsFloat() bool {
	switch t.c.Kind(t.t) {
	case native.KindHalf, native.KindFloat, native.KindDouble:
		return true
	default:
		return false
	}
}

// Elem returns the pointee/element type of a pointer, array or vector
// type. Absence means the type has no element.
func (t Type) Elem() (Type, bool) {
	e := t.c.ElemType(t.t)
	if e == native.NoType {
		return Type{}, false
	}
	return Type{t.c, e}, true
}

// StructType is a structure type, anonymous or named.
type StructType struct {
	Type
}

// StructOf returns the anonymous struct type with the given fields.
func StructOf(ctx *Context, fields []Type, packed bool) StructType {
	refs := make([]native.TypeRef, len(fields))
	for i, f := range fields {
		refs[i] = f.t
	}
	return StructType{Type{ctx.raw, ctx.raw.StructType(refs, packed)}}
}

// NamedStructType registers an opaque struct under name. Attach the body
// with SetBody; splitting the two steps is what allows forward-declared
// recursive structures.
func NamedStructType(ctx *Context, name string) StructType {
	return StructType{Type{ctx.raw, ctx.raw.CreateNamedStruct(name)}}
}

// SetBody fills in the fields of a named struct.
func (s StructType) SetBody(fields []Type, packed bool) {
	refs := make([]native.TypeRef, len(fields))
	for i, f := range fields {
		refs[i] = f.t
	}
	s.c.StructSetBody(s.t, refs, packed)
}

// Elements returns the field types in declaration order.
func (s StructType) Elements() []Type {
	n := s.c.StructFieldCount(s.t)
	refs := make([]native.TypeRef, n)
	s.c.StructFields(s.t, refs)
	out := make([]Type, n)
	for i, r := range refs {
		out[i] = Type{s.c, r}
	}
	return out
}

// Name returns the struct's name, "" for anonymous structs.
func (s StructType) Name() string { return s.c.StructName(s.t) }

// Packed reports whether the struct layout is packed.
func (s StructType) Packed() bool { return s.c.StructPacked(s.t) }

// FunctionType is a function signature type.
type FunctionType struct {
	Type
}

// SignatureType returns the non-variadic signature ret(params...).
func SignatureType(ret Type, params []Type) FunctionType {
	refs := make([]native.TypeRef, len(params))
	for i, p := range params {
		refs[i] = p.t
	}
	return FunctionType{Type{ret.c, ret.c.FunctionType(ret.t, refs)}}
}

// NumParams returns how many parameters the signature takes.
func (f FunctionType) NumParams() int { return int(f.c.ParamCount(f.t)) }

// Params returns the parameter types in order.
func (f FunctionType) Params() []Type {
	n := f.c.ParamCount(f.t)
	refs := make([]native.TypeRef, n)
	f.c.ParamTypes(f.t, refs)
	out := make([]Type, n)
	for i, r := range refs {
		out[i] = Type{f.c, r}
	}
	return out
}

// Return returns the signature's return type.
func (f FunctionType) Return() Type { return Type{f.c, f.c.ReturnType(f.t)} }
