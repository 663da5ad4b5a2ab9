package native

import (
	"fmt"
	"strings"

	"fortio.org/safecast"
)

// TypeKind enumerates the discriminant tags of type nodes.
type TypeKind uint8

const (
	KindInvalid TypeKind = iota
	KindVoid
	KindHalf
	KindFloat
	KindDouble
	KindInteger
	KindPointer
	KindArray
	KindVector
	KindStruct
	KindFunction
)

func (k TypeKind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindVoid:
		return "void"
	case KindHalf:
		return "half"
	case KindFloat:
		return "float"
	case KindDouble:
		return "double"
	case KindInteger:
		return "integer"
	case KindPointer:
		return "pointer"
	case KindArray:
		return "array"
	case KindVector:
		return "vector"
	case KindStruct:
		return "struct"
	case KindFunction:
		return "function"
	default:
		return fmt.Sprintf("TypeKind(%d)", k)
	}
}

// typeNode is a compact structural descriptor. Structural types are
// uniqued by key; named structs are not, so their bodies can be filled in
// after a forward declaration.
type typeNode struct {
	kind      TypeKind
	elem      TypeRef // pointer/array/vector element
	count     uint32  // array/vector length
	width     uint32  // integer bit width
	addrSpace uint32  // pointer address space
	fields    []TypeRef
	packed    bool
	name      string // named structs only
	opaque    bool   // named struct without a body yet
	ret       TypeRef
	params    []TypeRef
}

type typeKey struct {
	kind      TypeKind
	elem      TypeRef
	count     uint32
	width     uint32
	addrSpace uint32
	extra     string
}

func (t *typeNode) key() typeKey {
	k := typeKey{
		kind:      t.kind,
		elem:      t.elem,
		count:     t.count,
		width:     t.width,
		addrSpace: t.addrSpace,
	}
	switch t.kind {
	case KindStruct:
		var sb strings.Builder
		if t.packed {
			sb.WriteByte('p')
		}
		for _, f := range t.fields {
			fmt.Fprintf(&sb, ",%d", f)
		}
		k.extra = sb.String()
	case KindFunction:
		var sb strings.Builder
		fmt.Fprintf(&sb, "r%d", t.ret)
		for _, p := range t.params {
			fmt.Fprintf(&sb, ",%d", p)
		}
		k.extra = sb.String()
	}
	return k
}

func (c *Context) internType(t typeNode) TypeRef {
	c.checkAlive()
	key := t.key()
	if id, ok := c.typeIndex[key]; ok {
		return id
	}
	id := c.addType(t)
	c.typeIndex[key] = id
	return id
}

func (c *Context) addType(t typeNode) TypeRef {
	id, err := safecast.Conv[uint32](len(c.types))
	if err != nil {
		panic(fmt.Errorf("type arena overflow: %w", err))
	}
	c.types = append(c.types, t)
	return TypeRef(id)
}

func (c *Context) typ(t TypeRef) *typeNode {
	c.checkAlive()
	if t == NoType || int(t) >= len(c.types) {
		panic("native: invalid type handle")
	}
	return &c.types[t]
}

// VoidType returns the void type of this context.
func (c *Context) VoidType() TypeRef { return c.internType(typeNode{kind: KindVoid}) }

// HalfType returns the 16-bit floating-point type.
func (c *Context) HalfType() TypeRef { return c.internType(typeNode{kind: KindHalf}) }

// FloatType returns the 32-bit floating-point type.
func (c *Context) FloatType() TypeRef { return c.internType(typeNode{kind: KindFloat}) }

// DoubleType returns the 64-bit floating-point type.
func (c *Context) DoubleType() TypeRef { return c.internType(typeNode{kind: KindDouble}) }

// IntType returns the integer type of the given bit width.
func (c *Context) IntType(width uint32) TypeRef {
	if width == 0 {
		panic("native: zero-width integer type")
	}
	return c.internType(typeNode{kind: KindInteger, width: width})
}

// PointerType returns the pointer type to elem in the given address space.
func (c *Context) PointerType(elem TypeRef, addrSpace uint32) TypeRef {
	c.typ(elem)
	return c.internType(typeNode{kind: KindPointer, elem: elem, addrSpace: addrSpace})
}

// ArrayType returns the array type [count x elem].
func (c *Context) ArrayType(elem TypeRef, count uint32) TypeRef {
	c.typ(elem)
	return c.internType(typeNode{kind: KindArray, elem: elem, count: count})
}

// VectorType returns the vector type <count x elem>.
func (c *Context) VectorType(elem TypeRef, count uint32) TypeRef {
	c.typ(elem)
	return c.internType(typeNode{kind: KindVector, elem: elem, count: count})
}

// StructType returns the anonymous struct type with the given fields.
func (c *Context) StructType(fields []TypeRef, packed bool) TypeRef {
	for _, f := range fields {
		c.typ(f)
	}
	return c.internType(typeNode{kind: KindStruct, fields: append([]TypeRef(nil), fields...), packed: packed})
}

// CreateNamedStruct registers an opaque named struct. Named structs are
// never uniqued; the body is attached later with StructSetBody, which is
// what makes forward-declared recursive structures possible.
func (c *Context) CreateNamedStruct(name string) TypeRef {
	c.checkAlive()
	id := c.addType(typeNode{kind: KindStruct, name: name, opaque: true})
	c.named[name] = id
	return id
}

// StructSetBody fills in the body of a named struct.
func (c *Context) StructSetBody(t TypeRef, fields []TypeRef, packed bool) {
	tn := c.typ(t)
	if tn.kind != KindStruct || tn.name == "" {
		panic("native: StructSetBody on a non-named type")
	}
	for _, f := range fields {
		c.typ(f)
	}
	tn.fields = append([]TypeRef(nil), fields...)
	tn.packed = packed
	tn.opaque = false
}

// FunctionType returns the non-variadic signature ret(params...).
func (c *Context) FunctionType(ret TypeRef, params []TypeRef) TypeRef {
	c.typ(ret)
	for _, p := range params {
		c.typ(p)
	}
	return c.internType(typeNode{kind: KindFunction, ret: ret, params: append([]TypeRef(nil), params...)})
}

// Kind returns the discriminant tag of the type.
func (c *Context) Kind(t TypeRef) TypeKind { return c.typ(t).kind }

// ElemType returns the pointee/element type, or NoType when the type has
// no element (absence, not an error).
func (c *Context) ElemType(t TypeRef) TypeRef {
	tn := c.typ(t)
	switch tn.kind {
	case KindPointer, KindArray, KindVector:
		return tn.elem
	default:
		return NoType
	}
}

// IntWidth returns the bit width of an integer type.
func (c *Context) IntWidth(t TypeRef) uint32 { return c.typ(t).width }

// AddrSpace returns the address space of a pointer type.
func (c *Context) AddrSpace(t TypeRef) uint32 { return c.typ(t).addrSpace }

// TypeCount returns the length of an array or vector type.
func (c *Context) TypeCount(t TypeRef) uint32 { return c.typ(t).count }

// StructOpaque reports whether a named struct still lacks a body.
func (c *Context) StructOpaque(t TypeRef) bool { return c.typ(t).opaque }

// StructName returns the name of a named struct, "" for anonymous ones.
func (c *Context) StructName(t TypeRef) string { return c.typ(t).name }

// StructFieldCount returns the number of fields of a struct type.
func (c *Context) StructFieldCount(t TypeRef) uint32 {
	return uint32(len(c.typ(t).fields))
}

// StructFields copies the field types, in declaration order, into dst.
func (c *Context) StructFields(t TypeRef, dst []TypeRef) {
	copy(dst, c.typ(t).fields)
}

// StructPacked reports whether the struct layout is packed.
func (c *Context) StructPacked(t TypeRef) bool { return c.typ(t).packed }

// ParamCount returns the number of parameters of a signature.
func (c *Context) ParamCount(t TypeRef) uint32 {
	return uint32(len(c.typ(t).params))
}

// ParamTypes copies the parameter types, in order, into dst.
func (c *Context) ParamTypes(t TypeRef, dst []TypeRef) {
	copy(dst, c.typ(t).params)
}

// ReturnType returns the return type of a signature.
func (c *Context) ReturnType(t TypeRef) TypeRef { return c.typ(t).ret }

// TypeIsSized reports whether values of the type have a size known up
// front. Void, signatures and opaque named structs are unsized; aggregates
// are sized iff their members are.
func (c *Context) TypeIsSized(t TypeRef) bool {
	tn := c.typ(t)
	switch tn.kind {
	case KindVoid, KindFunction, KindInvalid:
		return false
	case KindStruct:
		if tn.opaque {
			return false
		}
		for _, f := range tn.fields {
			if !c.TypeIsSized(f) {
				return false
			}
		}
		return true
	case KindArray, KindVector:
		return c.TypeIsSized(tn.elem)
	default:
		return true
	}
}
