package forge

// Attribute is a single-bit flag influencing how the engine treats a
// function or argument. The native attribute word also packs two small
// integer fields (alignment and stack alignment, both log2-encoded);
// those are carried by Attributes, not by flags.
type Attribute uint32

const (
	// ZExt zero-extends the value before or after the call.
	ZExt Attribute = 1 << 0
	// SExt sign-extends the value before or after the call.
	SExt Attribute = 1 << 1
	// NoReturn marks the function as never returning.
	NoReturn Attribute = 1 << 2
	// InReg forces the argument into a register.
	InReg Attribute = 1 << 3
	// StructRet marks a hidden pointer to the returned structure.
	StructRet Attribute = 1 << 4
	// NoUnwind promises the function does not unwind the stack.
	NoUnwind Attribute = 1 << 5
	// NoAlias promises no aliases after the call.
	NoAlias Attribute = 1 << 6
	// ByVal passes the structure by value.
	ByVal Attribute = 1 << 7
	// Nest marks the nested-function static chain.
	Nest Attribute = 1 << 8
	// ReadNone promises the function does not access memory.
	ReadNone Attribute = 1 << 9
	// ReadOnly promises the function only reads memory.
	ReadOnly Attribute = 1 << 10
	// NoInline forbids inlining.
	NoInline Attribute = 1 << 11
	// AlwaysInline forces inlining.
	AlwaysInline Attribute = 1 << 12
	// OptimizeForSize optimizes the function for size.
	OptimizeForSize Attribute = 1 << 13
	// StackProtect requests stack protection.
	StackProtect Attribute = 1 << 14
	// StackProtectReq requires stack protection.
	StackProtectReq Attribute = 1 << 15

	// Bits 16..20 hold the alignment field; flags resume at 21.

	// NoCapture promises the function creates no aliases of the pointer.
	NoCapture Attribute = 1 << 21
	// NoRedZone disables the red zone.
	NoRedZone Attribute = 1 << 22
	// NoImplicitFloat disables implicit float instructions.
	NoImplicitFloat Attribute = 1 << 23
	// Naked marks a naked function.
	Naked Attribute = 1 << 24
	// InlineHint records that the source marked the function inline.
	InlineHint Attribute = 1 << 25

	// Bits 26..28 hold the stack-alignment field; flags resume at 29.

	// ReturnsTwice marks a function that returns twice.
	ReturnsTwice Attribute = 1 << 29
	// UWTable keeps the function in the unwind table.
	UWTable Attribute = 1 << 30
	// NonLazyBind disables lazy binding for a hot function.
	NonLazyBind Attribute = 1 << 31
)

const (
	alignShift      = 16
	alignFieldMask  = 0x1f << alignShift
	salignShift     = 26
	salignFieldMask = 0x7 << salignShift
)

// Attributes is the structured view of one native attribute word:
// boolean flags plus two explicit small-integer fields. Both alignments
// are log2-encoded with zero meaning unaligned.
type Attributes struct {
	Flags          Attribute
	AlignLog2      uint8 // 5-bit field
	StackAlignLog2 uint8 // 3-bit field
}

// pack folds the structured value into the native word. Packing and
// unpacking happen only here, at the native-word boundary.
func (a Attributes) pack() uint32 {
	if a.AlignLog2 > 0x1f {
		panic("forge: alignment field overflows 5 bits")
	}
	if a.StackAlignLog2 > 0x7 {
		panic("forge: stack-alignment field overflows 3 bits")
	}
	word := uint32(a.Flags) &^ uint32(alignFieldMask|salignFieldMask)
	word |= uint32(a.AlignLog2) << alignShift
	word |= uint32(a.StackAlignLog2) << salignShift
	return word
}

func unpackAttributes(word uint32) Attributes {
	return Attributes{
		Flags:          Attribute(word &^ uint32(alignFieldMask|salignFieldMask)),
		AlignLog2:      uint8((word & alignFieldMask) >> alignShift),
		StackAlignLog2: uint8((word & salignFieldMask) >> salignShift),
	}
}

func unionAttrs(attrs []Attribute) Attribute {
	var sum Attribute
	for _, a := range attrs {
		sum |= a
	}
	return sum
}

// Function attribute operations ----------------------------------------------

// AddAttribute sets the flag on the function.
func (f Function) AddAttribute(a Attribute) { f.c.AddFunctionAttr(f.v, uint32(a)) }

// AddAttributes unions the flags and sets them with one native call.
func (f Function) AddAttributes(attrs []Attribute) {
	f.c.AddFunctionAttr(f.v, uint32(unionAttrs(attrs)))
}

// HasAttribute reports whether the flag is set on the function.
func (f Function) HasAttribute(a Attribute) bool {
	return Attribute(f.c.GetFunctionAttr(f.v))&a == a
}

// HasAttributes reports whether all the flags are set on the function.
func (f Function) HasAttributes(attrs []Attribute) bool {
	word := Attribute(f.c.GetFunctionAttr(f.v))
	for _, a := range attrs {
		if word&a != a {
			return false
		}
	}
	return true
}

// RemoveAttribute clears exactly the flag's bit on the function.
func (f Function) RemoveAttribute(a Attribute) {
	f.c.RemoveFunctionAttr(f.v, uint32(a))
}

// SetAttributes replaces the function's whole attribute word.
func (f Function) SetAttributes(a Attributes) {
	f.c.RemoveFunctionAttr(f.v, ^uint32(0))
	f.c.AddFunctionAttr(f.v, a.pack())
}

// Attributes returns the structured view of the function's word.
func (f Function) Attributes() Attributes {
	return unpackAttributes(f.c.GetFunctionAttr(f.v))
}

// Argument attribute operations ----------------------------------------------

// AddAttribute sets the flag on the argument.
func (a Arg) AddAttribute(attr Attribute) { a.c.AddArgAttr(a.v, uint32(attr)) }

// AddAttributes unions the flags and sets them with one native call.
func (a Arg) AddAttributes(attrs []Attribute) {
	a.c.AddArgAttr(a.v, uint32(unionAttrs(attrs)))
}

// HasAttribute reports whether the flag is set on the argument.
func (a Arg) HasAttribute(attr Attribute) bool {
	return Attribute(a.c.GetArgAttr(a.v))&attr == attr
}

// HasAttributes reports whether all the flags are set on the argument.
func (a Arg) HasAttributes(attrs []Attribute) bool {
	word := Attribute(a.c.GetArgAttr(a.v))
	for _, attr := range attrs {
		if word&attr != attr {
			return false
		}
	}
	return true
}

// RemoveAttribute clears exactly the flag's bit on the argument.
func (a Arg) RemoveAttribute(attr Attribute) {
	a.c.RemoveArgAttr(a.v, uint32(attr))
}

// SetAttributes replaces the argument's whole attribute word.
func (a Arg) SetAttributes(attrs Attributes) {
	a.c.RemoveArgAttr(a.v, ^uint32(0))
	a.c.AddArgAttr(a.v, attrs.pack())
}

// Attributes returns the structured view of the argument's word.
func (a Arg) Attributes() Attributes {
	return unpackAttributes(a.c.GetArgAttr(a.v))
}
