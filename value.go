package forge

import "forge/internal/native"

// Value is a borrowed reference to a typed operand: a constant, an
// instruction result, a function, a global or an argument. Its lifetime
// is tied to the Module/Context that owns it.
type Value struct {
	c *native.Context
	v native.ValueRef
}

// Type returns the type of the value; every value has exactly one.
func (v Value) Type() Type { return Type{v.c, v.c.TypeOf(v.v)} }

// Name returns the value's name; absence means it has none.
func (v Value) Name() (string, bool) {
	name := v.c.ValueName(v.v)
	return name, name != ""
}

// SetName names the value.
func (v Value) SetName(name string) { v.c.SetValueName(v.v, name) }

// String renders the value: constants with their type, globals and
// functions as @name, instructions in full.
func (v Value) String() string { return v.c.ValueString(v.v) }

// IsNil reports whether the reference is the zero Value.
func (v Value) IsNil() bool { return v.c == nil }

// NewConstStruct builds an anonymous constant struct from the values.
func NewConstStruct(ctx *Context, vals []Value, packed bool) Value {
	return Value{ctx.raw, ctx.raw.ConstStruct(valueRefs(vals), packed)}
}

// NewConstVector builds a constant vector from the values given.
func NewConstVector(ctx *Context, vals []Value) Value {
	return Value{ctx.raw, ctx.raw.ConstVector(valueRefs(vals))}
}

// NewConstString embeds text as an [n x i8] constant. When noNull is set
// the array has no trailing NUL byte.
func NewConstString(ctx *Context, text string, noNull bool) Value {
	return Value{ctx.raw, ctx.raw.ConstString(text, noNull)}
}

// NewUndef returns the undefined value of the given type.
func NewUndef(ty Type) Value {
	return Value{ty.c, ty.c.Undef(ty.t)}
}

func valueRefs(vals []Value) []native.ValueRef {
	refs := make([]native.ValueRef, len(vals))
	for i, v := range vals {
		refs[i] = v.v
	}
	return refs
}

// GlobalValue is a module-level global variable.
type GlobalValue struct {
	Value
}

// SetInitializer attaches the initial value for the global.
func (g GlobalValue) SetInitializer(v Value) { g.c.SetInitializer(g.v, v.v) }

// Initializer returns the initial value; absence means the global is
// external.
func (g GlobalValue) Initializer() (Value, bool) {
	init := g.c.Initializer(g.v)
	if init == native.NoValue {
		return Value{}, false
	}
	return Value{g.c, init}, true
}

// Function is a callable container of basic blocks.
type Function struct {
	Value
}

// AppendBlock adds a basic block with the given label at the function's
// current end and returns it.
func (f Function) AppendBlock(name string) BasicBlock {
	return BasicBlock{f.c, f.c.AppendBlock(f.v, name)}
}

// Entry returns the entry block; absence means the function has no body.
func (f Function) Entry() (BasicBlock, bool) {
	b := f.c.EntryBlock(f.v)
	if b == native.NoBlock {
		return BasicBlock{}, false
	}
	return BasicBlock{f.c, b}, true
}

// FuncName returns the function's name. Unlike Value.Name this never
// reports absence: functions are always named.
func (f Function) FuncName() string { return f.c.ValueName(f.v) }

// Signature returns the function signature behind the function's
// pointer type.
func (f Function) Signature() FunctionType {
	return FunctionType{Type{f.c, f.c.ElemType(f.c.TypeOf(f.v))}}
}

// NumParams returns the function's arity.
func (f Function) NumParams() int { return int(f.c.CountParams(f.v)) }

// Param returns the argument at the given position. An out-of-range
// index is a contract violation and panics.
func (f Function) Param(i int) Arg {
	if i < 0 || i >= f.NumParams() {
		panic("forge: argument index out of range")
	}
	return Arg{Value{f.c, f.c.Param(f.v, uint32(i))}}
}

// Args returns a fresh iterator over the function's arguments.
func (f Function) Args() *ValueIter[Arg] {
	return &ValueIter[Arg]{
		c:    f.c,
		cur:  f.c.FirstParam(f.v),
		step: (*native.Context).NextParam,
		wrap: func(v Value) Arg { return Arg{v} },
	}
}

// Arg is one position-indexed function argument.
type Arg struct {
	Value
}

// Index returns the argument's position in its function.
func (a Arg) Index() int { return int(a.c.ArgIndex(a.v)) }

// Parent returns the function the argument belongs to.
func (a Arg) Parent() Function {
	return Function{Value{a.c, a.c.ArgParent(a.v)}}
}

// PhiNode is an instruction selecting a value by predecessor block.
type PhiNode struct {
	Value
}

// AddIncoming appends one (value, predecessor) pair to the phi node.
func (p PhiNode) AddIncoming(v Value, pred BasicBlock) {
	p.c.AddIncoming(p.v, v.v, pred.b)
}
