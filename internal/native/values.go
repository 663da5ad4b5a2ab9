package native

import (
	"fmt"

	"fortio.org/safecast"
)

// ValueKind enumerates the discriminant tags of value nodes.
type ValueKind uint8

const (
	ValInvalid ValueKind = iota
	ValConstInt
	ValConstFloat
	ValConstAgg
	ValConstString
	ValUndef
	ValGlobal
	ValFunction
	ValArg
	ValInstr
)

// SwitchCase is one (scalar constant, destination) pair of a switch.
type SwitchCase struct {
	On   ValueRef
	Dest BlockRef
}

// PhiIncoming is one (value, predecessor) pair of a phi node.
type PhiIncoming struct {
	Value ValueRef
	Pred  BlockRef
}

type valueNode struct {
	kind  ValueKind
	typ   TypeRef
	name  string
	owner ModuleRef // NoModule for context-owned constants

	// constants
	iconst uint64
	fconst float64
	elems  []ValueRef // const struct/vector members
	packed bool
	str    string // const string payload

	// globals and functions share the intrusive next link of their
	// module-level list; args use it for the parameter list.
	next ValueRef

	// globals
	init ValueRef

	// functions
	params []ValueRef
	blocks []BlockRef
	attrs  uint32

	// args
	parent   ValueRef
	argIndex uint32

	// instructions
	op       Opcode
	operands []ValueRef
	block    BlockRef
	ipred    IntPredicate
	rpred    RealPredicate
	cases    []SwitchCase
	incoming []PhiIncoming
	tail     bool
	allocTy  TypeRef
	aggIndex uint32
}

type blockNode struct {
	name   string
	parent ValueRef // owning function
	instrs []ValueRef
}

func (c *Context) addValue(v valueNode) ValueRef {
	id, err := safecast.Conv[uint32](len(c.values))
	if err != nil {
		panic(fmt.Errorf("value arena overflow: %w", err))
	}
	c.values = append(c.values, v)
	return ValueRef(id)
}

func (c *Context) value(v ValueRef) *valueNode {
	c.checkAlive()
	if v == NoValue || int(v) >= len(c.values) {
		panic("native: invalid value handle")
	}
	vn := &c.values[v]
	if vn.owner != NoModule && !c.modules[vn.owner].alive {
		panic("native: use of a value whose module was disposed")
	}
	return vn
}

// ValueAlive reports whether the handle can still be dereferenced.
func (c *Context) ValueAlive(v ValueRef) bool {
	if c.disposed || v == NoValue || int(v) >= len(c.values) {
		return false
	}
	vn := &c.values[v]
	return vn.owner == NoModule || c.modules[vn.owner].alive
}

func (c *Context) block(b BlockRef) *blockNode {
	c.checkAlive()
	if b == NoBlock || int(b) >= len(c.blocks) {
		panic("native: invalid block handle")
	}
	bn := &c.blocks[b]
	if bn.parent != NoValue {
		c.value(bn.parent) // liveness ride-along
	}
	return bn
}

// ValueKindOf returns the discriminant tag of a value.
func (c *Context) ValueKindOf(v ValueRef) ValueKind { return c.value(v).kind }

// TypeOf returns the type of a value.
func (c *Context) TypeOf(v ValueRef) TypeRef { return c.value(v).typ }

// ValueName returns the name of a value ("" when unnamed).
func (c *Context) ValueName(v ValueRef) string { return c.value(v).name }

// SetValueName names a value.
func (c *Context) SetValueName(v ValueRef, name string) { c.value(v).name = name }

// Constants -----------------------------------------------------------------

// ConstInt embeds an integer constant of the given integer type.
func (c *Context) ConstInt(t TypeRef, v uint64) ValueRef {
	if c.typ(t).kind != KindInteger {
		panic("native: ConstInt needs an integer type")
	}
	return c.addValue(valueNode{kind: ValConstInt, typ: t, iconst: v})
}

// ConstFloat embeds a floating-point constant of the given float type.
func (c *Context) ConstFloat(t TypeRef, v float64) ValueRef {
	switch c.typ(t).kind {
	case KindHalf, KindFloat, KindDouble:
	default:
		panic("native: ConstFloat needs a floating-point type")
	}
	return c.addValue(valueNode{kind: ValConstFloat, typ: t, fconst: v})
}

// ConstStruct builds an anonymous constant struct from member constants.
func (c *Context) ConstStruct(vals []ValueRef, packed bool) ValueRef {
	fields := make([]TypeRef, len(vals))
	for i, v := range vals {
		fields[i] = c.TypeOf(v)
	}
	t := c.StructType(fields, packed)
	return c.addValue(valueNode{kind: ValConstAgg, typ: t, elems: append([]ValueRef(nil), vals...), packed: packed})
}

// ConstVector builds a constant vector from element constants. All
// elements share the type of the first.
func (c *Context) ConstVector(vals []ValueRef) ValueRef {
	if len(vals) == 0 {
		panic("native: empty constant vector")
	}
	n, err := safecast.Conv[uint32](len(vals))
	if err != nil {
		panic(fmt.Errorf("vector length overflow: %w", err))
	}
	t := c.VectorType(c.TypeOf(vals[0]), n)
	return c.addValue(valueNode{kind: ValConstAgg, typ: t, elems: append([]ValueRef(nil), vals...)})
}

// ConstString embeds text as an [n x i8] constant, with a trailing NUL
// unless noNull is set.
func (c *Context) ConstString(text string, noNull bool) ValueRef {
	payload := text
	if !noNull {
		payload += "\x00"
	}
	n, err := safecast.Conv[uint32](len(payload))
	if err != nil {
		panic(fmt.Errorf("string length overflow: %w", err))
	}
	t := c.ArrayType(c.IntType(8), n)
	return c.addValue(valueNode{kind: ValConstString, typ: t, str: payload})
}

// Undef returns the undefined value of the given type.
func (c *Context) Undef(t TypeRef) ValueRef {
	c.typ(t)
	return c.addValue(valueNode{kind: ValUndef, typ: t})
}

// ConstIntValue returns the payload of an integer constant.
func (c *Context) ConstIntValue(v ValueRef) uint64 { return c.value(v).iconst }

// ConstFloatValue returns the payload of a float constant.
func (c *Context) ConstFloatValue(v ValueRef) float64 { return c.value(v).fconst }

// ConstStringValue returns the payload of a string constant.
func (c *Context) ConstStringValue(v ValueRef) string { return c.value(v).str }

// ConstElems returns the members of a constant aggregate.
func (c *Context) ConstElems(v ValueRef) []ValueRef { return c.value(v).elems }

// Globals -------------------------------------------------------------------

// AddGlobal appends a global of the given pointee type to the module. The
// value's own type is a pointer into the requested address space.
func (c *Context) AddGlobal(m ModuleRef, name string, t TypeRef, addrSpace uint32) ValueRef {
	mn := c.module(m)
	g := c.addValue(valueNode{
		kind:  ValGlobal,
		typ:   c.PointerType(t, addrSpace),
		name:  name,
		owner: m,
	})
	if mn.firstGlobal == NoValue {
		mn.firstGlobal = g
	} else {
		c.values[mn.lastGlobal].next = g
	}
	mn.lastGlobal = g
	mn.globalByName[name] = g
	return g
}

// NamedGlobal returns the global with the given name, or NoValue.
func (c *Context) NamedGlobal(m ModuleRef, name string) ValueRef {
	return c.module(m).globalByName[name]
}

// IsAGlobal is the native is-a predicate behind the GlobalValue cast.
func (c *Context) IsAGlobal(v ValueRef) bool { return c.value(v).kind == ValGlobal }

// SetInitializer attaches the initial value of a global.
func (c *Context) SetInitializer(g ValueRef, v ValueRef) {
	gn := c.value(g)
	if gn.kind != ValGlobal {
		panic("native: SetInitializer on a non-global")
	}
	c.value(v)
	gn.init = v
}

// Initializer returns the initial value of a global, or NoValue.
func (c *Context) Initializer(g ValueRef) ValueRef { return c.value(g).init }

// FirstGlobal starts the module's global list.
func (c *Context) FirstGlobal(m ModuleRef) ValueRef { return c.module(m).firstGlobal }

// NextGlobal steps the module's global list.
func (c *Context) NextGlobal(v ValueRef) ValueRef { return c.value(v).next }

// Functions -----------------------------------------------------------------

// AddFunction appends a function with the given signature to the module.
// Functions are referenced by pointer, so the value's type is a pointer to
// the signature.
func (c *Context) AddFunction(m ModuleRef, name string, sig TypeRef) ValueRef {
	if c.typ(sig).kind != KindFunction {
		panic("native: AddFunction needs a signature type")
	}
	mn := c.module(m)
	f := c.addValue(valueNode{
		kind:  ValFunction,
		typ:   c.PointerType(sig, 0),
		name:  name,
		owner: m,
	})
	params := c.typ(sig).params
	fn := &c.values[f]
	fn.params = make([]ValueRef, len(params))
	var prev ValueRef
	for i, pt := range params {
		idx, err := safecast.Conv[uint32](i)
		if err != nil {
			panic(fmt.Errorf("param index overflow: %w", err))
		}
		a := c.addValue(valueNode{kind: ValArg, typ: pt, owner: m, parent: f, argIndex: idx})
		c.values[f].params[i] = a
		if prev != NoValue {
			c.values[prev].next = a
		}
		prev = a
	}
	if mn.firstFunc == NoValue {
		mn.firstFunc = f
	} else {
		c.values[mn.lastFunc].next = f
	}
	mn.lastFunc = f
	mn.funcByName[name] = f
	return f
}

// NamedFunction returns the function with the given name, or NoValue.
func (c *Context) NamedFunction(m ModuleRef, name string) ValueRef {
	return c.module(m).funcByName[name]
}

// FirstFunction starts the module's function list.
func (c *Context) FirstFunction(m ModuleRef) ValueRef { return c.module(m).firstFunc }

// NextFunction steps the module's function list.
func (c *Context) NextFunction(v ValueRef) ValueRef { return c.value(v).next }

// CountParams returns the arity of a function value.
func (c *Context) CountParams(f ValueRef) uint32 {
	return uint32(len(c.value(f).params))
}

// Param returns the i-th argument value of a function.
func (c *Context) Param(f ValueRef, i uint32) ValueRef {
	fn := c.value(f)
	if int(i) >= len(fn.params) {
		panic(fmt.Sprintf("native: no parameter %d on @%s", i, fn.name))
	}
	return fn.params[i]
}

// FirstParam starts a function's argument list.
func (c *Context) FirstParam(f ValueRef) ValueRef {
	fn := c.value(f)
	if len(fn.params) == 0 {
		return NoValue
	}
	return fn.params[0]
}

// NextParam steps a function's argument list.
func (c *Context) NextParam(v ValueRef) ValueRef { return c.value(v).next }

// ArgParent returns the function owning an argument.
func (c *Context) ArgParent(v ValueRef) ValueRef { return c.value(v).parent }

// ArgIndex returns the position of an argument in its function.
func (c *Context) ArgIndex(v ValueRef) uint32 { return c.value(v).argIndex }

// FunctionOwner returns the module a function or global belongs to.
func (c *Context) FunctionOwner(v ValueRef) ModuleRef { return c.value(v).owner }

// Blocks --------------------------------------------------------------------

// AppendBlock adds a basic block at the current end of the function.
func (c *Context) AppendBlock(f ValueRef, name string) BlockRef {
	fn := c.value(f)
	if fn.kind != ValFunction {
		panic("native: AppendBlock on a non-function")
	}
	id, err := safecast.Conv[uint32](len(c.blocks))
	if err != nil {
		panic(fmt.Errorf("block arena overflow: %w", err))
	}
	c.blocks = append(c.blocks, blockNode{name: name, parent: f})
	b := BlockRef(id)
	fn.blocks = append(fn.blocks, b)
	return b
}

// EntryBlock returns the first block of a function, or NoBlock.
func (c *Context) EntryBlock(f ValueRef) BlockRef {
	fn := c.value(f)
	if len(fn.blocks) == 0 {
		return NoBlock
	}
	return fn.blocks[0]
}

// Blocks returns the block list of a function in append order.
func (c *Context) Blocks(f ValueRef) []BlockRef { return c.value(f).blocks }

// BlockName returns the label of a block.
func (c *Context) BlockName(b BlockRef) string { return c.block(b).name }

// BlockParent returns the function owning a block.
func (c *Context) BlockParent(b BlockRef) ValueRef { return c.block(b).parent }

// NextBlock returns the block following b in its function's block list,
// or NoBlock when b is the last.
func (c *Context) NextBlock(b BlockRef) BlockRef {
	blocks := c.value(c.block(b).parent).blocks
	for i, bb := range blocks {
		if bb == b && i+1 < len(blocks) {
			return blocks[i+1]
		}
	}
	return NoBlock
}

// BlockInstrs returns the instruction list of a block in order.
func (c *Context) BlockInstrs(b BlockRef) []ValueRef { return c.block(b).instrs }

// Attribute words -----------------------------------------------------------

// AddFunctionAttr ORs mask into the function's attribute word.
func (c *Context) AddFunctionAttr(f ValueRef, mask uint32) {
	fn := c.value(f)
	if fn.kind != ValFunction {
		panic("native: AddFunctionAttr on a non-function")
	}
	fn.attrs |= mask
}

// GetFunctionAttr reads the function's attribute word.
func (c *Context) GetFunctionAttr(f ValueRef) uint32 { return c.value(f).attrs }

// RemoveFunctionAttr clears exactly the bits of mask.
func (c *Context) RemoveFunctionAttr(f ValueRef, mask uint32) {
	c.value(f).attrs &^= mask
}

// AddArgAttr ORs mask into the argument's attribute word.
func (c *Context) AddArgAttr(a ValueRef, mask uint32) {
	an := c.value(a)
	if an.kind != ValArg {
		panic("native: AddArgAttr on a non-argument")
	}
	an.attrs |= mask
}

// GetArgAttr reads the argument's attribute word.
func (c *Context) GetArgAttr(a ValueRef) uint32 { return c.value(a).attrs }

// RemoveArgAttr clears exactly the bits of mask.
func (c *Context) RemoveArgAttr(a ValueRef, mask uint32) {
	c.value(a).attrs &^= mask
}
