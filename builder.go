package forge

import "forge/internal/native"

// Predicate is the six-way comparison selector shared by integer and
// float comparisons. How it maps onto an engine comparison code depends
// on the operand type and on which builder entry point is used:
// CreateCmp treats integers as signed, CreateUCmp as unsigned, and both
// compare floats with the ordered codes.
type Predicate uint8

const (
	Equal Predicate = iota + 1
	NotEqual
	GreaterThan
	GreaterThanOrEqual
	LessThan
	LessThanOrEqual
)

var signedPreds = map[Predicate]native.IntPredicate{
	Equal:              native.IntEQ,
	NotEqual:           native.IntNE,
	GreaterThan:        native.IntSGT,
	GreaterThanOrEqual: native.IntSGE,
	LessThan:           native.IntSLT,
	LessThanOrEqual:    native.IntSLE,
}

var unsignedPreds = map[Predicate]native.IntPredicate{
	Equal:              native.IntEQ,
	NotEqual:           native.IntNE,
	GreaterThan:        native.IntUGT,
	GreaterThanOrEqual: native.IntUGE,
	LessThan:           native.IntULT,
	LessThanOrEqual:    native.IntULE,
}

var orderedPreds = map[Predicate]native.RealPredicate{
	Equal:              native.RealOEQ,
	NotEqual:           native.RealONE,
	GreaterThan:        native.RealOGT,
	GreaterThanOrEqual: native.RealOGE,
	LessThan:           native.RealOLT,
	LessThanOrEqual:    native.RealOLE,
}

// SwitchDest is one (case value, destination) arm of a switch.
type SwitchDest struct {
	On   Value
	Dest BasicBlock
}

// Builder appends instructions at an insertion point inside a basic
// block. It is an owned resource: dispose it exactly once. A fresh
// builder is unpositioned; every Create method panics until the builder
// has been positioned.
type Builder struct {
	c        *native.Context
	disposed bool
	block    native.BlockRef
	before   native.ValueRef
}

// NewBuilder creates an unpositioned builder in the context.
func NewBuilder(ctx *Context) *Builder {
	return &Builder{c: ctx.raw, before: native.NoValue}
}

// Dispose releases the builder. Disposing twice is a contract violation.
func (b *Builder) Dispose() {
	if b.disposed {
		panic("forge: Builder disposed twice")
	}
	b.disposed = true
}

// PositionAtEnd moves the insertion point to the end of the block.
func (b *Builder) PositionAtEnd(block BasicBlock) {
	b.block = block.b
	b.before = native.NoValue
}

// PositionAt moves the insertion point to just before the instruction
// in the given block. Instructions created afterwards keep their create
// order: each lands before the same fixed point.
func (b *Builder) PositionAt(block BasicBlock, instr Value) {
	b.block = block.b
	b.before = instr.v
}

// InsertBlock returns the block holding the insertion point; absence
// means the builder has not been positioned yet.
func (b *Builder) InsertBlock() (BasicBlock, bool) {
	if b.block == native.NoBlock {
		return BasicBlock{}, false
	}
	return BasicBlock{b.c, b.block}, true
}

func (b *Builder) insert(in native.Instr) Value {
	if b.disposed {
		panic("forge: use of a disposed Builder")
	}
	if b.block == native.NoBlock {
		panic("forge: builder is not positioned")
	}
	return Value{b.c, b.c.InsertInstr(b.block, b.before, in)}
}

// Terminators -----------------------------------------------------------------

// CreateRetVoid returns from a void function.
func (b *Builder) CreateRetVoid() Value {
	return b.insert(native.Instr{Op: native.OpRet})
}

// CreateRet returns v from the current function.
func (b *Builder) CreateRet(v Value) Value {
	return b.insert(native.Instr{Op: native.OpRet, Operands: []native.ValueRef{v.v}})
}

// CreateBr branches unconditionally to dest.
func (b *Builder) CreateBr(dest BasicBlock) Value {
	return b.insert(native.Instr{Op: native.OpBr, Dests: []native.BlockRef{dest.b}})
}

// CreateCondBr branches to then when cond is true and to els otherwise.
// The zero BasicBlock for els means absence: the false edge then binds
// to the block following the insertion block, which must exist.
func (b *Builder) CreateCondBr(cond Value, then, els BasicBlock) Value {
	dest := els.b
	if dest == native.NoBlock {
		if b.disposed {
			panic("forge: use of a disposed Builder")
		}
		if b.block == native.NoBlock {
			panic("forge: builder is not positioned")
		}
		dest = b.c.NextBlock(b.block)
		if dest == native.NoBlock {
			panic("forge: conditional branch without an else needs a following block")
		}
	}
	return b.insert(native.Instr{
		Op:       native.OpCondBr,
		Operands: []native.ValueRef{cond.v},
		Dests:    []native.BlockRef{then.b, dest},
	})
}

// CreateSwitch dispatches on v: the arms are matched in the order given
// and def is taken when none matches.
func (b *Builder) CreateSwitch(v Value, def BasicBlock, arms []SwitchDest) Value {
	sw := b.insert(native.Instr{
		Op:       native.OpSwitch,
		Operands: []native.ValueRef{v.v},
		Dests:    []native.BlockRef{def.b},
	})
	for _, arm := range arms {
		b.c.AddCase(sw.v, arm.On.v, arm.Dest.b)
	}
	return sw
}

// Memory ----------------------------------------------------------------------

// CreateAlloca reserves one stack slot of the given type and yields its
// address.
func (b *Builder) CreateAlloca(ty Type, name string) Value {
	return b.insert(native.Instr{
		Op:      native.OpAlloca,
		Type:    b.c.PointerType(ty.t, 0),
		Name:    name,
		AllocTy: ty.t,
	})
}

// CreateArrayAlloca reserves n contiguous stack slots of the given type
// and yields the address of the first.
func (b *Builder) CreateArrayAlloca(ty Type, n Value, name string) Value {
	return b.insert(native.Instr{
		Op:       native.OpArrayAlloca,
		Type:     b.c.PointerType(ty.t, 0),
		Operands: []native.ValueRef{n.v},
		Name:     name,
		AllocTy:  ty.t,
	})
}

// CreateFree releases heap storage behind the pointer.
func (b *Builder) CreateFree(ptr Value) Value {
	return b.insert(native.Instr{Op: native.OpFree, Operands: []native.ValueRef{ptr.v}})
}

// CreateLoad reads the value behind the pointer. The result has the
// pointee type.
func (b *Builder) CreateLoad(ptr Value, name string) Value {
	elem := b.c.ElemType(b.c.TypeOf(ptr.v))
	if elem == native.NoType {
		panic("forge: load from a non-pointer")
	}
	return b.insert(native.Instr{
		Op:       native.OpLoad,
		Type:     elem,
		Operands: []native.ValueRef{ptr.v},
		Name:     name,
	})
}

// CreateStore writes v behind the pointer.
func (b *Builder) CreateStore(v Value, ptr Value) Value {
	return b.insert(native.Instr{Op: native.OpStore, Operands: []native.ValueRef{v.v, ptr.v}})
}

// CreateGEP computes the in-bounds address of an element reached from
// ptr through the index path. The first index steps across the pointer
// itself; each further index walks into the aggregate, so indexing a
// struct field requires a constant integer index.
func (b *Builder) CreateGEP(ptr Value, indices []Value, name string) Value {
	base := b.c.TypeOf(ptr.v)
	if b.c.Kind(base) != native.KindPointer {
		panic("forge: getelementptr on a non-pointer")
	}
	cur := b.c.ElemType(base)
	for _, idx := range indices[1:] {
		switch b.c.Kind(cur) {
		case native.KindArray, native.KindVector:
			cur = b.c.ElemType(cur)
		case native.KindStruct:
			if b.c.ValueKindOf(idx.v) != native.ValConstInt {
				panic("forge: struct field index must be a constant integer")
			}
			i := b.c.ConstIntValue(idx.v)
			n := b.c.StructFieldCount(cur)
			if i >= uint64(n) {
				panic("forge: struct field index out of range")
			}
			fields := make([]native.TypeRef, n)
			b.c.StructFields(cur, fields)
			cur = fields[i]
		default:
			panic("forge: getelementptr walks into a non-aggregate")
		}
	}
	ops := make([]native.ValueRef, 0, len(indices)+1)
	ops = append(ops, ptr.v)
	for _, idx := range indices {
		ops = append(ops, idx.v)
	}
	return b.insert(native.Instr{
		Op:       native.OpInBoundsGEP,
		Type:     b.c.PointerType(cur, b.c.AddrSpace(base)),
		Operands: ops,
		Name:     name,
	})
}

// Arithmetic ------------------------------------------------------------------

// arith picks the integer or float opcode by the left operand's type and
// yields a result of that type.
func (b *Builder) arith(iop, fop native.Opcode, lhs, rhs Value, name string) Value {
	op := fop
	if b.c.Kind(b.c.TypeOf(lhs.v)) == native.KindInteger {
		op = iop
	}
	return b.insert(native.Instr{
		Op:       op,
		Type:     b.c.TypeOf(lhs.v),
		Operands: []native.ValueRef{lhs.v, rhs.v},
		Name:     name,
	})
}

// CreateAdd adds two numbers, integer or float.
func (b *Builder) CreateAdd(lhs, rhs Value, name string) Value {
	return b.arith(native.OpAdd, native.OpFAdd, lhs, rhs, name)
}

// CreateSub subtracts two numbers, integer or float.
func (b *Builder) CreateSub(lhs, rhs Value, name string) Value {
	return b.arith(native.OpSub, native.OpFSub, lhs, rhs, name)
}

// CreateMul multiplies two numbers, integer or float.
func (b *Builder) CreateMul(lhs, rhs Value, name string) Value {
	return b.arith(native.OpMul, native.OpFMul, lhs, rhs, name)
}

// CreateDiv divides two numbers; integers divide signed.
func (b *Builder) CreateDiv(lhs, rhs Value, name string) Value {
	return b.arith(native.OpSDiv, native.OpFDiv, lhs, rhs, name)
}

// CreateRem takes the remainder; integers use the signed remainder.
func (b *Builder) CreateRem(lhs, rhs Value, name string) Value {
	return b.arith(native.OpSRem, native.OpFRem, lhs, rhs, name)
}

func (b *Builder) intBinary(op native.Opcode, lhs, rhs Value, name string) Value {
	return b.insert(native.Instr{
		Op:       op,
		Type:     b.c.TypeOf(lhs.v),
		Operands: []native.ValueRef{lhs.v, rhs.v},
		Name:     name,
	})
}

// CreateShl shifts lhs left by rhs bits.
func (b *Builder) CreateShl(lhs, rhs Value, name string) Value {
	return b.intBinary(native.OpShl, lhs, rhs, name)
}

// CreateAShr shifts lhs right arithmetically by rhs bits.
func (b *Builder) CreateAShr(lhs, rhs Value, name string) Value {
	return b.intBinary(native.OpAShr, lhs, rhs, name)
}

// CreateAnd takes the bitwise and of two integers.
func (b *Builder) CreateAnd(lhs, rhs Value, name string) Value {
	return b.intBinary(native.OpAnd, lhs, rhs, name)
}

// CreateOr takes the bitwise or of two integers.
func (b *Builder) CreateOr(lhs, rhs Value, name string) Value {
	return b.intBinary(native.OpOr, lhs, rhs, name)
}

// CreateXor takes the bitwise exclusive or of two integers.
func (b *Builder) CreateXor(lhs, rhs Value, name string) Value {
	return b.intBinary(native.OpXor, lhs, rhs, name)
}

// CreateNeg negates a number, integer or float.
func (b *Builder) CreateNeg(v Value, name string) Value {
	return b.insert(native.Instr{
		Op:       native.OpNeg,
		Type:     b.c.TypeOf(v.v),
		Operands: []native.ValueRef{v.v},
		Name:     name,
	})
}

// CreateNot inverts the bits of an integer.
func (b *Builder) CreateNot(v Value, name string) Value {
	return b.insert(native.Instr{
		Op:       native.OpNot,
		Type:     b.c.TypeOf(v.v),
		Operands: []native.ValueRef{v.v},
		Name:     name,
	})
}

// Comparisons -----------------------------------------------------------------

func (b *Builder) cmp(p Predicate, intPreds map[Predicate]native.IntPredicate, lhs, rhs Value, name string) Value {
	lt := b.c.TypeOf(lhs.v)
	if lt != b.c.TypeOf(rhs.v) {
		panic("forge: comparison operands must share a type")
	}
	in := native.Instr{
		Type:     b.c.IntType(1),
		Operands: []native.ValueRef{lhs.v, rhs.v},
		Name:     name,
	}
	switch b.c.Kind(lt) {
	case native.KindInteger:
		in.Op = native.OpICmp
		in.IPred = intPreds[p]
	case native.KindHalf, native.KindFloat, native.KindDouble:
		in.Op = native.OpFCmp
		in.RPred = orderedPreds[p]
	default:
		panic("forge: comparison expected numbers")
	}
	return b.insert(in)
}

// CreateCmp compares two numbers of the same type: integers signed,
// floats ordered. The result is a 1-bit integer.
func (b *Builder) CreateCmp(p Predicate, lhs, rhs Value, name string) Value {
	return b.cmp(p, signedPreds, lhs, rhs, name)
}

// CreateUCmp compares like CreateCmp but treats integers as unsigned.
func (b *Builder) CreateUCmp(p Predicate, lhs, rhs Value, name string) Value {
	return b.cmp(p, unsignedPreds, lhs, rhs, name)
}

// Other -----------------------------------------------------------------------

// CreatePhi starts an empty phi node of the given type; attach arms with
// PhiNode.AddIncoming.
func (b *Builder) CreatePhi(ty Type, name string) PhiNode {
	v := b.insert(native.Instr{Op: native.OpPhi, Type: ty.t, Name: name})
	return PhiNode{v}
}

func (b *Builder) call(fn Function, args []Value, name string, tail bool) Value {
	sig := fn.Signature()
	ops := make([]native.ValueRef, 0, len(args)+1)
	ops = append(ops, fn.v)
	for _, a := range args {
		ops = append(ops, a.v)
	}
	ret := b.c.ReturnType(sig.t)
	if b.c.Kind(ret) == native.KindVoid {
		ret = native.NoType
	}
	v := b.insert(native.Instr{Op: native.OpCall, Type: ret, Operands: ops, Name: name})
	// The hint is always written, even for plain calls, so a call site's
	// tail state never depends on node defaults.
	b.c.SetTailCall(v.v, tail)
	return v
}

// CreateCall calls fn with the arguments. The call carries no tail hint.
func (b *Builder) CreateCall(fn Function, args []Value, name string) Value {
	return b.call(fn, args, name, false)
}

// CreateTailCall calls fn with the tail hint set. The hint marks the
// call as eligible for tail transition; it is never checked against the
// call's actual position.
func (b *Builder) CreateTailCall(fn Function, args []Value, name string) Value {
	return b.call(fn, args, name, true)
}

// CreateSelect picks then or els by cond without branching.
func (b *Builder) CreateSelect(cond, then, els Value, name string) Value {
	return b.insert(native.Instr{
		Op:       native.OpSelect,
		Type:     b.c.TypeOf(then.v),
		Operands: []native.ValueRef{cond.v, then.v, els.v},
		Name:     name,
	})
}

// CreateBitCast reinterprets v as the given type without changing bits.
func (b *Builder) CreateBitCast(v Value, ty Type, name string) Value {
	return b.insert(native.Instr{
		Op:       native.OpBitCast,
		Type:     ty.t,
		Operands: []native.ValueRef{v.v},
		Name:     name,
	})
}

// CreateInsertValue yields a copy of agg with the member at index
// replaced by v.
func (b *Builder) CreateInsertValue(agg, v Value, index uint32, name string) Value {
	return b.insert(native.Instr{
		Op:       native.OpInsertValue,
		Type:     b.c.TypeOf(agg.v),
		Operands: []native.ValueRef{agg.v, v.v},
		Name:     name,
		AggIndex: index,
	})
}

// CreateExtractValue yields the member of agg at index.
func (b *Builder) CreateExtractValue(agg Value, index uint32, name string) Value {
	at := b.c.TypeOf(agg.v)
	var member native.TypeRef
	switch b.c.Kind(at) {
	case native.KindStruct:
		n := b.c.StructFieldCount(at)
		if uint64(index) >= uint64(n) {
			panic("forge: extractvalue index out of range")
		}
		fields := make([]native.TypeRef, n)
		b.c.StructFields(at, fields)
		member = fields[index]
	case native.KindArray:
		member = b.c.ElemType(at)
	default:
		panic("forge: extractvalue on a non-aggregate")
	}
	return b.insert(native.Instr{
		Op:       native.OpExtractValue,
		Type:     member,
		Operands: []native.ValueRef{agg.v},
		Name:     name,
		AggIndex: index,
	})
}
