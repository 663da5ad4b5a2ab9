package native

import "fmt"

// Opcode enumerates native instruction opcodes.
type Opcode uint8

const (
	OpInvalid Opcode = iota
	OpRet
	OpBr
	OpCondBr
	OpSwitch
	OpAdd
	OpFAdd
	OpSub
	OpFSub
	OpMul
	OpFMul
	OpSDiv
	OpFDiv
	OpSRem
	OpFRem
	OpShl
	OpAShr
	OpAnd
	OpOr
	OpXor
	OpNeg
	OpNot
	OpAlloca
	OpArrayAlloca
	OpFree
	OpLoad
	OpStore
	OpInBoundsGEP
	OpICmp
	OpFCmp
	OpPhi
	OpCall
	OpSelect
	OpBitCast
	OpInsertValue
	OpExtractValue
)

var opcodeNames = map[Opcode]string{
	OpRet:          "ret",
	OpBr:           "br",
	OpCondBr:       "br",
	OpSwitch:       "switch",
	OpAdd:          "add",
	OpFAdd:         "fadd",
	OpSub:          "sub",
	OpFSub:         "fsub",
	OpMul:          "mul",
	OpFMul:         "fmul",
	OpSDiv:         "sdiv",
	OpFDiv:         "fdiv",
	OpSRem:         "srem",
	OpFRem:         "frem",
	OpShl:          "shl",
	OpAShr:         "ashr",
	OpAnd:          "and",
	OpOr:           "or",
	OpXor:          "xor",
	OpNeg:          "neg",
	OpNot:          "not",
	OpAlloca:       "alloca",
	OpArrayAlloca:  "alloca",
	OpFree:         "free",
	OpLoad:         "load",
	OpStore:        "store",
	OpInBoundsGEP:  "getelementptr inbounds",
	OpICmp:         "icmp",
	OpFCmp:         "fcmp",
	OpPhi:          "phi",
	OpCall:         "call",
	OpSelect:       "select",
	OpBitCast:      "bitcast",
	OpInsertValue:  "insertvalue",
	OpExtractValue: "extractvalue",
}

func (op Opcode) String() string {
	if s, ok := opcodeNames[op]; ok {
		return s
	}
	return fmt.Sprintf("Opcode(%d)", op)
}

// IsTerminator reports whether the opcode ends a basic block.
func (op Opcode) IsTerminator() bool {
	switch op {
	case OpRet, OpBr, OpCondBr, OpSwitch:
		return true
	default:
		return false
	}
}

// IntPredicate enumerates integer comparison codes.
type IntPredicate uint8

const (
	IntEQ IntPredicate = iota + 1
	IntNE
	IntSLT
	IntSLE
	IntSGT
	IntSGE
	IntULT
	IntULE
	IntUGT
	IntUGE
)

var intPredNames = map[IntPredicate]string{
	IntEQ:  "eq",
	IntNE:  "ne",
	IntSLT: "slt",
	IntSLE: "sle",
	IntSGT: "sgt",
	IntSGE: "sge",
	IntULT: "ult",
	IntULE: "ule",
	IntUGT: "ugt",
	IntUGE: "uge",
}

func (p IntPredicate) String() string {
	if s, ok := intPredNames[p]; ok {
		return s
	}
	return fmt.Sprintf("IntPredicate(%d)", p)
}

// RealPredicate enumerates ordered float comparison codes.
type RealPredicate uint8

const (
	RealOEQ RealPredicate = iota + 1
	RealONE
	RealOLT
	RealOLE
	RealOGT
	RealOGE
)

var realPredNames = map[RealPredicate]string{
	RealOEQ: "oeq",
	RealONE: "one",
	RealOLT: "olt",
	RealOLE: "ole",
	RealOGT: "ogt",
	RealOGE: "oge",
}

func (p RealPredicate) String() string {
	if s, ok := realPredNames[p]; ok {
		return s
	}
	return fmt.Sprintf("RealPredicate(%d)", p)
}

// Instr describes one instruction to insert. Fields beyond Op/Operands
// are read per opcode.
type Instr struct {
	Op       Opcode
	Type     TypeRef // result type; NoType for void-producing ops
	Operands []ValueRef
	Name     string

	IPred    IntPredicate
	RPred    RealPredicate
	Dests    []BlockRef // br/condbr targets, switch default at index 0
	Cases    []SwitchCase
	Tail     bool
	AllocTy  TypeRef
	AggIndex uint32
}

// InsertInstr materializes the instruction as a value node and inserts it
// into block immediately before the given instruction; before==NoValue
// appends at block end. Returns the instruction value.
func (c *Context) InsertInstr(b BlockRef, before ValueRef, in Instr) ValueRef {
	bn := c.block(b)
	owner := c.value(bn.parent).owner
	v := c.addValue(valueNode{
		kind:     ValInstr,
		typ:      in.Type,
		name:     in.Name,
		owner:    owner,
		op:       in.Op,
		operands: append([]ValueRef(nil), in.Operands...),
		block:    b,
		ipred:    in.IPred,
		rpred:    in.RPred,
		cases:    append([]SwitchCase(nil), in.Cases...),
		tail:     in.Tail,
		allocTy:  in.AllocTy,
		aggIndex: in.AggIndex,
	})
	// Branch destinations ride in the cases slice for uniform storage:
	// Dest-only entries carry On == NoValue.
	bn = c.block(b)
	for _, d := range in.Dests {
		c.values[v].cases = append(c.values[v].cases, SwitchCase{Dest: d})
	}
	if before == NoValue {
		bn.instrs = append(bn.instrs, v)
		return v
	}
	for i, ins := range bn.instrs {
		if ins == before {
			bn.instrs = append(bn.instrs[:i], append([]ValueRef{v}, bn.instrs[i:]...)...)
			return v
		}
	}
	panic("native: insertion point is not in the block")
}

// InstrOpcode returns the opcode of an instruction value.
func (c *Context) InstrOpcode(v ValueRef) Opcode { return c.value(v).op }

// InstrOperands returns the operand list of an instruction value.
func (c *Context) InstrOperands(v ValueRef) []ValueRef { return c.value(v).operands }

// SetInstrOperands replaces the operand list of an instruction value.
// Deserializers use it to patch forward references after all
// instructions of a function exist.
func (c *Context) SetInstrOperands(v ValueRef, ops []ValueRef) {
	c.value(v).operands = append([]ValueRef(nil), ops...)
}

// InstrBlock returns the block holding an instruction.
func (c *Context) InstrBlock(v ValueRef) BlockRef { return c.value(v).block }

// InstrIntPredicate returns the integer comparison code of an icmp.
func (c *Context) InstrIntPredicate(v ValueRef) IntPredicate { return c.value(v).ipred }

// InstrRealPredicate returns the float comparison code of an fcmp.
func (c *Context) InstrRealPredicate(v ValueRef) RealPredicate { return c.value(v).rpred }

// InstrAllocatedType returns the element type of an alloca.
func (c *Context) InstrAllocatedType(v ValueRef) TypeRef { return c.value(v).allocTy }

// InstrAggIndex returns the member index of insertvalue/extractvalue.
func (c *Context) InstrAggIndex(v ValueRef) uint32 { return c.value(v).aggIndex }

// InstrDests returns the branch destinations of a terminator, default
// target first for switch.
func (c *Context) InstrDests(v ValueRef) []BlockRef {
	var dests []BlockRef
	for _, cs := range c.value(v).cases {
		if cs.On == NoValue {
			dests = append(dests, cs.Dest)
		}
	}
	return dests
}

// InstrCases returns the (value, destination) pairs of a switch in the
// order they were added.
func (c *Context) InstrCases(v ValueRef) []SwitchCase {
	var cases []SwitchCase
	for _, cs := range c.value(v).cases {
		if cs.On != NoValue {
			cases = append(cases, cs)
		}
	}
	return cases
}

// AddCase appends one (value, destination) pair to a switch instruction.
func (c *Context) AddCase(sw ValueRef, on ValueRef, dest BlockRef) {
	vn := c.value(sw)
	if vn.op != OpSwitch {
		panic("native: AddCase on a non-switch")
	}
	if on == NoValue {
		panic("native: switch case needs a scalar value")
	}
	vn.cases = append(vn.cases, SwitchCase{On: on, Dest: dest})
}

// AddIncoming appends one (value, predecessor) pair to a phi node.
func (c *Context) AddIncoming(phi ValueRef, v ValueRef, pred BlockRef) {
	vn := c.value(phi)
	if vn.op != OpPhi {
		panic("native: AddIncoming on a non-phi")
	}
	vn.incoming = append(vn.incoming, PhiIncoming{Value: v, Pred: pred})
}

// InstrIncoming returns the (value, predecessor) pairs of a phi node.
func (c *Context) InstrIncoming(v ValueRef) []PhiIncoming { return c.value(v).incoming }

// SetTailCall sets or clears the tail-call hint on a call instruction.
// The hint is never validated against actual tail position.
func (c *Context) SetTailCall(call ValueRef, tail bool) {
	vn := c.value(call)
	if vn.op != OpCall {
		panic("native: SetTailCall on a non-call")
	}
	vn.tail = tail
}

// IsTailCall reads the tail-call hint of a call instruction.
func (c *Context) IsTailCall(call ValueRef) bool { return c.value(call).tail }
