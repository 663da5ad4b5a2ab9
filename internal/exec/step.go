package exec

import (
	"fmt"
	"math"

	"forge/internal/native"
)

// step executes one instruction. A non-NoBlock next means a branch was
// taken; done reports a return from the function.
func (in *Interp) step(fr *frame, ins native.ValueRef) (native.BlockRef, Value, bool, error) {
	c := in.c
	ops := c.InstrOperands(ins)
	eval := func(i int) Value { return in.eval(fr, ops[i]) }
	set := func(v Value) { fr.regs[ins] = v }
	width := func() uint32 { return c.IntWidth(c.TypeOf(ins)) }

	switch op := c.InstrOpcode(ins); op {
	case native.OpRet:
		if len(ops) == 0 {
			return native.NoBlock, Value{}, true, nil
		}
		return native.NoBlock, eval(0), true, nil

	case native.OpBr:
		return c.InstrDests(ins)[0], Value{}, false, nil

	case native.OpCondBr:
		dests := c.InstrDests(ins)
		if eval(0).Int != 0 {
			return dests[0], Value{}, false, nil
		}
		return dests[1], Value{}, false, nil

	case native.OpSwitch:
		v := eval(0)
		for _, cs := range c.InstrCases(ins) {
			if c.ConstIntValue(cs.On) == v.Int {
				return cs.Dest, Value{}, false, nil
			}
		}
		return c.InstrDests(ins)[0], Value{}, false, nil

	case native.OpAdd, native.OpSub, native.OpMul, native.OpSDiv, native.OpSRem,
		native.OpShl, native.OpAShr, native.OpAnd, native.OpOr, native.OpXor:
		l, r := eval(0), eval(1)
		w := width()
		var out uint64
		switch op {
		case native.OpAdd:
			out = l.Int + r.Int
		case native.OpSub:
			out = l.Int - r.Int
		case native.OpMul:
			out = l.Int * r.Int
		case native.OpSDiv, native.OpSRem:
			if r.Int == 0 {
				return native.NoBlock, Value{}, false, fmt.Errorf("integer division by zero")
			}
			a, b := signExtend(l.Int, w), signExtend(r.Int, w)
			if a == math.MinInt64 && b == -1 {
				// Quotient overflow wraps; the remainder is zero.
				if op == native.OpSDiv {
					out = uint64(a)
				}
			} else if op == native.OpSDiv {
				out = uint64(a / b)
			} else {
				out = uint64(a % b)
			}
		case native.OpShl:
			if r.Int < 64 {
				out = l.Int << r.Int
			}
		case native.OpAShr:
			shift := r.Int
			if shift > 63 {
				shift = 63
			}
			out = uint64(signExtend(l.Int, w) >> shift)
		case native.OpAnd:
			out = l.Int & r.Int
		case native.OpOr:
			out = l.Int | r.Int
		case native.OpXor:
			out = l.Int ^ r.Int
		}
		set(IntValue(mask(out, w)))

	case native.OpFAdd, native.OpFSub, native.OpFMul, native.OpFDiv, native.OpFRem:
		l, r := eval(0), eval(1)
		var out float64
		switch op {
		case native.OpFAdd:
			out = l.Float + r.Float
		case native.OpFSub:
			out = l.Float - r.Float
		case native.OpFMul:
			out = l.Float * r.Float
		case native.OpFDiv:
			out = l.Float / r.Float
		case native.OpFRem:
			out = math.Mod(l.Float, r.Float)
		}
		set(FloatValue(out))

	case native.OpNeg:
		v := eval(0)
		if v.Kind == Float {
			set(FloatValue(-v.Float))
		} else {
			set(IntValue(mask(-v.Int, width())))
		}

	case native.OpNot:
		set(IntValue(mask(^eval(0).Int, width())))

	case native.OpAlloca:
		set(Value{Kind: Ptr, Ptr: in.alloc(in.cellCount(c.InstrAllocatedType(ins)))})

	case native.OpArrayAlloca:
		n := eval(0).Int
		set(Value{Kind: Ptr, Ptr: in.alloc(int(n) * in.cellCount(c.InstrAllocatedType(ins)))})

	case native.OpFree:
		p := eval(0)
		if p.Kind == Ptr {
			size := in.cellCount(c.ElemType(c.TypeOf(ops[0])))
			for i := 0; i < size && p.Ptr+i < len(in.mem); i++ {
				in.mem[p.Ptr+i] = Value{}
			}
		}

	case native.OpLoad:
		p := eval(0)
		t := c.TypeOf(ins)
		if err := in.checkAddr(p, in.cellCount(t)); err != nil {
			return native.NoBlock, Value{}, false, err
		}
		set(in.loadCells(t, p.Ptr))

	case native.OpStore:
		v, p := eval(0), eval(1)
		t := c.TypeOf(ops[0])
		if err := in.checkAddr(p, in.cellCount(t)); err != nil {
			return native.NoBlock, Value{}, false, err
		}
		in.storeCells(t, p.Ptr, v)

	case native.OpInBoundsGEP:
		base := eval(0)
		if base.Kind != Ptr {
			return native.NoBlock, Value{}, false, fmt.Errorf("getelementptr through a non-pointer value")
		}
		cur := c.ElemType(c.TypeOf(ops[0]))
		off := base.Ptr + int(signExtend(eval(1).Int, 64))*in.cellCount(cur)
		for i := 2; i < len(ops); i++ {
			idx := int(signExtend(in.eval(fr, ops[i]).Int, 64))
			switch c.Kind(cur) {
			case native.KindArray, native.KindVector:
				cur = c.ElemType(cur)
				off += idx * in.cellCount(cur)
			case native.KindStruct:
				fields := in.structFields(cur)
				for _, f := range fields[:idx] {
					off += in.cellCount(f)
				}
				cur = fields[idx]
			default:
				return native.NoBlock, Value{}, false, fmt.Errorf("getelementptr walks into a non-aggregate")
			}
		}
		set(Value{Kind: Ptr, Ptr: off})

	case native.OpICmp:
		l, r := eval(0), eval(1)
		w := c.IntWidth(c.TypeOf(ops[0]))
		ls, rs := signExtend(l.Int, w), signExtend(r.Int, w)
		var res bool
		switch c.InstrIntPredicate(ins) {
		case native.IntEQ:
			res = l.Int == r.Int
		case native.IntNE:
			res = l.Int != r.Int
		case native.IntSLT:
			res = ls < rs
		case native.IntSLE:
			res = ls <= rs
		case native.IntSGT:
			res = ls > rs
		case native.IntSGE:
			res = ls >= rs
		case native.IntULT:
			res = l.Int < r.Int
		case native.IntULE:
			res = l.Int <= r.Int
		case native.IntUGT:
			res = l.Int > r.Int
		case native.IntUGE:
			res = l.Int >= r.Int
		}
		set(boolValue(res))

	case native.OpFCmp:
		l, r := eval(0), eval(1)
		var res bool
		// Ordered predicates are false whenever either side is NaN.
		if !math.IsNaN(l.Float) && !math.IsNaN(r.Float) {
			switch c.InstrRealPredicate(ins) {
			case native.RealOEQ:
				res = l.Float == r.Float
			case native.RealONE:
				res = l.Float != r.Float
			case native.RealOLT:
				res = l.Float < r.Float
			case native.RealOLE:
				res = l.Float <= r.Float
			case native.RealOGT:
				res = l.Float > r.Float
			case native.RealOGE:
				res = l.Float >= r.Float
			}
		}
		set(boolValue(res))

	case native.OpPhi:
		return native.NoBlock, Value{}, false, fmt.Errorf("phi after the leading phi group")

	case native.OpCall:
		fn := ops[0]
		if c.ValueKindOf(fn) != native.ValFunction {
			v := eval(0)
			if v.Kind != Func {
				return native.NoBlock, Value{}, false, fmt.Errorf("call through a non-function value")
			}
			fn = v.Fn
		}
		args := make([]Value, len(ops)-1)
		for i := 1; i < len(ops); i++ {
			args[i-1] = eval(i)
		}
		ret, err := in.Call(fn, args)
		if err != nil {
			return native.NoBlock, Value{}, false, err
		}
		if c.TypeOf(ins) != native.NoType {
			set(ret)
		}

	case native.OpSelect:
		if eval(0).Int != 0 {
			set(eval(1))
		} else {
			set(eval(2))
		}

	case native.OpBitCast:
		set(eval(0))

	case native.OpInsertValue:
		agg := eval(0)
		idx := int(c.InstrAggIndex(ins))
		out := make([]Value, in.memberCount(c.TypeOf(ins)))
		copy(out, agg.Agg)
		if idx >= len(out) {
			return native.NoBlock, Value{}, false, fmt.Errorf("insertvalue index out of range")
		}
		out[idx] = eval(1)
		set(Value{Kind: Agg, Agg: out})

	case native.OpExtractValue:
		agg := eval(0)
		idx := int(c.InstrAggIndex(ins))
		if agg.Kind != Agg || idx >= len(agg.Agg) {
			set(Value{})
		} else {
			set(agg.Agg[idx])
		}

	default:
		return native.NoBlock, Value{}, false, fmt.Errorf("opcode %s is not executable", op)
	}
	return native.NoBlock, Value{}, false, nil
}

// memberCount returns how many direct members an aggregate type has.
func (in *Interp) memberCount(t native.TypeRef) int {
	switch in.c.Kind(t) {
	case native.KindArray, native.KindVector:
		return int(in.c.TypeCount(t))
	case native.KindStruct:
		return int(in.c.StructFieldCount(t))
	default:
		return 0
	}
}

func (in *Interp) checkAddr(p Value, size int) error {
	if p.Kind != Ptr {
		return fmt.Errorf("memory access through a non-pointer value")
	}
	if p.Ptr < 0 || p.Ptr+size > len(in.mem) {
		return fmt.Errorf("memory access out of bounds at cell %d", p.Ptr)
	}
	return nil
}

func boolValue(b bool) Value {
	if b {
		return IntValue(1)
	}
	return IntValue(0)
}
