// Package exec evaluates module functions directly over the instruction
// graph. Memory is a flat array of cells, one per scalar slot, with
// pointers as cell indices; aggregates flatten into consecutive slots.
// The evaluator is what backs the in-process engine; object-code output
// goes through an external tool instead (see CompileObject).
package exec

import (
	"fmt"

	"forge/internal/native"
)

// Kind tags a runtime cell.
type Kind uint8

const (
	Undef Kind = iota
	Int
	Float
	Ptr
	Agg
	Func
)

// Value is one runtime cell. Int payloads are kept masked to their
// type's width; Ptr payloads index the evaluator's memory.
type Value struct {
	Kind  Kind
	Int   uint64
	Float float64
	Ptr   int
	Agg   []Value
	Fn    native.ValueRef
}

// IntValue builds an integer cell.
func IntValue(v uint64) Value { return Value{Kind: Int, Int: v} }

// FloatValue builds a float cell.
func FloatValue(v float64) Value { return Value{Kind: Float, Float: v} }

// HostFunc is a host-side implementation bound to a declared function.
type HostFunc func(args []Value) Value

// Interp evaluates functions of one module.
type Interp struct {
	c       *native.Context
	m       native.ModuleRef
	mem     []Value
	globals map[native.ValueRef]int
	hosts   map[native.ValueRef]HostFunc
}

// New prepares an evaluator for the module, materializing global cells
// and their initializers.
func New(c *native.Context, m native.ModuleRef) *Interp {
	in := &Interp{
		c:       c,
		m:       m,
		globals: make(map[native.ValueRef]int),
		hosts:   make(map[native.ValueRef]HostFunc),
	}
	for g := c.FirstGlobal(m); g != native.NoValue; g = c.NextGlobal(g) {
		elem := c.ElemType(c.TypeOf(g))
		addr := in.alloc(in.cellCount(elem))
		in.globals[g] = addr
		if init := c.Initializer(g); init != native.NoValue {
			in.storeCells(elem, addr, in.constValue(init))
		}
	}
	return in
}

// Bind routes calls of the (typically declared) function to a host
// implementation.
func (in *Interp) Bind(f native.ValueRef, fn HostFunc) { in.hosts[f] = fn }

func (in *Interp) alloc(n int) int {
	addr := len(in.mem)
	for i := 0; i < n; i++ {
		in.mem = append(in.mem, Value{})
	}
	return addr
}

// cellCount returns how many flat slots a value of the type occupies.
func (in *Interp) cellCount(t native.TypeRef) int {
	switch in.c.Kind(t) {
	case native.KindArray, native.KindVector:
		return int(in.c.TypeCount(t)) * in.cellCount(in.c.ElemType(t))
	case native.KindStruct:
		n := in.c.StructFieldCount(t)
		fields := make([]native.TypeRef, n)
		in.c.StructFields(t, fields)
		total := 0
		for _, f := range fields {
			total += in.cellCount(f)
		}
		return total
	default:
		return 1
	}
}

func (in *Interp) structFields(t native.TypeRef) []native.TypeRef {
	n := in.c.StructFieldCount(t)
	fields := make([]native.TypeRef, n)
	in.c.StructFields(t, fields)
	return fields
}

// loadCells reads a value of the type from consecutive slots.
func (in *Interp) loadCells(t native.TypeRef, addr int) Value {
	switch in.c.Kind(t) {
	case native.KindArray, native.KindVector:
		elem := in.c.ElemType(t)
		stride := in.cellCount(elem)
		n := int(in.c.TypeCount(t))
		agg := make([]Value, n)
		for i := 0; i < n; i++ {
			agg[i] = in.loadCells(elem, addr+i*stride)
		}
		return Value{Kind: Agg, Agg: agg}
	case native.KindStruct:
		fields := in.structFields(t)
		agg := make([]Value, len(fields))
		for i, f := range fields {
			agg[i] = in.loadCells(f, addr)
			addr += in.cellCount(f)
		}
		return Value{Kind: Agg, Agg: agg}
	default:
		return in.mem[addr]
	}
}

// storeCells writes a value of the type into consecutive slots.
func (in *Interp) storeCells(t native.TypeRef, addr int, v Value) {
	switch in.c.Kind(t) {
	case native.KindArray, native.KindVector:
		elem := in.c.ElemType(t)
		stride := in.cellCount(elem)
		for i := 0; i < int(in.c.TypeCount(t)); i++ {
			var member Value
			if v.Kind == Agg && i < len(v.Agg) {
				member = v.Agg[i]
			}
			in.storeCells(elem, addr+i*stride, member)
		}
	case native.KindStruct:
		for i, f := range in.structFields(t) {
			var member Value
			if v.Kind == Agg && i < len(v.Agg) {
				member = v.Agg[i]
			}
			in.storeCells(f, addr, member)
			addr += in.cellCount(f)
		}
	default:
		in.mem[addr] = v
	}
}

func (in *Interp) constValue(v native.ValueRef) Value {
	switch in.c.ValueKindOf(v) {
	case native.ValConstInt:
		return Value{Kind: Int, Int: in.c.ConstIntValue(v)}
	case native.ValConstFloat:
		return Value{Kind: Float, Float: in.c.ConstFloatValue(v)}
	case native.ValConstString:
		s := in.c.ConstStringValue(v)
		agg := make([]Value, len(s))
		for i := 0; i < len(s); i++ {
			agg[i] = Value{Kind: Int, Int: uint64(s[i])}
		}
		return Value{Kind: Agg, Agg: agg}
	case native.ValConstAgg:
		elems := in.c.ConstElems(v)
		agg := make([]Value, len(elems))
		for i, e := range elems {
			agg[i] = in.constValue(e)
		}
		return Value{Kind: Agg, Agg: agg}
	case native.ValUndef:
		return Value{}
	case native.ValFunction:
		return Value{Kind: Func, Fn: v}
	case native.ValGlobal:
		return Value{Kind: Ptr, Ptr: in.globals[v]}
	default:
		panic(fmt.Sprintf("exec: value kind %d is not a constant", in.c.ValueKindOf(v)))
	}
}

func mask(x uint64, width uint32) uint64 {
	if width >= 64 {
		return x
	}
	return x & (1<<width - 1)
}

func signExtend(x uint64, width uint32) int64 {
	if width >= 64 {
		return int64(x)
	}
	shift := 64 - width
	return int64(x<<shift) >> shift
}

// frame holds the registers of one activation.
type frame struct {
	regs map[native.ValueRef]Value
}

// Call evaluates f with the arguments. Declared functions dispatch to
// their host binding; a declaration without one is an error, as are
// runtime traps such as division by zero.
func (in *Interp) Call(f native.ValueRef, args []Value) (Value, error) {
	if host, ok := in.hosts[f]; ok {
		return host(args), nil
	}
	blocks := in.c.Blocks(f)
	if len(blocks) == 0 {
		return Value{}, fmt.Errorf("exec: function %q has no body and no host binding", in.c.ValueName(f))
	}
	fr := frame{regs: make(map[native.ValueRef]Value)}
	for i, a := range args {
		fr.regs[in.c.Param(f, uint32(i))] = a
	}

	// Stack slots from this activation vanish on return.
	stackMark := len(in.mem)
	defer func() { in.mem = in.mem[:stackMark] }()

	cur := blocks[0]
	prev := native.NoBlock
	for {
		next, ret, done, err := in.runBlock(&fr, cur, prev)
		if err != nil {
			return Value{}, fmt.Errorf("exec: in %q: %w", in.c.ValueName(f), err)
		}
		if done {
			return ret, nil
		}
		prev, cur = cur, next
	}
}

func (in *Interp) eval(fr *frame, v native.ValueRef) Value {
	switch in.c.ValueKindOf(v) {
	case native.ValArg, native.ValInstr:
		return fr.regs[v]
	default:
		return in.constValue(v)
	}
}

// runBlock executes one block. Leading phi nodes resolve in parallel
// against the edge just taken before any of their results are visible.
func (in *Interp) runBlock(fr *frame, b, prev native.BlockRef) (native.BlockRef, Value, bool, error) {
	instrs := in.c.BlockInstrs(b)

	var phis []native.ValueRef
	var phiVals []Value
	for _, ins := range instrs {
		if in.c.InstrOpcode(ins) != native.OpPhi {
			break
		}
		found := false
		for _, inc := range in.c.InstrIncoming(ins) {
			if inc.Pred == prev {
				phis = append(phis, ins)
				phiVals = append(phiVals, in.eval(fr, inc.Value))
				found = true
				break
			}
		}
		if !found {
			return native.NoBlock, Value{}, false, fmt.Errorf("phi has no incoming for the edge taken")
		}
	}
	for i, ins := range phis {
		fr.regs[ins] = phiVals[i]
	}

	for _, ins := range instrs[len(phis):] {
		next, ret, done, err := in.step(fr, ins)
		if err != nil || done || next != native.NoBlock {
			return next, ret, done, err
		}
	}
	return native.NoBlock, Value{}, false, fmt.Errorf("block %q fell off its end", in.c.BlockName(b))
}
