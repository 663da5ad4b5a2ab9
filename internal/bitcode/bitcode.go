// Package bitcode serializes modules into a compact binary container:
// a four-byte magic, a big-endian schema version, and a msgpack payload
// of index-based type, constant, global and function tables. The format
// is self-contained per module; reading materializes a fresh module in
// whatever context the caller provides.
package bitcode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/vmihailenco/msgpack/v5"

	"forge/internal/native"
)

// Magic opens every bitcode stream.
const Magic = "FRBC"

// Schema is the current payload layout version. Readers reject any
// other version outright rather than guessing.
const Schema uint16 = 1

const noIndex = int32(-1)

type fileType struct {
	Kind      uint8   `msgpack:"k"`
	Width     uint32  `msgpack:"w,omitempty"`
	AddrSpace uint32  `msgpack:"as,omitempty"`
	Count     uint32  `msgpack:"n,omitempty"`
	Elem      int32   `msgpack:"e"`
	Fields    []int32 `msgpack:"f,omitempty"`
	Packed    bool    `msgpack:"p,omitempty"`
	Name      string  `msgpack:"nm,omitempty"`
	Opaque    bool    `msgpack:"o,omitempty"`
	Ret       int32   `msgpack:"r"`
	Params    []int32 `msgpack:"pr,omitempty"`
}

type fileConst struct {
	Kind   uint8    `msgpack:"k"`
	Type   int32    `msgpack:"t"`
	Int    uint64   `msgpack:"i,omitempty"`
	Float  float64  `msgpack:"f,omitempty"`
	Str    string   `msgpack:"s,omitempty"`
	Elems  []uint32 `msgpack:"e,omitempty"`
	Packed bool     `msgpack:"p,omitempty"`
}

// Operand reference tags. Constants go by constant-table index, globals
// and functions by name, arguments by position and instructions by
// function-wide insertion index.
const (
	refNone uint8 = iota
	refConst
	refGlobal
	refFunction
	refArg
	refInstr
)

type fileOperand struct {
	Tag   uint8  `msgpack:"t"`
	Index uint32 `msgpack:"i,omitempty"`
	Name  string `msgpack:"n,omitempty"`
}

type fileCase struct {
	On   fileOperand `msgpack:"o"`
	Dest uint32      `msgpack:"d"`
}

type fileIncoming struct {
	Value fileOperand `msgpack:"v"`
	Pred  uint32      `msgpack:"p"`
}

type fileInstr struct {
	Op       uint8          `msgpack:"op"`
	Type     int32          `msgpack:"t"`
	Name     string         `msgpack:"n,omitempty"`
	Operands []fileOperand  `msgpack:"o,omitempty"`
	IPred    uint8          `msgpack:"ip,omitempty"`
	RPred    uint8          `msgpack:"rp,omitempty"`
	Dests    []uint32       `msgpack:"d,omitempty"`
	Cases    []fileCase     `msgpack:"c,omitempty"`
	Incoming []fileIncoming `msgpack:"in,omitempty"`
	Tail     bool           `msgpack:"tl,omitempty"`
	AllocTy  int32          `msgpack:"at"`
	AggIndex uint32         `msgpack:"ai,omitempty"`
}

type fileBlock struct {
	Name   string      `msgpack:"n,omitempty"`
	Instrs []fileInstr `msgpack:"i,omitempty"`
}

type fileFunc struct {
	Name     string      `msgpack:"n"`
	Sig      int32       `msgpack:"s"`
	Attrs    uint32      `msgpack:"a,omitempty"`
	ArgAttrs []uint32    `msgpack:"aa,omitempty"`
	Defined  bool        `msgpack:"df,omitempty"`
	Blocks   []fileBlock `msgpack:"b,omitempty"`
}

type fileGlobal struct {
	Name      string `msgpack:"n"`
	Elem      int32  `msgpack:"e"`
	AddrSpace uint32 `msgpack:"as,omitempty"`
	Init      int32  `msgpack:"i"`
}

type fileModule struct {
	Name    string       `msgpack:"name"`
	Target  string       `msgpack:"target,omitempty"`
	Layout  string       `msgpack:"layout,omitempty"`
	Types   []fileType   `msgpack:"types,omitempty"`
	Consts  []fileConst  `msgpack:"consts,omitempty"`
	Globals []fileGlobal `msgpack:"globals,omitempty"`
	Funcs   []fileFunc   `msgpack:"funcs,omitempty"`
}

// Writing ---------------------------------------------------------------------

type writer struct {
	c    *native.Context
	m    native.ModuleRef
	file fileModule

	typeIndex  map[native.TypeRef]int32
	constIndex map[native.ValueRef]uint32

	// per-function resolution state
	argIndex   map[native.ValueRef]uint32
	instrIndex map[native.ValueRef]uint32
	blockIndex map[native.BlockRef]uint32
}

func (w *writer) addType(t native.TypeRef) int32 {
	if t == native.NoType {
		return noIndex
	}
	if i, ok := w.typeIndex[t]; ok {
		return i
	}
	idx := int32(len(w.file.Types))
	w.typeIndex[t] = idx
	w.file.Types = append(w.file.Types, fileType{Elem: noIndex, Ret: noIndex})

	ft := fileType{Kind: uint8(w.c.Kind(t)), Elem: noIndex, Ret: noIndex}
	switch w.c.Kind(t) {
	case native.KindInteger:
		ft.Width = w.c.IntWidth(t)
	case native.KindPointer:
		ft.AddrSpace = w.c.AddrSpace(t)
		ft.Elem = w.addType(w.c.ElemType(t))
	case native.KindArray, native.KindVector:
		ft.Count = w.c.TypeCount(t)
		ft.Elem = w.addType(w.c.ElemType(t))
	case native.KindStruct:
		ft.Name = w.c.StructName(t)
		ft.Packed = w.c.StructPacked(t)
		ft.Opaque = w.c.StructOpaque(t)
		if !ft.Opaque {
			n := w.c.StructFieldCount(t)
			fields := make([]native.TypeRef, n)
			w.c.StructFields(t, fields)
			ft.Fields = make([]int32, n)
			for i, f := range fields {
				ft.Fields[i] = w.addType(f)
			}
		}
	case native.KindFunction:
		ft.Ret = w.addType(w.c.ReturnType(t))
		n := w.c.ParamCount(t)
		params := make([]native.TypeRef, n)
		w.c.ParamTypes(t, params)
		ft.Params = make([]int32, n)
		for i, p := range params {
			ft.Params[i] = w.addType(p)
		}
	}
	w.file.Types[idx] = ft
	return idx
}

func (w *writer) addConst(v native.ValueRef) uint32 {
	if i, ok := w.constIndex[v]; ok {
		return i
	}
	fc := fileConst{Kind: uint8(w.c.ValueKindOf(v)), Type: w.addType(w.c.TypeOf(v))}
	switch w.c.ValueKindOf(v) {
	case native.ValConstInt:
		fc.Int = w.c.ConstIntValue(v)
	case native.ValConstFloat:
		fc.Float = w.c.ConstFloatValue(v)
	case native.ValConstString:
		fc.Str = w.c.ConstStringValue(v)
	case native.ValConstAgg:
		elems := w.c.ConstElems(v)
		fc.Elems = make([]uint32, len(elems))
		for i, e := range elems {
			fc.Elems[i] = w.addConst(e)
		}
		fc.Packed = w.c.StructPacked(w.c.TypeOf(v))
	case native.ValUndef:
	default:
		panic(fmt.Sprintf("bitcode: value kind %d is not a constant", w.c.ValueKindOf(v)))
	}
	idx := uint32(len(w.file.Consts))
	w.constIndex[v] = idx
	w.file.Consts = append(w.file.Consts, fc)
	return idx
}

func (w *writer) operand(v native.ValueRef) fileOperand {
	if v == native.NoValue {
		return fileOperand{Tag: refNone}
	}
	switch w.c.ValueKindOf(v) {
	case native.ValGlobal:
		return fileOperand{Tag: refGlobal, Name: w.c.ValueName(v)}
	case native.ValFunction:
		return fileOperand{Tag: refFunction, Name: w.c.ValueName(v)}
	case native.ValArg:
		return fileOperand{Tag: refArg, Index: w.argIndex[v]}
	case native.ValInstr:
		return fileOperand{Tag: refInstr, Index: w.instrIndex[v]}
	default:
		return fileOperand{Tag: refConst, Index: w.addConst(v)}
	}
}

func (w *writer) writeFunc(f native.ValueRef) fileFunc {
	ff := fileFunc{
		Name:  w.c.ValueName(f),
		Sig:   w.addType(w.c.ElemType(w.c.TypeOf(f))),
		Attrs: w.c.GetFunctionAttr(f),
	}
	nargs := w.c.CountParams(f)
	w.argIndex = make(map[native.ValueRef]uint32, nargs)
	ff.ArgAttrs = make([]uint32, nargs)
	for i := uint32(0); i < nargs; i++ {
		a := w.c.Param(f, i)
		w.argIndex[a] = i
		ff.ArgAttrs[i] = w.c.GetArgAttr(a)
	}

	blocks := w.c.Blocks(f)
	if len(blocks) == 0 {
		return ff
	}
	ff.Defined = true
	w.blockIndex = make(map[native.BlockRef]uint32, len(blocks))
	w.instrIndex = make(map[native.ValueRef]uint32)
	next := uint32(0)
	for bi, b := range blocks {
		w.blockIndex[b] = uint32(bi)
		for _, ins := range w.c.BlockInstrs(b) {
			w.instrIndex[ins] = next
			next++
		}
	}
	for _, b := range blocks {
		fb := fileBlock{Name: w.c.BlockName(b)}
		for _, ins := range w.c.BlockInstrs(b) {
			fi := fileInstr{
				Op:       uint8(w.c.InstrOpcode(ins)),
				Type:     w.addType(w.c.TypeOf(ins)),
				Name:     w.c.ValueName(ins),
				IPred:    uint8(w.c.InstrIntPredicate(ins)),
				RPred:    uint8(w.c.InstrRealPredicate(ins)),
				Tail:     w.c.IsTailCall(ins),
				AllocTy:  w.addType(w.c.InstrAllocatedType(ins)),
				AggIndex: w.c.InstrAggIndex(ins),
			}
			for _, op := range w.c.InstrOperands(ins) {
				fi.Operands = append(fi.Operands, w.operand(op))
			}
			for _, d := range w.c.InstrDests(ins) {
				fi.Dests = append(fi.Dests, w.blockIndex[d])
			}
			for _, cs := range w.c.InstrCases(ins) {
				fi.Cases = append(fi.Cases, fileCase{On: w.operand(cs.On), Dest: w.blockIndex[cs.Dest]})
			}
			for _, inc := range w.c.InstrIncoming(ins) {
				fi.Incoming = append(fi.Incoming, fileIncoming{Value: w.operand(inc.Value), Pred: w.blockIndex[inc.Pred]})
			}
			fb.Instrs = append(fb.Instrs, fi)
		}
		ff.Blocks = append(ff.Blocks, fb)
	}
	return ff
}

// Marshal serializes the module into a standalone bitcode byte stream.
func Marshal(c *native.Context, m native.ModuleRef) ([]byte, error) {
	w := &writer{
		c:          c,
		m:          m,
		typeIndex:  make(map[native.TypeRef]int32),
		constIndex: make(map[native.ValueRef]uint32),
	}
	w.file.Name = c.ModuleName(m)
	w.file.Target = c.ModuleTarget(m)
	w.file.Layout = c.ModuleDataLayout(m)
	for g := c.FirstGlobal(m); g != native.NoValue; g = c.NextGlobal(g) {
		fg := fileGlobal{
			Name:      c.ValueName(g),
			Elem:      w.addType(c.ElemType(c.TypeOf(g))),
			AddrSpace: c.AddrSpace(c.TypeOf(g)),
			Init:      noIndex,
		}
		if init := c.Initializer(g); init != native.NoValue {
			fg.Init = int32(w.addConst(init))
		}
		w.file.Globals = append(w.file.Globals, fg)
	}
	for f := c.FirstFunction(m); f != native.NoValue; f = c.NextFunction(f) {
		w.file.Funcs = append(w.file.Funcs, w.writeFunc(f))
	}

	payload, err := msgpack.Marshal(&w.file)
	if err != nil {
		return nil, fmt.Errorf("bitcode: encode payload: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString(Magic)
	if err := binary.Write(&buf, binary.BigEndian, Schema); err != nil {
		return nil, err
	}
	buf.Write(payload)
	return buf.Bytes(), nil
}

// Write serializes the module onto out.
func Write(c *native.Context, m native.ModuleRef, out io.Writer) error {
	data, err := Marshal(c, m)
	if err != nil {
		return err
	}
	_, err = out.Write(data)
	return err
}

// WriteFile serializes the module into the file at path.
func WriteFile(c *native.Context, m native.ModuleRef, path string) error {
	data, err := Marshal(c, m)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// Reading ---------------------------------------------------------------------

type reader struct {
	c    *native.Context
	m    native.ModuleRef
	file fileModule

	types    []native.TypeRef
	building []bool
	consts   []native.ValueRef
}

func (r *reader) typeAt(i int32) (native.TypeRef, error) {
	if i == noIndex {
		return native.NoType, nil
	}
	if i < 0 || int(i) >= len(r.file.Types) {
		return native.NoType, fmt.Errorf("bitcode: type index %d out of range", i)
	}
	if r.types[i] != native.NoType {
		return r.types[i], nil
	}
	if r.building[i] {
		return native.NoType, fmt.Errorf("bitcode: type table cycle at index %d", i)
	}
	r.building[i] = true
	defer func() { r.building[i] = false }()

	ft := r.file.Types[i]
	var t native.TypeRef
	switch native.TypeKind(ft.Kind) {
	case native.KindVoid:
		t = r.c.VoidType()
	case native.KindHalf:
		t = r.c.HalfType()
	case native.KindFloat:
		t = r.c.FloatType()
	case native.KindDouble:
		t = r.c.DoubleType()
	case native.KindInteger:
		t = r.c.IntType(ft.Width)
	case native.KindPointer:
		elem, err := r.typeAt(ft.Elem)
		if err != nil {
			return native.NoType, err
		}
		t = r.c.PointerType(elem, ft.AddrSpace)
	case native.KindArray, native.KindVector:
		elem, err := r.typeAt(ft.Elem)
		if err != nil {
			return native.NoType, err
		}
		if native.TypeKind(ft.Kind) == native.KindArray {
			t = r.c.ArrayType(elem, ft.Count)
		} else {
			t = r.c.VectorType(elem, ft.Count)
		}
	case native.KindStruct:
		fields, err := r.typeList(ft.Fields)
		if err != nil {
			return native.NoType, err
		}
		t = r.c.StructType(fields, ft.Packed)
	case native.KindFunction:
		ret, err := r.typeAt(ft.Ret)
		if err != nil {
			return native.NoType, err
		}
		params, err := r.typeList(ft.Params)
		if err != nil {
			return native.NoType, err
		}
		t = r.c.FunctionType(ret, params)
	default:
		return native.NoType, fmt.Errorf("bitcode: unknown type kind %d", ft.Kind)
	}
	r.types[i] = t
	return t, nil
}

func (r *reader) typeList(indices []int32) ([]native.TypeRef, error) {
	out := make([]native.TypeRef, len(indices))
	for i, idx := range indices {
		t, err := r.typeAt(idx)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

// buildTypes materializes the type table. Named structs are registered
// opaque first so recursive bodies can point back at them, then the
// bodies are attached.
func (r *reader) buildTypes() error {
	r.types = make([]native.TypeRef, len(r.file.Types))
	r.building = make([]bool, len(r.file.Types))
	for i, ft := range r.file.Types {
		if native.TypeKind(ft.Kind) == native.KindStruct && ft.Name != "" {
			r.types[i] = r.c.CreateNamedStruct(ft.Name)
		}
	}
	for i := range r.file.Types {
		if _, err := r.typeAt(int32(i)); err != nil {
			return err
		}
	}
	for i, ft := range r.file.Types {
		if native.TypeKind(ft.Kind) != native.KindStruct || ft.Name == "" || ft.Opaque {
			continue
		}
		fields, err := r.typeList(ft.Fields)
		if err != nil {
			return err
		}
		r.c.StructSetBody(r.types[i], fields, ft.Packed)
	}
	return nil
}

func (r *reader) constAt(i uint32) (native.ValueRef, error) {
	if int(i) >= len(r.file.Consts) {
		return native.NoValue, fmt.Errorf("bitcode: constant index %d out of range", i)
	}
	if r.consts[i] != native.NoValue {
		return r.consts[i], nil
	}
	fc := r.file.Consts[i]
	t, err := r.typeAt(fc.Type)
	if err != nil {
		return native.NoValue, err
	}
	var v native.ValueRef
	switch native.ValueKind(fc.Kind) {
	case native.ValConstInt:
		v = r.c.ConstInt(t, fc.Int)
	case native.ValConstFloat:
		v = r.c.ConstFloat(t, fc.Float)
	case native.ValConstString:
		// The stored payload already carries any trailing NUL.
		v = r.c.ConstString(fc.Str, true)
	case native.ValConstAgg:
		elems := make([]native.ValueRef, len(fc.Elems))
		for j, e := range fc.Elems {
			if e >= i {
				return native.NoValue, fmt.Errorf("bitcode: constant %d references later constant %d", i, e)
			}
			elems[j], err = r.constAt(e)
			if err != nil {
				return native.NoValue, err
			}
		}
		if r.c.Kind(t) == native.KindVector {
			v = r.c.ConstVector(elems)
		} else {
			v = r.c.ConstStruct(elems, fc.Packed)
		}
	case native.ValUndef:
		v = r.c.Undef(t)
	default:
		return native.NoValue, fmt.Errorf("bitcode: constant %d has non-constant kind %d", i, fc.Kind)
	}
	r.consts[i] = v
	return v, nil
}

func (r *reader) resolveOperand(op fileOperand, args []native.ValueRef, instrs []native.ValueRef) (native.ValueRef, error) {
	switch op.Tag {
	case refNone:
		return native.NoValue, nil
	case refConst:
		return r.constAt(op.Index)
	case refGlobal:
		g := r.c.NamedGlobal(r.m, op.Name)
		if g == native.NoValue {
			return native.NoValue, fmt.Errorf("bitcode: unknown global %q", op.Name)
		}
		return g, nil
	case refFunction:
		f := r.c.NamedFunction(r.m, op.Name)
		if f == native.NoValue {
			return native.NoValue, fmt.Errorf("bitcode: unknown function %q", op.Name)
		}
		return f, nil
	case refArg:
		if int(op.Index) >= len(args) {
			return native.NoValue, fmt.Errorf("bitcode: argument index %d out of range", op.Index)
		}
		return args[op.Index], nil
	case refInstr:
		if int(op.Index) >= len(instrs) {
			return native.NoValue, fmt.Errorf("bitcode: instruction index %d out of range", op.Index)
		}
		return instrs[op.Index], nil
	default:
		return native.NoValue, fmt.Errorf("bitcode: unknown operand tag %d", op.Tag)
	}
}

// readBody materializes a function body in two passes: first every
// instruction node with its branch structure, then the operands, so
// references to later instructions resolve.
func (r *reader) readBody(f native.ValueRef, ff fileFunc) error {
	args := make([]native.ValueRef, r.c.CountParams(f))
	for i := range args {
		args[i] = r.c.Param(f, uint32(i))
	}
	blocks := make([]native.BlockRef, len(ff.Blocks))
	for i, fb := range ff.Blocks {
		blocks[i] = r.c.AppendBlock(f, fb.Name)
	}
	blockAt := func(i uint32) (native.BlockRef, error) {
		if int(i) >= len(blocks) {
			return native.NoBlock, fmt.Errorf("bitcode: block index %d out of range", i)
		}
		return blocks[i], nil
	}

	var instrs []native.ValueRef
	var flat []fileInstr
	for bi, fb := range ff.Blocks {
		for _, fi := range fb.Instrs {
			ty, err := r.typeAt(fi.Type)
			if err != nil {
				return err
			}
			allocTy, err := r.typeAt(fi.AllocTy)
			if err != nil {
				return err
			}
			dests := make([]native.BlockRef, len(fi.Dests))
			for i, d := range fi.Dests {
				if dests[i], err = blockAt(d); err != nil {
					return err
				}
			}
			v := r.c.InsertInstr(blocks[bi], native.NoValue, native.Instr{
				Op:       native.Opcode(fi.Op),
				Type:     ty,
				Name:     fi.Name,
				IPred:    native.IntPredicate(fi.IPred),
				RPred:    native.RealPredicate(fi.RPred),
				Dests:    dests,
				Tail:     fi.Tail,
				AllocTy:  allocTy,
				AggIndex: fi.AggIndex,
			})
			instrs = append(instrs, v)
			flat = append(flat, fi)
		}
	}
	for i, fi := range flat {
		ops := make([]native.ValueRef, len(fi.Operands))
		for j, fo := range fi.Operands {
			v, err := r.resolveOperand(fo, args, instrs)
			if err != nil {
				return err
			}
			ops[j] = v
		}
		r.c.SetInstrOperands(instrs[i], ops)
		for _, cs := range fi.Cases {
			on, err := r.resolveOperand(cs.On, args, instrs)
			if err != nil {
				return err
			}
			dest, err := blockAt(cs.Dest)
			if err != nil {
				return err
			}
			r.c.AddCase(instrs[i], on, dest)
		}
		for _, inc := range fi.Incoming {
			v, err := r.resolveOperand(inc.Value, args, instrs)
			if err != nil {
				return err
			}
			pred, err := blockAt(inc.Pred)
			if err != nil {
				return err
			}
			r.c.AddIncoming(instrs[i], v, pred)
		}
		if err := r.checkAggIndices(instrs[i]); err != nil {
			return err
		}
	}
	return nil
}

// checkAggIndices bounds-checks the member indices of aggregate
// instructions against their types, so a crafted stream surfaces a
// diagnostic here instead of faulting the evaluator later.
func (r *reader) checkAggIndices(v native.ValueRef) error {
	c := r.c
	switch c.InstrOpcode(v) {
	case native.OpInsertValue, native.OpExtractValue:
		ops := c.InstrOperands(v)
		if len(ops) == 0 || ops[0] == native.NoValue {
			return fmt.Errorf("bitcode: %s without an aggregate operand", c.InstrOpcode(v))
		}
		agg := c.TypeOf(ops[0])
		n, ok := memberCount(c, agg)
		if !ok || uint64(c.InstrAggIndex(v)) >= n {
			return fmt.Errorf("bitcode: %s index %d out of range for %s",
				c.InstrOpcode(v), c.InstrAggIndex(v), c.TypeString(agg))
		}
	case native.OpInBoundsGEP:
		ops := c.InstrOperands(v)
		if len(ops) < 2 || ops[0] == native.NoValue || c.Kind(c.TypeOf(ops[0])) != native.KindPointer {
			return nil
		}
		cur := c.ElemType(c.TypeOf(ops[0]))
		for _, op := range ops[2:] {
			if op == native.NoValue {
				return fmt.Errorf("bitcode: getelementptr with a missing index operand")
			}
			switch c.Kind(cur) {
			case native.KindArray, native.KindVector:
				cur = c.ElemType(cur)
			case native.KindStruct:
				if c.ValueKindOf(op) != native.ValConstInt {
					return fmt.Errorf("bitcode: getelementptr struct index is not a constant")
				}
				idx := c.ConstIntValue(op)
				n := uint64(c.StructFieldCount(cur))
				if idx >= n {
					return fmt.Errorf("bitcode: getelementptr index %d out of range for %s",
						idx, c.TypeString(cur))
				}
				fields := make([]native.TypeRef, n)
				c.StructFields(cur, fields)
				cur = fields[idx]
			default:
				return fmt.Errorf("bitcode: getelementptr walks into %s", c.TypeString(cur))
			}
		}
	}
	return nil
}

func memberCount(c *native.Context, t native.TypeRef) (uint64, bool) {
	switch c.Kind(t) {
	case native.KindStruct:
		return uint64(c.StructFieldCount(t)), true
	case native.KindArray, native.KindVector:
		return uint64(c.TypeCount(t)), true
	default:
		return 0, false
	}
}

func (r *reader) read() error {
	if err := r.buildTypes(); err != nil {
		return err
	}
	r.consts = make([]native.ValueRef, len(r.file.Consts))
	r.c.SetModuleTarget(r.m, r.file.Target)
	r.c.SetModuleDataLayout(r.m, r.file.Layout)

	for _, fg := range r.file.Globals {
		elem, err := r.typeAt(fg.Elem)
		if err != nil {
			return err
		}
		g := r.c.AddGlobal(r.m, fg.Name, elem, fg.AddrSpace)
		if fg.Init != noIndex {
			init, err := r.constAt(uint32(fg.Init))
			if err != nil {
				return err
			}
			r.c.SetInitializer(g, init)
		}
	}
	for _, ff := range r.file.Funcs {
		sig, err := r.typeAt(ff.Sig)
		if err != nil {
			return err
		}
		if r.c.Kind(sig) != native.KindFunction {
			return fmt.Errorf("bitcode: function %q has non-signature type", ff.Name)
		}
		f := r.c.AddFunction(r.m, ff.Name, sig)
		if ff.Attrs != 0 {
			r.c.AddFunctionAttr(f, ff.Attrs)
		}
		for i, mask := range ff.ArgAttrs {
			if mask != 0 && uint32(i) < r.c.CountParams(f) {
				r.c.AddArgAttr(r.c.Param(f, uint32(i)), mask)
			}
		}
	}
	for _, ff := range r.file.Funcs {
		if !ff.Defined {
			continue
		}
		f := r.c.NamedFunction(r.m, ff.Name)
		if err := r.readBody(f, ff); err != nil {
			return err
		}
	}
	return nil
}

// Read materializes a bitcode stream as a new module in the context.
func Read(c *native.Context, data []byte) (native.ModuleRef, error) {
	if len(data) < len(Magic)+2 || string(data[:len(Magic)]) != Magic {
		return native.NoModule, fmt.Errorf("bitcode: bad magic")
	}
	schema := binary.BigEndian.Uint16(data[len(Magic):])
	if schema != Schema {
		return native.NoModule, fmt.Errorf("bitcode: unsupported schema version %d", schema)
	}
	r := &reader{c: c}
	if err := msgpack.Unmarshal(data[len(Magic)+2:], &r.file); err != nil {
		return native.NoModule, fmt.Errorf("bitcode: decode payload: %w", err)
	}
	r.m = c.CreateModule(r.file.Name)
	if err := r.read(); err != nil {
		c.DisposeModule(r.m)
		return native.NoModule, err
	}
	return r.m, nil
}

// ReadFile materializes the bitcode file at path as a new module.
func ReadFile(c *native.Context, path string) (native.ModuleRef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return native.NoModule, fmt.Errorf("%s: %w", path, err)
	}
	return Read(c, data)
}
