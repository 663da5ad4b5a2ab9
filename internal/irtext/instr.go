package irtext

import (
	"strings"

	"forge/internal/native"
)

var binaryOps = map[string]native.Opcode{
	"add":  native.OpAdd,
	"fadd": native.OpFAdd,
	"sub":  native.OpSub,
	"fsub": native.OpFSub,
	"mul":  native.OpMul,
	"fmul": native.OpFMul,
	"sdiv": native.OpSDiv,
	"fdiv": native.OpFDiv,
	"srem": native.OpSRem,
	"frem": native.OpFRem,
	"shl":  native.OpShl,
	"ashr": native.OpAShr,
	"and":  native.OpAnd,
	"or":   native.OpOr,
	"xor":  native.OpXor,
}

var intPreds = map[string]native.IntPredicate{
	"eq":  native.IntEQ,
	"ne":  native.IntNE,
	"slt": native.IntSLT,
	"sle": native.IntSLE,
	"sgt": native.IntSGT,
	"sge": native.IntSGE,
	"ult": native.IntULT,
	"ule": native.IntULE,
	"ugt": native.IntUGT,
	"uge": native.IntUGE,
}

var realPreds = map[string]native.RealPredicate{
	"oeq": native.RealOEQ,
	"one": native.RealONE,
	"olt": native.RealOLT,
	"ole": native.RealOLE,
	"ogt": native.RealOGT,
	"oge": native.RealOGE,
}

// parseInstr reads one instruction starting at body[*i], consuming
// extra lines for multi-line forms (switch case lists).
func (p *parser) parseInstr(body []string, i *int, lineNo int, blocks map[string]native.BlockRef) (instrRec, error) {
	first := *i
	s := newScanner(body[*i], lineNo)
	rec := instrRec{line: lineNo}

	if s.accept("%") {
		name, err := s.word()
		if err != nil {
			return rec, err
		}
		rec.in.Name = name
		if err := s.expect("="); err != nil {
			return rec, err
		}
	}
	mnem, err := s.word()
	if err != nil {
		return rec, err
	}
	if mnem == "tail" {
		rec.in.Tail = true
		if mnem, err = s.word(); err != nil {
			return rec, err
		}
	}

	operand := func() error {
		op, err := p.parseOperand(s)
		if err != nil {
			return err
		}
		rec.operands = append(rec.operands, op)
		return nil
	}

	switch mnem {
	case "ret":
		rec.in.Op = native.OpRet
		if !s.accept("void") {
			if err := operand(); err != nil {
				return rec, err
			}
		}
	case "br":
		if s.peekLit("label") {
			rec.in.Op = native.OpBr
			dest, err := p.blockRef(s, blocks)
			if err != nil {
				return rec, err
			}
			rec.in.Dests = []native.BlockRef{dest}
			break
		}
		rec.in.Op = native.OpCondBr
		if err := operand(); err != nil {
			return rec, err
		}
		for range 2 {
			if err := s.expect(","); err != nil {
				return rec, err
			}
			dest, err := p.blockRef(s, blocks)
			if err != nil {
				return rec, err
			}
			rec.in.Dests = append(rec.in.Dests, dest)
		}
	case "switch":
		rec.in.Op = native.OpSwitch
		if err := operand(); err != nil {
			return rec, err
		}
		if err := s.expect(","); err != nil {
			return rec, err
		}
		def, err := p.blockRef(s, blocks)
		if err != nil {
			return rec, err
		}
		rec.in.Dests = []native.BlockRef{def}
		if err := s.expect("["); err != nil {
			return rec, err
		}
		for {
			*i++
			if *i >= len(body) {
				return rec, s.errorf("unterminated switch case list")
			}
			if strings.TrimSpace(body[*i]) == "]" {
				break
			}
			cl := newScanner(body[*i], lineNo+*i-first)
			on, err := p.parseOperand(cl)
			if err != nil {
				return rec, err
			}
			if err := cl.expect(","); err != nil {
				return rec, err
			}
			dest, err := p.blockRef(cl, blocks)
			if err != nil {
				return rec, err
			}
			rec.cases = append(rec.cases, caseRec{on: on, dest: dest})
		}
		return rec, nil
	case "phi":
		rec.in.Op = native.OpPhi
		ty, err := p.parseType(s)
		if err != nil {
			return rec, err
		}
		rec.in.Type = ty
		for {
			if err := s.expect("["); err != nil {
				return rec, err
			}
			val, err := p.parseOperand(s)
			if err != nil {
				return rec, err
			}
			if err := s.expect(","); err != nil {
				return rec, err
			}
			if err := s.expect("%"); err != nil {
				return rec, err
			}
			pname, err := s.word()
			if err != nil {
				return rec, err
			}
			pred, ok := blocks[pname]
			if !ok {
				return rec, s.errorf("unknown block %%%s", pname)
			}
			if err := s.expect("]"); err != nil {
				return rec, err
			}
			rec.incoming = append(rec.incoming, incRec{val: val, pred: pred})
			if s.accept(",") {
				continue
			}
			break
		}
	case "call":
		rec.in.Op = native.OpCall
		ret, err := p.parseType(s)
		if err != nil {
			return rec, err
		}
		if p.c.Kind(ret) != native.KindVoid {
			rec.in.Type = ret
		}
		if err := s.expect("@"); err != nil {
			return rec, err
		}
		name, err := s.word()
		if err != nil {
			return rec, err
		}
		callee := p.c.NamedFunction(p.m, name)
		if callee == native.NoValue {
			return rec, s.errorf("call to unknown function @%s", name)
		}
		rec.operands = append(rec.operands, opExpr{ty: p.c.TypeOf(callee), ref: callee, line: s.line})
		if err := s.expect("("); err != nil {
			return rec, err
		}
		if !s.accept(")") {
			for {
				if err := operand(); err != nil {
					return rec, err
				}
				if s.accept(",") {
					continue
				}
				break
			}
			if err := s.expect(")"); err != nil {
				return rec, err
			}
		}
	case "alloca":
		ty, err := p.parseType(s)
		if err != nil {
			return rec, err
		}
		rec.in.Op = native.OpAlloca
		rec.in.AllocTy = ty
		rec.in.Type = p.c.PointerType(ty, 0)
		if s.accept(",") {
			rec.in.Op = native.OpArrayAlloca
			if err := operand(); err != nil {
				return rec, err
			}
		}
	case "free":
		rec.in.Op = native.OpFree
		if err := operand(); err != nil {
			return rec, err
		}
	case "load":
		rec.in.Op = native.OpLoad
		if err := operand(); err != nil {
			return rec, err
		}
		elem := p.c.ElemType(rec.operands[0].ty)
		if elem == native.NoType {
			return rec, s.errorf("load needs a pointer operand")
		}
		rec.in.Type = elem
	case "store":
		rec.in.Op = native.OpStore
		if err := operand(); err != nil {
			return rec, err
		}
		if err := s.expect(","); err != nil {
			return rec, err
		}
		if err := operand(); err != nil {
			return rec, err
		}
	case "getelementptr":
		if err := s.expect("inbounds"); err != nil {
			return rec, err
		}
		rec.in.Op = native.OpInBoundsGEP
		if err := operand(); err != nil {
			return rec, err
		}
		for s.accept(",") {
			if err := operand(); err != nil {
				return rec, err
			}
		}
		ty, err := p.gepResultType(s, rec.operands)
		if err != nil {
			return rec, err
		}
		rec.in.Type = ty
	case "icmp", "fcmp":
		pred, err := s.word()
		if err != nil {
			return rec, err
		}
		if mnem == "icmp" {
			ip, ok := intPreds[pred]
			if !ok {
				return rec, s.errorf("unknown integer predicate %q", pred)
			}
			rec.in.Op = native.OpICmp
			rec.in.IPred = ip
		} else {
			rp, ok := realPreds[pred]
			if !ok {
				return rec, s.errorf("unknown float predicate %q", pred)
			}
			rec.in.Op = native.OpFCmp
			rec.in.RPred = rp
		}
		rec.in.Type = p.c.IntType(1)
		if err := operand(); err != nil {
			return rec, err
		}
		if err := s.expect(","); err != nil {
			return rec, err
		}
		if err := operand(); err != nil {
			return rec, err
		}
	case "select":
		rec.in.Op = native.OpSelect
		for j := range 3 {
			if j > 0 {
				if err := s.expect(","); err != nil {
					return rec, err
				}
			}
			if err := operand(); err != nil {
				return rec, err
			}
		}
		rec.in.Type = rec.operands[1].ty
	case "bitcast":
		rec.in.Op = native.OpBitCast
		if err := operand(); err != nil {
			return rec, err
		}
		if err := s.expect("to"); err != nil {
			return rec, err
		}
		ty, err := p.parseType(s)
		if err != nil {
			return rec, err
		}
		rec.in.Type = ty
	case "insertvalue":
		rec.in.Op = native.OpInsertValue
		if err := operand(); err != nil {
			return rec, err
		}
		if err := s.expect(","); err != nil {
			return rec, err
		}
		if err := operand(); err != nil {
			return rec, err
		}
		if err := s.expect(","); err != nil {
			return rec, err
		}
		idx, err := s.uint32Lit()
		if err != nil {
			return rec, err
		}
		rec.in.AggIndex = idx
		rec.in.Type = rec.operands[0].ty
	case "extractvalue":
		rec.in.Op = native.OpExtractValue
		if err := operand(); err != nil {
			return rec, err
		}
		if err := s.expect(","); err != nil {
			return rec, err
		}
		idx, err := s.uint32Lit()
		if err != nil {
			return rec, err
		}
		rec.in.AggIndex = idx
		member, err := p.memberType(s, rec.operands[0].ty, idx)
		if err != nil {
			return rec, err
		}
		rec.in.Type = member
	case "neg", "not":
		rec.in.Op = native.OpNeg
		if mnem == "not" {
			rec.in.Op = native.OpNot
		}
		if err := operand(); err != nil {
			return rec, err
		}
		rec.in.Type = rec.operands[0].ty
	default:
		op, ok := binaryOps[mnem]
		if !ok {
			return rec, s.errorf("unknown instruction %q", mnem)
		}
		rec.in.Op = op
		if err := operand(); err != nil {
			return rec, err
		}
		if err := s.expect(","); err != nil {
			return rec, err
		}
		if err := operand(); err != nil {
			return rec, err
		}
		rec.in.Type = rec.operands[0].ty
	}
	if !s.eof() {
		return rec, s.errorf("trailing tokens near %q", s.remainder())
	}
	return rec, nil
}

// gepResultType walks the index path over the base pointer's pointee,
// mirroring how the address computation itself steps through the
// aggregate. Struct steps need the literal constant index.
func (p *parser) gepResultType(s *scanner, ops []opExpr) (native.TypeRef, error) {
	base := ops[0].ty
	if p.c.Kind(base) != native.KindPointer {
		return native.NoType, s.errorf("getelementptr needs a pointer base")
	}
	cur := p.c.ElemType(base)
	for _, idx := range ops[2:] {
		switch p.c.Kind(cur) {
		case native.KindArray, native.KindVector:
			cur = p.c.ElemType(cur)
		case native.KindStruct:
			if idx.ref == native.NoValue || p.c.ValueKindOf(idx.ref) != native.ValConstInt {
				return native.NoType, s.errorf("struct field index must be a constant")
			}
			member, err := p.memberType(s, cur, uint32(p.c.ConstIntValue(idx.ref)))
			if err != nil {
				return native.NoType, err
			}
			cur = member
		default:
			return native.NoType, s.errorf("getelementptr walks into a non-aggregate")
		}
	}
	return p.c.PointerType(cur, p.c.AddrSpace(base)), nil
}

func (p *parser) memberType(s *scanner, agg native.TypeRef, idx uint32) (native.TypeRef, error) {
	switch p.c.Kind(agg) {
	case native.KindArray, native.KindVector:
		return p.c.ElemType(agg), nil
	case native.KindStruct:
		n := p.c.StructFieldCount(agg)
		if idx >= n {
			return native.NoType, s.errorf("member index %d out of range", idx)
		}
		fields := make([]native.TypeRef, n)
		p.c.StructFields(agg, fields)
		return fields[idx], nil
	default:
		return native.NoType, s.errorf("member access on a non-aggregate")
	}
}
