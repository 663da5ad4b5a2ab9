package native

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// TypeString renders the canonical text form of a type: "i64", "double",
// "[10 x double]", "<4 x i32>", "double*", "{ i32, float }", "%name",
// "i64 (i64)".
func (c *Context) TypeString(t TypeRef) string {
	tn := c.typ(t)
	switch tn.kind {
	case KindVoid:
		return "void"
	case KindHalf:
		return "half"
	case KindFloat:
		return "float"
	case KindDouble:
		return "double"
	case KindInteger:
		return fmt.Sprintf("i%d", tn.width)
	case KindPointer:
		if tn.addrSpace != 0 {
			return fmt.Sprintf("%s addrspace(%d)*", c.TypeString(tn.elem), tn.addrSpace)
		}
		return c.TypeString(tn.elem) + "*"
	case KindArray:
		return fmt.Sprintf("[%d x %s]", tn.count, c.TypeString(tn.elem))
	case KindVector:
		return fmt.Sprintf("<%d x %s>", tn.count, c.TypeString(tn.elem))
	case KindStruct:
		if tn.name != "" {
			return "%" + tn.name
		}
		return c.structBodyString(tn)
	case KindFunction:
		parts := make([]string, len(tn.params))
		for i, p := range tn.params {
			parts[i] = c.TypeString(p)
		}
		return fmt.Sprintf("%s (%s)", c.TypeString(tn.ret), strings.Join(parts, ", "))
	default:
		return "invalid"
	}
}

func (c *Context) structBodyString(tn *typeNode) string {
	if tn.opaque {
		return "opaque"
	}
	parts := make([]string, len(tn.fields))
	for i, f := range tn.fields {
		parts[i] = c.TypeString(f)
	}
	body := "{ " + strings.Join(parts, ", ") + " }"
	if len(tn.fields) == 0 {
		body = "{}"
	}
	if tn.packed {
		return "<" + body + ">"
	}
	return body
}

func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// names assigned to values and blocks while printing one function.
type printNames struct {
	value map[ValueRef]string
	block map[BlockRef]string
}

func (c *Context) functionNames(f ValueRef) printNames {
	pn := printNames{value: make(map[ValueRef]string), block: make(map[BlockRef]string)}
	counter := 0
	next := func() string {
		s := strconv.Itoa(counter)
		counter++
		return s
	}
	fn := c.value(f)
	for _, a := range fn.params {
		if name := c.values[a].name; name != "" {
			pn.value[a] = name
		} else {
			pn.value[a] = next()
		}
	}
	for _, b := range fn.blocks {
		if name := c.blocks[b].name; name != "" {
			pn.block[b] = name
		} else {
			pn.block[b] = next()
		}
		for _, ins := range c.blocks[b].instrs {
			in := &c.values[ins]
			if in.typ == NoType || c.types[in.typ].kind == KindVoid || in.op.IsTerminator() {
				continue
			}
			if in.name != "" {
				pn.value[ins] = in.name
			} else {
				pn.value[ins] = next()
			}
		}
	}
	return pn
}

// constExprString renders a constant without its leading type.
func (c *Context) constExprString(v ValueRef) string {
	vn := c.value(v)
	switch vn.kind {
	case ValConstInt:
		if c.types[vn.typ].width == 1 {
			if vn.iconst != 0 {
				return "true"
			}
			return "false"
		}
		return strconv.FormatUint(vn.iconst, 10)
	case ValConstFloat:
		return formatFloat(vn.fconst)
	case ValConstString:
		var sb strings.Builder
		sb.WriteString(`c"`)
		for i := 0; i < len(vn.str); i++ {
			b := vn.str[i]
			if b >= 0x20 && b <= 0x7e && b != '"' && b != '\\' {
				sb.WriteByte(b)
			} else {
				fmt.Fprintf(&sb, "\\%02X", b)
			}
		}
		sb.WriteByte('"')
		return sb.String()
	case ValConstAgg:
		parts := make([]string, len(vn.elems))
		for i, e := range vn.elems {
			parts[i] = c.operandString(e, printNames{})
		}
		if c.types[vn.typ].kind == KindVector {
			return "< " + strings.Join(parts, ", ") + " >"
		}
		return "{ " + strings.Join(parts, ", ") + " }"
	case ValUndef:
		return "undef"
	case ValGlobal, ValFunction:
		return "@" + vn.name
	default:
		return "<badref>"
	}
}

// operandString renders "type value" for use inside instructions.
func (c *Context) operandString(v ValueRef, pn printNames) string {
	vn := c.value(v)
	ty := c.TypeString(vn.typ)
	switch vn.kind {
	case ValGlobal, ValFunction:
		return ty + " @" + vn.name
	case ValArg, ValInstr:
		if name, ok := pn.value[v]; ok {
			return ty + " %" + name
		}
		if vn.name != "" {
			return ty + " %" + vn.name
		}
		return ty + " %<unnamed>"
	default:
		return ty + " " + c.constExprString(v)
	}
}

// InstrString renders one instruction using the naming of its function.
func (c *Context) InstrString(v ValueRef) string {
	pn := c.functionNames(c.block(c.value(v).block).parent)
	return c.instrString(v, pn)
}

func (c *Context) instrString(v ValueRef, pn printNames) string {
	vn := c.value(v)
	var sb strings.Builder
	if name, ok := pn.value[v]; ok {
		sb.WriteString("%" + name + " = ")
	}
	ops := vn.operands
	opnd := func(i int) string { return c.operandString(ops[i], pn) }
	label := func(b BlockRef) string {
		if b == NoBlock {
			return "label %<none>"
		}
		return "label %" + pn.block[b]
	}
	switch vn.op {
	case OpRet:
		if len(ops) == 0 {
			sb.WriteString("ret void")
		} else {
			sb.WriteString("ret " + opnd(0))
		}
	case OpBr:
		sb.WriteString("br " + label(vn.cases[0].Dest))
	case OpCondBr:
		dests := c.InstrDests(v)
		sb.WriteString("br " + opnd(0) + ", " + label(dests[0]) + ", " + label(dests[1]))
	case OpSwitch:
		dests := c.InstrDests(v)
		sb.WriteString("switch " + opnd(0) + ", " + label(dests[0]) + " [")
		for _, cs := range c.InstrCases(v) {
			sb.WriteString("\n    " + c.operandString(cs.On, pn) + ", " + label(cs.Dest))
		}
		sb.WriteString("\n  ]")
	case OpPhi:
		sb.WriteString("phi " + c.TypeString(vn.typ))
		for i, inc := range vn.incoming {
			if i > 0 {
				sb.WriteString(",")
			}
			sb.WriteString(" [ " + c.operandString(inc.Value, pn) + ", %" + pn.block[inc.Pred] + " ]")
		}
	case OpCall:
		callee := ops[0]
		sig := c.types[c.values[callee].typ].elem
		if vn.tail {
			sb.WriteString("tail ")
		}
		sb.WriteString("call " + c.TypeString(c.types[sig].ret) + " @" + c.values[callee].name + "(")
		for i := 1; i < len(ops); i++ {
			if i > 1 {
				sb.WriteString(", ")
			}
			sb.WriteString(opnd(i))
		}
		sb.WriteString(")")
	case OpAlloca:
		sb.WriteString("alloca " + c.TypeString(vn.allocTy))
	case OpArrayAlloca:
		sb.WriteString("alloca " + c.TypeString(vn.allocTy) + ", " + opnd(0))
	case OpFree:
		sb.WriteString("free " + opnd(0))
	case OpLoad:
		sb.WriteString("load " + opnd(0))
	case OpStore:
		sb.WriteString("store " + opnd(0) + ", " + opnd(1))
	case OpInBoundsGEP:
		sb.WriteString("getelementptr inbounds " + opnd(0))
		for i := 1; i < len(ops); i++ {
			sb.WriteString(", " + opnd(i))
		}
	case OpICmp:
		sb.WriteString("icmp " + vn.ipred.String() + " " + opnd(0) + ", " + opnd(1))
	case OpFCmp:
		sb.WriteString("fcmp " + vn.rpred.String() + " " + opnd(0) + ", " + opnd(1))
	case OpSelect:
		sb.WriteString("select " + opnd(0) + ", " + opnd(1) + ", " + opnd(2))
	case OpBitCast:
		sb.WriteString("bitcast " + opnd(0) + " to " + c.TypeString(vn.typ))
	case OpInsertValue:
		sb.WriteString(fmt.Sprintf("insertvalue %s, %s, %d", opnd(0), opnd(1), vn.aggIndex))
	case OpExtractValue:
		sb.WriteString(fmt.Sprintf("extractvalue %s, %d", opnd(0), vn.aggIndex))
	case OpNeg, OpNot:
		sb.WriteString(vn.op.String() + " " + opnd(0))
	default:
		// Binary arithmetic and bitwise ops share one shape.
		sb.WriteString(vn.op.String() + " " + opnd(0) + ", " + opnd(1))
	}
	return sb.String()
}

// ValueString renders a standalone value: constants with their type,
// globals and functions as @name, instructions in full.
func (c *Context) ValueString(v ValueRef) string {
	vn := c.value(v)
	switch vn.kind {
	case ValGlobal, ValFunction:
		return "@" + vn.name
	case ValInstr:
		return c.InstrString(v)
	case ValArg:
		if vn.name != "" {
			return c.TypeString(vn.typ) + " %" + vn.name
		}
		return fmt.Sprintf("%s %%%d", c.TypeString(vn.typ), vn.argIndex)
	default:
		return c.TypeString(vn.typ) + " " + c.constExprString(v)
	}
}

// FunctionString renders a whole function definition or declaration.
func (c *Context) FunctionString(f ValueRef) string {
	fn := c.value(f)
	sig := c.types[fn.typ].elem
	sn := c.types[sig]
	var sb strings.Builder
	pn := c.functionNames(f)
	if len(fn.blocks) == 0 {
		parts := make([]string, len(sn.params))
		for i, p := range sn.params {
			parts[i] = c.TypeString(p)
		}
		fmt.Fprintf(&sb, "declare %s @%s(%s)\n", c.TypeString(sn.ret), fn.name, strings.Join(parts, ", "))
		return sb.String()
	}
	parts := make([]string, len(fn.params))
	for i, a := range fn.params {
		parts[i] = c.TypeString(c.values[a].typ) + " %" + pn.value[a]
	}
	fmt.Fprintf(&sb, "define %s @%s(%s) {\n", c.TypeString(sn.ret), fn.name, strings.Join(parts, ", "))
	for i, b := range fn.blocks {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%s:\n", pn.block[b])
		for _, ins := range c.blocks[b].instrs {
			sb.WriteString("  " + c.instrString(ins, pn) + "\n")
		}
	}
	sb.WriteString("}\n")
	return sb.String()
}

// ModuleString renders the whole module in the round-trippable text form.
func (c *Context) ModuleString(m ModuleRef) string {
	mn := c.module(m)
	var sb strings.Builder
	fmt.Fprintf(&sb, "; ModuleID = '%s'\n", mn.name)
	if mn.target != "" {
		fmt.Fprintf(&sb, "target triple = %q\n", mn.target)
	}
	if mn.layout != "" {
		fmt.Fprintf(&sb, "target datalayout = %q\n", mn.layout)
	}
	namedSeen := make([]string, 0, len(c.named))
	for name := range c.named {
		namedSeen = append(namedSeen, name)
	}
	slices.Sort(namedSeen)
	for _, name := range namedSeen {
		t := c.named[name]
		fmt.Fprintf(&sb, "%%%s = type %s\n", name, c.structBodyString(c.typ(t)))
	}
	for g := mn.firstGlobal; g != NoValue; g = c.values[g].next {
		gn := c.values[g]
		space := ""
		if as := c.types[gn.typ].addrSpace; as != 0 {
			space = fmt.Sprintf("addrspace(%d) ", as)
		}
		if gn.init == NoValue {
			fmt.Fprintf(&sb, "@%s = %sexternal global %s\n", gn.name, space, c.TypeString(c.types[gn.typ].elem))
		} else {
			fmt.Fprintf(&sb, "@%s = %sglobal %s %s\n", gn.name, space, c.TypeString(c.values[gn.init].typ), c.constExprString(gn.init))
		}
	}
	for f := mn.firstFunc; f != NoValue; f = c.values[f].next {
		sb.WriteString("\n")
		sb.WriteString(c.FunctionString(f))
	}
	return sb.String()
}
