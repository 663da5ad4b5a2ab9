// Package irtext parses the textual IR form produced by the module
// printer back into a module. Parsing is phased: named types first,
// then globals, then function headers, then function bodies, so
// definitions may reference symbols that appear later in the file.
package irtext

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"forge/internal/native"
)

type parser struct {
	c     *native.Context
	m     native.ModuleRef
	lines []string
}

type typeDef struct {
	line int
	name string
	body string
}

type globalDef struct {
	line int
	text string
}

type funcDef struct {
	line   int
	header string
	body   []string // nil for declarations
	start  int      // line number of the first body line
}

// Parse materializes IR text as a new module in the context. The module
// takes its name from the ModuleID header when present.
func Parse(c *native.Context, src string) (native.ModuleRef, error) {
	p := &parser{c: c, lines: strings.Split(src, "\n")}
	m := c.CreateModule(p.moduleName())
	p.m = m
	if err := p.run(); err != nil {
		c.DisposeModule(m)
		return native.NoModule, err
	}
	return m, nil
}

// ParseFile materializes the IR text file at path as a new module.
// Errors carry the path.
func ParseFile(c *native.Context, path string) (native.ModuleRef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return native.NoModule, fmt.Errorf("%s: %w", path, err)
	}
	m, err := Parse(c, string(data))
	if err != nil {
		return native.NoModule, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

func (p *parser) moduleName() string {
	for _, line := range p.lines {
		if rest, ok := strings.CutPrefix(line, "; ModuleID = '"); ok {
			return strings.TrimSuffix(rest, "'")
		}
	}
	return ""
}

func (p *parser) run() error {
	var types []typeDef
	var globals []globalDef
	var funcs []funcDef

	for i := 0; i < len(p.lines); i++ {
		line := p.lines[i]
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "" || strings.HasPrefix(trimmed, ";"):
		case strings.HasPrefix(line, "target triple = "):
			t, err := strconv.Unquote(strings.TrimPrefix(line, "target triple = "))
			if err != nil {
				return fmt.Errorf("line %d: bad target triple", i+1)
			}
			p.c.SetModuleTarget(p.m, t)
		case strings.HasPrefix(line, "target datalayout = "):
			l, err := strconv.Unquote(strings.TrimPrefix(line, "target datalayout = "))
			if err != nil {
				return fmt.Errorf("line %d: bad data layout", i+1)
			}
			p.c.SetModuleDataLayout(p.m, l)
		case strings.HasPrefix(line, "%"):
			name, body, ok := strings.Cut(line[1:], " = type ")
			if !ok {
				return fmt.Errorf("line %d: malformed type definition", i+1)
			}
			types = append(types, typeDef{line: i + 1, name: name, body: body})
		case strings.HasPrefix(line, "@"):
			globals = append(globals, globalDef{line: i + 1, text: line})
		case strings.HasPrefix(line, "declare "):
			funcs = append(funcs, funcDef{line: i + 1, header: line})
		case strings.HasPrefix(line, "define "):
			fd := funcDef{line: i + 1, header: line, start: i + 2}
			for i++; i < len(p.lines); i++ {
				if p.lines[i] == "}" {
					break
				}
				fd.body = append(fd.body, p.lines[i])
			}
			if i >= len(p.lines) {
				return fmt.Errorf("line %d: unterminated function body", fd.line)
			}
			if fd.body == nil {
				fd.body = []string{}
			}
			funcs = append(funcs, fd)
		default:
			return fmt.Errorf("line %d: unrecognized line %q", i+1, trimmed)
		}
	}

	if err := p.defineTypes(types); err != nil {
		return err
	}
	if err := p.defineGlobals(globals); err != nil {
		return err
	}
	fns := make([]native.ValueRef, len(funcs))
	for i, fd := range funcs {
		f, err := p.defineHeader(fd)
		if err != nil {
			return err
		}
		fns[i] = f
	}
	for i, fd := range funcs {
		if fd.body == nil {
			continue
		}
		if err := p.parseBody(fns[i], fd); err != nil {
			return err
		}
	}
	return nil
}

// Types -----------------------------------------------------------------------

// defineTypes registers every named struct opaque first, so bodies may
// refer to each other in any order, then attaches the bodies.
func (p *parser) defineTypes(defs []typeDef) error {
	for _, d := range defs {
		p.c.CreateNamedStruct(d.name)
	}
	for _, d := range defs {
		if d.body == "opaque" {
			continue
		}
		s := newScanner(d.body, d.line)
		fields, packed, err := p.parseStructBody(s)
		if err != nil {
			return err
		}
		p.c.StructSetBody(p.c.NamedType(d.name), fields, packed)
	}
	return nil
}

func (p *parser) parseStructBody(s *scanner) ([]native.TypeRef, bool, error) {
	packed := s.accept("<")
	if err := s.expect("{"); err != nil {
		return nil, false, err
	}
	var fields []native.TypeRef
	if !s.accept("}") {
		for {
			t, err := p.parseType(s)
			if err != nil {
				return nil, false, err
			}
			fields = append(fields, t)
			if s.accept(",") {
				continue
			}
			break
		}
		if err := s.expect("}"); err != nil {
			return nil, false, err
		}
	}
	if packed {
		if err := s.expect(">"); err != nil {
			return nil, false, err
		}
	}
	return fields, packed, nil
}

func (p *parser) parseType(s *scanner) (native.TypeRef, error) {
	base, err := p.parseBaseType(s)
	if err != nil {
		return native.NoType, err
	}
	for {
		switch {
		case s.accept("("):
			var params []native.TypeRef
			if !s.accept(")") {
				for {
					t, err := p.parseType(s)
					if err != nil {
						return native.NoType, err
					}
					params = append(params, t)
					if s.accept(",") {
						continue
					}
					break
				}
				if err := s.expect(")"); err != nil {
					return native.NoType, err
				}
			}
			base = p.c.FunctionType(base, params)
		case s.accept("addrspace("):
			as, err := s.uint32Lit()
			if err != nil {
				return native.NoType, err
			}
			if err := s.expect(")*"); err != nil {
				return native.NoType, err
			}
			base = p.c.PointerType(base, as)
		case s.accept("*"):
			base = p.c.PointerType(base, 0)
		default:
			return base, nil
		}
	}
}

func (p *parser) parseBaseType(s *scanner) (native.TypeRef, error) {
	switch {
	case s.accept("void"):
		return p.c.VoidType(), nil
	case s.accept("half"):
		return p.c.HalfType(), nil
	case s.accept("float"):
		return p.c.FloatType(), nil
	case s.accept("double"):
		return p.c.DoubleType(), nil
	case s.accept("%"):
		name, err := s.word()
		if err != nil {
			return native.NoType, err
		}
		t := p.c.NamedType(name)
		if t == native.NoType {
			return native.NoType, s.errorf("unknown named type %%%s", name)
		}
		return t, nil
	case s.accept("["):
		n, err := s.uint32Lit()
		if err != nil {
			return native.NoType, err
		}
		if err := s.expect("x"); err != nil {
			return native.NoType, err
		}
		elem, err := p.parseType(s)
		if err != nil {
			return native.NoType, err
		}
		if err := s.expect("]"); err != nil {
			return native.NoType, err
		}
		return p.c.ArrayType(elem, n), nil
	case s.peekLit("<{"):
		fields, _, err := p.parseStructBody(s)
		if err != nil {
			return native.NoType, err
		}
		return p.c.StructType(fields, true), nil
	case s.accept("<"):
		n, err := s.uint32Lit()
		if err != nil {
			return native.NoType, err
		}
		if err := s.expect("x"); err != nil {
			return native.NoType, err
		}
		elem, err := p.parseType(s)
		if err != nil {
			return native.NoType, err
		}
		if err := s.expect(">"); err != nil {
			return native.NoType, err
		}
		return p.c.VectorType(elem, n), nil
	case s.accept("{"):
		var fields []native.TypeRef
		if !s.accept("}") {
			for {
				t, err := p.parseType(s)
				if err != nil {
					return native.NoType, err
				}
				fields = append(fields, t)
				if s.accept(",") {
					continue
				}
				break
			}
			if err := s.expect("}"); err != nil {
				return native.NoType, err
			}
		}
		return p.c.StructType(fields, false), nil
	default:
		w, err := s.word()
		if err != nil {
			return native.NoType, err
		}
		if strings.HasPrefix(w, "i") {
			width, err := strconv.ParseUint(w[1:], 10, 32)
			if err == nil {
				return p.c.IntType(uint32(width)), nil
			}
		}
		return native.NoType, s.errorf("unknown type %q", w)
	}
}

// Globals ---------------------------------------------------------------------

// defineGlobals creates every global first and attaches initializers in
// a second sweep, so initializers may point at later globals.
func (p *parser) defineGlobals(defs []globalDef) error {
	type pending struct {
		g native.ValueRef
		s *scanner
	}
	var inits []pending
	for _, d := range defs {
		s := newScanner(d.text, d.line)
		s.accept("@")
		name, err := s.word()
		if err != nil {
			return err
		}
		if err := s.expect("="); err != nil {
			return err
		}
		var addrSpace uint32
		if s.accept("addrspace(") {
			if addrSpace, err = s.uint32Lit(); err != nil {
				return err
			}
			if err := s.expect(")"); err != nil {
				return err
			}
		}
		external := s.accept("external")
		if err := s.expect("global"); err != nil {
			return err
		}
		if external {
			elem, err := p.parseType(s)
			if err != nil {
				return err
			}
			p.c.AddGlobal(p.m, name, elem, addrSpace)
			continue
		}
		// The printed form repeats the initializer's own type, which is
		// also the global's pointee type.
		save := *s
		elem, err := p.parseType(s)
		if err != nil {
			return err
		}
		g := p.c.AddGlobal(p.m, name, elem, addrSpace)
		inits = append(inits, pending{g: g, s: &save})
	}
	for _, in := range inits {
		op, err := p.parseOperand(in.s)
		if err != nil {
			return err
		}
		if op.ref == native.NoValue {
			return fmt.Errorf("line %d: global initializer must be a constant", in.s.line)
		}
		p.c.SetInitializer(in.g, op.ref)
	}
	return nil
}

// Functions -------------------------------------------------------------------

func (p *parser) defineHeader(fd funcDef) (native.ValueRef, error) {
	s := newScanner(fd.header, fd.line)
	declared := s.accept("declare")
	if !declared {
		if err := s.expect("define"); err != nil {
			return native.NoValue, err
		}
	}
	ret, err := p.parseType(s)
	if err != nil {
		return native.NoValue, err
	}
	if err := s.expect("@"); err != nil {
		return native.NoValue, err
	}
	name, err := s.word()
	if err != nil {
		return native.NoValue, err
	}
	if err := s.expect("("); err != nil {
		return native.NoValue, err
	}
	var params []native.TypeRef
	var argNames []string
	if !s.accept(")") {
		for {
			t, err := p.parseType(s)
			if err != nil {
				return native.NoValue, err
			}
			params = append(params, t)
			if !declared {
				if err := s.expect("%"); err != nil {
					return native.NoValue, err
				}
				an, err := s.word()
				if err != nil {
					return native.NoValue, err
				}
				argNames = append(argNames, an)
			}
			if s.accept(",") {
				continue
			}
			break
		}
		if err := s.expect(")"); err != nil {
			return native.NoValue, err
		}
	}
	f := p.c.AddFunction(p.m, name, p.c.FunctionType(ret, params))
	for i, an := range argNames {
		p.c.SetValueName(p.c.Param(f, uint32(i)), an)
	}
	return f, nil
}

// opExpr is one parsed operand. Constants and symbols resolve during
// parsing; locals resolve after every instruction of the function
// exists.
type opExpr struct {
	ty    native.TypeRef
	ref   native.ValueRef
	local string
	line  int
}

type caseRec struct {
	on   opExpr
	dest native.BlockRef
}

type incRec struct {
	val  opExpr
	pred native.BlockRef
}

type instrRec struct {
	in       native.Instr
	operands []opExpr
	cases    []caseRec
	incoming []incRec
	line     int
}

func (p *parser) parseBody(f native.ValueRef, fd funcDef) error {
	locals := make(map[string]native.ValueRef)
	nargs := p.c.CountParams(f)
	for i := uint32(0); i < nargs; i++ {
		a := p.c.Param(f, i)
		locals["%"+p.c.ValueName(a)] = a
	}

	// First sweep: block labels, so branches may target later blocks.
	blocks := make(map[string]native.BlockRef)
	var order []native.BlockRef
	for _, line := range fd.body {
		if label, ok := blockLabel(line); ok {
			b := p.c.AppendBlock(f, label)
			blocks[label] = b
			order = append(order, b)
		}
	}
	if len(order) == 0 {
		return fmt.Errorf("line %d: function body without blocks", fd.line)
	}

	var recs []instrRec
	var recBlocks []native.BlockRef
	var cur native.BlockRef
	for i := 0; i < len(fd.body); i++ {
		line := fd.body[i]
		lineNo := fd.start + i
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if label, ok := blockLabel(line); ok {
			cur = blocks[label]
			continue
		}
		rec, err := p.parseInstr(fd.body, &i, lineNo, blocks)
		if err != nil {
			return err
		}
		recs = append(recs, rec)
		recBlocks = append(recBlocks, cur)
	}

	// Second sweep: materialize nodes, then patch operands so forward
	// references resolve.
	made := make([]native.ValueRef, len(recs))
	for i, rec := range recs {
		v := p.c.InsertInstr(recBlocks[i], native.NoValue, rec.in)
		made[i] = v
		if rec.in.Name != "" {
			locals["%"+rec.in.Name] = v
		}
	}
	resolve := func(op opExpr) (native.ValueRef, error) {
		if op.local == "" {
			return op.ref, nil
		}
		v, ok := locals[op.local]
		if !ok {
			return native.NoValue, fmt.Errorf("line %d: unknown value %s", op.line, op.local)
		}
		return v, nil
	}
	for i, rec := range recs {
		ops := make([]native.ValueRef, len(rec.operands))
		for j, op := range rec.operands {
			v, err := resolve(op)
			if err != nil {
				return err
			}
			ops[j] = v
		}
		p.c.SetInstrOperands(made[i], ops)
		for _, cs := range rec.cases {
			on, err := resolve(cs.on)
			if err != nil {
				return err
			}
			p.c.AddCase(made[i], on, cs.dest)
		}
		for _, inc := range rec.incoming {
			v, err := resolve(inc.val)
			if err != nil {
				return err
			}
			p.c.AddIncoming(made[i], v, inc.pred)
		}
	}
	return nil
}

func blockLabel(line string) (string, bool) {
	if strings.HasPrefix(line, " ") || !strings.HasSuffix(line, ":") {
		return "", false
	}
	return strings.TrimSuffix(line, ":"), true
}

func (p *parser) blockRef(s *scanner, blocks map[string]native.BlockRef) (native.BlockRef, error) {
	if err := s.expect("label"); err != nil {
		return native.NoBlock, err
	}
	if err := s.expect("%"); err != nil {
		return native.NoBlock, err
	}
	name, err := s.word()
	if err != nil {
		return native.NoBlock, err
	}
	b, ok := blocks[name]
	if !ok {
		return native.NoBlock, s.errorf("unknown block %%%s", name)
	}
	return b, nil
}

// parseOperand reads "type value". Constants and symbols resolve on the
// spot; locals come back unresolved for the caller to patch in.
func (p *parser) parseOperand(s *scanner) (opExpr, error) {
	t, err := p.parseType(s)
	if err != nil {
		return opExpr{}, err
	}
	return p.parseValueOf(s, t)
}

func (p *parser) parseValueOf(s *scanner, t native.TypeRef) (opExpr, error) {
	op := opExpr{ty: t, line: s.line}
	switch {
	case s.accept("%"):
		name, err := s.word()
		if err != nil {
			return opExpr{}, err
		}
		op.local = "%" + name
	case s.accept("@"):
		name, err := s.word()
		if err != nil {
			return opExpr{}, err
		}
		if g := p.c.NamedGlobal(p.m, name); g != native.NoValue {
			op.ref = g
		} else if f := p.c.NamedFunction(p.m, name); f != native.NoValue {
			op.ref = f
		} else {
			return opExpr{}, s.errorf("unknown symbol @%s", name)
		}
	case s.accept(`c"`):
		payload, err := s.stringLit()
		if err != nil {
			return opExpr{}, err
		}
		op.ref = p.c.ConstString(payload, true)
	case s.accept("undef"):
		op.ref = p.c.Undef(t)
	case s.accept("true"):
		op.ref = p.c.ConstInt(t, 1)
	case s.accept("false"):
		op.ref = p.c.ConstInt(t, 0)
	case s.accept("{"):
		elems, err := p.constList(s, "}")
		if err != nil {
			return opExpr{}, err
		}
		op.ref = p.c.ConstStruct(elems, p.c.StructPacked(t))
	case s.accept("<"):
		elems, err := p.constList(s, ">")
		if err != nil {
			return opExpr{}, err
		}
		op.ref = p.c.ConstVector(elems)
	default:
		lit, err := s.number()
		if err != nil {
			return opExpr{}, err
		}
		switch p.c.Kind(t) {
		case native.KindInteger:
			n, perr := strconv.ParseUint(lit, 10, 64)
			if perr != nil {
				return opExpr{}, s.errorf("bad integer constant %q", lit)
			}
			op.ref = p.c.ConstInt(t, n)
		case native.KindHalf, native.KindFloat, native.KindDouble:
			fv, perr := strconv.ParseFloat(lit, 64)
			if perr != nil {
				return opExpr{}, s.errorf("bad float constant %q", lit)
			}
			op.ref = p.c.ConstFloat(t, fv)
		default:
			return opExpr{}, s.errorf("constant %q needs a scalar type", lit)
		}
	}
	return op, nil
}

func (p *parser) constList(s *scanner, closer string) ([]native.ValueRef, error) {
	var elems []native.ValueRef
	if s.accept(closer) {
		return elems, nil
	}
	for {
		op, err := p.parseOperand(s)
		if err != nil {
			return nil, err
		}
		if op.ref == native.NoValue {
			return nil, s.errorf("aggregate members must be constants")
		}
		elems = append(elems, op.ref)
		if s.accept(",") {
			continue
		}
		break
	}
	if err := s.expect(closer); err != nil {
		return nil, err
	}
	return elems, nil
}
