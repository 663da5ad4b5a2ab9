package native

import (
	"errors"
	"fmt"
	"slices"
)

// VerifyModule checks structural and semantic invariants of a module.
// All findings are accumulated and joined; nil means the module is well
// formed. Verification never panics on invalid IR.
func (c *Context) VerifyModule(m ModuleRef) error {
	mn := c.module(m)
	var errs []error
	for g := mn.firstGlobal; g != NoValue; g = c.values[g].next {
		if err := c.verifyGlobal(m, g); err != nil {
			errs = append(errs, fmt.Errorf("global @%s: %w", c.values[g].name, err))
		}
	}
	for f := mn.firstFunc; f != NoValue; f = c.values[f].next {
		if err := c.verifyFunction(m, f); err != nil {
			errs = append(errs, fmt.Errorf("function @%s: %w", c.values[f].name, err))
		}
	}
	return errors.Join(errs...)
}

func (c *Context) verifyGlobal(m ModuleRef, g ValueRef) error {
	gn := &c.values[g]
	if gn.init == NoValue {
		return nil
	}
	if !c.ValueAlive(gn.init) {
		return errors.New("initializer refers to a dead value")
	}
	want := c.types[gn.typ].elem
	if got := c.values[gn.init].typ; got != want {
		return fmt.Errorf("initializer type %s does not match pointee %s",
			c.TypeString(got), c.TypeString(want))
	}
	return nil
}

func (c *Context) verifyFunction(m ModuleRef, f ValueRef) error {
	fn := &c.values[f]
	preds := c.predecessors(f)
	var errs []error
	for i, b := range fn.blocks {
		bn := &c.blocks[b]
		label := bn.name
		if label == "" {
			label = fmt.Sprintf("block %d", i)
		}
		if len(bn.instrs) == 0 {
			errs = append(errs, fmt.Errorf("%s: empty block", label))
			continue
		}
		for j, ins := range bn.instrs {
			last := j == len(bn.instrs)-1
			in := &c.values[ins]
			if last && !in.op.IsTerminator() {
				errs = append(errs, fmt.Errorf("%s: unterminated block", label))
			}
			if !last && in.op.IsTerminator() {
				errs = append(errs, fmt.Errorf("%s: terminator in the middle of the block", label))
			}
			if err := c.verifyInstr(m, f, ins, preds); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", label, err))
			}
		}
	}
	return errors.Join(errs...)
}

// predecessors maps each block of f to the blocks whose terminators
// branch to it.
func (c *Context) predecessors(f ValueRef) map[BlockRef][]BlockRef {
	preds := make(map[BlockRef][]BlockRef)
	for _, b := range c.values[f].blocks {
		bn := &c.blocks[b]
		if len(bn.instrs) == 0 {
			continue
		}
		last := &c.values[bn.instrs[len(bn.instrs)-1]]
		if !last.op.IsTerminator() {
			continue
		}
		for _, cs := range last.cases {
			if cs.Dest != NoBlock && !slices.Contains(preds[cs.Dest], b) {
				preds[cs.Dest] = append(preds[cs.Dest], b)
			}
		}
	}
	return preds
}

func (c *Context) verifyInstr(m ModuleRef, f ValueRef, ins ValueRef, preds map[BlockRef][]BlockRef) error {
	in := &c.values[ins]
	var errs []error
	for _, op := range in.operands {
		if !c.ValueAlive(op) {
			errs = append(errs, fmt.Errorf("%s: operand refers to a dead value", in.op))
			continue
		}
		if owner := c.values[op].owner; owner != NoModule && owner != m {
			errs = append(errs, fmt.Errorf("%s: operand belongs to another module", in.op))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	blocks := c.values[f].blocks
	checkDest := func(b BlockRef) {
		if b == NoBlock {
			errs = append(errs, fmt.Errorf("%s: missing branch target", in.op))
			return
		}
		if int(b) >= len(c.blocks) || !slices.Contains(blocks, b) {
			errs = append(errs, fmt.Errorf("%s: branch target is not a block of this function", in.op))
		}
	}
	switch in.op {
	case OpRet:
		sig := c.types[c.values[f].typ].elem
		ret := c.types[sig].ret
		if len(in.operands) == 0 {
			if c.types[ret].kind != KindVoid {
				errs = append(errs, fmt.Errorf("ret void in a function returning %s", c.TypeString(ret)))
			}
		} else if got := c.values[in.operands[0]].typ; got != ret {
			errs = append(errs, fmt.Errorf("ret %s in a function returning %s",
				c.TypeString(got), c.TypeString(ret)))
		}
	case OpBr, OpCondBr, OpSwitch:
		for _, cs := range in.cases {
			checkDest(cs.Dest)
		}
	case OpPhi:
		if len(in.incoming) == 0 {
			errs = append(errs, errors.New("phi with no incoming values"))
		}
		for _, inc := range in.incoming {
			if !c.ValueAlive(inc.Value) {
				errs = append(errs, errors.New("phi incoming refers to a dead value"))
				continue
			}
			if got := c.values[inc.Value].typ; got != in.typ {
				errs = append(errs, fmt.Errorf("phi incoming type %s does not match %s",
					c.TypeString(got), c.TypeString(in.typ)))
			}
			checkDest(inc.Pred)
			if inc.Pred != NoBlock && slices.Contains(blocks, inc.Pred) &&
				!slices.Contains(preds[in.block], inc.Pred) {
				name := c.blocks[inc.Pred].name
				if name == "" {
					name = fmt.Sprintf("block %d", slices.Index(blocks, inc.Pred))
				}
				errs = append(errs, fmt.Errorf("phi incoming from %s which is not a predecessor", name))
			}
		}
	case OpCall:
		callee := in.operands[0]
		cn := &c.values[callee]
		if cn.kind != ValFunction {
			errs = append(errs, errors.New("call target is not a function"))
			break
		}
		sig := c.types[cn.typ].elem
		params := c.types[sig].params
		if len(in.operands)-1 != len(params) {
			errs = append(errs, fmt.Errorf("call to @%s with %d arguments, signature takes %d",
				cn.name, len(in.operands)-1, len(params)))
			break
		}
		for i, p := range params {
			if got := c.values[in.operands[i+1]].typ; got != p {
				errs = append(errs, fmt.Errorf("call to @%s: argument %d is %s, signature wants %s",
					cn.name, i, c.TypeString(got), c.TypeString(p)))
			}
		}
	case OpLoad:
		if c.types[c.values[in.operands[0]].typ].kind != KindPointer {
			errs = append(errs, errors.New("load from a non-pointer"))
		}
	case OpStore:
		ptr := c.values[in.operands[1]].typ
		if c.types[ptr].kind != KindPointer {
			errs = append(errs, errors.New("store to a non-pointer"))
		} else if elem := c.types[ptr].elem; elem != c.values[in.operands[0]].typ {
			errs = append(errs, fmt.Errorf("store of %s into %s",
				c.TypeString(c.values[in.operands[0]].typ), c.TypeString(ptr)))
		}
	case OpICmp, OpFCmp:
		if c.values[in.operands[0]].typ != c.values[in.operands[1]].typ {
			errs = append(errs, errors.New("comparison of mismatched types"))
		}
	}
	return errors.Join(errs...)
}
