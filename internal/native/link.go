package native

import "fmt"

// LinkModules merges the contents of src into dst. Both modules must
// belong to this context. Duplicate symbol names are diagnostic failures;
// on success src is left empty and, when destroySource is set, disposed.
func (c *Context) LinkModules(dst, src ModuleRef, destroySource bool) error {
	dn := c.module(dst)
	sn := c.module(src)
	if dst == src {
		return fmt.Errorf("cannot link module '%s' into itself", dn.name)
	}
	for name := range sn.globalByName {
		if _, clash := dn.globalByName[name]; clash {
			return fmt.Errorf("linking globals named '%s': symbol multiply defined", name)
		}
	}
	for name := range sn.funcByName {
		if _, clash := dn.funcByName[name]; clash {
			return fmt.Errorf("linking functions named '%s': symbol multiply defined", name)
		}
	}

	// Ownership transfer: every value node of src now belongs to dst.
	for i := range c.values {
		if c.values[i].owner == src {
			c.values[i].owner = dst
		}
	}
	if sn.firstGlobal != NoValue {
		if dn.firstGlobal == NoValue {
			dn.firstGlobal = sn.firstGlobal
		} else {
			c.values[dn.lastGlobal].next = sn.firstGlobal
		}
		dn.lastGlobal = sn.lastGlobal
	}
	if sn.firstFunc != NoValue {
		if dn.firstFunc == NoValue {
			dn.firstFunc = sn.firstFunc
		} else {
			c.values[dn.lastFunc].next = sn.firstFunc
		}
		dn.lastFunc = sn.lastFunc
	}
	for name, g := range sn.globalByName {
		dn.globalByName[name] = g
	}
	for name, f := range sn.funcByName {
		dn.funcByName[name] = f
	}
	sn.firstGlobal, sn.lastGlobal = NoValue, NoValue
	sn.firstFunc, sn.lastFunc = NoValue, NoValue
	sn.globalByName = make(map[string]ValueRef)
	sn.funcByName = make(map[string]ValueRef)

	if destroySource {
		c.DisposeModule(src)
	}
	return nil
}

// cloneFunctionBody copies blocks and instructions from src into the
// already-created dst function, remapping handles through remap. The
// value remap is shared across the whole module clone so cross-function
// references keep pointing at the cloned module.
func (c *Context) cloneFunctionBody(src, dst ValueRef, remap map[ValueRef]ValueRef) {
	srcParams := append([]ValueRef(nil), c.values[src].params...)
	dstParams := c.values[dst].params
	for i, a := range srcParams {
		remap[a] = dstParams[i]
		c.values[dstParams[i]].name = c.values[a].name
		c.values[dstParams[i]].attrs = c.values[a].attrs
	}
	blockMap := make(map[BlockRef]BlockRef)
	srcBlocks := append([]BlockRef(nil), c.values[src].blocks...)
	for _, b := range srcBlocks {
		blockMap[b] = c.AppendBlock(dst, c.blocks[b].name)
	}
	// First pass: materialize instruction nodes so forward references
	// (phi incoming, mutual calls) have something to remap to.
	var created []ValueRef
	for _, b := range srcBlocks {
		instrs := append([]ValueRef(nil), c.blocks[b].instrs...)
		for _, ins := range instrs {
			in := c.values[ins]
			nv := c.addValue(valueNode{
				kind:     ValInstr,
				typ:      in.typ,
				name:     in.name,
				owner:    c.values[dst].owner,
				op:       in.op,
				operands: append([]ValueRef(nil), in.operands...),
				block:    blockMap[b],
				ipred:    in.ipred,
				rpred:    in.rpred,
				cases:    append([]SwitchCase(nil), in.cases...),
				incoming: append([]PhiIncoming(nil), in.incoming...),
				tail:     in.tail,
				allocTy:  in.allocTy,
				aggIndex: in.aggIndex,
			})
			c.blocks[blockMap[b]].instrs = append(c.blocks[blockMap[b]].instrs, nv)
			remap[ins] = nv
			created = append(created, nv)
		}
	}
	for _, nv := range created {
		in := &c.values[nv]
		for i, op := range in.operands {
			in.operands[i] = remapValue(remap, op)
		}
		for i := range in.cases {
			in.cases[i].On = remapValue(remap, in.cases[i].On)
			if nb, ok := blockMap[in.cases[i].Dest]; ok {
				in.cases[i].Dest = nb
			}
		}
		for i := range in.incoming {
			in.incoming[i].Value = remapValue(remap, in.incoming[i].Value)
			if nb, ok := blockMap[in.incoming[i].Pred]; ok {
				in.incoming[i].Pred = nb
			}
		}
	}
}
