package forge

import "forge/internal/native"

// BasicBlock is a straight-line instruction sequence within a function,
// normally ending in a terminator. It is a borrowed reference.
type BasicBlock struct {
	c *native.Context
	b native.BlockRef
}

// Name returns the block's label.
func (b BasicBlock) Name() string { return b.c.BlockName(b.b) }

// Parent returns the function containing the block.
func (b BasicBlock) Parent() Function {
	return Function{Value{b.c, b.c.BlockParent(b.b)}}
}

// First returns the block's first instruction; absence means the block
// is empty.
func (b BasicBlock) First() (Value, bool) {
	instrs := b.c.BlockInstrs(b.b)
	if len(instrs) == 0 {
		return Value{}, false
	}
	return Value{b.c, instrs[0]}, true
}

// Last returns the block's last instruction; absence means the block is
// empty.
func (b BasicBlock) Last() (Value, bool) {
	instrs := b.c.BlockInstrs(b.b)
	if len(instrs) == 0 {
		return Value{}, false
	}
	return Value{b.c, instrs[len(instrs)-1]}, true
}

// IsNil reports whether the reference is the zero BasicBlock.
func (b BasicBlock) IsNil() bool { return b.c == nil }
