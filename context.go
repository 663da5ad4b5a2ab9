package forge

import "forge/internal/native"

// Context is the root owner of every type, value and module created
// within it. It is an owned resource: dispose it exactly once, after the
// modules created in it are no longer needed.
type Context struct {
	raw *native.Context
}

// NewContext creates an empty context.
func NewContext() *Context {
	return &Context{raw: native.NewContext()}
}

// Dispose releases the context and everything it owns. Borrowed handles
// rooted in the context must not be used afterwards.
func (c *Context) Dispose() {
	c.raw.Dispose()
}

// VoidType returns the void type.
func (c *Context) VoidType() Type { return Type{c.raw, c.raw.VoidType()} }

// BoolType returns the type used for boolean constants, an 8-bit integer.
func (c *Context) BoolType() Type { return c.Int8Type() }

// Int8Type returns the 8-bit integer type.
func (c *Context) Int8Type() Type { return Type{c.raw, c.raw.IntType(8)} }

// Int16Type returns the 16-bit integer type.
func (c *Context) Int16Type() Type { return Type{c.raw, c.raw.IntType(16)} }

// Int32Type returns the 32-bit integer type.
func (c *Context) Int32Type() Type { return Type{c.raw, c.raw.IntType(32)} }

// Int64Type returns the 64-bit integer type.
func (c *Context) Int64Type() Type { return Type{c.raw, c.raw.IntType(64)} }

// Float32Type returns the 32-bit floating-point type.
func (c *Context) Float32Type() Type { return Type{c.raw, c.raw.FloatType()} }

// Float64Type returns the 64-bit floating-point type.
func (c *Context) Float64Type() Type { return Type{c.raw, c.raw.DoubleType()} }
