package native

// TypeRef identifies a type node inside a Context. Types are owned by the
// Context and are never destroyed independently.
type TypeRef uint32

// ValueRef identifies a value node inside a Context.
type ValueRef uint32

// BlockRef identifies a basic block node inside a Context.
type BlockRef uint32

// ModuleRef identifies a module slot inside a Context.
type ModuleRef uint32

// Zero handles mark absence. Index 0 of every arena is reserved.
const (
	NoType   TypeRef   = 0
	NoValue  ValueRef  = 0
	NoBlock  BlockRef  = 0
	NoModule ModuleRef = 0
)

// Context is the root owner of all IR state. It is not safe for
// concurrent mutation; callers serialize access externally.
type Context struct {
	disposed bool

	types     []typeNode
	typeIndex map[typeKey]TypeRef
	named     map[string]TypeRef

	values  []valueNode
	blocks  []blockNode
	modules []moduleNode
}

type moduleNode struct {
	alive  bool
	name   string
	target string
	layout string

	firstFunc ValueRef
	lastFunc  ValueRef
	funcByName map[string]ValueRef

	firstGlobal ValueRef
	lastGlobal  ValueRef
	globalByName map[string]ValueRef
}

// NewContext creates an empty context with arena slot 0 reserved as the
// invalid sentinel in every store.
func NewContext() *Context {
	ctx := &Context{
		typeIndex: make(map[typeKey]TypeRef, 64),
		named:     make(map[string]TypeRef),
	}
	ctx.types = append(ctx.types, typeNode{})
	ctx.values = append(ctx.values, valueNode{})
	ctx.blocks = append(ctx.blocks, blockNode{})
	ctx.modules = append(ctx.modules, moduleNode{})
	return ctx
}

// Dispose releases the context. Any later dereference of a handle rooted
// in it panics.
func (c *Context) Dispose() {
	if c.disposed {
		panic("native: context disposed twice")
	}
	c.disposed = true
}

// Disposed reports whether the context has been released.
func (c *Context) Disposed() bool { return c.disposed }

func (c *Context) checkAlive() {
	if c.disposed {
		panic("native: use of disposed context")
	}
}

// CreateModule allocates a module slot with the given name.
func (c *Context) CreateModule(name string) ModuleRef {
	c.checkAlive()
	c.modules = append(c.modules, moduleNode{
		alive:        true,
		name:         name,
		funcByName:   make(map[string]ValueRef),
		globalByName: make(map[string]ValueRef),
	})
	return ModuleRef(len(c.modules) - 1)
}

// DisposeModule releases a module slot. Values owned by the module stay in
// the arena but become dead: dereferencing them panics.
func (c *Context) DisposeModule(m ModuleRef) {
	c.checkAlive()
	mn := c.module(m)
	mn.alive = false
}

// ModuleAlive reports whether the module slot is still live.
func (c *Context) ModuleAlive(m ModuleRef) bool {
	if c.disposed {
		return false
	}
	if m == NoModule || int(m) >= len(c.modules) {
		return false
	}
	return c.modules[m].alive
}

func (c *Context) module(m ModuleRef) *moduleNode {
	c.checkAlive()
	if m == NoModule || int(m) >= len(c.modules) {
		panic("native: invalid module handle")
	}
	mn := &c.modules[m]
	if !mn.alive {
		panic("native: use of disposed module")
	}
	return mn
}

// ModuleName returns the name the module was created with.
func (c *Context) ModuleName(m ModuleRef) string { return c.module(m).name }

// ModuleTarget returns the target triple string of the module.
func (c *Context) ModuleTarget(m ModuleRef) string { return c.module(m).target }

// SetModuleTarget sets the target triple string of the module.
func (c *Context) SetModuleTarget(m ModuleRef, target string) {
	c.module(m).target = target
}

// ModuleDataLayout returns the data layout string of the module.
func (c *Context) ModuleDataLayout(m ModuleRef) string { return c.module(m).layout }

// SetModuleDataLayout sets the data layout string of the module.
func (c *Context) SetModuleDataLayout(m ModuleRef, layout string) {
	c.module(m).layout = layout
}

// NamedType returns the named struct type registered under name, or NoType.
func (c *Context) NamedType(name string) TypeRef {
	c.checkAlive()
	return c.named[name]
}

// CloneModule deep-copies a module, its globals and its functions into a
// fresh module slot of the same context.
func (c *Context) CloneModule(m ModuleRef) ModuleRef {
	src := *c.module(m) // copy: CreateModule below grows the arena
	dst := c.CreateModule(src.name)
	c.modules[dst].target = src.target
	c.modules[dst].layout = src.layout
	remap := make(map[ValueRef]ValueRef)
	for g := src.firstGlobal; g != NoValue; g = c.values[g].next {
		gn := c.values[g]
		ng := c.AddGlobal(dst, gn.name, c.types[gn.typ].elem, c.types[gn.typ].addrSpace)
		remap[g] = ng
	}
	for f := src.firstFunc; f != NoValue; f = c.values[f].next {
		fn := c.values[f]
		nf := c.AddFunction(dst, fn.name, c.types[fn.typ].elem)
		c.values[nf].attrs = fn.attrs
		remap[f] = nf
	}
	for f := src.firstFunc; f != NoValue; f = c.values[f].next {
		c.cloneFunctionBody(f, remap[f], remap)
	}
	for g := src.firstGlobal; g != NoValue; g = c.values[g].next {
		if init := c.values[g].init; init != NoValue {
			c.SetInitializer(remap[g], remapValue(remap, init))
		}
	}
	return dst
}

func remapValue(remap map[ValueRef]ValueRef, v ValueRef) ValueRef {
	if nv, ok := remap[v]; ok {
		return nv
	}
	return v
}
