package forge

import (
	"fmt"
	"os"
	"path/filepath"

	"forge/internal/bitcode"
	"forge/internal/exec"
	"forge/internal/irtext"
	"forge/internal/native"
)

// AddressSpace selects which memory a global lives in. Zero is the
// generic space; the rest follow the usual accelerator numbering.
type AddressSpace uint32

const (
	AddressSpaceGeneric AddressSpace = 0
	AddressSpaceGlobal  AddressSpace = 1
	AddressSpaceShared  AddressSpace = 3
	AddressSpaceConst   AddressSpace = 4
	AddressSpaceLocal   AddressSpace = 5
)

// Module is an owned collection of globals and functions. Dispose it
// exactly once; disposing the owning Context also releases it.
type Module struct {
	c *native.Context
	m native.ModuleRef
}

// NewModule creates an empty module in the context.
func NewModule(ctx *Context, name string) *Module {
	return &Module{c: ctx.raw, m: ctx.raw.CreateModule(name)}
}

// Dispose releases the module. Borrowed handles into it panic on use
// afterwards.
func (m *Module) Dispose() { m.c.DisposeModule(m.m) }

// Name returns the module's identifier.
func (m *Module) Name() string { return m.c.ModuleName(m.m) }

// Target returns the module's target triple, "" when unset.
func (m *Module) Target() string { return m.c.ModuleTarget(m.m) }

// SetTarget sets the module's target triple.
func (m *Module) SetTarget(triple string) { m.c.SetModuleTarget(m.m, triple) }

// DataLayout returns the module's data layout string, "" when unset.
func (m *Module) DataLayout() string { return m.c.ModuleDataLayout(m.m) }

// SetDataLayout sets the module's data layout string.
func (m *Module) SetDataLayout(layout string) { m.c.SetModuleDataLayout(m.m, layout) }

// String renders the whole module in its round-trippable text form.
func (m *Module) String() string { return m.c.ModuleString(m.m) }

// AddGlobal appends a global of the given pointee type in the generic
// address space.
func (m *Module) AddGlobal(ty Type, name string) GlobalValue {
	return m.AddGlobalInAddressSpace(ty, name, AddressSpaceGeneric)
}

// AddGlobalInAddressSpace appends a global of the given pointee type in
// the chosen address space.
func (m *Module) AddGlobalInAddressSpace(ty Type, name string, space AddressSpace) GlobalValue {
	g := m.c.AddGlobal(m.m, name, ty.t, uint32(space))
	return GlobalValue{Value{m.c, g}}
}

// AddGlobalConstant appends a global typed from the value and sets the
// value as its initializer.
func (m *Module) AddGlobalConstant(v Value, name string) GlobalValue {
	g := m.AddGlobal(v.Type(), name)
	g.SetInitializer(v)
	return g
}

// GetGlobal looks a global up by name; absence is not an error.
func (m *Module) GetGlobal(name string) (GlobalValue, bool) {
	g := m.c.NamedGlobal(m.m, name)
	if g == native.NoValue {
		return GlobalValue{}, false
	}
	return GlobalValue{Value{m.c, g}}, true
}

// AddFunction appends a function with the given signature. It starts
// with no body: append blocks to define it.
func (m *Module) AddFunction(name string, sig FunctionType) Function {
	return Function{Value{m.c, m.c.AddFunction(m.m, name, sig.t)}}
}

// GetFunction looks a function up by name; absence is not an error.
func (m *Module) GetFunction(name string) (Function, bool) {
	f := m.c.NamedFunction(m.m, name)
	if f == native.NoValue {
		return Function{}, false
	}
	return Function{Value{m.c, f}}, true
}

// GetType looks a named struct type up; absence is not an error.
func (m *Module) GetType(name string) (Type, bool) {
	t := m.c.NamedType(name)
	if t == native.NoType {
		return Type{}, false
	}
	return Type{m.c, t}, true
}

// Functions returns a fresh iterator over the module's functions.
func (m *Module) Functions() *ValueIter[Function] {
	return &ValueIter[Function]{
		c:    m.c,
		cur:  m.c.FirstFunction(m.m),
		step: (*native.Context).NextFunction,
		wrap: func(v Value) Function { return Function{v} },
	}
}

// Globals returns a fresh iterator over the module's globals.
func (m *Module) Globals() *ValueIter[GlobalValue] {
	return &ValueIter[GlobalValue]{
		c:    m.c,
		cur:  m.c.FirstGlobal(m.m),
		step: (*native.Context).NextGlobal,
		wrap: func(v Value) GlobalValue { return GlobalValue{v} },
	}
}

// Verify checks the module's structural invariants. The error, when
// non-nil, accumulates every finding; verification never aborts the
// process.
func (m *Module) Verify() error { return m.c.VerifyModule(m.m) }

// Link moves every symbol of src into m. When destroy is set, src is
// disposed after the move; otherwise it remains alive but empty.
// Duplicate symbol names and cross-context links are diagnostic errors.
func (m *Module) Link(src *Module, destroy bool) error {
	if src.c != m.c {
		return fmt.Errorf("link: modules belong to different contexts")
	}
	return m.c.LinkModules(m.m, src.m, destroy)
}

// Clone returns a deep, independent copy of the module.
func (m *Module) Clone() *Module {
	return &Module{c: m.c, m: m.c.CloneModule(m.m)}
}

// WriteBitcode serializes the module into the bitcode file at path.
func (m *Module) WriteBitcode(path string) error {
	return bitcode.WriteFile(m.c, m.m, path)
}

// Compile lowers the module to a native object file at path: the module
// is serialized to a temporary bitcode file and handed to the external
// object compiler.
func (m *Module) Compile(path string, optLevel int) error {
	return m.CompileWith(path, optLevel, "")
}

// CompileWith is Compile with an explicit object-compiler tool name.
func (m *Module) CompileWith(path string, optLevel int, tool string) error {
	tmp, err := os.CreateTemp("", filepath.Base(path)+"-*.bc")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)
	if err := bitcode.WriteFile(m.c, m.m, tmpPath); err != nil {
		return err
	}
	return exec.CompileObject(tmpPath, path, optLevel, tool)
}

// ParseBitcode loads the bitcode file at path as a new module in the
// context.
func ParseBitcode(ctx *Context, path string) (*Module, error) {
	m, err := bitcode.ReadFile(ctx.raw, path)
	if err != nil {
		return nil, err
	}
	return &Module{c: ctx.raw, m: m}, nil
}

// ParseBitcodeBuffer materializes a module from an in-memory bitcode
// buffer.
func ParseBitcodeBuffer(ctx *Context, buf *MemoryBuffer) (*Module, error) {
	m, err := bitcode.Read(ctx.raw, buf.raw.Bytes())
	if err != nil {
		return nil, err
	}
	return &Module{c: ctx.raw, m: m}, nil
}

// ParseIR loads the IR text file at path as a new module in the
// context. Errors carry the path and line number.
func ParseIR(ctx *Context, path string) (*Module, error) {
	m, err := irtext.ParseFile(ctx.raw, path)
	if err != nil {
		return nil, err
	}
	return &Module{c: ctx.raw, m: m}, nil
}

// ParseIRText parses IR text already in memory.
func ParseIRText(ctx *Context, src string) (*Module, error) {
	m, err := irtext.Parse(ctx.raw, src)
	if err != nil {
		return nil, err
	}
	return &Module{c: ctx.raw, m: m}, nil
}
