package forge

import (
	"fmt"

	"forge/internal/exec"
	"forge/internal/native"
)

// JitOptions configures an execution engine. OptLevel is recorded for
// the engine's lifetime; evaluation itself does not optimize.
type JitOptions struct {
	OptLevel int
}

// GenericValue is a scalar produced or consumed by the execution
// engine.
type GenericValue = exec.Value

// GenericInt wraps an integer for engine calls.
func GenericInt(v uint64) GenericValue { return exec.IntValue(v) }

// GenericFloat wraps a float for engine calls.
func GenericFloat(v float64) GenericValue { return exec.FloatValue(v) }

// HostFunc is a host-side implementation the engine dispatches to when
// a declared function is called.
type HostFunc = exec.HostFunc

// JitEngine evaluates functions of one module in-process.
type JitEngine struct {
	m      *Module
	interp *exec.Interp
	opts   JitOptions
}

// NewJitEngine builds an engine over the module. The module is verified
// first; a module that fails verification never reaches execution.
func NewJitEngine(m *Module, opts JitOptions) (*JitEngine, error) {
	if err := m.Verify(); err != nil {
		return nil, fmt.Errorf("jit: %w", err)
	}
	return &JitEngine{m: m, interp: exec.New(m.c, m.m), opts: opts}, nil
}

// OptLevel returns the recorded optimization level.
func (e *JitEngine) OptLevel() int { return e.opts.OptLevel }

// RunFunction evaluates f with the arguments and returns its result;
// void functions return the zero GenericValue.
func (e *JitEngine) RunFunction(f Function, args []GenericValue) (GenericValue, error) {
	return e.interp.Call(f.v, args)
}

// FunctionOf looks a function up by name and returns a closure calling
// it through the engine; absence is not an error.
func (e *JitEngine) FunctionOf(name string) (func(args ...GenericValue) (GenericValue, error), bool) {
	f := e.m.c.NamedFunction(e.m.m, name)
	if f == native.NoValue {
		return nil, false
	}
	return func(args ...GenericValue) (GenericValue, error) {
		return e.interp.Call(f, args)
	}, true
}

// AddGlobalMapping routes calls of the (typically declared) function to
// a host implementation.
func (e *JitEngine) AddGlobalMapping(f Function, host HostFunc) {
	e.interp.Bind(f.v, host)
}
