package interp

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"
)

// DefaultMaxCallDepth bounds method nesting when Config leaves it unset.
const DefaultMaxCallDepth = 1024

// Config controls a Runtime.
type Config struct {
	Diagnostics DiagnosticsConfig
	// MaxCallDepth is the deepest method nesting before SystemStackError.
	// Zero selects DefaultMaxCallDepth.
	MaxCallDepth int
	Output       io.Writer
	Logger       *slog.Logger
}

// Runtime owns the module namespace and the core classes. It is safe for
// concurrent use; each goroutine runs on its own CallStack.
type Runtime struct {
	config  Config
	interp  *Interpreter
	object  *Module
	integer *Module
	str     *Module
	array   *Module

	mu      sync.RWMutex
	modules map[string]*Module

	outMu sync.Mutex
}

// NewRuntime constructs a Runtime with defaults applied and the core
// modules registered.
func NewRuntime(cfg Config) (*Runtime, error) {
	if cfg.MaxCallDepth < 0 {
		return nil, fmt.Errorf("interp: max call depth must not be negative (got %d)", cfg.MaxCallDepth)
	}
	if cfg.MaxCallDepth == 0 {
		cfg.MaxCallDepth = DefaultMaxCallDepth
	}
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Diagnostics.Logger == nil {
		cfg.Diagnostics.Logger = cfg.Logger
	}

	rt := &Runtime{
		config:  cfg,
		interp:  defaultInterpreter,
		modules: make(map[string]*Module),
	}
	rt.object = rt.register(NewModule("Object", nil))
	rt.integer = rt.register(NewModule("Integer", rt.object))
	rt.str = rt.register(NewModule("String", rt.object))
	rt.array = rt.register(NewModule("Array", rt.object))
	rt.defineCore()
	return rt, nil
}

// MustNewRuntime constructs a Runtime or panics if the config is invalid.
func MustNewRuntime(cfg Config) *Runtime {
	rt, err := NewRuntime(cfg)
	if err != nil {
		panic(err)
	}
	return rt
}

func (rt *Runtime) Config() Config           { return rt.config }
func (rt *Runtime) Engine() Engine           { return rt.interp }
func (rt *Runtime) ObjectModule() *Module    { return rt.object }
func (rt *Runtime) Logger() *slog.Logger     { return rt.config.Logger }
func (rt *Runtime) NewCallStack() *CallStack { return NewCallStack(rt.config.MaxCallDepth) }

func (rt *Runtime) register(mod *Module) *Module {
	mod.runtime = rt
	rt.modules[mod.name] = mod
	return mod
}

// DefineModule registers a new module. A nil superclass means Object.
func (rt *Runtime) DefineModule(name string, superclass *Module) (*Module, error) {
	if name == "" {
		return nil, errors.New("interp: module name is empty")
	}
	if superclass == nil {
		superclass = rt.object
	}
	if superclass.runtime != rt {
		return nil, fmt.Errorf("interp: superclass %s of %s belongs to another runtime", superclass.name, name)
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if _, exists := rt.modules[name]; exists {
		return nil, fmt.Errorf("interp: module %s already defined", name)
	}
	return rt.register(NewModule(name, superclass)), nil
}

func (rt *Runtime) Module(name string) (*Module, bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	mod, ok := rt.modules[name]
	return mod, ok
}

// Modules lists registered module names in sorted order.
func (rt *Runtime) Modules() []string {
	rt.mu.RLock()
	names := make([]string, 0, len(rt.modules))
	for name := range rt.modules {
		names = append(names, name)
	}
	rt.mu.RUnlock()
	sort.Strings(names)
	return names
}

// ModuleFor returns the module that dispatches calls on v.
func (rt *Runtime) ModuleFor(v Value) *Module {
	switch v.Kind() {
	case KindObject:
		return v.Object().Module()
	case KindInt:
		return rt.integer
	case KindString:
		return rt.str
	case KindArray:
		return rt.array
	default:
		return rt.object
	}
}

// NewDefinition builds a MethodDefinition run by this runtime's interpreter
// unless cfg names another engine.
func (rt *Runtime) NewDefinition(cfg DefinitionConfig) *MethodDefinition {
	if cfg.Engine == nil {
		cfg.Engine = rt.interp
	}
	return NewMethodDefinition(cfg)
}

// Instantiate creates an object of the named module and runs its
// initialize method, if any, with args.
func (rt *Runtime) Instantiate(stack *CallStack, module string, args []Value) (Value, error) {
	mod, ok := rt.Module(module)
	if !ok {
		return NewNil(), newRaisedError(stack, ErrClassName, "uninitialized constant %s", module)
	}
	obj := NewObject(mod)
	ctor, ok := mod.FindMethod("initialize")
	if !ok {
		if len(args) > 0 {
			return NewNil(), newRaisedError(stack, ErrClassArgument, "wrong number of arguments (given %d, expected 0)", len(args))
		}
		return obj, nil
	}
	if _, err := ctor.Invoke(stack, obj, "initialize", args, nil); err != nil {
		return NewNil(), err
	}
	return obj, nil
}

// Call sends name to recv from host code. Visibility is not checked, and a
// return or break that escapes its target comes back as LocalJumpError.
func (rt *Runtime) Call(stack *CallStack, recv Value, name string, args []Value, block *Block) (Value, error) {
	method, ok := rt.ModuleFor(recv).FindMethod(name)
	if !ok {
		return NewNil(), newRaisedError(stack, ErrClassNoMethod, "undefined method '%s' for %s", name, describeReceiver(recv))
	}
	val, err := method.Invoke(stack, recv, name, args, block)
	if err != nil {
		return NewNil(), localJumpFromLeak(stack, err)
	}
	return val, nil
}

func (rt *Runtime) write(s string) error {
	rt.outMu.Lock()
	defer rt.outMu.Unlock()
	_, err := io.WriteString(rt.config.Output, s)
	return err
}
