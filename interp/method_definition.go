package interp

import (
	"sync"
	"sync/atomic"
)

// ScopeFlags describe what an invocation of a body needs from the scope stack.
type ScopeFlags uint8

const (
	// ScopeEliminated marks a body that keeps no variables in a dynamic
	// scope, so invoking it pushes none.
	ScopeEliminated ScopeFlags = 1 << iota
)

func (f ScopeFlags) Has(flag ScopeFlags) bool { return f&flag != 0 }

func (f ScopeFlags) String() string {
	if f.Has(ScopeEliminated) {
		return "[scope_eliminated]"
	}
	return "[]"
}

// DefinitionConfig is what the compiler front end hands over for one method.
type DefinitionConfig struct {
	Name       string
	SourceFile string
	Line       int
	Params     []string
	Rest       string
	Locals     []string
	Body       []Node
	Flags      ScopeFlags
	Engine     Engine
}

// MethodDefinition is the immutable, compiled-but-not-yet-executable
// description of a method body. It owns the canonical ExecutableBody cache:
// every CallableMethod bound to it observes the same published body.
type MethodDefinition struct {
	name   string
	file   string
	line   int
	params []string
	rest   string
	locals []string
	body   []Node
	flags  ScopeFlags
	scope  *StaticScope
	engine Engine

	buildMu sync.Mutex
	built   atomic.Pointer[ExecutableBody]
	builds  atomic.Int64
}

func NewMethodDefinition(cfg DefinitionConfig) *MethodDefinition {
	def := &MethodDefinition{
		name:   cfg.Name,
		file:   cfg.SourceFile,
		line:   cfg.Line,
		params: append([]string(nil), cfg.Params...),
		rest:   cfg.Rest,
		locals: append([]string(nil), cfg.Locals...),
		body:   append([]Node(nil), cfg.Body...),
		flags:  cfg.Flags,
		engine: cfg.Engine,
	}
	if def.engine == nil {
		def.engine = defaultInterpreter
	}
	if def.flags.Has(ScopeEliminated) {
		def.scope = NewStaticScope(MethodScope, nil)
	} else {
		names := append([]string(nil), def.params...)
		if def.rest != "" {
			names = append(names, def.rest)
		}
		names = append(names, def.locals...)
		def.scope = NewStaticScope(MethodScope, nil, names...)
	}
	return def
}

func (d *MethodDefinition) Name() string        { return d.name }
func (d *MethodDefinition) SourceFile() string  { return d.file }
func (d *MethodDefinition) Line() int           { return d.line }
func (d *MethodDefinition) Params() []string    { return append([]string(nil), d.params...) }
func (d *MethodDefinition) Rest() string        { return d.rest }
func (d *MethodDefinition) Flags() ScopeFlags   { return d.flags }
func (d *MethodDefinition) Scope() *StaticScope { return d.scope }
func (d *MethodDefinition) Body() []Node        { return d.body }
func (d *MethodDefinition) Engine() Engine      { return d.engine }
func (d *MethodDefinition) Locals() []string    { return append([]string(nil), d.locals...) }
func (d *MethodDefinition) Builds() int64       { return d.builds.Load() }
func (d *MethodDefinition) String() string      { return d.name }

// Cached returns the published body, if one has been built.
func (d *MethodDefinition) Cached() (*ExecutableBody, bool) {
	body := d.built.Load()
	return body, body != nil
}

// Materialize builds the executable body on first use and publishes it.
// Concurrent callers block on the build and all get the published value.
// A failed build publishes nothing.
func (d *MethodDefinition) Materialize() (*ExecutableBody, error) {
	if body := d.built.Load(); body != nil {
		return body, nil
	}
	d.buildMu.Lock()
	defer d.buildMu.Unlock()
	if body := d.built.Load(); body != nil {
		return body, nil
	}

	code, err := compileDefinition(d)
	if err != nil {
		return nil, &MaterializationError{Method: d.name, SourceFile: d.file, Err: err}
	}
	body := newExecutableBody(d, code)
	d.builds.Add(1)
	d.built.Store(body)
	return body, nil
}
