package interp

import (
	"fmt"
	"sort"
	"sync"
)

type Visibility int

const (
	Public Visibility = iota
	Protected
	Private
)

func (v Visibility) String() string {
	switch v {
	case Public:
		return "public"
	case Protected:
		return "protected"
	case Private:
		return "private"
	default:
		return fmt.Sprintf("visibility(%d)", int(v))
	}
}

func ParseVisibility(s string) (Visibility, error) {
	switch s {
	case "", "public":
		return Public, nil
	case "protected":
		return Protected, nil
	case "private":
		return Private, nil
	default:
		return Public, fmt.Errorf("unknown visibility %q", s)
	}
}

// Method is anything a module can dispatch a call to.
type Method interface {
	Invoke(stack *CallStack, self Value, name string, args []Value, block *Block) (Value, error)
	Visibility() Visibility
	Module() *Module
}

// Module is a named method table with single inheritance.
type Module struct {
	name       string
	superclass *Module
	runtime    *Runtime

	mu      sync.RWMutex
	methods map[string]Method
}

// NewModule creates a module that is not registered with any runtime.
func NewModule(name string, superclass *Module) *Module {
	return &Module{name: name, superclass: superclass, methods: make(map[string]Method)}
}

func (m *Module) Name() string        { return m.name }
func (m *Module) Superclass() *Module { return m.superclass }
func (m *Module) Runtime() *Runtime   { return m.runtime }

func (m *Module) diagnostics() DiagnosticsConfig {
	if m.runtime == nil {
		return DiagnosticsConfig{}
	}
	return m.runtime.config.Diagnostics
}

// DefineMethod binds def under its own name.
func (m *Module) DefineMethod(def *MethodDefinition, visibility Visibility) (*CallableMethod, error) {
	method, err := NewCallableMethod(def, visibility, m, m.diagnostics())
	if err != nil {
		return nil, err
	}
	m.AddMethod(def.Name(), method)
	return method, nil
}

func (m *Module) AddMethod(name string, method Method) {
	m.mu.Lock()
	m.methods[name] = method
	m.mu.Unlock()
}

// AliasMethod makes newName call what oldName calls now. Interpreted methods
// get a fresh binding to the same definition, so both names share one
// materialized body.
func (m *Module) AliasMethod(newName, oldName string) error {
	method, ok := m.FindMethod(oldName)
	if !ok {
		return fmt.Errorf("undefined method '%s' for module '%s'", oldName, m.name)
	}
	if callable, ok := method.(*CallableMethod); ok {
		rebound, err := NewCallableMethod(callable.Definition(), callable.Visibility(), m, m.diagnostics())
		if err != nil {
			return err
		}
		method = rebound
	}
	m.AddMethod(newName, method)
	return nil
}

// FindMethod looks name up in this module and then up the superclass chain.
func (m *Module) FindMethod(name string) (Method, bool) {
	for cur := m; cur != nil; cur = cur.superclass {
		cur.mu.RLock()
		method, ok := cur.methods[name]
		cur.mu.RUnlock()
		if ok {
			return method, true
		}
	}
	return nil, false
}

// MethodNames lists the methods defined directly on this module.
func (m *Module) MethodNames() []string {
	m.mu.RLock()
	names := make([]string, 0, len(m.methods))
	for name := range m.methods {
		names = append(names, name)
	}
	m.mu.RUnlock()
	sort.Strings(names)
	return names
}

func (m *Module) IsKindOf(other *Module) bool {
	for cur := m; cur != nil; cur = cur.superclass {
		if cur == other {
			return true
		}
	}
	return false
}
