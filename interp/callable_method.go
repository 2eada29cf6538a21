package interp

import "sync/atomic"

// CallableMethod binds a MethodDefinition to the module that implements it
// and runs it through the interpreter on every call.
type CallableMethod struct {
	def        *MethodDefinition
	visibility Visibility
	module     *Module
	diag       DiagnosticsConfig
	body       atomic.Pointer[ExecutableBody]
}

// NewCallableMethod binds def. With eager diagnostics the body is built
// here, and a build failure is returned instead of surfacing on first call.
func NewCallableMethod(def *MethodDefinition, visibility Visibility, module *Module, diag DiagnosticsConfig) (*CallableMethod, error) {
	m := &CallableMethod{def: def, visibility: visibility, module: module, diag: diag}
	if diag.eager() {
		if _, err := m.EnsureReady(); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *CallableMethod) Definition() *MethodDefinition { return m.def }
func (m *CallableMethod) Visibility() Visibility        { return m.visibility }
func (m *CallableMethod) Module() *Module               { return m.module }

// EnsureReady returns the published body, building it on first use. Every
// caller, racing or not, gets the definition's canonical body, and
// diagnostics are emitted once per CallableMethod.
func (m *CallableMethod) EnsureReady() (*ExecutableBody, error) {
	return m.ensureReady(nil)
}

// ensureReady is EnsureReady on behalf of stack, which is nil when no call
// is in progress.
func (m *CallableMethod) ensureReady(stack *CallStack) (*ExecutableBody, error) {
	if body := m.body.Load(); body != nil {
		return body, nil
	}
	body, err := m.def.Materialize()
	if err != nil {
		return nil, err
	}
	if m.body.CompareAndSwap(nil, body) {
		m.diag.logMaterialized(m.def, stack)
	}
	return m.body.Load(), nil
}

// Invoke runs the method for self. args may be empty and block may be nil.
// The backtrace entry, frame and scope pushed here are popped on every exit,
// including errors and panics raised by the engine.
func (m *CallableMethod) Invoke(stack *CallStack, self Value, name string, args []Value, block *Block) (Value, error) {
	body, err := m.ensureReady(stack)
	if err != nil {
		return NewNil(), err
	}
	frame, err := stack.enterMethod(body, m.module, name, self, block)
	if err != nil {
		return NewNil(), err
	}
	defer frame.release()

	return body.Engine().Interpret(stack, body, self, m.module, name, args, block)
}
