package interp

import (
	"bytes"
	"testing"
)

type engineCall struct {
	self  Value
	impl  *Module
	name  string
	args  []Value
	block *Block

	frames    int
	scopes    int
	backtrace []BacktraceElement
	scope     *DynamicScope
}

// recordingEngine captures what the stack looked like while the body ran
// and then returns result, err.
type recordingEngine struct {
	calls  []engineCall
	result Value
	err    error
}

func (e *recordingEngine) Interpret(stack *CallStack, body *ExecutableBody, self Value, impl *Module, name string, args []Value, block *Block) (Value, error) {
	e.calls = append(e.calls, engineCall{
		self:      self,
		impl:      impl,
		name:      name,
		args:      append([]Value(nil), args...),
		block:     block,
		frames:    stack.FrameDepth(),
		scopes:    stack.ScopeDepth(),
		backtrace: stack.Backtrace(),
		scope:     stack.CurrentScope(),
	})
	return e.result, e.err
}

func newTestRuntime(t *testing.T, cfg Config) (*Runtime, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	if cfg.Output == nil {
		cfg.Output = &out
	}
	rt, err := NewRuntime(cfg)
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	return rt, &out
}

func loadTestProgram(t *testing.T, rt *Runtime, src string) *Program {
	t.Helper()
	prog, err := rt.LoadProgram([]byte(src), "test.yaml")
	if err != nil {
		t.Fatalf("load program: %v", err)
	}
	return prog
}

// callMain instantiates module and calls method on it from a fresh stack,
// checking that the stack unwinds completely.
func callMain(t *testing.T, rt *Runtime, module, method string, args ...Value) (Value, error) {
	t.Helper()
	stack := rt.NewCallStack()
	self, err := rt.Instantiate(stack, module, nil)
	if err != nil {
		t.Fatalf("instantiate %s: %v", module, err)
	}
	val, err := rt.Call(stack, self, method, args, nil)
	assertUnwound(t, stack)
	return val, err
}

func assertUnwound(t *testing.T, stack *CallStack) {
	t.Helper()
	if stack.FrameDepth() != 0 || stack.ScopeDepth() != 0 || stack.BacktraceDepth() != 0 {
		t.Fatalf("stack not unwound: frames=%d scopes=%d backtrace=%d",
			stack.FrameDepth(), stack.ScopeDepth(), stack.BacktraceDepth())
	}
}

func constNode(line int, v Value) *Const { return &Const{Pos: Pos{Line: line}, Value: v} }
