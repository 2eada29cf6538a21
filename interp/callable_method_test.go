package interp

import (
	"errors"
	"strings"
	"testing"
)

func newStubMethod(t *testing.T, engine Engine, flags ScopeFlags) *CallableMethod {
	t.Helper()
	def := NewMethodDefinition(DefinitionConfig{
		Name:       "foo",
		SourceFile: "demo.rb",
		Line:       3,
		Flags:      flags,
		Engine:     engine,
	})
	method, err := NewCallableMethod(def, Public, NewModule("Demo", nil), DiagnosticsConfig{})
	if err != nil {
		t.Fatalf("new callable method: %v", err)
	}
	return method
}

func TestInvokeFooReturnsEngineResult(t *testing.T) {
	engine := &recordingEngine{result: NewInt(42)}
	method := newStubMethod(t, engine, 0)
	stack := NewCallStack(0)
	stack.SetLine(7)
	self := NewObject(method.Module())

	val, err := method.Invoke(stack, self, "foo", nil, nil)
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if val.Kind() != KindInt || val.Int() != 42 {
		t.Fatalf("unexpected result: %v", val.Inspect())
	}
	assertUnwound(t, stack)

	if len(engine.calls) != 1 {
		t.Fatalf("expected one engine call, got %d", len(engine.calls))
	}
	call := engine.calls[0]
	if !call.self.Equal(self) || call.name != "foo" || len(call.args) != 0 || call.block != nil {
		t.Fatalf("unexpected engine call: %+v", call)
	}
	if call.impl != method.Module() {
		t.Fatalf("engine got impl %v, want %v", call.impl, method.Module())
	}
	if call.frames != 1 || call.scopes != 1 {
		t.Fatalf("expected one frame and one scope during call, got frames=%d scopes=%d", call.frames, call.scopes)
	}
	want := BacktraceElement{Method: "foo", File: "demo.rb", Line: 7}
	if len(call.backtrace) != 1 || call.backtrace[0] != want {
		t.Fatalf("unexpected backtrace during call: %+v", call.backtrace)
	}

	stats := stack.Stats()
	if stats.FramePushes != 1 || stats.ScopePushes != 1 || stats.BacktracePushes != 1 {
		t.Fatalf("unexpected push counts: %+v", stats)
	}
}

func TestInvokeRestoresDepthsAfterLeakyEngine(t *testing.T) {
	leaky := EngineFunc(func(stack *CallStack, body *ExecutableBody, self Value, impl *Module, name string, args []Value, block *Block) (Value, error) {
		stack.PushBacktrace("leaked", "leak.rb", 1)
		stack.PushFrame(Frame{Name: "leaked"})
		stack.PushScope(NewDynamicScope(body.Scope(), nil))
		return NewNil(), NewRaisedError(stack, ErrClassRuntime, "left entries behind")
	})
	method := newStubMethod(t, leaky, 0)
	stack := NewCallStack(0)
	stack.PushBacktrace("outer", "main.rb", 2)

	if _, err := method.Invoke(stack, NewNil(), "foo", nil, nil); err == nil {
		t.Fatalf("expected the engine error")
	}
	if stack.FrameDepth() != 0 || stack.ScopeDepth() != 0 || stack.BacktraceDepth() != 1 {
		t.Fatalf("stack not restored: frames=%d scopes=%d backtrace=%d",
			stack.FrameDepth(), stack.ScopeDepth(), stack.BacktraceDepth())
	}
	if bt := stack.Backtrace(); bt[0].Method != "outer" {
		t.Fatalf("caller entry lost: %+v", bt)
	}
	if n := stack.Stats().Rebalances; n != 1 {
		t.Fatalf("expected one rebalance, got %d", n)
	}

	balanced := newStubMethod(t, &recordingEngine{result: NewInt(1)}, 0)
	if _, err := balanced.Invoke(stack, NewNil(), "foo", nil, nil); err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if n := stack.Stats().Rebalances; n != 1 {
		t.Fatalf("balanced call counted as rebalance: %d", n)
	}
}

func TestInvokeRestoresDepthsAfterOverPop(t *testing.T) {
	popper := EngineFunc(func(stack *CallStack, body *ExecutableBody, self Value, impl *Module, name string, args []Value, block *Block) (Value, error) {
		stack.PopScope()
		stack.PopFrame()
		return NewNil(), nil
	})
	method := newStubMethod(t, popper, 0)
	stack := NewCallStack(0)
	if _, err := method.Invoke(stack, NewNil(), "foo", nil, nil); err != nil {
		t.Fatalf("invoke: %v", err)
	}
	assertUnwound(t, stack)
	if n := stack.Stats().Rebalances; n != 1 {
		t.Fatalf("expected one rebalance, got %d", n)
	}
}

func TestInvokeUnwindsWhenEngineRaises(t *testing.T) {
	stack := NewCallStack(0)
	raised := NewRaisedError(stack, ErrClassZeroDiv, "divided by 0")
	method := newStubMethod(t, &recordingEngine{err: raised}, 0)

	_, err := method.Invoke(stack, NewNil(), "foo", nil, nil)
	if !errors.Is(err, raised) {
		t.Fatalf("expected the engine error back, got %v", err)
	}
	var re *RaisedError
	if !errors.As(err, &re) || re.Class != ErrClassZeroDiv {
		t.Fatalf("expected ZeroDivisionError, got %v", err)
	}
	assertUnwound(t, stack)
}

func TestInvokeUnwindsWhenEnginePanics(t *testing.T) {
	engine := EngineFunc(func(*CallStack, *ExecutableBody, Value, *Module, string, []Value, *Block) (Value, error) {
		panic("engine exploded")
	})
	method := newStubMethod(t, engine, 0)
	stack := NewCallStack(0)

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Fatalf("expected panic to propagate")
			}
		}()
		_, _ = method.Invoke(stack, NewNil(), "foo", nil, nil)
	}()
	assertUnwound(t, stack)
}

func TestInvokeSkipsScopeForEliminatedBody(t *testing.T) {
	engine := &recordingEngine{result: NewNil()}
	method := newStubMethod(t, engine, ScopeEliminated)
	stack := NewCallStack(0)

	if _, err := method.Invoke(stack, NewNil(), "foo", nil, nil); err != nil {
		t.Fatalf("invoke: %v", err)
	}
	call := engine.calls[0]
	if call.frames != 1 || call.scopes != 0 || call.scope != nil {
		t.Fatalf("expected a frame and no scope, got frames=%d scopes=%d", call.frames, call.scopes)
	}
	if stack.Stats().ScopePushes != 0 {
		t.Fatalf("scope pushed for eliminated body: %+v", stack.Stats())
	}
	assertUnwound(t, stack)
}

func TestInvokeGivesEngineFreshScopeOfBodyShape(t *testing.T) {
	engine := &recordingEngine{result: NewNil()}
	def := NewMethodDefinition(DefinitionConfig{
		Name:   "shape",
		Params: []string{"a", "b"},
		Locals: []string{"tmp"},
		Engine: engine,
	})
	method, err := NewCallableMethod(def, Public, NewModule("Demo", nil), DiagnosticsConfig{})
	if err != nil {
		t.Fatalf("new callable method: %v", err)
	}
	stack := NewCallStack(0)
	if _, err := method.Call2(stack, NewNil(), "shape", NewInt(1), NewInt(2), nil); err != nil {
		t.Fatalf("call2: %v", err)
	}
	scope := engine.calls[0].scope
	if scope == nil || scope.Static() != def.Scope() || scope.Static().NumSlots() != 3 {
		t.Fatalf("unexpected scope handed to engine: %+v", scope)
	}
}

func TestInvokeReportsMaterializationErrorBeforePushing(t *testing.T) {
	engine := &recordingEngine{result: NewNil()}
	def := NewMethodDefinition(DefinitionConfig{
		Name:       "broken",
		SourceFile: "broken.rb",
		Body:       []Node{&LocalGet{Pos: Pos{Line: 2}, Name: "missing"}},
		Engine:     engine,
	})
	method, err := NewCallableMethod(def, Public, NewModule("Demo", nil), DiagnosticsConfig{})
	if err != nil {
		t.Fatalf("lazy definition should not fail: %v", err)
	}
	stack := NewCallStack(0)

	_, err = method.Invoke(stack, NewNil(), "broken", nil, nil)
	if !errors.Is(err, ErrMaterialization) {
		t.Fatalf("expected materialization error, got %v", err)
	}
	var me *MaterializationError
	if !errors.As(err, &me) || me.Method != "broken" || me.SourceFile != "broken.rb" {
		t.Fatalf("unexpected error: %#v", err)
	}
	if !strings.Contains(err.Error(), `undefined local variable "missing"`) {
		t.Fatalf("unexpected message: %v", err)
	}
	if len(engine.calls) != 0 {
		t.Fatalf("engine ran despite build failure")
	}
	stats := stack.Stats()
	if stats != (StackStats{}) {
		t.Fatalf("stack touched before build succeeded: %+v", stats)
	}
	if _, ok := def.Cached(); ok {
		t.Fatalf("failed build must not be cached")
	}

	if _, err := method.Invoke(stack, NewNil(), "broken", nil, nil); !errors.Is(err, ErrMaterialization) {
		t.Fatalf("expected build to be retried and fail again, got %v", err)
	}
}

func TestEagerDefinitionFailsAtConstruction(t *testing.T) {
	def := NewMethodDefinition(DefinitionConfig{
		Name: "broken",
		Body: []Node{&Break{Pos: Pos{Line: 1}}},
	})
	_, err := NewCallableMethod(def, Public, NewModule("Demo", nil), DiagnosticsConfig{EagerMaterialize: true})
	if !errors.Is(err, ErrMaterialization) {
		t.Fatalf("expected eager materialization error, got %v", err)
	}
}

func TestArityEntryPointsMatchInvoke(t *testing.T) {
	a, b, c := NewInt(1), NewString("two"), NewBool(true)
	block := NewBlock(func(*CallStack, []Value) (Value, error) { return NewNil(), nil })

	cases := []struct {
		name string
		call func(m *CallableMethod, stack *CallStack) (Value, error)
		want []Value
	}{
		{"call0", func(m *CallableMethod, s *CallStack) (Value, error) { return m.Call0(s, NewNil(), "foo", block) }, nil},
		{"call1", func(m *CallableMethod, s *CallStack) (Value, error) { return m.Call1(s, NewNil(), "foo", a, block) }, []Value{a}},
		{"call2", func(m *CallableMethod, s *CallStack) (Value, error) { return m.Call2(s, NewNil(), "foo", a, b, block) }, []Value{a, b}},
		{"call3", func(m *CallableMethod, s *CallStack) (Value, error) { return m.Call3(s, NewNil(), "foo", a, b, c, block) }, []Value{a, b, c}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			viaArity := &recordingEngine{result: NewInt(9)}
			viaInvoke := &recordingEngine{result: NewInt(9)}
			arityStack, invokeStack := NewCallStack(0), NewCallStack(0)

			got, err := tc.call(newStubMethod(t, viaArity, 0), arityStack)
			if err != nil {
				t.Fatalf("%s: %v", tc.name, err)
			}
			want, err := newStubMethod(t, viaInvoke, 0).Invoke(invokeStack, NewNil(), "foo", tc.want, block)
			if err != nil {
				t.Fatalf("invoke: %v", err)
			}
			if !got.Equal(want) {
				t.Fatalf("result %v != %v", got.Inspect(), want.Inspect())
			}

			ac, ic := viaArity.calls[0], viaInvoke.calls[0]
			if len(ac.args) != len(ic.args) {
				t.Fatalf("arg count %d != %d", len(ac.args), len(ic.args))
			}
			for i := range ac.args {
				if !ac.args[i].Equal(ic.args[i]) {
					t.Fatalf("arg %d: %v != %v", i, ac.args[i].Inspect(), ic.args[i].Inspect())
				}
			}
			if ac.block != block || ic.block != block {
				t.Fatalf("block not forwarded")
			}
			if arityStack.Stats() != invokeStack.Stats() {
				t.Fatalf("stack effects differ: %+v vs %+v", arityStack.Stats(), invokeStack.Stats())
			}
		})
	}
}

func TestRecursiveInvokePushesIndependentEntries(t *testing.T) {
	var method *CallableMethod
	var depths []int
	engine := EngineFunc(func(stack *CallStack, body *ExecutableBody, self Value, impl *Module, name string, args []Value, block *Block) (Value, error) {
		depths = append(depths, stack.FrameDepth())
		n := args[0].Int()
		if n == 0 {
			return NewInt(0), nil
		}
		return method.Call1(stack, self, name, NewInt(n-1), block)
	})
	method = newStubMethod(t, engine, 0)
	stack := NewCallStack(0)

	if _, err := method.Call1(stack, NewNil(), "foo", NewInt(3), nil); err != nil {
		t.Fatalf("call: %v", err)
	}
	if len(depths) != 4 || depths[0] != 1 || depths[3] != 4 {
		t.Fatalf("unexpected nesting: %v", depths)
	}
	if stack.Stats().FramePushes != 4 || stack.Stats().ScopePushes != 4 {
		t.Fatalf("unexpected pushes: %+v", stack.Stats())
	}
	assertUnwound(t, stack)
}

func TestInvokeDepthLimitRaisesBeforePushing(t *testing.T) {
	var method *CallableMethod
	engine := EngineFunc(func(stack *CallStack, body *ExecutableBody, self Value, impl *Module, name string, args []Value, block *Block) (Value, error) {
		return method.Call0(stack, self, name, block)
	})
	method = newStubMethod(t, engine, 0)
	stack := NewCallStack(5)

	_, err := method.Call0(stack, NewNil(), "foo", nil)
	var re *RaisedError
	if !errors.As(err, &re) || re.Class != ErrClassSystemStack {
		t.Fatalf("expected SystemStackError, got %v", err)
	}
	if len(re.Backtrace) != 5 {
		t.Fatalf("expected 5 backtrace entries, got %d", len(re.Backtrace))
	}
	if stack.Stats().FramePushes != 5 {
		t.Fatalf("expected 5 frame pushes, got %+v", stack.Stats())
	}
	assertUnwound(t, stack)
}
