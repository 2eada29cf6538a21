package interp

// Engine executes a materialized body. By the time Interpret runs, the
// caller has already pushed the backtrace entry, the frame and (when the
// body needs one) the dynamic scope, and it pops them whatever Interpret
// returns.
type Engine interface {
	Interpret(stack *CallStack, body *ExecutableBody, self Value, impl *Module, name string, args []Value, block *Block) (Value, error)
}

// EngineFunc adapts a function to the Engine interface.
type EngineFunc func(stack *CallStack, body *ExecutableBody, self Value, impl *Module, name string, args []Value, block *Block) (Value, error)

func (f EngineFunc) Interpret(stack *CallStack, body *ExecutableBody, self Value, impl *Module, name string, args []Value, block *Block) (Value, error) {
	return f(stack, body, self, impl, name, args, block)
}

var defaultInterpreter = NewInterpreter()
