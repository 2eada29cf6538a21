package interp

import "fmt"

// NativeFunc implements a method in Go.
type NativeFunc func(stack *CallStack, self Value, args []Value, block *Block) (Value, error)

// NativeMethod is a Go-implemented method. It shows up in backtraces under
// nativeFile but pushes no frame or scope.
type NativeMethod struct {
	name       string
	module     *Module
	visibility Visibility
	arity      int
	fn         NativeFunc
}

const nativeFile = "<native>"

// NewNativeMethod wraps fn. A negative arity accepts any number of arguments.
func NewNativeMethod(module *Module, name string, visibility Visibility, arity int, fn NativeFunc) *NativeMethod {
	return &NativeMethod{name: name, module: module, visibility: visibility, arity: arity, fn: fn}
}

func (n *NativeMethod) Name() string           { return n.name }
func (n *NativeMethod) Module() *Module        { return n.module }
func (n *NativeMethod) Visibility() Visibility { return n.visibility }
func (n *NativeMethod) Arity() int             { return n.arity }

func (n *NativeMethod) Invoke(stack *CallStack, self Value, name string, args []Value, block *Block) (Value, error) {
	stack.PushBacktrace(name, nativeFile, 0)
	defer stack.PopBacktrace()
	if n.arity >= 0 && len(args) != n.arity {
		return NewNil(), newRaisedError(stack, ErrClassArgument, "wrong number of arguments (given %d, expected %d)", len(args), n.arity)
	}
	return n.fn(stack, self, args, block)
}

func (n *NativeMethod) String() string {
	return fmt.Sprintf("%s#%s", n.module.Name(), n.name)
}

// DefineNative adds a Go-implemented method to m.
func (m *Module) DefineNative(name string, visibility Visibility, arity int, fn NativeFunc) *NativeMethod {
	method := NewNativeMethod(m, name, visibility, arity, fn)
	m.AddMethod(name, method)
	return method
}
