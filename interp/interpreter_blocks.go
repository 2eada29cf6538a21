package interp

import "errors"

// BlockFunc is a block implemented in Go, for hosts and tests that pass a
// block into interpreted code.
type BlockFunc func(stack *CallStack, args []Value) (Value, error)

// Block is a closure passed to a call. Interpreted blocks capture the scope
// they were created in and the method activation that created them.
type Block struct {
	fn     BlockFunc
	code   *compiledBlock
	scope  *DynamicScope
	home   *activation
	interp *Interpreter
}

func NewBlock(fn BlockFunc) *Block { return &Block{fn: fn} }

// Call runs the block with args. Missing parameters are nil and surplus
// arguments are dropped.
func (b *Block) Call(stack *CallStack, args ...Value) (Value, error) {
	if b.fn != nil {
		return b.fn(stack, args)
	}
	return b.interp.callBlock(stack, b, args)
}

func (in *Interpreter) callBlock(stack *CallStack, b *Block, args []Value) (Value, error) {
	scope := NewDynamicScope(b.code.scope, b.scope)
	for i := 0; i < b.code.params && i < len(args); i++ {
		scope.Set(0, i, args[i])
	}
	home := b.home
	frame := stack.enterBlock(home.name, home.file, scope)
	defer frame.release()

	act := &activation{
		stack:   stack,
		self:    home.self,
		impl:    home.impl,
		name:    home.name,
		file:    home.file,
		args:    args,
		block:   home.block,
		scope:   scope,
		home:    home,
		running: b,
	}
	return in.evalSeq(act, b.code.body)
}

func (in *Interpreter) evalCall(act *activation, n *callInstr) (Value, error) {
	recv := act.self
	if n.recv != nil {
		val, err := in.eval(act, n.recv)
		if err != nil {
			return NewNil(), err
		}
		recv = val
	}
	args, err := in.evalAll(act, n.args)
	if err != nil {
		return NewNil(), err
	}

	var block *Block
	switch {
	case n.block != nil:
		block = &Block{code: n.block, scope: act.scope, home: act.home, interp: in}
	case n.passBlock:
		block = act.block
	}

	act.stack.SetLine(n.ln)
	method, err := in.lookup(act, n, recv)
	if err != nil {
		return NewNil(), err
	}
	val, err := method.Invoke(act.stack, recv, n.name, args, block)
	if err != nil && n.block != nil {
		var brk *breakJump
		if errors.As(err, &brk) && brk.block == block {
			return brk.value, nil
		}
	}
	return val, err
}

// lookup resolves the method a call dispatches to and applies visibility:
// private methods need an implicit or self receiver, protected ones a
// caller whose self is a kind of the defining module.
func (in *Interpreter) lookup(act *activation, n *callInstr, recv Value) (Method, error) {
	mod := moduleFor(act.impl, recv)
	if mod == nil {
		return nil, newRaisedError(act.stack, ErrClassNoMethod, "undefined method '%s' for %s", n.name, describeReceiver(recv))
	}
	method, ok := mod.FindMethod(n.name)
	if !ok {
		return nil, newRaisedError(act.stack, ErrClassNoMethod, "undefined method '%s' for %s", n.name, describeReceiver(recv))
	}

	_, selfRecv := n.recv.(*selfInstr)
	explicit := n.recv != nil && !selfRecv
	switch method.Visibility() {
	case Private:
		if explicit {
			return nil, newRaisedError(act.stack, ErrClassNoMethod, "private method '%s' called for %s", n.name, describeReceiver(recv))
		}
	case Protected:
		if explicit {
			caller := moduleFor(act.impl, act.self)
			if caller == nil || !caller.IsKindOf(method.Module()) {
				return nil, newRaisedError(act.stack, ErrClassNoMethod, "protected method '%s' called for %s", n.name, describeReceiver(recv))
			}
		}
	}
	return method, nil
}

// moduleFor picks the module whose method table serves recv. Without a
// runtime only objects and the implementing module can be dispatched on.
func moduleFor(impl *Module, recv Value) *Module {
	if rt := runtimeOf(impl); rt != nil {
		return rt.ModuleFor(recv)
	}
	if obj := recv.Object(); obj != nil {
		return obj.Module()
	}
	return impl
}

func describeReceiver(v Value) string {
	switch v.Kind() {
	case KindNil:
		return "nil"
	case KindBool:
		return v.String()
	default:
		return "an instance of " + v.ClassName()
	}
}
