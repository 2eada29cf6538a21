package interp

import (
	"errors"
	"fmt"
)

// Interpreter is the tree-walking Engine. It keeps no state of its own, so
// one value serves every runtime and goroutine.
type Interpreter struct{}

func NewInterpreter() *Interpreter { return &Interpreter{} }

// activation is the evaluation context of one method body or block body.
// Blocks get their own activation whose home points at the method that
// created them.
type activation struct {
	stack   *CallStack
	self    Value
	impl    *Module
	name    string
	file    string
	args    []Value
	block   *Block
	scope   *DynamicScope
	home    *activation
	running *Block
	done    bool
}

func (in *Interpreter) Interpret(stack *CallStack, body *ExecutableBody, self Value, impl *Module, name string, args []Value, block *Block) (Value, error) {
	code := body.Instructions()
	if code == nil {
		return NewNil(), fmt.Errorf("interpret %s: body has no instructions", name)
	}
	act := &activation{
		stack: stack,
		self:  self,
		impl:  impl,
		name:  name,
		file:  body.SourceFile(),
		args:  args,
		block: block,
	}
	act.home = act
	defer func() { act.done = true }()

	if body.NeedsNewScope() {
		act.scope = stack.CurrentScope()
		if act.scope == nil || act.scope.Static() != body.Scope() {
			return NewNil(), fmt.Errorf("interpret %s: no dynamic scope pushed for body", name)
		}
	}
	if err := in.bindArgs(act, code); err != nil {
		return NewNil(), err
	}

	val, err := in.evalSeq(act, code.code)
	if err != nil {
		var ret *nonLocalReturn
		if errors.As(err, &ret) && ret.home == act {
			return ret.value, nil
		}
		return NewNil(), err
	}
	return val, nil
}

func (in *Interpreter) bindArgs(act *activation, code *Instructions) error {
	given := len(act.args)
	if given < code.required || (!code.rest && given > code.required) {
		expected := fmt.Sprintf("%d", code.required)
		if code.rest {
			expected += "+"
		}
		return newRaisedError(act.stack, ErrClassArgument, "wrong number of arguments (given %d, expected %s)", given, expected)
	}
	if act.scope == nil {
		return nil
	}
	for i := 0; i < code.required; i++ {
		act.scope.Set(0, i, act.args[i])
	}
	if code.rest {
		rest := append([]Value(nil), act.args[code.required:]...)
		act.scope.Set(0, code.required, NewArray(rest))
	}
	return nil
}

func (in *Interpreter) evalSeq(act *activation, code []instr) (Value, error) {
	result := NewNil()
	for _, ins := range code {
		act.stack.SetLine(ins.line())
		val, err := in.eval(act, ins)
		if err != nil {
			return NewNil(), err
		}
		result = val
	}
	return result, nil
}

func (in *Interpreter) evalAll(act *activation, code []instr) ([]Value, error) {
	if len(code) == 0 {
		return nil, nil
	}
	out := make([]Value, len(code))
	for i, ins := range code {
		val, err := in.eval(act, ins)
		if err != nil {
			return nil, err
		}
		out[i] = val
	}
	return out, nil
}

func (in *Interpreter) eval(act *activation, ins instr) (Value, error) {
	switch n := ins.(type) {
	case *constInstr:
		return n.val, nil
	case *selfInstr:
		return act.self, nil
	case *argInstr:
		if n.index < len(act.home.args) {
			return act.home.args[n.index], nil
		}
		return NewNil(), nil
	case *localGetInstr:
		return act.scope.Get(n.depth, n.index), nil
	case *localSetInstr:
		val, err := in.eval(act, n.value)
		if err != nil {
			return NewNil(), err
		}
		act.scope.Set(n.depth, n.index, val)
		return val, nil
	case *ivarGetInstr:
		if obj := act.self.Object(); obj != nil {
			return obj.Ivar(n.name), nil
		}
		return NewNil(), nil
	case *ivarSetInstr:
		val, err := in.eval(act, n.value)
		if err != nil {
			return NewNil(), err
		}
		obj := act.self.Object()
		if obj == nil {
			return NewNil(), newRaisedError(act.stack, ErrClassType, "can't modify instance variable @%s of %s", n.name, act.self.ClassName())
		}
		obj.SetIvar(n.name, val)
		return val, nil
	case *binaryInstr:
		left, err := in.eval(act, n.left)
		if err != nil {
			return NewNil(), err
		}
		right, err := in.eval(act, n.right)
		if err != nil {
			return NewNil(), err
		}
		return binary(act.stack, n.op, left, right)
	case *notInstr:
		val, err := in.eval(act, n.operand)
		if err != nil {
			return NewNil(), err
		}
		return NewBool(!val.Truthy()), nil
	case *arrayInstr:
		elems, err := in.evalAll(act, n.elems)
		if err != nil {
			return NewNil(), err
		}
		if elems == nil {
			elems = []Value{}
		}
		return NewArray(elems), nil
	case *ifInstr:
		cond, err := in.eval(act, n.cond)
		if err != nil {
			return NewNil(), err
		}
		if cond.Truthy() {
			return in.evalSeq(act, n.then)
		}
		return in.evalSeq(act, n.els)
	case *whileInstr:
		for {
			cond, err := in.eval(act, n.cond)
			if err != nil {
				return NewNil(), err
			}
			if !cond.Truthy() {
				return NewNil(), nil
			}
			if _, err := in.evalSeq(act, n.body); err != nil {
				var brk *loopBreak
				if errors.As(err, &brk) {
					return brk.value, nil
				}
				return NewNil(), err
			}
		}
	case *callInstr:
		return in.evalCall(act, n)
	case *yieldInstr:
		if act.block == nil {
			return NewNil(), newRaisedError(act.stack, ErrClassLocalJump, "no block given (yield)")
		}
		args, err := in.evalAll(act, n.args)
		if err != nil {
			return NewNil(), err
		}
		return act.block.Call(act.stack, args...)
	case *blockGivenInstr:
		return NewBool(act.block != nil), nil
	case *returnInstr:
		val, err := in.evalOptional(act, n.value)
		if err != nil {
			return NewNil(), err
		}
		if act.home.done {
			return NewNil(), newRaisedError(act.stack, ErrClassLocalJump, "unexpected return")
		}
		return NewNil(), &nonLocalReturn{home: act.home, value: val}
	case *breakInstr:
		val, err := in.evalOptional(act, n.value)
		if err != nil {
			return NewNil(), err
		}
		if n.loop {
			return NewNil(), &loopBreak{value: val}
		}
		return NewNil(), &breakJump{block: act.running, value: val}
	case *raiseInstr:
		msg := n.class
		if n.msg != nil {
			val, err := in.eval(act, n.msg)
			if err != nil {
				return NewNil(), err
			}
			msg = val.String()
		}
		return NewNil(), newRaisedError(act.stack, n.class, "%s", msg)
	case *beginInstr:
		return in.evalBegin(act, n)
	case *newInstr:
		args, err := in.evalAll(act, n.args)
		if err != nil {
			return NewNil(), err
		}
		rt := runtimeOf(act.impl)
		if rt == nil {
			return NewNil(), newRaisedError(act.stack, ErrClassName, "uninitialized constant %s", n.module)
		}
		return rt.Instantiate(act.stack, n.module, args)
	default:
		return NewNil(), fmt.Errorf("interpret %s: unsupported instruction %T", act.name, ins)
	}
}

func (in *Interpreter) evalOptional(act *activation, ins instr) (Value, error) {
	if ins == nil {
		return NewNil(), nil
	}
	return in.eval(act, ins)
}

// evalBegin runs body, hands raised errors to the first matching rescue
// clause and always runs ensure. Control transfers (return, break) are not
// rescuable but still run ensure.
func (in *Interpreter) evalBegin(act *activation, n *beginInstr) (Value, error) {
	val, err := in.evalSeq(act, n.body)
	if err != nil {
		var raised *RaisedError
		if errors.As(err, &raised) {
			for _, rc := range n.rescues {
				if !rescueMatches(rc, raised) {
					continue
				}
				if rc.bind {
					act.scope.Set(rc.depth, rc.index, NewString(raised.Message))
				}
				val, err = in.evalSeq(act, rc.body)
				break
			}
		}
	}
	if len(n.ensure) > 0 {
		if _, ensureErr := in.evalSeq(act, n.ensure); ensureErr != nil {
			return NewNil(), ensureErr
		}
	}
	return val, err
}

func rescueMatches(rc compiledRescue, raised *RaisedError) bool {
	if len(rc.classes) == 0 {
		return raised.IsClass("StandardError")
	}
	for _, class := range rc.classes {
		if raised.IsClass(class) {
			return true
		}
	}
	return false
}

func runtimeOf(mod *Module) *Runtime {
	if mod == nil {
		return nil
	}
	return mod.runtime
}
