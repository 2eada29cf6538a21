package interp

// Fixed-arity entry points. They only shape the argument slice; all stack
// handling stays in Invoke.

func (m *CallableMethod) Call0(stack *CallStack, self Value, name string, block *Block) (Value, error) {
	return m.Invoke(stack, self, name, nil, block)
}

func (m *CallableMethod) Call1(stack *CallStack, self Value, name string, a0 Value, block *Block) (Value, error) {
	args := [1]Value{a0}
	return m.Invoke(stack, self, name, args[:], block)
}

func (m *CallableMethod) Call2(stack *CallStack, self Value, name string, a0, a1 Value, block *Block) (Value, error) {
	args := [2]Value{a0, a1}
	return m.Invoke(stack, self, name, args[:], block)
}

func (m *CallableMethod) Call3(stack *CallStack, self Value, name string, a0, a1, a2 Value, block *Block) (Value, error) {
	args := [3]Value{a0, a1, a2}
	return m.Invoke(stack, self, name, args[:], block)
}
