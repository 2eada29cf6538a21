package interp

import "strings"

func (rt *Runtime) defineCore() {
	rt.object.DefineNative("puts", Private, -1, rt.nativePuts)
	rt.object.DefineNative("p", Private, -1, rt.nativeP)
	rt.object.DefineNative("inspect", Public, 0, func(_ *CallStack, self Value, _ []Value, _ *Block) (Value, error) {
		return NewString(self.Inspect()), nil
	})
	rt.object.DefineNative("to_s", Public, 0, func(_ *CallStack, self Value, _ []Value, _ *Block) (Value, error) {
		return NewString(self.String()), nil
	})
	rt.object.DefineNative("class", Public, 0, func(_ *CallStack, self Value, _ []Value, _ *Block) (Value, error) {
		return NewString(self.ClassName()), nil
	})
	rt.object.DefineNative("nil?", Public, 0, func(_ *CallStack, self Value, _ []Value, _ *Block) (Value, error) {
		return NewBool(self.IsNil()), nil
	})

	rt.integer.DefineNative("times", Public, 0, nativeTimes)
	rt.array.DefineNative("each", Public, 0, nativeEach)
	rt.array.DefineNative("size", Public, 0, func(_ *CallStack, self Value, _ []Value, _ *Block) (Value, error) {
		return NewInt(int64(len(self.Array()))), nil
	})
	rt.str.DefineNative("size", Public, 0, func(_ *CallStack, self Value, _ []Value, _ *Block) (Value, error) {
		return NewInt(int64(len([]rune(self.String())))), nil
	})
}

func (rt *Runtime) nativePuts(stack *CallStack, _ Value, args []Value, _ *Block) (Value, error) {
	var b strings.Builder
	if len(args) == 0 {
		b.WriteString("\n")
	}
	for _, arg := range args {
		writeLines(&b, arg)
	}
	if err := rt.write(b.String()); err != nil {
		return NewNil(), NewRaisedError(stack, "IOError", err.Error())
	}
	return NewNil(), nil
}

// writeLines prints arrays one element per line, the way puts flattens them.
func writeLines(b *strings.Builder, v Value) {
	if v.Kind() == KindArray {
		for _, el := range v.Array() {
			writeLines(b, el)
		}
		return
	}
	s := v.String()
	b.WriteString(s)
	if !strings.HasSuffix(s, "\n") {
		b.WriteString("\n")
	}
}

func (rt *Runtime) nativeP(stack *CallStack, _ Value, args []Value, _ *Block) (Value, error) {
	var b strings.Builder
	for _, arg := range args {
		b.WriteString(arg.Inspect())
		b.WriteString("\n")
	}
	if err := rt.write(b.String()); err != nil {
		return NewNil(), NewRaisedError(stack, "IOError", err.Error())
	}
	switch len(args) {
	case 0:
		return NewNil(), nil
	case 1:
		return args[0], nil
	default:
		return NewArray(append([]Value(nil), args...)), nil
	}
}

func nativeTimes(stack *CallStack, self Value, _ []Value, block *Block) (Value, error) {
	if block == nil {
		return NewNil(), newRaisedError(stack, ErrClassLocalJump, "no block given (yield)")
	}
	for i := int64(0); i < self.Int(); i++ {
		if _, err := block.Call(stack, NewInt(i)); err != nil {
			return NewNil(), err
		}
	}
	return self, nil
}

func nativeEach(stack *CallStack, self Value, _ []Value, block *Block) (Value, error) {
	if block == nil {
		return NewNil(), newRaisedError(stack, ErrClassLocalJump, "no block given (yield)")
	}
	for _, el := range self.Array() {
		if _, err := block.Call(stack, el); err != nil {
			return NewNil(), err
		}
	}
	return self, nil
}
