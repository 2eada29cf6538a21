package interp

func (op binOp) String() string {
	for sym, o := range binOps {
		if o == op {
			return sym
		}
	}
	return "?"
}

func binary(stack *CallStack, op binOp, left, right Value) (Value, error) {
	switch op {
	case opEq:
		return NewBool(left.Equal(right)), nil
	case opNe:
		return NewBool(!left.Equal(right)), nil
	}

	switch left.Kind() {
	case KindInt:
		if right.Kind() != KindInt {
			return NewNil(), coercionError(stack, right, "Integer")
		}
		return intBinary(stack, op, left.Int(), right.Int())
	case KindString:
		if right.Kind() != KindString {
			return NewNil(), coercionError(stack, right, "String")
		}
		return stringBinary(stack, op, left.String(), right.String())
	case KindArray:
		if op != opAdd {
			break
		}
		if right.Kind() != KindArray {
			return NewNil(), coercionError(stack, right, "Array")
		}
		a, b := left.Array(), right.Array()
		out := make([]Value, 0, len(a)+len(b))
		out = append(out, a...)
		out = append(out, b...)
		return NewArray(out), nil
	}
	return NewNil(), newRaisedError(stack, ErrClassNoMethod, "undefined method '%s' for %s", op, left.ClassName())
}

func coercionError(stack *CallStack, v Value, into string) error {
	if v.IsNil() {
		return newRaisedError(stack, ErrClassType, "nil can't be coerced into %s", into)
	}
	return newRaisedError(stack, ErrClassType, "%s can't be coerced into %s", v.ClassName(), into)
}

func intBinary(stack *CallStack, op binOp, a, b int64) (Value, error) {
	switch op {
	case opAdd:
		return NewInt(a + b), nil
	case opSub:
		return NewInt(a - b), nil
	case opMul:
		return NewInt(a * b), nil
	case opDiv:
		if b == 0 {
			return NewNil(), newRaisedError(stack, ErrClassZeroDiv, "divided by 0")
		}
		return NewInt(floorDiv(a, b)), nil
	case opMod:
		if b == 0 {
			return NewNil(), newRaisedError(stack, ErrClassZeroDiv, "divided by 0")
		}
		return NewInt(a - floorDiv(a, b)*b), nil
	case opLt:
		return NewBool(a < b), nil
	case opLe:
		return NewBool(a <= b), nil
	case opGt:
		return NewBool(a > b), nil
	case opGe:
		return NewBool(a >= b), nil
	}
	return NewNil(), newRaisedError(stack, ErrClassNoMethod, "undefined method '%s' for Integer", op)
}

// floorDiv rounds toward negative infinity, so -7 / 2 is -4.
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func stringBinary(stack *CallStack, op binOp, a, b string) (Value, error) {
	switch op {
	case opAdd:
		return NewString(a + b), nil
	case opLt:
		return NewBool(a < b), nil
	case opLe:
		return NewBool(a <= b), nil
	case opGt:
		return NewBool(a > b), nil
	case opGe:
		return NewBool(a >= b), nil
	}
	return NewNil(), newRaisedError(stack, ErrClassNoMethod, "undefined method '%s' for String", op)
}
