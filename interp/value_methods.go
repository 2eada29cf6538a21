package interp

import (
	"fmt"
	"strconv"
	"strings"
)

func (k ValueKind) String() string {
	switch k {
	case KindNil:
		return "nil"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ClassName is the name used in error messages for the value's type.
func (v Value) ClassName() string {
	switch v.kind {
	case KindNil:
		return "NilClass"
	case KindBool:
		if v.Bool() {
			return "TrueClass"
		}
		return "FalseClass"
	case KindInt:
		return "Integer"
	case KindString:
		return "String"
	case KindArray:
		return "Array"
	case KindObject:
		return v.Object().module.Name()
	default:
		return v.kind.String()
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.data.(string)
	case KindNil:
		return ""
	case KindBool:
		if v.Bool() {
			return "true"
		}
		return "false"
	case KindInt:
		return strconv.FormatInt(v.data.(int64), 10)
	case KindArray:
		elems := v.data.([]Value)
		parts := make([]string, len(elems))
		for i, e := range elems {
			parts[i] = e.Inspect()
		}
		return fmt.Sprintf("[%s]", strings.Join(parts, ", "))
	case KindObject:
		return fmt.Sprintf("#<%s>", v.Object().module.Name())
	default:
		return fmt.Sprintf("<%v>", v.kind)
	}
}

// Inspect renders the value the way a REPL echoes it.
func (v Value) Inspect() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindString:
		return strconv.Quote(v.data.(string))
	default:
		return v.String()
	}
}

func (v Value) Truthy() bool {
	switch v.kind {
	case KindNil:
		return false
	case KindBool:
		return v.Bool()
	default:
		return true
	}
}

func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNil:
		return true
	case KindBool:
		return v.Bool() == other.Bool()
	case KindInt:
		return v.data.(int64) == other.data.(int64)
	case KindString:
		return v.data.(string) == other.data.(string)
	case KindArray:
		a, b := v.Array(), other.Array()
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if !a[i].Equal(b[i]) {
				return false
			}
		}
		return true
	case KindObject:
		return v.Object() == other.Object()
	default:
		return false
	}
}
