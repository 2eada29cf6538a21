package interp

import "sync"

type ValueKind int

const (
	KindNil ValueKind = iota
	KindBool
	KindInt
	KindString
	KindArray
	KindObject
)

type Value struct {
	kind ValueKind
	data any
}

// Object is an instance of a Module. Instance variables may be touched from
// several call stacks, so they are guarded.
type Object struct {
	module *Module
	mu     sync.RWMutex
	ivars  map[string]Value
}

func NewNil() Value            { return Value{kind: KindNil} }
func NewBool(b bool) Value     { return Value{kind: KindBool, data: b} }
func NewInt(i int64) Value     { return Value{kind: KindInt, data: i} }
func NewString(s string) Value { return Value{kind: KindString, data: s} }
func NewArray(a []Value) Value { return Value{kind: KindArray, data: a} }

func NewObject(mod *Module) Value {
	return Value{kind: KindObject, data: &Object{module: mod, ivars: make(map[string]Value)}}
}

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) IsNil() bool { return v.kind == KindNil }

func (v Value) Bool() bool {
	if v.kind == KindBool {
		return v.data.(bool)
	}
	return false
}

func (v Value) Int() int64 {
	if v.kind == KindInt {
		return v.data.(int64)
	}
	return 0
}

func (v Value) Array() []Value {
	if v.kind != KindArray {
		return nil
	}
	return v.data.([]Value)
}

func (v Value) Object() *Object {
	if v.kind != KindObject {
		return nil
	}
	return v.data.(*Object)
}

// Module returns the module the object was instantiated from.
func (o *Object) Module() *Module { return o.module }

func (o *Object) Ivar(name string) Value {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if val, ok := o.ivars[name]; ok {
		return val
	}
	return NewNil()
}

func (o *Object) SetIvar(name string, val Value) {
	o.mu.Lock()
	o.ivars[name] = val
	o.mu.Unlock()
}
