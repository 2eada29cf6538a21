package interp

import "strings"

type ScopeKind int

const (
	MethodScope ScopeKind = iota
	BlockScope
)

// StaticScope describes the shape of a lexical scope as the compiler laid it
// out: the variable slots it owns and the scope it is nested in.
type StaticScope struct {
	kind   ScopeKind
	names  []string
	parent *StaticScope
}

func NewStaticScope(kind ScopeKind, parent *StaticScope, names ...string) *StaticScope {
	seen := make(map[string]struct{}, len(names))
	unique := make([]string, 0, len(names))
	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		unique = append(unique, name)
	}
	return &StaticScope{kind: kind, names: unique, parent: parent}
}

func (s *StaticScope) Kind() ScopeKind      { return s.kind }
func (s *StaticScope) Parent() *StaticScope { return s.parent }
func (s *StaticScope) NumSlots() int        { return len(s.names) }
func (s *StaticScope) Names() []string      { return append([]string(nil), s.names...) }

// Resolve finds name in this scope or an enclosing one and returns how many
// parent links to follow and the slot index there.
func (s *StaticScope) Resolve(name string) (depth, index int, ok bool) {
	for cur := s; cur != nil; cur = cur.parent {
		for i, n := range cur.names {
			if n == name {
				return depth, i, true
			}
		}
		depth++
	}
	return 0, 0, false
}

func (s *StaticScope) String() string {
	var b strings.Builder
	for cur := s; cur != nil; cur = cur.parent {
		if cur != s {
			b.WriteString(" < ")
		}
		if cur.kind == BlockScope {
			b.WriteString("block")
		} else {
			b.WriteString("method")
		}
		b.WriteString("[")
		b.WriteString(strings.Join(cur.names, ", "))
		b.WriteString("]")
	}
	return b.String()
}

// DynamicScope holds the variable values of one activation of a StaticScope.
// The parent link is structural only; the scope does not own it.
type DynamicScope struct {
	static *StaticScope
	parent *DynamicScope
	slots  []Value
}

func NewDynamicScope(static *StaticScope, parent *DynamicScope) *DynamicScope {
	slots := make([]Value, static.NumSlots())
	for i := range slots {
		slots[i] = NewNil()
	}
	return &DynamicScope{static: static, parent: parent, slots: slots}
}

func (d *DynamicScope) Static() *StaticScope  { return d.static }
func (d *DynamicScope) Parent() *DynamicScope { return d.parent }

func (d *DynamicScope) at(depth int) *DynamicScope {
	cur := d
	for ; depth > 0 && cur != nil; depth-- {
		cur = cur.parent
	}
	return cur
}

func (d *DynamicScope) Get(depth, index int) Value {
	target := d.at(depth)
	if target == nil || index >= len(target.slots) {
		return NewNil()
	}
	return target.slots[index]
}

func (d *DynamicScope) Set(depth, index int, val Value) {
	target := d.at(depth)
	if target == nil || index >= len(target.slots) {
		return
	}
	target.slots[index] = val
}

// Lookup reads a variable by name, walking the parent chain.
func (d *DynamicScope) Lookup(name string) (Value, bool) {
	depth, index, ok := d.static.Resolve(name)
	if !ok || d.at(depth) == nil {
		return Value{}, false
	}
	return d.Get(depth, index), true
}
