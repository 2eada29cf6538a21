package interp

// Node is one element of a method body's IR tree as produced by the compiler
// front end. Nodes are immutable once handed to NewMethodDefinition.
type Node interface {
	SourceLine() int
}

type Pos struct {
	Line int
}

func (p Pos) SourceLine() int { return p.Line }

type Const struct {
	Pos
	Value Value
}

type SelfRef struct {
	Pos
}

// ArgRef reads a positional argument of the running method directly, without
// going through a scope slot.
type ArgRef struct {
	Pos
	Index int
}

type LocalGet struct {
	Pos
	Name string
}

type LocalSet struct {
	Pos
	Name  string
	Value Node
}

type IvarGet struct {
	Pos
	Name string
}

type IvarSet struct {
	Pos
	Name  string
	Value Node
}

type BinaryOp struct {
	Pos
	Op    string
	Left  Node
	Right Node
}

type Not struct {
	Pos
	Operand Node
}

type ArrayLit struct {
	Pos
	Elems []Node
}

type If struct {
	Pos
	Cond Node
	Then []Node
	Else []Node
}

type While struct {
	Pos
	Cond Node
	Body []Node
}

// Call invokes Name on Receiver, or on self when Receiver is nil. Block and
// PassBlock are mutually exclusive.
type Call struct {
	Pos
	Receiver  Node
	Name      string
	Args      []Node
	Block     *BlockLiteral
	PassBlock bool
}

type BlockLiteral struct {
	Pos
	Params []string
	Locals []string
	Body   []Node
}

type Yield struct {
	Pos
	Args []Node
}

type BlockGiven struct {
	Pos
}

type Return struct {
	Pos
	Value Node
}

// Break leaves the innermost enclosing while loop. Outside any loop of the
// current block it ends the call that passed the block.
type Break struct {
	Pos
	Value Node
}

type Raise struct {
	Pos
	Class   string
	Message Node
}

type RescueClause struct {
	Classes []string
	Bind    string
	Body    []Node
}

type Begin struct {
	Pos
	Body    []Node
	Rescues []RescueClause
	Ensure  []Node
}

type New struct {
	Pos
	Module string
	Args   []Node
}
