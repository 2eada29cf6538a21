package interp

import (
	"errors"
	"fmt"
)

// Instructions is the resolved, executable form of a method body: locals are
// bound to scope slots and blocks carry their own static scopes.
type Instructions struct {
	code     []instr
	required int
	rest     bool
}

// Len reports the number of top-level statements.
func (in *Instructions) Len() int { return len(in.code) }

// Required is the number of mandatory positional parameters.
func (in *Instructions) Required() int { return in.required }

// HasRest reports whether surplus arguments are collected into an array.
func (in *Instructions) HasRest() bool { return in.rest }

type instr interface {
	line() int
}

type at struct{ ln int }

func (a at) line() int { return a.ln }

type constInstr struct {
	at
	val Value
}

type selfInstr struct{ at }

type argInstr struct {
	at
	index int
}

type localGetInstr struct {
	at
	name         string
	depth, index int
}

type localSetInstr struct {
	at
	name         string
	depth, index int
	value        instr
}

type ivarGetInstr struct {
	at
	name string
}

type ivarSetInstr struct {
	at
	name  string
	value instr
}

type binaryInstr struct {
	at
	op          binOp
	left, right instr
}

type notInstr struct {
	at
	operand instr
}

type arrayInstr struct {
	at
	elems []instr
}

type ifInstr struct {
	at
	cond      instr
	then, els []instr
}

type whileInstr struct {
	at
	cond instr
	body []instr
}

type callInstr struct {
	at
	recv      instr
	name      string
	args      []instr
	block     *compiledBlock
	passBlock bool
}

type compiledBlock struct {
	ln     int
	scope  *StaticScope
	params int
	body   []instr
}

type yieldInstr struct {
	at
	args []instr
}

type blockGivenInstr struct{ at }

type returnInstr struct {
	at
	value instr
}

// breakInstr leaves the innermost while loop when loop is set, otherwise
// the call that passed the enclosing block.
type breakInstr struct {
	at
	value instr
	loop  bool
}

type raiseInstr struct {
	at
	class string
	msg   instr
}

type compiledRescue struct {
	classes      []string
	bind         bool
	depth, index int
	body         []instr
}

type beginInstr struct {
	at
	body    []instr
	rescues []compiledRescue
	ensure  []instr
}

type newInstr struct {
	at
	module string
	args   []instr
}

type binOp int

const (
	opAdd binOp = iota
	opSub
	opMul
	opDiv
	opMod
	opLt
	opLe
	opGt
	opGe
	opEq
	opNe
)

var binOps = map[string]binOp{
	"+":  opAdd,
	"-":  opSub,
	"*":  opMul,
	"/":  opDiv,
	"%":  opMod,
	"<":  opLt,
	"<=": opLe,
	">":  opGt,
	">=": opGe,
	"==": opEq,
	"!=": opNe,
}

var (
	errScopeEliminated = errors.New("local variable access in a scope-eliminated body")
	errNilNode         = errors.New("nil node")
)

type compiler struct {
	def        *MethodDefinition
	scope      *StaticScope
	blockDepth int
	loopDepth  int
}

func compileDefinition(def *MethodDefinition) (*Instructions, error) {
	if def.name == "" {
		return nil, errors.New("method definition has no name")
	}
	seen := make(map[string]struct{}, len(def.params)+1)
	names := append([]string(nil), def.params...)
	if def.rest != "" {
		names = append(names, def.rest)
	}
	for _, p := range names {
		if _, dup := seen[p]; dup {
			return nil, fmt.Errorf("duplicate parameter %q", p)
		}
		seen[p] = struct{}{}
	}

	c := &compiler{def: def, scope: def.scope}
	code, err := c.compileSeq(def.body)
	if err != nil {
		return nil, err
	}
	return &Instructions{
		code:     code,
		required: len(def.params),
		rest:     def.rest != "",
	}, nil
}

func (c *compiler) compileSeq(nodes []Node) ([]instr, error) {
	out := make([]instr, 0, len(nodes))
	for _, n := range nodes {
		ins, err := c.compile(n)
		if err != nil {
			return nil, err
		}
		out = append(out, ins)
	}
	return out, nil
}

func (c *compiler) compileOptional(n Node) (instr, error) {
	if n == nil {
		return nil, nil
	}
	return c.compile(n)
}

func (c *compiler) resolve(line int, name string) (int, int, error) {
	if c.blockDepth == 0 && c.def.flags.Has(ScopeEliminated) {
		return 0, 0, fmt.Errorf("line %d: %q: %w", line, name, errScopeEliminated)
	}
	depth, index, ok := c.scope.Resolve(name)
	if !ok {
		return 0, 0, fmt.Errorf("line %d: undefined local variable %q", line, name)
	}
	if c.def.flags.Has(ScopeEliminated) && depth >= c.blockDepth {
		return 0, 0, fmt.Errorf("line %d: %q: %w", line, name, errScopeEliminated)
	}
	return depth, index, nil
}

func (c *compiler) compile(n Node) (instr, error) {
	if n == nil {
		return nil, errNilNode
	}
	ln := at{ln: n.SourceLine()}
	switch node := n.(type) {
	case *Const:
		return &constInstr{at: ln, val: node.Value}, nil
	case *SelfRef:
		return &selfInstr{at: ln}, nil
	case *ArgRef:
		if node.Index < 0 {
			return nil, fmt.Errorf("line %d: negative argument index %d", ln.ln, node.Index)
		}
		return &argInstr{at: ln, index: node.Index}, nil
	case *LocalGet:
		depth, index, err := c.resolve(ln.ln, node.Name)
		if err != nil {
			return nil, err
		}
		return &localGetInstr{at: ln, name: node.Name, depth: depth, index: index}, nil
	case *LocalSet:
		depth, index, err := c.resolve(ln.ln, node.Name)
		if err != nil {
			return nil, err
		}
		value, err := c.compile(node.Value)
		if err != nil {
			return nil, err
		}
		return &localSetInstr{at: ln, name: node.Name, depth: depth, index: index, value: value}, nil
	case *IvarGet:
		return &ivarGetInstr{at: ln, name: node.Name}, nil
	case *IvarSet:
		value, err := c.compile(node.Value)
		if err != nil {
			return nil, err
		}
		return &ivarSetInstr{at: ln, name: node.Name, value: value}, nil
	case *BinaryOp:
		op, ok := binOps[node.Op]
		if !ok {
			return nil, fmt.Errorf("line %d: unknown operator %q", ln.ln, node.Op)
		}
		left, err := c.compile(node.Left)
		if err != nil {
			return nil, err
		}
		right, err := c.compile(node.Right)
		if err != nil {
			return nil, err
		}
		return &binaryInstr{at: ln, op: op, left: left, right: right}, nil
	case *Not:
		operand, err := c.compile(node.Operand)
		if err != nil {
			return nil, err
		}
		return &notInstr{at: ln, operand: operand}, nil
	case *ArrayLit:
		elems, err := c.compileSeq(node.Elems)
		if err != nil {
			return nil, err
		}
		return &arrayInstr{at: ln, elems: elems}, nil
	case *If:
		cond, err := c.compile(node.Cond)
		if err != nil {
			return nil, err
		}
		then, err := c.compileSeq(node.Then)
		if err != nil {
			return nil, err
		}
		els, err := c.compileSeq(node.Else)
		if err != nil {
			return nil, err
		}
		return &ifInstr{at: ln, cond: cond, then: then, els: els}, nil
	case *While:
		cond, err := c.compile(node.Cond)
		if err != nil {
			return nil, err
		}
		c.loopDepth++
		body, err := c.compileSeq(node.Body)
		c.loopDepth--
		if err != nil {
			return nil, err
		}
		return &whileInstr{at: ln, cond: cond, body: body}, nil
	case *Call:
		return c.compileCall(ln, node)
	case *BlockLiteral:
		return nil, fmt.Errorf("line %d: block literal outside a call", ln.ln)
	case *Yield:
		args, err := c.compileSeq(node.Args)
		if err != nil {
			return nil, err
		}
		return &yieldInstr{at: ln, args: args}, nil
	case *BlockGiven:
		return &blockGivenInstr{at: ln}, nil
	case *Return:
		value, err := c.compileOptional(node.Value)
		if err != nil {
			return nil, err
		}
		return &returnInstr{at: ln, value: value}, nil
	case *Break:
		if c.loopDepth == 0 && c.blockDepth == 0 {
			return nil, fmt.Errorf("line %d: break outside a block or loop", ln.ln)
		}
		value, err := c.compileOptional(node.Value)
		if err != nil {
			return nil, err
		}
		return &breakInstr{at: ln, value: value, loop: c.loopDepth > 0}, nil
	case *Raise:
		msg, err := c.compileOptional(node.Message)
		if err != nil {
			return nil, err
		}
		class := node.Class
		if class == "" {
			class = ErrClassRuntime
		}
		return &raiseInstr{at: ln, class: class, msg: msg}, nil
	case *Begin:
		return c.compileBegin(ln, node)
	case *New:
		if node.Module == "" {
			return nil, fmt.Errorf("line %d: new without a module name", ln.ln)
		}
		args, err := c.compileSeq(node.Args)
		if err != nil {
			return nil, err
		}
		return &newInstr{at: ln, module: node.Module, args: args}, nil
	default:
		return nil, fmt.Errorf("line %d: unsupported node %T", ln.ln, n)
	}
}

func (c *compiler) compileCall(ln at, node *Call) (instr, error) {
	if node.Name == "" {
		return nil, fmt.Errorf("line %d: call without a method name", ln.ln)
	}
	if node.Block != nil && node.PassBlock {
		return nil, fmt.Errorf("line %d: call %q both passes a block literal and forwards the current block", ln.ln, node.Name)
	}
	recv, err := c.compileOptional(node.Receiver)
	if err != nil {
		return nil, err
	}
	args, err := c.compileSeq(node.Args)
	if err != nil {
		return nil, err
	}
	call := &callInstr{at: ln, recv: recv, name: node.Name, args: args, passBlock: node.PassBlock}
	if node.Block != nil {
		blk, err := c.compileBlock(node.Block)
		if err != nil {
			return nil, err
		}
		call.block = blk
	}
	return call, nil
}

func (c *compiler) compileBlock(lit *BlockLiteral) (*compiledBlock, error) {
	names := append(append([]string(nil), lit.Params...), lit.Locals...)
	scope := NewStaticScope(BlockScope, c.scope, names...)
	outer := c.scope
	loops := c.loopDepth
	c.scope = scope
	c.blockDepth++
	c.loopDepth = 0
	body, err := c.compileSeq(lit.Body)
	c.loopDepth = loops
	c.blockDepth--
	c.scope = outer
	if err != nil {
		return nil, err
	}
	return &compiledBlock{ln: lit.SourceLine(), scope: scope, params: len(lit.Params), body: body}, nil
}

func (c *compiler) compileBegin(ln at, node *Begin) (instr, error) {
	body, err := c.compileSeq(node.Body)
	if err != nil {
		return nil, err
	}
	rescues := make([]compiledRescue, 0, len(node.Rescues))
	for _, clause := range node.Rescues {
		rc := compiledRescue{classes: clause.Classes}
		if clause.Bind != "" {
			depth, index, err := c.resolve(ln.ln, clause.Bind)
			if err != nil {
				return nil, err
			}
			rc.bind, rc.depth, rc.index = true, depth, index
		}
		rc.body, err = c.compileSeq(clause.Body)
		if err != nil {
			return nil, err
		}
		rescues = append(rescues, rc)
	}
	ensure, err := c.compileSeq(node.Ensure)
	if err != nil {
		return nil, err
	}
	return &beginInstr{at: ln, body: body, rescues: rescues, ensure: ensure}, nil
}
