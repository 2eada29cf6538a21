package interp

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Program is the result of loading an IR program into a runtime.
type Program struct {
	File        string
	Modules     []*Module
	Definitions []*MethodDefinition
}

// Module returns a module declared by the program.
func (p *Program) Module(name string) (*Module, bool) {
	for _, mod := range p.Modules {
		if mod.Name() == name {
			return mod, true
		}
	}
	return nil, false
}

// LoadError points at the YAML node that could not be loaded.
type LoadError struct {
	File   string
	Line   int
	Column int
	Msg    string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Msg)
}

type programDoc struct {
	File    string      `yaml:"file"`
	Modules []moduleDoc `yaml:"modules"`
}

type moduleDoc struct {
	Name       string            `yaml:"name"`
	Superclass string            `yaml:"superclass"`
	Methods    []methodDoc       `yaml:"methods"`
	Aliases    map[string]string `yaml:"aliases"`
	node       *yaml.Node
}

func (m *moduleDoc) UnmarshalYAML(value *yaml.Node) error {
	type plain moduleDoc
	if err := value.Decode((*plain)(m)); err != nil {
		return err
	}
	m.node = value
	return nil
}

type methodDoc struct {
	Name       string    `yaml:"name"`
	Line       int       `yaml:"line"`
	Params     []string  `yaml:"params"`
	Rest       string    `yaml:"rest"`
	Locals     []string  `yaml:"locals"`
	Flags      []string  `yaml:"flags"`
	Visibility string    `yaml:"visibility"`
	Body       yaml.Node `yaml:"body"`
	node       *yaml.Node
}

func (m *methodDoc) UnmarshalYAML(value *yaml.Node) error {
	type plain methodDoc
	if err := value.Decode((*plain)(m)); err != nil {
		return err
	}
	m.node = value
	return nil
}

// LoadProgramFile reads and loads a YAML IR program from path.
func (rt *Runtime) LoadProgramFile(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read program: %w", err)
	}
	return rt.LoadProgram(data, path)
}

// LoadProgram decodes a YAML IR program, registers its modules and defines
// its methods. file names the program in errors and is the source file of
// every method unless the document sets its own.
func (rt *Runtime) LoadProgram(data []byte, file string) (*Program, error) {
	var doc programDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	source := file
	if doc.File != "" {
		source = doc.File
	}
	dec := &irDecoder{file: file}
	prog := &Program{File: source}

	for i := range doc.Modules {
		md := &doc.Modules[i]
		if md.Name == "" {
			return nil, dec.errorf(md.node, "module without a name")
		}
		var super *Module
		if md.Superclass != "" {
			var ok bool
			if super, ok = rt.Module(md.Superclass); !ok {
				return nil, dec.errorf(md.node, "module %s: unknown superclass %s", md.Name, md.Superclass)
			}
		}
		mod, ok := rt.Module(md.Name)
		if !ok {
			var err error
			if mod, err = rt.DefineModule(md.Name, super); err != nil {
				return nil, dec.errorf(md.node, "%v", err)
			}
		}
		prog.Modules = append(prog.Modules, mod)
	}

	for i := range doc.Modules {
		md := &doc.Modules[i]
		mod := prog.Modules[i]
		for j := range md.Methods {
			def, err := rt.loadMethod(dec, mod, source, &md.Methods[j])
			if err != nil {
				return nil, err
			}
			prog.Definitions = append(prog.Definitions, def)
		}
		aliases := make([]string, 0, len(md.Aliases))
		for name := range md.Aliases {
			aliases = append(aliases, name)
		}
		sort.Strings(aliases)
		for _, name := range aliases {
			if err := mod.AliasMethod(name, md.Aliases[name]); err != nil {
				return nil, dec.errorf(md.node, "%v", err)
			}
		}
	}
	return prog, nil
}

func (rt *Runtime) loadMethod(dec *irDecoder, mod *Module, source string, md *methodDoc) (*MethodDefinition, error) {
	if md.Name == "" {
		return nil, dec.errorf(md.node, "method without a name in module %s", mod.Name())
	}
	visibility, err := ParseVisibility(md.Visibility)
	if err != nil {
		return nil, dec.errorf(md.node, "method %s: %v", md.Name, err)
	}
	var flags ScopeFlags
	for _, f := range md.Flags {
		switch f {
		case "scope_eliminated":
			flags |= ScopeEliminated
		default:
			return nil, dec.errorf(md.node, "method %s: unknown flag %q", md.Name, f)
		}
	}
	body, err := dec.seq(&md.Body)
	if err != nil {
		return nil, err
	}
	line := md.Line
	if line == 0 {
		line = md.node.Line
	}
	def := rt.NewDefinition(DefinitionConfig{
		Name:       md.Name,
		SourceFile: source,
		Line:       line,
		Params:     md.Params,
		Rest:       md.Rest,
		Locals:     md.Locals,
		Body:       body,
		Flags:      flags,
	})
	if _, err := mod.DefineMethod(def, visibility); err != nil {
		return nil, err
	}
	return def, nil
}

var binaryKeys = map[string]string{
	"add": "+",
	"sub": "-",
	"mul": "*",
	"div": "/",
	"mod": "%",
	"lt":  "<",
	"le":  "<=",
	"gt":  ">",
	"ge":  ">=",
	"eq":  "==",
	"ne":  "!=",
}

// irDecoder turns YAML nodes into IR. Every operation is a single-key
// mapping such as {add: [1, 2]}, optionally with a line key; bare scalars
// are constants.
type irDecoder struct {
	file string
}

func (d *irDecoder) errorf(n *yaml.Node, format string, args ...any) error {
	err := &LoadError{File: d.file, Msg: fmt.Sprintf(format, args...)}
	if n != nil {
		err.Line, err.Column = n.Line, n.Column
	}
	return err
}

func isNull(n *yaml.Node) bool {
	return n == nil || n.Kind == 0 || (n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null")
}

func (d *irDecoder) seq(n *yaml.Node) ([]Node, error) {
	if isNull(n) {
		return nil, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, d.errorf(n, "expected a list of nodes")
	}
	out := make([]Node, 0, len(n.Content))
	for _, item := range n.Content {
		node, err := d.node(item)
		if err != nil {
			return nil, err
		}
		out = append(out, node)
	}
	return out, nil
}

func (d *irDecoder) optional(n *yaml.Node) (Node, error) {
	if isNull(n) {
		return nil, nil
	}
	return d.node(n)
}

// fields splits a mapping into its values, rejecting keys not in allowed.
func (d *irDecoder) fields(n *yaml.Node, allowed ...string) (map[string]*yaml.Node, error) {
	if n.Kind != yaml.MappingNode {
		return nil, d.errorf(n, "expected a mapping with keys %s", strings.Join(allowed, ", "))
	}
	out := make(map[string]*yaml.Node, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		key := n.Content[i].Value
		known := false
		for _, a := range allowed {
			if a == key {
				known = true
				break
			}
		}
		if !known {
			return nil, d.errorf(n.Content[i], "unknown key %q", key)
		}
		out[key] = n.Content[i+1]
	}
	return out, nil
}

func (d *irDecoder) str(n *yaml.Node, what string) (string, error) {
	if n == nil || n.Kind != yaml.ScalarNode || n.Value == "" {
		return "", d.errorf(n, "expected %s", what)
	}
	return n.Value, nil
}

func (d *irDecoder) names(n *yaml.Node) ([]string, error) {
	if isNull(n) {
		return nil, nil
	}
	var out []string
	if err := n.Decode(&out); err != nil {
		return nil, d.errorf(n, "expected a list of names")
	}
	return out, nil
}

func (d *irDecoder) scalar(n *yaml.Node) (Value, error) {
	switch n.ShortTag() {
	case "!!null":
		return NewNil(), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return NewNil(), d.errorf(n, "invalid bool %q", n.Value)
		}
		return NewBool(b), nil
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return NewNil(), d.errorf(n, "invalid integer %q", n.Value)
		}
		return NewInt(i), nil
	case "!!str":
		return NewString(n.Value), nil
	default:
		return NewNil(), d.errorf(n, "unsupported constant %q (%s)", n.Value, n.ShortTag())
	}
}

func (d *irDecoder) node(n *yaml.Node) (Node, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		val, err := d.scalar(n)
		if err != nil {
			return nil, err
		}
		return &Const{Pos: Pos{Line: n.Line}, Value: val}, nil
	case yaml.MappingNode:
	default:
		return nil, d.errorf(n, "expected an IR node")
	}

	pos := Pos{Line: n.Line}
	var op string
	var arg *yaml.Node
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		if key.Value == "line" {
			line, err := strconv.Atoi(val.Value)
			if err != nil || line < 0 {
				return nil, d.errorf(val, "invalid line %q", val.Value)
			}
			pos.Line = line
			continue
		}
		if op != "" {
			return nil, d.errorf(key, "node has both %q and %q", op, key.Value)
		}
		op, arg = key.Value, val
	}
	if op == "" {
		return nil, d.errorf(n, "node without an operation")
	}

	if sym, ok := binaryKeys[op]; ok {
		operands, err := d.seq(arg)
		if err != nil {
			return nil, err
		}
		if len(operands) != 2 {
			return nil, d.errorf(arg, "%s takes two operands, got %d", op, len(operands))
		}
		return &BinaryOp{Pos: pos, Op: sym, Left: operands[0], Right: operands[1]}, nil
	}

	switch op {
	case "str":
		return &Const{Pos: pos, Value: NewString(arg.Value)}, nil
	case "nil":
		return &Const{Pos: pos, Value: NewNil()}, nil
	case "int", "bool":
		val, err := d.scalar(arg)
		if err != nil {
			return nil, err
		}
		if (op == "int" && val.Kind() != KindInt) || (op == "bool" && val.Kind() != KindBool) {
			return nil, d.errorf(arg, "%s expects a %s constant, got %q", op, op, arg.Value)
		}
		return &Const{Pos: pos, Value: val}, nil
	case "self":
		return &SelfRef{Pos: pos}, nil
	case "arg":
		var index int
		if err := arg.Decode(&index); err != nil {
			return nil, d.errorf(arg, "arg expects an index")
		}
		return &ArgRef{Pos: pos, Index: index}, nil
	case "get":
		name, err := d.str(arg, "a local variable name")
		if err != nil {
			return nil, err
		}
		return &LocalGet{Pos: pos, Name: name}, nil
	case "ivar":
		name, err := d.str(arg, "an instance variable name")
		if err != nil {
			return nil, err
		}
		return &IvarGet{Pos: pos, Name: strings.TrimPrefix(name, "@")}, nil
	case "set", "ivar_set":
		f, err := d.fields(arg, "name", "value")
		if err != nil {
			return nil, err
		}
		name, err := d.str(f["name"], "a name")
		if err != nil {
			return nil, err
		}
		value, err := d.optional(f["value"])
		if err != nil {
			return nil, err
		}
		if value == nil {
			value = &Const{Pos: pos, Value: NewNil()}
		}
		if op == "ivar_set" {
			return &IvarSet{Pos: pos, Name: strings.TrimPrefix(name, "@"), Value: value}, nil
		}
		return &LocalSet{Pos: pos, Name: name, Value: value}, nil
	case "not":
		operand, err := d.node(arg)
		if err != nil {
			return nil, err
		}
		return &Not{Pos: pos, Operand: operand}, nil
	case "array":
		elems, err := d.seq(arg)
		if err != nil {
			return nil, err
		}
		return &ArrayLit{Pos: pos, Elems: elems}, nil
	case "if":
		f, err := d.fields(arg, "cond", "then", "else")
		if err != nil {
			return nil, err
		}
		if f["cond"] == nil {
			return nil, d.errorf(arg, "if without cond")
		}
		cond, err := d.node(f["cond"])
		if err != nil {
			return nil, err
		}
		then, err := d.seq(f["then"])
		if err != nil {
			return nil, err
		}
		els, err := d.seq(f["else"])
		if err != nil {
			return nil, err
		}
		return &If{Pos: pos, Cond: cond, Then: then, Else: els}, nil
	case "while":
		f, err := d.fields(arg, "cond", "body")
		if err != nil {
			return nil, err
		}
		if f["cond"] == nil {
			return nil, d.errorf(arg, "while without cond")
		}
		cond, err := d.node(f["cond"])
		if err != nil {
			return nil, err
		}
		body, err := d.seq(f["body"])
		if err != nil {
			return nil, err
		}
		return &While{Pos: pos, Cond: cond, Body: body}, nil
	case "call":
		return d.call(pos, arg)
	case "yield":
		args, err := d.seq(arg)
		if err != nil {
			return nil, err
		}
		return &Yield{Pos: pos, Args: args}, nil
	case "block_given":
		return &BlockGiven{Pos: pos}, nil
	case "return":
		value, err := d.optional(arg)
		if err != nil {
			return nil, err
		}
		return &Return{Pos: pos, Value: value}, nil
	case "break":
		value, err := d.optional(arg)
		if err != nil {
			return nil, err
		}
		return &Break{Pos: pos, Value: value}, nil
	case "raise":
		if arg.Kind == yaml.ScalarNode {
			return &Raise{Pos: pos, Message: &Const{Pos: pos, Value: NewString(arg.Value)}}, nil
		}
		f, err := d.fields(arg, "class", "message")
		if err != nil {
			return nil, err
		}
		raise := &Raise{Pos: pos}
		if c := f["class"]; c != nil {
			raise.Class = c.Value
		}
		if raise.Message, err = d.optional(f["message"]); err != nil {
			return nil, err
		}
		return raise, nil
	case "begin":
		return d.begin(pos, arg)
	case "new":
		f, err := d.fields(arg, "module", "args")
		if err != nil {
			return nil, err
		}
		module, err := d.str(f["module"], "a module name")
		if err != nil {
			return nil, err
		}
		args, err := d.seq(f["args"])
		if err != nil {
			return nil, err
		}
		return &New{Pos: pos, Module: module, Args: args}, nil
	default:
		return nil, d.errorf(n, "unknown operation %q", op)
	}
}

func (d *irDecoder) call(pos Pos, arg *yaml.Node) (Node, error) {
	f, err := d.fields(arg, "recv", "name", "args", "block", "pass_block")
	if err != nil {
		return nil, err
	}
	name, err := d.str(f["name"], "a method name")
	if err != nil {
		return nil, err
	}
	call := &Call{Pos: pos, Name: name}
	if call.Receiver, err = d.optional(f["recv"]); err != nil {
		return nil, err
	}
	if call.Args, err = d.seq(f["args"]); err != nil {
		return nil, err
	}
	if pb := f["pass_block"]; pb != nil {
		if err := pb.Decode(&call.PassBlock); err != nil {
			return nil, d.errorf(pb, "pass_block expects a bool")
		}
	}
	if b := f["block"]; !isNull(b) {
		bf, err := d.fields(b, "params", "locals", "body", "line")
		if err != nil {
			return nil, err
		}
		lit := &BlockLiteral{Pos: Pos{Line: b.Line}}
		if l := bf["line"]; l != nil {
			if err := l.Decode(&lit.Line); err != nil {
				return nil, d.errorf(l, "invalid line %q", l.Value)
			}
		}
		if lit.Params, err = d.names(bf["params"]); err != nil {
			return nil, err
		}
		if lit.Locals, err = d.names(bf["locals"]); err != nil {
			return nil, err
		}
		if lit.Body, err = d.seq(bf["body"]); err != nil {
			return nil, err
		}
		call.Block = lit
	}
	return call, nil
}

func (d *irDecoder) begin(pos Pos, arg *yaml.Node) (Node, error) {
	f, err := d.fields(arg, "body", "rescue", "ensure")
	if err != nil {
		return nil, err
	}
	begin := &Begin{Pos: pos}
	if begin.Body, err = d.seq(f["body"]); err != nil {
		return nil, err
	}
	if begin.Ensure, err = d.seq(f["ensure"]); err != nil {
		return nil, err
	}
	rescues := f["rescue"]
	if isNull(rescues) {
		return begin, nil
	}
	if rescues.Kind != yaml.SequenceNode {
		return nil, d.errorf(rescues, "rescue expects a list of clauses")
	}
	for _, item := range rescues.Content {
		rf, err := d.fields(item, "classes", "as", "body")
		if err != nil {
			return nil, err
		}
		var clause RescueClause
		if clause.Classes, err = d.names(rf["classes"]); err != nil {
			return nil, err
		}
		if as := rf["as"]; as != nil {
			clause.Bind = as.Value
		}
		if clause.Body, err = d.seq(rf["body"]); err != nil {
			return nil, err
		}
		begin.Rescues = append(begin.Rescues, clause)
	}
	return begin, nil
}
