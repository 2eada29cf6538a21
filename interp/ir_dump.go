package interp

import (
	"fmt"
	"strings"
)

// RenderIR lists a definition's IR tree one node per row: a running node
// offset, the source line (or "|" when unchanged) and the indented node.
func RenderIR(def *MethodDefinition) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("== %s ==\n", def.Name()))
	r := &irRenderer{sb: &sb, lastLine: -1}
	for _, n := range def.Body() {
		r.node(n, 0)
	}
	return sb.String()
}

// DebugString summarizes a definition for the debug log.
func (d *MethodDefinition) DebugString() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "def %s(%s", d.name, strings.Join(d.params, ", "))
	if d.rest != "" {
		if len(d.params) > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("*" + d.rest)
	}
	fmt.Fprintf(&sb, ") at %s:%d flags=%s scope=%s nodes=%d", d.file, d.line, d.flags, d.scope, countNodes(d.body))
	return sb.String()
}

type irRenderer struct {
	sb       *strings.Builder
	offset   int
	lastLine int
}

func (r *irRenderer) row(line, depth int, format string, args ...any) {
	fmt.Fprintf(r.sb, "%04d ", r.offset)
	if line == r.lastLine {
		r.sb.WriteString("   | ")
	} else {
		fmt.Fprintf(r.sb, "%4d ", line)
	}
	r.lastLine = line
	r.offset++
	r.sb.WriteString(strings.Repeat("  ", depth))
	fmt.Fprintf(r.sb, format, args...)
	r.sb.WriteString("\n")
}

// label marks a branch of the enclosing node. It takes no offset.
func (r *irRenderer) label(depth int, text string) {
	r.sb.WriteString(strings.Repeat(" ", 10))
	r.sb.WriteString(strings.Repeat("  ", depth))
	r.sb.WriteString(text)
	r.sb.WriteString(":\n")
}

func (r *irRenderer) seq(nodes []Node, depth int) {
	for _, n := range nodes {
		r.node(n, depth)
	}
}

func (r *irRenderer) node(n Node, depth int) {
	if n == nil {
		return
	}
	line := n.SourceLine()
	switch node := n.(type) {
	case *Const:
		r.row(line, depth, "CONST %s", node.Value.Inspect())
	case *SelfRef:
		r.row(line, depth, "SELF")
	case *ArgRef:
		r.row(line, depth, "ARG %d", node.Index)
	case *LocalGet:
		r.row(line, depth, "GET %s", node.Name)
	case *LocalSet:
		r.row(line, depth, "SET %s", node.Name)
		r.node(node.Value, depth+1)
	case *IvarGet:
		r.row(line, depth, "IVAR @%s", node.Name)
	case *IvarSet:
		r.row(line, depth, "IVAR_SET @%s", node.Name)
		r.node(node.Value, depth+1)
	case *BinaryOp:
		r.row(line, depth, "OP %s", node.Op)
		r.node(node.Left, depth+1)
		r.node(node.Right, depth+1)
	case *Not:
		r.row(line, depth, "NOT")
		r.node(node.Operand, depth+1)
	case *ArrayLit:
		r.row(line, depth, "ARRAY %d", len(node.Elems))
		r.seq(node.Elems, depth+1)
	case *If:
		r.row(line, depth, "IF")
		r.node(node.Cond, depth+1)
		r.label(depth, "THEN")
		r.seq(node.Then, depth+1)
		if len(node.Else) > 0 {
			r.label(depth, "ELSE")
			r.seq(node.Else, depth+1)
		}
	case *While:
		r.row(line, depth, "WHILE")
		r.node(node.Cond, depth+1)
		r.label(depth, "DO")
		r.seq(node.Body, depth+1)
	case *Call:
		recv := "self"
		if node.Receiver != nil {
			recv = "recv"
		}
		suffix := ""
		switch {
		case node.Block != nil:
			suffix = " &block"
		case node.PassBlock:
			suffix = " &pass"
		}
		r.row(line, depth, "CALL %s.%s/%d%s", recv, node.Name, len(node.Args), suffix)
		r.node(node.Receiver, depth+1)
		r.seq(node.Args, depth+1)
		if node.Block != nil {
			r.row(node.Block.SourceLine(), depth+1, "BLOCK |%s| locals=[%s]",
				strings.Join(node.Block.Params, ", "), strings.Join(node.Block.Locals, ", "))
			r.seq(node.Block.Body, depth+2)
		}
	case *Yield:
		r.row(line, depth, "YIELD %d", len(node.Args))
		r.seq(node.Args, depth+1)
	case *BlockGiven:
		r.row(line, depth, "BLOCK_GIVEN")
	case *Return:
		r.row(line, depth, "RETURN")
		r.node(node.Value, depth+1)
	case *Break:
		r.row(line, depth, "BREAK")
		r.node(node.Value, depth+1)
	case *Raise:
		class := node.Class
		if class == "" {
			class = ErrClassRuntime
		}
		r.row(line, depth, "RAISE %s", class)
		r.node(node.Message, depth+1)
	case *Begin:
		r.row(line, depth, "BEGIN")
		r.seq(node.Body, depth+1)
		for _, rc := range node.Rescues {
			classes := "StandardError"
			if len(rc.Classes) > 0 {
				classes = strings.Join(rc.Classes, ", ")
			}
			if rc.Bind != "" {
				r.label(depth, fmt.Sprintf("RESCUE %s => %s", classes, rc.Bind))
			} else {
				r.label(depth, "RESCUE "+classes)
			}
			r.seq(rc.Body, depth+1)
		}
		if len(node.Ensure) > 0 {
			r.label(depth, "ENSURE")
			r.seq(node.Ensure, depth+1)
		}
	case *New:
		r.row(line, depth, "NEW %s/%d", node.Module, len(node.Args))
		r.seq(node.Args, depth+1)
	default:
		r.row(line, depth, "UNKNOWN %T", n)
	}
}

func countNodes(nodes []Node) int {
	var r irRenderer
	var sb strings.Builder
	r.sb = &sb
	for _, n := range nodes {
		r.node(n, 0)
	}
	return r.offset
}
