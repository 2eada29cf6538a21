package interp

import (
	"errors"
	"fmt"
	"strings"
)

const (
	ErrClassRuntime     = "RuntimeError"
	ErrClassZeroDiv     = "ZeroDivisionError"
	ErrClassArgument    = "ArgumentError"
	ErrClassNoMethod    = "NoMethodError"
	ErrClassName        = "NameError"
	ErrClassLocalJump   = "LocalJumpError"
	ErrClassType        = "TypeError"
	ErrClassSystemStack = "SystemStackError"

	backtraceHead = 8
	backtraceTail = 8
)

// ErrMaterialization is matched by every MaterializationError.
var ErrMaterialization = errors.New("materialization failed")

// MaterializationError reports that a method body could not be turned into
// an ExecutableBody. It is returned before any stack state is pushed.
type MaterializationError struct {
	Method     string
	SourceFile string
	Err        error
}

func (e *MaterializationError) Error() string {
	if e.SourceFile != "" {
		return fmt.Sprintf("materialize %s (%s): %v", e.Method, e.SourceFile, e.Err)
	}
	return fmt.Sprintf("materialize %s: %v", e.Method, e.Err)
}

func (e *MaterializationError) Unwrap() error { return e.Err }

func (e *MaterializationError) Is(target error) bool { return target == ErrMaterialization }

// RaisedError is an exception raised by interpreted code. The backtrace is
// captured from the call stack at the raise point, innermost first.
type RaisedError struct {
	Class     string
	Message   string
	Backtrace []BacktraceElement
}

func newRaisedError(stack *CallStack, class, format string, args ...any) *RaisedError {
	err := &RaisedError{Class: class, Message: fmt.Sprintf(format, args...)}
	if stack != nil {
		err.Backtrace = stack.Backtrace()
	}
	return err
}

// NewRaisedError builds an exception carrying the current backtrace of stack,
// for native methods that need to raise.
func NewRaisedError(stack *CallStack, class, message string) *RaisedError {
	return newRaisedError(stack, class, "%s", message)
}

func (re *RaisedError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)", re.Message, re.Class)
	renderFrame := func(el BacktraceElement) {
		switch {
		case el.File != "" && el.Line > 0:
			fmt.Fprintf(&b, "\n  from %s:%d:in '%s'", el.File, el.Line, el.Method)
		case el.File != "":
			fmt.Fprintf(&b, "\n  from %s:in '%s'", el.File, el.Method)
		default:
			fmt.Fprintf(&b, "\n  from in '%s'", el.Method)
		}
	}

	if len(re.Backtrace) <= backtraceHead+backtraceTail {
		for _, el := range re.Backtrace {
			renderFrame(el)
		}
		return b.String()
	}

	for _, el := range re.Backtrace[:backtraceHead] {
		renderFrame(el)
	}
	omitted := len(re.Backtrace) - (backtraceHead + backtraceTail)
	fmt.Fprintf(&b, "\n  ... %d levels omitted ...", omitted)
	for _, el := range re.Backtrace[len(re.Backtrace)-backtraceTail:] {
		renderFrame(el)
	}
	return b.String()
}

// IsClass reports whether a rescue clause naming class catches this error.
func (re *RaisedError) IsClass(class string) bool {
	switch class {
	case re.Class, "Exception":
		return true
	case "StandardError":
		return re.Class != ErrClassSystemStack
	default:
		return false
	}
}

// nonLocalReturn unwinds to the method activation that owns the return,
// which may be several blocks and calls away.
type nonLocalReturn struct {
	home  *activation
	value Value
}

func (e *nonLocalReturn) Error() string { return "unexpected return" }

// breakJump unwinds to the call that passed the block.
type breakJump struct {
	block *Block
	value Value
}

func (e *breakJump) Error() string { return "break from proc-closure" }

// loopBreak unwinds to the innermost while loop of the same activation.
type loopBreak struct {
	value Value
}

func (e *loopBreak) Error() string { return "break from loop" }

// localJumpFromLeak turns a control transfer that escaped its target into
// the error user code would see.
func localJumpFromLeak(stack *CallStack, err error) error {
	var ret *nonLocalReturn
	if errors.As(err, &ret) {
		return newRaisedError(stack, ErrClassLocalJump, "unexpected return")
	}
	var brk *breakJump
	if errors.As(err, &brk) {
		return newRaisedError(stack, ErrClassLocalJump, "break from proc-closure")
	}
	return err
}
