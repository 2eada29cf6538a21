package interp

import "github.com/google/uuid"

// Frame records one method activation.
type Frame struct {
	Module *Module
	Name   string
	Self   Value
	Block  *Block
}

type BacktraceElement struct {
	Method string
	File   string
	Line   int
}

// StackStats counts pushes over the lifetime of a CallStack. Rebalances
// counts exits that found entries left behind by the callee and dropped them.
type StackStats struct {
	FramePushes     int
	ScopePushes     int
	BacktracePushes int
	Rebalances      int
}

// CallStack is the per-goroutine execution state threaded through every
// invocation. It is never shared between goroutines and takes no locks.
type CallStack struct {
	id        uuid.UUID
	frames    []Frame
	scopes    []*DynamicScope
	backtrace []BacktraceElement
	baseLine  int
	maxDepth  int
	stats     StackStats
}

// NewCallStack returns an empty stack. A maxDepth of zero means unlimited.
func NewCallStack(maxDepth int) *CallStack {
	return &CallStack{
		id:        uuid.New(),
		frames:    make([]Frame, 0, 16),
		scopes:    make([]*DynamicScope, 0, 16),
		backtrace: make([]BacktraceElement, 0, 16),
		maxDepth:  maxDepth,
	}
}

func (s *CallStack) ID() uuid.UUID     { return s.id }
func (s *CallStack) MaxDepth() int     { return s.maxDepth }
func (s *CallStack) Stats() StackStats { return s.stats }

func (s *CallStack) FrameDepth() int     { return len(s.frames) }
func (s *CallStack) ScopeDepth() int     { return len(s.scopes) }
func (s *CallStack) BacktraceDepth() int { return len(s.backtrace) }

func (s *CallStack) PushFrame(frame Frame) {
	s.frames = append(s.frames, frame)
	s.stats.FramePushes++
}

func (s *CallStack) PopFrame() {
	if len(s.frames) == 0 {
		return
	}
	s.frames[len(s.frames)-1] = Frame{}
	s.frames = s.frames[:len(s.frames)-1]
}

func (s *CallStack) CurrentFrame() (Frame, bool) {
	if len(s.frames) == 0 {
		return Frame{}, false
	}
	return s.frames[len(s.frames)-1], true
}

func (s *CallStack) PushScope(scope *DynamicScope) {
	s.scopes = append(s.scopes, scope)
	s.stats.ScopePushes++
}

func (s *CallStack) PopScope() {
	if len(s.scopes) == 0 {
		return
	}
	s.scopes[len(s.scopes)-1] = nil
	s.scopes = s.scopes[:len(s.scopes)-1]
}

func (s *CallStack) CurrentScope() *DynamicScope {
	if len(s.scopes) == 0 {
		return nil
	}
	return s.scopes[len(s.scopes)-1]
}

func (s *CallStack) PushBacktrace(method, file string, line int) {
	s.backtrace = append(s.backtrace, BacktraceElement{Method: method, File: file, Line: line})
	s.stats.BacktracePushes++
}

func (s *CallStack) PopBacktrace() {
	if len(s.backtrace) == 0 {
		return
	}
	s.backtrace = s.backtrace[:len(s.backtrace)-1]
}

// CurrentLine is the line executing in the innermost backtrace entry.
func (s *CallStack) CurrentLine() int {
	if len(s.backtrace) == 0 {
		return s.baseLine
	}
	return s.backtrace[len(s.backtrace)-1].Line
}

// SetLine moves the innermost backtrace entry to line. Zero is ignored so
// synthesized nodes keep the surrounding position.
func (s *CallStack) SetLine(line int) {
	if line <= 0 {
		return
	}
	if len(s.backtrace) == 0 {
		s.baseLine = line
		return
	}
	s.backtrace[len(s.backtrace)-1].Line = line
}

// Backtrace returns a copy of the backtrace, innermost entry first.
func (s *CallStack) Backtrace() []BacktraceElement {
	out := make([]BacktraceElement, len(s.backtrace))
	for i, el := range s.backtrace {
		out[len(s.backtrace)-1-i] = el
	}
	return out
}

// stackMark holds the stack depths at one point of execution.
type stackMark struct {
	frames, scopes, backtrace int
}

func (s *CallStack) mark() stackMark {
	return stackMark{frames: len(s.frames), scopes: len(s.scopes), backtrace: len(s.backtrace)}
}

// restore truncates every stack back to target. own is the depth right after
// the exiting entry was pushed; finding anything else means the callee left
// entries behind or removed ours, and counts as a rebalance.
func (s *CallStack) restore(target, own stackMark) {
	if s.mark() != own {
		s.stats.Rebalances++
	}
	for len(s.frames) > target.frames {
		s.PopFrame()
	}
	for len(s.scopes) > target.scopes {
		s.PopScope()
	}
	for len(s.backtrace) > target.backtrace {
		s.PopBacktrace()
	}
}

// methodFrame is the release half of a method entry. Callers defer release
// right after a successful enterMethod. Release returns the stack to the
// depths it had on entry, whatever the engine left on it; a body whose
// scope is not released keeps that one scope.
type methodFrame struct {
	stack       *CallStack
	target, own stackMark
}

func (s *CallStack) enterMethod(body *ExecutableBody, impl *Module, name string, self Value, block *Block) (methodFrame, error) {
	if s.maxDepth > 0 && len(s.frames) >= s.maxDepth {
		return methodFrame{}, newRaisedError(s, ErrClassSystemStack, "stack level too deep")
	}
	target := s.mark()
	s.PushBacktrace(name, body.SourceFile(), s.CurrentLine())
	s.PushFrame(Frame{Module: impl, Name: name, Self: self, Block: block})
	if body.NeedsNewScope() {
		s.PushScope(NewDynamicScope(body.Scope(), nil))
		if !body.ReleasesScope() {
			target.scopes++
		}
	}
	return methodFrame{stack: s, target: target, own: s.mark()}, nil
}

func (f methodFrame) release() {
	f.stack.restore(f.target, f.own)
}

// blockFrame is the release half of a block entry: blocks share their
// method's frame but get their own scope and backtrace line.
type blockFrame struct {
	stack       *CallStack
	target, own stackMark
}

func (s *CallStack) enterBlock(method, file string, scope *DynamicScope) blockFrame {
	target := s.mark()
	s.PushBacktrace("block in "+method, file, s.CurrentLine())
	s.PushScope(scope)
	return blockFrame{stack: s, target: target, own: s.mark()}
}

func (f blockFrame) release() {
	f.stack.restore(f.target, f.own)
}
