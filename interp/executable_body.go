package interp

// ExecutableBody is the ready-to-run form of a MethodDefinition. It is
// published once and shared read-only by every goroutine calling the method.
type ExecutableBody struct {
	instructions  *Instructions
	scope         *StaticScope
	sourceFile    string
	needsNewScope bool
	releasesScope bool
	engine        Engine
}

func newExecutableBody(def *MethodDefinition, code *Instructions) *ExecutableBody {
	needsScope := !def.flags.Has(ScopeEliminated)
	return &ExecutableBody{
		instructions:  code,
		scope:         def.scope,
		sourceFile:    def.file,
		needsNewScope: needsScope,
		releasesScope: needsScope,
		engine:        def.engine,
	}
}

func (b *ExecutableBody) Instructions() *Instructions { return b.instructions }
func (b *ExecutableBody) Scope() *StaticScope         { return b.scope }
func (b *ExecutableBody) SourceFile() string          { return b.sourceFile }
func (b *ExecutableBody) Engine() Engine              { return b.engine }

// NeedsNewScope reports whether an invocation pushes a fresh dynamic scope.
func (b *ExecutableBody) NeedsNewScope() bool { return b.needsNewScope }

// ReleasesScope reports whether the invocation pops the scope it pushed.
func (b *ExecutableBody) ReleasesScope() bool { return b.releasesScope }
