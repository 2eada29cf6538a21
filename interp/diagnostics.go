package interp

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// DiagnosticsConfig controls the side effects of materializing a method.
// None of them change what is executed.
type DiagnosticsConfig struct {
	// EagerMaterialize builds the body when the method is defined instead of
	// on its first call.
	EagerMaterialize bool `yaml:"eager_materialize"`
	// DumpIR logs a rendered IR listing when the body is built. It implies
	// EagerMaterialize so the listing appears at definition time.
	DumpIR bool `yaml:"dump_ir"`
	// DebugLog logs the method name and its definition summary when built.
	DebugLog bool `yaml:"debug_log"`

	Logger *slog.Logger `yaml:"-"`
}

func (c DiagnosticsConfig) eager() bool { return c.EagerMaterialize || c.DumpIR }

func (c DiagnosticsConfig) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// ParseDiagnosticsConfig reads a diagnostics block such as
//
//	eager_materialize: true
//	dump_ir: false
//	debug_log: true
func ParseDiagnosticsConfig(data []byte) (DiagnosticsConfig, error) {
	var cfg DiagnosticsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DiagnosticsConfig{}, fmt.Errorf("parse diagnostics config: %w", err)
	}
	return cfg, nil
}

func LoadDiagnosticsConfig(path string) (DiagnosticsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DiagnosticsConfig{}, fmt.Errorf("read diagnostics config: %w", err)
	}
	return ParseDiagnosticsConfig(data)
}

// logMaterialized emits the diagnostics configured for a freshly built body.
// Records carry the id of the stack whose call triggered the build.
func (c DiagnosticsConfig) logMaterialized(def *MethodDefinition, stack *CallStack) {
	if !c.DebugLog && !c.DumpIR {
		return
	}
	log := c.logger().With("method", def.Name(), "file", def.SourceFile())
	if stack != nil {
		log = log.With("stack", stack.ID().String())
	}
	if c.DebugLog {
		log.Info(fmt.Sprintf("Executing '%s'", def.Name()))
		log.Info(def.DebugString())
	}
	if c.DumpIR {
		log.Info(fmt.Sprintf("Printing simple IR for %s:\n%s", def.Name(), RenderIR(def)))
	}
}
