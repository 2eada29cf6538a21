package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/topc0d3r/jruby/interp"
)

type programOptions struct {
	module      string
	method      string
	eager       bool
	dumpIR      bool
	debug       bool
	diagnostics string
	maxDepth    int
}

func (o *programOptions) register(fs *flag.FlagSet) {
	fs.StringVar(&o.module, "module", "Main", "module to instantiate as the receiver")
	fs.StringVar(&o.method, "method", "run", "method to invoke")
	fs.BoolVar(&o.eager, "eager", false, "materialize every method when it is defined")
	fs.BoolVar(&o.dumpIR, "dump-ir", false, "log each method's IR when it is materialized")
	fs.BoolVar(&o.debug, "debug", false, "log each method as it is materialized")
	fs.StringVar(&o.diagnostics, "diagnostics", "", "read diagnostics settings from a YAML file")
	fs.IntVar(&o.maxDepth, "max-depth", 0, "deepest method nesting before SystemStackError")
}

// config merges the diagnostics file, if any, with the command line flags.
// A flag can only turn a setting on.
func (o *programOptions) config(out, logOut io.Writer) (interp.Config, error) {
	var diag interp.DiagnosticsConfig
	if o.diagnostics != "" {
		loaded, err := interp.LoadDiagnosticsConfig(o.diagnostics)
		if err != nil {
			return interp.Config{}, err
		}
		diag = loaded
	}
	diag.EagerMaterialize = diag.EagerMaterialize || o.eager
	diag.DumpIR = diag.DumpIR || o.dumpIR
	diag.DebugLog = diag.DebugLog || o.debug

	return interp.Config{
		Diagnostics:  diag,
		MaxCallDepth: o.maxDepth,
		Output:       out,
		Logger:       slog.New(slog.NewTextHandler(logOut, nil)),
	}, nil
}

func loadProgram(path string, cfg interp.Config) (*interp.Runtime, *interp.Program, error) {
	rt, err := interp.NewRuntime(cfg)
	if err != nil {
		return nil, nil, err
	}
	prog, err := rt.LoadProgramFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load failed: %w", err)
	}
	return rt, prog, nil
}

func runCommand(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	var opts programOptions
	opts.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	remaining := fs.Args()
	if len(remaining) == 0 {
		return errors.New("irrun run: program path required")
	}
	cfg, err := opts.config(os.Stdout, os.Stderr)
	if err != nil {
		return err
	}
	rt, _, err := loadProgram(remaining[0], cfg)
	if err != nil {
		return err
	}

	stack := rt.NewCallStack()
	self, err := rt.Instantiate(stack, opts.module, nil)
	if err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}
	result, err := rt.Call(stack, self, opts.method, parseArgs(remaining[1:]), nil)
	if err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}
	if !result.IsNil() {
		fmt.Println(result.Inspect())
	}
	return nil
}
