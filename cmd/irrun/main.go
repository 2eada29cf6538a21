package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/topc0d3r/jruby/interp"
)

func main() {
	if err := runCLI(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runCLI(args []string) error {
	if len(args) < 2 {
		return usageError()
	}
	switch args[1] {
	case "run":
		return runCommand(args[2:])
	case "dump":
		return dumpCommand(args[2:])
	case "repl":
		return replCommand(args[2:])
	case "help", "-h", "--help":
		printUsage()
		return nil
	default:
		return usageError()
	}
}

func usageError() error {
	printUsage()
	return errors.New("invalid command")
}

func printUsage() {
	prog := filepath.Base(os.Args[0])
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [flags] <program.yaml> [args...]\n", prog)
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  run     load the program and call a method")
	fmt.Fprintln(os.Stderr, "  dump    print the IR listing of every method")
	fmt.Fprintln(os.Stderr, "  repl    call methods interactively")
	fmt.Fprintln(os.Stderr, "Run flags:")
	fmt.Fprintln(os.Stderr, "  -module string")
	fmt.Fprintln(os.Stderr, "    module to instantiate as the receiver (default \"Main\")")
	fmt.Fprintln(os.Stderr, "  -method string")
	fmt.Fprintln(os.Stderr, "    method to invoke (default \"run\")")
	fmt.Fprintln(os.Stderr, "  -eager")
	fmt.Fprintln(os.Stderr, "    materialize every method when it is defined")
	fmt.Fprintln(os.Stderr, "  -dump-ir")
	fmt.Fprintln(os.Stderr, "    log each method's IR when it is materialized")
	fmt.Fprintln(os.Stderr, "  -debug")
	fmt.Fprintln(os.Stderr, "    log each method as it is materialized")
	fmt.Fprintln(os.Stderr, "  -diagnostics <file>")
	fmt.Fprintln(os.Stderr, "    read diagnostics settings from a YAML file")
	fmt.Fprintln(os.Stderr, "  -max-depth int")
	fmt.Fprintln(os.Stderr, "    deepest method nesting before SystemStackError")
}

type flagErrorSink struct{}

func (flagErrorSink) Write(p []byte) (int, error) {
	return len(p), nil
}

// parseArg turns a command line word into a value: integers, true, false
// and nil are literals, anything else is a string.
func parseArg(raw string) interp.Value {
	switch raw {
	case "nil":
		return interp.NewNil()
	case "true":
		return interp.NewBool(true)
	case "false":
		return interp.NewBool(false)
	}
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return interp.NewInt(i)
	}
	return interp.NewString(raw)
}

func parseArgs(raw []string) []interp.Value {
	out := make([]interp.Value, len(raw))
	for i, r := range raw {
		out[i] = parseArg(r)
	}
	return out
}
