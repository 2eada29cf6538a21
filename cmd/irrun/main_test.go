package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/topc0d3r/jruby/interp"
)

const greeterProgram = `file: greeter.rb
modules:
  - name: Main
    methods:
      - name: run
        body: ["ok"]
      - name: greet
        params: [name]
        body:
          - call: {name: puts, args: [{add: ["hello ", {get: name}]}]}
          - add: [1, 1]
      - name: divide
        params: [a, b]
        body: [{div: [{get: a}, {get: b}]}]
      - name: quiet
        body: [{nil: ~}]
`

func TestRunCLIHelp(t *testing.T) {
	if err := runCLI([]string{"irrun", "help"}); err != nil {
		t.Fatalf("runCLI help failed: %v", err)
	}
}

func TestRunCLIInvalidCommand(t *testing.T) {
	err := runCLI([]string{"irrun", "unknown"})
	if err == nil {
		t.Fatalf("expected invalid command error")
	}
	if !strings.Contains(err.Error(), "invalid command") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunCLIWithoutCommand(t *testing.T) {
	err := runCLI([]string{"irrun"})
	if err == nil || !strings.Contains(err.Error(), "invalid command") {
		t.Fatalf("expected invalid command error, got %v", err)
	}
}

func TestRunCommandPrintsResult(t *testing.T) {
	path := writeProgram(t, greeterProgram)

	out, err := captureStdout(t, func() error {
		return runCommand([]string{path})
	})
	if err != nil {
		t.Fatalf("runCommand failed: %v", err)
	}
	if got := strings.TrimSpace(out); got != `"ok"` {
		t.Fatalf("unexpected stdout: %q", got)
	}
}

func TestRunCommandPassesArgsAndPrintsOutput(t *testing.T) {
	path := writeProgram(t, greeterProgram)

	out, err := captureStdout(t, func() error {
		return runCommand([]string{"-method", "greet", path, "world"})
	})
	if err != nil {
		t.Fatalf("runCommand failed: %v", err)
	}
	if out != "hello world\n2\n" {
		t.Fatalf("unexpected stdout: %q", out)
	}
}

func TestRunCommandNilResultPrintsNothing(t *testing.T) {
	path := writeProgram(t, greeterProgram)
	out, err := captureStdout(t, func() error {
		return runCommand([]string{"-method", "quiet", "-eager", path})
	})
	if err != nil {
		t.Fatalf("runCommand failed: %v", err)
	}
	if out != "" {
		t.Fatalf("expected no output, got %q", out)
	}
}

func TestRunCommandReportsRaisedError(t *testing.T) {
	path := writeProgram(t, greeterProgram)
	_, err := captureStdout(t, func() error {
		return runCommand([]string{"-method", "divide", path, "1", "0"})
	})
	if err == nil {
		t.Fatalf("expected execution error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "execution failed: divided by 0 (ZeroDivisionError)") {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(msg, "in 'divide'") {
		t.Fatalf("expected backtrace in error: %v", err)
	}
}

func TestRunCommandRequiresProgramPath(t *testing.T) {
	err := runCommand(nil)
	if err == nil || !strings.Contains(err.Error(), "program path required") {
		t.Fatalf("expected program path error, got %v", err)
	}
}

func TestRunCommandRejectsNegativeDepth(t *testing.T) {
	path := writeProgram(t, greeterProgram)
	err := runCommand([]string{"-max-depth", "-1", path})
	if err == nil || !strings.Contains(err.Error(), "must not be negative") {
		t.Fatalf("expected depth error, got %v", err)
	}
}

func TestProgramOptionsMergeDiagnosticsFile(t *testing.T) {
	diagPath := filepath.Join(t.TempDir(), "diag.yaml")
	if err := os.WriteFile(diagPath, []byte("debug_log: true\n"), 0o644); err != nil {
		t.Fatalf("write diagnostics: %v", err)
	}
	opts := programOptions{diagnostics: diagPath, dumpIR: true}
	cfg, err := opts.config(io.Discard, io.Discard)
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	if !cfg.Diagnostics.DebugLog || !cfg.Diagnostics.DumpIR || cfg.Diagnostics.EagerMaterialize {
		t.Fatalf("unexpected diagnostics: %+v", cfg.Diagnostics)
	}

	opts.diagnostics = filepath.Join(t.TempDir(), "missing.yaml")
	if _, err := opts.config(io.Discard, io.Discard); err == nil {
		t.Fatalf("expected missing diagnostics file error")
	}
}

func TestDumpCommandListsMethods(t *testing.T) {
	path := writeProgram(t, greeterProgram)
	out, err := captureStdout(t, func() error {
		return dumpCommand([]string{"-method", "divide", path})
	})
	if err != nil {
		t.Fatalf("dumpCommand failed: %v", err)
	}
	if !strings.Contains(out, "== divide ==") || !strings.Contains(out, "OP /") {
		t.Fatalf("unexpected listing: %q", out)
	}
	if strings.Contains(out, "== greet ==") {
		t.Fatalf("method filter ignored: %q", out)
	}

	if err := dumpCommand([]string{"-method", "nope", path}); err == nil {
		t.Fatalf("expected unknown method error")
	}
}

func TestStyleListingKeepsText(t *testing.T) {
	listing := "== m ==\n0000    1 IF\n          THEN:\n0001    2   CONST 1\n"
	styled := styleListing(listing)
	for _, want := range []string{"== m ==", "IF", "THEN:", "CONST 1"} {
		if !strings.Contains(styled, want) {
			t.Fatalf("styled listing lost %q: %q", want, styled)
		}
	}
}

func TestParseArg(t *testing.T) {
	cases := map[string]interp.Value{
		"42":    interp.NewInt(42),
		"-3":    interp.NewInt(-3),
		"true":  interp.NewBool(true),
		"false": interp.NewBool(false),
		"nil":   interp.NewNil(),
		"words": interp.NewString("words"),
	}
	for raw, want := range cases {
		if got := parseArg(raw); !got.Equal(want) {
			t.Fatalf("parseArg(%q) = %v, want %v", raw, got.Inspect(), want.Inspect())
		}
	}
}

func writeProgram(t *testing.T, source string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "program.yaml")
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		t.Fatalf("write program: %v", err)
	}
	return path
}

func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	orig := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w

	runErr := fn()
	_ = w.Close()
	os.Stdout = orig

	var buf bytes.Buffer
	if _, copyErr := io.Copy(&buf, r); copyErr != nil {
		t.Fatalf("read stdout: %v", copyErr)
	}
	_ = r.Close()
	return buf.String(), runErr
}
