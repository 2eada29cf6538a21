package main

import (
	"bytes"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/topc0d3r/jruby/interp"
)

func newTestREPL(t *testing.T) replModel {
	t.Helper()
	return newTestREPLWith(t, programOptions{})
}

func newTestREPLWith(t *testing.T, opts programOptions) replModel {
	t.Helper()
	var out, logs bytes.Buffer
	cfg, err := opts.config(&out, &logs)
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	rt, err := interp.NewRuntime(cfg)
	if err != nil {
		t.Fatalf("runtime: %v", err)
	}
	if _, err := rt.LoadProgram([]byte(greeterProgram), "greeter.yaml"); err != nil {
		t.Fatalf("load: %v", err)
	}
	m, err := newREPLModel(rt, "Main", &out, &logs)
	if err != nil {
		t.Fatalf("newREPLModel: %v", err)
	}
	return m
}

func TestUpdateQuitCommandReturnsQuit(t *testing.T) {
	m := newTestREPL(t)
	m.textInput.SetValue(":quit")

	model, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	rm, ok := model.(replModel)
	if !ok {
		t.Fatalf("unexpected model type %T", model)
	}

	if !rm.quitting {
		t.Fatalf("quitting flag not set")
	}
	if rm.textInput.Value() != "" {
		t.Fatalf("input not cleared after quit command")
	}
	if cmd == nil {
		t.Fatalf("expected tea.Quit command")
	}
	if msg := cmd(); msg != nil {
		if _, ok := msg.(tea.QuitMsg); !ok {
			t.Fatalf("expected QuitMsg, got %T", msg)
		}
	}
}

func TestUpdateNonQuitCommandDoesNotReturnCmd(t *testing.T) {
	m := newTestREPL(t)
	m.textInput.SetValue(":help")

	model, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	rm, ok := model.(replModel)
	if !ok {
		t.Fatalf("unexpected model type %T", model)
	}

	if cmd != nil {
		t.Fatalf("expected no command for non-quit input")
	}
	if rm.quitting {
		t.Fatalf("quitting should remain false")
	}
	if !rm.showHelp {
		t.Fatalf("help toggle should be enabled")
	}
	if rm.textInput.Value() != "" {
		t.Fatalf("input not cleared after command")
	}
}

func TestUnknownCommandIsRecordedAsError(t *testing.T) {
	m := newTestREPL(t)
	m, _ = m.handleCommand(":bogus")
	if len(m.history) != 1 {
		t.Fatalf("expected one history entry, got %d", len(m.history))
	}
	entry := m.history[0]
	if !entry.isErr || entry.output != "Unknown command: :bogus" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
}

func TestEvaluateCallsMethodWithArgs(t *testing.T) {
	m := newTestREPL(t)

	m, output, isErr := m.evaluate("greet there")
	if isErr {
		t.Fatalf("unexpected eval error: %s", output)
	}
	if output != "hello there\n2" {
		t.Fatalf("unexpected output: %q", output)
	}
	if m.output.Len() != 0 {
		t.Fatalf("program output not consumed")
	}
}

func TestEvaluateErrorRecordsBacktrace(t *testing.T) {
	m := newTestREPL(t)

	m, output, isErr := m.evaluate("divide 4 0")
	if !isErr {
		t.Fatalf("expected eval error, got %q", output)
	}
	if output != "divided by 0 (ZeroDivisionError)" {
		t.Fatalf("unexpected output: %q", output)
	}
	if len(m.lastTrace) == 0 || m.lastTrace[0].Method != "divide" {
		t.Fatalf("unexpected trace: %+v", m.lastTrace)
	}
	if panel := renderStackPanel(m.lastTrace); !strings.Contains(panel, "divide") {
		t.Fatalf("stack panel missing method: %q", panel)
	}

	m, _, isErr = m.evaluate("divide 4 2")
	if isErr || m.lastTrace != nil {
		t.Fatalf("successful call should clear trace")
	}
}

func TestEvaluateUnknownMethod(t *testing.T) {
	m := newTestREPL(t)
	_, output, isErr := m.evaluate("nothing_here")
	if !isErr || !strings.Contains(output, "NoMethodError") {
		t.Fatalf("expected NoMethodError, got %q", output)
	}
}

func TestMethodNamesIncludeInherited(t *testing.T) {
	m := newTestREPL(t)
	names := strings.Join(m.methodNames(), ",")
	for _, want := range []string{"greet", "divide", "puts", "inspect"} {
		if !strings.Contains(names, want) {
			t.Fatalf("missing %q in %s", want, names)
		}
	}
}

func TestAutocompleteSingleMatch(t *testing.T) {
	m := newTestREPL(t)
	m.textInput.SetValue("gre")
	m = m.handleAutocomplete()
	if got := m.textInput.Value(); got != "greet" {
		t.Fatalf("expected completion to greet, got %q", got)
	}
}

func TestNewREPLModelUnknownModule(t *testing.T) {
	rt, err := interp.NewRuntime(interp.Config{})
	if err != nil {
		t.Fatalf("runtime: %v", err)
	}
	if _, err := newREPLModel(rt, "Missing", new(bytes.Buffer), nil); err == nil {
		t.Fatalf("expected unknown module error")
	}
}

func TestEvaluateKeepsDiagnosticsOutOfResult(t *testing.T) {
	m := newTestREPLWith(t, programOptions{debug: true})
	if len(m.history) != 0 {
		t.Fatalf("lazy session logged at startup: %+v", m.history)
	}

	m, output, isErr := m.evaluate("greet you")
	if isErr {
		t.Fatalf("unexpected eval error: %s", output)
	}
	if output != "hello you\n2" {
		t.Fatalf("diagnostics leaked into output: %q", output)
	}
	if len(m.history) != 1 || !m.history[0].isLog {
		t.Fatalf("expected one log entry, got %+v", m.history)
	}
	if !strings.Contains(m.history[0].output, "Executing 'greet'") {
		t.Fatalf("unexpected log entry: %q", m.history[0].output)
	}
	if m.logs.Len() != 0 {
		t.Fatalf("log buffer not drained")
	}
}

func TestEagerDiagnosticsShownAtStartup(t *testing.T) {
	m := newTestREPLWith(t, programOptions{dumpIR: true})
	if len(m.history) != 1 || !m.history[0].isLog {
		t.Fatalf("expected startup log entry, got %+v", m.history)
	}
	if !strings.Contains(m.history[0].output, "Printing simple IR for greet") {
		t.Fatalf("unexpected startup log: %q", m.history[0].output)
	}

	m, output, isErr := m.evaluate("greet again")
	if isErr || output != "hello again\n2" {
		t.Fatalf("unexpected result %q (err=%v)", output, isErr)
	}
	if len(m.history) != 1 {
		t.Fatalf("load-time records attached to a call: %+v", m.history)
	}
}
