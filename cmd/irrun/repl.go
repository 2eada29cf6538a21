package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/topc0d3r/jruby/interp"
)

var (
	accentColor    = lipgloss.Color("#3B82F6")
	successColor   = lipgloss.Color("#10B981")
	errorColor     = lipgloss.Color("#EF4444")
	mutedColor     = lipgloss.Color("#6B7280")
	highlightColor = lipgloss.Color("#F59E0B")

	promptStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)

	resultStyle = lipgloss.NewStyle().
			Foreground(successColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	headerStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true).
			Padding(0, 1)

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(highlightColor)

	helpDescStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accentColor).
			Padding(0, 1)
)

type historyEntry struct {
	input  string
	output string
	isErr  bool
	isLog  bool
}

type replModel struct {
	textInput   textinput.Model
	runtime     *interp.Runtime
	module      *interp.Module
	self        interp.Value
	output      *bytes.Buffer
	logs        *bytes.Buffer
	history     []historyEntry
	cmdHistory  []string
	historyIdx  int
	lastTrace   []interp.BacktraceElement
	width       int
	height      int
	showHelp    bool
	showStack   bool
	quitting    bool
	initialized bool
}

type keyMap struct {
	Up    key.Binding
	Down  key.Binding
	Enter key.Binding
	CtrlC key.Binding
	CtrlD key.Binding
	CtrlL key.Binding
	Tab   key.Binding
	CtrlK key.Binding
	CtrlS key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up"),
		key.WithHelp("↑", "previous command"),
	),
	Down: key.NewBinding(
		key.WithKeys("down"),
		key.WithHelp("↓", "next command"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "call"),
	),
	CtrlC: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "quit"),
	),
	CtrlD: key.NewBinding(
		key.WithKeys("ctrl+d"),
		key.WithHelp("ctrl+d", "quit"),
	),
	CtrlL: key.NewBinding(
		key.WithKeys("ctrl+l"),
		key.WithHelp("ctrl+l", "clear"),
	),
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "autocomplete"),
	),
	CtrlK: key.NewBinding(
		key.WithKeys("ctrl+k"),
		key.WithHelp("ctrl+k", "toggle help"),
	),
	CtrlS: key.NewBinding(
		key.WithKeys("ctrl+s"),
		key.WithHelp("ctrl+s", "toggle backtrace"),
	),
}

// newREPLModel builds a session whose calls go to a fresh instance of
// module. Program output and diagnostics records are collected from their
// own buffers into the history; logs may be nil.
func newREPLModel(rt *interp.Runtime, module string, output, logs *bytes.Buffer) (replModel, error) {
	mod, ok := rt.Module(module)
	if !ok {
		return replModel{}, fmt.Errorf("irrun repl: unknown module %s", module)
	}
	self, err := rt.Instantiate(rt.NewCallStack(), module, nil)
	if err != nil {
		return replModel{}, fmt.Errorf("irrun repl: %w", err)
	}

	ti := textinput.New()
	ti.Placeholder = "method arg..."
	ti.Focus()
	ti.CharLimit = 500
	ti.Width = 60
	ti.PromptStyle = promptStyle
	ti.Prompt = module + "> "

	m := replModel{
		textInput:  ti,
		runtime:    rt,
		module:     mod,
		self:       self,
		output:     output,
		logs:       logs,
		history:    make([]historyEntry, 0),
		cmdHistory: make([]string, 0),
		historyIdx: -1,
	}
	m.drainLogs()
	return m, nil
}

// drainLogs moves pending diagnostics records into the history as their
// own entry.
func (m *replModel) drainLogs() {
	if m.logs == nil || m.logs.Len() == 0 {
		return
	}
	m.history = append(m.history, historyEntry{
		output: strings.TrimSuffix(m.logs.String(), "\n"),
		isLog:  true,
	})
	m.logs.Reset()
}

func (m replModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, tea.EnterAltScreen)
}

func (m replModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.textInput.Width = msg.Width - 10
		m.initialized = true
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.CtrlC), key.Matches(msg, keys.CtrlD):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, keys.CtrlL):
			m.history = make([]historyEntry, 0)
			return m, nil

		case key.Matches(msg, keys.CtrlK):
			m.showHelp = !m.showHelp
			return m, nil

		case key.Matches(msg, keys.CtrlS):
			m.showStack = !m.showStack
			return m, nil

		case key.Matches(msg, keys.Up):
			if len(m.cmdHistory) > 0 {
				if m.historyIdx == -1 {
					m.historyIdx = len(m.cmdHistory) - 1
				} else if m.historyIdx > 0 {
					m.historyIdx--
				}
				m.textInput.SetValue(m.cmdHistory[m.historyIdx])
				m.textInput.CursorEnd()
			}
			return m, nil

		case key.Matches(msg, keys.Down):
			if m.historyIdx != -1 {
				if m.historyIdx < len(m.cmdHistory)-1 {
					m.historyIdx++
					m.textInput.SetValue(m.cmdHistory[m.historyIdx])
				} else {
					m.historyIdx = -1
					m.textInput.SetValue("")
				}
				m.textInput.CursorEnd()
			}
			return m, nil

		case key.Matches(msg, keys.Tab):
			m = m.handleAutocomplete()
			return m, nil

		case key.Matches(msg, keys.Enter):
			input := strings.TrimSpace(m.textInput.Value())
			if input == "" {
				return m, nil
			}

			if strings.HasPrefix(input, ":") {
				var cmd tea.Cmd
				m, cmd = m.handleCommand(input)
				m.textInput.SetValue("")
				m.historyIdx = -1
				return m, cmd
			}

			var output string
			var isErr bool
			m, output, isErr = m.evaluate(input)
			m.history = append(m.history, historyEntry{
				input:  input,
				output: output,
				isErr:  isErr,
			})
			m.cmdHistory = append(m.cmdHistory, input)
			m.textInput.SetValue("")
			m.historyIdx = -1
			return m, nil
		}
	}

	m.textInput, cmd = m.textInput.Update(msg)
	return m, cmd
}

func (m replModel) handleCommand(input string) (replModel, tea.Cmd) {
	parts := strings.Fields(input)
	cmd := parts[0]

	switch cmd {
	case ":help", ":h":
		m.showHelp = !m.showHelp
	case ":clear", ":c":
		m.history = make([]historyEntry, 0)
	case ":methods", ":m":
		m.history = append(m.history, historyEntry{
			input:  input,
			output: strings.Join(m.methodNames(), ", "),
		})
	case ":stack", ":s":
		m.showStack = !m.showStack
	case ":quit", ":q":
		m.quitting = true
		return m, tea.Quit
	default:
		m.history = append(m.history, historyEntry{
			input:  input,
			output: fmt.Sprintf("Unknown command: %s", cmd),
			isErr:  true,
		})
	}
	return m, nil
}

// methodNames lists what the receiver responds to, nearest module first.
func (m replModel) methodNames() []string {
	seen := make(map[string]struct{})
	var names []string
	for mod := m.module; mod != nil; mod = mod.Superclass() {
		for _, name := range mod.MethodNames() {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			names = append(names, name)
		}
	}
	return names
}

func (m replModel) handleAutocomplete() replModel {
	input := m.textInput.Value()
	if input == "" || strings.Contains(input, " ") {
		return m
	}

	var completions []string
	for _, name := range m.methodNames() {
		if strings.HasPrefix(name, input) {
			completions = append(completions, name)
		}
	}
	sort.Strings(completions)

	if len(completions) == 1 {
		m.textInput.SetValue(completions[0])
		m.textInput.CursorEnd()
	} else if len(completions) > 1 {
		m.history = append(m.history, historyEntry{
			input:  "",
			output: "Completions: " + strings.Join(completions, ", "),
			isErr:  false,
		})
	}

	return m
}

// evaluate calls "method arg..." on the session receiver. Each call runs on
// its own stack, so a failed call leaves nothing behind.
func (m replModel) evaluate(input string) (replModel, string, bool) {
	fields := strings.Fields(input)
	stack := m.runtime.NewCallStack()
	result, err := m.runtime.Call(stack, m.self, fields[0], parseArgs(fields[1:]), nil)
	printed := strings.TrimSuffix(m.output.String(), "\n")
	m.output.Reset()
	m.drainLogs()

	if err != nil {
		var raised *interp.RaisedError
		if errors.As(err, &raised) {
			m.lastTrace = raised.Backtrace
			err = fmt.Errorf("%s (%s)", raised.Message, raised.Class)
		} else {
			m.lastTrace = nil
		}
		return m, joinOutput(printed, err.Error()), true
	}
	return m, joinOutput(printed, result.Inspect()), false
}

func joinOutput(printed, value string) string {
	if printed == "" {
		return value
	}
	return printed + "\n" + value
}

func (m replModel) View() string {
	if !m.initialized {
		return "Loading..."
	}

	if m.quitting {
		return mutedStyle.Render("Goodbye!\n")
	}

	var b strings.Builder

	header := headerStyle.Render("irrun REPL")
	receiver := mutedStyle.Render("receiver: " + m.self.Inspect())
	b.WriteString(header + " " + receiver + "\n")
	b.WriteString(mutedStyle.Render(strings.Repeat("─", min(m.width-2, 60))) + "\n\n")

	reservedLines := 8
	if m.showHelp {
		reservedLines += 10
	}
	if m.showStack {
		reservedLines += len(m.lastTrace) + 3
	}
	availableHeight := m.height - reservedLines

	historyStart := 0
	if len(m.history) > availableHeight {
		historyStart = len(m.history) - availableHeight
	}

	for i := historyStart; i < len(m.history); i++ {
		entry := m.history[i]
		if entry.input != "" {
			b.WriteString(mutedStyle.Render("  › ") + entry.input + "\n")
		}
		if entry.isLog {
			for _, line := range strings.Split(entry.output, "\n") {
				b.WriteString("  " + mutedStyle.Render("· "+line) + "\n")
			}
		} else if entry.isErr {
			b.WriteString("  " + errorStyle.Render("✗ "+entry.output) + "\n")
		} else {
			b.WriteString("  " + resultStyle.Render("→ "+entry.output) + "\n")
		}
		b.WriteString("\n")
	}

	if m.showStack {
		b.WriteString(renderStackPanel(m.lastTrace))
		b.WriteString("\n")
	}

	if m.showHelp {
		b.WriteString(renderHelpPanel())
		b.WriteString("\n")
	}

	b.WriteString(m.textInput.View() + "\n\n")

	footer := helpKeyStyle.Render("ctrl+k") + helpDescStyle.Render(" help  ") +
		helpKeyStyle.Render("ctrl+s") + helpDescStyle.Render(" backtrace  ") +
		helpKeyStyle.Render("ctrl+l") + helpDescStyle.Render(" clear  ") +
		helpKeyStyle.Render("ctrl+c") + helpDescStyle.Render(" quit")
	b.WriteString(footer)

	return b.String()
}

func renderStackPanel(trace []interp.BacktraceElement) string {
	if len(trace) == 0 {
		return borderStyle.Render(mutedStyle.Render("No backtrace recorded"))
	}

	var lines []string
	lines = append(lines, lipgloss.NewStyle().Bold(true).Foreground(accentColor).Render("Last backtrace"))
	methodStyle := lipgloss.NewStyle().Foreground(highlightColor)
	for _, el := range trace {
		lines = append(lines, fmt.Sprintf("  %s:%d in %s", el.File, el.Line, methodStyle.Render(el.Method)))
	}
	return borderStyle.Render(strings.Join(lines, "\n"))
}

func renderHelpPanel() string {
	help := []struct {
		key  string
		desc string
	}{
		{"↑/↓", "Navigate command history"},
		{"Tab", "Complete a method name"},
		{"Enter", "Call: method arg..."},
		{":methods", "List callable methods"},
		{":stack", "Toggle the last backtrace"},
		{":help", "Toggle this help"},
		{":clear", "Clear history"},
		{":quit", "Exit REPL"},
	}

	var lines []string
	lines = append(lines, lipgloss.NewStyle().Bold(true).Foreground(accentColor).Render("Help"))
	for _, h := range help {
		line := fmt.Sprintf("  %s  %s",
			helpKeyStyle.Render(fmt.Sprintf("%-9s", h.key)),
			helpDescStyle.Render(h.desc))
		lines = append(lines, line)
	}

	return borderStyle.Render(strings.Join(lines, "\n"))
}

func replCommand(args []string) error {
	fs := flag.NewFlagSet("repl", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	var opts programOptions
	opts.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	remaining := fs.Args()
	if len(remaining) == 0 {
		return errors.New("irrun repl: program path required")
	}

	var output, logs bytes.Buffer
	cfg, err := opts.config(&output, &logs)
	if err != nil {
		return err
	}
	rt, _, err := loadProgram(remaining[0], cfg)
	if err != nil {
		return err
	}
	model, err := newREPLModel(rt, opts.module, &output, &logs)
	if err != nil {
		return err
	}
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
