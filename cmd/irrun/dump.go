package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/topc0d3r/jruby/interp"
)

var (
	dumpHeaderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#3B82F6")).Bold(true)
	dumpGutterStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	dumpLabelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
)

func dumpCommand(args []string) error {
	fs := flag.NewFlagSet("dump", flag.ContinueOnError)
	fs.SetOutput(new(flagErrorSink))
	method := fs.String("method", "", "only list the named method")
	if err := fs.Parse(args); err != nil {
		return err
	}
	remaining := fs.Args()
	if len(remaining) == 0 {
		return errors.New("irrun dump: program path required")
	}
	_, prog, err := loadProgram(remaining[0], interp.Config{Output: io.Discard})
	if err != nil {
		return err
	}
	styled := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	return writeListings(os.Stdout, prog, *method, styled)
}

func writeListings(w io.Writer, prog *interp.Program, method string, styled bool) error {
	found := false
	for _, def := range prog.Definitions {
		if method != "" && def.Name() != method {
			continue
		}
		found = true
		listing := interp.RenderIR(def)
		if styled {
			listing = styleListing(listing)
		}
		if _, err := fmt.Fprintln(w, listing); err != nil {
			return err
		}
	}
	if method != "" && !found {
		return fmt.Errorf("irrun dump: no method %q in %s", method, prog.File)
	}
	return nil
}

// styleListing colors the header, the offset/line gutter and branch labels
// of a RenderIR listing.
func styleListing(listing string) string {
	lines := strings.Split(strings.TrimSuffix(listing, "\n"), "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "=="):
			lines[i] = dumpHeaderStyle.Render(line)
		case strings.HasPrefix(line, "          "):
			lines[i] = dumpLabelStyle.Render(line)
		case len(line) > 10:
			lines[i] = dumpGutterStyle.Render(line[:10]) + line[10:]
		}
	}
	return strings.Join(lines, "\n")
}
