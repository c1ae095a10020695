package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/rishanimates/readycheck/internal/config"
	"github.com/rishanimates/readycheck/internal/verifier"
)

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	dimStyle  = lipgloss.NewStyle().Faint(true)
)

// styled renders s with the style only when writing to a terminal.
func styled(style lipgloss.Style, s string, tty bool) string {
	if !tty {
		return s
	}
	return style.Render(s)
}

// printResult writes one success line to stdout, or the full failure report
// (attempt history plus the diagnostic bundle) to stderr.
func printResult(plan *config.Plan, res verifier.Result) {
	outTTY := isatty.IsTerminal(os.Stdout.Fd())
	errTTY := isatty.IsTerminal(os.Stderr.Fd())

	switch res.State {
	case verifier.StateSuccess:
		fmt.Printf("%s %s ready after %d attempt(s) in %s\n",
			styled(okStyle, "✓", outTTY), plan.Name, len(res.Attempts), res.Duration.Round(time.Millisecond))
		return
	case verifier.StateCancelled:
		fmt.Fprintf(os.Stderr, "%s %s verification cancelled after %d attempt(s)\n",
			styled(warnStyle, "–", errTTY), plan.Name, len(res.Attempts))
		return
	}

	fmt.Fprintf(os.Stderr, "%s %s not ready after %d attempt(s) (%s)\n",
		styled(failStyle, "✗", errTTY), plan.Name, len(res.Attempts), plan.URL)

	for _, o := range res.Attempts {
		line := fmt.Sprintf("  attempt %d: %s", o.Attempt, o.Kind)
		if o.StatusCode != 0 {
			line += fmt.Sprintf(" (HTTP %d)", o.StatusCode)
		}
		if o.Detail != "" && o.Kind != verifier.OutcomeUnhealthy {
			line += ": " + firstLine(o.Detail)
		}
		fmt.Fprintln(os.Stderr, styled(dimStyle, line, errTTY))
	}

	for _, d := range res.Diagnostics {
		fmt.Fprintf(os.Stderr, "  --- %s ---\n", d.Kind)
		for _, line := range strings.Split(strings.TrimRight(d.Content, "\n"), "\n") {
			fmt.Fprintf(os.Stderr, "  %s\n", line)
		}
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
