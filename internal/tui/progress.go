package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rishanimates/readycheck/internal/verifier"
)

var (
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	cancelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	pendingStyle = lipgloss.NewStyle().Faint(true)
)

// resultMsg delivers one finished verification to the UI.
type resultMsg verifier.Result

// doneMsg signals that every target has finished.
type doneMsg struct{}

// Model renders live verification progress for a set of targets. Results
// arrive on a channel fed by the verifier's observe callback; the channel
// must be closed once all runs finish.
type Model struct {
	spinner  spinner.Model
	names    []string
	finished map[string]verifier.State
	attempts map[string]int
	results  <-chan verifier.Result
	quitting bool
}

// New creates a progress model for the given target names.
func New(names []string, results <-chan verifier.Result) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = pendingStyle

	return Model{
		spinner:  s,
		names:    names,
		finished: make(map[string]verifier.State, len(names)),
		attempts: make(map[string]int, len(names)),
		results:  results,
	}
}

func waitForResult(ch <-chan verifier.Result) tea.Cmd {
	return func() tea.Msg {
		r, ok := <-ch
		if !ok {
			return doneMsg{}
		}
		return resultMsg(r)
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForResult(m.results))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil

	case resultMsg:
		m.finished[msg.TargetName] = msg.State
		m.attempts[msg.TargetName] = len(msg.Attempts)
		return m, waitForResult(m.results)

	case doneMsg:
		m.quitting = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	for _, name := range m.names {
		state, done := m.finished[name]
		switch {
		case !done:
			fmt.Fprintf(&b, "%s %s\n", m.spinner.View(), pendingStyle.Render(name+" verifying..."))
		case state == verifier.StateSuccess:
			fmt.Fprintf(&b, "%s\n", okStyle.Render(fmt.Sprintf("✓ %s ready (%d attempts)", name, m.attempts[name])))
		case state == verifier.StateCancelled:
			fmt.Fprintf(&b, "%s\n", cancelStyle.Render("– "+name+" cancelled"))
		default:
			fmt.Fprintf(&b, "%s\n", failStyle.Render(fmt.Sprintf("✗ %s failed (%d attempts)", name, m.attempts[name])))
		}
	}
	if m.quitting {
		return b.String()
	}
	return b.String() + pendingStyle.Render("press q to hide progress") + "\n"
}
