// Package tui provides the Bubble Tea terminal UI for synthlinks,
// displaying live scan progress and a styled summary of results.
package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lukemcguire/synthlinks/checker"
	"github.com/lukemcguire/synthlinks/result"
)

// Runner runs one scan. *checker.Checker satisfies it.
type Runner interface {
	Run(ctx context.Context) (*result.SyntheticResult, error)
}

// Model is the Bubble Tea model for the scan TUI.
type Model struct {
	ctx        context.Context
	cancel     context.CancelFunc
	runner     Runner
	spinner    spinner.Model
	progressCh <-chan checker.CheckEvent

	checked  int
	failing  int
	total    int
	current  string
	quitting bool
	done     bool
	result   *result.SyntheticResult
	err      error
	width    int
}

// NewModel creates a TUI model wired to the given runner and progress channel.
func NewModel(ctx context.Context, cancel context.CancelFunc, runner Runner, progressCh <-chan checker.CheckEvent) Model {
	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return Model{
		ctx:        ctx,
		cancel:     cancel,
		runner:     runner,
		spinner:    spin,
		progressCh: progressCh,
	}
}

// Init starts the spinner, the scan and the progress listener concurrently.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.startScan(), waitForProgress(m.progressCh))
}

// startScan returns a tea.Cmd that runs the scan and sends ScanDoneMsg.
func (m Model) startScan() tea.Cmd {
	return func() tea.Msg {
		res, err := m.runner.Run(m.ctx)
		if err != nil {
			err = fmt.Errorf("scan: %w", err)
		}
		return ScanDoneMsg{Result: res, Err: err}
	}
}

// Update handles messages from the Bubble Tea runtime.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width

	case ScanProgressMsg:
		m.checked = msg.Checked
		m.failing = msg.Failing
		m.total = msg.Total
		m.current = msg.URL
		return m, waitForProgress(m.progressCh)

	case progressClosedMsg:
		return m, nil

	case ScanDoneMsg:
		m.done = true
		m.result = msg.Result
		m.err = msg.Err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the current TUI state.
func (m Model) View() string {
	if m.done && m.result != nil {
		return RenderSummary(m.result)
	}
	if m.done && m.err != nil {
		return errorStyle.Render("Error: "+m.err.Error()) + "\n"
	}

	progress := fmt.Sprintf("%d", m.checked)
	if m.total > 0 {
		progress = fmt.Sprintf("%d/%d", m.checked, m.total)
	}
	return fmt.Sprintf("%s Checking links... %s checked, %d failing\n%s\n",
		m.spinner.View(), progress, m.failing,
		dimStyle.Render("  "+m.current))
}

// HasFailingLinks reports whether the scan found any failing link.
func (m Model) HasFailingLinks() bool {
	return m.result != nil && !m.result.BrokenLinksResult.Passed()
}

// GetResult returns the scan result for output formatting.
func (m Model) GetResult() *result.SyntheticResult {
	return m.result
}

// Err returns the scan error, if any.
func (m Model) Err() error {
	return m.err
}
