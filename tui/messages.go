package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/lukemcguire/synthlinks/checker"
	"github.com/lukemcguire/synthlinks/result"
)

// ScanProgressMsg reports that one more link has been evaluated.
type ScanProgressMsg struct {
	Checked int
	Failing int
	Total   int
	URL     string
	Passed  bool
}

// ScanDoneMsg signals the scan has completed.
type ScanDoneMsg struct {
	Result *result.SyntheticResult
	Err    error
}

// progressClosedMsg is sent once the progress channel is closed.
type progressClosedMsg struct{}

// waitForProgress returns a tea.Cmd that reads one event from the progress
// channel. The scan result itself arrives through startScan.
func waitForProgress(ch <-chan checker.CheckEvent) tea.Cmd {
	return func() tea.Msg {
		evt, ok := <-ch
		if !ok {
			return progressClosedMsg{}
		}
		return ScanProgressMsg{
			Checked: evt.Checked,
			Failing: evt.Failing,
			Total:   evt.Total,
			URL:     evt.URL,
			Passed:  evt.Passed,
		}
	}
}
