package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lukemcguire/webdex/internal/job"
	"github.com/lukemcguire/webdex/internal/registry"
)

// refreshInterval is how often the dashboard re-polls the registry.
const refreshInterval = 500 * time.Millisecond

// jobsLoadedMsg reports a fresh List() snapshot.
type jobsLoadedMsg struct {
	jobs      []registry.Summary
	liveCount int
	err       error
}

// statusLoadedMsg reports a fresh Status() snapshot for the selected job.
type statusLoadedMsg struct {
	id     job.ID
	status registry.Status
	err    error
}

// tickMsg drives the periodic refresh.
type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) loadJobsCmd() tea.Cmd {
	return func() tea.Msg {
		jobs, liveCount, err := m.reg.List()
		return jobsLoadedMsg{jobs: jobs, liveCount: liveCount, err: err}
	}
}

func (m Model) loadStatusCmd(id job.ID) tea.Cmd {
	return func() tea.Msg {
		st, err := m.reg.Status(id)
		return statusLoadedMsg{id: id, status: st, err: err}
	}
}
