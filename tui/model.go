// Package tui provides the Bubble Tea operator dashboard for webdex: a live
// view over the job registry showing the job list, per-job status, a log
// tail, and a queue preview.
package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lukemcguire/webdex/internal/job"
	"github.com/lukemcguire/webdex/internal/registry"
	"github.com/lukemcguire/webdex/result"
)

// Model is the Bubble Tea model for the operator dashboard.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc
	reg    *registry.Registry
	spin   spinner.Model

	jobs      []registry.Summary
	liveCount int
	selected  int
	status    *result.JobStatusView

	quitting bool
	err      error
}

// NewModel creates a dashboard model wired to reg.
func NewModel(ctx context.Context, cancel context.CancelFunc, reg *registry.Registry) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return Model{
		ctx:    ctx,
		cancel: cancel,
		reg:    reg,
		spin:   s,
	}
}

// Init starts the spinner and the first job-list load, plus the refresh
// ticker.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.loadJobsCmd(), tickCmd())
}

// Update handles messages from the Bubble Tea runtime.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		return m, tea.Batch(m.loadJobsCmd(), tickCmd())

	case jobsLoadedMsg:
		m.err = msg.err
		if msg.err == nil {
			m.jobs = msg.jobs
			m.liveCount = msg.liveCount
			if m.selected >= len(m.jobs) {
				m.selected = max(0, len(m.jobs)-1)
			}
		}
		if len(m.jobs) > 0 {
			return m, m.loadStatusCmd(m.jobs[m.selected].ID)
		}
		return m, nil

	case statusLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		view := toStatusView(msg.id, msg.status)
		m.status = &view

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		m.cancel()
		return m, tea.Quit

	case "up", "k":
		if m.selected > 0 {
			m.selected--
			return m, m.loadStatusCmd(m.jobs[m.selected].ID)
		}

	case "down", "j":
		if m.selected < len(m.jobs)-1 {
			m.selected++
			return m, m.loadStatusCmd(m.jobs[m.selected].ID)
		}

	case "p":
		return m, m.controlCmd(func(id job.ID) (registry.Control, error) { return m.reg.Pause(id) })

	case "r":
		return m, m.controlCmd(func(id job.ID) (registry.Control, error) { return m.reg.Resume(m.ctx, id) })

	case "s":
		return m, m.controlCmd(func(id job.ID) (registry.Control, error) { return m.reg.Stop(id) })
	}
	return m, nil
}

// controlCmd runs a control operation against the selected job and
// immediately refreshes the list.
func (m Model) controlCmd(op func(job.ID) (registry.Control, error)) tea.Cmd {
	if len(m.jobs) == 0 {
		return nil
	}
	id := m.jobs[m.selected].ID
	return func() tea.Msg {
		_, _ = op(id)
		return m.loadJobsCmd()()
	}
}

func toStatusView(id job.ID, st registry.Status) result.JobStatusView {
	return result.JobStatusView{
		JobID:            string(id),
		Status:           string(st.State.Status),
		Origin:           st.Config.Origin,
		MaxDepth:         st.Config.MaxDepth,
		HitRate:          st.Config.HitRate,
		MaxQueueCapacity: st.Config.MaxQueueCapacity,
		MaxURLsToVisit:   st.Config.MaxURLsToVisit,
		VisitedCount:     st.State.URLsVisitedThisSession,
		CreatedAt:        st.State.CreatedAt,
		UpdatedAt:        st.State.UpdatedAt,
		CompletedAt:      st.State.CompletedAt,
		Logs:             st.Logs,
		QueuePreview:     st.QueuePreview,
	}
}

// View renders the current dashboard state.
func (m Model) View() string {
	if m.quitting {
		return "\n"
	}

	header := fmt.Sprintf("%s webdex  (%d jobs, %d live)\n\n", m.spin.View(), len(m.jobs), m.liveCount)
	if m.err != nil {
		header += errorStyle.Render("error: "+m.err.Error()) + "\n\n"
	}

	body := renderJobTable(m.jobs, m.selected) + "\n\n" + renderStatusPanel(m.status)
	footer := dimStyle.Render("\n↑/↓ select  p pause  r resume  s stop  q quit")

	return header + body + footer
}
