package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/lukemcguire/webdex/internal/registry"
	"github.com/lukemcguire/webdex/result"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	successStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	errorStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle      = lipgloss.NewStyle().Faint(true)
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
)

// statusStyle colors a job status the way the job itself would report it.
func statusStyle(status string) lipgloss.Style {
	switch status {
	case "Active":
		return successStyle
	case "Paused":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	case "Interrupted":
		return errorStyle
	default:
		return dimStyle
	}
}

// renderJobTable renders the job list as a bordered table, highlighting the
// selected row.
func renderJobTable(jobs []registry.Summary, selected int) string {
	if len(jobs) == 0 {
		return dimStyle.Render("No jobs yet. Start one with: webdex create -origin URL")
	}

	rows := make([][]string, 0, len(jobs))
	for _, j := range jobs {
		rows = append(rows, []string{string(j.ID), string(j.Status), j.Origin, fmt.Sprintf("%d", j.VisitedCount)})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		Headers("JOB ID", "STATUS", "ORIGIN", "VISITED").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if row == selected {
				return selectedStyle
			}
			if col == 1 {
				return statusStyle(rows[row][1])
			}
			return lipgloss.NewStyle()
		}).
		Rows(rows...)

	return t.Render()
}

// renderStatusPanel renders the detail panel for a selected job's status.
func renderStatusPanel(st *result.JobStatusView) string {
	if st == nil {
		return dimStyle.Render("Select a job to see its status.")
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("%s  %s", st.JobID, statusStyle(st.Status).Render(st.Status))))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("origin: %s  visited: %d", st.Origin, st.VisitedCount)))
	b.WriteString("\n\n")

	b.WriteString(headerStyle.Render(fmt.Sprintf("queue (%d pending)", len(st.QueuePreview))))
	b.WriteString("\n")
	for _, q := range st.QueuePreview {
		b.WriteString("  " + q + "\n")
	}

	b.WriteString(headerStyle.Render("recent logs"))
	b.WriteString("\n")
	for _, l := range st.Logs {
		b.WriteString("  " + l + "\n")
	}
	return b.String()
}
