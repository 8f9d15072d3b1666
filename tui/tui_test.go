package tui

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/lukemcguire/webdex/internal/job"
	"github.com/lukemcguire/webdex/internal/registry"
	"github.com/lukemcguire/webdex/result"
)

func newTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.New(t.TempDir())
	if err != nil {
		t.Fatalf("registry.New() error = %v", err)
	}
	return reg
}

func TestNewModel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := newTestRegistry(t)
	model := NewModel(ctx, cancel, reg)

	if model.ctx != ctx {
		t.Error("expected ctx to be stored in model")
	}
	if model.cancel == nil {
		t.Error("expected cancel to be stored in model")
	}
	if model.reg != reg {
		t.Error("expected registry to be stored in model")
	}
	if model.quitting {
		t.Error("expected quitting to be false initially")
	}
	if len(model.jobs) != 0 || model.selected != 0 {
		t.Error("expected initial job list to be empty and selection at 0")
	}
}

func TestInit_ReturnsBatchCmd(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	model := NewModel(ctx, cancel, newTestRegistry(t))
	cmd := model.Init()
	if cmd == nil {
		t.Error("Init() should return a non-nil batch command")
	}
}

func TestUpdate_JobsLoadedMsg(t *testing.T) {
	model := Model{}
	now := time.Unix(1700000000, 0).UTC()
	jobs := []registry.Summary{
		{ID: job.ID("1_1"), Status: job.StatusActive, Origin: "https://example.com/", VisitedCount: 4, CreatedAt: now},
	}

	updatedModel, cmd := model.Update(jobsLoadedMsg{jobs: jobs, liveCount: 1})
	updated := updatedModel.(Model)

	if len(updated.jobs) != 1 {
		t.Fatalf("expected 1 job, got %d", len(updated.jobs))
	}
	if updated.liveCount != 1 {
		t.Errorf("expected liveCount=1, got %d", updated.liveCount)
	}
	if cmd == nil {
		t.Error("expected a status-load command after jobs load")
	}
}

func TestUpdate_JobsLoadedMsg_ClampsSelection(t *testing.T) {
	model := Model{selected: 3}
	updatedModel, _ := model.Update(jobsLoadedMsg{jobs: []registry.Summary{{ID: "1_1"}}, liveCount: 0})
	updated := updatedModel.(Model)
	if updated.selected != 0 {
		t.Errorf("expected selection clamped to 0, got %d", updated.selected)
	}
}

func TestUpdate_StatusLoadedMsg(t *testing.T) {
	model := Model{}
	st := registry.Status{
		Config: job.Config{Origin: "https://example.com/"},
		State:  job.State{Status: job.StatusActive, URLsVisitedThisSession: 7},
		Logs:   []string{"fetched https://example.com/"},
	}

	updatedModel, _ := model.Update(statusLoadedMsg{id: "1_1", status: st})
	updated := updatedModel.(Model)

	if updated.status == nil {
		t.Fatal("expected status to be populated")
	}
	if updated.status.VisitedCount != 7 {
		t.Errorf("expected VisitedCount=7, got %d", updated.status.VisitedCount)
	}
	if updated.status.Status != "Active" {
		t.Errorf("expected Status=Active, got %s", updated.status.Status)
	}
}

func TestUpdate_KeyNavigation(t *testing.T) {
	model := Model{
		jobs: []registry.Summary{
			{ID: "1_1"}, {ID: "1_2"}, {ID: "1_3"},
		},
		selected: 1,
	}

	updatedModel, cmd := model.Update(tea.KeyMsg{Type: tea.KeyDown})
	updated := updatedModel.(Model)
	if updated.selected != 2 {
		t.Errorf("expected selected=2 after down, got %d", updated.selected)
	}
	if cmd == nil {
		t.Error("expected a status-load command after navigation")
	}

	updatedModel, _ = updated.Update(tea.KeyMsg{Type: tea.KeyUp})
	updated = updatedModel.(Model)
	if updated.selected != 1 {
		t.Errorf("expected selected=1 after up, got %d", updated.selected)
	}
}

func TestUpdate_QuitKey(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	canceled := false
	model := Model{ctx: ctx, cancel: func() { canceled = true; cancel() }}

	updatedModel, cmd := model.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	updated := updatedModel.(Model)

	if !updated.quitting {
		t.Error("expected quitting=true after ctrl+c")
	}
	if !canceled {
		t.Error("expected cancel() to be called")
	}
	if cmd == nil {
		t.Error("expected tea.Quit command")
	}
}

func TestUpdate_SpinnerTickMsg(t *testing.T) {
	model := Model{}
	updatedModel, _ := model.Update(spinner.TickMsg{})
	_ = updatedModel.(Model) // should not panic
}

func TestView_NoJobs(t *testing.T) {
	model := Model{}
	output := model.View()
	if !containsSubstring(output, "No jobs yet") {
		t.Errorf("expected empty-state message, got: %s", output)
	}
}

func TestView_WithJobsAndStatus(t *testing.T) {
	model := Model{
		jobs:      []registry.Summary{{ID: "1_1", Status: job.StatusActive, Origin: "https://example.com/", VisitedCount: 2}},
		liveCount: 1,
		status: &result.JobStatusView{
			JobID:        "1_1",
			Status:       "Active",
			Origin:       "https://example.com/",
			VisitedCount: 2,
			Logs:         []string{"fetched https://example.com/"},
			QueuePreview: []string{"https://example.com/a (depth: 1)"},
		},
	}
	output := model.View()
	for _, want := range []string{"1_1", "https://example.com/", "fetched https://example.com/", "depth: 1"} {
		if !containsSubstring(output, want) {
			t.Errorf("expected %q in view, got: %s", want, output)
		}
	}
}

func TestView_Quitting(t *testing.T) {
	model := Model{quitting: true}
	if model.View() != "\n" {
		t.Errorf("expected blank view while quitting, got %q", model.View())
	}
}

// containsSubstring checks for a substring in a string that may contain ANSI codes.
func containsSubstring(haystack, needle string) bool {
	return len(haystack) > 0 && len(needle) > 0 &&
		strings.Contains(haystack, needle)
}
