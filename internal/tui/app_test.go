package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/concordlabs/concord/internal/orchestrator"
	"github.com/concordlabs/concord/pkg/models"
)

func applyEvents(a *App, events ...orchestrator.Event) {
	for _, ev := range events {
		if ev.Timestamp.IsZero() {
			ev.Timestamp = time.Now()
		}
		a.apply(ev)
	}
}

func TestApplyTracksTaskLifecycle(t *testing.T) {
	a := New(nil)
	applyEvents(a,
		orchestrator.Event{Type: orchestrator.EventTaskStarted, TaskID: "build", Status: models.TaskStatusRunning, Attempt: 1},
		orchestrator.Event{Type: orchestrator.EventTaskRetrying, TaskID: "build", Status: models.TaskStatusRunning, Attempt: 1},
		orchestrator.Event{Type: orchestrator.EventTaskStarted, TaskID: "build", Status: models.TaskStatusRunning, Attempt: 2},
		orchestrator.Event{Type: orchestrator.EventTaskSucceeded, TaskID: "build", Status: models.TaskStatusSucceeded, Attempt: 2},
	)

	row, ok := a.rows["build"]
	if !ok {
		t.Fatal("no row tracked for task build")
	}
	if row.status != models.TaskStatusSucceeded {
		t.Errorf("status = %q, want succeeded", row.status)
	}
	if row.attempt != 2 {
		t.Errorf("attempt = %d, want 2", row.attempt)
	}
	if len(a.logs) != 4 {
		t.Errorf("logged %d entries, want 4", len(a.logs))
	}
}

func TestApplyFailureShowsReason(t *testing.T) {
	a := New(nil)
	applyEvents(a, orchestrator.Event{
		Type:   orchestrator.EventTaskFailed,
		TaskID: "deploy",
		Status: models.TaskStatusFailed,
		Reason: models.FailureConsensus,
	})

	view := a.viewTasks()
	if !strings.Contains(view, "deploy") || !strings.Contains(view, "consensus_failure") {
		t.Errorf("tasks view missing failure detail:\n%s", view)
	}
	if a.logs[0].Level != "ERROR" {
		t.Errorf("failure logged at %q, want ERROR", a.logs[0].Level)
	}
}

func TestRunDoneFinishesFooter(t *testing.T) {
	a := New(nil)
	applyEvents(a,
		orchestrator.Event{Type: orchestrator.EventTaskSucceeded, TaskID: "a", Status: models.TaskStatusSucceeded},
		orchestrator.Event{Type: orchestrator.EventRunDone},
	)

	if !a.done {
		t.Fatal("run_done did not mark the app done")
	}
	footer := a.viewFooter()
	if !strings.Contains(footer, "1 succeeded, 0 failed") {
		t.Errorf("footer = %q", footer)
	}
}

func TestUpdateConsumesEventStream(t *testing.T) {
	events := make(chan orchestrator.Event, 2)
	events <- orchestrator.Event{Type: orchestrator.EventTaskStarted, TaskID: "a", Status: models.TaskStatusRunning, Attempt: 1}
	close(events)

	a := New(events)

	msg := a.waitForEvent()()
	model, cmd := a.Update(msg)
	a = model.(*App)
	if _, ok := a.rows["a"]; !ok {
		t.Fatal("event from stream not applied")
	}
	if cmd == nil {
		t.Fatal("expected a follow-up wait command")
	}

	// The channel is closed, so the next wait reports the stream end.
	if msg := a.waitForEvent()(); msg != (StreamClosedMsg{}) {
		t.Errorf("next message = %#v, want StreamClosedMsg", msg)
	}
}

func TestKeysSwitchTabs(t *testing.T) {
	a := New(nil)
	model, _ := a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'2'}})
	a = model.(*App)
	if a.currentTab != TabLogs {
		t.Errorf("tab = %d, want logs", a.currentTab)
	}
	model, _ = a.Update(tea.KeyMsg{Type: tea.KeyTab})
	a = model.(*App)
	if a.currentTab != TabTasks {
		t.Errorf("tab = %d, want tasks after wrap", a.currentTab)
	}
}
