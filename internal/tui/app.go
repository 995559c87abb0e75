// Package tui provides the live run monitor for Concord.
package tui

import (
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/concordlabs/concord/internal/orchestrator"
	"github.com/concordlabs/concord/pkg/models"
)

// Tab constants for navigation.
const (
	TabTasks = iota
	TabLogs
)

// EventMsg wraps one orchestrator event for the TUI.
type EventMsg struct {
	Event orchestrator.Event
}

// StreamClosedMsg signals the orchestrator has no more events.
type StreamClosedMsg struct{}

// LogEntry is one line in the logs tab.
type LogEntry struct {
	Timestamp time.Time
	Level     string
	Message   string
}

// taskRow is the TUI's view of one task, built purely from events.
type taskRow struct {
	id      string
	status  models.TaskStatus
	reason  models.FailureReason
	attempt int
}

var (
	titleStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#4ECDC4")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#96E6A1"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	runStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC857"))
)

// App is the main bubbletea model for the Concord run monitor.
type App struct {
	// events is the orchestrator's event stream.
	events <-chan orchestrator.Event
	// currentTab is the currently selected tab.
	currentTab int
	// rows tracks per-task state keyed by task ID.
	rows map[string]*taskRow
	// logs is the list of log entries.
	logs []LogEntry
	// spin animates while the run is live.
	spin spinner.Model
	// width is the terminal width.
	width int
	// height is the terminal height.
	height int
	// done indicates the run reached a terminal state.
	done bool
	// quitting indicates the app is shutting down.
	quitting bool
}

// New creates a new App over an orchestrator event stream.
func New(events <-chan orchestrator.Event) *App {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = runStyle
	return &App{
		events: events,
		rows:   make(map[string]*taskRow),
		spin:   s,
		width:  80,
	}
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.spin.Tick, a.waitForEvent())
}

// waitForEvent blocks on the event stream and feeds the next event into the
// update loop.
func (a *App) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-a.events
		if !ok {
			return StreamClosedMsg{}
		}
		return EventMsg{Event: ev}
	}
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			a.quitting = true
			return a, tea.Quit
		case "tab":
			a.currentTab = (a.currentTab + 1) % 2
		case "1":
			a.currentTab = TabTasks
		case "2":
			a.currentTab = TabLogs
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height

	case EventMsg:
		a.apply(msg.Event)
		return a, a.waitForEvent()

	case StreamClosedMsg:
		a.done = true

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		return a, cmd
	}

	return a, nil
}

// apply folds one orchestrator event into the model.
func (a *App) apply(ev orchestrator.Event) {
	if ev.Type == orchestrator.EventRunDone {
		a.done = true
		a.log(ev.Timestamp, "INFO", "run finished")
		return
	}
	if ev.TaskID == "" {
		return
	}

	row, ok := a.rows[ev.TaskID]
	if !ok {
		row = &taskRow{id: ev.TaskID, status: models.TaskStatusPending}
		a.rows[ev.TaskID] = row
	}
	row.status = ev.Status
	row.reason = ev.Reason
	if ev.Attempt > row.attempt {
		row.attempt = ev.Attempt
	}

	level := "INFO"
	if ev.Type == orchestrator.EventTaskFailed {
		level = "ERROR"
	}
	msg := string(ev.Type)
	if ev.Message != "" {
		msg += ": " + ev.Message
	}
	a.log(ev.Timestamp, level, fmt.Sprintf("%s %s", ev.TaskID, msg))
}

func (a *App) log(ts time.Time, level, message string) {
	a.logs = append(a.logs, LogEntry{Timestamp: ts, Level: level, Message: message})
}

// View implements tea.Model.
func (a *App) View() string {
	if a.quitting {
		return "Goodbye!\n"
	}

	var content string
	switch a.currentTab {
	case TabTasks:
		content = a.viewTasks()
	case TabLogs:
		content = a.viewLogs()
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", a.viewHeader(), content, a.viewFooter())
}

// viewHeader renders the title and tab bar.
func (a *App) viewHeader() string {
	title := titleStyle.Render("concord")
	if !a.done {
		title += " " + a.spin.View()
	}

	tabs := []string{"Tasks", "Logs"}
	var bar string
	for i, tab := range tabs {
		if i == a.currentTab {
			bar += fmt.Sprintf("[%s] ", tab)
		} else {
			bar += dimStyle.Render(fmt.Sprintf(" %s  ", tab))
		}
	}
	return title + "  " + bar
}

// viewTasks renders the tasks tab.
func (a *App) viewTasks() string {
	if len(a.rows) == 0 {
		return dimStyle.Render("No tasks yet")
	}

	ids := make([]string, 0, len(a.rows))
	for id := range a.rows {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var view string
	for _, id := range ids {
		row := a.rows[id]
		line := fmt.Sprintf("  %s %-24s attempt %d", statusGlyph(row), id, row.attempt)
		if row.reason != models.FailureNone {
			line += failStyle.Render("  " + string(row.reason))
		}
		view += line + "\n"
	}
	return view
}

// statusGlyph maps a task status to a colored marker.
func statusGlyph(row *taskRow) string {
	switch row.status {
	case models.TaskStatusSucceeded:
		return successStyle.Render("✓")
	case models.TaskStatusFailed:
		return failStyle.Render("✗")
	case models.TaskStatusRunning, models.TaskStatusAwaitingConsensus:
		return runStyle.Render("●")
	default:
		return dimStyle.Render("○")
	}
}

// viewLogs renders the logs tab.
func (a *App) viewLogs() string {
	if len(a.logs) == 0 {
		return dimStyle.Render("No log entries")
	}

	// Show the most recent logs (up to 20)
	start := 0
	if len(a.logs) > 20 {
		start = len(a.logs) - 20
	}

	var view string
	for _, entry := range a.logs[start:] {
		ts := entry.Timestamp.Format("15:04:05")
		line := fmt.Sprintf("  %s [%s] %s", ts, entry.Level, entry.Message)
		if entry.Level == "ERROR" {
			line = failStyle.Render(line)
		}
		view += line + "\n"
	}
	return view
}

// viewFooter renders the footer with help text.
func (a *App) viewFooter() string {
	if a.done {
		succeeded, failed := a.tally()
		summary := fmt.Sprintf("Run finished: %d succeeded, %d failed", succeeded, failed)
		if failed > 0 {
			return failStyle.Render("✗ "+summary) + dimStyle.Render(" | Press q to exit")
		}
		return successStyle.Render("✓ "+summary) + dimStyle.Render(" | Press q to exit")
	}
	return dimStyle.Render("Press 1/2 or Tab to switch tabs | q to quit")
}

// tally counts terminal tasks for the footer summary.
func (a *App) tally() (succeeded, failed int) {
	for _, row := range a.rows {
		switch row.status {
		case models.TaskStatusSucceeded:
			succeeded++
		case models.TaskStatusFailed:
			failed++
		}
	}
	return succeeded, failed
}

// Run starts the TUI over an orchestrator event stream and blocks until the
// user quits.
func Run(events <-chan orchestrator.Event) error {
	p := tea.NewProgram(New(events), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
