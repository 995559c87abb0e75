package orchestrator

import (
	"time"

	"github.com/concordlabs/concord/internal/graph"
	"github.com/concordlabs/concord/pkg/models"
)

// TaskReport is the terminal record for one task.
type TaskReport struct {
	// ID is the task identifier.
	ID string `json:"id"`
	// Status is the terminal status.
	Status models.TaskStatus `json:"status"`
	// Reason classifies the failure, empty for succeeded tasks.
	Reason models.FailureReason `json:"reason,omitempty"`
	// Detail carries the last error message for failed tasks.
	Detail string `json:"detail,omitempty"`
	// Attempts is the number of dispatch attempts made.
	Attempts int `json:"attempts"`
	// Result is the accepted answer for succeeded tasks.
	Result string `json:"result,omitempty"`
}

// RunReport aggregates per-task terminal state for one run.
type RunReport struct {
	// RunID identifies the run.
	RunID string `json:"run_id"`
	// StartedAt is when scheduling began.
	StartedAt time.Time `json:"started_at"`
	// Elapsed is the wall-clock duration of the run.
	Elapsed time.Duration `json:"elapsed"`
	// Tasks lists terminal records ordered by task ID.
	Tasks []TaskReport `json:"tasks"`
	// Succeeded counts tasks that completed with a result.
	Succeeded int `json:"succeeded"`
	// Failed counts tasks that failed for any reason.
	Failed int `json:"failed"`
	// Cancelled is true when the run stopped on an external signal.
	Cancelled bool `json:"cancelled,omitempty"`
}

// buildReport snapshots the graph into a RunReport.
func buildReport(runID string, g *graph.Graph, startedAt time.Time, cancelled bool) *RunReport {
	report := &RunReport{
		RunID:     runID,
		StartedAt: startedAt,
		Elapsed:   time.Since(startedAt),
		Cancelled: cancelled,
	}

	for _, task := range g.Tasks() {
		report.Tasks = append(report.Tasks, TaskReport{
			ID:       task.ID,
			Status:   task.Status,
			Reason:   task.Reason,
			Detail:   task.Detail,
			Attempts: task.Attempts,
			Result:   task.Result,
		})
		switch task.Status {
		case models.TaskStatusSucceeded:
			report.Succeeded++
		case models.TaskStatusFailed:
			report.Failed++
		}
	}
	return report
}
