// Package report assembles per-task outcomes into a deterministic batch
// report.
package report

import (
	"fmt"
	"strings"

	"github.com/taskmill/taskmill/pkg/models"
)

// maxResultNarrativeLen bounds how much of a task's result text appears
// in the combined narrative.
const maxResultNarrativeLen = 500

// Aggregate builds the BatchReport for one finished batch. Outcomes are
// ordered and narrated in submission order, never completion order, so
// the report is identical across runs regardless of scheduler timing.
func Aggregate(batch models.Batch, outcomes map[string]models.TaskOutcome, totalMs int64) models.BatchReport {
	r := models.BatchReport{
		SessionID:            batch.SessionID,
		TotalTasks:           len(batch.Tasks),
		Outcomes:             make([]models.TaskOutcome, 0, len(batch.Tasks)),
		TotalExecutionTimeMs: totalMs,
	}

	var lines []string
	for i, task := range batch.Tasks {
		out := outcomes[task.ID]
		r.Outcomes = append(r.Outcomes, out)

		switch out.State {
		case models.TaskStateCompleted:
			r.CompletedCount++
		case models.TaskStateFailed:
			r.FailedCount++
		case models.TaskStateSkipped:
			r.SkippedCount++
		}
		if out.TokensUsed != nil {
			r.TotalTokens += *out.TokensUsed
		}

		lines = append(lines, narrateTask(i, out))
	}

	r.Narrative = strings.Join(lines, "\n\n")
	r.Success = r.FailedCount == 0 && r.SkippedCount == 0
	return r
}

// narrateTask renders one task's narrative block: identity, terminal
// state, and the result, error, or skip cause.
func narrateTask(pos int, out models.TaskOutcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "### Task %d: %s\n", pos+1, out.TaskID)
	fmt.Fprintf(&b, "Status: %s\n", out.State)

	switch out.State {
	case models.TaskStateCompleted:
		fmt.Fprintf(&b, "Time: %dms\n", out.ExecutionTimeMs)
		fmt.Fprintf(&b, "Result:\n%s", truncate(out.ResultText, maxResultNarrativeLen))
	case models.TaskStateFailed:
		fmt.Fprintf(&b, "Time: %dms\n", out.ExecutionTimeMs)
		fmt.Fprintf(&b, "Error: %s", out.ErrorMessage)
	case models.TaskStateSkipped:
		fmt.Fprintf(&b, "Skipped: %s", out.SkipReason)
	}

	return b.String()
}

// truncate bounds s to max runes, marking the cut.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "... (truncated)"
}
