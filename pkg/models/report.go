package models

// TaskOutcome is the terminal record of one task execution.
// Exactly one of ResultText and ErrorMessage is set for completed and
// failed tasks; skipped tasks carry only a SkipReason.
type TaskOutcome struct {
	// TaskID is the ID of the task this outcome belongs to.
	TaskID string `json:"task_id"`
	// Type is the task's type, recorded for history.
	Type TaskType `json:"task_type"`
	// State is the terminal state: completed, failed, or skipped.
	State TaskState `json:"state"`
	// ResultText is the executor's free-text result. Present iff completed.
	ResultText string `json:"result,omitempty"`
	// ErrorMessage describes the failure. Present iff failed.
	ErrorMessage string `json:"error,omitempty"`
	// SkipReason names the ancestor failure or cancellation that caused a
	// skip. Present iff skipped.
	SkipReason string `json:"skip_reason,omitempty"`
	// ExecutionTimeMs is the wall-clock executor time. Zero for skipped tasks.
	ExecutionTimeMs int64 `json:"execution_time_ms"`
	// TokensUsed is the model token count, when the executor reports one.
	TokensUsed *int64 `json:"tokens_used,omitempty"`
	// ModelUsed names the model that produced the result, if any.
	ModelUsed string `json:"model_used,omitempty"`
}

// BatchReport is the deterministic aggregate result of one batch.
// Outcomes and the narrative follow submission order regardless of
// completion order.
type BatchReport struct {
	// SessionID is the session the batch was bound to.
	SessionID string `json:"session_id"`
	// Success is true iff no task failed and no task was skipped.
	Success bool `json:"success"`
	// TotalTasks is the number of tasks submitted.
	TotalTasks int `json:"total_tasks"`
	// CompletedCount is the number of tasks that completed.
	CompletedCount int `json:"completed_count"`
	// FailedCount is the number of tasks that failed.
	FailedCount int `json:"failed_count"`
	// SkippedCount is the number of tasks skipped by failure propagation
	// or cancellation.
	SkippedCount int `json:"skipped_count"`
	// Outcomes lists every task's outcome in submission order.
	Outcomes []TaskOutcome `json:"task_outcomes"`
	// Narrative is the combined human-readable result text.
	Narrative string `json:"narrative"`
	// TotalExecutionTimeMs is the wall-clock time for the whole batch.
	TotalExecutionTimeMs int64 `json:"total_execution_time_ms"`
	// TotalTokens is the sum of reported token usage across tasks.
	TotalTokens int64 `json:"total_tokens"`
}
