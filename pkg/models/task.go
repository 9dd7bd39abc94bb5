package models

// TaskType identifies which executor handles a task. The set is closed:
// the scheduler never interprets the type beyond routing.
type TaskType string

const (
	// TaskTypeDebug routes the task to the debugging executor.
	TaskTypeDebug TaskType = "debug"
	// TaskTypeAnalyze routes the task to the code-analysis executor.
	TaskTypeAnalyze TaskType = "analyze"
	// TaskTypeDocGenerate routes the task to the documentation executor.
	TaskTypeDocGenerate TaskType = "doc-generate"
)

// Valid returns true if the task type is a known value.
func (t TaskType) Valid() bool {
	switch t {
	case TaskTypeDebug, TaskTypeAnalyze, TaskTypeDocGenerate:
		return true
	default:
		return false
	}
}

// TaskState represents the current state of a task within a batch.
// States only advance forward: pending -> ready -> running -> terminal.
type TaskState string

const (
	// TaskStatePending indicates the task is waiting on dependencies.
	TaskStatePending TaskState = "pending"
	// TaskStateReady indicates all dependencies completed and the task can run.
	TaskStateReady TaskState = "ready"
	// TaskStateRunning indicates the task has been dispatched to the executor.
	TaskStateRunning TaskState = "running"
	// TaskStateCompleted indicates the task finished successfully.
	TaskStateCompleted TaskState = "completed"
	// TaskStateFailed indicates the executor reported or raised a failure.
	TaskStateFailed TaskState = "failed"
	// TaskStateSkipped indicates a prerequisite failed or the batch was
	// cancelled before the task could run. Skipped tasks never reach the
	// executor.
	TaskStateSkipped TaskState = "skipped"
)

// Valid returns true if the state is a known value.
func (s TaskState) Valid() bool {
	switch s {
	case TaskStatePending, TaskStateReady, TaskStateRunning,
		TaskStateCompleted, TaskStateFailed, TaskStateSkipped:
		return true
	default:
		return false
	}
}

// Terminal returns true if no further transitions are possible from s.
func (s TaskState) Terminal() bool {
	switch s {
	case TaskStateCompleted, TaskStateFailed, TaskStateSkipped:
		return true
	default:
		return false
	}
}

// CanTransition reports whether advancing from s to next is a legal
// forward move in the task lifecycle.
func (s TaskState) CanTransition(next TaskState) bool {
	switch s {
	case TaskStatePending:
		return next == TaskStateReady || next == TaskStateSkipped
	case TaskStateReady:
		return next == TaskStateRunning || next == TaskStateSkipped
	case TaskStateRunning:
		return next == TaskStateCompleted || next == TaskStateFailed
	default:
		return false
	}
}

// ConcurrencyMode controls how ready tasks are dispatched.
type ConcurrencyMode string

const (
	// ModeParallel dispatches all currently-ready tasks concurrently.
	ModeParallel ConcurrencyMode = "parallel"
	// ModeSequential runs exactly one task at a time.
	ModeSequential ConcurrencyMode = "sequential"
)

// Valid returns true if the mode is a known value.
func (m ConcurrencyMode) Valid() bool {
	return m == ModeParallel || m == ModeSequential
}

// TaskDescriptor is the immutable caller-supplied record of one task.
type TaskDescriptor struct {
	// ID uniquely identifies the task within its batch.
	ID string `json:"task_id" yaml:"task_id"`
	// Type selects the executor that performs the work.
	Type TaskType `json:"task_type" yaml:"task_type"`
	// Input is the opaque payload handed to the executor. The scheduler
	// never inspects it.
	Input map[string]string `json:"input_data,omitempty" yaml:"input_data,omitempty"`
	// DependsOn lists task IDs that must complete before this task runs.
	DependsOn []string `json:"depends_on,omitempty" yaml:"depends_on,omitempty"`
	// Priority is a scheduling hint: higher runs first among ready tasks.
	Priority int `json:"priority,omitempty" yaml:"priority,omitempty"`
}

// Batch is one caller-submitted set of tasks sharing a session and
// concurrency mode. Batches are immutable inputs; the orchestrator keeps
// no state across them.
type Batch struct {
	// SessionID is the opaque correlation key for history recording.
	// Generated if empty.
	SessionID string `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	// Mode selects parallel or sequential dispatch. Defaults to sequential.
	Mode ConcurrencyMode `json:"concurrency_mode,omitempty" yaml:"concurrency_mode,omitempty"`
	// Context is an optional shared string passed to every executor call.
	Context string `json:"context,omitempty" yaml:"context,omitempty"`
	// Tasks is the ordered task list. Submission order is the stable
	// tie-break for scheduling and the narrative order for reports.
	Tasks []TaskDescriptor `json:"tasks" yaml:"tasks"`
}
