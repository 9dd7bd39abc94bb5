package scheduler

import (
	"log"
	"sync/atomic"
	"time"

	"github.com/taskmill/taskmill/pkg/models"
)

// EventType represents the kind of scheduler event.
type EventType string

const (
	// EventTaskQueued indicates a task became ready for dispatch.
	EventTaskQueued EventType = "task_queued"
	// EventTaskStarted indicates a task was handed to the executor.
	EventTaskStarted EventType = "task_started"
	// EventTaskCompleted indicates a task completed successfully.
	EventTaskCompleted EventType = "task_completed"
	// EventTaskFailed indicates a task failed.
	EventTaskFailed EventType = "task_failed"
	// EventTaskSkipped indicates a task was skipped without executing.
	EventTaskSkipped EventType = "task_skipped"
)

// TaskEvent is pushed onto the emitter as tasks change state. Consumers
// (progress display, external channels) are decoupled from scheduling.
type TaskEvent struct {
	// Type is the kind of event.
	Type EventType
	// TaskID is the affected task.
	TaskID string
	// State is the task's state after the transition.
	State models.TaskState
	// Message provides additional context (error text, skip reason).
	Message string
	// Err carries the failure for task_failed events.
	Err error
	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// Emitter delivers TaskEvents to a single subscriber channel without
// ever blocking scheduling for long.
type Emitter struct {
	events       chan TaskEvent
	droppedCount atomic.Uint64
}

// NewEmitter creates an Emitter with the given buffer size.
func NewEmitter(bufferSize int) *Emitter {
	return &Emitter{
		events: make(chan TaskEvent, bufferSize),
	}
}

// Emit sends an event. If the channel stays full past a short grace
// period the event is dropped and counted.
func (e *Emitter) Emit(event TaskEvent) {
	select {
	case e.events <- event:
		return
	default:
	}

	select {
	case e.events <- event:
		return
	case <-time.After(100 * time.Millisecond):
		count := e.droppedCount.Add(1)
		if count%10 == 1 {
			log.Printf("[scheduler] WARNING: event channel full, dropped event (total dropped: %d): type=%s", count, event.Type)
		}
	}
}

// DroppedCount returns the number of events dropped so far.
func (e *Emitter) DroppedCount() uint64 {
	return e.droppedCount.Load()
}

// Events returns the read-only subscriber channel.
func (e *Emitter) Events() <-chan TaskEvent {
	return e.events
}

// Close closes the event channel. Call only after scheduling finished.
func (e *Emitter) Close() {
	close(e.events)
}
