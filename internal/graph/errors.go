package graph

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for batch validation failures. All are detected before
// any executor call; a batch that trips one is rejected with zero side
// effects.
var (
	// ErrDuplicateTaskID indicates two descriptors share an ID.
	ErrDuplicateTaskID = errors.New("duplicate task id")
	// ErrUnknownDependency indicates a depends_on entry has no matching
	// descriptor in the batch.
	ErrUnknownDependency = errors.New("unknown dependency")
	// ErrCycleDetected indicates the dependency relation contains a cycle.
	ErrCycleDetected = errors.New("circular dependency detected")
)

// DuplicateTaskIDError names the task ID that appears more than once.
type DuplicateTaskIDError struct {
	TaskID string
}

func (e *DuplicateTaskIDError) Error() string {
	return fmt.Sprintf("duplicate task id %q", e.TaskID)
}

func (e *DuplicateTaskIDError) Unwrap() error { return ErrDuplicateTaskID }

// UnknownDependencyError names the task and the dependency it references
// that does not exist in the batch.
type UnknownDependencyError struct {
	TaskID    string
	DependsOn string
}

func (e *UnknownDependencyError) Error() string {
	return fmt.Sprintf("task %q depends on unknown task %q", e.TaskID, e.DependsOn)
}

func (e *UnknownDependencyError) Unwrap() error { return ErrUnknownDependency }

// CycleError carries the task IDs participating in a dependency cycle,
// in the order they were encountered.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("circular dependency detected: %s", strings.Join(e.Path, " -> "))
}

func (e *CycleError) Unwrap() error { return ErrCycleDetected }
