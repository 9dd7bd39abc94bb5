// Package scheduler walks a validated dependency graph and dispatches
// ready tasks to an opaque executor, in rounds, until every task reaches
// a terminal state.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/taskmill/taskmill/internal/graph"
	"github.com/taskmill/taskmill/pkg/models"
)

// Result is what an executor returns for a completed task.
type Result struct {
	// Text is the free-text result of the task.
	Text string
	// TokensUsed is the model token count, if the executor reports one.
	TokensUsed *int64
	// Model names the model that produced the result, if any.
	Model string
}

// Executor is the opaque collaborator that performs a task's work.
// Implementations must be safe for concurrent calls from tasks of the
// same batch. A returned error marks the task failed; it never aborts
// sibling tasks.
type Executor interface {
	Execute(ctx context.Context, task models.TaskDescriptor, shared string) (Result, error)
}

// Scheduler tracks per-task state for one batch and drives execution.
// It owns the TaskState and TaskOutcome records: each is written by the
// scheduling round that dispatched the task, and the readiness index is
// the only shared computation guarded by the mutex.
type Scheduler struct {
	graph  *graph.Graph
	exec   Executor
	mode   models.ConcurrencyMode
	shared string

	// maxConcurrent caps parallel-mode dispatch. Zero means unbounded.
	maxConcurrent int
	emitter       *Emitter

	mu        sync.Mutex
	states    []models.TaskState
	outcomes  []models.TaskOutcome
	remaining int
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithMaxConcurrent caps the number of concurrently dispatched tasks in
// parallel mode. Zero or negative means unbounded.
func WithMaxConcurrent(n int) Option {
	return func(s *Scheduler) {
		s.maxConcurrent = n
	}
}

// WithEmitter attaches an event emitter receiving a TaskEvent per state
// transition.
func WithEmitter(e *Emitter) Option {
	return func(s *Scheduler) {
		s.emitter = e
	}
}

// New creates a Scheduler for one batch. Every task starts pending.
func New(g *graph.Graph, exec Executor, mode models.ConcurrencyMode, shared string, opts ...Option) *Scheduler {
	s := &Scheduler{
		graph:     g,
		exec:      exec,
		mode:      mode,
		shared:    shared,
		states:    make([]models.TaskState, g.Len()),
		outcomes:  make([]models.TaskOutcome, g.Len()),
		remaining: g.Len(),
	}
	for i := range s.states {
		s.states[i] = models.TaskStatePending
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes the batch until every task is terminal, then returns the
// outcomes keyed by task ID. Dispatch proceeds in rounds: all currently
// ready tasks fan out (parallel mode) or the single highest-ranked ready
// task runs (sequential mode), the round joins, and readiness is
// re-evaluated.
//
// Cancelling ctx lets in-flight tasks finish on their own and skips
// everything not yet dispatched; Run still returns a full outcome set.
func (s *Scheduler) Run(ctx context.Context) map[string]models.TaskOutcome {
	for {
		s.mu.Lock()
		remaining := s.remaining
		s.mu.Unlock()
		if remaining == 0 {
			break
		}

		if ctx.Err() != nil {
			s.skipRemaining(cancelledReason)
			break
		}

		ready := s.nextReady()
		if len(ready) == 0 {
			// Should not happen on an acyclic graph with eager skip
			// propagation; bail out rather than spin.
			debugLog("[scheduler] no ready tasks with %d remaining, aborting round loop", remaining)
			s.skipRemaining("scheduler stalled")
			break
		}

		if s.mode == models.ModeSequential {
			ready = ready[:1]
		}

		for _, i := range ready {
			s.setState(i, models.TaskStateReady)
			s.emit(EventTaskQueued, s.graph.Task(i).ID, models.TaskStateReady, "", nil)
		}

		var eg errgroup.Group
		if s.mode == models.ModeParallel && s.maxConcurrent > 0 {
			eg.SetLimit(s.maxConcurrent)
		}
		for _, i := range ready {
			i := i
			s.setState(i, models.TaskStateRunning)
			s.emit(EventTaskStarted, s.graph.Task(i).ID, models.TaskStateRunning, "", nil)
			eg.Go(func() error {
				s.runTask(ctx, i)
				return nil
			})
		}
		// Join point: later rounds depend on this round's results.
		_ = eg.Wait()
	}

	out := make(map[string]models.TaskOutcome, s.graph.Len())
	for i := range s.outcomes {
		out[s.graph.Task(i).ID] = s.outcomes[i]
	}
	return out
}

// cancelledReason is recorded on tasks skipped because the batch was
// cancelled rather than because an ancestor failed.
const cancelledReason = "batch cancelled"

// runTask invokes the executor exactly once for the task at index i and
// records the terminal outcome. Failures propagate skips to every
// transitive dependent.
func (s *Scheduler) runTask(ctx context.Context, i int) {
	task := s.graph.Task(i)
	start := time.Now()
	res, err := s.exec.Execute(ctx, task, s.shared)
	elapsed := time.Since(start).Milliseconds()

	if err != nil {
		debugLog("[scheduler] task %s failed after %dms: %v", task.ID, elapsed, err)
		outcome := models.TaskOutcome{
			TaskID:          task.ID,
			Type:            task.Type,
			State:           models.TaskStateFailed,
			ErrorMessage:    err.Error(),
			ExecutionTimeMs: elapsed,
		}
		skipped := s.finish(i, outcome)
		s.emit(EventTaskFailed, task.ID, models.TaskStateFailed, err.Error(), err)
		for _, sk := range skipped {
			s.emit(EventTaskSkipped, sk.TaskID, models.TaskStateSkipped, sk.SkipReason, nil)
		}
		return
	}

	debugLog("[scheduler] task %s completed in %dms", task.ID, elapsed)
	outcome := models.TaskOutcome{
		TaskID:          task.ID,
		Type:            task.Type,
		State:           models.TaskStateCompleted,
		ResultText:      res.Text,
		ExecutionTimeMs: elapsed,
		TokensUsed:      res.TokensUsed,
		ModelUsed:       res.Model,
	}
	s.finish(i, outcome)
	s.emit(EventTaskCompleted, task.ID, models.TaskStateCompleted, "", nil)
}

// finish records a terminal outcome for task i. When the outcome is a
// failure it marks every transitive dependent skipped and returns those
// outcomes so the caller can emit events outside the lock.
func (s *Scheduler) finish(i int, outcome models.TaskOutcome) []models.TaskOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.states[i] = outcome.State
	s.outcomes[i] = outcome
	s.remaining--

	if outcome.State != models.TaskStateFailed {
		return nil
	}
	return s.skipDependentsLocked(i, outcome.TaskID)
}

// skipDependentsLocked marks every transitive dependent of the failed
// task at index i as skipped, recording the ancestor whose failure
// caused the skip. Caller must hold s.mu.
func (s *Scheduler) skipDependentsLocked(i int, failedID string) []models.TaskOutcome {
	var skipped []models.TaskOutcome
	queue := append([]int(nil), s.graph.Dependents(i)...)
	for len(queue) > 0 {
		j := queue[0]
		queue = queue[1:]
		if s.states[j].Terminal() {
			continue
		}
		task := s.graph.Task(j)
		outcome := models.TaskOutcome{
			TaskID:     task.ID,
			Type:       task.Type,
			State:      models.TaskStateSkipped,
			SkipReason: fmt.Sprintf("dependency failed: %s", failedID),
		}
		s.states[j] = models.TaskStateSkipped
		s.outcomes[j] = outcome
		s.remaining--
		skipped = append(skipped, outcome)
		queue = append(queue, s.graph.Dependents(j)...)
	}
	return skipped
}

// skipRemaining terminalizes every non-terminal task with the given
// reason. Used for cancellation.
func (s *Scheduler) skipRemaining(reason string) {
	s.mu.Lock()
	var skipped []models.TaskOutcome
	for i := range s.states {
		if s.states[i].Terminal() {
			continue
		}
		task := s.graph.Task(i)
		outcome := models.TaskOutcome{
			TaskID:     task.ID,
			Type:       task.Type,
			State:      models.TaskStateSkipped,
			SkipReason: reason,
		}
		s.states[i] = models.TaskStateSkipped
		s.outcomes[i] = outcome
		s.remaining--
		skipped = append(skipped, outcome)
	}
	s.mu.Unlock()

	for _, sk := range skipped {
		s.emit(EventTaskSkipped, sk.TaskID, models.TaskStateSkipped, sk.SkipReason, nil)
	}
}

// nextReady returns the indices of pending tasks whose dependencies all
// completed, ordered by descending priority then ascending submission
// order. The ordering is deterministic for identical input.
func (s *Scheduler) nextReady() []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ready []int
	for i := range s.states {
		if s.states[i] != models.TaskStatePending {
			continue
		}
		eligible := true
		for _, dep := range s.graph.Dependencies(i) {
			if s.states[dep] != models.TaskStateCompleted {
				eligible = false
				break
			}
		}
		if eligible {
			ready = append(ready, i)
		}
	}

	sort.SliceStable(ready, func(a, b int) bool {
		ta, tb := s.graph.Task(ready[a]), s.graph.Task(ready[b])
		if ta.Priority != tb.Priority {
			return ta.Priority > tb.Priority
		}
		return s.graph.Order(ready[a]) < s.graph.Order(ready[b])
	})

	return ready
}

// setState advances the task at index i, asserting forward-only moves.
func (s *Scheduler) setState(i int, next models.TaskState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.states[i].CanTransition(next) {
		debugLog("[scheduler] illegal transition %s -> %s for task %s", s.states[i], next, s.graph.Task(i).ID)
		return
	}
	s.states[i] = next
}

// emit sends an event when an emitter is attached.
func (s *Scheduler) emit(typ EventType, taskID string, state models.TaskState, msg string, err error) {
	if s.emitter == nil {
		return
	}
	s.emitter.Emit(TaskEvent{
		Type:      typ,
		TaskID:    taskID,
		State:     state,
		Message:   msg,
		Err:       err,
		Timestamp: time.Now(),
	})
}
