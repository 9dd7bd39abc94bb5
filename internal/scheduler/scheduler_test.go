package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/taskmill/taskmill/internal/graph"
	"github.com/taskmill/taskmill/pkg/models"
)

// fakeExecutor records invocations and returns canned results. Failures
// and per-task delays are configured by task ID.
type fakeExecutor struct {
	mu       sync.Mutex
	calls    map[string]int
	order    []string
	failIDs  map[string]bool
	delay    time.Duration
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{
		calls:   make(map[string]int),
		failIDs: make(map[string]bool),
	}
}

func (f *fakeExecutor) Execute(ctx context.Context, task models.TaskDescriptor, shared string) (Result, error) {
	cur := f.inFlight.Add(1)
	for {
		max := f.maxSeen.Load()
		if cur <= max || f.maxSeen.CompareAndSwap(max, cur) {
			break
		}
	}
	defer f.inFlight.Add(-1)

	f.mu.Lock()
	f.calls[task.ID]++
	f.order = append(f.order, task.ID)
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	if f.failIDs[task.ID] {
		return Result{}, errors.New("boom: " + task.ID)
	}
	tokens := int64(42)
	return Result{Text: "result for " + task.ID, TokensUsed: &tokens, Model: "fake-model"}, nil
}

func (f *fakeExecutor) callCount(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

func (f *fakeExecutor) callOrder() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.order...)
}

func mustBuild(t *testing.T, tasks []models.TaskDescriptor) *graph.Graph {
	t.Helper()
	g, err := graph.Build(tasks)
	if err != nil {
		t.Fatalf("build graph: %v", err)
	}
	return g
}

func TestRunEmptyGraph(t *testing.T) {
	g := mustBuild(t, nil)
	exec := newFakeExecutor()
	s := New(g, exec, models.ModeParallel, "")

	outcomes := s.Run(context.Background())
	if len(outcomes) != 0 {
		t.Errorf("expected no outcomes, got %d", len(outcomes))
	}
}

func TestRunSingleTask(t *testing.T) {
	g := mustBuild(t, []models.TaskDescriptor{
		{ID: "t1", Type: models.TaskTypeDebug},
	})
	exec := newFakeExecutor()
	s := New(g, exec, models.ModeSequential, "shared ctx")

	outcomes := s.Run(context.Background())

	out, ok := outcomes["t1"]
	if !ok {
		t.Fatal("missing outcome for t1")
	}
	if out.State != models.TaskStateCompleted {
		t.Errorf("expected completed, got %s", out.State)
	}
	if out.ResultText != "result for t1" {
		t.Errorf("unexpected result text %q", out.ResultText)
	}
	if out.TokensUsed == nil || *out.TokensUsed != 42 {
		t.Errorf("expected 42 tokens, got %v", out.TokensUsed)
	}
	if exec.callCount("t1") != 1 {
		t.Errorf("expected exactly 1 executor call, got %d", exec.callCount("t1"))
	}
}

func TestRunDependencyOrdering(t *testing.T) {
	// Chain: a <- b <- c. Dispatch must follow the chain in both modes.
	tasks := []models.TaskDescriptor{
		{ID: "c", DependsOn: []string{"b"}},
		{ID: "b", DependsOn: []string{"a"}},
		{ID: "a"},
	}

	for _, mode := range []models.ConcurrencyMode{models.ModeParallel, models.ModeSequential} {
		t.Run(string(mode), func(t *testing.T) {
			exec := newFakeExecutor()
			s := New(mustBuild(t, tasks), exec, mode, "")
			outcomes := s.Run(context.Background())

			for _, id := range []string{"a", "b", "c"} {
				if outcomes[id].State != models.TaskStateCompleted {
					t.Errorf("task %s: expected completed, got %s", id, outcomes[id].State)
				}
			}

			order := exec.callOrder()
			if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
				t.Errorf("expected dispatch order [a b c], got %v", order)
			}
		})
	}
}

func TestRunParallelConcurrency(t *testing.T) {
	tasks := []models.TaskDescriptor{
		{ID: "t1"}, {ID: "t2"}, {ID: "t3"},
	}
	exec := newFakeExecutor()
	exec.delay = 50 * time.Millisecond
	s := New(mustBuild(t, tasks), exec, models.ModeParallel, "")

	s.Run(context.Background())

	if max := exec.maxSeen.Load(); max < 2 {
		t.Errorf("expected independent tasks to overlap in parallel mode, max in-flight was %d", max)
	}
}

func TestRunSequentialNeverOverlaps(t *testing.T) {
	tasks := []models.TaskDescriptor{
		{ID: "t1"}, {ID: "t2"}, {ID: "t3"},
	}
	exec := newFakeExecutor()
	exec.delay = 20 * time.Millisecond
	s := New(mustBuild(t, tasks), exec, models.ModeSequential, "")

	s.Run(context.Background())

	if max := exec.maxSeen.Load(); max != 1 {
		t.Errorf("expected max 1 in-flight task in sequential mode, got %d", max)
	}
}

func TestRunMaxConcurrentCap(t *testing.T) {
	tasks := []models.TaskDescriptor{
		{ID: "t1"}, {ID: "t2"}, {ID: "t3"}, {ID: "t4"}, {ID: "t5"},
	}
	exec := newFakeExecutor()
	exec.delay = 30 * time.Millisecond
	s := New(mustBuild(t, tasks), exec, models.ModeParallel, "", WithMaxConcurrent(2))

	s.Run(context.Background())

	if max := exec.maxSeen.Load(); max > 2 {
		t.Errorf("expected at most 2 in-flight tasks with cap, got %d", max)
	}
}

func TestRunFailurePropagation(t *testing.T) {
	// a fails; b depends on a; c depends on b. Both must be skipped and
	// never dispatched.
	tasks := []models.TaskDescriptor{
		{ID: "a"},
		{ID: "b", DependsOn: []string{"a"}},
		{ID: "c", DependsOn: []string{"b"}},
	}
	exec := newFakeExecutor()
	exec.failIDs["a"] = true
	s := New(mustBuild(t, tasks), exec, models.ModeParallel, "")

	outcomes := s.Run(context.Background())

	if outcomes["a"].State != models.TaskStateFailed {
		t.Errorf("expected a failed, got %s", outcomes["a"].State)
	}
	if outcomes["a"].ErrorMessage == "" {
		t.Error("expected error message on failed task")
	}
	for _, id := range []string{"b", "c"} {
		out := outcomes[id]
		if out.State != models.TaskStateSkipped {
			t.Errorf("expected %s skipped, got %s", id, out.State)
		}
		if out.SkipReason != "dependency failed: a" {
			t.Errorf("task %s: unexpected skip reason %q", id, out.SkipReason)
		}
		if out.ResultText != "" || out.ErrorMessage != "" {
			t.Errorf("skipped task %s must carry neither result nor error", id)
		}
		if exec.callCount(id) != 0 {
			t.Errorf("skipped task %s must never reach the executor", id)
		}
	}
}

func TestRunFailureDoesNotAbortSiblings(t *testing.T) {
	tasks := []models.TaskDescriptor{
		{ID: "bad"},
		{ID: "good"},
	}
	exec := newFakeExecutor()
	exec.failIDs["bad"] = true
	s := New(mustBuild(t, tasks), exec, models.ModeParallel, "")

	outcomes := s.Run(context.Background())

	if outcomes["bad"].State != models.TaskStateFailed {
		t.Errorf("expected bad failed, got %s", outcomes["bad"].State)
	}
	if outcomes["good"].State != models.TaskStateCompleted {
		t.Errorf("expected good completed despite sibling failure, got %s", outcomes["good"].State)
	}
}

func TestRunDiamondPartialFailure(t *testing.T) {
	// T1 and T2 independent, T3 depends on both. T1 fails: T2 completes,
	// T3 is skipped.
	tasks := []models.TaskDescriptor{
		{ID: "T1"},
		{ID: "T2"},
		{ID: "T3", DependsOn: []string{"T1", "T2"}},
	}
	exec := newFakeExecutor()
	exec.failIDs["T1"] = true
	s := New(mustBuild(t, tasks), exec, models.ModeParallel, "")

	outcomes := s.Run(context.Background())

	if outcomes["T1"].State != models.TaskStateFailed {
		t.Errorf("T1: expected failed, got %s", outcomes["T1"].State)
	}
	if outcomes["T2"].State != models.TaskStateCompleted {
		t.Errorf("T2: expected completed, got %s", outcomes["T2"].State)
	}
	if outcomes["T3"].State != models.TaskStateSkipped {
		t.Errorf("T3: expected skipped, got %s", outcomes["T3"].State)
	}
	if exec.callCount("T3") != 0 {
		t.Error("T3 must not reach the executor")
	}
}

func TestRunSequentialPriorityOrder(t *testing.T) {
	tasks := []models.TaskDescriptor{
		{ID: "p5", Priority: 5},
		{ID: "p10", Priority: 10},
		{ID: "p1", Priority: 1},
	}
	exec := newFakeExecutor()
	s := New(mustBuild(t, tasks), exec, models.ModeSequential, "")

	s.Run(context.Background())

	order := exec.callOrder()
	want := []string{"p10", "p5", "p1"}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Errorf("expected dispatch order %v, got %v", want, order)
	}
}

func TestRunPriorityTieBreakSubmissionOrder(t *testing.T) {
	tasks := []models.TaskDescriptor{
		{ID: "first", Priority: 3},
		{ID: "second", Priority: 3},
		{ID: "third", Priority: 3},
	}
	exec := newFakeExecutor()
	s := New(mustBuild(t, tasks), exec, models.ModeSequential, "")

	s.Run(context.Background())

	order := exec.callOrder()
	want := []string{"first", "second", "third"}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Errorf("expected submission-order tie-break %v, got %v", want, order)
	}
}

func TestRunCancelledBeforeStart(t *testing.T) {
	tasks := []models.TaskDescriptor{
		{ID: "t1"}, {ID: "t2", DependsOn: []string{"t1"}},
	}
	exec := newFakeExecutor()
	s := New(mustBuild(t, tasks), exec, models.ModeParallel, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	outcomes := s.Run(ctx)

	for _, id := range []string{"t1", "t2"} {
		out := outcomes[id]
		if out.State != models.TaskStateSkipped {
			t.Errorf("task %s: expected skipped, got %s", id, out.State)
		}
		if out.SkipReason != "batch cancelled" {
			t.Errorf("task %s: unexpected skip reason %q", id, out.SkipReason)
		}
		if exec.callCount(id) != 0 {
			t.Errorf("task %s must not execute after cancellation", id)
		}
	}
}

func TestRunCancelledMidBatch(t *testing.T) {
	tasks := []models.TaskDescriptor{
		{ID: "t1"},
		{ID: "t2", DependsOn: []string{"t1"}},
	}
	exec := newFakeExecutor()
	exec.delay = 30 * time.Millisecond
	s := New(mustBuild(t, tasks), exec, models.ModeSequential, "")

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	outcomes := s.Run(ctx)

	// t1 was already dispatched and allowed to finish.
	if outcomes["t1"].State != models.TaskStateCompleted {
		t.Errorf("t1: expected completed, got %s", outcomes["t1"].State)
	}
	if outcomes["t2"].State != models.TaskStateSkipped {
		t.Errorf("t2: expected skipped, got %s", outcomes["t2"].State)
	}
	if outcomes["t2"].SkipReason != "batch cancelled" {
		t.Errorf("t2: unexpected skip reason %q", outcomes["t2"].SkipReason)
	}
}

func TestRunExecutorCalledAtMostOnce(t *testing.T) {
	var tasks []models.TaskDescriptor
	for i := 0; i < 8; i++ {
		td := models.TaskDescriptor{ID: fmt.Sprintf("t%d", i)}
		if i > 0 {
			td.DependsOn = []string{fmt.Sprintf("t%d", i-1)}
		}
		tasks = append(tasks, td)
	}
	exec := newFakeExecutor()
	s := New(mustBuild(t, tasks), exec, models.ModeParallel, "")

	s.Run(context.Background())

	for i := 0; i < 8; i++ {
		id := fmt.Sprintf("t%d", i)
		if n := exec.callCount(id); n != 1 {
			t.Errorf("task %s executed %d times, want 1", id, n)
		}
	}
}

func TestRunEmitsEvents(t *testing.T) {
	tasks := []models.TaskDescriptor{
		{ID: "ok"},
		{ID: "bad", DependsOn: []string{"ok"}},
		{ID: "after", DependsOn: []string{"bad"}},
	}
	exec := newFakeExecutor()
	exec.failIDs["bad"] = true
	emitter := NewEmitter(32)
	s := New(mustBuild(t, tasks), exec, models.ModeSequential, "", WithEmitter(emitter))

	s.Run(context.Background())
	emitter.Close()

	seen := make(map[EventType]int)
	for ev := range emitter.Events() {
		seen[ev.Type]++
	}
	if seen[EventTaskCompleted] != 1 {
		t.Errorf("expected 1 completed event, got %d", seen[EventTaskCompleted])
	}
	if seen[EventTaskFailed] != 1 {
		t.Errorf("expected 1 failed event, got %d", seen[EventTaskFailed])
	}
	if seen[EventTaskSkipped] != 1 {
		t.Errorf("expected 1 skipped event, got %d", seen[EventTaskSkipped])
	}
	if seen[EventTaskStarted] != 2 {
		t.Errorf("expected 2 started events, got %d", seen[EventTaskStarted])
	}
}
