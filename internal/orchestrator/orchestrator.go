// Package orchestrator coordinates a batch run end to end: graph
// validation, scheduling, report aggregation, and history recording.
package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/taskmill/taskmill/internal/graph"
	"github.com/taskmill/taskmill/internal/report"
	"github.com/taskmill/taskmill/internal/scheduler"
	"github.com/taskmill/taskmill/pkg/models"
)

// HistorySink receives finished batch reports. Recording failures are
// logged and never fail the batch.
type HistorySink interface {
	RecordBatch(ctx context.Context, sessionID string, report models.BatchReport) error
}

// Orchestrator runs task batches.
type Orchestrator struct {
	exec          scheduler.Executor
	history       HistorySink
	emitter       *scheduler.Emitter
	maxConcurrent int
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithHistory attaches a history sink for finished reports.
func WithHistory(sink HistorySink) Option {
	return func(o *Orchestrator) { o.history = sink }
}

// WithEmitter attaches a task event emitter.
func WithEmitter(e *scheduler.Emitter) Option {
	return func(o *Orchestrator) { o.emitter = e }
}

// WithMaxConcurrent caps parallel task execution. Zero means unbounded.
func WithMaxConcurrent(n int) Option {
	return func(o *Orchestrator) { o.maxConcurrent = n }
}

// New creates an Orchestrator dispatching tasks to exec.
func New(exec scheduler.Executor, opts ...Option) *Orchestrator {
	o := &Orchestrator{exec: exec}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes one batch and returns its report. Graph validation
// errors (duplicate IDs, unknown dependencies, cycles) reject the
// whole batch before any task runs. The report carries the batch's
// session ID; a fresh one is generated when the batch has none.
func (o *Orchestrator) Run(ctx context.Context, batch models.Batch) (models.BatchReport, error) {
	if batch.SessionID == "" {
		batch.SessionID = uuid.NewString()
	}
	if batch.Mode == "" {
		batch.Mode = models.ModeSequential
	}

	if len(batch.Tasks) == 0 {
		r := report.Aggregate(batch, nil, 0)
		o.record(ctx, batch.SessionID, r)
		return r, nil
	}

	g, err := graph.Build(batch.Tasks)
	if err != nil {
		return models.BatchReport{}, err
	}

	sched := scheduler.New(g, o.exec, batch.Mode, batch.Context,
		scheduler.WithMaxConcurrent(o.maxConcurrent),
		scheduler.WithEmitter(o.emitter),
	)

	start := time.Now()
	outcomes := sched.Run(ctx)
	totalMs := time.Since(start).Milliseconds()

	r := report.Aggregate(batch, outcomes, totalMs)
	o.record(ctx, batch.SessionID, r)
	return r, nil
}

// record forwards the report to the history sink, if any. A failed
// write must not fail an already-finished batch, so errors only log.
func (o *Orchestrator) record(ctx context.Context, sessionID string, r models.BatchReport) {
	if o.history == nil {
		return
	}
	if err := o.history.RecordBatch(ctx, sessionID, r); err != nil {
		debugLog("history record failed for session %s: %v", sessionID, err)
	}
}
