// Package executor maps task types to model-backed executors.
package executor

import (
	"context"
	"fmt"

	"github.com/taskmill/taskmill/internal/llm"
	"github.com/taskmill/taskmill/internal/scheduler"
	"github.com/taskmill/taskmill/pkg/models"
)

// TaskExecutor runs one kind of task against its prompt template.
type TaskExecutor interface {
	Execute(ctx context.Context, task models.TaskDescriptor, shared string) (scheduler.Result, error)
}

// Registry dispatches tasks to the executor for their type. It
// implements scheduler.Executor. The executor table is fixed at
// construction; lookups need no locking.
type Registry struct {
	execs map[models.TaskType]TaskExecutor
}

// NewRegistry builds a registry wiring every known task type to the
// given model client.
func NewRegistry(client llm.Client) *Registry {
	return &Registry{
		execs: map[models.TaskType]TaskExecutor{
			models.TaskTypeDebug:       &debugExecutor{client: client},
			models.TaskTypeAnalyze:     &analyzeExecutor{client: client},
			models.TaskTypeDocGenerate: &docExecutor{client: client},
		},
	}
}

// Execute routes the task to its type's executor. Unknown types fail
// the task rather than the batch.
func (r *Registry) Execute(ctx context.Context, task models.TaskDescriptor, shared string) (scheduler.Result, error) {
	exec, ok := r.execs[task.Type]
	if !ok {
		return scheduler.Result{}, fmt.Errorf("no executor registered for task type %q", task.Type)
	}
	return exec.Execute(ctx, task, shared)
}

// generate issues one model call and packages the result with token
// accounting.
func generate(ctx context.Context, client llm.Client, system, prompt string, maxTokens int, temperature float64) (scheduler.Result, error) {
	resp, err := client.Generate(ctx, llm.Request{
		System:      system,
		Prompt:      prompt,
		MaxTokens:   maxTokens,
		Temperature: &temperature,
	})
	if err != nil {
		return scheduler.Result{}, err
	}

	tokens := resp.InputTokens + resp.OutputTokens
	return scheduler.Result{
		Text:       resp.Text,
		TokensUsed: &tokens,
		Model:      client.Model(),
	}, nil
}
