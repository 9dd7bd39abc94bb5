package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/taskmill/taskmill/internal/config"
	"github.com/taskmill/taskmill/internal/scheduler"
	"github.com/taskmill/taskmill/pkg/models"
)

var (
	runSequential    bool
	runParallel      bool
	runMaxConcurrent int
	runTimeout       time.Duration
	runSession       string
	runVerbose       bool
)

var runCmd = &cobra.Command{
	Use:   "run <batch.yaml>",
	Short: "Execute a batch of tasks from a YAML file",
	Long: `Run loads a batch file, validates its dependency graph, executes
every task, and prints the batch report.

The batch file lists tasks with their type, input data, dependencies,
and priority:

  concurrency_mode: parallel
  context: optional shared context for all tasks
  tasks:
    - task_id: find-bug
      task_type: debug
      priority: 10
      input_data:
        code: |
          def f(): ...
        language: python
    - task_id: document
      task_type: doc-generate
      depends_on: [find-bug]
      input_data:
        code: |
          def f(): ...

Exits non-zero when any task fails or is skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	runCmd.Flags().BoolVar(&runSequential, "sequential", false, "Run tasks one at a time")
	runCmd.Flags().BoolVar(&runParallel, "parallel", false, "Run independent tasks concurrently")
	runCmd.Flags().IntVar(&runMaxConcurrent, "max-concurrent", 0, "Cap on concurrently running tasks (0 uses config)")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "Overall batch timeout (0 uses config task_timeout per batch)")
	runCmd.Flags().StringVar(&runSession, "session", "", "Session ID to record history under")
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print per-task progress while the batch runs")
}

func runBatch(cmd *cobra.Command, args []string) error {
	batch, err := loadBatch(args[0])
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if runSession != "" {
		batch.SessionID = runSession
	}
	if runSequential {
		batch.Mode = models.ModeSequential
	} else if runParallel {
		batch.Mode = models.ModeParallel
	} else if batch.Mode == "" {
		batch.Mode = models.ConcurrencyMode(cfg.Orchestrator.DefaultMode)
	}

	maxConcurrent := runMaxConcurrent
	if maxConcurrent == 0 {
		maxConcurrent = cfg.Orchestrator.MaxConcurrent
	}

	var emitter *scheduler.Emitter
	var progressDone chan struct{}
	if runVerbose {
		emitter = scheduler.NewEmitter(64)
		progressDone = make(chan struct{})
		go printProgress(emitter, progressDone)
	}

	o, cleanup, err := buildOrchestrator(cfg, maxConcurrent, emitter)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	timeout := runTimeout
	if timeout == 0 {
		timeout = cfg.Orchestrator.TaskTimeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	report, runErr := o.Run(ctx, batch)
	if emitter != nil {
		emitter.Close()
		<-progressDone
	}
	if runErr != nil {
		return fmt.Errorf("run batch: %w", runErr)
	}

	printReport(report)

	if !report.Success {
		os.Exit(1)
	}
	return nil
}

// loadBatch reads and validates a batch definition file.
func loadBatch(path string) (models.Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Batch{}, fmt.Errorf("read batch file: %w", err)
	}

	var batch models.Batch
	if err := yaml.Unmarshal(data, &batch); err != nil {
		return models.Batch{}, fmt.Errorf("parse batch file: %w", err)
	}

	for i, task := range batch.Tasks {
		if task.ID == "" {
			return models.Batch{}, fmt.Errorf("task at index %d has no task_id", i)
		}
		if !task.Type.Valid() {
			return models.Batch{}, fmt.Errorf("task %s: unknown task_type %q", task.ID, task.Type)
		}
	}
	if batch.Mode != "" && !batch.Mode.Valid() {
		return models.Batch{}, fmt.Errorf("unknown concurrency_mode %q", batch.Mode)
	}

	return batch, nil
}

// printProgress drains task events until the emitter closes.
func printProgress(emitter *scheduler.Emitter, done chan<- struct{}) {
	defer close(done)
	for ev := range emitter.Events() {
		switch ev.Type {
		case scheduler.EventTaskStarted:
			fmt.Printf("[%s] %s running\n", ev.Timestamp.Format("15:04:05"), ev.TaskID)
		case scheduler.EventTaskCompleted:
			fmt.Printf("[%s] %s %s\n", ev.Timestamp.Format("15:04:05"), ev.TaskID, color.GreenString("completed"))
		case scheduler.EventTaskFailed:
			fmt.Printf("[%s] %s %s: %s\n", ev.Timestamp.Format("15:04:05"), ev.TaskID, color.RedString("failed"), ev.Message)
		case scheduler.EventTaskSkipped:
			fmt.Printf("[%s] %s %s: %s\n", ev.Timestamp.Format("15:04:05"), ev.TaskID, color.YellowString("skipped"), ev.Message)
		}
	}
}

// printReport renders the batch report to stdout.
func printReport(r models.BatchReport) {
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()

	fmt.Printf("Session: %s\n", r.SessionID)
	if r.Success {
		fmt.Printf("Result:  %s\n", green("SUCCESS"))
	} else {
		fmt.Printf("Result:  %s\n", red("FAILURE"))
	}
	fmt.Printf("Tasks:   %d total, %s, %s, %s\n",
		r.TotalTasks,
		green(fmt.Sprintf("%d completed", r.CompletedCount)),
		red(fmt.Sprintf("%d failed", r.FailedCount)),
		yellow(fmt.Sprintf("%d skipped", r.SkippedCount)),
	)
	fmt.Printf("Time:    %dms\n", r.TotalExecutionTimeMs)
	if r.TotalTokens > 0 {
		fmt.Printf("Tokens:  %d\n", r.TotalTokens)
	}

	if r.Narrative != "" {
		fmt.Printf("\n%s\n", r.Narrative)
	}
}
