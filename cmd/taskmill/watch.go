package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/taskmill/taskmill/internal/config"
	"github.com/taskmill/taskmill/pkg/models"
)

// batchRunner is the slice of the orchestrator the watch loop needs.
type batchRunner interface {
	Run(ctx context.Context, batch models.Batch) (models.BatchReport, error)
}

var watchMaxConcurrent int

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Watch a directory and run batch files dropped into it",
	Long: `Watch monitors a spool directory and executes every batch file
(*.yaml, *.yml) created or moved into it. Finished batch files are
renamed with a .done suffix, failed ones with .failed.

Useful for driving taskmill from scripts or other tools without a
long-lived API surface.`,
	Args: cobra.ExactArgs(1),
	RunE: watchSpool,
}

func init() {
	watchCmd.Flags().IntVar(&watchMaxConcurrent, "max-concurrent", 0, "Cap on concurrently running tasks (0 uses config)")
}

func watchSpool(cmd *cobra.Command, args []string) error {
	dir := args[0]
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	maxConcurrent := watchMaxConcurrent
	if maxConcurrent == 0 {
		maxConcurrent = cfg.Orchestrator.MaxConcurrent
	}

	o, cleanup, err := buildOrchestrator(cfg, maxConcurrent, nil)
	if err != nil {
		return err
	}
	defer cleanup()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Watching %s for batch files. Ctrl-C to stop.\n", dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if !isBatchFile(event.Name) {
				continue
			}
			runSpooledBatch(ctx, o, event.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "watch error: %v\n", err)
		}
	}
}

func isBatchFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// runSpooledBatch runs one spooled batch file and renames it to record
// the outcome. Errors never stop the watch loop.
func runSpooledBatch(ctx context.Context, o batchRunner, path string) {
	fmt.Printf("Running batch %s\n", path)

	batch, err := loadBatch(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "skipping %s: %v\n", path, err)
		markSpooled(path, ".failed")
		return
	}

	report, err := o.Run(ctx, batch)
	if err != nil {
		fmt.Fprintf(os.Stderr, "batch %s rejected: %v\n", path, err)
		markSpooled(path, ".failed")
		return
	}

	printReport(report)
	if report.Success {
		markSpooled(path, ".done")
	} else {
		markSpooled(path, ".failed")
	}
}

func markSpooled(path, suffix string) {
	if err := os.Rename(path, path+suffix); err != nil {
		fmt.Fprintf(os.Stderr, "rename %s: %v\n", path, err)
	}
}
