package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/taskmill/taskmill/internal/config"
	"github.com/taskmill/taskmill/internal/history"
)

var (
	historySession string
	historyLimit   int
	historyBatches bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded task executions",
	Long: `History lists recent task executions from the local history
database, most recent first. Use --session to narrow to one batch
session and --batches to list batch summaries instead of individual
tasks.`,
	RunE: showHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historySession, "session", "", "Only show records for this session ID")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of records to show")
	historyCmd.Flags().BoolVar(&historyBatches, "batches", false, "List batch summaries instead of task executions")
}

func showHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := history.Open(cfg.History.Path)
	if err != nil {
		return fmt.Errorf("open history database: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate history database: %w", err)
	}

	store := history.NewStore(db)
	ctx := context.Background()

	if historyBatches {
		return printConversations(ctx, store)
	}
	return printExecutions(ctx, store)
}

func printExecutions(ctx context.Context, store *history.Store) error {
	execs, err := store.Executions(ctx, historySession, historyLimit)
	if err != nil {
		return err
	}
	if len(execs) == 0 {
		fmt.Println("No executions recorded.")
		return nil
	}

	for _, e := range execs {
		fmt.Printf("%s  %s  %s  %s  %s  %dms\n",
			e.CreatedAt.Format("2006-01-02 15:04:05"),
			e.SessionID,
			e.TaskID,
			e.TaskType,
			statusColored(e.Status),
			e.ExecutionTimeMs,
		)
		if e.ErrorMessage != "" {
			fmt.Printf("    %s\n", e.ErrorMessage)
		}
	}
	return nil
}

func printConversations(ctx context.Context, store *history.Store) error {
	convs, err := store.Conversations(ctx, historySession, historyLimit)
	if err != nil {
		return err
	}
	if len(convs) == 0 {
		fmt.Println("No batches recorded.")
		return nil
	}

	for _, c := range convs {
		fmt.Printf("%s  %s  %s\n",
			c.CreatedAt.Format("2006-01-02 15:04:05"),
			c.SessionID,
			c.UserMessage,
		)
	}
	return nil
}

func statusColored(status string) string {
	switch status {
	case "completed":
		return color.GreenString(status)
	case "failed":
		return color.RedString(status)
	case "skipped":
		return color.YellowString(status)
	default:
		return status
	}
}
