package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/taskmill/taskmill/pkg/models"
)

// maxStoredResultLen bounds how much result text an execution row keeps.
const maxStoredResultLen = 500

// Store records batch reports into the history database.
type Store struct {
	db *DB
}

// NewStore creates a Store on an opened, migrated database.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// Conversation is one stored batch-level history entry.
type Conversation struct {
	ID           int64
	SessionID    string
	UserMessage  string
	Response     string
	AgentType    string
	Metadata     string
	CreatedAt    time.Time
}

// Execution is one stored per-task record.
type Execution struct {
	ID              int64
	SessionID       string
	TaskID          string
	TaskType        string
	Status          string
	Result          string
	ErrorMessage    string
	ExecutionTimeMs int64
	TokensUsed      *int64
	ModelUsed       string
	CreatedAt       time.Time
}

// RecordBatch writes one conversation row for the whole batch and one
// execution row per task outcome.
func (s *Store) RecordBatch(ctx context.Context, sessionID string, report models.BatchReport) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	tx, err := s.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	meta, err := json.Marshal(map[string]any{
		"success":                 report.Success,
		"total_tasks":             report.TotalTasks,
		"completed":               report.CompletedCount,
		"failed":                  report.FailedCount,
		"skipped":                 report.SkippedCount,
		"total_execution_time_ms": report.TotalExecutionTimeMs,
		"total_tokens":            report.TotalTokens,
	})
	if err != nil {
		return fmt.Errorf("marshal batch metadata: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO conversations (session_id, user_message, agent_response, agent_type, metadata)
		VALUES (?, ?, ?, ?, ?)`,
		sessionID,
		fmt.Sprintf("Execute %d tasks", report.TotalTasks),
		report.Narrative,
		"orchestrator",
		string(meta),
	)
	if err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}

	for _, out := range report.Outcomes {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO executions (session_id, task_id, task_type, status, result, error_message, execution_time_ms, tokens_used, model_used)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sessionID,
			out.TaskID,
			string(out.Type),
			string(out.State),
			truncateResult(out.ResultText),
			errorText(out),
			out.ExecutionTimeMs,
			out.TokensUsed,
			out.ModelUsed,
		)
		if err != nil {
			return fmt.Errorf("insert execution for task %s: %w", out.TaskID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch record: %w", err)
	}
	return nil
}

// Executions returns execution records, most recent first. An empty
// sessionID returns records across all sessions.
func (s *Store) Executions(ctx context.Context, sessionID string, limit int) ([]Execution, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, session_id, task_id, task_type, status,
		       COALESCE(result, ''), COALESCE(error_message, ''),
		       execution_time_ms, tokens_used, COALESCE(model_used, ''), created_at
		FROM executions`
	args := []any{}
	if sessionID != "" {
		query += " WHERE session_id = ?"
		args = append(args, sessionID)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query executions: %w", err)
	}
	defer rows.Close()

	var execs []Execution
	for rows.Next() {
		var e Execution
		if err := rows.Scan(&e.ID, &e.SessionID, &e.TaskID, &e.TaskType, &e.Status,
			&e.Result, &e.ErrorMessage, &e.ExecutionTimeMs, &e.TokensUsed, &e.ModelUsed, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		execs = append(execs, e)
	}
	return execs, rows.Err()
}

// Conversations returns batch-level history entries, most recent first.
func (s *Store) Conversations(ctx context.Context, sessionID string, limit int) ([]Conversation, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, session_id, user_message, COALESCE(agent_response, ''),
		       COALESCE(agent_type, ''), COALESCE(metadata, ''), created_at
		FROM conversations`
	args := []any{}
	if sessionID != "" {
		query += " WHERE session_id = ?"
		args = append(args, sessionID)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	var convs []Conversation
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.SessionID, &c.UserMessage, &c.Response,
			&c.AgentType, &c.Metadata, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

func truncateResult(s string) string {
	runes := []rune(s)
	if len(runes) <= maxStoredResultLen {
		return s
	}
	return string(runes[:maxStoredResultLen])
}

func errorText(out models.TaskOutcome) string {
	if out.State == models.TaskStateSkipped {
		return out.SkipReason
	}
	return out.ErrorMessage
}
