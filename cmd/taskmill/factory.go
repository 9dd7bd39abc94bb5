package main

import (
	"fmt"

	"github.com/taskmill/taskmill/internal/config"
	"github.com/taskmill/taskmill/internal/executor"
	"github.com/taskmill/taskmill/internal/history"
	"github.com/taskmill/taskmill/internal/llm"
	"github.com/taskmill/taskmill/internal/orchestrator"
	"github.com/taskmill/taskmill/internal/scheduler"
)

// buildClient constructs the model client from loaded configuration.
func buildClient(cfg *config.Config) (llm.Client, error) {
	apiKey := cfg.Anthropic.APIKey
	if cfg.LLM.Provider == llm.ProviderOpenAI {
		apiKey = cfg.OpenAI.APIKey
	}

	return llm.New(llm.Config{
		Provider:   cfg.LLM.Provider,
		APIKey:     apiKey,
		BaseURL:    cfg.LLM.BaseURL,
		Model:      cfg.LLM.Model,
		UseBedrock: cfg.Bedrock.Enabled,
		AWSRegion:  cfg.Bedrock.Region,
		AWSProfile: cfg.Bedrock.Profile,
	})
}

// buildOrchestrator wires the full pipeline: model client, executor
// registry, history store, and the orchestrator itself. The emitter is
// optional. The returned cleanup closes the history database.
func buildOrchestrator(cfg *config.Config, maxConcurrent int, emitter *scheduler.Emitter) (*orchestrator.Orchestrator, func(), error) {
	client, err := buildClient(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("configure llm client: %w", err)
	}

	db, err := history.Open(cfg.History.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("open history database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate history database: %w", err)
	}

	o := orchestrator.New(executor.NewRegistry(client),
		orchestrator.WithHistory(history.NewStore(db)),
		orchestrator.WithMaxConcurrent(maxConcurrent),
		orchestrator.WithEmitter(emitter),
	)

	cleanup := func() { db.Close() }
	return o, cleanup, nil
}
