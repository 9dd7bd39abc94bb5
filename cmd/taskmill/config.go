package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/taskmill/taskmill/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify taskmill configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/taskmill/config.yaml
Project-specific overrides can be placed in .taskmill.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		switch len(args) {
		case 0:
			fmt.Printf("user config: %s\n", config.GetUserConfigPath())
			if project := config.GetProjectConfigPath(); project != "" {
				fmt.Printf("project config: %s\n", project)
			}
			fmt.Println()
			displayAllConfig(cfg)
		case 1:
			displayConfigKey(cfg, args[0])
		default:
			setConfigKey(cfg, args[0], args[1])
		}
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	fmt.Printf("llm.provider: %s\n", cfg.LLM.Provider)
	fmt.Printf("llm.model: %s\n", orUnset(cfg.LLM.Model))
	fmt.Printf("llm.base_url: %s\n", orUnset(cfg.LLM.BaseURL))
	fmt.Printf("anthropic.api_key: %s\n", maskKey(cfg.Anthropic.APIKey))
	fmt.Printf("openai.api_key: %s\n", maskKey(cfg.OpenAI.APIKey))
	fmt.Printf("bedrock.enabled: %t\n", cfg.Bedrock.Enabled)
	fmt.Printf("bedrock.region: %s\n", orUnset(cfg.Bedrock.Region))
	fmt.Printf("bedrock.profile: %s\n", orUnset(cfg.Bedrock.Profile))
	fmt.Printf("history.path: %s\n", cfg.History.Path)
	fmt.Printf("orchestrator.max_concurrent: %d\n", cfg.Orchestrator.MaxConcurrent)
	fmt.Printf("orchestrator.default_mode: %s\n", cfg.Orchestrator.DefaultMode)
	fmt.Printf("orchestrator.task_timeout: %s\n", cfg.Orchestrator.TaskTimeout)
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(cfg *config.Config, key string) {
	value, err := getConfigValue(cfg, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(value)
}

// setConfigKey sets a configuration value and saves the config.
func setConfigKey(cfg *config.Config, key, value string) {
	if err := setConfigValue(cfg, key, value); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Set %s = %s\n", key, value)
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.Config, key string) (string, error) {
	switch strings.ToLower(key) {
	case "llm.provider":
		return cfg.LLM.Provider, nil
	case "llm.model":
		return orUnset(cfg.LLM.Model), nil
	case "llm.base_url":
		return orUnset(cfg.LLM.BaseURL), nil
	case "anthropic.api_key":
		return maskKey(cfg.Anthropic.APIKey), nil
	case "openai.api_key":
		return maskKey(cfg.OpenAI.APIKey), nil
	case "bedrock.enabled":
		return strconv.FormatBool(cfg.Bedrock.Enabled), nil
	case "bedrock.region":
		return orUnset(cfg.Bedrock.Region), nil
	case "bedrock.profile":
		return orUnset(cfg.Bedrock.Profile), nil
	case "history.path":
		return cfg.History.Path, nil
	case "orchestrator.max_concurrent":
		return strconv.Itoa(cfg.Orchestrator.MaxConcurrent), nil
	case "orchestrator.default_mode":
		return cfg.Orchestrator.DefaultMode, nil
	case "orchestrator.task_timeout":
		return cfg.Orchestrator.TaskTimeout.String(), nil
	default:
		return "", fmt.Errorf("unknown configuration key: %s", key)
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "llm.provider":
		cfg.LLM.Provider = value
	case "llm.model":
		cfg.LLM.Model = value
	case "llm.base_url":
		cfg.LLM.BaseURL = value
	case "anthropic.api_key":
		cfg.Anthropic.APIKey = value
	case "openai.api_key":
		cfg.OpenAI.APIKey = value
	case "bedrock.enabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean for bedrock.enabled: %w", err)
		}
		cfg.Bedrock.Enabled = b
	case "bedrock.region":
		cfg.Bedrock.Region = value
	case "bedrock.profile":
		cfg.Bedrock.Profile = value
	case "history.path":
		cfg.History.Path = value
	case "orchestrator.max_concurrent":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for max_concurrent: %w", err)
		}
		cfg.Orchestrator.MaxConcurrent = n
	case "orchestrator.default_mode":
		if value != "parallel" && value != "sequential" {
			return fmt.Errorf("default_mode must be parallel or sequential")
		}
		cfg.Orchestrator.DefaultMode = value
	case "orchestrator.task_timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration for task_timeout: %w", err)
		}
		cfg.Orchestrator.TaskTimeout = d
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

func maskKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	return "****"
}

func orUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}
