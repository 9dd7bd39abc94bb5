// Package config handles configuration loading for taskmill.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for taskmill.
type Config struct {
	LLM          LLMConfig          `mapstructure:"llm"`
	Anthropic    AnthropicConfig    `mapstructure:"anthropic"`
	OpenAI       OpenAIConfig       `mapstructure:"openai"`
	Bedrock      BedrockConfig      `mapstructure:"bedrock"`
	History      HistoryConfig      `mapstructure:"history"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator"`
}

// LLMConfig holds provider selection settings.
type LLMConfig struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
	BaseURL  string `mapstructure:"base_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// OpenAIConfig holds OpenAI API settings.
type OpenAIConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// BedrockConfig holds AWS Bedrock settings.
type BedrockConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Region  string `mapstructure:"region"`
	Profile string `mapstructure:"profile"`
}

// HistoryConfig holds history database settings.
type HistoryConfig struct {
	Path string `mapstructure:"path"`
}

// OrchestratorConfig holds scheduling settings.
type OrchestratorConfig struct {
	MaxConcurrent int           `mapstructure:"max_concurrent"`
	DefaultMode   string        `mapstructure:"default_mode"`
	TaskTimeout   time.Duration `mapstructure:"task_timeout"`
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY, OPENAI_API_KEY, TASKMILL_*)
// 2. Project config (.taskmill.yaml in current directory or parent)
// 3. User config (~/.config/taskmill/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	// Project config takes precedence over the user config.
	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("TASKMILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("openai.api_key", "OPENAI_API_KEY")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// Expand ${VAR} references
	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)
	cfg.OpenAI.APIKey = os.ExpandEnv(cfg.OpenAI.APIKey)

	if cfg.History.Path == "" {
		cfg.History.Path = defaultHistoryPath()
	}

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)
	cfg.OpenAI.APIKey = os.ExpandEnv(cfg.OpenAI.APIKey)

	if cfg.History.Path == "" {
		cfg.History.Path = defaultHistoryPath()
	}

	return cfg, nil
}

// Save writes the current configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath := filepath.Join(userConfigDir, "config.yaml")

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("llm.provider", cfg.LLM.Provider)
	v.Set("llm.model", cfg.LLM.Model)
	v.Set("llm.base_url", cfg.LLM.BaseURL)
	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)
	v.Set("openai.api_key", cfg.OpenAI.APIKey)
	v.Set("bedrock.enabled", cfg.Bedrock.Enabled)
	v.Set("bedrock.region", cfg.Bedrock.Region)
	v.Set("bedrock.profile", cfg.Bedrock.Profile)
	v.Set("history.path", cfg.History.Path)
	v.Set("orchestrator.max_concurrent", cfg.Orchestrator.MaxConcurrent)
	v.Set("orchestrator.default_mode", cfg.Orchestrator.DefaultMode)
	v.Set("orchestrator.task_timeout", cfg.Orchestrator.TaskTimeout.String())

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider: "anthropic",
		},
		History: HistoryConfig{
			Path: defaultHistoryPath(),
		},
		Orchestrator: OrchestratorConfig{
			MaxConcurrent: 4,
			DefaultMode:   "sequential",
			TaskTimeout:   5 * time.Minute,
		},
	}
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", "anthropic")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.base_url", "")

	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("openai.api_key", "")

	v.SetDefault("bedrock.enabled", false)
	v.SetDefault("bedrock.region", "")
	v.SetDefault("bedrock.profile", "")

	v.SetDefault("history.path", "")

	v.SetDefault("orchestrator.max_concurrent", 4)
	v.SetDefault("orchestrator.default_mode", "sequential")
	v.SetDefault("orchestrator.task_timeout", "5m")
}

// getUserConfigDir returns the XDG config directory for taskmill.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "taskmill")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "taskmill")
	}
	return filepath.Join(home, ".config", "taskmill")
}

// defaultHistoryPath returns the XDG data path for the history database.
func defaultHistoryPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "taskmill", "history.db")
}

// findProjectConfig searches for .taskmill.yaml in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".taskmill.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}
