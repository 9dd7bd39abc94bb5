// Package llm provides provider clients for model calls. One interface
// covers the Anthropic API (direct or via AWS Bedrock) and any
// OpenAI-compatible endpoint, including a local Ollama server.
package llm

import (
	"context"
	"fmt"
	"sync"
)

// Provider constants for client selection.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
)

// defaultOllamaBaseURL is Ollama's OpenAI-compatible endpoint.
const defaultOllamaBaseURL = "http://localhost:11434/v1"

// Client generates free-text completions. Implementations must be safe
// for concurrent use.
type Client interface {
	Generate(ctx context.Context, req Request) (*Response, error)
	Model() string
}

// Request is a single prompt for generation.
type Request struct {
	// System is the system prompt, optional.
	System string
	// Prompt is the user prompt.
	Prompt string
	// MaxTokens caps the completion length. Zero uses the provider default.
	MaxTokens int
	// Temperature overrides the model default when non-nil.
	Temperature *float64
}

// Response is the generation result with token accounting.
type Response struct {
	// Text is the completion text.
	Text string
	// InputTokens is the prompt token count reported by the provider.
	InputTokens int64
	// OutputTokens is the completion token count.
	OutputTokens int64
}

// Config holds provider selection and credentials.
type Config struct {
	// Provider is "anthropic", "openai", or "ollama". Defaults to anthropic.
	Provider string
	// APIKey authenticates against the provider. Ollama needs none.
	APIKey string
	// BaseURL overrides the provider endpoint.
	BaseURL string
	// Model is the model name. Providers fall back to a sane default.
	Model string
	// UseBedrock routes Anthropic calls through AWS Bedrock.
	UseBedrock bool
	// AWSRegion is the Bedrock region (e.g. "us-west-2").
	AWSRegion string
	// AWSProfile is an optional AWS shared-config profile.
	AWSProfile string
}

// New creates a Client for the configured provider.
func New(cfg Config) (Client, error) {
	provider := cfg.Provider
	if provider == "" {
		provider = ProviderAnthropic
	}

	switch provider {
	case ProviderAnthropic:
		return newAnthropicClient(cfg)
	case ProviderOpenAI:
		return newOpenAIClient(cfg)
	case ProviderOllama:
		// Ollama speaks the OpenAI chat API on a local port.
		if cfg.BaseURL == "" {
			cfg.BaseURL = defaultOllamaBaseURL
		}
		if cfg.APIKey == "" {
			cfg.APIKey = "ollama"
		}
		return newOpenAIClient(cfg)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", provider)
	}
}

// TokenTracker accumulates token usage across calls of one client.
type TokenTracker struct {
	mu        sync.Mutex
	inputTok  int64
	outputTok int64
	calls     int
}

// Add records token usage from one call.
func (t *TokenTracker) Add(input, output int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inputTok += input
	t.outputTok += output
	t.calls++
}

// Total returns the accumulated input and output tokens.
func (t *TokenTracker) Total() (input, output int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inputTok, t.outputTok
}

// Calls returns the number of calls recorded.
func (t *TokenTracker) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}
