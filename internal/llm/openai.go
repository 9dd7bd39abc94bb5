package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// defaultOpenAIModel is used when no model is configured.
const defaultOpenAIModel = "gpt-4o-mini"

type openaiClient struct {
	inner   openai.Client
	model   string
	tracker *TokenTracker
}

// newOpenAIClient creates a Client speaking the OpenAI chat API. A
// custom BaseURL points it at any compatible endpoint, such as Ollama.
func newOpenAIClient(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai API key is not set")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	return &openaiClient{
		inner:   openai.NewClient(opts...),
		model:   model,
		tracker: &TokenTracker{},
	}, nil
}

func (c *openaiClient) Generate(ctx context.Context, req Request) (*Response, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 2048
	}

	messages := []openai.ChatCompletionMessageParamUnion{
		openai.UserMessage(req.Prompt),
	}
	if req.System != "" {
		messages = append([]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.System),
		}, messages...)
	}

	params := openai.ChatCompletionNewParams{
		Model:               c.model,
		Messages:            messages,
		MaxCompletionTokens: openai.Int(int64(maxTokens)),
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}

	resp, err := c.inner.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai generate: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response")
	}

	c.tracker.Add(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)

	return &Response{
		Text:         resp.Choices[0].Message.Content,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

func (c *openaiClient) Model() string {
	return c.model
}
