// Package ai provides the LLM layer: entry analysis (title, mood, tags) and
// review text generation, with ordered model fallback.
package ai

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
)

// Config holds the AI provider configuration. BaseURL points at any
// OpenAI-compatible endpoint; the default targets Gemini's compatibility
// surface.
type Config struct {
	BaseURL string
	APIKey  string
	// Models is the ordered candidate list, tried first to last.
	Models  []string
	Timeout time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL: "https://generativelanguage.googleapis.com/v1beta/openai",
		Models:  []string{"gemini-3-flash", "gemini-2.5-flash", "gemini-2.5-flash-lite"},
		Timeout: 60 * time.Second,
	}
}

// Provider wraps the chat completion client.
type Provider struct {
	client chatClient
	config *Config
}

// chatClient is the slice of the OpenAI client the provider uses; tests
// substitute a fake.
type chatClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// NewProvider creates a provider from config.
func NewProvider(cfg *Config) *Provider {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultConfig().BaseURL
	}
	if len(cfg.Models) == 0 {
		cfg.Models = DefaultConfig().Models
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = cfg.BaseURL
	return &Provider{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
	}
}

// Models returns the ordered candidate list.
func (p *Provider) Models() []string {
	return p.config.Models
}

// Complete sends a single-turn prompt to the given model and returns the
// text response.
func (p *Provider) Complete(ctx context.Context, model, prompt string) (string, error) {
	return p.complete(ctx, model, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	})
}

// CompleteWithImage sends a prompt plus one inline image.
func (p *Provider) CompleteWithImage(ctx context.Context, model, prompt, imageDataURL string) (string, error) {
	return p.complete(ctx, model, []openai.ChatCompletionMessage{
		{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{Type: openai.ChatMessagePartTypeText, Text: prompt},
				{
					Type:     openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{URL: imageDataURL},
				},
			},
		},
	})
}

func (p *Provider) complete(ctx context.Context, model string, messages []openai.ChatCompletionMessage) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    model,
		Messages: messages,
	})
	if err != nil {
		return "", errors.Wrapf(err, "chat completion with %s", model)
	}
	if len(resp.Choices) == 0 {
		return "", errors.Errorf("empty response from %s", model)
	}
	return resp.Choices[0].Message.Content, nil
}
