// Package genai provides GenAI-enhanced operations using the OpenAI API.
package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultTimeout bounds a single completion call.
const DefaultTimeout = 30 * time.Second

// ErrNoChoicesReturned indicates the API responded without any completion choices.
var ErrNoChoicesReturned = errors.New("no choices returned")

// chatService defines minimal interface for chat completions.
type chatService interface {
	Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error)
}

// completionAdapter adapts the OpenAI SDK service to the chatService interface.
type completionAdapter struct {
	svc openai.ChatCompletionService
}

func (a completionAdapter) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	resp, err := a.svc.New(ctx, params)
	if err != nil {
		return openai.ChatCompletion{}, err
	}
	return *resp, nil
}

// Opts holds configuration options for the GenAI client.
type Opts struct {
	APIKey  string
	Model   openai.ChatModel
	Timeout time.Duration
}

// Option defines a configuration option for the GenAI client.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithModel sets the chat model used for completions.
func WithModel(model openai.ChatModel) Option {
	return func(o *Opts) { o.Model = model }
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Opts) { o.Timeout = d }
}

// Client wraps the OpenAI ChatCompletion service for generating text.
type Client struct {
	chat    chatService
	model   openai.ChatModel
	timeout time.Duration
}

// NewClient initializes a new GenAI client. The API key comes from options or
// the OPENAI_API_KEY environment variable.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	if cfg.Model == "" {
		cfg.Model = openai.ChatModelGPT4oMini
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	slog.Debug("genai.NewClient: client configured", "model", cfg.Model, "timeout", cfg.Timeout)

	cli := openai.NewClient(option.WithAPIKey(cfg.APIKey))
	return &Client{chat: completionAdapter{svc: cli.Chat.Completions}, model: cfg.Model, timeout: cfg.Timeout}, nil
}

// GeneratePrompt generates a response based on the provided system and user prompts.
func (c *Client) GeneratePrompt(systemPrompt, userPrompt string) (string, error) {
	return c.GeneratePromptWithContext(context.Background(), systemPrompt, userPrompt)
}

// GeneratePromptWithContext generates a response, honoring the caller's
// context plus the client's configured timeout.
func (c *Client) GeneratePromptWithContext(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	timeout := c.timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	model := c.model
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}
	params := openai.ChatCompletionNewParams{
		Model: model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
	}

	resp, err := c.chat.Create(ctx, params)
	if err != nil {
		slog.Error("Client.GeneratePromptWithContext: completion failed", "error", err)
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		slog.Warn("Client.GeneratePromptWithContext: completion returned no choices")
		return "", ErrNoChoicesReturned
	}
	return resp.Choices[0].Message.Content, nil
}
