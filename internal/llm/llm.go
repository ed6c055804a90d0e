package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Completer is a single text-completion round trip: prompt in, raw model
// text out. Implementations do not retry on their own.
type Completer interface {
	Complete(ctx context.Context, prompt string, opts ...CallOption) (string, error)
}

// CallOptions tune one completion request.
type CallOptions struct {
	Temperature float64
	MaxTokens   int
}

// CallOption sets a field of CallOptions.
type CallOption func(*CallOptions)

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) CallOption {
	return func(o *CallOptions) { o.Temperature = t }
}

// WithMaxTokens caps the length of the completion.
func WithMaxTokens(n int) CallOption {
	return func(o *CallOptions) { o.MaxTokens = n }
}

func applyOptions(opts []CallOption) CallOptions {
	o := CallOptions{Temperature: 0.3, MaxTokens: 1000}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// ErrEmptyCompletion is returned when the backend answers without any choice.
var ErrEmptyCompletion = errors.New("LLM returned no choices")

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api     *openai.Client
	model   string
	timeout time.Duration
}

// New creates a new LLM client. A zero timeout means no per-call deadline.
func New(baseURL, apiKey, modelName string, timeout time.Duration) (*Client, error) {
	if modelName == "" {
		return nil, fmt.Errorf("LLM model name cannot be empty")
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:     openai.NewClientWithConfig(config),
		model:   modelName,
		timeout: timeout,
	}, nil
}

// Ping checks that the endpoint is reachable and accepts the credentials.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// Complete sends prompt as a single user message and returns the first choice.
func (c *Client) Complete(ctx context.Context, prompt string, opts ...CallOption) (string, error) {
	o := applyOptions(opts)
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: float32(o.Temperature),
		MaxTokens:   o.MaxTokens,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("LLM request timed out: %w", err)
		}
		return "", fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM response", "raw", raw)
	return raw, nil
}
