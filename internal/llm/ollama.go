package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// Ollama completes prompts against a local Ollama server through langchaingo.
type Ollama struct {
	llm     *ollama.LLM
	timeout time.Duration
}

// NewOllama creates an Ollama-backed completer.
func NewOllama(serverURL, modelName string, timeout time.Duration) (*Ollama, error) {
	if modelName == "" {
		return nil, fmt.Errorf("LLM model name cannot be empty")
	}
	httpClient := &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     30 * time.Second,
		},
	}
	opts := []ollama.Option{
		ollama.WithModel(modelName),
		ollama.WithHTTPClient(httpClient),
	}
	if serverURL != "" {
		opts = append(opts, ollama.WithServerURL(serverURL))
	}
	l, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create ollama client: %w", err)
	}
	return &Ollama{llm: l, timeout: timeout}, nil
}

// Complete implements Completer.
func (o *Ollama) Complete(ctx context.Context, prompt string, opts ...CallOption) (string, error) {
	co := applyOptions(opts)
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	out, err := llms.GenerateFromSinglePrompt(ctx, o.llm, prompt,
		llms.WithTemperature(co.Temperature),
		llms.WithMaxTokens(co.MaxTokens),
	)
	if err != nil {
		return "", fmt.Errorf("ollama call: %w", err)
	}
	slog.Debug("LLM response", "raw", out)
	return out, nil
}
