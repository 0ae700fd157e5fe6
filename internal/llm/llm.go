// Package llm wraps the generative model capability behind a small gateway:
// a prompt string goes in, raw text comes out, and every failure is a
// ModelError with a classified cause.
package llm

import (
	"context"
	"errors"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"
)

// Generator is the single capability the pipeline needs from a model.
// Handlers and the analysis composer depend on this interface so tests can
// substitute a deterministic fake.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Client talks to an OpenAI-compatible chat-completions API.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a gateway client. An empty baseURL keeps the library default.
func New(baseURL, apiKey, modelName string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

// Generate sends a single-turn prompt and returns the raw response text.
// The caller owns retry; Generate itself makes exactly one attempt.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.3,
	})
	if err != nil {
		me := classify(err)
		slog.Debug("model call failed", "cause", me.Cause, "status", me.Status, "error", err)
		return "", me
	}
	if len(resp.Choices) == 0 {
		return "", &ModelError{Cause: CauseOther, Err: errors.New("model returned no choices")}
	}
	return resp.Choices[0].Message.Content, nil
}

// Ping verifies the endpoint is reachable and the credentials work.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return classify(err)
	}
	return nil
}
