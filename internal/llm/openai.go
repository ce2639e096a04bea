package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient streams chat completions from an OpenAI-compatible API.
type OpenAIClient struct {
	api   *openai.Client
	model string
	log   *slog.Logger
}

// NewOpenAI creates a client for an OpenAI-compatible endpoint.
func NewOpenAI(baseURL, apiKey, modelName string, log *slog.Logger) *OpenAIClient {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAIClient{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
		log:   log,
	}
}

// Model returns the configured model name.
func (c *OpenAIClient) Model() string { return c.model }

// Generate sends prompt as a single user message and concatenates the
// streamed deltas.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	stream, err := c.api.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.3,
		Stream:      true,
	})
	if err != nil {
		return "", classify(err)
	}
	defer stream.Close()

	var sb strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			c.log.Error("LLM stream failed", "error", err)
			return "", classify(err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		sb.WriteString(resp.Choices[0].Delta.Content)
		if resp.Choices[0].FinishReason != "" {
			c.log.Debug("LLM stream finished", "reason", resp.Choices[0].FinishReason)
		}
	}
	return checkEmpty(sb.String())
}

// Ping lists models to verify the endpoint answers.
func (c *OpenAIClient) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return classify(err)
	}
	return nil
}

// classify maps client errors onto ErrUpstream or ErrProtocol.
func classify(err error) error {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, openai.ErrTooManyEmptyStreamMessages) {
		return fmt.Errorf("%w: %w", ErrProtocol, err)
	}
	return fmt.Errorf("%w: %w", ErrUpstream, err)
}
