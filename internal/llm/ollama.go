package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
)

// OllamaClient streams completions from Ollama's native /api/generate endpoint.
type OllamaClient struct {
	api     *api.Client
	model   string
	log     *slog.Logger
	options map[string]any
}

// NewOllama creates a client for the Ollama server at baseURL.
func NewOllama(baseURL, modelName string, log *slog.Logger) (*OllamaClient, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse ollama URL %q: %w", baseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("ollama URL %q must include scheme and host", baseURL)
	}
	return &OllamaClient{
		api:     api.NewClient(base, http.DefaultClient),
		model:   modelName,
		log:     log,
		options: map[string]any{"temperature": 0.3},
	}, nil
}

// Model returns the configured model name.
func (c *OllamaClient) Model() string { return c.model }

// Generate streams the reply and concatenates response fragments until a
// chunk with done=true arrives. Fragments after that are ignored.
func (c *OllamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	stream := true
	req := &api.GenerateRequest{
		Model:   c.model,
		Prompt:  prompt,
		Stream:  &stream,
		Options: c.options,
	}

	var sb strings.Builder
	done := false
	err := c.api.Generate(ctx, req, func(resp api.GenerateResponse) error {
		if done {
			return nil
		}
		sb.WriteString(resp.Response)
		if resp.Done {
			done = true
			c.log.Debug("LLM stream finished", "reason", resp.DoneReason)
		}
		return nil
	})
	if err != nil {
		c.log.Error("LLM stream failed", "model", c.model, "error", err)
		return "", classifyOllama(err)
	}
	if !done {
		c.log.Warn("generation stream ended without completion flag", "bytes", sb.Len())
	}
	return checkEmpty(sb.String())
}

// Ping checks that the Ollama server answers.
func (c *OllamaClient) Ping(ctx context.Context) error {
	v, err := c.api.Version(ctx)
	if err != nil {
		return classifyOllama(err)
	}
	c.log.Debug("ollama server version", "version", v)
	return nil
}

// classifyOllama maps client errors onto ErrUpstream or ErrProtocol. Status
// errors and error chunks are upstream failures; undecodable chunks are
// protocol violations.
func classifyOllama(err error) error {
	var statusErr api.StatusError
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &statusErr):
		return fmt.Errorf("%w: status %d: %w", ErrUpstream, statusErr.StatusCode, err)
	case errors.As(err, &syntaxErr), errors.As(err, &typeErr):
		return fmt.Errorf("%w: %w", ErrProtocol, err)
	default:
		return fmt.Errorf("%w: %w", ErrUpstream, err)
	}
}
