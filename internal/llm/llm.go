// Package llm talks to the locally hosted text generation API.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

var (
	// ErrUpstream means the generation API was unreachable or answered with a
	// non-success status.
	ErrUpstream = errors.New("generation API request failed")
	// ErrProtocol means the API answered but a streamed chunk was malformed.
	ErrProtocol = errors.New("invalid response from generation API")
	// ErrEmptyResponse means the stream completed without any text.
	ErrEmptyResponse = errors.New("no text received from generation API")
)

// Backend names accepted by New.
const (
	BackendOllama = "ollama"
	BackendOpenAI = "openai"
)

// Generator drafts text for a prompt. Implementations consume the streamed
// reply synchronously and return the concatenated text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Ping(ctx context.Context) error
	Model() string
}

// DefaultURL returns the conventional local endpoint for a backend.
func DefaultURL(backend string) string {
	if backend == BackendOpenAI {
		return "http://localhost:11434/v1"
	}
	return "http://localhost:11434"
}

// New creates a Generator for the named backend.
func New(backend, baseURL, apiKey, modelName string, log *slog.Logger) (Generator, error) {
	if log == nil {
		log = slog.Default()
	}
	if modelName == "" {
		return nil, fmt.Errorf("model name is required")
	}
	backend = strings.ToLower(backend)
	if baseURL == "" {
		baseURL = DefaultURL(backend)
	}
	switch backend {
	case BackendOllama, "":
		c, err := NewOllama(baseURL, modelName, log)
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendOpenAI:
		return NewOpenAI(baseURL, apiKey, modelName, log), nil
	default:
		return nil, fmt.Errorf("unknown LLM backend %q (want %s or %s)", backend, BackendOllama, BackendOpenAI)
	}
}

func checkEmpty(text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
