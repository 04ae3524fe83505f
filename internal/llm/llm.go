// Package llm wraps the remote text-generation service behind the two
// capabilities the rest of the system consumes: one-shot generation and
// streaming generation. Everything above this package is provider-
// agnostic; everything below it is Genkit.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// Sentinel errors for generation calls.
var (
	// ErrEmptyResponse indicates the model returned no text at all.
	ErrEmptyResponse = errors.New("empty model response")
)

// StreamFunc receives one text fragment of a streaming response. Returning
// an error aborts the stream.
type StreamFunc func(ctx context.Context, fragment string) error

// Client is the remote generation service as the orchestrator sees it.
// Timeouts, rate limiting, and retries are deliberately not handled here;
// they belong to the caller or the provider layer.
type Client interface {
	// Generate issues one request and returns the complete response text.
	Generate(ctx context.Context, prompt string) (string, error)

	// GenerateStream issues one request and delivers the response as an
	// ordered sequence of text fragments via fn, then returns the full
	// concatenated text. Stream termination and a returned error are the
	// only two completion signals.
	GenerateStream(ctx context.Context, prompt string, fn StreamFunc) (string, error)
}

// Config contains required parameters for the Genkit-backed client.
type Config struct {
	Genkit    *genkit.Genkit
	ModelName string // provider-qualified, e.g. "googleai/gemini-2.5-flash"
	Logger    *slog.Logger
}

func (cfg Config) validate() error {
	if cfg.Genkit == nil {
		return errors.New("genkit instance is required")
	}
	if cfg.ModelName == "" {
		return errors.New("model name is required")
	}
	return nil
}

// Genkit is a Client backed by a Genkit model.
type Genkit struct {
	g         *genkit.Genkit
	modelName string
	logger    *slog.Logger
}

// New creates a Genkit-backed client.
func New(cfg Config) (*Genkit, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Genkit{g: cfg.Genkit, modelName: cfg.ModelName, logger: logger}, nil
}

// Generate implements Client.
func (c *Genkit) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := genkit.Generate(ctx, c.g,
		ai.WithPrompt(prompt),
		ai.WithModelName(c.modelName),
	)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// GenerateStream implements Client. Text is extracted from each model
// chunk's parts and forwarded to fn in arrival order.
func (c *Genkit) GenerateStream(ctx context.Context, prompt string, fn StreamFunc) (string, error) {
	opts := []ai.GenerateOption{
		ai.WithPrompt(prompt),
		ai.WithModelName(c.modelName),
	}
	if fn != nil {
		opts = append(opts, ai.WithStreaming(func(ctx context.Context, chunk *ai.ModelResponseChunk) error {
			if chunk == nil {
				return nil
			}
			for _, part := range chunk.Content {
				if part.Text == "" {
					continue
				}
				if err := fn(ctx, part.Text); err != nil {
					return err
				}
			}
			return nil
		}))
	}

	resp, err := genkit.Generate(ctx, c.g, opts...)
	if err != nil {
		return "", fmt.Errorf("generate stream: %w", err)
	}
	c.logger.Debug("stream finished", "model", c.modelName, "chars", len(resp.Text()))
	return resp.Text(), nil
}
