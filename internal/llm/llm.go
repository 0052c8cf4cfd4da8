// Package llm adapts Genkit text generation to the answering pipeline.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"google.golang.org/genai"
)

// Generation parameters for grounded answering. Low temperature keeps
// the model close to the documentary context.
const (
	temperature     float32 = 0.3
	maxOutputTokens int32   = 1000
)

// Client generates completions through a Genkit instance.
type Client struct {
	genkit *genkit.Genkit
	logger *slog.Logger
}

// New creates a Client.
func New(g *genkit.Genkit, logger *slog.Logger) *Client {
	return &Client{
		genkit: g,
		logger: logger.With("component", "llm"),
	}
}

// Generate runs a single-turn completion against the named model and
// returns the trimmed response text.
func (c *Client) Generate(ctx context.Context, model, prompt string) (string, error) {
	response, err := genkit.Generate(ctx, c.genkit,
		ai.WithModelName(model),
		ai.WithPrompt(prompt),
		ai.WithConfig(&genai.GenerateContentConfig{
			Temperature:     genai.Ptr[float32](temperature),
			MaxOutputTokens: maxOutputTokens,
		}),
	)
	if err != nil {
		return "", fmt.Errorf("generating completion with %s: %w", model, err)
	}

	text := strings.TrimSpace(response.Text())
	if text == "" {
		return "", fmt.Errorf("model %s returned an empty response", model)
	}

	c.logger.Debug("completion generated", "model", model, "length", len(text))
	return text, nil
}
