// Package embedding wraps a Genkit embedder behind a small client with
// rate limiting and batch support.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"golang.org/x/time/rate"
)

// ErrEmbedding indicates the provider call failed or returned an
// unusable response.
var ErrEmbedding = errors.New("embedding failed")

// defaultRateLimit bounds provider calls. OpenAI's embedding tier
// allows far more, but staying conservative keeps burst indexing from
// tripping 429s.
const (
	defaultRateLimit = rate.Limit(10)
	defaultBurst     = 10
)

// Client converts text into embedding vectors.
type Client struct {
	embedder ai.Embedder
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithRateLimit overrides the default provider call rate.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(limit, burst)
	}
}

// New creates a Client backed by the given Genkit embedder.
func New(embedder ai.Embedder, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		embedder: embedder,
		limiter:  rate.NewLimiter(defaultRateLimit, defaultBurst),
		logger:   logger.With("component", "embedding"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Embed returns the embedding vector for a single text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch returns one vector per input text, in input order. All
// texts go out in a single provider request; callers batch at a higher
// level if they need smaller requests.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %w", ErrEmbedding, err)
	}

	docs := make([]*ai.Document, len(texts))
	for i, text := range texts {
		docs[i] = &ai.Document{
			Content: []*ai.Part{ai.NewTextPart(text)},
		}
	}

	resp, err := c.embedder.Embed(ctx, &ai.EmbedRequest{Input: docs})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEmbedding, err)
	}

	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs",
			ErrEmbedding, len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for i, emb := range resp.Embeddings {
		if len(emb.Embedding) == 0 {
			return nil, fmt.Errorf("%w: empty vector at index %d", ErrEmbedding, i)
		}
		vectors[i] = emb.Embedding
	}

	c.logger.Debug("embedded batch", "texts", len(texts), "dimensions", len(vectors[0]))
	return vectors, nil
}
