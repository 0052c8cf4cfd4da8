package testutil

import (
	"context"
	"hash/fnv"
	"math"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"
)

// DeterministicEmbedder implements ai.Embedder with stable,
// content-derived vectors. Each word hashes to a pseudo-random unit
// direction and the text embeds to the normalized sum, so texts sharing
// words land close in cosine space and identical texts embed
// identically. No provider credentials needed.
type DeterministicEmbedder struct {
	Dimensions int
}

// NewDeterministicEmbedder returns an embedder producing unit vectors
// of the given dimension.
func NewDeterministicEmbedder(dims int) *DeterministicEmbedder {
	return &DeterministicEmbedder{Dimensions: dims}
}

func (e *DeterministicEmbedder) Name() string { return "deterministic-embedder" }

func (e *DeterministicEmbedder) Register(r api.Registry) {}

func (e *DeterministicEmbedder) Embed(ctx context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	resp := &ai.EmbedResponse{}
	for _, doc := range req.Input {
		var text string
		if len(doc.Content) > 0 {
			text = doc.Content[0].Text
		}
		resp.Embeddings = append(resp.Embeddings, &ai.Embedding{
			Embedding: e.Vector(text),
		})
	}
	return resp, nil
}

// Vector returns the embedding for text directly, bypassing the
// ai.Embedder request plumbing. Handy when a test needs the raw query
// vector.
func (e *DeterministicEmbedder) Vector(text string) []float32 {
	sum := make([]float64, e.Dimensions)

	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,;:!?()[]«»\"'")
		if word == "" {
			continue
		}
		e.addWordVector(sum, word)
	}

	var norm float64
	for _, v := range sum {
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		// Whitespace-only text gets a fixed direction so the vector is
		// still valid for storage.
		sum[0] = 1
		norm = 1
	}

	out := make([]float32, e.Dimensions)
	for i, v := range sum {
		out[i] = float32(v / norm)
	}
	return out
}

// addWordVector accumulates the pseudo-random direction for one word,
// seeded by an FNV hash so it is stable across runs.
func (e *DeterministicEmbedder) addWordVector(sum []float64, word string) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(word))
	seed := h.Sum64()
	for i := range sum {
		seed = seed*6364136223846793005 + 1442695040888963407
		sum[i] += float64(int64(seed>>11))/float64(1<<52) - 1
	}
}
