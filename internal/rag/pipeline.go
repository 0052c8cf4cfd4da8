package rag

import (
	"context"
	"fmt"
	"math"

	"github.com/cnss-digital/rag-service/internal/vectorindex"
)

// Answer runs the full query pipeline: embed the question, retrieve
// the closest chunks, and generate a grounded answer. When nothing
// clears the similarity threshold the canned fallback is returned with
// zero confidence and the model is never called.
func (s *Service) Answer(ctx context.Context, question string) (Answer, error) {
	params := s.settings.Current()

	embedding, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return Answer{}, err
	}

	matches, err := s.index.Search(ctx, embedding, params.SimilarityThreshold, params.TopK)
	if err != nil {
		return Answer{}, err
	}

	if len(matches) == 0 {
		s.logger.Warn("no relevant chunks found", "question", truncate(question, 50))
		return Answer{
			Text:       FallbackAnswer,
			Sources:    []Source{},
			Confidence: 0,
		}, nil
	}

	prompt := buildPrompt(buildContext(promptMatches(matches)), question)

	text, err := s.generator.Generate(ctx, params.ModelName, prompt)
	if err != nil {
		return Answer{}, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	answer := Answer{
		Text:       text,
		Sources:    sourcesOf(matches),
		Confidence: round3(meanSimilarity(matches)),
	}

	s.logger.Info("query answered",
		"question", truncate(question, 50),
		"confidence", answer.Confidence,
		"sources", len(answer.Sources))
	return answer, nil
}

// promptMatches projects search matches to the fields the prompt needs.
func promptMatches(matches []vectorindex.Match) []matchForPrompt {
	out := make([]matchForPrompt, len(matches))
	for i, m := range matches {
		out[i] = matchForPrompt{DocumentName: m.DocumentName, Content: m.Content}
	}
	return out
}

// sourcesOf builds the source attributions, one per retrieved chunk,
// in retrieval order. Page defaults to 1 when the chunk metadata does
// not carry one.
func sourcesOf(matches []vectorindex.Match) []Source {
	sources := make([]Source, len(matches))
	for i, m := range matches {
		sources[i] = Source{
			Document: m.DocumentName,
			Page:     pageOf(m.Metadata),
			Score:    round3(m.Similarity),
		}
	}
	return sources
}

// pageOf extracts the page number from chunk metadata. JSON decoding
// yields float64 for numbers.
func pageOf(metadata map[string]any) int {
	switch v := metadata["page"].(type) {
	case float64:
		if v >= 1 {
			return int(v)
		}
	case int:
		if v >= 1 {
			return v
		}
	}
	return 1
}

// meanSimilarity averages the similarity of the retrieved chunks. This
// is the answer's confidence.
func meanSimilarity(matches []vectorindex.Match) float64 {
	var sum float64
	for _, m := range matches {
		sum += m.Similarity
	}
	return sum / float64(len(matches))
}

// round3 rounds to three decimals, matching the API contract for
// scores and confidence.
func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
