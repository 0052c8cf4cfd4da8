package rag

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cnss-digital/rag-service/internal/config"
	"github.com/cnss-digital/rag-service/internal/embedding"
	"github.com/cnss-digital/rag-service/internal/registry"
	"github.com/cnss-digital/rag-service/internal/testutil"
	"github.com/cnss-digital/rag-service/internal/vectorindex"
	"golang.org/x/time/rate"
)

// echoGenerator returns a canned answer and records the prompt.
type echoGenerator struct {
	lastPrompt string
}

func (g *echoGenerator) Generate(ctx context.Context, model, prompt string) (string, error) {
	g.lastPrompt = prompt
	return "Réponse fondée sur le contexte.", nil
}

// TestPipeline_Integration exercises the full path against a real
// database: submit, index, answer, search, stats, delete. The
// deterministic embedder stands in for the provider so retrieval
// behaves predictably.
func TestPipeline_Integration(t *testing.T) {
	if testing.Short() || os.Getenv("CI_SKIP_DOCKER") != "" {
		t.Skip("skipping integration test requiring Docker")
	}

	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	logger := testutil.NewNopLogger()
	gen := &echoGenerator{}

	cfg := &config.Config{
		ModelName:           "gpt-4",
		ChunkSize:           200,
		ChunkOverlap:        40,
		TopK:                5,
		SimilarityThreshold: 0.2,
	}

	svc, err := NewService(
		embedding.New(testutil.NewDeterministicEmbedder(3072), logger,
			embedding.WithRateLimit(rate.Inf, 1)),
		vectorindex.New(db.Pool, logger),
		registry.New(db.Pool, logger),
		gen,
		NewSettings(cfg),
		logger,
	)
	require.NoError(t, err)

	content := []byte(strings.Repeat(
		"Les cotisations sociales sont versées mensuellement par l'employeur. ", 10))

	doc, err := svc.SubmitForIndexing(ctx, "cotisations.txt", int64(len(content)))
	require.NoError(t, err)
	require.NoError(t, svc.IndexDocument(ctx, doc.ID, doc.Type, content))

	t.Run("document reaches INDEXED with chunk count", func(t *testing.T) {
		stored, err := svc.GetDocument(ctx, doc.ID)
		require.NoError(t, err)
		assert.Equal(t, registry.StatusIndexed, stored.Status)
		assert.Greater(t, stored.ChunkCount, 1)
		assert.NotNil(t, stored.IndexedAt)
	})

	t.Run("answer grounds on retrieved chunks", func(t *testing.T) {
		answer, err := svc.Answer(ctx, "Les cotisations sociales sont versées mensuellement par l'employeur.")
		require.NoError(t, err)

		assert.Equal(t, "Réponse fondée sur le contexte.", answer.Text)
		assert.Greater(t, answer.Confidence, 0.0)
		require.NotEmpty(t, answer.Sources)
		assert.Equal(t, "cotisations.txt", answer.Sources[0].Document)
		assert.Contains(t, gen.lastPrompt, "[Source: cotisations.txt]")
	})

	t.Run("unrelated question falls back without sources", func(t *testing.T) {
		// Raise the threshold so nothing matches.
		_, err := svc.UpdateConfig(ParamsUpdate{SimilarityThreshold: ptr(0.999)})
		require.NoError(t, err)
		defer func() {
			_, err := svc.UpdateConfig(ParamsUpdate{SimilarityThreshold: ptr(0.2)})
			require.NoError(t, err)
		}()

		answer, err := svc.Answer(ctx, "Quelle est la capitale de l'Australie ?")
		require.NoError(t, err)
		assert.Equal(t, FallbackAnswer, answer.Text)
		assert.Zero(t, answer.Confidence)
		assert.Empty(t, answer.Sources)
	})

	t.Run("stats reflect the indexed document", func(t *testing.T) {
		stats, err := svc.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), stats.TotalDocuments)
		assert.Greater(t, stats.TotalChunks, int64(1))
		assert.Equal(t, int64(1), stats.ByStatus[registry.StatusIndexed])
	})

	t.Run("delete removes document and vectors", func(t *testing.T) {
		require.NoError(t, svc.DeleteDocument(ctx, doc.ID))

		_, err := svc.GetDocument(ctx, doc.ID)
		assert.ErrorIs(t, err, registry.ErrNotFound)

		stats, err := svc.Stats(ctx)
		require.NoError(t, err)
		assert.Zero(t, stats.TotalChunks)
	})
}
