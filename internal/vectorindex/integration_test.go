package vectorindex

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cnss-digital/rag-service/internal/testutil"
)

// insertTestDocument registers a parent document row so chunk rows can
// reference it.
func insertTestDocument(t *testing.T, db *testutil.TestDBContainer, name string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := db.Pool.Exec(context.Background(),
		`INSERT INTO knowledge_documents (id, name, type, size_bytes, status)
		 VALUES ($1, $2, 'txt', 100, 'INDEXED')`, id, name)
	require.NoError(t, err)
	return id
}

func TestIndex_Integration(t *testing.T) {
	if testing.Short() || os.Getenv("CI_SKIP_DOCKER") != "" {
		t.Skip("skipping integration test requiring Docker")
	}

	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	idx := New(db.Pool, testutil.NewNopLogger())
	embedder := testutil.NewDeterministicEmbedder(3072)

	embed := embedder.Vector

	docA := insertTestDocument(t, db, "guide-cotisations.txt")
	docB := insertTestDocument(t, db, "guide-prestations.txt")

	textA := "Les cotisations sociales sont versées mensuellement."
	textB := "Les prestations familiales sont servies trimestriellement."

	require.NoError(t, idx.Upsert(ctx, []Record{
		{ID: uuid.New(), DocumentID: docA, Content: textA, Embedding: embed(textA),
			Metadata: map[string]any{"page": 1, "chunk_index": 0}},
		{ID: uuid.New(), DocumentID: docB, Content: textB, Embedding: embed(textB),
			Metadata: map[string]any{"page": 1, "chunk_index": 0}},
	}))

	t.Run("count", func(t *testing.T) {
		count, err := idx.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})

	t.Run("exact match ranks first with similarity one", func(t *testing.T) {
		matches, err := idx.Search(ctx, embed(textA), 0.0, 5)
		require.NoError(t, err)
		require.NotEmpty(t, matches)

		assert.Equal(t, textA, matches[0].Content)
		assert.Equal(t, "guide-cotisations.txt", matches[0].DocumentName)
		assert.InDelta(t, 1.0, matches[0].Similarity, 1e-4)
		assert.LessOrEqual(t, matches[0].Similarity, 1.0)
	})

	t.Run("threshold filters weak matches", func(t *testing.T) {
		matches, err := idx.Search(ctx, embed(textA), 0.99, 5)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, textA, matches[0].Content)
	})

	t.Run("limit caps results", func(t *testing.T) {
		matches, err := idx.Search(ctx, embed(textA), 0.0, 1)
		require.NoError(t, err)
		assert.Len(t, matches, 1)
	})

	t.Run("metadata round trips", func(t *testing.T) {
		matches, err := idx.Search(ctx, embed(textB), 0.99, 1)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.EqualValues(t, 1, matches[0].Metadata["page"])
	})

	t.Run("upsert overwrites existing chunk", func(t *testing.T) {
		chunkID := uuid.New()
		rec := Record{ID: chunkID, DocumentID: docA, Content: "version un",
			Embedding: embed("version un")}
		require.NoError(t, idx.Upsert(ctx, []Record{rec}))

		rec.Content = "version deux"
		rec.Embedding = embed("version deux")
		require.NoError(t, idx.Upsert(ctx, []Record{rec}))

		matches, err := idx.Search(ctx, embed("version deux"), 0.99, 1)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "version deux", matches[0].Content)
	})

	t.Run("delete by document removes only that document's chunks", func(t *testing.T) {
		deleted, err := idx.DeleteByDocument(ctx, docA)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, deleted, int64(1))

		matches, err := idx.Search(ctx, embed(textB), 0.0, 10)
		require.NoError(t, err)
		for _, m := range matches {
			assert.NotEqual(t, docA, m.DocumentID)
		}
	})
}
