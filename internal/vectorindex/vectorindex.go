// Package vectorindex stores and searches chunk embeddings in
// PostgreSQL with pgvector. Similarity is cosine based: the <=> operator
// returns cosine distance, converted to 1 - distance so higher is
// always better.
package vectorindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"
)

// ErrIndex indicates a vector index operation failed.
var ErrIndex = errors.New("vector index operation failed")

// upsertBatchSize bounds how many chunk rows go into one pgx batch.
const upsertBatchSize = 100

// Record is one chunk ready for storage.
type Record struct {
	ID         uuid.UUID
	DocumentID uuid.UUID
	Content    string
	Embedding  []float32
	Metadata   map[string]any
}

// Match is one search hit. Similarity is in [0, 1], higher is closer.
type Match struct {
	ChunkID      uuid.UUID
	DocumentID   uuid.UUID
	DocumentName string
	Content      string
	Similarity   float64
	Metadata     map[string]any
}

// DB is the subset of pgxpool.Pool the index needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Index persists chunk embeddings and answers similarity queries.
type Index struct {
	db     DB
	logger *slog.Logger
}

// New creates an Index on the given database handle.
func New(db DB, logger *slog.Logger) *Index {
	return &Index{
		db:     db,
		logger: logger.With("component", "vectorindex"),
	}
}

// Upsert writes records in batches of 100. Existing chunk IDs are
// overwritten, so re-indexing a document is idempotent.
func (i *Index) Upsert(ctx context.Context, records []Record) error {
	for start := 0; start < len(records); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(records))
		if err := i.upsertBatch(ctx, records[start:end]); err != nil {
			return err
		}
	}
	if len(records) > 0 {
		i.logger.Debug("upserted chunks", "count", len(records))
	}
	return nil
}

func (i *Index) upsertBatch(ctx context.Context, records []Record) error {
	batch := &pgx.Batch{}
	for _, rec := range records {
		metadata, err := json.Marshal(rec.Metadata)
		if err != nil {
			return fmt.Errorf("%w: marshaling metadata for chunk %s: %w", ErrIndex, rec.ID, err)
		}
		batch.Queue(
			`INSERT INTO knowledge_chunks (id, document_id, content, embedding, metadata)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (id) DO UPDATE
			 SET content = EXCLUDED.content,
			     embedding = EXCLUDED.embedding,
			     metadata = EXCLUDED.metadata`,
			rec.ID, rec.DocumentID, rec.Content,
			pgvector.NewVector(rec.Embedding), metadata,
		)
	}

	results := i.db.SendBatch(ctx, batch)
	defer func() {
		if err := results.Close(); err != nil {
			i.logger.Warn("closing batch results", "error", err)
		}
	}()

	for range records {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("%w: upserting chunk batch: %w", ErrIndex, err)
		}
	}
	return nil
}

// Search returns the chunks most similar to the query embedding, best
// first. Only matches at or above threshold are returned, at most limit
// of them. Thresholding happens in SQL so rows below it never leave the
// database.
func (i *Index) Search(ctx context.Context, embedding []float32, threshold float64, limit int) ([]Match, error) {
	vec := pgvector.NewVector(embedding)

	rows, err := i.db.Query(ctx,
		`SELECT c.id, c.document_id, d.name, c.content,
		        1 - (c.embedding <=> $1) AS similarity,
		        c.metadata
		 FROM knowledge_chunks c
		 JOIN knowledge_documents d ON d.id = c.document_id
		 WHERE 1 - (c.embedding <=> $1) >= $2
		 ORDER BY c.embedding <=> $1
		 LIMIT $3`,
		vec, threshold, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: querying similar chunks: %w", ErrIndex, err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		var metadata []byte
		if err := rows.Scan(&m.ChunkID, &m.DocumentID, &m.DocumentName,
			&m.Content, &m.Similarity, &metadata); err != nil {
			return nil, fmt.Errorf("%w: scanning match: %w", ErrIndex, err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &m.Metadata); err != nil {
				return nil, fmt.Errorf("%w: decoding metadata for chunk %s: %w", ErrIndex, m.ChunkID, err)
			}
		}
		m.Similarity = clampSimilarity(m.Similarity)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating matches: %w", ErrIndex, err)
	}

	return matches, nil
}

// DeleteByDocument removes every chunk belonging to a document and
// returns how many were deleted.
func (i *Index) DeleteByDocument(ctx context.Context, documentID uuid.UUID) (int64, error) {
	tag, err := i.db.Exec(ctx,
		`DELETE FROM knowledge_chunks WHERE document_id = $1`, documentID)
	if err != nil {
		return 0, fmt.Errorf("%w: deleting chunks for document %s: %w", ErrIndex, documentID, err)
	}
	return tag.RowsAffected(), nil
}

// Count returns the total number of stored chunks.
func (i *Index) Count(ctx context.Context) (int64, error) {
	var count int64
	err := i.db.QueryRow(ctx, `SELECT COUNT(*) FROM knowledge_chunks`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: counting chunks: %w", ErrIndex, err)
	}
	return count, nil
}

// clampSimilarity keeps scores inside [0, 1]. Floating point rounding
// in the distance computation can drift a hair outside the range.
func clampSimilarity(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
