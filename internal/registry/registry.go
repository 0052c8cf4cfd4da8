// Package registry tracks knowledge documents and their indexing
// lifecycle in PostgreSQL.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound indicates the document does not exist.
	ErrNotFound = errors.New("document not found")

	// ErrRegistry indicates a registry operation failed.
	ErrRegistry = errors.New("registry operation failed")
)

// Status is the indexing lifecycle state of a document.
type Status string

// Document lifecycle: INDEXING on upload, then INDEXED or FAILED once
// background processing finishes.
const (
	StatusIndexing Status = "INDEXING"
	StatusIndexed  Status = "INDEXED"
	StatusFailed   Status = "FAILED"
)

// Document is one registered knowledge document.
type Document struct {
	ID         uuid.UUID
	Name       string
	Type       string
	SizeBytes  int64
	Status     Status
	ChunkCount int
	CreatedAt  time.Time
	IndexedAt  *time.Time
}

// DB is the subset of pgxpool.Pool the registry needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Registry persists document records.
type Registry struct {
	db     DB
	logger *slog.Logger
}

// New creates a Registry on the given database handle.
func New(db DB, logger *slog.Logger) *Registry {
	return &Registry{
		db:     db,
		logger: logger.With("component", "registry"),
	}
}

// Create inserts a new document record in INDEXING state.
func (r *Registry) Create(ctx context.Context, doc Document) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO knowledge_documents (id, name, type, size_bytes, status, chunk_count, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		doc.ID, doc.Name, doc.Type, doc.SizeBytes, doc.Status, doc.ChunkCount, doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("%w: creating document %s: %w", ErrRegistry, doc.ID, err)
	}
	r.logger.Debug("document registered", "id", doc.ID, "name", doc.Name)
	return nil
}

// MarkIndexed transitions a document to INDEXED, recording the chunk
// count and completion time.
func (r *Registry) MarkIndexed(ctx context.Context, id uuid.UUID, chunkCount int) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE knowledge_documents
		 SET status = $1, chunk_count = $2, indexed_at = now()
		 WHERE id = $3`,
		StatusIndexed, chunkCount, id)
	if err != nil {
		return fmt.Errorf("%w: marking document %s indexed: %w", ErrRegistry, id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// MarkFailed transitions a document to FAILED.
func (r *Registry) MarkFailed(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE knowledge_documents SET status = $1 WHERE id = $2`,
		StatusFailed, id)
	if err != nil {
		return fmt.Errorf("%w: marking document %s failed: %w", ErrRegistry, id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

const documentColumns = `id, name, type, size_bytes, status, chunk_count, created_at, indexed_at`

// Get returns a document by ID.
func (r *Registry) Get(ctx context.Context, id uuid.UUID) (Document, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+documentColumns+` FROM knowledge_documents WHERE id = $1`, id)

	doc, err := scanDocument(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Document{}, fmt.Errorf("%w: getting document %s: %w", ErrRegistry, id, err)
	}
	return doc, nil
}

// List returns all documents, newest first.
func (r *Registry) List(ctx context.Context) ([]Document, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+documentColumns+` FROM knowledge_documents ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("%w: listing documents: %w", ErrRegistry, err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scanning document: %w", ErrRegistry, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating documents: %w", ErrRegistry, err)
	}
	return docs, nil
}

// Delete removes a document record. Chunk rows cascade at the schema
// level, but the caller is expected to delete vectors explicitly first
// so a failure here can be reported as an inconsistency.
func (r *Registry) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM knowledge_documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: deleting document %s: %w", ErrRegistry, id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	r.logger.Debug("document deleted", "id", id)
	return nil
}

// CountByStatus returns document counts grouped by lifecycle state.
func (r *Registry) CountByStatus(ctx context.Context) (map[Status]int64, error) {
	rows, err := r.db.Query(ctx,
		`SELECT status, COUNT(*) FROM knowledge_documents GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("%w: counting documents: %w", ErrRegistry, err)
	}
	defer rows.Close()

	counts := make(map[Status]int64)
	for rows.Next() {
		var status Status
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("%w: scanning status count: %w", ErrRegistry, err)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating status counts: %w", ErrRegistry, err)
	}
	return counts, nil
}

// scanDocument reads one document row. Works for both QueryRow and Rows.
func scanDocument(row pgx.Row) (Document, error) {
	var doc Document
	err := row.Scan(&doc.ID, &doc.Name, &doc.Type, &doc.SizeBytes,
		&doc.Status, &doc.ChunkCount, &doc.CreatedAt, &doc.IndexedAt)
	return doc, err
}
