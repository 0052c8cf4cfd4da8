// Package rag implements the retrieval-augmented answering pipeline:
// document indexing, similarity search, and grounded answer generation
// with confidence scoring.
package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/cnss-digital/rag-service/internal/chunker"
	"github.com/cnss-digital/rag-service/internal/extract"
	"github.com/cnss-digital/rag-service/internal/registry"
	"github.com/cnss-digital/rag-service/internal/vectorindex"
)

// Embedder turns text into embedding vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Index stores chunk vectors and answers similarity queries.
type Index interface {
	Upsert(ctx context.Context, records []vectorindex.Record) error
	Search(ctx context.Context, embedding []float32, threshold float64, limit int) ([]vectorindex.Match, error)
	DeleteByDocument(ctx context.Context, documentID uuid.UUID) (int64, error)
	Count(ctx context.Context) (int64, error)
}

// Registry tracks document records and their lifecycle.
type Registry interface {
	Create(ctx context.Context, doc registry.Document) error
	MarkIndexed(ctx context.Context, id uuid.UUID, chunkCount int) error
	MarkFailed(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (registry.Document, error)
	List(ctx context.Context) ([]registry.Document, error)
	Delete(ctx context.Context, id uuid.UUID) error
	CountByStatus(ctx context.Context) (map[registry.Status]int64, error)
}

// Generator produces model completions.
type Generator interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}

// Source identifies one document that grounded an answer.
type Source struct {
	Document string  `json:"document"`
	Page     int     `json:"page"`
	Score    float64 `json:"score"`
}

// Answer is the result of a knowledge-base query.
type Answer struct {
	Text       string   `json:"response"`
	Sources    []Source `json:"sources"`
	Confidence float64  `json:"confidence"`
}

// Stats summarizes the knowledge base.
type Stats struct {
	TotalDocuments int64                     `json:"total_documents"`
	TotalChunks    int64                     `json:"total_chunks"`
	ByStatus       map[registry.Status]int64 `json:"documents_by_status"`
}

// Service orchestrates the pipeline. The chunk splitter is rebuilt
// whenever runtime settings change and swapped atomically, so in-flight
// indexing keeps the splitter it started with.
type Service struct {
	embedder  Embedder
	index     Index
	registry  Registry
	generator Generator
	settings  *Settings
	splitter  atomic.Pointer[chunker.Splitter]
	logger    *slog.Logger
}

// NewService wires the pipeline. Settings must already hold validated
// parameters; the initial splitter is built from them.
func NewService(embedder Embedder, index Index, reg Registry, generator Generator,
	settings *Settings, logger *slog.Logger) (*Service, error) {

	s := &Service{
		embedder:  embedder,
		index:     index,
		registry:  reg,
		generator: generator,
		settings:  settings,
		logger:    logger.With("component", "rag"),
	}

	params := settings.Current()
	splitter, err := chunker.New(params.ChunkSize, params.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfig, err)
	}
	s.splitter.Store(splitter)

	settings.Subscribe(func(p Params) {
		next, err := chunker.New(p.ChunkSize, p.ChunkOverlap)
		if err != nil {
			// Settings are validated before publication, so this
			// cannot happen unless validation and chunker bounds drift.
			s.logger.Error("rebuilding splitter failed", "error", err)
			return
		}
		s.splitter.Store(next)
	})

	return s, nil
}

// Config returns the active runtime parameters.
func (s *Service) Config() Params {
	return s.settings.Current()
}

// UpdateConfig applies a partial parameter update. Changes take effect
// immediately for subsequent queries and indexing runs.
func (s *Service) UpdateConfig(update ParamsUpdate) (Params, error) {
	params, err := s.settings.Update(update)
	if err != nil {
		return Params{}, err
	}
	s.logger.Info("runtime configuration updated",
		"model", params.ModelName,
		"chunk_size", params.ChunkSize,
		"chunk_overlap", params.ChunkOverlap,
		"top_k", params.TopK,
		"similarity_threshold", params.SimilarityThreshold)
	return params, nil
}

// ListDocuments returns all registered documents, newest first.
func (s *Service) ListDocuments(ctx context.Context) ([]registry.Document, error) {
	return s.registry.List(ctx)
}

// GetDocument returns one document by ID.
func (s *Service) GetDocument(ctx context.Context, id uuid.UUID) (registry.Document, error) {
	return s.registry.Get(ctx, id)
}

// DeleteDocument removes a document and its vectors. Vectors go first:
// if the registry delete then fails, the document row survives with no
// vectors behind it, which is reported as ErrRegistryInconsistency
// rather than silently swallowed.
func (s *Service) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	if _, err := s.registry.Get(ctx, id); err != nil {
		return err
	}

	deleted, err := s.index.DeleteByDocument(ctx, id)
	if err != nil {
		return fmt.Errorf("deleting vectors for document %s: %w", id, err)
	}

	if err := s.registry.Delete(ctx, id); err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			// Concurrent delete won the race; nothing is inconsistent.
			return nil
		}
		return fmt.Errorf("%w: %d vectors removed but registry delete failed for %s: %w",
			ErrRegistryInconsistency, deleted, id, err)
	}

	s.logger.Info("document deleted", "id", id, "chunks_removed", deleted)
	return nil
}

// Stats returns knowledge base counts.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	byStatus, err := s.registry.CountByStatus(ctx)
	if err != nil {
		return Stats{}, err
	}

	chunks, err := s.index.Count(ctx)
	if err != nil {
		return Stats{}, err
	}

	var total int64
	for _, n := range byStatus {
		total += n
	}

	return Stats{
		TotalDocuments: total,
		TotalChunks:    chunks,
		ByStatus:       byStatus,
	}, nil
}

// Search embeds the query and returns raw matches without calling the
// model. Used by the debug search endpoint.
func (s *Service) Search(ctx context.Context, query string) ([]vectorindex.Match, error) {
	params := s.settings.Current()

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	return s.index.Search(ctx, embedding, params.SimilarityThreshold, params.TopK)
}

// SupportedExtensions lists the accepted upload file extensions.
func (s *Service) SupportedExtensions() []string {
	return extract.SupportedExtensions()
}

// newDocumentRecord builds the registry row for a fresh upload.
func newDocumentRecord(name, docType string, size int64) registry.Document {
	return registry.Document{
		ID:        uuid.New(),
		Name:      name,
		Type:      docType,
		SizeBytes: size,
		Status:    registry.StatusIndexing,
		CreatedAt: time.Now().UTC(),
	}
}
