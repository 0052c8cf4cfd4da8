package rag

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/cnss-digital/rag-service/internal/extract"
	"github.com/cnss-digital/rag-service/internal/registry"
	"github.com/cnss-digital/rag-service/internal/vectorindex"
)

// SubmitForIndexing validates the file type and registers the document
// in INDEXING state. The heavy work happens later in IndexDocument,
// typically on a background goroutine, so uploads return immediately.
func (s *Service) SubmitForIndexing(ctx context.Context, filename string, size int64) (registry.Document, error) {
	docType, err := extract.TypeFromFilename(filename)
	if err != nil {
		return registry.Document{}, err
	}

	doc := newDocumentRecord(filename, docType, size)
	if err := s.registry.Create(ctx, doc); err != nil {
		return registry.Document{}, err
	}

	s.logger.Info("document submitted", "id", doc.ID, "name", filename, "size", size)
	return doc, nil
}

// IndexDocument extracts, chunks, embeds, and stores a submitted
// document, then marks it INDEXED. Any failure marks it FAILED; the
// original error is returned either way.
func (s *Service) IndexDocument(ctx context.Context, docID uuid.UUID, docType string, data []byte) error {
	chunkCount, err := s.indexContent(ctx, docID, docType, data)
	if err != nil {
		if markErr := s.registry.MarkFailed(ctx, docID); markErr != nil {
			s.logger.Error("marking document failed", "id", docID, "error", markErr)
		}
		s.logger.Error("indexing failed", "id", docID, "error", err)
		return err
	}

	if err := s.registry.MarkIndexed(ctx, docID, chunkCount); err != nil {
		return err
	}

	s.logger.Info("document indexed", "id", docID, "chunks", chunkCount)
	return nil
}

func (s *Service) indexContent(ctx context.Context, docID uuid.UUID, docType string, data []byte) (int, error) {
	extractor, err := extract.For(docType)
	if err != nil {
		return 0, err
	}
	segments, err := extractor.Extract(data)
	if err != nil {
		return 0, err
	}

	// The splitter snapshot is taken once so a concurrent settings
	// change cannot mix chunk sizes within one document.
	splitter := s.splitter.Load()

	var records []vectorindex.Record
	var texts []string
	chunkIndex := 0
	for _, seg := range segments {
		for _, chunk := range splitter.Split(seg.Text) {
			records = append(records, vectorindex.Record{
				ID:         uuid.New(),
				DocumentID: docID,
				Content:    chunk.Content,
				Metadata: map[string]any{
					"page":        seg.Page,
					"chunk_index": chunkIndex,
				},
			})
			texts = append(texts, chunk.Content)
			chunkIndex++
		}
	}

	if len(records) == 0 {
		return 0, fmt.Errorf("%w: document produced no chunks", extract.ErrExtraction)
	}

	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, err
	}
	for i := range records {
		records[i].Embedding = vectors[i]
	}

	if err := s.index.Upsert(ctx, records); err != nil {
		return 0, err
	}

	return len(records), nil
}
