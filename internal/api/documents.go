package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/cnss-digital/rag-service/internal/registry"
)

// indexingTimeout bounds one background indexing run. Large documents
// need many embedding calls, so this is generous.
const indexingTimeout = 10 * time.Minute

type documentResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	SizeBytes int64   `json:"size_bytes"`
	Status    string  `json:"status"`
	Chunks    int     `json:"chunks"`
	CreatedAt string  `json:"created_at"`
	IndexedAt *string `json:"indexed_at"`
}

type uploadResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

func toDocumentResponse(doc registry.Document) documentResponse {
	resp := documentResponse{
		ID:        doc.ID.String(),
		Name:      doc.Name,
		Type:      doc.Type,
		SizeBytes: doc.SizeBytes,
		Status:    string(doc.Status),
		Chunks:    doc.ChunkCount,
		CreatedAt: doc.CreatedAt.Format(time.RFC3339),
	}
	if doc.IndexedAt != nil {
		s := doc.IndexedAt.Format(time.RFC3339)
		resp.IndexedAt = &s
	}
	return resp
}

// handleUploadDocument accepts a multipart upload, registers the
// document, and returns 202 immediately. Extraction, chunking, and
// embedding run on a background goroutine tracked by the server.
func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		badRequest(w, s.logger, "multipart field \"file\" is required")
		return
	}
	defer func() {
		if err := file.Close(); err != nil {
			s.logger.Warn("closing upload file", "error", err)
		}
	}()

	data, err := io.ReadAll(file)
	if err != nil {
		badRequest(w, s.logger, "reading upload failed (size limit exceeded?)")
		return
	}

	doc, err := s.svc.SubmitForIndexing(r.Context(), header.Filename, int64(len(data)))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	// Detach from the request context so the client disconnecting does
	// not abort indexing.
	s.indexing.Add(1)
	go func() {
		defer s.indexing.Done()
		ctx, cancel := context.WithTimeout(context.Background(), indexingTimeout)
		defer cancel()
		if err := s.svc.IndexDocument(ctx, doc.ID, doc.Type, data); err != nil {
			s.logger.Error("background indexing failed", "id", doc.ID, "error", err)
		}
	}()

	writeJSON(w, s.logger, http.StatusAccepted, uploadResponse{
		ID:      doc.ID.String(),
		Name:    doc.Name,
		Status:  string(doc.Status),
		Message: "Document en cours d'indexation. Cela peut prendre quelques minutes.",
	})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.svc.ListDocuments(r.Context())
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	out := make([]documentResponse, len(docs))
	for i, doc := range docs {
		out[i] = toDocumentResponse(doc)
	}
	writeJSON(w, s.logger, http.StatusOK, map[string]any{"documents": out})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		badRequest(w, s.logger, "invalid document id")
		return
	}

	doc, err := s.svc.GetDocument(r.Context(), id)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, toDocumentResponse(doc))
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		badRequest(w, s.logger, "invalid document id")
		return
	}

	if err := s.svc.DeleteDocument(r.Context(), id); err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, map[string]any{
		"success": true,
		"message": "Document supprimé avec succès",
	})
}
