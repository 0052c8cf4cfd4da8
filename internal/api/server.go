// Package api exposes the knowledge base over HTTP: chat, document
// management, runtime configuration, and debug search.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cnss-digital/rag-service/internal/rag"
	"github.com/cnss-digital/rag-service/internal/registry"
	"github.com/cnss-digital/rag-service/internal/vectorindex"
)

// Server timeouts. Chat requests wait on the model, so the write
// timeout is generous.
const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 5 * time.Minute
	writeTimeout      = 5 * time.Minute
	idleTimeout       = 2 * time.Minute
	shutdownTimeout   = 30 * time.Second
)

// defaultMaxUploadBytes caps multipart uploads when no limit is
// configured.
const defaultMaxUploadBytes = 32 << 20

// Service is the knowledge-base surface the HTTP layer needs.
type Service interface {
	Answer(ctx context.Context, question string) (rag.Answer, error)
	SubmitForIndexing(ctx context.Context, filename string, size int64) (registry.Document, error)
	IndexDocument(ctx context.Context, docID uuid.UUID, docType string, data []byte) error
	ListDocuments(ctx context.Context) ([]registry.Document, error)
	GetDocument(ctx context.Context, id uuid.UUID) (registry.Document, error)
	DeleteDocument(ctx context.Context, id uuid.UUID) error
	Stats(ctx context.Context) (rag.Stats, error)
	Search(ctx context.Context, query string) ([]vectorindex.Match, error)
	Config() rag.Params
	UpdateConfig(update rag.ParamsUpdate) (rag.Params, error)
}

// Server is the HTTP server for the knowledge base.
type Server struct {
	mux            *http.ServeMux
	svc            Service
	logger         *slog.Logger
	maxUploadBytes int64

	// indexing tracks background indexing goroutines so shutdown can
	// wait for them instead of dropping half-indexed documents.
	indexing sync.WaitGroup
}

// Option customizes a Server.
type Option func(*Server)

// WithMaxUploadBytes overrides the multipart upload size limit.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// NewServer creates a Server with all routes configured.
func NewServer(svc Service, logger *slog.Logger, opts ...Option) *Server {
	s := &Server{
		mux:            http.NewServeMux(),
		svc:            svc,
		logger:         logger.With("component", "api"),
		maxUploadBytes: defaultMaxUploadBytes,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /chat", s.handleChat)
	s.mux.HandleFunc("GET /documents", s.handleListDocuments)
	s.mux.HandleFunc("POST /documents/upload", s.handleUploadDocument)
	s.mux.HandleFunc("GET /documents/{id}", s.handleGetDocument)
	s.mux.HandleFunc("DELETE /documents/{id}", s.handleDeleteDocument)
	s.mux.HandleFunc("GET /config", s.handleGetConfig)
	s.mux.HandleFunc("POST /config", s.handleUpdateConfig)
	s.mux.HandleFunc("GET /stats", s.handleStats)
	s.mux.HandleFunc("POST /search", s.handleSearch)

	return s
}

// ServeHTTP implements http.Handler with the middleware stack:
// recovery outermost, then request logging.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	handler := recoveryMiddleware(s.logger)(loggingMiddleware(s.logger)(s.mux))
	handler.ServeHTTP(w, r)
}

// Run serves HTTP until ctx is canceled, then shuts down gracefully,
// waiting for in-flight requests and background indexing.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}

	s.indexing.Wait()
	return nil
}

// WaitForIndexing blocks until all background indexing goroutines
// finish. Exposed for tests.
func (s *Server) WaitForIndexing() {
	s.indexing.Wait()
}
