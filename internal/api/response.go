package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/cnss-digital/rag-service/internal/config"
	"github.com/cnss-digital/rag-service/internal/extract"
	"github.com/cnss-digital/rag-service/internal/rag"
	"github.com/cnss-digital/rag-service/internal/registry"
)

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Detail string `json:"detail"`
}

// writeJSON encodes v with the given status. Encoding failures are
// logged; by then the status line is already out.
func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encoding response", "error", err)
	}
}

// writeError maps domain errors to HTTP status codes and writes the
// error envelope. Internal errors keep their detail out of the
// response.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := http.StatusInternalServerError
	detail := "internal server error"

	switch {
	case errors.Is(err, registry.ErrNotFound):
		status = http.StatusNotFound
		detail = "Document non trouvé"
	case errors.Is(err, extract.ErrUnsupportedType):
		status = http.StatusBadRequest
		detail = err.Error()
	case errors.Is(err, rag.ErrConfig),
		errors.Is(err, config.ErrInvalidChunking),
		errors.Is(err, config.ErrInvalidTopK),
		errors.Is(err, config.ErrInvalidThreshold):
		status = http.StatusBadRequest
		detail = err.Error()
	case errors.Is(err, rag.ErrRegistryInconsistency):
		logger.Error("registry inconsistency", "error", err)
		detail = "internal server error"
	default:
		logger.Error("request failed", "error", err)
	}

	writeJSON(w, logger, status, errorResponse{Detail: detail})
}

// badRequest writes a 400 with the given detail.
func badRequest(w http.ResponseWriter, logger *slog.Logger, detail string) {
	writeJSON(w, logger, http.StatusBadRequest, errorResponse{Detail: detail})
}
