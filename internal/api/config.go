package api

import (
	"encoding/json"
	"net/http"

	"github.com/cnss-digital/rag-service/internal/rag"
)

// configResponse mirrors the runtime parameters with the wire names
// clients expect.
type configResponse struct {
	Model               string  `json:"model"`
	ChunkSize           int     `json:"chunk_size"`
	ChunkOverlap        int     `json:"chunk_overlap"`
	TopK                int     `json:"top_k"`
	SimilarityThreshold float64 `json:"similarity_threshold"`
}

type configUpdateRequest struct {
	Model               *string  `json:"model"`
	ChunkSize           *int     `json:"chunk_size"`
	ChunkOverlap        *int     `json:"chunk_overlap"`
	TopK                *int     `json:"top_k"`
	SimilarityThreshold *float64 `json:"similarity_threshold"`
}

func toConfigResponse(p rag.Params) configResponse {
	return configResponse{
		Model:               p.ModelName,
		ChunkSize:           p.ChunkSize,
		ChunkOverlap:        p.ChunkOverlap,
		TopK:                p.TopK,
		SimilarityThreshold: p.SimilarityThreshold,
	}
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.logger, http.StatusOK, toConfigResponse(s.svc.Config()))
}

// handleUpdateConfig applies a partial runtime configuration update.
// Omitted fields keep their current values; an invalid combination is
// rejected atomically with a 400.
func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req configUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, s.logger, "invalid JSON body")
		return
	}

	if _, err := s.svc.UpdateConfig(rag.ParamsUpdate{
		ModelName:           req.Model,
		ChunkSize:           req.ChunkSize,
		ChunkOverlap:        req.ChunkOverlap,
		TopK:                req.TopK,
		SimilarityThreshold: req.SimilarityThreshold,
	}); err != nil {
		writeError(w, s.logger, err)
		return
	}

	writeJSON(w, s.logger, http.StatusOK, map[string]any{
		"success": true,
		"message": "Configuration mise à jour",
	})
}
