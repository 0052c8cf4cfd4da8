package api

import (
	"encoding/json"
	"net/http"
	"strings"
)

type searchRequest struct {
	Query string `json:"query"`
}

type searchResult struct {
	ChunkID    string         `json:"chunk_id"`
	Document   string         `json:"document"`
	Content    string         `json:"content"`
	Similarity float64        `json:"similarity"`
	Metadata   map[string]any `json:"metadata"`
}

// handleSearch runs a raw similarity search without answer generation.
// Debug surface for inspecting what retrieval would feed the model.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, s.logger, "invalid JSON body")
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		badRequest(w, s.logger, "query cannot be empty")
		return
	}

	matches, err := s.svc.Search(r.Context(), query)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	results := make([]searchResult, len(matches))
	for i, m := range matches {
		results[i] = searchResult{
			ChunkID:    m.ChunkID.String(),
			Document:   m.DocumentName,
			Content:    m.Content,
			Similarity: m.Similarity,
			Metadata:   m.Metadata,
		}
	}
	writeJSON(w, s.logger, http.StatusOK, map[string]any{"results": results})
}
