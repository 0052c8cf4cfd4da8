package api

import "net/http"

// serviceVersion is reported by the health endpoint.
const serviceVersion = "2.0.0"

// handleHealth reports liveness plus knowledge-base stats. A failing
// stats query means the database is unreachable, so the service reports
// unhealthy with 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Stats(r.Context())
	if err != nil {
		s.logger.Error("health check failed", "error", err)
		writeJSON(w, s.logger, http.StatusServiceUnavailable, map[string]any{
			"status":  "unhealthy",
			"service": "rag-service",
			"version": serviceVersion,
		})
		return
	}

	writeJSON(w, s.logger, http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": "rag-service",
		"version": serviceVersion,
		"stats":   stats,
	})
}

// handleStats returns knowledge-base counts.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Stats(r.Context())
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, s.logger, http.StatusOK, stats)
}
