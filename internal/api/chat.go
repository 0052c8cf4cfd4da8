package api

import (
	"encoding/json"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cnss-digital/rag-service/internal/rag"
)

// maxQuestionRunes bounds chat questions to keep prompts reasonable.
const maxQuestionRunes = 4000

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

type chatResponse struct {
	Response       string       `json:"response"`
	Sources        []rag.Source `json:"sources"`
	Confidence     float64      `json:"confidence"`
	SessionID      string       `json:"session_id"`
	ProcessingTime float64      `json:"processing_time"`
}

// handleChat answers a question against the knowledge base. A missing
// session_id gets a fresh UUID so clients can correlate follow-ups.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, s.logger, "invalid JSON body")
		return
	}

	question := strings.TrimSpace(req.Message)
	if question == "" {
		badRequest(w, s.logger, "message cannot be empty")
		return
	}
	if len([]rune(question)) > maxQuestionRunes {
		badRequest(w, s.logger, "message too long")
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	answer, err := s.svc.Answer(r.Context(), question)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	elapsed := time.Since(start).Seconds()
	writeJSON(w, s.logger, http.StatusOK, chatResponse{
		Response:       answer.Text,
		Sources:        answer.Sources,
		Confidence:     answer.Confidence,
		SessionID:      sessionID,
		ProcessingTime: math.Round(elapsed*1000) / 1000,
	})
}
