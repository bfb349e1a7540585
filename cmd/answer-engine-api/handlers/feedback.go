package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/onec-assist/answer-engine/internal/engine"
	"github.com/onec-assist/answer-engine/internal/observability"
)

// FeedbackHandler serves feedback recording.
type FeedbackHandler struct {
	logger *observability.Logger
	eng    *engine.Engine
}

// NewFeedbackHandler creates a feedback handler.
func NewFeedbackHandler(logger *observability.Logger, eng *engine.Engine) *FeedbackHandler {
	return &FeedbackHandler{logger: logger, eng: eng}
}

// FeedbackRequestDTO is the feedback request body.
type FeedbackRequestDTO struct {
	Question   string  `json:"question"`
	Answer     string  `json:"answer"`
	Correct    bool    `json:"correct"`
	Correction string  `json:"correction,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// FeedbackResponseDTO is the feedback response body.
type FeedbackResponseDTO struct {
	ID       string `json:"id"`
	Recorded bool   `json:"recorded"`
	Learned  bool   `json:"learned"`
}

// Record handles POST /feedback.
func (h *FeedbackHandler) Record(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.Question == "" || req.Answer == "" {
		writeError(w, http.StatusBadRequest, "question and answer are required", "")
		return
	}

	rec, err := h.eng.RecordFeedback(r.Context(), req.Question, req.Answer,
		req.Correct, req.Correction, req.Confidence)
	if err != nil {
		h.logger.Error().Err(err).Msg("record feedback failed")
		writeError(w, http.StatusInternalServerError, "record feedback failed", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, FeedbackResponseDTO{
		ID:       rec.ID.String(),
		Recorded: true,
		Learned:  !req.Correct && req.Correction != "",
	})
}

// StatsHandler serves engine statistics.
type StatsHandler struct {
	eng *engine.Engine
}

// NewStatsHandler creates a stats handler.
func NewStatsHandler(eng *engine.Engine) *StatsHandler {
	return &StatsHandler{eng: eng}
}

// Get handles GET /stats.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.eng.Stats(r.Context()))
}
