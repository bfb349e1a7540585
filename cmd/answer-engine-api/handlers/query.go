// Package handlers provides HTTP handlers for the answer engine API.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/onec-assist/answer-engine/internal/engine"
	"github.com/onec-assist/answer-engine/internal/observability"
	"github.com/onec-assist/answer-engine/internal/storage"
)

// QueryHandler serves match lookups.
type QueryHandler struct {
	logger *observability.Logger
	eng    *engine.Engine
}

// NewQueryHandler creates a query handler.
func NewQueryHandler(logger *observability.Logger, eng *engine.Engine) *QueryHandler {
	return &QueryHandler{logger: logger, eng: eng}
}

// QueryRequestDTO is the lookup request body.
type QueryRequestDTO struct {
	Question     string `json:"question"`
	SourceFilter string `json:"sourceFilter,omitempty"`
	ButtonAware  bool   `json:"buttonAware,omitempty"`
}

// QueryResponseDTO is the lookup response body.
type QueryResponseDTO struct {
	Matched    bool      `json:"matched"`
	Confidence float64   `json:"confidence"`
	Tier       string    `json:"tier"`
	Entry      *EntryDTO `json:"entry,omitempty"`
}

// EntryDTO mirrors a knowledge entry over the wire.
type EntryDTO struct {
	ID        int64                  `json:"id"`
	Question  string                 `json:"question"`
	Answer    string                 `json:"answer"`
	Tags      []string               `json:"tags"`
	Source    string                 `json:"source"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt string                 `json:"created_at"`
	Version   int64                  `json:"version"`
}

// Query handles POST /match/query.
func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required", "")
		return
	}

	var res engine.MatchResult
	if req.ButtonAware {
		res = h.eng.Answer(r.Context(), req.Question)
	} else {
		res = h.eng.FindBestMatch(r.Context(), req.Question, storage.Source(req.SourceFilter))
	}

	writeJSON(w, http.StatusOK, toQueryResponseDTO(res))
}

func toQueryResponseDTO(res engine.MatchResult) QueryResponseDTO {
	dto := QueryResponseDTO{
		Matched:    res.Matched(),
		Confidence: res.Confidence,
		Tier:       string(res.Tier),
	}
	if res.Entry != nil {
		dto.Entry = toEntryDTO(*res.Entry)
	}
	return dto
}

func toEntryDTO(e storage.KnowledgeEntry) *EntryDTO {
	return &EntryDTO{
		ID:        e.ID,
		Question:  e.Question,
		Answer:    e.Answer,
		Tags:      e.Tags,
		Source:    string(e.Source),
		Metadata:  e.Metadata,
		CreatedAt: e.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		Version:   e.Version,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, detail string) {
	resp := map[string]string{"error": message}
	if detail != "" {
		resp["detail"] = detail
	}
	writeJSON(w, status, resp)
}
