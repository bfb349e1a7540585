package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/onec-assist/answer-engine/internal/engine"
	"github.com/onec-assist/answer-engine/internal/observability"
	"github.com/onec-assist/answer-engine/internal/storage"
)

// KnowledgeHandler serves knowledge base mutations.
type KnowledgeHandler struct {
	logger *observability.Logger
	eng    *engine.Engine
}

// NewKnowledgeHandler creates a knowledge handler.
func NewKnowledgeHandler(logger *observability.Logger, eng *engine.Engine) *KnowledgeHandler {
	return &KnowledgeHandler{logger: logger, eng: eng}
}

// AddEntryRequestDTO is the add-entry request body.
type AddEntryRequestDTO struct {
	Question string                 `json:"question"`
	Answer   string                 `json:"answer"`
	Tags     []string               `json:"tags,omitempty"`
	Source   string                 `json:"source,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// UpdateEntryRequestDTO is the update-entry request body. Nil fields are left
// unchanged.
type UpdateEntryRequestDTO struct {
	Question *string                `json:"question,omitempty"`
	Answer   *string                `json:"answer,omitempty"`
	Tags     []string               `json:"tags,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Get handles GET /knowledge/entries/{id}.
func (h *KnowledgeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid entry id", err.Error())
		return
	}

	entry, err := h.eng.Entry(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "entry not found", "")
			return
		}
		writeError(w, http.StatusInternalServerError, "get entry failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, toEntryDTO(entry))
}

// Add handles POST /knowledge/entries.
func (h *KnowledgeHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req AddEntryRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.Question == "" || req.Answer == "" {
		writeError(w, http.StatusBadRequest, "question and answer are required", "")
		return
	}

	entry, err := h.eng.AddEntry(r.Context(), req.Question, req.Answer, req.Tags,
		storage.Source(req.Source), req.Metadata)
	if err != nil {
		h.logger.Error().Err(err).Msg("add entry failed")
		if errors.Is(err, storage.ErrPersistence) {
			writeError(w, http.StatusServiceUnavailable, "persistence failed", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "add entry failed", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, toEntryDTO(entry))
}

// Update handles PATCH /knowledge/entries/{id}.
func (h *KnowledgeHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid entry id", "")
		return
	}

	var req UpdateEntryRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	ok, err := h.eng.UpdateEntry(r.Context(), id, storage.EntryPatch{
		Question: req.Question,
		Answer:   req.Answer,
		Tags:     req.Tags,
		Metadata: req.Metadata,
	})
	if err != nil {
		h.logger.Error().Err(err).Int64("id", id).Msg("update entry failed")
		if errors.Is(err, storage.ErrPersistence) {
			writeError(w, http.StatusServiceUnavailable, "persistence failed", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "update entry failed", err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "entry not found", "")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"updated": true})
}
