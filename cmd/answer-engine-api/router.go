// Package main provides the API router setup.
package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/onec-assist/answer-engine/cmd/answer-engine-api/handlers"
	"github.com/onec-assist/answer-engine/cmd/answer-engine-api/middleware"
	"github.com/onec-assist/answer-engine/internal/config"
	"github.com/onec-assist/answer-engine/internal/engine"
	"github.com/onec-assist/answer-engine/internal/observability"
	"github.com/onec-assist/answer-engine/internal/transport/telegram"
)

// NewRouter creates the main API router with all routes configured.
func NewRouter(logger *observability.Logger, cfg *config.Config, eng *engine.Engine) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(chimiddleware.Timeout(cfg.Server.ReadTimeout))

	// Health check (unauthenticated)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy","service":"answer-engine"}`))
	})

	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ready"}`))
	})

	// Initialize handlers
	queryHandler := handlers.NewQueryHandler(logger, eng)
	knowledgeHandler := handlers.NewKnowledgeHandler(logger, eng)
	feedbackHandler := handlers.NewFeedbackHandler(logger, eng)
	statsHandler := handlers.NewStatsHandler(eng)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/match", func(r chi.Router) {
			r.Post("/query", queryHandler.Query)
		})

		r.Route("/knowledge", func(r chi.Router) {
			r.Post("/entries", knowledgeHandler.Add)
			r.Get("/entries/{id}", knowledgeHandler.Get)
			r.Patch("/entries/{id}", knowledgeHandler.Update)
		})

		r.Post("/feedback", feedbackHandler.Record)
		r.Get("/stats", statsHandler.Get)
	})

	// Telegram webhook, registered only when the bot is configured
	if cfg.Telegram.Enabled {
		sender := telegram.NewSender(cfg.Telegram.APIBase, cfg.Telegram.Token,
			cfg.Telegram.SendTimeout, logger)
		webhookHandler := handlers.NewWebhookHandler(logger, eng, sender, cfg.Telegram.WebhookSecret)
		r.Post("/telegram/webhook", webhookHandler.Handle)
	}

	return r
}
