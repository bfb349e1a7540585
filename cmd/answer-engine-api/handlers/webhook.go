package handlers

import (
	"io"
	"net/http"

	"github.com/onec-assist/answer-engine/internal/engine"
	"github.com/onec-assist/answer-engine/internal/observability"
	"github.com/onec-assist/answer-engine/internal/transport/telegram"
)

const maxUpdateBody = 1 << 20

// WebhookHandler receives Telegram webhook updates and replies through the
// bot API. Replies are sent synchronously before the webhook returns so a
// failed send surfaces in logs with the triggering update.
type WebhookHandler struct {
	logger *observability.Logger
	eng    *engine.Engine
	sender *telegram.Sender
	secret string
}

// NewWebhookHandler creates a webhook handler.
func NewWebhookHandler(logger *observability.Logger, eng *engine.Engine, sender *telegram.Sender, secret string) *WebhookHandler {
	return &WebhookHandler{logger: logger, eng: eng, sender: sender, secret: secret}
}

// Handle handles POST /telegram/webhook.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if h.secret != "" && r.Header.Get("X-Telegram-Bot-Api-Secret-Token") != h.secret {
		writeError(w, http.StatusForbidden, "invalid webhook secret", "")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxUpdateBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read body", err.Error())
		return
	}

	upd, err := telegram.ParseUpdate(body)
	if err != nil {
		h.logger.Warn().Err(err).Msg("malformed telegram update")
		// Telegram retries non-200 responses, so acknowledge malformed
		// updates instead of bouncing them forever.
		w.WriteHeader(http.StatusOK)
		return
	}

	text := upd.Text()
	chatID := upd.ChatID()
	if text == "" || chatID == 0 {
		w.WriteHeader(http.StatusOK)
		return
	}

	ctx := r.Context()
	switch {
	case upd.IsCommand("start"), upd.IsCommand("help"):
		if err := h.sender.SendMenu(ctx, chatID, telegram.WelcomeText); err != nil {
			h.logger.Error().Err(err).Int64("chat_id", chatID).Msg("send menu failed")
		}
	default:
		res := h.eng.Answer(ctx, text)
		if err := h.sender.SendMessage(ctx, chatID, telegram.FormatReply(res)); err != nil {
			h.logger.Error().Err(err).Int64("chat_id", chatID).Msg("send reply failed")
		}
	}

	w.WriteHeader(http.StatusOK)
}
