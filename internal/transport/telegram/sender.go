package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/onec-assist/answer-engine/internal/observability"
)

// Sender posts replies to the Telegram Bot API. Delivery reliability
// (retries, rate limits) is deliberately not handled here.
type Sender struct {
	apiBase string
	token   string
	client  *http.Client
	logger  *observability.Logger
}

// NewSender creates a sender for the given bot token.
func NewSender(apiBase, token string, timeout time.Duration, logger *observability.Logger) *Sender {
	if apiBase == "" {
		apiBase = "https://api.telegram.org"
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Sender{
		apiBase: apiBase,
		token:   token,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.WithComponent("telegram"),
	}
}

type sendMessageRequest struct {
	ChatID      int64        `json:"chat_id"`
	Text        string       `json:"text"`
	ParseMode   string       `json:"parse_mode"`
	ReplyMarkup *replyMarkup `json:"reply_markup,omitempty"`
}

type replyMarkup struct {
	Keyboard       [][]keyboardButton `json:"keyboard"`
	ResizeKeyboard bool               `json:"resize_keyboard"`
}

type keyboardButton struct {
	Text string `json:"text"`
}

// SendMessage posts an HTML-formatted message to a chat.
func (s *Sender) SendMessage(ctx context.Context, chatID int64, text string) error {
	return s.send(ctx, sendMessageRequest{ChatID: chatID, Text: text, ParseMode: "HTML"})
}

// SendMenu posts a message together with the fixed reply keyboard.
func (s *Sender) SendMenu(ctx context.Context, chatID int64, text string) error {
	markup := &replyMarkup{ResizeKeyboard: true}
	for _, row := range MenuButtons {
		buttons := make([]keyboardButton, 0, len(row))
		for _, label := range row {
			buttons = append(buttons, keyboardButton{Text: label})
		}
		markup.Keyboard = append(markup.Keyboard, buttons)
	}
	return s.send(ctx, sendMessageRequest{ChatID: chatID, Text: text, ParseMode: "HTML", ReplyMarkup: markup})
}

func (s *Sender) send(ctx context.Context, payload sendMessageRequest) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal sendMessage: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.apiBase, s.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build sendMessage request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post sendMessage: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.logger.Warn().Int("status", resp.StatusCode).Int64("chat_id", payload.ChatID).Msg("telegram send failed")
		return fmt.Errorf("telegram sendMessage status %d", resp.StatusCode)
	}

	s.logger.Debug().Int64("chat_id", payload.ChatID).Msg("reply sent")
	return nil
}
