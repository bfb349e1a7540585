// Package telegram is the thin webhook glue between the Telegram Bot API and
// the answer engine. It parses inbound updates, formats replies and sends
// them; all matching and learning lives in the engine.
package telegram

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Update is the subset of a Telegram webhook update the bot cares about.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

// Message is an inbound chat message.
type Message struct {
	MessageID int64  `json:"message_id"`
	Text      string `json:"text"`
	Chat      Chat   `json:"chat"`
	From      *User  `json:"from"`
}

// Chat identifies the conversation.
type Chat struct {
	ID int64 `json:"id"`
}

// User identifies the sender.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
}

// ParseUpdate decodes a webhook payload.
func ParseUpdate(data []byte) (Update, error) {
	var u Update
	if err := json.Unmarshal(data, &u); err != nil {
		return Update{}, fmt.Errorf("parse update: %w", err)
	}
	return u, nil
}

// Text returns the trimmed message text, or empty when the update carries no
// usable message.
func (u Update) Text() string {
	if u.Message == nil {
		return ""
	}
	return strings.TrimSpace(u.Message.Text)
}

// ChatID returns the chat the update came from, or 0.
func (u Update) ChatID() int64 {
	if u.Message == nil {
		return 0
	}
	return u.Message.Chat.ID
}

// IsCommand reports whether the message is a bot command like /start.
func (u Update) IsCommand(name string) bool {
	text := u.Text()
	return text == "/"+name || strings.HasPrefix(text, "/"+name+" ") || strings.HasPrefix(text, "/"+name+"@")
}
