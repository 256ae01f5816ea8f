// Package linebot is the LINE Messaging API transport: webhook envelope
// parsing on the way in, reply/push delivery on the way out.
package linebot

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Message kinds and event types the bot handles.
const (
	EventTypeMessage = "message"
	MessageTypeText  = "text"
	MessageTypeImage = "image"
)

// CommandMarker prefixes interactive commands; anything else is diary text.
const CommandMarker = "/"

// Webhook is the envelope LINE posts to the bot.
type Webhook struct {
	Destination string  `json:"destination"`
	Events      []Event `json:"events"`
}

// Event is one webhook event.
type Event struct {
	Type       string  `json:"type"`
	ReplyToken string  `json:"replyToken"`
	Timestamp  int64   `json:"timestamp"` // milliseconds since epoch
	Source     Source  `json:"source"`
	Message    Message `json:"message"`
}

// Source identifies the sender.
type Source struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

// Message is the message payload of a message event.
type Message struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Text string `json:"text"`
}

// ParseWebhook decodes a webhook delivery body.
func ParseWebhook(body []byte) (*Webhook, error) {
	if len(body) == 0 {
		return nil, errors.New("empty webhook body")
	}
	webhook := &Webhook{}
	if err := json.Unmarshal(body, webhook); err != nil {
		return nil, errors.Wrap(err, "decode webhook body")
	}
	return webhook, nil
}
