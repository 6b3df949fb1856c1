// Package chat holds the client-originated commands read from a session.
package chat

import (
	"encoding/json"
	"post-it/domain"
)

const (
	SendMessageEvent = "send-message"
	ReadReceiptEvent = "read-receipt"
)

// Frame is the envelope of every text message exchanged over a session.
type Frame struct {
	Event string          `json:"event"`
	Ref   string          `json:"ref,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type SendMessageCommand struct {
	RecipientID domain.UserID `json:"recipientId" validate:"required,excludes=:"`
	Body        string        `json:"body" validate:"required"`
}

type ReadReceiptCommand struct {
	ConversationID domain.ConversationID `json:"conversationId" validate:"required"`
}
