// Package event defines the frames emitted to connected sessions.
package event

import (
	"post-it/domain"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	SessionType        Type = "session"
	NewMessageType     Type = "new-message"
	MessageReadType    Type = "message-read"
	NotificationType   Type = "notification"
	MessageReceiptType Type = "message-receipt"
	ErrorType          Type = "error"
)

// DomainEvent is anything a session sink can carry to its connection.
type DomainEvent interface {
	Type() Type
}

type SessionOpened struct {
	SessionID   domain.SessionID `json:"sessionId"`
	UserID      domain.UserID    `json:"userId"`
	ConnectedAt time.Time        `json:"connectedAt"`
}

func (SessionOpened) Type() Type { return SessionType }

type NewMessage struct {
	MessageID      uuid.UUID             `json:"messageId"`
	ConversationID domain.ConversationID `json:"conversationId"`
	SenderID       domain.UserID         `json:"senderId"`
	Body           string                `json:"body"`
	Timestamp      time.Time             `json:"timestamp"`
}

func (NewMessage) Type() Type { return NewMessageType }

type MessageRead struct {
	ConversationID domain.ConversationID `json:"conversationId"`
	ReaderID       domain.UserID         `json:"readerId"`
}

func (MessageRead) Type() Type { return MessageReadType }

type Notification struct {
	Kind      domain.NotificationType `json:"type"`
	ActorID   domain.UserID           `json:"actorId"`
	TargetID  string                  `json:"targetId"`
	Timestamp time.Time               `json:"timestamp"`
}

func (Notification) Type() Type { return NotificationType }

// MessageReceipt answers a send-message frame on the originating session only.
type MessageReceipt struct {
	Ref            string                `json:"ref,omitempty"`
	MessageID      *uuid.UUID            `json:"messageId,omitempty"`
	ConversationID domain.ConversationID `json:"conversationId,omitempty"`
	Status         domain.DeliveryStatus `json:"status"`
	Timestamp      time.Time             `json:"timestamp"`
}

func (MessageReceipt) Type() Type { return MessageReceiptType }

type Error struct {
	Ref     string `json:"ref,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (Error) Type() Type { return ErrorType }

func NewMessageFrom(m domain.Message) NewMessage {
	return NewMessage{
		MessageID:      m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		Body:           m.Body,
		Timestamp:      m.CreatedAt,
	}
}
