// Package domain contains core concepts of the realtime layer.
// This file defines direct messages, conversations and delivery receipts.
// Messages are immutable once persisted, except for their read flag.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const directPrefix = "dm"

type ConversationID string

// Message is a direct message between two participants.
type Message struct {
	ID             uuid.UUID
	ConversationID ConversationID
	SenderID       UserID
	RecipientID    UserID
	Body           string
	CreatedAt      time.Time
	Read           bool
}

// DirectConversationID returns the conversation shared by two users.
// The id does not depend on who writes first.
func DirectConversationID(a, b UserID) ConversationID {
	if b < a {
		a, b = b, a
	}
	return ConversationID(fmt.Sprintf("%s:%s:%s", directPrefix, a, b))
}

// Participants extracts the fixed participant set of a conversation.
func (c ConversationID) Participants() ([]UserID, bool) {
	parts := strings.Split(string(c), ":")
	if len(parts) != 3 || parts[0] != directPrefix || parts[1] == "" || parts[2] == "" {
		return nil, false
	}
	return []UserID{UserID(parts[1]), UserID(parts[2])}, true
}

// HasParticipant reports whether the user belongs to the conversation.
func (c ConversationID) HasParticipant(userID UserID) bool {
	participants, ok := c.Participants()
	if !ok {
		return false
	}
	for _, p := range participants {
		if p == userID {
			return true
		}
	}
	return false
}

type DeliveryStatus string

const (
	// Delivered means the recipient had at least one live session at dispatch time.
	Delivered DeliveryStatus = "delivered"
	// Queued means the recipient was offline; the message waits in the store.
	Queued DeliveryStatus = "queued"
	Failed DeliveryStatus = "failed"
)

type MessageReceipt struct {
	MessageID      uuid.UUID
	ConversationID ConversationID
	Status         DeliveryStatus
	At             time.Time
}
