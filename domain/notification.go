package domain

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	Like    NotificationType = "like"
	Comment NotificationType = "comment"
	NewPost NotificationType = "new-post"
)

func (t NotificationType) Valid() bool {
	switch t {
	case Like, Comment, NewPost:
		return true
	default:
		return false
	}
}

// NotificationRecord is what the ingestion API stores on behalf of the REST layer
// before the event is forwarded.
type NotificationRecord struct {
	ID        uuid.UUID
	Type      NotificationType
	ActorID   UserID
	TargetID  string
	OwnerID   UserID
	CreatedAt time.Time
}
