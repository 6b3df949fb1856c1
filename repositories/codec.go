package repositories

import (
	"fmt"
	"post-it/domain"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Values are stored as protobuf Struct messages. Timestamps travel as RFC3339Nano
// strings because Struct numbers are float64 and would lose nanoseconds.

func marshalMessage(m domain.Message) ([]byte, error) {
	s, err := structpb.NewStruct(map[string]any{
		"id":              m.ID.String(),
		"conversation_id": string(m.ConversationID),
		"sender_id":       m.SenderID.String(),
		"recipient_id":    m.RecipientID.String(),
		"body":            m.Body,
		"created_at":      m.CreatedAt.UTC().Format(time.RFC3339Nano),
		"read":            m.Read,
	})
	if err != nil {
		return nil, err
	}
	return proto.Marshal(s)
}

func unmarshalMessage(b []byte) (domain.Message, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(b, &s); err != nil {
		return domain.Message{}, err
	}
	f := s.GetFields()
	id, err := uuid.Parse(f["id"].GetStringValue())
	if err != nil {
		return domain.Message{}, fmt.Errorf("message id: %w", err)
	}
	at, err := time.Parse(time.RFC3339Nano, f["created_at"].GetStringValue())
	if err != nil {
		return domain.Message{}, fmt.Errorf("message created_at: %w", err)
	}
	return domain.Message{
		ID:             id,
		ConversationID: domain.ConversationID(f["conversation_id"].GetStringValue()),
		SenderID:       domain.UserID(f["sender_id"].GetStringValue()),
		RecipientID:    domain.UserID(f["recipient_id"].GetStringValue()),
		Body:           f["body"].GetStringValue(),
		CreatedAt:      at.UTC(),
		Read:           f["read"].GetBoolValue(),
	}, nil
}

func marshalNotification(r domain.NotificationRecord) ([]byte, error) {
	s, err := structpb.NewStruct(map[string]any{
		"id":         r.ID.String(),
		"type":       string(r.Type),
		"actor_id":   r.ActorID.String(),
		"target_id":  r.TargetID,
		"owner_id":   r.OwnerID.String(),
		"created_at": r.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, err
	}
	return proto.Marshal(s)
}

func unmarshalNotification(b []byte) (domain.NotificationRecord, error) {
	var s structpb.Struct
	if err := proto.Unmarshal(b, &s); err != nil {
		return domain.NotificationRecord{}, err
	}
	f := s.GetFields()
	id, err := uuid.Parse(f["id"].GetStringValue())
	if err != nil {
		return domain.NotificationRecord{}, fmt.Errorf("notification id: %w", err)
	}
	at, err := time.Parse(time.RFC3339Nano, f["created_at"].GetStringValue())
	if err != nil {
		return domain.NotificationRecord{}, fmt.Errorf("notification created_at: %w", err)
	}
	return domain.NotificationRecord{
		ID:        id,
		Type:      domain.NotificationType(f["type"].GetStringValue()),
		ActorID:   domain.UserID(f["actor_id"].GetStringValue()),
		TargetID:  f["target_id"].GetStringValue(),
		OwnerID:   domain.UserID(f["owner_id"].GetStringValue()),
		CreatedAt: at.UTC(),
	}, nil
}
