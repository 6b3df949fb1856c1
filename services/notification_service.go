package services

import (
	"context"
	"fmt"
	"log/slog"
	"post-it/contract"
	"post-it/domain"
	"post-it/domain/event"
	"post-it/errors"
	"time"

	"github.com/google/uuid"
)

type INotificationService interface {
	Notify(ctx context.Context, kind domain.NotificationType, actor domain.UserID, target string, owner domain.UserID) error
	RecordAndNotify(ctx context.Context, kind domain.NotificationType, actor domain.UserID, target string, owner domain.UserID) error
}

// NotificationService relays likes, comments and new posts to the owner of the target.
type NotificationService struct {
	log        *slog.Logger
	store      contract.MessageStore
	dispatcher contract.IDispatcher
	now        func() time.Time
}

func NewNotificationService(log *slog.Logger, store contract.MessageStore, dispatcher contract.IDispatcher) *NotificationService {
	return &NotificationService{log: log, store: store, dispatcher: dispatcher, now: time.Now}
}

// Notify is fire-and-forget: an offline owner gets nothing.
// Users are never notified of their own actions.
func (s *NotificationService) Notify(ctx context.Context, kind domain.NotificationType, actor domain.UserID,
	target string, owner domain.UserID) error {
	if err := validateNotification(kind, actor, owner); err != nil {
		return err
	}
	if actor == owner {
		return nil
	}
	s.notify(ctx, kind, actor, target, owner, s.now().UTC())
	return nil
}

// RecordAndNotify stores the notification for the owner, then relays it.
func (s *NotificationService) RecordAndNotify(ctx context.Context, kind domain.NotificationType, actor domain.UserID,
	target string, owner domain.UserID) error {
	if err := validateNotification(kind, actor, owner); err != nil {
		return err
	}
	if actor == owner {
		return nil
	}

	record := domain.NotificationRecord{
		ID:        uuid.New(),
		Type:      kind,
		ActorID:   actor,
		TargetID:  target,
		OwnerID:   owner,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.CreateNotificationRecord(ctx, record); err != nil {
		s.log.Error("Notification not persisted", "owner_id", owner, "type", kind, "error", err)
		return fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	s.notify(ctx, kind, actor, target, owner, record.CreatedAt)
	return nil
}

func (s *NotificationService) notify(ctx context.Context, kind domain.NotificationType, actor domain.UserID,
	target string, owner domain.UserID, at time.Time) {
	e := event.Notification{Kind: kind, ActorID: actor, TargetID: target, Timestamp: at}
	delivery := s.dispatcher.Dispatch(ctx, e, owner)
	s.log.Debug("Notification forwarded", "type", kind, "owner_id", owner, "sessions", delivery[owner])
}

func validateNotification(kind domain.NotificationType, actor, owner domain.UserID) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: unknown notification type %q", errors.ErrInvalidPayload, kind)
	}
	if actor.IsZero() || owner.IsZero() {
		return fmt.Errorf("%w: actor and owner are required", errors.ErrInvalidPayload)
	}
	return nil
}
