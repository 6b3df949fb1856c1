package services

import (
	"context"
	"fmt"
	"log/slog"
	"post-it/auth"
	"post-it/contract"
	"post-it/domain"
	"post-it/domain/event"
	"post-it/errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

type IDirectMessageService interface {
	Send(ctx context.Context, sender, recipient domain.UserID, body string) (domain.MessageReceipt, error)
	MarkRead(ctx context.Context, conversationID domain.ConversationID, reader domain.UserID) error
	History(ctx context.Context, conversationID domain.ConversationID, cursor *string) ([]domain.Message, *string, error)
}

// DirectMessageService persists a direct message before relaying it,
// so an offline recipient finds it in the store later.
type DirectMessageService struct {
	log           *slog.Logger
	store         contract.MessageStore
	dispatcher    contract.IDispatcher
	maxBodyLength int
	now           func() time.Time
}

func NewDirectMessageService(log *slog.Logger, store contract.MessageStore, dispatcher contract.IDispatcher,
	maxBodyLength int) *DirectMessageService {
	return &DirectMessageService{
		log:           log,
		store:         store,
		dispatcher:    dispatcher,
		maxBodyLength: maxBodyLength,
		now:           time.Now,
	}
}

func (s *DirectMessageService) Send(ctx context.Context, sender, recipient domain.UserID, body string) (domain.MessageReceipt, error) {
	if err := s.validate(sender, recipient, body); err != nil {
		return domain.MessageReceipt{Status: domain.Failed, At: s.now().UTC()}, err
	}

	message := domain.Message{
		ID:             uuid.New(),
		ConversationID: domain.DirectConversationID(sender, recipient),
		SenderID:       sender,
		RecipientID:    recipient,
		Body:           body,
		CreatedAt:      s.now().UTC(),
	}
	receipt := domain.MessageReceipt{MessageID: message.ID, ConversationID: message.ConversationID}

	// Nothing is relayed unless the message is stored
	if err := s.store.CreateMessage(ctx, message); err != nil {
		s.log.Error("Message not persisted", "message_id", message.ID, "sender_id", sender, "error", err)
		receipt.Status, receipt.At = domain.Failed, s.now().UTC()
		return receipt, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}

	delivery := s.dispatcher.Dispatch(ctx, event.NewMessageFrom(message), recipient)
	receipt.Status, receipt.At = domain.Queued, s.now().UTC()
	if delivery.Reached(recipient) {
		receipt.Status = domain.Delivered
	}
	s.log.Debug("Message sent", "message_id", message.ID, "conversation_id", message.ConversationID,
		"status", receipt.Status)
	return receipt, nil
}

func (s *DirectMessageService) validate(sender, recipient domain.UserID, body string) error {
	if sender.IsZero() || recipient.IsZero() {
		return fmt.Errorf("%w: sender and recipient are required", errors.ErrInvalidPayload)
	}
	if strings.Contains(sender.String(), ":") || strings.Contains(recipient.String(), ":") {
		return fmt.Errorf("%w: identity contains ':'", errors.ErrInvalidPayload)
	}
	if sender == recipient {
		return fmt.Errorf("%w: cannot message yourself", errors.ErrInvalidPayload)
	}
	return auth.ValidateBody(body, s.maxBodyLength)
}

// MarkRead flags the reader's unread messages and tells their senders.
func (s *DirectMessageService) MarkRead(ctx context.Context, conversationID domain.ConversationID, reader domain.UserID) error {
	if !conversationID.HasParticipant(reader) {
		return errors.ErrNotParticipant
	}
	senders, err := s.store.MarkMessageRead(ctx, conversationID, reader)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	if len(senders) == 0 {
		return nil
	}
	s.dispatcher.Dispatch(ctx, event.MessageRead{ConversationID: conversationID, ReaderID: reader}, senders...)
	return nil
}

// History returns a page of stored messages, newest first.
func (s *DirectMessageService) History(ctx context.Context, conversationID domain.ConversationID,
	cursor *string) ([]domain.Message, *string, error) {
	if _, ok := conversationID.Participants(); !ok {
		return nil, nil, fmt.Errorf("%w: unknown conversation %q", errors.ErrInvalidPayload, conversationID)
	}
	messages, next, err := s.store.GetMessages(ctx, conversationID, cursor)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errors.ErrPersistence, err)
	}
	return messages, next, nil
}
