package repositories

import (
	"context"
	"fmt"
	"log/slog"
	"post-it/contract"
	"post-it/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
)

const sequenceBandwidth = 128

var _ contract.MessageStore = (*MessageRepository)(nil)

// MessageRepository is the BadgerDB store behind the direct message channel
// and the notification ingestion.
//
// Keys:
//
//	msg:{conversation}:{seq}                   -> message
//	unread:{conversation}:{recipient}:{seq}    -> message key
//	notif:{owner}:{created_at}:{id}            -> notification record
//
// seq is a store-wide monotonic sequence padded to 19 digits, so a prefix scan
// of a conversation returns messages in insertion order.
type MessageRepository struct {
	db            *badger.DB
	seq           *badger.Sequence
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) (*MessageRepository, error) {
	seq, err := db.GetSequence([]byte("seq:messages"), sequenceBandwidth)
	if err != nil {
		return nil, fmt.Errorf("message sequence: %w", err)
	}
	return &MessageRepository{db: db, seq: seq, log: log, limitMessages: limitMessages}, nil
}

// Close releases the leased sequence range. The database itself is owned by the caller.
func (m *MessageRepository) Close() error {
	return m.seq.Release()
}

func messagePrefix(conversationID domain.ConversationID) string {
	return fmt.Sprintf("msg:%s:", conversationID)
}

func unreadPrefix(conversationID domain.ConversationID, recipient domain.UserID) string {
	return fmt.Sprintf("unread:%s:%s:", conversationID, recipient)
}

// CreateMessage appends a message to its conversation.
func (m *MessageRepository) CreateMessage(ctx context.Context, message domain.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n, err := m.seq.Next()
	if err != nil {
		return err
	}
	position := fmt.Sprintf("%019d", n)
	key := []byte(messagePrefix(message.ConversationID) + position)

	bytes, err := marshalMessage(message)
	if err != nil {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, bytes); err != nil {
			return err
		}
		if message.Read {
			return nil
		}
		return txn.Set([]byte(unreadPrefix(message.ConversationID, message.RecipientID)+position), key)
	})
}

// MarkMessageRead flips the read flag of every unread message addressed to reader
// in the conversation and returns the distinct senders of those messages.
func (m *MessageRepository) MarkMessageRead(ctx context.Context, conversationID domain.ConversationID,
	reader domain.UserID) ([]domain.UserID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var senders []domain.UserID
	err := m.db.Update(func(txn *badger.Txn) error {
		prefix := []byte(unreadPrefix(conversationID, reader))
		var indexKeys, messageKeys [][]byte

		it := txn.NewIterator(badger.DefaultIteratorOptions)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			messageKey, err := item.ValueCopy(nil)
			if err != nil {
				it.Close()
				return err
			}
			indexKeys = append(indexKeys, item.KeyCopy(nil))
			messageKeys = append(messageKeys, messageKey)
		}
		it.Close()

		for i, key := range messageKeys {
			item, err := txn.Get(key)
			if err != nil {
				return fmt.Errorf("unread index points to %s: %w", key, err)
			}
			raw, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			message, err := unmarshalMessage(raw)
			if err != nil {
				return err
			}
			message.Read = true
			updated, err := marshalMessage(message)
			if err != nil {
				return err
			}
			if err = txn.Set(key, updated); err != nil {
				return err
			}
			if err = txn.Delete(indexKeys[i]); err != nil {
				return err
			}
			senders = append(senders, message.SenderID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	m.log.Debug("Messages marked as read", "conversation_id", conversationID, "reader", reader, "count", len(senders))
	return lo.Uniq(senders), nil
}

// GetMessages retrieves messages of a conversation, newest first, using a reverse prefix scan.
// It stops collecting messages once the configured limitMessages is reached and returns
// the cursor to pass for the next (older) page.
func (m *MessageRepository) GetMessages(ctx context.Context, conversationID domain.ConversationID,
	cursor *string) ([]domain.Message, *string, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	var byteMessages [][]byte
	var lastKey string
	err := m.db.View(func(txn *badger.Txn) error {
		prefixStr := messagePrefix(conversationID)
		prefix := []byte(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Highest possible position, then walk back
			seekKey = append([]byte(prefixStr), []byte("9999999999999999999")...)
		default:
			seekKey = append([]byte(prefixStr), []byte(*cursor)...)
		}

		it.Seek(seekKey)
		if cursor != nil && it.ValidForPrefix(prefix) && string(it.Item().Key()[len(prefix):]) == *cursor {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(byteMessages) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d message reached", *m.limitMessages))
				break
			}
			item := it.Item()
			lastKey = string(item.Key()[len(prefix):])
			err := item.Value(func(value []byte) error {
				byteMessages = append(byteMessages, append([]byte(nil), value...))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	messages := make([]domain.Message, 0, len(byteMessages))
	for _, b := range byteMessages {
		message, err := unmarshalMessage(b)
		if err != nil {
			return nil, nil, err
		}
		messages = append(messages, message)
	}
	if lastKey == "" {
		return messages, nil, nil
	}
	return messages, &lastKey, nil
}
