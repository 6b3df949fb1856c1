package repositories

import (
	"context"
	"fmt"
	"post-it/domain"

	"github.com/dgraph-io/badger/v4"
)

func notificationPrefix(owner domain.UserID) string {
	return fmt.Sprintf("notif:%s:", owner)
}

// CreateNotificationRecord persists a notification for its owner, ordered by creation time.
func (m *MessageRepository) CreateNotificationRecord(ctx context.Context, record domain.NotificationRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := fmt.Sprintf("%s%019d:%s", notificationPrefix(record.OwnerID), record.CreatedAt.UnixNano(), record.ID)
	bytes, err := marshalNotification(record)
	if err != nil {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
}

// GetNotifications returns every stored notification of an owner, oldest first.
func (m *MessageRepository) GetNotifications(ctx context.Context, owner domain.UserID) ([]domain.NotificationRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var records []domain.NotificationRecord
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(notificationPrefix(owner))
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				record, err := unmarshalNotification(value)
				if err != nil {
					return err
				}
				records = append(records, record)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return records, err
}
