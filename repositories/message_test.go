package repositories

import (
	"context"
	"log/slog"
	"post-it/domain"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

func openRepository(t *testing.T, limit *int) *MessageRepository {
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	repository, err := NewMessageRepository(db, logs.GetLoggerFromLevel(slog.LevelDebug), limit)
	req.NoError(err)
	t.Cleanup(func() {
		_ = repository.Close()
		_ = db.Close()
	})
	return repository
}

func newMessage(sender, recipient domain.UserID, body string, at time.Time) domain.Message {
	return domain.Message{
		ID:             uuid.New(),
		ConversationID: domain.DirectConversationID(sender, recipient),
		SenderID:       sender,
		RecipientID:    recipient,
		Body:           body,
		CreatedAt:      at,
	}
}

func Test_Record_Multiple_Message(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := openRepository(t, nil)

	at := time.Now().UTC()
	messages := []domain.Message{
		newMessage("alice", "bob", "first", at),
		newMessage("bob", "alice", "second", at.Add(time.Minute)),
		newMessage("alice", "bob", "third", at.Add(2*time.Minute)),
	}
	for _, m := range messages {
		req.NoError(repository.CreateMessage(ctx, m))
	}

	fetched, cursor, err := repository.GetMessages(ctx, domain.DirectConversationID("bob", "alice"), nil)
	req.NoError(err)
	req.NotNil(cursor)
	// Newest first
	req.Equal([]domain.Message{messages[2], messages[1], messages[0]}, fetched)
}

func Test_Insertion_Order_Wins_Over_Timestamp(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := openRepository(t, nil)

	at := time.Now().UTC()
	first := newMessage("alice", "bob", "m1", at)
	second := newMessage("alice", "bob", "m2", at.Add(-time.Hour))
	req.NoError(repository.CreateMessage(ctx, first))
	req.NoError(repository.CreateMessage(ctx, second))

	fetched, _, err := repository.GetMessages(ctx, first.ConversationID, nil)
	req.NoError(err)
	req.Len(fetched, 2)
	req.Equal("m2", fetched[0].Body)
	req.Equal("m1", fetched[1].Body)
}

func Test_Record_Multiple_Message_And_Limit(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := openRepository(t, lo.ToPtr(2))

	at := time.Now().UTC()
	for i, body := range []string{"a", "b", "c"} {
		req.NoError(repository.CreateMessage(ctx, newMessage("alice", "bob", body, at.Add(time.Duration(i)*time.Second))))
	}

	conversation := domain.DirectConversationID("alice", "bob")
	page, cursor, err := repository.GetMessages(ctx, conversation, nil)
	req.NoError(err)
	req.Len(page, 2)
	req.Equal("c", page[0].Body)
	req.Equal("b", page[1].Body)

	next, _, err := repository.GetMessages(ctx, conversation, cursor)
	req.NoError(err)
	req.Len(next, 1)
	req.Equal("a", next[0].Body)
}

func Test_Get_Messages_Of_Empty_Conversation(t *testing.T) {
	req := require.New(t)
	repository := openRepository(t, nil)

	fetched, cursor, err := repository.GetMessages(context.Background(), domain.DirectConversationID("x", "y"), nil)
	req.NoError(err)
	req.Empty(fetched)
	req.Nil(cursor)
}

func Test_Mark_Message_Read(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := openRepository(t, nil)

	at := time.Now().UTC()
	req.NoError(repository.CreateMessage(ctx, newMessage("alice", "bob", "hi", at)))
	req.NoError(repository.CreateMessage(ctx, newMessage("alice", "bob", "there", at.Add(time.Second))))
	req.NoError(repository.CreateMessage(ctx, newMessage("bob", "alice", "hello", at.Add(2*time.Second))))

	conversation := domain.DirectConversationID("alice", "bob")
	senders, err := repository.MarkMessageRead(ctx, conversation, "bob")
	req.NoError(err)
	req.Equal([]domain.UserID{"alice"}, senders)

	fetched, _, err := repository.GetMessages(ctx, conversation, nil)
	req.NoError(err)
	for _, m := range fetched {
		// Only messages addressed to bob are flipped
		req.Equal(m.RecipientID == "bob", m.Read, m.Body)
	}

	// Second receipt finds nothing left to flip
	senders, err = repository.MarkMessageRead(ctx, conversation, "bob")
	req.NoError(err)
	req.Empty(senders)
}

func Test_Record_Notifications(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := openRepository(t, nil)

	at := time.Now().UTC()
	like := domain.NotificationRecord{ID: uuid.New(), Type: domain.Like, ActorID: "bob", TargetID: "post-1", OwnerID: "alice", CreatedAt: at}
	comment := domain.NotificationRecord{ID: uuid.New(), Type: domain.Comment, ActorID: "carol", TargetID: "post-1", OwnerID: "alice", CreatedAt: at.Add(time.Second)}
	other := domain.NotificationRecord{ID: uuid.New(), Type: domain.NewPost, ActorID: "alice", TargetID: "post-2", OwnerID: "bob", CreatedAt: at}
	for _, r := range []domain.NotificationRecord{comment, like, other} {
		req.NoError(repository.CreateNotificationRecord(ctx, r))
	}

	records, err := repository.GetNotifications(ctx, "alice")
	req.NoError(err)
	req.Equal([]domain.NotificationRecord{like, comment}, records)
}

func Test_Canceled_Context_Is_Rejected(t *testing.T) {
	req := require.New(t)
	repository := openRepository(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := repository.CreateMessage(ctx, newMessage("alice", "bob", "late", time.Now().UTC()))
	req.ErrorIs(err, context.Canceled)
}
