package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"post-it/contract"
	"post-it/domain"
	"post-it/domain/event"
	"post-it/errors"
	"post-it/mocks"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestDispatcher_Dispatch_To_Every_Live_Session(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)

	phone, laptop, other := mocks.NewMockEventSink(ctrl), mocks.NewMockEventSink(ctrl), mocks.NewMockEventSink(ctrl)
	registry := NewPresenceRegistry()
	req.NoError(registry.Register("alice", "s1", phone))
	req.NoError(registry.Register("alice", "s2", laptop))
	req.NoError(registry.Register("bob", "s3", other))

	e := event.MessageRead{ConversationID: domain.DirectConversationID("alice", "bob"), ReaderID: "bob"}
	phone.EXPECT().Consume(gomock.Any(), e).Return(nil).Times(1)
	laptop.EXPECT().Consume(gomock.Any(), e).Return(nil).Times(1)
	other.EXPECT().Consume(gomock.Any(), gomock.Any()).Times(0)

	// Duplicates are collapsed
	delivery := NewDispatcher(log, registry, time.Second).Dispatch(ctx, e, "alice", "alice")

	req.Equal(contract.Delivery{"alice": 2}, delivery)
	req.True(delivery.Reached("alice"))
}

func TestDispatcher_Dispatch_To_Offline_Recipient(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	registry := NewPresenceRegistry()

	delivery := NewDispatcher(log, registry, 0).Dispatch(context.Background(), event.MessageRead{}, "carol")

	req.Equal(contract.Delivery{"carol": 0}, delivery)
	req.False(delivery.Reached("carol"))
}

func TestDispatcher_Dispatch_Skips_Failing_Sessions(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)

	closed, full, healthy := mocks.NewMockEventSink(ctrl), mocks.NewMockEventSink(ctrl), mocks.NewMockEventSink(ctrl)
	registry := NewPresenceRegistry()
	req.NoError(registry.Register("alice", "s1", closed))
	req.NoError(registry.Register("alice", "s2", full))
	req.NoError(registry.Register("alice", "s3", healthy))

	closed.EXPECT().Consume(gomock.Any(), gomock.Any()).Return(errors.ErrSessionClosed)
	full.EXPECT().Consume(gomock.Any(), gomock.Any()).Return(fmt.Errorf("%w: 64 pending", errors.ErrSinkFull))
	healthy.EXPECT().Consume(gomock.Any(), gomock.Any()).Return(nil)

	delivery := NewDispatcher(log, registry, time.Second).Dispatch(context.Background(), event.MessageRead{}, "alice")

	req.Equal(1, delivery["alice"])
}

func TestDispatcher_Dispatch_Uses_Fresh_Lookup(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)

	outbox := mocks.NewMockEventSink(ctrl)
	registry := NewPresenceRegistry()
	dispatcher := NewDispatcher(log, registry, time.Second)

	req.NoError(registry.Register("alice", "s1", outbox))
	outbox.EXPECT().Consume(gomock.Any(), gomock.Any()).Return(nil).Times(1)
	req.True(dispatcher.Dispatch(context.Background(), event.MessageRead{}, "alice").Reached("alice"))

	registry.Unregister("s1")
	req.False(dispatcher.Dispatch(context.Background(), event.MessageRead{}, "alice").Reached("alice"))
}
