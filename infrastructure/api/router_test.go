package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"post-it/auth"
	"post-it/domain"
	"post-it/domain/event"
	"post-it/mocks"
	"post-it/runtime"
	"post-it/services"
	"post-it/sink"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type apiFixture struct {
	server   *httptest.Server
	store    *mocks.MockMessageStore
	registry *runtime.PresenceRegistry
	service  string
	user     string
}

func newAPIFixture(t *testing.T) apiFixture {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	issuer := auth.NewIssuer("secret", "post-it")
	registry := runtime.NewPresenceRegistry()
	store := mocks.NewMockMessageStore(ctrl)
	dispatcher := runtime.NewDispatcher(log, registry, time.Second)
	api := NewAPI(log, auth.NewJWTAuthenticator(issuer),
		services.NewNotificationService(log, store, dispatcher),
		services.NewDirectMessageService(log, store, dispatcher, 100),
		registry, 4096)

	sessions := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })
	server := httptest.NewServer(api.Router(sessions))
	t.Cleanup(server.Close)

	service, err := issuer.GenerateToken("rest-api", []string{auth.RoleService}, time.Minute)
	req.NoError(err)
	user, err := issuer.GenerateToken("alice", []string{auth.RoleUser}, time.Minute)
	req.NoError(err)
	return apiFixture{server: server, store: store, registry: registry, service: service, user: user}
}

func (f apiFixture) call(t *testing.T, method, path, token string, body any) *http.Response {
	var payload bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&payload).Encode(body))
	}
	r, err := http.NewRequest(method, f.server.URL+path, &payload)
	require.NoError(t, err)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	res, err := http.DefaultClient.Do(r)
	require.NoError(t, err)
	t.Cleanup(func() { _ = res.Body.Close() })
	return res
}

func TestAPI_Health(t *testing.T) {
	req := require.New(t)
	f := newAPIFixture(t)

	res := f.call(t, http.MethodGet, "/health", "", nil)
	req.Equal(http.StatusOK, res.StatusCode)

	var body map[string]any
	req.NoError(json.NewDecoder(res.Body).Decode(&body))
	req.Equal("ok", body["status"])
}

func TestAPI_Mounts_Session_Endpoint(t *testing.T) {
	req := require.New(t)
	f := newAPIFixture(t)

	res := f.call(t, http.MethodGet, "/ws", "", nil)
	req.Equal(http.StatusTeapot, res.StatusCode)
}

func TestAPI_Requires_Service_Role(t *testing.T) {
	f := newAPIFixture(t)
	f.store.EXPECT().CreateNotificationRecord(gomock.Any(), gomock.Any()).Times(0)
	body := NotificationRequest{Type: domain.Like, ActorID: "bob", TargetID: "post-1", OwnerID: "alice"}

	t.Run("without credential", func(t *testing.T) {
		res := f.call(t, http.MethodPost, "/internal/notifications", "", body)
		require.Equal(t, http.StatusUnauthorized, res.StatusCode)
	})

	t.Run("with a user credential", func(t *testing.T) {
		res := f.call(t, http.MethodPost, "/internal/notifications", f.user, body)
		require.Equal(t, http.StatusForbidden, res.StatusCode)
	})
}

func TestAPI_Notification(t *testing.T) {
	t.Run("should record and forward", func(t *testing.T) {
		req := require.New(t)
		f := newAPIFixture(t)
		owner := sink.NewSessionSink(8)
		req.NoError(f.registry.Register("alice", "s1", owner))
		f.store.EXPECT().CreateNotificationRecord(gomock.Any(), gomock.Any()).Return(nil).Times(1)

		res := f.call(t, http.MethodPost, "/internal/notifications", f.service,
			NotificationRequest{Type: domain.Comment, ActorID: "bob", TargetID: "post-1", OwnerID: "alice"})
		req.Equal(http.StatusAccepted, res.StatusCode)

		e, err := owner.Next(context.Background())
		req.NoError(err)
		req.Equal(event.NotificationType, e.Type())
	})

	t.Run("should reject an unknown type", func(t *testing.T) {
		req := require.New(t)
		f := newAPIFixture(t)
		f.store.EXPECT().CreateNotificationRecord(gomock.Any(), gomock.Any()).Times(0)

		res := f.call(t, http.MethodPost, "/internal/notifications", f.service,
			map[string]string{"type": "share", "actorId": "bob", "targetId": "post-1", "ownerId": "alice"})
		req.Equal(http.StatusBadRequest, res.StatusCode)
	})

	t.Run("should report store failures", func(t *testing.T) {
		req := require.New(t)
		f := newAPIFixture(t)
		f.store.EXPECT().CreateNotificationRecord(gomock.Any(), gomock.Any()).Return(fmt.Errorf("closed"))

		res := f.call(t, http.MethodPost, "/internal/notifications", f.service,
			NotificationRequest{Type: domain.Like, ActorID: "bob", TargetID: "post-1", OwnerID: "alice"})
		req.Equal(http.StatusBadGateway, res.StatusCode)
	})
}

func TestAPI_Message(t *testing.T) {
	req := require.New(t)
	f := newAPIFixture(t)
	f.store.EXPECT().CreateMessage(gomock.Any(), gomock.Any()).Return(nil)

	res := f.call(t, http.MethodPost, "/internal/messages", f.service,
		MessageRequest{SenderID: "alice", RecipientID: "bob", Body: "hello"})
	req.Equal(http.StatusCreated, res.StatusCode)

	var receipt ReceiptResponse
	req.NoError(json.NewDecoder(res.Body).Decode(&receipt))
	req.Equal(domain.Queued, receipt.Status)
	req.Equal(domain.DirectConversationID("alice", "bob"), receipt.ConversationID)
	_, err := uuid.Parse(receipt.MessageID)
	req.NoError(err)
}

func TestAPI_Messages_Page(t *testing.T) {
	req := require.New(t)
	f := newAPIFixture(t)
	conversation := domain.DirectConversationID("alice", "bob")
	cursor := "000000000000000000042"
	stored := domain.Message{ID: uuid.New(), ConversationID: conversation, SenderID: "alice", RecipientID: "bob", Body: "hi"}

	f.store.EXPECT().GetMessages(gomock.Any(), conversation, &cursor).Return([]domain.Message{stored}, nil, nil)

	res := f.call(t, http.MethodGet, "/internal/conversations/"+string(conversation)+"/messages?cursor="+cursor, f.service, nil)
	req.Equal(http.StatusOK, res.StatusCode)

	var page MessagesResponse
	req.NoError(json.NewDecoder(res.Body).Decode(&page))
	req.Len(page.Messages, 1)
	req.Equal(stored.ID.String(), page.Messages[0].ID)
	req.Nil(page.Cursor)
}

func TestAPI_Presence(t *testing.T) {
	req := require.New(t)
	f := newAPIFixture(t)
	req.NoError(f.registry.Register("alice", "s1", sink.NewSessionSink(1)))
	req.NoError(f.registry.Register("alice", "s2", sink.NewSessionSink(1)))

	res := f.call(t, http.MethodGet, "/internal/presence/alice", f.service, nil)
	req.Equal(http.StatusOK, res.StatusCode)

	var presence PresenceResponse
	req.NoError(json.NewDecoder(res.Body).Decode(&presence))
	req.Equal(PresenceResponse{UserID: "alice", Online: true, Sessions: 2}, presence)

	res = f.call(t, http.MethodGet, "/internal/presence/bob", f.service, nil)
	req.NoError(json.NewDecoder(res.Body).Decode(&presence))
	req.False(presence.Online)
}
