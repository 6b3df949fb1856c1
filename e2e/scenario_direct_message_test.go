package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"post-it/domain"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type testDirectMessageSuite struct {
	BaseSuite
}

func TestDirectMessageSuite(t *testing.T) {
	suite.Run(t, &testDirectMessageSuite{})
}

func (s *testDirectMessageSuite) TestFullDirectMessageFlow() {
	// Unique identities keep reruns against the same store independent
	run := uuid.NewString()[:8]
	alice := domain.UserID("alice-" + run)
	bob := domain.UserID("bob-" + run)

	aliceConn := s.Connect("Alice opens a session", alice)
	defer func() { _ = aliceConn.Close() }()

	s.Run("Step 1: message to an offline user is queued", func() {
		s.Send(aliceConn, "send-message", "q1", map[string]string{"recipientId": bob.String(), "body": "ping"})
		frame := s.Read(aliceConn)
		s.Require().Equal("message-receipt", frame.Event)
		var receipt struct {
			Status string `json:"status"`
		}
		s.Require().NoError(json.Unmarshal(frame.Data, &receipt))
		s.Require().Equal("queued", receipt.Status)
	})

	bobConn := s.Connect("Bob opens a session", bob)
	defer func() { _ = bobConn.Close() }()

	s.Run("Step 2: the queued message is in the history", func() {
		conversation := domain.DirectConversationID(alice, bob)
		res := s.Ingest(http.MethodGet, fmt.Sprintf("/internal/conversations/%s/messages", conversation), nil)
		defer func() { _ = res.Body.Close() }()
		s.Require().Equal(http.StatusOK, res.StatusCode)
		var page struct {
			Messages []struct {
				Body string `json:"body"`
			} `json:"messages"`
		}
		s.Require().NoError(json.NewDecoder(res.Body).Decode(&page))
		s.Require().Len(page.Messages, 1)
		s.Require().Equal("ping", page.Messages[0].Body)
	})

	s.Run("Step 3: message to an online user is delivered", func() {
		s.Send(aliceConn, "send-message", "d1", map[string]string{"recipientId": bob.String(), "body": "pong?"})
		incoming := s.Read(bobConn)
		s.Require().Equal("new-message", incoming.Event)
		receipt := s.Read(aliceConn)
		s.Require().Equal("message-receipt", receipt.Event)
		s.Require().Contains(string(receipt.Data), `"delivered"`)
	})

	s.Run("Step 4: read receipt reaches the sender", func() {
		conversation := domain.DirectConversationID(alice, bob)
		s.Send(bobConn, "read-receipt", "r1", map[string]string{"conversationId": string(conversation)})
		frame := s.Read(aliceConn)
		s.Require().Equal("message-read", frame.Event)
	})

	s.Run("Step 5: notification ingested by the REST layer", func() {
		res := s.Ingest(http.MethodPost, "/internal/notifications", map[string]string{
			"type": "like", "actorId": bob.String(), "targetId": "post-" + run, "ownerId": alice.String(),
		})
		_ = res.Body.Close()
		s.Require().Equal(http.StatusAccepted, res.StatusCode)
		frame := s.Read(aliceConn)
		s.Require().Equal("notification", frame.Event)
	})

	s.Run("Step 6: presence follows disconnects", func() {
		_ = bobConn.Close()
		s.Require().Eventually(func() bool {
			res := s.Ingest(http.MethodGet, "/internal/presence/"+bob.String(), nil)
			defer func() { _ = res.Body.Close() }()
			var presence struct {
				Online bool `json:"online"`
			}
			return json.NewDecoder(res.Body).Decode(&presence) == nil && !presence.Online
		}, 5*time.Second, 100*time.Millisecond)
	})
}

func (s *testDirectMessageSuite) TestHealth() {
	s.WithHealth("Realtime service reports serving", func(ctx context.Context, client healthpb.HealthClient) {
		res, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: "post-it.realtime"})
		s.Require().NoError(err)
		s.Require().Equal(healthpb.HealthCheckResponse_SERVING, res.GetStatus())
	})
}
