package socket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"post-it/auth"
	"post-it/domain"
	"post-it/domain/chat"
	"post-it/domain/event"
	errs "post-it/errors"
	"post-it/services"
	"post-it/sink"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/samber/lo"
)

// outboundFrame is what the write pump puts on the wire.
type outboundFrame struct {
	Event event.Type        `json:"event"`
	Data  event.DomainEvent `json:"data"`
}

// Client is one upgraded connection bound to an active session.
// The read pump and the write pump are its only goroutines.
type Client struct {
	log          *slog.Logger
	conn         *websocket.Conn
	session      *domain.Session
	outbox       *sink.SessionSink
	messages     services.IDirectMessageService
	idleTimeout  time.Duration
	writeTimeout time.Duration
	readLimit    int64
}

func NewClient(log *slog.Logger, conn *websocket.Conn, session *domain.Session, outbox *sink.SessionSink,
	messages services.IDirectMessageService, idleTimeout, writeTimeout time.Duration, readLimit int64) *Client {
	return &Client{
		log:          log.With("session_id", session.ID(), "user_id", session.UserID()),
		conn:         conn,
		session:      session,
		outbox:       outbox,
		messages:     messages,
		idleTimeout:  idleTimeout,
		writeTimeout: writeTimeout,
		readLimit:    readLimit,
	}
}

// ReadPump handles client frames one at a time until the peer goes away
// or stays silent longer than the idle timeout.
func (c *Client) ReadPump(ctx context.Context) {
	c.conn.SetReadLimit(c.readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.idleTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.idleTimeout))
	})

	for {
		messageType, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure,
				websocket.CloseAbnormalClosure) {
				c.log.Warn("Connection read failed", "error", err)
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(c.idleTimeout))
		if messageType != websocket.TextMessage {
			c.reply(ctx, errorEvent("", fmt.Errorf("%w: text frames only", errs.ErrInvalidPayload)))
			continue
		}
		c.handleFrame(ctx, payload)
	}
}

func (c *Client) handleFrame(ctx context.Context, payload []byte) {
	var frame chat.Frame
	if err := json.Unmarshal(payload, &frame); err != nil {
		c.reply(ctx, errorEvent("", fmt.Errorf("%w: %v", errs.ErrInvalidPayload, err)))
		return
	}

	switch frame.Event {
	case chat.SendMessageEvent:
		var cmd chat.SendMessageCommand
		if err := decode(frame.Data, &cmd); err != nil {
			c.reply(ctx, errorEvent(frame.Ref, err))
			return
		}
		receipt, err := c.messages.Send(ctx, c.session.UserID(), cmd.RecipientID, cmd.Body)
		if err != nil && !errors.Is(err, errs.ErrPersistence) {
			c.reply(ctx, errorEvent(frame.Ref, err))
			return
		}
		c.reply(ctx, receiptEvent(frame.Ref, receipt))
	case chat.ReadReceiptEvent:
		var cmd chat.ReadReceiptCommand
		if err := decode(frame.Data, &cmd); err != nil {
			c.reply(ctx, errorEvent(frame.Ref, err))
			return
		}
		if err := c.messages.MarkRead(ctx, cmd.ConversationID, c.session.UserID()); err != nil {
			c.reply(ctx, errorEvent(frame.Ref, err))
		}
	default:
		c.reply(ctx, errorEvent(frame.Ref, fmt.Errorf("%w: %q", errs.ErrUnknownEvent, frame.Event)))
	}
}

// reply answers the originating session only.
func (c *Client) reply(ctx context.Context, e event.DomainEvent) {
	if err := c.outbox.Consume(ctx, e); err != nil {
		c.log.Debug("Reply dropped", "event", e.Type(), "error", err)
	}
}

// WritePump drains the session outbox onto the connection, in order.
// It returns once the outbox is closed or a write fails.
func (c *Client) WritePump(ctx context.Context) {
	defer c.writeClose()
	for {
		e, err := c.outbox.Next(ctx)
		if err != nil {
			return
		}
		data, err := json.Marshal(outboundFrame{Event: e.Type(), Data: e})
		if err != nil {
			c.log.Error("Frame not encoded", "event", e.Type(), "error", err)
			continue
		}
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
		if err = c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			c.log.Debug("Connection write failed", "event", e.Type(), "error", err)
			// Unblocks the read pump
			_ = c.conn.Close()
			return
		}
	}
}

func (c *Client) writeClose() {
	message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(c.writeTimeout))
}

// KeepAlive pings the peer so a healthy but quiet client is not taken for idle.
// WriteControl may run concurrently with the write pump.
func (c *Client) KeepAlive(ctx context.Context) {
	ticker := time.NewTicker(c.idleTimeout * 9 / 10)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.outbox.Done():
			return
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeTimeout)); err != nil {
				return
			}
		}
	}
}

func decode(data json.RawMessage, target any) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: data is missing", errs.ErrInvalidPayload)
	}
	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrInvalidPayload, err)
	}
	return auth.ValidatePayload(target)
}

func receiptEvent(ref string, receipt domain.MessageReceipt) event.MessageReceipt {
	e := event.MessageReceipt{
		Ref:            ref,
		ConversationID: receipt.ConversationID,
		Status:         receipt.Status,
		Timestamp:      receipt.At,
	}
	if receipt.MessageID != uuid.Nil {
		e.MessageID = lo.ToPtr(receipt.MessageID)
	}
	return e
}

func errorEvent(ref string, err error) event.Error {
	return event.Error{Ref: ref, Code: errorCode(err), Message: err.Error()}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, errs.ErrUnknownEvent):
		return "unknown-event"
	case errors.Is(err, errs.ErrNotParticipant):
		return "not-participant"
	case errors.Is(err, errs.ErrInvalidPayload):
		return "invalid-payload"
	case errors.Is(err, errs.ErrPersistence):
		return "persistence"
	default:
		return "internal"
	}
}
