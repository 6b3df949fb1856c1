//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"post-it/domain"
	"post-it/domain/event"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Authenticator validates a credential presented at connection time.
// Implementations must be stateless and free of side effects.
type Authenticator interface {
	Authenticate(credential string) (domain.UserID, error)
}

// EventSink is the emission end of one live session.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// SessionSink pairs a live session id with its sink.
type SessionSink struct {
	SessionID domain.SessionID
	Sink      EventSink
}

type IPresenceRegistry interface {
	Register(userID domain.UserID, sessionID domain.SessionID, sink EventSink) error
	Unregister(sessionID domain.SessionID)
	Lookup(userID domain.UserID) map[domain.SessionID]struct{}
	Sinks(userID domain.UserID) []SessionSink
}

// Delivery counts, per recipient, the sessions an event was emitted to.
type Delivery map[domain.UserID]int

// Reached reports whether the recipient had at least one live session.
func (d Delivery) Reached(userID domain.UserID) bool {
	return d[userID] > 0
}

type IDispatcher interface {
	Dispatch(ctx context.Context, e event.DomainEvent, recipients ...domain.UserID) Delivery
}

// MessageStore is the persistent store collaborator. It owns its own consistency.
type MessageStore interface {
	CreateMessage(ctx context.Context, message domain.Message) error
	MarkMessageRead(ctx context.Context, conversationID domain.ConversationID, reader domain.UserID) ([]domain.UserID, error)
	CreateNotificationRecord(ctx context.Context, record domain.NotificationRecord) error
	GetMessages(ctx context.Context, conversationID domain.ConversationID, cursor *string) ([]domain.Message, *string, error)
}

// PresenceTasks accepts ordered register/unregister requests.
type PresenceTasks interface {
	Register(ctx context.Context, userID domain.UserID, sessionID domain.SessionID, sink EventSink) error
	Unregister(ctx context.Context, sessionID domain.SessionID) error
}
