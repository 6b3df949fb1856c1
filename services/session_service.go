package services

import (
	"context"
	"fmt"
	"log/slog"
	"post-it/contract"
	"post-it/domain"
	"post-it/domain/event"
	"time"
)

// Closable is the part of a session sink that stops delivery.
type Closable interface {
	Close()
}

// Outbox is the session sink as seen by the lifecycle: it receives events and can be shut.
type Outbox interface {
	contract.EventSink
	Closable
}

type ISessionService interface {
	Open(ctx context.Context, credential string, sink Outbox) (*domain.Session, error)
	Close(ctx context.Context, session *domain.Session, sink Closable) error
}

// SessionService drives a connection through its lifecycle and keeps
// presence in step with it.
type SessionService struct {
	log               *slog.Logger
	authenticator     contract.Authenticator
	tasks             contract.PresenceTasks
	unregisterTimeout time.Duration
	now               func() time.Time
}

func NewSessionService(log *slog.Logger, authenticator contract.Authenticator, tasks contract.PresenceTasks,
	unregisterTimeout time.Duration) *SessionService {
	return &SessionService{
		log:               log,
		authenticator:     authenticator,
		tasks:             tasks,
		unregisterTimeout: unregisterTimeout,
		now:               time.Now,
	}
}

// Open authenticates the credential, registers the session and activates it.
// A rejected credential leaves no presence behind; the returned session is then in Rejected state.
// A failed registration closes the sink and withdraws the session from presence.
func (s *SessionService) Open(ctx context.Context, credential string, sink Outbox) (*domain.Session, error) {
	session := domain.NewSession(s.now().UTC())

	userID, err := s.authenticator.Authenticate(credential)
	if err != nil {
		if rejectErr := session.Reject(); rejectErr != nil {
			return session, rejectErr
		}
		s.log.Debug("Connection rejected", "session_id", session.ID(), "error", err)
		return session, err
	}
	if err = session.Authenticate(userID); err != nil {
		return session, err
	}

	if err = s.tasks.Register(ctx, userID, session.ID(), sink); err != nil {
		_, _ = session.Disconnect()
		sink.Close()
		// The registration may still be applied after ctx gave up on it
		s.unregister(ctx, session)
		return session, fmt.Errorf("register session: %w", err)
	}
	if err = session.Activate(); err != nil {
		return session, err
	}

	greeting := event.SessionOpened{SessionID: session.ID(), UserID: userID, ConnectedAt: session.ConnectedAt()}
	if err = sink.Consume(ctx, greeting); err != nil {
		s.log.Warn("Session greeting not emitted", "session_id", session.ID(), "error", err)
	}
	s.log.Info("Session active", "session_id", session.ID(), "user_id", userID)
	return session, nil
}

// Close disconnects the session once: the sink stops accepting events and
// the presence entry is removed. Later calls are no-ops.
func (s *SessionService) Close(ctx context.Context, session *domain.Session, sink Closable) error {
	disconnected, err := session.Disconnect()
	if err != nil || !disconnected {
		return err
	}
	sink.Close()

	if err = s.unregister(ctx, session); err != nil {
		return err
	}
	s.log.Info("Session disconnected", "session_id", session.ID(), "user_id", session.UserID(),
		"duration", time.Since(session.ConnectedAt()))
	return nil
}

// unregister submits the removal and waits at most unregisterTimeout for it.
// A timed out wait leaves the task queued: it is applied once the lifecycle worker catches up.
func (s *SessionService) unregister(ctx context.Context, session *domain.Session) error {
	// The connection context is usually already done here
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.unregisterTimeout)
	defer cancel()
	if err := s.tasks.Unregister(ctx, session.ID()); err != nil {
		s.log.Warn("Session unregistration pending", "session_id", session.ID(), "error", err)
		return err
	}
	return nil
}
