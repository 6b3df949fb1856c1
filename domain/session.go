package domain

import (
	"fmt"
	"post-it/errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

type SessionID string

type SessionState string

const (
	Connecting    SessionState = "CONNECTING"
	Authenticated SessionState = "AUTHENTICATED"
	Active        SessionState = "ACTIVE"
	Disconnected  SessionState = "DISCONNECTED"
	Rejected      SessionState = "REJECTED"
)

// transitions lists every allowed move of the session state machine.
// Disconnected and Rejected are terminal.
var transitions = map[SessionState][]SessionState{
	Connecting:    {Authenticated, Rejected},
	Authenticated: {Active, Disconnected},
	Active:        {Disconnected},
}

// Session is one live connection. It is owned by the connection it represents
// but may be read from both of its pumps, hence the lock.
type Session struct {
	mu          sync.RWMutex
	id          SessionID
	userID      UserID
	connectedAt time.Time
	state       SessionState
}

func NewSession(connectedAt time.Time) *Session {
	return &Session{
		id:          SessionID(uuid.NewString()),
		connectedAt: connectedAt,
		state:       Connecting,
	}
}

func (s *Session) ID() SessionID { return s.id }

func (s *Session) ConnectedAt() time.Time { return s.connectedAt }

func (s *Session) UserID() UserID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID
}

func (s *Session) State() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Authenticate binds the identity and moves Connecting -> Authenticated.
// The identity can only be set once for the life of the session.
func (s *Session) Authenticate(userID UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.userID.IsZero() {
		return errors.ErrIdentityAlreadySet
	}
	if err := s.transition(Authenticated); err != nil {
		return err
	}
	s.userID = userID
	return nil
}

func (s *Session) Reject() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transition(Rejected)
}

func (s *Session) Activate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transition(Active)
}

// Disconnect moves the session to its terminal state.
// It returns false when the session was already disconnected, so callers
// can guarantee a single unregistration.
func (s *Session) Disconnect() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Disconnected {
		return false, nil
	}
	if err := s.transition(Disconnected); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Session) transition(to SessionState) error {
	for _, allowed := range transitions[s.state] {
		if allowed == to {
			s.state = to
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", errors.ErrInvalidTransition, s.state, to)
}
