package domain

import (
	"post-it/errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSession_Lifecycle(t *testing.T) {
	req := require.New(t)
	session := NewSession(time.Now())

	req.Equal(Connecting, session.State())
	req.NotEmpty(session.ID())

	req.NoError(session.Authenticate("alice"))
	req.Equal(Authenticated, session.State())
	req.Equal(UserID("alice"), session.UserID())

	req.NoError(session.Activate())
	req.Equal(Active, session.State())

	disconnected, err := session.Disconnect()
	req.NoError(err)
	req.True(disconnected)
	req.Equal(Disconnected, session.State())

	// Second disconnect reports nothing to do
	disconnected, err = session.Disconnect()
	req.NoError(err)
	req.False(disconnected)
}

func TestSession_Identity_Is_Immutable(t *testing.T) {
	req := require.New(t)
	session := NewSession(time.Now())
	req.NoError(session.Authenticate("alice"))

	req.ErrorIs(session.Authenticate("bob"), errors.ErrIdentityAlreadySet)
	req.Equal(UserID("alice"), session.UserID())
}

func TestSession_Rejected_Is_Terminal(t *testing.T) {
	req := require.New(t)
	session := NewSession(time.Now())
	req.NoError(session.Reject())

	req.ErrorIs(session.Authenticate("alice"), errors.ErrInvalidTransition)
	req.ErrorIs(session.Activate(), errors.ErrInvalidTransition)
	_, err := session.Disconnect()
	req.ErrorIs(err, errors.ErrInvalidTransition)
	req.Equal(Rejected, session.State())
	req.True(session.UserID().IsZero())
}

func TestSession_Invalid_Transitions(t *testing.T) {
	cases := []struct {
		name  string
		setup func(s *Session) error
		move  func(s *Session) error
	}{
		{
			name:  "activate before authentication",
			setup: func(s *Session) error { return nil },
			move:  func(s *Session) error { return s.Activate() },
		},
		{
			name:  "reject after authentication",
			setup: func(s *Session) error { return s.Authenticate("alice") },
			move:  func(s *Session) error { return s.Reject() },
		},
		{
			name: "activate twice",
			setup: func(s *Session) error {
				if err := s.Authenticate("alice"); err != nil {
					return err
				}
				return s.Activate()
			},
			move: func(s *Session) error { return s.Activate() },
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := require.New(t)
			session := NewSession(time.Now())
			req.NoError(tc.setup(session))
			req.ErrorIs(tc.move(session), errors.ErrInvalidTransition)
		})
	}
}

func TestSession_Disconnect_Before_Activation(t *testing.T) {
	req := require.New(t)
	session := NewSession(time.Now())
	req.NoError(session.Authenticate("alice"))

	disconnected, err := session.Disconnect()
	req.NoError(err)
	req.True(disconnected)
}
