package sink

import (
	"context"
	"post-it/contract"
	"post-it/domain/event"
	"post-it/errors"
	"sync"

	"github.com/eapache/queue"
)

var _ contract.EventSink = (*SessionSink)(nil)

// SessionSink is the outbox of one live session.
// Consume is called by the dispatcher and never blocks; the connection's write pump
// drains the outbox with Next, in FIFO order.
type SessionSink struct {
	mu         sync.Mutex
	pending    *queue.Queue
	maxPending int
	closed     bool
	ready      chan struct{}
	done       chan struct{}
	closeOnce  sync.Once
}

func NewSessionSink(maxPending int) *SessionSink {
	return &SessionSink{
		pending:    queue.New(),
		maxPending: maxPending,
		ready:      make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
}

// Consume enqueues the event for the connection.
// A closed session returns ErrSessionClosed, a saturated outbox ErrSinkFull.
func (s *SessionSink) Consume(ctx context.Context, e event.DomainEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.ErrSessionClosed
	}
	if s.maxPending > 0 && s.pending.Length() >= s.maxPending {
		s.mu.Unlock()
		return errors.ErrSinkFull
	}
	s.pending.Add(e)
	s.mu.Unlock()

	select {
	case s.ready <- struct{}{}:
	default:
	}
	return nil
}

// Next blocks until an event is available, the sink is closed or ctx is done.
// Events still pending when the sink closes are dropped.
func (s *SessionSink) Next(ctx context.Context) (event.DomainEvent, error) {
	for {
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return nil, errors.ErrSessionClosed
		}
		if s.pending.Length() > 0 {
			e := s.pending.Remove().(event.DomainEvent)
			s.mu.Unlock()
			return e, nil
		}
		s.mu.Unlock()

		select {
		case <-s.ready:
		case <-s.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Len returns the number of events waiting for the write pump.
func (s *SessionSink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending.Length()
}

// Done is closed once the sink is closed.
func (s *SessionSink) Done() <-chan struct{} {
	return s.done
}

// Close halts delivery immediately. It is safe to call more than once.
func (s *SessionSink) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.pending = queue.New()
		s.mu.Unlock()
		close(s.done)
	})
}
