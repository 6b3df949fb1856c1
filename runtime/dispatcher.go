package runtime

import (
	"context"
	"errors"
	"log/slog"
	"post-it/contract"
	"post-it/domain"
	"post-it/domain/event"
	errs "post-it/errors"
	"sync"
	"time"

	"github.com/samber/lo"
)

var _ contract.IDispatcher = (*Dispatcher)(nil)

// Dispatcher fans a domain event out to every live session of its recipients.
//
// Delivery is best-effort and at-most-once per session per call: an offline
// recipient simply receives nothing. Sessions are resolved with a fresh registry
// lookup on each call, never from a cached handle, so a session that disconnected
// in the meantime is skipped.
//
// Emission is a non-blocking enqueue into each session's outbox, done under a
// single lock: events reach a given session in the order Dispatch was invoked.
type Dispatcher struct {
	mu              sync.Mutex
	log             *slog.Logger
	registry        contract.IPresenceRegistry
	dispatchTimeout time.Duration
}

func NewDispatcher(log *slog.Logger, registry contract.IPresenceRegistry, dispatchTimeout time.Duration) *Dispatcher {
	return &Dispatcher{log: log, registry: registry, dispatchTimeout: dispatchTimeout}
}

func (d *Dispatcher) Dispatch(ctx context.Context, e event.DomainEvent, recipients ...domain.UserID) contract.Delivery {
	delivery := make(contract.Delivery, len(recipients))
	if d.dispatchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.dispatchTimeout)
		defer cancel()
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, recipient := range lo.Uniq(recipients) {
		delivery[recipient] = 0
		for _, s := range d.registry.Sinks(recipient) {
			if err := s.Sink.Consume(ctx, e); err != nil {
				d.logMiss(recipient, s.SessionID, e, err)
				continue
			}
			delivery[recipient]++
		}
	}
	return delivery
}

func (d *Dispatcher) logMiss(recipient domain.UserID, sessionID domain.SessionID, e event.DomainEvent, err error) {
	// A session closing between lookup and emission is the expected race.
	if errors.Is(err, errs.ErrSessionClosed) {
		d.log.Debug("Session gone before emission", "user_id", recipient, "session_id", sessionID, "event", e.Type())
		return
	}
	d.log.Warn("Event not emitted", "user_id", recipient, "session_id", sessionID, "event", e.Type(), "error", err)
}
