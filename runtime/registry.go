package runtime

import (
	"post-it/contract"
	"post-it/domain"
	"post-it/errors"
	"sync"

	"github.com/samber/lo"
)

type Set map[domain.SessionID]struct{}

var _ contract.IPresenceRegistry = (*PresenceRegistry)(nil)

// PresenceRegistry maps a user identity to the set of its active sessions.
// It is the only mutable state shared across connections; every operation
// holds the lock for exactly its read-modify-write of the maps.
type PresenceRegistry struct {
	mu       sync.RWMutex
	closed   bool
	users    map[domain.UserID]Set                  // identity -> active sessions
	owners   map[domain.SessionID]domain.UserID     // session -> identity
	sessions map[domain.SessionID]contract.EventSink // session -> sink
}

func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{
		users:    make(map[domain.UserID]Set),
		owners:   make(map[domain.SessionID]domain.UserID),
		sessions: make(map[domain.SessionID]contract.EventSink),
	}
}

// Register adds the session to the identity's set. Registering the same pair twice is a no-op.
// A session id already held by another identity moves to the new one (last write wins).
func (r *PresenceRegistry) Register(userID domain.UserID, sessionID domain.SessionID, sink contract.EventSink) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return errors.ErrRegistryClosed
	}

	if previous, ok := r.owners[sessionID]; ok && previous != userID {
		r.remove(previous, sessionID)
	}

	if _, ok := r.users[userID]; !ok {
		r.users[userID] = make(Set)
	}
	r.users[userID][sessionID] = struct{}{}
	r.owners[sessionID] = userID
	r.sessions[sessionID] = sink
	return nil
}

// Unregister removes the session from whichever identity holds it.
// Unknown sessions are ignored.
func (r *PresenceRegistry) Unregister(sessionID domain.SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.owners[sessionID]
	if !ok {
		return
	}
	r.remove(userID, sessionID)
	delete(r.owners, sessionID)
	delete(r.sessions, sessionID)
}

// remove drops the session from the user's set and the entry itself once empty.
func (r *PresenceRegistry) remove(userID domain.UserID, sessionID domain.SessionID) {
	if members, ok := r.users[userID]; ok {
		delete(members, sessionID)
		if len(members) == 0 {
			delete(r.users, userID)
		}
	}
}

// Lookup returns a copy of the live session set, empty when the user is offline.
func (r *PresenceRegistry) Lookup(userID domain.UserID) map[domain.SessionID]struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res := make(map[domain.SessionID]struct{}, len(r.users[userID]))
	for sessionID := range r.users[userID] {
		res[sessionID] = struct{}{}
	}
	return res
}

// Sinks resolves the live sessions of a user into their sinks.
func (r *PresenceRegistry) Sinks(userID domain.UserID) []contract.SessionSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.users[userID]
	if !ok {
		return nil
	}
	return lo.FilterMap(lo.Keys(members), func(sessionID domain.SessionID, _ int) (contract.SessionSink, bool) {
		sink, exists := r.sessions[sessionID]
		return contract.SessionSink{SessionID: sessionID, Sink: sink}, exists
	})
}

// Online returns the identities holding at least one session.
func (r *PresenceRegistry) Online() []domain.UserID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Keys(r.users)
}

// Count returns the number of online users and of active sessions.
func (r *PresenceRegistry) Count() (users, sessions int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users), len(r.owners)
}

// Close empties the registry and refuses further registrations.
func (r *PresenceRegistry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	clear(r.users)
	clear(r.owners)
	clear(r.sessions)
}
