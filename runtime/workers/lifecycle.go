package workers

import (
	"context"
	"fmt"
	"log/slog"
	"post-it/contract"
	"post-it/domain"
	"post-it/errors"
	"sync"

	"github.com/eapache/queue"
)

type taskKind int

const (
	registerTask taskKind = iota
	unregisterTask
)

type lifecycleTask struct {
	kind      taskKind
	userID    domain.UserID
	sessionID domain.SessionID
	sink      contract.EventSink
	done      chan error
}

var (
	_ contract.Worker        = (*LifecycleWorker)(nil)
	_ contract.PresenceTasks = (*LifecycleWorker)(nil)
)

// LifecycleWorker applies presence registrations and unregistrations one at a time,
// in the order the transport events that triggered them were submitted.
//
// Tasks live in a FIFO owned by the worker, not by its goroutine: a task accepted
// while the worker is stopped is applied once it runs again. Registrations are
// refused once capacity tasks are pending; unregistrations are always accepted.
type LifecycleWorker struct {
	log      *slog.Logger
	registry contract.IPresenceRegistry
	capacity int

	mu      sync.Mutex
	pending *queue.Queue
	signal  chan struct{}
}

// NewLifecycleWorker builds a worker; a capacity <= 0 accepts any number of pending registrations.
func NewLifecycleWorker(log *slog.Logger, registry contract.IPresenceRegistry, capacity int) *LifecycleWorker {
	return &LifecycleWorker{
		log:      log,
		registry: registry,
		capacity: capacity,
		pending:  queue.New(),
		signal:   make(chan struct{}, 1),
	}
}

func (w *LifecycleWorker) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			w.log.Debug("Stopping lifecycle worker", "pending", w.Pending())
			return err
		}
		task, ok := w.next()
		if !ok {
			select {
			case <-ctx.Done():
			case <-w.signal:
			}
			continue
		}
		task.done <- w.apply(task)
	}
}

func (w *LifecycleWorker) apply(task lifecycleTask) error {
	switch task.kind {
	case registerTask:
		if err := w.registry.Register(task.userID, task.sessionID, task.sink); err != nil {
			return err
		}
		w.log.Debug("Session registered", "user_id", task.userID, "session_id", task.sessionID)
	case unregisterTask:
		w.registry.Unregister(task.sessionID)
		w.log.Debug("Session unregistered", "session_id", task.sessionID)
	}
	return nil
}

// Register queues the registration and waits until it has been applied.
// An error caused by ctx does not withdraw the task: it is applied later.
func (w *LifecycleWorker) Register(ctx context.Context, userID domain.UserID, sessionID domain.SessionID,
	sink contract.EventSink) error {
	return w.submit(ctx, lifecycleTask{kind: registerTask, userID: userID, sessionID: sessionID, sink: sink})
}

// Unregister queues the unregistration and waits until it has been applied.
// The task is never dropped; ctx only bounds the wait.
func (w *LifecycleWorker) Unregister(ctx context.Context, sessionID domain.SessionID) error {
	return w.submit(ctx, lifecycleTask{kind: unregisterTask, sessionID: sessionID})
}

// Pending returns the number of tasks not yet picked up.
func (w *LifecycleWorker) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pending.Length()
}

func (w *LifecycleWorker) submit(ctx context.Context, task lifecycleTask) error {
	task.done = make(chan error, 1)
	if err := w.enqueue(task); err != nil {
		return err
	}
	select {
	case err := <-task.done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", errors.ErrLifecycleStopped, ctx.Err())
	}
}

func (w *LifecycleWorker) enqueue(task lifecycleTask) error {
	w.mu.Lock()
	if task.kind == registerTask && w.capacity > 0 && w.pending.Length() >= w.capacity {
		w.mu.Unlock()
		return errors.ErrLifecycleBusy
	}
	w.pending.Add(task)
	w.mu.Unlock()

	select {
	case w.signal <- struct{}{}:
	default:
	}
	return nil
}

func (w *LifecycleWorker) next() (lifecycleTask, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending.Length() == 0 {
		return lifecycleTask{}, false
	}
	return w.pending.Remove().(lifecycleTask), true
}
