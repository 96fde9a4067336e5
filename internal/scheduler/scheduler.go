package scheduler

import (
	"log/slog"
	"sync"
	"time"
)

// Registry holds at most one pending delayed task per key (the Avito
// conversation id). Scheduling a key that already has a pending task
// cancels the old one atomically: a superseded task can never fire.
type Registry struct {
	mu      sync.Mutex
	pending map[string]*handle
	logger  *slog.Logger
}

type handle struct {
	timer *time.Timer
}

// NewRegistry creates an empty task registry
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		pending: make(map[string]*handle),
		logger:  logger.With("component", "scheduler"),
	}
}

// Schedule installs fn to run after delay, replacing any pending task
// for the same key.
func (r *Registry) Schedule(key string, delay time.Duration, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.pending[key]; ok {
		old.timer.Stop()
		r.logger.Debug("superseding pending task", "key", key)
	}

	h := &handle{}
	h.timer = time.AfterFunc(delay, func() {
		// A stopped timer can still fire if Stop raced the expiry;
		// only the handle that is still installed may run.
		r.mu.Lock()
		current, ok := r.pending[key]
		if !ok || current != h {
			r.mu.Unlock()
			return
		}
		delete(r.pending, key)
		r.mu.Unlock()

		fn()
	})
	r.pending[key] = h

	r.logger.Info("scheduled task", "key", key, "delay", delay)
}

// Cancel discards the pending task for a key, if any.
func (r *Registry) Cancel(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.pending[key]; ok {
		h.timer.Stop()
		delete(r.pending, key)
	}
}

// CancelAll discards every pending task. Used on shutdown.
func (r *Registry) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, h := range r.pending {
		h.timer.Stop()
		delete(r.pending, key)
	}
}

// Len returns the number of pending tasks.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
