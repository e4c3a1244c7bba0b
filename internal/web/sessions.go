package web

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/estetica-booking/internal/booking"
	"github.com/wolfman30/estetica-booking/pkg/logging"
)

// ErrRegistryClosed is returned once the registry has shut down.
var ErrRegistryClosed = errors.New("web: session registry closed")

// FormFactory builds the form for a new browser session.
type FormFactory func() *booking.Form

// Registry maps session ids to their booking forms. Idle sessions are
// evicted by Sweep and their forms closed.
type Registry struct {
	newForm FormFactory
	ttl     time.Duration
	logger  *logging.Logger
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
	closed   bool
}

type session struct {
	form     *booking.Form
	lastSeen time.Time
}

func NewRegistry(newForm FormFactory, ttl time.Duration, logger *logging.Logger) *Registry {
	if newForm == nil {
		panic("web: form factory required")
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Registry{
		newForm:  newForm,
		ttl:      ttl,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// Get returns the form for id and marks the session as used.
func (r *Registry) Get(id string) (*booking.Form, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || r.closed {
		return nil, false
	}
	s.lastSeen = r.now()
	return s.form, true
}

// Create opens a new session.
func (r *Registry) Create() (string, *booking.Form, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return "", nil, ErrRegistryClosed
	}
	id := uuid.NewString()
	form := r.newForm()
	r.sessions[id] = &session{form: form, lastSeen: r.now()}
	return id, form, nil
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep closes and drops sessions idle longer than the ttl.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	cutoff := r.now().Add(-r.ttl)
	var stale []*booking.Form
	for id, s := range r.sessions {
		if s.lastSeen.Before(cutoff) {
			stale = append(stale, s.form)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, f := range stale {
		f.Close()
	}
	if len(stale) > 0 {
		r.logger.Debug("evicted idle booking sessions", "count", len(stale))
	}
	return len(stale)
}

// Run sweeps until ctx is done.
func (r *Registry) Run(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Close closes every form and refuses new sessions.
func (r *Registry) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	forms := make([]*booking.Form, 0, len(r.sessions))
	for id, s := range r.sessions {
		forms = append(forms, s.form)
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	for _, f := range forms {
		f.Close()
	}
}
