package workflow

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"preboard/internal/metrics"
)

// Registry holds the open sessions in memory and forgets idle ones.
type Registry struct {
	records  RecordStore
	blobs    BlobStore
	renderer Renderer
	ttl      time.Duration
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates a registry; ttl <= 0 means thirty minutes.
func NewRegistry(records RecordStore, blobs BlobStore, renderer Renderer, ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &Registry{
		records:  records,
		blobs:    blobs,
		renderer: renderer,
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Create opens a new session in Idle.
func (r *Registry) Create() *Session {
	s := newSession(uuid.NewString(), r.records, r.blobs, r.renderer, r.now())
	r.mu.Lock()
	r.sessions[s.id] = s
	n := len(r.sessions)
	r.mu.Unlock()
	metrics.ActiveSessions.Set(float64(n))
	return s
}

// Get returns a session and marks it as used.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.touch(r.now())
	return s, nil
}

// Delete forgets a session, discarding anything attached to it.
func (r *Registry) Delete(id string) bool {
	r.mu.Lock()
	_, ok := r.sessions[id]
	delete(r.sessions, id)
	n := len(r.sessions)
	r.mu.Unlock()
	metrics.ActiveSessions.Set(float64(n))
	return ok
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep removes sessions idle for longer than the ttl and returns how many went.
// Sessions with a request in flight are kept.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.ttl)
	r.mu.Lock()
	removed := 0
	for id, s := range r.sessions {
		if s.idleSince(cutoff) {
			delete(r.sessions, id)
			removed++
		}
	}
	n := len(r.sessions)
	r.mu.Unlock()
	metrics.ActiveSessions.Set(float64(n))
	return removed
}

// Run sweeps periodically until ctx is done.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(r.ttl / 2)
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
