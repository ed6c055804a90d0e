package handler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pavelanni/tubequiz/internal/quiz"
)

// visitor is one browser's quiz state plus the error to show on its next
// page view.
type visitor struct {
	session  *quiz.Session
	mu       sync.Mutex
	errorID  string
	videoURL string
	lastSeen time.Time
}

func (v *visitor) setError(id, videoURL string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.errorID = id
	v.videoURL = videoURL
}

// takeError returns and clears the pending error.
func (v *visitor) takeError() (id, videoURL string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	id, videoURL = v.errorID, v.videoURL
	v.errorID, v.videoURL = "", ""
	return id, videoURL
}

// Registry keeps quiz sessions in memory, keyed by a random cookie value.
// Sessions idle for longer than the configured timeout are dropped.
type Registry struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	idle     time.Duration
	now      func() time.Time
}

// NewRegistry creates a Registry. idle <= 0 keeps sessions until restart.
func NewRegistry(idle time.Duration) *Registry {
	return &Registry{
		visitors: make(map[string]*visitor),
		idle:     idle,
		now:      time.Now,
	}
}

// get returns the visitor for id, creating a fresh one with a new ID when id
// is unknown or expired. created reports whether a new ID was issued.
func (r *Registry) get(id string) (v *visitor, newID string, created bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	if v, ok := r.visitors[id]; ok && !r.expired(v, now) {
		v.lastSeen = now
		return v, id, false
	}
	newID = uuid.NewString()
	v = &visitor{session: quiz.NewSession(), lastSeen: now}
	r.visitors[newID] = v
	return v, newID, true
}

func (r *Registry) expired(v *visitor, now time.Time) bool {
	return r.idle > 0 && now.Sub(v.lastSeen) > r.idle
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.visitors)
}

// Sweep removes expired sessions and returns how many were removed.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	n := 0
	for id, v := range r.visitors {
		if r.expired(v, now) {
			delete(r.visitors, id)
			n++
		}
	}
	return n
}

// Run sweeps expired sessions every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if r.idle <= 0 || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				slog.Info("expired quiz sessions removed", "count", n, "live", r.Len())
			}
		}
	}
}
