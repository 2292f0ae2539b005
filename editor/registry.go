package editor

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Registry keeps one session per post slug.
type Registry struct {
	saver Saver
	opts  []Option

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry returns a registry whose sessions save through saver.
func NewRegistry(saver Saver, opts ...Option) *Registry {
	return &Registry{saver: saver, opts: opts, sessions: make(map[string]*Session)}
}

// Get returns the session for slug, if one is open.
func (r *Registry) Get(slug string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[slug]
	return s, ok
}

// Open returns the session for d.Slug, creating it if needed, and loads d
// into it.
func (r *Registry) Open(d Draft) *Session {
	r.mu.Lock()
	s, ok := r.sessions[d.Slug]
	if !ok {
		s = NewSession(r.saver, r.opts...)
		r.sessions[d.Slug] = s
	}
	r.mu.Unlock()
	s.Load(d)
	return s
}

// Remove closes and forgets the session for slug.
func (r *Registry) Remove(slug string) {
	r.mu.Lock()
	s, ok := r.sessions[slug]
	delete(r.sessions, slug)
	r.mu.Unlock()
	if ok {
		s.Close()
	}
}

// FlushAll saves every session with pending edits.
func (r *Registry) FlushAll(ctx context.Context) error {
	r.mu.Lock()
	pending := make(map[string]*Session, len(r.sessions))
	for slug, s := range r.sessions {
		pending[slug] = s
	}
	r.mu.Unlock()

	var errs []error
	for slug, s := range pending {
		if st := s.Status().State; st != Dirty && st != Saving {
			continue
		}
		if err := s.Flush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush %s: %w", slug, err))
		}
	}
	return errors.Join(errs...)
}

// Len reports the number of open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
