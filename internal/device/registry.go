// internal/device/registry.go
package device

import (
	"fmt"
	"sync"
)

// Registry holds the sessions of all tracked printers in registration order.
type Registry struct {
	mu    sync.RWMutex
	byID  map[string]*Session
	order []string
}

func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]*Session)}
}

// Add registers s. Ids must be unique.
func (r *Registry) Add(s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.byID[s.ID()]; dup {
		return fmt.Errorf("device: duplicate id %q", s.ID())
	}
	r.byID[s.ID()] = s
	r.order = append(r.order, s.ID())
	return nil
}

func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[id]
	return s, ok
}

// List returns the sessions in registration order.
func (r *Registry) List() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Session, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// ResetAll drops the mirrored state of every session.
func (r *Registry) ResetAll() {
	for _, s := range r.List() {
		s.Reset()
	}
}
