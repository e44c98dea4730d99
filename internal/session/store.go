package session

import (
	"sync"
	"time"

	"github.com/PetoAdam/homenavi/forecast-service/internal/forecast"

	"github.com/google/uuid"
)

// Factory builds the controller for a new session. id is the session id.
type Factory func(id string) *forecast.Controller

type entry struct {
	ctrl      *forecast.Controller
	expiresAt time.Time
}

// Store keeps one forecast controller per client session. Sessions expire after
// ttl without access and are removed by Sweep.
type Store struct {
	mu      sync.RWMutex
	items   map[string]*entry
	ttl     time.Duration
	factory Factory
	now     func() time.Time
	onEvict func(id string)
}

func New(ttl time.Duration, factory Factory) *Store {
	return &Store{items: make(map[string]*entry), ttl: ttl, factory: factory, now: time.Now}
}

// OnEvict registers fn to run for every session removed by Delete or Sweep.
func (s *Store) OnEvict(fn func(id string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEvict = fn
}

func (s *Store) Create() (string, *forecast.Controller) {
	id := uuid.NewString()
	ctrl := s.factory(id)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[id] = &entry{ctrl: ctrl, expiresAt: s.now().Add(s.ttl)}
	return id, ctrl
}

// Get returns the session's controller and extends its lifetime.
func (s *Store) Get(id string) (*forecast.Controller, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[id]
	if !ok || s.now().After(e.expiresAt) {
		return nil, false
	}
	e.expiresAt = s.now().Add(s.ttl)
	return e.ctrl, true
}

func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	_, ok := s.items[id]
	delete(s.items, id)
	evict := s.onEvict
	s.mu.Unlock()

	if ok && evict != nil {
		evict(id)
	}
	return ok
}

// Sweep drops expired sessions and returns how many were removed.
func (s *Store) Sweep() int {
	now := s.now()
	var expired []string

	s.mu.Lock()
	for id, e := range s.items {
		if now.After(e.expiresAt) {
			delete(s.items, id)
			expired = append(expired, id)
		}
	}
	evict := s.onEvict
	s.mu.Unlock()

	if evict != nil {
		for _, id := range expired {
			evict(id)
		}
	}
	return len(expired)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
