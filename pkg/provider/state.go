package provider

import (
	"sync"
	"time"
)

// stateStore holds one-time OAuth state tokens for CSRF protection.
// Consuming a state removes it, so a replayed callback URL fails.
type stateStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	states map[string]time.Time
}

func newStateStore(ttl time.Duration) *stateStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &stateStore{
		ttl:    ttl,
		states: make(map[string]time.Time),
	}
}

func (s *stateStore) put(state string) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	// Piggyback expired-entry cleanup on writes; the map stays small.
	for k, exp := range s.states {
		if now.After(exp) {
			delete(s.states, k)
		}
	}
	s.states[state] = now.Add(s.ttl)
}

func (s *stateStore) consume(state string) bool {
	if state == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.states[state]
	if !ok {
		return false
	}
	delete(s.states, state)
	return time.Now().Before(exp)
}
