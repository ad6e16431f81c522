package inmem

import (
	"sync"

	"github.com/smartpocket/console/core/session"
)

// Storage is an in-memory session.Storage for tests and ephemeral runs.
type Storage struct {
	mu    sync.RWMutex
	state session.StoredState
}

var _ session.Storage = (*Storage)(nil) // interface compliance check

func NewStorage() *Storage {
	return &Storage{}
}

func (s *Storage) Load() (session.StoredState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyState(s.state), nil
}

func (s *Storage) Save(state session.StoredState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = copyState(state)
	return nil
}

func (s *Storage) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = session.StoredState{}
	return nil
}

func copyState(state session.StoredState) session.StoredState {
	cp := state
	if state.Identity != nil {
		cp.Identity = append([]byte(nil), state.Identity...)
	}
	return cp
}
