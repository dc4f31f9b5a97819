package session

import (
	"context"
	"sync"
)

type MemoryStore struct {
	mu     sync.Mutex
	states map[int64]State
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[int64]State)}
}

func (m *MemoryStore) Get(_ context.Context, userID int64) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[userID], nil
}

func (m *MemoryStore) Set(_ context.Context, userID int64, state State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := checkTransition(m.states[userID].Step, state.Step); err != nil {
		return err
	}
	if state.Step == StepNone {
		delete(m.states, userID)
		return nil
	}
	m.states[userID] = state
	return nil
}

func (m *MemoryStore) Clear(_ context.Context, userID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, userID)
	return nil
}
