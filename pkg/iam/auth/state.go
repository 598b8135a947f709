package auth

import (
	"context"
	"sync"
	"time"
)

// InMemoryStateManager keeps OAuth states in process memory. Suitable for a
// single instance or tests; use the Redis implementation otherwise.
type InMemoryStateManager struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	states map[string]stateEntry
}

type stateEntry struct {
	redirectTo string
	expiresAt  time.Time
}

func NewInMemoryStateManager(ttl time.Duration) *InMemoryStateManager {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &InMemoryStateManager{
		ttl:    ttl,
		now:    time.Now,
		states: make(map[string]stateEntry),
	}
}

func (m *InMemoryStateManager) Generate(_ context.Context, redirectTo string) (string, error) {
	state, err := NewSessionToken()
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for k, v := range m.states {
		if now.After(v.expiresAt) {
			delete(m.states, k)
		}
	}
	m.states[state] = stateEntry{redirectTo: redirectTo, expiresAt: now.Add(m.ttl)}
	return state, nil
}

func (m *InMemoryStateManager) Consume(_ context.Context, state string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.states[state]
	if !ok {
		return "", ErrInvalidState()
	}
	delete(m.states, state)

	if m.now().After(entry.expiresAt) {
		return "", ErrInvalidState().WithDetail("reason", "expired")
	}
	return entry.redirectTo, nil
}
