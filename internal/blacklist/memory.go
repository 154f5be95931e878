package blacklist

import (
	"context"
	"sync"
	"time"
)

// Memory is a process-local Store. Entries are removed by a timer at expiry and also
// purged lazily on lookup. Contents do not survive a restart.
type Memory struct {
	mu      sync.Mutex
	entries map[string]*entry
	now     func() time.Time
	closed  bool
}

type entry struct {
	expiresAt time.Time
	timer     *time.Timer
}

// NewMemory creates an empty in-memory Store.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// Add implements Store.
func (m *Memory) Add(_ context.Context, token string, expiresAt time.Time) error {
	key := Key(token)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}

	if e, ok := m.entries[key]; ok {
		if !expiresAt.After(e.expiresAt) {
			return nil
		}

		e.timer.Stop()
	}

	e := &entry{expiresAt: expiresAt}
	e.timer = time.AfterFunc(expiresAt.Sub(m.now()), func() {
		m.remove(key, e)
	})
	m.entries[key] = e

	return nil
}

// Contains implements Store.
func (m *Memory) Contains(_ context.Context, token string) (bool, error) {
	key := Key(token)

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return false, nil
	}

	if !m.now().Before(e.expiresAt) {
		e.timer.Stop()
		delete(m.entries, key)

		return false, nil
	}

	return true, nil
}

// Len returns the number of entries currently held, including ones whose timer has not fired yet.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.entries)
}

// Close stops all pending timers and drops every entry.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key, e := range m.entries {
		e.timer.Stop()
		delete(m.entries, key)
	}

	m.closed = true

	return nil
}

func (m *Memory) remove(key string, e *entry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// a later Add may have replaced the entry
	if cur, ok := m.entries[key]; ok && cur == e {
		delete(m.entries, key)
	}
}
