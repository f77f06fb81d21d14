package sessionstore

import (
	"sync"
	"time"
)

type entry struct {
	store    *Store
	lastSeen time.Time
}

// Manager hands out one Store per visitor session id.
type Manager struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{
		entries: make(map[string]*entry),
	}
}

// GetOrCreate returns the Store for sid, creating it on first use.
func (m *Manager) GetOrCreate(sid string) *Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[sid]
	if !ok {
		e = &entry{store: New()}
		m.entries[sid] = e
	}
	e.lastSeen = time.Now()
	return e.store
}

// Get returns the Store for sid if one exists.
func (m *Manager) Get(sid string) (*Store, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[sid]
	if !ok {
		return nil, false
	}
	e.lastSeen = time.Now()
	return e.store, true
}

// Delete drops the Store for sid.
func (m *Manager) Delete(sid string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, sid)
}

// PurgeIdle drops stores not touched within maxIdle and returns how many
// were dropped.
func (m *Manager) PurgeIdle(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for sid, e := range m.entries {
		if e.lastSeen.Before(cutoff) {
			delete(m.entries, sid)
			n++
		}
	}
	return n
}

// Len returns the number of live stores.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
