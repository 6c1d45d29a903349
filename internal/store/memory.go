package store

import (
	"maps"
	"sync"
)

// Memory is an in-memory store for testing.
type Memory struct {
	mu   sync.RWMutex
	data map[string]Session
}

// NewMemory creates a new in-memory store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]Session)}
}

// Load returns all stored sessions.
func (m *Memory) Load() ([]Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sessions := make([]Session, 0, len(m.data))
	for _, s := range m.data {
		s.Params = maps.Clone(s.Params)
		sessions = append(sessions, s)
	}
	return sessions, nil
}

// Put stores a session snapshot by SID.
func (m *Memory) Put(s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.Params = maps.Clone(s.Params)
	m.data[s.SID] = s
	return nil
}

// Delete removes a session by SID.
func (m *Memory) Delete(sid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, sid)
	return nil
}

// Close is a no-op for the memory store.
func (m *Memory) Close() error {
	return nil
}
