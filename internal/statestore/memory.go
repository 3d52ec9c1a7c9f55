package statestore

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// Memory is an in-process Store for single-process deployments and
// tests. Expired entries are dropped lazily on read.
type Memory struct {
	mutex   sync.RWMutex
	entries map[string]memoryEntry
}

func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
	}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mutex.RLock()
	entry, exists := m.entries[key]
	m.mutex.RUnlock()

	if !exists {
		return "", false, nil
	}

	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		m.mutex.Lock()
		// Re-check: a Set may have refreshed the entry meanwhile
		if current, ok := m.entries[key]; ok && current.expiresAt.Equal(entry.expiresAt) {
			delete(m.entries, key)
		}
		m.mutex.Unlock()
		return "", false, nil
	}

	return entry.value, true, nil
}

func (m *Memory) Set(_ context.Context, key, value string, ttl time.Duration) error {
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}

	m.mutex.Lock()
	m.entries[key] = entry
	m.mutex.Unlock()

	return nil
}

// Len reports the number of live entries, expired ones included until
// their next read.
func (m *Memory) Len() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.entries)
}
