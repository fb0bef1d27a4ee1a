package registry

import (
	"context"
	"sync"
	"time"
)

// MemoryRegistry is an in-process Registry for development and tests.
// Expired entries are evicted lazily on access.
type MemoryRegistry struct {
	mu      sync.Mutex
	entries map[string]time.Time // token -> expiry
	now     func() time.Time
}

var _ Registry = (*MemoryRegistry)(nil)

// NewMemory creates an empty in-memory registry.
func NewMemory() *MemoryRegistry {
	return &MemoryRegistry{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Register inserts the token only if absent, expiring after ttl.
func (m *MemoryRegistry) Register(_ context.Context, token string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if exp, ok := m.entries[token]; ok && m.now().Before(exp) {
		return ErrDuplicateToken
	}
	m.entries[token] = m.now().Add(ttl)
	return nil
}

// Exists reports whether the token is registered and not yet expired.
func (m *MemoryRegistry) Exists(_ context.Context, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	exp, ok := m.entries[token]
	if !ok {
		return false, nil
	}
	if !m.now().Before(exp) {
		delete(m.entries, token)
		return false, nil
	}
	return true, nil
}

// Revoke deletes the token.
func (m *MemoryRegistry) Revoke(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, token)
	return nil
}

// Close is a no-op for the in-memory registry.
func (m *MemoryRegistry) Close() error {
	return nil
}
