// internal/app/system/ratelimit/memory.go
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a process-local Store. It is not shared between processes,
// so production deployments use RedisStore; MemoryStore backs tests and
// single-process tooling.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

type window struct {
	count        int
	expiresAt    time.Time
	blockedUntil time.Time
}

// NewMemoryStore creates an empty store. A nil clock means time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		windows: make(map[string]*window),
		now:     now,
	}
}

// Consume implements Store.
func (m *MemoryStore) Consume(_ context.Context, key string, p Policy) (Usage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	w, exists := m.windows[key]

	if exists && now.Before(w.blockedUntil) {
		return Usage{Consumed: w.count, ResetIn: w.blockedUntil.Sub(now), Blocked: true}, nil
	}

	// If no window exists or window expired, start a new one
	if !exists || !now.Before(w.expiresAt) {
		w = &window{expiresAt: now.Add(p.Window)}
		m.windows[key] = w
	}

	w.count++
	if w.count > p.Points && p.Block > 0 {
		w.blockedUntil = now.Add(p.Block)
		return Usage{Consumed: w.count, ResetIn: p.Block, Blocked: true}, nil
	}
	return Usage{Consumed: w.count, ResetIn: w.expiresAt.Sub(now)}, nil
}

// Peek implements Store.
func (m *MemoryStore) Peek(_ context.Context, key string) (Usage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	w, exists := m.windows[key]
	if !exists {
		return Usage{}, nil
	}
	if now.Before(w.blockedUntil) {
		return Usage{Consumed: w.count, ResetIn: w.blockedUntil.Sub(now), Blocked: true}, nil
	}
	if !now.Before(w.expiresAt) {
		return Usage{}, nil
	}
	return Usage{Consumed: w.count, ResetIn: w.expiresAt.Sub(now)}, nil
}

// Reset implements Store.
func (m *MemoryStore) Reset(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.windows, key)
	return nil
}

// Sweep removes entries whose window and block have both passed.
func (m *MemoryStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for key, w := range m.windows {
		if !now.Before(w.expiresAt) && !now.Before(w.blockedUntil) {
			delete(m.windows, key)
			removed++
		}
	}
	return removed
}
