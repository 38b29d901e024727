package reminder

import (
	"context"
	"sync"
)

// MarkerStore remembers which reminders went out. Implementations must be
// safe for concurrent use.
type MarkerStore interface {
	IsSent(ctx context.Context, key string) (bool, error)
	MarkSent(ctx context.Context, key string) error
	Clear(ctx context.Context) (int, error)
}

// MemoryMarkers is a process-local MarkerStore. It lives as long as the
// Cycle that owns it and only empties on Clear.
type MemoryMarkers struct {
	mu   sync.Mutex
	sent map[string]struct{}
}

func NewMemoryMarkers() *MemoryMarkers {
	return &MemoryMarkers{sent: make(map[string]struct{})}
}

func (m *MemoryMarkers) IsSent(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sent[key]
	return ok, nil
}

func (m *MemoryMarkers) MarkSent(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent[key] = struct{}{}
	return nil
}

func (m *MemoryMarkers) Clear(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.sent)
	m.sent = make(map[string]struct{})
	return n, nil
}

func (m *MemoryMarkers) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}
