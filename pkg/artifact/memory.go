package artifact

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	data    []byte
	expires time.Time
}

// Memory is an in-process Store.
type Memory struct {
	mu      sync.Mutex
	entries map[Key]entry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemory creates an in-memory store. A zero ttl disables expiry.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		entries: make(map[Key]entry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Put stores a copy of data under key, replacing any previous value.
func (m *Memory) Put(ctx context.Context, key Key, data []byte) error {
	if err := key.Validate(); err != nil {
		return err
	}

	e := entry{data: append([]byte(nil), data...)}
	if m.ttl > 0 {
		e.expires = m.now().Add(m.ttl)
	}

	m.mu.Lock()
	m.entries[key] = e
	m.mu.Unlock()
	return nil
}

// Get returns a copy of the artifact.
func (m *Memory) Get(ctx context.Context, key Key) ([]byte, error) {
	m.mu.Lock()
	e, ok := m.entries[key]
	m.mu.Unlock()

	if !ok || e.expired(m.now()) {
		return nil, ErrNotFound
	}
	return append([]byte(nil), e.data...), nil
}

// Delete removes an artifact. Missing keys are not an error.
func (m *Memory) Delete(ctx context.Context, key Key) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// DeleteSession removes every artifact of sessionID.
func (m *Memory) DeleteSession(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.entries {
		if k.SessionID == sessionID {
			delete(m.entries, k)
		}
	}
	return nil
}

// Sweep removes entries that expired before now.
func (m *Memory) Sweep(ctx context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for k, e := range m.entries {
		if e.expired(now) {
			delete(m.entries, k)
			removed++
		}
	}
	return removed, nil
}

// Len returns the number of stored entries, expired or not.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Close drops all entries.
func (m *Memory) Close() error {
	m.mu.Lock()
	m.entries = make(map[Key]entry)
	m.mu.Unlock()
	return nil
}

func (e entry) expired(now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}

var _ Store = (*Memory)(nil)
