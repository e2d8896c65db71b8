// Package calllog records method invocations for provider mocks.
package calllog

import "sync"

// Entry is a recorded call that knows its method name.
type Entry interface {
	CallName() string
}

// Log is a concurrency-safe call history. The zero value is ready to use.
type Log[E Entry] struct {
	mu      sync.Mutex
	entries []E
}

// Add appends e.
func (l *Log[E]) Add(e E) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
}

// All returns a copy of the history, oldest first.
func (l *Log[E]) All() []E {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]E, len(l.entries))
	copy(out, l.entries)
	return out
}

// Count returns how many calls were made to method.
func (l *Log[E]) Count(method string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if e.CallName() == method {
			n++
		}
	}
	return n
}

// Last returns the most recent call, or nil.
func (l *Log[E]) Last() *E {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.entries) == 0 {
		return nil
	}
	e := l.entries[len(l.entries)-1]
	return &e
}

// Reset clears the history.
func (l *Log[E]) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}
