package audit

import (
	"context"
	"sync"
)

// MemoryLog keeps the trail in memory, for development and tests.
type MemoryLog struct {
	mu      sync.RWMutex
	entries []Entry
}

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

func (l *MemoryLog) Append(_ context.Context, e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
	return nil
}

func (l *MemoryLog) ByCall(_ context.Context, callID string) ([]Entry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Entry
	for _, e := range l.entries {
		if e.CallID == callID {
			out = append(out, e)
		}
	}
	return out, nil
}
