package calls

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and single-box development.
// It preserves the atomic conditional-transition contract: every Mark*
// checks and mutates under one lock, so two racing transitions on the same
// call resolve to exactly one winner.
type MemoryStore struct {
	mu    sync.Mutex
	calls map[string]Call
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{calls: make(map[string]Call)}
}

func (s *MemoryStore) Create(ctx context.Context, c Call) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[c.ID] = c
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Call, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.calls[id]
	if !ok {
		return Call{}, ErrNotFound
	}
	return c, nil
}

func (s *MemoryStore) MarkAnswered(ctx context.Context, id string, at time.Time) (Call, bool, error) {
	return s.transition(id, StatusRinging, func(c *Call) {
		c.Status = StatusAnswered
		t := at
		c.AnsweredAt = &t
	})
}

func (s *MemoryStore) MarkRejected(ctx context.Context, id string, at time.Time) (Call, bool, error) {
	return s.transition(id, StatusRinging, func(c *Call) {
		c.Status = StatusRejected
		t := at
		c.EndedAt = &t
	})
}

func (s *MemoryStore) MarkMissed(ctx context.Context, id string, at time.Time) (Call, bool, error) {
	return s.transition(id, StatusRinging, func(c *Call) {
		c.Status = StatusMissed
		t := at
		c.EndedAt = &t
	})
}

func (s *MemoryStore) MarkEnded(ctx context.Context, id string, at time.Time) (Call, bool, error) {
	return s.transition(id, StatusAnswered, func(c *Call) {
		c.Status = StatusEnded
		t := at
		c.EndedAt = &t
		d := int(t.Sub(*c.AnsweredAt) / time.Second)
		c.DurationSeconds = &d
	})
}

func (s *MemoryStore) transition(id string, expected CallStatus, apply func(*Call)) (Call, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.calls[id]
	if !ok || c.Status != expected {
		return Call{}, false, nil
	}
	apply(&c)
	s.calls[id] = c
	return c, true, nil
}

func (s *MemoryStore) ActiveFor(ctx context.Context, userID string) (Call, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		best  Call
		found bool
	)
	for _, c := range s.calls {
		if c.CallerID != userID && c.ReceiverID != userID {
			continue
		}
		if c.Status != StatusRinging && c.Status != StatusAnswered {
			continue
		}
		if !found || c.StartedAt.After(best.StartedAt) {
			best = c
			found = true
		}
	}
	return best, found, nil
}

func (s *MemoryStore) ListFor(ctx context.Context, userID string, limit int) ([]Call, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Call
	for _, c := range s.calls {
		if c.CallerID == userID || c.ReceiverID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) ListBetween(ctx context.Context, from, to time.Time) ([]Call, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Call
	for _, c := range s.calls {
		if !c.StartedAt.Before(from) && c.StartedAt.Before(to) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out, nil
}
