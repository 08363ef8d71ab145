package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// InMemoryStore provides an in-memory Recorder for tests and local runs
type InMemoryStore struct {
	turns []*Turn
	mutex sync.RWMutex
}

// NewInMemoryStore creates a new in-memory ledger
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// Record stores a copy of turn
func (s *InMemoryStore) Record(ctx context.Context, turn *Turn) error {
	if turn.SessionID == "" {
		return fmt.Errorf("session_id cannot be empty")
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, existing := range s.turns {
		if existing.SessionID == turn.SessionID {
			return fmt.Errorf("turn for session '%s' already recorded", turn.SessionID)
		}
	}

	stored := *turn
	s.turns = append(s.turns, &stored)

	return nil
}

// Recent returns up to limit turns, newest first
func (s *InMemoryStore) Recent(ctx context.Context, limit int) ([]*Turn, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	// Walk backwards so later inserts win ties on CreatedAt
	turns := make([]*Turn, 0, len(s.turns))
	for i := len(s.turns) - 1; i >= 0; i-- {
		copied := *s.turns[i]
		turns = append(turns, &copied)
	}

	sort.SliceStable(turns, func(i, j int) bool {
		return turns[i].CreatedAt.After(turns[j].CreatedAt)
	})

	if limit = ClampLimit(limit); len(turns) > limit {
		turns = turns[:limit]
	}

	return turns, nil
}

// Close is a no-op
func (s *InMemoryStore) Close() error {
	return nil
}
