package sequence

import (
	"context"
	"sync"
)

// MemoryCounterStore keeps counters for the life of the process.
type MemoryCounterStore struct {
	mu       sync.Mutex
	counters Counters
}

func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{counters: Counters{}}
}

func (s *MemoryCounterStore) Load(_ context.Context) (Counters, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Counters{}.Merge(s.counters), nil
}

func (s *MemoryCounterStore) Save(_ context.Context, counters Counters) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters = s.counters.Merge(counters)
	return nil
}
