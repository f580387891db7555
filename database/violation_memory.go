package database

import (
	"context"
	"sync"

	"discord-automod/models"
)

// MemoryStore is a process-local backend, used for tests and for
// running without persistence.
type MemoryStore struct {
	mu      sync.Mutex
	records map[Key]models.ViolationRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[Key]models.ViolationRecord)}
}

func (s *MemoryStore) Driver() string { return DriverMemory }

func (s *MemoryStore) Load(_ context.Context, key Key) (models.ViolationRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	return rec.Clone(), ok, nil
}

func (s *MemoryStore) Save(_ context.Context, key Key, rec models.ViolationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key] = rec.Clone()
	return nil
}

func (s *MemoryStore) Keys(context.Context) ([]Key, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]Key, 0, len(s.records))
	for k := range s.records {
		keys = append(keys, k)
	}
	return keys, nil
}

func (s *MemoryStore) Close() error { return nil }
