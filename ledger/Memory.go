/*
File Name:  Memory.go

MemoryStore is an in-process ledger backend for tests, adapted from the
reference core's store.MemoryStore. The CLI does not use it: with no
ledger path configured it runs with no ledger at all.
*/

package ledger

import (
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is a non-durable Store backed by a map.
type MemoryStore struct {
	mutex   sync.Mutex
	records map[uuid.UUID]Record
}

// NewMemoryStore returns an empty in-memory ledger.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[uuid.UUID]Record)}
}

func (s *MemoryStore) Put(record Record) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.records[record.ID] = record
	return nil
}

func (s *MemoryStore) Get(id uuid.UUID) (Record, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	r, found := s.records[id]
	return r, found
}

func (s *MemoryStore) List() ([]Record, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	out := make([]Record, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
