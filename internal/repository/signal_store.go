package repository

import (
	"sync"

	"ChartSignal/internal/domain/models"
	domrepo "ChartSignal/internal/domain/repository"
)

const defaultRetention = 10

// MemorySignalStore keeps the most recent records, newest first.
// One writer (the capture controller) and any number of readers.
type MemorySignalStore struct {
	mu       sync.RWMutex
	records  []models.SignalRecord
	capacity int
}

func NewMemorySignalStore(capacity int) *MemorySignalStore {
	if capacity <= 0 {
		capacity = defaultRetention
	}
	return &MemorySignalStore{
		records:  make([]models.SignalRecord, 0, capacity),
		capacity: capacity,
	}
}

// Append inserts rec at the head and evicts the oldest record when full.
func (s *MemorySignalStore) Append(rec models.SignalRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.records) < s.capacity {
		s.records = append(s.records, models.SignalRecord{})
	}
	copy(s.records[1:], s.records[:len(s.records)-1])
	s.records[0] = rec
}

// List returns a copy; callers may keep it without holding any lock.
func (s *MemorySignalStore) List() []models.SignalRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.SignalRecord, len(s.records))
	copy(out, s.records)
	return out
}

func (s *MemorySignalStore) Get(id int64) (models.SignalRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if r.ID == id {
			return r, true
		}
	}
	return models.SignalRecord{}, false
}

func (s *MemorySignalStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func (s *MemorySignalStore) Capacity() int { return s.capacity }

var _ domrepo.SignalStore = (*MemorySignalStore)(nil)
