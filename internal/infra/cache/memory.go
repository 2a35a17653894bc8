package cache

import (
	"context"
	"sync"

	domain "github.com/bryanwahyu/audit-gateway/internal/domain/audit"
)

// MemoryStore is the fallback driver when no external store is
// configured. Partitions live for the process lifetime only.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[domain.Stage]domain.CacheEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[domain.Stage]domain.CacheEntry)}
}

func (s *MemoryStore) Load(ctx context.Context, level domain.Stage) (domain.CacheEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return copyEntry(s.entries[level]), nil
}

func (s *MemoryStore) Save(ctx context.Context, level domain.Stage, entry domain.CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[level] = copyEntry(entry)
	return nil
}

// copyEntry detaches the slice storage so callers can never mutate a
// stored entry through a returned one, or vice versa.
func copyEntry(entry domain.CacheEntry) domain.CacheEntry {
	out := entry
	if entry.Tasks != nil {
		out.Tasks = make([]domain.Task, len(entry.Tasks))
		copy(out.Tasks, entry.Tasks)
	}
	if entry.AssignedIDs != nil {
		out.AssignedIDs = make([]domain.TaskID, len(entry.AssignedIDs))
		copy(out.AssignedIDs, entry.AssignedIDs)
	}
	return out
}

func (s *MemoryStore) Clear(ctx context.Context, level domain.Stage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, level)
	return nil
}
