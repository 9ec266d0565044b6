package blocklist

import (
	"context"
	"sync/atomic"
)

type snapshot struct {
	ids []string
	set map[string]struct{}
}

func newSnapshot(ids []string) *snapshot {
	s := &snapshot{
		ids: make([]string, len(ids)),
		set: make(map[string]struct{}, len(ids)),
	}
	copy(s.ids, ids)
	for _, id := range ids {
		s.set[id] = struct{}{}
	}
	return s
}

// MemoryStore is a process-local Store. The list is lost on restart.
type MemoryStore struct {
	current atomic.Pointer[snapshot]
}

// NewMemoryStore creates a MemoryStore seeded with ids.
func NewMemoryStore(ids ...string) *MemoryStore {
	s := &MemoryStore{}
	s.current.Store(newSnapshot(ids))
	return s
}

// IsBlocked reports whether id is on the current snapshot.
func (s *MemoryStore) IsBlocked(_ context.Context, id string) (bool, error) {
	_, ok := s.current.Load().set[id]
	return ok, nil
}

// Replace installs a new snapshot.
func (s *MemoryStore) Replace(_ context.Context, ids []string) error {
	s.current.Store(newSnapshot(ids))
	return nil
}

// List returns a copy of the current snapshot.
func (s *MemoryStore) List(_ context.Context) ([]string, error) {
	snap := s.current.Load()
	out := make([]string, len(snap.ids))
	copy(out, snap.ids)
	return out, nil
}
