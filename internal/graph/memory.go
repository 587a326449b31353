package graph

import (
	"context"
	"slices"
	"sync"
)

// MemorySet is an in-process EdgeSet. It keeps both directions indexed so
// follower and following lookups cost the same.
type MemorySet struct {
	mu  sync.RWMutex
	out map[string]map[string]struct{}
	in  map[string]map[string]struct{}
}

// NewMemorySet creates an empty MemorySet.
func NewMemorySet() *MemorySet {
	return &MemorySet{
		out: make(map[string]map[string]struct{}),
		in:  make(map[string]map[string]struct{}),
	}
}

func (s *MemorySet) Add(_ context.Context, a, b string) (bool, error) {
	if a == b {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.out[a][b]; ok {
		return false, nil
	}
	link(s.out, a, b)
	link(s.in, b, a)
	return true, nil
}

func (s *MemorySet) Remove(_ context.Context, a, b string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.out[a][b]; !ok {
		return false, nil
	}
	unlink(s.out, a, b)
	unlink(s.in, b, a)
	return true, nil
}

func (s *MemorySet) Has(_ context.Context, a, b string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.out[a][b]
	return ok, nil
}

func (s *MemorySet) Following(_ context.Context, a string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.out[a]), nil
}

func (s *MemorySet) Followers(_ context.Context, b string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.in[b]), nil
}

func (s *MemorySet) CountFollowing(_ context.Context, a string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.out[a]), nil
}

func (s *MemorySet) CountFollowers(_ context.Context, b string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.in[b]), nil
}

func link(idx map[string]map[string]struct{}, from, to string) {
	if idx[from] == nil {
		idx[from] = make(map[string]struct{})
	}
	idx[from][to] = struct{}{}
}

func unlink(idx map[string]map[string]struct{}, from, to string) {
	delete(idx[from], to)
	if len(idx[from]) == 0 {
		delete(idx, from)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

var _ EdgeSet = (*MemorySet)(nil)
