// Package idxset provides the index-assigning container backing the routing
// registries: every stored value gets a process-unique uint32 handle that is
// never reused for the container's lifetime.
package idxset

import "sort"

// Set maps monotonically assigned indexes to values and supports reverse
// removal by value. It is confined to the goroutine owning the routing core
// and carries no locking.
type Set[T comparable] struct {
	byIndex map[uint32]T
	byValue map[T]uint32
	next    uint32
}

// New returns an empty set.
func New[T comparable]() *Set[T] {
	return &Set[T]{
		byIndex: make(map[uint32]T),
		byValue: make(map[T]uint32),
	}
}

// Put stores v and returns its assigned index. Storing the same value twice
// returns the existing index.
func (s *Set[T]) Put(v T) uint32 {
	if idx, ok := s.byValue[v]; ok {
		return idx
	}
	idx := s.next
	s.next++
	s.byIndex[idx] = v
	s.byValue[v] = idx
	return idx
}

// Get returns the value stored under idx.
func (s *Set[T]) Get(idx uint32) (T, bool) {
	v, ok := s.byIndex[idx]
	return v, ok
}

// IndexOf returns the index assigned to v.
func (s *Set[T]) IndexOf(v T) (uint32, bool) {
	idx, ok := s.byValue[v]
	return idx, ok
}

// RemoveByValue deletes v and reports whether it was present. Its index is
// retired, never reassigned.
func (s *Set[T]) RemoveByValue(v T) bool {
	idx, ok := s.byValue[v]
	if !ok {
		return false
	}
	delete(s.byValue, v)
	delete(s.byIndex, idx)
	return true
}

// Size returns the number of stored values.
func (s *Set[T]) Size() int {
	return len(s.byIndex)
}

// Each visits all entries in ascending index order; returning false from f
// stops the walk.
func (s *Set[T]) Each(f func(idx uint32, v T) bool) {
	indexes := make([]uint32, 0, len(s.byIndex))
	for idx := range s.byIndex {
		indexes = append(indexes, idx)
	}
	sort.Slice(indexes, func(i, j int) bool { return indexes[i] < indexes[j] })
	for _, idx := range indexes {
		if !f(idx, s.byIndex[idx]) {
			return
		}
	}
}
