// Package keylock provides mutual exclusion keyed by string, such as user ids.
package keylock

import (
	"slices"
	"sync"
)

// Set hands out one mutex per key. Entries are created on demand and dropped
// once no caller holds or waits for them.
type Set struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// New constructs an empty Set.
func New() *Set {
	return &Set{locks: make(map[string]*entry)}
}

// Lock acquires the lock of every distinct key and returns the function that
// releases them. Keys are always taken in ascending order, so callers locking
// overlapping key sets cannot deadlock.
func (s *Set) Lock(keys ...string) (unlock func()) {
	sorted := slices.Clone(keys)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	held := make([]*entry, 0, len(sorted))
	for _, key := range sorted {
		e := s.acquire(key)
		e.mu.Lock()
		held = append(held, e)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].mu.Unlock()
			s.release(sorted[i])
		}
	}
}

// Len returns the number of keys currently held or awaited.
func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.locks)
}

func (s *Set) acquire(key string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.locks[key]
	if !ok {
		e = &entry{}
		s.locks[key] = e
	}
	e.refs++
	return e
}

func (s *Set) release(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.locks[key]
	e.refs--
	if e.refs == 0 {
		delete(s.locks, key)
	}
}
