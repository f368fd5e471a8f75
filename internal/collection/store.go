// Package collection holds the in-memory record lists of a session and the
// derived query views computed over them.
package collection

import (
	"fmt"
	"sync"

	"rxstock/m/domain"
)

// Record is implemented by every record kind kept in a Store.
type Record[T any] interface {
	GetID() int64
	WithID(id int64) T
}

// Store is an insertion-ordered list of records of one kind, keyed by ID.
type Store[T Record[T]] struct {
	mu        sync.RWMutex
	records   []T
	version   uint64
	observers map[int]func(version uint64)
	nextObs   int
}

// NewStore returns a store holding a copy of records.
func NewStore[T Record[T]](records ...T) *Store[T] {
	return &Store[T]{
		records:   append([]T(nil), records...),
		observers: make(map[int]func(uint64)),
	}
}

// Insert assigns the next identifier (max existing + 1, or 1 when empty),
// appends the record and returns it as stored.
func (s *Store[T]) Insert(record T) T {
	s.mu.Lock()
	var max int64
	for _, r := range s.records {
		if id := r.GetID(); id > max {
			max = id
		}
	}
	stored := record.WithID(max + 1)
	s.records = append(s.records, stored)
	v := s.bump()
	s.mu.Unlock()

	s.notify(v)
	return stored
}

// Append adds a record whose identifier was assigned elsewhere.
func (s *Store[T]) Append(record T) error {
	s.mu.Lock()
	if s.indexOf(record.GetID()) >= 0 {
		s.mu.Unlock()
		return fmt.Errorf("appending record %d: %w", record.GetID(), domain.ErrDuplicateID)
	}
	s.records = append(s.records, record)
	v := s.bump()
	s.mu.Unlock()

	s.notify(v)
	return nil
}

// Update applies patch to the record with the given ID and stores the
// result. The patched record keeps its ID.
func (s *Store[T]) Update(id int64, patch func(T) T) (T, error) {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		var zero T
		return zero, fmt.Errorf("updating record %d: %w", id, domain.ErrNotFound)
	}
	updated := patch(s.records[i]).WithID(id)
	s.records[i] = updated
	v := s.bump()
	s.mu.Unlock()

	s.notify(v)
	return updated, nil
}

// Replace swaps in record for the stored record with the same ID.
func (s *Store[T]) Replace(record T) (T, error) {
	return s.Update(record.GetID(), func(T) T { return record })
}

// Remove deletes the record with the given ID and returns it together with
// the position it held.
func (s *Store[T]) Remove(id int64) (T, int, error) {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		var zero T
		return zero, -1, fmt.Errorf("removing record %d: %w", id, domain.ErrNotFound)
	}
	removed := s.records[i]
	s.records = append(s.records[:i:i], s.records[i+1:]...)
	v := s.bump()
	s.mu.Unlock()

	s.notify(v)
	return removed, i, nil
}

// Restore puts a removed record back at index, clamped to the list bounds.
func (s *Store[T]) Restore(record T, index int) error {
	s.mu.Lock()
	if s.indexOf(record.GetID()) >= 0 {
		s.mu.Unlock()
		return fmt.Errorf("restoring record %d: %w", record.GetID(), domain.ErrDuplicateID)
	}
	index = max(0, min(index, len(s.records)))
	s.records = append(s.records[:index:index], append([]T{record}, s.records[index:]...)...)
	v := s.bump()
	s.mu.Unlock()

	s.notify(v)
	return nil
}

// Reset replaces the whole collection, as when seeding a session.
func (s *Store[T]) Reset(records []T) {
	s.mu.Lock()
	s.records = append([]T(nil), records...)
	v := s.bump()
	s.mu.Unlock()

	s.notify(v)
}

// Get returns the record with the given ID.
func (s *Store[T]) Get(id int64) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.records[i], nil
	}
	var zero T
	return zero, fmt.Errorf("getting record %d: %w", id, domain.ErrNotFound)
}

// All returns a copy of the records in insertion order.
func (s *Store[T]) All() []T {
	records, _ := s.Snapshot()
	return records
}

// Snapshot returns a copy of the records together with the version they
// belong to.
func (s *Store[T]) Snapshot() ([]T, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]T(nil), s.records...), s.version
}

func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Version increases with every mutation.
func (s *Store[T]) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Subscribe registers fn to be called with the new version after every
// mutation. The returned func unregisters it.
func (s *Store[T]) Subscribe(fn func(version uint64)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.observers == nil {
		s.observers = make(map[int]func(uint64))
	}
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// bump must be called with mu held.
func (s *Store[T]) bump() uint64 {
	s.version++
	return s.version
}

func (s *Store[T]) notify(version uint64) {
	s.mu.RLock()
	observers := make([]func(uint64), 0, len(s.observers))
	for _, fn := range s.observers {
		observers = append(observers, fn)
	}
	s.mu.RUnlock()

	for _, fn := range observers {
		fn(version)
	}
}

func (s *Store[T]) indexOf(id int64) int {
	for i, r := range s.records {
		if r.GetID() == id {
			return i
		}
	}
	return -1
}
