package gaze

import "sync"

// Source is a subject wrapping a single value.
// Every Set notifies watchers, including sets of an equal value.
//
// The zero value is an empty source holding T's zero value; it never
// notifies until the first Set.
type Source[T any] struct {
	Subject

	value T

	// mu protects value. It is never held while watchers run.
	mu sync.RWMutex
}

// NewSource creates a source holding initial.
// If owner is non-nil it is subscribed before the initial value is set,
// so it receives the initial value as an ordinary update.
func NewSource[T any](initial T, owner *Watcher) *Source[T] {
	s := &Source[T]{}
	if owner != nil {
		owner.Watch(s)
	}
	s.Set(initial)
	return s
}

func (s *Source[T]) subject() *Subject {
	if s == nil {
		return nil
	}
	return &s.Subject
}

// Get returns the current value.
func (s *Source[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set replaces the value and notifies watchers synchronously.
func (s *Source[T]) Set(value T) {
	s.mu.Lock()
	s.value = value
	s.mu.Unlock()

	s.notifyWatchers(s)
}

// Update atomically reads and replaces the value, then notifies once.
func (s *Source[T]) Update(fn func(T) T) {
	s.mu.Lock()
	s.value = fn(s.value)
	s.mu.Unlock()

	s.notifyWatchers(s)
}
