package gaze

import "sync"

// Observable is anything a Watcher can subscribe to.
//
// The interface is sealed: it is satisfied by *Subject, *Watcher,
// *Source[T], and any type that embeds one of them. Only this package can
// mutate a subject's watcher list.
type Observable interface {
	subject() *Subject
}

// Subject owns an ordered list of watchers and notifies them on change.
// The zero value is ready to use.
//
// A Subject does not own its watchers and does not detach them when it is
// dropped; watchers detach themselves in Unwatch and Close.
type Subject struct {
	// watchers are notified in registration order.
	watchers []*Watcher

	// mu protects the watchers slice.
	mu sync.Mutex
}

func (s *Subject) subject() *Subject {
	return s
}

// addWatcher appends w to the watcher list.
// Nil and already registered watchers are ignored.
func (s *Subject) addWatcher(w *Watcher) {
	if w == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.watchers {
		if existing == w {
			return
		}
	}
	s.watchers = append(s.watchers, w)
}

// removeWatcher removes w, keeping the remaining watchers in order.
func (s *Subject) removeWatcher(w *Watcher) {
	if w == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, existing := range s.watchers {
		if existing == w {
			s.watchers = append(s.watchers[:i], s.watchers[i+1:]...)
			return
		}
	}
}

// notifyWatchers delivers changed to every registered watcher.
// Uses copy-before-notify so handlers may watch, unwatch or close
// without deadlocking against this subject.
func (s *Subject) notifyWatchers(changed Observable) {
	s.mu.Lock()
	if len(s.watchers) == 0 {
		s.mu.Unlock()
		return
	}
	watchers := make([]*Watcher, len(s.watchers))
	copy(watchers, s.watchers)
	s.mu.Unlock()

	for _, w := range watchers {
		w.subjectUpdated(changed)
	}
}

// WatcherCount returns the number of watchers currently registered.
func (s *Subject) WatcherCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.watchers)
}

// HasWatcher reports whether w is registered on this subject.
func (s *Subject) HasWatcher(w *Watcher) bool {
	if w == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.watchers {
		if existing == w {
			return true
		}
	}
	return false
}

// Same reports whether a and b refer to the same underlying subject.
// A type embedding a Watcher or Source is the same subject as the
// embedded value.
func Same(a, b Observable) bool {
	sa, sb := baseOf(a), baseOf(b)
	return sa != nil && sa == sb
}

// baseOf unwraps an Observable, tolerating nil interfaces and nil pointers.
func baseOf(o Observable) *Subject {
	if o == nil {
		return nil
	}
	return o.subject()
}
