package gaze

import (
	"sync"
	"sync/atomic"
)

// Handler is called when a watched subject changes.
// changed is the subject that fired: a watched Source, a watched Watcher
// cascading its own update, or the watcher itself after its watchers have
// been told.
type Handler func(changed Observable)

// Watcher subscribes to subjects and reacts to their notifications.
//
// A Watcher is itself a Subject: when it is notified it cascades the
// update to its own watchers (passing itself as the changed subject) and
// then runs its own handler with itself as the changed subject.
//
// Types that want to react to updates typically embed *Watcher:
//
//	type Label struct {
//	    *gaze.Watcher
//	    text *gaze.Source[string]
//	}
//
//	l := &Label{}
//	l.Watcher = gaze.NewWatcher(l.updated)
//	l.text = gaze.WatchAssign(l.Watcher, gaze.NewSource("hi", nil))
type Watcher struct {
	Subject

	handler Handler

	// subjects are the subjects this watcher is registered on.
	subjects []Observable

	// mu protects subjects and serialises edge changes for this watcher.
	// Lock order is always Watcher.mu before Subject.mu.
	mu sync.Mutex

	closed atomic.Bool
}

// NewWatcher creates a watcher that calls h on every update.
// A nil handler ignores updates but still cascades them.
func NewWatcher(h Handler) *Watcher {
	return &Watcher{handler: h}
}

// Observe creates a watcher with handler h and subscribes it to subjects.
func Observe(h Handler, subjects ...Observable) *Watcher {
	w := NewWatcher(h)
	for _, s := range subjects {
		w.Watch(s)
	}
	return w
}

func (w *Watcher) subject() *Subject {
	if w == nil {
		return nil
	}
	return &w.Subject
}

// Watch subscribes the watcher to subj.
// Watching nil, the watcher itself, or an already watched subject is a
// no-op, as is watching after Close.
func (w *Watcher) Watch(subj Observable) {
	base := baseOf(subj)
	if base == nil || base == &w.Subject {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed.Load() || w.indexOf(base) >= 0 {
		return
	}

	base.addWatcher(w)
	w.subjects = append(w.subjects, subj)
}

// WatchAssign subscribes w to subj and returns subj, so a field can be
// initialised and watched in one expression.
func WatchAssign[S Observable](w *Watcher, subj S) S {
	w.Watch(subj)
	return subj
}

// Unwatch removes the subscription to subj at both ends.
func (w *Watcher) Unwatch(subj Observable) {
	base := baseOf(subj)
	if base == nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	base.removeWatcher(w)
	if i := w.indexOf(base); i >= 0 {
		w.subjects = append(w.subjects[:i], w.subjects[i+1:]...)
	}
}

// Close unsubscribes from every subject and stops delivery to the handler.
// Close does not notify the watcher's own watchers. It is safe to call
// more than once and from inside a handler.
func (w *Watcher) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed.Swap(true) {
		return
	}

	for _, subj := range w.subjects {
		baseOf(subj).removeWatcher(w)
	}
	w.subjects = nil
}

// Closed reports whether Close has been called.
func (w *Watcher) Closed() bool {
	return w.closed.Load()
}

// Subjects returns a copy of the subjects this watcher is subscribed to,
// in subscription order.
func (w *Watcher) Subjects() []Observable {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]Observable, len(w.subjects))
	copy(out, w.subjects)
	return out
}

// SubjectCount returns the number of subjects this watcher is subscribed to.
func (w *Watcher) SubjectCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.subjects)
}

// Watching reports whether the watcher is subscribed to subj.
func (w *Watcher) Watching(subj Observable) bool {
	base := baseOf(subj)
	if base == nil {
		return false
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.indexOf(base) >= 0
}

// indexOf must be called with w.mu held.
func (w *Watcher) indexOf(base *Subject) int {
	for i, s := range w.subjects {
		if s.subject() == base {
			return i
		}
	}
	return -1
}

// subjectUpdated is called by a subject this watcher is registered on.
func (w *Watcher) subjectUpdated(changed Observable) {
	if w.closed.Load() {
		return
	}
	w.handle(changed)
	w.cascade()
}

// cascade notifies this watcher's own watchers, then the watcher itself.
func (w *Watcher) cascade() {
	w.Subject.notifyWatchers(w)
	if w.closed.Load() {
		return
	}
	w.handle(w)
}

func (w *Watcher) handle(changed Observable) {
	if w.handler != nil {
		w.handler(changed)
	}
}
