// Package gaze provides a minimal subject/watcher framework.
//
// # Core Types
//
// Source[T] wraps a value and notifies watchers on every Set:
//
//	count := gaze.NewSource(0, nil)
//	count.Set(5)      // notifies, even if the value did not change
//	v := count.Get()  // 5
//
// Watcher subscribes to subjects and runs a handler when one changes:
//
//	w := gaze.NewWatcher(func(changed gaze.Observable) {
//	    if gaze.Same(changed, count) {
//	        fmt.Println("count is", count.Get())
//	    }
//	})
//	w.Watch(count)
//	defer w.Close()
//
// # Cascading
//
// A Watcher is also a Subject. After its handler runs for an update, it
// notifies its own watchers with itself as the changed subject, then runs
// its own handler once more with itself as the changed subject. Chains of
// watchers therefore propagate an update from a Source to every watcher
// downstream of it. Cycles between watchers recurse without bound and
// must be avoided by the caller.
//
// # Thread Safety
//
// Subscription lists are guarded per instance and may be changed from any
// goroutine. Notification is synchronous on the goroutine that called Set.
// No lock is held while handlers run, so a handler may Watch, Unwatch or
// Close, including on the subject currently notifying. A handler that is
// removed during a notification pass may still be called once for that
// pass unless its watcher has been closed.
package gaze
