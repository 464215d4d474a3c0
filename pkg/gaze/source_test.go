package gaze

import "testing"

func TestSourceZeroValue(t *testing.T) {
	var s Source[string]
	if s.Get() != "" {
		t.Errorf("Get() = %q, want empty", s.Get())
	}
	if s.WatcherCount() != 0 {
		t.Errorf("WatcherCount = %d, want 0", s.WatcherCount())
	}
}

func TestSourceSetNotifiesOnce(t *testing.T) {
	rec := &recorder{}
	src := NewSource(0, nil)
	Observe(rec.handle, src)

	src.Set(5)

	if got := rec.count(src); got != 1 {
		t.Errorf("notified %d times with src, want 1", got)
	}
	if src.Get() != 5 {
		t.Errorf("Get() = %d, want 5", src.Get())
	}
}

func TestSourceSetEqualValueStillNotifies(t *testing.T) {
	rec := &recorder{}
	src := NewSource(0, nil)
	Observe(rec.handle, src)

	src.Set(5)
	src.Set(5)

	if got := rec.count(src); got != 2 {
		t.Errorf("notified %d times, want 2", got)
	}
}

func TestNewSourceNotifiesOwner(t *testing.T) {
	rec := &recorder{}
	owner := NewWatcher(rec.handle)

	var seen int
	owner.handler = func(changed Observable) {
		rec.handle(changed)
		if s, ok := changed.(*Source[int]); ok {
			seen = s.Get()
		}
	}

	src := NewSource(42, owner)

	if got := rec.count(src); got != 1 {
		t.Errorf("owner notified %d times, want 1", got)
	}
	if seen != 42 {
		t.Errorf("owner saw %d, want 42", seen)
	}
	if !owner.Watching(src) || !src.HasWatcher(owner) {
		t.Error("owner subscription is not bidirectional")
	}
}

func TestSourceUpdate(t *testing.T) {
	rec := &recorder{}
	src := NewSource(10, nil)
	Observe(rec.handle, src)

	src.Update(func(n int) int { return n * 2 })

	if src.Get() != 20 {
		t.Errorf("Get() = %d, want 20", src.Get())
	}
	if got := rec.count(src); got != 1 {
		t.Errorf("notified %d times, want 1", got)
	}
}

func TestSameThroughEmbedding(t *testing.T) {
	type named struct{ *Source[int] }
	src := NewSource(1, nil)
	n := named{src}

	if !Same(n, src) {
		t.Error("embedded source not Same as itself")
	}
	if Same(src, NewSource(1, nil)) {
		t.Error("distinct sources reported Same")
	}
	if Same(nil, nil) {
		t.Error("Same(nil, nil) = true")
	}
}
