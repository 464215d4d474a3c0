package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/vango-dev/gaze/pkg/catalog"
	"github.com/vango-dev/gaze/pkg/gaze"
)

func TestCollectorCountsUpdates(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(WithRegistry(reg), WithNamespace("test"))
	defer c.Close()

	src := gaze.NewSource(0, nil)
	c.Track("count", src)

	src.Set(1)
	src.Set(1)
	src.Set(2)

	if got := testutil.ToFloat64(c.updatesTotal.WithLabelValues("count")); got != 3 {
		t.Errorf("updates_total = %v, want 3", got)
	}
	if got := testutil.ToFloat64(c.trackedSubjects); got != 1 {
		t.Errorf("tracked_subjects = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.watchers.WithLabelValues("count")); got != 1 {
		t.Errorf("watchers = %v, want 1", got)
	}
}

func TestCollectorTrackCatalog(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(WithRegistry(reg))
	defer c.Close()

	cat := catalog.New()
	a := catalog.MustRegister(cat, "a", gaze.NewSource(0, nil))
	b := catalog.MustRegister(cat, "b", gaze.NewSource("", nil))
	c.TrackCatalog(cat)

	a.Set(1)
	b.Set("x")
	b.Set("y")

	if got := testutil.ToFloat64(c.updatesTotal.WithLabelValues("a")); got != 1 {
		t.Errorf("a updates = %v, want 1", got)
	}
	if got := testutil.ToFloat64(c.updatesTotal.WithLabelValues("b")); got != 2 {
		t.Errorf("b updates = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.trackedSubjects); got != 2 {
		t.Errorf("tracked_subjects = %v, want 2", got)
	}
}

func TestCollectorUntrack(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(WithRegistry(reg))
	defer c.Close()

	src := gaze.NewSource(0, nil)
	c.Track("count", src)
	c.Untrack(src)

	if src.HasWatcher(c.Watcher) {
		t.Error("collector still watching after Untrack")
	}
	if got := testutil.ToFloat64(c.trackedSubjects); got != 0 {
		t.Errorf("tracked_subjects = %v, want 0", got)
	}

	src.Set(5)
	if n := testutil.CollectAndCount(c.updatesTotal); n != 0 {
		t.Errorf("updates_total series = %d, want 0", n)
	}
}

func TestSetObservesCascadeDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(WithRegistry(reg))
	defer c.Close()

	src := gaze.NewSource(0, nil)
	c.Track("count", src)

	Set(c, src, 9)

	if src.Get() != 9 {
		t.Errorf("Get() = %d, want 9", src.Get())
	}
	if n := testutil.CollectAndCount(c.cascadeDuration); n != 1 {
		t.Errorf("cascade_duration series = %d, want 1", n)
	}
}

func TestCloseDetaches(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(WithRegistry(reg))

	src := gaze.NewSource(0, nil)
	c.Track("count", src)
	c.Close()

	if src.WatcherCount() != 0 {
		t.Errorf("WatcherCount = %d, want 0", src.WatcherCount())
	}
}

func TestObserveSetRecordsTrackedOnly(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(WithRegistry(reg))
	defer c.Close()

	tracked := gaze.NewSource(0, nil)
	c.Track("count", tracked)

	c.ObserveSet(tracked, 2*time.Millisecond)
	c.ObserveSet(gaze.NewSource(0, nil), time.Millisecond)

	if n := testutil.CollectAndCount(c.cascadeDuration); n != 1 {
		t.Errorf("cascade_duration series = %d, want 1", n)
	}
}
