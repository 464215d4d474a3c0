package catalog

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/vango-dev/gaze/pkg/gaze"
)

func TestRegisterErrors(t *testing.T) {
	c := New()

	if err := Register(c, "", gaze.NewSource(1, nil)); !errors.Is(err, ErrEmptyName) {
		t.Errorf("empty name: err = %v, want ErrEmptyName", err)
	}
	if err := Register[int](c, "n", nil); !errors.Is(err, ErrNilSource) {
		t.Errorf("nil source: err = %v, want ErrNilSource", err)
	}
	if err := Register(c, "n", gaze.NewSource(1, nil)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := Register(c, "n", gaze.NewSource("x", nil)); !errors.Is(err, ErrDuplicate) {
		t.Errorf("duplicate: err = %v, want ErrDuplicate", err)
	}
}

func TestNamesSorted(t *testing.T) {
	c := New()
	MustRegister(c, "b", gaze.NewSource(1, nil))
	MustRegister(c, "a", gaze.NewSource(2, nil))
	MustRegister(c, "c", gaze.NewSource(3, nil))

	names := c.Names()
	want := []string{"a", "b", "c"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("Names() = %v, want %v", names, want)
		}
	}
	if c.Len() != 3 {
		t.Errorf("Len() = %d, want 3", c.Len())
	}
}

func TestSetJSONNotifiesWatchers(t *testing.T) {
	c := New()
	src := MustRegister(c, "count", gaze.NewSource(0, nil))

	notified := 0
	w := gaze.Observe(func(changed gaze.Observable) {
		if gaze.Same(changed, src) {
			notified++
		}
	}, src)
	defer w.Close()

	if err := c.SetJSON("count", json.RawMessage(`12`)); err != nil {
		t.Fatalf("SetJSON: %v", err)
	}
	if src.Get() != 12 {
		t.Errorf("Get() = %d, want 12", src.Get())
	}
	if notified != 1 {
		t.Errorf("notified = %d, want 1", notified)
	}
}

func TestSetJSONBadInputLeavesValue(t *testing.T) {
	c := New()
	src := MustRegister(c, "count", gaze.NewSource(3, nil))

	if err := c.SetJSON("count", json.RawMessage(`"nope"`)); err == nil {
		t.Fatal("expected decode error")
	}
	if src.Get() != 3 {
		t.Errorf("Get() = %d, want 3", src.Get())
	}
	if err := c.SetJSON("missing", json.RawMessage(`1`)); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestFindAndSnapshot(t *testing.T) {
	type point struct {
		X int `json:"x"`
		Y int `json:"y"`
	}

	c := New()
	p := MustRegister(c, "point", gaze.NewSource(point{1, 2}, nil))
	MustRegister(c, "label", gaze.NewSource("hi", nil))

	e, ok := c.Find(p)
	if !ok || e.Name() != "point" {
		t.Fatalf("Find() = %v, %v", e, ok)
	}
	if _, ok := c.Find(gaze.NewSource(0, nil)); ok {
		t.Error("Find matched an unregistered source")
	}

	snap, err := c.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if string(snap["point"]) != `{"x":1,"y":2}` {
		t.Errorf("point = %s", snap["point"])
	}
	if string(snap["label"]) != `"hi"` {
		t.Errorf("label = %s", snap["label"])
	}
}

func TestWatchAll(t *testing.T) {
	c := New()
	a := MustRegister(c, "a", gaze.NewSource(0, nil))
	b := MustRegister(c, "b", gaze.NewSource("", nil))

	w := gaze.NewWatcher(nil)
	c.WatchAll(w)

	if !w.Watching(a) || !w.Watching(b) {
		t.Error("WatchAll missed a source")
	}
}

func TestSetJSONNull(t *testing.T) {
	c := New()
	count := MustRegister(c, "count", gaze.NewSource(7, nil))
	doc := MustRegister(c, "doc", gaze.NewSource(json.RawMessage(`{"a":1}`), nil))

	if err := c.SetJSON("count", json.RawMessage(" null ")); !errors.Is(err, ErrNull) {
		t.Errorf("err = %v, want ErrNull", err)
	}
	if count.Get() != 7 {
		t.Errorf("count = %d, want 7", count.Get())
	}

	if err := c.SetJSON("doc", json.RawMessage("null")); err != nil {
		t.Fatalf("SetJSON on raw source: %v", err)
	}
	if string(doc.Get()) != "null" {
		t.Errorf("doc = %s, want null", doc.Get())
	}
}
