// Package catalog keeps named gaze sources so that transports, stores and
// collectors can address them without knowing their value types.
package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/vango-dev/gaze/pkg/gaze"
)

var (
	// ErrEmptyName is returned when registering a source without a name.
	ErrEmptyName = errors.New("catalog: empty source name")

	// ErrDuplicate is returned when a name is already registered.
	ErrDuplicate = errors.New("catalog: duplicate source name")

	// ErrNilSource is returned when registering a nil source.
	ErrNilSource = errors.New("catalog: nil source")

	// ErrNotFound is returned when a name is not registered.
	ErrNotFound = errors.New("catalog: source not found")

	// ErrNull is returned when a JSON null is set on a source whose type
	// cannot hold it.
	ErrNull = errors.New("catalog: null value")
)

// Entry is a type-erased view of a registered source.
type Entry interface {
	// Name returns the registered name.
	Name() string

	// Subject returns the underlying source for watching.
	Subject() gaze.Observable

	// MarshalValue encodes the current value as JSON.
	MarshalValue() (json.RawMessage, error)

	// SetJSON decodes raw into the source's value type and sets it.
	// The source is left untouched if decoding fails. A bare null is
	// rejected unless the value type is json.RawMessage or any.
	SetJSON(raw json.RawMessage) error
}

type entry[T any] struct {
	name string
	src  *gaze.Source[T]
}

func (e *entry[T]) Name() string             { return e.name }
func (e *entry[T]) Subject() gaze.Observable { return e.src }

func (e *entry[T]) MarshalValue() (json.RawMessage, error) {
	data, err := json.Marshal(e.src.Get())
	if err != nil {
		return nil, fmt.Errorf("catalog: encode %q: %w", e.name, err)
	}
	return data, nil
}

func (e *entry[T]) SetJSON(raw json.RawMessage) error {
	var v T
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		switch any(&v).(type) {
		case *json.RawMessage, *any:
		default:
			return fmt.Errorf("%w: %q", ErrNull, e.name)
		}
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("catalog: decode %q: %w", e.name, err)
	}
	e.src.Set(v)
	return nil
}

// Catalog is a concurrency-safe set of named sources.
type Catalog struct {
	entries map[string]Entry
	mu      sync.RWMutex
}

// New creates an empty catalog.
func New() *Catalog {
	return &Catalog{entries: make(map[string]Entry)}
}

// Register adds src under name.
func Register[T any](c *Catalog, name string, src *gaze.Source[T]) error {
	if name == "" {
		return ErrEmptyName
	}
	if src == nil {
		return ErrNilSource
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, name)
	}
	c.entries[name] = &entry[T]{name: name, src: src}
	return nil
}

// MustRegister is like Register but panics on error.
func MustRegister[T any](c *Catalog, name string, src *gaze.Source[T]) *gaze.Source[T] {
	if err := Register(c, name, src); err != nil {
		panic(err)
	}
	return src
}

// Lookup returns the entry registered under name.
func (c *Catalog) Lookup(name string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[name]
	return e, ok
}

// Find returns the entry whose source is subj.
func (c *Catalog) Find(subj gaze.Observable) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, e := range c.entries {
		if gaze.Same(e.Subject(), subj) {
			return e, true
		}
	}
	return nil, false
}

// Names returns the registered names in sorted order.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Entries returns all entries sorted by name.
func (c *Catalog) Entries() []Entry {
	names := c.Names()

	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Entry, 0, len(names))
	for _, name := range names {
		if e, ok := c.entries[name]; ok {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of registered sources.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Snapshot encodes every current value.
func (c *Catalog) Snapshot() (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, c.Len())
	for _, e := range c.Entries() {
		v, err := e.MarshalValue()
		if err != nil {
			return nil, err
		}
		out[e.Name()] = v
	}
	return out, nil
}

// SetJSON decodes raw into the source registered under name.
func (c *Catalog) SetJSON(name string, raw json.RawMessage) error {
	e, ok := c.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return e.SetJSON(raw)
}

// WatchAll subscribes w to every registered source.
func (c *Catalog) WatchAll(w *gaze.Watcher) {
	for _, e := range c.Entries() {
		w.Watch(e.Subject())
	}
}
