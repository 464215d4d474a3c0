// Package snapshot persists catalog sources to a Store whenever they change
// and restores them on startup.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vango-dev/gaze/pkg/catalog"
	"github.com/vango-dev/gaze/pkg/gaze"
)

// DefaultTimeout bounds a single store write triggered by an update.
const DefaultTimeout = 5 * time.Second

// Option configures a Snapshotter.
type Option func(*Snapshotter)

// WithPrefix sets the key prefix (e.g. "gaze/").
func WithPrefix(prefix string) Option {
	return func(s *Snapshotter) {
		s.prefix = prefix
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Snapshotter) {
		s.logger = logger
	}
}

// WithTimeout sets the per-write timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Snapshotter) {
		s.timeout = d
	}
}

// Snapshotter writes a source's value to the store each time it changes.
// Writes happen synchronously on the notifying goroutine; failures are
// logged and counted, never returned to the caller of Set.
type Snapshotter struct {
	*gaze.Watcher

	store   Store
	catalog *catalog.Catalog
	prefix  string
	timeout time.Duration
	logger  *slog.Logger

	// restoring holds the names of entries being restored, so their
	// notifications are not written straight back.
	restoring sync.Map

	writes   atomic.Int64
	failures atomic.Int64
}

// New creates a snapshotter watching every source currently in c.
func New(store Store, c *catalog.Catalog, opts ...Option) *Snapshotter {
	s := &Snapshotter{
		store:   store,
		catalog: c,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Watcher = gaze.NewWatcher(s.updated)
	c.WatchAll(s.Watcher)
	return s
}

// Key returns the store key for a source name.
func (s *Snapshotter) Key(name string) string {
	return s.prefix + name + ".json"
}

// Restore loads stored values into their sources. Sources without a stored
// value keep their current value. Restored values notify watchers but are
// not written back to the store.
func (s *Snapshotter) Restore(ctx context.Context) error {
	var errs []error
	for _, e := range s.catalog.Entries() {
		data, err := s.store.Get(ctx, s.Key(e.Name()))
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := s.restore(e, data); err != nil {
			errs = append(errs, fmt.Errorf("restore %s: %w", e.Name(), err))
			continue
		}
		s.logger.Debug("restored source", "source", e.Name())
	}
	return errors.Join(errs...)
}

func (s *Snapshotter) restore(e catalog.Entry, data []byte) error {
	s.restoring.Store(e.Name(), struct{}{})
	defer s.restoring.Delete(e.Name())
	return e.SetJSON(data)
}

// SaveAll writes every current value.
func (s *Snapshotter) SaveAll(ctx context.Context) error {
	var errs []error
	for _, e := range s.catalog.Entries() {
		if err := s.save(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Writes returns the number of successful writes.
func (s *Snapshotter) Writes() int64 {
	return s.writes.Load()
}

// Failures returns the number of failed writes.
func (s *Snapshotter) Failures() int64 {
	return s.failures.Load()
}

func (s *Snapshotter) updated(changed gaze.Observable) {
	e, ok := s.catalog.Find(changed)
	if !ok {
		return
	}
	if _, ok := s.restoring.Load(e.Name()); ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.save(ctx, e); err != nil {
		s.logger.Error("snapshot write failed", "source", e.Name(), "error", err)
	}
}

func (s *Snapshotter) save(ctx context.Context, e catalog.Entry) error {
	data, err := e.MarshalValue()
	if err != nil {
		s.failures.Add(1)
		return err
	}
	if err := s.store.Put(ctx, s.Key(e.Name()), data); err != nil {
		s.failures.Add(1)
		return err
	}
	s.writes.Add(1)
	return nil
}
