// Package metrics exports Prometheus metrics about gaze subjects.
//
// A Collector is a gaze watcher: tracking a subject subscribes the
// collector to it, and every notification is counted.
//
//	c := metrics.New(metrics.WithNamespace("myapp"))
//	c.TrackCatalog(cat)
//	http.Handle("/metrics", promhttp.Handler())
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vango-dev/gaze/pkg/catalog"
	"github.com/vango-dev/gaze/pkg/gaze"
)

// Config configures the collector.
type Config struct {
	// Namespace is the metrics namespace (default: "gaze").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for cascade duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the collector.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "gaze",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Collector counts notifications of tracked subjects.
type Collector struct {
	*gaze.Watcher

	updatesTotal    *prometheus.CounterVec
	watchers        *prometheus.GaugeVec
	trackedSubjects prometheus.Gauge
	cascadeDuration *prometheus.HistogramVec

	// labels maps tracked subjects to their label value.
	labels map[gaze.Observable]string
	mu     sync.RWMutex
}

// New creates a collector and registers its metrics.
// Registration panics if the metrics are already registered on the
// configured registry.
func New(opts ...Option) *Collector {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(config.Registry)

	c := &Collector{
		labels: make(map[gaze.Observable]string),

		updatesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "updates_total",
			Help:        "Total number of notifications fired by tracked subjects",
			ConstLabels: config.ConstLabels,
		}, []string{"subject"}),

		watchers: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "watchers",
			Help:        "Number of watchers registered on a tracked subject",
			ConstLabels: config.ConstLabels,
		}, []string{"subject"}),

		trackedSubjects: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "tracked_subjects",
			Help:        "Number of subjects tracked by the collector",
			ConstLabels: config.ConstLabels,
		}),

		cascadeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "cascade_duration_seconds",
			Help:        "Time spent delivering a set to all watchers, in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"subject"}),
	}
	c.Watcher = gaze.NewWatcher(c.updated)
	return c
}

// Track subscribes the collector to subj, labelling its series with name.
// Tracking an already tracked subject updates its label.
func (c *Collector) Track(name string, subj gaze.Observable) {
	if subj == nil {
		return
	}

	c.mu.Lock()
	if _, ok := c.labels[subj]; !ok {
		c.trackedSubjects.Inc()
	}
	c.labels[subj] = name
	c.mu.Unlock()

	c.Watch(subj)
	c.refreshWatchers(name, subj)
}

// TrackCatalog tracks every entry in cat under its registered name.
func (c *Collector) TrackCatalog(cat *catalog.Catalog) {
	for _, e := range cat.Entries() {
		c.Track(e.Name(), e.Subject())
	}
}

// Untrack unsubscribes from subj and drops its series.
func (c *Collector) Untrack(subj gaze.Observable) {
	c.mu.Lock()
	name, ok := c.labels[subj]
	if ok {
		delete(c.labels, subj)
		c.trackedSubjects.Dec()
	}
	c.mu.Unlock()

	if !ok {
		return
	}
	c.Unwatch(subj)
	c.updatesTotal.DeleteLabelValues(name)
	c.watchers.DeleteLabelValues(name)
	c.cascadeDuration.DeleteLabelValues(name)
}

// Close untracks every subject and closes the underlying watcher.
func (c *Collector) Close() {
	c.mu.RLock()
	subjects := make([]gaze.Observable, 0, len(c.labels))
	for s := range c.labels {
		subjects = append(subjects, s)
	}
	c.mu.RUnlock()

	for _, s := range subjects {
		c.Untrack(s)
	}
	c.Watcher.Close()
}

// Set sets src and records how long its watchers took to run.
func Set[T any](c *Collector, src *gaze.Source[T], value T) {
	start := time.Now()
	src.Set(value)
	c.ObserveSet(src, time.Since(start))
}

// ObserveSet records d as the cascade duration of a tracked subject.
// Untracked subjects are ignored. Its signature matches bridge.SetObserver.
func (c *Collector) ObserveSet(subj gaze.Observable, d time.Duration) {
	if name, ok := c.label(subj); ok {
		c.cascadeDuration.WithLabelValues(name).Observe(d.Seconds())
	}
}

func (c *Collector) updated(changed gaze.Observable) {
	name, ok := c.label(changed)
	if !ok {
		return
	}
	c.updatesTotal.WithLabelValues(name).Inc()
	c.refreshWatchers(name, changed)
}

// label resolves the tracked label for subj.
// Map lookup covers the common case; Same covers embedding wrappers.
func (c *Collector) label(subj gaze.Observable) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if name, ok := c.labels[subj]; ok {
		return name, true
	}
	for s, name := range c.labels {
		if gaze.Same(s, subj) {
			return name, true
		}
	}
	return "", false
}

func (c *Collector) refreshWatchers(name string, subj gaze.Observable) {
	if counter, ok := subj.(interface{ WatcherCount() int }); ok {
		c.watchers.WithLabelValues(name).Set(float64(counter.WatcherCount()))
	}
}
