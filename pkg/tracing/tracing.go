// Package tracing wraps gaze mutations in OpenTelemetry spans.
//
// Watchers run synchronously inside Set, so the span covers every handler
// and cascade triggered by the mutation.
//
// The tracer uses the global OpenTelemetry tracer provider unless
// WithTracerProvider is given. Configure it before use:
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
package tracing

import (
	"context"
	"encoding/json"

	"github.com/vango-dev/gaze/pkg/catalog"
	"github.com/vango-dev/gaze/pkg/gaze"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultTracerName is the instrumentation name used when none is set.
const DefaultTracerName = "gaze"

// SpanSet is the name of spans started around a source mutation.
const SpanSet = "gaze.set"

// Config configures a Tracer.
type Config struct {
	// TracerName is the instrumentation name (default: "gaze").
	TracerName string

	// Provider supplies the tracer. Default: otel.GetTracerProvider().
	Provider trace.TracerProvider

	// Attributes are added to every span.
	Attributes []attribute.KeyValue
}

// Option configures a Tracer.
type Option func(*Config)

// WithTracerName sets the tracer name.
func WithTracerName(name string) Option {
	return func(c *Config) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Config) {
		c.Provider = tp
	}
}

// WithAttributes adds attributes to every span.
func WithAttributes(attrs ...attribute.KeyValue) Option {
	return func(c *Config) {
		c.Attributes = append(c.Attributes, attrs...)
	}
}

// Tracer starts spans around gaze mutations.
type Tracer struct {
	tracer trace.Tracer
	attrs  []attribute.KeyValue
}

// New creates a Tracer.
func New(opts ...Option) *Tracer {
	config := Config{TracerName: DefaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}
	if config.Provider == nil {
		config.Provider = otel.GetTracerProvider()
	}
	return &Tracer{
		tracer: config.Provider.Tracer(config.TracerName),
		attrs:  config.Attributes,
	}
}

func (t *Tracer) start(ctx context.Context, name string, subj gaze.Observable) (context.Context, trace.Span) {
	attrs := append([]attribute.KeyValue{attribute.String("gaze.subject", name)}, t.attrs...)
	if counter, ok := subj.(interface{ WatcherCount() int }); ok {
		attrs = append(attrs, attribute.Int("gaze.watchers", counter.WatcherCount()))
	}
	return t.tracer.Start(ctx, SpanSet,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// Set sets src to value inside a span named after the source.
// A nil Tracer sets without tracing.
func Set[T any](ctx context.Context, t *Tracer, name string, src *gaze.Source[T], value T) {
	if t == nil {
		src.Set(value)
		return
	}
	_, span := t.start(ctx, name, src)
	defer span.End()

	src.Set(value)
}

// SetJSON decodes raw into entry inside a span. Decode failures are
// recorded on the span and returned.
func SetJSON(ctx context.Context, t *Tracer, e catalog.Entry, raw json.RawMessage) error {
	if t == nil {
		return e.SetJSON(raw)
	}
	_, span := t.start(ctx, e.Name(), e.Subject())
	defer span.End()

	if err := e.SetJSON(raw); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "")
	return nil
}
