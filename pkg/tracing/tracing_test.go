package tracing

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/vango-dev/gaze/pkg/catalog"
	"github.com/vango-dev/gaze/pkg/gaze"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type recordedSpan struct {
	noop.Span

	name   string
	attrs  []attribute.KeyValue
	status codes.Code
	errs   []error
	ended  bool
}

func (s *recordedSpan) End(...trace.SpanEndOption)          { s.ended = true }
func (s *recordedSpan) SetStatus(code codes.Code, _ string) { s.status = code }

func (s *recordedSpan) RecordError(err error, _ ...trace.EventOption) {
	s.errs = append(s.errs, err)
}

type recordingTracer struct {
	noop.Tracer
	p *recordingProvider
}

func (t recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	cfg := trace.NewSpanStartConfig(opts...)
	span := &recordedSpan{name: name, attrs: cfg.Attributes()}
	t.p.mu.Lock()
	t.p.spans = append(t.p.spans, span)
	t.p.mu.Unlock()
	return trace.ContextWithSpan(ctx, span), span
}

type recordingProvider struct {
	noop.TracerProvider
	mu    sync.Mutex
	spans []*recordedSpan
}

func (p *recordingProvider) Tracer(string, ...trace.TracerOption) trace.Tracer {
	return recordingTracer{p: p}
}

func attr(span *recordedSpan, key string) (attribute.Value, bool) {
	for _, kv := range span.attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestSetRecordsSpan(t *testing.T) {
	tp := &recordingProvider{}
	tr := New(WithTracerProvider(tp), WithAttributes(attribute.String("env", "test")))

	src := gaze.NewSource(0, nil)
	var spanDuringHandler int
	w := gaze.Observe(func(changed gaze.Observable) {
		if gaze.Same(changed, src) {
			tp.mu.Lock()
			spanDuringHandler = len(tp.spans)
			tp.mu.Unlock()
		}
	}, src)
	defer w.Close()

	Set(context.Background(), tr, "count", src, 4)

	if src.Get() != 4 {
		t.Errorf("Get() = %d, want 4", src.Get())
	}
	if len(tp.spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(tp.spans))
	}
	span := tp.spans[0]
	if span.name != SpanSet {
		t.Errorf("span name = %q, want %q", span.name, SpanSet)
	}
	if !span.ended {
		t.Error("span not ended")
	}
	if spanDuringHandler != 1 {
		t.Error("handler did not run inside the span")
	}
	if v, ok := attr(span, "gaze.subject"); !ok || v.AsString() != "count" {
		t.Errorf("gaze.subject = %v", v)
	}
	if v, ok := attr(span, "gaze.watchers"); !ok || v.AsInt64() != 1 {
		t.Errorf("gaze.watchers = %v", v)
	}
	if v, ok := attr(span, "env"); !ok || v.AsString() != "test" {
		t.Errorf("env = %v", v)
	}
}

func TestSetJSONRecordsError(t *testing.T) {
	tp := &recordingProvider{}
	tr := New(WithTracerProvider(tp))

	cat := catalog.New()
	src := catalog.MustRegister(cat, "count", gaze.NewSource(1, nil))
	e, _ := cat.Lookup("count")

	if err := SetJSON(context.Background(), tr, e, json.RawMessage(`"bad"`)); err == nil {
		t.Fatal("expected decode error")
	}
	if err := SetJSON(context.Background(), tr, e, json.RawMessage(`2`)); err != nil {
		t.Fatalf("SetJSON: %v", err)
	}

	if src.Get() != 2 {
		t.Errorf("Get() = %d, want 2", src.Get())
	}
	if len(tp.spans) != 2 {
		t.Fatalf("spans = %d, want 2", len(tp.spans))
	}
	if tp.spans[0].status != codes.Error || len(tp.spans[0].errs) != 1 {
		t.Errorf("first span status = %v, errs = %v", tp.spans[0].status, tp.spans[0].errs)
	}
	if tp.spans[1].status != codes.Ok {
		t.Errorf("second span status = %v, want Ok", tp.spans[1].status)
	}
}

func TestNilTracerSetsWithoutSpan(t *testing.T) {
	src := gaze.NewSource("a", nil)
	Set(context.Background(), nil, "label", src, "b")
	if src.Get() != "b" {
		t.Errorf("Get() = %q, want b", src.Get())
	}
}
