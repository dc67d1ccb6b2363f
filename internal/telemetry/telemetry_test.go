package telemetry

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecorded(t *testing.T) (Instrumenter, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	inst, err := New(
		Config{ServiceName: "httpoutline-test", Version: "test"},
		WithSpanProcessor(recorder),
	)
	if err != nil {
		t.Fatalf("New instrumenter: %v", err)
	}
	t.Cleanup(func() {
		_ = inst.Shutdown(context.Background())
	})
	return inst, recorder
}

func TestRebuildSpanRecordsCounts(t *testing.T) {
	inst, recorder := newRecorded(t)

	ctx, span := inst.StartRebuild(
		context.Background(),
		RebuildStart{Path: "api.http", Trigger: "saved", Generation: 7},
	)
	if ctx == nil || span == nil {
		t.Fatalf("expected span to be created")
	}
	span.End(RebuildResult{Groups: 2, Requests: 5, Bytes: 120})

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	ro := spans[0]
	if ro.Name() != "outline.rebuild" {
		t.Fatalf("unexpected span name %q", ro.Name())
	}
	assertAttribute(t, ro, "httpoutline.file.path", "api.http")
	assertAttribute(t, ro, "httpoutline.rebuild.trigger", "saved")
	assertAttribute(t, ro, "httpoutline.rebuild.generation", int64(7))
	assertAttribute(t, ro, "httpoutline.outline.groups", int64(2))
	assertAttribute(t, ro, "httpoutline.outline.requests", int64(5))
	if ro.Status().Code != codes.Ok {
		t.Fatalf("expected OK status, got %v", ro.Status().Code)
	}
}

func TestRebuildSpanRecordsError(t *testing.T) {
	inst, recorder := newRecorded(t)

	_, span := inst.StartRebuild(context.Background(), RebuildStart{Path: "gone.http"})
	span.End(RebuildResult{Err: errors.New("read gone.http: file does not exist")})

	ro := recorder.Ended()[0]
	if ro.Status().Code != codes.Error {
		t.Fatalf("expected error status, got %v", ro.Status().Code)
	}
	if len(ro.Events()) == 0 || ro.Events()[0].Name != "exception" {
		t.Fatalf("expected exception event, got %+v", ro.Events())
	}
}

func TestRebuildSpanMarksSuperseded(t *testing.T) {
	inst, recorder := newRecorded(t)

	_, span := inst.StartRebuild(context.Background(), RebuildStart{Path: "a.http"})
	span.End(RebuildResult{Stale: true})

	ro := recorder.Ended()[0]
	var found bool
	for _, ev := range ro.Events() {
		if ev.Name == "httpoutline.rebuild.superseded" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected superseded event")
	}
}

func TestNewWithoutEndpointIsNoop(t *testing.T) {
	inst, err := New(Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := inst.(noopInstrumenter); !ok {
		t.Fatalf("expected noop instrumenter, got %T", inst)
	}
	_, span := inst.StartRebuild(context.Background(), RebuildStart{})
	span.End(RebuildResult{})
	if err := inst.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func assertAttribute(t *testing.T, span sdktrace.ReadOnlySpan, key string, want interface{}) {
	t.Helper()
	for _, attr := range span.Attributes() {
		if string(attr.Key) != key {
			continue
		}
		switch v := want.(type) {
		case string:
			if attr.Value.AsString() == v {
				return
			}
		case bool:
			if attr.Value.AsBool() == v {
				return
			}
		case int64:
			if attr.Value.AsInt64() == v {
				return
			}
		}
		t.Fatalf("attribute %s mismatch: got %v, want %v", key, attr.Value, want)
	}
	t.Fatalf("attribute %s not found", key)
}
