package telemetry

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"plc/interpreter-go/pkg/lexer"
)

func newRecorded(t *testing.T) (Instrumenter, *tracetest.SpanRecorder) {
	t.Helper()
	recorder := tracetest.NewSpanRecorder()
	inst, err := New(
		Config{ServiceName: "plc-test", Version: "test"},
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

func TestInstrumenterRecordsStages(t *testing.T) {
	inst, recorder := newRecorded(t)

	ctx, root := inst.Start(context.Background(), StageStart{Path: "main.plc", RunID: "run-1"})
	_, lex := inst.Start(ctx, StageStart{Stage: StageLex, Path: "main.plc", RunID: "run-1"})
	lex.End(StageResult{Tokens: 12})
	_, run := inst.Start(ctx, StageStart{Stage: StageRun, Path: "main.plc", RunID: "run-1"})
	run.End(StageResult{Value: "3"})
	root.End(StageResult{})

	spans := recorder.Ended()
	if len(spans) != 3 {
		t.Fatalf("expected 3 spans, got %d", len(spans))
	}
	names := []string{spans[0].Name(), spans[1].Name(), spans[2].Name()}
	want := []string{"plc.lex", "plc.run", "plc.program"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("span %d: expected %q, got %q", i, want[i], names[i])
		}
	}
	assertAttribute(t, spans[0], "plc.tokens", int64(12))
	assertAttribute(t, spans[0], "plc.stage", "lex")
	assertAttribute(t, spans[1], "plc.result", "3")
	assertAttribute(t, spans[2], "plc.run_id", "run-1")
	assertAttribute(t, spans[2], "plc.path", "main.plc")
	assertAttribute(t, spans[2], "plc.stage", "program")

	rootID := spans[2].SpanContext().SpanID()
	for _, child := range spans[:2] {
		if child.Parent().SpanID() != rootID {
			t.Fatalf("span %s is not a child of the program span", child.Name())
		}
	}
	for _, span := range spans {
		if span.Status().Code != codes.Ok {
			t.Fatalf("span %s: expected OK status, got %v", span.Name(), span.Status().Code)
		}
	}
}

func TestInstrumenterRecordsFailures(t *testing.T) {
	inst, recorder := newRecorded(t)

	_, span := inst.Start(context.Background(), StageStart{Stage: StageLex})
	span.End(StageResult{Err: &lexer.LexError{Offset: 4, Message: "Unterminated string"}})

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	ro := spans[0]
	if ro.Status().Code != codes.Error {
		t.Fatalf("expected error status, got %v", ro.Status().Code)
	}
	assertAttribute(t, ro, "plc.error.kind", "lex")
	assertAttribute(t, ro, "plc.error.offset", int64(4))

	var sawException bool
	for _, ev := range ro.Events() {
		if ev.Name == "exception" {
			sawException = true
		}
	}
	if !sawException {
		t.Fatalf("expected the error to be recorded as an event")
	}
}

func TestNoopWhenDisabled(t *testing.T) {
	inst, err := New(Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := inst.(noopInstrumenter); !ok {
		t.Fatalf("expected noop instrumenter, got %T", inst)
	}
	ctx := context.Background()
	got, span := inst.Start(ctx, StageStart{Stage: StageParse})
	if got != ctx {
		t.Fatalf("noop instrumenter must return the incoming context")
	}
	span.End(StageResult{Err: errors.New("ignored")})
	if err := inst.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
}

func TestErrorKindDefaultsToInternal(t *testing.T) {
	if got := ErrorKind(errors.New("boom")); got != "internal" {
		t.Fatalf("expected internal, got %q", got)
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
