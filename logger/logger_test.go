package logger

import (
	"context"
	"testing"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	use(otelzap.New(zap.New(core)), nil)
	t.Cleanup(func() { use(otelzap.New(zap.NewNop()), nil) })
	return logs
}

func spanContext(t *testing.T) trace.SpanContext {
	t.Helper()
	tid, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	if err != nil {
		t.Fatalf("trace id: %v", err)
	}
	sid, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	if err != nil {
		t.Fatalf("span id: %v", err)
	}
	return trace.NewSpanContext(trace.SpanContextConfig{TraceID: tid, SpanID: sid, TraceFlags: trace.FlagsSampled})
}

func TestHelpersAddTraceFields(t *testing.T) {
	logs := observe(t)
	sc := spanContext(t)
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	Infof(ctx, "lend %s", "L1")
	Errorf(ctx, "mirror %s err", "create")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].Message != "lend L1" {
		t.Fatalf("message = %q", entries[0].Message)
	}
	for _, e := range entries {
		fields := e.ContextMap()
		if fields["trace_id"] != sc.TraceID().String() {
			t.Fatalf("trace_id = %v, want %s", fields["trace_id"], sc.TraceID())
		}
		if fields["span_id"] != sc.SpanID().String() {
			t.Fatalf("span_id = %v, want %s", fields["span_id"], sc.SpanID())
		}
	}
}

func TestHelpersWithoutSpan(t *testing.T) {
	logs := observe(t)

	Warnf(context.Background(), "no span")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if _, ok := entries[0].ContextMap()["trace_id"]; ok {
		t.Fatalf("trace_id present without a span")
	}
	if entries[0].Level != zapcore.WarnLevel {
		t.Fatalf("level = %v", entries[0].Level)
	}
}

func TestTraceFields(t *testing.T) {
	if f := TraceFields(context.Background()); f != nil {
		t.Fatalf("TraceFields(no span) = %v", f)
	}
	ctx := trace.ContextWithSpanContext(context.Background(), spanContext(t))
	if f := TraceFields(ctx); len(f) != 2 || f[0].Key != "trace_id" || f[1].Key != "span_id" {
		t.Fatalf("TraceFields() = %v", f)
	}
}
