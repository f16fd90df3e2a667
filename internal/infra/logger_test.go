package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"dml-runner/config"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"DEBUG":   slog.LevelDebug,
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"ERROR":   slog.LevelError,
		"INFO":    slog.LevelInfo,
		"unknown": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, &config.Config{LogLevel: "INFO", LogFormat: "text"})

	logger.Debug("hidden")
	logger.Info("script executed", "script", "001_init.sql")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug line should be filtered at INFO: %q", out)
	}
	if !strings.Contains(out, "time=") || !strings.Contains(out, "level=INFO") || !strings.Contains(out, "script=001_init.sql") {
		t.Errorf("unexpected text log line: %q", out)
	}
}

func TestTraceHandler_AddsTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, &config.Config{LogLevel: "DEBUG", LogFormat: "json", OtelEnabled: true})

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	ctx, span := tp.Tracer("test").Start(context.Background(), "span")
	defer span.End()

	logger.InfoContext(ctx, "with trace")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log line %q: %v", buf.String(), err)
	}
	if entry["trace"] != span.SpanContext().TraceID().String() {
		t.Errorf("expected trace id %s, got %v", span.SpanContext().TraceID(), entry["trace"])
	}
	if entry["spanId"] != span.SpanContext().SpanID().String() {
		t.Errorf("expected span id %s, got %v", span.SpanContext().SpanID(), entry["spanId"])
	}
}

func TestTraceHandler_Disabled(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, &config.Config{LogLevel: "DEBUG", LogFormat: "json"})

	tp := sdktrace.NewTracerProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	ctx, span := tp.Tracer("test").Start(context.Background(), "span")
	defer span.End()

	logger.InfoContext(ctx, "without trace")

	if strings.Contains(buf.String(), "spanId") {
		t.Errorf("trace attrs should not be added when otel is disabled: %q", buf.String())
	}
}

func TestInitTracer_Disabled(t *testing.T) {
	tp, err := InitTracer(context.Background(), &config.Config{})
	if err != nil {
		t.Fatalf("InitTracer failed: %v", err)
	}
	if tp != nil {
		t.Error("expected nil provider when otel is disabled")
	}
}
