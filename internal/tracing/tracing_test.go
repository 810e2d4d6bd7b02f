package tracing_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/pepe-http/pepe/internal/config"
	"github.com/pepe-http/pepe/internal/tracing"
)

func setupTestTracer(t *testing.T) (*tracetest.InMemoryExporter, trace.Tracer) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
	})
	return exporter, tp.Tracer("test")
}

func TestInitWithoutEndpointIsNoop(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	p, err := tracing.Init(context.Background(), config.TracingConfig{Propagate: true, SampleRate: 1})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if p.Enabled() {
		t.Error("Enabled() = true without an endpoint")
	}
	if p.ShouldPropagate() {
		t.Error("ShouldPropagate() = true without an endpoint")
	}
	_, span := p.Tracer().Start(context.Background(), "noop")
	span.End()
	if span.SpanContext().IsValid() {
		t.Error("expected invalid span context from no-op tracer")
	}
}

func TestInitWithEndpointEnablesTracing(t *testing.T) {
	for _, protocol := range []string{"grpc", "http", ""} {
		p, err := tracing.Init(context.Background(), config.TracingConfig{
			Endpoint:   "localhost:4317",
			Protocol:   protocol,
			Insecure:   true,
			SampleRate: 1,
			Propagate:  true,
		})
		if err != nil {
			t.Fatalf("Init(%q) error = %v", protocol, err)
		}
		if !p.Enabled() || !p.ShouldPropagate() {
			t.Errorf("protocol %q: expected enabled provider with propagation", protocol)
		}
		_ = p.Shutdown(context.Background())
	}
}

func TestInitRejectsBadInput(t *testing.T) {
	if _, err := tracing.Init(context.Background(), config.TracingConfig{Endpoint: "localhost:4317", Protocol: "thrift"}); err == nil {
		t.Fatal("expected error for unsupported protocol")
	}
	for _, rate := range []float64{-0.5, 1.5} {
		if _, err := tracing.Init(context.Background(), config.TracingConfig{Endpoint: "localhost:4317", SampleRate: rate}); err == nil {
			t.Fatalf("expected error for sample rate %g", rate)
		}
	}
}

func TestNilProviderSafety(t *testing.T) {
	var p *tracing.Provider
	if p.ShouldPropagate() || p.Enabled() {
		t.Error("nil provider should be disabled")
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("nil provider Shutdown() error = %v", err)
	}
	_, span := p.Tracer().Start(context.Background(), "test")
	span.End()
}

func TestStartRequestSpan(t *testing.T) {
	exporter, tracer := setupTestTracer(t)

	_, span := tracing.StartRequestSpan(context.Background(), tracer, http.MethodPost, "https://api.example.com:8443/v1")
	tracing.EndSpan(span, nil, attribute.Int("http.response.status_code", 201))

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	got := spans[0]
	if got.Name != "HTTP POST" {
		t.Errorf("span name = %q, want %q", got.Name, "HTTP POST")
	}
	if got.SpanKind != trace.SpanKindClient {
		t.Errorf("span kind = %v, want client", got.SpanKind)
	}
	want := map[string]string{
		"http.request.method": "POST",
		"url.full":            "https://api.example.com:8443/v1",
		"server.address":      "api.example.com",
	}
	for _, attr := range got.Attributes {
		if v, ok := want[string(attr.Key)]; ok {
			if attr.Value.AsString() != v {
				t.Errorf("%s = %q, want %q", attr.Key, attr.Value.AsString(), v)
			}
			delete(want, string(attr.Key))
		}
	}
	if len(want) != 0 {
		t.Errorf("missing attributes: %v", want)
	}
	if got.Status.Code != codes.Ok {
		t.Errorf("status = %v, want Ok", got.Status.Code)
	}
}

func TestEndSpanRecordsError(t *testing.T) {
	exporter, tracer := setupTestTracer(t)

	_, span := tracer.Start(context.Background(), "test-error")
	tracing.EndSpan(span, errors.New("connection refused"))

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("span status code = %d, want %d (Error)", spans[0].Status.Code, codes.Error)
	}
	if len(spans[0].Events) == 0 {
		t.Error("expected recorded error event")
	}
}

func TestInjectHTTPHeaders(t *testing.T) {
	_, tracer := setupTestTracer(t)

	ctx, span := tracer.Start(context.Background(), "test-inject")
	defer span.End()

	headers := make(http.Header)
	tracing.InjectHTTPHeaders(ctx, headers)

	got := headers.Get("Traceparent")
	if len(got) < 55 {
		t.Errorf("traceparent header missing or too short: %q", got)
	}
}

func TestInjectHTTPHeadersNoSpan(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	headers := make(http.Header)
	tracing.InjectHTTPHeaders(context.Background(), headers)

	if got := headers.Get("Traceparent"); got != "" {
		t.Errorf("traceparent header should be empty without span, got %q", got)
	}
}
