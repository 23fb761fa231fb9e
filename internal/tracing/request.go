package tracing

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// ElapsedKey carries the measured round-trip time in milliseconds, the same
// value that feeds the run's statistics.
const ElapsedKey = attribute.Key("medusa.elapsed_ms")

// StartRequest opens the client span for one GET of target. The returned
// context carries the span and must be used for the request.
func (p *Provider) StartRequest(ctx context.Context, target string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{semconv.HTTPRequestMethodGet, semconv.URLFull(target)}
	if u, err := url.Parse(target); err == nil && u.Hostname() != "" {
		attrs = append(attrs, semconv.ServerAddress(u.Hostname()))
		if port, err := strconv.Atoi(u.Port()); err == nil {
			attrs = append(attrs, semconv.ServerPort(port))
		}
	}
	return p.tracerOrNoop().Start(ctx, http.MethodGet,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

// FinishRequest ends span. A transport error marks it failed; otherwise the
// status code and elapsed time are recorded, and 4xx/5xx responses mark the
// span as an error even though the run counts them as completed.
func (p *Provider) FinishRequest(span trace.Span, statusCode int, elapsed time.Duration, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		return
	}
	span.SetAttributes(
		semconv.HTTPResponseStatusCode(statusCode),
		ElapsedKey.Int64(elapsed.Milliseconds()),
	)
	if statusCode >= http.StatusBadRequest {
		span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", statusCode))
	}
	span.End()
}

// InjectHeaders writes the traceparent of the span in ctx into headers when
// propagation is enabled.
func (p *Provider) InjectHeaders(ctx context.Context, headers http.Header) {
	if p == nil || p.propagator == nil {
		return
	}
	p.propagator.Inject(ctx, propagation.HeaderCarrier(headers))
}

func (p *Provider) tracerOrNoop() trace.Tracer {
	if p == nil || p.tracer == nil {
		return noop.NewTracerProvider().Tracer(instrumentationName)
	}
	return p.tracer
}
