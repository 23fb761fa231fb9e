package tracing_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/torosent/medusa/internal/config"
	"github.com/torosent/medusa/internal/tracing"
)

func TestInitDisabledByDefault(t *testing.T) {
	p, err := tracing.Init(context.Background(), config.TracingConfig{}, "run")
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	ctx, span := p.StartRequest(context.Background(), "http://localhost:8080/")
	if span.SpanContext().IsValid() {
		t.Error("disabled tracing should yield no-op spans")
	}
	headers := make(http.Header)
	p.InjectHeaders(ctx, headers)
	if got := headers.Get("Traceparent"); got != "" {
		t.Errorf("Traceparent = %q, want none", got)
	}
	p.FinishRequest(span, http.StatusOK, 0, nil)
}

func TestInitWithEndpoint(t *testing.T) {
	// No collector is listening; both exporters connect lazily.
	for _, protocol := range []string{"grpc", "http"} {
		t.Run(protocol, func(t *testing.T) {
			p, err := tracing.Init(context.Background(), config.TracingConfig{
				Endpoint:    "localhost:4317",
				Protocol:    protocol,
				ServiceName: "burst-test",
				SampleRate:  1.0,
				Insecure:    true,
			}, "run")
			if err != nil {
				t.Fatalf("Init() error = %v", err)
			}
			t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

			ctx, span := p.StartRequest(context.Background(), "http://localhost:8080/")
			if !span.SpanContext().IsValid() {
				t.Error("expected a recording span")
			}
			headers := make(http.Header)
			p.InjectHeaders(ctx, headers)
			if got := headers.Get("Traceparent"); got != "" {
				t.Errorf("Traceparent = %q without propagation", got)
			}
			p.FinishRequest(span, http.StatusOK, 0, nil)
		})
	}
}

func TestInitPropagateOnly(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	p, err := tracing.Init(context.Background(), config.TracingConfig{Propagate: true, SampleRate: 1.0}, "run")
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	ctx, span := p.StartRequest(context.Background(), "http://localhost:8080/")
	defer span.End()

	headers := make(http.Header)
	p.InjectHeaders(ctx, headers)
	got := headers.Get("Traceparent")
	// version-traceid-spanid-flags
	if len(got) != 55 || !strings.HasPrefix(got, "00-"+span.SpanContext().TraceID().String()) {
		t.Errorf("Traceparent = %q, want header for trace %s", got, span.SpanContext().TraceID())
	}
}

func TestInitRejectsBadSettings(t *testing.T) {
	cases := []struct {
		name string
		cfg  config.TracingConfig
		want string
	}{
		{
			name: "unsupported protocol",
			cfg:  config.TracingConfig{Endpoint: "localhost:4317", Protocol: "thrift", Insecure: true, SampleRate: 1},
			want: "unsupported OTLP protocol",
		},
		{
			name: "negative sample rate",
			cfg:  config.TracingConfig{Propagate: true, SampleRate: -0.5},
			want: "sample_rate",
		},
		{
			name: "sample rate above one",
			cfg:  config.TracingConfig{Propagate: true, SampleRate: 1.5},
			want: "sample_rate",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tracing.Init(context.Background(), tc.cfg, "run")
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("Init() error = %v, want containing %q", err, tc.want)
			}
		})
	}
}

func TestNilProviderSafety(t *testing.T) {
	var p *tracing.Provider
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}

	ctx, span := p.StartRequest(context.Background(), "http://localhost:8080/")
	headers := make(http.Header)
	p.InjectHeaders(ctx, headers)
	if len(headers) != 0 {
		t.Errorf("nil provider injected %v", headers)
	}
	p.FinishRequest(span, 0, 0, errors.New("connection refused"))
}
