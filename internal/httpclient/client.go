package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/torosent/medusa/internal/runner"
	"github.com/torosent/medusa/internal/tracing"
)

const userAgent = "medusa/1.0"

// Executor performs one timed GET against a fixed target.
type Executor struct {
	client  *http.Client
	target  string
	tracing *tracing.Provider
	now     func() time.Time
}

// NewExecutor validates the target and returns an Executor sharing client.
// A nil provider disables tracing.
func NewExecutor(client *http.Client, target string, provider *tracing.Provider) (*Executor, error) {
	if client == nil {
		return nil, errors.New("http client cannot be nil")
	}
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, errors.New("target URL is required")
	}
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("invalid target URL %q: %w", target, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid target URL %q: scheme must be http or https", target)
	}
	return &Executor{
		client:  client,
		target:  target,
		tracing: provider,
		now:     time.Now,
	}, nil
}

// Execute issues the request and reports its outcome.
func (e *Executor) Execute(ctx context.Context) runner.Outcome {
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, span := e.tracing.StartRequest(ctx, e.target)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.target, nil)
	if err != nil {
		e.tracing.FinishRequest(span, 0, 0, err)
		return runner.Failure(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("User-Agent", userAgent)
	e.tracing.InjectHeaders(ctx, req.Header)

	start := e.now()
	resp, err := e.client.Do(req)
	end := e.now()
	if err != nil {
		e.tracing.FinishRequest(span, 0, 0, err)
		return runner.Failure(err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	elapsed := end.Sub(start)
	if elapsed < 0 {
		err := fmt.Errorf("clock went backwards by %s", -elapsed)
		e.tracing.FinishRequest(span, resp.StatusCode, 0, err)
		return runner.Failure(err)
	}

	e.tracing.FinishRequest(span, resp.StatusCode, elapsed, nil)
	return runner.Success(elapsed)
}

func NewClient(timeout time.Duration) *http.Client {
	if timeout < 0 {
		timeout = 0
	}

	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          256,
		MaxIdleConnsPerHost:   32,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
