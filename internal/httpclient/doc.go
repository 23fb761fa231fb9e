// Package httpclient issues the timed GET requests of a medusa run.
//
// # HTTP Client
//
// [NewClient] creates one pooled client shared by every worker:
//
//	client := httpclient.NewClient(30 * time.Second)
//
// # Executor
//
// [Executor] implements runner.Executor. Each call issues one GET, timing
// from just before the request is sent until the response headers (or a
// transport error) arrive:
//
//	exec, err := httpclient.NewExecutor(client, "http://localhost:8080/", provider)
//	outcome := exec.Execute(ctx)
//
// Any HTTP status code counts as a completed request; only transport errors
// (connection, DNS, TLS, timeout) produce a failed outcome. Response bodies
// are drained so connections return to the pool, but never inspected.
//
// # Tracing
//
// When a tracing provider is supplied each request runs in a client span and,
// if propagation is enabled, carries W3C traceparent headers.
package httpclient
