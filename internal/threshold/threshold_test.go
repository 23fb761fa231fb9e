package threshold

import (
	"strings"
	"testing"

	"github.com/torosent/medusa/internal/metrics"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      Threshold
		wantError string
	}{
		{
			name:  "median latency",
			input: "response_time:median < 200",
			want: Threshold{
				Metric:    "response_time",
				Aggregate: "median",
				Operator:  "<",
				Value:     200,
				Raw:       "response_time:median < 200",
			},
		},
		{
			name:  "failure rate",
			input: "requests_failed:rate < 0.01",
			want: Threshold{
				Metric:    "requests_failed",
				Aggregate: "rate",
				Operator:  "<",
				Value:     0.01,
				Raw:       "requests_failed:rate < 0.01",
			},
		},
		{
			name:  "surrounding whitespace and no spaces around operator",
			input: "  requests:count>=10 ",
			want: Threshold{
				Metric:    "requests",
				Aggregate: "count",
				Operator:  ">=",
				Value:     10,
				Raw:       "requests:count>=10",
			},
		},
		{name: "empty string", input: "", wantError: "empty threshold"},
		{name: "missing aggregate", input: "response_time < 200", wantError: "invalid threshold format"},
		{name: "unknown metric", input: "http_req_duration:p95 < 500", wantError: "unsupported metric"},
		{name: "aggregate not valid for metric", input: "requests:rate > 100", wantError: "unsupported aggregate"},
		{name: "unknown operator", input: "response_time:max != 5", wantError: "unsupported operator"},
		{name: "bad number", input: "response_time:max < 1.2.3", wantError: "invalid threshold value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantError != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantError) {
					t.Fatalf("Parse(%q) error = %v, want containing %q", tt.input, err, tt.wantError)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseMultipleReportsEveryError(t *testing.T) {
	_, err := ParseMultiple([]string{"response_time:p99 < 10", "bogus", "requests:avg > 1"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "threshold[1]") || !strings.Contains(err.Error(), "threshold[2]") {
		t.Errorf("expected both invalid thresholds in error, got %v", err)
	}

	got, err := ParseMultiple(nil)
	if err != nil || got != nil {
		t.Errorf("ParseMultiple(nil) = %v, %v", got, err)
	}
}

func TestEvaluate(t *testing.T) {
	stats := metrics.Stats{
		Total:        4,
		SuccessCount: 3,
		FailureCount: 1,
		AvgTimeMs:    5,
		MedianTimeMs: 5,
		MinTimeMs:    3,
		MaxTimeMs:    7,
		P90TimeMs:    7,
		P99TimeMs:    7,
	}

	tests := []struct {
		input  string
		pass   bool
		actual float64
	}{
		{input: "response_time:median < 200", pass: true, actual: 5},
		{input: "response_time:avg <= 5", pass: true, actual: 5},
		{input: "response_time:min >= 3", pass: true, actual: 3},
		{input: "response_time:max < 7", pass: false, actual: 7},
		{input: "response_time:p99 == 7", pass: true, actual: 7},
		{input: "requests_failed:count == 0", pass: false, actual: 1},
		{input: "requests_failed:rate < 0.5", pass: true, actual: 0.25},
		{input: "requests:count >= 10", pass: false, actual: 4},
		{input: "requests_succeeded:count > 2", pass: true, actual: 3},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			th, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			results := NewEvaluator([]Threshold{th}).Evaluate(stats)
			if len(results) != 1 {
				t.Fatalf("expected 1 result, got %d", len(results))
			}
			r := results[0]
			if r.Pass != tt.pass {
				t.Errorf("Pass = %v, want %v (%s)", r.Pass, tt.pass, r.Message)
			}
			if r.Actual != tt.actual {
				t.Errorf("Actual = %v, want %v", r.Actual, tt.actual)
			}
		})
	}
}

func TestEvaluateLatencyWithoutSuccessesFails(t *testing.T) {
	th, err := Parse("response_time:max < 1000")
	if err != nil {
		t.Fatal(err)
	}
	results := NewEvaluator([]Threshold{th}).Evaluate(metrics.Stats{Total: 3, FailureCount: 3})
	if results[0].Pass {
		t.Fatal("expected latency threshold to fail when nothing succeeded")
	}
	if !strings.Contains(results[0].Message, "no successful requests") {
		t.Errorf("unexpected message %q", results[0].Message)
	}
}

func TestCountFailed(t *testing.T) {
	if got := CountFailed(nil); got != 0 {
		t.Errorf("CountFailed(nil) = %d, want 0", got)
	}
	if got := CountFailed([]Result{{Pass: true}, {Pass: false}, {Pass: false}}); got != 2 {
		t.Errorf("CountFailed = %d, want 2", got)
	}
	if NewEvaluator(nil).Evaluate(metrics.Stats{}) != nil {
		t.Error("expected nil results without thresholds")
	}
}
