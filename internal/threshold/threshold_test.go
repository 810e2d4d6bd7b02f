package threshold

import (
	"errors"
	"strings"
	"testing"

	"github.com/pepe-http/pepe/internal/metrics"
	"github.com/pepe-http/pepe/internal/output"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      Threshold
		wantError bool
	}{
		{
			name:  "p95 latency",
			input: "latency:p95 < 500",
			want:  Threshold{Metric: "latency", Aggregate: "p95", Operator: "<", Value: 500, Raw: "latency:p95 < 500"},
		},
		{
			name:  "failure rate without spaces",
			input: "failed:rate<0.01",
			want:  Threshold{Metric: "failed", Aggregate: "rate", Operator: "<", Value: 0.01, Raw: "failed:rate<0.01"},
		},
		{
			name:  "cache hit rate",
			input: "  cache:hit_rate >= 90 ",
			want:  Threshold{Metric: "cache", Aggregate: "hit_rate", Operator: ">=", Value: 90, Raw: "cache:hit_rate >= 90"},
		},
		{name: "empty", input: "", wantError: true},
		{name: "no aggregate", input: "latency < 5", wantError: true},
		{name: "unknown metric", input: "cpu:avg < 5", wantError: true},
		{name: "aggregate of another metric", input: "cache:p95 < 5", wantError: true},
		{name: "unreported percentile", input: "latency:p42 < 5", wantError: true},
		{name: "unsupported operator", input: "latency:avg != 5", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantError {
				if err == nil {
					t.Fatalf("Parse(%q) expected error, got %+v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseMultipleReportsEveryProblem(t *testing.T) {
	got, err := ParseMultiple([]string{"latency:avg < 10", "bogus", "requests:count == 100"})
	if err == nil {
		t.Fatalf("expected error, got %+v", got)
	}
	if !strings.Contains(err.Error(), "threshold[1]") {
		t.Errorf("error should name the bad entry: %v", err)
	}

	got, err = ParseMultiple([]string{"latency:avg < 10", "requests:count == 100"})
	if err != nil || len(got) != 2 {
		t.Fatalf("ParseMultiple() = %v, %v", got, err)
	}
	if got, err := ParseMultiple(nil); got != nil || err != nil {
		t.Fatalf("ParseMultiple(nil) = %v, %v", got, err)
	}
}

func sampleSummary() output.Summary {
	return output.Summary{
		Count:          100,
		Success:        95,
		Failed:         3,
		Timeouts:       2,
		RequestsPerSec: 250,
		Latency: output.LatencySummary{
			MinMs:    4,
			MaxMs:    900,
			AvgMs:    42,
			StdDevMs: 12.5,
			Percentiles: []metrics.Percentile{
				{P: 50, Ms: 30}, {P: 95, Ms: 120}, {P: 99, Ms: 480},
			},
		},
		Cache: output.CacheSummary{Hit: 80, Miss: 20, HitRate: 80},
	}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		raw    string
		actual float64
		pass   bool
	}{
		{"latency:p95 < 200", 120, true},
		{"latency:p99 < 200", 480, false},
		{"latency:avg <= 42", 42, true},
		{"latency:max > 1000", 900, false},
		{"latency:stddev < 20", 12.5, true},
		{"failed:count == 3", 3, true},
		{"failed:rate < 0.01", 0.03, false},
		{"timeouts:rate <= 0.02", 0.02, true},
		{"requests:count >= 100", 100, true},
		{"requests:rate > 200", 250, true},
		{"cache:hit_rate >= 90", 80, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			th, err := Parse(tt.raw)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.raw, err)
			}
			res := NewEvaluator([]Threshold{th}).Evaluate(sampleSummary())
			if len(res) != 1 {
				t.Fatalf("expected one result, got %d", len(res))
			}
			if res[0].Actual != tt.actual {
				t.Errorf("actual = %v, want %v", res[0].Actual, tt.actual)
			}
			if res[0].Pass != tt.pass {
				t.Errorf("pass = %v, want %v (%s)", res[0].Pass, tt.pass, res[0].Message)
			}
		})
	}
}

func TestMissingPercentileFails(t *testing.T) {
	th, err := Parse("latency:p75 < 100")
	if err != nil {
		t.Fatal(err)
	}
	res := NewEvaluator([]Threshold{th}).Evaluate(sampleSummary())
	if res[0].Pass || !strings.Contains(res[0].Message, "no latency samples") {
		t.Errorf("unexpected result %+v", res[0])
	}
}

func TestCheck(t *testing.T) {
	ths, err := ParseMultiple([]string{"latency:p95 < 200", "failed:count < 1", "cache:hit_rate < 50"})
	if err != nil {
		t.Fatal(err)
	}
	results, err := NewEvaluator(ths).Check(sampleSummary())
	if !errors.Is(err, ErrFailed) {
		t.Fatalf("expected ErrFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "2 of 3") {
		t.Errorf("unexpected error text %q", err)
	}
	if len(results) != 3 || !results[0].Pass || !strings.HasPrefix(results[0].Message, "✓") {
		t.Errorf("unexpected results %+v", results)
	}

	if _, err := NewEvaluator(ths[:1]).Check(sampleSummary()); err != nil {
		t.Errorf("expected passing check, got %v", err)
	}
	if res, err := NewEvaluator(nil).Check(sampleSummary()); res != nil || err != nil {
		t.Errorf("empty evaluator returned %v, %v", res, err)
	}
}

func TestCompare(t *testing.T) {
	if !compare(1, "==", 1+1e-12) {
		t.Error("== should tolerate rounding")
	}
	if compare(1, "!=", 2) {
		t.Error("unknown operator should fail")
	}
}
