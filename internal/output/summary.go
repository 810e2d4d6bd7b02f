package output

import (
	"time"

	"github.com/pepe-http/pepe/internal/cache"
	"github.com/pepe-http/pepe/internal/control"
	"github.com/pepe-http/pepe/internal/metrics"
)

// HistogramBins is the number of response-time bins in reports.
const HistogramBins = 10

// Summary is the exported form of a finished run.
type Summary struct {
	RunID       string    `json:"run_id" yaml:"run_id"`
	StartedAt   time.Time `json:"started_at" yaml:"started_at"`
	URL         string    `json:"url" yaml:"url"`
	Method      string    `json:"method" yaml:"method"`
	Total       int       `json:"total" yaml:"total"`
	Concurrency int       `json:"concurrency" yaml:"concurrency"`
	Interrupted bool      `json:"interrupted" yaml:"interrupted"`
	ElapsedMs   float64   `json:"elapsed_ms" yaml:"elapsed_ms"`

	Count    int   `json:"count" yaml:"count"`
	Sent     int   `json:"sent" yaml:"sent"`
	Success  int   `json:"success" yaml:"success"`
	Failed   int   `json:"failed" yaml:"failed"`
	Timeouts int   `json:"timeouts" yaml:"timeouts"`
	Bytes    int64 `json:"bytes" yaml:"bytes"`

	RequestsPerSec float64 `json:"requests_per_sec" yaml:"requests_per_sec"`
	BytesPerSec    float64 `json:"bytes_per_sec" yaml:"bytes_per_sec"`

	Latency     LatencySummary        `json:"latency" yaml:"latency"`
	StatusCodes []metrics.StatusCount `json:"status_codes,omitempty" yaml:"status_codes,omitempty"`
	Errors      []metrics.ErrorCount  `json:"errors,omitempty" yaml:"errors,omitempty"`
	Cache       CacheSummary          `json:"cache" yaml:"cache"`
	DNS         DNSSummary            `json:"dns" yaml:"dns"`
	Histogram   []BinSummary          `json:"histogram,omitempty" yaml:"histogram,omitempty"`
}

type LatencySummary struct {
	MinMs       float64              `json:"min_ms" yaml:"min_ms"`
	MaxMs       float64              `json:"max_ms" yaml:"max_ms"`
	AvgMs       float64              `json:"avg_ms" yaml:"avg_ms"`
	StdDevMs    float64              `json:"std_dev_ms" yaml:"std_dev_ms"`
	P999Ms      float64              `json:"p99_9_ms,omitempty" yaml:"p99_9_ms,omitempty"`
	Percentiles []metrics.Percentile `json:"percentiles,omitempty" yaml:"percentiles,omitempty"`
}

type CacheSummary struct {
	Hit     int     `json:"hit" yaml:"hit"`
	Miss    int     `json:"miss" yaml:"miss"`
	Unknown int     `json:"unknown" yaml:"unknown"`
	HitRate float64 `json:"hit_rate" yaml:"hit_rate"`
}

type DNSSummary struct {
	LookupAvgMs     float64 `json:"lookup_avg_ms" yaml:"lookup_avg_ms"`
	ResolutionAvgMs float64 `json:"resolution_avg_ms" yaml:"resolution_avg_ms"`
}

type BinSummary struct {
	FromMs float64 `json:"from_ms" yaml:"from_ms"`
	ToMs   float64 `json:"to_ms" yaml:"to_ms"`
	Count  int     `json:"count" yaml:"count"`
}

// NewSummary flattens a session and its final snapshot.
func NewSummary(s *control.Session, snap metrics.Snapshot) Summary {
	sum := Summary{
		RunID:       s.RunID.String(),
		StartedAt:   s.Started,
		URL:         s.Target.URL,
		Method:      s.Target.Method,
		Total:       s.Target.Total,
		Concurrency: s.Target.Concurrency,
		Interrupted: s.Interrupted,
		ElapsedMs:   ms(snap.Elapsed),

		Count:    snap.Count,
		Sent:     snap.Sent,
		Success:  snap.Success,
		Failed:   snap.Failed,
		Timeouts: snap.Timeouts,
		Bytes:    snap.Bytes,

		RequestsPerSec: snap.RequestsPerSec,
		BytesPerSec:    snap.BytesPerSec,

		Latency: LatencySummary{
			MinMs:       snap.MinMs(),
			MaxMs:       snap.MaxMs(),
			AvgMs:       snap.AvgMs(),
			StdDevMs:    snap.StdDevMs(),
			Percentiles: snap.Percentiles,
		},
		StatusCodes: snap.StatusCodes,
		Errors:      snap.ErrorKinds,
		Cache: CacheSummary{
			Hit:     snap.CacheCategories[cache.CategoryHit],
			Miss:    snap.CacheCategories[cache.CategoryMiss],
			Unknown: snap.CacheCategories[cache.CategoryUnknown],
			HitRate: snap.CacheHitRate,
		},
		DNS: DNSSummary{
			LookupAvgMs:     ms(snap.DNSLookupAvg),
			ResolutionAvgMs: ms(snap.DNSResolutionAvg),
		},
	}
	if tail, ok := s.Aggregator.TailLatency(99.9); ok {
		sum.Latency.P999Ms = ms(tail)
	}
	for _, b := range s.Aggregator.Histogram(HistogramBins) {
		sum.Histogram = append(sum.Histogram, BinSummary{FromMs: ms(b.From), ToMs: ms(b.To), Count: b.Count})
	}
	return sum
}

// Percentile returns the latency at p, if it was reported.
func (s Summary) Percentile(p int) (float64, bool) {
	for _, pc := range s.Latency.Percentiles {
		if pc.P == p {
			return pc.Ms, true
		}
	}
	return 0, false
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
