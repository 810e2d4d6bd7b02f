package metrics

import (
	"time"

	"github.com/pepe-http/pepe/internal/cache"
	"github.com/pepe-http/pepe/internal/runner"
)

// Snapshot is a read-only copy of the aggregate state, safe to hand to
// another goroutine.
type Snapshot struct {
	Total    int `json:"total" yaml:"total"`
	Count    int `json:"count" yaml:"count"`
	Sent     int `json:"sent" yaml:"sent"`
	Success  int `json:"success" yaml:"success"`
	Failed   int `json:"failed" yaml:"failed"`
	Timeouts int `json:"timeouts" yaml:"timeouts"`

	Bytes          int64   `json:"bytes" yaml:"bytes"`
	RequestsPerSec float64 `json:"requests_per_sec" yaml:"requests_per_sec"`
	BytesPerSec    float64 `json:"bytes_per_sec" yaml:"bytes_per_sec"`

	Min    time.Duration `json:"-" yaml:"-"`
	Max    time.Duration `json:"-" yaml:"-"`
	Avg    time.Duration `json:"-" yaml:"-"`
	StdDev time.Duration `json:"-" yaml:"-"`

	Percentiles []Percentile  `json:"percentiles" yaml:"percentiles"`
	StatusCodes []StatusCount `json:"status_codes" yaml:"status_codes"`
	ErrorKinds  []ErrorCount  `json:"errors,omitempty" yaml:"errors,omitempty"`

	CacheCategories map[cache.Category]int `json:"cache_categories" yaml:"-"`
	CacheHitRate    float64                `json:"cache_hit_rate" yaml:"cache_hit_rate"`

	DNSLookupAvg     time.Duration `json:"-" yaml:"-"`
	DNSResolutionAvg time.Duration `json:"-" yaml:"-"`

	Progress float64       `json:"progress" yaml:"progress"`
	Elapsed  time.Duration `json:"-" yaml:"-"`
	Finished bool          `json:"finished" yaml:"finished"`

	Recent []runner.CompletionRecord `json:"-" yaml:"-"`
}

// Snapshot copies the current state. Average, standard deviation and
// percentiles are recomputed from the full latency series.
func (a *Aggregator) Snapshot() Snapshot {
	a.updateRates()
	avg, std := meanAndStdDev(a.latencies)

	s := Snapshot{
		Total:            a.total,
		Count:            a.count,
		Sent:             a.sent,
		Success:          a.success,
		Failed:           a.failed,
		Timeouts:         a.timeouts,
		Bytes:            a.bytes,
		RequestsPerSec:   a.requestsPerSec,
		BytesPerSec:      a.bytesPerSec,
		Min:              a.minLatency,
		Max:              a.maxLatency,
		Avg:              avg,
		StdDev:           std,
		Percentiles:      a.Percentiles(),
		StatusCodes:      SortStatusCodes(a.statusCodes),
		ErrorKinds:       SortErrorKinds(a.errorKinds),
		CacheCategories:  make(map[cache.Category]int, len(a.categories)),
		DNSLookupAvg:     a.avgDNSLookup,
		DNSResolutionAvg: a.avgDNSResolution,
		Elapsed:          a.Elapsed(),
		Finished:         a.done,
		Recent:           a.log.Items(),
	}
	for k, v := range a.categories {
		s.CacheCategories[k] = v
	}
	if a.count > 0 {
		s.CacheHitRate = float64(a.categories[cache.CategoryHit]) / float64(a.count) * 100
	}
	if a.total > 0 {
		s.Progress = min(float64(a.count)/float64(a.total)*100, 100)
	}
	return s
}

// MinMs and friends expose latencies in milliseconds for exports.
func (s Snapshot) MinMs() float64    { return durationMs(s.Min) }
func (s Snapshot) MaxMs() float64    { return durationMs(s.Max) }
func (s Snapshot) AvgMs() float64    { return durationMs(s.Avg) }
func (s Snapshot) StdDevMs() float64 { return durationMs(s.StdDev) }

// InFlight is the number of requests sent but not yet completed.
func (s Snapshot) InFlight() int {
	return max(s.Sent-s.Count, 0)
}
