package metrics

import (
	"math"
	"slices"
	"time"
)

// ReportedPercentiles are the percentiles shown on every snapshot.
var ReportedPercentiles = []int{0, 10, 25, 50, 75, 90, 95, 99, 100}

// Percentile is one latency percentile.
type Percentile struct {
	P     int           `json:"p" yaml:"p"`
	Value time.Duration `json:"-" yaml:"-"`
	Ms    float64       `json:"ms" yaml:"ms"`
}

// Bin is one bucket of the response-time histogram, covering [From, To).
// The last bin also includes To.
type Bin struct {
	From  time.Duration `json:"-" yaml:"-"`
	To    time.Duration `json:"-" yaml:"-"`
	Count int           `json:"count" yaml:"count"`
}

// Percentiles returns the reported percentiles over every latency seen.
func (a *Aggregator) Percentiles() []Percentile {
	return PercentilesOf(a.latencies, ReportedPercentiles)
}

// PercentilesOf sorts a copy of samples and picks, for each p, the sample at
// index round(p/100 * (len-1)) clamped to the slice.
func PercentilesOf(samples []time.Duration, ps []int) []Percentile {
	if len(samples) == 0 {
		return nil
	}
	sorted := slices.Clone(samples)
	slices.Sort(sorted)

	last := len(sorted) - 1
	out := make([]Percentile, 0, len(ps))
	for _, p := range ps {
		idx := int(math.Round(float64(p) / 100 * float64(last)))
		idx = min(max(idx, 0), last)
		v := sorted[idx]
		out = append(out, Percentile{P: p, Value: v, Ms: durationMs(v)})
	}
	return out
}

// meanAndStdDev returns the mean of samples and the population standard
// deviation around it.
func meanAndStdDev(samples []time.Duration) (time.Duration, time.Duration) {
	if len(samples) == 0 {
		return 0, 0
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s)
	}
	avg := sum / float64(len(samples))

	var sq float64
	for _, s := range samples {
		d := float64(s) - avg
		sq += d * d
	}
	return time.Duration(avg), time.Duration(math.Sqrt(sq / float64(len(samples))))
}

// Histogram splits the observed latency range into bins of equal width.
// A single bin is returned when every sample has the same value.
func (a *Aggregator) Histogram(bins int) []Bin {
	return HistogramOf(a.latencies, bins)
}

// HistogramOf bins samples into [From, To) ranges of equal width between the
// smallest and largest sample. The maximum lands in the last bin.
func HistogramOf(samples []time.Duration, bins int) []Bin {
	if len(samples) == 0 || bins < 1 {
		return nil
	}

	lo, hi := slices.Min(samples), slices.Max(samples)
	if lo == hi {
		return []Bin{{From: lo, To: hi, Count: len(samples)}}
	}

	width := float64(hi-lo) / float64(bins)
	out := make([]Bin, bins)
	for i := range out {
		out[i].From = lo + time.Duration(float64(i)*width)
		out[i].To = lo + time.Duration(float64(i+1)*width)
	}
	out[bins-1].To = hi

	for _, s := range samples {
		idx := int(float64(s-lo) / width)
		idx = min(max(idx, 0), bins-1)
		// float rounding can put a sample one bin off its edges
		if idx > 0 && s < out[idx].From {
			idx--
		} else if idx < bins-1 && s >= out[idx+1].From {
			idx++
		}
		out[idx].Count++
	}
	return out
}

// TailLatency returns the latency at quantile q (0-100) from the HDR
// histogram. Values carry three significant digits, so it is only used for
// tail quantiles beyond the reported percentiles.
func (a *Aggregator) TailLatency(q float64) (time.Duration, bool) {
	if a.hist.TotalCount() == 0 {
		return 0, false
	}
	return time.Duration(a.hist.ValueAtQuantile(q)) * time.Microsecond, true
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
