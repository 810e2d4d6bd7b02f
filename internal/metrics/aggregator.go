package metrics

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/pepe-http/pepe/internal/cache"
	"github.com/pepe-http/pepe/internal/runner"
)

// Observer is notified of every event the aggregator applies. Calls come
// from the aggregator's owning goroutine.
type Observer interface {
	ObserveSent(count int)
	ObserveCompletion(rec runner.CompletionRecord)
}

// maxTrackedLatency bounds the HDR histogram. Requests time out after at
// most 120s, so anything above is clamped.
const maxTrackedLatency = 5 * time.Minute

// Aggregator holds the running statistics of one run.
type Aggregator struct {
	total    int
	clock    func() time.Time
	start    time.Time
	finished time.Duration // elapsed, once frozen
	frozen   bool
	done     bool

	count, sent               int
	success, failed, timeouts int
	bytes                     int64

	minLatency, maxLatency time.Duration
	hasLatency             bool
	latencies              []time.Duration
	hist                   *hdrhistogram.Histogram

	dnsLookup, dnsResolution       []time.Duration
	sumDNSLookup, sumDNSResolution time.Duration
	avgDNSLookup, avgDNSResolution time.Duration

	requestsPerSec, bytesPerSec float64

	statusCodes map[int]int
	categories  map[cache.Category]int
	errorKinds  map[string]int
	log         *RollingLog
	observer    Observer
}

// NewAggregator returns an empty aggregator for a run of total requests.
// A nil clock means time.Now.
func NewAggregator(total int, clock func() time.Time) *Aggregator {
	if clock == nil {
		clock = time.Now
	}
	return &Aggregator{
		total:       total,
		clock:       clock,
		start:       clock(),
		latencies:   make([]time.Duration, 0, max(total, 0)),
		hist:        hdrhistogram.New(1, maxTrackedLatency.Microseconds(), 3),
		statusCodes: make(map[int]int),
		categories:  make(map[cache.Category]int),
		errorKinds:  make(map[string]int),
		log:         NewRollingLog(DefaultLogCapacity),
	}
}

// Start resets the reference time for rates and elapsed time.
func (a *Aggregator) Start() { a.start = a.clock() }

// SetObserver registers o. Pass nil to remove it.
func (a *Aggregator) SetObserver(o Observer) { a.observer = o }

// Drain applies everything currently buffered on the run's channels without
// blocking and returns the number of completions applied.
func (a *Aggregator) Drain(run *runner.Run) int {
	if run == nil {
		return 0
	}
	applied := 0
	for {
		select {
		case rec := <-run.Results:
			a.Record(rec)
			applied++
		default:
			a.drainSent(run.Sent)
			return applied
		}
	}
}

func (a *Aggregator) drainSent(sent <-chan runner.SentEvent) {
	for {
		select {
		case ev := <-sent:
			a.AddSent(ev)
		default:
			return
		}
	}
}

// AddSent counts a sent event.
func (a *Aggregator) AddSent(ev runner.SentEvent) {
	a.sent += ev.Count
	if a.observer != nil {
		a.observer.ObserveSent(ev.Count)
	}
}

// Record applies one completion record.
func (a *Aggregator) Record(rec runner.CompletionRecord) {
	a.latencies = append(a.latencies, rec.Duration)
	_ = a.hist.RecordValue(min(max(rec.Duration.Microseconds(), 1), maxTrackedLatency.Microseconds()))
	a.log.Push(rec)

	if rec.CacheStatus != nil {
		a.categories[cache.CategoryOf(*rec.CacheStatus)]++
	}
	if rec.DNS != nil {
		a.dnsLookup = append(a.dnsLookup, rec.DNS.Lookup)
		a.dnsResolution = append(a.dnsResolution, rec.DNS.Resolution)
		a.sumDNSLookup += rec.DNS.Lookup
		a.sumDNSResolution += rec.DNS.Resolution
		n := time.Duration(len(a.dnsLookup))
		a.avgDNSLookup = a.sumDNSLookup / n
		a.avgDNSResolution = a.sumDNSResolution / n
	}

	if !a.hasLatency || rec.Duration < a.minLatency {
		a.minLatency = rec.Duration
	}
	if !a.hasLatency || rec.Duration > a.maxLatency {
		a.maxLatency = rec.Duration
	}
	a.hasLatency = true

	if rec.Err != "" {
		a.errorKinds[ClassifyError(rec.Err)]++
	}

	if !rec.HasStatus() {
		a.timeouts++
		a.count++
	} else {
		a.statusCodes[rec.StatusCode]++
		if rec.ContentLength > 0 {
			a.bytes += rec.ContentLength
		}
		a.count++
		if rec.Success() {
			a.success++
		} else {
			a.failed++
		}
	}

	if !a.done && a.total > 0 && a.count >= a.total {
		a.done = true
		a.freeze()
	}
	a.updateRates()

	if a.observer != nil {
		a.observer.ObserveCompletion(rec)
	}
}

// Stop freezes elapsed time, and with it the rates, at the current instant.
// Records applied afterwards still count. It is a no-op once frozen.
func (a *Aggregator) Stop() {
	a.freeze()
	a.updateRates()
}

func (a *Aggregator) freeze() {
	if a.frozen {
		return
	}
	a.frozen = true
	a.finished = a.clock().Sub(a.start)
}

// Elapsed is the time since Start, frozen once every request completed or
// the aggregator was stopped.
func (a *Aggregator) Elapsed() time.Duration {
	if a.frozen {
		return a.finished
	}
	return a.clock().Sub(a.start)
}

func (a *Aggregator) updateRates() {
	secs := a.Elapsed().Seconds()
	if secs <= 0 {
		a.requestsPerSec, a.bytesPerSec = 0, 0
		return
	}
	a.requestsPerSec = float64(a.count) / secs
	a.bytesPerSec = float64(a.bytes) / secs
}

func (a *Aggregator) Count() int { return a.count }
func (a *Aggregator) Sent() int  { return a.sent }
func (a *Aggregator) Total() int { return a.total }

// Finished reports whether every request of the run has completed.
func (a *Aggregator) Finished() bool { return a.done }

// Log returns the rolling request log.
func (a *Aggregator) Log() *RollingLog { return a.log }
