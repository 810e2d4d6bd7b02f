package metrics_test

import (
	"context"
	"math"
	"net/http"
	"testing"
	"time"

	"github.com/pepe-http/pepe/internal/cache"
	"github.com/pepe-http/pepe/internal/dnsprobe"
	"github.com/pepe-http/pepe/internal/metrics"
	"github.com/pepe-http/pepe/internal/request"
	"github.com/pepe-http/pepe/internal/runner"
)

// fakeClock advances only when told to.
type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func status(s cache.Status) *cache.Status { return &s }

func TestFreshAggregatorIsEmpty(t *testing.T) {
	agg := metrics.NewAggregator(10, nil)
	snap := agg.Snapshot()
	if snap.Count != 0 || snap.Sent != 0 || snap.Success != 0 || snap.Failed != 0 || snap.Timeouts != 0 {
		t.Fatalf("expected zero counters, got %+v", snap)
	}
	if snap.Percentiles != nil || len(snap.Recent) != 0 || snap.StatusCodes != nil {
		t.Fatalf("expected no derived data, got %+v", snap)
	}
	if snap.Min != 0 || snap.Max != 0 || snap.Avg != 0 || snap.StdDev != 0 {
		t.Fatalf("expected zero latency stats, got min=%s max=%s avg=%s std=%s", snap.Min, snap.Max, snap.Avg, snap.StdDev)
	}
	if snap.CacheHitRate != 0 || snap.Progress != 0 {
		t.Fatalf("expected zero rates, got hit=%f progress=%f", snap.CacheHitRate, snap.Progress)
	}
}

func TestRecordCountersPartitionCount(t *testing.T) {
	clock := newClock()
	agg := metrics.NewAggregator(6, clock.Now)
	agg.Start()

	records := []runner.CompletionRecord{
		{Duration: ms(10), StatusCode: 200, ContentLength: 100},
		{Duration: ms(20), StatusCode: 204, ContentLength: 0},
		{Duration: ms(30), StatusCode: 404, ContentLength: 50},
		{Duration: ms(40), StatusCode: 500, ContentLength: -1},
		{Duration: ms(50), ContentLength: -1, Err: "Get \"http://x\": context deadline exceeded (Client.Timeout exceeded while awaiting headers)"},
		{Duration: ms(60), StatusCode: 301, ContentLength: 10},
	}
	for _, r := range records {
		agg.AddSent(runner.SentEvent{Count: 1})
		clock.Advance(500 * time.Millisecond)
		agg.Record(r)
	}

	snap := agg.Snapshot()
	if snap.Count != 6 || snap.Sent != 6 {
		t.Fatalf("expected count=6 sent=6, got %d/%d", snap.Count, snap.Sent)
	}
	if snap.Success != 2 || snap.Failed != 3 || snap.Timeouts != 1 {
		t.Fatalf("expected 2/3/1, got %d/%d/%d", snap.Success, snap.Failed, snap.Timeouts)
	}
	if snap.Success+snap.Failed+snap.Timeouts != snap.Count {
		t.Fatalf("counters do not partition count")
	}
	if snap.Bytes != 160 {
		t.Fatalf("expected 160 bytes, got %d", snap.Bytes)
	}
	if !snap.Finished || snap.Progress != 100 {
		t.Fatalf("expected finished run at 100%%, got %v %f", snap.Finished, snap.Progress)
	}
	if snap.Elapsed != 3*time.Second {
		t.Fatalf("expected elapsed 3s, got %s", snap.Elapsed)
	}
	if snap.RequestsPerSec != 2 {
		t.Fatalf("expected 2 req/s, got %f", snap.RequestsPerSec)
	}
	if math.Abs(snap.BytesPerSec-160.0/3) > 1e-9 {
		t.Fatalf("expected %f bytes/s, got %f", 160.0/3, snap.BytesPerSec)
	}

	wantCodes := []metrics.StatusCount{
		{Code: 200, Count: 1}, {Code: 204, Count: 1}, {Code: 301, Count: 1}, {Code: 404, Count: 1}, {Code: 500, Count: 1},
	}
	if len(snap.StatusCodes) != len(wantCodes) {
		t.Fatalf("expected %d status rows, got %v", len(wantCodes), snap.StatusCodes)
	}
	for i, want := range wantCodes {
		if snap.StatusCodes[i] != want {
			t.Fatalf("row %d: expected %+v, got %+v", i, want, snap.StatusCodes[i])
		}
	}
	if len(snap.ErrorKinds) != 1 || snap.ErrorKinds[0].Kind != "Timeout" {
		t.Fatalf("expected one timeout error kind, got %+v", snap.ErrorKinds)
	}
}

func TestElapsedFreezesWhenComplete(t *testing.T) {
	clock := newClock()
	agg := metrics.NewAggregator(1, clock.Now)
	agg.Start()

	clock.Advance(2 * time.Second)
	if agg.Elapsed() != 2*time.Second {
		t.Fatalf("expected elapsed to follow the clock")
	}
	agg.Record(runner.CompletionRecord{Duration: ms(5), StatusCode: 200})
	clock.Advance(time.Minute)
	if got := agg.Snapshot().Elapsed; got != 2*time.Second {
		t.Fatalf("expected frozen elapsed 2s, got %s", got)
	}
}

func TestStopFreezesElapsedAndRates(t *testing.T) {
	clock := newClock()
	agg := metrics.NewAggregator(10, clock.Now)
	agg.Start()

	clock.Advance(2 * time.Second)
	agg.Record(runner.CompletionRecord{Duration: ms(5), StatusCode: 200, ContentLength: 100})
	agg.Stop()
	clock.Advance(time.Minute)
	agg.Record(runner.CompletionRecord{Duration: ms(5), StatusCode: 200, ContentLength: 100})

	snap := agg.Snapshot()
	if snap.Elapsed != 2*time.Second {
		t.Fatalf("expected elapsed frozen at 2s, got %s", snap.Elapsed)
	}
	if snap.Count != 2 || snap.RequestsPerSec != 1 || snap.BytesPerSec != 100 {
		t.Fatalf("unexpected counters after stop: count=%d rps=%f bps=%f", snap.Count, snap.RequestsPerSec, snap.BytesPerSec)
	}
	if snap.Finished {
		t.Fatal("a stopped run is not finished")
	}

	agg.Stop()
	if agg.Elapsed() != 2*time.Second {
		t.Fatal("a second Stop must not move the clock")
	}
}

func TestRatesAreZeroWithoutElapsedTime(t *testing.T) {
	clock := newClock()
	agg := metrics.NewAggregator(2, clock.Now)
	agg.Start()
	agg.Record(runner.CompletionRecord{Duration: ms(5), StatusCode: 200, ContentLength: 10})
	snap := agg.Snapshot()
	if snap.RequestsPerSec != 0 || snap.BytesPerSec != 0 {
		t.Fatalf("expected zero rates, got %f %f", snap.RequestsPerSec, snap.BytesPerSec)
	}
}

func TestLatencyStatsIncludeTimeouts(t *testing.T) {
	agg := metrics.NewAggregator(5, nil)
	for _, d := range []int{10, 20, 30, 40} {
		agg.Record(runner.CompletionRecord{Duration: ms(d), StatusCode: 200})
	}
	agg.Record(runner.CompletionRecord{Duration: ms(50), ContentLength: -1})

	snap := agg.Snapshot()
	if snap.Min != ms(10) || snap.Max != ms(50) {
		t.Fatalf("expected min 10ms max 50ms, got %s %s", snap.Min, snap.Max)
	}
	if snap.Avg != ms(30) {
		t.Fatalf("expected avg 30ms, got %s", snap.Avg)
	}
	// population std dev of 10..50 is sqrt(200) ms
	want := time.Duration(math.Sqrt(200) * float64(time.Millisecond))
	if diff := snap.StdDev - want; diff < -time.Microsecond || diff > time.Microsecond {
		t.Fatalf("expected std dev %s, got %s", want, snap.StdDev)
	}
	if snap.MinMs() != 10 || snap.MaxMs() != 50 || snap.AvgMs() != 30 {
		t.Fatalf("unexpected ms accessors: %f %f %f", snap.MinMs(), snap.MaxMs(), snap.AvgMs())
	}
}

func TestPercentilesExample(t *testing.T) {
	agg := metrics.NewAggregator(5, nil)
	for _, d := range []int{50, 10, 40, 20, 30} {
		agg.Record(runner.CompletionRecord{Duration: ms(d), StatusCode: 200})
	}
	got := map[int]time.Duration{}
	for _, p := range agg.Percentiles() {
		got[p.P] = p.Value
	}
	want := map[int]time.Duration{
		0: ms(10), 10: ms(10), 25: ms(20), 50: ms(30), 75: ms(40), 90: ms(50), 95: ms(50), 99: ms(50), 100: ms(50),
	}
	for p, v := range want {
		if got[p] != v {
			t.Errorf("P%d = %s, want %s", p, got[p], v)
		}
	}
}

func TestPercentilesSingleSample(t *testing.T) {
	ps := metrics.PercentilesOf([]time.Duration{ms(7)}, []int{0, 50, 100})
	for _, p := range ps {
		if p.Value != ms(7) || p.Ms != 7 {
			t.Fatalf("P%d = %s, want 7ms", p.P, p.Value)
		}
	}
}

func TestRollingLogKeepsLastHundred(t *testing.T) {
	agg := metrics.NewAggregator(150, nil)
	for i := 1; i <= 150; i++ {
		agg.Record(runner.CompletionRecord{Duration: ms(i), StatusCode: 200})
	}
	items := agg.Snapshot().Recent
	if len(items) != 100 {
		t.Fatalf("expected 100 log entries, got %d", len(items))
	}
	if items[0].Duration != ms(51) || items[99].Duration != ms(150) {
		t.Fatalf("expected entries 51..150, got %s..%s", items[0].Duration, items[99].Duration)
	}
	for i := 1; i < len(items); i++ {
		if items[i].Duration <= items[i-1].Duration {
			t.Fatalf("log out of arrival order at %d", i)
		}
	}
	if agg.Snapshot().Count != 150 {
		t.Fatalf("statistics must cover all records, not just the log")
	}
}

func TestCacheCategoriesAndHitRate(t *testing.T) {
	agg := metrics.NewAggregator(4, nil)
	agg.Record(runner.CompletionRecord{Duration: ms(1), StatusCode: 200, CacheStatus: status(cache.StatusHit)})
	agg.Record(runner.CompletionRecord{Duration: ms(1), StatusCode: 200, CacheStatus: status(cache.StatusStale)})
	agg.Record(runner.CompletionRecord{Duration: ms(1), StatusCode: 200, CacheStatus: status(cache.StatusBypass)})
	agg.Record(runner.CompletionRecord{Duration: ms(1), StatusCode: 200})

	snap := agg.Snapshot()
	if snap.CacheCategories[cache.CategoryHit] != 2 || snap.CacheCategories[cache.CategoryMiss] != 1 {
		t.Fatalf("unexpected categories %v", snap.CacheCategories)
	}
	if snap.CacheHitRate != 50 {
		t.Fatalf("expected 50%% hit rate, got %f", snap.CacheHitRate)
	}
}

func TestDNSAverages(t *testing.T) {
	agg := metrics.NewAggregator(3, nil)
	agg.Record(runner.CompletionRecord{Duration: ms(1), StatusCode: 200, DNS: &dnsprobe.Timing{Lookup: ms(2), Resolution: ms(1)}})
	agg.Record(runner.CompletionRecord{Duration: ms(1), StatusCode: 200, DNS: &dnsprobe.Timing{Lookup: ms(4), Resolution: ms(3)}})
	agg.Record(runner.CompletionRecord{Duration: ms(1), StatusCode: 200})

	snap := agg.Snapshot()
	if snap.DNSLookupAvg != ms(3) || snap.DNSResolutionAvg != ms(2) {
		t.Fatalf("expected 3ms/2ms, got %s/%s", snap.DNSLookupAvg, snap.DNSResolutionAvg)
	}
}

type countingObserver struct {
	sent, done int
}

func (o *countingObserver) ObserveSent(n int) {
	o.sent += n
}

func (o *countingObserver) ObserveCompletion(runner.CompletionRecord) {
	o.done++
}

func TestDrainAppliesRunOutput(t *testing.T) {
	desc, err := request.New("http://example.com", "GET", nil, nil, request.TransportSettings{TimeoutSeconds: 5})
	if err != nil {
		t.Fatal(err)
	}
	d, err := runner.New(runner.Options{Total: 20, Concurrency: 4, Client: okDoer{}, Descriptor: desc})
	if err != nil {
		t.Fatal(err)
	}
	run := d.Launch(context.Background())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := run.Wait(ctx); err != nil {
		t.Fatal(err)
	}

	agg := metrics.NewAggregator(20, nil)
	obs := &countingObserver{}
	agg.SetObserver(obs)
	if n := agg.Drain(run); n != 20 {
		t.Fatalf("expected 20 completions drained, got %d", n)
	}
	if agg.Count() != 20 || agg.Sent() != 20 || !agg.Finished() {
		t.Fatalf("expected finished run with 20 sent and completed, got %d/%d", agg.Count(), agg.Sent())
	}
	if obs.sent != 20 || obs.done != 20 {
		t.Fatalf("observer saw %d sent and %d completions", obs.sent, obs.done)
	}
	if agg.Drain(run) != 0 {
		t.Fatalf("second drain should find nothing")
	}
	if agg.Drain(nil) != 0 {
		t.Fatalf("nil run should drain nothing")
	}
}

type okDoer struct{}

func (okDoer) Do(req *http.Request) (*http.Response, error) {
	return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, ContentLength: 0, Header: http.Header{}}, nil
}
