package runner

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/pepe-http/pepe/internal/cache"
	"github.com/pepe-http/pepe/internal/dnsprobe"
	"github.com/pepe-http/pepe/internal/httpclient"
	"github.com/pepe-http/pepe/internal/tracing"
)

// Dispatcher issues exactly Total requests with at most Concurrency in flight.
type Dispatcher struct {
	opt      Options
	host     string
	builder  *httpclient.RequestBuilder
	failures *rate.Sometimes
}

// Run is one launched dispatch. Sent and Results are buffered to Total and
// are never closed; consumers drain them without blocking.
type Run struct {
	ID       ulid.ULID
	Sent     <-chan SentEvent
	Results  <-chan CompletionRecord
	Launched <-chan struct{} // closed once every unit is scheduled or the run is cancelled
	Done     <-chan struct{} // closed once every scheduled unit has returned

	gate   *Gate
	cancel context.CancelFunc
}

func New(opt Options) (*Dispatcher, error) {
	if err := opt.validate(); err != nil {
		return nil, err
	}
	builder, err := httpclient.NewRequestBuilder(opt.Descriptor)
	if err != nil {
		return nil, err
	}
	return &Dispatcher{
		opt:      opt,
		host:     opt.Descriptor.Host(),
		builder:  builder,
		failures: &rate.Sometimes{First: 3, Interval: time.Second},
	}, nil
}

// Launch starts a run and returns immediately. Cancelling ctx, or calling
// Cancel on the returned Run, aborts every unit that has not finished.
func (d *Dispatcher) Launch(ctx context.Context) *Run {
	ctx, cancel := context.WithCancel(ctx)

	id := d.opt.RunID
	if id == (ulid.ULID{}) {
		id = ulid.Make()
	}
	sent := make(chan SentEvent, d.opt.Total)
	results := make(chan CompletionRecord, d.opt.Total)
	launched := make(chan struct{})
	done := make(chan struct{})

	run := &Run{
		ID:       id,
		Sent:     sent,
		Results:  results,
		Launched: launched,
		Done:     done,
		gate:     NewGate(d.opt.Concurrency),
		cancel:   cancel,
	}

	d.opt.Logger.Debug().
		Str("run_id", id.String()).
		Int("total", d.opt.Total).
		Int("concurrency", d.opt.Concurrency).
		Str("url", d.opt.Descriptor.URL()).
		Msg("run launched")

	go d.supervise(ctx, run, sent, results, launched, done)
	return run
}

func (d *Dispatcher) supervise(ctx context.Context, run *Run, sent chan<- SentEvent, results chan<- CompletionRecord, launched, done chan<- struct{}) {
	var wg sync.WaitGroup
	scheduled := 0
	for ; scheduled < d.opt.Total; scheduled++ {
		if err := run.gate.Acquire(ctx); err != nil {
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.unit(ctx, run, sent, results)
		}()
	}
	close(launched)

	wg.Wait()
	close(done)

	d.opt.Logger.Debug().
		Str("run_id", run.ID.String()).
		Int("scheduled", scheduled).
		Bool("cancelled", ctx.Err() != nil).
		Msg("run finished")
}

// unit runs with a permit already held and releases it once the exchange
// is resolved, before the record is reported.
func (d *Dispatcher) unit(ctx context.Context, run *Run, sent chan<- SentEvent, results chan<- CompletionRecord) {
	held := true
	release := func() {
		if held {
			held = false
			run.gate.Release()
		}
	}
	defer release()

	start := time.Now()
	select {
	case sent <- SentEvent{Count: 1}:
	default:
	}

	var timing dnsprobe.Timing
	if d.opt.Probe != nil {
		timing = d.opt.Probe.Measure(ctx, d.host)
	}

	out := d.exchange(ctx)
	duration := time.Since(start)
	release()

	if ctx.Err() != nil {
		return
	}
	if out.Err != nil {
		d.logFailure(run.ID, out)
	}

	rec := CompletionRecord{
		RunID:          run.ID,
		Duration:       duration,
		StatusCode:     out.StatusCode,
		ContentLength:  out.ContentLength,
		BodyPreview:    out.Preview,
		HasBodyPreview: out.HasPreview,
		DNS:            &timing,
		Proto:          out.Proto,
		ConnReused:     out.ConnReused,
		TTFB:           out.TTFB,
	}
	if out.Header != nil {
		rec.CacheStatus = cache.Classify(out.Header)
	}
	if out.Err != nil {
		rec.Err = out.Err.Error()
	}

	select {
	case results <- rec:
	default:
	}
}

func (d *Dispatcher) exchange(ctx context.Context) httpclient.Outcome {
	if d.opt.Tracer == nil {
		return d.send(ctx)
	}
	spanCtx, span := tracing.StartRequestSpan(ctx, d.opt.Tracer, d.opt.Descriptor.Method(), d.opt.Descriptor.URL())
	out := d.send(spanCtx)
	tracing.EndSpan(span, out.Err,
		attribute.Int("http.response.status_code", out.StatusCode),
		attribute.Int64("http.response.body.size", out.ContentLength),
		attribute.Bool("pepe.conn_reused", out.ConnReused),
	)
	return out
}

func (d *Dispatcher) send(ctx context.Context) httpclient.Outcome {
	req, err := d.builder.Build(ctx)
	if err != nil {
		return httpclient.Outcome{ContentLength: -1, Err: err}
	}
	if d.opt.Propagate {
		tracing.InjectHTTPHeaders(ctx, req.Header)
	}
	return httpclient.Execute(d.opt.Client, req)
}

func (d *Dispatcher) logFailure(id ulid.ULID, out httpclient.Outcome) {
	d.failures.Do(func() {
		d.opt.Logger.Debug().
			Err(out.Err).
			Str("run_id", id.String()).
			Int("status", out.StatusCode).
			Bool("timeout", httpclient.IsTimeout(out.Err)).
			Msg("request failed")
	})
}

// Gate exposes the run's permit gate.
func (r *Run) Gate() *Gate { return r.gate }

// Cancel aborts the run. In-flight requests are dropped and their records
// are not reported.
func (r *Run) Cancel() { r.cancel() }

// Wait blocks until every unit has returned or ctx is done.
func (r *Run) Wait(ctx context.Context) error {
	select {
	case <-r.Done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
