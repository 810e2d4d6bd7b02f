// Package metrics aggregates the output of a dispatch run into live
// statistics.
//
// # Aggregator
//
// An [Aggregator] is created per run and owned by a single goroutine, usually
// the presenter's render loop. On every tick that goroutine drains the run's
// channels and takes a snapshot:
//
//	agg := metrics.NewAggregator(total, time.Now)
//	agg.Start()
//	for range ticker.C {
//		agg.Drain(run)
//		snap := agg.Snapshot()
//		render(snap)
//	}
//
// The Aggregator is not safe for concurrent use. Nothing else mutates it, so
// it needs no locks.
//
// # Statistics
//
// Average, standard deviation and percentiles are computed from the full
// latency series, including requests that failed or timed out, using their
// measured wall-clock duration. The [RollingLog] only keeps the 100 most
// recent records for display.
//
// # Observers
//
// An [Observer] sees every sent event and completion as it is applied. The
// Prometheus exporter in the telemetry package is one.
package metrics
