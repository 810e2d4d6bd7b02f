// Package runner dispatches a fixed number of HTTP requests with bounded
// concurrency.
//
// A [Dispatcher] is built once per configuration. Each call to
// [Dispatcher.Launch] starts an independent [Run] with its own channels and
// its own [Gate]:
//
//	d, err := runner.New(runner.Options{
//		Total:       1000,
//		Concurrency: 50,
//		Client:      client,
//		Descriptor:  desc,
//		Probe:       dnsprobe.New(nil),
//	})
//	run := d.Launch(ctx)
//
// Every unit acquires a permit, emits a [SentEvent], probes DNS, sends the
// request, releases the permit and finally reports a [CompletionRecord].
// Sends on both channels never block; a full channel drops the value.
//
// Cancelling a run stops scheduling, aborts in-flight requests and drops
// their records. Permits are always released.
package runner
