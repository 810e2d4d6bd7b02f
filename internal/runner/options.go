package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/pepe-http/pepe/internal/dnsprobe"
	"github.com/pepe-http/pepe/internal/httpclient"
	"github.com/pepe-http/pepe/internal/request"
)

var (
	ErrInvalidTotal            = errors.New("number of requests must be at least 1")
	ErrInvalidConcurrency      = errors.New("concurrency must be at least 1")
	ErrConcurrencyExceedsTotal = errors.New("concurrency cannot exceed the number of requests")
	ErrMissingClient           = errors.New("client is required")
	ErrMissingDescriptor       = errors.New("request descriptor is required")
)

// Prober times DNS resolution for a host. *dnsprobe.Probe satisfies it.
type Prober interface {
	Measure(ctx context.Context, host string) dnsprobe.Timing
}

// Options configure a Dispatcher.
type Options struct {
	Total       int                 // requests per run (N)
	Concurrency int                 // permits (C), 1 <= C <= N
	Client      httpclient.Doer     // shared client
	Descriptor  *request.Descriptor // request every unit sends
	Probe       Prober              // optional DNS timing
	Tracer      trace.Tracer        // optional per-request spans
	Propagate   bool                // inject W3C trace headers
	Logger      zerolog.Logger
	RunID       ulid.ULID // zero means generate one per launch
}

func (o Options) validate() error {
	switch {
	case o.Total < 1:
		return fmt.Errorf("%w: got %d", ErrInvalidTotal, o.Total)
	case o.Concurrency < 1:
		return fmt.Errorf("%w: got %d", ErrInvalidConcurrency, o.Concurrency)
	case o.Concurrency > o.Total:
		return fmt.Errorf("%w: %d > %d", ErrConcurrencyExceedsTotal, o.Concurrency, o.Total)
	case o.Client == nil:
		return ErrMissingClient
	case o.Descriptor == nil:
		return ErrMissingDescriptor
	}
	return nil
}
