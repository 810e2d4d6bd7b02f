package output

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pepe-http/pepe/internal/control"
	"github.com/pepe-http/pepe/internal/metrics"
)

// DefaultProgressInterval is how often the headless presenter prints.
const DefaultProgressInterval = time.Second

// ProgressLine renders a one-line status of a run.
func ProgressLine(snap metrics.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%5.1f%%] %d/%d | ok %d | failed %d | timeouts %d | %.1f req/s",
		snap.Progress, snap.Count, snap.Total, snap.Success, snap.Failed, snap.Timeouts, snap.RequestsPerSec)
	for _, p := range snap.Percentiles {
		if p.P == 50 || p.P == 95 {
			fmt.Fprintf(&b, " | p%d %.1fms", p.P, p.Ms)
		}
	}
	if snap.Count > 0 {
		fmt.Fprintf(&b, " | cache hit %.1f%%", snap.CacheHitRate)
	}
	return b.String()
}

// Headless presents a run as periodic progress lines, for pipes and CI. It
// confirms on its own once the run has settled.
type Headless struct {
	w        io.Writer
	interval time.Duration
}

func NewHeadless(w io.Writer, interval time.Duration) *Headless {
	if w == nil {
		w = io.Discard
	}
	if interval <= 0 {
		interval = DefaultProgressInterval
	}
	return &Headless{w: w, interval: interval}
}

func (h *Headless) Present(ctx context.Context, s *control.Session) (control.Command, error) {
	fmt.Fprintf(h.w, "%s %s: %d requests, concurrency %d (run %s)\n",
		s.Target.Method, s.Target.URL, s.Target.Total, s.Target.Concurrency, s.RunID)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		if err := ctx.Err(); err != nil {
			return control.CommandQuit, err
		}
		settled := s.Settled()
		snap := s.Tick()
		if settled {
			fmt.Fprintln(h.w, ProgressLine(snap))
			return control.CommandConfirm, nil
		}
		select {
		case <-ctx.Done():
			return control.CommandQuit, ctx.Err()
		case <-s.Run.Done:
		case <-ticker.C:
			fmt.Fprintln(h.w, ProgressLine(snap))
		}
	}
}
