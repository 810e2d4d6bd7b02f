package control

import (
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/pepe-http/pepe/internal/metrics"
	"github.com/pepe-http/pepe/internal/runner"
)

// Target describes what a run sends, for display.
type Target struct {
	URL         string
	Method      string
	Total       int
	Concurrency int
	Timeout     time.Duration
	HTTP3       bool
}

// Session is one launched run together with the aggregate it feeds. A
// restart replaces the whole session; an interrupt keeps it.
type Session struct {
	RunID       ulid.ULID
	Run         *runner.Run
	Aggregator  *metrics.Aggregator
	Target      Target
	Started     time.Time
	Interrupted bool
}

// Drain applies every buffered event to the aggregator without blocking.
func (s *Session) Drain() int { return s.Aggregator.Drain(s.Run) }

// Tick drains pending events and returns a fresh snapshot. Only the
// presenting goroutine may call it.
func (s *Session) Tick() metrics.Snapshot {
	s.Drain()
	return s.Aggregator.Snapshot()
}

// Settled reports whether every unit of the run has returned. Once it
// reports true, one more Tick observes every record the run produced.
func (s *Session) Settled() bool {
	select {
	case <-s.Run.Done:
		return true
	default:
		return false
	}
}

// InFlight is the number of permits currently held by the run.
func (s *Session) InFlight() int { return s.Run.Gate().InFlight() }
