package runner

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// Gate is a counting semaphore that also tracks how many permits are held
// and the highest number ever held at once.
type Gate struct {
	size     int64
	sem      *semaphore.Weighted
	inFlight atomic.Int64
	peak     atomic.Int64
}

func NewGate(permits int) *Gate {
	if permits < 1 {
		permits = 1
	}
	return &Gate{size: int64(permits), sem: semaphore.NewWeighted(int64(permits))}
}

// Acquire blocks until a permit is free or ctx is done.
func (g *Gate) Acquire(ctx context.Context) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	n := g.inFlight.Add(1)
	for {
		p := g.peak.Load()
		if n <= p || g.peak.CompareAndSwap(p, n) {
			return nil
		}
	}
}

// Release returns a permit.
func (g *Gate) Release() {
	g.inFlight.Add(-1)
	g.sem.Release(1)
}

func (g *Gate) Size() int     { return int(g.size) }
func (g *Gate) InFlight() int { return int(g.inFlight.Load()) }
func (g *Gate) Peak() int     { return int(g.peak.Load()) }
