// Package dnsprobe times host resolution for a target separately from the
// request that follows it.
package dnsprobe

import (
	"context"
	"net"
	"net/netip"
	"time"
)

// Timing holds the two measured phases of a lookup. A zero value means the
// probe failed or was skipped.
type Timing struct {
	Lookup     time.Duration `json:"lookup"`
	Resolution time.Duration `json:"resolution"`
}

// IsZero reports whether no time was measured.
func (t Timing) IsZero() bool { return t.Lookup == 0 && t.Resolution == 0 }

// Resolver is the subset of *net.Resolver used by the probe.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// Probe measures DNS timing. The zero value uses net.DefaultResolver.
type Probe struct {
	Resolver Resolver
}

// New returns a probe backed by resolver, or net.DefaultResolver when nil.
func New(resolver Resolver) *Probe {
	return &Probe{Resolver: resolver}
}

// Measure resolves host. Lookup spans the resolver call and Resolution
// spans turning its answer into usable addresses. Errors, and answers
// without a usable address, are absorbed and reported as a zero Timing.
func (p *Probe) Measure(ctx context.Context, host string) Timing {
	if p == nil || host == "" {
		return Timing{}
	}

	resolver := p.Resolver
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	start := time.Now()
	answers, err := resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return Timing{}
	}
	lookup := time.Since(start)

	start = time.Now()
	usable := 0
	for _, a := range answers {
		if _, ok := netip.AddrFromSlice(a.IP); ok {
			usable++
		}
	}
	if usable == 0 {
		return Timing{}
	}
	return Timing{Lookup: lookup, Resolution: time.Since(start)}
}
