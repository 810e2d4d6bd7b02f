// Package cache classifies CDN and proxy cache headers into a fixed set of
// statuses and coarse hit/miss categories.
package cache

import (
	"net/http"
	"strings"
)

// Status is the canonical cache status reported by a response.
type Status int

const (
	StatusUnknown Status = iota
	StatusHit
	StatusMiss
	StatusStale
	StatusExpired
	StatusRevalidated
	StatusBypass
	StatusDynamic
	StatusError
)

// Category groups statuses for hit-rate reporting.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryHit
	CategoryMiss
)

// Headers lists the inspected headers in precedence order. The first one
// present on a response decides its status.
var Headers = []string{
	"x-cache",
	"x-cache-status",
	"cf-cache-status",
	"x-cache-lookup",
	"x-cdn-cache-status",
	"x-backend-cache-status",
	"x-vercel-cache",
}

var statusNames = map[string]Status{
	"hit":         StatusHit,
	"miss":        StatusMiss,
	"stale":       StatusStale,
	"expired":     StatusExpired,
	"revalidated": StatusRevalidated,
	"bypass":      StatusBypass,
	"dynamic":     StatusDynamic,
	"error":       StatusError,
}

// ParseStatus maps a header value to a Status, ignoring case. Values such as
// "HIT from edge-1" are matched on their first token. Anything unrecognised
// is StatusUnknown.
func ParseStatus(value string) Status {
	fields := strings.FieldsFunc(value, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ','
	})
	if len(fields) == 0 {
		return StatusUnknown
	}
	if s, ok := statusNames[strings.ToLower(fields[0])]; ok {
		return s
	}
	return StatusUnknown
}

// Classify returns the status from the first recognised cache header, or nil
// when none of them is present.
func Classify(h http.Header) *Status {
	for _, name := range Headers {
		values := h.Values(name)
		if len(values) == 0 {
			continue
		}
		s := ParseStatus(values[0])
		return &s
	}
	return nil
}

// CategoryOf maps a status to its category.
func CategoryOf(s Status) Category {
	switch s {
	case StatusHit, StatusRevalidated, StatusStale:
		return CategoryHit
	case StatusMiss, StatusExpired, StatusBypass, StatusDynamic:
		return CategoryMiss
	default:
		return CategoryUnknown
	}
}

// Category returns the status category.
func (s Status) Category() Category { return CategoryOf(s) }

func (s Status) String() string {
	switch s {
	case StatusHit:
		return "HIT"
	case StatusMiss:
		return "MISS"
	case StatusStale:
		return "STALE"
	case StatusExpired:
		return "EXPIRED"
	case StatusRevalidated:
		return "REVALIDATED"
	case StatusBypass:
		return "BYPASS"
	case StatusDynamic:
		return "DYNAMIC"
	case StatusError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the status name for JSON and YAML exports.
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (c Category) String() string {
	switch c {
	case CategoryHit:
		return "hit"
	case CategoryMiss:
		return "miss"
	default:
		return "unknown"
	}
}

// MarshalText lets categories be used as JSON object keys.
func (c Category) MarshalText() ([]byte, error) { return []byte(c.String()), nil }
