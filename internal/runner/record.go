package runner

import (
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/pepe-http/pepe/internal/cache"
	"github.com/pepe-http/pepe/internal/dnsprobe"
)

// SentEvent is emitted when a unit starts transmitting. Count is always 1.
type SentEvent struct {
	Count int
}

// CompletionRecord is the result of one request. StatusCode 0 means the
// request failed or timed out before a response arrived.
type CompletionRecord struct {
	RunID          ulid.ULID        `json:"run_id"`
	Duration       time.Duration    `json:"duration"`
	StatusCode     int              `json:"status_code,omitempty"`
	ContentLength  int64            `json:"content_length"`
	BodyPreview    string           `json:"body_preview,omitempty"`
	HasBodyPreview bool             `json:"-"`
	DNS            *dnsprobe.Timing `json:"dns,omitempty"`
	CacheStatus    *cache.Status    `json:"cache_status,omitempty"`
	Err            string           `json:"error,omitempty"`
	Proto          string           `json:"proto,omitempty"`
	ConnReused     bool             `json:"conn_reused,omitempty"`
	TTFB           time.Duration    `json:"ttfb,omitempty"`
}

// HasStatus reports whether a response status was received.
func (r CompletionRecord) HasStatus() bool { return r.StatusCode != 0 }

// HasContentLength reports whether the size of the response is known.
func (r CompletionRecord) HasContentLength() bool { return r.ContentLength >= 0 }

// Success reports a 2xx response.
func (r CompletionRecord) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
