package metrics

import "github.com/pepe-http/pepe/internal/runner"

// DefaultLogCapacity is the number of records kept for the request log.
const DefaultLogCapacity = 100

// RollingLog is a fixed-capacity FIFO of completion records. Once full, each
// push evicts the oldest record.
type RollingLog struct {
	buf   []runner.CompletionRecord
	head  int // index of the oldest record
	count int
}

func NewRollingLog(capacity int) *RollingLog {
	if capacity < 1 {
		capacity = DefaultLogCapacity
	}
	return &RollingLog{buf: make([]runner.CompletionRecord, capacity)}
}

func (l *RollingLog) Push(rec runner.CompletionRecord) {
	if l.count < len(l.buf) {
		l.buf[(l.head+l.count)%len(l.buf)] = rec
		l.count++
		return
	}
	l.buf[l.head] = rec
	l.head = (l.head + 1) % len(l.buf)
}

func (l *RollingLog) Len() int { return l.count }
func (l *RollingLog) Cap() int { return len(l.buf) }

// Items returns the records from oldest to newest.
func (l *RollingLog) Items() []runner.CompletionRecord {
	out := make([]runner.CompletionRecord, l.count)
	for i := 0; i < l.count; i++ {
		out[i] = l.buf[(l.head+i)%len(l.buf)]
	}
	return out
}
