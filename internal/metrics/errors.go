package metrics

import (
	"sort"
	"strings"
)

// ErrorCount is the number of failed requests of one kind.
type ErrorCount struct {
	Kind  string `json:"kind" yaml:"kind"`
	Count int    `json:"count" yaml:"count"`
}

var errorPatterns = []struct {
	needle string
	kind   string
}{
	{"client.timeout exceeded", "Timeout"},
	{"deadline exceeded", "Timeout"},
	{"i/o timeout", "Timeout"},
	{"timeout awaiting", "Timeout"},
	{"no such host", "DNS lookup failed"},
	{"server misbehaving", "DNS lookup failed"},
	{"connection refused", "Connection refused"},
	{"connection reset", "Connection reset"},
	{"broken pipe", "Connection reset"},
	{"eof", "Connection closed"},
	{"tls", "TLS error"},
	{"x509", "TLS error"},
	{"certificate", "TLS error"},
	{"proxyconnect", "Proxy error"},
	{"socks", "Proxy error"},
	{"stopped after", "Too many redirects"},
	{"network is unreachable", "Network unreachable"},
	{"no route to host", "Network unreachable"},
}

// ClassifyError maps a transport error message to a short human-readable
// kind. Unrecognised messages are "Other error".
func ClassifyError(msg string) string {
	lower := strings.ToLower(strings.TrimSpace(msg))
	if lower == "" {
		return "Unknown error"
	}
	for _, p := range errorPatterns {
		if strings.Contains(lower, p.needle) {
			return p.kind
		}
	}
	return "Other error"
}

// SortErrorKinds orders kinds by descending count, then by name.
func SortErrorKinds(kinds map[string]int) []ErrorCount {
	if len(kinds) == 0 {
		return nil
	}
	rows := make([]ErrorCount, 0, len(kinds))
	for kind, count := range kinds {
		rows = append(rows, ErrorCount{Kind: kind, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count == rows[j].Count {
			return rows[i].Kind < rows[j].Kind
		}
		return rows[i].Count > rows[j].Count
	})
	return rows
}
