package metrics

import (
	"net/http"
	"sort"
	"strconv"
)

// StatusCount is the number of responses seen with one status code.
type StatusCount struct {
	Code  int `json:"code" yaml:"code"`
	Count int `json:"count" yaml:"count"`
}

// Label renders the code with its reason phrase, e.g. "404 Not Found".
func (s StatusCount) Label() string {
	text := http.StatusText(s.Code)
	if text == "" {
		return strconv.Itoa(s.Code)
	}
	return strconv.Itoa(s.Code) + " " + text
}

// Class returns the status class digit (2 for 2xx and so on).
func (s StatusCount) Class() int { return s.Code / 100 }

// SortStatusCodes flattens a code->count map into rows ordered by code.
func SortStatusCodes(codes map[int]int) []StatusCount {
	if len(codes) == 0 {
		return nil
	}
	rows := make([]StatusCount, 0, len(codes))
	for code, count := range codes {
		rows = append(rows, StatusCount{Code: code, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Code < rows[j].Code })
	return rows
}
