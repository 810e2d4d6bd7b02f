package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/pepe-http/pepe/internal/cache"
	"github.com/pepe-http/pepe/internal/control"
	"github.com/pepe-http/pepe/internal/metrics"
	"github.com/pepe-http/pepe/internal/runner"
)

const histogramBins = 10

const commandHelp = "[Quit:](fg:yellow) q / Esc\n[Restart:](fg:yellow) r\n[Interrupt:](fg:yellow) i\n[Done:](fg:yellow) Enter"

// commandFor maps a termui event ID to a control command.
func commandFor(id string) control.Command {
	switch id {
	case "q", "<C-c>", "<Escape>":
		return control.CommandQuit
	case "<Enter>":
		return control.CommandConfirm
	case "r":
		return control.CommandRestart
	case "i":
		return control.CommandInterrupt
	default:
		return control.CommandNone
	}
}

func headerText(s *control.Session, snap metrics.Snapshot) string {
	state := "running"
	switch {
	case s.Interrupted:
		state = "[interrupted](fg:yellow)"
	case snap.Finished:
		state = "[finished](fg:green)"
	}
	proto := "HTTP/1.1+"
	if s.Target.HTTP3 {
		proto = "HTTP/3"
	}
	return fmt.Sprintf("[%s](fg:magenta) %s\nRequests: %d | Concurrency: %d | Timeout: %s | %s\nRun: %s | %s",
		s.Target.Method, s.Target.URL,
		s.Target.Total, s.Target.Concurrency, s.Target.Timeout, proto,
		s.RunID, state,
	)
}

func progressLabel(snap metrics.Snapshot) string {
	return fmt.Sprintf("%.1f%% (%d/%d) in %s", snap.Progress, snap.Count, snap.Total, snap.Elapsed.Round(time.Millisecond))
}

func statsText(snap metrics.Snapshot, inFlight int) string {
	return fmt.Sprintf(
		"Sent:      %d (in flight %d)\nSuccess:   [%d](fg:green)\nFailed:    [%d](fg:red)\nTimeouts:  [%d](fg:yellow)\nMin/Max:   %.2f / %.2f ms\nAvg:       %.2f ms (σ %.2f)\nReq/s:     %.2f\nData/s:    %s",
		snap.Sent, inFlight,
		snap.Success,
		snap.Failed,
		snap.Timeouts,
		snap.MinMs(), snap.MaxMs(),
		snap.AvgMs(), snap.StdDevMs(),
		snap.RequestsPerSec,
		formatBytes(snap.BytesPerSec),
	)
}

func cacheText(snap metrics.Snapshot) string {
	return fmt.Sprintf(
		"Hit rate:   %.1f%%\nHits:       %d\nMisses:     %d\nUnknown:    %d\nDNS lookup: %.2f ms\nDNS resolv: %.2f ms",
		snap.CacheHitRate,
		snap.CacheCategories[cache.CategoryHit],
		snap.CacheCategories[cache.CategoryMiss],
		snap.CacheCategories[cache.CategoryUnknown],
		ms(snap.DNSLookupAvg),
		ms(snap.DNSResolutionAvg),
	)
}

// percentileBars returns one bar per reported percentile, in milliseconds.
func percentileBars(snap metrics.Snapshot) ([]string, []float64) {
	if len(snap.Percentiles) == 0 {
		return []string{"No Data"}, []float64{0}
	}
	labels := make([]string, 0, len(snap.Percentiles))
	data := make([]float64, 0, len(snap.Percentiles))
	for _, p := range snap.Percentiles {
		labels = append(labels, fmt.Sprintf("P%02d", p.P))
		data = append(data, p.Ms)
	}
	return labels, data
}

func histogramBars(bins []metrics.Bin) ([]string, []float64) {
	if len(bins) == 0 {
		return []string{"No Data"}, []float64{0}
	}
	labels := make([]string, 0, len(bins))
	data := make([]float64, 0, len(bins))
	for _, b := range bins {
		labels = append(labels, fmt.Sprintf("%.0f", ms(b.From)))
		data = append(data, float64(b.Count))
	}
	return labels, data
}

func statusRows(snap metrics.Snapshot) []string {
	if len(snap.StatusCodes) == 0 && snap.Timeouts == 0 {
		return []string{"Awaiting data"}
	}
	rows := make([]string, 0, len(snap.StatusCodes)+len(snap.ErrorKinds))
	for _, sc := range snap.StatusCodes {
		rows = append(rows, fmt.Sprintf("[%s](fg:%s) %d", sc.Label(), classColor(sc.Class()), sc.Count))
	}
	for _, e := range snap.ErrorKinds {
		rows = append(rows, fmt.Sprintf("[%s](fg:red) %d", e.Kind, e.Count))
	}
	return rows
}

// logRows renders the most recent records first, at most limit of them.
// A limit below one means no limit.
func logRows(recent []runner.CompletionRecord, target control.Target, limit int) []string {
	if len(recent) == 0 {
		return []string{"Awaiting data"}
	}
	n := len(recent)
	if limit > 0 && n > limit {
		n = limit
	}
	rows := make([]string, 0, n)
	for i := len(recent) - 1; i >= len(recent)-n; i-- {
		rows = append(rows, logRow(recent[i], target))
	}
	return rows
}

func logRow(rec runner.CompletionRecord, target control.Target) string {
	status := "[TIMEOUT](fg:red)"
	if rec.HasStatus() {
		color := "red"
		if rec.Success() {
			color = "green"
		}
		status = fmt.Sprintf("[[%d]](fg:%s)", rec.StatusCode, color)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s](fg:magenta) [%.2fms](fg:yellow) [%db](fg:blue) %s",
		status, target.Method, ms(rec.Duration), max(rec.ContentLength, 0), target.URL)
	if rec.CacheStatus != nil {
		fmt.Fprintf(&b, " cache=%s", rec.CacheStatus)
	}
	return b.String()
}

func classColor(class int) string {
	switch class {
	case 2:
		return "green"
	case 3:
		return "cyan"
	case 4:
		return "yellow"
	default:
		return "red"
	}
}

func formatBytes(perSec float64) string {
	const unit = 1024.0
	switch {
	case perSec >= unit*unit:
		return fmt.Sprintf("%.2f MiB", perSec/(unit*unit))
	case perSec >= unit:
		return fmt.Sprintf("%.2f KiB", perSec/unit)
	default:
		return fmt.Sprintf("%.0f B", perSec)
	}
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
