package output

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
)

// PrintReport outputs a human-readable summary of a finished run.
func PrintReport(w io.Writer, sum Summary, colored bool) error {
	p := newPalette(colored)

	p.title.Fprintln(w, "\n--- pepe results ---")
	fmt.Fprintf(w, "%s %s %s\n", p.label.Sprint("Target:"), sum.Method, sum.URL)
	fmt.Fprintf(w, "%s %s\n", p.label.Sprint("Run:   "), sum.RunID)
	if sum.Interrupted {
		p.warn.Fprintln(w, "Run was interrupted before all requests completed.")
	}

	overview := tablewriter.NewTable(w, tablewriter.WithHeader([]string{"Metric", "Value"}))
	rows := [][]string{
		{"Requests", fmt.Sprintf("%d/%d", sum.Count, sum.Total)},
		{"Success", p.ok.Sprint(sum.Success)},
		{"Failed", colorIfNonZero(p.bad.Sprint, sum.Failed)},
		{"Timeouts", colorIfNonZero(p.warn.Sprint, sum.Timeouts)},
		{"Elapsed", fmt.Sprintf("%.2fs", sum.ElapsedMs/1000)},
		{"Requests/sec", fmt.Sprintf("%.2f", sum.RequestsPerSec)},
		{"Transfer", fmt.Sprintf("%s (%s/s)", humanBytes(float64(sum.Bytes)), humanBytes(sum.BytesPerSec))},
		{"Cache hit rate", fmt.Sprintf("%.1f%% (hit %d, miss %d, unknown %d)", sum.Cache.HitRate, sum.Cache.Hit, sum.Cache.Miss, sum.Cache.Unknown)},
		{"DNS lookup avg", fmt.Sprintf("%.3fms", sum.DNS.LookupAvgMs)},
		{"DNS resolution avg", fmt.Sprintf("%.3fms", sum.DNS.ResolutionAvgMs)},
	}
	for _, r := range rows {
		if err := overview.Append(r); err != nil {
			return err
		}
	}
	if err := overview.Render(); err != nil {
		return err
	}

	p.title.Fprintln(w, "\nLatency")
	latency := tablewriter.NewTable(w, tablewriter.WithHeader([]string{"Stat", "ms"}))
	stats := [][]string{
		{"min", fmtMs(sum.Latency.MinMs)},
		{"max", fmtMs(sum.Latency.MaxMs)},
		{"avg", fmtMs(sum.Latency.AvgMs)},
		{"std dev", fmtMs(sum.Latency.StdDevMs)},
	}
	for _, pc := range sum.Latency.Percentiles {
		stats = append(stats, []string{"p" + strconv.Itoa(pc.P), fmtMs(pc.Ms)})
	}
	if sum.Latency.P999Ms > 0 {
		stats = append(stats, []string{"p99.9", fmtMs(sum.Latency.P999Ms)})
	}
	for _, r := range stats {
		if err := latency.Append(r); err != nil {
			return err
		}
	}
	if err := latency.Render(); err != nil {
		return err
	}

	if len(sum.StatusCodes) > 0 {
		p.title.Fprintln(w, "\nStatus codes")
		codes := tablewriter.NewTable(w, tablewriter.WithHeader([]string{"Status", "Count"}))
		for _, sc := range sum.StatusCodes {
			if err := codes.Append([]string{p.status(sc.Code).Sprint(sc.Label()), strconv.Itoa(sc.Count)}); err != nil {
				return err
			}
		}
		if err := codes.Render(); err != nil {
			return err
		}
	}

	if len(sum.Errors) > 0 {
		p.title.Fprintln(w, "\nErrors")
		errs := tablewriter.NewTable(w, tablewriter.WithHeader([]string{"Kind", "Count"}))
		for _, e := range sum.Errors {
			if err := errs.Append([]string{p.bad.Sprint(e.Kind), strconv.Itoa(e.Count)}); err != nil {
				return err
			}
		}
		if err := errs.Render(); err != nil {
			return err
		}
	}

	if len(sum.Histogram) > 0 {
		p.title.Fprintln(w, "\nResponse time histogram")
		writeHistogram(w, sum.Histogram, p)
	}
	return nil
}

// PrintComparison prints the change against a previous run of the same target.
func PrintComparison(w io.Writer, prev, cur Summary, colored bool) {
	p := newPalette(colored)
	p.subtle.Fprintf(w, "\nPrevious run %s (%s):\n", prev.RunID, prev.StartedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "  req/s  %8.2f -> %8.2f  %s\n", prev.RequestsPerSec, cur.RequestsPerSec, delta(p, prev.RequestsPerSec, cur.RequestsPerSec, true))
	fmt.Fprintf(w, "  avg ms %8.2f -> %8.2f  %s\n", prev.Latency.AvgMs, cur.Latency.AvgMs, delta(p, prev.Latency.AvgMs, cur.Latency.AvgMs, false))
	if a, ok := prev.Percentile(95); ok {
		if b, ok := cur.Percentile(95); ok {
			fmt.Fprintf(w, "  p95 ms %8.2f -> %8.2f  %s\n", a, b, delta(p, a, b, false))
		}
	}
}

func delta(p *palette, before, after float64, higherIsBetter bool) string {
	if before == 0 {
		return ""
	}
	change := (after - before) / before * 100
	text := fmt.Sprintf("%+.1f%%", change)
	if (change > 0) == higherIsBetter {
		return p.ok.Sprint(text)
	}
	return p.bad.Sprint(text)
}

func writeHistogram(w io.Writer, bins []BinSummary, p *palette) {
	const width = 40
	peak := 0
	for _, b := range bins {
		peak = max(peak, b.Count)
	}
	for _, b := range bins {
		bar := 0
		if peak > 0 {
			bar = b.Count * width / peak
		}
		fmt.Fprintf(w, "  %9.2fms - %9.2fms [%6d] %s\n", b.FromMs, b.ToMs, b.Count, p.ok.Sprint(bars(bar)))
	}
}

func bars(n int) string {
	out := make([]rune, n)
	for i := range out {
		out[i] = '■'
	}
	return string(out)
}

func colorIfNonZero(paint func(a ...interface{}) string, n int) string {
	if n == 0 {
		return "0"
	}
	return paint(n)
}

func fmtMs(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) }

func humanBytes(b float64) string {
	const unit = 1024.0
	if b < unit {
		return fmt.Sprintf("%.0f B", b)
	}
	div, exp := unit, 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", b/div, "KMGTPE"[exp])
}
