package output

import (
	"fmt"
	"html/template"
	"io"
	"time"
)

type htmlReportData struct {
	GeneratedAt string
	Summary     Summary
	PeakBin     int
}

// GenerateHTMLReport writes a standalone HTML page for sum.
func GenerateHTMLReport(w io.Writer, sum Summary) error {
	peak := 0
	for _, b := range sum.Histogram {
		peak = max(peak, b.Count)
	}
	data := htmlReportData{
		GeneratedAt: time.Now().Format(time.RFC3339),
		Summary:     sum,
		PeakBin:     peak,
	}

	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"formatFloat": func(f float64) string {
			return fmt.Sprintf("%.2f", f)
		},
		"barWidth": func(count, peak int) string {
			if peak == 0 {
				return "0"
			}
			return fmt.Sprintf("%.1f", float64(count)/float64(peak)*100)
		},
		"statusClass": func(code int) string {
			if code >= 200 && code < 300 {
				return "badge-success"
			}
			return "badge-error"
		},
	}).Parse(htmlTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	if err := tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}
	return nil
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>pepe report</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            background: #f5f7fa;
            color: #2c3e50;
            line-height: 1.6;
            padding: 20px;
        }
        .container {
            max-width: 1100px;
            margin: 0 auto;
            background: white;
            border-radius: 8px;
            box-shadow: 0 2px 8px rgba(0,0,0,0.1);
            overflow: hidden;
        }
        header {
            background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
            color: white;
            padding: 30px 40px;
        }
        header h1 { font-size: 2rem; margin-bottom: 10px; }
        header .meta { opacity: 0.9; font-size: 0.9rem; }
        .content { padding: 40px; }
        .grid {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(200px, 1fr));
            gap: 20px;
            margin-bottom: 40px;
        }
        .card { background: #f8f9fa; border-radius: 8px; padding: 20px; border-left: 4px solid #667eea; }
        .card h3 { font-size: 0.9rem; color: #6c757d; text-transform: uppercase; margin-bottom: 10px; }
        .card .value { font-size: 2rem; font-weight: bold; }
        .card.success { border-left-color: #10b981; }
        .card.error { border-left-color: #ef4444; }
        .card.warning { border-left-color: #f59e0b; }
        .section { margin-bottom: 40px; }
        .section h2 { font-size: 1.5rem; margin-bottom: 20px; padding-bottom: 10px; border-bottom: 2px solid #e5e7eb; }
        table { width: 100%; border-collapse: collapse; }
        th, td { text-align: left; padding: 10px; border-bottom: 1px solid #e5e7eb; }
        th { background: #f8f9fa; color: #4b5563; font-size: 0.9rem; text-transform: uppercase; }
        .badge { display: inline-block; padding: 4px 12px; border-radius: 12px; font-size: 0.85rem; font-weight: 600; }
        .badge-success { background: #d1fae5; color: #065f46; }
        .badge-error { background: #fee2e2; color: #991b1b; }
        .bar { height: 14px; background: #667eea; border-radius: 3px; }
    </style>
</head>
<body>
<div class="container">
    <header>
        <h1>{{.Summary.Method}} {{.Summary.URL}}</h1>
        <div class="meta">Run {{.Summary.RunID}} &middot; generated {{.GeneratedAt}}{{if .Summary.Interrupted}} &middot; interrupted{{end}}</div>
    </header>
    <div class="content">
        <div class="grid">
            <div class="card"><h3>Requests</h3><div class="value">{{.Summary.Count}}/{{.Summary.Total}}</div></div>
            <div class="card success"><h3>Success</h3><div class="value">{{.Summary.Success}}</div></div>
            <div class="card error"><h3>Failed</h3><div class="value">{{.Summary.Failed}}</div></div>
            <div class="card warning"><h3>Timeouts</h3><div class="value">{{.Summary.Timeouts}}</div></div>
            <div class="card"><h3>Requests/sec</h3><div class="value">{{formatFloat .Summary.RequestsPerSec}}</div></div>
            <div class="card"><h3>Cache hit rate</h3><div class="value">{{formatFloat .Summary.Cache.HitRate}}%</div></div>
        </div>

        <div class="section">
            <h2>Latency (ms)</h2>
            <table>
                <tr><th>min</th><th>avg</th><th>max</th><th>std dev</th>{{range .Summary.Latency.Percentiles}}<th>p{{.P}}</th>{{end}}</tr>
                <tr>
                    <td>{{formatFloat .Summary.Latency.MinMs}}</td>
                    <td>{{formatFloat .Summary.Latency.AvgMs}}</td>
                    <td>{{formatFloat .Summary.Latency.MaxMs}}</td>
                    <td>{{formatFloat .Summary.Latency.StdDevMs}}</td>
                    {{range .Summary.Latency.Percentiles}}<td>{{formatFloat .Ms}}</td>{{end}}
                </tr>
            </table>
        </div>

        {{if .Summary.Histogram}}
        <div class="section">
            <h2>Response time histogram</h2>
            <table>
                <tr><th>Range (ms)</th><th>Count</th><th></th></tr>
                {{range .Summary.Histogram}}
                <tr>
                    <td>{{formatFloat .FromMs}} - {{formatFloat .ToMs}}</td>
                    <td>{{.Count}}</td>
                    <td style="width:60%"><div class="bar" style="width: {{barWidth .Count $.PeakBin}}%"></div></td>
                </tr>
                {{end}}
            </table>
        </div>
        {{end}}

        {{if .Summary.StatusCodes}}
        <div class="section">
            <h2>Status codes</h2>
            <table>
                <tr><th>Status</th><th>Count</th></tr>
                {{range .Summary.StatusCodes}}
                <tr><td><span class="badge {{statusClass .Code}}">{{.Label}}</span></td><td>{{.Count}}</td></tr>
                {{end}}
            </table>
        </div>
        {{end}}

        {{if .Summary.Errors}}
        <div class="section">
            <h2>Errors</h2>
            <table>
                <tr><th>Kind</th><th>Count</th></tr>
                {{range .Summary.Errors}}<tr><td>{{.Kind}}</td><td>{{.Count}}</td></tr>{{end}}
            </table>
        </div>
        {{end}}

        <div class="section">
            <h2>DNS</h2>
            <table>
                <tr><th>Lookup avg (ms)</th><th>Resolution avg (ms)</th></tr>
                <tr><td>{{formatFloat .Summary.DNS.LookupAvgMs}}</td><td>{{formatFloat .Summary.DNS.ResolutionAvgMs}}</td></tr>
            </table>
        </div>
    </div>
</div>
</body>
</html>
`
