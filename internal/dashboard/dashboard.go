package dashboard

import (
	"context"
	"fmt"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/pepe-http/pepe/internal/control"
)

// DefaultRefreshInterval is how often the dashboard redraws.
const DefaultRefreshInterval = 500 * time.Millisecond

// Dashboard renders a live full-screen view of a session and turns key
// presses into control commands.
type Dashboard struct {
	events   <-chan ui.Event
	interval time.Duration

	// Widgets
	grid        *ui.Grid
	header      *widgets.Paragraph
	commands    *widgets.Paragraph
	progress    *widgets.Gauge
	stats       *widgets.Paragraph
	cache       *widgets.Paragraph
	percentiles *widgets.BarChart
	histogram   *widgets.BarChart
	statusList  *widgets.List
	logList     *widgets.List
}

// New takes over the terminal. Close must be called to restore it.
func New(interval time.Duration) (*Dashboard, error) {
	if err := ui.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize termui: %w", err)
	}
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}

	d := &Dashboard{
		events:   ui.PollEvents(),
		interval: interval,
	}
	d.initWidgets()
	d.setupGrid()
	return d, nil
}

// Close restores the terminal.
func (d *Dashboard) Close() {
	ui.Close()
	// Give terminal time to restore
	time.Sleep(100 * time.Millisecond)
}

func (d *Dashboard) initWidgets() {
	d.header = widgets.NewParagraph()
	d.header.Title = "pepe"
	d.header.TextStyle = ui.NewStyle(ui.ColorCyan)
	d.header.BorderStyle.Fg = ui.ColorCyan

	d.commands = widgets.NewParagraph()
	d.commands.Title = "Commands"
	d.commands.Text = commandHelp
	d.commands.BorderStyle.Fg = ui.ColorCyan

	d.progress = widgets.NewGauge()
	d.progress.Title = "Progress"
	d.progress.BarColor = ui.ColorBlue
	d.progress.BorderStyle.Fg = ui.ColorCyan
	d.progress.LabelStyle = ui.NewStyle(ui.ColorWhite)

	d.stats = widgets.NewParagraph()
	d.stats.Title = "Stats"
	d.stats.Text = "Waiting for data..."
	d.stats.BorderStyle.Fg = ui.ColorCyan

	d.cache = widgets.NewParagraph()
	d.cache.Title = "Cache & DNS"
	d.cache.Text = "Waiting for data..."
	d.cache.BorderStyle.Fg = ui.ColorCyan

	d.percentiles = widgets.NewBarChart()
	d.percentiles.Title = "Latency Distribution (ms)"
	d.percentiles.BarColors = []ui.Color{ui.ColorCyan}
	d.percentiles.NumStyles = []ui.Style{ui.NewStyle(ui.ColorYellow)}
	d.percentiles.LabelStyles = []ui.Style{ui.NewStyle(ui.ColorWhite)}
	d.percentiles.BorderStyle.Fg = ui.ColorCyan

	d.histogram = widgets.NewBarChart()
	d.histogram.Title = "Response Times"
	d.histogram.BarColors = []ui.Color{ui.ColorGreen}
	d.histogram.NumStyles = []ui.Style{ui.NewStyle(ui.ColorBlack)}
	d.histogram.LabelStyles = []ui.Style{ui.NewStyle(ui.ColorWhite)}
	d.histogram.BorderStyle.Fg = ui.ColorCyan

	d.statusList = widgets.NewList()
	d.statusList.Title = "Status Codes"
	d.statusList.Rows = []string{"Awaiting data"}
	d.statusList.BorderStyle.Fg = ui.ColorCyan

	d.logList = widgets.NewList()
	d.logList.Title = "Requests"
	d.logList.Rows = []string{"Awaiting data"}
	d.logList.BorderStyle.Fg = ui.ColorCyan
}

func (d *Dashboard) setupGrid() {
	termWidth, termHeight := ui.TerminalDimensions()

	d.grid = ui.NewGrid()
	d.grid.SetRect(0, 0, termWidth, termHeight)

	d.grid.Set(
		ui.NewRow(0.14,
			ui.NewCol(0.8, d.header),
			ui.NewCol(0.2, d.commands),
		),
		ui.NewRow(0.08,
			ui.NewCol(1.0, d.progress),
		),
		ui.NewRow(0.26,
			ui.NewCol(0.35, d.stats),
			ui.NewCol(0.25, d.cache),
			ui.NewCol(0.4, d.statusList),
		),
		ui.NewRow(0.22,
			ui.NewCol(0.5, d.percentiles),
			ui.NewCol(0.5, d.histogram),
		),
		ui.NewRow(0.30,
			ui.NewCol(1.0, d.logList),
		),
	)
}

// Present redraws the session every interval until a command key is
// pressed. The presenter goroutine is the only one draining the session.
func (d *Dashboard) Present(ctx context.Context, s *control.Session) (control.Command, error) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	ui.Clear()
	d.update(s)
	d.render()

	for {
		select {
		case <-ctx.Done():
			return control.CommandQuit, ctx.Err()
		case e := <-d.events:
			if e.Type == ui.ResizeEvent {
				payload := e.Payload.(ui.Resize)
				d.grid.SetRect(0, 0, payload.Width, payload.Height)
				ui.Clear()
				d.render()
				continue
			}
			if cmd := commandFor(e.ID); cmd != control.CommandNone {
				return cmd, nil
			}
		case <-ticker.C:
			d.update(s)
			d.render()
		}
	}
}

// update refreshes all widget data from the session.
func (d *Dashboard) update(s *control.Session) {
	snap := s.Tick()

	d.header.Text = headerText(s, snap)

	d.progress.Percent = int(snap.Progress)
	d.progress.Label = progressLabel(snap)
	if s.Interrupted {
		d.progress.BarColor = ui.ColorYellow
	} else {
		d.progress.BarColor = ui.ColorBlue
	}

	d.stats.Text = statsText(snap, s.InFlight())
	d.cache.Text = cacheText(snap)

	d.percentiles.Labels, d.percentiles.Data = percentileBars(snap)
	d.percentiles.BarWidth = barWidth(d.percentiles.Inner.Dx(), len(d.percentiles.Data))

	d.histogram.Labels, d.histogram.Data = histogramBars(s.Aggregator.Histogram(histogramBins))
	d.histogram.BarWidth = barWidth(d.histogram.Inner.Dx(), len(d.histogram.Data))

	d.statusList.Rows = statusRows(snap)
	d.logList.Rows = logRows(snap.Recent, s.Target, d.logList.Inner.Dy())
}

func (d *Dashboard) render() {
	ui.Render(d.grid)
}

// barWidth spreads n bars with a gap of one over width cells.
func barWidth(width, n int) int {
	if n == 0 {
		return 3
	}
	return max(width/n-1, 1)
}

var _ control.Presenter = (*Dashboard)(nil)
