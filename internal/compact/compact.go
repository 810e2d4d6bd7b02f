// Package compact renders a run inline in the terminal as a short block of
// live lines, for terminals too small or too busy for the full dashboard.
package compact

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pepe-http/pepe/internal/control"
	"github.com/pepe-http/pepe/internal/metrics"
)

// DefaultRefreshInterval is how often the view pulls a new snapshot.
const DefaultRefreshInterval = 250 * time.Millisecond

var (
	colorGreen  = lipgloss.AdaptiveColor{Light: "#006400", Dark: "#00ff00"}
	colorRed    = lipgloss.AdaptiveColor{Light: "#8b0000", Dark: "#ff0000"}
	colorYellow = lipgloss.AdaptiveColor{Light: "#b8860b", Dark: "#ffff00"}
	colorGray   = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#888888"}
	colorCyan   = lipgloss.AdaptiveColor{Light: "#008b8b", Dark: "#00ffff"}
)

var (
	styleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleError   = lipgloss.NewStyle().Foreground(colorRed)
	styleWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleSubtle  = lipgloss.NewStyle().Foreground(colorGray)
)

// Compact presents each session with a bubbletea program that exits as
// soon as the user issues a command.
type Compact struct {
	in       io.Reader
	out      io.Writer
	interval time.Duration
}

// New returns a presenter reading keys from in and drawing to out. Nil
// streams fall back to the process terminal.
func New(in io.Reader, out io.Writer, interval time.Duration) *Compact {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &Compact{in: in, out: out, interval: interval}
}

func (c *Compact) Present(ctx context.Context, s *control.Session) (control.Command, error) {
	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if c.in != nil {
		opts = append(opts, tea.WithInput(c.in))
	}
	if c.out != nil {
		opts = append(opts, tea.WithOutput(c.out))
	}

	final, err := tea.NewProgram(newModel(s, c.interval), opts...).Run()
	if ctx.Err() != nil {
		return control.CommandQuit, ctx.Err()
	}
	if err != nil {
		return control.CommandQuit, fmt.Errorf("compact view: %w", err)
	}
	return final.(model).command, nil
}

type tickMsg time.Time

type model struct {
	session  *control.Session
	interval time.Duration
	snap     metrics.Snapshot
	bar      progress.Model
	spin     spinner.Model
	command  control.Command
}

func newModel(s *control.Session, interval time.Duration) model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styleTitle

	return model{
		session:  s,
		interval: interval,
		snap:     s.Tick(),
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		spin:     sp,
	}
}

func (m model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.tick())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if cmd := commandFor(msg.String()); cmd != control.CommandNone {
			m.command = cmd
			return m, tea.Quit
		}
	case tickMsg:
		m.snap = m.session.Tick()
		return m, m.tick()
	case tea.WindowSizeMsg:
		m.bar.Width = max(min(msg.Width-30, 60), 10)
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder
	snap := m.snap

	state := m.spin.View()
	switch {
	case m.session.Interrupted:
		state = styleWarning.Render("■ interrupted")
	case snap.Finished:
		state = styleSuccess.Render("✔ done")
	}
	fmt.Fprintf(&b, "%s %s %s\n", state, styleTitle.Render(m.session.Target.Method), m.session.Target.URL)
	fmt.Fprintf(&b, "%s %5.1f%%  %d/%d  %s\n",
		m.bar.ViewAs(snap.Progress/100), snap.Progress, snap.Count, snap.Total, snap.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(&b, "%s  %s  %s  %s  %.1f req/s\n",
		styleSuccess.Render(fmt.Sprintf("ok %d", snap.Success)),
		styleError.Render(fmt.Sprintf("failed %d", snap.Failed)),
		styleWarning.Render(fmt.Sprintf("timeouts %d", snap.Timeouts)),
		styleSubtle.Render(fmt.Sprintf("in flight %d", snap.InFlight())),
		snap.RequestsPerSec,
	)
	fmt.Fprintf(&b, "%s\n", latencyLine(snap))
	b.WriteString(styleSubtle.Render("q quit · r restart · i interrupt · enter done"))
	b.WriteString("\n")
	return b.String()
}

func latencyLine(snap metrics.Snapshot) string {
	parts := []string{fmt.Sprintf("avg %.1fms", snap.AvgMs())}
	for _, p := range snap.Percentiles {
		switch p.P {
		case 50, 90, 99:
			parts = append(parts, fmt.Sprintf("p%d %.1fms", p.P, p.Ms))
		}
	}
	parts = append(parts, fmt.Sprintf("cache hit %.1f%%", snap.CacheHitRate))
	return strings.Join(parts, "  ")
}

// commandFor maps a bubbletea key name to a control command.
func commandFor(key string) control.Command {
	switch key {
	case "q", "esc", "ctrl+c":
		return control.CommandQuit
	case "enter":
		return control.CommandConfirm
	case "r":
		return control.CommandRestart
	case "i":
		return control.CommandInterrupt
	default:
		return control.CommandNone
	}
}

var _ control.Presenter = (*Compact)(nil)
