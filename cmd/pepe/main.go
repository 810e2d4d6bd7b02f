package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/pepe-http/pepe/internal/config"
	"github.com/pepe-http/pepe/internal/control"
	"github.com/pepe-http/pepe/internal/dnsprobe"
	"github.com/pepe-http/pepe/internal/httpclient"
	"github.com/pepe-http/pepe/internal/metrics"
	"github.com/pepe-http/pepe/internal/output"
	"github.com/pepe-http/pepe/internal/runner"
	"github.com/pepe-http/pepe/internal/telemetry"
	"github.com/pepe-http/pepe/internal/threshold"
	"github.com/pepe-http/pepe/internal/tracing"
	"github.com/pepe-http/pepe/internal/update"
)

const (
	shutdownTimeout    = 5 * time.Second
	updateCheckTimeout = 3 * time.Second
)

// streams are the terminal the process talks to.
type streams struct {
	in          io.Reader
	out         io.Writer
	err         io.Writer
	interactive bool
	colored     bool
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		color.New(color.FgRed, color.Bold).Fprint(os.Stderr, "Error: ")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	tty := isTerminal(os.Stdout) && isTerminal(os.Stdin)
	return execute(ctx, args, streams{
		in:          os.Stdin,
		out:         os.Stdout,
		err:         os.Stderr,
		interactive: tty,
		colored:     isTerminal(os.Stdout) && !color.NoColor,
	})
}

func execute(ctx context.Context, args []string, term streams) error {
	cfg, err := config.NewLoader().Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) || errors.Is(err, config.ErrVersionRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	desc, err := cfg.Descriptor()
	if err != nil {
		return err
	}
	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return err
	}

	logger, logCloser, err := telemetry.NewLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	if cfg.CheckUpdate {
		checkForUpdate(ctx, term.err, logger)
	}

	client, err := httpclient.NewClient(desc.Settings(), cfg.Concurrency)
	if err != nil {
		return err
	}

	provider, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("tracing shutdown failed")
		}
	}()

	dispatcher, err := runner.New(runner.Options{
		Total:       cfg.Total,
		Concurrency: cfg.Concurrency,
		Client:      client,
		Descriptor:  desc,
		Probe:       dnsprobe.New(net.DefaultResolver),
		Tracer:      provider.Tracer(),
		Propagate:   provider.ShouldPropagate(),
		Logger:      logger,
	})
	if err != nil {
		httpclient.Close(client)
		return err
	}

	mode := cfg.ResolveUI(term.interactive)
	presenter, closePresenter, err := newPresenter(mode, term)
	if err != nil {
		httpclient.Close(client)
		return err
	}

	rec := &recorder{history: cfg.History, logger: logger}
	rc := &control.RunContext{
		Target: control.Target{
			URL:         desc.URL(),
			Method:      desc.Method(),
			Total:       cfg.Total,
			Concurrency: cfg.Concurrency,
			Timeout:     desc.Settings().Timeout(),
			HTTP3:       cfg.HTTP3,
		},
		Client:        client,
		Launcher:      dispatcher,
		Presenter:     presenter,
		Logger:        logger,
		OnRunFinished: rec.finished,
	}
	defer rc.Close()

	if cfg.MetricsAddr != "" {
		exporter := telemetry.NewExporter()
		if _, err := exporter.Serve(ctx, cfg.MetricsAddr, logger); err != nil {
			closePresenter()
			return fmt.Errorf("metrics server: %w", err)
		}
		rc.Observer = exporter
		rc.OnRunStarted = func(*control.Session) { exporter.RunStarted() }
		rc.OnRunInterrupted = func(*control.Session) { exporter.RunStopped() }
	}

	ev := logger.Info().
		Str("url", desc.URL()).
		Str("method", desc.Method()).
		Int("total", cfg.Total).
		Int("concurrency", cfg.Concurrency).
		Str("ui", string(mode))
	if body, ok := desc.Body(); ok && desc.SendsBody() {
		ev = ev.Stringer("body", body)
	}
	ev.Msg("starting")

	ctrl, err := control.NewController(rc)
	if err != nil {
		closePresenter()
		return err
	}
	loopErr := ctrl.Loop(ctx)
	closePresenter()
	if loopErr != nil {
		return loopErr
	}
	logger.Info().Int("runs", ctrl.Runs()).Msg("done")
	if rec.err != nil {
		return rec.err
	}
	if rec.last == nil {
		return nil
	}
	if err := report(cfg, rec, term); err != nil {
		return err
	}
	return checkThresholds(thresholds, *rec.last, term)
}

// recorder keeps the summary of the latest finished run and appends every
// finished run to the history file.
type recorder struct {
	history string
	logger  zerolog.Logger

	last     *output.Summary
	previous *output.Summary // last history entry for the same target before last
	err      error
}

func (r *recorder) finished(s *control.Session, snap metrics.Snapshot) {
	sum := output.NewSummary(s, snap)
	r.last = &sum
	r.previous = nil
	if r.history == "" || r.err != nil {
		return
	}

	prev, found, err := output.PreviousRun(r.history, sum.Method, sum.URL)
	if err != nil {
		r.err = fmt.Errorf("read history: %w", err)
		return
	}
	if found {
		r.previous = &prev
	}
	if err := output.AppendHistory(r.history, sum); err != nil {
		r.err = fmt.Errorf("append history: %w", err)
		return
	}
	r.logger.Debug().Str("run_id", sum.RunID).Str("path", r.history).Msg("run appended to history")
}

// report prints the final summary and writes the report file.
func report(cfg *config.Config, rec *recorder, term streams) error {
	sum := *rec.last
	if err := output.PrintReport(term.out, sum, term.colored); err != nil {
		return err
	}
	if rec.previous != nil {
		output.PrintComparison(term.out, *rec.previous, sum, term.colored)
	}

	if cfg.Output != "" {
		if err := output.WriteReportFile(cfg.Output, sum); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		fmt.Fprintf(term.out, "\nReport written to %s\n", cfg.Output)
	}
	return nil
}

// checkThresholds prints every assertion and fails when one does not hold.
func checkThresholds(thresholds []threshold.Threshold, sum output.Summary, term streams) error {
	if len(thresholds) == 0 {
		return nil
	}
	pass := color.New(color.FgGreen)
	fail := color.New(color.FgRed)
	if !term.colored {
		pass.DisableColor()
		fail.DisableColor()
	}

	results, err := threshold.NewEvaluator(thresholds).Check(sum)
	fmt.Fprintln(term.out, "\nThresholds:")
	for _, r := range results {
		if r.Pass {
			pass.Fprintln(term.out, "  "+r.Message)
		} else {
			fail.Fprintln(term.out, "  "+r.Message)
		}
	}
	return err
}

func checkForUpdate(ctx context.Context, w io.Writer, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, updateCheckTimeout)
	defer cancel()

	rel, err := update.NewChecker(config.DefaultUserAgent()).Check(ctx, config.Version)
	if err != nil {
		logger.Debug().Err(err).Msg("update check failed")
		return
	}
	if rel.Newer() {
		fmt.Fprintf(w, "A new version of pepe is available: %s (current %s)\nUpdate with: %s\n\n",
			rel.Latest, rel.Current, update.InstallCommand)
	}
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
