package control

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/pepe-http/pepe/internal/httpclient"
	"github.com/pepe-http/pepe/internal/metrics"
	"github.com/pepe-http/pepe/internal/runner"
)

// settleTimeout bounds how long a cancelled run may take to unwind before
// its final snapshot is taken anyway.
const settleTimeout = 5 * time.Second

var (
	ErrMissingLauncher  = errors.New("control: launcher is required")
	ErrMissingPresenter = errors.New("control: presenter is required")
)

// Launcher starts one dispatch. *runner.Dispatcher satisfies it.
type Launcher interface {
	Launch(ctx context.Context) *runner.Run
}

// Presenter renders a session and blocks until the user issues a command.
// It owns the session's aggregator for as long as Present runs. When ctx is
// cancelled it returns promptly; the returned error is then ignored.
type Presenter interface {
	Present(ctx context.Context, s *Session) (Command, error)
}

// RunContext carries everything one process needs to drive runs. It is
// built once in main and torn down with Close.
type RunContext struct {
	Target    Target
	Client    *http.Client
	Launcher  Launcher
	Presenter Presenter
	Logger    zerolog.Logger
	Observer  metrics.Observer
	Clock     func() time.Time

	// OnRunStarted is called with every new session before it is presented.
	OnRunStarted func(s *Session)
	// OnRunInterrupted is called when the user interrupts a session.
	OnRunInterrupted func(s *Session)
	// OnRunFinished is called once per session with its final snapshot.
	OnRunFinished func(s *Session, snap metrics.Snapshot)
}

// Close releases the shared client's connections.
func (rc *RunContext) Close() {
	if rc.Client != nil {
		httpclient.Close(rc.Client)
	}
}

// Controller is the run state machine.
type Controller struct {
	rc    *RunContext
	state State
	runs  int
}

func NewController(rc *RunContext) (*Controller, error) {
	if rc.Launcher == nil {
		return nil, ErrMissingLauncher
	}
	if rc.Presenter == nil {
		return nil, ErrMissingPresenter
	}
	if rc.Clock == nil {
		rc.Clock = time.Now
	}
	return &Controller{rc: rc, state: StateIdle}, nil
}

func (c *Controller) State() State { return c.state }

// Runs is the number of sessions launched so far.
func (c *Controller) Runs() int { return c.runs }

// Loop launches the first run and then follows presenter commands until
// the user quits, the presenter fails, or ctx is cancelled.
func (c *Controller) Loop(ctx context.Context) error {
	session := c.launch(ctx)
	for {
		cmd, err := c.rc.Presenter.Present(ctx, session)
		if ctx.Err() != nil {
			c.finish(session)
			c.state = StateStopped
			c.rc.Logger.Info().Str("run_id", session.RunID.String()).Msg("stopped by signal")
			return nil
		}
		if err != nil {
			c.finish(session)
			c.state = StateStopped
			return err
		}

		switch cmd {
		case CommandRestart:
			c.rc.Logger.Info().Str("run_id", session.RunID.String()).Msg("run restarted")
			c.finish(session)
			session = c.launch(ctx)
		case CommandInterrupt:
			if !session.Interrupted {
				session.Run.Cancel()
				session.Aggregator.Stop()
				session.Interrupted = true
				c.state = StateInterrupted
				if c.rc.OnRunInterrupted != nil {
					c.rc.OnRunInterrupted(session)
				}
				c.rc.Logger.Info().Str("run_id", session.RunID.String()).Msg("run interrupted")
			}
		case CommandQuit, CommandConfirm:
			c.finish(session)
			c.state = StateStopped
			return nil
		}
	}
}

func (c *Controller) launch(ctx context.Context) *Session {
	agg := metrics.NewAggregator(c.rc.Target.Total, c.rc.Clock)
	if c.rc.Observer != nil {
		agg.SetObserver(c.rc.Observer)
	}
	agg.Start()
	run := c.rc.Launcher.Launch(ctx)

	s := &Session{
		RunID:      run.ID,
		Run:        run,
		Aggregator: agg,
		Target:     c.rc.Target,
		Started:    c.rc.Clock(),
	}
	c.runs++
	c.state = StateRunning
	if c.rc.OnRunStarted != nil {
		c.rc.OnRunStarted(s)
	}
	return s
}

// finish cancels the session's run, waits briefly for its units to return
// and reports the final snapshot.
func (c *Controller) finish(s *Session) {
	s.Run.Cancel()

	waitCtx, cancel := context.WithTimeout(context.Background(), settleTimeout)
	err := s.Run.Wait(waitCtx)
	cancel()
	if err != nil {
		c.rc.Logger.Warn().Str("run_id", s.RunID.String()).Msg("run did not settle before timeout")
	}

	snap := s.Tick()
	c.rc.Logger.Info().
		Str("run_id", s.RunID.String()).
		Int("completed", snap.Count).
		Int("success", snap.Success).
		Int("failed", snap.Failed).
		Int("timeouts", snap.Timeouts).
		Bool("interrupted", s.Interrupted).
		Msg("run finished")
	if c.rc.OnRunFinished != nil {
		c.rc.OnRunFinished(s, snap)
	}
}
