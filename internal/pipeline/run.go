package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/banshee-data/imu.visualiser/internal/monitoring"
)

// Sink consumes pipeline output. Render is called for every accepted or stale
// Result; Final is called once when Run returns.
type Sink interface {
	Render(Result) error
	Final(Status)
}

// Status summarises a finished Run.
type Status struct {
	SessionID string
	Err       error
	Elapsed   time.Duration
	Stats     monitoring.Snapshot
	Last      Result
	HasLast   bool
}

// RunOptions tunes the driving loop.
type RunOptions struct {
	// StatusInterval is how often a summary line is logged. Zero disables it.
	StatusInterval time.Duration
}

// Run feeds lines into p until the source ends, reports an error, or ctx is
// cancelled. Lines already queued when the source reports an error are handled
// before Run returns. Malformed lines and degenerate orientations are logged, counted
// and skipped. A closed lines channel yields ErrSourceDisconnected; a value on
// errs yields ErrSourceReadFailure wrapping it. The source is not retried.
func Run(ctx context.Context, p *Pipeline, lines <-chan string, errs <-chan error, sink Sink, opts RunOptions) (err error) {
	defer func() {
		last, ok := p.Last()
		sink.Final(Status{
			SessionID: p.ID(),
			Err:       err,
			Elapsed:   p.Now().Sub(p.Start()),
			Stats:     p.Stats(),
			Last:      last,
			HasLast:   ok,
		})
	}()

	var tick <-chan time.Time
	if opts.StatusInterval > 0 {
		ticker := p.clock.NewTicker(opts.StatusInterval)
		defer ticker.Stop()
		tick = ticker.C()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case srcErr, ok := <-errs:
			if !ok {
				// source finished without error; wait for the lines channel to drain
				errs = nil
				continue
			}
			drain(p, sink, lines)
			if srcErr == nil {
				return ErrSourceDisconnected
			}
			if errors.Is(srcErr, ErrSourceDisconnected) {
				return srcErr
			}
			return fmt.Errorf("%w: %w", ErrSourceReadFailure, srcErr)

		case line, ok := <-lines:
			if !ok {
				return ErrSourceDisconnected
			}
			handleLine(p, sink, line)

		case <-tick:
			logStatus(p)
		}
	}
}

// drain handles every line already queued on lines without waiting for more.
func drain(p *Pipeline, sink Sink, lines <-chan string) {
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				return
			}
			handleLine(p, sink, line)
		default:
			return
		}
	}
}

func handleLine(p *Pipeline, sink Sink, line string) {
	res, err := p.Step(line, p.Now())
	if err != nil {
		monitoring.Debugf("[%s] skipping line (%s): %v", p.ID(), Reason(err), err)
		if !res.Stale {
			return
		}
	}
	if rerr := sink.Render(res); rerr != nil {
		monitoring.Logf("[%s] render failed: %v", p.ID(), rerr)
	}
}

func logStatus(p *Pipeline) {
	s := p.Stats()
	rate := DataRate(s.Accepted+s.Stale, p.Now().Sub(p.Start()))
	monitoring.Logf("[%s] accepted=%d stale=%d skipped=%d rate=%.1fHz", p.ID(), s.Accepted, s.Stale, s.SkippedTotal(), rate)
}
