// Package pipeline turns raw telemetry lines into renderable orientation
// vectors: parse, smooth over a rolling window, rotate, and report the data
// rate.
package pipeline

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/imu.visualiser/internal/monitoring"
	"github.com/banshee-data/imu.visualiser/internal/orientation"
	"github.com/banshee-data/imu.visualiser/internal/telemetry"
	"github.com/banshee-data/imu.visualiser/internal/timeutil"
)

// Config holds the construction parameters of a Pipeline.
type Config struct {
	// WindowSize is the number of frames averaged per channel. Defaults to
	// telemetry.DefaultWindowSize.
	WindowSize int
	// Reference is the body-frame vector that gets rotated. Defaults to
	// orientation.DefaultReference when zero.
	Reference r3.Vec
	// Clock supplies the start time. Defaults to timeutil.RealClock.
	Clock timeutil.Clock
}

// Result is the unit handed to renderers for each accepted line.
type Result struct {
	Raw          string
	Frame        telemetry.Frame
	Smoothed     telemetry.Smoothed
	Vector       r3.Vec
	Quaternion   orientation.Quaternion
	DataRateHz   float64
	Observations uint64
	// Stale is set when the orientation was degenerate and Vector carries
	// the last good direction instead of this frame's.
	Stale bool
	At    time.Time
}

// Pipeline owns the rolling windows for one telemetry stream. Step is
// serialised by an internal mutex so renderers may read Stats and Last from
// other goroutines.
type Pipeline struct {
	mu        sync.Mutex
	id        string
	clock     timeutil.Clock
	start     time.Time
	averager  *telemetry.Averager
	transform *orientation.Transform
	counters  monitoring.Counters

	lastVector r3.Vec
	last       Result
	hasLast    bool
}

// New returns a Pipeline started at the configured clock's current time.
func New(cfg Config) *Pipeline {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = telemetry.DefaultWindowSize
	}
	if cfg.Reference == (r3.Vec{}) {
		cfg.Reference = orientation.DefaultReference
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}

	p := &Pipeline{
		id:        uuid.NewString(),
		clock:     cfg.Clock,
		start:     cfg.Clock.Now(),
		averager:  telemetry.NewAverager(cfg.WindowSize),
		transform: orientation.NewTransform(cfg.Reference),
	}
	p.lastVector = r3.Unit(cfg.Reference)
	return p
}

// ID returns the session identifier used in logs and chart titles.
func (p *Pipeline) ID() string { return p.id }

// Start returns the time the pipeline was constructed or last reset.
func (p *Pipeline) Start() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.start
}

// Now returns the current time of the pipeline clock.
func (p *Pipeline) Now() time.Time { return p.clock.Now() }

// WindowSize returns the number of frames averaged per channel.
func (p *Pipeline) WindowSize() int { return p.averager.WindowSize() }

// Step processes one raw line observed at now.
//
// A line that fails to parse returns the parse error and leaves the rolling
// windows untouched. A degenerate orientation returns the Result with Stale
// set and the previous vector, together with
// orientation.ErrDegenerateOrientation.
func (p *Pipeline) Step(raw string, now time.Time) (Result, error) {
	frame, err := telemetry.ParseFrame(raw)
	if err != nil {
		p.counters.Skip(Reason(err))
		return Result{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	smoothed := p.averager.Observe(frame)
	count := p.averager.Count()

	res := Result{
		Raw:          raw,
		Frame:        frame,
		Smoothed:     smoothed,
		Quaternion:   p.transform.ToQuaternion(smoothed),
		DataRateHz:   DataRate(count, now.Sub(p.start)),
		Observations: count,
		At:           now,
	}

	vec, err := p.transform.ToVector(smoothed)
	if err != nil {
		p.counters.Stale()
		res.Vector = p.lastVector
		res.Stale = true
		p.last, p.hasLast = res, true
		return res, fmt.Errorf("frame %d: %w", count, err)
	}

	p.counters.Accept()
	p.lastVector = vec
	res.Vector = vec
	p.last, p.hasLast = res, true
	return res, nil
}

// Last returns the most recent Result, if any.
func (p *Pipeline) Last() (Result, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last, p.hasLast
}

// Stats returns a snapshot of accepted, stale and skipped line counts.
func (p *Pipeline) Stats() monitoring.Snapshot {
	return p.counters.Snapshot()
}

// DataRate returns observations per second over elapsed. It returns 0 when
// no time has elapsed.
func DataRate(observations uint64, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(observations) / elapsed.Seconds()
}
