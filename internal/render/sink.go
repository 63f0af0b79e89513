// Package render turns pipeline results into something a person can watch:
// a console status line, an HTML page with the orientation arrow and a PNG
// trace of the smoothed angles.
package render

import (
	"errors"
	"time"

	"github.com/banshee-data/imu.visualiser/internal/pipeline"
)

// MultiSink fans results out to several sinks. Render errors are joined;
// Final reaches every sink.
type MultiSink []pipeline.Sink

// Render forwards r to every sink.
func (m MultiSink) Render(r pipeline.Result) error {
	var errs []error
	for _, s := range m {
		if err := s.Render(r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Final forwards st to every sink.
func (m MultiSink) Final(st pipeline.Status) {
	for _, s := range m {
		s.Final(st)
	}
}

// throttle limits work to once per interval of result time. The first call
// always passes; a non-positive interval never throttles.
type throttle struct {
	interval time.Duration
	last     time.Time
	primed   bool
}

func (t *throttle) allow(at time.Time) bool {
	if t.primed && t.interval > 0 && at.Sub(t.last) < t.interval {
		return false
	}
	t.last = at
	t.primed = true
	return true
}
