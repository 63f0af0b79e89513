package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/banshee-data/imu.visualiser/internal/pipeline"
	"github.com/banshee-data/imu.visualiser/internal/units"
)

// Console prints one status line per rendered result and a summary when the
// run ends.
type Console struct {
	mu       sync.Mutex
	w        io.Writer
	showRaw  bool
	throttle throttle
}

// NewConsole writes to w at most once per interval. showRaw appends the
// unparsed serial line to each status line.
func NewConsole(w io.Writer, interval time.Duration, showRaw bool) *Console {
	return &Console{w: w, showRaw: showRaw, throttle: throttle{interval: interval}}
}

// Render prints r if the interval has elapsed since the last print.
func (c *Console) Render(r pipeline.Result) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.throttle.allow(r.At) {
		return nil
	}
	_, err := fmt.Fprintln(c.w, FormatResult(r, c.showRaw))
	return err
}

// Final prints the run summary.
func (c *Console) Final(st pipeline.Status) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprint(c.w, FormatStatus(st))
}

// FormatResult renders one result as a single status line with angles in
// degrees.
func FormatResult(r pipeline.Result, showRaw bool) string {
	var b strings.Builder
	s := r.Smoothed
	fmt.Fprintf(&b, "roll=%7.2f° pitch=%7.2f° yaw=%7.2f°",
		units.RadiansToDegrees(s.Roll), units.RadiansToDegrees(s.Pitch), units.RadiansToDegrees(s.Yaw))
	if s.HasAltitude {
		fmt.Fprintf(&b, " alt=%.2f", s.Altitude)
	}
	fmt.Fprintf(&b, " vec=(%+.3f, %+.3f, %+.3f) rate=%s n=%s",
		r.Vector.X, r.Vector.Y, r.Vector.Z, FormatRate(r.DataRateHz), humanize.Comma(int64(r.Observations)))
	if r.Stale {
		b.WriteString(" [stale]")
	}
	if showRaw {
		fmt.Fprintf(&b, " raw=%q", r.Raw)
	}
	return b.String()
}

// FormatRate renders a data rate with an SI prefix, e.g. "12.5 Hz".
func FormatRate(hz float64) string {
	v, prefix := humanize.ComputeSI(hz)
	return fmt.Sprintf("%.1f %sHz", v, prefix)
}

// FormatStatus renders the end-of-run summary.
func FormatStatus(st pipeline.Status) string {
	var b strings.Builder
	if !st.HasLast {
		b.WriteString("No data received\n")
	}

	s := st.Stats
	fmt.Fprintf(&b, "session %s ended after %s: accepted=%s stale=%s skipped=%s\n",
		st.SessionID, st.Elapsed.Round(time.Millisecond),
		humanize.Comma(int64(s.Accepted)), humanize.Comma(int64(s.Stale)), humanize.Comma(int64(s.SkippedTotal())))
	for _, reason := range s.Reasons() {
		fmt.Fprintf(&b, "  skipped %s: %s\n", reason, humanize.Comma(int64(s.Skipped[reason])))
	}
	if st.HasLast {
		fmt.Fprintf(&b, "last: %s\n", FormatResult(st.Last, false))
	}

	switch {
	case st.Err == nil, errors.Is(st.Err, context.Canceled):
	case errors.Is(st.Err, pipeline.ErrSourceDisconnected):
		b.WriteString("stopped: serial source disconnected\n")
	default:
		fmt.Fprintf(&b, "stopped: %v\n", st.Err)
	}
	return b.String()
}
