package monitoring

import (
	"sort"
	"sync"
)

// Counters tallies accepted, stale and skipped telemetry frames. The zero
// value is ready to use and it is safe for concurrent use.
type Counters struct {
	mu       sync.Mutex
	accepted uint64
	stale    uint64
	skipped  map[string]uint64
}

// Snapshot is a point-in-time copy of Counters.
type Snapshot struct {
	Accepted uint64
	Stale    uint64
	Skipped  map[string]uint64
}

// Accept records a frame that produced a fresh vector.
func (c *Counters) Accept() {
	c.mu.Lock()
	c.accepted++
	c.mu.Unlock()
}

// Stale records a frame that was observed but could not produce a vector.
func (c *Counters) Stale() {
	c.mu.Lock()
	c.stale++
	c.mu.Unlock()
}

// Skip records a line dropped for the given reason.
func (c *Counters) Skip(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.skipped == nil {
		c.skipped = make(map[string]uint64)
	}
	c.skipped[reason]++
}

// Snapshot returns a copy of the current tallies.
func (c *Counters) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{Accepted: c.accepted, Stale: c.stale, Skipped: make(map[string]uint64, len(c.skipped))}
	for k, v := range c.skipped {
		s.Skipped[k] = v
	}
	return s
}

// SkippedTotal returns the number of skipped lines across all reasons.
func (s Snapshot) SkippedTotal() uint64 {
	var n uint64
	for _, v := range s.Skipped {
		n += v
	}
	return n
}

// Reasons returns the skip reasons in sorted order.
func (s Snapshot) Reasons() []string {
	out := make([]string, 0, len(s.Skipped))
	for k := range s.Skipped {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
