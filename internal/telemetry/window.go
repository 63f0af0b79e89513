package telemetry

import "gonum.org/v1/gonum/stat"

// Window is a fixed-capacity FIFO of the most recent values of one channel.
// Once full, each Push evicts the oldest value.
type Window struct {
	buf   []float64
	next  int
	count int
}

// NewWindow returns an empty window holding at most size values. Sizes below
// one are treated as one.
func NewWindow(size int) *Window {
	if size < 1 {
		size = 1
	}
	return &Window{buf: make([]float64, size)}
}

// Push appends v, evicting the oldest value when the window is full.
func (w *Window) Push(v float64) {
	w.buf[w.next] = v
	w.next = (w.next + 1) % len(w.buf)
	if w.count < len(w.buf) {
		w.count++
	}
}

// Len returns the number of values currently held.
func (w *Window) Len() int { return w.count }

// Cap returns the window capacity.
func (w *Window) Cap() int { return len(w.buf) }

// Values returns the held values, oldest first.
func (w *Window) Values() []float64 {
	out := make([]float64, 0, w.count)
	start := (w.next - w.count + len(w.buf)) % len(w.buf)
	for i := 0; i < w.count; i++ {
		out = append(out, w.buf[(start+i)%len(w.buf)])
	}
	return out
}

// Mean returns the arithmetic mean of the held values, or 0 for an empty
// window. The sum is recomputed from the held values on every call.
func (w *Window) Mean() float64 {
	if w.count == 0 {
		return 0
	}
	return stat.Mean(w.Values(), nil)
}

