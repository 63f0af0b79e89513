package telemetry

// DefaultWindowSize is the number of frames averaged when no size is configured.
const DefaultWindowSize = 5

// Smoothed holds the windowed mean of each channel. Angles are in radians.
type Smoothed struct {
	Roll        float64
	Pitch       float64
	Yaw         float64
	Altitude    float64
	HasAltitude bool
}

// Averager keeps one rolling window per channel and reports the mean of what
// is available, up to the window size. It is not safe for concurrent use.
type Averager struct {
	roll, pitch, yaw, altitude *Window
	count                      uint64
}

// NewAverager returns an Averager whose windows hold size values each.
func NewAverager(size int) *Averager {
	return &Averager{
		roll:     NewWindow(size),
		pitch:    NewWindow(size),
		yaw:      NewWindow(size),
		altitude: NewWindow(size),
	}
}

// Observe adds f to the windows and returns the smoothed state. The altitude
// window is only updated, and the smoothed altitude only reported, when f
// carries an altitude.
func (a *Averager) Observe(f Frame) Smoothed {
	a.roll.Push(f.Roll)
	a.pitch.Push(f.Pitch)
	a.yaw.Push(f.Yaw)
	a.count++

	s := Smoothed{
		Roll:  a.roll.Mean(),
		Pitch: a.pitch.Mean(),
		Yaw:   a.yaw.Mean(),
	}
	if f.HasAltitude {
		a.altitude.Push(f.Altitude)
		s.Altitude = a.altitude.Mean()
		s.HasAltitude = true
	}
	return s
}

// Count returns the number of frames observed since construction.
func (a *Averager) Count() uint64 { return a.count }

// WindowSize returns the configured window capacity.
func (a *Averager) WindowSize() int { return a.roll.Cap() }

