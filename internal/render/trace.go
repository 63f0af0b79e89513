package render

import (
	"bytes"
	"fmt"
	"image/color"
	"sync"
	"time"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/imu.visualiser/internal/fsutil"
	"github.com/banshee-data/imu.visualiser/internal/monitoring"
	"github.com/banshee-data/imu.visualiser/internal/pipeline"
	"github.com/banshee-data/imu.visualiser/internal/units"
)

// TraceSample is one smoothed orientation in degrees, timed from the first
// sample of the run.
type TraceSample struct {
	Offset           time.Duration
	Roll, Pitch, Yaw float64
}

// TracePlotter records the most recent smoothed angles and saves them as a
// PNG line plot when the run ends.
type TracePlotter struct {
	mu        sync.Mutex
	fs        fsutil.FileSystem
	path      string
	sessionID string

	samples []TraceSample
	next    int
	full    bool
	start   time.Time
}

// NewTracePlotter keeps the last capacity samples and saves them to path.
func NewTracePlotter(fsys fsutil.FileSystem, path string, capacity int, sessionID string) *TracePlotter {
	if capacity < 2 {
		capacity = 2
	}
	return &TracePlotter{
		fs:        fsys,
		path:      path,
		sessionID: sessionID,
		samples:   make([]TraceSample, capacity),
	}
}

// Render records r. Stale results repeat the previous angles and are skipped.
func (tp *TracePlotter) Render(r pipeline.Result) error {
	if r.Stale {
		return nil
	}

	tp.mu.Lock()
	defer tp.mu.Unlock()

	if tp.start.IsZero() {
		tp.start = r.At
	}
	tp.samples[tp.next] = TraceSample{
		Offset: r.At.Sub(tp.start),
		Roll:   units.RadiansToDegrees(r.Smoothed.Roll),
		Pitch:  units.RadiansToDegrees(r.Smoothed.Pitch),
		Yaw:    units.RadiansToDegrees(r.Smoothed.Yaw),
	}
	tp.next++
	if tp.next == len(tp.samples) {
		tp.next = 0
		tp.full = true
	}
	return nil
}

// Samples returns the retained samples, oldest first.
func (tp *TracePlotter) Samples() []TraceSample {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	return tp.ordered()
}

func (tp *TracePlotter) ordered() []TraceSample {
	if !tp.full {
		return append([]TraceSample(nil), tp.samples[:tp.next]...)
	}
	out := make([]TraceSample, 0, len(tp.samples))
	out = append(out, tp.samples[tp.next:]...)
	return append(out, tp.samples[:tp.next]...)
}

// Final saves the plot. Nothing is written when no samples were recorded.
func (tp *TracePlotter) Final(st pipeline.Status) {
	if err := tp.Save(); err != nil {
		monitoring.Logf("[%s] trace plot: %v", st.SessionID, err)
	}
}

// Save writes the PNG for the samples recorded so far.
func (tp *TracePlotter) Save() error {
	tp.mu.Lock()
	samples := tp.ordered()
	tp.mu.Unlock()

	if len(samples) == 0 {
		return nil
	}

	p, err := tracePlot(samples, tp.sessionID)
	if err != nil {
		return err
	}

	wt, err := p.WriterTo(10*vg.Inch, 4*vg.Inch, "png")
	if err != nil {
		return fmt.Errorf("encode trace plot: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return fmt.Errorf("encode trace plot: %w", err)
	}
	if err := fsutil.WriteFileAtomic(tp.fs, tp.path, buf.Bytes()); err != nil {
		return fmt.Errorf("save trace plot: %w", err)
	}
	return nil
}

func tracePlot(samples []TraceSample, sessionID string) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Smoothed orientation (session %s)", sessionID)
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Angle (°)"

	series := []struct {
		name  string
		color color.Color
		value func(TraceSample) float64
	}{
		{"roll", color.RGBA{R: 0xe5, G: 0x39, B: 0x35, A: 0xff}, func(s TraceSample) float64 { return s.Roll }},
		{"pitch", color.RGBA{R: 0x43, G: 0xa0, B: 0x47, A: 0xff}, func(s TraceSample) float64 { return s.Pitch }},
		{"yaw", color.RGBA{R: 0x1e, G: 0x88, B: 0xe5, A: 0xff}, func(s TraceSample) float64 { return s.Yaw }},
	}

	for _, ser := range series {
		pts := make(plotter.XYs, 0, len(samples))
		for _, s := range samples {
			pts = append(pts, plotter.XY{X: s.Offset.Seconds(), Y: ser.value(s)})
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("create %s line: %w", ser.name, err)
		}
		line.Color = ser.color
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(ser.name, line)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}
