package render

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/imu.visualiser/internal/fsutil"
	"github.com/banshee-data/imu.visualiser/internal/monitoring"
	"github.com/banshee-data/imu.visualiser/internal/pipeline"
)

const (
	// headBase is where the arrow head starts along the shaft.
	headBase = 0.9
	// headRadius is the head's half-width relative to the vector length.
	headRadius = 0.05
)

// ArrowPage keeps an HTML page with a 3D arrow from the origin to the latest
// orientation vector. The page is rewritten at most once per interval and
// reloads itself in the browser.
type ArrowPage struct {
	mu        sync.Mutex
	fs        fsutil.FileSystem
	path      string
	sessionID string
	refresh   int
	throttle  throttle
	writes    int
}

// NewArrowPage writes to path through fsys.
func NewArrowPage(fsys fsutil.FileSystem, path string, interval time.Duration, sessionID string) *ArrowPage {
	refresh := int(math.Ceil(interval.Seconds()))
	if refresh < 1 {
		refresh = 1
	}
	return &ArrowPage{
		fs:        fsys,
		path:      path,
		sessionID: sessionID,
		refresh:   refresh,
		throttle:  throttle{interval: interval},
	}
}

// Render rewrites the page for r if the interval has elapsed.
func (a *ArrowPage) Render(r pipeline.Result) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.throttle.allow(r.At) {
		return nil
	}
	return a.write(r)
}

// Final writes the last result so the page reflects where the stream ended.
func (a *ArrowPage) Final(st pipeline.Status) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !st.HasLast {
		return
	}
	if err := a.write(st.Last); err != nil {
		monitoring.Logf("[%s] final arrow page: %v", st.SessionID, err)
	}
}

// Writes reports how many times the page has been written.
func (a *ArrowPage) Writes() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.writes
}

func (a *ArrowPage) write(r pipeline.Result) error {
	var buf bytes.Buffer
	if err := WriteArrow(&buf, r, a.sessionID); err != nil {
		return err
	}
	page := bytes.Replace(buf.Bytes(), []byte("<head>"),
		[]byte(fmt.Sprintf("<head>\n    <meta http-equiv=\"refresh\" content=\"%d\">", a.refresh)), 1)
	if err := fsutil.WriteFileAtomic(a.fs, a.path, page); err != nil {
		return fmt.Errorf("write arrow page: %w", err)
	}
	a.writes++
	return nil
}

// WriteArrow renders r as a go-echarts Line3D chart with the axes fixed to
// [-1, 1].
func WriteArrow(w io.Writer, r pipeline.Result, sessionID string) error {
	shaft, head := ArrowGeometry(r.Vector)

	subtitle := fmt.Sprintf("session=%s n=%d rate=%s", sessionID, r.Observations, FormatRate(r.DataRateHz))
	if r.Stale {
		subtitle += " (stale)"
	}

	line3d := charts.NewLine3D()
	line3d.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "IMU Orientation", Theme: "dark", Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{Title: "IMU Orientation", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxis3DOpts(opts.XAxis3D{Name: "X", Min: -1, Max: 1}),
		charts.WithYAxis3DOpts(opts.YAxis3D{Name: "Y", Min: -1, Max: 1}),
		charts.WithZAxis3DOpts(opts.ZAxis3D{Name: "Z", Min: -1, Max: 1}),
	)
	line3d.AddSeries("shaft", chart3DData(shaft[:]), charts.WithLineStyleOpts(opts.LineStyle{Color: "#4fc3f7", Width: 6}))
	line3d.AddSeries("head", chart3DData(head), charts.WithLineStyleOpts(opts.LineStyle{Color: "#ff7043", Width: 4}))

	if err := line3d.Render(w); err != nil {
		return fmt.Errorf("render arrow chart: %w", err)
	}
	return nil
}

func chart3DData(points []r3.Vec) []opts.Chart3DData {
	data := make([]opts.Chart3DData, 0, len(points))
	for _, p := range points {
		data = append(data, opts.Chart3DData{Value: []interface{}{p.X, p.Y, p.Z}})
	}
	return data
}

// ArrowGeometry returns the shaft from the origin to v and a wireframe head:
// a square ring at headBase·v closed back on itself, then spokes to the tip.
// A zero vector has no head.
func ArrowGeometry(v r3.Vec) (shaft [2]r3.Vec, head []r3.Vec) {
	shaft = [2]r3.Vec{{}, v}
	n := r3.Norm(v)
	if n == 0 {
		return shaft, nil
	}

	axis := r3.Scale(1/n, v)
	helper := r3.Vec{X: 1}
	if math.Abs(axis.X) > 0.9 {
		helper = r3.Vec{Y: 1}
	}
	u := r3.Unit(r3.Cross(axis, helper))
	w := r3.Cross(axis, u)

	base := r3.Scale(headBase, v)
	radius := headRadius * n
	var ring [4]r3.Vec
	for k := range ring {
		s, c := math.Sincos(float64(k) * math.Pi / 2)
		ring[k] = r3.Add(base, r3.Add(r3.Scale(radius*c, u), r3.Scale(radius*s, w)))
	}

	head = []r3.Vec{ring[0], ring[1], ring[2], ring[3], ring[0], v, ring[1], v, ring[2], v, ring[3]}
	return shaft, head
}
