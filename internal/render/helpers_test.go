package render

import (
	"errors"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/imu.visualiser/internal/pipeline"
	"github.com/banshee-data/imu.visualiser/internal/telemetry"
	"github.com/banshee-data/imu.visualiser/internal/units"
)

var epoch = time.Date(2026, 4, 10, 12, 0, 0, 0, time.UTC)

func result(at time.Duration, rollDeg, pitchDeg, yawDeg float64) pipeline.Result {
	return pipeline.Result{
		Raw: "Orientation:1,2,3",
		Smoothed: telemetry.Smoothed{
			Roll:  units.DegreesToRadians(rollDeg),
			Pitch: units.DegreesToRadians(pitchDeg),
			Yaw:   units.DegreesToRadians(yawDeg),
		},
		Vector:       r3.Vec{Z: 1},
		DataRateHz:   12.5,
		Observations: 1234,
		At:           epoch.Add(at),
	}
}

type countingSink struct {
	renders int
	finals  int
	err     error
}

func (s *countingSink) Render(pipeline.Result) error {
	s.renders++
	return s.err
}

func (s *countingSink) Final(pipeline.Status) { s.finals++ }

var errBoom = errors.New("boom")
