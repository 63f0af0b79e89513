// Package telemetry decodes orientation lines from the sensor and smooths
// them over a short rolling window.
package telemetry

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/banshee-data/imu.visualiser/internal/units"
)

var (
	ErrMissingDelimiter  = errors.New("missing ':' delimiter")
	ErrInvalidFieldCount = errors.New("expected 3 or 4 comma separated fields")
	ErrNotNumeric        = errors.New("field is not a finite number")
)

// ParseError describes why a raw line could not be decoded. It unwraps to one
// of the Err* sentinels above.
type ParseError struct {
	Line  string
	Field int // 1-based index of the offending field, 0 when not field specific
	Err   error
}

func (e *ParseError) Error() string {
	if e.Field > 0 {
		return fmt.Sprintf("parse %q: field %d: %v", e.Line, e.Field, e.Err)
	}
	return fmt.Sprintf("parse %q: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Frame is a single decoded reading. Angles are in radians.
type Frame struct {
	Roll        float64
	Pitch       float64
	Yaw         float64
	Altitude    float64 // only meaningful when HasAltitude is set
	HasAltitude bool
}

// ParseFrame decodes a line of the form "<label>:<roll>,<pitch>,<yaw>[,<alt>]".
// Angles arrive in degrees and are converted to radians; altitude is passed
// through unchanged.
func ParseFrame(line string) (Frame, error) {
	_, payload, ok := strings.Cut(line, ":")
	if !ok {
		return Frame{}, &ParseError{Line: line, Err: ErrMissingDelimiter}
	}

	fields := strings.Split(payload, ",")
	if len(fields) != 3 && len(fields) != 4 {
		return Frame{}, &ParseError{Line: line, Err: fmt.Errorf("%w: got %d", ErrInvalidFieldCount, len(fields))}
	}

	values := make([]float64, len(fields))
	for i, field := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return Frame{}, &ParseError{Line: line, Field: i + 1, Err: ErrNotNumeric}
		}
		values[i] = v
	}

	f := Frame{
		Roll:  units.DegreesToRadians(values[0]),
		Pitch: units.DegreesToRadians(values[1]),
		Yaw:   units.DegreesToRadians(values[2]),
	}
	if len(values) == 4 {
		f.Altitude = values[3]
		f.HasAltitude = true
	}
	return f, nil
}
