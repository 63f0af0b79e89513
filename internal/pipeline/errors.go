package pipeline

import (
	"errors"

	"github.com/banshee-data/imu.visualiser/internal/orientation"
	"github.com/banshee-data/imu.visualiser/internal/telemetry"
)

var (
	// ErrSourceDisconnected is returned by Run when the line source closes.
	ErrSourceDisconnected = errors.New("telemetry source disconnected")
	// ErrSourceReadFailure wraps an error reported by the line source.
	ErrSourceReadFailure = errors.New("telemetry source read failure")
)

// Skip reasons recorded in the pipeline counters.
const (
	ReasonMissingDelimiter  = "missing_delimiter"
	ReasonInvalidFieldCount = "invalid_field_count"
	ReasonNotNumeric        = "not_numeric"
	ReasonDegenerate        = "degenerate_orientation"
	ReasonUnknown           = "unknown"
)

// IsTerminal reports whether err should stop the driving loop. Parse and
// orientation errors are recoverable; source errors and cancellation are not.
func IsTerminal(err error) bool {
	if err == nil {
		return false
	}
	return !IsRecoverable(err)
}

// IsRecoverable reports whether err only affects the current line.
func IsRecoverable(err error) bool {
	return errors.Is(err, telemetry.ErrMissingDelimiter) ||
		errors.Is(err, telemetry.ErrInvalidFieldCount) ||
		errors.Is(err, telemetry.ErrNotNumeric) ||
		errors.Is(err, orientation.ErrDegenerateOrientation)
}

// Reason maps a recoverable error to its counter key.
func Reason(err error) string {
	switch {
	case errors.Is(err, telemetry.ErrMissingDelimiter):
		return ReasonMissingDelimiter
	case errors.Is(err, telemetry.ErrInvalidFieldCount):
		return ReasonInvalidFieldCount
	case errors.Is(err, telemetry.ErrNotNumeric):
		return ReasonNotNumeric
	case errors.Is(err, orientation.ErrDegenerateOrientation):
		return ReasonDegenerate
	default:
		return ReasonUnknown
	}
}
