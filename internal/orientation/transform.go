// Package orientation turns smoothed Euler angles into a direction vector
// for display.
//
// Angles are composed as intrinsic rotations in x→y→z order: roll about X,
// then pitch about the rotated Y, then yaw about the twice-rotated Z. The
// combined rotation is R = Rx(roll)·Ry(pitch)·Rz(yaw), which renderers rely
// on for a consistent handedness.
package orientation

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/imu.visualiser/internal/telemetry"
)

// ErrDegenerateOrientation is returned when the rotated reference vector has
// no usable direction (zero length or non-finite).
var ErrDegenerateOrientation = errors.New("degenerate orientation: rotated vector has zero or non-finite norm")

// minNorm is the smallest rotated-vector length that is still normalised.
const minNorm = 1e-12

var (
	axisX = r3.Vec{X: 1}
	axisY = r3.Vec{Y: 1}
	axisZ = r3.Vec{Z: 1}
)

// DefaultReference is the body-frame "up" vector that gets rotated.
var DefaultReference = r3.Vec{X: 0, Y: 0, Z: 1}

// Quaternion is a rotation in (x, y, z, w) order, w being the scalar part.
type Quaternion struct {
	X, Y, Z, W float64
}

// Transform rotates a fixed reference vector by a smoothed orientation.
// It holds no mutable state and is safe for concurrent use.
type Transform struct {
	reference r3.Vec
}

// NewTransform returns a Transform that rotates reference.
func NewTransform(reference r3.Vec) *Transform {
	return &Transform{reference: reference}
}

// Reference returns the vector being rotated.
func (t *Transform) Reference() r3.Vec { return t.reference }

// Rotation composes roll, pitch and yaw of s into a single rotation.
func (t *Transform) Rotation(s telemetry.Smoothed) r3.Rotation {
	qx := quat.Number(r3.NewRotation(s.Roll, axisX))
	qy := quat.Number(r3.NewRotation(s.Pitch, axisY))
	qz := quat.Number(r3.NewRotation(s.Yaw, axisZ))
	return r3.Rotation(quat.Mul(quat.Mul(qx, qy), qz))
}

// ToVector rotates the reference vector by s and returns it at unit length.
func (t *Transform) ToVector(s telemetry.Smoothed) (r3.Vec, error) {
	v := t.Rotation(s).Rotate(t.reference)
	n := r3.Norm(v)
	if math.IsNaN(n) || math.IsInf(n, 0) || n < minNorm {
		return r3.Vec{}, ErrDegenerateOrientation
	}
	return r3.Scale(1/n, v), nil
}

// ToQuaternion returns the composed rotation for s.
func (t *Transform) ToQuaternion(s telemetry.Smoothed) Quaternion {
	q := quat.Number(t.Rotation(s))
	return Quaternion{X: q.Imag, Y: q.Jmag, Z: q.Kmag, W: q.Real}
}
