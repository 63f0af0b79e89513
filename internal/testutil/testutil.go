// Package testutil provides shared test utilities and fixtures.
//
// This package centralises the float and vector comparisons used across the
// telemetry, orientation and pipeline tests.
package testutil

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

// Tolerance is the default absolute tolerance for float comparisons.
const Tolerance = 1e-9

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AlmostEqual reports whether a and b are within tol of each other.
func AlmostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

// AssertFloat checks that got is within Tolerance of want.
func AssertFloat(t testing.TB, name string, got, want float64) {
	t.Helper()
	if !AlmostEqual(got, want, Tolerance) {
		t.Errorf("%s = %.12g, want %.12g", name, got, want)
	}
}

// VecAlmostEqual reports whether every component of a and b is within tol.
func VecAlmostEqual(a, b r3.Vec, tol float64) bool {
	return AlmostEqual(a.X, b.X, tol) && AlmostEqual(a.Y, b.Y, tol) && AlmostEqual(a.Z, b.Z, tol)
}

// AssertVec checks that got is within Tolerance of want component-wise.
func AssertVec(t testing.TB, got, want r3.Vec) {
	t.Helper()
	if !VecAlmostEqual(got, want, Tolerance) {
		t.Errorf("vector = (%.9f, %.9f, %.9f), want (%.9f, %.9f, %.9f)",
			got.X, got.Y, got.Z, want.X, want.Y, want.Z)
	}
}

// AssertUnit checks that v has unit length.
func AssertUnit(t testing.TB, v r3.Vec) {
	t.Helper()
	if n := r3.Norm(v); !AlmostEqual(n, 1, Tolerance) {
		t.Errorf("|v| = %.12g, want 1", n)
	}
}
