package render

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/imu.visualiser/internal/fsutil"
	"github.com/banshee-data/imu.visualiser/internal/pipeline"
	"github.com/banshee-data/imu.visualiser/internal/testutil"
)

func TestArrowGeometry(t *testing.T) {
	vectors := []r3.Vec{
		{Z: 1},
		{X: 1},
		{X: -1},
		{Y: -1},
		r3.Unit(r3.Vec{X: 0.3, Y: -0.4, Z: 0.5}),
		{X: 0, Y: 2, Z: 0},
	}

	for _, v := range vectors {
		shaft, head := ArrowGeometry(v)
		testutil.AssertVec(t, shaft[0], r3.Vec{})
		testutil.AssertVec(t, shaft[1], v)
		require.Len(t, head, 11)

		n := r3.Norm(v)
		axis := r3.Unit(v)
		base := r3.Scale(headBase, v)
		for i, p := range head {
			if p == v {
				continue
			}
			// Ring points sit in the plane through base, at headRadius·|v|
			offset := r3.Sub(p, base)
			assert.InDelta(t, 0, r3.Dot(offset, axis), 1e-9, "point %d off plane", i)
			assert.InDelta(t, headRadius*n, r3.Norm(offset), 1e-9, "point %d radius", i)
		}

		tips := 0
		for _, p := range head {
			if p == v {
				tips++
			}
		}
		assert.Equal(t, 3, tips)
		assert.Equal(t, head[0], head[4], "ring closes")
	}
}

func TestArrowGeometry_Zero(t *testing.T) {
	shaft, head := ArrowGeometry(r3.Vec{})
	assert.Equal(t, [2]r3.Vec{}, shaft)
	assert.Nil(t, head)
}

func TestWriteArrow(t *testing.T) {
	var buf bytes.Buffer
	r := result(0, 0, 0, 0)
	r.Stale = true
	require.NoError(t, WriteArrow(&buf, r, "session-1"))

	html := buf.String()
	assert.Contains(t, html, "IMU Orientation")
	assert.Contains(t, html, "session=session-1")
	assert.Contains(t, html, "(stale)")
	assert.Contains(t, html, "shaft")
	assert.Contains(t, html, "head")
}

func TestArrowPage_RenderThrottlesAndFinalWrites(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	page := NewArrowPage(mfs, "/out/imu.html", 200*time.Millisecond, "s1")

	for i := 0; i < 10; i++ {
		require.NoError(t, page.Render(result(time.Duration(i)*50*time.Millisecond, 0, 0, 0)))
	}
	// 0, 200 and 400ms pass
	assert.Equal(t, 3, page.Writes())

	page.Final(pipeline.Status{SessionID: "s1", Last: result(time.Second, 0, 0, 0), HasLast: true})
	assert.Equal(t, 4, page.Writes())

	data, err := mfs.ReadFile("/out/imu.html")
	require.NoError(t, err)
	assert.Contains(t, string(data), `http-equiv="refresh" content="1"`)
	assert.Equal(t, []string{"/out/imu.html"}, mfs.Files(), "temp file renamed away")
}

func TestArrowPage_FinalWithoutData(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	page := NewArrowPage(mfs, "/out/imu.html", time.Second, "s1")
	page.Final(pipeline.Status{SessionID: "s1"})
	assert.Equal(t, 0, page.Writes())
	assert.Empty(t, mfs.Files())
}

func TestArrowPage_WriteError(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	mfs.FailWrites = true
	page := NewArrowPage(mfs, "/out/imu.html", 0, "s1")
	assert.Error(t, page.Render(result(0, 0, 0, 0)))
	assert.Equal(t, 0, page.Writes())
}

func TestNewArrowPage_RefreshSeconds(t *testing.T) {
	tests := []struct {
		interval time.Duration
		want     int
	}{
		{0, 1},
		{200 * time.Millisecond, 1},
		{1500 * time.Millisecond, 2},
		{3 * time.Second, 3},
	}
	for _, tt := range tests {
		page := NewArrowPage(fsutil.NewMemoryFileSystem(), "x.html", tt.interval, "")
		assert.Equal(t, tt.want, page.refresh, "interval %s", tt.interval)
	}
}
