package source

import (
	"errors"
	"image"
	"time"

	"gocv.io/x/gocv"
)

// ErrUnavailable is returned by CurrentFrame when the source has no decodable
// frame yet. This is expected steady-state before a source comes up; callers
// skip the cycle and try again later.
var ErrUnavailable = errors.New("source: no frame available")

// Frame is a single raster snapshot from a source: a BGR 8-bit Mat plus the
// capture time. A Frame is never mutated after capture; whichever component
// holds it owns it and must call Release exactly once.
type Frame struct {
	Mat  gocv.Mat
	Time time.Time

	pool *MatPool
}

// Release returns the underlying Mat to its pool, or frees it if the Frame
// was not pool-allocated.
func (f *Frame) Release() {
	if f.pool != nil {
		f.pool.ReleaseMat(f.Mat)
		f.pool = nil
		return
	}
	f.Mat.Close()
}

// Clone produces an independently owned copy of the frame.
func (f *Frame) Clone() Frame {
	n := Frame{
		Mat:  gocv.NewMat(),
		Time: f.Time,
	}
	f.Mat.CopyTo(&n.Mat)
	return n
}

func (f *Frame) Size() image.Point {
	return image.Point{X: f.Mat.Cols(), Y: f.Mat.Rows()}
}

// FrameSource is anything exposing a current decodable video frame. The core
// only ever pulls; nothing is pushed into a source.
type FrameSource interface {
	// CurrentFrame returns the most recent frame, or ErrUnavailable if the
	// source cannot currently produce one. The caller owns the returned frame.
	CurrentFrame() (Frame, error)

	// Size returns the raster size of frames produced by this source, or the
	// zero point if no frame has been seen yet.
	Size() image.Point

	// Close disconnects from the source and frees its resources.
	Close()
}
