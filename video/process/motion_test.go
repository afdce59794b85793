package process

import (
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"gifcam/video/source"
)

const testThreshold = 7718920

// frameSeq is a FrameSource serving a fixed sequence of frames, one per pull.
// Pulls beyond the sequence report ErrUnavailable.
type frameSeq struct {
	frames []source.Frame
	i      int
}

func (f *frameSeq) CurrentFrame() (source.Frame, error) {
	if f.i >= len(f.frames) {
		return source.Frame{}, source.ErrUnavailable
	}
	fr := f.frames[f.i].Clone()
	f.i++
	return fr, nil
}

func (f *frameSeq) Size() image.Point {
	if len(f.frames) == 0 {
		return image.Point{}
	}
	return f.frames[0].Size()
}

func (f *frameSeq) Close() {
	for i := range f.frames {
		f.frames[i].Release()
	}
}

func solidFrame(w, h int, b, g, r float64) source.Frame {
	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(b, g, r, 0), h, w, gocv.MatTypeCV8UC3)
	return source.Frame{Mat: m, Time: time.Now()}
}

func newTestMotion(t *testing.T, src source.FrameSource) *Motion {
	t.Helper()
	m, err := NewMotion(src, MotionOptions{
		SampleInterval: time.Second,
		Threshold:      testThreshold,
		Local:          true,
	})
	require.NoError(t, err)
	t.Cleanup(m.release)
	return m
}

func TestFrameDiffIdentical(t *testing.T) {
	a := solidFrame(649, 480, 0, 0, 0)
	b := solidFrame(649, 480, 0, 0, 0)
	defer a.Release()
	defer b.Release()
	scratch := gocv.NewMat()
	defer scratch.Close()

	assert.Equal(t, 0.0, frameDiff(a.Mat, b.Mat, &scratch))
}

func TestFrameDiffRedSaturation(t *testing.T) {
	a := solidFrame(649, 480, 0, 0, 0)
	b := solidFrame(649, 480, 0, 0, 255)
	defer a.Release()
	defer b.Release()
	scratch := gocv.NewMat()
	defer scratch.Close()

	// 649 * 480 * 255, red channel only.
	assert.Equal(t, 79423200.0, frameDiff(a.Mat, b.Mat, &scratch))
}

func TestMotionThresholdMustBePositive(t *testing.T) {
	_, err := NewMotion(&frameSeq{}, MotionOptions{SampleInterval: time.Second, Threshold: 0})
	assert.Error(t, err)
	_, err = NewMotion(&frameSeq{}, MotionOptions{SampleInterval: time.Second, Threshold: -1})
	assert.Error(t, err)
}

func TestMotionIdenticalFramesNoEvent(t *testing.T) {
	src := &frameSeq{frames: []source.Frame{
		solidFrame(649, 480, 0, 0, 0),
		solidFrame(649, 480, 0, 0, 0),
	}}
	defer src.Close()

	m := newTestMotion(t, src)
	events := 0
	m.OnMotion = func(local bool) { events++ }

	m.tick() // first sample only stored
	m.tick()

	assert.Equal(t, 0, events)
}

func TestMotionEdgeTriggerAndLatch(t *testing.T) {
	// Black, then saturated red held for several samples. The red transition
	// crosses the threshold; the repeats must not re-fire.
	src := &frameSeq{frames: []source.Frame{
		solidFrame(649, 480, 0, 0, 0),
		solidFrame(649, 480, 0, 0, 255),
		solidFrame(649, 480, 0, 0, 255),
		solidFrame(649, 480, 0, 0, 0),
		solidFrame(649, 480, 0, 0, 255),
	}}
	defer src.Close()

	m := newTestMotion(t, src)
	events := 0
	var gotLocal bool
	m.OnMotion = func(local bool) {
		events++
		gotLocal = local
	}

	for i := 0; i < 5; i++ {
		m.tick()
	}

	// The black->red, red->black and black->red transitions all exceed the
	// threshold, but the latch permits exactly one event.
	assert.Equal(t, 1, events)
	assert.True(t, gotLocal)
	assert.True(t, m.triggered)
}

func TestMotionSourceUnavailableSkipsCycle(t *testing.T) {
	src := &frameSeq{} // never has a frame
	m := newTestMotion(t, src)
	events := 0
	m.OnMotion = func(local bool) { events++ }

	m.tick()
	m.tick()

	assert.Equal(t, 0, events)
	assert.False(t, m.havePrev)
}

func TestMotionResamplesMixedSizes(t *testing.T) {
	// Frames of different native sizes are compared on the fixed raster, so
	// a solid-color frame at another size still diffs to zero.
	src := &frameSeq{frames: []source.Frame{
		solidFrame(1280, 720, 10, 20, 30),
		solidFrame(320, 240, 10, 20, 30),
	}}
	defer src.Close()

	m := newTestMotion(t, src)
	events := 0
	m.OnMotion = func(local bool) { events++ }

	m.tick()
	m.tick()

	assert.Equal(t, 0, events)
}
