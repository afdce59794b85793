package clip

import (
	"bytes"
	"image"
	"image/gif"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"gifcam/util"
	"gifcam/video/capture"
	"gifcam/video/record"
	"gifcam/video/source"
)

// syntheticSource produces solid frames whose brightness rises with time, so
// temporal order is observable in the encoded artifact.
type syntheticSource struct {
	w, h  int
	start time.Time
}

func (s *syntheticSource) CurrentFrame() (source.Frame, error) {
	l := float64(time.Since(s.start).Milliseconds() / 40 % 256)
	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(l, l, l, 0), s.h, s.w, gocv.MatTypeCV8UC3)
	return source.Frame{Mat: m, Time: time.Now()}, nil
}

func (s *syntheticSource) Size() image.Point {
	return image.Point{X: s.w, Y: s.h}
}

func (s *syntheticSource) Close() {}

func TestCaptureRecordEncodeRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping capture round trip in short mode")
	}
	if _, err := util.LocateFFmpeg(); err != nil {
		t.Skipf("ffmpeg not available: %v", err)
	}

	const recordTime = 2 * time.Second

	src := &syntheticSource{w: 160, h: 120, start: time.Now()}
	cap := capture.NewFFmpegCapture(capture.FFmpegOptions{FPS: 15})
	rec := record.NewRecorder(cap, record.RecorderOptions{RecordTime: recordTime})
	defer rec.Close()

	sealedc := make(chan *record.Session, 1)
	rec.Sealed = func(s *record.Session) { sealedc <- s }
	require.NoError(t, rec.Start(src))

	var sess *record.Session
	select {
	case sess = <-sealedc:
	case <-time.After(15 * time.Second):
		t.Fatal("recording did not seal")
	}
	require.True(t, sess.Sealed())
	require.NotEmpty(t, sess.Chunks())

	e := NewEncoder(EncoderOptions{
		FrameDelay: 100 * time.Millisecond,
		Duration:   recordTime,
		TempDir:    t.TempDir(),
	})
	res := <-e.Encode(sess)
	require.NoError(t, res.Err)
	a := res.Artifact

	assert.Equal(t, 160, a.Width)
	assert.Equal(t, 120, a.Height)
	assert.Equal(t, 100, a.DelayMs)
	// Nominally floor(2000/100) = 20 frames; encoder startup can trim the
	// clip slightly.
	assert.GreaterOrEqual(t, a.Frames, 10)
	assert.LessOrEqual(t, a.Frames, 21)

	// Round trip: decoding reproduces the frame count and temporal order.
	g, err := gif.DecodeAll(bytes.NewReader(a.Bytes))
	require.NoError(t, err)
	assert.Len(t, g.Image, a.Frames)
	assert.Equal(t, 0, g.LoopCount)

	first, _, _, _ := g.Image[0].At(0, 0).RGBA()
	last, _, _, _ := g.Image[len(g.Image)-1].At(0, 0).RGBA()
	assert.Greater(t, last>>8, first>>8, "brightness rises over the clip, so order must be preserved")
}
