package record

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gifcam/video/capture"
	"gifcam/video/source"
)

// fakeCapture produces a numbered chunk every few milliseconds until stopped.
type fakeCapture struct {
	mu    sync.Mutex
	begun int
}

func (f *fakeCapture) Begin(src source.FrameSource) (*capture.ChunkStream, error) {
	f.mu.Lock()
	f.begun++
	f.mu.Unlock()

	s := capture.NewChunkStream()
	go func() {
		t := time.NewTicker(5 * time.Millisecond)
		defer t.Stop()
		i := byte(0)
		for {
			select {
			case <-s.Stopped():
				// Final flush after the stop request, like a real encoder.
				s.Send([]byte{i})
				s.CloseSend()
				return
			case <-t.C:
				s.Send([]byte{i})
				i++
			}
		}
	}()
	return s, nil
}

func (f *fakeCapture) begunCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.begun
}

func TestRecorderSealsAfterRecordTime(t *testing.T) {
	fc := &fakeCapture{}
	r := NewRecorder(fc, RecorderOptions{RecordTime: 60 * time.Millisecond})
	defer r.Close()

	sealedc := make(chan *Session, 1)
	r.Sealed = func(s *Session) { sealedc <- s }

	require.NoError(t, r.Start(nil))

	var sess *Session
	select {
	case sess = <-sealedc:
	case <-time.After(time.Second):
		t.Fatal("session was not sealed in time")
	}

	assert.True(t, sess.Sealed())
	assert.NotEmpty(t, sess.Chunks())
	assert.Equal(t, 60*time.Millisecond, sess.Duration)

	// Chunks arrive in production order.
	chunks := sess.Chunks()
	for i := 1; i < len(chunks)-1; i++ {
		assert.Equal(t, chunks[i-1][0]+1, chunks[i][0])
	}

	assert.Equal(t, 1, fc.begunCount())
}

func TestRecorderRejectsConcurrentStart(t *testing.T) {
	fc := &fakeCapture{}
	r := NewRecorder(fc, RecorderOptions{RecordTime: 80 * time.Millisecond})
	defer r.Close()

	sealedc := make(chan *Session, 2)
	r.Sealed = func(s *Session) { sealedc <- s }

	require.NoError(t, r.Start(nil))
	assert.ErrorIs(t, r.Start(nil), ErrAlreadyRecording)
	assert.Equal(t, 1, fc.begunCount())

	// The rejected start must not disturb the live session.
	select {
	case sess := <-sealedc:
		assert.True(t, sess.Sealed())
		assert.NotEmpty(t, sess.Chunks())
	case <-time.After(time.Second):
		t.Fatal("session was not sealed in time")
	}

	// Exactly one session; nothing else arrives.
	select {
	case <-sealedc:
		t.Fatal("unexpected second sealed session")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRecorderIdleAfterSeal(t *testing.T) {
	fc := &fakeCapture{}
	r := NewRecorder(fc, RecorderOptions{RecordTime: 30 * time.Millisecond})
	defer r.Close()

	sealedc := make(chan *Session, 2)
	r.Sealed = func(s *Session) { sealedc <- s }

	require.NoError(t, r.Start(nil))
	first := <-sealedc

	// Sealing returns the recorder to idle; a new start is accepted.
	require.NoError(t, r.Start(nil))
	second := <-sealedc

	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, 2, fc.begunCount())
}

func TestSessionAppendAfterSealPanics(t *testing.T) {
	s := NewSession(time.Second)
	s.Append([]byte{1})
	s.Seal()
	assert.Panics(t, func() { s.Append([]byte{2}) })
}
