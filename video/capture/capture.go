package capture

import (
	"gifcam/util"
	"gifcam/video/source"
)

// Capture starts chunked recordings of a frame source. The returned stream
// yields ordered binary chunks of a playable clip container.
type Capture interface {
	Begin(src source.FrameSource) (*ChunkStream, error)
}

// ChunkStream delivers the chunks of one capture in arrival order. The chunk
// channel closing is the terminal "stopped" signal; no chunks follow it.
//
// The consumer side is Chunks and Stop. The producer side (a Capture
// implementation) delivers with Send, watches Stopped for the stop request,
// and finishes with CloseSend after flushing.
type ChunkStream struct {
	c    chan []byte
	stop *util.Event
}

func NewChunkStream() *ChunkStream {
	return &ChunkStream{
		c:    make(chan []byte, 16),
		stop: util.NewEvent(),
	}
}

func (s *ChunkStream) Chunks() <-chan []byte {
	return s.c
}

// Stop requests the capture end. Safe to call more than once; only the first
// call has any effect. Chunks already in flight are still delivered before
// the stream closes.
func (s *ChunkStream) Stop() {
	s.stop.Notify()
}

func (s *ChunkStream) Send(b []byte) {
	s.c <- b
}

// CloseSend terminates the stream. Producer only, exactly once, after the
// final chunk.
func (s *ChunkStream) CloseSend() {
	close(s.c)
}

// Stopped is closed once Stop has been requested.
func (s *ChunkStream) Stopped() <-chan struct{} {
	return s.stop.Done()
}
