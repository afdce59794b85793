package record

import (
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"gifcam/video/capture"
	"gifcam/video/source"
)

// ErrAlreadyRecording is returned by Start while a session is in progress.
// The live session is unaffected.
var ErrAlreadyRecording = errors.New("record: recording already in progress")

type RecorderOptions struct {
	// RecordTime is the fixed wall-clock duration of every session.
	RecordTime time.Duration
}

// Recorder is a single-session recording state machine. Start begins a
// capture of the given source; chunks are appended in arrival order until a
// one-shot timer expires, at which point the capture is stopped exactly once,
// the session sealed and handed to Sealed, and the recorder returns to idle.
type Recorder struct {
	// Sealed receives each completed session. Called from the recorder
	// goroutine after the session is immutable.
	Sealed func(*Session)

	cap  capture.Capture
	opts RecorderOptions

	startc chan startReq
	closec chan chan bool
}

type startReq struct {
	src source.FrameSource
	err chan error
}

func NewRecorder(c capture.Capture, opts RecorderOptions) *Recorder {
	r := &Recorder{
		cap:    c,
		opts:   opts,
		startc: make(chan startReq),
		closec: make(chan chan bool),
	}
	go r.loop()
	return r
}

func (r *Recorder) loop() {
	var sess *Session
	var stream *capture.ChunkStream
	var chunkc <-chan []byte
	var stopc <-chan time.Time

	for {
		select {
		case req := <-r.startc:
			if sess != nil {
				log.Warnf("Recording start rejected: session %v still in progress", sess.ID)
				req.err <- ErrAlreadyRecording
				continue
			}
			s, err := r.cap.Begin(req.src)
			if err != nil {
				req.err <- err
				continue
			}
			sess = NewSession(r.opts.RecordTime)
			stream = s
			chunkc = s.Chunks()
			stopc = time.NewTimer(r.opts.RecordTime).C
			log.Infof("Recording session %v started for %v", sess.ID, r.opts.RecordTime)
			req.err <- nil

		case b, ok := <-chunkc:
			if !ok {
				// Terminal signal: capture has flushed everything.
				sess.Seal()
				log.Infof("Recording session %v sealed: %d chunks, %d bytes", sess.ID, len(sess.Chunks()), sess.Bytes())
				done := sess
				sess = nil
				stream = nil
				chunkc = nil
				stopc = nil
				if r.Sealed != nil {
					r.Sealed(done)
				}
				continue
			}
			sess.Append(b)

		case <-stopc:
			stopc = nil
			stream.Stop()

		case c := <-r.closec:
			if stream != nil {
				stream.Stop()
			}
			c <- true
			return
		}
	}
}

// Start begins a new recording of src. Only valid while idle.
func (r *Recorder) Start(src source.FrameSource) error {
	req := startReq{src: src, err: make(chan error)}
	r.startc <- req
	return <-req.err
}

func (r *Recorder) Close() {
	c := make(chan bool)
	r.closec <- c
	<-c
}
