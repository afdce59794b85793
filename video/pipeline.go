// Package video wires the capture pipeline together: motion detection
// triggers a recording, the sealed recording is encoded into a looping
// animated image, and the artifact is handed to a sink.
package video

import (
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"gifcam/video/clip"
	"gifcam/video/process"
	"gifcam/video/record"
	"gifcam/video/sink"
	"gifcam/video/source"
)

// Trigger starts a recording of a frame source. Satisfied by *record.Recorder.
type Trigger interface {
	Start(src source.FrameSource) error
}

// Encoder converts a sealed session into a single Result. Satisfied by
// *clip.Encoder.
type Encoder interface {
	Encode(s *record.Session) <-chan clip.Result
}

// Pipeline is the subscription graph between the pipeline stages. It holds no
// algorithmic logic of its own: detection events flow to the recorder, sealed
// sessions to the encoder, artifacts to the sink. Only local detections start
// a recording; remote ones are reported and counted.
type Pipeline struct {
	// OnMotion, if set, is an outward notification fired once per detection
	// latch cycle.
	OnMotion func(local bool)

	Recorder Trigger
	Encoder  Encoder
	Sink     sink.Sink

	// Source is the frame source handed to the recorder. It need not be the
	// source that triggered the detection.
	Source source.FrameSource
}

// NewPipeline connects the concrete stages and returns the wired pipeline.
// The detector's and recorder's callbacks are claimed by the pipeline.
func NewPipeline(m *process.Motion, r *record.Recorder, e Encoder, s sink.Sink, captureSrc source.FrameSource) *Pipeline {
	p := &Pipeline{
		Recorder: r,
		Encoder:  e,
		Sink:     s,
		Source:   captureSrc,
	}
	m.OnMotion = p.motion
	r.Sealed = p.sealed
	return p
}

func (p *Pipeline) motion(local bool) {
	src := "remote"
	if local {
		src = "local"
	}
	metricDetections.WithLabelValues(src).Inc()

	if p.OnMotion != nil {
		p.OnMotion(local)
	}

	if !local {
		log.Infof("Remote motion reported; not recording")
		return
	}

	if err := p.Recorder.Start(p.Source); err != nil {
		if errors.Is(err, record.ErrAlreadyRecording) {
			metricRecordingsRejected.Inc()
			log.Warnf("Motion trigger ignored: %v", err)
			return
		}
		log.Errorf("Failed to start recording: %v", err)
		return
	}
	metricRecordingsStarted.Inc()
}

func (p *Pipeline) sealed(s *record.Session) {
	go func() {
		start := time.Now()
		res := <-p.Encoder.Encode(s)
		metricEncodeDuration.Observe(time.Since(start).Seconds())

		if res.Err != nil {
			metricEncodeFailures.Inc()
			log.Errorf("Session %v produced no artifact: %v", s.ID, res.Err)
			return
		}
		if err := p.Sink.Put(res.Artifact); err != nil {
			log.Errorf("Failed to deliver artifact %v: %v", res.Artifact.ID, err)
			return
		}
		metricArtifacts.Inc()
	}()
}
