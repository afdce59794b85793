package process

import (
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"gifcam/video/source"
)

var (
	metricSamples = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gifcam_motion_samples_total",
		Help: "Motion sampling ticks, by outcome.",
	}, []string{"outcome"})
)

// DefaultDiffSize is the raster every sample is resized to before differencing.
var DefaultDiffSize = image.Point{X: 649, Y: 480}

type MotionOptions struct {
	// SampleInterval is the tick cadence.
	SampleInterval time.Duration

	// Threshold for the per-pixel absolute channel difference sum. Must be
	// positive.
	Threshold float64

	// Size of the comparison raster. Source frames are resized to this
	// regardless of their native size. Defaults to DefaultDiffSize.
	Size image.Point

	// Local marks detections from this source as eligible to start a
	// recording. Remote detections are reported only.
	Local bool
}

// Motion samples a FrameSource on a fixed cadence and raises a single
// edge-triggered detection event when consecutive samples differ by more than
// the threshold.
//
// The trigger latches: once a detection has fired, further over-threshold
// samples are suppressed for the lifetime of the instance. State is held per
// instance so independent pipelines never interact.
type Motion struct {
	// OnMotion is invoked exactly once, from the sampling goroutine, on the
	// first over-threshold sample. Assign before calling Start.
	OnMotion func(local bool)

	src  source.FrameSource
	opts MotionOptions

	// Scratch rasters owned by this detector; bgr holds the channel-reduced
	// input, scaled the resized sample, prev the previous sample, diff the
	// absolute difference.
	bgr, scaled, prev, diff gocv.Mat

	havePrev  bool
	triggered bool

	closec chan chan bool
}

func NewMotion(src source.FrameSource, opts MotionOptions) (*Motion, error) {
	if opts.Threshold <= 0 {
		return nil, fmt.Errorf("motion threshold must be positive, got %v", opts.Threshold)
	}
	if opts.SampleInterval <= 0 {
		return nil, errors.New("motion sample interval must be positive")
	}
	if opts.Size == (image.Point{}) {
		opts.Size = DefaultDiffSize
	}
	return &Motion{
		src:    src,
		opts:   opts,
		bgr:    gocv.NewMat(),
		scaled: gocv.NewMat(),
		prev:   gocv.NewMat(),
		diff:   gocv.NewMat(),
		closec: make(chan chan bool),
	}, nil
}

// Start begins sampling on the configured cadence.
func (m *Motion) Start() {
	go func() {
		t := time.NewTicker(m.opts.SampleInterval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				m.tick()
			case c := <-m.closec:
				m.release()
				c <- true
				return
			}
		}
	}()
}

func (m *Motion) Close() {
	c := make(chan bool)
	m.closec <- c
	<-c
}

func (m *Motion) release() {
	m.bgr.Close()
	m.scaled.Close()
	m.prev.Close()
	m.diff.Close()
}

// tick pulls one sample and compares it to the previous one. A source with no
// frame available is not an error; the cycle is simply skipped.
func (m *Motion) tick() {
	f, err := m.src.CurrentFrame()
	if err != nil {
		if errors.Is(err, source.ErrUnavailable) {
			log.Debugf("Motion sample skipped: %v", err)
			metricSamples.WithLabelValues("unavailable").Inc()
			return
		}
		log.Errorf("Motion sample failed: %v", err)
		metricSamples.WithLabelValues("error").Inc()
		return
	}
	defer f.Release()

	// Reduce to 3 channels so the 4th never contributes to the metric.
	in := f.Mat
	if in.Channels() == 4 {
		gocv.CvtColor(in, &m.bgr, gocv.ColorBGRAToBGR)
		in = m.bgr
	}
	gocv.Resize(in, &m.scaled, m.opts.Size, 0, 0, gocv.InterpolationLinear)

	if !m.havePrev {
		m.scaled.CopyTo(&m.prev)
		m.havePrev = true
		metricSamples.WithLabelValues("first").Inc()
		return
	}

	d := frameDiff(m.prev, m.scaled, &m.diff)
	m.scaled.CopyTo(&m.prev)
	log.Debugf("Motion difference sample: %v", d)
	metricSamples.WithLabelValues("ok").Inc()

	if d <= m.opts.Threshold {
		return
	}
	if m.triggered {
		// Latched. The reference behavior never resets, so a detector
		// instance fires at most once.
		return
	}
	m.triggered = true
	log.Infof("Motion detected (difference %v > threshold %v)", d, m.opts.Threshold)
	if m.OnMotion != nil {
		m.OnMotion(m.opts.Local)
	}
}

// frameDiff computes the sum over all pixels of the absolute per-channel
// differences between two same-size BGR rasters.
func frameDiff(a, b gocv.Mat, scratch *gocv.Mat) float64 {
	gocv.AbsDiff(a, b, scratch)
	s := scratch.Sum()
	return s.Val1 + s.Val2 + s.Val3
}
