package clip

import (
	"errors"
	"fmt"
	"image"
	"os"
	"runtime"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"gifcam/video/record"
)

var (
	// ErrDecode covers an intermediate clip that cannot be opened or yields
	// zero frames.
	ErrDecode = errors.New("clip: intermediate clip not decodable")

	// ErrEncode covers failures producing the animated artifact.
	ErrEncode = errors.New("clip: artifact encoding failed")
)

// Artifact is the finished looping animated image plus its metadata. Immutable;
// ownership passes to the sink on delivery.
type Artifact struct {
	ID       uuid.UUID
	Bytes    []byte
	Frames   int
	DelayMs  int
	Width    int
	Height   int
	Captured time.Time
}

// Result is the single value delivered per encode attempt. Exactly one of
// Artifact and Err is set; a failed encode never produces a partial artifact.
type Result struct {
	Artifact *Artifact
	Err      error
}

type EncoderOptions struct {
	// FrameDelay is the playback-position step between sampled frames and the
	// display delay of each artifact frame.
	FrameDelay time.Duration

	// Duration bounds the sampled playback time.
	Duration time.Duration

	// Workers sets the palette quantization parallelism. Output order never
	// depends on it. Defaults to NumCPU capped at 4.
	Workers int

	// TempDir for the materialized clip. Empty means the system default.
	TempDir string
}

// Encoder converts sealed recording sessions into looping GIF artifacts. The
// session's chunks are first materialized into a playable clip file, then the
// clip is reopened and sampled frame by frame. An Encoder holds no state
// across sessions.
type Encoder struct {
	opts EncoderOptions
}

func NewEncoder(opts EncoderOptions) *Encoder {
	if opts.FrameDelay <= 0 {
		opts.FrameDelay = 100 * time.Millisecond
	}
	if opts.Duration <= 0 {
		opts.Duration = 5 * time.Second
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
		if opts.Workers > 4 {
			opts.Workers = 4
		}
	}
	return &Encoder{opts: opts}
}

// Encode starts an asynchronous encode of the sealed session and returns a
// channel that delivers exactly one Result.
func (e *Encoder) Encode(s *record.Session) <-chan Result {
	c := make(chan Result, 1)
	go func() {
		a, err := e.encode(s)
		if err != nil {
			log.Errorf("Encode of session %v failed: %v", s.ID, err)
			c <- Result{Err: err}
			return
		}
		log.Infof("Encoded session %v: %d frames, %d bytes", s.ID, a.Frames, len(a.Bytes))
		c <- Result{Artifact: a}
	}()
	return c
}

func (e *Encoder) encode(s *record.Session) (*Artifact, error) {
	if !s.Sealed() {
		return nil, fmt.Errorf("clip: session %v is not sealed", s.ID)
	}

	path, err := e.materialize(s)
	if err != nil {
		return nil, err
	}
	defer os.Remove(path)

	frames, err := e.sampleFrames(path)
	if err != nil {
		return nil, err
	}

	b, err := encodeGIF(frames, e.opts.FrameDelay, e.opts.Workers)
	if err != nil {
		return nil, err
	}

	bounds := frames[0].Bounds()
	return &Artifact{
		ID:       s.ID,
		Bytes:    b,
		Frames:   len(frames),
		DelayMs:  int(e.opts.FrameDelay / time.Millisecond),
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		Captured: s.Start,
	}, nil
}

// materialize writes the session's chunks, in order, to a temporary clip file.
func (e *Encoder) materialize(s *record.Session) (string, error) {
	chunks := s.Chunks()
	if len(chunks) == 0 {
		return "", fmt.Errorf("session %v has no chunks: %w", s.ID, ErrDecode)
	}

	f, err := os.CreateTemp(e.opts.TempDir, "gifcam-*.ts")
	if err != nil {
		return "", fmt.Errorf("clip: temp file: %w", err)
	}
	for _, c := range chunks {
		if _, err := f.Write(c); err != nil {
			f.Close()
			os.Remove(f.Name())
			return "", fmt.Errorf("clip: write temp clip: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("clip: close temp clip: %w", err)
	}
	return f.Name(), nil
}

// sampleFrames reopens the materialized clip and draws one frame per
// FrameDelay of playback position until Duration is reached.
func (e *Encoder) sampleFrames(path string) ([]image.Image, error) {
	cap, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %v: %v: %w", path, err, ErrDecode)
	}
	defer cap.Close()

	mat := gocv.NewMat()
	defer mat.Close()

	var frames []image.Image
	for t := time.Duration(0); t < e.opts.Duration; t += e.opts.FrameDelay {
		cap.Set(gocv.VideoCapturePosMsec, float64(t/time.Millisecond))
		if ok := cap.Read(&mat); !ok || mat.Empty() {
			break
		}
		img, err := mat.ToImage()
		if err != nil {
			return nil, fmt.Errorf("decode frame at %v: %v: %w", t, err, ErrDecode)
		}
		frames = append(frames, img)
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("no frames decoded from %v: %w", path, ErrDecode)
	}
	return frames, nil
}
