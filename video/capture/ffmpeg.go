package capture

import (
	"fmt"
	"io"
	"os/exec"
	"time"

	log "github.com/sirupsen/logrus"

	"gifcam/util"
	"gifcam/video/process"
	"gifcam/video/source"
)

const chunkSize = 32 << 10

type FFmpegOptions struct {
	// FPS is the cadence at which frames are pulled from the source and fed
	// to the encoder.
	FPS int

	// TimestampLabel, if non-empty, is stamped onto every captured frame
	// along with its capture time.
	TimestampLabel string
}

// FFmpegCapture implements Capture by pulling frames from the source at a
// fixed rate, piping them as raw BGR24 video into an ffmpeg child process,
// and reading back an MPEG-TS byte stream in chunks. MPEG-TS is used because
// it is valid when written to a pipe and the concatenated chunks form a
// playable clip.
type FFmpegCapture struct {
	opts FFmpegOptions
}

func NewFFmpegCapture(opts FFmpegOptions) *FFmpegCapture {
	if opts.FPS <= 0 {
		opts.FPS = 15
	}
	return &FFmpegCapture{opts: opts}
}

func (f *FFmpegCapture) Begin(src source.FrameSource) (*ChunkStream, error) {
	ffmpeg, err := util.LocateFFmpeg()
	if err != nil {
		return nil, err
	}

	// The first frame fixes the raster size for the whole capture.
	first, err := src.CurrentFrame()
	if err != nil {
		return nil, fmt.Errorf("capture: source has no frame: %w", err)
	}
	size := first.Size()

	cmd := exec.Command(
		ffmpeg,
		// Raw frames from the source on stdin.
		"-f", "rawvideo",
		"-pixel_format", "bgr24",
		"-video_size", fmt.Sprintf("%dx%d", size.X, size.Y),
		"-framerate", fmt.Sprintf("%d", f.opts.FPS),
		"-i", "-",
		// Fast intermediate encode; quality is set by the clip encoder later.
		"-c:v", "libx264",
		"-preset", "superfast",
		"-crf", "30",
		"-pix_fmt", "yuv420p",
		// MPEG-TS so the output is streamable over the pipe.
		"-f", "mpegts",
		"-",
	)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		first.Release()
		return nil, fmt.Errorf("capture: stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		first.Release()
		return nil, fmt.Errorf("capture: stdout pipe: %w", err)
	}
	cmd.Stderr = log.StandardLogger().WriterLevel(log.DebugLevel)

	if err := cmd.Start(); err != nil {
		first.Release()
		return nil, fmt.Errorf("capture: start ffmpeg: %w", err)
	}

	s := NewChunkStream()
	expect := size.X * size.Y * 3

	go f.feed(src, first, stdin, s, expect)
	go f.drain(cmd, stdout, s)

	return s, nil
}

// feed pulls frames on the FPS cadence and writes them to ffmpeg until the
// stream is stopped.
func (f *FFmpegCapture) feed(src source.FrameSource, first source.Frame, stdin io.WriteCloser, s *ChunkStream, expect int) {
	defer stdin.Close()

	write := func(frame source.Frame) bool {
		defer frame.Release()
		if f.opts.TimestampLabel != "" {
			frame = process.DrawTimestamp(f.opts.TimestampLabel, frame)
		}
		b := frame.Mat.ToBytes()
		if len(b) != expect {
			// Source changed size mid-capture; drop the frame.
			log.Warnf("Capture frame size %d does not match expected %d, dropping", len(b), expect)
			return true
		}
		if _, err := stdin.Write(b); err != nil {
			log.Errorf("Capture write to ffmpeg failed: %v", err)
			return false
		}
		return true
	}

	if !write(first) {
		return
	}

	t := time.NewTicker(time.Second / time.Duration(f.opts.FPS))
	defer t.Stop()
	for {
		select {
		case <-s.Stopped():
			return
		case <-t.C:
			frame, err := src.CurrentFrame()
			if err != nil {
				// Skip this tick; rawvideo input tolerates a short stall.
				continue
			}
			if !write(frame) {
				return
			}
		}
	}
}

// drain forwards ffmpeg stdout to the chunk channel in read order and closes
// the channel once the encoder exits.
func (f *FFmpegCapture) drain(cmd *exec.Cmd, stdout io.Reader, s *ChunkStream) {
	defer s.CloseSend()

	buf := make([]byte, chunkSize)
	for {
		n, err := stdout.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			s.Send(chunk)
		}
		if err != nil {
			if err != io.EOF {
				log.Errorf("Capture read from ffmpeg failed: %v", err)
			}
			break
		}
	}
	if err := cmd.Wait(); err != nil {
		log.Errorf("ffmpeg capture exited with error: %v", err)
	}
}
