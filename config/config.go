package config

// Config is loaded from a JSON file and hot-reloaded on change. Zero values
// are filled in with defaults at load time; see applyDefaults.
type Config struct {
	// URI of the capture source (device index, file, or stream URI).
	URI string

	// Motion sampling.
	SampleIntervalMs int
	MotionThresh     float64
	DiffWidth        int
	DiffHeight       int

	// Recording.
	RecordTimeSec int
	CaptureFPS    int

	// Clip encoding.
	FrameDelayMs  int
	EncodeWorkers int

	// Output.
	OutputPath  string
	CatalogPath string

	// If non-empty, stamped onto captured frames along with the time.
	TimestampLabel string
}

const (
	DefaultSampleIntervalMs = 2000
	DefaultMotionThresh     = 7718920
	DefaultDiffWidth        = 649
	DefaultDiffHeight       = 480
	DefaultRecordTimeSec    = 5
	DefaultCaptureFPS       = 15
	DefaultFrameDelayMs     = 100
)

func applyDefaults(c *Config) {
	if c.SampleIntervalMs == 0 {
		c.SampleIntervalMs = DefaultSampleIntervalMs
	}
	if c.MotionThresh == 0 {
		c.MotionThresh = DefaultMotionThresh
	}
	if c.DiffWidth == 0 {
		c.DiffWidth = DefaultDiffWidth
	}
	if c.DiffHeight == 0 {
		c.DiffHeight = DefaultDiffHeight
	}
	if c.RecordTimeSec == 0 {
		c.RecordTimeSec = DefaultRecordTimeSec
	}
	if c.CaptureFPS == 0 {
		c.CaptureFPS = DefaultCaptureFPS
	}
	if c.FrameDelayMs == 0 {
		c.FrameDelayMs = DefaultFrameDelayMs
	}
	if c.OutputPath == "" {
		c.OutputPath = "/tmp/gifcam"
	}
}
