package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"gifcam/config"
	"gifcam/util"
	"gifcam/video"
	"gifcam/video/capture"
	"gifcam/video/catalog"
	"gifcam/video/clip"
	"gifcam/video/process"
	"gifcam/video/record"
	"gifcam/video/sink"
	"gifcam/video/source"
)

var (
	configPath = flag.String("config", "config.json", "Path to JSON config file.")
	port       = flag.Int("port", 8081, "Port for metrics and pprof.")
)

func main() {
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := config.Load(ctx, *configPath); err != nil {
		log.Fatalf("Failed to load config %v: %v", *configPath, err)
	}
	cfg := config.Get()

	ffmpegp, err := util.LocateFFmpeg()
	if err != nil {
		fmt.Println("Unable to locate ffmpeg binary:", err)
		fmt.Println("FFmpeg is required for capturing clips.")
		fmt.Println("Either ensure the ffmpeg binary is in $PATH,")
		fmt.Println("or set the FFMPEG environment variable.")
		os.Exit(1)
		return
	}
	log.Infof("Located ffmpeg binary, %v", ffmpegp)

	cam := source.NewVideoCapture(cfg.URI)
	defer cam.Close()

	fs, err := sink.NewFilesystem(sink.FilesystemOptions{BasePath: cfg.OutputPath})
	if err != nil {
		log.Fatalf("Failed to create filesystem sink: %v", err)
	}
	defer fs.Close()

	if cfg.CatalogPath != "" {
		cat, err := catalog.Open(cfg.CatalogPath)
		if err != nil {
			log.Fatalf("Failed to open artifact catalog: %v", err)
		}
		defer cat.Close()
		fs.Listeners = append(fs.Listeners, cat)
	}

	cap := capture.NewFFmpegCapture(capture.FFmpegOptions{
		FPS:            cfg.CaptureFPS,
		TimestampLabel: cfg.TimestampLabel,
	})

	rec := record.NewRecorder(cap, record.RecorderOptions{
		RecordTime: time.Duration(cfg.RecordTimeSec) * time.Second,
	})
	defer rec.Close()

	enc := clip.NewEncoder(clip.EncoderOptions{
		FrameDelay: time.Duration(cfg.FrameDelayMs) * time.Millisecond,
		Duration:   time.Duration(cfg.RecordTimeSec) * time.Second,
		Workers:    cfg.EncodeWorkers,
	})

	motion, err := process.NewMotion(cam, process.MotionOptions{
		SampleInterval: time.Duration(cfg.SampleIntervalMs) * time.Millisecond,
		Threshold:      cfg.MotionThresh,
		Size:           image.Point{X: cfg.DiffWidth, Y: cfg.DiffHeight},
		Local:          true,
	})
	if err != nil {
		log.Fatalf("Failed to create motion detector: %v", err)
	}

	video.NewPipeline(motion, rec, enc, fs, cam)
	motion.Start()
	defer motion.Close()

	go func() {
		log.Infof("Hosting metrics on port %d", *port)
		http.Handle("/metrics", promhttp.Handler())
		log.Println(http.ListenAndServe(fmt.Sprintf(":%d", *port), nil))
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigs
	log.Infof("Caught signal %v, shutting down", sig)
}
