package util

import (
	"fmt"
	"os"
	"os/exec"

	log "github.com/sirupsen/logrus"
)

// LocateFFmpeg returns the path to the ffmpeg binary. The FFMPEG environment
// variable takes precedence over $PATH.
func LocateFFmpeg() (string, error) {
	if p := os.Getenv("FFMPEG"); p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("FFMPEG points to %v: %w", p, err)
		}
		return p, nil
	}
	p, err := exec.LookPath("ffmpeg")
	if err != nil {
		return "", fmt.Errorf("ffmpeg not found in $PATH: %w", err)
	}
	return p, nil
}

func LocateFFmpegOrDie() string {
	p, err := LocateFFmpeg()
	if err != nil {
		log.Fatalf("Unable to locate ffmpeg binary: %v", err)
	}
	return p
}
