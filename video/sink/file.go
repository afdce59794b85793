package sink

import (
	"bytes"
	"encoding/json"
	"image/gif"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"gifcam/video/clip"
)

const (
	ExtClip  = "_clip.gif"
	ExtThumb = "_thumb.jpg"
	ExtMeta  = "_meta.json"

	// FileTimeLayout defines the format of record filenames.
	// See https://golang.org/src/time/format.go.
	FileTimeLayout = "20060102-150405-Z0700"
)

// Record describes one stored artifact on disk.
type Record struct {
	ID   string
	Time time.Time

	ClipPath  string
	ThumbPath string
	MetaPath  string

	Frames  int
	DelayMs int
	Width   int
	Height  int
}

// Listener is notified after a record has been fully written.
type Listener interface {
	ArtifactStored(r *Record)
}

type FilesystemOptions struct {
	BasePath string
}

// Filesystem stores artifacts as <time>_clip.gif plus a jpeg thumbnail of the
// first frame and a JSON metadata sidecar.
type Filesystem struct {
	opts FilesystemOptions

	// Listeners receive a callback per stored record.
	Listeners []Listener

	l       sync.Mutex
	records []*Record
}

func NewFilesystem(opts FilesystemOptions) (*Filesystem, error) {
	if err := os.MkdirAll(opts.BasePath, 0755); err != nil {
		return nil, err
	}
	f := &Filesystem{opts: opts}
	if err := f.refresh(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Filesystem) Put(a *clip.Artifact) error {
	base := filepath.Join(f.opts.BasePath, a.Captured.Format(FileTimeLayout))
	r := &Record{
		ID:        a.ID.String(),
		Time:      a.Captured,
		ClipPath:  base + ExtClip,
		ThumbPath: base + ExtThumb,
		MetaPath:  base + ExtMeta,
		Frames:    a.Frames,
		DelayMs:   a.DelayMs,
		Width:     a.Width,
		Height:    a.Height,
	}

	if err := os.WriteFile(r.ClipPath, a.Bytes, 0644); err != nil {
		return err
	}

	if err := writeThumb(r.ThumbPath, a.Bytes); err != nil {
		// A missing thumbnail never fails the delivery.
		log.Errorf("Failed to write thumbnail for %v: %v", r.ID, err)
	}

	meta, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(r.MetaPath, meta, 0644); err != nil {
		return err
	}

	f.l.Lock()
	f.records = append(f.records, r)
	f.l.Unlock()

	log.Infof("Artifact %v stored at %v", r.ID, r.ClipPath)
	for _, l := range f.Listeners {
		l.ArtifactStored(r)
	}
	return nil
}

// writeThumb extracts the artifact's first frame as a jpeg.
func writeThumb(path string, gifBytes []byte) error {
	img, err := gif.Decode(bytes.NewReader(gifBytes))
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

// refresh rebuilds the record list from the metadata sidecars on disk.
func (f *Filesystem) refresh() error {
	entries, err := os.ReadDir(f.opts.BasePath)
	if err != nil {
		return err
	}

	var records []*Record
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ExtMeta) {
			continue
		}
		b, err := os.ReadFile(filepath.Join(f.opts.BasePath, e.Name()))
		if err != nil {
			log.Errorf("Failed to read record meta %v: %v", e.Name(), err)
			continue
		}
		r := &Record{}
		if err := json.Unmarshal(b, r); err != nil {
			log.Errorf("Failed to parse record meta %v: %v", e.Name(), err)
			continue
		}
		records = append(records, r)
	}

	f.l.Lock()
	defer f.l.Unlock()
	f.records = records
	return nil
}

func (f *Filesystem) Records() []*Record {
	f.l.Lock()
	defer f.l.Unlock()
	return f.records[:]
}

func (f *Filesystem) Close() {}
