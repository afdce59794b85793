package clip

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"sync"
	"time"

	"github.com/ericpauley/go-quantize/quantize"
)

const maxPaletteColors = 256

// encodeGIF assembles the sampled frames into a loop-forever GIF with a fixed
// per-frame delay. Quantization runs on a worker pool; results are addressed
// by frame index so the output order is independent of worker count.
func encodeGIF(frames []image.Image, delay time.Duration, workers int) ([]byte, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("no frames to encode: %w", ErrEncode)
	}
	if workers > len(frames) {
		workers = len(frames)
	}

	paletted := make([]*image.Paletted, len(frames))

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			q := quantize.MedianCutQuantizer{}
			for i := range jobs {
				src := frames[i]
				b := src.Bounds()
				pal := q.Quantize(make(color.Palette, 0, maxPaletteColors), src)
				p := image.NewPaletted(b, pal)
				draw.FloydSteinberg.Draw(p, b, src, b.Min)
				paletted[i] = p
			}
		}()
	}
	for i := range frames {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	// GIF delays are in hundredths of a second.
	delayCs := int(delay / (10 * time.Millisecond))
	g := &gif.GIF{LoopCount: 0}
	for _, p := range paletted {
		g.Image = append(g.Image, p)
		g.Delay = append(g.Delay, delayCs)
	}

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, g); err != nil {
		return nil, fmt.Errorf("gif encode: %v: %w", err, ErrEncode)
	}
	return buf.Bytes(), nil
}
