package clip

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solidImage(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

func grayLevel(i int) uint8 {
	return uint8(i * 16)
}

func TestEncodeGIFPreservesCountOrderAndDelay(t *testing.T) {
	// Distinct gray levels in increasing order so frame identity survives
	// palette quantization.
	var frames []image.Image
	for i := 0; i < 12; i++ {
		g := grayLevel(i)
		frames = append(frames, solidImage(64, 48, color.RGBA{R: g, G: g, B: g, A: 255}))
	}

	b, err := encodeGIF(frames, 100*time.Millisecond, 4)
	require.NoError(t, err)

	g, err := gif.DecodeAll(bytes.NewReader(b))
	require.NoError(t, err)

	assert.Len(t, g.Image, 12)
	assert.Equal(t, 0, g.LoopCount, "artifact must loop forever")

	for i, p := range g.Image {
		assert.Equal(t, 10, g.Delay[i], "delay is in hundredths of a second")

		r, _, _, _ := p.At(0, 0).RGBA()
		got := uint8(r >> 8)
		// Quantization may shift the level slightly but never enough to
		// cross to a neighboring frame's level.
		assert.InDelta(t, grayLevel(i), got, 7, "frame %d out of order", i)
	}
}

func TestEncodeGIFOrderIndependentOfWorkers(t *testing.T) {
	var frames []image.Image
	for i := 0; i < 9; i++ {
		g := grayLevel(i)
		frames = append(frames, solidImage(32, 32, color.RGBA{R: g, G: g, B: g, A: 255}))
	}

	one, err := encodeGIF(frames, 100*time.Millisecond, 1)
	require.NoError(t, err)
	many, err := encodeGIF(frames, 100*time.Millisecond, 8)
	require.NoError(t, err)

	assert.Equal(t, one, many)
}

func TestEncodeGIFNoFrames(t *testing.T) {
	_, err := encodeGIF(nil, 100*time.Millisecond, 2)
	assert.ErrorIs(t, err, ErrEncode)
}
