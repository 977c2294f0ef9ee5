package accent

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(c color.Color, w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		for y := range h {
			img.Set(x, y, c)
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDominant_RedImage(t *testing.T) {
	data := encodePNG(t, solid(color.RGBA{R: 255, A: 255}, 64, 48))

	c, err := Dominant(data)
	require.NoError(t, err)

	r, g, b := c.RGB255()
	assert.Equal(t, uint8(255), r)
	assert.Greater(t, r, g)
	assert.Greater(t, r, b)
}

func TestDominant_BoostsDominantChannel(t *testing.T) {
	data := encodePNG(t, solid(color.RGBA{R: 100, G: 50, B: 50, A: 255}, 20, 20))

	c, err := Dominant(data)
	require.NoError(t, err)

	r, g, b := c.RGB255()
	assert.InDelta(t, 130, int(r), 1)
	assert.InDelta(t, 57, int(g), 1)
	assert.InDelta(t, 57, int(b), 1)
}

func TestDominant_InvalidImageReturnsDefault(t *testing.T) {
	c, err := Dominant([]byte("definitely not an image"))
	assert.Error(t, err)
	assert.Equal(t, Default, c)
}

func TestFromImage_Empty(t *testing.T) {
	c, err := FromImage(image.NewRGBA(image.Rect(0, 0, 0, 0)))
	assert.Error(t, err)
	assert.Equal(t, Default, c)
}

func TestSaturate(t *testing.T) {
	assert.Equal(t, [3]float64{0, 0, 0}, saturate([3]float64{0, 0, 0}))
	assert.Equal(t, [3]float64{255, 0, 0}, saturate([3]float64{255, 0, 0}))
	got := saturate([3]float64{200, 200, 200})
	assert.Equal(t, [3]float64{255, 255, 255}, got)
}

func TestHex(t *testing.T) {
	assert.Equal(t, "#ff0000", Hex(colorful.Color{R: 1}))
	assert.Equal(t, "#ffffff", Hex(colorful.Color{R: 1.2, G: 1, B: 1}))
}
