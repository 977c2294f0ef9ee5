// Package accent derives a dominant accent color from artwork.
package accent

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // GIF decoder for artwork
	_ "image/jpeg" // JPEG decoder for artwork
	_ "image/png"  // PNG decoder for artwork

	"github.com/lucasb-eyer/go-colorful"
	"github.com/nfnt/resize"
	_ "golang.org/x/image/webp" // WebP decoder for artwork
)

const (
	// GridSize is the side of the grid the image is downsampled to.
	GridSize = 10
	// Boost is how strongly channels near the maximum are amplified.
	Boost = 0.3
)

// Default is the accent used when artwork is missing or unreadable.
var Default = colorful.Color{R: 0x5b / 255.0, G: 0x6c / 255.0, B: 0xf0 / 255.0}

// Dominant returns the boosted average color of an encoded image, or
// Default with the decode error.
func Dominant(data []byte) (colorful.Color, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Default, fmt.Errorf("decode artwork: %w", err)
	}
	return FromImage(img)
}

// FromImage returns the boosted average color of img.
func FromImage(img image.Image) (colorful.Color, error) {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return Default, fmt.Errorf("empty image %dx%d", b.Dx(), b.Dy())
	}

	small := resize.Resize(GridSize, GridSize, img, resize.Bilinear)
	sb := small.Bounds()

	var sr, sg, sbl float64
	n := 0
	for y := sb.Min.Y; y < sb.Max.Y; y++ {
		for x := sb.Min.X; x < sb.Max.X; x++ {
			r, g, bl, _ := small.At(x, y).RGBA()
			sr += float64(r >> 8)
			sg += float64(g >> 8)
			sbl += float64(bl >> 8)
			n++
		}
	}
	avg := [3]float64{sr / float64(n), sg / float64(n), sbl / float64(n)}
	boosted := saturate(avg)
	return colorful.Color{R: boosted[0] / 255, G: boosted[1] / 255, B: boosted[2] / 255}, nil
}

// saturate scales each channel by its closeness to the strongest channel,
// so the dominant hue gains intensity. Channels cap at 255.
func saturate(c [3]float64) [3]float64 {
	peak := max(c[0], c[1], c[2])
	if peak == 0 {
		return c
	}
	var out [3]float64
	for i, v := range c {
		out[i] = min(255, v*(1+Boost*v/peak))
	}
	return out
}

// Hex returns the #rrggbb form of c, used by the remote surface.
func Hex(c colorful.Color) string {
	return c.Clamped().Hex()
}
