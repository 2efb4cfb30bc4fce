package main

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/anthonynsimon/bild/blur"
	"github.com/chewxy/math32"
)

// generateLogo draws the demo logo, a ring with a rainbow hue around it crossed by a diagonal bar,
// and returns it PNG encoded. The edges are softened with a small blur.
func generateLogo(size int) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("logo size %d must be positive", size)
	}

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	half := float32(size) / 2
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			// normalized coordinates in [-1, 1], y up
			u := (float32(x) + 0.5 - half) / half
			v := (half - float32(y) - 0.5) / half
			d := math32.Sqrt(u*u + v*v)

			ring := d > 0.6 && d < 0.9
			bar := d < 0.9 && math32.Abs(u-v) < 0.18
			if !ring && !bar {
				continue
			}
			img.SetRGBA(x, y, hue(math32.Atan2(v, u)))
		}
	}

	soft := blur.Gaussian(img, 1.5)

	var buf bytes.Buffer
	if err := png.Encode(&buf, soft); err != nil {
		return nil, fmt.Errorf("failed to encode logo: %w", err)
	}
	return buf.Bytes(), nil
}

// hue maps an angle in radians to an opaque color on a cosine rainbow.
func hue(angle float32) color.RGBA {
	channel := func(offset float32) uint8 {
		return uint8(255 * (0.5 + 0.5*math32.Cos(angle+offset)))
	}
	return color.RGBA{
		R: channel(0),
		G: channel(2 * math32.Pi / 3),
		B: channel(4 * math32.Pi / 3),
		A: 255,
	}
}
