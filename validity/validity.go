// Package validity detects encoder output that decoded to an effectively
// single-colour raster.  A genuinely blank photo is flagged too; catching a
// broken encode matters more than that false positive.
package validity

import (
	"bytes"
	"context"
	"image"
	"math"

	"github.com/Skryldev/image-budget/config"
	"github.com/Skryldev/image-budget/core"
)

// IsDegenerate reports whether every pixel of img lies within tolerance
// (8-bit, per channel, alpha included) of the top-left one.  A coarse grid of
// about sampleLimit pixels runs first so varied images return early; a raster
// that is uniform on the grid is then confirmed pixel by pixel, because
// periodic content can alias any fixed grid.  Empty images are degenerate.
func IsDegenerate(img image.Image, tolerance uint8, sampleLimit int) bool {
	if img == nil {
		return true
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return true
	}

	at := pixelReader(img)
	ref := at(b.Min.X, b.Min.Y)
	uniform := func(stepX, stepY int) bool {
		for y := b.Min.Y; y < b.Max.Y; y += stepY {
			for x := b.Min.X; x < b.Max.X; x += stepX {
				if !within(ref, at(x, y), tolerance) {
					return false
				}
			}
		}
		return true
	}

	if sampleLimit > 0 && w*h > sampleLimit {
		stepX, stepY := gridSteps(w, h, sampleLimit)
		if !uniform(stepX, stepY) {
			return false
		}
	}
	return uniform(1, 1)
}

// gridSteps spreads about limit samples over a w x h raster with independent
// x and y strides.
func gridSteps(w, h, limit int) (int, int) {
	n := int(math.Sqrt(float64(limit)))
	if n < 1 {
		n = 1
	}
	stepX, stepY := w/n, h/n
	if stepX < 1 {
		stepX = 1
	}
	if stepY < 1 {
		stepY = 1
	}
	return stepX, stepY
}

// pixelReader returns an 8-bit RGBA accessor for img.  RGBA64At avoids
// boxing a color.Color per pixel on the decoder's concrete types.
func pixelReader(img image.Image) func(x, y int) [4]uint8 {
	if fast, ok := img.(image.RGBA64Image); ok {
		return func(x, y int) [4]uint8 {
			c := fast.RGBA64At(x, y)
			return [4]uint8{uint8(c.R >> 8), uint8(c.G >> 8), uint8(c.B >> 8), uint8(c.A >> 8)}
		}
	}
	return func(x, y int) [4]uint8 {
		r, g, b, a := img.At(x, y).RGBA()
		return [4]uint8{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), uint8(a >> 8)}
	}
}

func within(a, b [4]uint8, tol uint8) bool {
	for i := range a {
		d := int(a[i]) - int(b[i])
		if d < 0 {
			d = -d
		}
		if d > int(tol) {
			return false
		}
	}
	return true
}

// Checker decodes encoded output and applies IsDegenerate.  Output that
// cannot be decoded at all counts as degenerate.
type Checker struct {
	Decoder     core.Decoder
	Tolerance   uint8
	SampleLimit int
}

// NewChecker returns a Checker configured from cfg.
func NewChecker(dec core.Decoder, cfg config.ValidityConfig) *Checker {
	return &Checker{Decoder: dec, Tolerance: cfg.Tolerance, SampleLimit: cfg.SampleLimit}
}

// Check implements core.Validator.  The returned error explains a decode
// failure; degenerate is true in that case as well.
func (c *Checker) Check(ctx context.Context, data []byte) (bool, error) {
	// Validation is part of a search that is never interrupted.
	img, err := c.Decoder.Decode(context.WithoutCancel(ctx), bytes.NewReader(data))
	if err != nil {
		return true, err
	}
	return IsDegenerate(img, c.Tolerance, c.SampleLimit), nil
}

var _ core.Validator = (*Checker)(nil)
