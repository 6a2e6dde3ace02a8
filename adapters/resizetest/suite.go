// Package resizetest holds the property suite every core.Resizer backend
// must pass, so that switching backends never changes search behaviour.
package resizetest

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skryldev/image-budget/core"
)

// Gradient returns a w x h opaque image with a smooth two-axis gradient.
func Gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: 128, A: 255})
		}
	}
	return img
}

// Run exercises r against the shared resizer contract.
func Run(t *testing.T, r core.Resizer) {
	t.Helper()

	t.Run("longest side matches target", func(t *testing.T) {
		tests := []struct {
			w, h, target int
			wantW, wantH int
		}{
			{400, 300, 200, 200, 150},
			{300, 400, 200, 150, 200},
			{500, 500, 250, 250, 250},
			{640, 360, 320, 320, 180},
		}
		for _, tc := range tests {
			out, err := r.Resize(Gradient(tc.w, tc.h), tc.target)
			require.NoError(t, err)
			b := out.Bounds()
			assert.Equal(t, tc.wantW, b.Dx(), "%dx%d -> %d", tc.w, tc.h, tc.target)
			assert.Equal(t, tc.wantH, b.Dy(), "%dx%d -> %d", tc.w, tc.h, tc.target)
		}
	})

	t.Run("never upscales", func(t *testing.T) {
		out, err := r.Resize(Gradient(200, 150), 3000)
		require.NoError(t, err)
		assert.Equal(t, 200, out.Bounds().Dx())
		assert.Equal(t, 150, out.Bounds().Dy())
	})

	t.Run("source is not mutated", func(t *testing.T) {
		src := Gradient(120, 80)
		before := make([]byte, len(src.Pix))
		copy(before, src.Pix)

		out, err := r.Resize(src, 60)
		require.NoError(t, err)
		assert.Equal(t, before, src.Pix)
		assert.Equal(t, 60, out.Bounds().Dx())
	})

	t.Run("preserves content", func(t *testing.T) {
		src := image.NewRGBA(image.Rect(0, 0, 100, 100))
		for i := 0; i < len(src.Pix); i += 4 {
			src.Pix[i], src.Pix[i+1], src.Pix[i+2], src.Pix[i+3] = 200, 200, 200, 255
		}
		out, err := r.Resize(src, 50)
		require.NoError(t, err)
		cr, cg, cb, _ := out.At(25, 25).RGBA()
		assert.InDelta(t, 200, cr>>8, 3)
		assert.InDelta(t, 200, cg>>8, 3)
		assert.InDelta(t, 200, cb>>8, 3)
	})

	t.Run("rejects bad input", func(t *testing.T) {
		_, err := r.Resize(nil, 100)
		assert.Error(t, err)
		_, err = r.Resize(Gradient(10, 10), 0)
		assert.Error(t, err)
	})
}
