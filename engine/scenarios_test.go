package engine_test

import (
	"context"
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skryldev/image-budget/adapters/decoder"
	"github.com/Skryldev/image-budget/adapters/encoder"
	"github.com/Skryldev/image-budget/adapters/resize"
	"github.com/Skryldev/image-budget/config"
	"github.com/Skryldev/image-budget/core"
	"github.com/Skryldev/image-budget/engine"
	apperrors "github.com/Skryldev/image-budget/errors"
	"github.com/Skryldev/image-budget/validity"
)

// photo renders a deterministic image with smooth gradients and fine texture,
// which compresses like a camera shot rather than like flat art.
func photo(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			tex := 40 * math.Sin(float64(x)/7) * math.Cos(float64(y)/11)
			i := img.PixOffset(x, y)
			img.Pix[i+0] = clamp(float64(x*200/w) + tex)
			img.Pix[i+1] = clamp(float64(y*200/h) - tex)
			img.Pix[i+2] = clamp(128 + tex*1.5)
			img.Pix[i+3] = 255
		}
	}
	return img
}

func clamp(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func realEngine(t *testing.T, rep core.CorruptionReporter) *engine.Engine {
	t.Helper()
	reg := core.NewRegistry()
	reg.RegisterResizer(resize.NewDraw())
	reg.RegisterResizer(resize.NewImaging())
	e, err := engine.New(config.DefaultSearch(), reg, encoder.NewJPEG(),
		engine.WithValidator(validity.NewChecker(decoder.NewJPEG(), config.Default().Validity)),
		engine.WithReporter(rep),
	)
	require.NoError(t, err)
	return e
}

func TestScenarioPhotoFitsPreviewBudget(t *testing.T) {
	if testing.Short() {
		t.Skip("encodes multi-megapixel rasters")
	}
	src := photo(4000, 3000)
	for _, backend := range []core.Backend{core.BackendDraw, core.BackendImaging} {
		t.Run(string(backend), func(t *testing.T) {
			rep := &recordingReporter{}
			res, err := realEngine(t, rep).Compress(context.Background(), core.Request{
				Source: src, Budget: 500 * 1024, Backend: backend,
			})
			require.NoError(t, err)
			assert.LessOrEqual(t, res.Dimension, 3000)
			assert.GreaterOrEqual(t, res.Quality, 0.35)
			assert.Less(t, len(res.Data), 500*1024)
			assert.InDelta(t, 4.0/3.0, float64(res.Width)/float64(res.Height), 0.01)
			assert.Empty(t, rep.images)
		})
	}
}

func TestScenarioOneByteBudgetIsUnreachable(t *testing.T) {
	if testing.Short() {
		t.Skip("walks the full search ladder on a multi-megapixel raster")
	}
	_, err := realEngine(t, &recordingReporter{}).Compress(context.Background(), core.Request{
		Source: photo(4000, 3000), Budget: 1, Backend: core.BackendDraw,
	})
	assert.Equal(t, apperrors.ReasonBudgetUnreachable, apperrors.ReasonOf(err))
}

func TestScenarioBlackImageIsCorrupted(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 1000, 1000))
	for i := 3; i < len(src.Pix); i += 4 {
		src.Pix[i] = 255
	}
	rep := &recordingReporter{}

	_, err := realEngine(t, rep).Compress(context.Background(), core.Request{
		Source: src, Filename: "black.jpg", Budget: 500 * 1024, Backend: core.BackendDraw,
	})
	assert.Equal(t, apperrors.ReasonResultCorrupted, apperrors.ReasonOf(err))
	require.Len(t, rep.images, 1)
	assert.Same(t, src, rep.images[0])
}

func TestScenarioNilSource(t *testing.T) {
	_, err := realEngine(t, &recordingReporter{}).Compress(context.Background(), core.Request{
		Budget: 500 * 1024, Backend: core.BackendDraw,
	})
	assert.Equal(t, apperrors.ReasonSourceUnavailable, apperrors.ReasonOf(err))
}

func TestScenarioTinyImageKeepsSizeAndQuality(t *testing.T) {
	res, err := realEngine(t, &recordingReporter{}).Compress(context.Background(), core.Request{
		Source: photo(200, 150), Budget: 2 * 1024 * 1024, Backend: core.BackendDraw,
	})
	require.NoError(t, err)
	assert.Equal(t, 200, res.Dimension)
	assert.Equal(t, 200, res.Width)
	assert.Equal(t, 150, res.Height)
	assert.InDelta(t, 1.0, res.Quality, 1e-9)
}

func TestScenarioLargerBudgetNeverLowersResolution(t *testing.T) {
	e := realEngine(t, &recordingReporter{})
	src := photo(1600, 1200)

	small, err := e.Compress(context.Background(), core.Request{Source: src, Budget: 80 * 1024, Backend: core.BackendDraw})
	require.NoError(t, err)
	large, err := e.Compress(context.Background(), core.Request{Source: src, Budget: 800 * 1024, Backend: core.BackendDraw})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, large.Dimension, small.Dimension)
}
