package decoder_test

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skryldev/image-budget/adapters/decoder"
	"github.com/Skryldev/image-budget/core"
)

func TestRegisterDefaults(t *testing.T) {
	reg := core.NewRegistry()
	decoder.RegisterDefaults(reg)
	for _, f := range []core.Format{core.FormatJPEG, core.FormatPNG, core.FormatWebP, core.FormatQOI} {
		d, ok := reg.DecoderFor(f)
		require.True(t, ok, "%s", f)
		assert.True(t, d.CanDecode(f), "%s", f)
	}
}

func TestDecodeJPEGAndPNG(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 30, 20))

	var jb, pb bytes.Buffer
	require.NoError(t, jpeg.Encode(&jb, src, nil))
	require.NoError(t, png.Encode(&pb, src))

	img, err := decoder.NewJPEG().Decode(context.Background(), &jb)
	require.NoError(t, err)
	assert.Equal(t, 30, img.Bounds().Dx())

	img, err = decoder.NewPNG().Decode(context.Background(), &pb)
	require.NoError(t, err)
	assert.Equal(t, 20, img.Bounds().Dy())
}

func TestDecodeGarbage(t *testing.T) {
	_, err := decoder.NewJPEG().Decode(context.Background(), bytes.NewReader([]byte("not an image")))
	assert.Error(t, err)
}

func TestDecodeCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := decoder.NewPNG().Decode(ctx, bytes.NewReader(nil))
	assert.ErrorIs(t, err, context.Canceled)
}
