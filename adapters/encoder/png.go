package encoder

import (
	"image"
	"image/png"

	"github.com/Skryldev/image-budget/core"
	apperrors "github.com/Skryldev/image-budget/errors"
	"github.com/Skryldev/image-budget/utils"
)

// PNG encodes images losslessly; quality is ignored.
type PNG struct {
	CompressionLevel png.CompressionLevel
}

func NewPNG() *PNG { return &PNG{CompressionLevel: png.BestCompression} }

func (p *PNG) Format() core.Format { return core.FormatPNG }

func (p *PNG) Encode(src image.Image, _ float64) ([]byte, error) {
	if src == nil {
		return nil, apperrors.New(apperrors.CategoryEncode, "png.encode", apperrors.ErrEmptyInput)
	}

	buf := utils.AcquireBuffer()
	defer utils.ReleaseBuffer(buf)
	enc := &png.Encoder{CompressionLevel: p.CompressionLevel}
	if err := enc.Encode(buf, src); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "png.encode", err)
	}
	return utils.CloneBytes(buf.Bytes()), nil
}

var _ core.Encoder = (*PNG)(nil)
