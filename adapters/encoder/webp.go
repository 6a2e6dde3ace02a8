package encoder

import (
	"image"

	"github.com/chai2010/webp"

	"github.com/Skryldev/image-budget/core"
	apperrors "github.com/Skryldev/image-budget/errors"
	"github.com/Skryldev/image-budget/utils"
)

// WebP encodes images with libwebp through github.com/chai2010/webp.  In
// lossless mode quality is ignored.
type WebP struct {
	Lossless bool
	Exact    bool // keep RGB under fully transparent pixels
}

// NewLosslessWebP returns the encoder used for diagnostic attachments.
func NewLosslessWebP() *WebP { return &WebP{Lossless: true, Exact: true} }

func (w *WebP) Format() core.Format { return core.FormatWebP }

func (w *WebP) Encode(src image.Image, quality float64) ([]byte, error) {
	if src == nil {
		return nil, apperrors.New(apperrors.CategoryEncode, "webp.encode", apperrors.ErrEmptyInput)
	}

	buf := utils.AcquireBuffer()
	defer utils.ReleaseBuffer(buf)
	opts := &webp.Options{
		Lossless: w.Lossless,
		Quality:  float32(JPEGQuality(quality)),
		Exact:    w.Exact,
	}
	if err := webp.Encode(buf, src, opts); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "webp.encode", err)
	}
	return utils.CloneBytes(buf.Bytes()), nil
}

var _ core.Encoder = (*WebP)(nil)
