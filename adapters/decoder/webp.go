package decoder

import (
	"context"
	"image"
	"io"

	"golang.org/x/image/webp"

	"github.com/Skryldev/image-budget/core"
	apperrors "github.com/Skryldev/image-budget/errors"
)

// WebP decodes WebP images using golang.org/x/image/webp, which handles both
// the lossy (VP8) and lossless (VP8L) bitstreams.
type WebP struct{}

func NewWebP() *WebP { return &WebP{} }

func (w *WebP) CanDecode(format core.Format) bool {
	return format == core.FormatWebP
}

func (w *WebP) Decode(ctx context.Context, r io.Reader) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "webp.decode", err)
	}
	img, err := webp.Decode(r)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "webp.decode", err)
	}
	return img, nil
}
