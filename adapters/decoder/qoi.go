package decoder

import (
	"context"
	"image"
	"io"

	"github.com/xfmoulet/qoi"

	"github.com/Skryldev/image-budget/core"
	apperrors "github.com/Skryldev/image-budget/errors"
)

// QOI decodes "Quite OK Image" files.
type QOI struct{}

func NewQOI() *QOI { return &QOI{} }

func (q *QOI) CanDecode(format core.Format) bool {
	return format == core.FormatQOI
}

func (q *QOI) Decode(ctx context.Context, r io.Reader) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "qoi.decode", err)
	}
	img, err := qoi.Decode(r)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "qoi.decode", err)
	}
	return img, nil
}
