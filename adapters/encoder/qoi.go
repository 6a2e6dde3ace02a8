package encoder

import (
	"image"

	"github.com/xfmoulet/qoi"

	"github.com/Skryldev/image-budget/core"
	apperrors "github.com/Skryldev/image-budget/errors"
	"github.com/Skryldev/image-budget/utils"
)

// QOI encodes images to the lossless "Quite OK Image" format; quality is ignored.
type QOI struct{}

func NewQOI() *QOI { return &QOI{} }

func (q *QOI) Format() core.Format { return core.FormatQOI }

func (q *QOI) Encode(src image.Image, _ float64) ([]byte, error) {
	if src == nil {
		return nil, apperrors.New(apperrors.CategoryEncode, "qoi.encode", apperrors.ErrEmptyInput)
	}

	buf := utils.AcquireBuffer()
	defer utils.ReleaseBuffer(buf)
	if err := qoi.Encode(buf, src); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "qoi.encode", err)
	}
	return utils.CloneBytes(buf.Bytes()), nil
}

var _ core.Encoder = (*QOI)(nil)
