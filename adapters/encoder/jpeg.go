// Package encoder provides the lossy quality encoder used by the search and
// the high-fidelity encoders used for diagnostic attachments.
package encoder

import (
	"image"
	"image/jpeg"
	"math"

	"github.com/Skryldev/image-budget/core"
	apperrors "github.com/Skryldev/image-budget/errors"
	"github.com/Skryldev/image-budget/utils"
)

// JPEG encodes images to baseline JPEG with the standard library.
type JPEG struct{}

func NewJPEG() *JPEG { return &JPEG{} }

func (j *JPEG) Format() core.Format { return core.FormatJPEG }

// Encode maps quality in (0,1] onto the 1-100 JPEG scale.
func (j *JPEG) Encode(src image.Image, quality float64) ([]byte, error) {
	if src == nil {
		return nil, apperrors.New(apperrors.CategoryEncode, "jpeg.encode", apperrors.ErrEmptyInput)
	}

	buf := utils.AcquireBuffer()
	defer utils.ReleaseBuffer(buf)
	if err := jpeg.Encode(buf, src, &jpeg.Options{Quality: JPEGQuality(quality)}); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryEncode, "jpeg.encode", err)
	}
	return utils.CloneBytes(buf.Bytes()), nil
}

// JPEGQuality converts a (0,1] quality factor to the libjpeg 1-100 scale.
func JPEGQuality(q float64) int {
	v := int(math.Round(q * 100))
	if v < 1 {
		return 1
	}
	if v > 100 {
		return 100
	}
	return v
}

var _ core.Encoder = (*JPEG)(nil)
