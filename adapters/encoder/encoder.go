package encoder

import (
	"fmt"

	"github.com/Skryldev/image-budget/core"
	apperrors "github.com/Skryldev/image-budget/errors"
)

// HighFidelity returns the lossless encoder registered under name
// ("webp", "png" or "qoi").
func HighFidelity(name string) (core.Encoder, error) {
	switch core.Format(name) {
	case core.FormatWebP:
		return NewLosslessWebP(), nil
	case core.FormatPNG:
		return NewPNG(), nil
	case core.FormatQOI:
		return NewQOI(), nil
	}
	return nil, apperrors.New(apperrors.CategoryConfig, "encoder.high_fidelity",
		fmt.Errorf("%w: %s", apperrors.ErrUnsupportedFormat, name))
}
