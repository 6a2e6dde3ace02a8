// Package resize provides pure-Go longest-side resizer backends.
package resize

import (
	"image"

	apperrors "github.com/Skryldev/image-budget/errors"
	"github.com/Skryldev/image-budget/utils"
)

// target validates src and computes the fitted output size.  same is true
// when the source already fits and no resampling is needed.
func target(op string, src image.Image, longestSide int) (w, h int, same bool, err error) {
	if src == nil {
		return 0, 0, false, apperrors.New(apperrors.CategoryResize, op, apperrors.ErrEmptyInput)
	}
	b := src.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 || longestSide <= 0 {
		return 0, 0, false, apperrors.New(apperrors.CategoryResize, op, apperrors.ErrInvalidDimensions)
	}
	w, h = utils.FitLongestSide(b.Dx(), b.Dy(), longestSide)
	return w, h, w == b.Dx() && h == b.Dy(), nil
}
