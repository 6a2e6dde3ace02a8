package resize

import (
	"image"

	"github.com/disintegration/imaging"

	"github.com/Skryldev/image-budget/core"
)

// Imaging resizes with github.com/disintegration/imaging.
type Imaging struct {
	// Filter defaults to imaging.Lanczos.
	Filter *imaging.ResampleFilter
}

// NewImaging returns an Imaging resizer using the Lanczos filter.
func NewImaging() *Imaging { return &Imaging{} }

func (i *Imaging) Backend() core.Backend { return core.BackendImaging }

func (i *Imaging) Resize(src image.Image, longestSide int) (image.Image, error) {
	dstW, dstH, same, err := target("imaging.resize", src, longestSide)
	if err != nil {
		return nil, err
	}
	if same {
		return src, nil
	}
	filter := imaging.Lanczos
	if i.Filter != nil {
		filter = *i.Filter
	}
	return imaging.Resize(src, dstW, dstH, filter), nil
}

var _ core.Resizer = (*Imaging)(nil)
