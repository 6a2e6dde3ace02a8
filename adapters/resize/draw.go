package resize

import (
	"image"

	xdraw "golang.org/x/image/draw"

	"github.com/Skryldev/image-budget/core"
)

// Draw resizes with golang.org/x/image/draw.
type Draw struct {
	// Interpolator controls quality vs speed.  Defaults to draw.BiLinear.
	Interpolator xdraw.Interpolator
}

// NewDraw returns a Draw resizer using the default interpolator.
func NewDraw() *Draw { return &Draw{} }

func (d *Draw) Backend() core.Backend { return core.BackendDraw }

func (d *Draw) Resize(src image.Image, longestSide int) (image.Image, error) {
	dstW, dstH, same, err := target("draw.resize", src, longestSide)
	if err != nil {
		return nil, err
	}
	if same {
		return src, nil // nothing to do
	}

	sampler := d.Interpolator
	if sampler == nil {
		sampler = xdraw.BiLinear
	}

	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	sampler.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst, nil
}

var _ core.Resizer = (*Draw)(nil)
