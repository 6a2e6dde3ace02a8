// Package vips provides the libvips-backed resizer.  It needs cgo and a
// system libvips; the rest of the module builds without it.
package vips

import (
	"bytes"
	"image"
	"image/png"
	"runtime"
	"sync"

	govips "github.com/davidbyttow/govips/v2/vips"

	"github.com/Skryldev/image-budget/core"
	apperrors "github.com/Skryldev/image-budget/errors"
	"github.com/Skryldev/image-budget/utils"
)

// BackendConfig configures the libvips runtime.
type BackendConfig struct {
	MaxCacheSize int
	MaxWorkers   int
	ReportLeaks  bool
}

var startOnce sync.Once

// Startup initialises libvips once per process.
func Startup(cfg BackendConfig) {
	startOnce.Do(func() {
		if cfg.MaxWorkers <= 0 {
			cfg.MaxWorkers = runtime.NumCPU()
		}
		govips.Startup(&govips.Config{
			ConcurrencyLevel: cfg.MaxWorkers,
			MaxCacheSize:     cfg.MaxCacheSize,
			ReportLeaks:      cfg.ReportLeaks,
		})
	})
}

// Shutdown releases all libvips resources. Call once at process exit.
func Shutdown() {
	govips.Shutdown()
}

// Resizer resizes using vips_resize() with the Lanczos3 kernel.  Rasters
// cross the cgo boundary as uncompressed PNG so no pixels are lost.
// Safe for concurrent use across goroutines.
type Resizer struct {
	Kernel govips.Kernel
}

// NewResizer starts libvips if needed and returns a Lanczos3 resizer.
func NewResizer(cfg BackendConfig) *Resizer {
	Startup(cfg)
	return &Resizer{Kernel: govips.KernelLanczos3}
}

func (r *Resizer) Backend() core.Backend { return core.BackendVips }

func (r *Resizer) Resize(src image.Image, longestSide int) (image.Image, error) {
	const op = "vips.resize"
	if src == nil {
		return nil, apperrors.New(apperrors.CategoryResize, op, apperrors.ErrEmptyInput)
	}
	b := src.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 || longestSide <= 0 {
		return nil, apperrors.New(apperrors.CategoryResize, op, apperrors.ErrInvalidDimensions)
	}
	dstW, dstH := utils.FitLongestSide(b.Dx(), b.Dy(), longestSide)
	if dstW == b.Dx() && dstH == b.Dy() {
		return src, nil
	}

	buf := utils.AcquireBuffer()
	defer utils.ReleaseBuffer(buf)
	enc := png.Encoder{CompressionLevel: png.NoCompression}
	if err := enc.Encode(buf, src); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryResize, op+".import", err)
	}

	ref, err := govips.NewImageFromBuffer(utils.CloneBytes(buf.Bytes()))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryResize, op+".load", err)
	}
	defer ref.Close()

	hScale := float64(dstW) / float64(b.Dx())
	vScale := float64(dstH) / float64(b.Dy())
	if err := ref.ResizeWithVScale(hScale, vScale, r.Kernel); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryResize, op, err)
	}

	ep := govips.NewPngExportParams()
	ep.Compression = 0
	out, _, err := ref.ExportPng(ep)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryResize, op+".export", err)
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryResize, op+".decode", err)
	}
	return img, nil
}

// RegisterVipsBackend adds the libvips resizer to reg.
func RegisterVipsBackend(reg core.Registry, cfg BackendConfig) *Resizer {
	r := NewResizer(cfg)
	reg.RegisterResizer(r)
	return r
}

var _ core.Resizer = (*Resizer)(nil)
