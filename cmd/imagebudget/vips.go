//go:build vips

package main

import (
	"github.com/Skryldev/image-budget/adapters/vips"
	"github.com/Skryldev/image-budget/core"
)

func init() {
	extraResizers = append(extraResizers, func() core.Resizer {
		return vips.NewResizer(vips.BackendConfig{})
	})
}
