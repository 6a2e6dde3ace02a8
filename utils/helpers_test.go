package utils_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skryldev/image-budget/utils"
)

func TestFitLongestSide(t *testing.T) {
	tests := []struct {
		srcW, srcH, target int
		wantW, wantH       int
	}{
		{4000, 3000, 3000, 3000, 2250},
		{3000, 4000, 3000, 2250, 3000},
		{4000, 3000, 500, 500, 375},
		{200, 150, 3000, 200, 150}, // no upscale
		{3000, 3000, 3000, 3000, 3000},
		{1001, 1000, 500, 500, 500}, // 499.5 rounds up
		{10000, 1, 500, 500, 1},     // never collapses to zero
		{800, 600, 0, 800, 600},
	}
	for _, tc := range tests {
		gotW, gotH := utils.FitLongestSide(tc.srcW, tc.srcH, tc.target)
		assert.Equal(t, tc.wantW, gotW, "FitLongestSide(%d,%d,%d) width", tc.srcW, tc.srcH, tc.target)
		assert.Equal(t, tc.wantH, gotH, "FitLongestSide(%d,%d,%d) height", tc.srcW, tc.srcH, tc.target)
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0}, "jpeg"},
		{"png", []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A}, "png"},
		{"qoi", []byte("qoif\x00\x00"), "qoi"},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), "webp"},
		{"short", []byte{0xFF}, "unknown"},
		{"text", []byte("hello world"), "unknown"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, utils.DetectFormat(tc.data))
		})
	}
}

func TestLimitedReader(t *testing.T) {
	exact := &utils.LimitedReader{R: strings.NewReader("abcd"), Max: 4}
	buf, err := utils.DrainReader(context.Background(), exact, 2)
	require.NoError(t, err)
	assert.Equal(t, "abcd", buf.String())
	utils.ReleaseBuffer(buf)

	over := &utils.LimitedReader{R: strings.NewReader("abcde"), Max: 4}
	_, err = utils.DrainReader(context.Background(), over, 2)
	assert.ErrorIs(t, err, utils.ErrTooLarge)
}

func TestDrainReaderCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := utils.DrainReader(ctx, bytes.NewReader([]byte("x")), 0)
	assert.ErrorIs(t, err, context.Canceled)
}
