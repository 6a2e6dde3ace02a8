package utils

import (
	"bytes"
	"net/http"
)

const (
	formatJPEG    = "jpeg"
	formatPNG     = "png"
	formatWebP    = "webp"
	formatQOI     = "qoi"
	formatUnknown = "unknown"
)

// DetectFormat sniffs the leading bytes of data and returns the image format.
func DetectFormat(data []byte) string {
	if len(data) < 4 {
		return formatUnknown
	}
	// JPEG: FF D8 FF
	if data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF {
		return formatJPEG
	}
	// PNG: 89 50 4E 47
	if data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		return formatPNG
	}
	// QOI: "qoif"
	if data[0] == 'q' && data[1] == 'o' && data[2] == 'i' && data[3] == 'f' {
		return formatQOI
	}
	// WebP: RIFF....WEBP
	if len(data) >= 12 &&
		data[0] == 'R' && data[1] == 'I' && data[2] == 'F' && data[3] == 'F' &&
		data[8] == 'W' && data[9] == 'E' && data[10] == 'B' && data[11] == 'P' {
		return formatWebP
	}
	// Fallback to net/http sniffing.
	switch http.DetectContentType(data) {
	case "image/jpeg":
		return formatJPEG
	case "image/png":
		return formatPNG
	case "image/webp":
		return formatWebP
	}
	return formatUnknown
}

// FitLongestSide computes the output (w, h) whose longer side equals target,
// preserving aspect ratio.  Sources already within target are returned
// unchanged: the scale factor is clamped to 1.
func FitLongestSide(srcW, srcH, target int) (int, int) {
	if srcW <= 0 || srcH <= 0 || target <= 0 {
		return srcW, srcH
	}
	longest := srcW
	if srcH > longest {
		longest = srcH
	}
	if longest <= target {
		return srcW, srcH
	}
	if srcW >= srcH {
		h := int(int64(srcH)*int64(target)/int64(srcW) + roundHalf(int64(srcH)*int64(target)%int64(srcW), int64(srcW)))
		return target, max(h, 1)
	}
	w := int(int64(srcW)*int64(target)/int64(srcH) + roundHalf(int64(srcW)*int64(target)%int64(srcH), int64(srcH)))
	return max(w, 1), target
}

// roundHalf returns 1 when rem/div rounds up.
func roundHalf(rem, div int64) int64 {
	if rem*2 >= div {
		return 1
	}
	return 0
}

// LongestSide returns the larger of w and h.
func LongestSide(w, h int) int {
	if w > h {
		return w
	}
	return h
}

// CloneBytes returns a copy of b (safe for use after the source buffer is released).
func CloneBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// BytesReader creates an io.Reader backed by b without allocation.
func BytesReader(b []byte) *bytes.Reader {
	return bytes.NewReader(b)
}
