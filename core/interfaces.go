package core

import (
	"context"
	"image"
	"io"
	"time"
)

// Resizer scales a raster so its longest side equals longestSide.  Sources
// already within longestSide are returned at their own size, never upscaled.
// The input is never mutated.  Implementations live in adapters/resize and
// adapters/vips.
type Resizer interface {
	Resize(img image.Image, longestSide int) (image.Image, error)
	Backend() Backend
}

// Encoder serialises a raster to lossy bytes at quality in (0,1].  For a
// fixed image the output size must not grow as quality decreases.
// Implementations live in adapters/encoder.
type Encoder interface {
	Encode(img image.Image, quality float64) ([]byte, error)
	Format() Format
}

// Decoder converts an encoded stream into a raster.
// Implementations live in adapters/decoder.
type Decoder interface {
	Decode(ctx context.Context, r io.Reader) (image.Image, error)
	CanDecode(format Format) bool
}

// Validator inspects encoded output and reports whether it decodes to a
// degenerate, effectively single-colour raster.
type Validator interface {
	Check(ctx context.Context, data []byte) (degenerate bool, err error)
}

// CorruptionReporter receives the original image of a corrupted compression.
// ReportCorruption must return without waiting for delivery.
type CorruptionReporter interface {
	ReportCorruption(ctx context.Context, original image.Image, filename string)
}

// ReportSink delivers a finished Report somewhere durable.
type ReportSink interface {
	Name() string
	Send(ctx context.Context, r *Report) error
}

// StorageAdapter persists report artefacts and retrieves them later.
// Implementations live in adapters/storage.
type StorageAdapter interface {
	Put(ctx context.Context, key StorageKey, r io.Reader, meta map[string]string) error
	Get(ctx context.Context, key StorageKey) (io.ReadCloser, error)
	Delete(ctx context.Context, key StorageKey) error
	Exists(ctx context.Context, key StorageKey) (bool, error)
}

// MetricsCollector receives performance observations from the engine.
type MetricsCollector interface {
	RecordProcessingTime(stepName string, d interface{ Seconds() float64 })
	RecordThroughput(bytes int64)
	RecordError(stepName string, category string)
}

// Logger is a minimal structured logging interface.
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
}

// Hook is an optional observer invoked around every resize, encode and
// validate step of a search.
type Hook interface {
	BeforeStep(ctx context.Context, stepName string, a Attempt)
	AfterStep(ctx context.Context, stepName string, a Attempt, d time.Duration, err error)
}

// Registry maps backends to resizers and formats to decoders.
type Registry interface {
	ResizerFor(b Backend) (Resizer, bool)
	DecoderFor(format Format) (Decoder, bool)
	RegisterResizer(r Resizer)
	RegisterDecoder(format Format, d Decoder)
}
