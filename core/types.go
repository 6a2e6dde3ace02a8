package core

import (
	"context"
	"image"
	"time"
)

// Format identifies an image codec.
type Format string

const (
	FormatJPEG    Format = "jpeg"
	FormatPNG     Format = "png"
	FormatWebP    Format = "webp"
	FormatQOI     Format = "qoi"
	FormatUnknown Format = "unknown"
)

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatPNG:
		return "image/png"
	case FormatWebP:
		return "image/webp"
	case FormatQOI:
		return "image/qoi"
	}
	return "application/octet-stream"
}

// Backend selects one of the interchangeable resize strategies.  Which one is
// active is decided outside the engine (feature flags, config).
type Backend string

const (
	BackendDraw    Backend = "draw"
	BackendImaging Backend = "imaging"
	BackendVips    Backend = "vips"
)

// Backends lists every known backend in preference order.
var Backends = []Backend{BackendDraw, BackendImaging, BackendVips}

// Request is a single compression invocation.
type Request struct {
	// Source is the decoded original.  A nil Source fails with
	// ReasonSourceUnavailable before any resize or encode is attempted.
	Source image.Image
	// Filename is optional and only forwarded to diagnostics.
	Filename string
	// Budget is the exclusive upper bound on len(Result.Data).
	Budget  int64
	Backend Backend
}

// Result is a successful compression.
type Result struct {
	Data []byte

	// Dimension is the longest side of the encoded raster.
	Dimension int
	Quality   float64
	Width     int
	Height    int

	Backend  Backend
	Attempts int // encode calls made before the first fit

	ProcessingTime time.Duration
}

// Attempt describes the candidate a search step is working on.
type Attempt struct {
	Dimension int     // longest-side target for this rung
	Quality   float64 // zero for resize steps
	Bytes     int     // encoded size; zero until an encode has produced output
}

// Step names reported to hooks.
const (
	StepResize   = "resize"
	StepEncode   = "encode"
	StepValidate = "validate"
)

// Job encapsulates a single unit of work for the worker pool.
type Job struct {
	ID      string
	Ctx     context.Context //nolint:containedctx // intentional for async jobs
	Request Request
	// Result channel; nil for fire-and-forget.
	ResultCh chan<- JobResult
}

// JobResult wraps the outcome of an async job.
type JobResult struct {
	JobID  string
	Result *Result
	Err    error
}

// Report is a diagnostic bundle describing a corrupted compression.
type Report struct {
	ID          string
	Fingerprint string
	Filename    string
	Width       int
	Height      int
	CreatedAt   time.Time
	Attachment  *Attachment // nil when no encode fit under the ceiling
}

// Attachment is an encoded copy of the original image carried by a Report.
type Attachment struct {
	Data        []byte
	Filename    string
	Format      Format
	ContentType string
}

// StorageKey uniquely identifies a stored object.
type StorageKey struct {
	Bucket string
	Path   string
}
