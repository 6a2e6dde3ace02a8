package config

import (
	"errors"
	"time"

	"github.com/hashicorp/go-multierror"
)

// StorageBackend selects the storage adapter used for corruption reports.
type StorageBackend string

const (
	StorageNone  StorageBackend = ""
	StorageLocal StorageBackend = "local"
	StorageS3    StorageBackend = "s3"
)

// Budget presets used by the picker flows.
const (
	PreviewBudget    int64 = 512 * 1024       // inline previews
	AttachmentBudget int64 = 20 * 1024 * 1024 // document attachments
)

// Config is the top-level configuration struct.  All fields have safe defaults
// so callers can start with Default() and override only what they need.
type Config struct {
	// Worker pool controls.
	WorkerCount int // default: runtime.NumCPU()
	QueueSize   int // max queued jobs before backpressure; default: 256

	// Backend names the resizer used when a request does not pick one.
	Backend string // "draw", "imaging" or "vips"

	// Budget applied when a request carries none.
	DefaultBudget int64

	// Source loading limits.
	MaxImageBytes int64 // 0 = no limit
	ChunkSize     int   // streaming chunk size in bytes; default 32 KiB

	Search   SearchConfig
	Validity ValidityConfig
	Report   ReportConfig

	// Logging.
	LogLevel string // "debug", "info", "warn", "error"
}

// SearchConfig bounds the two nested first-fit searches.  The values have no
// derivation beyond the shipped defaults, so they are tunable.
type SearchConfig struct {
	MaxDimension  int // first longest-side candidate; default 3000
	MinDimension  int // last longest-side candidate (inclusive); default 500
	DimensionStep int // default 500

	MaxQuality  float64 // default 1.0
	MinQuality  float64 // inclusive floor; default 0.35
	QualityStep float64 // default 0.1
}

// ValidityConfig tunes degenerate-output detection.
type ValidityConfig struct {
	Tolerance   uint8 // max per-channel 8-bit distance still counted as the same colour
	SampleLimit int   // max pixels inspected per image
}

// ReportConfig configures the corruption reporter.
type ReportConfig struct {
	Enabled            bool
	MaxAttachmentBytes int64  // default 19 MiB
	HighFidelity       string // "webp", "png" or "qoi"
	Fingerprint        string
	Timeout            time.Duration

	Storage StorageBackend
	Local   LocalConfig
	S3      S3Config
}

// LocalConfig configures the local filesystem storage adapter.
type LocalConfig struct {
	RootDir     string
	Permissions uint32 // default 0644
}

// S3Config configures the S3 storage adapter.
// The client itself is injected, so connection settings live with it.
type S3Config struct {
	Bucket string
	Prefix string // prepended to every object path
}

// DefaultSearch returns the shipped search ladder.
func DefaultSearch() SearchConfig {
	return SearchConfig{
		MaxDimension:  3000,
		MinDimension:  500,
		DimensionStep: 500,
		MaxQuality:    1.0,
		MinQuality:    0.35,
		QualityStep:   0.1,
	}
}

// Default returns a Config populated with sensible production defaults.
func Default() Config {
	return Config{
		WorkerCount:   0, // resolved at runtime to NumCPU
		QueueSize:     256,
		Backend:       "draw",
		DefaultBudget: PreviewBudget,
		ChunkSize:     32 * 1024,
		Search:        DefaultSearch(),
		Validity: ValidityConfig{
			Tolerance:   2,
			SampleLimit: 50000,
		},
		Report: ReportConfig{
			Enabled:            true,
			MaxAttachmentBytes: 19 * 1024 * 1024,
			HighFidelity:       "webp",
			Fingerprint:        "image-compression-error",
			Timeout:            30 * time.Second,
		},
		LogLevel: "info",
	}
}

// Validate returns every inconsistency found in c, or nil.
func Validate(c Config) error {
	var result *multierror.Error
	if c.ChunkSize <= 0 {
		result = multierror.Append(result, errors.New("config: ChunkSize must be positive"))
	}
	if c.DefaultBudget <= 0 {
		result = multierror.Append(result, errors.New("config: DefaultBudget must be positive"))
	}
	switch c.Backend {
	case "draw", "imaging", "vips":
	default:
		result = multierror.Append(result, errors.New("config: Backend must be one of draw, imaging, vips"))
	}
	if err := ValidateSearch(c.Search); err != nil {
		result = multierror.Append(result, err)
	}
	if c.Validity.SampleLimit <= 0 {
		result = multierror.Append(result, errors.New("config: Validity.SampleLimit must be positive"))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		result = multierror.Append(result, errors.New("config: LogLevel must be one of debug, info, warn, error"))
	}
	if c.Report.Enabled {
		if c.Report.MaxAttachmentBytes <= 0 {
			result = multierror.Append(result, errors.New("config: Report.MaxAttachmentBytes must be positive"))
		}
		switch c.Report.HighFidelity {
		case "webp", "png", "qoi":
		default:
			result = multierror.Append(result, errors.New("config: Report.HighFidelity must be one of webp, png, qoi"))
		}
		if c.Report.Storage == StorageLocal && c.Report.Local.RootDir == "" {
			result = multierror.Append(result, errors.New("config: Report.Local.RootDir is required for local storage"))
		}
		if c.Report.Storage == StorageS3 && c.Report.S3.Bucket == "" {
			result = multierror.Append(result, errors.New("config: Report.S3.Bucket is required for s3 storage"))
		}
	}
	return result.ErrorOrNil()
}

// ValidateSearch checks the ladder bounds of s.
func ValidateSearch(s SearchConfig) error {
	var result *multierror.Error
	if s.MinDimension <= 0 {
		result = multierror.Append(result, errors.New("config: Search.MinDimension must be positive"))
	}
	if s.MaxDimension < s.MinDimension {
		result = multierror.Append(result, errors.New("config: Search.MaxDimension must not be below MinDimension"))
	}
	if s.DimensionStep <= 0 {
		result = multierror.Append(result, errors.New("config: Search.DimensionStep must be positive"))
	}
	if s.MaxQuality <= 0 || s.MaxQuality > 1 {
		result = multierror.Append(result, errors.New("config: Search.MaxQuality must be in (0,1]"))
	}
	if s.MinQuality <= 0 || s.MinQuality > s.MaxQuality {
		result = multierror.Append(result, errors.New("config: Search.MinQuality must be in (0,MaxQuality]"))
	}
	if s.QualityStep <= 0 {
		result = multierror.Append(result, errors.New("config: Search.QualityStep must be positive"))
	}
	return result.ErrorOrNil()
}
