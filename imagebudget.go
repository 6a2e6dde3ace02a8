// Package imagebudget compresses images to fit a byte budget: it searches
// for the largest dimension and highest quality whose JPEG encode is strictly
// smaller than the budget, and reports encodes that come out blank.
package imagebudget

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os"

	"github.com/hashicorp/go-multierror"

	"github.com/Skryldev/image-budget/adapters/decoder"
	"github.com/Skryldev/image-budget/adapters/encoder"
	"github.com/Skryldev/image-budget/adapters/resize"
	"github.com/Skryldev/image-budget/adapters/storage"
	"github.com/Skryldev/image-budget/config"
	"github.com/Skryldev/image-budget/core"
	"github.com/Skryldev/image-budget/engine"
	apperrors "github.com/Skryldev/image-budget/errors"
	"github.com/Skryldev/image-budget/hooks"
	"github.com/Skryldev/image-budget/report"
	"github.com/Skryldev/image-budget/utils"
	"github.com/Skryldev/image-budget/validity"
)

// Re-export Backend constants for convenience.
const (
	Draw    = core.BackendDraw
	Imaging = core.BackendImaging
	Vips    = core.BackendVips
)

// Feature flags consulted by SelectBackend.
const (
	FlagVipsResizer    = "vips_resizer"
	FlagImagingResizer = "imaging_resizer"
)

// DefaultConfig returns a sensible production configuration.
func DefaultConfig() config.Config { return config.Default() }

// SelectBackend maps feature flags to a resizer backend: vips wins over
// imaging, and draw is the default.
func SelectBackend(enabled func(flag string) bool) core.Backend {
	switch {
	case enabled == nil:
		return core.BackendDraw
	case enabled(FlagVipsResizer):
		return core.BackendVips
	case enabled(FlagImagingResizer):
		return core.BackendImaging
	}
	return core.BackendDraw
}

type options struct {
	logger   core.Logger
	hooks    []core.Hook
	metrics  core.MetricsCollector
	s3       storage.S3Client
	sinks    []core.ReportSink
	resizers []core.Resizer
}

// Option customises New.
type Option func(*options)

// WithLogger attaches a structured logger to every component.
func WithLogger(l core.Logger) Option { return func(o *options) { o.logger = l } }

// WithHooks registers search step observers.
func WithHooks(h ...core.Hook) Option { return func(o *options) { o.hooks = append(o.hooks, h...) } }

// WithMetrics feeds step timings, encoded bytes and errors into m.
func WithMetrics(m core.MetricsCollector) Option { return func(o *options) { o.metrics = m } }

// WithS3Client supplies the object-store client used when
// Report.Storage is "s3".
func WithS3Client(c storage.S3Client) Option { return func(o *options) { o.s3 = c } }

// WithReportSinks adds corruption report destinations.
func WithReportSinks(s ...core.ReportSink) Option {
	return func(o *options) { o.sinks = append(o.sinks, s...) }
}

// WithResizers registers extra resizer backends, e.g. the libvips one.
func WithResizers(r ...core.Resizer) Option {
	return func(o *options) { o.resizers = append(o.resizers, r...) }
}

// Processor is the primary entry point.
type Processor struct {
	cfg      config.Config
	inner    *core.Processor
	reg      *core.DefaultRegistry
	engine   *engine.Engine
	reporter *report.Reporter
	logger   core.Logger
	closers  []io.Closer
}

// New creates a fully wired Processor: draw and imaging resizers, every
// built-in decoder, the JPEG search encoder, the validity checker and, when
// enabled, the corruption reporter with its configured storage.
func New(cfg config.Config, opts ...Option) (*Processor, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryConfig, "imagebudget.new", err)
	}
	o := options{logger: core.NopLogger{}}
	for _, fn := range opts {
		fn(&o)
	}
	if o.logger == nil {
		o.logger = core.NopLogger{}
	}

	reg := core.NewRegistry()
	reg.RegisterResizer(resize.NewDraw())
	reg.RegisterResizer(resize.NewImaging())
	for _, r := range o.resizers {
		reg.RegisterResizer(r)
	}
	decoder.RegisterDefaults(reg)

	p := &Processor{cfg: cfg, reg: reg, logger: o.logger}

	engineOpts := []engine.Option{
		engine.WithValidator(validity.NewChecker(decoder.NewJPEG(), cfg.Validity)),
		engine.WithLogger(o.logger),
		engine.WithHooks(o.hooks...),
	}
	if o.metrics != nil {
		engineOpts = append(engineOpts, engine.WithHooks(hooks.NewMetricsHook(o.metrics)))
	}

	if cfg.Report.Enabled {
		sinks := append([]core.ReportSink{report.NewLogSink(o.logger)}, o.sinks...)
		store, err := openStorage(cfg.Report, o.s3)
		if err != nil {
			return nil, err
		}
		if store != nil {
			sink, err := report.NewStorageSink(store, "")
			if err != nil {
				return nil, err
			}
			sinks = append(sinks, sink)
			p.closers = append(p.closers, sink)
		}
		rep, err := report.New(cfg.Report, report.WithSinks(sinks...), report.WithLogger(o.logger))
		if err != nil {
			return nil, err
		}
		p.reporter = rep
		engineOpts = append(engineOpts, engine.WithReporter(rep))
	}

	eng, err := engine.New(cfg.Search, reg, encoder.NewJPEG(), engineOpts...)
	if err != nil {
		return nil, err
	}
	p.engine = eng
	p.inner = core.NewProcessor(cfg, eng)
	p.inner.SetLogger(o.logger)
	return p, nil
}

func openStorage(cfg config.ReportConfig, s3 storage.S3Client) (core.StorageAdapter, error) {
	switch cfg.Storage {
	case config.StorageLocal:
		return storage.NewLocal(cfg.Local.RootDir, os.FileMode(cfg.Local.Permissions))
	case config.StorageS3:
		if s3 == nil {
			return nil, apperrors.New(apperrors.CategoryConfig, "imagebudget.storage",
				fmt.Errorf("report storage %q needs WithS3Client", cfg.Storage))
		}
		return storage.NewS3(s3, cfg.S3.Bucket, cfg.S3.Prefix)
	}
	return nil, nil
}

// RegisterResizer adds or replaces the resizer for r.Backend().
func (p *Processor) RegisterResizer(r core.Resizer) { p.reg.RegisterResizer(r) }

// RegisterDecoder registers a custom decoder for the given format.
func (p *Processor) RegisterDecoder(f core.Format, d core.Decoder) { p.reg.RegisterDecoder(f, d) }

// Start starts the background worker pool.
func (p *Processor) Start() { p.inner.Start() }

// Stop drains the worker pool, closes the reporter after its in-flight
// reports finish and releases report storage.  Compress calls racing Stop
// may have their reports dropped.
func (p *Processor) Stop() error {
	p.inner.Stop()
	if p.reporter != nil {
		p.reporter.Close()
	}
	var errs *multierror.Error
	for _, c := range p.closers {
		if err := c.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	p.closers = nil
	return errs.ErrorOrNil()
}

// WaitReports blocks until every scheduled corruption report has finished.
// Call it once no compression is in flight; Stop handles the racing case.
func (p *Processor) WaitReports() {
	if p.reporter != nil {
		p.reporter.Wait()
	}
}

// Compress runs the budget search synchronously.  A zero Budget or empty
// Backend falls back to the configured defaults.
func (p *Processor) Compress(ctx context.Context, req core.Request) (*core.Result, error) {
	return p.inner.Compress(ctx, req)
}

// CompressImage is Compress for the common case.
func (p *Processor) CompressImage(ctx context.Context, img image.Image, filename string, budget int64) (*core.Result, error) {
	return p.inner.Compress(ctx, core.Request{Source: img, Filename: filename, Budget: budget})
}

// CompressAsync runs the search on the worker pool; the channel receives
// exactly one JobResult.  Start must have been called.
func (p *Processor) CompressAsync(ctx context.Context, req core.Request) <-chan core.JobResult {
	return p.inner.CompressAsync(ctx, req)
}

// Batch compresses several requests concurrently.
func (p *Processor) Batch(ctx context.Context, reqs []core.Request) ([]*core.Result, []error) {
	return p.inner.Batch(ctx, reqs)
}

// Stats returns lightweight processing statistics.
func (p *Processor) Stats() core.Stats { return p.inner.Stats() }

// Load reads and decodes r, honouring MaxImageBytes and ChunkSize.  Any
// failure is reported as SourceUnavailable.
func (p *Processor) Load(ctx context.Context, r io.Reader) (image.Image, error) {
	return load(ctx, p.reg, r, p.cfg.MaxImageBytes, p.cfg.ChunkSize)
}

// Load decodes r with the built-in decoders and no size limit.
func Load(ctx context.Context, r io.Reader) (image.Image, error) {
	reg := core.NewRegistry()
	decoder.RegisterDefaults(reg)
	return load(ctx, reg, r, 0, 0)
}

func load(ctx context.Context, reg core.Registry, r io.Reader, maxBytes int64, chunk int) (image.Image, error) {
	const op = "imagebudget.load"
	if r == nil {
		return nil, apperrors.SourceUnavailable(op, apperrors.ErrEmptyInput)
	}
	buf, err := utils.DrainReader(ctx, &utils.LimitedReader{R: r, Max: maxBytes}, chunk)
	if err != nil {
		return nil, apperrors.SourceUnavailable(op, err)
	}
	defer utils.ReleaseBuffer(buf)
	if buf.Len() == 0 {
		return nil, apperrors.SourceUnavailable(op, apperrors.ErrEmptyInput)
	}

	format := core.Format(utils.DetectFormat(buf.Bytes()))
	dec, ok := reg.DecoderFor(format)
	if !ok {
		return nil, apperrors.SourceUnavailable(op, fmt.Errorf("%w: %s", apperrors.ErrUnsupportedFormat, format))
	}
	img, err := dec.Decode(ctx, bytes.NewReader(buf.Bytes()))
	if err != nil {
		return nil, apperrors.SourceUnavailable(op, err)
	}
	return img, nil
}
