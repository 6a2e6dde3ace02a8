// Package report packages the original image of a corrupted compression and
// delivers it to diagnostic sinks without blocking the caller.
package report

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/Skryldev/image-budget/adapters/encoder"
	"github.com/Skryldev/image-budget/config"
	"github.com/Skryldev/image-budget/core"
	apperrors "github.com/Skryldev/image-budget/errors"
)

// DefaultFilename is the base name used when a request carried no filename;
// the attachment format supplies the extension.
const DefaultFilename = "image"

// Reporter implements core.CorruptionReporter.  Each report is built and sent
// on its own goroutine, detached from the caller's cancellation.
type Reporter struct {
	cfg      config.ReportConfig
	primary  core.Encoder // lossless, preferred
	fallback core.Encoder // JPEG at full quality
	sinks    []core.ReportSink
	logger   core.Logger
	now      func() time.Time

	mu     sync.Mutex // guards closed and wg.Add
	closed bool
	wg     sync.WaitGroup
}

// Option customises a Reporter.
type Option func(*Reporter)

// WithSinks appends delivery targets.
func WithSinks(s ...core.ReportSink) Option {
	return func(r *Reporter) { r.sinks = append(r.sinks, s...) }
}

// WithLogger attaches a structured logger.
func WithLogger(l core.Logger) Option {
	return func(r *Reporter) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithEncoders overrides the attachment encoders.
func WithEncoders(primary, fallback core.Encoder) Option {
	return func(r *Reporter) {
		r.primary, r.fallback = primary, fallback
	}
}

// New builds a Reporter from cfg.
func New(cfg config.ReportConfig, opts ...Option) (*Reporter, error) {
	primary, err := encoder.HighFidelity(cfg.HighFidelity)
	if err != nil {
		return nil, err
	}
	r := &Reporter{
		cfg:      cfg,
		primary:  primary,
		fallback: encoder.NewJPEG(),
		logger:   core.NopLogger{},
		now:      time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// ReportCorruption schedules a report for original and returns immediately.
// Reports arriving after Close are dropped.
func (r *Reporter) ReportCorruption(ctx context.Context, original image.Image, filename string) {
	if original == nil {
		return
	}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		r.logger.Warn("report.dropped.closed", "filename", filename)
		return
	}
	r.wg.Add(1)
	r.mu.Unlock()

	ctx = context.WithoutCancel(ctx)
	go func() {
		defer r.wg.Done()
		if r.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
			defer cancel()
		}
		if err := r.send(ctx, r.Build(original, filename)); err != nil {
			r.logger.Error("report.send.failed", "filename", filename, "error", err.Error())
		}
	}()
}

// Wait blocks until every report scheduled so far has been delivered or
// dropped.  Call it only while no compression is running; use Close when
// reports may still be arriving.
func (r *Reporter) Wait() { r.wg.Wait() }

// Close stops accepting reports and waits for the in-flight ones.  It is safe
// to call concurrently with ReportCorruption and more than once.
func (r *Reporter) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.wg.Wait()
}

// Build assembles the report envelope and its best attachment.
func (r *Reporter) Build(original image.Image, filename string) *core.Report {
	if filename == "" {
		filename = DefaultFilename
	}
	b := original.Bounds()
	rep := &core.Report{
		ID:          uuid.NewString(),
		Fingerprint: r.cfg.Fingerprint,
		Filename:    filename,
		Width:       b.Dx(),
		Height:      b.Dy(),
		CreatedAt:   r.now().UTC(),
	}
	att, err := BuildAttachment(original, filename, r.cfg.MaxAttachmentBytes, r.primary, r.fallback)
	if err != nil {
		r.logger.Warn("report.attachment.skipped", "id", rep.ID, "error", err.Error())
	}
	rep.Attachment = att
	return rep
}

// BuildAttachment encodes img with each encoder in turn and returns the first
// encode strictly below maxBytes.  Encoders receive quality 1.0.
func BuildAttachment(img image.Image, filename string, maxBytes int64, encs ...core.Encoder) (*core.Attachment, error) {
	var errs *multierror.Error
	for _, enc := range encs {
		if enc == nil {
			continue
		}
		data, err := enc.Encode(img, 1.0)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		if int64(len(data)) >= maxBytes {
			errs = multierror.Append(errs, apperrors.New(apperrors.CategoryReport, "report.attachment."+string(enc.Format()),
				apperrors.ErrAttachmentTooLarge))
			continue
		}
		f := enc.Format()
		return &core.Attachment{
			Data:        data,
			Filename:    attachmentName(filename, f),
			Format:      f,
			ContentType: f.ContentType(),
		}, nil
	}
	return nil, errs.ErrorOrNil()
}

func (r *Reporter) send(ctx context.Context, rep *core.Report) error {
	var errs *multierror.Error
	for _, s := range r.sinks {
		if err := s.Send(ctx, rep); err != nil {
			errs = multierror.Append(errs, apperrors.Wrap(apperrors.CategoryReport, "report.sink."+s.Name(), err))
		}
	}
	return errs.ErrorOrNil()
}

var _ core.CorruptionReporter = (*Reporter)(nil)
