// Package engine implements the size-budgeted compression search: the largest
// longest-side dimension first, and within it the highest quality first,
// accepting the first encode that fits the budget.
package engine

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/Skryldev/image-budget/config"
	"github.com/Skryldev/image-budget/core"
	apperrors "github.com/Skryldev/image-budget/errors"
	"github.com/Skryldev/image-budget/utils"
)

// Engine is stateless between calls and safe for concurrent use: every
// Compress call owns its own search state.
type Engine struct {
	cfg       config.SearchConfig
	dims      []int
	quals     []float64
	registry  core.Registry
	encoder   core.Encoder
	validator core.Validator
	reporter  core.CorruptionReporter
	logger    core.Logger
	hooks     []core.Hook
}

// Option customises an Engine.
type Option func(*Engine)

// WithValidator enables degenerate-output detection on the accepted encode.
func WithValidator(v core.Validator) Option { return func(e *Engine) { e.validator = v } }

// WithReporter sets the sink for corrupted originals.
func WithReporter(r core.CorruptionReporter) Option { return func(e *Engine) { e.reporter = r } }

// WithLogger attaches a structured logger.
func WithLogger(l core.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithHooks registers step observers.
func WithHooks(h ...core.Hook) Option { return func(e *Engine) { e.hooks = append(e.hooks, h...) } }

// New builds an Engine.  reg supplies the resizer for each request's backend.
func New(cfg config.SearchConfig, reg core.Registry, enc core.Encoder, opts ...Option) (*Engine, error) {
	if err := config.ValidateSearch(cfg); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryConfig, "engine.new", err)
	}
	if reg == nil || enc == nil {
		return nil, apperrors.New(apperrors.CategoryConfig, "engine.new", fmt.Errorf("registry and encoder are required"))
	}
	e := &Engine{
		cfg:      cfg,
		dims:     Dimensions(cfg),
		quals:    Qualities(cfg),
		registry: reg,
		encoder:  enc,
		logger:   core.NopLogger{},
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// Compress searches for the first (dimension, quality) pair whose encode is
// strictly smaller than req.Budget.  The context is handed to hooks, the
// validator and the reporter; it does not interrupt the search.
func (e *Engine) Compress(ctx context.Context, req core.Request) (*core.Result, error) {
	const op = "engine.compress"
	start := time.Now()

	if req.Source == nil {
		return nil, apperrors.SourceUnavailable(op, nil)
	}
	src := req.Source
	srcB := src.Bounds()
	if srcB.Dx() <= 0 || srcB.Dy() <= 0 {
		return nil, apperrors.SourceUnavailable(op, apperrors.ErrInvalidDimensions)
	}
	if req.Budget <= 0 {
		return nil, apperrors.New(apperrors.CategoryInput, op, apperrors.ErrInvalidBudget)
	}
	resizer, ok := e.registry.ResizerFor(req.Backend)
	if !ok {
		return nil, apperrors.New(apperrors.CategoryConfig, op,
			fmt.Errorf("%w: %q", apperrors.ErrUnknownBackend, req.Backend))
	}

	attempts := 0
	lastW, lastH := -1, -1
	for _, dim := range e.dims {
		// Rungs above the source size clamp to the same raster; re-encoding
		// it would only repeat the previous rung's misses.
		w, h := utils.FitLongestSide(srcB.Dx(), srcB.Dy(), dim)
		if w == lastW && h == lastH {
			continue
		}
		lastW, lastH = w, h

		// scaled lives for this rung only.
		scaled, err := e.resize(ctx, resizer, src, dim)
		if err != nil {
			return nil, apperrors.SourceUnavailable(op+".resize", err)
		}

		for _, q := range e.quals {
			data, err := e.encode(ctx, scaled, dim, q)
			attempts++
			if err != nil {
				return nil, apperrors.Wrap(apperrors.CategoryEncode, op+".encode", err)
			}
			if int64(len(data)) < req.Budget {
				return e.accept(ctx, req, scaled, data, dim, q, attempts, start)
			}
		}
	}

	e.logger.Info("engine.compress.unreachable",
		"budget", req.Budget,
		"backend", string(req.Backend),
		"attempts", attempts,
	)
	return nil, apperrors.BudgetUnreachable(op, req.Budget)
}

func (e *Engine) accept(ctx context.Context, req core.Request, scaled image.Image, data []byte,
	dim int, q float64, attempts int, start time.Time) (*core.Result, error) {
	b := scaled.Bounds()
	if e.validator != nil {
		a := core.Attempt{Dimension: dim, Quality: q, Bytes: len(data)}
		e.before(ctx, core.StepValidate, a)
		t := time.Now()
		degenerate, verr := e.validator.Check(ctx, data)
		var stepErr error
		if degenerate {
			stepErr = apperrors.ResultCorrupted("engine.validate", verr)
		}
		e.after(ctx, core.StepValidate, a, time.Since(t), stepErr)

		if degenerate {
			e.logger.Warn("engine.compress.corrupted",
				"filename", req.Filename,
				"width", b.Dx(),
				"height", b.Dy(),
				"quality", q,
				"bytes", len(data),
			)
			if e.reporter != nil {
				e.reporter.ReportCorruption(ctx, req.Source, req.Filename)
			}
			return nil, stepErr
		}
	}

	res := &core.Result{
		Data:           data,
		Dimension:      utils.LongestSide(b.Dx(), b.Dy()),
		Quality:        q,
		Width:          b.Dx(),
		Height:         b.Dy(),
		Backend:        req.Backend,
		Attempts:       attempts,
		ProcessingTime: time.Since(start),
	}
	e.logger.Info("engine.compress.done",
		"dimension", res.Dimension,
		"quality", res.Quality,
		"bytes", len(res.Data),
		"budget", req.Budget,
		"attempts", attempts,
		"duration_ms", res.ProcessingTime.Milliseconds(),
	)
	return res, nil
}

func (e *Engine) resize(ctx context.Context, r core.Resizer, src image.Image, dim int) (image.Image, error) {
	a := core.Attempt{Dimension: dim}
	e.before(ctx, core.StepResize, a)
	t := time.Now()
	out, err := r.Resize(src, dim)
	e.after(ctx, core.StepResize, a, time.Since(t), err)
	return out, err
}

func (e *Engine) encode(ctx context.Context, img image.Image, dim int, q float64) ([]byte, error) {
	a := core.Attempt{Dimension: dim, Quality: q}
	e.before(ctx, core.StepEncode, a)
	t := time.Now()
	data, err := e.encoder.Encode(img, q)
	a.Bytes = len(data)
	e.after(ctx, core.StepEncode, a, time.Since(t), err)
	return data, err
}

func (e *Engine) before(ctx context.Context, step string, a core.Attempt) {
	for _, h := range e.hooks {
		h.BeforeStep(ctx, step, a)
	}
}

func (e *Engine) after(ctx context.Context, step string, a core.Attempt, d time.Duration, err error) {
	for _, h := range e.hooks {
		h.AfterStep(ctx, step, a, d, err)
	}
}

var _ core.Compressor = (*Engine)(nil)
