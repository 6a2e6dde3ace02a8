// Package hooks provides production-ready Hook and Logger implementations.
package hooks

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/Skryldev/image-budget/core"
	apperrors "github.com/Skryldev/image-budget/errors"
)

// ── Structured logger adapters ────────────────────────────────────────────────

// SlogLogger wraps the standard library slog.Logger to satisfy core.Logger.
type SlogLogger struct {
	log *slog.Logger
}

// NewSlogLogger creates a logger backed by slog.
func NewSlogLogger(l *slog.Logger) *SlogLogger { return &SlogLogger{log: l} }

func (s *SlogLogger) Debug(msg string, fields ...interface{}) { s.log.Debug(msg, fields...) }
func (s *SlogLogger) Info(msg string, fields ...interface{})  { s.log.Info(msg, fields...) }
func (s *SlogLogger) Warn(msg string, fields ...interface{})  { s.log.Warn(msg, fields...) }
func (s *SlogLogger) Error(msg string, fields ...interface{}) { s.log.Error(msg, fields...) }

// ZapLogger adapts a zap SugaredLogger; fields are alternating key/value pairs.
type ZapLogger struct {
	log *zap.SugaredLogger
}

func NewZapLogger(l *zap.Logger) *ZapLogger { return &ZapLogger{log: l.Sugar()} }

func (z *ZapLogger) Debug(msg string, fields ...interface{}) { z.log.Debugw(msg, fields...) }
func (z *ZapLogger) Info(msg string, fields ...interface{})  { z.log.Infow(msg, fields...) }
func (z *ZapLogger) Warn(msg string, fields ...interface{})  { z.log.Warnw(msg, fields...) }
func (z *ZapLogger) Error(msg string, fields ...interface{}) { z.log.Errorw(msg, fields...) }

// Sync flushes buffered entries.
func (z *ZapLogger) Sync() error { return z.log.Sync() }

// NewZapProduction builds a JSON zap logger at the named level
// ("debug", "info", "warn", "error").
func NewZapProduction(level string) (*ZapLogger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryConfig, "hooks.zap", err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	l, err := cfg.Build()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryConfig, "hooks.zap", err)
	}
	return NewZapLogger(l), nil
}

// ── Logging hook ──────────────────────────────────────────────────────────────

// LoggingHook logs before/after each search step.
type LoggingHook struct {
	logger core.Logger
}

// NewLoggingHook creates a LoggingHook.
func NewLoggingHook(l core.Logger) *LoggingHook { return &LoggingHook{logger: l} }

func (h *LoggingHook) BeforeStep(_ context.Context, stepName string, a core.Attempt) {
	h.logger.Debug("search.step.start",
		"step", stepName,
		"dimension", a.Dimension,
		"quality", a.Quality,
	)
}

func (h *LoggingHook) AfterStep(_ context.Context, stepName string, a core.Attempt, d time.Duration, err error) {
	if err != nil {
		h.logger.Error("search.step.error",
			"step", stepName,
			"dimension", a.Dimension,
			"quality", a.Quality,
			"duration_ms", d.Milliseconds(),
			"error", err.Error(),
		)
		return
	}
	h.logger.Debug("search.step.done",
		"step", stepName,
		"dimension", a.Dimension,
		"quality", a.Quality,
		"bytes", a.Bytes,
		"duration_ms", d.Milliseconds(),
	)
}

// ── In-memory metrics collector ───────────────────────────────────────────────

// InMemoryMetrics accumulates metrics atomically; safe for concurrent use.
type InMemoryMetrics struct {
	mu sync.RWMutex

	stepDurationsMs map[string]int64 // cumulative ms per step
	stepCalls       map[string]int64 // call count per step
	stepErrors      map[string]int64
	errorCategories map[string]int64

	totalEncodedB int64
}

// NewInMemoryMetrics creates an empty metrics store.
func NewInMemoryMetrics() *InMemoryMetrics {
	return &InMemoryMetrics{
		stepDurationsMs: make(map[string]int64),
		stepCalls:       make(map[string]int64),
		stepErrors:      make(map[string]int64),
		errorCategories: make(map[string]int64),
	}
}

func (m *InMemoryMetrics) RecordProcessingTime(stepName string, d interface{ Seconds() float64 }) {
	ms := int64(d.Seconds() * 1000)
	m.mu.Lock()
	m.stepDurationsMs[stepName] += ms
	m.stepCalls[stepName]++
	m.mu.Unlock()
}

func (m *InMemoryMetrics) RecordThroughput(bytes int64) {
	atomic.AddInt64(&m.totalEncodedB, bytes)
}

func (m *InMemoryMetrics) RecordError(stepName string, category string) {
	m.mu.Lock()
	m.stepErrors[stepName]++
	m.errorCategories[category]++
	m.mu.Unlock()
}

// Snapshot returns a copy of current metrics.
func (m *InMemoryMetrics) Snapshot() MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return MetricsSnapshot{
		StepDurationsMs: copyCounts(m.stepDurationsMs),
		StepCalls:       copyCounts(m.stepCalls),
		StepErrors:      copyCounts(m.stepErrors),
		ErrorCategories: copyCounts(m.errorCategories),
		TotalEncodedB:   atomic.LoadInt64(&m.totalEncodedB),
	}
}

func copyCounts(src map[string]int64) map[string]int64 {
	dst := make(map[string]int64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// MetricsSnapshot is an immutable point-in-time copy of metrics.
type MetricsSnapshot struct {
	StepDurationsMs map[string]int64
	StepCalls       map[string]int64
	StepErrors      map[string]int64
	ErrorCategories map[string]int64
	TotalEncodedB   int64 // sum of every encode attempt, accepted or not
}

// ── Metrics hook ──────────────────────────────────────────────────────────────

// MetricsHook feeds search events into a MetricsCollector.
type MetricsHook struct {
	collector core.MetricsCollector
}

// NewMetricsHook creates a MetricsHook.
func NewMetricsHook(c core.MetricsCollector) *MetricsHook { return &MetricsHook{collector: c} }

func (h *MetricsHook) BeforeStep(context.Context, string, core.Attempt) {}

func (h *MetricsHook) AfterStep(_ context.Context, stepName string, a core.Attempt, d time.Duration, err error) {
	h.collector.RecordProcessingTime(stepName, d)
	if err != nil {
		h.collector.RecordError(stepName, categoryOf(err))
	}
	if stepName == core.StepEncode && a.Bytes > 0 {
		h.collector.RecordThroughput(int64(a.Bytes))
	}
}

func categoryOf(err error) string {
	for _, c := range []apperrors.Category{
		apperrors.CategoryResult, apperrors.CategoryResize, apperrors.CategoryEncode,
	} {
		if apperrors.IsCategory(err, c) {
			return string(c)
		}
	}
	return "unknown"
}

var (
	_ core.Hook   = (*LoggingHook)(nil)
	_ core.Hook   = (*MetricsHook)(nil)
	_ core.Logger = (*SlogLogger)(nil)
	_ core.Logger = (*ZapLogger)(nil)
)
