package report_test

import (
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skryldev/image-budget/adapters/encoder"
	"github.com/Skryldev/image-budget/adapters/storage"
	"github.com/Skryldev/image-budget/config"
	"github.com/Skryldev/image-budget/core"
	"github.com/Skryldev/image-budget/report"
)

func solid(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 40, A: 255})
		}
	}
	return img
}

type fixedEncoder struct {
	format core.Format
	size   int
	err    error
}

func (f fixedEncoder) Format() core.Format { return f.format }

func (f fixedEncoder) Encode(image.Image, float64) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return make([]byte, f.size), nil
}

type recordingSink struct {
	mu      sync.Mutex
	reports []*core.Report
	err     error
	block   chan struct{}
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Send(ctx context.Context, r *core.Report) error {
	if s.block != nil {
		<-s.block
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.reports = append(s.reports, r)
	s.mu.Unlock()
	return s.err
}

func cfg() config.ReportConfig {
	return config.Default().Report
}

func TestBuildAttachmentPrefersHighFidelity(t *testing.T) {
	att, err := report.BuildAttachment(solid(4, 4), "photo.heic", 100,
		fixedEncoder{format: core.FormatWebP, size: 10},
		fixedEncoder{format: core.FormatJPEG, size: 5})
	require.NoError(t, err)
	require.NotNil(t, att)
	assert.Equal(t, core.FormatWebP, att.Format)
	assert.Equal(t, "photo.webp", att.Filename)
	assert.Equal(t, "image/webp", att.ContentType)
}

func TestBuildAttachmentFallsBack(t *testing.T) {
	att, err := report.BuildAttachment(solid(4, 4), "", 100,
		fixedEncoder{format: core.FormatWebP, size: 100}, // not strictly below the ceiling
		fixedEncoder{format: core.FormatJPEG, size: 99})
	require.NoError(t, err)
	require.NotNil(t, att)
	assert.Equal(t, core.FormatJPEG, att.Format)
	assert.Equal(t, "image.jpeg", att.Filename)
}

func TestBuildAttachmentNothingFits(t *testing.T) {
	att, err := report.BuildAttachment(solid(4, 4), "a.png", 10,
		fixedEncoder{format: core.FormatWebP, size: 50},
		fixedEncoder{format: core.FormatJPEG, err: errors.New("boom")})
	assert.Nil(t, att)
	assert.Error(t, err)
}

func TestReportCorruptionIsAsyncAndDetached(t *testing.T) {
	sink := &recordingSink{block: make(chan struct{})}
	r, err := report.New(cfg(), report.WithSinks(sink))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.ReportCorruption(ctx, solid(32, 16), "broken.jpg")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ReportCorruption blocked on delivery")
	}

	// The caller giving up must not cancel the report.
	cancel()
	close(sink.block)
	r.Wait()

	require.Len(t, sink.reports, 1)
	rep := sink.reports[0]
	assert.NotEmpty(t, rep.ID)
	assert.Equal(t, "image-compression-error", rep.Fingerprint)
	assert.Equal(t, "broken.jpg", rep.Filename)
	assert.Equal(t, 32, rep.Width)
	assert.Equal(t, 16, rep.Height)
	require.NotNil(t, rep.Attachment)
	assert.Equal(t, core.FormatWebP, rep.Attachment.Format)
}

func TestSinkFailureDoesNotStopOtherSinks(t *testing.T) {
	bad := &recordingSink{err: errors.New("unreachable")}
	good := &recordingSink{}
	r, err := report.New(cfg(), report.WithSinks(bad, good))
	require.NoError(t, err)

	r.ReportCorruption(context.Background(), solid(8, 8), "")
	r.Wait()

	require.Len(t, good.reports, 1)
	assert.Equal(t, report.DefaultFilename, good.reports[0].Filename)
}

func TestNilOriginalIsIgnored(t *testing.T) {
	sink := &recordingSink{}
	r, err := report.New(cfg(), report.WithSinks(sink))
	require.NoError(t, err)
	r.ReportCorruption(context.Background(), nil, "x")
	r.Wait()
	assert.Empty(t, sink.reports)
}

func TestCloseDropsLateReports(t *testing.T) {
	sink := &recordingSink{}
	r, err := report.New(cfg(), report.WithSinks(sink))
	require.NoError(t, err)

	r.ReportCorruption(context.Background(), solid(8, 8), "before.jpg")
	r.Close()
	r.ReportCorruption(context.Background(), solid(8, 8), "after.jpg")
	r.Close()

	require.Len(t, sink.reports, 1)
	assert.Equal(t, "before.jpg", sink.reports[0].Filename)
}

func TestCloseRacesReportCorruption(t *testing.T) {
	sink := &recordingSink{}
	r, err := report.New(cfg(), report.WithSinks(sink))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				r.ReportCorruption(context.Background(), solid(4, 4), "")
			}
		}()
	}
	r.Close()
	wg.Wait()
	r.Close()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	assert.LessOrEqual(t, len(sink.reports), 80)
}

func TestDefaultAttachmentName(t *testing.T) {
	r, err := report.New(cfg())
	require.NoError(t, err)
	rep := r.Build(solid(4, 4), "")
	assert.Equal(t, "image", rep.Filename)
	require.NotNil(t, rep.Attachment)
	assert.Equal(t, "image.webp", rep.Attachment.Filename)
}

func TestNewRejectsUnknownHighFidelity(t *testing.T) {
	c := cfg()
	c.HighFidelity = "bmp"
	_, err := report.New(c)
	assert.Error(t, err)
}

func TestStorageSinkWritesAttachmentAndEvent(t *testing.T) {
	store, err := storage.NewLocal(t.TempDir(), 0)
	require.NoError(t, err)
	sink, err := report.NewStorageSink(store, "reports")
	require.NoError(t, err)
	defer sink.Close()

	r, err := report.New(cfg(), report.WithSinks(sink),
		report.WithEncoders(encoder.NewPNG(), encoder.NewJPEG()))
	require.NoError(t, err)
	rep := r.Build(solid(20, 10), "scan.jpg")
	require.NoError(t, sink.Send(context.Background(), rep))

	ctx := context.Background()
	ok, err := store.Exists(ctx, core.StorageKey{Bucket: "reports", Path: rep.ID + "/scan.png"})
	require.NoError(t, err)
	assert.True(t, ok)

	rc, err := store.Get(ctx, core.StorageKey{Bucket: "reports", Path: report.EventKey(rep.ID)})
	require.NoError(t, err)
	compressed, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)

	ev, err := report.DecodeEvent(compressed)
	require.NoError(t, err)
	assert.Equal(t, rep.ID, ev.ID)
	assert.Equal(t, "scan.png", ev.Attachment)
	assert.Equal(t, "image/png", ev.ContentType)
	assert.Equal(t, 20, ev.Width)
}

type recordingLogger struct {
	mu   sync.Mutex
	msgs []string
}

func (l *recordingLogger) record(msg string) {
	l.mu.Lock()
	l.msgs = append(l.msgs, msg)
	l.mu.Unlock()
}
func (l *recordingLogger) Debug(msg string, _ ...interface{}) { l.record(msg) }
func (l *recordingLogger) Info(msg string, _ ...interface{})  { l.record(msg) }
func (l *recordingLogger) Warn(msg string, _ ...interface{})  { l.record(msg) }
func (l *recordingLogger) Error(msg string, _ ...interface{}) { l.record(msg) }

func TestLogSink(t *testing.T) {
	l := &recordingLogger{}
	require.NoError(t, report.NewLogSink(l).Send(context.Background(), &core.Report{ID: "x"}))
	assert.Equal(t, []string{"image.compression.corrupted"}, l.msgs)
}
