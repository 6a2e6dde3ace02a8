package report

import (
	"bytes"
	"context"
	"encoding/json"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/Skryldev/image-budget/core"
	apperrors "github.com/Skryldev/image-budget/errors"
)

// LogSink writes a one-line summary of each report.
type LogSink struct {
	logger core.Logger
}

func NewLogSink(l core.Logger) *LogSink { return &LogSink{logger: l} }

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Send(_ context.Context, r *core.Report) error {
	fields := []interface{}{
		"id", r.ID,
		"fingerprint", r.Fingerprint,
		"filename", r.Filename,
		"width", r.Width,
		"height", r.Height,
	}
	if r.Attachment != nil {
		fields = append(fields, "attachment", r.Attachment.Filename, "attachment_bytes", len(r.Attachment.Data))
	}
	s.logger.Error("image.compression.corrupted", fields...)
	return nil
}

// Event is the JSON document stored next to an attachment.
type Event struct {
	ID          string    `json:"id"`
	Fingerprint string    `json:"fingerprint"`
	Filename    string    `json:"filename"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	CreatedAt   time.Time `json:"created_at"`
	Attachment  string    `json:"attachment,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	Bytes       int       `json:"bytes,omitempty"`
}

// EventKey is the storage path of a report's compressed event.
func EventKey(id string) string { return path.Join(id, "event.json.zst") }

// StorageSink persists reports through a core.StorageAdapter: the attachment
// under <id>/<name> and a zstd-compressed Event under <id>/event.json.zst.
type StorageSink struct {
	store  core.StorageAdapter
	bucket string
	enc    *zstd.Encoder
}

// NewStorageSink creates a StorageSink.  The zstd encoder is shared; EncodeAll
// is safe for concurrent use.
func NewStorageSink(store core.StorageAdapter, bucket string) (*StorageSink, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryReport, "report.storage_sink", err)
	}
	return &StorageSink{store: store, bucket: bucket, enc: enc}, nil
}

func (s *StorageSink) Name() string { return "storage" }

func (s *StorageSink) Send(ctx context.Context, r *core.Report) error {
	ev := Event{
		ID:          r.ID,
		Fingerprint: r.Fingerprint,
		Filename:    r.Filename,
		Width:       r.Width,
		Height:      r.Height,
		CreatedAt:   r.CreatedAt,
	}
	if a := r.Attachment; a != nil {
		key := core.StorageKey{Bucket: s.bucket, Path: path.Join(r.ID, a.Filename)}
		meta := map[string]string{
			"content-type": a.ContentType,
			"fingerprint":  r.Fingerprint,
			"size":         strconv.Itoa(len(a.Data)),
		}
		if err := s.store.Put(ctx, key, bytes.NewReader(a.Data), meta); err != nil {
			return err
		}
		ev.Attachment, ev.ContentType, ev.Bytes = a.Filename, a.ContentType, len(a.Data)
	}

	raw, err := json.Marshal(ev)
	if err != nil {
		return apperrors.Wrap(apperrors.CategoryReport, "report.storage_sink.marshal", err)
	}
	key := core.StorageKey{Bucket: s.bucket, Path: EventKey(r.ID)}
	return s.store.Put(ctx, key, bytes.NewReader(s.enc.EncodeAll(raw, nil)),
		map[string]string{"content-encoding": "zstd", "content-type": "application/json"})
}

// Close releases the zstd encoder.
func (s *StorageSink) Close() error { return s.enc.Close() }

// DecodeEvent inflates and parses a stored event.
func DecodeEvent(compressed []byte) (*Event, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "report.decode_event", err)
	}
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryDecode, "report.decode_event", err)
	}
	return &ev, nil
}

func attachmentName(filename string, f core.Format) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if ext := path.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	if base == "" || base == "." || base == "/" {
		base = "image"
	}
	return base + "." + string(f)
}
