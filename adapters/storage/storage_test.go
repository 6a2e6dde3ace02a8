package storage_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skryldev/image-budget/adapters/storage"
	"github.com/Skryldev/image-budget/core"
)

func TestLocalRoundTrip(t *testing.T) {
	dir := t.TempDir()
	l, err := storage.NewLocal(dir, 0)
	require.NoError(t, err)
	ctx := context.Background()
	key := core.StorageKey{Bucket: "reports", Path: "abc/image.webp"}

	require.NoError(t, l.Put(ctx, key, strings.NewReader("payload"), map[string]string{"fingerprint": "x"}))

	ok, err := l.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	rc, err := l.Get(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	_, err = os.Stat(filepath.Join(dir, "reports", "abc", "image.webp.meta.json"))
	assert.NoError(t, err)

	require.NoError(t, l.Delete(ctx, key))
	ok, err = l.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = l.Get(ctx, key)
	assert.ErrorIs(t, err, storage.ErrKeyNotFound)
}

func TestLocalKeysStayInsideRoot(t *testing.T) {
	dir := t.TempDir()
	l, err := storage.NewLocal(filepath.Join(dir, "root"), 0)
	require.NoError(t, err)

	key := core.StorageKey{Path: "../../escape.txt"}
	require.NoError(t, l.Put(context.Background(), key, strings.NewReader("x"), nil))

	_, err = os.Stat(filepath.Join(dir, "escape.txt"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "root", "escape.txt"))
	assert.NoError(t, err)
}

type memS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (m *memS3) PutObject(_ context.Context, bucket, key string, body io.Reader, _ map[string]string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[bucket+"/"+key] = data
	return nil
}

func (m *memS3) GetObject(_ context.Context, bucket, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, os.ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memS3) DeleteObject(_ context.Context, bucket, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, bucket+"/"+key)
	return nil
}

func (m *memS3) HeadObject(_ context.Context, bucket, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[bucket+"/"+key]
	return ok, nil
}

func TestS3DefaultBucketAndPrefix(t *testing.T) {
	client := &memS3{}
	s, err := storage.NewS3(client, "diagnostics", "corrupt/")
	require.NoError(t, err)
	ctx := context.Background()

	key := core.StorageKey{Path: "id/event.json.zst"}
	require.NoError(t, s.Put(ctx, key, strings.NewReader("z"), nil))
	assert.Contains(t, client.objects, "diagnostics/corrupt/id/event.json.zst")

	ok, err := s.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Delete(ctx, key))
	_, err = s.Get(ctx, key)
	assert.Error(t, err)
}

func TestNewS3RequiresClient(t *testing.T) {
	_, err := storage.NewS3(nil, "b", "")
	assert.Error(t, err)
}
