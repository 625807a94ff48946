package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contractorpay/invoice-reconciler/internal/storage"
)

func TestMemoryStore_PutGet(t *testing.T) {
	s := storage.NewMemoryStore()
	ctx := context.Background()

	data := []byte("invoice bytes")
	require.NoError(t, s.Put(ctx, storage.Object{Key: "2026/03/a.png", ContentType: "image/png", Data: data}))
	data[0] = 'X'

	got, err := s.Get(ctx, "2026/03/a.png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", got.ContentType)
	assert.Equal(t, "invoice bytes", string(got.Data))
}

func TestMemoryStore_Missing(t *testing.T) {
	s := storage.NewMemoryStore()
	ctx := context.Background()

	_, err := s.Get(ctx, "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "nope"), storage.ErrNotFound)
	assert.Error(t, s.Put(ctx, storage.Object{}))
}

func TestMemoryStore_ListAndDelete(t *testing.T) {
	s := storage.NewMemoryStore()
	ctx := context.Background()
	for _, k := range []string{"2026/03/b.pdf", "2026/03/a.png", "2026/04/c.txt"} {
		require.NoError(t, s.Put(ctx, storage.Object{Key: k}))
	}

	keys, err := s.List(ctx, "2026/03/")
	require.NoError(t, err)
	assert.Equal(t, []string{"2026/03/a.png", "2026/03/b.pdf"}, keys)

	require.NoError(t, s.Delete(ctx, "2026/03/a.png"))
	keys, err = s.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, keys, 2)
}

func TestObjectKey(t *testing.T) {
	at := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2026/03/abc.png", storage.ObjectKey("abc", "image/png", at))
	assert.Equal(t, "2026/03/abc.bin", storage.ObjectKey("abc", "application/zip", at))
}

func TestMinIOConfigFromEnv(t *testing.T) {
	t.Setenv("MINIO_ENDPOINT", "")
	_, ok := storage.MinIOConfigFromEnv()
	assert.False(t, ok)

	t.Setenv("MINIO_ENDPOINT", "localhost:9000")
	t.Setenv("MINIO_BUCKET", "")
	t.Setenv("MINIO_USE_SSL", "true")
	cfg, ok := storage.MinIOConfigFromEnv()
	assert.True(t, ok)
	assert.Equal(t, "invoices", cfg.Bucket)
	assert.True(t, cfg.UseSSL)
}
