package storage

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocalClient(t *testing.T) (*LocalClient, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	client, err := NewLocalClient(fs, "/data/uploads")
	require.NoError(t, err)
	client.now = func() time.Time { return time.Date(2026, 4, 9, 8, 0, 0, 0, time.UTC) }
	return client, fs
}

func TestLocalPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	client, fs := newTestLocalClient(t)

	handle, err := client.Put(ctx, []byte("hello blob"), PutOptions{Name: "abc.txt", ContentType: "text/plain"})
	require.NoError(t, err)
	assert.Equal(t, "2026/04/09/abc.txt", handle)

	exists, err := afero.Exists(fs, filepath.Join("/data/uploads", "2026", "04", "09", "abc.txt"))
	require.NoError(t, err)
	assert.True(t, exists)

	data, err := client.Get(ctx, handle)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello blob"), data)
}

func TestLocalPutLeavesNoTempFiles(t *testing.T) {
	ctx := context.Background()
	client, fs := newTestLocalClient(t)

	_, err := client.Put(ctx, []byte("x"), PutOptions{Name: "one.bin"})
	require.NoError(t, err)

	entries, err := afero.ReadDir(fs, "/data/uploads/2026/04/09")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "one.bin", entries[0].Name())
}

func TestLocalPutGeneratesNameWhenEmpty(t *testing.T) {
	client, _ := newTestLocalClient(t)

	handle, err := client.Put(context.Background(), []byte("x"), PutOptions{})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(handle, "2026/04/09/"))
}

func TestLocalPutRejectsUnsafeNames(t *testing.T) {
	client, _ := newTestLocalClient(t)

	for _, name := range []string{"../escape.txt", "a/b.txt", ".hidden", ".."} {
		_, err := client.Put(context.Background(), []byte("x"), PutOptions{Name: name})
		var se *StorageError
		require.ErrorAs(t, err, &se, name)
		assert.Equal(t, "INVALID_NAME", se.Code)
	}
}

func TestLocalPutRefusesOverwrite(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestLocalClient(t)

	_, err := client.Put(ctx, []byte("first"), PutOptions{Name: "same.txt"})
	require.NoError(t, err)

	_, err = client.Put(ctx, []byte("second"), PutOptions{Name: "same.txt"})
	require.Error(t, err)

	data, err := client.Get(ctx, "2026/04/09/same.txt")
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), data)
}

func TestLocalGetMissing(t *testing.T) {
	client, _ := newTestLocalClient(t)

	_, err := client.Get(context.Background(), "2026/04/09/missing.txt")
	assert.ErrorIs(t, err, ErrBlobNotFound)
}

func TestLocalRejectsTraversalHandles(t *testing.T) {
	client, _ := newTestLocalClient(t)

	for _, handle := range []string{"", "../etc/passwd", "2026/../../x", "/abs/path", "a//b"} {
		_, err := client.Get(context.Background(), handle)
		var se *StorageError
		require.ErrorAs(t, err, &se, handle)
		assert.Equal(t, "INVALID_HANDLE", se.Code)
		assert.NotErrorIs(t, err, ErrBlobNotFound)
	}
}

func TestLocalDelete(t *testing.T) {
	ctx := context.Background()
	client, _ := newTestLocalClient(t)

	handle, err := client.Put(ctx, []byte("bye"), PutOptions{Name: "gone.txt"})
	require.NoError(t, err)

	require.NoError(t, client.Delete(ctx, handle))

	_, err = client.Get(ctx, handle)
	assert.ErrorIs(t, err, ErrBlobNotFound)

	assert.ErrorIs(t, client.Delete(ctx, handle), ErrBlobNotFound)
}

func TestLocalCancelledContext(t *testing.T) {
	client, _ := newTestLocalClient(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Put(ctx, []byte("x"), PutOptions{Name: "x.txt"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocalHealthCheck(t *testing.T) {
	client, fs := newTestLocalClient(t)

	require.NoError(t, client.HealthCheck(context.Background()))
	exists, _ := afero.Exists(fs, "/data/uploads/.health_check")
	assert.False(t, exists)

	info := client.GetProviderInfo()
	assert.Equal(t, "local", info.Type)
}

func TestStorageErrorUnwraps(t *testing.T) {
	err := notFound("local", "k")
	assert.ErrorIs(t, err, ErrBlobNotFound)
	assert.Contains(t, err.Error(), "local")
	assert.Contains(t, err.Error(), "k")
}
