package blobstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStoreLifecycle(t *testing.T, store BlobStore) {
	t.Helper()
	ctx := context.Background()

	data := []byte("compressed allocation payload")
	require.NoError(t, store.Put(ctx, "study/a-100.mxc", data))
	require.NoError(t, store.Put(ctx, "study/a-200.mxc", []byte("second")))
	require.NoError(t, store.Put(ctx, "other/x.mxc", []byte("x")))

	blob, err := store.Open(ctx, "study/a-100.mxc")
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, 10)
	n, err := blob.ReadAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.Equal(t, "compressed", string(buf))

	all, err := ReadAll(blob)
	require.NoError(t, err)
	assert.Equal(t, data, all)
	require.NoError(t, blob.Close())

	names, err := store.List(ctx, "study/")
	require.NoError(t, err)
	assert.Equal(t, []string{"study/a-100.mxc", "study/a-200.mxc"}, names)

	require.NoError(t, store.Put(ctx, "study/a-100.mxc", []byte("replaced")))
	blob, err = store.Open(ctx, "study/a-100.mxc")
	require.NoError(t, err)
	all, err = ReadAll(blob)
	require.NoError(t, err)
	assert.Equal(t, "replaced", string(all))
	require.NoError(t, blob.Close())

	require.NoError(t, store.Delete(ctx, "study/a-100.mxc"))
	require.NoError(t, store.Delete(ctx, "study/a-100.mxc"))

	_, err = store.Open(ctx, "study/a-100.mxc")
	assert.True(t, IsNotFound(err))
}

func TestLocalStore(t *testing.T) {
	dir := t.TempDir()
	testStoreLifecycle(t, NewLocalStore(dir))

	_, err := os.Stat(filepath.Join(dir, "study", "a-200.mxc"))
	require.NoError(t, err)
}

func TestLocalStore_ListMissingRoot(t *testing.T) {
	store := NewLocalStore(filepath.Join(t.TempDir(), "missing"))
	names, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestMemoryStore(t *testing.T) {
	testStoreLifecycle(t, NewMemoryStore())
}

func TestMemoryStore_IsolatesCallerBuffers(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	data := []byte("abc")
	require.NoError(t, store.Put(ctx, "k", data))
	data[0] = 'z'

	blob, err := store.Open(ctx, "k")
	require.NoError(t, err)
	got, err := ReadAll(blob)
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestMemoryStore_Len(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Put(ctx, "a", []byte("1")))
	require.NoError(t, store.Put(ctx, "b", []byte("2")))
	assert.Equal(t, 2, store.Len())

	require.NoError(t, store.Delete(ctx, "a"))
	assert.Equal(t, 1, store.Len())
}

func TestBytesBlob_ShortRead(t *testing.T) {
	blob := NewBytesBlob([]byte("abcdef"))
	buf := make([]byte, 4)

	n, err := blob.ReadAt(buf, 4)
	assert.Equal(t, 2, n)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "ef", string(buf[:n]))

	_, err = blob.ReadAt(buf, 6)
	assert.ErrorIs(t, err, io.EOF)
}
