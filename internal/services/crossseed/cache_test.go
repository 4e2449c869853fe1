package crossseed

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	cache, err := NewCache(t.TempDir())
	require.NoError(t, err)
	return cache
}

func TestCachePutGetHas(t *testing.T) {
	cache := newTestCache(t)
	blob := []byte("d4:infod4:name1:xee")

	require.NoError(t, cache.Put(1, "abc123", blob))

	assert.True(t, cache.Has(1, "abc123"))
	assert.Equal(t, blob, cache.Get(1, "abc123"))

	assert.False(t, cache.Has(1, "missing"))
	assert.Nil(t, cache.Get(1, "missing"))
}

func TestCacheInstanceIsolation(t *testing.T) {
	cache := newTestCache(t)
	blobA := []byte("blob-a")
	blobB := []byte("blob-b")

	require.NoError(t, cache.Put(1, "samehash", blobA))
	require.NoError(t, cache.Put(2, "samehash", blobB))

	assert.Equal(t, blobA, cache.Get(1, "samehash"))
	assert.Equal(t, blobB, cache.Get(2, "samehash"))

	assert.Equal(t, 1, cache.Clear(1))
	assert.False(t, cache.Has(1, "samehash"))
	assert.True(t, cache.Has(2, "samehash"))
}

func TestCacheContentAddressing(t *testing.T) {
	cache := newTestCache(t)

	require.NoError(t, cache.Put(1, "hash1", []byte("first")))
	require.NoError(t, cache.Put(1, "hash1", []byte("second")))

	stats := cache.Stats(1)
	assert.Equal(t, 1, stats.Count)
	assert.Equal(t, int64(len("second")), stats.TotalSize)
}

func TestCacheStatsEmptyInstance(t *testing.T) {
	cache := newTestCache(t)
	stats := cache.Stats(42)
	assert.Zero(t, stats.Count)
	assert.Zero(t, stats.TotalSize)
}

func TestPutOutputSanitizesName(t *testing.T) {
	cache := newTestCache(t)

	path, err := cache.PutOutput(1, `Some<Bad>:"Name"`, "deadbeefcafe0123", []byte("blob"))
	require.NoError(t, err)

	base := filepath.Base(path)
	assert.Equal(t, `Some_Bad___Name_[deadbeef].torrent`, base)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("blob"), data)
}

func TestPutOutputTruncatesLongNames(t *testing.T) {
	cache := newTestCache(t)

	long := strings.Repeat("a", 300)
	path, err := cache.PutOutput(1, long, "deadbeefcafe0123", []byte("blob"))
	require.NoError(t, err)

	base := filepath.Base(path)
	assert.Equal(t, strings.Repeat("a", 200)+"[deadbeef].torrent", base)
}

func TestOutputStatsAndClear(t *testing.T) {
	cache := newTestCache(t)

	_, err := cache.PutOutput(1, "release-one", "1111111111111111", []byte("a"))
	require.NoError(t, err)
	_, err = cache.PutOutput(1, "release-two", "2222222222222222", []byte("b"))
	require.NoError(t, err)

	stats := cache.OutputStats(1)
	assert.Equal(t, 2, stats.Count)
	assert.Len(t, stats.Files, 2)

	assert.Equal(t, 2, cache.ClearOutput(1))
	assert.Zero(t, cache.OutputStats(1).Count)
}

func TestExpireRemovesOldEntries(t *testing.T) {
	cache := newTestCache(t)

	require.NoError(t, cache.Put(1, "old", []byte("old")))
	require.NoError(t, cache.Put(1, "new", []byte("new")))

	oldTime := time.Now().AddDate(0, 0, -45)
	oldPath := cache.entryPath(1, "old")
	require.NoError(t, os.Chtimes(oldPath, oldTime, oldTime))

	assert.Equal(t, 1, cache.Expire(1, 30))
	assert.False(t, cache.Has(1, "old"))
	assert.True(t, cache.Has(1, "new"))
}
