package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shuntingyard/goopho/types"
)

func testImage(path string, hash uint64) types.ImageInfo {
	return types.ImageInfo{
		Path:       path,
		Format:     "jpg",
		Width:      640,
		Height:     480,
		ModifiedAt: time.Now().Format(time.RFC3339),
		Size:       1234,
		DHash:      hash,
	}
}

func TestStoreAndLoadCollection(t *testing.T) {
	db, err := InitDatabase(filepath.Join(t.TempDir(), "goopho.db"))
	require.NoError(t, err)
	defer db.Close()

	// The top-bit fingerprint exercises the int64 bit-cast: it must come
	// back exactly, bit for bit.
	require.NoError(t, StoreImageInfo(db, testImage("a.jpg", 0x8000000000000001), false))
	require.NoError(t, StoreImageInfo(db, testImage("b.jpg", 0x8000000000000001), false))
	require.NoError(t, StoreImageInfo(db, testImage("c.jpg", 7), false))

	idx, err := LoadCollection(db, "")
	require.NoError(t, err)

	assert.Equal(t, 2, idx.Len())
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, idx.Lookup(0x8000000000000001))
	assert.Equal(t, []string{"c.jpg"}, idx.Lookup(7))
}

func TestLoadCollectionWithPrefix(t *testing.T) {
	db, err := InitDatabase(filepath.Join(t.TempDir(), "goopho.db"))
	require.NoError(t, err)
	defer db.Close()

	drive1 := testImage("a.jpg", 1)
	drive1.SourcePrefix = "drive1"
	drive2 := testImage("b.jpg", 2)
	drive2.SourcePrefix = "drive2"
	require.NoError(t, StoreImageInfo(db, drive1, false))
	require.NoError(t, StoreImageInfo(db, drive2, false))

	idx, err := LoadCollection(db, "drive1")
	require.NoError(t, err)
	assert.Equal(t, 1, idx.Len())
	assert.Equal(t, []string{"a.jpg"}, idx.Lookup(1))

	all, err := LoadCollection(db, "")
	require.NoError(t, err)
	assert.Equal(t, 2, all.Len())
}

func TestCheckImageExists(t *testing.T) {
	db, err := InitDatabase(filepath.Join(t.TempDir(), "goopho.db"))
	require.NoError(t, err)
	defer db.Close()

	exists, _, err := CheckImageExists(db, "a.jpg", "")
	require.NoError(t, err)
	assert.False(t, exists)

	info := testImage("a.jpg", 1)
	require.NoError(t, StoreImageInfo(db, info, false))

	exists, modTime, err := CheckImageExists(db, "a.jpg", "")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, info.ModifiedAt, modTime)
}

func TestStoreImageInfoIgnoreAndReplace(t *testing.T) {
	db, err := InitDatabase(filepath.Join(t.TempDir(), "goopho.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, StoreImageInfo(db, testImage("a.jpg", 1), false))
	// Without force the existing row wins.
	require.NoError(t, StoreImageInfo(db, testImage("a.jpg", 2), false))

	idx, err := LoadCollection(db, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.jpg"}, idx.Lookup(1))
	assert.Empty(t, idx.Lookup(2))

	// With force the row is replaced.
	require.NoError(t, StoreImageInfo(db, testImage("a.jpg", 2), true))
	idx, err = LoadCollection(db, "")
	require.NoError(t, err)
	assert.Empty(t, idx.Lookup(1))
	assert.Equal(t, []string{"a.jpg"}, idx.Lookup(2))
}

func TestGetScanStats(t *testing.T) {
	db, err := InitDatabase(filepath.Join(t.TempDir(), "goopho.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, StoreImageInfo(db, testImage("a.jpg", 5), false))
	require.NoError(t, StoreImageInfo(db, testImage("b.jpg", 5), false))
	require.NoError(t, StoreImageInfo(db, testImage("c.jpg", 9), false))

	stats, err := GetScanStats(db, "")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalImages)
	assert.Equal(t, 2, stats.UniqueHashes)
}
