package dhash

import (
	"image"
	"image/color"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// grayImage builds a (hashSize+1) x hashSize image from explicit pixel rows,
// matching the hasher's resample target so results are exact.
func grayImage(rows [][]uint8) *image.Gray {
	h := len(rows)
	w := len(rows[0])
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y, row := range rows {
		for x, v := range row {
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

func uniformImage(w, h int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

func TestHashUniformImageIsZero(t *testing.T) {
	// A 9x8 uniform gray image needs no resampling and has no gradients.
	hash, err := Hash(uniformImage(9, 8, 128), 8)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), hash)

	// Still zero when the resampler has to do real work.
	hash, err = Hash(uniformImage(640, 480, 37), 8)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), hash)
}

func TestHashAscendingRowsSetAllBits(t *testing.T) {
	// Strictly increasing brightness across each row turns every gradient on.
	rows := make([][]uint8, 8)
	for y := range rows {
		rows[y] = make([]uint8, 9)
		for x := range rows[y] {
			rows[y][x] = uint8(x * 10)
		}
	}
	hash, err := Hash(grayImage(rows), 8)
	require.NoError(t, err)
	assert.Equal(t, ^uint64(0), hash)
}

func TestHashBitOrderIsRowMajor(t *testing.T) {
	// Only the first gradient of the first row is ascending: bit 0 set.
	rows := make([][]uint8, 2)
	rows[0] = []uint8{0, 255, 0}
	rows[1] = []uint8{0, 0, 0}
	hash, err := Hash(grayImage(rows), 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), hash)

	// Only the first gradient of the second row: bit hashSize (=2) set.
	rows[0] = []uint8{0, 0, 0}
	rows[1] = []uint8{0, 255, 0}
	hash, err = Hash(grayImage(rows), 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(1<<2), hash)
}

func TestHashDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	img := image.NewGray(image.Rect(0, 0, 120, 90))
	for i := range img.Pix {
		img.Pix[i] = uint8(rng.Intn(256))
	}

	first, err := Hash(img, 8)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := Hash(img, 8)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestHashInvalidInput(t *testing.T) {
	valid := uniformImage(9, 8, 0)

	_, err := Hash(nil, 8)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = Hash(image.NewGray(image.Rect(0, 0, 0, 0)), 8)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = Hash(valid, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = Hash(valid, -1)
	assert.ErrorIs(t, err, ErrInvalidInput)

	// 9*9 = 81 bits does not fit the uint64 fingerprint.
	_, err = Hash(valid, 9)
	assert.ErrorIs(t, err, ErrInvalidInput)

	// The largest supported size is fine.
	_, err = Hash(valid, 8)
	assert.NoError(t, err)
}

func TestDistanceKnownValues(t *testing.T) {
	assert.Equal(t, 0, Distance(0, 0))
	assert.Equal(t, 1, Distance(0, 1))
	assert.Equal(t, 2, Distance(0, 3))
	assert.Equal(t, 3, Distance(0, 7))
	assert.Equal(t, 4, Distance(0, 15))
	assert.Equal(t, 64, Distance(0, ^uint64(0)))
}

func TestDistanceMetricAxioms(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 1000; i++ {
		a, b, c := rng.Uint64(), rng.Uint64(), rng.Uint64()

		assert.Equal(t, 0, Distance(a, a))
		assert.Equal(t, Distance(a, b), Distance(b, a))
		assert.LessOrEqual(t, Distance(a, c), Distance(a, b)+Distance(b, c))
		if a != b {
			assert.Greater(t, Distance(a, b), 0)
		}
	}
}
