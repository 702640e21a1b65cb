package vptree

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	points := make([]uint64, 500)
	for i := range points {
		points[i] = rng.Uint64()
	}
	tree := New(points)

	var buf bytes.Buffer
	require.NoError(t, tree.Save(&buf))

	loaded, err := Load(&buf)
	require.NoError(t, err)
	require.NoError(t, loaded.Validate())
	assert.Equal(t, tree.Size(), loaded.Size())

	// The decoded tree need not have the same shape, but every range query
	// must return the same result set.
	for trial := 0; trial < 50; trial++ {
		query := rng.Uint64()
		radius := rng.Intn(20)

		want, err := tree.Within(query, radius)
		require.NoError(t, err)
		got, err := loaded.Within(query, radius)
		require.NoError(t, err)
		assertSameMatches(t, want, got)
	}
}

func TestSnapshotRoundTripEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, New(nil).Save(&buf))

	loaded, err := Load(&buf)
	require.NoError(t, err)
	assert.Equal(t, 0, loaded.Size())
}

func TestLoadCorruptData(t *testing.T) {
	_, err := Load(bytes.NewReader([]byte("definitely not a snapshot")))
	assert.ErrorIs(t, err, ErrCorruptSnapshot)
}

func TestLoadTruncatedData(t *testing.T) {
	tree := New([]uint64{1, 2, 3, 4, 5, 6, 7, 8})
	var buf bytes.Buffer
	require.NoError(t, tree.Save(&buf))

	_, err := Load(bytes.NewReader(buf.Bytes()[:buf.Len()/2]))
	assert.ErrorIs(t, err, ErrCorruptSnapshot)
}

func TestGobDecodeRejectsInvalidTree(t *testing.T) {
	// Hand-build a tree that breaks the partition invariant: a point at
	// distance 3 from the vantage point filed under a threshold of 1.
	bad := &Tree{
		root: &node{
			VP: 0,
			Mu: 1,
			Inside: &node{
				VP: 7, // Distance(0, 7) == 3 > Mu
			},
		},
		size: 2,
	}

	data, err := bad.GobEncode()
	require.NoError(t, err)

	var decoded Tree
	err = decoded.GobDecode(data)
	assert.ErrorIs(t, err, ErrCorruptSnapshot)
}
